// Package analyzer holds the contracts shared by the analysis stages:
// the analyzer interface and the context-carried progress tracker.
package analyzer

import (
	"context"

	"github.com/panbanda/jcohesion/pkg/models"
)

// ClassAnalyzer is the interface that class-model analyzers implement.
type ClassAnalyzer[T any] interface {
	// Analyze processes a collection of extracted classes and returns the
	// analysis result. The context carries cancellation and an optional
	// progress Tracker.
	Analyze(ctx context.Context, classes []*models.ClassModel) (T, error)

	// Close releases any resources held by the analyzer.
	Close()
}
