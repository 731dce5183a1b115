// Package skeleton turns class file blobs into the package-grouped
// structural model of a codebase.
package skeleton

import (
	"bytes"
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/cespare/xxhash/v2"
	"github.com/zeebo/blake3"

	"github.com/panbanda/jcohesion/internal/fileproc"
	"github.com/panbanda/jcohesion/pkg/analyzer"
	"github.com/panbanda/jcohesion/pkg/classfile"
	"github.com/panbanda/jcohesion/pkg/models"
	"github.com/panbanda/jcohesion/pkg/source"
)

// Builder parses blobs in parallel and assembles a Skeleton.
type Builder struct {
	skipErrors bool
	maxWorkers int
	logger     *slog.Logger
}

// Option is a functional option for configuring Builder.
type Option func(*Builder)

// WithSkipErrors records unparseable blobs and continues instead of
// failing the whole build.
func WithSkipErrors() Option {
	return func(b *Builder) {
		b.skipErrors = true
	}
}

// WithMaxWorkers bounds parsing concurrency (0 = 2x NumCPU).
func WithMaxWorkers(n int) Option {
	return func(b *Builder) {
		b.maxWorkers = n
	}
}

// WithLogger sets the logger for per-blob diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(b *Builder) {
		b.logger = l
	}
}

// New creates a new skeleton builder.
func New(opts ...Option) *Builder {
	b := &Builder{logger: slog.Default()}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Result is a built skeleton plus what was left out of it.
type Result struct {
	Skeleton *models.Skeleton
	// Excluded counts interfaces, enums, annotations, modules and
	// compiler-numbered classes.
	Excluded int
	// Duplicates counts blobs dropped because an identical blob or another
	// class with the same qualified name came first.
	Duplicates int
	// Errors holds the blobs that failed to parse when skipping errors.
	Errors *fileproc.ProcessingErrors
}

// Build parses every blob. Byte-identical blobs are parsed once, and when
// two blobs define the same class the first one in input order wins.
func (b *Builder) Build(ctx context.Context, blobs []source.Blob) (*Result, error) {
	unique, dupes := dedupeBlobs(blobs)
	for _, d := range dupes {
		b.logger.Debug("skipping identical class file", "path", d.Path)
	}

	tracker := analyzer.TrackerFromContext(ctx)
	if tracker != nil {
		tracker.Add(len(unique))
	}

	var excluded atomic.Int32
	classes, errs, err := fileproc.MapBlobs(ctx, unique, fileproc.Config{
		MaxWorkers: b.maxWorkers,
		SkipErrors: b.skipErrors,
		OnProgress: func(path string) {
			if tracker != nil {
				tracker.Tick(path)
			}
		},
		OnError: func(path string, err error) {
			b.logger.Warn("cannot parse class file", "path", path, "error", err)
		},
	}, func(blob source.Blob) (*models.ClassModel, error) {
		c, err := classfile.Parse(blob.Data)
		if errors.Is(err, classfile.ErrExcluded) {
			excluded.Add(1)
			b.logger.Debug("class excluded", "path", blob.Path)
			return nil, fileproc.ErrSkip
		}
		if err != nil {
			return nil, err
		}
		c.Source = blob.Path
		c.Digest = Digest(blob.Data)
		return c, nil
	})
	if err != nil {
		return nil, fmt.Errorf("parsing class files: %w", err)
	}

	seen := make(map[string]string, len(classes))
	kept := make([]models.ClassModel, 0, len(classes))
	duplicates := len(dupes)
	for _, c := range classes {
		name := c.QualifiedName()
		if first, ok := seen[name]; ok {
			b.logger.Warn("duplicate class definition", "class", name, "kept", first, "dropped", c.Source)
			duplicates++
			continue
		}
		seen[name] = c.Source
		kept = append(kept, *c)
	}

	b.logger.Debug("skeleton built",
		"blobs", len(blobs),
		"classes", len(kept),
		"excluded", excluded.Load(),
		"duplicates", duplicates,
		"errors", errs.Len())

	return &Result{
		Skeleton:   models.NewSkeleton(kept),
		Excluded:   int(excluded.Load()),
		Duplicates: duplicates,
		Errors:     errs,
	}, nil
}

// Digest returns the hex BLAKE3 digest of a class file.
func Digest(data []byte) string {
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// dedupeBlobs drops blobs whose bytes equal an earlier blob's.
func dedupeBlobs(blobs []source.Blob) (unique, dupes []source.Blob) {
	byHash := make(map[uint64][]int, len(blobs))
	unique = make([]source.Blob, 0, len(blobs))
	for _, blob := range blobs {
		h := xxhash.Sum64(blob.Data)
		dup := false
		for _, i := range byHash[h] {
			if bytes.Equal(unique[i].Data, blob.Data) {
				dup = true
				break
			}
		}
		if dup {
			dupes = append(dupes, blob)
			continue
		}
		byHash[h] = append(byHash[h], len(unique))
		unique = append(unique, blob)
	}
	return unique, dupes
}
