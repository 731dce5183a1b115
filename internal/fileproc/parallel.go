// Package fileproc provides concurrent blob processing utilities.
package fileproc

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"

	"github.com/sourcegraph/conc/pool"

	"github.com/panbanda/jcohesion/pkg/source"
)

// ErrSkip tells MapBlobs to drop a blob without recording an error.
var ErrSkip = errors.New("skip")

// ProcessingError represents an error that occurred while processing a blob.
type ProcessingError struct {
	Path string
	Err  error
}

func (e ProcessingError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

func (e ProcessingError) Unwrap() error {
	return e.Err
}

// ProcessingErrors collects multiple blob processing errors.
type ProcessingErrors struct {
	Errors []ProcessingError
	mu     sync.Mutex
}

// Add appends an error to the collection (thread-safe).
func (e *ProcessingErrors) Add(path string, err error) {
	e.mu.Lock()
	e.Errors = append(e.Errors, ProcessingError{Path: path, Err: err})
	e.mu.Unlock()
}

// HasErrors returns true if any errors were collected.
func (e *ProcessingErrors) HasErrors() bool {
	if e == nil {
		return false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.Errors) > 0
}

// Len returns the number of collected errors.
func (e *ProcessingErrors) Len() int {
	if e == nil {
		return 0
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.Errors)
}

// Error implements the error interface.
func (e *ProcessingErrors) Error() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.Errors) == 0 {
		return "no errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	return fmt.Sprintf("%d blobs failed to process (first: %v)", len(e.Errors), e.Errors[0])
}

// Unwrap returns nil (ProcessingErrors doesn't wrap a single error).
func (e *ProcessingErrors) Unwrap() error {
	return nil
}

// DefaultWorkerMultiplier is the multiplier applied to NumCPU for worker count.
const DefaultWorkerMultiplier = 2

// ProgressFunc is called after each blob is processed.
type ProgressFunc func(path string)

// ErrorFunc is called when a blob processing error occurs.
type ErrorFunc func(path string, err error)

// Config controls MapBlobs.
type Config struct {
	// MaxWorkers bounds concurrency (0 = 2x NumCPU).
	MaxWorkers int
	// SkipErrors records failures and keeps going instead of cancelling
	// the remaining work on the first one.
	SkipErrors bool
	OnProgress ProgressFunc
	OnError    ErrorFunc
}

// MapBlobs applies fn to every blob in parallel and returns the results in
// input order. A blob whose fn returns ErrSkip is dropped silently.
//
// By default the first failure cancels the pool and is returned as a
// ProcessingError. With SkipErrors every failure lands in the returned
// ProcessingErrors and the successful results are still returned.
func MapBlobs[T any](ctx context.Context, blobs []source.Blob, cfg Config, fn func(source.Blob) (T, error)) ([]T, *ProcessingErrors, error) {
	errs := &ProcessingErrors{}
	if len(blobs) == 0 {
		return nil, errs, nil
	}

	maxWorkers := cfg.MaxWorkers
	if maxWorkers <= 0 {
		maxWorkers = runtime.NumCPU() * DefaultWorkerMultiplier
	}

	type slot struct {
		value T
		ok    bool
	}
	slots := make([]slot, len(blobs))

	p := pool.New().WithContext(ctx).WithMaxGoroutines(maxWorkers)
	if !cfg.SkipErrors {
		p = p.WithCancelOnError().WithFirstError()
	}
	for i, blob := range blobs {
		p.Go(func(ctx context.Context) error {
			if err := ctx.Err(); err != nil {
				return err
			}

			result, err := fn(blob)
			if cfg.OnProgress != nil {
				cfg.OnProgress(blob.Path)
			}
			switch {
			case err == nil:
				slots[i] = slot{value: result, ok: true}
				return nil
			case errors.Is(err, ErrSkip):
				return nil
			}

			if cfg.OnError != nil {
				cfg.OnError(blob.Path, err)
			}
			if cfg.SkipErrors {
				errs.Add(blob.Path, err)
				return nil
			}
			return ProcessingError{Path: blob.Path, Err: err}
		})
	}
	if err := p.Wait(); err != nil {
		return nil, errs, err
	}

	results := make([]T, 0, len(blobs))
	for _, s := range slots {
		if s.ok {
			results = append(results, s.value)
		}
	}
	return results, errs, nil
}
