package analyzer

import (
	"context"
	"sync"
	"sync/atomic"
)

// ProgressFunc receives one report per completed item: the running stage,
// how many of its items are done, the stage total and the item just
// finished (a blob path or a class name).
type ProgressFunc func(stage string, current, total int, item string)

// Tracker counts completed items through the extraction and metric stages.
// It is safe for concurrent use from multiple goroutines.
type Tracker struct {
	mu       sync.RWMutex
	stage    string
	total    atomic.Int64
	current  atomic.Int64
	callback ProgressFunc
}

// NewTracker creates a tracker that reports through callback, which may
// be nil.
func NewTracker(callback ProgressFunc) *Tracker {
	return &Tracker{callback: callback}
}

// Stage starts a new named stage and resets the counts.
func (t *Tracker) Stage(name string) {
	t.mu.Lock()
	t.stage = name
	t.mu.Unlock()
	t.current.Store(0)
	t.total.Store(0)
}

// StageName returns the running stage.
func (t *Tracker) StageName() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.stage
}

// Add grows the stage total by n once the number of items is known.
func (t *Tracker) Add(n int) {
	t.total.Add(int64(n))
}

// Tick marks one item of the running stage as completed.
func (t *Tracker) Tick(item string) {
	current := int(t.current.Add(1))
	if t.callback != nil {
		t.callback(t.StageName(), current, int(t.total.Load()), item)
	}
}

// Current returns the number of completed items in the running stage.
func (t *Tracker) Current() int {
	return int(t.current.Load())
}

// Total returns the running stage's item count.
func (t *Tracker) Total() int {
	return int(t.total.Load())
}

type trackerKey struct{}

// WithTracker returns a context that carries a progress tracker.
func WithTracker(ctx context.Context, t *Tracker) context.Context {
	return context.WithValue(ctx, trackerKey{}, t)
}

// TrackerFromContext extracts the progress tracker from the context, or
// nil when none was set.
func TrackerFromContext(ctx context.Context) *Tracker {
	if t, ok := ctx.Value(trackerKey{}).(*Tracker); ok {
		return t
	}
	return nil
}
