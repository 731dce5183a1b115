package progress

import (
	"fmt"
	"io"
	"sync"

	"github.com/schollz/progressbar/v3"
)

// Tracker wraps a progress bar for one stage of a run.
type Tracker struct {
	bar   *progressbar.ProgressBar
	w     io.Writer
	label string
}

// newTracker creates a progress bar with the given label and total count.
func newTracker(w io.Writer, label string, total int) *Tracker {
	bar := progressbar.NewOptions(total,
		progressbar.OptionSetWriter(w),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(30),
		progressbar.OptionSetDescription(label),
		progressbar.OptionUseANSICodes(true),
		progressbar.OptionSetElapsedTime(false),
		progressbar.OptionSetPredictTime(false),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "=",
			SaucerHead:    ">",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
	)
	return &Tracker{bar: bar, w: w, label: label}
}

// Tick increments the progress by 1. Safe for concurrent use.
func (t *Tracker) Tick() {
	_ = t.bar.Add(1)
}

// FinishSuccess clears the bar completely (no output).
func (t *Tracker) FinishSuccess() {
	_ = t.bar.Finish()
	_ = t.bar.Clear()
}

// FinishError clears the bar and prints an error message.
func (t *Tracker) FinishError(err error) {
	_ = t.bar.Finish()
	_ = t.bar.Clear()
	fmt.Fprintf(t.w, "  %s error: %v\n", t.label, err)
}

// Display turns stage reports from an analyzer.Tracker into one progress
// bar per stage. A quiet display swallows everything.
type Display struct {
	mu    sync.Mutex
	w     io.Writer
	quiet bool
	stage string
	bar   *Tracker
}

// NewDisplay creates a display that draws on w.
func NewDisplay(w io.Writer, quiet bool) *Display {
	return &Display{w: w, quiet: quiet}
}

// Report matches analyzer.ProgressFunc.
func (d *Display) Report(stage string, current, total int, item string) {
	if d.quiet {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.bar == nil || stage != d.stage {
		if d.bar != nil {
			d.bar.FinishSuccess()
		}
		d.stage = stage
		d.bar = newTracker(d.w, stage, total)
	}
	if total > 0 && d.bar.bar.GetMax() != total {
		d.bar.bar.ChangeMax(total)
	}
	d.bar.Tick()
}

// Fail clears the running bar and reports err under its stage.
func (d *Display) Fail(err error) {
	if d.quiet {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.bar != nil {
		d.bar.FinishError(err)
		d.bar = nil
	}
	d.stage = ""
}

// Finish clears the last bar.
func (d *Display) Finish() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.bar != nil {
		d.bar.FinishSuccess()
		d.bar = nil
	}
	d.stage = ""
}

// Stage returns the stage the display is drawing.
func (d *Display) Stage() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.stage
}
