package watch

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/panbanda/jcohesion/pkg/config"
)

func newTestWatcher(t *testing.T, root string, debounce time.Duration) *Watcher {
	t.Helper()
	w, err := NewWatcher([]string{root}, config.DefaultConfig(), debounce)
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}
	w.SetOutput(io.Discard)
	t.Cleanup(func() { _ = w.Stop() })
	return w
}

func TestNewWatcher(t *testing.T) {
	tmpDir := t.TempDir()

	tests := []struct {
		name     string
		debounce time.Duration
		want     time.Duration
	}{
		{"default debounce", 0, 500 * time.Millisecond},
		{"custom debounce", time.Second, time.Second},
		{"negative debounce defaults", -time.Second, 500 * time.Millisecond},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := newTestWatcher(t, tmpDir, tt.debounce)
			if w.debounce != tt.want {
				t.Errorf("debounce = %v, want %v", w.debounce, tt.want)
			}
			if w.pending == nil {
				t.Error("pending map should be initialized")
			}
		})
	}
}

func TestNewWatcher_MissingRoot(t *testing.T) {
	_, err := NewWatcher([]string{filepath.Join(t.TempDir(), "missing")}, config.DefaultConfig(), 0)
	if err == nil {
		t.Error("expected error for missing root")
	}
}

func TestNewWatcher_WatchesTree(t *testing.T) {
	tmpDir := t.TempDir()
	for _, dir := range []string{"org/example", ".git/objects", "test-classes/org"} {
		if err := os.MkdirAll(filepath.Join(tmpDir, dir), 0o755); err != nil {
			t.Fatal(err)
		}
	}

	w := newTestWatcher(t, tmpDir, time.Second)

	watched := make(map[string]bool)
	for _, d := range w.WatchedDirs() {
		watched[d] = true
	}
	for _, want := range []string{tmpDir, filepath.Join(tmpDir, "org"), filepath.Join(tmpDir, "org", "example")} {
		if !watched[want] {
			t.Errorf("%s should be watched", want)
		}
	}
	for _, skip := range []string{filepath.Join(tmpDir, ".git"), filepath.Join(tmpDir, "test-classes")} {
		if watched[skip] {
			t.Errorf("%s should be excluded", skip)
		}
	}
}

func TestWatcher_handleEvent(t *testing.T) {
	tmpDir := t.TempDir()
	w := newTestWatcher(t, tmpDir, time.Second)

	tests := []struct {
		name        string
		event       fsnotify.Event
		wantPending bool
	}{
		{"write class file", fsnotify.Event{Name: filepath.Join(tmpDir, "Foo.class"), Op: fsnotify.Write}, true},
		{"create jar", fsnotify.Event{Name: filepath.Join(tmpDir, "lib.jar"), Op: fsnotify.Create}, true},
		{"removed class file", fsnotify.Event{Name: filepath.Join(tmpDir, "Gone.class"), Op: fsnotify.Remove}, true},
		{"chmod ignored", fsnotify.Event{Name: filepath.Join(tmpDir, "Foo.class"), Op: fsnotify.Chmod}, false},
		{"source file ignored", fsnotify.Event{Name: filepath.Join(tmpDir, "Foo.java"), Op: fsnotify.Write}, false},
		{"module-info excluded", fsnotify.Event{Name: filepath.Join(tmpDir, "module-info.class"), Op: fsnotify.Write}, false},
		{"excluded dir", fsnotify.Event{Name: filepath.Join(tmpDir, "test-classes", "FooTest.class"), Op: fsnotify.Write}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w.mu.Lock()
			w.pending = make(map[string]time.Time)
			w.mu.Unlock()

			w.handleEvent(tt.event)

			w.mu.Lock()
			_, found := w.pending[tt.event.Name]
			w.mu.Unlock()

			if found != tt.wantPending {
				t.Errorf("pending[%v] = %v, want %v", tt.event.Name, found, tt.wantPending)
			}
		})
	}
}

func TestWatcher_handleEvent_NewDirectory(t *testing.T) {
	tmpDir := t.TempDir()
	w := newTestWatcher(t, tmpDir, time.Second)

	dir := filepath.Join(tmpDir, "com", "acme")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	w.handleEvent(fsnotify.Event{Name: filepath.Join(tmpDir, "com"), Op: fsnotify.Create})

	found := false
	for _, d := range w.WatchedDirs() {
		if d == dir {
			found = true
		}
	}
	if !found {
		t.Errorf("new directory %s should be watched", dir)
	}
}

func TestWatcher_processPending_Batches(t *testing.T) {
	tmpDir := t.TempDir()
	w := newTestWatcher(t, tmpDir, 50*time.Millisecond)

	var got []string
	w.SetCallback(func(changed []string) { got = changed })

	old := time.Now().Add(-100 * time.Millisecond)
	w.mu.Lock()
	w.pending[filepath.Join(tmpDir, "B.class")] = old
	w.pending[filepath.Join(tmpDir, "A.class")] = old
	w.mu.Unlock()

	w.processPending()

	if len(got) != 2 || filepath.Base(got[0]) != "A.class" || filepath.Base(got[1]) != "B.class" {
		t.Errorf("callback batch = %v, want sorted A.class, B.class", got)
	}
	w.mu.Lock()
	left := len(w.pending)
	w.mu.Unlock()
	if left != 0 {
		t.Errorf("pending should be empty after flush, has %d", left)
	}
}

func TestWatcher_processPending_WaitsForQuiet(t *testing.T) {
	tmpDir := t.TempDir()
	w := newTestWatcher(t, tmpDir, time.Hour)

	called := false
	w.SetCallback(func([]string) { called = true })

	w.mu.Lock()
	w.pending[filepath.Join(tmpDir, "A.class")] = time.Now().Add(-2 * time.Hour)
	w.pending[filepath.Join(tmpDir, "B.class")] = time.Now()
	w.mu.Unlock()

	w.processPending()

	if called {
		t.Error("callback should wait until the latest change settles")
	}
	w.mu.Lock()
	left := len(w.pending)
	w.mu.Unlock()
	if left != 2 {
		t.Errorf("pending = %d, want 2", left)
	}
}

func TestWatcher_processPending_NoCallback(t *testing.T) {
	tmpDir := t.TempDir()
	w := newTestWatcher(t, tmpDir, 50*time.Millisecond)

	w.mu.Lock()
	w.pending[filepath.Join(tmpDir, "A.class")] = time.Now().Add(-time.Second)
	w.mu.Unlock()

	// Should not panic without callback
	w.processPending()
}

func TestWatcher_Start_DetectsWrites(t *testing.T) {
	tmpDir := t.TempDir()
	w := newTestWatcher(t, tmpDir, 50*time.Millisecond)

	var mu sync.Mutex
	var batches [][]string
	done := make(chan struct{}, 1)
	w.SetCallback(func(changed []string) {
		mu.Lock()
		batches = append(batches, changed)
		mu.Unlock()
		select {
		case done <- struct{}{}:
		default:
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = w.Start(ctx) }()

	target := filepath.Join(tmpDir, "Foo.class")
	if err := os.WriteFile(target, []byte{0xCA, 0xFE, 0xBA, 0xBE}, 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for change batch")
	}

	mu.Lock()
	defer mu.Unlock()
	if len(batches[0]) != 1 || batches[0][0] != target {
		t.Errorf("first batch = %v, want [%s]", batches[0], target)
	}
}

func TestWatcher_Stop(t *testing.T) {
	w, err := NewWatcher([]string{t.TempDir()}, config.DefaultConfig(), time.Second)
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}
	if err := w.Stop(); err != nil {
		t.Errorf("Stop() error = %v", err)
	}
}
