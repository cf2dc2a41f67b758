// Package watch re-runs an action whenever a bill file changes on disk.
package watch

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"porkvision/internal/logging"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce batches the burst of events an editor save produces.
const DefaultDebounce = 300 * time.Millisecond

// Stats counts watcher activity.
type Stats struct {
	Events   int
	Triggers int
	Errors   int
}

// FileWatcher calls OnChange for a single file. It watches the parent
// directory so atomic rename-on-save editors are seen too.
type FileWatcher struct {
	path     string
	debounce time.Duration
	onChange func(path string)

	mu    sync.Mutex
	stats Stats
}

// New returns a watcher for path. onChange runs on the watcher goroutine,
// so a slow callback delays later triggers rather than overlapping them.
func New(path string, debounce time.Duration, onChange func(path string)) (*FileWatcher, error) {
	if onChange == nil {
		return nil, errors.New("watch: nil callback")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("watch: resolve %s: %w", path, err)
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &FileWatcher{path: abs, debounce: debounce, onChange: onChange}, nil
}

// Path returns the absolute watched path.
func (w *FileWatcher) Path() string { return w.path }

// Stats returns a snapshot of the counters.
func (w *FileWatcher) Stats() Stats {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stats
}

// Run blocks until ctx is done. It returns nil on cancellation.
func (w *FileWatcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch: %w", err)
	}
	defer fw.Close()

	dir := filepath.Dir(w.path)
	if err := fw.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	logging.Ingest("watching %s", w.path)

	tick := w.debounce / 4
	if tick < 10*time.Millisecond {
		tick = 10 * time.Millisecond
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	var due time.Time
	for {
		select {
		case <-ctx.Done():
			logging.IngestDebug("watcher stopped: %s", w.path)
			return nil

		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if !w.relevant(event) {
				continue
			}
			w.count(func(s *Stats) { s.Events++ })
			due = time.Now().Add(w.debounce)

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.count(func(s *Stats) { s.Errors++ })
			logging.Get(logging.CategoryIngest).Error("watcher error: %v", err)

		case now := <-ticker.C:
			if due.IsZero() || now.Before(due) {
				continue
			}
			due = time.Time{}
			w.count(func(s *Stats) { s.Triggers++ })
			logging.IngestDebug("change detected: %s", w.path)
			w.onChange(w.path)
		}
	}
}

func (w *FileWatcher) relevant(event fsnotify.Event) bool {
	if filepath.Clean(event.Name) != w.path {
		return false
	}
	return event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) != 0
}

func (w *FileWatcher) count(fn func(*Stats)) {
	w.mu.Lock()
	fn(&w.stats)
	w.mu.Unlock()
}
