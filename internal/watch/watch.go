// Package watch triggers re-indexing when a collection's root directory
// changes on disk, using fsnotify with a debounce window to coalesce bursts
// of events (editor saves, git checkouts) into a single rescan signal.
package watch

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is the window used to coalesce rapid fsnotify bursts into
// one rescan trigger.
const DefaultDebounce = 300 * time.Millisecond

// Watcher recursively watches a root directory and emits a signal on
// Changes() each time the debounce window elapses after at least one event.
type Watcher struct {
	fsw      *fsnotify.Watcher
	debounce time.Duration
	changes  chan struct{}

	mu    sync.Mutex
	timer *time.Timer
}

// New starts watching root (and every subdirectory beneath it) recursively.
func New(root string, debounce time.Duration) (*Watcher, error) {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{fsw: fsw, debounce: debounce, changes: make(chan struct{}, 1)}

	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if werr := fsw.Add(path); werr != nil {
				slog.Warn("qfs_watch_add_failed", slog.String("path", path), slog.String("error", werr.Error()))
			}
		}
		return nil
	})
	if err != nil {
		_ = fsw.Close()
		return nil, err
	}

	return w, nil
}

// Run blocks, forwarding fsnotify events into the debounced Changes channel
// until ctx is canceled.
func (w *Watcher) Run(ctx context.Context) {
	defer close(w.changes)
	defer w.fsw.Close()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if event.Has(fsnotify.Create) {
				if st, serr := os.Stat(event.Name); serr == nil && st.IsDir() {
					_ = w.fsw.Add(event.Name)
				}
			}
			w.scheduleSignal()
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			slog.Warn("qfs_watch_error", slog.String("error", err.Error()))
		}
	}
}

// Changes emits a value each time the debounce window closes after activity.
// The channel is closed when Run returns.
func (w *Watcher) Changes() <-chan struct{} {
	return w.changes
}

func (w *Watcher) scheduleSignal() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, func() {
		select {
		case w.changes <- struct{}{}:
		default:
		}
	})
}
