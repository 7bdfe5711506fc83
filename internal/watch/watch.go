// Package watch wraps fsnotify to feed the Indexing Scheduler a debounced
// "this directory changed" hint instead of relying purely on manual
// refresh requests.
package watch

import (
	"context"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/radhakrish-venkat/desktop-search/internal/logging"
)

// RefreshFunc is called with the directory root that changed, debounced so
// a burst of filesystem events collapses into one call.
type RefreshFunc func(ctx context.Context, root string) error

// Watcher tracks a set of registered directory roots and calls a debounced
// RefreshFunc whenever fsnotify reports a change under one of them.
type Watcher struct {
	fsw     *fsnotify.Watcher
	refresh RefreshFunc
	debounce time.Duration
	log     *logging.Logger

	roots map[string]struct{}
}

// New builds a Watcher. debounce is the quiet period required after the
// last event on a root before refresh fires; 0 defaults to 2 seconds.
func New(refresh RefreshFunc, debounce time.Duration) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if debounce <= 0 {
		debounce = 2 * time.Second
	}
	return &Watcher{
		fsw:      fsw,
		refresh:  refresh,
		debounce: debounce,
		log:      logging.New("watch"),
		roots:    make(map[string]struct{}),
	}, nil
}

// Add registers root for change notifications.
func (w *Watcher) Add(root string) error {
	w.roots[root] = struct{}{}
	return w.fsw.Add(root)
}

// Remove stops watching root.
func (w *Watcher) Remove(root string) error {
	delete(w.roots, root)
	return w.fsw.Remove(root)
}

// Close stops the underlying fsnotify watcher.
func (w *Watcher) Close() error {
	return w.fsw.Close()
}

// Run consumes fsnotify events until ctx is cancelled, debouncing per root
// and invoking refresh once the quiet period elapses.
func (w *Watcher) Run(ctx context.Context) {
	timers := make(map[string]*time.Timer)
	fire := make(chan string)

	defer func() {
		for _, t := range timers {
			t.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			root := w.ownerOf(event.Name)
			if root == "" {
				continue
			}
			if t, exists := timers[root]; exists {
				t.Stop()
			}
			timers[root] = time.AfterFunc(w.debounce, func() {
				select {
				case fire <- root:
				case <-ctx.Done():
				}
			})
		case root := <-fire:
			if err := w.refresh(ctx, root); err != nil {
				w.log.Warn("debounced refresh failed", "root", root, "err", err)
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.log.Warn("watch error", "err", err)
		}
	}
}

func (w *Watcher) ownerOf(path string) string {
	for root := range w.roots {
		if len(path) >= len(root) && path[:len(root)] == root {
			return root
		}
	}
	return ""
}
