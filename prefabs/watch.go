package prefabs

import (
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher watches the prefab directories for edits so debug builds can
// hot-reload tuning without a restart. Changes accumulate internally; the
// game polls TakeChanged once per tick instead of draining channels, which
// keeps the reload on the game loop's own goroutine.
type Watcher struct {
	fsw *fsnotify.Watcher

	mu      sync.Mutex
	seen    map[string]time.Time
	pending []string
	lastErr error

	closeCh chan struct{}
	once    sync.Once
}

func NewWatcher(dirs ...string) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	for _, dir := range dirs {
		if err := fsw.Add(dir); err != nil {
			_ = fsw.Close()
			return nil, err
		}
	}
	w := &Watcher{
		fsw:     fsw,
		seen:    map[string]time.Time{},
		closeCh: make(chan struct{}),
	}
	go w.run()
	return w, nil
}

func (w *Watcher) Close() error {
	var err error
	w.once.Do(func() {
		close(w.closeCh)
		err = w.fsw.Close()
	})
	return err
}

// TakeChanged returns the prefab paths edited since the last call, oldest
// first, and clears the queue.
func (w *Watcher) TakeChanged() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := w.pending
	w.pending = nil
	return out
}

// Err returns and clears the most recent watch error.
func (w *Watcher) Err() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	err := w.lastErr
	w.lastErr = nil
	return err
}

func (w *Watcher) run() {
	for {
		select {
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
				continue
			}
			w.note(event.Name, time.Now())
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.mu.Lock()
			w.lastErr = err
			w.mu.Unlock()
		case <-w.closeCh:
			return
		}
	}
}

// debounce window; editors fire several events per save
const watchDebounce = 100 * time.Millisecond

// note records one filesystem event, dropping files that are not prefab
// specs or scripts and collapsing per-path event bursts. Reports whether
// the path was queued.
func (w *Watcher) note(path string, now time.Time) bool {
	if !isSpecFile(path) && !isScriptFile(path) {
		return false
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.seen[path]; ok && now.Sub(t) < watchDebounce {
		return false
	}
	w.seen[path] = now
	w.pending = append(w.pending, path)
	return true
}

func isSpecFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

func isScriptFile(path string) bool {
	return strings.ToLower(filepath.Ext(path)) == ".tengo"
}
