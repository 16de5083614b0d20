package config

import (
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/hugo-lorenzo-mato/panel/internal/core"
	"github.com/hugo-lorenzo-mato/panel/internal/logging"
)

const defaultReloadDebounce = 100 * time.Millisecond

// RoleWatcher keeps a role catalog in sync with its file. Readers always see
// a complete catalog; a file that fails to parse leaves the previous one in
// place.
type RoleWatcher struct {
	path     string
	current  atomic.Pointer[core.RoleCatalog]
	logger   *logging.Logger
	debounce time.Duration
	onReload func(*core.RoleCatalog)

	watcher *fsnotify.Watcher
	stop    chan struct{}
	done    chan struct{}

	mu    sync.Mutex
	timer *time.Timer
}

// RoleWatcherOption configures a RoleWatcher.
type RoleWatcherOption func(*RoleWatcher)

// WithReloadDebounce sets how long the watcher waits for writes to settle.
func WithReloadDebounce(d time.Duration) RoleWatcherOption {
	return func(w *RoleWatcher) {
		w.debounce = d
	}
}

// WithReloadHook registers a callback invoked after every successful reload.
func WithReloadHook(fn func(*core.RoleCatalog)) RoleWatcherOption {
	return func(w *RoleWatcher) {
		w.onReload = fn
	}
}

// NewRoleWatcher loads path and starts watching it. The initial load must
// succeed.
func NewRoleWatcher(path string, logger *logging.Logger, opts ...RoleWatcherOption) (*RoleWatcher, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	catalog, err := LoadRoleCatalog(path)
	if err != nil {
		return nil, err
	}

	w := &RoleWatcher{
		path:     path,
		logger:   logger.WithComponent("roles"),
		debounce: defaultReloadDebounce,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.current.Store(catalog)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	// Editors replace files on save, so watch the directory and filter by name.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		_ = watcher.Close()
		return nil, err
	}
	w.watcher = watcher

	go w.loop()
	return w, nil
}

// Current returns the latest successfully loaded catalog.
func (w *RoleWatcher) Current() *core.RoleCatalog {
	return w.current.Load()
}

// Reload re-reads the file immediately.
func (w *RoleWatcher) Reload() error {
	catalog, err := LoadRoleCatalog(w.path)
	if err != nil {
		w.logger.Warn("role catalog reload failed, keeping previous catalog", "path", w.path, "error", err)
		return err
	}
	w.current.Store(catalog)
	w.logger.Info("role catalog reloaded", "path", w.path, "roles", len(catalog.Names()))
	if w.onReload != nil {
		w.onReload(catalog)
	}
	return nil
}

func (w *RoleWatcher) loop() {
	defer close(w.done)
	target := filepath.Clean(w.path)
	for {
		select {
		case <-w.stop:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				w.scheduleReload()
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("role watcher error", "error", err)
		}
	}
}

func (w *RoleWatcher) scheduleReload() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, func() {
		_ = w.Reload()
	})
}

// Close stops watching. The last catalog stays readable.
func (w *RoleWatcher) Close() error {
	select {
	case <-w.stop:
		return nil
	default:
	}
	close(w.stop)
	err := w.watcher.Close()
	<-w.done

	w.mu.Lock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.mu.Unlock()
	return err
}
