package config

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"

	core "github.com/fleetops/fleet-analytics-core/internal/app/core/service"
	"github.com/fleetops/fleet-analytics-core/pkg/logger"
)

// Watcher watches the YAML override file for changes and re-parses it on
// every write, without requiring a process restart. It is a lifecycle
// service: Start spawns the watch goroutine, Stop tears it down.
type Watcher struct {
	path string
	log  *logger.Logger

	mu      sync.Mutex
	current *FileOverrides

	fsw    *fsnotify.Watcher
	cancel context.CancelFunc
	wg     sync.WaitGroup
	closed atomic.Bool
}

// NewWatcher builds a Watcher for the override file at path. The initial
// contents are loaded immediately so Current() is usable before Start.
func NewWatcher(path string, log *logger.Logger) (*Watcher, error) {
	initial, err := LoadFileOverrides(path)
	if err != nil {
		return nil, err
	}
	return &Watcher{path: path, log: log, current: initial}, nil
}

func (w *Watcher) Name() string { return "config-watcher" }

// Descriptor advertises this watcher's placement to the system manager.
func (w *Watcher) Descriptor() core.Descriptor {
	return core.Descriptor{
		Name:   w.Name(),
		Domain: "fleet-telemetry",
		Layer:  core.LayerData,
	}.WithCapabilities("hot-reload-overrides")
}

// Current returns the most recently parsed override set.
func (w *Watcher) Current() *FileOverrides {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.current
}

// Start begins watching the override file's parent directory for writes.
// Watching the directory rather than the file survives editors that replace
// the file instead of writing it in place.
func (w *Watcher) Start(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	dir := dirOf(w.path)
	if err := fsw.Add(dir); err != nil {
		fsw.Close()
		if w.log != nil {
			w.log.WithField("path", dir).Warn("config override directory unavailable, hot reload disabled")
		}
		return nil
	}
	w.fsw = fsw

	runCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	w.wg.Add(1)
	go w.run(runCtx)
	return nil
}

func (w *Watcher) run(ctx context.Context) {
	defer w.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if event.Name != w.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			w.reload()
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			if w.log != nil {
				w.log.WithError(err).Warn("config watcher error")
			}
		}
	}
}

// Reload re-parses the override file immediately, independent of the
// fsnotify watch. Used to service a SIGHUP-triggered reload.
func (w *Watcher) Reload() {
	w.reload()
}

func (w *Watcher) reload() {
	parsed, err := LoadFileOverrides(w.path)
	if err != nil {
		if w.log != nil {
			w.log.WithError(err).Warn("failed to reload config override file, keeping prior settings")
		}
		return
	}
	w.mu.Lock()
	w.current = parsed
	w.mu.Unlock()
	if w.log != nil {
		w.log.Info("config override file reloaded")
	}
}

// Stop stops the watch goroutine and releases the underlying fsnotify
// watcher. It is safe to call multiple times.
func (w *Watcher) Stop(ctx context.Context) error {
	if !w.closed.CompareAndSwap(false, true) {
		return nil
	}
	if w.cancel != nil {
		w.cancel()
	}
	if w.fsw != nil {
		_ = w.fsw.Close()
	}
	w.wg.Wait()
	return nil
}

func dirOf(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' {
			return path[:i]
		}
	}
	return "."
}
