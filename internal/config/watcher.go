package config

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/banshee-data/trackcam/internal/monitoring"
)

// DefaultReloadDelay coalesces the burst of events editors emit on save.
const DefaultReloadDelay = 100 * time.Millisecond

// Watcher reloads a tuning file whenever it changes on disk and hands the
// new configuration to a callback. A file that fails to load or validate
// is logged and ignored, so the previous configuration stays in effect.
type Watcher struct {
	path     string
	onChange func(*TuningConfig)
	delay    time.Duration

	ready     chan struct{}
	readyOnce sync.Once

	mu       sync.Mutex
	debounce *time.Timer
}

// NewWatcher creates a Watcher for the tuning file at path.
func NewWatcher(path string, onChange func(*TuningConfig)) *Watcher {
	return &Watcher{
		path:     filepath.Clean(path),
		onChange: onChange,
		delay:    DefaultReloadDelay,
		ready:    make(chan struct{}),
	}
}

// Ready is closed once the underlying watch has been registered.
func (w *Watcher) Ready() <-chan struct{} {
	return w.ready
}

// Run watches the directory holding the tuning file until ctx is done.
// The directory is watched rather than the file so that editors which
// replace the file on save are still seen.
func (w *Watcher) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	dir := filepath.Dir(w.path)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	w.readyOnce.Do(func() { close(w.ready) })

	name := filepath.Base(w.path)
	for {
		select {
		case <-ctx.Done():
			w.stop()
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Base(event.Name) != name {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			w.scheduleReload()

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			monitoring.Logf("tuning watcher: error: %v", err)
		}
	}
}

func (w *Watcher) scheduleReload() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.debounce != nil {
		w.debounce.Stop()
	}
	w.debounce = time.AfterFunc(w.delay, w.reload)
}

func (w *Watcher) stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.debounce != nil {
		w.debounce.Stop()
	}
}

func (w *Watcher) reload() {
	cfg, err := LoadTuningConfig(w.path)
	if err != nil {
		monitoring.Logf("tuning watcher: keeping previous config: %v", err)
		return
	}
	monitoring.Logf("tuning watcher: reloaded %s", w.path)
	w.onChange(cfg)
}
