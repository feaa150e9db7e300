package config

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// ChangeHandler receives the validated new configuration after a reload.
// A hot-reloaded config only affects future triggers and assemblies.
type ChangeHandler func(prev, next *Config)

// Watcher reloads the config file when it changes on disk. Reloads are
// debounced (editors fire several events per save) and validate-then-swap:
// a file that fails to load or validate leaves the current config in place.
type Watcher struct {
	path     string
	watcher  *fsnotify.Watcher
	done     chan struct{}
	debounce time.Duration

	mu       sync.Mutex
	current  *Config
	handlers []ChangeHandler
}

// NewWatcher watches the config file at path, starting from the given
// loaded config. The parent directory is watched because many editors
// replace files by rename.
func NewWatcher(path string, current *Config) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fw.Add(filepath.Dir(path)); err != nil {
		fw.Close()
		return nil, err
	}
	return &Watcher{
		path:     path,
		watcher:  fw,
		done:     make(chan struct{}),
		debounce: 500 * time.Millisecond,
		current:  current,
	}, nil
}

// OnChange registers a handler called after every successful reload.
func (w *Watcher) OnChange(h ChangeHandler) {
	w.mu.Lock()
	w.handlers = append(w.handlers, h)
	w.mu.Unlock()
}

// Current returns the config in effect.
func (w *Watcher) Current() *Config {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.current
}

// Start begins watching in a background goroutine.
func (w *Watcher) Start() {
	go w.loop()
}

// Stop stops watching.
func (w *Watcher) Stop() error {
	close(w.done)
	return w.watcher.Close()
}

func (w *Watcher) loop() {
	var timer *time.Timer
	for {
		select {
		case <-w.done:
			return
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if ev.Name != w.path {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(w.debounce, w.reload)
		case _, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
		}
	}
}

func (w *Watcher) reload() {
	next, err := Load(w.path)
	if err != nil {
		// Keep the previous config; a bad edit must not take effect.
		return
	}
	next.BaseDir = w.Current().BaseDir

	w.mu.Lock()
	old := w.current
	w.current = next
	handlers := make([]ChangeHandler, len(w.handlers))
	copy(handlers, w.handlers)
	w.mu.Unlock()

	for _, h := range handlers {
		h(old, next)
	}
}
