package config

import (
	"sync"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
)

// Watcher reloads the Reloadable subset of a config file on change and
// hands the new snapshot to every registered listener. Secrets and
// connection endpoints are deliberately excluded from Reloadable — those
// still require a process restart.
type Watcher struct {
	path      string
	log       *logrus.Entry
	fsWatcher *fsnotify.Watcher

	mu        sync.Mutex
	listeners []func(Reloadable)

	current atomic.Value // holds Reloadable
}

// NewWatcher starts watching path for changes. Call Close when done.
func NewWatcher(path string, initial Reloadable, log *logrus.Entry) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fw.Add(path); err != nil {
		fw.Close()
		return nil, err
	}

	w := &Watcher{path: path, log: log, fsWatcher: fw}
	w.current.Store(initial)

	go w.loop()
	return w, nil
}

// Current returns the most recently loaded Reloadable snapshot.
func (w *Watcher) Current() Reloadable {
	return w.current.Load().(Reloadable)
}

// OnChange registers a listener invoked with the new snapshot after a
// successful reload.
func (w *Watcher) OnChange(fn func(Reloadable)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.listeners = append(w.listeners, fn)
}

func (w *Watcher) loop() {
	for {
		select {
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			w.reload()
		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			w.log.WithError(err).Warn("config watcher error")
		}
	}
}

func (w *Watcher) reload() {
	cfg, err := Load(w.path)
	if err != nil {
		w.log.WithError(err).Warn("config reload failed, keeping previous values")
		return
	}
	snap := cfg.Snapshot()
	w.current.Store(snap)

	w.mu.Lock()
	listeners := append([]func(Reloadable){}, w.listeners...)
	w.mu.Unlock()

	for _, fn := range listeners {
		fn(snap)
	}
	w.log.Info("config reloaded")
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	return w.fsWatcher.Close()
}
