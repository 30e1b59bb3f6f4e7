package config

import (
	"fmt"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher watches a single config file and calls onChange, debounced, after
// it's written. Mirrors the teacher's plugin directory watcher, narrowed to
// one file instead of a directory of shared-object plugins.
type Watcher struct {
	watcher  *fsnotify.Watcher
	path     string
	onChange func(path string)
	debounce time.Duration
	stopCh   chan struct{}
}

// NewWatcher opens an fsnotify watch on path's parent directory (fsnotify
// can't watch a single file across editors that replace it via rename), and
// calls onChange whenever path itself is the event's target.
func NewWatcher(path string, onChange func(path string), debounce time.Duration) (*Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("config: create watcher: %w", err)
	}
	dir := parentDir(path)
	if err := w.Add(dir); err != nil {
		w.Close()
		return nil, fmt.Errorf("config: watch %s: %w", dir, err)
	}
	if debounce <= 0 {
		debounce = 300 * time.Millisecond
	}
	return &Watcher{watcher: w, path: path, onChange: onChange, debounce: debounce, stopCh: make(chan struct{})}, nil
}

// Start runs the watch loop in its own goroutine.
func (w *Watcher) Start() {
	go w.run()
}

func (w *Watcher) run() {
	var pending *time.Timer
	fire := func() { w.onChange(w.path) }

	for {
		select {
		case <-w.stopCh:
			if pending != nil {
				pending.Stop()
			}
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Name != w.path {
				continue
			}
			if !(event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0) {
				continue
			}
			if pending != nil {
				pending.Stop()
			}
			pending = time.AfterFunc(w.debounce, fire)
		case _, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
		}
	}
}

// Stop ends the watch loop and releases the underlying fsnotify watcher.
func (w *Watcher) Stop() {
	close(w.stopCh)
	w.watcher.Close()
}

func parentDir(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' {
			return path[:i]
		}
	}
	return "."
}
