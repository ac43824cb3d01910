// Copyright (c) 2026 Keymaster Team
// Keyview - key and credential object model
// This source code is licensed under the MIT license found in the LICENSE file.

// Package watch reports debounced changes to key files in a set of
// directories.
package watch

import (
	"fmt"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/toeirei/keyview/internal/logging"
)

// Config holds watcher configuration options.
type Config struct {
	Dirs     []string
	Debounce time.Duration
	// Filter selects the file paths whose changes matter. Nil accepts all.
	Filter func(path string) bool
}

// DefaultConfig returns a config with a 300ms debounce.
func DefaultConfig(dirs ...string) Config {
	return Config{Dirs: dirs, Debounce: 300 * time.Millisecond}
}

// Watcher monitors directories and signals after a burst of relevant
// events has settled.
type Watcher struct {
	fsWatcher *fsnotify.Watcher
	cfg       Config
	onChange  chan struct{}
	done      chan struct{}
	stopped   chan struct{}
}

// New creates a watcher for cfg.Dirs. Nothing is watched until Start.
func New(cfg Config) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating fsnotify watcher: %w", err)
	}
	return &Watcher{
		fsWatcher: fsw,
		cfg:       cfg,
		onChange:  make(chan struct{}, 1),
		done:      make(chan struct{}),
		stopped:   make(chan struct{}),
	}, nil
}

// Start begins watching and returns the notification channel. A pending
// notification that was not consumed yet absorbs later ones.
func (w *Watcher) Start() (<-chan struct{}, error) {
	for _, dir := range w.cfg.Dirs {
		if err := w.fsWatcher.Add(dir); err != nil {
			_ = w.fsWatcher.Close()
			return nil, fmt.Errorf("watching directory %s: %w", dir, err)
		}
	}
	go w.loop()
	return w.onChange, nil
}

// Stop terminates the watcher and releases resources. It must be called at
// most once, and only after a successful Start.
func (w *Watcher) Stop() error {
	close(w.done)
	err := w.fsWatcher.Close()
	<-w.stopped
	return err
}

func (w *Watcher) loop() {
	defer close(w.stopped)
	var timer *time.Timer
	var fire <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			if !w.relevant(event) {
				continue
			}
			logging.Debugf("watch: %s", event)
			if timer == nil {
				timer = time.NewTimer(w.cfg.Debounce)
			} else {
				timer.Reset(w.cfg.Debounce)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			select {
			case w.onChange <- struct{}{}:
			default:
			}

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			logging.Warnf("watch: %v", err)

		case <-w.done:
			return
		}
	}
}

func (w *Watcher) relevant(event fsnotify.Event) bool {
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
		return false
	}
	return w.cfg.Filter == nil || w.cfg.Filter(event.Name)
}
