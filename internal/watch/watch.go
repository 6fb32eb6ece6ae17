// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package watch reports debounced changes to individual files.
//
// Parent directories are watched rather than the files themselves so that
// editors which save by writing a temp file and renaming it over the
// original keep triggering events.
package watch

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"

	"github.com/jeranaias/citeview/pkg/logger"
)

// DefaultDebounce coalesces bursts of writes from a single save.
const DefaultDebounce = 200 * time.Millisecond

// Handler is called with the absolute path of a changed file.
type Handler func(path string)

// Watcher watches a fixed set of files.
type Watcher struct {
	watcher  *fsnotify.Watcher
	debounce time.Duration
	handler  Handler

	mu      sync.Mutex
	files   map[string]bool
	pending map[string]time.Time

	ctx    context.Context
	cancel context.CancelFunc
	done   sync.WaitGroup
}

// New creates a watcher that calls handler after debounce has elapsed since
// the last event for a file.
func New(debounce time.Duration, handler Handler) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Watcher{
		watcher:  fw,
		debounce: debounce,
		handler:  handler,
		files:    make(map[string]bool),
		pending:  make(map[string]time.Time),
		ctx:      ctx,
		cancel:   cancel,
	}, nil
}

// Add starts watching path.
func (w *Watcher) Add(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	if err := w.watcher.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}
	w.mu.Lock()
	w.files[abs] = true
	w.mu.Unlock()
	return nil
}

// Start begins delivering events in the background.
func (w *Watcher) Start() {
	w.done.Add(2)
	go w.processEvents()
	go w.processPending()
}

// Run starts the watcher and blocks until ctx is done, then closes it.
func (w *Watcher) Run(ctx context.Context) error {
	w.Start()
	<-ctx.Done()
	return w.Close()
}

// Close stops watching and waits for the background goroutines.
func (w *Watcher) Close() error {
	w.cancel()
	err := w.watcher.Close()
	w.done.Wait()
	return err
}

func (w *Watcher) processEvents() {
	defer w.done.Done()
	for {
		select {
		case <-w.ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			abs, err := filepath.Abs(event.Name)
			if err != nil {
				continue
			}
			w.mu.Lock()
			if w.files[abs] {
				w.pending[abs] = time.Now()
			}
			w.mu.Unlock()
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logger.WithFields(logrus.Fields{"error": err.Error()}).Warn("WATCH_ERROR")
		}
	}
}

func (w *Watcher) processPending() {
	defer w.done.Done()
	tick := w.debounce / 2
	if tick < 10*time.Millisecond {
		tick = 10 * time.Millisecond
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-w.ctx.Done():
			return
		case <-ticker.C:
			now := time.Now()
			var ready []string
			w.mu.Lock()
			for path, changed := range w.pending {
				if now.Sub(changed) >= w.debounce {
					ready = append(ready, path)
					delete(w.pending, path)
				}
			}
			w.mu.Unlock()

			for _, path := range ready {
				w.handler(path)
			}
		}
	}
}
