// Yaiss - Image Upload Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/yaiss

package config

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/tomtom215/yaiss/internal/logging"
)

// ErrWatcherClosed is returned by HasChange once the watcher has been closed
// and every queued event has been consumed.
var ErrWatcherClosed = errors.New("config: watcher closed")

// eventQueue is an unbounded FIFO between the fsnotify pump and the single
// HasChange consumer. push never blocks and never drops.
type eventQueue struct {
	mu     sync.Mutex
	items  []fsnotify.Event
	notify chan struct{}
	closed bool
}

func newEventQueue() *eventQueue {
	return &eventQueue{notify: make(chan struct{}, 1)}
}

func (q *eventQueue) push(ev fsnotify.Event) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.items = append(q.items, ev)
	select {
	case q.notify <- struct{}{}:
	default:
	}
}

func (q *eventQueue) pop(ctx context.Context) (fsnotify.Event, error) {
	for {
		q.mu.Lock()
		if len(q.items) > 0 {
			ev := q.items[0]
			q.items[0] = fsnotify.Event{}
			q.items = q.items[1:]
			q.mu.Unlock()
			return ev, nil
		}
		closed := q.closed
		q.mu.Unlock()
		if closed {
			return fsnotify.Event{}, ErrWatcherClosed
		}

		select {
		case <-ctx.Done():
			return fsnotify.Event{}, ctx.Err()
		case <-q.notify:
		}
	}
}

func (q *eventQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

func (q *eventQueue) close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	close(q.notify)
}

// watcherComponent tags watcher log lines. The global logger is looked up at
// each call so a later logging.Init applies.
const watcherComponent = "config-watcher"

// Watcher reports content modifications of a single file.
type Watcher struct {
	path  string
	fsw   *fsnotify.Watcher
	queue *eventQueue
	done  chan struct{}

	closeOnce sync.Once
	closeErr  error
}

// NewWatcher installs a non-recursive watch on exactly path and starts the
// goroutine that moves raw events into the queue.
func NewWatcher(path string) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create file watcher: %w", err)
	}
	if err := fsw.Add(path); err != nil {
		_ = fsw.Close()
		return nil, fmt.Errorf("watch %s: %w", path, err)
	}

	w := &Watcher{
		path:  path,
		fsw:   fsw,
		queue: newEventQueue(),
		done:  make(chan struct{}),
	}
	go w.pump()
	return w, nil
}

func (w *Watcher) pump() {
	defer close(w.done)
	for {
		select {
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.queue.push(ev)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			logging.Warn().Str("component", watcherComponent).Err(err).Str("path", w.path).Msg("File watcher error")
		}
	}
}

// HasChange blocks until the next content modification of the file.
// Create, Remove, Rename and Chmod events are consumed and ignored.
// Each call waits for a new event; a modification observed while nobody was
// waiting is still delivered to the next call.
func (w *Watcher) HasChange(ctx context.Context) error {
	for {
		ev, err := w.queue.pop(ctx)
		if err != nil {
			return err
		}
		if ev.Has(fsnotify.Write) {
			logging.Debug().Str("component", watcherComponent).Str("path", ev.Name).Msg("Configuration file modified")
			return nil
		}
		logging.Debug().Str("component", watcherComponent).Str("path", ev.Name).Str("op", ev.Op.String()).Msg("Ignoring file event")
	}
}

// Close stops the watch. Pending HasChange calls return ErrWatcherClosed.
func (w *Watcher) Close() error {
	w.closeOnce.Do(func() {
		w.closeErr = w.fsw.Close()
		<-w.done
		w.queue.close()
	})
	return w.closeErr
}
