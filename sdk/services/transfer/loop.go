// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

package transfer

import (
	"context"
	"sync"
)

// Dispatcher runs functions on the goroutine that owns the display. Post
// must not block and must run functions in the order they were posted.
type Dispatcher interface {
	Post(fn func())
}

// DispatcherFunc adapts a function to Dispatcher.
type DispatcherFunc func(fn func())

func (f DispatcherFunc) Post(fn func()) { f(fn) }

// EventLoop is a Dispatcher backed by an unbounded FIFO queue, drained by
// whichever goroutine calls Run.
type EventLoop struct {
	mu    sync.Mutex
	queue []func()
	wake  chan struct{}
}

func NewEventLoop() *EventLoop {
	return &EventLoop{wake: make(chan struct{}, 1)}
}

func (l *EventLoop) Post(fn func()) {
	if fn == nil {
		return
	}
	l.mu.Lock()
	l.queue = append(l.queue, fn)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// Run executes posted functions until ctx is done. Functions still queued
// at that point are dropped.
func (l *EventLoop) Run(ctx context.Context) {
	for {
		l.RunPending()
		select {
		case <-ctx.Done():
			return
		case <-l.wake:
		}
	}
}

// RunPending executes the functions queued so far and returns how many ran.
func (l *EventLoop) RunPending() int {
	n := 0
	for l.runPending() {
		n++
	}
	return n
}

func (l *EventLoop) runPending() bool {
	l.mu.Lock()
	if len(l.queue) == 0 {
		l.mu.Unlock()
		return false
	}
	fn := l.queue[0]
	l.queue[0] = nil
	l.queue = l.queue[1:]
	l.mu.Unlock()

	fn()
	return true
}
