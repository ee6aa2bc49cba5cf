// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"sync"
	"time"
)

/* -------------------- PROGRESS HOOK -------------------- */

type ProgressHook struct {
	OnStart    func(key string, totalBytes int64)                     // chiamata una volta all'inizio
	OnProgress func(key string, written, totalBytes int64)            // chiamata periodicamente
	OnDone     func(key string, totalBytes int64, took time.Duration) // a fine file
}

const progressInterval = 250 * time.Millisecond

// ProgressTracker is an io.Writer meant to sit behind an io.TeeReader: every
// byte read through the tee is counted and reported to the hook, throttled to
// one OnProgress call per interval. A negative total means unknown size.
type ProgressTracker struct {
	key   string
	total int64
	hook  *ProgressHook
	start time.Time

	mu       sync.Mutex
	written  int64
	lastEmit time.Time
	done     bool
}

func NewProgressTracker(key string, total int64, hook *ProgressHook) *ProgressTracker {
	pt := &ProgressTracker{key: key, total: total, hook: hook, start: time.Now()}
	if hook != nil && hook.OnStart != nil {
		hook.OnStart(key, total)
	}
	return pt
}

func (pt *ProgressTracker) Write(p []byte) (int, error) {
	n := len(p)
	pt.mu.Lock()
	pt.written += int64(n)
	written := pt.written
	now := time.Now()
	emit := pt.hook != nil && pt.hook.OnProgress != nil &&
		(written == pt.total || now.Sub(pt.lastEmit) >= progressInterval)
	if emit {
		pt.lastEmit = now
	}
	pt.mu.Unlock()

	if emit {
		pt.hook.OnProgress(pt.key, written, pt.total)
	}
	return n, nil
}

func (pt *ProgressTracker) Written() int64 {
	pt.mu.Lock()
	defer pt.mu.Unlock()
	return pt.written
}

// Done reports completion once. When the size was unknown the final byte
// count is reported as the total.
func (pt *ProgressTracker) Done() {
	pt.mu.Lock()
	if pt.done {
		pt.mu.Unlock()
		return
	}
	pt.done = true
	total := pt.total
	if total < 0 {
		total = pt.written
	}
	pt.mu.Unlock()

	if pt.hook != nil && pt.hook.OnDone != nil {
		pt.hook.OnDone(pt.key, total, time.Since(pt.start))
	}
}
