// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

package utils

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/scc-digitalhub/apkclient-sdk/sdk/config"
)

/* ------------ tiny UI helpers for single-line progress ------------ */

// ProgressLine renders transfer progress on a single terminal line.
type ProgressLine struct {
	out   io.Writer
	label string

	mu         sync.Mutex
	totalKnown bool
	totalBytes int64
	doneBytes  int64
	spinIdx    int
	lastTick   time.Time
}

var spinner = []rune{'|', '/', '-', '\\'}

func NewProgressLine(out io.Writer, label string) *ProgressLine {
	return &ProgressLine{out: out, label: label}
}

// Hook adapts the line to a config.ProgressHook.
func (gp *ProgressLine) Hook() *config.ProgressHook {
	return &config.ProgressHook{
		OnStart: func(key string, total int64) {
			gp.mu.Lock()
			defer gp.mu.Unlock()
			gp.doneBytes = 0
			gp.totalKnown = total > 0
			gp.totalBytes = total
		},
		OnProgress: func(key string, written, total int64) {
			gp.mu.Lock()
			defer gp.mu.Unlock()
			gp.doneBytes = written
			gp.render(false)
		},
		OnDone: func(key string, total int64, took time.Duration) {
			gp.mu.Lock()
			defer gp.mu.Unlock()
			if total > gp.doneBytes {
				gp.doneBytes = total
			}
			gp.render(true)
			fmt.Fprintf(gp.out, " in %s\n", took.Truncate(100*time.Millisecond))
		},
	}
}

func human(n int64) string {
	const (
		KB = 1024
		MB = 1024 * KB
		GB = 1024 * MB
	)
	switch {
	case n >= GB:
		return fmt.Sprintf("%.2f GB", float64(n)/float64(GB))
	case n >= MB:
		return fmt.Sprintf("%.2f MB", float64(n)/float64(MB))
	case n >= KB:
		return fmt.Sprintf("%.2f KB", float64(n)/float64(KB))
	default:
		return fmt.Sprintf("%d B", n)
	}
}

func (gp *ProgressLine) render(force bool) {
	// throttling: update ~10 times each seconds to avoid "spamming"
	if !force && time.Since(gp.lastTick) < 100*time.Millisecond {
		return
	}
	gp.lastTick = time.Now()

	if gp.totalKnown && gp.totalBytes > 0 {
		pct := float64(gp.doneBytes) / float64(gp.totalBytes) * 100
		if gp.doneBytes > gp.totalBytes {
			gp.doneBytes = gp.totalBytes
			pct = 100
		}
		fmt.Fprintf(gp.out, "\r%s: %6.2f%% (%s / %s)   ",
			gp.label, pct, human(gp.doneBytes), human(gp.totalBytes))
	} else {
		ch := spinner[gp.spinIdx%len(spinner)]
		gp.spinIdx++
		fmt.Fprintf(gp.out, "\r%s: [%c] %s   ", gp.label, ch, human(gp.doneBytes))
	}
}
