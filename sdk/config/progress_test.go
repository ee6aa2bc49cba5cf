// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

package config_test

import (
	"bytes"
	"io"
	"testing"
	"time"

	"github.com/scc-digitalhub/apkclient-sdk/sdk/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProgressTrackerThroughTee(t *testing.T) {
	var (
		starts   int
		lastSeen int64
		dones    []int64
	)
	hook := &config.ProgressHook{
		OnStart:    func(key string, total int64) { starts++ },
		OnProgress: func(key string, written, total int64) { lastSeen = written },
		OnDone:     func(key string, total int64, took time.Duration) { dones = append(dones, total) },
	}

	data := bytes.Repeat([]byte("apk"), 1000)
	pt := config.NewProgressTracker("app.apk", int64(len(data)), hook)
	n, err := io.Copy(io.Discard, io.TeeReader(bytes.NewReader(data), pt))
	require.NoError(t, err)
	pt.Done()
	pt.Done()

	assert.Equal(t, int64(len(data)), n)
	assert.Equal(t, int64(len(data)), pt.Written())
	assert.Equal(t, 1, starts)
	// reaching the total always emits
	assert.Equal(t, int64(len(data)), lastSeen)
	assert.Equal(t, []int64{int64(len(data))}, dones)
}

func TestProgressTrackerUnknownTotal(t *testing.T) {
	var final int64
	hook := &config.ProgressHook{
		OnDone: func(key string, total int64, took time.Duration) { final = total },
	}
	pt := config.NewProgressTracker("report.pdf", -1, hook)
	_, _ = pt.Write(make([]byte, 42))
	pt.Done()
	assert.Equal(t, int64(42), final)
}

func TestProgressTrackerNilHook(t *testing.T) {
	pt := config.NewProgressTracker("x", 1, nil)
	n, err := pt.Write([]byte{1})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	pt.Done()
}
