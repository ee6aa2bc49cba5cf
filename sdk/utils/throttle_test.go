// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

package utils_test

import (
	"bytes"
	"context"
	"io"
	"testing"
	"time"

	"github.com/scc-digitalhub/apkclient-sdk/sdk/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestThrottledReaderDisabled(t *testing.T) {
	src := bytes.NewReader(nil)
	assert.Same(t, src, utils.NewThrottledReader(context.Background(), src, 0))
}

func TestThrottledReaderKeepsContent(t *testing.T) {
	// 64 KiB at 64 KiB/s fits in the initial burst
	src := payload(64 * 1024)
	r := utils.NewThrottledReader(context.Background(), bytes.NewReader(src), 64)

	got, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, src, got)
}

func TestThrottledReaderCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	r := utils.NewThrottledReader(ctx, bytes.NewReader(payload(10*1024)), 1)

	buf := make([]byte, 1024)
	_, err := r.Read(buf)
	require.NoError(t, err)

	cancel()
	start := time.Now()
	_, err = r.Read(buf)
	assert.Error(t, err)
	assert.Less(t, time.Since(start), time.Second)
}
