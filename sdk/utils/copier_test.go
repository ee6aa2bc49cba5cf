// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

package utils_test

import (
	"bytes"
	"errors"
	"io"
	"testing"
	"testing/iotest"

	"github.com/scc-digitalhub/apkclient-sdk/sdk/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSink struct {
	bytes.Buffer
	maxWrite int
	writeErr error
	flushed  bool
	closed   int
}

func (s *recordingSink) Write(p []byte) (int, error) {
	if s.writeErr != nil {
		return 0, s.writeErr
	}
	if len(p) > s.maxWrite {
		s.maxWrite = len(p)
	}
	return s.Buffer.Write(p)
}

func (s *recordingSink) Flush() error {
	s.flushed = true
	return nil
}

func (s *recordingSink) Close() error {
	s.closed++
	return nil
}

func payload(n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(i*7 + i/251)
	}
	return b
}

func TestCopyStreamPreservesContent(t *testing.T) {
	sizes := []int{0, 1, utils.CopyBufferSize - 1, utils.CopyBufferSize, utils.CopyBufferSize + 1, 5*utils.CopyBufferSize + 123}
	for _, size := range sizes {
		src := payload(size)
		sink := &recordingSink{}

		n, err := utils.CopyStream(sink, bytes.NewReader(src))
		require.NoError(t, err, "size %d", size)
		assert.Equal(t, int64(size), n)
		assert.Equal(t, size, sink.Len(), "size %d", size)
		assert.True(t, bytes.Equal(src, sink.Bytes()), "size %d", size)
		assert.LessOrEqual(t, sink.maxWrite, utils.CopyBufferSize)
		assert.True(t, sink.flushed)
		assert.Equal(t, 1, sink.closed)
	}
}

func TestCopyStreamOneByteReader(t *testing.T) {
	src := payload(1000)
	sink := &recordingSink{}

	n, err := utils.CopyStream(sink, iotest.OneByteReader(bytes.NewReader(src)))
	require.NoError(t, err)
	assert.Equal(t, int64(len(src)), n)
	assert.Equal(t, src, sink.Bytes())
}

func TestCopyStreamReadError(t *testing.T) {
	boom := errors.New("connection reset")
	sink := &recordingSink{}
	src := io.MultiReader(bytes.NewReader(payload(10)), iotest.ErrReader(boom))

	n, err := utils.CopyStream(sink, src)
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "read error")
	assert.Equal(t, int64(10), n)
	assert.Equal(t, 1, sink.closed)
}

func TestCopyStreamWriteError(t *testing.T) {
	full := errors.New("no space left on device")
	sink := &recordingSink{writeErr: full}

	_, err := utils.CopyStream(sink, bytes.NewReader(payload(100)))
	require.Error(t, err)
	assert.ErrorIs(t, err, full)
	assert.Contains(t, err.Error(), "write error")
	assert.Equal(t, 1, sink.closed)
}

type shortWriter struct{}

func (shortWriter) Write(p []byte) (int, error) { return len(p) / 2, nil }

func TestCopyChunksShortWrite(t *testing.T) {
	_, err := utils.CopyChunks(shortWriter{}, bytes.NewReader(payload(10)))
	assert.ErrorIs(t, err, io.ErrShortWrite)
}
