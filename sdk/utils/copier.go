// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

package utils

import (
	"fmt"
	"io"
	"sync"
)

// CopyBufferSize is the chunk size used by CopyStream: peak memory of a copy
// is one buffer, whatever the size of the source.
const CopyBufferSize = 64 * 1024

var copyBuffers = sync.Pool{
	New: func() interface{} {
		buf := make([]byte, CopyBufferSize)
		return &buf
	},
}

type flusher interface {
	Flush() error
}

type syncer interface {
	Sync() error
}

// CopyStream copies src into dst chunk by chunk and returns the number of
// bytes written. dst is flushed and closed on every exit path; on error the
// partial content already written is left for the caller to discard.
func CopyStream(dst io.WriteCloser, src io.Reader) (n int64, err error) {
	defer func() {
		if ferr := flush(dst); ferr != nil && err == nil {
			err = fmt.Errorf("flush error: %w", ferr)
		}
		if cerr := dst.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close error: %w", cerr)
		}
	}()
	return CopyChunks(dst, src)
}

// CopyChunks is the copy loop of CopyStream without taking ownership of dst.
func CopyChunks(dst io.Writer, src io.Reader) (int64, error) {
	bufPtr := copyBuffers.Get().(*[]byte)
	defer copyBuffers.Put(bufPtr)
	buf := *bufPtr

	var written int64
	for {
		nr, readErr := src.Read(buf)
		if nr > 0 {
			nw, writeErr := dst.Write(buf[:nr])
			if nw > 0 {
				written += int64(nw)
			}
			if writeErr != nil {
				return written, fmt.Errorf("write error: %w", writeErr)
			}
			if nw != nr {
				return written, fmt.Errorf("write error: %w", io.ErrShortWrite)
			}
		}
		if readErr != nil {
			if readErr == io.EOF {
				return written, nil
			}
			return written, fmt.Errorf("read error: %w", readErr)
		}
	}
}

func flush(w io.Writer) error {
	switch v := w.(type) {
	case flusher:
		return v.Flush()
	case syncer:
		return v.Sync()
	}
	return nil
}
