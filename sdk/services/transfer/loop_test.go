// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

package transfer_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/scc-digitalhub/apkclient-sdk/sdk/services/transfer"
	"github.com/stretchr/testify/assert"
)

func TestEventLoopRunsInPostOrder(t *testing.T) {
	loop := transfer.NewEventLoop()
	var got []int
	for i := 0; i < 5; i++ {
		i := i
		loop.Post(func() { got = append(got, i) })
	}
	loop.Post(nil)

	assert.Equal(t, 5, loop.RunPending())
	assert.Equal(t, []int{0, 1, 2, 3, 4}, got)
	assert.Zero(t, loop.RunPending())
}

func TestEventLoopPostFromManyGoroutines(t *testing.T) {
	loop := transfer.NewEventLoop()
	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		loop.Run(ctx)
	}()

	const posts = 200
	var (
		wg    sync.WaitGroup
		count int // touched only by the loop goroutine
		done  = make(chan struct{})
	)
	for i := 0; i < posts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			loop.Post(func() {
				count++
				if count == posts {
					close(done)
				}
			})
		}()
	}
	wg.Wait()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("posted functions did not run")
	}
	cancel()
	<-stopped
}

func TestDispatcherFunc(t *testing.T) {
	var ran bool
	d := transfer.DispatcherFunc(func(fn func()) { fn() })
	d.Post(func() { ran = true })
	assert.True(t, ran)
}
