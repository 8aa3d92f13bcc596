// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package reactor

import (
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestReactor(t *testing.T) *Reactor {
	t.Helper()
	r, err := NewReactor()
	require.NoError(t, err)
	r.RunLoop(false)
	t.Cleanup(func() {
		r.Shutdown()
		r.Close()
	})
	return r
}

func TestReactor_AsyncRunsOnLoopGoroutine(t *testing.T) {
	r := newTestReactor(t)

	done := make(chan uint64, 1)
	r.Async(func() {
		done <- currentGoroutineID()
	}, false)

	id := <-done
	assert.Equal(t, r.goroutineID.Load(), id)
}

func TestReactor_AsyncFIFOOrder(t *testing.T) {
	r := newTestReactor(t)

	var mu sync.Mutex
	var order []int
	var wg sync.WaitGroup
	wg.Add(5)
	for i := 0; i < 5; i++ {
		i := i
		r.Async(func() {
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
			wg.Done()
		}, false)
	}
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []int{0, 1, 2, 3, 4}, order)
}

func TestReactor_MaySyncInlineOnOwnGoroutine(t *testing.T) {
	r := newTestReactor(t)

	done := make(chan bool, 1)
	r.Async(func() {
		task := r.Async(func() {}, true)
		done <- task == nil // maySync+on-goroutine runs inline, returns nil
	}, false)
	assert.True(t, <-done)
}

func TestReactor_AttachDetach_NoCallbackAfterDetach(t *testing.T) {
	r := newTestReactor(t)

	pr, pw, err := os.Pipe()
	require.NoError(t, err)
	defer pr.Close()
	defer pw.Close()

	// The poller is level-triggered, so the callback consumes the byte to
	// stop the same readiness from firing again.
	fd := int(pr.Fd())
	var fired atomic.Int32
	require.NoError(t, r.Attach(fd, EventRead, func(IOEvents) {
		var b [8]byte
		readFD(fd, b[:])
		fired.Add(1)
	}))

	pw.Write([]byte("x"))
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(1), fired.Load())

	require.NoError(t, r.Detach(int(pr.Fd())))
	pw.Write([]byte("y"))
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(1), fired.Load(), "no callback should fire after Detach")
}

func TestReactor_AddDelayTask_RearmAndCancel(t *testing.T) {
	r := newTestReactor(t)

	var n atomic.Int32
	handle := r.AddDelayTask(5*time.Millisecond, func() time.Duration {
		n.Add(1)
		return 5 * time.Millisecond
	})

	time.Sleep(60 * time.Millisecond)
	handle.Cancel()
	fired := n.Load()
	assert.GreaterOrEqual(t, fired, int32(3))

	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, fired, n.Load(), "cancel must stop further rearming")
}

func TestReactor_ShutdownJoinsThread(t *testing.T) {
	r, err := NewReactor()
	require.NoError(t, err)
	r.RunLoop(false)

	r.Shutdown()
	assert.Equal(t, StateTerminated, r.State())

	var fired atomic.Bool
	r.Async(func() { fired.Store(true) }, false)
	time.Sleep(10 * time.Millisecond)
	assert.False(t, fired.Load(), "no task should run after the reactor has shut down")

	require.NoError(t, r.Close())
}

func TestReactor_SharedBufferSized(t *testing.T) {
	r, err := NewReactor(WithSharedBufferSize(1024))
	require.NoError(t, err)
	defer r.Close()
	buf := r.SharedBuffer()
	assert.Len(t, buf, 1024)
}
