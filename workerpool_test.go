// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package reactor

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestWorkerPool_FIFOOrder(t *testing.T) {
	p := NewWorkerPool(1)
	defer p.Shutdown()

	var mu sync.Mutex
	var order []int
	var wg sync.WaitGroup
	wg.Add(5)
	for i := 0; i < 5; i++ {
		i := i
		p.Async(func() {
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
			wg.Done()
		}, false, false)
	}
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []int{0, 1, 2, 3, 4}, order)
}

func TestWorkerPool_AsyncFirstPrepends(t *testing.T) {
	p := NewWorkerPool(1)
	defer p.Shutdown()

	// Block the single worker so both submissions queue up before either runs.
	block := make(chan struct{})
	p.Async(func() { <-block }, false, false)

	var mu sync.Mutex
	var order []string
	var wg sync.WaitGroup
	wg.Add(2)
	p.Async(func() {
		mu.Lock()
		order = append(order, "normal")
		mu.Unlock()
		wg.Done()
	}, false, false)
	p.AsyncFirst(func() {
		mu.Lock()
		order = append(order, "priority")
		mu.Unlock()
		wg.Done()
	}, false, false)

	close(block)
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"priority", "normal"}, order)
}

func TestWorkerPool_MaySyncOnlyWithFromWorker(t *testing.T) {
	p := NewWorkerPool(2)
	defer p.Shutdown()

	var ran atomic.Bool
	task := p.Async(func() { ran.Store(true) }, true, false)
	assert.NotNil(t, task, "maySync without fromWorker must still enqueue")

	task2 := p.Async(func() { ran.Store(true) }, true, true)
	assert.Nil(t, task2, "maySync with fromWorker runs inline and returns nil")
	assert.True(t, ran.Load())
}

func TestWorkerPool_SyncBlocksUntilDone(t *testing.T) {
	p := NewWorkerPool(1)
	defer p.Shutdown()

	var done atomic.Bool
	p.Sync(func() {
		time.Sleep(10 * time.Millisecond)
		done.Store(true)
	})
	assert.True(t, done.Load())
}

func TestWorkerPool_ShutdownJoinsAllWorkers(t *testing.T) {
	p := NewWorkerPool(4)
	var ran atomic.Int32
	for i := 0; i < 20; i++ {
		p.Async(func() { ran.Add(1) }, false, false)
	}
	p.Shutdown()
	assert.Equal(t, int32(20), ran.Load())

	// Shutdown must be idempotent.
	p.Shutdown()
}
