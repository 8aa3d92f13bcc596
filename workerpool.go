// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package reactor

import (
	"runtime"
	"sync"
)

// WorkerPool is a fixed-size team of goroutines, distinct from a
// Reactor's single-threaded loop, that drains one shared FIFO task list
// under a counting semaphore. Grounded on
// original_source/avctool/thread/ThreadPool.h.
type WorkerPool struct {
	logger Logger

	mu      sync.Mutex
	tasks   []*Task
	sem     chan struct{}
	exit    bool
	wg      sync.WaitGroup
	workers int
}

// NewWorkerPool starts n workers (capped to runtime.GOMAXPROCS(0) if n <=
// 0 or exceeds it).
func NewWorkerPool(n int, opts ...ReactorOption) *WorkerPool {
	cfg := resolveReactorOptions(opts)
	maxProcs := runtime.GOMAXPROCS(0)
	if n <= 0 || n > maxProcs {
		n = maxProcs
	}
	p := &WorkerPool{
		logger:  cfg.logger,
		sem:     make(chan struct{}, 1<<20),
		workers: n,
	}
	p.wg.Add(n)
	for i := 0; i < n; i++ {
		go p.run()
	}
	return p
}

func (p *WorkerPool) run() {
	defer p.wg.Done()
	for range p.sem {
		p.mu.Lock()
		if p.exit && len(p.tasks) == 0 {
			p.mu.Unlock()
			return
		}
		if len(p.tasks) == 0 {
			p.mu.Unlock()
			continue
		}
		t := p.tasks[0]
		p.tasks = p.tasks[1:]
		p.mu.Unlock()

		p.safeRun(t)
	}
}

func (p *WorkerPool) safeRun(t *Task) {
	defer func() {
		if rec := recover(); rec != nil {
			p.logger.Warnf("reactor: worker pool task panicked: %v", rec)
		}
	}()
	t.Run()
}

// WorkerPool goroutines are anonymous and have no stable identity to
// compare against, so maySync inlining (unlike Reactor's) is only honored
// when the caller states, through the fromWorker parameter, that it is
// already running inside a worker.
//
// Async appends fn to the shared queue. maySync is honored (runs fn
// inline, returns nil) only when fromWorker is true, i.e. the caller
// itself is executing as one of this pool's workers.
func (p *WorkerPool) Async(fn func(), maySync bool, fromWorker bool) *Task {
	if maySync && fromWorker {
		fn()
		return nil
	}
	t := NewTask(fn)
	p.mu.Lock()
	p.tasks = append(p.tasks, t)
	p.mu.Unlock()
	p.sem <- struct{}{}
	return t
}

// AsyncFirst prepends fn to the shared queue.
func (p *WorkerPool) AsyncFirst(fn func(), maySync bool, fromWorker bool) *Task {
	if maySync && fromWorker {
		fn()
		return nil
	}
	t := NewTask(fn)
	p.mu.Lock()
	p.tasks = append([]*Task{t}, p.tasks...)
	p.mu.Unlock()
	p.sem <- struct{}{}
	return t
}

// Sync submits fn and blocks the caller until it has run (successfully
// or not; a panic inside fn is recovered by the worker, so Sync always
// returns once the submission has been serviced).
func (p *WorkerPool) Sync(fn func()) {
	gate := make(chan struct{})
	p.Async(func() {
		defer close(gate)
		fn()
	}, false, false)
	<-gate
}

// SyncFirst is Sync with queue-front priority.
func (p *WorkerPool) SyncFirst(fn func()) {
	gate := make(chan struct{})
	p.AsyncFirst(func() {
		defer close(gate)
		fn()
	}, false, false)
	<-gate
}

// Shutdown marks the pool exited and releases one semaphore token per
// worker so each observes exit and returns; it blocks until every
// worker goroutine has returned.
func (p *WorkerPool) Shutdown() {
	p.mu.Lock()
	if p.exit {
		p.mu.Unlock()
		return
	}
	p.exit = true
	p.mu.Unlock()
	for i := 0; i < p.workers; i++ {
		p.sem <- struct{}{}
	}
	close(p.sem)
	p.wg.Wait()
}
