// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package reactor

import (
	"runtime"
	"sync"
	"sync/atomic"
)

// Pool maintains a fixed set of Reactors and selects one for each newly
// created async object by observed load, preferring an idle reactor and
// otherwise falling back to the least loaded. Grounded on
// original_source/avctool/thread/TaskExecutorGetter.cc /
// poller/EventPollerPool.{h,cc}.
type Pool struct {
	logger   Logger
	reactors []*Reactor
	pos      atomic.Int64
	closed   atomic.Bool
}

var (
	defaultPoolMu sync.Mutex
	defaultPool   *Pool
)

// NewPool constructs and starts size reactors (runtime.GOMAXPROCS(0) if
// size <= 0). Every reactor is started via RunLoop(false) before NewPool
// returns.
func NewPool(size int, opts ...PoolOption) (*Pool, error) {
	cfg := resolvePoolOptions(opts)
	if size <= 0 {
		size = runtime.GOMAXPROCS(0)
	}
	if cfg.size > 0 {
		size = cfg.size
	}

	p := &Pool{logger: cfg.logger, reactors: make([]*Reactor, 0, size)}
	for i := 0; i < size; i++ {
		r, err := NewReactor(cfg.reactorOpts...)
		if err != nil {
			p.Close()
			return nil, newError(CodeCreation, "construct pool reactor", err)
		}
		r.RunLoop(false)
		p.reactors = append(p.reactors, r)
	}
	return p, nil
}

// Default returns the lazily-initialized process-wide Pool, constructing
// it with default options on first use.
func Default() (*Pool, error) {
	defaultPoolMu.Lock()
	defer defaultPoolMu.Unlock()
	if defaultPool != nil {
		return defaultPool, nil
	}
	p, err := NewPool(0)
	if err != nil {
		return nil, err
	}
	defaultPool = p
	return p, nil
}

// ShutdownDefault tears down the process-wide Pool if it was ever
// constructed via Default, joining every reactor's thread before
// returning.
func ShutdownDefault() {
	defaultPoolMu.Lock()
	p := defaultPool
	defaultPool = nil
	defaultPoolMu.Unlock()
	if p != nil {
		p.Close()
	}
}

// Size returns the number of reactors in the pool.
func (p *Pool) Size() int { return len(p.reactors) }

// Reactor returns the reactor at index i, for callers that need direct
// access (e.g. to attach a pre-existing fd).
func (p *Pool) Reactor(i int) *Reactor { return p.reactors[i] }

// GetTaskExecutor implements the pool's placement policy: a rotating
// tie-breaker sprays new work across idle reactors (load()==0) one at a
// time, and otherwise selects the minimum-load reactor, breaking ties by
// lowest index.
func (p *Pool) GetTaskExecutor() *Reactor {
	n := int64(len(p.reactors))
	if n == 0 {
		return nil
	}

	for {
		pos := p.pos.Load()
		if pos >= n {
			if p.pos.CompareAndSwap(pos, 0) {
				pos = 0
			} else {
				continue
			}
		}

		if p.reactors[pos].load.Load() == 0 {
			if p.pos.CompareAndSwap(pos, pos+1) {
				return p.reactors[pos]
			}
			continue
		}

		best := 0
		bestLoad := p.reactors[0].load.Load()
		for i := 1; i < int(n); i++ {
			l := p.reactors[i].load.Load()
			if l < bestLoad {
				bestLoad = l
				best = i
			}
		}
		if p.pos.CompareAndSwap(pos, int64(best)) {
			return p.reactors[best]
		}
	}
}

// Close shuts down every reactor in the pool, joining each thread, and
// releases its resources. Safe to call once; subsequent calls are a
// no-op.
func (p *Pool) Close() error {
	if !p.closed.CompareAndSwap(false, true) {
		return nil
	}
	var wg sync.WaitGroup
	for _, r := range p.reactors {
		r := r
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.Shutdown()
			r.Close()
		}()
	}
	wg.Wait()
	return nil
}
