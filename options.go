// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package reactor

import "time"

// reactorOptions holds configuration resolved from ReactorOption values.
type reactorOptions struct {
	logger           Logger
	sharedBufferSize int
	loadMaxSamples   int
	loadMaxWindow    time.Duration
}

func defaultReactorOptions() *reactorOptions {
	return &reactorOptions{
		logger:           NewStdLogger(),
		sharedBufferSize: 64 * 1024,
		loadMaxSamples:   32,
		loadMaxWindow:    2 * time.Second,
	}
}

// ReactorOption configures a Reactor at construction time.
type ReactorOption interface {
	applyReactor(*reactorOptions)
}

type reactorOptionFunc func(*reactorOptions)

func (f reactorOptionFunc) applyReactor(o *reactorOptions) { f(o) }

// WithLogger overrides the default StdLogger used by a Reactor (and, when
// passed to NewPool through WithPoolReactorOptions, every Reactor in the
// pool).
func WithLogger(l Logger) ReactorOption {
	return reactorOptionFunc(func(o *reactorOptions) {
		if l != nil {
			o.logger = l
		}
	})
}

// WithSharedBufferSize sets the size of the reactor's shared scratch read
// buffer, reused across read callbacks on the reactor goroutine. Default
// is 64KiB.
func WithSharedBufferSize(n int) ReactorOption {
	return reactorOptionFunc(func(o *reactorOptions) {
		if n > 0 {
			o.sharedBufferSize = n
		}
	})
}

// WithLoadWindow tunes the load sampler's bounded history: at most
// maxSamples entries are retained, and entries older than maxWindow
// (relative to the most recent sample) are evicted. Defaults are 32 and
// 2 seconds, matching observed production defaults for this style of
// sampler.
func WithLoadWindow(maxSamples int, maxWindow time.Duration) ReactorOption {
	return reactorOptionFunc(func(o *reactorOptions) {
		if maxSamples > 0 {
			o.loadMaxSamples = maxSamples
		}
		if maxWindow > 0 {
			o.loadMaxWindow = maxWindow
		}
	})
}

func resolveReactorOptions(opts []ReactorOption) *reactorOptions {
	cfg := defaultReactorOptions()
	for _, opt := range opts {
		if opt != nil {
			opt.applyReactor(cfg)
		}
	}
	return cfg
}

// poolOptions holds configuration resolved from PoolOption values.
type poolOptions struct {
	size          int
	reactorOpts   []ReactorOption
	logger        Logger
}

// PoolOption configures a Pool at construction time.
type PoolOption interface {
	applyPool(*poolOptions)
}

type poolOptionFunc func(*poolOptions)

func (f poolOptionFunc) applyPool(o *poolOptions) { f(o) }

// WithPoolSize overrides the default reactor count (runtime.GOMAXPROCS(0))
// used by NewPool.
func WithPoolSize(n int) PoolOption {
	return poolOptionFunc(func(o *poolOptions) {
		if n > 0 {
			o.size = n
		}
	})
}

// WithPoolReactorOptions forwards ReactorOption values to every Reactor
// the pool constructs.
func WithPoolReactorOptions(opts ...ReactorOption) PoolOption {
	return poolOptionFunc(func(o *poolOptions) {
		o.reactorOpts = append(o.reactorOpts, opts...)
	})
}

// WithPoolLogger stores l on the Pool and appends WithLogger(l) to the
// reactor options, so every reactor the pool constructs logs through l
// unless a WithLogger passed by a later WithPoolReactorOptions replaces
// it. The Pool itself emits no log output; placement decisions and
// reactor construction failures are not logged.
func WithPoolLogger(l Logger) PoolOption {
	return poolOptionFunc(func(o *poolOptions) {
		if l != nil {
			o.logger = l
			o.reactorOpts = append(o.reactorOpts, WithLogger(l))
		}
	})
}

func resolvePoolOptions(opts []PoolOption) *poolOptions {
	cfg := &poolOptions{logger: NewStdLogger()}
	for _, opt := range opts {
		if opt != nil {
			opt.applyPool(cfg)
		}
	}
	return cfg
}

// socketOptions holds configuration resolved from SocketOption values.
type socketOptions struct {
	maxWaitingQueue int
}

func defaultSocketOptions() *socketOptions {
	return &socketOptions{maxWaitingQueue: 4096}
}

// SocketOption configures a Socket at construction time.
type SocketOption interface {
	applySocket(*socketOptions)
}

type socketOptionFunc func(*socketOptions)

func (f socketOptionFunc) applySocket(o *socketOptions) { f(o) }

// WithMaxWaitingQueue bounds the number of send buffers a Socket holds in
// its waiting queue before Send returns a CodeOverloaded error; buffers
// already moved into the sending queue are not counted. Default is 4096.
func WithMaxWaitingQueue(n int) SocketOption {
	return socketOptionFunc(func(o *socketOptions) {
		if n > 0 {
			o.maxWaitingQueue = n
		}
	})
}

func resolveSocketOptions(opts []SocketOption) *socketOptions {
	cfg := defaultSocketOptions()
	for _, opt := range opts {
		if opt != nil {
			opt.applySocket(cfg)
		}
	}
	return cfg
}
