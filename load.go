// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package reactor

import (
	"sync"
	"time"
)

// loadSample records one closed interval of sleeping or running time,
// grounded directly on the origin ThreadLoadCounter::TimeRecord.
type loadSample struct {
	sleeping bool
	delta    time.Duration
}

// loadCounter is a per-reactor running/sleeping time sampler exposing an
// integer load percentage over a bounded sliding window. OnSleep and
// OnWakeup must only ever be called from the owning reactor goroutine;
// Load may be called from any goroutine.
//
// Grounded on original_source/avctool/thread/ThreadLoadCounter.{h,cc}.
type loadCounter struct {
	mu         sync.Mutex
	sleeping   bool
	lastSleep  time.Time
	lastWakeup time.Time
	samples    []loadSample
	maxSamples int
	maxWindow  time.Duration
}

func newLoadCounter(maxSamples int, maxWindow time.Duration) *loadCounter {
	now := time.Now()
	return &loadCounter{
		sleeping:   true,
		lastSleep:  now,
		lastWakeup: now,
		maxSamples: maxSamples,
		maxWindow:  maxWindow,
	}
}

// OnSleep is called immediately before the reactor blocks in its kernel
// poll call. If the reactor was previously running, this closes a
// "running" interval and appends it as a sample.
func (c *loadCounter) OnSleep() {
	now := time.Now()
	c.mu.Lock()
	if !c.sleeping {
		c.appendLocked(loadSample{sleeping: false, delta: now.Sub(c.lastWakeup)})
	}
	c.sleeping = true
	c.lastSleep = now
	c.mu.Unlock()
}

// OnWakeup is called immediately after the reactor's kernel poll call
// returns. If the reactor was previously sleeping, this closes a
// "sleeping" interval and appends it as a sample.
func (c *loadCounter) OnWakeup() {
	now := time.Now()
	c.mu.Lock()
	if c.sleeping {
		c.appendLocked(loadSample{sleeping: true, delta: now.Sub(c.lastSleep)})
	}
	c.sleeping = false
	c.lastWakeup = now
	c.mu.Unlock()
}

// appendLocked appends s, then evicts from the front until both the
// count bound and the window bound are satisfied. Must be called with
// c.mu held.
func (c *loadCounter) appendLocked(s loadSample) {
	c.samples = append(c.samples, s)
	for len(c.samples) > c.maxSamples {
		c.samples = c.samples[1:]
	}
	var total time.Duration
	for _, s := range c.samples {
		total += s.delta
	}
	for total > c.maxWindow && len(c.samples) > 0 {
		total -= c.samples[0].delta
		c.samples = c.samples[1:]
	}
}

// Load returns round(100 * busy / (busy + idle)) over the currently
// retained samples plus the currently-open interval, attributed to
// whichever state (sleeping or running) is presently in effect.
func (c *loadCounter) Load() int {
	now := time.Now()
	c.mu.Lock()
	defer c.mu.Unlock()

	var runtime, sleepTime time.Duration
	if c.sleeping {
		sleepTime += now.Sub(c.lastSleep)
	} else {
		runtime += now.Sub(c.lastWakeup)
	}
	for _, s := range c.samples {
		if s.sleeping {
			sleepTime += s.delta
		} else {
			runtime += s.delta
		}
	}

	total := runtime + sleepTime
	if total <= 0 {
		return 0
	}
	return int((float64(runtime)/float64(total))*100 + 0.5)
}
