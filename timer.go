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

// Timer is a thin, cancellable handle over a Reactor delay-task that
// reschedules itself every interval until Stop is called. Grounded on
// original_source/avctool/poller/Timer.{h,cc}.
type Timer struct {
	mu      sync.Mutex
	reactor *Reactor
	handle  *DelayTask
}

// NewTimer constructs a Timer bound to r. Call Start to arm it.
func NewTimer(r *Reactor) *Timer {
	return &Timer{reactor: r}
}

// Start installs a periodic delay-task firing fn every interval, if
// none is currently installed. Calling Start again while already
// running is a no-op; call Stop first to install a new schedule.
func (t *Timer) Start(interval time.Duration, fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.handle != nil {
		return
	}
	t.handle = t.reactor.AddDelayTask(interval, func() time.Duration {
		fn()
		return interval
	})
}

// Stop cancels the installed delay-task, if any. Idempotent.
func (t *Timer) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.handle != nil {
		t.handle.Cancel()
		t.handle = nil
	}
}
