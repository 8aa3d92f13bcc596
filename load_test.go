// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package reactor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadCounter_IdleConvergesToZero(t *testing.T) {
	c := newLoadCounter(32, 2*time.Second)
	for i := 0; i < 10; i++ {
		c.OnSleep()
		time.Sleep(time.Millisecond)
		c.OnWakeup()
	}
	assert.LessOrEqual(t, c.Load(), 10, "mostly-sleeping counter should have near-zero load")
}

func TestLoadCounter_BusyConvergesToHundred(t *testing.T) {
	c := newLoadCounter(32, 2*time.Second)
	c.OnWakeup() // start running
	deadline := time.Now().Add(20 * time.Millisecond)
	for time.Now().Before(deadline) {
		// spin, simulating a reactor that never blocks in the kernel poll
	}
	assert.GreaterOrEqual(t, c.Load(), 90)
}

func TestLoadCounter_EvictsByCount(t *testing.T) {
	c := newLoadCounter(4, time.Hour)
	for i := 0; i < 20; i++ {
		c.OnSleep()
		c.OnWakeup()
	}
	c.mu.Lock()
	n := len(c.samples)
	c.mu.Unlock()
	assert.LessOrEqual(t, n, 4)
}

func TestLoadCounter_EvictsByWindow(t *testing.T) {
	c := newLoadCounter(1000, 5*time.Millisecond)
	c.OnSleep()
	time.Sleep(10 * time.Millisecond)
	c.OnWakeup()
	c.OnSleep()
	time.Sleep(time.Millisecond)
	c.OnWakeup()

	c.mu.Lock()
	var total time.Duration
	for _, s := range c.samples {
		total += s.delta
	}
	c.mu.Unlock()
	assert.LessOrEqual(t, total, 10*time.Millisecond)
}

func TestLoadCounter_NoSamplesIsZero(t *testing.T) {
	c := newLoadCounter(32, 2*time.Second)
	assert.Equal(t, 0, c.Load())
}
