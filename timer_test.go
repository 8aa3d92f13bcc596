// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package reactor

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimer_PeriodicFiringAndStop(t *testing.T) {
	r, err := NewReactor()
	require.NoError(t, err)
	r.RunLoop(false)
	defer func() { r.Shutdown(); r.Close() }()

	timer := NewTimer(r)
	var n atomic.Int32
	timer.Start(5*time.Millisecond, func() { n.Add(1) })

	time.Sleep(60 * time.Millisecond)
	timer.Stop()
	fired := n.Load()
	assert.GreaterOrEqual(t, fired, int32(3), "a 5ms timer should fire several times in 60ms")

	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, fired, n.Load(), "Stop must prevent further firings")
}

func TestTimer_StartIsNoopWhileRunning(t *testing.T) {
	r, err := NewReactor()
	require.NoError(t, err)
	r.RunLoop(false)
	defer func() { r.Shutdown(); r.Close() }()

	timer := NewTimer(r)
	var first, second atomic.Int32
	timer.Start(5*time.Millisecond, func() { first.Add(1) })
	timer.Start(time.Millisecond, func() { second.Add(1) })

	time.Sleep(40 * time.Millisecond)
	timer.Stop()
	assert.Greater(t, first.Load(), int32(0), "the original schedule must keep firing")
	assert.Equal(t, int32(0), second.Load(), "Start while already running must be a no-op")
}

func TestTimer_StartAfterStopInstallsNewSchedule(t *testing.T) {
	r, err := NewReactor()
	require.NoError(t, err)
	r.RunLoop(false)
	defer func() { r.Shutdown(); r.Close() }()

	timer := NewTimer(r)
	var slow, fast atomic.Int32
	timer.Start(time.Hour, func() { slow.Add(1) })
	timer.Stop()
	timer.Start(5*time.Millisecond, func() { fast.Add(1) })

	time.Sleep(40 * time.Millisecond)
	timer.Stop()
	assert.Equal(t, int32(0), slow.Load())
	assert.Greater(t, fast.Load(), int32(0))
}

func TestTimer_StopIsIdempotent(t *testing.T) {
	r, err := NewReactor()
	require.NoError(t, err)
	r.RunLoop(false)
	defer func() { r.Shutdown(); r.Close() }()

	timer := NewTimer(r)
	timer.Stop() // never started
	timer.Start(time.Millisecond, func() {})
	timer.Stop()
	timer.Stop() // already stopped
}
