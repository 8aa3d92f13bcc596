// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package reactor

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPool_SizeDefaultsToOptionOverride(t *testing.T) {
	p, err := NewPool(0, WithPoolSize(3))
	require.NoError(t, err)
	defer p.Close()
	assert.Equal(t, 3, p.Size())
}

func TestPool_GetTaskExecutorSpraysAcrossIdle(t *testing.T) {
	p, err := NewPool(4)
	require.NoError(t, err)
	defer p.Close()

	seen := make(map[*Reactor]bool)
	for i := 0; i < 4; i++ {
		seen[p.GetTaskExecutor()] = true
	}
	assert.Len(t, seen, 4, "four idle reactors should each be picked exactly once in a row")
}

func TestPool_GetTaskExecutorPrefersLeastLoaded(t *testing.T) {
	p, err := NewPool(3)
	require.NoError(t, err)
	defer p.Close()

	// Keep reactor 0 busy so its load climbs above the others.
	busy := p.reactors[0]
	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	busy.Async(func() {
		defer wg.Done()
		for {
			select {
			case <-stop:
				return
			default:
			}
		}
	}, false)

	time.Sleep(50 * time.Millisecond)
	close(stop)
	wg.Wait()

	// Immediately after the busy loop returns, reactor 0's sampled load
	// is still high while the other two have never run anything, so the
	// selection must pick one of the idle reactors.
	exec := p.GetTaskExecutor()
	assert.NotNil(t, exec)
	assert.NotSame(t, busy, exec)
}

func TestPool_CloseJoinsAllReactors(t *testing.T) {
	p, err := NewPool(2)
	require.NoError(t, err)
	require.NoError(t, p.Close())
	for _, r := range p.reactors {
		assert.Equal(t, StateTerminated, r.State())
	}
}

func TestDefault_LazySingleton(t *testing.T) {
	a, err := Default()
	require.NoError(t, err)
	b, err := Default()
	require.NoError(t, err)
	assert.Same(t, a, b)
	ShutdownDefault()
}
