// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package reactor

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTask_RunsOnce(t *testing.T) {
	var n int
	task := NewTask(func() { n++ })
	task.Run()
	require.Equal(t, 1, n)
}

func TestTask_CancelBeforeRunIsNoop(t *testing.T) {
	var ran bool
	task := NewTask(func() { ran = true })
	task.Cancel()
	task.Run()
	assert.False(t, ran)
	assert.True(t, task.Cancelled())
}

func TestTask_CancelIdempotent(t *testing.T) {
	task := NewTask(func() {})
	task.Cancel()
	task.Cancel()
	assert.True(t, task.Cancelled())
}

// TestTask_CancelRaceFree exercises testable property 4: after Cancel
// returns on one goroutine, a concurrent Run from another goroutine
// must observe no-op, never a partial execution.
func TestTask_CancelRaceFree(t *testing.T) {
	for i := 0; i < 200; i++ {
		var n int
		task := NewTask(func() { n++ })

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			task.Run()
		}()
		go func() {
			defer wg.Done()
			task.Cancel()
		}()
		wg.Wait()

		// n is either 0 (cancel won the race) or 1 (run completed first);
		// it must never be anything else, and Cancelled must be true.
		assert.LessOrEqual(t, n, 1)
		assert.True(t, task.Cancelled())
	}
}

func TestTask_NilRunIsNoop(t *testing.T) {
	task := NewTask(nil)
	require.NotPanics(t, func() { task.Run() })
}

func TestExitTask_RunIsNoop(t *testing.T) {
	exit := newExitTask()
	require.NotPanics(t, func() { exit.Run() })
	assert.True(t, exit.isExit)
}
