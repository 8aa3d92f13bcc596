// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package reactor

import "sync/atomic"

// taskState is checked by Run itself: cancellation must be visible to
// every goroutine the instant Cancel returns, so it cannot be left to
// ride on a weak.Pointer's GC-scheduled liveness.
type taskState int32

const (
	taskPending taskState = iota
	taskRunning
	taskDone
	taskCancelled
)

// Task is a cancellable handle for a queued unit of work, grounded on the
// origin implementation's TaskCancelableImpl<R(ARGS...)>. Cancellation
// stores the cancelled state and swaps the callable pointer to nil; Run
// claims the task with a compare-and-swap from pending to running, so a
// Run that starts after Cancel returns is a no-op, and a Cancel that lands
// while the callable is executing still leaves the task cancelled.
type Task struct {
	strong atomic.Pointer[func()]
	state  atomic.Int32

	// isExit marks the private sentinel task a reactor's Shutdown posts
	// to terminate its loop (see reactor.go). It is never set by public
	// API; the reactor's dispatcher checks this field to recognize the
	// sentinel.
	isExit bool
}

// NewTask wraps run in a cancellable handle. run may be nil, in which
// case the task is a no-op (useful for wakeups that carry no payload).
func NewTask(run func()) *Task {
	t := &Task{}
	t.state.Store(int32(taskPending))
	if run != nil {
		fn := run
		t.strong.Store(&fn)
	}
	return t
}

// Cancel marks the task cancelled and clears the callable. After Cancel
// returns, any call to Run that starts afterwards, from any goroutine, is
// a no-op; a Run already executing the callable is not interrupted.
// Cancel is idempotent.
func (t *Task) Cancel() {
	t.state.Store(int32(taskCancelled))
	t.strong.Store(nil)
}

// Cancelled reports whether Cancel has been called.
func (t *Task) Cancelled() bool {
	return taskState(t.state.Load()) == taskCancelled
}

// Run executes the wrapped callable if the task is still pending (not
// cancelled and not already run). It is safe to call concurrently with
// Cancel: Run moves the state from pending to running with a
// compare-and-swap before loading the callable, and moves it to done
// afterwards only if Cancel has not replaced it with cancelled meanwhile.
func (t *Task) Run() {
	if t.isExit {
		return
	}
	if !t.state.CompareAndSwap(int32(taskPending), int32(taskRunning)) {
		return
	}
	if fn := t.strong.Load(); fn != nil && *fn != nil {
		(*fn)()
	}
	t.state.CompareAndSwap(int32(taskRunning), int32(taskDone))
}

// newExitTask constructs the sentinel that Reactor.dispatchTasks
// recognizes by its isExit field to terminate the loop. It deliberately
// carries no runnable so that accidental execution is harmless.
func newExitTask() *Task {
	return &Task{isExit: true}
}
