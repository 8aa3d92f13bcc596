// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package reactor

import "sync/atomic"

// ReactorState represents the lifecycle of a Reactor. Unlike the teacher's
// five-state dual fast-path/poll-mode machine, this model carries only the
// states the spec's single-loop design actually needs: a reactor is
// awake (constructed but RunLoop not yet called), running (including while
// blocked in the kernel poll call — readiness of that distinction matters
// to the load sampler, not to callers), terminating (Shutdown requested),
// or terminated.
type ReactorState uint32

const (
	// StateAwake is the state immediately after construction.
	StateAwake ReactorState = iota
	// StateRunning is set for the entire lifetime of RunLoop, including
	// while blocked in the kernel poll call.
	StateRunning
	// StateTerminating is set once Shutdown has been requested but the
	// loop goroutine has not yet observed and acted on it.
	StateTerminating
	// StateTerminated is terminal: the loop goroutine has returned from
	// RunLoop. The poller and wakeup channel stay open until Close.
	StateTerminated
)

func (s ReactorState) String() string {
	switch s {
	case StateAwake:
		return "Awake"
	case StateRunning:
		return "Running"
	case StateTerminating:
		return "Terminating"
	case StateTerminated:
		return "Terminated"
	default:
		return "Unknown"
	}
}

// fastState is a lock-free atomic wrapper around ReactorState, following
// the teacher's FastState idiom (pure CAS, no mutex) but trimmed to the
// four-state machine above.
type fastState struct {
	v atomic.Uint32
}

func newFastState() *fastState {
	s := &fastState{}
	s.v.Store(uint32(StateAwake))
	return s
}

func (s *fastState) Load() ReactorState { return ReactorState(s.v.Load()) }

func (s *fastState) Store(state ReactorState) { s.v.Store(uint32(state)) }

func (s *fastState) TryTransition(from, to ReactorState) bool {
	return s.v.CompareAndSwap(uint32(from), uint32(to))
}

func (s *fastState) IsTerminal() bool { return s.Load() == StateTerminated }

func (s *fastState) CanAcceptWork() bool {
	switch s.Load() {
	case StateAwake, StateRunning:
		return true
	default:
		return false
	}
}
