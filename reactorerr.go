// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package reactor

import (
	"fmt"

	"github.com/pkg/errors"
)

// Code identifies the category of a reactor error. Callers should match
// on it by extracting the *Error with errors.As (or via IsClosed and
// IsTimeout) and comparing Code, rather than inspecting Message, which is
// free-form and may change between versions.
type Code int

const (
	// CodeUnknown is the zero value and never returned by this package.
	CodeUnknown Code = iota
	// CodeCreation indicates a reactor, pool, socket or timer could not
	// be constructed (kernel poller init failure, wakeup channel
	// construction failure, out-of-range fd, etc).
	CodeCreation
	// CodeClosed indicates an operation was attempted against an
	// already-closed socket.
	CodeClosed
	// CodeTimeout indicates a blocking call exceeded its deadline. No
	// function in this package returns it: Sync, SyncFirst and Shutdown
	// block without a deadline.
	CodeTimeout
	// CodeIO indicates a non-retryable I/O failure surfaced from a
	// socket's read or write path.
	CodeIO
	// CodeOverloaded indicates a bounded queue or buffer rejected new
	// work because it is full.
	CodeOverloaded
)

func (c Code) String() string {
	switch c {
	case CodeCreation:
		return "creation"
	case CodeClosed:
		return "closed"
	case CodeTimeout:
		return "timeout"
	case CodeIO:
		return "io"
	case CodeOverloaded:
		return "overloaded"
	default:
		return "unknown"
	}
}

// Error is the single error type returned across this package's exported
// boundary. It carries a stable Code for programmatic matching and a
// human-readable Message; an optional wrapped Cause preserves the root
// syscall or stdlib error for diagnostics without requiring callers to
// understand this package's internals.
type Error struct {
	Code    Code
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("reactor: %s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("reactor: %s: %s", e.Code, e.Message)
}

// Unwrap makes Error compatible with errors.Is / errors.As against the
// wrapped cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// newError constructs an Error, wrapping cause with a stack trace via
// github.com/pkg/errors when cause is non-nil and not already traced, so
// that diagnostics logged at the call site retain origin information.
func newError(code Code, message string, cause error) *Error {
	if cause != nil {
		cause = errors.WithStack(cause)
	}
	return &Error{Code: code, Message: message, Cause: cause}
}

// IsClosed reports whether err is a reactor.Error with Code CodeClosed.
func IsClosed(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == CodeClosed
}

// IsTimeout reports whether err is a reactor.Error with Code CodeTimeout.
func IsTimeout(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == CodeTimeout
}
