// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package reactor

import (
	"log"
	"os"
)

// Logger is the minimal leveled-logging contract this package depends on.
// It deliberately does not model channels, structured fields, or async
// writers: those are the concern of whatever logging facility a caller
// wires in. See the logifacelog subpackage for an adapter onto
// github.com/joeycumines/logiface.
type Logger interface {
	Debugf(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
}

// StdLogger adapts a standard library *log.Logger to the Logger
// interface. It is the zero-configuration default used when no Logger
// option is supplied.
type StdLogger struct {
	*log.Logger
	// Debug enables Debugf output; when false (the default) Debugf is
	// discarded. Warnf and Errorf are always emitted.
	Debug bool
}

// NewStdLogger returns a StdLogger writing to os.Stderr with debug
// logging disabled.
func NewStdLogger() *StdLogger {
	return &StdLogger{Logger: log.New(os.Stderr, "reactor: ", log.LstdFlags)}
}

func (l *StdLogger) Debugf(format string, args ...any) {
	if l.Debug {
		l.Printf("DEBUG "+format, args...)
	}
}

func (l *StdLogger) Warnf(format string, args ...any) {
	l.Printf("WARN "+format, args...)
}

func (l *StdLogger) Errorf(format string, args ...any) {
	l.Printf("ERROR "+format, args...)
}

// nopLogger discards everything. No call site in this package uses it;
// options.go already keeps a nil Logger from being installed.
type nopLogger struct{}

func (nopLogger) Debugf(string, ...any) {}
func (nopLogger) Warnf(string, ...any)  {}
func (nopLogger) Errorf(string, ...any) {}
