// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

// Package logifacelog adapts a github.com/joeycumines/logiface logger onto
// the reactor.Logger interface, for callers who already standardize their
// application logging on logiface and want the reactor package's
// diagnostics to flow through the same writer/level pipeline.
package logifacelog

import "github.com/joeycumines/logiface"

// Adapter wraps a *logiface.Logger[logiface.Event] to satisfy
// reactor.Logger.
type Adapter struct {
	L *logiface.Logger[logiface.Event]
}

// New returns an Adapter around l.
func New(l *logiface.Logger[logiface.Event]) *Adapter {
	return &Adapter{L: l}
}

func (a *Adapter) Debugf(format string, args ...any) {
	a.L.Debug().Logf(format, args...)
}

func (a *Adapter) Warnf(format string, args ...any) {
	a.L.Warning().Logf(format, args...)
}

func (a *Adapter) Errorf(format string, args ...any) {
	a.L.Err().Logf(format, args...)
}
