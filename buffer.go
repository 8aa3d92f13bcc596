// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package reactor

import "fmt"

// Buffer is the single capability this package depends on for send and
// receive payloads: a contiguous byte view. Unlike the origin
// implementation's raw/offset/string-backed class hierarchy, this is a
// plain interface; NewBuffer, NewOffsetBuffer and NewStringBuffer return
// distinct concrete types that all satisfy it.
type Buffer interface {
	// Bytes returns the buffer's contents. Callers must not retain the
	// slice beyond the lifetime of the call that produced it (the
	// reactor's shared receive buffer is reused across reads).
	Bytes() []byte
}

// ownedBuffer wraps a byte slice the caller has handed over ownership of.
type ownedBuffer struct {
	b []byte
}

// NewBuffer returns a Buffer that owns b directly; no copy is made.
func NewBuffer(b []byte) Buffer {
	return ownedBuffer{b: b}
}

func (o ownedBuffer) Bytes() []byte { return o.b }

// stringBuffer wraps a string, avoiding a copy for literal/immutable
// payloads at the cost of reallocating only when Bytes is called.
type stringBuffer struct {
	s string
}

// NewStringBuffer returns a Buffer backed by s.
func NewStringBuffer(s string) Buffer {
	return stringBuffer{s: s}
}

func (s stringBuffer) Bytes() []byte { return []byte(s.s) }

// offsetBuffer is a borrowed view into a larger backing array, used to
// describe a sub-range without copying.
type offsetBuffer struct {
	backing []byte
	offset  int
	size    int
}

// NewOffsetBuffer returns a Buffer viewing backing[offset : offset+size].
//
// It rejects offset+size strictly greater than len(backing); offset+size
// exactly equal to len(backing) is accepted as a view reaching the end of
// the backing array. This is a deliberate correction of the origin
// implementation, which rejects offset+size >= max_size (see DESIGN.md,
// "Offset/size boundary").
func NewOffsetBuffer(backing []byte, offset, size int) (Buffer, error) {
	if offset < 0 || size < 0 {
		return nil, fmt.Errorf("reactor: negative offset or size")
	}
	if offset+size > len(backing) {
		return nil, fmt.Errorf("reactor: offset+size %d exceeds backing length %d", offset+size, len(backing))
	}
	return &offsetBuffer{backing: backing, offset: offset, size: size}, nil
}

func (o *offsetBuffer) Bytes() []byte { return o.backing[o.offset : o.offset+o.size] }
