// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package reactor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewBuffer(t *testing.T) {
	b := NewBuffer([]byte("hello"))
	assert.Equal(t, []byte("hello"), b.Bytes())
}

func TestNewStringBuffer(t *testing.T) {
	b := NewStringBuffer("world")
	assert.Equal(t, []byte("world"), b.Bytes())
}

func TestNewOffsetBuffer_ExactEnd(t *testing.T) {
	backing := []byte("0123456789")
	b, err := NewOffsetBuffer(backing, 5, 5)
	require.NoError(t, err)
	assert.Equal(t, []byte("56789"), b.Bytes())
}

func TestNewOffsetBuffer_RejectsOverrun(t *testing.T) {
	backing := []byte("0123456789")
	_, err := NewOffsetBuffer(backing, 5, 6)
	assert.Error(t, err)
}

func TestNewOffsetBuffer_RejectsNegative(t *testing.T) {
	backing := []byte("0123456789")
	_, err := NewOffsetBuffer(backing, -1, 5)
	assert.Error(t, err)
}

func TestNewOffsetBuffer_ZeroLength(t *testing.T) {
	backing := []byte("0123456789")
	b, err := NewOffsetBuffer(backing, 10, 0)
	require.NoError(t, err)
	assert.Empty(t, b.Bytes())
}
