// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package reactor

import (
	"net"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDatagramPacket_EmptyCount(t *testing.T) {
	p := &datagramPacket{}
	require.True(t, p.Empty())
	require.Equal(t, 0, p.Count())

	p = &datagramPacket{entries: []sendEntry{{buf: NewStringBuffer("x")}}}
	require.False(t, p.Empty())
	require.Equal(t, 1, p.Count())
}

// TestDatagramPacket_SendPreservesOrder exercises the datagram send
// engine (C7) end-to-end over a real loopback UDP socket pair,
// confirming the concatenation of received datagrams matches
// submission order (testable property 2).
func TestDatagramPacket_SendPreservesOrder(t *testing.T) {
	server, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	require.NoError(t, err)
	t.Cleanup(func() { server.Close() })

	client, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	require.NoError(t, err)
	fd, err := extractFD(client)
	client.Close()
	require.NoError(t, err)
	t.Cleanup(func() { closeFD(fd) })

	dst := server.LocalAddr().(*net.UDPAddr)
	entries := []sendEntry{
		{buf: NewStringBuffer("first"), addr: dst, hasAddr: true},
		{buf: NewStringBuffer("second"), addr: dst, hasAddr: true},
		{buf: NewStringBuffer("third"), addr: dst, hasAddr: true},
	}
	p := &datagramPacket{entries: entries}

	n, err := p.Send(fd)
	require.NoError(t, err)
	require.Equal(t, len("first")+len("second")+len("third"), n)
	require.True(t, p.Empty())

	server.SetReadDeadline(time.Now().Add(2 * time.Second))
	got := make([]string, 0, 3)
	buf := make([]byte, 64)
	for i := 0; i < 3; i++ {
		n, _, err := server.ReadFromUDP(buf)
		require.NoError(t, err)
		got = append(got, string(buf[:n]))
	}
	require.Equal(t, []string{"first", "second", "third"}, got)
}

func TestStreamPacket_CoalescesAndPreservesOrder(t *testing.T) {
	r, w, err := os.Pipe()
	require.NoError(t, err)
	t.Cleanup(func() { r.Close() })

	fd := int(w.Fd())
	p := newStreamPacket([]sendEntry{
		{buf: NewStringBuffer("ab")},
		{buf: NewStringBuffer("cd")},
		{buf: NewStringBuffer("ef")},
	})

	n, err := p.Send(fd)
	w.Close()
	require.NoError(t, err)
	require.Equal(t, 6, n)
	require.True(t, p.Empty())

	out := make([]byte, 6)
	_, err = r.Read(out)
	require.NoError(t, err)
	require.Equal(t, "abcdef", string(out))
}

func TestStreamPacket_EmptyCount(t *testing.T) {
	p := newStreamPacket(nil)
	require.True(t, p.Empty())
	require.Equal(t, 0, p.Count())
}
