// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package reactor

import (
	"net"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestReactorForSocket(t *testing.T) *Reactor {
	t.Helper()
	r, err := NewReactor()
	require.NoError(t, err)
	r.RunLoop(false)
	t.Cleanup(func() {
		r.Shutdown()
		r.Close()
	})
	return r
}

// TestSocket_UDPEcho exercises scenario A: a client datagram socket
// sends to a server datagram socket, whose on_read callback echoes the
// payload straight back via the sender address handed to the callback.
func TestSocket_UDPEcho(t *testing.T) {
	r := newTestReactorForSocket(t)

	server, err := BindUDP(r, "127.0.0.1", 58201, true)
	require.NoError(t, err)
	defer server.Close()
	server.SetOnRead(func(b Buffer, addr net.Addr) {
		server.Send(NewBuffer(append([]byte(nil), b.Bytes()...)), addr, true)
	})

	client, err := BindUDP(r, "127.0.0.1", 58202, true)
	require.NoError(t, err)
	defer client.Close()

	got := make(chan string, 1)
	client.SetOnRead(func(b Buffer, addr net.Addr) {
		got <- string(b.Bytes())
	})

	dst := &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 58201}
	_, err = client.Send(NewStringBuffer("ping"), dst, true)
	require.NoError(t, err)

	select {
	case msg := <-got:
		assert.Equal(t, "ping", msg)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for udp echo")
	}
}

// TestSocket_UDPDefaultDst exercises Send with a nil address falling
// back to SetUDPDefaultDst.
func TestSocket_UDPDefaultDst(t *testing.T) {
	r := newTestReactorForSocket(t)

	server, err := BindUDP(r, "127.0.0.1", 58203, true)
	require.NoError(t, err)
	defer server.Close()
	got := make(chan string, 1)
	server.SetOnRead(func(b Buffer, addr net.Addr) { got <- string(b.Bytes()) })

	client, err := BindUDP(r, "127.0.0.1", 58204, true)
	require.NoError(t, err)
	defer client.Close()
	client.SetUDPDefaultDst(&net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 58203})

	_, err = client.Send(NewStringBuffer("hello"), nil, true)
	require.NoError(t, err)

	select {
	case msg := <-got:
		assert.Equal(t, "hello", msg)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for default-dst datagram")
	}
}

// TestSocket_TCPRoundTrip exercises ListenTCP's accept loop together
// with DialTCP, confirming data written by the client arrives at the
// accepted child socket on the server side.
func TestSocket_TCPRoundTrip(t *testing.T) {
	r := newTestReactorForSocket(t)

	accepted := make(chan *Socket, 1)
	ln, err := ListenTCP(r, "127.0.0.1", 58205, true, func(child *Socket) {
		accepted <- child
	})
	require.NoError(t, err)
	defer ln.Close()

	client, err := DialTCP(r, "127.0.0.1:58205")
	require.NoError(t, err)
	defer client.Close()

	var child *Socket
	select {
	case child = <-accepted:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for accept")
	}
	defer child.Close()

	got := make(chan string, 1)
	child.SetOnRead(func(b Buffer, _ net.Addr) { got <- string(b.Bytes()) })

	_, err = client.Send(NewStringBuffer("hi-server"), nil, true)
	require.NoError(t, err)

	select {
	case msg := <-got:
		assert.Equal(t, "hi-server", msg)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for tcp payload")
	}
}

// TestSocket_OnFlushedFiresAfterFullDrain exercises property-adjacent
// behavior of the write path: on_flushed must fire exactly once after
// a batch of sends fully drains, and reads on the peer observe all the
// bytes concatenated in submission order (testable property 2).
func TestSocket_OnFlushedFiresAfterFullDrain(t *testing.T) {
	r := newTestReactorForSocket(t)

	accepted := make(chan *Socket, 1)
	ln, err := ListenTCP(r, "127.0.0.1", 58206, true, func(child *Socket) {
		accepted <- child
	})
	require.NoError(t, err)
	defer ln.Close()

	client, err := DialTCP(r, "127.0.0.1:58206")
	require.NoError(t, err)
	defer client.Close()

	var child *Socket
	select {
	case child = <-accepted:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for accept")
	}
	defer child.Close()

	var received []byte
	done := make(chan struct{})
	child.SetOnRead(func(b Buffer, _ net.Addr) {
		received = append(received, b.Bytes()...)
		if len(received) >= 12 {
			close(done)
		}
	})

	var flushed atomic.Int32
	client.SetOnFlushed(func() { flushed.Add(1) })

	for _, chunk := range []string{"aaaa", "bbbb", "cccc"} {
		_, err := client.Send(NewStringBuffer(chunk), nil, true)
		require.NoError(t, err)
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for all bytes")
	}
	time.Sleep(20 * time.Millisecond)

	assert.Equal(t, "aaaabbbbcccc", string(received))
	assert.GreaterOrEqual(t, flushed.Load(), int32(1))
}

// TestSocket_CloseIsIdempotentAndStopsCallbacks exercises scenario D
// (graceful shutdown) and invariant 4: no on_read fires once Close has
// returned.
func TestSocket_CloseIsIdempotentAndStopsCallbacks(t *testing.T) {
	r := newTestReactorForSocket(t)

	server, err := BindUDP(r, "127.0.0.1", 58207, true)
	require.NoError(t, err)

	var fired atomic.Int32
	server.SetOnRead(func(Buffer, net.Addr) { fired.Add(1) })

	require.NoError(t, server.Close())
	require.NoError(t, server.Close(), "Close must be idempotent")

	_, err = server.Send(NewStringBuffer("x"), nil, true)
	assert.Error(t, err, "Send on a closed socket must fail")

	client, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	require.NoError(t, err)
	defer client.Close()
	client.WriteToUDP([]byte("late"), &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 58207})

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(0), fired.Load())
}
