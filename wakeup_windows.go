// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

//go:build windows

package reactor

import "golang.org/x/sys/windows"

// wakeChannel on Windows is a loopback TCP connection: a self-pipe has
// no analog on a platform whose select-style poller only understands
// socket handles. Per §4.1, it is built by creating an ephemeral
// listener on 127.0.0.1, connecting to it, accepting that connection,
// and closing the listener, leaving a connected pair of plain stream
// sockets to play the role of the read/write pipe ends.
type wakeChannel struct {
	readFD, writeFD windows.Handle
}

func newWakeChannel() (*wakeChannel, error) {
	w := &wakeChannel{readFD: windows.InvalidHandle, writeFD: windows.InvalidHandle}
	if err := w.open(); err != nil {
		return nil, err
	}
	return w, nil
}

// ReadFD returns the handle to register with the kernel poller for
// EventRead, widened to int to satisfy the cross-platform poller
// contract (see fd_windows.go for the same convention elsewhere).
func (w *wakeChannel) ReadFD() int { return int(w.readFD) }

func (w *wakeChannel) open() error {
	listener, err := windows.Socket(windows.AF_INET, windows.SOCK_STREAM, 0)
	if err != nil {
		return err
	}
	defer windows.Closesocket(listener)

	addr := &windows.SockaddrInet4{Port: 0, Addr: [4]byte{127, 0, 0, 1}}
	if err := windows.Bind(listener, addr); err != nil {
		return err
	}
	if err := windows.Listen(listener, 1); err != nil {
		return err
	}
	boundAddr, err := windows.Getsockname(listener)
	if err != nil {
		return err
	}
	bound, ok := boundAddr.(*windows.SockaddrInet4)
	if !ok {
		return windows.WSAEAFNOSUPPORT
	}

	writeFD, err := windows.Socket(windows.AF_INET, windows.SOCK_STREAM, 0)
	if err != nil {
		return err
	}
	connectAddr := &windows.SockaddrInet4{Port: bound.Port, Addr: [4]byte{127, 0, 0, 1}}
	if err := windows.Connect(writeFD, connectAddr); err != nil {
		windows.Closesocket(writeFD)
		return err
	}

	readFD, _, err := windows.Accept(listener)
	if err != nil {
		windows.Closesocket(writeFD)
		return err
	}

	// Windows sockets have no O_NONBLOCK equivalent reachable through
	// this package's high-level wrappers; a 1ms receive timeout gives
	// Drain the same "stop once nothing is immediately available"
	// behavior a non-blocking EAGAIN loop would, at the cost of a small
	// worst-case stall when genuinely idle.
	_ = windows.SetsockoptTimeval(readFD, windows.SOL_SOCKET, windows.SO_RCVTIMEO, &windows.Timeval{Usec: 1000})

	w.readFD, w.writeFD = readFD, writeFD
	return nil
}

// Wake writes a single byte to the write end, interrupting a blocked
// select call on the read end.
func (w *wakeChannel) Wake() error {
	var b [1]byte
	for {
		_, err := windows.Send(w.writeFD, b[:], 0)
		if err == nil || err == windows.WSAEWOULDBLOCK {
			return nil
		}
		if err == windows.WSAEINTR {
			continue
		}
		return err
	}
}

// Drain fully empties the read end. On EOF or any non-retryable error
// the socket pair is recreated in place.
func (w *wakeChannel) Drain() error {
	var buf [64]byte
	for {
		n, err := windows.Recv(w.readFD, buf[:], 0)
		if err == nil {
			if n == 0 {
				return w.recreate()
			}
			continue
		}
		if err == windows.WSAEWOULDBLOCK || err == windows.WSAETIMEDOUT {
			return nil
		}
		if err == windows.WSAEINTR {
			continue
		}
		return w.recreate()
	}
}

func (w *wakeChannel) recreate() error {
	w.Close()
	return w.open()
}

// Close releases both ends of the loopback pair.
func (w *wakeChannel) Close() error {
	if w.readFD != windows.InvalidHandle {
		windows.Closesocket(w.readFD)
	}
	if w.writeFD != windows.InvalidHandle && w.writeFD != w.readFD {
		windows.Closesocket(w.writeFD)
	}
	w.readFD, w.writeFD = windows.InvalidHandle, windows.InvalidHandle
	return nil
}
