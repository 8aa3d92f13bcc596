// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

//go:build linux || darwin

package reactor

import "golang.org/x/sys/unix"

// wakeChannel is a self-pipe used to interrupt a reactor blocked in its
// kernel poll call. It models the read and write ends as genuinely
// distinct file descriptors (unlike a Linux eventfd, which is a single
// fd for both directions) because the rest of this package's wakeup
// contract is written against that shape; platform-specific creation of
// the underlying pipe lives in wakeup_linux.go / wakeup_darwin.go.
type wakeChannel struct {
	readFD, writeFD int
}

func newWakeChannel() (*wakeChannel, error) {
	w := &wakeChannel{readFD: -1, writeFD: -1}
	if err := w.open(); err != nil {
		return nil, err
	}
	return w, nil
}

// ReadFD returns the fd to register with the kernel poller for EventRead.
func (w *wakeChannel) ReadFD() int { return w.readFD }

// Wake writes a single byte to the pipe, waking a blocked poller. It is
// safe to call from any goroutine, including concurrently with itself.
// The write end is blocking (only the read end is non-blocking), so when
// the pipe is full Wake waits until the reactor drains it.
func (w *wakeChannel) Wake() error {
	var b [1]byte
	for {
		_, err := unix.Write(w.writeFD, b[:])
		if err == nil || err == unix.EAGAIN {
			// EAGAIN means the pipe already carries a pending
			// wake-up; no need to write a second one.
			return nil
		}
		if err == unix.EINTR {
			continue
		}
		return err
	}
}

// Drain fully empties the read end until EAGAIN, so a level-triggered
// poller doesn't immediately re-fire. On EOF or any other non-retryable
// read error the pipe is recreated in place so the reactor keeps running
// rather than spin on a broken fd.
func (w *wakeChannel) Drain() error {
	var buf [64]byte
	for {
		n, err := unix.Read(w.readFD, buf[:])
		if err == nil {
			if n == 0 {
				return w.recreate()
			}
			continue
		}
		if err == unix.EAGAIN {
			return nil
		}
		if err == unix.EINTR {
			continue
		}
		return w.recreate()
	}
}

func (w *wakeChannel) recreate() error {
	w.Close()
	return w.open()
}

// Close releases both ends of the pipe.
func (w *wakeChannel) Close() error {
	if w.readFD >= 0 {
		unix.Close(w.readFD)
	}
	if w.writeFD >= 0 && w.writeFD != w.readFD {
		unix.Close(w.writeFD)
	}
	w.readFD, w.writeFD = -1, -1
	return nil
}
