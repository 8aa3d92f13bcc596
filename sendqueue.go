// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package reactor

import (
	"errors"
	"net"
)

// errWouldBlock is returned by a packet's Send when the underlying fd
// reports EAGAIN/EWOULDBLOCK and nothing further can be written right
// now; the caller (flush_data, see socket.go) treats it identically to
// the retryable-error branch of the spec's §4.7 state machine: arm the
// writable event (if not already armed) and stop.
var errWouldBlock = errors.New("reactor: send would block")

// sendEntry is one buffer staged for send, with an optional per-entry
// destination used by the datagram variant.
type sendEntry struct {
	buf     Buffer
	addr    net.Addr
	hasAddr bool
}

// packet is the per-flush transmit unit built from an ordered batch of
// buffers (see Component C7). Empty and Count let flush_data decide
// whether to keep draining; Send performs the syscalls and reports
// bytes transferred, 0 for "nothing to send", or errWouldBlock/another
// error as described above.
type packet interface {
	Empty() bool
	Count() int
	Send(fd int) (int, error)
}

// newPacket builds the appropriate packet variant for a batch of
// entries: the datagram variant when isUDP, grounded on
// original_source/avctool/network/BufferSock.cc's BufferSendTo; the
// stream (scatter-gather) variant otherwise, grounded on the same
// file's BufferSendMsg, whose non-Windows body the origin leaves
// stubbed (see DESIGN.md's Open Question decision) — this module
// supplies a real implementation via unix.Writev.
func newPacket(entries []sendEntry, isUDP bool) packet {
	if isUDP {
		return &datagramPacket{entries: entries}
	}
	return newStreamPacket(entries)
}

// datagramPacket is the send engine's datagram variant: each entry may
// carry its own destination address, and a partial write's byte offset
// into the current head buffer is preserved across calls to Send so
// that a later call resumes exactly where the previous one left off.
type datagramPacket struct {
	entries []sendEntry
	offset  int
}

func (d *datagramPacket) Empty() bool { return len(d.entries) == 0 }
func (d *datagramPacket) Count() int  { return len(d.entries) }

func (d *datagramPacket) Send(fd int) (int, error) {
	sentTotal := 0
	for len(d.entries) > 0 {
		e := d.entries[0]
		full := e.buf.Bytes()
		if d.offset >= len(full) {
			// Zero-length payload; nothing to transmit, just advance.
			d.entries = d.entries[1:]
			d.offset = 0
			continue
		}
		remaining := full[d.offset:]

		var addr net.Addr
		if e.hasAddr {
			addr = e.addr
		}
		n, err := sendtoFD(fd, remaining, addr)
		if err != nil {
			if isEINTR(err) {
				continue
			}
			if isEAGAIN(err) {
				if sentTotal > 0 {
					return sentTotal, nil
				}
				return 0, errWouldBlock
			}
			return sentTotal, err
		}

		d.offset += n
		sentTotal += n
		if d.offset >= len(full) {
			d.entries = d.entries[1:]
			d.offset = 0
		}
	}
	return sentTotal, nil
}

// streamPacket is the send engine's stream (connected-socket) variant:
// buffers carry no destination address and are coalesced into a
// single scatter-gather write per attempt via writevFD, so a batch of
// many small buffers costs one syscall instead of one per buffer.
type streamPacket struct {
	bufs   []Buffer
	offset int // consumed bytes of bufs[0]
}

func newStreamPacket(entries []sendEntry) *streamPacket {
	bufs := make([]Buffer, len(entries))
	for i, e := range entries {
		bufs[i] = e.buf
	}
	return &streamPacket{bufs: bufs}
}

func (s *streamPacket) Empty() bool { return len(s.bufs) == 0 }
func (s *streamPacket) Count() int  { return len(s.bufs) }

func (s *streamPacket) Send(fd int) (int, error) {
	sentTotal := 0
	for len(s.bufs) > 0 {
		iovecs := make([][]byte, 0, len(s.bufs))
		for i, b := range s.bufs {
			full := b.Bytes()
			if i == 0 {
				full = full[s.offset:]
			}
			iovecs = append(iovecs, full)
		}

		n, err := writevFD(fd, iovecs)
		if err != nil {
			if isEINTR(err) {
				continue
			}
			if n > 0 {
				s.advance(n)
				sentTotal += n
			}
			if isEAGAIN(err) {
				if sentTotal > 0 {
					return sentTotal, nil
				}
				return 0, errWouldBlock
			}
			return sentTotal, err
		}

		s.advance(n)
		sentTotal += n
		if n == 0 {
			break
		}
	}
	return sentTotal, nil
}

// advance consumes n bytes from the head of the buffer list, popping
// any buffer fully drained in the process.
func (s *streamPacket) advance(n int) {
	for n > 0 && len(s.bufs) > 0 {
		full := s.bufs[0].Bytes()
		remaining := len(full) - s.offset
		if n < remaining {
			s.offset += n
			return
		}
		n -= remaining
		s.bufs = s.bufs[1:]
		s.offset = 0
	}
}
