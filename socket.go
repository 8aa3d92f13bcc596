// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package reactor

import (
	"context"
	"net"
	"strconv"
	"sync"
	"sync/atomic"
	"syscall"
)

// SocketKind distinguishes the three fd roles a Socket may hold.
type SocketKind int

const (
	SocketTCP SocketKind = iota
	SocketTCPListener
	SocketUDP
)

// Socket is the async, non-blocking fd wrapper built atop a Reactor
// (C4) and the buffer-list send engine (C7), grounded on
// original_source/avctool/network/Socket.{h,cc}.
//
// Exactly one Reactor ever fires callbacks for a Socket's fd (enforced
// by construction: a Socket is always Attach-ed to the Reactor it is
// built with, never re-attached elsewhere).
type Socket struct {
	logger  Logger
	reactor *Reactor
	fd      int
	kind    SocketKind
	closed  atomic.Bool

	// eventMu guards onRead/onFlushed/onError/onAccept and
	// udpDefaultDst, all small enough to serialize under one lock; this
	// is the spec's "event lock".
	eventMu       sync.Mutex
	onRead        func(Buffer, net.Addr)
	onFlushed     func()
	onError       func(error)
	onAccept      func(*Socket)
	udpDefaultDst net.Addr

	enableRecv atomic.Bool
	sendable   atomic.Bool

	waitingMu sync.Mutex
	waiting   []sendEntry

	sendingMu sync.Mutex
	sending   []packet

	maxWaitingQueue int
}

func newSocket(r *Reactor, fd int, kind SocketKind, opts ...SocketOption) *Socket {
	cfg := resolveSocketOptions(opts)
	s := &Socket{
		logger:          r.logger,
		reactor:         r,
		fd:              fd,
		kind:            kind,
		maxWaitingQueue: cfg.maxWaitingQueue,
	}
	s.enableRecv.Store(true)
	return s
}

// BindUDP creates a non-blocking datagram socket, binds it to ip:port
// (reuseAddr sets SO_REUSEADDR beforehand), and attaches it to r with
// read/write/error interest, per the spec's bind_udp contract.
func BindUDP(r *Reactor, ip string, port int, reuseAddr bool, opts ...SocketOption) (*Socket, error) {
	lc := net.ListenConfig{}
	if reuseAddr {
		lc.Control = func(_, _ string, c syscall.RawConn) error {
			var ctrlErr error
			if err := c.Control(func(fd uintptr) { ctrlErr = setReuseAddr(int(fd)) }); err != nil {
				return err
			}
			return ctrlErr
		}
	}

	addr := net.JoinHostPort(ip, strconv.Itoa(port))
	pc, err := lc.ListenPacket(context.Background(), "udp", addr)
	if err != nil {
		return nil, newError(CodeCreation, "bind udp", err)
	}
	fd, err := extractFD(pc.(syscall.Conn))
	pc.Close()
	if err != nil {
		return nil, newError(CodeCreation, "extract udp fd", err)
	}

	s := newSocket(r, fd, SocketUDP, opts...)
	if err := r.Attach(fd, EventRead|EventWrite|EventError, s.onIOEvent); err != nil {
		closeFD(fd)
		return nil, err
	}
	return s, nil
}

// DialTCP resolves address (host:port, using the module's DNS cache
// for hostnames, literal IPv4 then IPv6 for literals) and performs a
// synchronous connect, per the spec's Non-goal that the core provides
// socket primitives but not a bespoke async accept/dial state machine.
// The resulting fd is then handed to the reactor for all further,
// fully async, I/O.
func DialTCP(r *Reactor, address string, opts ...SocketOption) (*Socket, error) {
	host, portStr, err := net.SplitHostPort(address)
	if err != nil {
		return nil, newError(CodeCreation, "dial tcp: parse address", err)
	}
	ips, err := defaultDNSCache.Resolve(context.Background(), host)
	if err != nil {
		return nil, err
	}
	if len(ips) == 0 {
		return nil, newError(CodeCreation, "dial tcp: no addresses for "+host, nil)
	}

	conn, err := net.Dial("tcp", net.JoinHostPort(ips[0].String(), portStr))
	if err != nil {
		return nil, newError(CodeCreation, "dial tcp", err)
	}
	fd, err := extractFD(conn.(syscall.Conn))
	conn.Close()
	if err != nil {
		return nil, newError(CodeCreation, "extract tcp fd", err)
	}

	s := newSocket(r, fd, SocketTCP, opts...)
	if err := r.Attach(fd, EventRead|EventWrite|EventError, s.onIOEvent); err != nil {
		closeFD(fd)
		return nil, err
	}
	return s, nil
}

// ListenTCP creates a non-blocking listening socket bound to ip:port
// and attaches it for read interest only; onAccept is invoked on the
// reactor goroutine with a freshly-attached child Socket for every
// accepted connection. This is a minimal accept loop sitting on top of
// the socket primitives, not the accept/dial state machine the spec
// excludes by name.
func ListenTCP(r *Reactor, ip string, port int, reuseAddr bool, onAccept func(*Socket), opts ...SocketOption) (*Socket, error) {
	lc := net.ListenConfig{}
	if reuseAddr {
		lc.Control = func(_, _ string, c syscall.RawConn) error {
			var ctrlErr error
			if err := c.Control(func(fd uintptr) { ctrlErr = setReuseAddr(int(fd)) }); err != nil {
				return err
			}
			return ctrlErr
		}
	}

	addr := net.JoinHostPort(ip, strconv.Itoa(port))
	ln, err := lc.Listen(context.Background(), "tcp", addr)
	if err != nil {
		return nil, newError(CodeCreation, "listen tcp", err)
	}
	fd, err := extractFD(ln.(syscall.Conn))
	ln.Close()
	if err != nil {
		return nil, newError(CodeCreation, "extract listener fd", err)
	}

	s := newSocket(r, fd, SocketTCPListener, opts...)
	s.onAccept = onAccept
	if err := r.Attach(fd, EventRead|EventError, s.onIOEvent); err != nil {
		closeFD(fd)
		return nil, err
	}
	return s, nil
}

// extractFD pulls the raw OS fd/handle out of a net package listener
// or conn and duplicates it, so the original can be closed (releasing
// its registration with the Go runtime's own netpoller) while this
// module's reactor keeps exclusive ownership of the duplicate.
func extractFD(conn syscall.Conn) (int, error) {
	rc, err := conn.SyscallConn()
	if err != nil {
		return -1, err
	}
	var fd int
	var dupErr error
	if err := rc.Control(func(h uintptr) {
		fd, dupErr = dupNonblockingFD(int(h))
	}); err != nil {
		return -1, err
	}
	if dupErr != nil {
		return -1, dupErr
	}
	return fd, nil
}

// SetOnRead sets or clears the read callback under the event lock.
func (s *Socket) SetOnRead(cb func(Buffer, net.Addr)) {
	s.eventMu.Lock()
	s.onRead = cb
	s.eventMu.Unlock()
}

// SetOnFlushed sets the callback invoked whenever flush_data fully
// drains both staging queues from the reactor goroutine.
func (s *Socket) SetOnFlushed(cb func()) {
	s.eventMu.Lock()
	s.onFlushed = cb
	s.eventMu.Unlock()
}

// SetOnError sets the callback invoked on a fatal I/O error or EOF;
// the socket is closed immediately after this callback returns.
func (s *Socket) SetOnError(cb func(error)) {
	s.eventMu.Lock()
	s.onError = cb
	s.eventMu.Unlock()
}

// SetUDPDefaultDst sets the implicit destination used by Send when
// called with a nil address on a UDP socket.
func (s *Socket) SetUDPDefaultDst(addr net.Addr) {
	s.eventMu.Lock()
	s.udpDefaultDst = addr
	s.eventMu.Unlock()
}

// SetEnableRecv toggles whether the read path is active; flipping it
// also updates the fd's registered event set, preserving whichever of
// sendable/writable-armed state currently applies.
func (s *Socket) SetEnableRecv(enable bool) {
	s.enableRecv.Store(enable)
	if s.sendable.Load() {
		s.stopWritableEvent()
	} else {
		s.startWritableEvent()
	}
}

// Send enqueues payload for transmission, optionally to addr (falling
// back to the UDP default destination when addr is nil), and flushes
// immediately unless tryFlush is false. Returns the number of bytes
// accepted (not necessarily yet on the wire), 0 for an empty payload,
// or a non-nil error (CodeClosed, CodeOverloaded) on rejection.
func (s *Socket) Send(payload Buffer, addr net.Addr, tryFlush bool) (int, error) {
	if s.closed.Load() {
		return -1, newError(CodeClosed, "send on closed socket", nil)
	}
	b := payload.Bytes()
	if len(b) == 0 {
		return 0, nil
	}

	hasAddr := addr != nil
	if !hasAddr && s.kind == SocketUDP {
		s.eventMu.Lock()
		addr = s.udpDefaultDst
		s.eventMu.Unlock()
		hasAddr = addr != nil
	}

	s.waitingMu.Lock()
	if s.maxWaitingQueue > 0 && len(s.waiting) >= s.maxWaitingQueue {
		s.waitingMu.Unlock()
		return -1, newError(CodeOverloaded, "send queue full", nil)
	}
	s.waiting = append(s.waiting, sendEntry{buf: payload, addr: addr, hasAddr: hasAddr})
	s.waitingMu.Unlock()

	if tryFlush {
		s.flushAll()
	}
	return len(b), nil
}

// flushAll is flush_all: callable from any goroutine, it is a no-op
// unless the writable event is currently disarmed (sendable == true),
// by the invariant that an armed writable event implies a flush is
// already pending via the reactor's own dispatch of that readiness.
func (s *Socket) flushAll() {
	if !s.sendable.Load() {
		return
	}
	s.flushData(false)
}

// flushData implements the spec's §4.8 write-path state machine
// exactly: swap sending, fold in waiting if sending was empty, drain
// packets until blocked or empty, and merge any remainder back to the
// front of sending.
func (s *Socket) flushData(isReactorThread bool) int {
	s.sendingMu.Lock()
	batch := s.sending
	s.sending = nil
	s.sendingMu.Unlock()

	if len(batch) == 0 {
		s.waitingMu.Lock()
		w := s.waiting
		s.waiting = nil
		s.waitingMu.Unlock()

		if len(w) == 0 {
			if isReactorThread {
				s.stopWritableEvent()
				s.emitFlushed()
			}
			return 0
		}
		batch = append(batch, newPacket(w, s.kind == SocketUDP))
	}

drain:
	for len(batch) > 0 {
		n, err := batch[0].Send(s.fd)
		if err != nil && err != errWouldBlock {
			s.emitError(newError(CodeIO, "send", err))
			return -1
		}
		if err == errWouldBlock {
			if !isReactorThread {
				s.startWritableEvent()
			}
			break drain
		}
		if batch[0].Empty() {
			batch = batch[1:]
			if n > 0 {
				continue
			}
			break drain
		}
		// Positive but partial progress with no error: remain armed and
		// let the next writable readiness (or caller) resume draining.
		if !isReactorThread {
			s.startWritableEvent()
		}
		break drain
	}

	if len(batch) > 0 {
		s.sendingMu.Lock()
		s.sending = append(batch, s.sending...)
		s.sendingMu.Unlock()
		return 0
	}
	if isReactorThread {
		return s.flushData(true)
	}
	return 0
}

// startWritableEvent arms the writable event (sendable becomes false).
func (s *Socket) startWritableEvent() {
	events := EventWrite | EventError
	if s.enableRecv.Load() {
		events |= EventRead
	}
	if err := s.reactor.Modify(s.fd, events); err != nil {
		s.logger.Errorf("reactor: arm writable event for fd %d: %v", s.fd, err)
	}
	s.sendable.Store(false)
}

// stopWritableEvent disarms the writable event (sendable becomes true).
func (s *Socket) stopWritableEvent() {
	events := EventError
	if s.enableRecv.Load() {
		events |= EventRead
	}
	if err := s.reactor.Modify(s.fd, events); err != nil {
		s.logger.Errorf("reactor: disarm writable event for fd %d: %v", s.fd, err)
	}
	s.sendable.Store(true)
}

// onIOEvent is the registration callback Attach invokes on the reactor
// goroutine; it fans out into the write path (writable readiness) and
// the read/accept path (read or error readiness).
func (s *Socket) onIOEvent(events IOEvents) {
	if events&EventWrite != 0 {
		s.flushData(true)
	}
	if events&(EventRead|EventError) != 0 {
		s.onReadable()
	}
}

// onReadable is the read path (or, for a listener, the accept loop),
// run on the reactor goroutine per the spec's §4.8 read path.
func (s *Socket) onReadable() {
	if s.kind == SocketTCPListener {
		s.acceptLoop()
		return
	}
	if !s.enableRecv.Load() {
		return
	}

	buf := s.reactor.SharedBuffer()
	for {
		n, addr, err := recvfromFD(s.fd, buf[:len(buf)-1])
		if err != nil {
			if isEINTR(err) {
				continue
			}
			if isEAGAIN(err) {
				return
			}
			if s.kind == SocketUDP {
				s.logger.Warnf("reactor: udp recv error on fd %d: %v", s.fd, err)
				return
			}
			s.emitError(newError(CodeIO, "recv", err))
			return
		}
		if n == 0 {
			if s.kind == SocketUDP {
				s.logger.Debugf("reactor: zero-length datagram on fd %d", s.fd)
				return
			}
			s.emitError(newError(CodeIO, "connection closed by peer", nil))
			return
		}

		buf[n] = 0
		b := NewBuffer(buf[:n])

		s.eventMu.Lock()
		cb := s.onRead
		s.eventMu.Unlock()
		if cb != nil {
			s.safeOnRead(cb, b, addr)
		}
	}
}

func (s *Socket) safeOnRead(cb func(Buffer, net.Addr), b Buffer, addr net.Addr) {
	defer func() {
		if rec := recover(); rec != nil {
			s.logger.Warnf("reactor: on_read callback panicked: %v", rec)
		}
	}()
	cb(b, addr)
}

// acceptLoop drains pending connections on a listening socket,
// attaching each accepted fd to the same reactor before invoking
// onAccept.
func (s *Socket) acceptLoop() {
	for {
		fd, _, err := acceptRawFD(s.fd)
		if err != nil {
			if isEINTR(err) {
				continue
			}
			if isEAGAIN(err) {
				return
			}
			s.emitError(newError(CodeIO, "accept", err))
			return
		}

		child := newSocket(s.reactor, fd, SocketTCP)
		if err := s.reactor.Attach(fd, EventRead|EventWrite|EventError, child.onIOEvent); err != nil {
			s.logger.Errorf("reactor: attach accepted fd %d: %v", fd, err)
			closeFD(fd)
			continue
		}

		s.eventMu.Lock()
		cb := s.onAccept
		s.eventMu.Unlock()
		if cb != nil {
			s.safeOnAccept(cb, child)
		}
	}
}

func (s *Socket) safeOnAccept(cb func(*Socket), child *Socket) {
	defer func() {
		if rec := recover(); rec != nil {
			s.logger.Warnf("reactor: on_accept callback panicked: %v", rec)
		}
	}()
	cb(child)
}

func (s *Socket) emitError(err error) {
	s.eventMu.Lock()
	cb := s.onError
	s.eventMu.Unlock()
	if cb != nil {
		func() {
			defer func() {
				if rec := recover(); rec != nil {
					s.logger.Warnf("reactor: on_error callback panicked: %v", rec)
				}
			}()
			cb(err)
		}()
	}
	s.Close()
}

func (s *Socket) emitFlushed() {
	s.eventMu.Lock()
	cb := s.onFlushed
	s.eventMu.Unlock()
	if cb != nil {
		func() {
			defer func() {
				if rec := recover(); rec != nil {
					s.logger.Warnf("reactor: on_flushed callback panicked: %v", rec)
				}
			}()
			cb()
		}()
	}
}

// Close detaches the fd from its reactor and closes it. Detachment is
// synchronous with respect to this call (Reactor.Detach blocks until
// the reactor goroutine has processed it), guaranteeing invariant 4:
// no further on_read invocation begins once Close returns. Idempotent.
func (s *Socket) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	s.enableRecv.Store(false)
	err := s.reactor.Detach(s.fd)
	if cerr := closeFD(s.fd); err == nil {
		err = cerr
	}
	return err
}

// FD returns the underlying file descriptor/handle, for callers that
// need it for diagnostics; mutating it outside this package breaks
// every invariant above.
func (s *Socket) FD() int { return s.fd }

// Kind reports whether this is a TCP, TCP listener, or UDP socket.
func (s *Socket) Kind() SocketKind { return s.kind }
