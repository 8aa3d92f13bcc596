// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

//go:build linux || darwin

package reactor

import (
	"errors"
	"net"

	"golang.org/x/sys/unix"
)

// closeFD closes a file descriptor on Unix systems.
func closeFD(fd int) error {
	return unix.Close(fd)
}

// readFD reads from a file descriptor on Unix systems.
func readFD(fd int, buf []byte) (int, error) {
	return unix.Read(fd, buf)
}

// writeFD writes to a file descriptor on Unix systems.
func writeFD(fd int, buf []byte) (int, error) {
	return unix.Write(fd, buf)
}

// sendtoFD sends b to addr (if non-nil) or the connected peer (if nil)
// on a non-blocking socket fd.
func sendtoFD(fd int, b []byte, addr net.Addr) (int, error) {
	if addr == nil {
		return unix.Write(fd, b)
	}
	sa, err := sockaddrFromNetAddr(addr)
	if err != nil {
		return 0, err
	}
	if err := unix.Sendto(fd, b, 0, sa); err != nil {
		return 0, err
	}
	return len(b), nil
}

// recvfromFD receives into b, returning the sender's address when the
// socket is a datagram socket (nil for stream sockets/peers that never
// report one).
func recvfromFD(fd int, b []byte) (int, net.Addr, error) {
	n, from, err := unix.Recvfrom(fd, b, 0)
	if err != nil {
		return n, nil, err
	}
	return n, netAddrFromSockaddr(from), nil
}

func sockaddrFromNetAddr(addr net.Addr) (unix.Sockaddr, error) {
	var ip net.IP
	var port int
	switch a := addr.(type) {
	case *net.UDPAddr:
		ip, port = a.IP, a.Port
	case *net.TCPAddr:
		ip, port = a.IP, a.Port
	default:
		return nil, &Error{Code: CodeCreation, Message: "unsupported address type"}
	}
	if ip4 := ip.To4(); ip4 != nil {
		var sa unix.SockaddrInet4
		sa.Port = port
		copy(sa.Addr[:], ip4)
		return &sa, nil
	}
	var sa unix.SockaddrInet6
	sa.Port = port
	copy(sa.Addr[:], ip.To16())
	return &sa, nil
}

func netAddrFromSockaddr(sa unix.Sockaddr) net.Addr {
	switch a := sa.(type) {
	case *unix.SockaddrInet4:
		return &net.UDPAddr{IP: net.IP(a.Addr[:]), Port: a.Port}
	case *unix.SockaddrInet6:
		return &net.UDPAddr{IP: net.IP(a.Addr[:]), Port: a.Port}
	default:
		return nil
	}
}

// isEINTR reports whether err is a syscall interrupted by a signal,
// safe to retry immediately.
func isEINTR(err error) bool {
	return errors.Is(err, unix.EINTR)
}

// isEAGAIN reports whether err indicates the non-blocking fd has no
// more buffer space/data available right now.
func isEAGAIN(err error) bool {
	return errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.EWOULDBLOCK)
}

// writevFD performs a scatter-gather write of iovecs, grounded on the
// POSIX implementation this module supplies in place of the origin's
// stubbed BufferSendMsg (see DESIGN.md).
func writevFD(fd int, iovecs [][]byte) (int, error) {
	return unix.Writev(fd, iovecs)
}

// setReuseAddr enables SO_REUSEADDR on fd, used by bind_udp/ListenTCP's
// reuseAddr option.
func setReuseAddr(fd int) error {
	return unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1)
}
