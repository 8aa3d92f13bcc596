// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

//go:build windows

package reactor

import (
	"errors"
	"net"

	"golang.org/x/sys/windows"
)

// closeFD closes a socket handle on Windows.
func closeFD(fd int) error {
	return windows.Closesocket(windows.Handle(fd))
}

// readFD reads from a socket handle on Windows.
func readFD(fd int, buf []byte) (int, error) {
	return windows.Read(windows.Handle(fd), buf)
}

// writeFD writes to a socket handle on Windows.
func writeFD(fd int, buf []byte) (int, error) {
	return windows.Write(windows.Handle(fd), buf)
}

// sendtoFD sends b to addr (if non-nil) or the connected peer (if nil)
// on a socket handle.
func sendtoFD(fd int, b []byte, addr net.Addr) (int, error) {
	h := windows.Handle(fd)
	if addr == nil {
		return windows.Write(h, b)
	}
	sa, err := sockaddrFromNetAddr(addr)
	if err != nil {
		return 0, err
	}
	if err := windows.Sendto(h, b, 0, sa); err != nil {
		return 0, err
	}
	return len(b), nil
}

// recvfromFD receives into b, returning the sender's address for
// datagram sockets.
func recvfromFD(fd int, b []byte) (int, net.Addr, error) {
	n, from, err := windows.Recvfrom(windows.Handle(fd), b, 0)
	if err != nil {
		return n, nil, err
	}
	return n, netAddrFromSockaddr(from), nil
}

func sockaddrFromNetAddr(addr net.Addr) (windows.Sockaddr, error) {
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
		var sa windows.SockaddrInet4
		sa.Port = port
		copy(sa.Addr[:], ip4)
		return &sa, nil
	}
	var sa windows.SockaddrInet6
	sa.Port = port
	copy(sa.Addr[:], ip.To16())
	return &sa, nil
}

func netAddrFromSockaddr(sa windows.Sockaddr) net.Addr {
	switch a := sa.(type) {
	case *windows.SockaddrInet4:
		return &net.UDPAddr{IP: net.IP(a.Addr[:]), Port: a.Port}
	case *windows.SockaddrInet6:
		return &net.UDPAddr{IP: net.IP(a.Addr[:]), Port: a.Port}
	default:
		return nil
	}
}

// isEINTR reports whether err is a syscall interrupted by a signal.
func isEINTR(err error) bool {
	return errors.Is(err, windows.WSAEINTR)
}

// isEAGAIN reports whether err indicates the non-blocking socket has
// no more buffer space/data available right now.
func isEAGAIN(err error) bool {
	return errors.Is(err, windows.WSAEWOULDBLOCK)
}

// writevFD has no scatter-gather syscall wired on Windows through
// golang.org/x/sys/windows's high-level wrappers, so the stream packet
// falls back to sequential per-buffer Write calls; see streamPacket.Send
// in sendqueue.go.
func writevFD(fd int, iovecs [][]byte) (int, error) {
	total := 0
	for _, b := range iovecs {
		if len(b) == 0 {
			continue
		}
		n, err := windows.Write(windows.Handle(fd), b)
		total += n
		if err != nil {
			return total, err
		}
		if n < len(b) {
			break
		}
	}
	return total, nil
}

// setReuseAddr enables SO_REUSEADDR on a socket handle, used by
// bind_udp/ListenTCP's reuseAddr option.
func setReuseAddr(fd int) error {
	return windows.SetsockoptInt(windows.Handle(fd), windows.SOL_SOCKET, windows.SO_REUSEADDR, 1)
}
