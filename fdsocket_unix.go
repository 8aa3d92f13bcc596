// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

//go:build linux || darwin

package reactor

import (
	"net"

	"golang.org/x/sys/unix"
)

// dupNonblockingFD duplicates fd (inheriting its already-non-blocking
// state, since every fd handed to this function originates from a Go
// net package listener/conn that the runtime itself put into
// non-blocking mode) and marks the duplicate close-on-exec.
func dupNonblockingFD(fd int) (int, error) {
	nfd, err := unix.Dup(fd)
	if err != nil {
		return -1, err
	}
	_ = unix.CloseOnExec(nfd)
	return nfd, nil
}

// acceptRawFD accepts one pending connection on a listening fd,
// returning a non-blocking, close-on-exec duplicate-free fd (accept
// itself already returns a distinct fd, so no dup is required — only
// the non-blocking flag needs to be set explicitly, since POSIX accept
// does not inherit O_NONBLOCK from the listener).
func acceptRawFD(fd int) (int, net.Addr, error) {
	nfd, sa, err := unix.Accept(fd)
	if err != nil {
		return -1, nil, err
	}
	if err := unix.SetNonblock(nfd, true); err != nil {
		unix.Close(nfd)
		return -1, nil, err
	}
	_ = unix.CloseOnExec(nfd)
	return nfd, netAddrFromSockaddr(sa), nil
}
