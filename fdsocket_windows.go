// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

//go:build windows

package reactor

import (
	"net"
	"unsafe"

	"golang.org/x/sys/windows"
)

var (
	ws2_32          = windows.NewLazySystemDLL("ws2_32.dll")
	procIoctlsocket = ws2_32.NewProc("ioctlsocket")
)

const fionbio = 0x8004667e

// setNonblockingSocket puts a WinSock socket into non-blocking mode via
// ioctlsocket(FIONBIO), the WinSock equivalent of fcntl(O_NONBLOCK).
// golang.org/x/sys/windows has no higher-level wrapper for this call, so
// it is invoked directly through the DLL proc, the same technique
// several low-level networking libraries use to reach WinSock APIs not
// otherwise exposed.
func setNonblockingSocket(h windows.Handle) error {
	var mode uint32 = 1
	r1, _, err := procIoctlsocket.Call(uintptr(h), uintptr(fionbio), uintptr(unsafe.Pointer(&mode)))
	if r1 != 0 {
		return err
	}
	return nil
}

// dupNonblockingFD duplicates a socket handle within this process via
// DuplicateHandle, which yields a second reference to the same
// underlying socket object (sharing its non-blocking state, so no
// separate ioctlsocket call is needed here) rather than an independent
// socket, matching dupNonblockingFD's Unix counterpart closely enough
// for this module's purposes: both the original net package conn and
// the duplicate may be closed independently while the socket itself
// stays open until the last reference is closed.
func dupNonblockingFD(fd int) (int, error) {
	self := windows.CurrentProcess()
	var dup windows.Handle
	if err := windows.DuplicateHandle(self, windows.Handle(fd), self, &dup, 0, false, windows.DUPLICATE_SAME_ACCESS); err != nil {
		return -1, err
	}
	return int(dup), nil
}

// acceptRawFD accepts one pending connection on a listening socket
// handle and puts the new socket into non-blocking mode, which a plain
// WinSock accept() does not inherit from the listener.
func acceptRawFD(fd int) (int, net.Addr, error) {
	nh, sa, err := windows.Accept(windows.Handle(fd))
	if err != nil {
		return -1, nil, err
	}
	if err := setNonblockingSocket(nh); err != nil {
		windows.Closesocket(nh)
		return -1, nil, err
	}
	return int(nh), netAddrFromSockaddr(sa), nil
}
