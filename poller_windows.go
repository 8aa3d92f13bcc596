// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

//go:build windows

package reactor

import (
	"sync"
	"sync/atomic"

	"golang.org/x/sys/windows"
)

// fdSetSize mirrors the platform FD_SETSIZE winsock is built against.
// Reactors needing more concurrent sockets than this on Windows should
// split work across additional Pool reactors.
const fdSetSize = 64

// kernelPoller is the Windows fallback poller. It scans registered fds
// with select every PollIO call rather than using IOCP, because IOCP
// delivers completions for operations already issued (an overlapped-I/O
// model) rather than plain readiness notifications, which is what the
// rest of this package (and its Attach/Modify/Detach contract) assumes.
type kernelPoller struct {
	mu     sync.RWMutex
	fds    map[int]fdInfo
	closed atomic.Bool
}

func (p *kernelPoller) Init() error {
	p.fds = make(map[int]fdInfo)
	return nil
}

func (p *kernelPoller) Close() error {
	p.closed.Store(true)
	return nil
}

func (p *kernelPoller) RegisterFD(fd int, events IOEvents, cb IOCallback) error {
	if p.closed.Load() {
		return ErrPollerClosed
	}
	if fd < 0 {
		return ErrFDOutOfRange
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.fds[fd]; ok {
		return ErrFDAlreadyRegistered
	}
	if len(p.fds) >= fdSetSize {
		return ErrFDOutOfRange
	}
	p.fds[fd] = fdInfo{callback: cb, events: events, active: true}
	return nil
}

func (p *kernelPoller) UnregisterFD(fd int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.fds[fd]; !ok {
		return ErrFDNotRegistered
	}
	delete(p.fds, fd)
	return nil
}

func (p *kernelPoller) ModifyFD(fd int, events IOEvents) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	info, ok := p.fds[fd]
	if !ok {
		return ErrFDNotRegistered
	}
	info.events = events
	p.fds[fd] = info
	return nil
}

// PollIO builds read/write/exception fd_sets from the registered table
// and blocks in select for up to timeoutMs, dispatching readiness
// callbacks inline afterward.
func (p *kernelPoller) PollIO(timeoutMs int) (int, error) {
	if p.closed.Load() {
		return 0, ErrPollerClosed
	}

	p.mu.RLock()
	if len(p.fds) == 0 {
		p.mu.RUnlock()
		// select() with no fds is not portable; sleep out the timeout
		// instead so callers waiting purely on timers still work.
		if timeoutMs > 0 {
			windows.Sleep(uint32(timeoutMs))
		}
		return 0, nil
	}

	var rset, wset, eset windows.FdSet
	type watched struct {
		fd   int
		info fdInfo
	}
	var all []watched
	for fd, info := range p.fds {
		all = append(all, watched{fd, info})
		h := windows.Handle(fd)
		if info.events&EventRead != 0 {
			addFD(&rset, h)
		}
		if info.events&EventWrite != 0 {
			addFD(&wset, h)
		}
		addFD(&eset, h)
	}
	p.mu.RUnlock()

	var tv *windows.Timeval
	if timeoutMs >= 0 {
		tv = &windows.Timeval{Sec: int32(timeoutMs / 1000), Usec: int32((timeoutMs % 1000) * 1000)}
	}

	n, err := windows.Select(0, &rset, &wset, &eset, tv)
	if err != nil {
		return 0, err
	}
	if n <= 0 {
		return 0, nil
	}

	dispatched := 0
	for _, w := range all {
		h := windows.Handle(w.fd)
		var events IOEvents
		if fdIsSet(&rset, h) {
			events |= EventRead
		}
		if fdIsSet(&wset, h) {
			events |= EventWrite
		}
		if fdIsSet(&eset, h) {
			events |= EventError
		}
		if events != 0 && w.info.active && w.info.callback != nil {
			w.info.callback(events)
			dispatched++
		}
	}
	return dispatched, nil
}

func addFD(set *windows.FdSet, h windows.Handle) {
	if set.Count < uint32(len(set.Array)) {
		set.Array[set.Count] = h
		set.Count++
	}
}

func fdIsSet(set *windows.FdSet, h windows.Handle) bool {
	for i := uint32(0); i < set.Count; i++ {
		if set.Array[i] == h {
			return true
		}
	}
	return false
}
