// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

// Package reactor implements a multi-reactor network runtime core: a
// single-threaded event loop per reactor backed by a kernel I/O poller
// (epoll on Linux, kqueue on Darwin, a select-style fallback on Windows),
// a delay-task heap, a cancellable-task queue, a small fixed worker pool
// distinct from the reactors, a load-weighted reactor pool used to place
// new sockets and timers, and a buffered, back-pressure-aware send engine
// for non-blocking TCP and UDP sockets.
//
// # Reactors
//
// A Reactor owns exactly one kernel poller, one fd table, one delay-task
// heap and one task queue. All of its callbacks — I/O readiness, expired
// timers, posted tasks — run on the reactor's own goroutine, which is the
// only goroutine permitted to touch its poller or fd table. Other
// goroutines interact with a reactor only through Async, AsyncFirst,
// AddDelayTask, Attach, Detach and Modify, all of which are safe to call
// concurrently and which wake a blocked reactor via its self-pipe (see
// wakeup_linux.go / wakeup_darwin.go / wakeup_windows.go).
//
// # Placement
//
// A Pool holds one Reactor per logical worker (default
// runtime.GOMAXPROCS(0)) and selects one for each newly created socket or
// timer using a load percentage sampled over a sliding window (see load.go),
// preferring an idle reactor and otherwise the least loaded.
//
// # Sockets
//
// Socket wraps a non-blocking fd registered with a Reactor. Reads happen
// inline on the reactor goroutine and are delivered to a caller-supplied
// callback; writes are staged through two ordered queues (waiting and
// sending, see sendqueue.go) so that partially-flushed writes never
// reorder with respect to later callers, and the socket's writable event
// is armed only while backlog remains.
//
// # Usage
//
//	pool, err := reactor.NewPool(0)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer pool.Close()
//
//	sock, err := reactor.DialTCP(pool.GetTaskExecutor(), "example.com:80")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	sock.SetOnRead(func(buf reactor.Buffer, _ net.Addr) {
//	    fmt.Println(string(buf.Bytes()))
//	})
//	sock.Send(reactor.NewBuffer([]byte("GET / HTTP/1.0\r\n\r\n")), nil, true)
//
// # What this package does not do
//
// It does not implement TLS, HTTP, or any RPC framing. Logging is
// consumed through the Logger interface (see logger.go); a concrete
// adapter for github.com/joeycumines/logiface is provided in the
// logifacelog subpackage. When no Logger is supplied, reactors log through
// a StdLogger writing to os.Stderr. Constructors, Attach and Send report
// failures as *Error (see reactorerr.go), keeping any syscall error as its
// Cause; NewOffsetBuffer returns a plain error for bad arguments, and
// Socket.Close returns the error from closing the fd unwrapped.
package reactor
