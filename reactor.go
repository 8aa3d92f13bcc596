// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package reactor

import (
	"container/heap"
	"runtime"
	"sync"
	"sync/atomic"
	"time"
	"weak"
)

// Reactor is a single-threaded I/O readiness loop: it owns exactly one
// kernel poller, one delay-task heap and one task queue, and dispatches
// readiness, expired timers and posted tasks exclusively on its own
// goroutine. Other goroutines interact with it only through Attach,
// Detach, Modify, Async, AsyncFirst and AddDelayTask, all of which are
// safe for concurrent use and wake a blocked Reactor via its self-pipe.
//
// Grounded on the origin implementation's EventPoller
// (original_source/avctool/poller/EventPoller.{h,cc}) and the teacher's
// loop.go task/timer scheduling shape, trimmed of JS/Promise machinery.
type Reactor struct {
	logger Logger
	load   *loadCounter
	wake   *wakeChannel
	poller kernelPoller

	// taskMu guards tasks, the multi-producer/single-consumer queue.
	// Only the reactor goroutine pops from it; any goroutine may push.
	taskMu sync.Mutex
	tasks  []*Task

	// delayHeap is read and mutated exclusively by the reactor goroutine;
	// cross-thread insertion happens via an AsyncFirst trampoline (see
	// AddDelayTask), never by taking a lock on the heap directly.
	delayHeap delayHeap
	delaySeq  uint64

	goroutineID atomic.Uint64
	exitFlag    atomic.Bool
	state       *fastState
	startedOnce sync.Once
	startedCh   chan struct{}
	doneCh      chan struct{}
	doneOnce    sync.Once

	sharedBufMu   sync.Mutex
	sharedBuf     weak.Pointer[[]byte]
	sharedBufSize int
}

// delayEntry is one scheduled delay-task, grounded on the spec's
// {deadline_micros, repeat_policy, payload} triple.
type delayEntry struct {
	deadline time.Time
	seq      uint64
	handle   *DelayTask
}

type delayHeap []*delayEntry

func (h delayHeap) Len() int { return len(h) }
func (h delayHeap) Less(i, j int) bool {
	if h[i].deadline.Equal(h[j].deadline) {
		return h[i].seq < h[j].seq
	}
	return h[i].deadline.Before(h[j].deadline)
}
func (h delayHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *delayHeap) Push(x any)   { *h = append(*h, x.(*delayEntry)) }
func (h *delayHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return x
}

// DelayTask is a cancellable handle over a reactor delay-task. Its
// callable returns 0 (interpreted as time.Duration(0)) to stop, or a
// positive duration to be rearmed that many ticks after the current
// firing time. Like Task, Cancel is an atomic pointer swap to nil, so
// the no-op guarantee is visible to every goroutine as soon as Cancel
// returns, never dependent on a GC cycle having run.
type DelayTask struct {
	strong atomic.Pointer[func() time.Duration]
}

// Cancel prevents this delay-task from firing again. If it is currently
// mid-firing on the reactor goroutine, that firing completes, but since
// scheduleDelayTasks re-checks the callable pointer before rearming, it
// will not be rearmed once Cancel has returned.
func (d *DelayTask) Cancel() {
	d.strong.Store(nil)
}

// NewReactor constructs and starts a Reactor's kernel poller and wakeup
// channel, but does not start its loop goroutine; call RunLoop to do
// that. Construction failure (poller or wakeup channel creation) is
// fatal and returned as an *Error with CodeCreation.
func NewReactor(opts ...ReactorOption) (*Reactor, error) {
	cfg := resolveReactorOptions(opts)

	wc, err := newWakeChannel()
	if err != nil {
		return nil, newError(CodeCreation, "create wakeup channel", err)
	}

	r := &Reactor{
		logger:        cfg.logger,
		load:          newLoadCounter(cfg.loadMaxSamples, cfg.loadMaxWindow),
		wake:          wc,
		state:         newFastState(),
		startedCh:     make(chan struct{}),
		doneCh:        make(chan struct{}),
		sharedBufSize: cfg.sharedBufferSize,
	}

	if err := r.poller.Init(); err != nil {
		wc.Close()
		return nil, newError(CodeCreation, "init kernel poller", err)
	}

	if err := r.poller.RegisterFD(wc.ReadFD(), EventRead, func(IOEvents) {
		r.wake.Drain()
		r.dispatchTasks()
	}); err != nil {
		r.poller.Close()
		wc.Close()
		return nil, newError(CodeCreation, "register wakeup fd", err)
	}

	return r, nil
}

// isReactorThread reports whether the calling goroutine is this
// Reactor's loop goroutine. Used to decide whether Async/AsyncFirst may
// run a task inline instead of queueing it.
func (r *Reactor) isReactorThread() bool {
	id := r.goroutineID.Load()
	return id != 0 && id == currentGoroutineID()
}

// currentGoroutineID extracts the numeric goroutine id from the current
// goroutine's stack trace header. Go exposes no public API for this;
// parsing runtime.Stack's "goroutine N [...]" prefix is the standard
// workaround and is only ever used here for the reactor-thread-affinity
// check, never for correctness-critical synchronization.
func currentGoroutineID() uint64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	var id uint64
	for i := len("goroutine "); i < n; i++ {
		if buf[i] < '0' || buf[i] > '9' {
			break
		}
		id = id*10 + uint64(buf[i]-'0')
	}
	return id
}

// Attach registers fd with this Reactor for the given events; cb is
// invoked on the reactor goroutine, with the signaled subset of events,
// whenever fd becomes ready. A duplicate Attach on an already-registered
// fd replaces the prior registration. Requires fd >= 0.
func (r *Reactor) Attach(fd int, events IOEvents, cb IOCallback) error {
	if fd < 0 {
		return newError(CodeCreation, "attach: negative fd", nil)
	}
	do := func() error {
		_ = r.poller.UnregisterFD(fd) // replace semantics; ignore "not registered"
		if err := r.poller.RegisterFD(fd, events, cb); err != nil {
			r.logger.Errorf("reactor: attach fd %d failed: %v", fd, err)
			return newError(CodeCreation, "attach fd", err)
		}
		return nil
	}
	if r.isReactorThread() {
		return do()
	}
	var result error
	done := make(chan struct{})
	r.Async(func() { result = do(); close(done) }, false)
	<-done
	return result
}

// Detach removes fd's registration, if any. Idempotent.
func (r *Reactor) Detach(fd int) error {
	do := func() error {
		_ = r.poller.UnregisterFD(fd)
		return nil
	}
	if r.isReactorThread() {
		return do()
	}
	done := make(chan struct{})
	r.Async(func() { do(); close(done) }, false)
	<-done
	return nil
}

// Modify updates the requested events for an already-registered fd. If
// fd is not currently registered the kernel call may still be attempted
// and is allowed to fail silently: the next readiness for that fd (there
// will be none, since it isn't registered) simply never arrives, which
// matches the spec's garbage-collect note that a poller never dispatches
// to a registration it doesn't hold.
func (r *Reactor) Modify(fd int, events IOEvents) error {
	do := func() error {
		_ = r.poller.ModifyFD(fd, events)
		return nil
	}
	if r.isReactorThread() {
		return do()
	}
	done := make(chan struct{})
	r.Async(func() { do(); close(done) }, false)
	<-done
	return nil
}

// Async appends fn as a task to the queue, in FIFO order relative to
// other Async calls. If maySync is true and the caller is already on the
// reactor goroutine, fn runs inline immediately instead of being queued,
// and Async returns nil. Otherwise it returns a *Task handle that may be
// cancelled before it runs.
func (r *Reactor) Async(fn func(), maySync bool) *Task {
	if maySync && r.isReactorThread() {
		fn()
		return nil
	}
	t := NewTask(fn)
	r.taskMu.Lock()
	r.tasks = append(r.tasks, t)
	r.taskMu.Unlock()
	r.wake.Wake()
	return t
}

// AsyncFirst prepends fn to the queue, ahead of everything already
// queued (reverse-post order relative to other AsyncFirst calls). Same
// maySync/inline rule as Async.
func (r *Reactor) AsyncFirst(fn func(), maySync bool) *Task {
	if maySync && r.isReactorThread() {
		fn()
		return nil
	}
	t := NewTask(fn)
	r.taskMu.Lock()
	r.tasks = append([]*Task{t}, r.tasks...)
	r.taskMu.Unlock()
	r.wake.Wake()
	return t
}

// AddDelayTask schedules fn to run after delay, on the reactor goroutine.
// fn's return value reschedules the task that many ticks later (<=0
// stops it). Insertion happens via an AsyncFirst trampoline so that the
// delay heap, which is reactor-goroutine-confined, is never touched from
// another goroutine and the same wakeup that delivers the trampoline task
// also interrupts any in-progress kernel poll wait.
func (r *Reactor) AddDelayTask(delay time.Duration, fn func() time.Duration) *DelayTask {
	d := &DelayTask{}
	f := fn
	d.strong.Store(&f)

	r.AsyncFirst(func() {
		r.delaySeq++
		heap.Push(&r.delayHeap, &delayEntry{
			deadline: time.Now().Add(delay),
			seq:      r.delaySeq,
			handle:   d,
		})
	}, true)
	return d
}

// scheduleDelayTasks runs every expired delay-task and returns the
// number of milliseconds until the next deadline, or 0 if the heap is
// now empty (interpreted by the kernel poll call as "indefinite"). Only
// ever called from the reactor goroutine.
func (r *Reactor) scheduleDelayTasks() int {
	now := time.Now()
	for len(r.delayHeap) > 0 && !r.delayHeap[0].deadline.After(now) {
		entry := heap.Pop(&r.delayHeap).(*delayEntry)
		fn := entry.handle.strong.Load()
		if fn == nil || *fn == nil {
			continue
		}
		next := func() (d time.Duration) {
			defer func() {
				if rec := recover(); rec != nil {
					r.logger.Warnf("reactor: delay task panicked: %v", rec)
					d = 0
				}
			}()
			return (*fn)()
		}()
		// Re-check after firing: a Cancel that raced with this firing must
		// not be undone by rearming the task it just cancelled.
		if next > 0 && entry.handle.strong.Load() != nil {
			r.delaySeq++
			heap.Push(&r.delayHeap, &delayEntry{deadline: now.Add(next), seq: r.delaySeq, handle: entry.handle})
		}
	}
	if len(r.delayHeap) == 0 {
		return 0
	}
	wait := r.delayHeap[0].deadline.Sub(time.Now())
	if wait < 0 {
		return 0
	}
	ms := int(wait / time.Millisecond)
	if ms == 0 && wait > 0 {
		ms = 1
	}
	return ms
}

// dispatchTasks swaps out the task queue and runs every task in order,
// stopping (without running the remainder) the moment an exit sentinel
// is reached. Only ever called from the reactor goroutine, in response
// to the wakeup fd firing.
func (r *Reactor) dispatchTasks() {
	r.taskMu.Lock()
	batch := r.tasks
	r.tasks = nil
	r.taskMu.Unlock()

	for _, t := range batch {
		if t.isExit {
			r.exitFlag.Store(true)
			return
		}
		r.safeRun(t)
	}
}

func (r *Reactor) safeRun(t *Task) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Warnf("reactor: task panicked: %v", rec)
		}
	}()
	t.Run()
}

// RunLoop starts the reactor's main loop. If blocked is false, the loop
// runs on a new goroutine and RunLoop returns once that goroutine has
// started (signalled via an internal semaphore); if blocked is true,
// RunLoop runs the loop in the calling goroutine and blocks until
// Shutdown.
func (r *Reactor) RunLoop(blocked bool) {
	if !blocked {
		go r.runLoop()
		<-r.startedCh
		return
	}
	r.startedOnce.Do(func() { close(r.startedCh) })
	r.runLoop()
}

func (r *Reactor) runLoop() {
	r.goroutineID.Store(currentGoroutineID())
	r.startedOnce.Do(func() { close(r.startedCh) })
	r.state.Store(StateRunning)
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	defer r.doneOnce.Do(func() { close(r.doneCh) })
	defer r.state.Store(StateTerminated)
	defer func() {
		r.goroutineID.Store(0)
	}()

	for !r.exitFlag.Load() {
		timeoutMs := r.scheduleDelayTasks()
		if timeoutMs == 0 && len(r.delayHeap) == 0 {
			timeoutMs = -1 // indefinite
		}
		r.load.OnSleep()
		_, err := r.poller.PollIO(timeoutMs)
		r.load.OnWakeup()
		if err != nil {
			r.logger.Errorf("reactor: poll error: %v", err)
		}
	}
}

// Shutdown posts the exit sentinel and blocks until the loop goroutine
// has returned. It is safe to call more than once and from any
// goroutine. Called from the reactor's own goroutine, it posts the
// sentinel and returns without waiting; the loop exits once the
// currently-executing task batch finishes and the sentinel, queued
// behind it, is reached.
func (r *Reactor) Shutdown() {
	r.state.TryTransition(StateRunning, StateTerminating)
	r.state.TryTransition(StateAwake, StateTerminating)
	exit := newExitTask()
	r.taskMu.Lock()
	r.tasks = append(r.tasks, exit)
	r.taskMu.Unlock()
	r.wake.Wake()
	if r.isReactorThread() {
		return
	}
	<-r.doneCh
}

// State reports the reactor's current lifecycle state (Awake, Running,
// Terminating, or Terminated), observable from any goroutine.
func (r *Reactor) State() ReactorState { return r.state.Load() }

// SharedBuffer returns a byte buffer sized per WithSharedBufferSize,
// shared across read callbacks dispatched by this reactor. It is held
// only via a weak.Pointer so it can be reclaimed once no socket is
// actively using it between reads.
func (r *Reactor) SharedBuffer() []byte {
	r.sharedBufMu.Lock()
	defer r.sharedBufMu.Unlock()
	if p := r.sharedBuf.Value(); p != nil {
		return *p
	}
	buf := make([]byte, r.sharedBufSize)
	r.sharedBuf = weak.Make(&buf)
	return buf
}

// Close releases the reactor's poller and wakeup channel without running
// Shutdown's graceful task-draining sequence; it is intended for use
// after RunLoop has already returned (e.g. via Shutdown).
func (r *Reactor) Close() error {
	r.poller.Close()
	return r.wake.Close()
}
