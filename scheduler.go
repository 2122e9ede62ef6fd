package uthread

import (
	"os"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
)

// Scheduler owns a thread table, a ready queue, and the single "running"
// slot, and drives the round-robin quantum (component D). A Scheduler is
// safe to create with NewScheduler and use from any of the goroutines
// backing its own threads; it must not be shared across independently
// driven preemption tickers.
type Scheduler struct {
	cfg Config
	log *logrus.Entry

	mu sync.Mutex

	threads []*thread
	ready   []*thread

	running      *thread
	mainThread   *thread
	deferredFree *thread

	nextTID   int32
	liveCount int

	preemptPending atomic.Bool

	initOnce  sync.Once
	closeOnce sync.Once
	stopCh    chan struct{}
}

// NewScheduler builds a Scheduler with the given options layered over
// DefaultConfig. The scheduler is not actually brought up (the main thread's
// TCB is not installed, the preemption ticker is not started) until the
// first call that needs it — matching original_source/uthread.c's
// scheduler_init idempotent lazy-init guard.
func NewScheduler(opts ...Option) *Scheduler {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Scheduler{
		cfg:    cfg,
		stopCh: make(chan struct{}),
	}
}

// Close stops this scheduler's preemption ticker goroutine. It is safe to
// call more than once and safe to call on a scheduler that was never used.
func (s *Scheduler) Close() {
	s.closeOnce.Do(func() {
		close(s.stopCh)
	})
}

func (s *Scheduler) ensureInit() {
	s.initOnce.Do(func() {
		if s.cfg.MaxThreads <= 0 {
			s.cfg.MaxThreads = defaultMaxThreads
		}
		if s.cfg.Logger == nil {
			s.cfg.Logger = logrus.StandardLogger()
		}
		s.log = s.cfg.Logger.WithField("component", "uthread")

		s.threads = make([]*thread, s.cfg.MaxThreads)
		main := &thread{tid: 0, state: stateRunning, baton: make(chan struct{})}
		s.threads[0] = main
		s.mainThread = main
		s.running = main
		s.nextTID = 1
		s.liveCount = 1

		go s.runTicker()
	})
}

func (s *Scheduler) runTicker() {
	ticker := time.NewTicker(s.cfg.Quantum)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.requestPreempt()
		case <-s.stopCh:
			return
		}
	}
}

// requestPreempt marks that the current quantum has expired. Demotion of
// the running thread happens lazily, at the next safepoint (see
// Checkpoint).
func (s *Scheduler) requestPreempt() {
	s.preemptPending.Store(true)
}

// Checkpoint is the safepoint a long-running, CPU-bound thread body should
// call periodically (in place of original_source/test_*.c's busy loops,
// which a real SIGALRM could interrupt mid-iteration): it yields only if a
// preemption tick has actually landed since the last checkpoint, and is a
// cheap no-op otherwise.
func (s *Scheduler) Checkpoint() {
	if s.preemptPending.CompareAndSwap(true, false) {
		s.Yield()
	}
}

func (s *Scheduler) enqueueReady(t *thread) {
	s.ready = append(s.ready, t)
}

func (s *Scheduler) dequeueReady() *thread {
	if len(s.ready) == 0 {
		return nil
	}
	t := s.ready[0]
	s.ready = s.ready[1:]
	return t
}

func (s *Scheduler) findThread(tid int32) *thread {
	for _, t := range s.threads {
		if t != nil && t.tid == tid {
			return t
		}
	}
	return nil
}

// reclaim models the "free the terminated thread's stack" step from
// original_source/uthread.c's scheduler_schedule. Go owns the real goroutine
// stack and reclaims it itself once the goroutine returns, so this step only
// logs: the terminated thread's slot and retval stay in the table (so Join
// can still read them) until a later Create overwrites the slot.
func (s *Scheduler) reclaim(t *thread) {
	s.log.WithField("tid", t.tid).Debug("reclaiming terminated thread")
}

// schedule performs one round-robin scheduling step: reclaim any thread that
// terminated on the previous step, pick the next ready thread (falling back
// to the main thread if the ready queue is empty), and switch to it. Callers
// must hold s.mu on entry; schedule always releases it (it owns the unlock
// on every path) before blocking on the context switch, since a parked
// goroutine must never hold the scheduler mutex.
func (s *Scheduler) schedule() {
	if s.deferredFree != nil {
		s.reclaim(s.deferredFree)
		s.deferredFree = nil
	}

	prev := s.running
	next := s.dequeueReady()
	if next == nil {
		if prev == s.mainThread {
			// Nothing else is ready and main is already running: stay put.
			s.mu.Unlock()
			return
		}
		next = s.mainThread
	}

	if next == prev {
		// prev dequeued itself: it was the only ready thread, so there is
		// no other goroutine to hand the baton to. It is already running on
		// its own goroutine stack, so just confirm that and return — a
		// self-swapContext would send on prev's own baton with no one left
		// to receive it, and block forever.
		next.state = stateRunning
		s.mu.Unlock()
		return
	}

	s.running = next
	next.state = stateRunning
	terminating := prev.state == stateTerminated
	if terminating {
		s.deferredFree = prev
	}
	s.mu.Unlock()

	if terminating {
		restoreContext(next)
		// prev's goroutine must never execute further: it already
		// published its retval and woke its joiners in Exit.
		runtime.Goexit()
	}
	swapContext(prev, next)
}

// LiveThreads returns the number of threads that have been created and have
// not yet terminated, including the main thread.
func (s *Scheduler) LiveThreads() int {
	s.ensureInit()
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.liveCount
}

// Self returns the tid of the calling thread, or 0 before the scheduler has
// been brought up (mirroring original_source/uthread.c's uthread_self()
// returning the main thread's tid, 0, pre-init).
func (s *Scheduler) Self() int32 {
	s.ensureInit()
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running.tid
}

// Create installs a new thread running entry(arg) and makes it ready to run,
// returning its tid. It returns ErrCapacity if every slot is occupied by a
// live thread.
func (s *Scheduler) Create(entry func(arg any), arg any) (int32, error) {
	s.ensureInit()
	s.mu.Lock()

	slot := -1
	for i := 1; i < len(s.threads); i++ {
		if s.threads[i] == nil || s.threads[i].state == stateTerminated {
			slot = i
			break
		}
	}
	if slot == -1 {
		s.mu.Unlock()
		return 0, ErrCapacity
	}

	tid := s.nextTID
	s.nextTID++
	t := &thread{
		tid:   tid,
		state: stateReady,
		baton: make(chan struct{}),
		entry: entry,
		arg:   arg,
	}
	s.threads[slot] = t
	s.enqueueReady(t)
	s.liveCount++
	s.log.WithFields(logrus.Fields{"tid": tid, "slot": slot}).Debug("thread created")
	s.mu.Unlock()

	s.spawn(t)
	return tid, nil
}

// Yield voluntarily demotes the running thread to ready and switches to the
// next ready thread, cycling it to the back of the queue (round-robin).
func (s *Scheduler) Yield() {
	s.ensureInit()
	s.preemptPending.Store(false)
	s.mu.Lock()
	cur := s.running
	if cur.state == stateRunning {
		cur.state = stateReady
		s.enqueueReady(cur)
	}
	s.schedule()
}

// Exit terminates the calling thread, publishing retval for a waiting
// Join and waking any thread blocked joining it, then switches away for
// good. If called from the main thread (tid 0), the process terminates
// immediately, matching original_source/uthread.c's documented behavior for
// exiting the main thread.
func (s *Scheduler) Exit(retval any) {
	s.ensureInit()
	s.mu.Lock()
	cur := s.running

	if cur == s.mainThread {
		s.mu.Unlock()
		s.log.Info("main thread exited; terminating process")
		os.Exit(0)
	}

	cur.retval = retval
	cur.state = stateTerminated
	for _, t := range s.threads {
		if t != nil && t != cur && t.state != stateTerminated && t.waitingFor == cur {
			t.waitingFor = nil
			t.state = stateReady
			s.enqueueReady(t)
		}
	}
	s.liveCount--
	s.log.WithField("tid", cur.tid).Debug("thread exited")
	s.schedule()
	panic("uthread: unreachable, schedule() must not return for a terminated thread")
}

// Join blocks the calling thread until the thread identified by tid
// terminates, then returns the value it passed to Exit. If that thread has
// already terminated, Join returns immediately. It returns ErrUnknownThread
// if no slot of the thread table holds a thread with that tid: either it
// was never created, or it terminated and a later Create reused its slot.
func (s *Scheduler) Join(tid int32) (any, error) {
	s.ensureInit()
	s.mu.Lock()
	target := s.findThread(tid)
	if target == nil {
		s.mu.Unlock()
		return nil, ErrUnknownThread
	}
	if target.state == stateTerminated {
		rv := target.retval
		s.mu.Unlock()
		return rv, nil
	}

	cur := s.running
	cur.state = stateBlocked
	cur.waitingFor = target
	s.log.WithFields(logrus.Fields{"tid": cur.tid, "joining": tid}).Debug("thread blocked on join")
	s.schedule()

	return target.retval, nil
}
