package uthread

// threadState mirrors original_source/uthread.h's thread_state_t.
type threadState int32

const (
	stateReady threadState = iota
	stateRunning
	stateBlocked
	stateTerminated
)

func (s threadState) String() string {
	switch s {
	case stateReady:
		return "ready"
	case stateRunning:
		return "running"
	case stateBlocked:
		return "blocked"
	case stateTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// thread is this package's TCB (thread control block). tid is drawn from a
// per-scheduler monotonically increasing counter and is never reused, which
// is what lets findThread match on a bare tid with no ambiguity even after
// the slot that held a terminated thread is recycled by a later Create (see
// DESIGN.md's Open Question resolution #1 — no separate generation counter
// is needed).
//
// There is deliberately no "stack" field and no intrusive "next" pointer:
// Go's runtime owns each uthread's real goroutine stack, and ready-queue
// membership is modeled as a plain slice (see scheduler.go), not an
// intrusive linked list.
type thread struct {
	tid   int32
	state threadState

	// baton is this thread's context-switch handle: the goroutine backing
	// this thread blocks on a receive from baton whenever it is not
	// running, and is resumed by exactly one send to it. See context.go.
	baton chan struct{}

	entry  func(arg any)
	arg    any
	retval any

	// waitingFor is set while this thread is blocked inside Join, pointing
	// at the thread it is waiting to terminate.
	waitingFor *thread

	// blockedOnMutex/blockedOnRWLock/isWriter describe what this thread is
	// parked on, if anything; used by the ready-queue wait lists and by the
	// deadlock detector's wait-for graph walk.
	blockedOnMutex  *Mutex
	blockedOnRWLock *RWLock
	isWriter        bool
}
