// Package uthread implements a user-space cooperative-preemptive threading
// library: many logical "uthreads" multiplexed onto a single scheduling
// domain, with a round-robin scheduler, a FIFO direct-handoff Mutex, a
// writer-preferring RWLock, join/exit coordination, and an on-demand deadlock
// report walking the mutex wait-for graph.
//
// # Why goroutines, not ucontext
//
// The system this package is modeled on (a small C uthread runtime) captures
// and restores execution state with ucontext_t and swapcontext. Go gives a
// goroutine no equivalent manual stack switch, so every uthread here is
// realized as a genuine goroutine gated by a dedicated unbuffered "baton"
// channel (see context.go): only the goroutine currently holding its baton is
// considered RUNNING, which is what enforces the single-running-thread
// invariant without any assembly or unsafe stack manipulation. A "context
// switch" is just a channel handoff between two goroutines that are never
// both unblocked at once.
//
// # Cooperative-preemptive, for real
//
// The scheduler drives a genuine, independent timer (by default a
// time.Ticker; optionally a real POSIX SIGALRM itimer via
// InstallRealtimeSignals) that marks a preemption request asynchronously.
// That request is only acted on at the next Checkpoint call, which yields if
// a request is pending (Yield always switches and clears the request); lock,
// unlock and Join calls do not look at it and switch only when they block.
// This is what "cooperative-preemptive" means here: the request is
// asynchronous, the demotion is cooperative.
//
// # Concurrency model
//
// A Scheduler's internal state (the thread table, ready queue, and every
// Mutex/RWLock hosted by it) is protected by a single mutex. That mutex does
// not arbitrate between uthreads — the baton protocol already guarantees that
// at most one uthread's goroutine is doing meaningful work at a time. It
// exists to keep the scheduler's own background goroutines (the preemption
// ticker, the optional real-signal listener) from observing torn state while
// a uthread is mid-transition, and it is always released before a baton is
// sent or received so a parked goroutine can never hold it.
package uthread
