package uthread

import "errors"

// Sentinel errors returned by this package's operations. They are returned
// unwrapped; callers should compare against them with errors.Is rather than
// string-matching.
var (
	// ErrCapacity is returned by (*Scheduler).Create when the thread table
	// has no free slot (every slot is occupied by a live, non-terminated
	// thread).
	ErrCapacity = errors.New("uthread: thread table is full")

	// ErrUnknownThread is returned by Join when no slot of the thread table
	// holds a thread with the given tid (never created, or its slot was
	// reused by a later Create).
	ErrUnknownThread = errors.New("uthread: unknown thread id")

	// ErrRecursiveLock is returned by (*Mutex).Lock when the calling thread
	// already owns the mutex.
	ErrRecursiveLock = errors.New("uthread: thread already owns this mutex")

	// ErrNotOwner is returned by (*Mutex).Unlock, (*RWLock).Unlock and
	// (*RWLock).RUnlock when
	// the calling thread does not hold the lock it is trying to release.
	ErrNotOwner = errors.New("uthread: unlock called by a thread that does not hold the lock")

	// ErrInUse is returned by (*RWLock).Destroy when the lock still has an
	// active writer or active readers.
	ErrInUse = errors.New("uthread: lock destroyed while still in use")

	// ErrDestroyed is returned by (*RWLock).RLock and (*RWLock).Lock when
	// called after Destroy.
	ErrDestroyed = errors.New("uthread: lock already destroyed")
)
