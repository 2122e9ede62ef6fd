package uthread

import "github.com/sirupsen/logrus"

// Mutex is a FIFO mutual-exclusion lock integrated with a Scheduler's wait
// queues (component F). Unlike sync.Mutex, blocking here means the calling
// thread is descheduled by the scheduler rather than the calling goroutine
// spinning or parking on a runtime-level primitive, which is what lets the
// deadlock detector see every blocked waiter and the mutex it is waiting on.
//
// Unlock performs a direct handoff: when there is a waiter, ownership is
// reassigned to it in the same critical section that wakes it, so the mutex
// is never observably unlocked between an Unlock call and the next owner
// taking over (original_source/uthread.c's uthread_mutex_unlock instead woke
// the waiter and let it re-acquire on its own, a wake-then-acquire race that
// a preempting thread could slip into the gap of — see DESIGN.md).
type Mutex struct {
	sched *Scheduler

	locked  bool
	owner   *thread
	waiters []*thread
}

// NewMutex creates a Mutex hosted by sched. There is no separate Init step:
// a zero-value Mutex obtained this way is immediately usable.
func NewMutex(sched *Scheduler) *Mutex {
	return &Mutex{sched: sched}
}

// Lock acquires the mutex, blocking the calling thread until it is
// available. It returns ErrRecursiveLock if the calling thread already owns
// it: this mutex is not reentrant.
func (m *Mutex) Lock() error {
	s := m.sched
	s.ensureInit()
	s.mu.Lock()

	cur := s.running
	if !m.locked {
		m.locked = true
		m.owner = cur
		s.mu.Unlock()
		return nil
	}
	if m.owner == cur {
		s.mu.Unlock()
		return ErrRecursiveLock
	}

	cur.state = stateBlocked
	cur.blockedOnMutex = m
	m.waiters = append(m.waiters, cur)
	s.log.WithFields(logrus.Fields{"tid": cur.tid}).Debug("thread blocked on mutex")
	s.schedule()

	// Resumed here only once the unlocking thread has already set
	// m.owner = cur as part of the direct handoff.
	cur.blockedOnMutex = nil
	return nil
}

// Unlock releases the mutex. It returns ErrNotOwner if the calling thread
// does not currently hold it. If another thread is waiting, ownership is
// handed directly to the longest-waiting one (FIFO) as part of this call.
func (m *Mutex) Unlock() error {
	s := m.sched
	s.ensureInit()
	s.mu.Lock()

	cur := s.running
	if !m.locked || m.owner != cur {
		s.mu.Unlock()
		return ErrNotOwner
	}

	if len(m.waiters) == 0 {
		m.locked = false
		m.owner = nil
		s.mu.Unlock()
		return nil
	}

	next := m.waiters[0]
	m.waiters = m.waiters[1:]
	m.owner = next // direct handoff: ownership moves before next is even woken.
	next.state = stateReady
	next.blockedOnMutex = nil
	s.enqueueReady(next)
	s.log.WithFields(logrus.Fields{"from": cur.tid, "to": next.tid}).Debug("mutex handed off")
	s.mu.Unlock()
	return nil
}
