package uthread

import (
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sys/unix"
)

// InstallRealtimeSignals arms a real POSIX interval timer backing this
// Scheduler's preemption tick (SIGALRM, delivered every cfg.Quantum) and a
// diagnostic SIGQUIT handler that runs DetectDeadlocks and logs the result —
// the direct realization of component E's kernel facility, grounded in
// original_source/uthread.c's scheduler_init (which does the equivalent with
// setitimer/sigaction).
//
// This is optional: NewScheduler's own time.Ticker-driven preemption already
// gives a fully deterministic, test-friendly tick with no process-global
// state. Only call this from the one Scheduler in a process that should own
// SIGALRM/SIGQUIT — a second call from a second Scheduler would fight over
// the same interval timer.
//
// Unlike original_source/uthread.c's handlers, which ran as restricted
// async-signal-safe POSIX signal handlers and so could only use
// write(2)-to-a-raw-buffer for their diagnostic output, Go delivers signals
// to an ordinary goroutine via the runtime before resuming user code, so the
// handling code below is free to call into the scheduler and an ordinary
// structured logger.
func (s *Scheduler) InstallRealtimeSignals() (stop func(), err error) {
	s.ensureInit()

	interval := unix.NsecToTimeval(s.cfg.Quantum.Nanoseconds())
	it := unix.Itimerval{Value: interval, Interval: interval}
	if err := unix.Setitimer(unix.ITIMER_REAL, &it, nil); err != nil {
		return nil, err
	}

	alarmCh := make(chan os.Signal, 1)
	signal.Notify(alarmCh, syscall.SIGALRM)
	quitCh := make(chan os.Signal, 1)
	signal.Notify(quitCh, syscall.SIGQUIT)

	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-alarmCh:
				s.requestPreempt()
			case <-quitCh:
				report := s.DetectDeadlocks()
				s.log.Info(report.String())
			case <-done:
				return
			}
		}
	}()

	stop = func() {
		signal.Stop(alarmCh)
		signal.Stop(quitCh)
		close(done)
		var zero unix.Itimerval
		_ = unix.Setitimer(unix.ITIMER_REAL, &zero, nil)
	}
	return stop, nil
}
