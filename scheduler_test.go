package uthread

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestScheduler(opts ...Option) *Scheduler {
	// A long quantum keeps the background ticker from interfering with
	// deterministic tests that drive yields/locks explicitly.
	base := []Option{WithQuantum(time.Hour)}
	return NewScheduler(append(base, opts...)...)
}

func TestSelfBeforeInitIsZero(t *testing.T) {
	s := newTestScheduler()
	defer s.Close()
	assert.EqualValues(t, 0, s.Self())
}

func TestCreateAssignsIncreasingTIDs(t *testing.T) {
	s := newTestScheduler()
	defer s.Close()

	var wg sync.WaitGroup
	wg.Add(3)
	var tids []int32
	var mu sync.Mutex
	var lastTID int32

	for i := 0; i < 3; i++ {
		tid, err := s.Create(func(arg any) {
			mu.Lock()
			tids = append(tids, arg.(int32))
			mu.Unlock()
			wg.Done()
		}, int32(0))
		require.NoError(t, err)
		assert.Greater(t, tid, lastTID)
		lastTID = tid
	}

	waitForGroup(s, &wg)

	mu.Lock()
	defer mu.Unlock()
	assert.Len(t, tids, 3)
}

func TestCreateFailsWhenTableFull(t *testing.T) {
	s := newTestScheduler(WithMaxThreads(2)) // slot 0 = main, 1 free slot
	defer s.Close()

	block := make(chan struct{})
	_, err := s.Create(func(arg any) {
		<-block
	}, nil)
	require.NoError(t, err)

	_, err = s.Create(func(arg any) {}, nil)
	assert.ErrorIs(t, err, ErrCapacity)
	close(block)
}

func TestJoinReturnsExitValue(t *testing.T) {
	s := newTestScheduler()
	defer s.Close()

	tid, err := s.Create(func(arg any) {
		s.Exit("hello")
	}, nil)
	require.NoError(t, err)

	rv, err := s.Join(tid)
	require.NoError(t, err)
	assert.Equal(t, "hello", rv)
}

func TestJoinOnAlreadyTerminatedThreadReturnsImmediately(t *testing.T) {
	s := newTestScheduler()
	defer s.Close()

	tid, err := s.Create(func(arg any) {
		s.Exit(42)
	}, nil)
	require.NoError(t, err)

	// Give the new thread a chance to run to completion before joining.
	for i := 0; i < 10; i++ {
		s.Yield()
	}

	rv, err := s.Join(tid)
	require.NoError(t, err)
	assert.Equal(t, 42, rv)
}

func TestLiveThreadsTracksCreateAndExit(t *testing.T) {
	s := newTestScheduler()
	defer s.Close()
	assert.Equal(t, 1, s.LiveThreads()) // just the main thread

	tid, err := s.Create(func(arg any) {
		s.Exit(nil)
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, s.LiveThreads())

	_, err = s.Join(tid)
	require.NoError(t, err)
	assert.Equal(t, 1, s.LiveThreads())
}

func TestJoinUnknownThreadErrors(t *testing.T) {
	s := newTestScheduler()
	defer s.Close()

	_, err := s.Join(999)
	assert.ErrorIs(t, err, ErrUnknownThread)
}

func TestRoundRobinFairness(t *testing.T) {
	// S1-style scenario: several threads each do a bounded number of
	// iterations, yielding between each; every thread must make progress.
	s := newTestScheduler()
	defer s.Close()

	const workers = 3
	const iterations = 5
	var mu sync.Mutex
	counts := make(map[int32]int)

	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		_, err := s.Create(func(arg any) {
			defer wg.Done()
			for j := 0; j < iterations; j++ {
				mu.Lock()
				counts[s.Self()]++
				mu.Unlock()
				s.Yield()
			}
		}, nil)
		require.NoError(t, err)
	}

	for len(counts) < workers || anyBelow(counts, iterations) {
		s.Yield()
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Len(t, counts, workers)
	for tid, c := range counts {
		assert.Equalf(t, iterations, c, "thread %d did not complete all iterations", tid)
	}
}

func anyBelow(counts map[int32]int, n int) bool {
	for _, c := range counts {
		if c < n {
			return true
		}
	}
	return false
}
