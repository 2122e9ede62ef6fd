package uthread

import (
	"time"

	"github.com/sirupsen/logrus"
)

const (
	// defaultMaxThreads mirrors original_source/uthread.h's MAX_THREADS.
	defaultMaxThreads = 128
	// defaultQuantum mirrors original_source/uthread.c's QUANTUM_US (10ms).
	defaultQuantum = 10 * time.Millisecond
	// defaultStackKiB is carried only for logging/documentation parity with
	// original_source/uthread.c's STACK_SIZE; Go goroutines own their own
	// growable stacks, so this number governs nothing at runtime.
	defaultStackKiB = 8
)

// Config holds the tunables for a Scheduler. Use DefaultConfig and the
// With* options rather than constructing Config directly, so future fields
// get sensible zero-cost defaults.
type Config struct {
	MaxThreads int
	Quantum    time.Duration
	StackKiB   int
	Logger     *logrus.Logger
}

// DefaultConfig returns the tunables original_source/uthread.c shipped with:
// 128 thread slots, a 10ms quantum, an 8KiB documented (unused) stack size,
// and logrus's standard logger.
func DefaultConfig() Config {
	return Config{
		MaxThreads: defaultMaxThreads,
		Quantum:    defaultQuantum,
		StackKiB:   defaultStackKiB,
		Logger:     logrus.StandardLogger(),
	}
}

// Option configures a Scheduler at construction time.
type Option func(*Config)

// WithMaxThreads overrides the thread table capacity.
func WithMaxThreads(n int) Option {
	return func(c *Config) { c.MaxThreads = n }
}

// WithQuantum overrides the preemption tick interval.
func WithQuantum(d time.Duration) Option {
	return func(c *Config) { c.Quantum = d }
}

// WithLogger injects a *logrus.Logger, e.g. one configured with a test
// hook or a different output/formatter.
func WithLogger(l *logrus.Logger) Option {
	return func(c *Config) { c.Logger = l }
}
