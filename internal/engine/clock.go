package engine

import (
	"sync/atomic"
	"time"
)

// Clock supplies the engine's view of time. It is an external collaborator:
// the engine never schedules anything, it only compares stored timestamps
// against Now() lazily at the next call.
//
// Now returns a monotonically non-decreasing logical time.
// SequenceNumber returns a monotonically increasing counter that is
// unpredictable before a call and reproducible after it; it is the sole
// entropy input to seed derivation at reveal time.
type Clock interface {
	Now() int64
	SequenceNumber() uint64
}

// SystemClock is the production Clock: wall-clock seconds plus an atomic
// sequence counter seeded from the nanosecond clock at construction.
//
// Thread-safety: safe for concurrent use (atomic operations). The engine
// serializes mutating calls anyway, but reads may come from anywhere.
type SystemClock struct {
	seq atomic.Uint64
}

// NewSystemClock creates a system clock whose sequence starts at the
// current nanosecond reading, so sequences differ across process restarts.
func NewSystemClock() *SystemClock {
	c := &SystemClock{}
	c.seq.Store(uint64(time.Now().UnixNano()))
	return c
}

// Now returns the current Unix time in seconds.
func (c *SystemClock) Now() int64 {
	return time.Now().Unix()
}

// SequenceNumber returns the next sequence value. Each call returns a
// unique, increasing value.
func (c *SystemClock) SequenceNumber() uint64 {
	return c.seq.Add(1)
}
