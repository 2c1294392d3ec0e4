// Package testutil provides deterministic collaborator implementations
// for engine tests: a manually advanced clock and scripted asset
// transfers.
package testutil

import "sync"

// ManualClock implements engine.Clock with explicit control over both
// time and the sequence counter. Time never advances on its own, which is
// exactly what lazy time-gated transitions need in tests.
//
// Thread-safety: all methods are safe for concurrent use via internal
// mutex.
type ManualClock struct {
	mu  sync.Mutex
	now int64
	seq uint64
}

// NewManualClock creates a clock at the given starting time with the
// sequence counter at zero.
func NewManualClock(start int64) *ManualClock {
	return &ManualClock{now: start}
}

// Now returns the current logical time.
func (c *ManualClock) Now() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// SequenceNumber increments and returns the sequence counter.
func (c *ManualClock) SequenceNumber() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	return c.seq
}

// Advance moves time forward by delta units.
func (c *ManualClock) Advance(delta int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now += delta
}

// Set jumps time to t. Panics if t would move time backwards; the clock
// is monotonically non-decreasing like the production one.
func (c *ManualClock) Set(t int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if t < c.now {
		panic("testutil: ManualClock.Set would move time backwards")
	}
	c.now = t
}

// SetSequence positions the sequence counter so the next SequenceNumber
// call returns seq+1. Used to pin reveal seeds in golden tests.
func (c *ManualClock) SetSequence(seq uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq = seq
}
