package pipeline

import "sync/atomic"

// SeqClock issues result sequence stamps. *Clock is the production
// implementation; tests substitute a resettable clock via WithClock.
type SeqClock interface {
	Next() int64
}

// Clock implements CP-2: monotonic logical clock for result ordering.
//
// All results are stamped with a strictly increasing seq number from this
// clock. This ensures:
// - Deterministic ordering (no wall-clock race conditions)
// - Two runs with the same input produce identical seq values
// - Report rows sort the same way the pipeline produced them
//
// Thread-safety: Clock is safe for concurrent use (atomic operations),
// though the pipeline stamps results from a single goroutine after the
// workers join.
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a new clock starting at 0.
func NewClock() *Clock {
	return &Clock{}
}

// Next returns the next sequence number and increments the clock.
// Calls are linearizable - each call returns a unique, increasing value.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the current sequence number without incrementing.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}
