package build

import "sync/atomic"

// Clock is the monotonic source of dependency-tag sequence numbers.
//
// Every side-effecting or block-structured statement appended to a chain
// is stamped with a strictly increasing seq from this clock. This ensures:
// - Deterministic statement ordering (no reliance on traversal order)
// - Rebuilding the same program yields the same tags, hence the same graph
// - Later passes can recover issue order from the tags alone
//
// Thread-safety: Clock is safe for concurrent use (atomic operations).
// Graph construction itself is single-goroutine by contract, so only one
// goroutine typically calls Next().
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a new clock starting at 0.
func NewClock() *Clock {
	return &Clock{}
}

// NewClockAt creates a new clock starting at a specific sequence number.
// Used when extending a previously built chain without reusing tags.
func NewClockAt(start int64) *Clock {
	c := &Clock{}
	c.seq.Store(start)
	return c
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
