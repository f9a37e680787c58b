package engine

import "sync/atomic"

// Clock is the monotonic generation counter that tags every asynchronous
// operation with the board lifetime it belongs to.
//
// Each clear (and therefore each build) moves the clock forward. Timer events
// carry the value current when they were scheduled; the loop drops any event
// whose generation is no longer current, so a late completion can never touch
// a newer board.
//
// Thread-safety: Clock is safe for concurrent use. Presentation code reads it
// through Snapshot to address cards.
type Clock struct {
	gen atomic.Int64
}

// NewClock creates a clock at generation 0 (no board yet).
func NewClock() *Clock {
	return &Clock{}
}

// Next advances to and returns the next generation.
func (c *Clock) Next() int64 {
	return c.gen.Add(1)
}

// Current returns the current generation without advancing.
func (c *Clock) Current() int64 {
	return c.gen.Load()
}
