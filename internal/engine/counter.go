package engine

import "sync/atomic"

// RunCounter hands out the per-engine run sequence. Log lines of
// concurrent runs carry it, so they can be put back in start order.
// Safe for concurrent use.
type RunCounter struct {
	n atomic.Int64
}

// Next starts a run and returns its sequence number, beginning at 1.
func (c *RunCounter) Next() int64 {
	return c.n.Add(1)
}

// Runs reports how many runs have started.
func (c *RunCounter) Runs() int64 {
	return c.n.Load()
}
