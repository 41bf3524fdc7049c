package crdt

import (
	"fmt"
	"math"
)

// Counter is a PN-counter: separate per-actor increment and decrement
// totals, each merged by per-actor maximum.
type Counter struct {
	Inc Vector
	Dec Vector
}

// NewCounter creates a zero counter.
func NewCounter() *Counter {
	return &Counter{Inc: NewVector(), Dec: NewVector()}
}

// Add records delta on behalf of actor. Negative deltas grow the actor's
// decrement total. A delta that cannot be represented in that total returns
// ErrOverflow and leaves the counter unchanged.
func (c *Counter) Add(actor string, delta int64) error {
	if delta == math.MinInt64 {
		return fmt.Errorf("%w: %s delta %d", ErrOverflow, actor, delta)
	}
	if delta >= 0 {
		return c.Inc.Add(actor, delta)
	}
	return c.Dec.Add(actor, -delta)
}

// Value is the sum of increments minus the sum of decrements.
func (c *Counter) Value() int64 {
	return c.Inc.Sum() - c.Dec.Sum()
}

// Copy returns an independent copy.
func (c *Counter) Copy() *Counter {
	return &Counter{Inc: c.Inc.Copy(), Dec: c.Dec.Copy()}
}

// equal reports whether both counters hold the same per-actor totals.
func (c *Counter) equal(other *Counter) bool {
	return c.Inc.Equal(other.Inc) && c.Dec.Equal(other.Dec)
}

// CounterPolicy sends each peer the per-actor totals that exceed what the
// peer is known to hold.
type CounterPolicy struct{}

func (CounterPolicy) New() *Counter             { return NewCounter() }
func (CounterPolicy) Clone(c *Counter) *Counter { return c.Copy() }
func (CounterPolicy) Empty(c *Counter) bool     { return len(c.Inc) == 0 && len(c.Dec) == 0 }

func (CounterPolicy) Diff(local, known *Counter) *Counter {
	return &Counter{
		Inc: local.Inc.Above(known.Inc),
		Dec: local.Dec.Above(known.Dec),
	}
}

func (CounterPolicy) Merge(dst, delta *Counter) {
	dst.Inc.Merge(delta.Inc)
	dst.Dec.Merge(delta.Dec)
}
