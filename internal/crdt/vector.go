package crdt

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
)

// ErrOverflow is returned when an update would push a total past the int64
// range.
var ErrOverflow = errors.New("crdt: total overflows int64")

// Vector maps an actor (node id) to a monotonically growing total.
// Callers own synchronization.
type Vector map[string]int64

// NewVector creates an empty vector.
func NewVector() Vector {
	return make(Vector)
}

// Get returns the total for actor, or 0 if absent.
func (v Vector) Get(actor string) int64 {
	return v[actor]
}

// Add grows the total for actor by n. n must not be negative. If the total
// would exceed math.MaxInt64 it is left unchanged and ErrOverflow returned.
func (v Vector) Add(actor string, n int64) error {
	if n < 0 {
		panic(fmt.Sprintf("crdt: negative increment %d for %s", n, actor))
	}
	if v[actor] > math.MaxInt64-n {
		return fmt.Errorf("%w: %s at %d plus %d", ErrOverflow, actor, v[actor], n)
	}
	v[actor] += n
	return nil
}

// Merge takes the per-actor maximum of v and other.
func (v Vector) Merge(other Vector) {
	for actor, total := range other {
		if v[actor] < total {
			v[actor] = total
		}
	}
}

// Above returns the entries of v that exceed the corresponding entry of
// known. Absent entries count as zero, so zero totals are never returned.
func (v Vector) Above(known Vector) Vector {
	out := NewVector()
	for actor, total := range v {
		if total > known[actor] {
			out[actor] = total
		}
	}
	return out
}

// Copy creates a deep copy of the vector.
func (v Vector) Copy() Vector {
	c := make(Vector, len(v))
	for k, n := range v {
		c[k] = n
	}
	return c
}

// Sum adds every actor's total.
func (v Vector) Sum() int64 {
	var sum int64
	for _, n := range v {
		sum += n
	}
	return sum
}

// Equal checks if two vectors hold the same totals. Zero entries are
// equivalent to absent ones.
func (v Vector) Equal(other Vector) bool {
	for actor, n := range v {
		if other[actor] != n {
			return false
		}
	}
	for actor, n := range other {
		if v[actor] != n {
			return false
		}
	}
	return true
}

// String returns a deterministic representation, sorted by actor.
func (v Vector) String() string {
	if len(v) == 0 {
		return "{}"
	}
	keys := make([]string, 0, len(v))
	for k := range v {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s:%d", k, v[k]))
	}
	return "{" + strings.Join(parts, ", ") + "}"
}
