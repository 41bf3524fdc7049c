package crdt

import "sort"

// Set is a grow-only set of integers.
type Set map[int64]struct{}

// NewSet returns a set holding elems.
func NewSet(elems ...int64) Set {
	s := make(Set, len(elems))
	for _, e := range elems {
		s[e] = struct{}{}
	}
	return s
}

// Add inserts e and reports whether it was new.
func (s Set) Add(e int64) bool {
	if _, ok := s[e]; ok {
		return false
	}
	s[e] = struct{}{}
	return true
}

// Has reports whether e is in the set.
func (s Set) Has(e int64) bool {
	_, ok := s[e]
	return ok
}

// Copy returns an independent copy.
func (s Set) Copy() Set {
	c := make(Set, len(s))
	for e := range s {
		c[e] = struct{}{}
	}
	return c
}

// Sorted returns the elements in ascending order.
func (s Set) Sorted() []int64 {
	out := make([]int64, 0, len(s))
	for e := range s {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// equal reports whether both sets hold the same elements.
func (s Set) equal(other Set) bool {
	if len(s) != len(other) {
		return false
	}
	for e := range s {
		if !other.Has(e) {
			return false
		}
	}
	return true
}

// SetPolicy merges sets by union; the delta for a peer is the set difference.
type SetPolicy struct{}

func (SetPolicy) New() Set         { return make(Set) }
func (SetPolicy) Clone(s Set) Set  { return s.Copy() }
func (SetPolicy) Empty(s Set) bool { return len(s) == 0 }

func (SetPolicy) Diff(local, known Set) Set {
	d := make(Set)
	for e := range local {
		if !known.Has(e) {
			d[e] = struct{}{}
		}
	}
	return d
}

func (SetPolicy) Merge(dst, delta Set) {
	for e := range delta {
		dst[e] = struct{}{}
	}
}
