package crdt

import (
	"fmt"
	"math/rand"
	"testing"

	"meshnode/internal/storage"
)

const propertyRounds = 200

func randomSet(r *rand.Rand) Set {
	s := NewSet()
	for i := 0; i < r.Intn(8); i++ {
		s.Add(int64(r.Intn(20)))
	}
	return s
}

func randomCounter(r *rand.Rand) *Counter {
	c := NewCounter()
	for i := 0; i < r.Intn(6); i++ {
		_ = c.Add(fmt.Sprintf("n%d", r.Intn(4)), int64(r.Intn(21)-10))
	}
	return c
}

// randomLogs builds logs whose offsets follow the striping rule for one of
// three slots, so different generators never collide on an offset.
func randomLogs(r *rand.Rand) *storage.Logs {
	l := storage.NewLogs()
	for i := 0; i < r.Intn(6); i++ {
		key := fmt.Sprintf("k%d", r.Intn(3))
		slot := r.Intn(3)
		off := int64(r.Intn(10)*3 + slot + 1)
		l.Insert(key, off, off*100)
		if r.Intn(3) == 0 {
			l.Commit(key, int64(r.Intn(30)))
		}
	}
	return l
}

// TestSetPolicy_Property_MergeIsIdempotent tests that applying a delta twice equals applying it once
func TestSetPolicy_Property_MergeIsIdempotent(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	p := SetPolicy{}
	for i := 0; i < propertyRounds; i++ {
		base, delta := randomSet(r), randomSet(r)

		once := base.Copy()
		p.Merge(once, delta)
		twice := base.Copy()
		p.Merge(twice, delta)
		p.Merge(twice, delta)

		if !once.equal(twice) {
			t.Fatalf("round %d: merge not idempotent: %v vs %v", i, once.Sorted(), twice.Sorted())
		}
	}
}

// TestSetPolicy_Property_MergeIsCommutative tests that A then B equals B then A
func TestSetPolicy_Property_MergeIsCommutative(t *testing.T) {
	r := rand.New(rand.NewSource(2))
	p := SetPolicy{}
	for i := 0; i < propertyRounds; i++ {
		base, a, b := randomSet(r), randomSet(r), randomSet(r)

		ab := base.Copy()
		p.Merge(ab, a)
		p.Merge(ab, b)
		ba := base.Copy()
		p.Merge(ba, b)
		p.Merge(ba, a)

		if !ab.equal(ba) {
			t.Fatalf("round %d: merge not commutative", i)
		}
	}
}

// TestSetPolicy_Property_DiffThenMergeCatchesUp tests that merging the diff makes known cover local
func TestSetPolicy_Property_DiffThenMergeCatchesUp(t *testing.T) {
	r := rand.New(rand.NewSource(3))
	p := SetPolicy{}
	for i := 0; i < propertyRounds; i++ {
		local, known := randomSet(r), randomSet(r)
		p.Merge(known, p.Diff(local, known))
		if !p.Empty(p.Diff(local, known)) {
			t.Fatalf("round %d: diff not empty after catching up", i)
		}
	}
}

// TestCounterPolicy_Property_MergeIsIdempotent tests that duplicated counter deltas are harmless
func TestCounterPolicy_Property_MergeIsIdempotent(t *testing.T) {
	r := rand.New(rand.NewSource(4))
	p := CounterPolicy{}
	for i := 0; i < propertyRounds; i++ {
		base, delta := randomCounter(r), randomCounter(r)

		once := base.Copy()
		p.Merge(once, delta)
		twice := base.Copy()
		p.Merge(twice, delta)
		p.Merge(twice, delta)

		if !once.equal(twice) || once.Value() != twice.Value() {
			t.Fatalf("round %d: merge not idempotent: %v/%v vs %v/%v", i, once.Inc, once.Dec, twice.Inc, twice.Dec)
		}
	}
}

// TestCounterPolicy_Property_MergeIsCommutative tests that counter deltas commute
func TestCounterPolicy_Property_MergeIsCommutative(t *testing.T) {
	r := rand.New(rand.NewSource(5))
	p := CounterPolicy{}
	for i := 0; i < propertyRounds; i++ {
		base, a, b := randomCounter(r), randomCounter(r), randomCounter(r)

		ab := base.Copy()
		p.Merge(ab, a)
		p.Merge(ab, b)
		ba := base.Copy()
		p.Merge(ba, b)
		p.Merge(ba, a)

		if !ab.equal(ba) {
			t.Fatalf("round %d: merge not commutative", i)
		}
	}
}

// TestCounterPolicy_Property_MergeIsAssociative tests (A+B)+C == A+(B+C)
func TestCounterPolicy_Property_MergeIsAssociative(t *testing.T) {
	r := rand.New(rand.NewSource(6))
	p := CounterPolicy{}
	for i := 0; i < propertyRounds; i++ {
		a, b, c := randomCounter(r), randomCounter(r), randomCounter(r)

		left := a.Copy()
		p.Merge(left, b)
		p.Merge(left, c)

		bc := b.Copy()
		p.Merge(bc, c)
		right := a.Copy()
		p.Merge(right, bc)

		if !left.equal(right) {
			t.Fatalf("round %d: merge not associative", i)
		}
	}
}

// TestLogPolicy_Property_MergeIsIdempotent tests that duplicated log deltas are harmless
func TestLogPolicy_Property_MergeIsIdempotent(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	p := LogPolicy{}
	for i := 0; i < propertyRounds; i++ {
		base, delta := randomLogs(r), randomLogs(r)

		once := base.Copy()
		p.Merge(once, delta)
		twice := base.Copy()
		p.Merge(twice, delta)
		p.Merge(twice, delta)

		if !logsEqual(once, twice) {
			t.Fatalf("round %d: merge not idempotent", i)
		}
	}
}

// TestLogPolicy_Property_MergeIsCommutative tests that log deltas commute when offsets are striped
func TestLogPolicy_Property_MergeIsCommutative(t *testing.T) {
	r := rand.New(rand.NewSource(8))
	p := LogPolicy{}
	for i := 0; i < propertyRounds; i++ {
		base, a, b := randomLogs(r), randomLogs(r), randomLogs(r)

		ab := base.Copy()
		p.Merge(ab, a)
		p.Merge(ab, b)
		ba := base.Copy()
		p.Merge(ba, b)
		p.Merge(ba, a)

		if !logsEqual(ab, ba) {
			t.Fatalf("round %d: merge not commutative", i)
		}
	}
}

func logsEqual(a, b *storage.Logs) bool {
	p := LogPolicy{}
	return p.Empty(p.Diff(a, b)) && p.Empty(p.Diff(b, a))
}
