package ring

import (
	"fmt"
	"testing"
)

func members(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("n%d", i)
	}
	return out
}

// TestRing_Property_EveryMemberReachable tests that following successors
// from any member eventually visits every member
func TestRing_Property_EveryMemberReachable(t *testing.T) {
	for size := 2; size <= 12; size++ {
		r := New(members(size))
		for fanout := 1; fanout <= 3; fanout++ {
			start := "n0"
			visited := map[string]bool{start: true}
			frontier := []string{start}
			for len(frontier) > 0 {
				next := frontier[0]
				frontier = frontier[1:]
				for _, s := range r.Successors(next, fanout) {
					if !visited[s] {
						visited[s] = true
						frontier = append(frontier, s)
					}
				}
			}
			if len(visited) != size {
				t.Errorf("size %d fanout %d: reached %d members", size, fanout, len(visited))
			}
		}
	}
}

// TestRing_Property_AddingMemberChangesOneNeighborhood tests that a new
// member only displaces the successors of members just before it
func TestRing_Property_AddingMemberChangesOneNeighborhood(t *testing.T) {
	before := New(members(8))
	after := New(members(9))

	changed := 0
	for _, m := range members(8) {
		b, a := before.Successors(m, 1), after.Successors(m, 1)
		if b[0] != a[0] {
			if a[0] != "n8" {
				t.Fatalf("%s: successor moved between existing members %s -> %s", m, b[0], a[0])
			}
			changed++
		}
	}
	if changed != 1 {
		t.Errorf("expected exactly one member to adopt n8, got %d", changed)
	}
}

// TestRing_Property_SuccessorsAreDistinct tests that successors never repeat a member
func TestRing_Property_SuccessorsAreDistinct(t *testing.T) {
	r := New(members(6))
	for i := 0; i < 200; i++ {
		id := fmt.Sprintf("c%d", i)
		got := r.Successors(id, 6)
		if len(got) != 6 {
			t.Fatalf("expected every member, got %v", got)
		}
		seen := map[string]bool{}
		for _, m := range got {
			if seen[m] {
				t.Fatalf("duplicate %s in %v", m, got)
			}
			seen[m] = true
		}
	}
}
