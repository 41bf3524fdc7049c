package ring

import (
	"hash/fnv"
	"sort"
)

// point is one member's position on the ring.
type point struct {
	hash   uint32
	member string
}

// Ring places each member once on a hash ring. It is built once from the
// handshake membership and is safe for concurrent reads.
type Ring struct {
	points []point
}

// New builds a ring over members. Duplicate ids are placed once. The same
// member set always produces the same ring, whatever its order.
func New(members []string) *Ring {
	seen := make(map[string]struct{}, len(members))
	r := &Ring{points: make([]point, 0, len(members))}
	for _, m := range members {
		if _, dup := seen[m]; dup {
			continue
		}
		seen[m] = struct{}{}
		r.points = append(r.points, point{hash: hashString(m), member: m})
	}

	// Ties on hash are broken by member id so the order is total.
	sort.Slice(r.points, func(i, j int) bool {
		if r.points[i].hash != r.points[j].hash {
			return r.points[i].hash < r.points[j].hash
		}
		return r.points[i].member < r.points[j].member
	})
	return r
}

// Successors returns up to k distinct members other than member, walking
// clockwise from member's position. Following successors from any member
// reaches every member. An id that is not on the ring starts from where its
// hash falls.
func (r *Ring) Successors(member string, k int) []string {
	if k <= 0 || len(r.points) == 0 {
		return []string{}
	}

	h := hashString(member)
	idx := sort.Search(len(r.points), func(i int) bool {
		p := r.points[i]
		return p.hash > h || (p.hash == h && p.member >= member)
	})

	if k > len(r.points) {
		k = len(r.points)
	}
	out := make([]string, 0, k)
	for i := 0; i < len(r.points) && len(out) < k; i++ {
		m := r.points[(idx+i)%len(r.points)].member
		if m == member {
			continue
		}
		out = append(out, m)
	}
	return out
}

// hashString computes a 32-bit FNV-1a hash of the string.
func hashString(s string) uint32 {
	h := fnv.New32a()
	h.Write([]byte(s))
	return h.Sum32()
}
