package node

import (
	"fmt"
	"sort"
)

// Mode selects the gossip targets of a node.
type Mode string

const (
	// ModeFull gossips to every other member.
	ModeFull Mode = "full"
	// ModeTopology gossips to the neighbors named by the topology message,
	// or to every member until one arrives.
	ModeTopology Mode = "topology"
	// ModeRing gossips to the node's successors on a consistent hash ring.
	ModeRing Mode = "ring"
)

// DefaultFanout is the ring successor count when none is configured.
const DefaultFanout = 2

// ParseMode validates a mode name.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(s); m {
	case ModeFull, ModeTopology, ModeRing:
		return m, nil
	default:
		return "", fmt.Errorf("unknown neighbor mode %q", s)
	}
}

// SetTopology records a neighbor map received from a client. Unknown
// members and self are dropped from every list.
func (n *Node) SetTopology(t map[string][]string) {
	members := make(map[string]struct{}, len(n.nodeIDs))
	for _, id := range n.nodeIDs {
		members[id] = struct{}{}
	}

	n.topology = make(map[string][]string, len(t))
	for node, neighbors := range t {
		kept := make([]string, 0, len(neighbors))
		for _, nb := range neighbors {
			if _, ok := members[nb]; ok && nb != node {
				kept = append(kept, nb)
			}
		}
		sort.Strings(kept)
		n.topology[node] = kept
	}
}

// Neighbors returns the peers to gossip to this tick.
func (n *Node) Neighbors() []string {
	switch n.mode {
	case ModeTopology:
		if nb, ok := n.topology[n.id]; ok {
			return append([]string(nil), nb...)
		}
	case ModeRing:
		if n.ring != nil {
			return n.ring.Successors(n.id, n.fanout)
		}
	}
	return n.Peers()
}
