// Package gossip implements delta-based anti-entropy between replicas.
//
// A Manager remembers, per peer, the part of the local replica that peer is
// known to hold: either because the peer sent it to us or because the peer
// acknowledged a gossip message carrying it. Each tick it sends every peer
// only what is missing from that record. In-flight deltas are tracked by
// message id until acknowledged; a delta that stays unacknowledged across a
// whole tick interval is abandoned and its content is simply recomputed.
//
// The Manager is not safe for concurrent use. It is owned by the node's
// single handler goroutine, as is the replica it diffs against.
package gossip
