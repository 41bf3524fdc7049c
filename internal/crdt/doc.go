// Package crdt provides the replica types and merge policies plugged into
// the gossip manager: a grow-only set merged by union, a PN-counter merged
// by per-actor maximum, and a policy for the per-key append log kept in
// package storage. Every merge is idempotent, commutative and associative,
// so replicas converge under duplicated and reordered delivery.
package crdt
