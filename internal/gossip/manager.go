package gossip

import (
	"sort"

	"go.uber.org/zap"
)

// Policy defines how a replica of type D folds in deltas and how the delta
// a peer lacks is computed. D must be a reference type (map or pointer):
// Merge mutates dst in place.
type Policy[D any] interface {
	// New returns an empty replica.
	New() D
	// Clone returns a deep copy of d.
	Clone(d D) D
	// Diff returns the part of local not covered by known. The result must
	// not share mutable storage with local.
	Diff(local, known D) D
	// Merge folds delta into dst.
	Merge(dst, delta D)
	// Empty reports whether d carries nothing.
	Empty(d D) bool
}

// Observer receives gossip bookkeeping events, typically for metrics.
type Observer interface {
	GossipSent(peer string)
	GossipAcked(peer string)
	GossipPruned(count int)
	Outstanding(count int)
}

type nopObserver struct{}

func (nopObserver) GossipSent(string)  {}
func (nopObserver) GossipAcked(string) {}
func (nopObserver) GossipPruned(int)   {}
func (nopObserver) Outstanding(int)    {}

// Message is a gossip request prepared by Tick.
type Message[D any] struct {
	Peer  string
	MsgID uint64
	Delta D
}

// Stats summarizes the manager's bookkeeping.
type Stats struct {
	Sent        uint64
	Acked       uint64
	Pruned      uint64
	IgnoredAcks uint64
	Received    uint64
	Outstanding int
}

type pending[D any] struct {
	peer  string
	delta D
}

// Manager tracks per-peer acknowledgement state for one replica.
type Manager[D any] struct {
	policy      Policy[D]
	verified    map[string]D          // peer -> content known to be at that peer
	outstanding map[uint64]pending[D] // msg id -> delta awaiting ack
	stale       map[uint64]struct{}   // ids outstanding at the previous tick
	stats       Stats
	observer    Observer
	logger      *zap.Logger
}

// Option configures a Manager.
type Option func(*options)

type options struct {
	observer Observer
	logger   *zap.Logger
}

// WithObserver reports bookkeeping events to o.
func WithObserver(o Observer) Option {
	return func(opts *options) { opts.observer = o }
}

// WithLogger sets the manager's logger.
func WithLogger(l *zap.Logger) Option {
	return func(opts *options) { opts.logger = l }
}

// NewManager creates a manager for replicas merged by policy.
func NewManager[D any](policy Policy[D], opts ...Option) *Manager[D] {
	o := options{observer: nopObserver{}, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}
	return &Manager[D]{
		policy:      policy,
		verified:    make(map[string]D),
		outstanding: make(map[uint64]pending[D]),
		stale:       make(map[uint64]struct{}),
		observer:    o.observer,
		logger:      o.logger.Named("gossip"),
	}
}

// Tick runs one gossip round against local. Stale in-flight gossip is
// dropped first; then each peer whose delta is non-empty gets a message
// under a fresh id from next. Peers with nothing to learn are skipped.
// Whatever remains outstanding afterwards is marked stale for the next tick.
func (m *Manager[D]) Tick(local D, peers []string, next func() uint64) []Message[D] {
	m.prune()

	var out []Message[D]
	for _, peer := range peers {
		delta := m.policy.Diff(local, m.known(peer))
		if m.policy.Empty(delta) {
			continue
		}
		id := next()
		m.outstanding[id] = pending[D]{peer: peer, delta: delta}
		m.stats.Sent++
		m.observer.GossipSent(peer)
		out = append(out, Message[D]{Peer: peer, MsgID: id, Delta: delta})
	}

	m.stale = make(map[uint64]struct{}, len(m.outstanding))
	for id := range m.outstanding {
		m.stale[id] = struct{}{}
	}
	m.observer.Outstanding(len(m.outstanding))
	return out
}

// prune drops every outstanding entry that was already outstanding at the
// previous tick. The dropped content was never marked verified, so the next
// Diff includes it again.
func (m *Manager[D]) prune() {
	dropped := 0
	for id := range m.stale {
		p, ok := m.outstanding[id]
		if !ok {
			continue
		}
		delete(m.outstanding, id)
		dropped++
		m.logger.Debug("dropping unacknowledged gossip", zap.Uint64("msg_id", id), zap.String("peer", p.peer))
	}
	m.stale = make(map[uint64]struct{})
	if dropped > 0 {
		m.stats.Pruned += uint64(dropped)
		m.observer.GossipPruned(dropped)
	}
}

// ReceiveGossip folds a delta sent by from into local and records that from
// already holds it.
func (m *Manager[D]) ReceiveGossip(local D, from string, delta D) {
	m.policy.Merge(local, delta)
	m.policy.Merge(m.known(from), delta)
	m.stats.Received++
}

// ReceiveAck settles the outstanding gossip inReplyTo: its recorded delta is
// credited to from. Unknown ids (duplicates, or acks for pruned gossip) are
// ignored and reported as false.
func (m *Manager[D]) ReceiveAck(from string, inReplyTo uint64) bool {
	p, ok := m.outstanding[inReplyTo]
	if !ok {
		m.stats.IgnoredAcks++
		return false
	}
	delete(m.outstanding, inReplyTo)
	delete(m.stale, inReplyTo)

	if p.peer != from {
		m.logger.Warn("ack from unexpected peer",
			zap.Uint64("msg_id", inReplyTo), zap.String("sent_to", p.peer), zap.String("acked_by", from))
	}
	m.policy.Merge(m.known(from), p.delta)
	m.stats.Acked++
	m.observer.GossipAcked(from)
	m.observer.Outstanding(len(m.outstanding))
	return true
}

// Outstanding reports whether id is awaiting acknowledgement.
func (m *Manager[D]) Outstanding(id uint64) bool {
	_, ok := m.outstanding[id]
	return ok
}

// OutstandingIDs returns the ids awaiting acknowledgement in ascending order.
func (m *Manager[D]) OutstandingIDs() []uint64 {
	ids := make([]uint64, 0, len(m.outstanding))
	for id := range m.outstanding {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Verified returns a copy of what peer is known to hold.
func (m *Manager[D]) Verified(peer string) D {
	if d, ok := m.verified[peer]; ok {
		return m.policy.Clone(d)
	}
	return m.policy.New()
}

// Stats returns a snapshot of the manager's counters.
func (m *Manager[D]) Stats() Stats {
	s := m.stats
	s.Outstanding = len(m.outstanding)
	return s
}

func (m *Manager[D]) known(peer string) D {
	d, ok := m.verified[peer]
	if !ok {
		d = m.policy.New()
		m.verified[peer] = d
	}
	return d
}
