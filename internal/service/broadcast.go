package service

import (
	"meshnode/internal/crdt"
	"meshnode/internal/message"
	"meshnode/internal/node"
)

// BroadcastService spreads every broadcast value to all nodes. Replicas
// are grow-only sets merged by union.
type BroadcastService struct {
	*replica[crdt.Set]
}

// NewBroadcast creates a broadcast service that replicates through gossip.
func NewBroadcast(opts Options) *BroadcastService {
	return &BroadcastService{replica: newReplica[crdt.Set](crdt.SetPolicy{}, encodeSet, opts)}
}

func encodeSet(d crdt.Set) message.Payload {
	return &message.SetGossip{Messages: d.Sorted()}
}

// Name returns the workload name.
func (s *BroadcastService) Name() string { return Broadcast }

// Registry lists the broadcast, read, topology and gossip variants.
func (s *BroadcastService) Registry() *message.Registry {
	return message.NewRegistry(
		func() message.Payload { return new(message.Broadcast) },
		func() message.Payload { return new(message.BroadcastOk) },
		func() message.Payload { return new(message.Read) },
		func() message.Payload { return new(message.ReadOk) },
		func() message.Payload { return new(message.Topology) },
		func() message.Payload { return new(message.TopologyOk) },
		func() message.Payload { return new(message.SetGossip) },
	)
}

// Start is a no-op.
func (s *BroadcastService) Start(*node.Node) error { return nil }

// Handle stores broadcasts, answers reads, records the topology and merges
// gossip.
func (s *BroadcastService) Handle(n *node.Node, env message.Envelope) error {
	if ok, err := s.handleGossip(n, env); ok {
		return err
	}

	switch p := env.Body.Payload.(type) {
	case *message.Broadcast:
		s.state.Add(p.Message)
		return n.Reply(env, &message.BroadcastOk{})
	case *message.Read:
		return n.Reply(env, &message.ReadOk{Messages: s.state.Sorted()})
	case *message.Topology:
		n.SetTopology(p.Topology)
		n.Logger().Debug("topology updated")
		return n.Reply(env, &message.TopologyOk{})
	case *message.SetGossip:
		return s.receive(n, env, crdt.NewSet(p.Messages...))
	default:
		return node.Unexpected(env)
	}
}

// Snapshot reports how many messages were seen.
func (s *BroadcastService) Snapshot() map[string]any {
	return map[string]any{"messages": len(s.state)}
}

// Values returns the messages seen so far in ascending order.
func (s *BroadcastService) Values() []int64 { return s.state.Sorted() }
