package service

import (
	"meshnode/internal/crdt"
	"meshnode/internal/message"
	"meshnode/internal/node"
)

// GSetService is a grow-only set of integers.
type GSetService struct {
	*replica[crdt.Set]
}

// NewGSet creates a grow-only set service that replicates through gossip.
func NewGSet(opts Options) *GSetService {
	return &GSetService{replica: newReplica[crdt.Set](crdt.SetPolicy{}, encodeSet, opts)}
}

// Name returns the workload name.
func (s *GSetService) Name() string { return GSet }

// Registry lists the add, read and gossip variants.
func (s *GSetService) Registry() *message.Registry {
	return message.NewRegistry(
		func() message.Payload { return new(message.SetAdd) },
		func() message.Payload { return new(message.AddOk) },
		func() message.Payload { return new(message.Read) },
		func() message.Payload { return new(message.SetReadOk) },
		func() message.Payload { return new(message.SetGossip) },
	)
}

// Start is a no-op; the set starts empty.
func (s *GSetService) Start(*node.Node) error { return nil }

// Handle applies adds, answers reads and merges gossip from peers.
func (s *GSetService) Handle(n *node.Node, env message.Envelope) error {
	if ok, err := s.handleGossip(n, env); ok {
		return err
	}

	switch p := env.Body.Payload.(type) {
	case *message.SetAdd:
		s.state.Add(p.Element)
		return n.Reply(env, &message.AddOk{})
	case *message.Read:
		return n.Reply(env, &message.SetReadOk{Value: s.state.Sorted()})
	case *message.SetGossip:
		return s.receive(n, env, crdt.NewSet(p.Messages...))
	default:
		return node.Unexpected(env)
	}
}

// Snapshot reports the set size.
func (s *GSetService) Snapshot() map[string]any {
	return map[string]any{"elements": len(s.state)}
}

// Values returns the set in ascending order.
func (s *GSetService) Values() []int64 { return s.state.Sorted() }
