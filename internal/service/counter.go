package service

import (
	"fmt"

	"meshnode/internal/crdt"
	"meshnode/internal/message"
	"meshnode/internal/node"
)

// CounterService is a PN-counter. Each node only grows its own actor
// entries; peers learn them through gossip.
type CounterService struct {
	*replica[*crdt.Counter]
}

// NewCounter creates a PN-counter service that replicates through gossip.
func NewCounter(opts Options) *CounterService {
	return &CounterService{replica: newReplica[*crdt.Counter](crdt.CounterPolicy{}, encodeCounter, opts)}
}

func encodeCounter(d *crdt.Counter) message.Payload {
	return &message.CounterGossip{Inc: d.Inc, Dec: d.Dec}
}

func decodeCounter(p *message.CounterGossip) *crdt.Counter {
	c := crdt.NewCounter()
	c.Inc.Merge(p.Inc)
	c.Dec.Merge(p.Dec)
	return c
}

// Name returns the workload name.
func (s *CounterService) Name() string { return Counter }

// Registry lists the add, read and gossip variants.
func (s *CounterService) Registry() *message.Registry {
	return message.NewRegistry(
		func() message.Payload { return new(message.CounterAdd) },
		func() message.Payload { return new(message.AddOk) },
		func() message.Payload { return new(message.Read) },
		func() message.Payload { return new(message.CounterReadOk) },
		func() message.Payload { return new(message.CounterGossip) },
	)
}

// Start is a no-op; the counter starts at zero.
func (s *CounterService) Start(*node.Node) error { return nil }

// Handle records adds under the node's own actor, answers reads and merges
// gossip. A delta the node's totals cannot hold is a protocol error.
func (s *CounterService) Handle(n *node.Node, env message.Envelope) error {
	if ok, err := s.handleGossip(n, env); ok {
		return err
	}

	switch p := env.Body.Payload.(type) {
	case *message.CounterAdd:
		if err := s.state.Add(n.ID(), p.Delta); err != nil {
			return fmt.Errorf("%w: add %d: %w", node.ErrProtocol, p.Delta, err)
		}
		return n.Reply(env, &message.AddOk{})
	case *message.Read:
		return n.Reply(env, &message.CounterReadOk{Value: s.state.Value()})
	case *message.CounterGossip:
		return s.receive(n, env, decodeCounter(p))
	default:
		return node.Unexpected(env)
	}
}

// Snapshot returns the value and copies of both vectors.
func (s *CounterService) Snapshot() map[string]any {
	return map[string]any{
		"value": s.state.Value(),
		"inc":   map[string]int64(s.state.Inc.Copy()),
		"dec":   map[string]int64(s.state.Dec.Copy()),
	}
}

// Value returns the current counter value.
func (s *CounterService) Value() int64 { return s.state.Value() }
