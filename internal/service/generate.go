package service

import (
	"fmt"

	"github.com/google/uuid"

	"meshnode/internal/message"
	"meshnode/internal/node"
)

// GenerateService hands out cluster-unique ids without coordination.
// The counter strategy yields "<node>-<n>"; uuid yields random UUIDs.
type GenerateService struct {
	strategy string
	next     uint64
	issued   uint64
}

// NewGenerate returns a generator for strategy; empty selects counter.
func NewGenerate(strategy string) (*GenerateService, error) {
	switch strategy {
	case "":
		strategy = IDCounter
	case IDCounter, IDUUID:
	default:
		return nil, fmt.Errorf("unknown id strategy %q", strategy)
	}
	return &GenerateService{strategy: strategy}, nil
}

// Name returns the workload name.
func (s *GenerateService) Name() string { return Generate }

// Registry lists generate and generate_ok.
func (s *GenerateService) Registry() *message.Registry {
	return message.NewRegistry(
		func() message.Payload { return new(message.Generate) },
		func() message.Payload { return new(message.GenerateOk) },
	)
}

// Start is a no-op.
func (s *GenerateService) Start(*node.Node) error { return nil }

// Handle answers each generate with a fresh id.
func (s *GenerateService) Handle(n *node.Node, env message.Envelope) error {
	switch env.Body.Payload.(type) {
	case *message.Generate:
		s.issued++
		return n.Reply(env, &message.GenerateOk{ID: s.id(n.ID())})
	default:
		return node.Unexpected(env)
	}
}

func (s *GenerateService) id(self string) string {
	if s.strategy == IDUUID {
		return uuid.NewString()
	}
	s.next++
	return fmt.Sprintf("%s-%d", self, s.next)
}

// Snapshot reports the strategy and how many ids were issued.
func (s *GenerateService) Snapshot() map[string]any {
	return map[string]any{"strategy": s.strategy, "issued": s.issued}
}
