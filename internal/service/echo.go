package service

import (
	"meshnode/internal/message"
	"meshnode/internal/node"
)

// EchoService answers every echo with the same text.
type EchoService struct {
	echoed uint64
}

// NewEcho creates an echo service.
func NewEcho() *EchoService { return &EchoService{} }

// Name returns the workload name.
func (s *EchoService) Name() string { return Echo }

// Registry lists echo and echo_ok.
func (s *EchoService) Registry() *message.Registry {
	return message.NewRegistry(
		func() message.Payload { return new(message.Echo) },
		func() message.Payload { return new(message.EchoOk) },
	)
}

// Start is a no-op.
func (s *EchoService) Start(*node.Node) error { return nil }

// Handle replies to each echo with the same text.
func (s *EchoService) Handle(n *node.Node, env message.Envelope) error {
	switch p := env.Body.Payload.(type) {
	case *message.Echo:
		s.echoed++
		return n.Reply(env, &message.EchoOk{Echo: p.Echo})
	default:
		return node.Unexpected(env)
	}
}

// Snapshot reports how many echoes were answered.
func (s *EchoService) Snapshot() map[string]any {
	return map[string]any{"echoed": s.echoed}
}
