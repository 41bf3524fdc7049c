package service

import (
	"meshnode/internal/crdt"
	"meshnode/internal/message"
	"meshnode/internal/node"
	"meshnode/internal/storage"
)

// KafkaService is a replicated per-key append log. A node assigns offsets
// from its own stripe so concurrent sends on different nodes never collide;
// entries and commit marks spread by gossip.
type KafkaService struct {
	*replica[*storage.Logs]
	window int
}

// NewKafka creates a keyed log service. window bounds the entries returned
// per key by a poll; zero uses storage.DefaultPollWindow.
func NewKafka(opts Options, window int) *KafkaService {
	return &KafkaService{
		replica: newReplica[*storage.Logs](crdt.LogPolicy{}, encodeLogs, opts),
		window:  window,
	}
}

func encodeLogs(d *storage.Logs) message.Payload {
	p := &message.LogGossip{Entries: make(map[string][][2]int64)}
	for _, key := range d.Keys() {
		if entries := d.Entries(key); len(entries) > 0 {
			p.Entries[key] = pairs(entries)
		}
		if mark, ok := d.Committed(key); ok {
			if p.Commits == nil {
				p.Commits = make(map[string]int64)
			}
			p.Commits[key] = mark
		}
	}
	return p
}

func decodeLogs(p *message.LogGossip) *storage.Logs {
	l := storage.NewLogs()
	for key, entries := range p.Entries {
		for _, e := range entries {
			l.Insert(key, e[0], e[1])
		}
	}
	for key, mark := range p.Commits {
		l.Commit(key, mark)
	}
	return l
}

func pairs(entries []storage.Entry) [][2]int64 {
	out := make([][2]int64, 0, len(entries))
	for _, e := range entries {
		out = append(out, [2]int64{e.Offset, e.Msg})
	}
	return out
}

// Name returns the workload name.
func (s *KafkaService) Name() string { return Kafka }

// Registry lists the send, poll, commit and gossip variants.
func (s *KafkaService) Registry() *message.Registry {
	return message.NewRegistry(
		func() message.Payload { return new(message.Send) },
		func() message.Payload { return new(message.SendOk) },
		func() message.Payload { return new(message.Poll) },
		func() message.Payload { return new(message.PollOk) },
		func() message.Payload { return new(message.CommitOffsets) },
		func() message.Payload { return new(message.CommitOffsetsOk) },
		func() message.Payload { return new(message.ListCommittedOffsets) },
		func() message.Payload { return new(message.ListCommittedOffsetsOk) },
		func() message.Payload { return new(message.LogGossip) },
	)
}

// Start is a no-op.
func (s *KafkaService) Start(*node.Node) error { return nil }

// Handle appends sends at this node's striped offsets, serves polls and
// commits from local state and merges gossip.
func (s *KafkaService) Handle(n *node.Node, env message.Envelope) error {
	if ok, err := s.handleGossip(n, env); ok {
		return err
	}

	switch p := env.Body.Payload.(type) {
	case *message.Send:
		slot, stride := n.Slot()
		offset := s.state.Append(p.Key, p.Msg, slot, stride)
		return n.Reply(env, &message.SendOk{Offset: offset})

	case *message.Poll:
		msgs := make(map[string][][2]int64, len(p.Offsets))
		for key, from := range p.Offsets {
			msgs[key] = pairs(s.state.Poll(key, from, s.window))
		}
		return n.Reply(env, &message.PollOk{Msgs: msgs})

	case *message.CommitOffsets:
		for key, offset := range p.Offsets {
			s.state.Commit(key, offset)
		}
		return n.Reply(env, &message.CommitOffsetsOk{})

	case *message.ListCommittedOffsets:
		offsets := make(map[string]int64, len(p.Keys))
		for _, key := range p.Keys {
			if mark, ok := s.state.Committed(key); ok {
				offsets[key] = mark
			}
		}
		return n.Reply(env, &message.ListCommittedOffsetsOk{Offsets: offsets})

	case *message.LogGossip:
		return s.receive(n, env, decodeLogs(p))

	default:
		return node.Unexpected(env)
	}
}

// Snapshot reports key and entry counts and the poll window.
func (s *KafkaService) Snapshot() map[string]any {
	return map[string]any{
		"keys":    len(s.state.Keys()),
		"entries": s.state.Len(),
		"window":  s.window,
	}
}

// Logs exposes the replica for inspection on the handler goroutine.
func (s *KafkaService) Logs() *storage.Logs { return s.state }
