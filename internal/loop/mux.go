package loop

import (
	"context"

	"meshnode/internal/message"
)

// Multiplexer merges inbound envelopes and ticks into one ordered stream.
type Multiplexer struct {
	inbound <-chan message.Envelope
	ticks   <-chan message.Envelope
	out     chan message.Envelope
}

// NewMultiplexer creates a multiplexer over the two sources. ticks may be
// nil for nodes that never gossip.
func NewMultiplexer(inbound, ticks <-chan message.Envelope) *Multiplexer {
	return &Multiplexer{
		inbound: inbound,
		ticks:   ticks,
		out:     make(chan message.Envelope),
	}
}

// Events is the merged stream. It is closed when Run returns.
func (m *Multiplexer) Events() <-chan message.Envelope {
	return m.out
}

// Run forwards events until the inbound channel is closed or ctx ends.
func (m *Multiplexer) Run(ctx context.Context) {
	defer close(m.out)

	for {
		var (
			env message.Envelope
			ok  bool
		)
		select {
		case <-ctx.Done():
			return
		case env, ok = <-m.inbound:
			if !ok {
				return
			}
		case env = <-m.ticks:
		}

		select {
		case m.out <- env:
		case <-ctx.Done():
			return
		}
	}
}
