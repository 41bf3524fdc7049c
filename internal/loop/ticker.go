package loop

import (
	"context"
	"sync/atomic"
	"time"

	"meshnode/internal/message"
)

// DefaultInterval is the gossip period used when none is configured.
const DefaultInterval = 500 * time.Millisecond

// Ticker emits a GossipDue envelope addressed to the node itself at a fixed
// interval once armed.
type Ticker struct {
	interval time.Duration
	c        chan message.Envelope
	armed    atomic.Bool
}

// NewTicker creates an unarmed ticker.
func NewTicker(interval time.Duration) *Ticker {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Ticker{
		interval: interval,
		c:        make(chan message.Envelope),
	}
}

// C is the channel ticks are delivered on. Nothing is sent before Arm.
func (t *Ticker) C() <-chan message.Envelope {
	return t.c
}

// Interval returns the configured period.
func (t *Ticker) Interval() time.Duration {
	return t.interval
}

// Armed reports whether Arm has been called successfully.
func (t *Ticker) Armed() bool {
	return t.armed.Load()
}

// Arm starts the tick goroutine. self is captured at this point and never
// read again. Only the first call has any effect; later calls return false.
// The goroutine runs until ctx is cancelled.
func (t *Ticker) Arm(ctx context.Context, self string) bool {
	if !t.armed.CompareAndSwap(false, true) {
		return false
	}
	go t.run(ctx, self)
	return true
}

func (t *Ticker) run(ctx context.Context, self string) {
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			due := message.Envelope{
				Src:  self,
				Dest: self,
				Body: message.Body{Payload: &message.GossipDue{}},
			}
			select {
			case t.c <- due:
			case <-ctx.Done():
				return
			}
		}
	}
}
