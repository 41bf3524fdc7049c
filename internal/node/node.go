package node

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"meshnode/internal/gossip"
	"meshnode/internal/loop"
	"meshnode/internal/message"
	"meshnode/internal/ring"
)

// ErrProtocol marks a protocol invariant violation. It is fatal: the handler
// loop stops and the process exits.
var ErrProtocol = errors.New("protocol violation")

// ErrStopped is returned by Inspect once the handler loop has exited.
var ErrStopped = errors.New("node stopped")

// Sender delivers encoded envelopes. transport.Writer implements it.
type Sender interface {
	Send(env message.Envelope) error
}

// Service is one workload. Its state is touched only from the handler loop.
type Service interface {
	// Name identifies the workload in logs and snapshots.
	Name() string
	// Registry lists the payload variants the workload speaks.
	Registry() *message.Registry
	// Start runs once, right after init_ok has been sent.
	Start(n *Node) error
	// Handle processes one event. Returning an error stops the node.
	Handle(n *Node, env message.Envelope) error
	// Snapshot describes the service state for inspection.
	Snapshot() map[string]any
}

// Gossiper is implemented by services that replicate by gossip. The node
// arms its ticker after the handshake only for them.
type Gossiper interface {
	Service
	GossipStats() gossip.Stats
}

// Metrics receives per-message events.
type Metrics interface {
	MessageIn(typ string)
	MessageOut(typ string)
	Handled(typ string, elapsed time.Duration)
}

type nopMetrics struct{}

func (nopMetrics) MessageIn(string)              {}
func (nopMetrics) MessageOut(string)             {}
func (nopMetrics) Handled(string, time.Duration) {}

type inspectRequest struct {
	fn   func()
	done chan struct{}
}

// Node is a cluster member. Identity and membership are fixed by the init
// handshake.
type Node struct {
	service Service
	out     Sender
	ticker  *loop.Ticker
	metrics Metrics
	logger  *zap.Logger

	mode     Mode
	fanout   int
	ring     *ring.Ring
	topology map[string][]string

	id      string
	nodeIDs []string // sorted
	peers   []string // nodeIDs without id
	nextID  uint64
	started time.Time

	inspect chan inspectRequest
	stopped chan struct{}
}

// Option configures a Node.
type Option func(*Node)

// WithLogger sets the node's logger.
func WithLogger(l *zap.Logger) Option {
	return func(n *Node) { n.logger = l }
}

// WithMetrics reports message events to m.
func WithMetrics(m Metrics) Option {
	return func(n *Node) { n.metrics = m }
}

// WithTicker sets the ticker armed after the handshake.
func WithTicker(t *loop.Ticker) Option {
	return func(n *Node) { n.ticker = t }
}

// WithNeighbors selects how gossip targets are chosen. fanout is used by
// ModeRing only.
func WithNeighbors(mode Mode, fanout int) Option {
	return func(n *Node) {
		n.mode = mode
		n.fanout = fanout
	}
}

// New creates a node that runs svc and writes through out.
func New(svc Service, out Sender, opts ...Option) *Node {
	n := &Node{
		service: svc,
		out:     out,
		metrics: nopMetrics{},
		logger:  zap.NewNop(),
		mode:    ModeFull,
		fanout:  DefaultFanout,
		inspect: make(chan inspectRequest),
		stopped: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(n)
	}
	if n.ticker == nil {
		n.ticker = loop.NewTicker(loop.DefaultInterval)
	}
	n.logger = n.logger.Named("node")
	return n
}

// Ticks is the ticker's channel, for the multiplexer.
func (n *Node) Ticks() <-chan message.Envelope {
	return n.ticker.C()
}

// Run consumes events until the stream closes, ctx ends, or a handler
// fails. A closed stream is a clean shutdown and returns nil.
func (n *Node) Run(ctx context.Context, events <-chan message.Envelope) error {
	defer close(n.stopped)

	for {
		select {
		case <-ctx.Done():
			return nil
		case req := <-n.inspect:
			req.fn()
			close(req.done)
		case env, ok := <-events:
			if !ok {
				n.logger.Info("input closed, shutting down", zap.String("node_id", n.id))
				return nil
			}
			if err := n.Step(ctx, env); err != nil {
				return err
			}
		}
	}
}

// Step handles one event. Run calls it for every event; simulations call it
// directly to drive a node without goroutines. Like Run, it must not be
// called concurrently.
func (n *Node) Step(ctx context.Context, env message.Envelope) error {
	typ := env.Type()
	start := time.Now()
	n.metrics.MessageIn(typ)
	defer func() { n.metrics.Handled(typ, time.Since(start)) }()

	switch p := env.Body.Payload.(type) {
	case *message.Init:
		if n.id != "" {
			return fmt.Errorf("%w: second init from %s", ErrProtocol, env.Src)
		}
		return n.handleInit(ctx, env, p)
	case *message.InitOk:
		return Unexpected(env)
	case *message.GossipDue:
		if n.id != "" && env.Src != n.id {
			return fmt.Errorf("%w: gossip_due from %s", ErrProtocol, env.Src)
		}
	}

	if n.id == "" {
		return fmt.Errorf("%w: %s from %s before init", ErrProtocol, typ, env.Src)
	}
	if err := n.service.Handle(n, env); err != nil {
		return fmt.Errorf("%s: handle %s from %s: %w", n.service.Name(), typ, env.Src, err)
	}
	return nil
}

func (n *Node) handleInit(ctx context.Context, env message.Envelope, p *message.Init) error {
	if p.NodeID == "" {
		return fmt.Errorf("%w: init without node_id", ErrProtocol)
	}

	ids := append([]string(nil), p.NodeIDs...)
	if !contains(ids, p.NodeID) {
		ids = append(ids, p.NodeID)
	}
	sort.Strings(ids)

	n.id = p.NodeID
	n.nodeIDs = ids
	n.peers = make([]string, 0, len(ids))
	for _, id := range ids {
		if id != n.id {
			n.peers = append(n.peers, id)
		}
	}
	n.ring = ring.New(ids)
	n.started = time.Now()

	if err := n.Reply(env, &message.InitOk{}); err != nil {
		return err
	}
	n.logger = n.logger.With(zap.String("node_id", n.id))
	n.logger.Info("initialized",
		zap.Strings("node_ids", n.nodeIDs),
		zap.String("service", n.service.Name()),
		zap.String("neighbors", string(n.mode)))

	if err := n.service.Start(n); err != nil {
		return fmt.Errorf("start %s: %w", n.service.Name(), err)
	}
	if _, ok := n.service.(Gossiper); ok && n.ticker.Arm(ctx, n.id) {
		n.logger.Debug("gossip armed", zap.Duration("interval", n.ticker.Interval()))
	}
	return nil
}

// Unexpected reports a payload the service does not accept as input.
func Unexpected(env message.Envelope) error {
	return fmt.Errorf("%w: unexpected %s from %s", ErrProtocol, env.Type(), env.Src)
}

// ID is the node's identity, empty before init.
func (n *Node) ID() string { return n.id }

// NodeIDs returns the full sorted membership, self included.
func (n *Node) NodeIDs() []string { return append([]string(nil), n.nodeIDs...) }

// Peers returns every member except self.
func (n *Node) Peers() []string { return append([]string(nil), n.peers...) }

// Logger returns the node's logger.
func (n *Node) Logger() *zap.Logger { return n.logger }

// Slot returns this node's index in the sorted membership and the
// membership size.
func (n *Node) Slot() (slot, stride int) {
	return sort.SearchStrings(n.nodeIDs, n.id), len(n.nodeIDs)
}

// NextMsgID allocates the next outgoing message id. Ids start at 1.
func (n *Node) NextMsgID() uint64 {
	n.nextID++
	return n.nextID
}

// Reply answers req with p. Replies carry no message id.
func (n *Node) Reply(req message.Envelope, p message.Payload) error {
	return n.send(message.Reply(req, nil, p))
}

// Request sends p to dest under msgID, which the receiver echoes back in
// its acknowledgement.
func (n *Node) Request(dest string, msgID uint64, p message.Payload) error {
	return n.send(message.Envelope{
		Src:  n.id,
		Dest: dest,
		Body: message.Body{MsgID: message.ID(msgID), Payload: p},
	})
}

func (n *Node) send(env message.Envelope) error {
	if err := n.out.Send(env); err != nil {
		return err
	}
	n.metrics.MessageOut(env.Type())
	return nil
}

// Inspect runs fn on the handler goroutine and waits for it to finish.
func (n *Node) Inspect(ctx context.Context, fn func()) error {
	req := inspectRequest{fn: fn, done: make(chan struct{})}
	select {
	case n.inspect <- req:
	case <-n.stopped:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-req.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Snapshot describes the node and its service. It must run on the handler
// goroutine; use Inspect from elsewhere.
func (n *Node) Snapshot() map[string]any {
	snap := map[string]any{
		"node_id":     n.id,
		"node_ids":    n.NodeIDs(),
		"neighbors":   n.Neighbors(),
		"mode":        string(n.mode),
		"service":     n.service.Name(),
		"next_msg_id": n.nextID + 1,
		"state":       n.service.Snapshot(),
	}
	if !n.started.IsZero() {
		snap["uptime_seconds"] = time.Since(n.started).Seconds()
	}
	if g, ok := n.service.(Gossiper); ok {
		s := g.GossipStats()
		snap["gossip"] = map[string]any{
			"sent":         s.Sent,
			"acked":        s.Acked,
			"pruned":       s.Pruned,
			"ignored_acks": s.IgnoredAcks,
			"received":     s.Received,
			"outstanding":  s.Outstanding,
			"armed":        n.ticker.Armed(),
			"interval":     n.ticker.Interval().String(),
		}
	}
	return snap
}

func contains(ids []string, id string) bool {
	for _, x := range ids {
		if x == id {
			return true
		}
	}
	return false
}
