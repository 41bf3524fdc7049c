package it

import (
	"context"
	"fmt"
	"math/rand"
	"strings"

	"go.uber.org/zap"

	"meshnode/internal/loop"
	"meshnode/internal/message"
	"meshnode/internal/node"
	"meshnode/internal/service"
)

// Faults configures the simulated network. Probabilities are in [0, 1].
type Faults struct {
	Drop      float64
	Duplicate float64
	// Reorder delivers a random pending message instead of the oldest.
	Reorder bool
}

// Network buffers envelopes between nodes and releases them one at a time
// according to its faults. Messages addressed to clients are collected
// separately and never dropped. Every envelope goes through the workload's
// wire codec on the way, as it would between real processes.
type Network struct {
	codec   *message.Codec
	rng     *rand.Rand
	faults  Faults
	pending []message.Envelope
	replies map[string][]message.Envelope // client -> replies
	sent    int
	dropped int
}

func newNetwork(seed int64) *Network {
	return &Network{
		rng:     rand.New(rand.NewSource(seed)),
		replies: make(map[string][]message.Envelope),
	}
}

type nodeSender struct{ net *Network }

func (s nodeSender) Send(env message.Envelope) error {
	line, err := s.net.codec.Encode(env)
	if err != nil {
		return err
	}
	if env, err = s.net.codec.Decode(line); err != nil {
		return fmt.Errorf("decode %s: %w", line, err)
	}

	s.net.sent++
	if isClient(env.Dest) {
		s.net.replies[env.Dest] = append(s.net.replies[env.Dest], env)
		return nil
	}
	s.net.pending = append(s.net.pending, env)
	return nil
}

func isClient(id string) bool { return strings.HasPrefix(id, "c") }

// next removes and returns the next envelope to deliver, applying faults.
// It reports false when nothing is pending.
func (n *Network) next() (message.Envelope, bool) {
	for len(n.pending) > 0 {
		i := 0
		if n.faults.Reorder {
			i = n.rng.Intn(len(n.pending))
		}
		env := n.pending[i]
		n.pending = append(n.pending[:i], n.pending[i+1:]...)

		if n.rng.Float64() < n.faults.Drop {
			n.dropped++
			continue
		}
		if n.rng.Float64() < n.faults.Duplicate {
			n.pending = append(n.pending, env)
		}
		return env, true
	}
	return message.Envelope{}, false
}

// Member is one simulated node.
type Member struct {
	ID      string
	Node    *node.Node
	Service node.Service
}

// Cluster is an in-process cluster driven step by step: nothing runs
// unless the test delivers a message or fires a tick.
type Cluster struct {
	ctx     context.Context
	net     *Network
	members map[string]*Member
	ids     []string
	nextReq uint64
}

// Config describes a simulated cluster.
type Config struct {
	Size     int
	Workload string
	Mode     node.Mode
	Fanout   int
	Seed     int64
	Options  service.Options
	Logger   *zap.Logger
}

// NewCluster creates and initializes every member. ctx bounds the tickers
// armed during the handshake; they are never read by the simulation.
func NewCluster(ctx context.Context, cfg Config) (*Cluster, error) {
	if cfg.Mode == "" {
		cfg.Mode = node.ModeFull
	}
	c := &Cluster{
		ctx:     ctx,
		net:     newNetwork(cfg.Seed),
		members: make(map[string]*Member, cfg.Size),
	}
	for i := 0; i < cfg.Size; i++ {
		c.ids = append(c.ids, fmt.Sprintf("n%d", i))
	}

	for _, id := range c.ids {
		svc, err := service.New(cfg.Workload, cfg.Options)
		if err != nil {
			return nil, err
		}
		if c.net.codec == nil {
			c.net.codec = message.NewCodec(svc.Registry())
		}
		opts := []node.Option{
			node.WithTicker(loop.NewTicker(loop.DefaultInterval)),
			node.WithNeighbors(cfg.Mode, cfg.Fanout),
		}
		if cfg.Logger != nil {
			opts = append(opts, node.WithLogger(cfg.Logger))
		}
		m := &Member{ID: id, Node: node.New(svc, nodeSender{c.net}, opts...), Service: svc}
		c.members[id] = m

		initMsg := message.Envelope{
			Src:  "c0",
			Dest: id,
			Body: message.Body{MsgID: message.ID(c.reqID()), Payload: &message.Init{NodeID: id, NodeIDs: c.ids}},
		}
		if err := m.Node.Step(ctx, initMsg); err != nil {
			return nil, fmt.Errorf("init %s: %w", id, err)
		}
	}
	c.net.replies = make(map[string][]message.Envelope)
	return c, nil
}

func (c *Cluster) reqID() uint64 {
	c.nextReq++
	return c.nextReq
}

// IDs returns the member ids in order.
func (c *Cluster) IDs() []string { return append([]string(nil), c.ids...) }

// Member returns the member with id.
func (c *Cluster) Member(id string) *Member { return c.members[id] }

// SetFaults changes the network behaviour for later deliveries.
func (c *Cluster) SetFaults(f Faults) { c.net.faults = f }

// Request delivers a client request to dest immediately and returns the
// reply.
func (c *Cluster) Request(client, dest string, p message.Payload) (message.Envelope, error) {
	id := c.reqID()
	env := message.Envelope{Src: client, Dest: dest, Body: message.Body{MsgID: message.ID(id), Payload: p}}
	if err := c.members[dest].Node.Step(c.ctx, env); err != nil {
		return message.Envelope{}, err
	}
	for _, r := range c.net.replies[client] {
		if r.Body.InReplyTo != nil && *r.Body.InReplyTo == id {
			return r, nil
		}
	}
	return message.Envelope{}, fmt.Errorf("no reply from %s to request %d", dest, id)
}

// Tick fires a gossip round on id.
func (c *Cluster) Tick(id string) error {
	due := message.Envelope{Src: id, Dest: id, Body: message.Body{Payload: &message.GossipDue{}}}
	return c.members[id].Node.Step(c.ctx, due)
}

// TickAll fires a gossip round on every member.
func (c *Cluster) TickAll() error {
	for _, id := range c.ids {
		if err := c.Tick(id); err != nil {
			return err
		}
	}
	return nil
}

// DeliverOne releases one pending message. It reports false when the
// network is idle.
func (c *Cluster) DeliverOne() (bool, error) {
	env, ok := c.net.next()
	if !ok {
		return false, nil
	}
	m, known := c.members[env.Dest]
	if !known {
		return true, nil
	}
	return true, m.Node.Step(c.ctx, env)
}

// DeliverAll releases messages until the network is idle.
func (c *Cluster) DeliverAll() error {
	for {
		more, err := c.DeliverOne()
		if err != nil || !more {
			return err
		}
	}
}

// Settle runs fault-free gossip rounds, delivering everything after each.
func (c *Cluster) Settle(rounds int) error {
	saved := c.net.faults
	c.net.faults = Faults{}
	defer func() { c.net.faults = saved }()

	for i := 0; i < rounds; i++ {
		if err := c.TickAll(); err != nil {
			return err
		}
		if err := c.DeliverAll(); err != nil {
			return err
		}
	}
	return nil
}

// Pending returns the number of undelivered messages.
func (c *Cluster) Pending() int { return len(c.net.pending) }

// Dropped returns how many messages the network discarded.
func (c *Cluster) Dropped() int { return c.net.dropped }

// Random returns the cluster's seeded source, for test workloads.
func (c *Cluster) Random() *rand.Rand { return c.net.rng }

// Outstanding sums unacknowledged gossip across members.
func (c *Cluster) Outstanding() int {
	total := 0
	for _, id := range c.ids {
		if g, ok := c.members[id].Service.(node.Gossiper); ok {
			total += g.GossipStats().Outstanding
		}
	}
	return total
}
