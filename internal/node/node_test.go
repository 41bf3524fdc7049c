package node

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"meshnode/internal/gossip"
	"meshnode/internal/loop"
	"meshnode/internal/message"
	"meshnode/internal/ring"
)

type captureSender struct {
	mu   sync.Mutex
	sent []message.Envelope
	err  error
}

func (c *captureSender) Send(env message.Envelope) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	c.sent = append(c.sent, env)
	return nil
}

func (c *captureSender) all() []message.Envelope {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]message.Envelope(nil), c.sent...)
}

// echoService answers echo and records what it saw.
type echoService struct {
	started int
	handled []string
}

func (s *echoService) Name() string { return "echo" }

func (s *echoService) Registry() *message.Registry {
	return message.NewRegistry(
		func() message.Payload { return new(message.Echo) },
		func() message.Payload { return new(message.EchoOk) },
	)
}

func (s *echoService) Start(*Node) error {
	s.started++
	return nil
}

func (s *echoService) Handle(n *Node, env message.Envelope) error {
	s.handled = append(s.handled, env.Type())
	switch p := env.Body.Payload.(type) {
	case *message.Echo:
		return n.Reply(env, &message.EchoOk{Echo: p.Echo})
	case *message.GossipDue:
		return nil
	default:
		return Unexpected(env)
	}
}

func (s *echoService) Snapshot() map[string]any { return map[string]any{"handled": len(s.handled)} }

type gossipingService struct{ echoService }

func (s *gossipingService) GossipStats() gossip.Stats { return gossip.Stats{Sent: 3} }

func initEnv(id string, ids ...string) message.Envelope {
	return message.Envelope{
		Src:  "c0",
		Dest: id,
		Body: message.Body{MsgID: message.ID(1), Payload: &message.Init{NodeID: id, NodeIDs: ids}},
	}
}

func clientEnv(p message.Payload) message.Envelope {
	return message.Envelope{Src: "c1", Dest: "n1", Body: message.Body{MsgID: message.ID(7), Payload: p}}
}

// runEvents feeds envs to a fresh node and returns Run's result.
func runEvents(t *testing.T, n *Node, envs ...message.Envelope) error {
	t.Helper()
	events := make(chan message.Envelope, len(envs))
	for _, e := range envs {
		events <- e
	}
	close(events)
	return n.Run(context.Background(), events)
}

func TestNode_InitRepliesFirst(t *testing.T) {
	out := &captureSender{}
	svc := &echoService{}
	n := New(svc, out)

	err := runEvents(t, n, initEnv("n1", "n1", "n2", "n3"), clientEnv(&message.Echo{Echo: "hi"}))
	require.NoError(t, err)

	sent := out.all()
	require.Len(t, sent, 2)
	assert.Equal(t, "init_ok", sent[0].Type())
	assert.Equal(t, "c0", sent[0].Dest)
	assert.Equal(t, "n1", sent[0].Src)
	assert.Nil(t, sent[0].Body.MsgID)
	require.NotNil(t, sent[0].Body.InReplyTo)
	assert.Equal(t, uint64(1), *sent[0].Body.InReplyTo)

	assert.Equal(t, "echo_ok", sent[1].Type())
	assert.Equal(t, uint64(7), *sent[1].Body.InReplyTo)

	assert.Equal(t, 1, svc.started)
	assert.Equal(t, "n1", n.ID())
	assert.Equal(t, []string{"n2", "n3"}, n.Peers())
}

func TestNode_ProtocolViolations(t *testing.T) {
	tests := []struct {
		name string
		envs []message.Envelope
	}{
		{"message before init", []message.Envelope{clientEnv(&message.Echo{})}},
		{"second init", []message.Envelope{initEnv("n1", "n1"), initEnv("n1", "n1")}},
		{"init_ok as input", []message.Envelope{initEnv("n1", "n1"), clientEnv(&message.InitOk{})}},
		{"reply variant as input", []message.Envelope{initEnv("n1", "n1"), clientEnv(&message.EchoOk{})}},
		{"gossip_due from outside", []message.Envelope{initEnv("n1", "n1"), clientEnv(&message.GossipDue{})}},
		{"init without id", []message.Envelope{initEnv("", "n1")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := New(&echoService{}, &captureSender{})
			err := runEvents(t, n, tt.envs...)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrProtocol), "got %v", err)
		})
	}
}

func TestNode_WriteFailureStopsLoop(t *testing.T) {
	out := &captureSender{err: errors.New("broken pipe")}
	n := New(&echoService{}, out)

	err := runEvents(t, n, initEnv("n1", "n1"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken pipe")
}

func TestNode_MsgIDsStartAtOne(t *testing.T) {
	n := New(&echoService{}, &captureSender{})
	assert.Equal(t, uint64(1), n.NextMsgID())
	assert.Equal(t, uint64(2), n.NextMsgID())
	assert.Equal(t, uint64(3), n.NextMsgID())
}

func TestNode_RequestCarriesMsgID(t *testing.T) {
	out := &captureSender{}
	n := New(&echoService{}, out)
	require.NoError(t, runEvents(t, n, initEnv("n1", "n1", "n2")))

	require.NoError(t, n.Request("n2", n.NextMsgID(), &message.GossipOk{}))
	sent := out.all()
	last := sent[len(sent)-1]
	assert.Equal(t, "n1", last.Src)
	assert.Equal(t, "n2", last.Dest)
	require.NotNil(t, last.Body.MsgID)
	assert.Equal(t, uint64(1), *last.Body.MsgID)
	assert.Nil(t, last.Body.InReplyTo)
}

func TestNode_SlotFollowsSortedMembership(t *testing.T) {
	n := New(&echoService{}, &captureSender{})
	require.NoError(t, runEvents(t, n, initEnv("n2", "n3", "n1", "n2")))

	slot, stride := n.Slot()
	assert.Equal(t, 1, slot)
	assert.Equal(t, 3, stride)
	assert.Equal(t, []string{"n1", "n2", "n3"}, n.NodeIDs())
}

func TestNode_ArmsTickerOnlyForGossipers(t *testing.T) {
	plain := loop.NewTicker(time.Hour)
	n := New(&echoService{}, &captureSender{}, WithTicker(plain))
	require.NoError(t, runEvents(t, n, initEnv("n1", "n1")))
	assert.False(t, plain.Armed())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	armed := loop.NewTicker(time.Hour)
	g := New(&gossipingService{}, &captureSender{}, WithTicker(armed))
	events := make(chan message.Envelope, 1)
	events <- initEnv("n1", "n1")
	close(events)
	require.NoError(t, g.Run(ctx, events))
	assert.True(t, armed.Armed())
}

func TestNode_InspectRunsOnHandlerLoop(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	n := New(&gossipingService{}, &captureSender{}, WithTicker(loop.NewTicker(time.Hour)))
	events := make(chan message.Envelope, 1)
	events <- initEnv("n1", "n1", "n2")

	done := make(chan error, 1)
	go func() { done <- n.Run(ctx, events) }()

	var snap map[string]any
	require.Eventually(t, func() bool {
		var id string
		require.NoError(t, n.Inspect(ctx, func() { id = n.ID() }))
		return id == "n1"
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, n.Inspect(ctx, func() { snap = n.Snapshot() }))
	assert.Equal(t, "n1", snap["node_id"])
	assert.Equal(t, []string{"n2"}, snap["neighbors"])
	assert.Equal(t, "echo", snap["service"])
	gs, ok := snap["gossip"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, uint64(3), gs["sent"])
	assert.Equal(t, true, gs["armed"])
	assert.Equal(t, "1h0m0s", gs["interval"])

	close(events)
	require.NoError(t, <-done)
	assert.ErrorIs(t, n.Inspect(context.Background(), func() {}), ErrStopped)
}

func TestNode_NeighborModes(t *testing.T) {
	ids := []string{"n0", "n1", "n2", "n3", "n4"}

	full := New(&echoService{}, &captureSender{})
	require.NoError(t, runEvents(t, full, initEnv("n0", ids...)))
	assert.Equal(t, []string{"n1", "n2", "n3", "n4"}, full.Neighbors())

	topo := New(&echoService{}, &captureSender{}, WithNeighbors(ModeTopology, 0))
	require.NoError(t, runEvents(t, topo, initEnv("n0", ids...)))
	assert.Len(t, topo.Neighbors(), 4, "falls back to every peer before a topology arrives")
	topo.SetTopology(map[string][]string{"n0": {"n3", "n0", "zz", "n1"}})
	assert.Equal(t, []string{"n1", "n3"}, topo.Neighbors())

	rng := New(&echoService{}, &captureSender{}, WithNeighbors(ModeRing, 2))
	require.NoError(t, runEvents(t, rng, initEnv("n0", ids...)))
	got := rng.Neighbors()
	assert.Len(t, got, 2)
	assert.NotContains(t, got, "n0")
	assert.Equal(t, ring.New(ids).Successors("n0", 2), got)
}

func TestParseMode(t *testing.T) {
	for _, s := range []string{"full", "topology", "ring"} {
		m, err := ParseMode(s)
		require.NoError(t, err)
		assert.Equal(t, Mode(s), m)
	}
	_, err := ParseMode("star")
	assert.Error(t, err)
}
