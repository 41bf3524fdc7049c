package service

import (
	"meshnode/internal/gossip"
	"meshnode/internal/message"
	"meshnode/internal/node"
)

// replica couples local state of type D with the gossip manager that
// spreads it and the codec that turns a delta into a gossip payload.
type replica[D any] struct {
	state  D
	mgr    *gossip.Manager[D]
	encode func(D) message.Payload
}

func newReplica[D any](policy gossip.Policy[D], encode func(D) message.Payload, opts Options) *replica[D] {
	return &replica[D]{
		state:  policy.New(),
		mgr:    gossip.NewManager[D](policy, opts.managerOptions()...),
		encode: encode,
	}
}

// tick sends every neighbor the delta it is missing.
func (r *replica[D]) tick(n *node.Node) error {
	for _, msg := range r.mgr.Tick(r.state, n.Neighbors(), n.NextMsgID) {
		if err := n.Request(msg.Peer, msg.MsgID, r.encode(msg.Delta)); err != nil {
			return err
		}
	}
	return nil
}

// receive merges gossip from a peer and acknowledges it.
func (r *replica[D]) receive(n *node.Node, env message.Envelope, delta D) error {
	r.mgr.ReceiveGossip(r.state, env.Src, delta)
	return n.Reply(env, &message.GossipOk{})
}

// ack settles an acknowledgement. Acks without in_reply_to are ignored like
// any other unmatched ack.
func (r *replica[D]) ack(env message.Envelope) {
	if env.Body.InReplyTo == nil {
		return
	}
	r.mgr.ReceiveAck(env.Src, *env.Body.InReplyTo)
}

// handleGossip covers the plumbing variants shared by every replicated
// workload. It reports false for anything else.
func (r *replica[D]) handleGossip(n *node.Node, env message.Envelope) (bool, error) {
	switch env.Body.Payload.(type) {
	case *message.GossipDue:
		return true, r.tick(n)
	case *message.GossipOk:
		r.ack(env)
		return true, nil
	}
	return false, nil
}

// GossipStats reports the replica's gossip counters.
func (r *replica[D]) GossipStats() gossip.Stats {
	return r.mgr.Stats()
}
