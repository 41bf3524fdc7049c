package message

// Payload is the closed union of message kinds. Every variant is a pointer
// to one of the structs below; handlers dispatch with a type switch.
type Payload interface {
	Type() string
	isPayload()
}

// Handshake.

type Init struct {
	NodeID  string   `json:"node_id"`
	NodeIDs []string `json:"node_ids"`
}

type InitOk struct{}

// Gossip plumbing shared by every replicated workload.

// GossipDue is generated by the node's own ticker and never arrives from
// the network.
type GossipDue struct{}

type GossipOk struct{}

// Echo.

type Echo struct {
	Echo string `json:"echo"`
}

type EchoOk struct {
	Echo string `json:"echo"`
}

// Unique ids.

type Generate struct{}

type GenerateOk struct {
	ID string `json:"id"`
}

// Broadcast.

type Broadcast struct {
	Message int64 `json:"message"`
}

type BroadcastOk struct{}

type Read struct{}

// ReadOk is the broadcast workload's read reply.
type ReadOk struct {
	Messages []int64 `json:"messages"`
}

type Topology struct {
	Topology map[string][]string `json:"topology"`
}

type TopologyOk struct{}

// SetGossip carries set elements the receiver is not known to have.
type SetGossip struct {
	Messages []int64 `json:"messages"`
}

// Grow-only set.

type SetAdd struct {
	Element int64 `json:"element"`
}

type AddOk struct{}

type SetReadOk struct {
	Value []int64 `json:"value"`
}

// PN-counter.

type CounterAdd struct {
	Delta int64 `json:"delta"`
}

type CounterReadOk struct {
	Value int64 `json:"value"`
}

// CounterGossip carries per-actor increment and decrement totals.
type CounterGossip struct {
	Inc map[string]int64 `json:"inc"`
	Dec map[string]int64 `json:"dec"`
}

// Kafka-style log.

type Send struct {
	Key string `json:"key"`
	Msg int64  `json:"msg"`
}

type SendOk struct {
	Offset int64 `json:"offset"`
}

type Poll struct {
	Offsets map[string]int64 `json:"offsets"`
}

// PollOk maps each key to [offset, msg] pairs in offset order.
type PollOk struct {
	Msgs map[string][][2]int64 `json:"msgs"`
}

type CommitOffsets struct {
	Offsets map[string]int64 `json:"offsets"`
}

type CommitOffsetsOk struct{}

type ListCommittedOffsets struct {
	Keys []string `json:"keys"`
}

type ListCommittedOffsetsOk struct {
	Offsets map[string]int64 `json:"offsets"`
}

// LogGossip carries log entries as [offset, msg] pairs per key and
// committed high-water marks.
type LogGossip struct {
	Entries map[string][][2]int64 `json:"entries"`
	Commits map[string]int64      `json:"commits,omitempty"`
}

func (*Init) Type() string                   { return "init" }
func (*InitOk) Type() string                 { return "init_ok" }
func (*GossipDue) Type() string              { return "gossip_due" }
func (*GossipOk) Type() string               { return "gossip_ok" }
func (*Echo) Type() string                   { return "echo" }
func (*EchoOk) Type() string                 { return "echo_ok" }
func (*Generate) Type() string               { return "generate" }
func (*GenerateOk) Type() string             { return "generate_ok" }
func (*Broadcast) Type() string              { return "broadcast" }
func (*BroadcastOk) Type() string            { return "broadcast_ok" }
func (*Read) Type() string                   { return "read" }
func (*ReadOk) Type() string                 { return "read_ok" }
func (*Topology) Type() string               { return "topology" }
func (*TopologyOk) Type() string             { return "topology_ok" }
func (*SetGossip) Type() string              { return "gossip" }
func (*SetAdd) Type() string                 { return "add" }
func (*AddOk) Type() string                  { return "add_ok" }
func (*SetReadOk) Type() string              { return "read_ok" }
func (*CounterAdd) Type() string             { return "add" }
func (*CounterReadOk) Type() string          { return "read_ok" }
func (*CounterGossip) Type() string          { return "gossip" }
func (*Send) Type() string                   { return "send" }
func (*SendOk) Type() string                 { return "send_ok" }
func (*Poll) Type() string                   { return "poll" }
func (*PollOk) Type() string                 { return "poll_ok" }
func (*CommitOffsets) Type() string          { return "commit_offsets" }
func (*CommitOffsetsOk) Type() string        { return "commit_offsets_ok" }
func (*ListCommittedOffsets) Type() string   { return "list_committed_offsets" }
func (*ListCommittedOffsetsOk) Type() string { return "list_committed_offsets_ok" }
func (*LogGossip) Type() string              { return "gossip" }

func (*Init) isPayload()                   {}
func (*InitOk) isPayload()                 {}
func (*GossipDue) isPayload()              {}
func (*GossipOk) isPayload()               {}
func (*Echo) isPayload()                   {}
func (*EchoOk) isPayload()                 {}
func (*Generate) isPayload()               {}
func (*GenerateOk) isPayload()             {}
func (*Broadcast) isPayload()              {}
func (*BroadcastOk) isPayload()            {}
func (*Read) isPayload()                   {}
func (*ReadOk) isPayload()                 {}
func (*Topology) isPayload()               {}
func (*TopologyOk) isPayload()             {}
func (*SetGossip) isPayload()              {}
func (*SetAdd) isPayload()                 {}
func (*AddOk) isPayload()                  {}
func (*SetReadOk) isPayload()              {}
func (*CounterAdd) isPayload()             {}
func (*CounterReadOk) isPayload()          {}
func (*CounterGossip) isPayload()          {}
func (*Send) isPayload()                   {}
func (*SendOk) isPayload()                 {}
func (*Poll) isPayload()                   {}
func (*PollOk) isPayload()                 {}
func (*CommitOffsets) isPayload()          {}
func (*CommitOffsetsOk) isPayload()        {}
func (*ListCommittedOffsets) isPayload()   {}
func (*ListCommittedOffsetsOk) isPayload() {}
func (*LogGossip) isPayload()              {}
