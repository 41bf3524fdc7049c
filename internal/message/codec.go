package message

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

var (
	ErrMalformed   = errors.New("malformed message")
	ErrUnknownType = errors.New("unknown message type")
)

type wireEnvelope struct {
	Src  string          `json:"src"`
	Dest string          `json:"dest"`
	Body json.RawMessage `json:"body"`
}

type wireHeader struct {
	Type      string  `json:"type"`
	MsgID     *uint64 `json:"msg_id,omitempty"`
	InReplyTo *uint64 `json:"in_reply_to,omitempty"`
}

// Codec converts envelopes to and from single-line JSON.
type Codec struct {
	registry *Registry
}

// NewCodec creates a codec that decodes the variants known to r.
func NewCodec(r *Registry) *Codec {
	return &Codec{registry: r}
}

// Decode parses one line into an envelope. The payload's fields are flattened
// into the body object next to "type", "msg_id" and "in_reply_to".
func (c *Codec) Decode(line []byte) (Envelope, error) {
	var w wireEnvelope
	if err := json.Unmarshal(line, &w); err != nil {
		return Envelope{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if len(w.Body) == 0 {
		return Envelope{}, fmt.Errorf("%w: missing body", ErrMalformed)
	}

	var h wireHeader
	if err := json.Unmarshal(w.Body, &h); err != nil {
		return Envelope{}, fmt.Errorf("%w: body: %v", ErrMalformed, err)
	}
	if h.Type == "" {
		return Envelope{}, fmt.Errorf("%w: missing body type", ErrMalformed)
	}

	p, ok := c.registry.New(h.Type)
	if !ok {
		return Envelope{}, fmt.Errorf("%w: %q", ErrUnknownType, h.Type)
	}
	if err := json.Unmarshal(w.Body, p); err != nil {
		return Envelope{}, fmt.Errorf("%w: %s payload: %v", ErrMalformed, h.Type, err)
	}

	return Envelope{
		Src:  w.Src,
		Dest: w.Dest,
		Body: Body{
			MsgID:     h.MsgID,
			InReplyTo: h.InReplyTo,
			Payload:   p,
		},
	}, nil
}

// Encode renders env as a single line of JSON without a trailing newline.
func (c *Codec) Encode(env Envelope) ([]byte, error) {
	if env.Body.Payload == nil {
		return nil, fmt.Errorf("encode %s->%s: nil payload", env.Src, env.Dest)
	}

	raw, err := json.Marshal(env.Body.Payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", env.Type(), err)
	}

	fields := make(map[string]json.RawMessage)
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("encode %s payload: not an object: %w", env.Type(), err)
	}
	if fields == nil {
		fields = make(map[string]json.RawMessage)
	}

	header, err := json.Marshal(wireHeader{
		Type:      env.Type(),
		MsgID:     env.Body.MsgID,
		InReplyTo: env.Body.InReplyTo,
	})
	if err != nil {
		return nil, err
	}
	var hf map[string]json.RawMessage
	if err := json.Unmarshal(header, &hf); err != nil {
		return nil, err
	}
	for k, v := range hf {
		fields[k] = v
	}

	body, err := json.Marshal(fields)
	if err != nil {
		return nil, err
	}
	out, err := json.Marshal(wireEnvelope{Src: env.Src, Dest: env.Dest, Body: body})
	if err != nil {
		return nil, err
	}
	if bytes.IndexByte(out, '\n') >= 0 {
		return nil, fmt.Errorf("encode %s: embedded newline", env.Type())
	}
	return out, nil
}
