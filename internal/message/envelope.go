package message

// Envelope is a single message on the wire.
type Envelope struct {
	Src  string
	Dest string
	Body Body
}

// Body carries correlation identifiers and the typed payload.
// MsgID is set only on messages that expect an acknowledgement;
// InReplyTo is set only on replies.
type Body struct {
	MsgID     *uint64
	InReplyTo *uint64
	Payload   Payload
}

// ID returns a pointer to n, for populating optional body identifiers.
func ID(n uint64) *uint64 {
	return &n
}

// Type returns the wire tag of the envelope's payload, or "" if it has none.
func (e Envelope) Type() string {
	if e.Body.Payload == nil {
		return ""
	}
	return e.Body.Payload.Type()
}

// Reply builds a response to req: endpoints are swapped and InReplyTo is
// set to the request's MsgID. msgID is nil unless the reply itself expects
// an acknowledgement.
func Reply(req Envelope, msgID *uint64, p Payload) Envelope {
	return Envelope{
		Src:  req.Dest,
		Dest: req.Src,
		Body: Body{
			MsgID:     msgID,
			InReplyTo: req.Body.MsgID,
			Payload:   p,
		},
	}
}
