package socket

import "encoding/json"

// Envelope is the wire unit exchanged over the relay socket: a JSON
// object with a type discriminator, an opaque params payload, and a
// correlation id. Unknown keys are ignored by strict JSON decoding
// into this shape.
type Envelope struct {
	Type      string          `json:"type"`
	Params    json.RawMessage `json:"params"`
	MessageID int64           `json:"messageId"`
}

// OutboundMessage is an envelope prior to message-ID assignment: the
// socket assigns MessageID from its counter when Send is called.
type OutboundMessage struct {
	Type   string
	Params json.RawMessage
}
