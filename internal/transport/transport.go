// Package transport defines the raw full-duplex message socket
// abstraction the Async Message Socket (internal/socket) is built on,
// plus a gorilla/websocket-backed implementation for talking to the
// message-relay server.
package transport

import "context"

// Transport is the raw, full-duplex, message-framed socket the tester
// process uses to talk to the relay server. It knows nothing about
// message IDs, correlation, or envelopes — just frames in, frames out.
type Transport interface {
	// Open establishes the connection. It must return once the
	// transport reports "open", or a non-nil error if it signals
	// failure before reaching that state.
	Open(ctx context.Context) error

	// Close closes the connection. Idempotent: closing an
	// already-closed transport returns nil.
	Close() error

	// Send writes a single frame. It must fail immediately if the
	// transport is not open.
	Send(frame []byte) error

	// Messages delivers inbound frames in receipt order. It is closed
	// when the read loop exits (transport closed or errored).
	Messages() <-chan []byte

	// Errors delivers asynchronous transport failures observed after
	// Open succeeded (e.g. a read error). Delivered at most once per
	// failure; the transport does not attempt to recover.
	Errors() <-chan error

	// IsOpen reports whether the transport currently believes itself
	// connected.
	IsOpen() bool

	// Addr returns the configured remote address, for error messages.
	Addr() string
}
