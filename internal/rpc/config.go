package rpc

import "time"

// SessionConfig is the immutable session configuration provided at
// Client construction: the relay endpoint, the opaque tester<->app
// session token, and the liveness-probe interval (0 disables probing).
type SessionConfig struct {
	// Server is the relay server endpoint (ws:// or wss://).
	Server string

	// SessionID is the opaque token identifying the tester<->app pair.
	SessionID string

	// DebugSynchronization is the liveness-probe interval. Zero
	// disables the probe entirely.
	DebugSynchronization time.Duration
}
