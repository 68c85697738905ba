// Package tester provides the public API for the tester-side RPC
// client: the component of a mobile end-to-end test harness that
// manages the relay-socket lifecycle and login handshake, serialises
// actions with unique message identifiers, dispatches unsolicited
// server events to listeners, runs the currentStatus liveness probe,
// and exposes typed wrappers for the known action catalogue.
//
// Example usage:
//
//	client := tester.New(tester.SessionConfig{
//	    Server:               "wss://relay.example.com/ws",
//	    SessionID:            sessionID,
//	    DebugSynchronization: 10 * time.Second,
//	})
//	if err := client.Connect(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Cleanup(ctx)
//
//	if _, err := client.WaitUntilReady(ctx); err != nil {
//	    log.Fatal(err)
//	}
package tester

import (
	"context"
	"encoding/json"

	"github.com/charmbracelet/log"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"

	"github.com/revyl/tester-rpc/internal/rpc"
	"github.com/revyl/tester-rpc/internal/rpcerrors"
	"github.com/revyl/tester-rpc/internal/socket"
	"github.com/revyl/tester-rpc/internal/transport"
)

// SessionConfig is the immutable session configuration: the relay
// endpoint, the opaque tester<->app session token, and the liveness
// probe interval (zero disables the probe).
type SessionConfig = rpc.SessionConfig

// Re-exported error types so callers can errors.As against the public
// package without reaching into internal/.
type (
	ConnectionError         = rpcerrors.ConnectionError
	ClosedSocketError       = rpcerrors.ClosedSocketError
	TransportError          = rpcerrors.TransportError
	ServerError             = rpcerrors.ServerError
	UnexpectedResponseError = rpcerrors.UnexpectedResponseError
	DomainError             = rpcerrors.DomainError
	AppCrashError           = rpcerrors.AppCrashError
)

// NonresponsivenessListener is invoked with the raw params of an
// AppNonresponsiveDetected event.
type NonresponsivenessListener = rpc.NonresponsivenessListener

// Client is the tester-side RPC client's public facade.
type Client struct {
	inner *rpc.Client
}

// Option configures a Client at construction time.
type Option func(*clientOptions)

type clientOptions struct {
	transport      transport.Transport
	logger         *log.Logger
	tracerProvider trace.TracerProvider
	otlpEndpoint   string
}

// WithTransport overrides the default gorilla/websocket transport, for
// tests or alternative relay carriers.
func WithTransport(t transport.Transport) Option {
	return func(o *clientOptions) { o.transport = t }
}

// WithLogger overrides the default charmbracelet/log logger.
func WithLogger(l *log.Logger) Option {
	return func(o *clientOptions) { o.logger = l }
}

// WithTracerProvider supplies an external OpenTelemetry TracerProvider
// for the spans the client creates around each action round trip. When absent,
// the client falls back to an SDK provider — exporting via OTLP/HTTP
// when WithOTLPEndpoint is also given, or otherwise creating and ending
// spans with no exporter attached.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *clientOptions) { o.tracerProvider = tp }
}

// WithOTLPEndpoint ships the fallback SDK TracerProvider's spans to an
// OTLP/HTTP collector at endpoint (host:port, no scheme). Ignored if
// WithTracerProvider supplies an external provider.
func WithOTLPEndpoint(endpoint string) Option {
	return func(o *clientOptions) { o.otlpEndpoint = endpoint }
}

// New constructs a Client for the given session. Connect must be called
// before any action can be sent.
func New(cfg SessionConfig, opts ...Option) *Client {
	o := &clientOptions{}
	for _, opt := range opts {
		opt(o)
	}

	if o.transport == nil {
		o.transport = transport.NewWSTransport(transport.WSConfig{URL: cfg.Server})
	}
	if o.tracerProvider == nil {
		o.tracerProvider = newFallbackTracerProvider(o)
	}

	sock := socket.New(o.transport, o.logger)
	tracer := o.tracerProvider.Tracer("github.com/revyl/tester-rpc")
	return &Client{inner: rpc.New(cfg, sock, o.logger, tracer)}
}

// Connect opens the socket and performs the login handshake.
func (c *Client) Connect(ctx context.Context) error { return c.inner.Connect(ctx) }

// IsConnected reports whether the socket is open and the app has sent
// its appConnected event since the last Connect.
func (c *Client) IsConnected() bool { return c.inner.IsConnected() }

// WaitUntilReady blocks until the app reports isReady.
func (c *Client) WaitUntilReady(ctx context.Context) (any, error) {
	return c.inner.WaitUntilReady(ctx)
}

// ReloadReactNative triggers a JS bundle reload and waits for ready.
func (c *Client) ReloadReactNative(ctx context.Context) (any, error) {
	return c.inner.ReloadReactNative(ctx)
}

// DeliverPayload sends a deep-link/notification payload to the app.
func (c *Client) DeliverPayload(ctx context.Context, params any) (any, error) {
	return c.inner.DeliverPayload(ctx, params)
}

// SetSyncSettings configures the app's synchronization behavior.
func (c *Client) SetSyncSettings(ctx context.Context, params any) (any, error) {
	return c.inner.SetSyncSettings(ctx, params)
}

// Shake simulates a physical device shake.
func (c *Client) Shake(ctx context.Context) (any, error) { return c.inner.Shake(ctx) }

// SetOrientation rotates the device/simulator.
func (c *Client) SetOrientation(ctx context.Context, params any) (any, error) {
	return c.inner.SetOrientation(ctx, params)
}

// StartInstrumentsRecording begins a profiler recording session.
func (c *Client) StartInstrumentsRecording(ctx context.Context, params any) (any, error) {
	return c.inner.StartInstrumentsRecording(ctx, params)
}

// StopInstrumentsRecording ends the current recording session.
func (c *Client) StopInstrumentsRecording(ctx context.Context) (any, error) {
	return c.inner.StopInstrumentsRecording(ctx)
}

// CaptureViewHierarchy fetches the current view hierarchy.
func (c *Client) CaptureViewHierarchy(ctx context.Context, params any) (any, error) {
	return c.inner.CaptureViewHierarchy(ctx, params)
}

// WaitForBackground blocks until the app reports it has backgrounded.
func (c *Client) WaitForBackground(ctx context.Context) (any, error) {
	return c.inner.WaitForBackground(ctx)
}

// WaitForActive blocks until the app reports it is active again.
func (c *Client) WaitForActive(ctx context.Context) (any, error) {
	return c.inner.WaitForActive(ctx)
}

// CurrentStatus issues a currentStatus liveness query directly.
func (c *Client) CurrentStatus(ctx context.Context) (json.RawMessage, error) {
	return c.inner.CurrentStatus(ctx)
}

// SetNonresponsivenessListener registers cb to be invoked with the
// event params whenever an AppNonresponsiveDetected event arrives.
func (c *Client) SetNonresponsivenessListener(cb NonresponsivenessListener) {
	c.inner.SetNonresponsivenessListener(cb)
}

// DumpPendingRequests logs a warning summarising outstanding requests
// and drops the in-flight table, unless the only in-flight entries are
// currentStatus probes. testName is included in the log line when
// non-empty.
func (c *Client) DumpPendingRequests(testName string) { c.inner.DumpPendingRequests(testName) }

// GetPendingCrashAndReset returns and clears the stored crash error, if
// any.
func (c *Client) GetPendingCrashAndReset() *AppCrashError { return c.inner.GetPendingCrashAndReset() }

// Cleanup cancels any probe timer, sends the terminal cleanup action
// unless the app is disconnected or crashing, then closes the socket.
func (c *Client) Cleanup(ctx context.Context) error { return c.inner.Cleanup(ctx) }

// newFallbackTracerProvider builds the SDK TracerProvider used when the
// caller supplies no external one. With an OTLP endpoint configured it
// batches spans to an otlptracehttp exporter; otherwise spans are
// created and ended without ever being exported.
func newFallbackTracerProvider(o *clientOptions) trace.TracerProvider {
	if o.otlpEndpoint == "" {
		return sdktrace.NewTracerProvider()
	}

	exp, err := otlptracehttp.New(context.Background(),
		otlptracehttp.WithEndpoint(o.otlpEndpoint),
		otlptracehttp.WithInsecure(),
	)
	if err != nil {
		logger := o.logger
		if logger == nil {
			logger = log.Default()
		}
		logger.Warn("otlp exporter setup failed, spans will not be exported", "endpoint", o.otlpEndpoint, "error", err)
		return sdktrace.NewTracerProvider()
	}
	return sdktrace.NewTracerProvider(sdktrace.WithBatcher(exp))
}
