// Package rpc implements the RPC Client (spec component C): connection
// and login handshake, action dispatch with response-type verification,
// the currentStatus liveness-probe scheduler, crash-capture event
// hooks, and cleanup. It owns one Async Message Socket and consults the
// Action Registry.
package rpc

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/revyl/tester-rpc/internal/action"
	"github.com/revyl/tester-rpc/internal/rpcerrors"
	"github.com/revyl/tester-rpc/internal/socket"
)

// NonresponsivenessListener is invoked with the raw params of an
// AppNonresponsiveDetected event.
type NonresponsivenessListener func(params json.RawMessage)

// Client is the tester-side RPC client (spec component C).
type Client struct {
	cfg    SessionConfig
	socket *socket.Socket
	probe  *probeScheduler
	logger *log.Logger
	tracer trace.Tracer
	connID string

	mu                    sync.Mutex
	appConnected          bool
	appCrashing           bool
	pendingCrash          *rpcerrors.AppCrashError
	nonresponsiveListener NonresponsivenessListener
}

// New constructs a Client around an already-wrapped Socket. logger may
// be nil, in which case log.Default() is used; tracer may be nil, in
// which case no spans are created.
func New(cfg SessionConfig, sock *socket.Socket, logger *log.Logger, tracer trace.Tracer) *Client {
	if logger == nil {
		logger = log.Default()
	}
	connID := uuid.NewString()
	logger = logger.With("connID", connID, "sessionId", cfg.SessionID)

	c := &Client{
		cfg:    cfg,
		socket: sock,
		logger: logger,
		tracer: tracer,
		connID: connID,
	}
	c.probe = newProbeScheduler(cfg.DebugSynchronization, c.handleProbeFire)
	return c
}

// IsConnected reports socketOpen && appConnected.
func (c *Client) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.socket.IsOpen() && c.appConnected
}

// Connect opens the socket, performs the login handshake, and wires the
// server-originated event hooks. The login exchange never arms the
// liveness probe.
func (c *Client) Connect(ctx context.Context) error {
	if err := c.socket.Open(ctx); err != nil {
		return err
	}

	c.socket.SetEventCallback(eventAppConnected, c.onAppConnected)
	c.socket.SetEventCallback(eventAppWillTerminateWithError, c.onAppCrash)
	c.socket.SetEventCallback(eventAppNonresponsiveDetected, c.onNonresponsive)

	if _, err := c.doAction(ctx, action.Login(c.cfg.SessionID), false); err != nil {
		return err
	}
	c.logger.Debug("login succeeded")
	return nil
}

func (c *Client) onAppConnected(socket.Envelope) {
	c.mu.Lock()
	c.appConnected = true
	c.mu.Unlock()
	c.logger.Debug("app connected")
}

func (c *Client) onAppCrash(env socket.Envelope) {
	var payload rpcerrors.ServerPayload
	_ = json.Unmarshal(env.Params, &payload)

	c.mu.Lock()
	c.appCrashing = true
	c.pendingCrash = &rpcerrors.AppCrashError{Message: payload.Message}
	c.mu.Unlock()
	c.logger.Warn("app will terminate with error", "message", payload.Message)
}

func (c *Client) onNonresponsive(env socket.Envelope) {
	c.mu.Lock()
	listener := c.nonresponsiveListener
	c.mu.Unlock()
	if listener != nil {
		listener(env.Params)
	}
}

// SetNonresponsivenessListener registers cb to be invoked with the
// event params whenever an AppNonresponsiveDetected event arrives.
func (c *Client) SetNonresponsivenessListener(cb NonresponsivenessListener) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nonresponsiveListener = cb
}

// GetPendingCrashAndReset returns and clears the stored crash error, if
// any.
func (c *Client) GetPendingCrashAndReset() *rpcerrors.AppCrashError {
	c.mu.Lock()
	defer c.mu.Unlock()
	err := c.pendingCrash
	c.pendingCrash = nil
	return err
}

// SendAction dispatches act and verifies its response against the
// action's expected type(s). Every non-currentStatus action arms the
// liveness probe for the duration of the round trip.
func (c *Client) SendAction(ctx context.Context, act action.Action) (any, error) {
	if !c.IsConnected() {
		return nil, fmt.Errorf("sendAction %s: not connected", act.Name)
	}
	armProbe := act.Name != "currentStatus"
	return c.doAction(ctx, act, armProbe)
}

func (c *Client) doAction(ctx context.Context, act action.Action, armProbe bool) (result any, err error) {
	var gen int64
	if armProbe {
		gen = c.probe.arm()
		defer c.probe.disarm(gen)
	}

	if c.tracer != nil {
		var span trace.Span
		ctx, span = c.tracer.Start(ctx, "rpc."+act.Name, trace.WithAttributes(
			attribute.String("action.type", act.Name),
		))
		defer func() {
			if err != nil {
				span.SetStatus(codes.Error, err.Error())
			}
			span.End()
		}()
	}

	raw, err := c.socket.Send(ctx, socket.OutboundMessage{Type: act.Name, Params: act.Params})
	if err != nil {
		return nil, err
	}

	var env socket.Envelope
	if unmarshalErr := json.Unmarshal(raw, &env); unmarshalErr != nil {
		return nil, fmt.Errorf("decode response to %s: %w", act.Name, unmarshalErr)
	}

	if env.Type == "error" {
		var body struct {
			Error rpcerrors.ServerPayload `json:"error"`
		}
		_ = json.Unmarshal(env.Params, &body)
		return nil, &rpcerrors.ServerError{Action: act.Name, Payload: body.Error}
	}

	if !act.ExpectedResponse.Matches(env.Type) {
		return nil, &rpcerrors.UnexpectedResponseError{
			Action:     act.Name,
			Expected:   act.ExpectedResponse.String(),
			ActualType: env.Type,
		}
	}

	if act.Handle != nil {
		return act.Handle(env.Params)
	}
	return env.Params, nil
}

// handleProbeFire is invoked by the probe scheduler when the liveness
// timer fires. It sends a currentStatus action (never arming its own
// probe) and, on success, re-arms the timer for the originating
// action's generation.
func (c *Client) handleProbeFire(gen int64) {
	go func() {
		ctx := context.Background()
		_, err := c.doAction(ctx, action.CurrentStatus(), false)
		if err != nil {
			c.logger.Debug("liveness probe failed", "error", err)
			return
		}
		c.probe.rearm(gen)
	}()
}

// DumpPendingRequests logs a warning summarising outstanding requests
// and drops the in-flight table, unless the only in-flight entries are
// currentStatus probes.
func (c *Client) DumpPendingRequests(testName string) {
	pending := c.socket.PendingRequests()
	if len(pending) == 0 {
		return
	}

	onlyProbes := true
	for _, p := range pending {
		if p.Type != "currentStatus" {
			onlyProbes = false
			break
		}
	}
	if onlyProbes {
		return
	}

	fields := []any{"count", len(pending)}
	if testName != "" {
		fields = append(fields, "test", testName)
	}
	for _, p := range pending {
		fields = append(fields, "pending", fmt.Sprintf("%s#%d", p.Type, p.MessageID))
	}
	c.logger.Warn("dropping pending requests", fields...)
	c.socket.ResetInFlightPromises()
}

// Cleanup cancels any probe timer, sends the terminal cleanup action
// unless the app is disconnected or crashing, then closes the socket.
func (c *Client) Cleanup(ctx context.Context) error {
	c.probe.cancel()
	defer func() { _ = c.socket.Close() }()

	c.mu.Lock()
	skip := !(c.socket.IsOpen() && c.appConnected) || c.appCrashing
	c.mu.Unlock()
	if skip {
		return nil
	}

	_, err := c.doAction(ctx, action.Cleanup(), false)
	return err
}
