package rpc

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/revyl/tester-rpc/internal/action"
)

// WaitUntilReady blocks until the app reports isReady.
func (c *Client) WaitUntilReady(ctx context.Context) (any, error) {
	return c.SendAction(ctx, action.Ready())
}

// ReloadReactNative triggers a JS bundle reload and waits for the app
// to become ready again.
func (c *Client) ReloadReactNative(ctx context.Context) (any, error) {
	return c.SendAction(ctx, action.ReloadReactNative())
}

// DeliverPayload sends a deep-link/notification payload to the app.
func (c *Client) DeliverPayload(ctx context.Context, params any) (any, error) {
	return c.SendAction(ctx, action.DeliverPayload(params))
}

// SetSyncSettings configures the app's synchronization behavior.
func (c *Client) SetSyncSettings(ctx context.Context, params any) (any, error) {
	return c.SendAction(ctx, action.SetSyncSettings(params))
}

// Shake simulates a physical device shake.
func (c *Client) Shake(ctx context.Context) (any, error) {
	return c.SendAction(ctx, action.Shake())
}

// SetOrientation rotates the device/simulator.
func (c *Client) SetOrientation(ctx context.Context, params any) (any, error) {
	return c.SendAction(ctx, action.SetOrientation(params))
}

// StartInstrumentsRecording begins an Instruments/profiler recording
// session on the device.
func (c *Client) StartInstrumentsRecording(ctx context.Context, params any) (any, error) {
	return c.SendAction(ctx, action.SetRecordingState(params))
}

// StopInstrumentsRecording ends the current recording session.
func (c *Client) StopInstrumentsRecording(ctx context.Context) (any, error) {
	return c.SendAction(ctx, action.SetRecordingState(map[string]bool{"enabled": false}))
}

// CaptureViewHierarchy fetches the current view hierarchy. It returns a
// DomainError if the app reports a captureViewHierarchyError.
func (c *Client) CaptureViewHierarchy(ctx context.Context, params any) (any, error) {
	return c.SendAction(ctx, action.CaptureViewHierarchy(params))
}

// WaitForBackground blocks until the app reports it has backgrounded.
func (c *Client) WaitForBackground(ctx context.Context) (any, error) {
	return c.SendAction(ctx, action.WaitForBackground())
}

// WaitForActive blocks until the app reports it is active again.
func (c *Client) WaitForActive(ctx context.Context) (any, error) {
	return c.SendAction(ctx, action.WaitForActive())
}

// CurrentStatus issues a currentStatus liveness query. Unlike every
// other action it never arms the probe for itself.
func (c *Client) CurrentStatus(ctx context.Context) (json.RawMessage, error) {
	if !c.IsConnected() {
		return nil, fmt.Errorf("currentStatus: not connected")
	}
	result, err := c.doAction(ctx, action.CurrentStatus(), false)
	if err != nil {
		return nil, err
	}
	raw, _ := result.(json.RawMessage)
	return raw, nil
}
