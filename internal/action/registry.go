// Package action implements the Action Registry: a closed catalogue of
// typed actions, each pairing a request type, an optional parameter
// shape, and the expected response type(s).
package action

import (
	"encoding/json"
	"fmt"

	"github.com/revyl/tester-rpc/internal/rpcerrors"
)

// ResponseMatcher decides whether an inbound envelope type satisfies an
// action's expectation. Implemented as tagged data (exactType,
// predicate), never a class hierarchy.
type ResponseMatcher interface {
	Matches(envelopeType string) bool
	String() string
}

type exactType string

func (e exactType) Matches(envelopeType string) bool { return string(e) == envelopeType }
func (e exactType) String() string                   { return string(e) }

// ExpectType builds a ResponseMatcher that accepts exactly one
// envelope type.
func ExpectType(t string) ResponseMatcher { return exactType(t) }

type predicateMatcher struct {
	desc string
	fn   func(string) bool
}

func (p predicateMatcher) Matches(envelopeType string) bool { return p.fn(envelopeType) }
func (p predicateMatcher) String() string                  { return p.desc }

// ExpectAnyOf builds a ResponseMatcher that accepts any of the given
// envelope types (used by Cleanup: cleanupDone or appDisconnected).
func ExpectAnyOf(types ...string) ResponseMatcher {
	set := make(map[string]bool, len(types))
	for _, t := range types {
		set[t] = true
	}
	return predicateMatcher{
		desc: fmt.Sprintf("any of %v", types),
		fn:   func(t string) bool { return set[t] },
	}
}

// Handler transforms a successful response envelope into the caller's
// return value, or raises a domain error. Params is the raw params
// object of the response.
type Handler func(params json.RawMessage) (any, error)

// Action is a request envelope prior to message-ID assignment, paired
// with its expected response matcher and an optional handler.
type Action struct {
	Name             string
	Params           json.RawMessage
	ExpectedResponse ResponseMatcher
	Handle           Handler
}

func mustParams(v any) json.RawMessage {
	if v == nil {
		return nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		panic(fmt.Sprintf("action: marshal params: %v", err))
	}
	return raw
}

// Login builds the login action: sessionId -> loginSuccess.
func Login(sessionID string) Action {
	return Action{
		Name:             "login",
		Params:           mustParams(map[string]string{"sessionId": sessionID}),
		ExpectedResponse: ExpectType("loginSuccess"),
	}
}

// Ready builds the isReady action.
func Ready() Action {
	return Action{Name: "isReady", ExpectedResponse: ExpectType("ready")}
}

// ReloadReactNative builds the reactNativeReload action.
func ReloadReactNative() Action {
	return Action{Name: "reactNativeReload", ExpectedResponse: ExpectType("ready")}
}

// DeliverPayload builds the deliverPayload action.
func DeliverPayload(params any) Action {
	return Action{
		Name:             "deliverPayload",
		Params:           mustParams(params),
		ExpectedResponse: ExpectType("deliverPayloadDone"),
	}
}

// SetSyncSettings builds the setSyncSettings action.
func SetSyncSettings(params any) Action {
	return Action{
		Name:             "setSyncSettings",
		Params:           mustParams(params),
		ExpectedResponse: ExpectType("setSyncSettingsDone"),
	}
}

// Shake builds the shakeDevice action.
func Shake() Action {
	return Action{Name: "shakeDevice", ExpectedResponse: ExpectType("shakeDeviceDone")}
}

// SetOrientation builds the setOrientation action.
func SetOrientation(params any) Action {
	return Action{
		Name:             "setOrientation",
		Params:           mustParams(params),
		ExpectedResponse: ExpectType("setOrientationDone"),
	}
}

// SetRecordingState builds the setRecordingState action (used for both
// start and stop — the caller supplies the recording-state params).
func SetRecordingState(params any) Action {
	return Action{
		Name:             "setRecordingState",
		Params:           mustParams(params),
		ExpectedResponse: ExpectType("setRecordingStateDone"),
	}
}

// captureViewHierarchyResponse is the shape of a captureViewHierarchyDone
// envelope's params, including the optional embedded failure.
type captureViewHierarchyResponse struct {
	CaptureViewHierarchyError string          `json:"captureViewHierarchyError,omitempty"`
	ViewHierarchy             json.RawMessage `json:"viewHierarchy,omitempty"`
}

// CaptureViewHierarchy builds the captureViewHierarchy action. It
// succeeds with the view hierarchy only when the response carries no
// captureViewHierarchyError; otherwise it raises a DomainError.
func CaptureViewHierarchy(params any) Action {
	return Action{
		Name:             "captureViewHierarchy",
		Params:           mustParams(params),
		ExpectedResponse: ExpectType("captureViewHierarchyDone"),
		Handle: func(raw json.RawMessage) (any, error) {
			var resp captureViewHierarchyResponse
			if err := json.Unmarshal(raw, &resp); err != nil {
				return nil, fmt.Errorf("decode captureViewHierarchyDone: %w", err)
			}
			if resp.CaptureViewHierarchyError != "" {
				return nil, &rpcerrors.DomainError{
					Action:  "captureViewHierarchy",
					Message: resp.CaptureViewHierarchyError,
				}
			}
			return resp.ViewHierarchy, nil
		},
	}
}

// WaitForBackground builds the waitForBackground action.
func WaitForBackground() Action {
	return Action{Name: "waitForBackground", ExpectedResponse: ExpectType("waitForBackgroundDone")}
}

// WaitForActive builds the waitForActive action.
func WaitForActive() Action {
	return Action{Name: "waitForActive", ExpectedResponse: ExpectType("waitForActiveDone")}
}

// Cleanup builds the terminal cleanup action. The source accepts either
// cleanupDone or appDisconnected as a successful terminal response.
func Cleanup() Action {
	return Action{
		Name:             "cleanup",
		ExpectedResponse: ExpectAnyOf("cleanupDone", "appDisconnected"),
	}
}

// CurrentStatus builds the currentStatus liveness-probe action.
func CurrentStatus() Action {
	return Action{Name: "currentStatus", ExpectedResponse: ExpectType("currentStatusResult")}
}
