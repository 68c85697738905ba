// Package socket implements the Async Message Socket: it wraps a raw
// transport.Transport, assigns outgoing message IDs, tracks in-flight
// requests in a keyed table, and routes each inbound frame to either a
// pending request (by messageId) or to registered event listeners (by
// type).
package socket

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/revyl/tester-rpc/internal/rpcerrors"
	"github.com/revyl/tester-rpc/internal/transport"
)

// EventCallback is invoked for every inbound envelope whose messageId
// does not match an in-flight request. Callbacks for a given type fire
// in registration order.
type EventCallback func(Envelope)

type pendingRequest struct {
	msgType string
	resultC chan sendResult
}

type sendResult struct {
	raw []byte
	err error
}

// Socket is the Async Message Socket (spec component A).
type Socket struct {
	tr     transport.Transport
	logger *log.Logger

	mu        sync.Mutex
	nextID    int64
	inFlight  map[int64]*pendingRequest
	listeners map[string][]EventCallback

	dispatchDone chan struct{}
}

// New wraps tr in a Socket. logger may be nil, in which case the
// package-level default logger is used.
func New(tr transport.Transport, logger *log.Logger) *Socket {
	if logger == nil {
		logger = log.Default()
	}
	return &Socket{
		tr:        tr,
		logger:    logger,
		inFlight:  make(map[int64]*pendingRequest),
		listeners: make(map[string][]EventCallback),
	}
}

// Open establishes the underlying transport and starts the inbound
// dispatch loop. It returns a ConnectionError if the transport fails to
// open.
func (s *Socket) Open(ctx context.Context) error {
	if err := s.tr.Open(ctx); err != nil {
		return &rpcerrors.ConnectionError{Server: s.tr.Addr(), Cause: err}
	}
	s.dispatchDone = make(chan struct{})
	go s.dispatchLoop()
	return nil
}

// Close closes the underlying transport. Idempotent.
func (s *Socket) Close() error {
	return s.tr.Close()
}

// IsOpen reports whether the underlying transport is open.
func (s *Socket) IsOpen() bool {
	return s.tr.IsOpen()
}

// SetEventCallback appends cb to the listener list for the given event
// type.
func (s *Socket) SetEventCallback(eventType string, cb EventCallback) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners[eventType] = append(s.listeners[eventType], cb)
}

// Send assigns a message ID, records the pending request, serialises
// the envelope, and writes it to the transport. It blocks until a
// matching response is dispatched, ctx is cancelled, or the send fails.
// On success it returns the raw response frame.
func (s *Socket) Send(ctx context.Context, msg OutboundMessage) ([]byte, error) {
	if !s.tr.IsOpen() {
		return nil, &rpcerrors.ClosedSocketError{MessageType: msg.Type}
	}

	params := msg.Params
	if params == nil {
		params = json.RawMessage("{}")
	}

	s.mu.Lock()
	id := s.nextID
	s.nextID++
	frame, err := buildFrame(msg.Type, params, id)
	if err != nil {
		s.mu.Unlock()
		return nil, fmt.Errorf("encode %s: %w", msg.Type, err)
	}
	pr := &pendingRequest{msgType: msg.Type, resultC: make(chan sendResult, 1)}
	s.inFlight[id] = pr
	s.mu.Unlock()

	if err := s.tr.Send(frame); err != nil {
		s.mu.Lock()
		delete(s.inFlight, id)
		s.mu.Unlock()
		return nil, fmt.Errorf("send %s: %w", msg.Type, err)
	}

	select {
	case res := <-pr.resultC:
		return res.raw, res.err
	case <-ctx.Done():
		s.mu.Lock()
		delete(s.inFlight, id)
		s.mu.Unlock()
		return nil, ctx.Err()
	}
}

// buildFrame serialises {type, params, messageId} without round-tripping
// the caller's already-encoded params through a generic map.
func buildFrame(msgType string, params json.RawMessage, id int64) ([]byte, error) {
	frame, err := sjson.SetBytes(nil, "type", msgType)
	if err != nil {
		return nil, err
	}
	frame, err = sjson.SetRawBytes(frame, "params", params)
	if err != nil {
		return nil, err
	}
	frame, err = sjson.SetBytes(frame, "messageId", id)
	if err != nil {
		return nil, err
	}
	return frame, nil
}

// ResetInFlightPromises drops the in-flight table without resolving or
// rejecting any entry.
func (s *Socket) ResetInFlightPromises() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inFlight = make(map[int64]*pendingRequest)
}

// RejectAll drains the in-flight table, rejecting each entry with err.
func (s *Socket) RejectAll(err error) {
	s.mu.Lock()
	pending := s.inFlight
	s.inFlight = make(map[int64]*pendingRequest)
	s.mu.Unlock()

	for _, pr := range pending {
		pr.resultC <- sendResult{err: err}
	}
}

// PendingSummary describes the currently in-flight requests, for
// dumpPendingRequests.
type PendingSummary struct {
	MessageID int64
	Type      string
}

// PendingRequests returns a snapshot of the in-flight table.
func (s *Socket) PendingRequests() []PendingSummary {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]PendingSummary, 0, len(s.inFlight))
	for id, pr := range s.inFlight {
		out = append(out, PendingSummary{MessageID: id, Type: pr.msgType})
	}
	return out
}

// dispatchLoop parses each inbound frame, routes it to a pending
// request by messageId, and otherwise fans it out to event listeners
// by type.
func (s *Socket) dispatchLoop() {
	defer close(s.dispatchDone)

	for {
		select {
		case frame, ok := <-s.tr.Messages():
			if !ok {
				return
			}
			s.handleFrame(frame)
		case err, ok := <-s.tr.Errors():
			if !ok {
				continue
			}
			s.handleTransportError(err)
		}
	}
}

func (s *Socket) handleFrame(frame []byte) {
	peek := gjson.GetManyBytes(frame, "messageId", "type")
	id := peek[0].Int()
	msgType := peek[1].String()

	s.mu.Lock()
	pr, found := s.inFlight[id]
	if found {
		delete(s.inFlight, id)
	}
	s.mu.Unlock()

	if found {
		pr.resultC <- sendResult{raw: frame}
		return
	}

	s.mu.Lock()
	cbs := append([]EventCallback(nil), s.listeners[msgType]...)
	s.mu.Unlock()

	if len(cbs) == 0 {
		s.logger.Debug("dropping unmatched frame", "type", msgType, "messageId", id)
		return
	}

	var env Envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		s.logger.Debug("dropping unparseable frame", "error", err)
		return
	}
	for _, cb := range cbs {
		cb(env)
	}
}

func (s *Socket) handleTransportError(err error) {
	s.mu.Lock()
	hadPending := len(s.inFlight) > 0
	s.mu.Unlock()

	if !hadPending {
		s.logger.Debug("transport error with no in-flight requests", "error", err)
		return
	}
	s.RejectAll(&rpcerrors.TransportError{Cause: err})
}
