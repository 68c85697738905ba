package transport

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// WSConfig configures a WSTransport.
type WSConfig struct {
	// URL is the relay server endpoint, e.g. "wss://relay.example.com/ws".
	URL string

	// HandshakeTimeout bounds the initial dial. Defaults to 30s.
	HandshakeTimeout time.Duration
}

// WSTransport is a Transport backed by a gorilla/websocket connection.
// Its dial/read-loop/mutex shape mirrors a single connection-lifetime
// client: once closed it is not reusable, matching the no-reconnect
// non-goal of the RPC client that owns it.
type WSTransport struct {
	cfg WSConfig

	mu     sync.Mutex
	conn   *websocket.Conn
	open   bool
	closed bool

	messages chan []byte
	errs     chan error
	done     chan struct{}
}

// NewWSTransport constructs a WSTransport for the given config. Call
// Open to dial.
func NewWSTransport(cfg WSConfig) *WSTransport {
	if cfg.HandshakeTimeout == 0 {
		cfg.HandshakeTimeout = 30 * time.Second
	}
	return &WSTransport{
		cfg:      cfg,
		messages: make(chan []byte, 64),
		errs:     make(chan error, 1),
		done:     make(chan struct{}),
	}
}

// Open dials the relay server.
func (t *WSTransport) Open(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.open {
		return fmt.Errorf("transport already open")
	}

	parsed, err := url.Parse(t.cfg.URL)
	if err != nil {
		return fmt.Errorf("invalid relay URL: %w", err)
	}
	switch parsed.Scheme {
	case "http":
		parsed.Scheme = "ws"
	case "https":
		parsed.Scheme = "wss"
	}

	dialer := websocket.Dialer{HandshakeTimeout: t.cfg.HandshakeTimeout}
	conn, _, err := dialer.DialContext(ctx, parsed.String(), nil)
	if err != nil {
		return fmt.Errorf("dial relay: %w", err)
	}

	t.conn = conn
	t.open = true

	go t.readLoop()
	return nil
}

func (t *WSTransport) readLoop() {
	defer close(t.messages)

	for {
		_, frame, err := t.conn.ReadMessage()
		if err != nil {
			t.mu.Lock()
			t.open = false
			t.mu.Unlock()
			select {
			case <-t.done:
			case t.errs <- fmt.Errorf("read: %w", err):
			default:
			}
			return
		}

		select {
		case <-t.done:
			return
		case t.messages <- frame:
		}
	}
}

// Send writes one frame.
func (t *WSTransport) Send(frame []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.open || t.conn == nil {
		return fmt.Errorf("transport not open")
	}
	return t.conn.WriteMessage(websocket.TextMessage, frame)
}

// Messages returns the inbound-frame channel.
func (t *WSTransport) Messages() <-chan []byte { return t.messages }

// Errors returns the async-failure channel.
func (t *WSTransport) Errors() <-chan error { return t.errs }

// IsOpen reports whether the connection is currently believed open.
func (t *WSTransport) IsOpen() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.open
}

// Addr returns the configured relay URL.
func (t *WSTransport) Addr() string { return t.cfg.URL }

// Close closes the underlying connection. Idempotent.
func (t *WSTransport) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	t.open = false
	conn := t.conn
	close(t.done)
	t.mu.Unlock()

	if conn == nil {
		return nil
	}
	_ = conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "client closing"))
	return conn.Close()
}
