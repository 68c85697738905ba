package socket

import (
	"context"
	"sync"
)

// fakeTransport is an in-memory transport.Transport for exercising the
// Socket's dispatch logic without a real connection.
type fakeTransport struct {
	mu   sync.Mutex
	open bool

	sent     [][]byte
	messages chan []byte
	errs     chan error

	openErr error
	sendErr error
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		messages: make(chan []byte, 16),
		errs:     make(chan error, 4),
	}
}

func (f *fakeTransport) Open(ctx context.Context) error {
	if f.openErr != nil {
		return f.openErr
	}
	f.mu.Lock()
	f.open = true
	f.mu.Unlock()
	return nil
}

func (f *fakeTransport) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.open {
		return nil
	}
	f.open = false
	close(f.messages)
	return nil
}

func (f *fakeTransport) Send(frame []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.open {
		return errClosed
	}
	if f.sendErr != nil {
		return f.sendErr
	}
	cp := append([]byte(nil), frame...)
	f.sent = append(f.sent, cp)
	return nil
}

func (f *fakeTransport) Messages() <-chan []byte { return f.messages }
func (f *fakeTransport) Errors() <-chan error    { return f.errs }

func (f *fakeTransport) IsOpen() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.open
}

func (f *fakeTransport) Addr() string { return "fake://relay.test" }

// deliver injects an inbound frame as if received from the relay.
func (f *fakeTransport) deliver(frame []byte) {
	f.messages <- frame
}

// fail injects an asynchronous transport error.
func (f *fakeTransport) fail(err error) {
	f.errs <- err
}

func (f *fakeTransport) lastSent() []byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.sent) == 0 {
		return nil
	}
	return f.sent[len(f.sent)-1]
}

func (f *fakeTransport) sentCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

type fakeErr string

func (e fakeErr) Error() string { return string(e) }

const errClosed = fakeErr("transport closed")
