package tester

import (
	"context"
	"sync"
)

// fakeTransport is an in-memory transport.Transport for exercising the
// public facade end to end without a real relay connection.
type fakeTransport struct {
	mu       sync.Mutex
	open     bool
	sent     [][]byte
	messages chan []byte
	errs     chan error
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		messages: make(chan []byte, 32),
		errs:     make(chan error, 4),
	}
}

func (f *fakeTransport) Open(ctx context.Context) error {
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
		return fakeErr("transport closed")
	}
	f.sent = append(f.sent, append([]byte(nil), frame...))
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

func (f *fakeTransport) deliver(frame []byte) { f.messages <- frame }

func (f *fakeTransport) sentCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

func (f *fakeTransport) sentAt(i int) []byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sent[i]
}

type fakeErr string

func (e fakeErr) Error() string { return string(e) }
