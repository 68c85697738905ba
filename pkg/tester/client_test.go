package tester

import (
	"context"
	"testing"
	"time"

	"github.com/tidwall/gjson"
)

func waitForSentCount(t *testing.T, tr *fakeTransport, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for tr.sentCount() < n {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %d sends, have %d", n, tr.sentCount())
		}
		time.Sleep(time.Millisecond)
	}
}

func TestClientConnectAndWaitUntilReady(t *testing.T) {
	tr := newFakeTransport()
	client := New(SessionConfig{
		Server:    "ws://relay.test",
		SessionID: "integration-session",
	}, WithTransport(tr))

	done := make(chan error, 1)
	go func() { done <- client.Connect(context.Background()) }()

	waitForSentCount(t, tr, 1)
	loginFrame := tr.sentAt(0)
	loginID := gjson.GetBytes(loginFrame, "messageId").Int()
	tr.deliver([]byte(`{"type":"loginSuccess","params":{},"messageId":` +
		gjson.GetBytes(loginFrame, "messageId").Raw + `}`))
	if err := <-done; err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if loginID != 0 {
		t.Fatalf("expected the first frame sent to carry messageId 0, got %d", loginID)
	}

	tr.deliver([]byte(`{"type":"appConnected","params":{},"messageId":-10002}`))
	deadline := time.Now().Add(time.Second)
	for !client.IsConnected() {
		if time.Now().After(deadline) {
			t.Fatal("timed out waiting for IsConnected")
		}
		time.Sleep(time.Millisecond)
	}

	readyResult := make(chan error, 1)
	go func() {
		_, err := client.WaitUntilReady(context.Background())
		readyResult <- err
	}()
	waitForSentCount(t, tr, 2)
	readyFrame := tr.sentAt(1)
	tr.deliver([]byte(`{"type":"ready","params":{},"messageId":` +
		gjson.GetBytes(readyFrame, "messageId").Raw + `}`))

	if err := <-readyResult; err != nil {
		t.Fatalf("WaitUntilReady: %v", err)
	}
}

func TestNewWithOTLPEndpointConstructsBatchingProvider(t *testing.T) {
	tr := newFakeTransport()
	client := New(SessionConfig{Server: "ws://relay.test", SessionID: "s"},
		WithTransport(tr), WithOTLPEndpoint("otel-collector.test:4318"))
	if client == nil {
		t.Fatal("expected a non-nil client")
	}
}

func TestClientCleanupWithoutConnect(t *testing.T) {
	tr := newFakeTransport()
	client := New(SessionConfig{Server: "ws://relay.test", SessionID: "s"}, WithTransport(tr))

	if err := client.Cleanup(context.Background()); err != nil {
		t.Fatalf("Cleanup: %v", err)
	}
	if tr.sentCount() != 0 {
		t.Fatalf("expected no sends, got %d", tr.sentCount())
	}
}
