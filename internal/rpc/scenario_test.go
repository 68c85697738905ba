package rpc

import (
	"context"
	"testing"
	"time"

	"github.com/revyl/tester-rpc/internal/yaml"
)

// TestLoginAndReadyScenarioFixture drives the login + waitUntilReady
// exchange with the response types taken from a checked-in scenario
// fixture, exercising the same path as TestConnectLoginSuccess against
// a richer, file-backed script.
func TestLoginAndReadyScenarioFixture(t *testing.T) {
	scenario, err := yaml.LoadScenario("testdata/login_and_ready.yaml")
	if err != nil {
		t.Fatalf("LoadScenario: %v", err)
	}

	c, tr := newTestClient(t, 0)

	connectDone := make(chan error, 1)
	go func() { connectDone <- c.Connect(context.Background()) }()

	waitForSentCount(t, tr, 1)
	loginFrame := tr.sentAt(0)
	step := scenario.Steps[1]
	if step.Deliver == nil || step.Deliver.Type != "loginSuccess" {
		t.Fatalf("fixture step 1 is not a loginSuccess delivery: %+v", step)
	}
	tr.deliver([]byte(`{"type":"` + step.Deliver.Type + `","params":{},"messageId":` +
		idStr(messageIDOf(loginFrame)) + `}`))
	if err := <-connectDone; err != nil {
		t.Fatalf("Connect: %v", err)
	}

	tr.deliver([]byte(`{"type":"appConnected","params":{},"messageId":-10002}`))
	deadline := time.Now().Add(time.Second)
	for !c.IsConnected() {
		if time.Now().After(deadline) {
			t.Fatal("timed out waiting for appConnected dispatch")
		}
		time.Sleep(time.Millisecond)
	}

	readyDone := make(chan error, 1)
	go func() {
		_, err := c.WaitUntilReady(context.Background())
		readyDone <- err
	}()
	waitForSentCount(t, tr, 2)
	readyFrame := tr.sentAt(1)
	readyStep := scenario.Steps[3]
	if readyStep.Deliver == nil || readyStep.Deliver.Type != "ready" {
		t.Fatalf("fixture step 3 is not a ready delivery: %+v", readyStep)
	}
	tr.deliver([]byte(`{"type":"` + readyStep.Deliver.Type + `","params":{},"messageId":` +
		idStr(messageIDOf(readyFrame)) + `}`))

	if err := <-readyDone; err != nil {
		t.Fatalf("WaitUntilReady: %v", err)
	}
}
