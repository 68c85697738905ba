package yaml

import "testing"

func TestLoadScenarioLoginAndReady(t *testing.T) {
	s, err := LoadScenario("testdata/login_and_ready.yaml")
	if err != nil {
		t.Fatalf("LoadScenario: %v", err)
	}
	if s.Name != "login-and-ready" {
		t.Fatalf("unexpected scenario name: %s", s.Name)
	}
	if len(s.Steps) != 4 {
		t.Fatalf("expected 4 steps, got %d", len(s.Steps))
	}
	if s.Steps[0].Send != "login" {
		t.Fatalf("expected first step to send login, got %q", s.Steps[0].Send)
	}
	if s.Steps[1].Deliver == nil || s.Steps[1].Deliver.Type != "loginSuccess" {
		t.Fatalf("expected second step to deliver loginSuccess, got %+v", s.Steps[1].Deliver)
	}
}

func TestLoadScenarioMissingFile(t *testing.T) {
	if _, err := LoadScenario("testdata/does-not-exist.yaml"); err == nil {
		t.Fatal("expected an error for a missing fixture")
	}
}
