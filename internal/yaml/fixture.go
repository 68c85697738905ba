// Package yaml loads multi-envelope RPC scenario fixtures used by the
// rpc test suite to script the steps a test drives against a fake
// transport.
package yaml

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Scenario is a named sequence of steps exchanged between a scripted
// fake transport and the client under test.
type Scenario struct {
	Name  string `yaml:"name"`
	Steps []Step `yaml:"steps"`
}

// Step is one entry in a Scenario. Exactly one of Send or Deliver is
// expected to be set: Send names an action the test driver issues,
// Deliver describes a frame the fake transport pushes back.
type Step struct {
	// Send, when non-empty, documents which client call this step
	// corresponds to. It is not executed automatically; test code
	// matches on it to decide which client method to invoke.
	Send string `yaml:"send,omitempty"`

	// Deliver, when set, describes a frame the fake transport should
	// push back. It is not delivered automatically; test code builds
	// the inbound frame from it, including the messageId.
	Deliver *DeliverFrame `yaml:"deliver,omitempty"`
}

// DeliverFrame is a scripted inbound envelope.
type DeliverFrame struct {
	Type   string                 `yaml:"type"`
	Params map[string]interface{} `yaml:"params"`
	// MatchLatest marks the frame as the reply to the most recently
	// sent request. LoadScenario only records the flag.
	MatchLatest bool `yaml:"matchLatest,omitempty"`
}

// LoadScenario reads and parses a Scenario fixture from path.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario %s: %w", path, err)
	}
	var s Scenario
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse scenario %s: %w", path, err)
	}
	return &s, nil
}
