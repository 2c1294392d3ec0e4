package harness

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"
)

// Scenario defines one lifecycle conformance scenario.
type Scenario struct {
	Name string `yaml:"name"`

	// Accounts funds the balance book before the first step. The engine's
	// escrow account is always "escrow".
	Accounts []Account `yaml:"accounts"`

	Steps []Step `yaml:"steps"`

	// Final asserts on state after the last step. Optional.
	Final *FinalState `yaml:"final"`
}

// Account is a (token, account, amount) funding or balance expectation.
type Account struct {
	Token   string `yaml:"token"`
	Account string `yaml:"account"`
	Amount  uint64 `yaml:"amount"`
}

// Step is one operation in a scenario. Op selects which fields apply:
//
//	create  - caller, end_time, ticket_price, max_entrants, total_prizes
//	buy     - caller, raffle, amount, token
//	advance - to or by (clock control, not an engine operation)
//	reveal  - raffle
//	claim   - caller, raffle, prize, ticket, token, amount
//	collect - caller, raffle, token, amount
//	close   - caller, raffle
//
// want_error names the error code the step must fail with; an empty
// want_error means the step must succeed.
type Step struct {
	Op     string `yaml:"op"`
	Caller string `yaml:"caller"`
	Raffle uint64 `yaml:"raffle"`

	EndTime     int64  `yaml:"end_time"`
	TicketPrice uint64 `yaml:"ticket_price"`
	MaxEntrants uint64 `yaml:"max_entrants"`
	TotalPrizes uint64 `yaml:"total_prizes"`

	Amount uint64 `yaml:"amount"`
	Token  string `yaml:"token"`

	Prize  uint64 `yaml:"prize"`
	Ticket uint64 `yaml:"ticket"`

	To int64 `yaml:"to"`
	By int64 `yaml:"by"`

	WantError string `yaml:"want_error"`
}

// FinalState asserts on one raffle and the balance book after the run.
type FinalState struct {
	Raffle uint64 `yaml:"raffle"`

	// Deleted asserts the raffle no longer exists (terminal closure).
	Deleted bool `yaml:"deleted"`

	TotalEntrants *uint64 `yaml:"total_entrants"`
	ClaimedPrizes *uint64 `yaml:"claimed_prizes"`
	SeedSet       *bool   `yaml:"seed_set"`

	Balances []Account `yaml:"balances"`
}

// LoadScenario reads and validates a scenario YAML file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}

	var s Scenario
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse scenario %s: %w", path, err)
	}

	if err := s.validate(); err != nil {
		return nil, fmt.Errorf("scenario %s: %w", path, err)
	}
	return &s, nil
}

// LoadDir loads every *.yaml scenario in a directory, sorted by file
// name for deterministic test ordering.
func LoadDir(dir string) ([]*Scenario, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*.yaml"))
	if err != nil {
		return nil, fmt.Errorf("glob scenarios: %w", err)
	}
	sort.Strings(matches)

	var scenarios []*Scenario
	for _, path := range matches {
		s, err := LoadScenario(path)
		if err != nil {
			return nil, err
		}
		scenarios = append(scenarios, s)
	}
	return scenarios, nil
}

var knownOps = map[string]bool{
	"create":  true,
	"buy":     true,
	"advance": true,
	"reveal":  true,
	"claim":   true,
	"collect": true,
	"close":   true,
}

// validate rejects scenarios the runner could not execute meaningfully.
func (s *Scenario) validate() error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("at least one step is required")
	}
	for i, step := range s.Steps {
		if !knownOps[step.Op] {
			return fmt.Errorf("step %d: unknown op %q", i+1, step.Op)
		}
		if step.Op == "advance" && step.To == 0 && step.By == 0 {
			return fmt.Errorf("step %d: advance needs to or by", i+1)
		}
		if step.Op == "advance" && step.WantError != "" {
			return fmt.Errorf("step %d: advance cannot fail", i+1)
		}
	}
	return nil
}
