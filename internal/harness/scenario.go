package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Scenario defines a deterministic game script.
// The harness builds the initial board, runs the steps on virtual time and
// then checks the assertions against the trace and final state.
type Scenario struct {
	// Name uniquely identifies this scenario. Golden files are named after it.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Rows and Cols size the initial board.
	Rows int `yaml:"rows"`
	Cols int `yaml:"cols"`

	// Faces is the face pool.
	Faces []string `yaml:"faces"`

	// Layout pins the shuffle. Omitted means the identity layout, where
	// pair i occupies slots 2i and 2i+1.
	Layout *Layout `yaml:"layout,omitempty"`

	// Timing overrides the default durations.
	Timing *Timing `yaml:"timing,omitempty"`

	// Session is the fixed session ID. Defaults to "test-session-default".
	Session string `yaml:"session,omitempty"`

	// Steps drive the engine after the initial board is built.
	Steps []Step `yaml:"steps"`

	// Assertions validate the final trace and state.
	// Supported types: trace_contains, trace_order, trace_count,
	// final_state, transcript
	Assertions []Assertion `yaml:"assertions"`
}

// Layout chooses the random source for board shuffles.
// At most one of Seed and Draws may be set.
type Layout struct {
	Seed  *uint64 `yaml:"seed,omitempty"`
	Draws []int   `yaml:"draws,omitempty"`
}

// Timing overrides engine durations, in milliseconds.
type Timing struct {
	JudgeDelayMS *int `yaml:"judge_delay_ms,omitempty"`
	WinDelayMS   *int `yaml:"win_delay_ms,omitempty"`
	FlipMS       *int `yaml:"flip_ms,omitempty"`
	PopMS        *int `yaml:"pop_ms,omitempty"`
}

// Step is one action. Exactly one field must be set.
type Step struct {
	// Select clicks the given card indexes, in order, on the current board.
	Select []int `yaml:"select,omitempty"`

	// SelectStale clicks indexes using refs from the board before the
	// current one.
	SelectStale []int `yaml:"select_stale,omitempty"`

	// WaitMS advances virtual time, processing everything that falls due.
	WaitMS int `yaml:"wait_ms,omitempty"`

	// Settle runs until no timers remain.
	Settle bool `yaml:"settle,omitempty"`

	// Build requests a new board.
	Build *BuildStep `yaml:"build,omitempty"`

	// Clear tears the board down.
	Clear bool `yaml:"clear,omitempty"`
}

// BuildStep requests a rows×cols board.
type BuildStep struct {
	Rows int `yaml:"rows"`
	Cols int `yaml:"cols"`
}

// Assertion validates trace or final state.
type Assertion struct {
	// Type specifies the assertion type:
	// - "trace_contains": an event with Event text appears in the trace
	// - "trace_order": the Events appear in order (gaps allowed)
	// - "trace_count": events of Kind (and Detail, if set) appear Count times
	// - "final_state": snapshot fields match Expect (subset match)
	// - "transcript": recorded session fields match Expect (subset match)
	Type string `yaml:"type"`

	// Event is the event text, "kind detail" (used by trace_contains).
	Event string `yaml:"event,omitempty"`

	// Events is the expected event order (used by trace_order).
	Events []string `yaml:"events,omitempty"`

	// Kind and Detail select events (used by trace_count).
	Kind   string `yaml:"kind,omitempty"`
	Detail string `yaml:"detail,omitempty"`

	// Count is the expected number of occurrences (used by trace_count).
	Count int `yaml:"count,omitempty"`

	// Expect contains expected field values (used by final_state and
	// transcript). Subset match - only specified fields are validated.
	Expect map[string]any `yaml:"expect,omitempty"`
}

// Assertion type constants.
const (
	AssertTraceContains = "trace_contains"
	AssertTraceOrder    = "trace_order"
	AssertTraceCount    = "trace_count"
	AssertFinalState    = "final_state"
	AssertTranscript    = "transcript"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Strict decoding catches typos like "assertion:" vs "assertions:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if s.Rows < 1 || s.Cols < 1 {
		return fmt.Errorf("rows and cols must be at least 1")
	}

	if len(s.Faces) == 0 {
		return fmt.Errorf("faces list is required and must be non-empty")
	}

	if s.Layout != nil && s.Layout.Seed != nil && len(s.Layout.Draws) > 0 {
		return fmt.Errorf("layout: seed and draws are mutually exclusive")
	}

	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	for i, step := range s.Steps {
		if err := validateStep(i, step); err != nil {
			return err
		}
	}

	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

// validateStep requires exactly one action per step.
func validateStep(index int, st Step) error {
	set := 0
	if len(st.Select) > 0 {
		set++
	}
	if len(st.SelectStale) > 0 {
		set++
	}
	if st.WaitMS != 0 {
		set++
		if st.WaitMS < 0 {
			return fmt.Errorf("steps[%d]: wait_ms must be positive", index)
		}
	}
	if st.Settle {
		set++
	}
	if st.Build != nil {
		set++
	}
	if st.Clear {
		set++
	}

	switch set {
	case 0:
		return fmt.Errorf("steps[%d]: one of select, select_stale, wait_ms, settle, build, clear is required", index)
	case 1:
		return nil
	default:
		return fmt.Errorf("steps[%d]: only one action per step", index)
	}
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertTraceContains:
		if a.Event == "" {
			return fmt.Errorf("assertions[%d]: event is required for trace_contains", index)
		}
	case AssertTraceOrder:
		if len(a.Events) == 0 {
			return fmt.Errorf("assertions[%d]: events list is required for trace_order", index)
		}
	case AssertTraceCount:
		if a.Kind == "" {
			return fmt.Errorf("assertions[%d]: kind is required for trace_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for trace_count", index)
		}
	case AssertFinalState, AssertTranscript:
		if len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect is required for %s", index, a.Type)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
