package harness

import (
	"fmt"
	"strings"
)

// TraceEvent is one observable effect of the engine, stamped with the
// virtual time at which it happened.
type TraceEvent struct {
	AtMS   int64  `json:"at_ms"`
	Kind   string `json:"kind"`
	Detail string `json:"detail,omitempty"`
}

// Trace event kinds.
const (
	KindCleared  = "cleared"
	KindBuilt    = "built"
	KindCard     = "card"
	KindPopped   = "popped"
	KindCounters = "counters"
	KindJudged   = "judged"
	KindWon      = "won"
	KindCue      = "cue"
)

// Text is the event without its timestamp, as trace assertions see it.
func (e TraceEvent) Text() string {
	if e.Detail == "" {
		return e.Kind
	}
	return e.Kind + " " + e.Detail
}

// String renders the event as a golden trace line.
func (e TraceEvent) String() string {
	return fmt.Sprintf("%04d %s", e.AtMS, e.Text())
}

// Result is the outcome of a test scenario execution.
type Result struct {
	// Pass indicates overall test success.
	// True if all assertions hold.
	Pass bool `json:"pass"`

	// Trace contains every engine effect in order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains assertion failure messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// State is the final snapshot flattened for final_state assertions.
	State map[string]any `json:"state,omitempty"`

	// Board is the final board as drawn by the text renderer.
	Board string `json:"board,omitempty"`
}

// NewResult creates a new passing result.
// Used as the starting point for test execution.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
		State:  make(map[string]any),
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddTrace appends an event to the trace.
func (r *Result) AddTrace(atMS int64, kind, detail string) {
	r.Trace = append(r.Trace, TraceEvent{AtMS: atMS, Kind: kind, Detail: detail})
}

// Transcript is the golden form of a result: one trace line per event, a
// blank line, then the final board.
func (r *Result) Transcript() []byte {
	var buf strings.Builder
	for _, e := range r.Trace {
		buf.WriteString(e.String())
		buf.WriteByte('\n')
	}
	buf.WriteByte('\n')
	buf.WriteString(r.Board)
	return []byte(buf.String())
}
