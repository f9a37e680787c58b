package harness

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/roach88/pairs/internal/store"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for _, event := range e.Trace {
			fmt.Fprintf(&buf, "  %s\n", event)
		}
	}

	return buf.String()
}

// assertTraceContains checks that some event's text equals assertion.Event.
func assertTraceContains(trace []TraceEvent, assertion Assertion) error {
	for _, event := range trace {
		if event.Text() == assertion.Event {
			return nil
		}
	}

	return &AssertionError{
		Type:     AssertTraceContains,
		Expected: fmt.Sprintf("event %q", assertion.Event),
		Actual:   "not found in trace",
		Trace:    trace,
	}
}

// assertTraceOrder checks that the events appear in the given order.
// Events don't need to be consecutive, and each match must come after the
// previous one, so the same text may be listed more than once.
func assertTraceOrder(trace []TraceEvent, assertion Assertion) error {
	pos := 0
	for i, want := range assertion.Events {
		found := false
		for pos < len(trace) {
			text := trace[pos].Text()
			pos++
			if text == want {
				found = true
				break
			}
		}
		if !found {
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: fmt.Sprintf("events in order: %q", assertion.Events),
				Actual:   fmt.Sprintf("event %d %q not found after the previous one", i, want),
				Trace:    trace,
			}
		}
	}
	return nil
}

// assertTraceCount checks that events of a kind (and detail, if given)
// appear exactly the specified number of times.
func assertTraceCount(trace []TraceEvent, assertion Assertion) error {
	count := 0
	for _, event := range trace {
		if event.Kind != assertion.Kind {
			continue
		}
		if assertion.Detail != "" && event.Detail != assertion.Detail {
			continue
		}
		count++
	}

	if count != assertion.Count {
		what := assertion.Kind
		if assertion.Detail != "" {
			what += " " + assertion.Detail
		}
		return &AssertionError{
			Type:     AssertTraceCount,
			Expected: fmt.Sprintf("%d occurrences of %q", assertion.Count, what),
			Actual:   fmt.Sprintf("%d occurrences", count),
			Trace:    trace,
		}
	}

	return nil
}

// assertFields checks expected values against actual using subset
// semantics: only keys in expected are compared.
func assertFields(kind string, actual, expected map[string]any) error {
	keys := make([]string, 0, len(expected))
	for k := range expected {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		actualValue, exists := actual[key]
		if !exists {
			present := make([]string, 0, len(actual))
			for k := range actual {
				present = append(present, k)
			}
			sort.Strings(present)
			return &AssertionError{
				Type:     kind,
				Expected: fmt.Sprintf("field %q to exist", key),
				Actual:   fmt.Sprintf("field %q not present in: %v", key, present),
			}
		}

		if !valuesEqual(actualValue, expected[key]) {
			return &AssertionError{
				Type:     kind,
				Expected: fmt.Sprintf("field %q = %v", key, expected[key]),
				Actual:   fmt.Sprintf("field %q = %v", key, actualValue),
			}
		}
	}
	return nil
}

// assertTranscript checks the recorded transcript of the last session.
//
// Available fields: sessions, session, rows, cols, pairs, turns, matched,
// won, message.
func assertTranscript(ctx context.Context, st *store.Store, assertion Assertion) error {
	sessions, err := st.ListSessions(ctx)
	if err != nil {
		return fmt.Errorf("list sessions: %w", err)
	}

	actual := map[string]any{"sessions": len(sessions)}
	if len(sessions) > 0 {
		last := sessions[len(sessions)-1]
		turns, err := st.ReadTurns(ctx, last.ID)
		if err != nil {
			return fmt.Errorf("read turns: %w", err)
		}
		matched := 0
		for _, t := range turns {
			if t.Matched {
				matched++
			}
		}

		actual["session"] = last.ID
		actual["rows"] = last.Rows
		actual["cols"] = last.Cols
		actual["pairs"] = last.Pairs
		actual["turns"] = last.Turns
		actual["matched"] = matched
		actual["won"] = last.Won
		if last.Win != nil {
			actual["message"] = last.Win.Message
		}
	}

	return assertFields(AssertTranscript, actual, assertion.Expect)
}

// valuesEqual compares two values for equality after normalizing numbers,
// so YAML ints compare equal to JSON floats. Handles nested maps and slices.
func valuesEqual(actual, expected any) bool {
	return reflect.DeepEqual(normalize(actual), normalize(expected))
}

func normalize(v any) any {
	switch val := v.(type) {
	case int:
		return float64(val)
	case int64:
		return float64(val)
	case uint64:
		return float64(val)
	case float32:
		return float64(val)
	case []any:
		out := make([]any, len(val))
		for i, e := range val {
			out[i] = normalize(e)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, e := range val {
			out[k] = normalize(e)
		}
		return out
	default:
		return v
	}
}

// AssertionContext provides context for evaluating assertions.
type AssertionContext struct {
	Store *store.Store
	Ctx   context.Context
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
// The actx parameter provides database access for transcript assertions.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertTraceContains:
			err = assertTraceContains(result.Trace, assertion)
		case AssertTraceOrder:
			err = assertTraceOrder(result.Trace, assertion)
		case AssertTraceCount:
			err = assertTraceCount(result.Trace, assertion)
		case AssertFinalState:
			err = assertFields(AssertFinalState, result.State, assertion.Expect)
		case AssertTranscript:
			if actx == nil || actx.Store == nil {
				err = fmt.Errorf("assertion[%d]: transcript requires database context", i)
			} else {
				err = assertTranscript(actx.Ctx, actx.Store, assertion)
			}
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}
