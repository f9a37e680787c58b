package harness

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/roach88/pairs/internal/audio"
	"github.com/roach88/pairs/internal/card"
	"github.com/roach88/pairs/internal/engine"
	"github.com/roach88/pairs/internal/render"
	"github.com/roach88/pairs/internal/shuffle"
	"github.com/roach88/pairs/internal/store"
	"github.com/roach88/pairs/internal/testutil"
)

// Harness is the test execution engine.
// It drives a real engine on manual timers with fixed session IDs, so every
// run of a scenario produces the same trace.
type Harness struct {
	store  *store.Store
	engine *engine.Engine
	timers *testutil.ManualTimers

	// stale is the snapshot of the board before the current one.
	stale engine.Snapshot
}

// Run executes a test scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation.
//
// Execution flow:
// 1. Create fresh in-memory transcript store
// 2. Wire an engine with manual timers and a tracing observer
// 3. Build the initial board
// 4. Execute steps
// 5. Capture final state and evaluate assertions
func Run(scenario *Scenario) (*Result, error) {
	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	timers := testutil.NewManualTimers()
	result := NewResult()
	tr := &tracer{timers: timers, result: result}

	pool := make([]card.FaceID, len(scenario.Faces))
	for i, f := range scenario.Faces {
		pool[i] = card.FaceID(f)
	}

	eng := engine.New(pool,
		engine.WithTimers(timers),
		engine.WithTiming(scenario.Timing.resolve()),
		engine.WithSource(scenario.Layout.source()),
		engine.WithSink(tr),
		engine.WithObserver(tr),
		engine.WithRecorder(st),
		engine.WithSessionIDs(testutil.NewFixedSessionGenerator(scenario.Session)),
	)

	h := &Harness{
		store:  st,
		engine: eng,
		timers: timers,
	}

	ctx := context.Background()

	if err := h.build(ctx, scenario.Rows, scenario.Cols); err != nil {
		return nil, fmt.Errorf("failed to build initial board: %w", err)
	}

	for i, step := range scenario.Steps {
		if err := h.executeStep(ctx, step); err != nil {
			return nil, fmt.Errorf("failed to execute step %d: %w", i, err)
		}
	}

	snap := eng.Snapshot()
	result.State, err = flattenSnapshot(snap)
	if err != nil {
		return nil, fmt.Errorf("failed to capture final state: %w", err)
	}
	var board bytes.Buffer
	if err := render.Board(&board, snap); err != nil {
		return nil, fmt.Errorf("failed to render final board: %w", err)
	}
	result.Board = board.String()

	actx := &AssertionContext{
		Store: st,
		Ctx:   ctx,
	}
	for _, msg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(msg)
	}

	return result, nil
}

// executeStep performs one scripted action and processes everything it
// enqueued before returning.
func (h *Harness) executeStep(ctx context.Context, step Step) error {
	switch {
	case len(step.Select) > 0:
		return h.selectCards(ctx, h.engine.Snapshot(), step.Select)

	case len(step.SelectStale) > 0:
		return h.selectCards(ctx, h.stale, step.SelectStale)

	case step.WaitMS > 0:
		testutil.RunFor(ctx, h.engine, h.timers, time.Duration(step.WaitMS)*time.Millisecond)

	case step.Settle:
		testutil.Settle(ctx, h.engine, h.timers)

	case step.Build != nil:
		return h.build(ctx, step.Build.Rows, step.Build.Cols)

	case step.Clear:
		h.stale = h.engine.Snapshot()
		if !h.engine.ClearBoard() {
			return fmt.Errorf("engine refused clear")
		}
		h.engine.Drain(ctx)
	}
	return nil
}

func (h *Harness) build(ctx context.Context, rows, cols int) error {
	h.stale = h.engine.Snapshot()
	if !h.engine.BuildBoard(rows, cols) {
		return fmt.Errorf("engine refused build")
	}
	h.engine.Drain(ctx)
	return nil
}

func (h *Harness) selectCards(ctx context.Context, snap engine.Snapshot, indexes []int) error {
	for _, i := range indexes {
		if !h.engine.SelectCard(snap.Ref(i)) {
			return fmt.Errorf("engine refused selection of card %d", i)
		}
	}
	h.engine.Drain(ctx)
	return nil
}

// flattenSnapshot turns a snapshot into the field map final_state
// assertions match against. Card views are replaced by per-card lists.
func flattenSnapshot(s engine.Snapshot) (map[string]any, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	state := make(map[string]any)
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, err
	}
	delete(state, "cards")

	pending := make([]any, len(s.Pending))
	for i, p := range s.Pending {
		pending[i] = p
	}
	states := make([]any, len(s.Cards))
	visible := make([]any, len(s.Cards))
	for i, v := range s.Cards {
		states[i] = v.State
		visible[i] = string(v.Visible)
	}
	state["pending"] = pending
	state["card_states"] = states
	state["visible"] = visible
	return state, nil
}

// resolve applies overrides on top of the default durations.
func (t *Timing) resolve() engine.Timing {
	out := engine.DefaultTiming()
	if t == nil {
		return out
	}
	set := func(dst *time.Duration, ms *int) {
		if ms != nil {
			*dst = time.Duration(*ms) * time.Millisecond
		}
	}
	set(&out.JudgeDelay, t.JudgeDelayMS)
	set(&out.WinDelay, t.WinDelayMS)
	set(&out.FlipDuration, t.FlipMS)
	set(&out.PopDuration, t.PopMS)
	return out
}

// source returns the shuffle source the layout asks for.
func (l *Layout) source() shuffle.Source {
	switch {
	case l == nil:
		return shuffle.Identity{}
	case l.Seed != nil:
		return shuffle.NewSource(*l.Seed)
	case len(l.Draws) > 0:
		return shuffle.NewScripted(l.Draws...)
	default:
		return shuffle.Identity{}
	}
}

// tracer records every observer notification and audio cue as a trace
// event at the current virtual time.
type tracer struct {
	timers *testutil.ManualTimers
	result *Result
}

func (t *tracer) add(kind, detail string) {
	t.result.AddTrace(t.timers.Now().Milliseconds(), kind, detail)
}

func (t *tracer) Cue(c audio.Cue) {
	t.add(KindCue, string(c))
}

func (t *tracer) BoardBuilt(s engine.Snapshot) {
	t.add(KindBuilt, fmt.Sprintf("%d×%d pairs=%d gen=%d", s.Rows, s.Cols, s.PairsNeeded, s.Generation))
}

func (t *tracer) BoardCleared(gen int64) {
	t.add(KindCleared, fmt.Sprintf("gen=%d", gen))
}

func (t *tracer) CardChanged(_ int64, v card.View) {
	face := string(v.Visible)
	if v.Visible == card.HiddenFace {
		face = "?"
	}
	detail := fmt.Sprintf("%d %s %s", v.Index, v.State, face)
	if v.Popping {
		detail += " pop"
	}
	t.add(KindCard, detail)
}

func (t *tracer) CardPopped(_ int64, index int, scale float64, d time.Duration) {
	t.add(KindPopped, fmt.Sprintf("%d scale=%.2f for=%s", index, scale, d))
}

func (t *tracer) CountersChanged(matches, turns int) {
	t.add(KindCounters, fmt.Sprintf("matches=%d turns=%d", matches, turns))
}

func (t *tracer) PairJudged(a, b int, matched bool) {
	outcome := "mismatch"
	if matched {
		outcome = "match"
	}
	t.add(KindJudged, fmt.Sprintf("%d,%d %s", a, b, outcome))
}

func (t *tracer) Won(message string) {
	t.add(KindWon, message)
}
