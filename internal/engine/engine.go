package engine

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/roach88/pairs/internal/audio"
	"github.com/roach88/pairs/internal/board"
	"github.com/roach88/pairs/internal/card"
	"github.com/roach88/pairs/internal/shuffle"
	"github.com/roach88/pairs/internal/store"
)

// Recorder receives the transcript of a game. *store.Store implements it.
// Failures are logged and never affect play.
type Recorder interface {
	WriteSession(ctx context.Context, s store.Session) error
	WriteTurn(ctx context.Context, t store.Turn) error
	WriteWin(ctx context.Context, w store.Win) error
}

// Engine is the single-writer match engine.
//
// Commands (BuildBoard, ClearBoard, SelectCard) and timer completions are
// events on a FIFO queue. One goroutine, in Run or Drain, processes them and
// owns every piece of game state below the queue field.
//
// Thread-safety model:
//   - BuildBoard, ClearBoard, SelectCard, Snapshot: safe from any goroutine
//   - Run / Drain: must be called from exactly one goroutine at a time
type Engine struct {
	faces    []card.FaceID
	src      shuffle.Source
	timing   Timing
	timers   Timers
	sink     audio.Sink
	observer Observer
	recorder Recorder
	sessions SessionIDGenerator
	clock    *Clock
	queue    *eventQueue

	// Loop-owned state.
	board      *board.Board
	session    string
	pending    []*card.Card
	resolving  bool
	cur        *pair
	matches    int
	turns      int
	gameOver   bool
	won        bool
	winMessage string
	timerSeq   uint64
	cancels    map[uint64]func() bool

	mu   sync.RWMutex
	snap Snapshot
}

// EngineOption allows configuration of engine collaborators.
type EngineOption func(*Engine)

// WithTiming sets the durations of every suspension point.
func WithTiming(t Timing) EngineOption {
	return func(e *Engine) { e.timing = t }
}

// WithTimers sets the scheduler (ManualTimers in tests).
func WithTimers(t Timers) EngineOption {
	return func(e *Engine) { e.timers = t }
}

// WithSink sets where audio cues go.
func WithSink(s audio.Sink) EngineOption {
	return func(e *Engine) { e.sink = s }
}

// WithObserver sets the presentation observer.
func WithObserver(o Observer) EngineOption {
	return func(e *Engine) { e.observer = o }
}

// WithRecorder enables the game transcript.
func WithRecorder(r Recorder) EngineOption {
	return func(e *Engine) { e.recorder = r }
}

// WithSessionIDs sets the session ID generator.
func WithSessionIDs(g SessionIDGenerator) EngineOption {
	return func(e *Engine) { e.sessions = g }
}

// WithSource sets the random source used to shuffle boards.
func WithSource(src shuffle.Source) EngineOption {
	return func(e *Engine) { e.src = src }
}

// New creates an engine dealing faces from pool.
//
// The pool is copied. An empty pool is accepted but every build request is
// then ignored.
func New(pool []card.FaceID, opts ...EngineOption) *Engine {
	e := &Engine{
		faces:    slices.Clone(pool),
		src:      shuffle.Default(),
		timing:   DefaultTiming(),
		timers:   RealTimers{},
		sink:     audio.Nop{},
		observer: NopObserver{},
		sessions: UUIDv7Generator{},
		clock:    NewClock(),
		queue:    newEventQueue(),
		cancels:  make(map[uint64]func() bool),
	}

	for _, opt := range opts {
		opt(e)
	}

	e.snap = Snapshot{Cards: []card.View{}}
	return e
}

// BuildBoard requests a fresh rows×cols board. Returns false if stopped.
func (e *Engine) BuildBoard(rows, cols int) bool {
	return e.queue.Enqueue(Event{Type: EventTypeBuild, Rows: rows, Cols: cols})
}

// ClearBoard requests teardown of the current board. Returns false if stopped.
func (e *Engine) ClearBoard() bool {
	return e.queue.Enqueue(Event{Type: EventTypeClear})
}

// SelectCard submits player input for one card. Returns false if stopped.
// Refs from an earlier board are ignored when processed.
func (e *Engine) SelectCard(ref CardRef) bool {
	return e.queue.Enqueue(Event{Type: EventTypeSelect, Card: ref})
}

// Snapshot returns the last published state.
func (e *Engine) Snapshot() Snapshot {
	e.mu.RLock()
	defer e.mu.RUnlock()

	s := e.snap
	s.Cards = slices.Clone(s.Cards)
	s.Pending = slices.Clone(s.Pending)
	return s
}

// QueueLen returns the number of unprocessed events.
func (e *Engine) QueueLen() int {
	return e.queue.Len()
}

// Generation returns the current board generation.
func (e *Engine) Generation() int64 {
	return e.clock.Current()
}

// Run starts the single-writer event loop.
// Blocks until ctx is cancelled or Stop is called.
//
// ERROR HANDLING: a failing event is logged with its context and the loop
// continues.
func (e *Engine) Run(ctx context.Context) error {
	slog.Info("engine starting")

	for {
		if event, ok := e.queue.TryDequeue(); ok {
			if err := e.processEvent(ctx, event); err != nil {
				logEventError(event, err)
			}
			continue
		}

		select {
		case <-ctx.Done():
			slog.Info("engine stopping: context cancelled")
			e.shutdown()
			return ctx.Err()

		case <-e.queue.Wait():
			// The signal channel closes with the queue, which makes this
			// case fire immediately.
			if e.queue.Len() == 0 && e.stopped() {
				slog.Info("engine stopping: queue closed")
				e.shutdown()
				return nil
			}
		}
	}
}

// Drain processes queued events on the calling goroutine until the queue is
// empty and returns how many it handled. Used by tests and the simulator in
// place of Run.
func (e *Engine) Drain(ctx context.Context) int {
	n := 0
	for {
		event, ok := e.queue.TryDequeue()
		if !ok {
			return n
		}
		if err := e.processEvent(ctx, event); err != nil {
			logEventError(event, err)
		}
		n++
	}
}

// Stop closes the queue, which makes Run return.
func (e *Engine) Stop() {
	e.queue.Close()
}

func (e *Engine) stopped() bool {
	e.queue.mu.Lock()
	defer e.queue.mu.Unlock()
	return e.queue.closed
}

// shutdown cancels outstanding timers so nothing fires after Run returns.
func (e *Engine) shutdown() {
	e.queue.Close()
	e.cancelTimers()
}

// processEvent routes an event to its handler.
// CRITICAL: Called only from the loop goroutine.
func (e *Engine) processEvent(ctx context.Context, event Event) error {
	switch event.Type {
	case EventTypeBuild:
		return e.build(ctx, event.Rows, event.Cols)

	case EventTypeClear:
		e.clear()
		return nil

	case EventTypeSelect:
		e.selectCard(event.Card)
		return nil

	case EventTypeTimer:
		delete(e.cancels, event.Seq)
		if event.Gen != e.clock.Current() {
			slog.Debug("dropping stale timer",
				"timer", event.Timer,
				"gen", event.Gen,
				"current", e.clock.Current(),
			)
			return nil
		}
		return e.fire(ctx, event)

	default:
		return fmt.Errorf("unknown event type: %d", event.Type)
	}
}

// build clears the board and deals a new one.
//
// Missing wiring makes the request a no-op that leaves the current board
// alone; nothing partial is ever created.
func (e *Engine) build(ctx context.Context, rows, cols int) error {
	if len(e.faces) == 0 || e.src == nil || e.timers == nil {
		slog.Warn("build ignored: engine is missing faces, source or timers",
			"rows", rows,
			"cols", cols,
		)
		return nil
	}

	e.clear()

	b, err := board.Build(rows, cols, e.faces, e.src, e)
	if err != nil {
		return fmt.Errorf("build board %dx%d: %w", rows, cols, err)
	}
	e.board = b
	e.session = e.sessions.Generate()

	slog.Info("board built",
		"session", e.session,
		"gen", e.clock.Current(),
		"rows", b.Rows,
		"cols", b.Cols,
		"pairs", b.PairsNeeded,
	)

	e.record("session", func() error {
		return e.recorder.WriteSession(ctx, store.Session{
			ID:         e.session,
			Generation: e.clock.Current(),
			Rows:       b.Rows,
			Cols:       b.Cols,
			Pairs:      b.PairsNeeded,
			StartedAt:  time.Now().UTC(),
		})
	})

	e.publish()
	e.observer.BoardBuilt(e.Snapshot())
	return nil
}

// clear tears the board down and invalidates everything in flight.
func (e *Engine) clear() {
	e.cancelTimers()
	gen := e.clock.Next()

	e.board = nil
	e.session = ""
	e.pending = nil
	e.resolving = false
	e.cur = nil
	e.matches = 0
	e.turns = 0
	e.gameOver = false
	e.won = false
	e.winMessage = ""

	slog.Debug("board cleared", "gen", gen)

	e.publish()
	e.observer.BoardCleared(gen)
	e.observer.CountersChanged(0, 0)
}

func (e *Engine) cancelTimers() {
	for _, stop := range e.cancels {
		stop()
	}
	e.cancels = make(map[uint64]func() bool)
}

// selectCard resolves a ref and lets the card run its admission gate.
func (e *Engine) selectCard(ref CardRef) {
	if e.board == nil || ref.Generation != e.clock.Current() {
		slog.Debug("ignoring selection for stale board", "gen", ref.Generation, "index", ref.Index)
		return
	}
	c := e.board.Card(ref.Index)
	if c == nil {
		slog.Debug("ignoring selection out of range", "index", ref.Index)
		return
	}
	c.Click()
}

// CardSelected implements card.Selector. It is only reached through
// Card.Click on the loop goroutine, after the card's own gate passed.
func (e *Engine) CardSelected(c *card.Card) {
	if e.gameOver {
		return
	}
	if !c.BeginReveal() {
		return
	}
	e.sink.Cue(audio.CueFlip)
	e.cardChanged(c)
	e.after(e.timing.halfFlip(), TimerFlipHalf, c.Index())
}

// fire handles a timer of the current generation.
func (e *Engine) fire(ctx context.Context, ev Event) error {
	switch ev.Timer {
	case TimerFlipHalf:
		c, err := e.timerCard(ev)
		if err != nil {
			return err
		}
		c.Midpoint()
		e.cardChanged(c)
		e.after(e.timing.FlipDuration-e.timing.halfFlip(), TimerFlipDone, c.Index())

	case TimerFlipDone:
		c, err := e.timerCard(ev)
		if err != nil {
			return err
		}
		switch c.State() {
		case card.Revealing:
			c.FinishReveal()
			e.cardChanged(c)
			e.revealed(c)
		case card.Hiding:
			c.FinishHide()
			e.cardChanged(c)
			e.hidden(c)
		}

	case TimerJudge:
		e.judge(ctx)

	case TimerPopDone:
		c, err := e.timerCard(ev)
		if err != nil {
			return err
		}
		c.SetPopping(false)
		e.cardChanged(c)

	case TimerWin:
		e.announceWin(ctx)

	default:
		return fmt.Errorf("unknown timer kind: %d", ev.Timer)
	}
	return nil
}

func (e *Engine) timerCard(ev Event) (*card.Card, error) {
	if e.board == nil {
		return nil, fmt.Errorf("%s timer without a board", ev.Timer)
	}
	c := e.board.Card(ev.Index)
	if c == nil {
		return nil, fmt.Errorf("%s timer for unknown card %d", ev.Timer, ev.Index)
	}
	return c, nil
}

// after schedules a timer tagged with the current generation. Its stop
// func is kept until the timer's event is processed or the board clears.
func (e *Engine) after(d time.Duration, kind TimerKind, index int) {
	e.timerSeq++
	ev := Event{
		Type:  EventTypeTimer,
		Timer: kind,
		Gen:   e.clock.Current(),
		Index: index,
		Seq:   e.timerSeq,
	}
	q := e.queue
	e.cancels[ev.Seq] = e.timers.AfterFunc(d, func() { q.Enqueue(ev) })
}

// record runs a transcript write if a recorder is wired.
func (e *Engine) record(what string, write func() error) {
	if e.recorder == nil || e.session == "" {
		return
	}
	if err := write(); err != nil {
		slog.Error("transcript write failed",
			"record", what,
			"session", e.session,
			"error", err,
		)
	}
}

// cardChanged publishes state and tells the observer about one card.
func (e *Engine) cardChanged(c *card.Card) {
	e.publish()
	e.observer.CardChanged(e.clock.Current(), c.View())
}

// publish copies loop-owned state into the snapshot.
func (e *Engine) publish() {
	s := Snapshot{
		Generation: e.clock.Current(),
		Session:    e.session,
		Matches:    e.matches,
		Turns:      e.turns,
		GameOver:   e.gameOver,
		Won:        e.won,
		WinMessage: e.winMessage,
		Resolving:  e.resolving,
		Cards:      []card.View{},
	}
	if e.board != nil {
		s.Rows = e.board.Rows
		s.Cols = e.board.Cols
		s.PairsNeeded = e.board.PairsNeeded
		s.Cards = make([]card.View, len(e.board.Cards))
		for i, c := range e.board.Cards {
			s.Cards[i] = c.View()
		}
	}
	for _, c := range e.pending {
		s.Pending = append(s.Pending, c.Index())
	}

	e.mu.Lock()
	e.snap = s
	e.mu.Unlock()
}

// logEventError logs an event processing failure with full context.
func logEventError(event Event, err error) {
	switch event.Type {
	case EventTypeTimer:
		slog.Error("timer processing failed",
			"error", err,
			"timer", event.Timer,
			"gen", event.Gen,
			"index", event.Index,
		)
	case EventTypeSelect:
		slog.Error("selection processing failed",
			"error", err,
			"gen", event.Card.Generation,
			"index", event.Card.Index,
		)
	default:
		slog.Error("event processing failed",
			"error", err,
			"event_type", event.Type,
		)
	}
}
