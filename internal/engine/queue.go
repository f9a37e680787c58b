package engine

import "sync"

// EventType distinguishes between event kinds.
type EventType int

const (
	// EventTypeBuild asks for a new board of Rows×Cols.
	EventTypeBuild EventType = iota + 1
	// EventTypeClear tears the current board down.
	EventTypeClear
	// EventTypeSelect is player input on one card.
	EventTypeSelect
	// EventTypeTimer is the completion of a suspended operation.
	EventTypeTimer
)

// String returns the event type name used in logs.
func (t EventType) String() string {
	switch t {
	case EventTypeBuild:
		return "build"
	case EventTypeClear:
		return "clear"
	case EventTypeSelect:
		return "select"
	case EventTypeTimer:
		return "timer"
	default:
		return "unknown"
	}
}

// TimerKind names the suspended operation a timer event completes.
type TimerKind int

const (
	// TimerFlipHalf ends the first half of a flip (face swap).
	TimerFlipHalf TimerKind = iota + 1
	// TimerFlipDone ends the second half of a flip.
	TimerFlipDone
	// TimerJudge ends the pause before a pair is judged.
	TimerJudge
	// TimerPopDone ends a match emphasis animation.
	TimerPopDone
	// TimerWin ends the pause before the win is announced.
	TimerWin
)

// String returns the timer kind name used in logs.
func (k TimerKind) String() string {
	switch k {
	case TimerFlipHalf:
		return "flip_half"
	case TimerFlipDone:
		return "flip_done"
	case TimerJudge:
		return "judge"
	case TimerPopDone:
		return "pop_done"
	case TimerWin:
		return "win"
	default:
		return "unknown"
	}
}

// CardRef addresses a card on a specific board generation.
type CardRef struct {
	Generation int64 `json:"generation"`
	Index      int   `json:"index"`
}

// Event is one unit of work for the engine loop.
type Event struct {
	Type EventType

	// Build
	Rows int
	Cols int

	// Select
	Card CardRef

	// Timer: Gen is the generation the timer was scheduled under and Index
	// the card it concerns (-1 for board-wide timers). Seq identifies the
	// timer within the engine.
	Timer TimerKind
	Gen   int64
	Index int
	Seq   uint64
}

// eventQueue is a thread-safe FIFO queue for events.
//
// The queue is unbounded so timer callbacks and input handlers never block
// on the loop.
//
// The queue uses a channel for signaling to enable context-aware waiting
// in the Run loop.
type eventQueue struct {
	mu     sync.Mutex
	events []Event
	closed bool
	signal chan struct{} // Signals event availability (buffered, size 1)
}

// newEventQueue creates an empty event queue.
func newEventQueue() *eventQueue {
	return &eventQueue{
		events: make([]Event, 0, 32),
		signal: make(chan struct{}, 1),
	}
}

// Enqueue adds an event to the back of the queue.
// Thread-safe: may be called from any goroutine.
// Returns false if the queue is closed.
func (q *eventQueue) Enqueue(e Event) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}

	q.events = append(q.events, e)

	// Non-blocking; a buffer of 1 coalesces multiple signals.
	select {
	case q.signal <- struct{}{}:
	default:
	}

	return true
}

// TryDequeue removes the front event without blocking.
// Returns (Event{}, false) if queue is empty.
func (q *eventQueue) TryDequeue() (Event, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.events) == 0 {
		return Event{}, false
	}

	e := q.events[0]
	if len(q.events) == 1 {
		q.events = q.events[:0]
	} else {
		q.events = q.events[1:]
	}

	return e, true
}

// Wait returns a channel that signals when events may be available.
//
//	select {
//	case <-ctx.Done():
//	    return ctx.Err()
//	case <-q.Wait():
//	    // Try TryDequeue
//	}
func (q *eventQueue) Wait() <-chan struct{} {
	return q.signal
}

// Len returns the current queue length.
func (q *eventQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.events)
}

// Close signals that no more events will be enqueued and wakes waiters.
func (q *eventQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}

	q.closed = true
	close(q.signal)
}
