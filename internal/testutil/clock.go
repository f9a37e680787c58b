package testutil

import (
	"context"
	"sort"
	"sync"
	"time"
)

// ManualTimers is a virtual clock that implements engine.Timers.
//
// Nothing fires on its own: time only moves when Advance is called, and due
// callbacks run on the caller's goroutine in deadline order (ties in
// scheduling order). This makes every timer-driven path in the engine
// reproducible.
//
// Thread-safety: all methods are safe for concurrent use. Callbacks run
// without the lock held, so they may schedule further timers.
type ManualTimers struct {
	mu     sync.Mutex
	now    time.Duration
	seq    int64
	timers []*manualTimer
}

type manualTimer struct {
	at   time.Duration
	seq  int64
	f    func()
	done bool
}

// NewManualTimers creates a virtual clock at time zero.
func NewManualTimers() *ManualTimers {
	return &ManualTimers{}
}

// AfterFunc schedules f to run once the virtual clock passes d from now.
func (m *ManualTimers) AfterFunc(d time.Duration, f func()) func() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if d < 0 {
		d = 0
	}
	m.seq++
	t := &manualTimer{at: m.now + d, seq: m.seq, f: f}
	m.timers = append(m.timers, t)

	return func() bool {
		m.mu.Lock()
		defer m.mu.Unlock()
		if t.done {
			return false
		}
		t.done = true
		m.remove(t)
		return true
	}
}

// Now returns the virtual time elapsed since creation.
func (m *ManualTimers) Now() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// Pending returns the number of timers that have neither fired nor been
// stopped.
func (m *ManualTimers) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.timers)
}

// Next returns how far away the earliest pending deadline is.
// ok is false when nothing is scheduled.
func (m *ManualTimers) Next() (d time.Duration, ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t := m.earliest()
	if t == nil {
		return 0, false
	}
	return t.at - m.now, true
}

// Advance moves the clock forward by d, firing every timer that falls due.
// Returns the number of callbacks run.
func (m *ManualTimers) Advance(d time.Duration) int {
	m.mu.Lock()
	target := m.now + d
	m.mu.Unlock()

	fired := 0
	for {
		m.mu.Lock()
		t := m.earliest()
		if t == nil || t.at > target {
			m.now = target
			m.mu.Unlock()
			return fired
		}
		t.done = true
		m.remove(t)
		m.now = t.at
		m.mu.Unlock()

		t.f()
		fired++
	}
}

func (m *ManualTimers) earliest() *manualTimer {
	if len(m.timers) == 0 {
		return nil
	}
	sort.SliceStable(m.timers, func(i, j int) bool {
		if m.timers[i].at != m.timers[j].at {
			return m.timers[i].at < m.timers[j].at
		}
		return m.timers[i].seq < m.timers[j].seq
	})
	return m.timers[0]
}

func (m *ManualTimers) remove(t *manualTimer) {
	for i, x := range m.timers {
		if x == t {
			m.timers = append(m.timers[:i], m.timers[i+1:]...)
			return
		}
	}
}

// Drainer processes queued work synchronously. *engine.Engine implements it.
type Drainer interface {
	Drain(ctx context.Context) int
}

// maxSteps bounds Settle so a scheduling loop fails a test instead of hanging.
const maxSteps = 100000

// Settle alternates draining and advancing to the next deadline until no
// timers remain. Returns the total number of events drained.
func Settle(ctx context.Context, d Drainer, m *ManualTimers) int {
	total := d.Drain(ctx)
	for i := 0; i < maxSteps; i++ {
		next, ok := m.Next()
		if !ok {
			return total
		}
		m.Advance(next)
		total += d.Drain(ctx)
	}
	return total
}

// RunFor is Settle bounded by virtual time: it stops once dur has elapsed,
// leaving later timers pending.
func RunFor(ctx context.Context, d Drainer, m *ManualTimers, dur time.Duration) int {
	deadline := m.Now() + dur
	total := d.Drain(ctx)
	for i := 0; i < maxSteps; i++ {
		next, ok := m.Next()
		if !ok || m.Now()+next > deadline {
			m.Advance(deadline - m.Now())
			return total + d.Drain(ctx)
		}
		m.Advance(next)
		total += d.Drain(ctx)
	}
	return total
}
