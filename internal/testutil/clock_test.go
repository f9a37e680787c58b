package testutil

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManualTimers_StartsAtZero(t *testing.T) {
	m := NewManualTimers()
	assert.Equal(t, time.Duration(0), m.Now())
	assert.Equal(t, 0, m.Pending())

	_, ok := m.Next()
	assert.False(t, ok)
}

func TestManualTimers_FiresInDeadlineOrder(t *testing.T) {
	m := NewManualTimers()
	var order []string

	m.AfterFunc(30*time.Millisecond, func() { order = append(order, "c") })
	m.AfterFunc(10*time.Millisecond, func() { order = append(order, "a") })
	m.AfterFunc(20*time.Millisecond, func() { order = append(order, "b") })
	m.AfterFunc(10*time.Millisecond, func() { order = append(order, "a2") })

	next, ok := m.Next()
	require.True(t, ok)
	assert.Equal(t, 10*time.Millisecond, next)

	assert.Equal(t, 2, m.Advance(15*time.Millisecond))
	assert.Equal(t, []string{"a", "a2"}, order)
	assert.Equal(t, 15*time.Millisecond, m.Now())

	assert.Equal(t, 2, m.Advance(time.Second))
	assert.Equal(t, []string{"a", "a2", "b", "c"}, order)
	assert.Equal(t, 0, m.Pending())
}

func TestManualTimers_Stop(t *testing.T) {
	m := NewManualTimers()
	fired := false

	stop := m.AfterFunc(time.Millisecond, func() { fired = true })
	assert.True(t, stop())
	assert.False(t, stop(), "second stop reports already stopped")

	m.Advance(time.Second)
	assert.False(t, fired)
}

func TestManualTimers_StopAfterFire(t *testing.T) {
	m := NewManualTimers()
	stop := m.AfterFunc(time.Millisecond, func() {})
	m.Advance(time.Millisecond)
	assert.False(t, stop())
}

func TestManualTimers_CallbackMaySchedule(t *testing.T) {
	m := NewManualTimers()
	var order []int

	m.AfterFunc(10*time.Millisecond, func() {
		order = append(order, 1)
		m.AfterFunc(5*time.Millisecond, func() { order = append(order, 2) })
	})

	m.Advance(20 * time.Millisecond)
	assert.Equal(t, []int{1, 2}, order, "chained timer inside the window fires too")
}

func TestManualTimers_ThreadSafe(t *testing.T) {
	m := NewManualTimers()
	var wg sync.WaitGroup
	var mu sync.Mutex
	count := 0

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.AfterFunc(time.Millisecond, func() {
				mu.Lock()
				count++
				mu.Unlock()
			})
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, m.Advance(time.Millisecond))
	assert.Equal(t, 50, count)
}

// chainDrainer reschedules itself a fixed number of times.
type chainDrainer struct {
	m       *ManualTimers
	left    int
	queued  int
	drained int
}

func (c *chainDrainer) Drain(context.Context) int {
	n := c.queued
	c.queued = 0
	for i := 0; i < n; i++ {
		c.drained++
		if c.left > 0 {
			c.left--
			c.m.AfterFunc(10*time.Millisecond, func() { c.queued++ })
		}
	}
	return n
}

func TestSettle_RunsChainToCompletion(t *testing.T) {
	m := NewManualTimers()
	d := &chainDrainer{m: m, left: 3, queued: 1}

	total := Settle(context.Background(), d, m)
	assert.Equal(t, 4, total)
	assert.Equal(t, 30*time.Millisecond, m.Now())
	assert.Equal(t, 0, m.Pending())
}

func TestRunFor_StopsAtDeadline(t *testing.T) {
	m := NewManualTimers()
	d := &chainDrainer{m: m, left: 5, queued: 1}

	total := RunFor(context.Background(), d, m, 25*time.Millisecond)
	assert.Equal(t, 3, total, "initial event plus the chain links at 10ms and 20ms")
	assert.Equal(t, 25*time.Millisecond, m.Now())
	assert.Equal(t, 1, m.Pending())
}
