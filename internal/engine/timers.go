package engine

import "time"

// Timers schedules the engine's suspension points.
//
// AfterFunc must call f once, on any goroutine, after d has elapsed. The
// returned stop function cancels a timer that has not fired yet and reports
// whether it did. The engine's callbacks only enqueue events, so f never
// touches game state directly.
type Timers interface {
	AfterFunc(d time.Duration, f func()) (stop func() bool)
}

// RealTimers schedules on the wall clock via time.AfterFunc.
type RealTimers struct{}

// AfterFunc implements Timers.
func (RealTimers) AfterFunc(d time.Duration, f func()) func() bool {
	return time.AfterFunc(d, f).Stop
}

// Timing holds the durations of every suspension point.
type Timing struct {
	// JudgeDelay is the pause between a pair becoming ready and its judgment.
	JudgeDelay time.Duration
	// WinDelay is the pause between the final match and the win announcement.
	WinDelay time.Duration
	// FlipDuration is the full length of a flip; each half takes half of it.
	FlipDuration time.Duration
	// PopDuration is the length of the match emphasis animation.
	PopDuration time.Duration
	// PopScale is the peak scale of the emphasis animation.
	PopScale float64
}

// DefaultTiming returns the stock durations.
func DefaultTiming() Timing {
	return Timing{
		JudgeDelay:   150 * time.Millisecond,
		WinDelay:     250 * time.Millisecond,
		FlipDuration: 250 * time.Millisecond,
		PopDuration:  120 * time.Millisecond,
		PopScale:     1.08,
	}
}

func (t Timing) halfFlip() time.Duration {
	return t.FlipDuration / 2
}
