// Package audio is the fire-and-forget sound side-channel of the game.
//
// The engine only names cues. A Dispatcher turns each cue into a Hint and
// hands it to a Player on a worker goroutine, so a slow or failing player can
// never stall the event loop. When the buffer is full the cue is dropped.
package audio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/roach88/pairs/internal/shuffle"
)

// Cue names a sound effect.
type Cue string

const (
	CueFlip    Cue = "flip"
	CueMatch   Cue = "match"
	CueWrong   Cue = "wrong"
	CueVictory Cue = "victory"
)

// ErrCueUnavailable is returned by players that have no clip for a cue.
var ErrCueUnavailable = errors.New("audio: cue unavailable")

// Hint carries playback parameters for a cue.
type Hint struct {
	Pitch  float64
	Volume float64
}

// Player plays one cue. Implementations may block.
type Player interface {
	Play(cue Cue, hint Hint) error
}

// Sink accepts cues without blocking. The engine depends on this.
type Sink interface {
	Cue(c Cue)
}

// Nop discards every cue.
type Nop struct{}

// Cue implements Sink.
func (Nop) Cue(Cue) {}

// Play implements Player.
func (Nop) Play(Cue, Hint) error { return nil }

// DefaultBuffer is the dispatcher's queue depth.
const DefaultBuffer = 16

type request struct {
	cue  Cue
	hint Hint
}

// Dispatcher is a Sink that plays cues on its own goroutine.
type Dispatcher struct {
	player   Player
	volume   float64
	pitchMin float64
	pitchMax float64

	mu  sync.Mutex
	src shuffle.Source

	reqs chan request
	done chan struct{}
	once sync.Once
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithVolume sets the volume used for every cue.
func WithVolume(v float64) Option {
	return func(d *Dispatcher) { d.volume = v }
}

// WithFlipPitch sets the range the flip cue's pitch is drawn from.
func WithFlipPitch(lo, hi float64) Option {
	return func(d *Dispatcher) { d.pitchMin, d.pitchMax = lo, hi }
}

// WithSource sets the random source for pitch variance.
func WithSource(src shuffle.Source) Option {
	return func(d *Dispatcher) { d.src = src }
}

// WithBuffer sets the queue depth.
func WithBuffer(n int) Option {
	return func(d *Dispatcher) {
		if n > 0 {
			d.reqs = make(chan request, n)
		}
	}
}

// NewDispatcher creates a dispatcher for p. Call Start to begin playback.
func NewDispatcher(p Player, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		player:   p,
		volume:   1,
		pitchMin: 0.97,
		pitchMax: 1.03,
		src:      shuffle.Default(),
		reqs:     make(chan request, DefaultBuffer),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Start runs the playback worker until ctx is done or Close is called.
func (d *Dispatcher) Start(ctx context.Context) {
	go d.loop(ctx)
}

// Close stops the worker. Queued cues are dropped.
func (d *Dispatcher) Close() {
	d.once.Do(func() { close(d.done) })
}

// Cue queues c for playback. It never blocks.
func (d *Dispatcher) Cue(c Cue) {
	select {
	case <-d.done:
		return
	default:
	}

	req := request{cue: c, hint: d.hintFor(c)}
	select {
	case d.reqs <- req:
	default:
		slog.Debug("audio queue full, dropping cue", "cue", c)
	}
}

// hintFor picks the pitch for c. Only the flip cue varies.
func (d *Dispatcher) hintFor(c Cue) Hint {
	h := Hint{Pitch: 1, Volume: d.volume}
	if c != CueFlip || d.pitchMax <= d.pitchMin {
		return h
	}

	d.mu.Lock()
	n := d.src.IntN(1001)
	d.mu.Unlock()

	h.Pitch = d.pitchMin + (d.pitchMax-d.pitchMin)*float64(n)/1000
	return h
}

func (d *Dispatcher) loop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-d.done:
			return
		case req := <-d.reqs:
			d.play(req)
		}
	}
}

// play never lets a player failure escape.
func (d *Dispatcher) play(req request) {
	defer func() {
		if r := recover(); r != nil {
			slog.Warn("audio player panicked", "cue", req.cue, "panic", r)
		}
	}()

	if err := d.player.Play(req.cue, req.hint); err != nil {
		if errors.Is(err, ErrCueUnavailable) {
			slog.Debug("audio cue skipped", "cue", req.cue)
			return
		}
		slog.Debug("audio playback failed", "cue", req.cue, "error", err)
	}
}

// WriterPlayer prints cues as text, e.g. "♪ flip (pitch 1.01)".
// Cues missing from Enabled report ErrCueUnavailable. A nil Enabled set
// enables every cue.
type WriterPlayer struct {
	W       io.Writer
	Enabled map[Cue]bool
}

// Play implements Player.
func (p WriterPlayer) Play(c Cue, h Hint) error {
	if p.Enabled != nil && !p.Enabled[c] {
		return ErrCueUnavailable
	}
	if _, err := fmt.Fprintf(p.W, "♪ %s (pitch %.2f, volume %.2f)\n", c, h.Pitch, h.Volume); err != nil {
		return fmt.Errorf("write cue %s: %w", c, err)
	}
	return nil
}
