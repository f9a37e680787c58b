package audio

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/pairs/internal/shuffle"
)

type played struct {
	cue  Cue
	hint Hint
}

// chanPlayer forwards every Play call to a channel.
type chanPlayer struct {
	ch  chan played
	err error
}

func newChanPlayer() *chanPlayer {
	return &chanPlayer{ch: make(chan played, 32)}
}

func (p *chanPlayer) Play(c Cue, h Hint) error {
	p.ch <- played{c, h}
	return p.err
}

func (p *chanPlayer) next(t *testing.T) played {
	t.Helper()
	select {
	case got := <-p.ch:
		return got
	case <-time.After(time.Second):
		t.Fatal("cue was not played")
		return played{}
	}
}

func TestDispatcher_PlaysCuesInOrder(t *testing.T) {
	p := newChanPlayer()
	d := NewDispatcher(p, WithVolume(0.5))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	d.Start(ctx)
	defer d.Close()

	d.Cue(CueMatch)
	d.Cue(CueWrong)
	d.Cue(CueVictory)

	assert.Equal(t, played{CueMatch, Hint{Pitch: 1, Volume: 0.5}}, p.next(t))
	assert.Equal(t, played{CueWrong, Hint{Pitch: 1, Volume: 0.5}}, p.next(t))
	assert.Equal(t, played{CueVictory, Hint{Pitch: 1, Volume: 0.5}}, p.next(t))
}

func TestDispatcher_FlipPitchVariance(t *testing.T) {
	p := newChanPlayer()
	d := NewDispatcher(p,
		WithFlipPitch(0.9, 1.1),
		WithSource(shuffle.NewScripted(0, 1000, 500)),
	)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	d.Start(ctx)
	defer d.Close()

	d.Cue(CueFlip)
	d.Cue(CueFlip)
	d.Cue(CueFlip)

	assert.InDelta(t, 0.9, p.next(t).hint.Pitch, 1e-9)
	assert.InDelta(t, 1.1, p.next(t).hint.Pitch, 1e-9)
	assert.InDelta(t, 1.0, p.next(t).hint.Pitch, 1e-9)
}

func TestDispatcher_CueNeverBlocks(t *testing.T) {
	p := newChanPlayer()
	d := NewDispatcher(p, WithBuffer(1))

	// Not started: the first cue fills the buffer, the rest are dropped.
	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			d.Cue(CueMatch)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Cue blocked on a full buffer")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	d.Start(ctx)
	defer d.Close()

	p.next(t)
	select {
	case extra := <-p.ch:
		t.Fatalf("dropped cue was played: %v", extra)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestDispatcher_PlayerFailuresAreSwallowed(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"unavailable", ErrCueUnavailable},
		{"device error", errors.New("device busy")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newChanPlayer()
			p.err = tt.err
			d := NewDispatcher(p)
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			d.Start(ctx)
			defer d.Close()

			d.Cue(CueWrong)
			d.Cue(CueMatch)

			assert.Equal(t, CueWrong, p.next(t).cue)
			assert.Equal(t, CueMatch, p.next(t).cue, "worker keeps running after a failure")
		})
	}
}

type panicPlayer struct{ after chan struct{} }

func (p *panicPlayer) Play(c Cue, _ Hint) error {
	if c == CueWrong {
		panic("boom")
	}
	close(p.after)
	return nil
}

func TestDispatcher_RecoversFromPlayerPanic(t *testing.T) {
	p := &panicPlayer{after: make(chan struct{})}
	d := NewDispatcher(p)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	d.Start(ctx)
	defer d.Close()

	d.Cue(CueWrong)
	d.Cue(CueMatch)

	select {
	case <-p.after:
	case <-time.After(time.Second):
		t.Fatal("worker died after a panicking player")
	}
}

func TestDispatcher_CueAfterCloseIsIgnored(t *testing.T) {
	p := newChanPlayer()
	d := NewDispatcher(p)
	d.Close()
	d.Close()

	d.Cue(CueFlip)
	assert.Len(t, d.reqs, 0)
}

func TestWriterPlayer(t *testing.T) {
	var buf bytes.Buffer
	p := WriterPlayer{W: &buf, Enabled: map[Cue]bool{CueMatch: true}}

	require.NoError(t, p.Play(CueMatch, Hint{Pitch: 1, Volume: 1}))
	assert.Equal(t, "♪ match (pitch 1.00, volume 1.00)\n", buf.String())

	err := p.Play(CueFlip, Hint{Pitch: 1, Volume: 1})
	assert.ErrorIs(t, err, ErrCueUnavailable)

	all := WriterPlayer{W: &buf}
	assert.NoError(t, all.Play(CueVictory, Hint{Pitch: 1, Volume: 1}))
}
