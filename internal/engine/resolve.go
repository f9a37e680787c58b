package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/roach88/pairs/internal/audio"
	"github.com/roach88/pairs/internal/card"
	"github.com/roach88/pairs/internal/store"
)

// pairPhase tracks where the pair at the head of the pending queue is.
type pairPhase int

const (
	phaseJudging pairPhase = iota + 1
	phaseHidingA
	phaseHidingB
)

// pair is the resolution in progress. Its cards stay at the front of the
// pending queue until the pair is finished.
type pair struct {
	a, b  *card.Card
	phase pairPhase
}

// revealed appends a card whose reveal just completed and starts a
// resolution pass if none is running.
func (e *Engine) revealed(c *card.Card) {
	e.pending = append(e.pending, c)
	e.publish()

	if e.resolving || len(e.pending) < 2 {
		return
	}
	e.resolving = true
	e.nextPair()
}

// nextPair takes the two oldest pending cards and waits JudgeDelay before
// judging them. With fewer than two cards left the pass ends.
func (e *Engine) nextPair() {
	if len(e.pending) < 2 {
		e.resolving = false
		e.cur = nil
		e.publish()
		return
	}

	e.cur = &pair{a: e.pending[0], b: e.pending[1], phase: phaseJudging}
	e.publish()
	e.after(e.timing.JudgeDelay, TimerJudge, -1)
}

// judge counts the turn and branches on the pair's faces.
func (e *Engine) judge(ctx context.Context) {
	p := e.cur
	if p == nil || p.phase != phaseJudging {
		return
	}

	e.turns++
	e.publish()
	e.observer.CountersChanged(e.matches, e.turns)

	matched := p.a.Face() == p.b.Face()
	if matched {
		p.a.MarkMatched()
		p.b.MarkMatched()
		e.sink.Cue(audio.CueMatch)
		e.matches++
	} else {
		e.sink.Cue(audio.CueWrong)
	}

	slog.Debug("pair judged",
		"session", e.session,
		"turn", e.turns,
		"a", p.a.Index(),
		"b", p.b.Index(),
		"matched", matched,
	)
	e.observer.PairJudged(p.a.Index(), p.b.Index(), matched)
	e.record("turn", func() error {
		return e.recorder.WriteTurn(ctx, store.Turn{
			SessionID: e.session,
			Turn:      e.turns,
			CardA:     p.a.Index(),
			CardB:     p.b.Index(),
			FaceA:     string(p.a.Face()),
			FaceB:     string(p.b.Face()),
			Matched:   matched,
			Matches:   e.matches,
		})
	})

	if !matched {
		p.phase = phaseHidingA
		if !e.hide(p.a) {
			e.hidden(p.a)
		}
		return
	}

	e.cardChanged(p.a)
	e.cardChanged(p.b)
	e.observer.CountersChanged(e.matches, e.turns)
	e.pop(p.a)
	e.pop(p.b)

	if !e.gameOver && e.matches == e.board.PairsNeeded {
		e.gameOver = true
		e.publish()
		slog.Info("board cleared by player",
			"session", e.session,
			"turns", e.turns,
			"matches", e.matches,
		)
		e.after(e.timing.WinDelay, TimerWin, -1)
	}

	e.finishPair()
}

// hide starts the hide flip for c. It returns false if the card refused.
func (e *Engine) hide(c *card.Card) bool {
	if !c.BeginHide() {
		return false
	}
	e.sink.Cue(audio.CueFlip)
	e.cardChanged(c)
	e.after(e.timing.halfFlip(), TimerFlipHalf, c.Index())
	return true
}

// hidden advances a mismatch once a card is face down again: a fully hides
// before b starts, and the pair is finished once b is down.
func (e *Engine) hidden(c *card.Card) {
	p := e.cur
	if p == nil {
		return
	}

	switch {
	case p.phase == phaseHidingA && c == p.a:
		p.phase = phaseHidingB
		if !e.hide(p.b) {
			e.finishPair()
		}
	case p.phase == phaseHidingB && c == p.b:
		e.finishPair()
	}
}

// finishPair drops the judged pair from the front of the queue and moves on.
func (e *Engine) finishPair() {
	e.pending[0], e.pending[1] = nil, nil
	e.pending = e.pending[2:]
	e.cur = nil
	e.nextPair()
}

// pop starts the match emphasis on c. It runs detached: nothing waits for
// it, and its completion is generation-tagged like every other timer.
func (e *Engine) pop(c *card.Card) {
	c.SetPopping(true)
	e.cardChanged(c)
	e.observer.CardPopped(e.clock.Current(), c.Index(), e.timing.PopScale, e.timing.PopDuration)
	e.after(e.timing.PopDuration, TimerPopDone, c.Index())
}

// announceWin plays the victory cue and publishes the win message.
func (e *Engine) announceWin(ctx context.Context) {
	if !e.gameOver || e.won || e.board == nil {
		return
	}

	e.won = true
	e.winMessage = WinMessage(e.board.Rows, e.board.Cols)
	e.sink.Cue(audio.CueVictory)
	e.publish()
	e.observer.Won(e.winMessage)

	e.record("win", func() error {
		return e.recorder.WriteWin(ctx, store.Win{
			SessionID: e.session,
			Turns:     e.turns,
			Matches:   e.matches,
			Message:   e.winMessage,
			WonAt:     time.Now().UTC(),
		})
	})
}

// WinMessage formats the banner shown when a rows×cols board is cleared.
func WinMessage(rows, cols int) string {
	return fmt.Sprintf("Level Completed (%d×%d)", rows, cols)
}
