package engine

import (
	"time"

	"github.com/roach88/pairs/internal/card"
)

// Observer receives published changes. All methods are called from the
// engine loop goroutine and must not block; they must not call back into
// the engine synchronously either, except through the enqueueing commands.
type Observer interface {
	BoardBuilt(s Snapshot)
	BoardCleared(generation int64)
	CardChanged(generation int64, v card.View)
	CardPopped(generation int64, index int, scale float64, d time.Duration)
	CountersChanged(matches, turns int)
	PairJudged(a, b int, matched bool)
	Won(message string)
}

// NopObserver ignores everything. Embed it to implement only part of Observer.
type NopObserver struct{}

func (NopObserver) BoardBuilt(Snapshot) {}
func (NopObserver) BoardCleared(int64) {}
func (NopObserver) CardChanged(int64, card.View) {}
func (NopObserver) CardPopped(int64, int, float64, time.Duration) {}
func (NopObserver) CountersChanged(int, int) {}
func (NopObserver) PairJudged(int, int, bool) {}
func (NopObserver) Won(string) {}

// Snapshot is a consistent copy of the observable game state.
type Snapshot struct {
	Generation  int64       `json:"generation"`
	Session     string      `json:"session,omitempty"`
	Rows        int         `json:"rows"`
	Cols        int         `json:"cols"`
	PairsNeeded int         `json:"pairs_needed"`
	Matches     int         `json:"matches"`
	Turns       int         `json:"turns"`
	GameOver    bool        `json:"game_over"`
	Won         bool        `json:"won"`
	WinMessage  string      `json:"win_message,omitempty"`
	Pending     []int       `json:"pending,omitempty"`
	Resolving   bool        `json:"resolving"`
	Cards       []card.View `json:"cards"`
}

// HasBoard reports whether a board is live.
func (s Snapshot) HasBoard() bool {
	return s.Rows > 0
}

// Ref returns a CardRef for index on this snapshot's board.
func (s Snapshot) Ref(index int) CardRef {
	return CardRef{Generation: s.Generation, Index: index}
}
