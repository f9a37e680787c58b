// Package board builds a shuffled set of paired cards for a rows×cols grid.
package board

import (
	"errors"

	"github.com/roach88/pairs/internal/card"
	"github.com/roach88/pairs/internal/shuffle"
)

var (
	// ErrNoFaces is returned when the face pool is empty.
	ErrNoFaces = errors.New("board: face pool is empty")

	// ErrNoSource is returned when no random source is wired.
	ErrNoSource = errors.New("board: random source is nil")
)

// Board is the set of cards for one game.
type Board struct {
	Rows        int
	Cols        int
	PairsNeeded int
	Cards       []*card.Card
}

// TotalSlots is rows*cols. With an odd total one slot stays empty.
func (b *Board) TotalSlots() int { return b.Rows * b.Cols }

// Card returns the card at index i, or nil when i is out of range.
func (b *Board) Card(i int) *card.Card {
	if i < 0 || i >= len(b.Cards) {
		return nil
	}
	return b.Cards[i]
}

// Faces counts how many cards carry each face.
func (b *Board) Faces() map[card.FaceID]int {
	out := make(map[card.FaceID]int, b.PairsNeeded)
	for _, c := range b.Cards {
		out[c.Face()]++
	}
	return out
}

// PairsFor returns floor(rows*cols/2) after clamping both sides to at least 1.
func PairsFor(rows, cols int) int {
	rows, cols = clamp(rows), clamp(cols)
	return rows * cols / 2
}

// Build lays out a fresh board.
//
// rows and cols are clamped to at least 1. Pair i uses pool[i % len(pool)],
// so a small pool is reused cyclically. Every chosen face is placed exactly
// twice and the resulting multiset is shuffled with src before one card is
// created per entry. Each card is handed sel as its Selector.
//
// Nothing is built when the pool is empty or src is nil.
func Build(rows, cols int, pool []card.FaceID, src shuffle.Source, sel card.Selector) (*Board, error) {
	if len(pool) == 0 {
		return nil, ErrNoFaces
	}
	if src == nil {
		return nil, ErrNoSource
	}

	rows, cols = clamp(rows), clamp(cols)
	pairs := rows * cols / 2

	faces := make([]card.FaceID, 0, pairs*2)
	for i := 0; i < pairs; i++ {
		f := pool[i%len(pool)]
		faces = append(faces, f, f)
	}
	shuffle.Shuffle(faces, src)

	cards := make([]*card.Card, len(faces))
	for i, f := range faces {
		cards[i] = card.New(i, f, sel)
	}

	return &Board{
		Rows:        rows,
		Cols:        cols,
		PairsNeeded: pairs,
		Cards:       cards,
	}, nil
}

func clamp(n int) int {
	if n < 1 {
		return 1
	}
	return n
}
