// Package shuffle permutes slices in place with an injectable random source.
//
// The algorithm is the classic Fisher–Yates walk from the last index down to
// 1, so a Source that is deterministic yields a deterministic permutation.
// That is what the board builder and the scenario harness rely on.
package shuffle

import "math/rand/v2"

// Source yields uniformly distributed integers in [0, n).
// *rand.Rand from math/rand/v2 satisfies it.
type Source interface {
	IntN(n int) int
}

// NewSource returns a PCG-backed source seeded with seed.
// Two sources built from the same seed produce the same sequence.
func NewSource(seed uint64) Source {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// Default returns a randomly seeded source for production use.
func Default() Source {
	return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
}

// Shuffle permutes s in place.
//
// For i from len(s)-1 down to 1 it picks r = src.IntN(i+1) and swaps s[i] and
// s[r]. Slices shorter than two elements are left untouched and src is not
// consulted.
func Shuffle[T any](s []T, src Source) {
	for i := len(s) - 1; i > 0; i-- {
		r := src.IntN(i + 1)
		s[i], s[r] = s[r], s[i]
	}
}

// Identity is a Source that always returns n-1, which makes Shuffle leave the
// slice in its original order. Scenario files use it to pin a layout.
type Identity struct{}

// IntN returns n-1.
func (Identity) IntN(n int) int { return n - 1 }

// Scripted replays a fixed list of draws and then falls back to n-1.
// Draws out of range are clamped into [0, n).
type Scripted struct {
	draws []int
	idx   int
}

// NewScripted creates a Scripted source over draws.
func NewScripted(draws ...int) *Scripted {
	return &Scripted{draws: draws}
}

// IntN returns the next scripted draw clamped into [0, n).
func (s *Scripted) IntN(n int) int {
	if s.idx >= len(s.draws) {
		return n - 1
	}
	d := s.draws[s.idx]
	s.idx++
	if d < 0 {
		return 0
	}
	if d >= n {
		return n - 1
	}
	return d
}
