package testutil

import (
	"slices"
	"sync"

	"github.com/roach88/pairs/internal/audio"
)

// RecordingSink is an audio.Sink that remembers every cue in order.
type RecordingSink struct {
	mu   sync.Mutex
	cues []audio.Cue
}

// Cue implements audio.Sink.
func (s *RecordingSink) Cue(c audio.Cue) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cues = append(s.cues, c)
}

// Cues returns a copy of the cues seen so far.
func (s *RecordingSink) Cues() []audio.Cue {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.cues)
}

// Count returns how many times c was cued.
func (s *RecordingSink) Count(c audio.Cue) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, x := range s.cues {
		if x == c {
			n++
		}
	}
	return n
}

// Reset forgets every cue.
func (s *RecordingSink) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cues = nil
}
