package testutil

// FixedSessionGenerator hands out the same session ID every time.
//
// Unlike engine.FixedGenerator which returns IDs in sequence, this generator
// always returns one ID, so a scenario that rebuilds its board still produces
// byte-identical traces.
//
// Thread-safety: FixedSessionGenerator is stateless and safe for concurrent use.
type FixedSessionGenerator struct {
	id string
}

// NewFixedSessionGenerator creates a generator for id.
// If id is empty, Generate() returns "test-session-default".
func NewFixedSessionGenerator(id string) *FixedSessionGenerator {
	if id == "" {
		id = "test-session-default"
	}
	return &FixedSessionGenerator{id: id}
}

// Generate returns the fixed session ID.
//
// Implements engine.SessionIDGenerator interface.
func (g *FixedSessionGenerator) Generate() string {
	return g.id
}
