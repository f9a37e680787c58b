package store

import (
	"context"
	"fmt"
	"time"
)

// Session is one built board.
type Session struct {
	ID         string
	Generation int64
	Rows       int
	Cols       int
	Pairs      int
	StartedAt  time.Time
}

// Turn is one judged pair. Turn numbers start at 1 within a session.
type Turn struct {
	SessionID string
	Turn      int
	CardA     int
	CardB     int
	FaceA     string
	FaceB     string
	Matched   bool
	Matches   int
}

// Win records the moment a session's board was cleared.
type Win struct {
	SessionID string
	Turns     int
	Matches   int
	Message   string
	WonAt     time.Time
}

// timeLayout is the on-disk timestamp format. Fixed width so that text
// ordering matches chronological ordering.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// WriteSession records a newly built board.
// Idempotent: writing the same session ID twice is a no-op.
func (s *Store) WriteSession(ctx context.Context, sess Session) error {
	if sess.ID == "" {
		return fmt.Errorf("session id is required")
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions (id, generation, rows, cols, pairs, started_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`, sess.ID, sess.Generation, sess.Rows, sess.Cols, sess.Pairs,
		sess.StartedAt.UTC().Format(timeLayout))
	if err != nil {
		return fmt.Errorf("insert session %s: %w", sess.ID, err)
	}
	return nil
}

// WriteTurn records a judged pair.
// Idempotent: a second write with the same (session, turn) is a no-op.
func (s *Store) WriteTurn(ctx context.Context, t Turn) error {
	if t.Turn < 1 {
		return fmt.Errorf("turn number must be >= 1, got %d", t.Turn)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO turns (session_id, turn, card_a, card_b, face_a, face_b, matched, matches)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(session_id, turn) DO NOTHING
	`, t.SessionID, t.Turn, t.CardA, t.CardB, t.FaceA, t.FaceB, boolToInt(t.Matched), t.Matches)
	if err != nil {
		return fmt.Errorf("insert turn %s/%d: %w", t.SessionID, t.Turn, err)
	}
	return nil
}

// WriteWin records that a session was won.
// Idempotent: only the first win for a session is kept.
func (s *Store) WriteWin(ctx context.Context, w Win) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO wins (session_id, turns, matches, message, won_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(session_id) DO NOTHING
	`, w.SessionID, w.Turns, w.Matches, w.Message, w.WonAt.UTC().Format(timeLayout))
	if err != nil {
		return fmt.Errorf("insert win %s: %w", w.SessionID, err)
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
