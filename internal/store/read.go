package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ErrSessionNotFound is returned when a session ID has no transcript.
var ErrSessionNotFound = errors.New("session not found")

// Summary is a session joined with its turn count and optional win.
type Summary struct {
	Session
	Turns int
	Won   bool
	Win   *Win
}

// ListSessions returns every recorded session, oldest first.
func (s *Store) ListSessions(ctx context.Context) ([]Summary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT s.id, s.generation, s.rows, s.cols, s.pairs, s.started_at,
		       (SELECT COUNT(*) FROM turns t WHERE t.session_id = s.id),
		       w.turns, w.matches, w.message, w.won_at
		FROM sessions s
		LEFT JOIN wins w ON w.session_id = s.id
		ORDER BY s.started_at ASC, s.id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	var out []Summary
	for rows.Next() {
		sum, err := scanSummary(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	return out, nil
}

// ReadSession returns the summary for a single session.
// Returns ErrSessionNotFound if the ID is unknown.
func (s *Store) ReadSession(ctx context.Context, id string) (Summary, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT s.id, s.generation, s.rows, s.cols, s.pairs, s.started_at,
		       (SELECT COUNT(*) FROM turns t WHERE t.session_id = s.id),
		       w.turns, w.matches, w.message, w.won_at
		FROM sessions s
		LEFT JOIN wins w ON w.session_id = s.id
		WHERE s.id = ?
	`, id)

	sum, err := scanSummary(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Summary{}, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return sum, err
}

// ReadTurns returns the turns of a session in turn order.
func (s *Store) ReadTurns(ctx context.Context, sessionID string) ([]Turn, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT session_id, turn, card_a, card_b, face_a, face_b, matched, matches
		FROM turns
		WHERE session_id = ?
		ORDER BY turn ASC
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query turns: %w", err)
	}
	defer rows.Close()

	var out []Turn
	for rows.Next() {
		var t Turn
		var matched int
		if err := rows.Scan(&t.SessionID, &t.Turn, &t.CardA, &t.CardB,
			&t.FaceA, &t.FaceB, &matched, &t.Matches); err != nil {
			return nil, fmt.Errorf("scan turn: %w", err)
		}
		t.Matched = matched != 0
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate turns: %w", err)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSummary(sc scanner) (Summary, error) {
	var (
		sum      Summary
		started  string
		winTurns sql.NullInt64
		winMatch sql.NullInt64
		winMsg   sql.NullString
		winAt    sql.NullString
	)
	err := sc.Scan(&sum.ID, &sum.Generation, &sum.Rows, &sum.Cols, &sum.Pairs, &started,
		&sum.Turns, &winTurns, &winMatch, &winMsg, &winAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Summary{}, err
		}
		return Summary{}, fmt.Errorf("scan session: %w", err)
	}

	sum.StartedAt, err = time.Parse(timeLayout, started)
	if err != nil {
		return Summary{}, fmt.Errorf("parse started_at for %s: %w", sum.ID, err)
	}

	if winMsg.Valid {
		w := &Win{
			SessionID: sum.ID,
			Turns:     int(winTurns.Int64),
			Matches:   int(winMatch.Int64),
			Message:   winMsg.String,
		}
		w.WonAt, err = time.Parse(timeLayout, winAt.String)
		if err != nil {
			return Summary{}, fmt.Errorf("parse won_at for %s: %w", sum.ID, err)
		}
		sum.Won = true
		sum.Win = w
	}
	return sum, nil
}
