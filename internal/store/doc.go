// Package store provides the SQLite-backed transcript of played boards.
//
// The transcript is an append-only audit log:
//   - Sessions: one row per built board (UUIDv7 id, dimensions, pair count)
//   - Turns: one row per judged pair, numbered from 1 within a session
//   - Wins: at most one row per session
//
// It is written by the engine loop and read by the trace command. It is not
// a save game: nothing is ever loaded back into an engine.
//
// # Critical Patterns
//
// Idempotent writes:
//   - Every insert uses ON CONFLICT DO NOTHING, so a repeated write of the
//     same session, turn or win is silently ignored
//
// Deterministic reads:
//   - Sessions are ordered by started_at then id
//   - Turns are ordered by turn number
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
