// Package engine implements the pairs match engine.
//
// The engine owns a board, the pending queue of revealed cards, the
// turn/match counters and the win flag. It receives player input and timer
// completions, runs the pair-resolution protocol and publishes snapshots.
//
// ARCHITECTURE:
//
// Single-Writer Event Loop:
// All game state is mutated by one goroutine (Run, or Drain in tests and the
// simulator). Commands from the presentation layer and timer callbacks only
// enqueue events. This gives:
//   - No locks around game state
//   - A total order over input, flips and judgments
//   - Deterministic replays when timers are driven by hand
//
// Event Processing Flow:
//  1. BuildBoard / ClearBoard / SelectCard / timer callbacks enqueue events
//  2. The loop dequeues one event at a time
//  3. processEvent routes to the build, clear, select or timer handler
//  4. Handlers mutate state, schedule timers and publish a Snapshot
//
// Suspension Points:
// A flip is two timers of FlipDuration/2 (face swap, then completion). A
// pair waits JudgeDelay before it is judged. A match starts a detached pop
// of PopDuration. The final match waits WinDelay before the win is
// announced. The resolution loop only ever waits on the two hide flips of a
// mismatch; pops never gate it.
//
// Generations:
// Every clear advances the Clock. Timers carry the generation they were
// scheduled under and CardRefs carry the generation they were read from;
// the loop drops anything from an older generation, and clearing also stops
// the old generation's timers. A late completion can never touch a newer
// board.
//
// ORDERING:
//   - Cards join the pending queue in reveal-completion order
//   - Pairs are judged strictly FIFO, two at a time
//   - The turn counter moves once per judged pair, before the outcome branch
//   - The win flag is set at most once per board
package engine
