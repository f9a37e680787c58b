// Package harness runs scripted games against the real engine.
//
// A scenario builds a board from a pinned layout, clicks cards, moves
// virtual time forward and then checks what happened. Timers are
// testutil.ManualTimers, session IDs are fixed and the transcript goes to an
// in-memory SQLite store, so a scenario always produces the same trace.
//
// # Scenario Format
//
//	name: two_by_two_win
//	description: "Both pairs found in order"
//	rows: 2
//	cols: 2
//	faces: [a, b]
//	layout: { seed: 7 }        # or { draws: [0, 2, 1] }; omitted = identity
//	timing: { judge_delay_ms: 150 }
//	steps:
//	  - select: [0, 1]
//	  - settle: true
//	  - wait_ms: 400
//	  - select_stale: [0]      # refs from the previous board
//	  - build: { rows: 2, cols: 3 }
//	  - clear: true
//	assertions:
//	  - type: trace_contains
//	    event: "judged 0,1 match"
//	  - type: final_state
//	    expect: { matches: 2, won: true }
//
// With the identity layout pair i sits in slots 2i and 2i+1, which keeps
// scenarios readable.
//
// # Assertion Types
//
//   - trace_contains: an event with the given text appears
//   - trace_order: events appear in the given order (gaps allowed)
//   - trace_count: events of a kind (optionally with a detail) appear N times
//   - final_state: fields of the final snapshot match (subset match); besides
//     the snapshot's JSON fields, card_states and visible list every card
//   - transcript: fields of the last recorded session match (subset match)
//
// # Trace Format
//
// Each event is "kind detail" stamped with virtual milliseconds:
//
//	0000 cleared gen=1
//	0000 built 2×2 pairs=2 gen=1
//	0000 cue flip
//	0000 card 0 revealing ?
//	0400 judged 0,1 match
//	1170 won Level Completed (2×2)
//
// Golden files hold the full trace followed by the final board.
package harness
