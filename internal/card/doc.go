// Package card implements a single memory card and its flip state machine.
//
// A card moves between five states:
//
//	Hidden ──BeginReveal──▶ Revealing ──FinishReveal──▶ Revealed
//	   ▲                                                   │
//	   └───────FinishHide─── Hiding ◀────BeginHide─────────┘
//
//	any state ──MarkMatched──▶ Matched (terminal)
//
// Revealing and Hiding are the animating states. A flip is two equal halves
// (shrink, swap face, grow); Midpoint swaps the visible face between them and
// the Finish* call marks the end of the second half. The Selected flag only
// changes inside FinishReveal and FinishHide, never when a flip starts.
//
// Cards are not safe for concurrent use. They are owned by the engine's event
// loop, which is the only caller of the transition functions.
package card
