package card

// FaceID identifies the pair a card belongs to.
// Two cards match when their FaceIDs are equal.
type FaceID string

// HiddenFace is what a face-down card shows.
const HiddenFace FaceID = ""

// State is a position in the flip state machine.
type State int

const (
	Hidden State = iota
	Revealing
	Revealed
	Hiding
	Matched
)

// String returns the lower-case state name.
func (s State) String() string {
	switch s {
	case Hidden:
		return "hidden"
	case Revealing:
		return "revealing"
	case Revealed:
		return "revealed"
	case Hiding:
		return "hiding"
	case Matched:
		return "matched"
	default:
		return "unknown"
	}
}

// Selector receives cards that passed the admission gate.
// The engine implements it and hands itself to every card it builds.
type Selector interface {
	CardSelected(c *Card)
}

// Card is one slot on the board.
type Card struct {
	index    int
	face     FaceID
	state    State
	selected bool
	visible  FaceID
	popping  bool
	sel      Selector
}

// New creates a face-down card at index showing face once revealed.
func New(index int, face FaceID, sel Selector) *Card {
	return &Card{
		index:   index,
		face:    face,
		state:   Hidden,
		visible: HiddenFace,
		sel:     sel,
	}
}

// Index returns the card's stable position on the board.
func (c *Card) Index() int { return c.index }

// Face returns the pair identity.
func (c *Card) Face() FaceID { return c.face }

// State returns the current state.
func (c *Card) State() State { return c.state }

// Selected reports whether the front face is showing after a completed reveal.
func (c *Card) Selected() bool { return c.selected }

// Matched reports whether the card has been removed from play.
func (c *Card) Matched() bool { return c.state == Matched }

// Animating reports whether a flip is in progress.
func (c *Card) Animating() bool {
	return c.state == Revealing || c.state == Hiding
}

// Visible returns the face currently drawn: the front or HiddenFace.
func (c *Card) Visible() FaceID { return c.visible }

// Admits is the input gate. A card rejects selection while it is animating,
// matched or already selected.
func (c *Card) Admits() bool {
	return !c.Animating() && !c.Matched() && !c.selected
}

// Click forwards the card to its Selector if the gate admits it.
// It returns false when the click was ignored.
func (c *Card) Click() bool {
	if !c.Admits() || c.sel == nil {
		return false
	}
	c.sel.CardSelected(c)
	return true
}

// BeginReveal starts the reveal flip. It is refused (false) unless the card is
// hidden, idle and unselected, which makes duplicate requests no-ops.
func (c *Card) BeginReveal() bool {
	if c.state != Hidden || c.selected {
		return false
	}
	c.state = Revealing
	return true
}

// FinishReveal completes a reveal and marks the card selected.
func (c *Card) FinishReveal() bool {
	if c.state != Revealing {
		return false
	}
	c.visible = c.face
	c.state = Revealed
	c.selected = true
	return true
}

// BeginHide starts the hide flip. Only a selected, idle, unmatched card hides.
func (c *Card) BeginHide() bool {
	if c.state != Revealed || !c.selected {
		return false
	}
	c.state = Hiding
	return true
}

// FinishHide completes a hide and clears the selection.
func (c *Card) FinishHide() bool {
	if c.state != Hiding {
		return false
	}
	c.visible = HiddenFace
	c.state = Hidden
	c.selected = false
	return true
}

// Midpoint swaps the visible face halfway through a flip.
// It does nothing outside Revealing and Hiding.
func (c *Card) Midpoint() {
	switch c.state {
	case Revealing:
		c.visible = c.face
	case Hiding:
		c.visible = HiddenFace
	}
}

// MarkMatched moves the card to the terminal Matched state.
// The selection flag is frozen at whatever it was.
func (c *Card) MarkMatched() {
	c.state = Matched
}

// SetPopping flags the emphasis animation that follows a match.
// It is purely presentational and never gates input.
func (c *Card) SetPopping(on bool) { c.popping = on }

// View is an immutable snapshot of a card for presentation.
type View struct {
	Index     int    `json:"index"`
	State     string `json:"state"`
	Selected  bool   `json:"selected"`
	Matched   bool   `json:"matched"`
	Animating bool   `json:"animating"`
	Popping   bool   `json:"popping,omitempty"`
	Visible   FaceID `json:"visible"`
}

// View snapshots the card.
func (c *Card) View() View {
	return View{
		Index:     c.index,
		State:     c.state.String(),
		Selected:  c.selected,
		Matched:   c.Matched(),
		Animating: c.Animating(),
		Popping:   c.popping,
		Visible:   c.visible,
	}
}
