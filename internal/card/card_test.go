package card

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type selectorFunc func(c *Card)

func (f selectorFunc) CardSelected(c *Card) { f(c) }

func TestNew_StartsHidden(t *testing.T) {
	c := New(3, "owl", nil)

	assert.Equal(t, 3, c.Index())
	assert.Equal(t, FaceID("owl"), c.Face())
	assert.Equal(t, Hidden, c.State())
	assert.False(t, c.Selected())
	assert.False(t, c.Matched())
	assert.False(t, c.Animating())
	assert.Equal(t, HiddenFace, c.Visible())
}

func TestCard_RevealCycle(t *testing.T) {
	c := New(0, "owl", nil)

	require.True(t, c.BeginReveal())
	assert.True(t, c.Animating())
	assert.False(t, c.Selected(), "selection only flips when the animation completes")
	assert.Equal(t, HiddenFace, c.Visible())

	c.Midpoint()
	assert.Equal(t, FaceID("owl"), c.Visible())
	assert.False(t, c.Selected())

	require.True(t, c.FinishReveal())
	assert.Equal(t, Revealed, c.State())
	assert.True(t, c.Selected())
	assert.False(t, c.Animating())
}

func TestCard_HideCycle(t *testing.T) {
	c := New(0, "owl", nil)
	require.True(t, c.BeginReveal())
	require.True(t, c.FinishReveal())

	require.True(t, c.BeginHide())
	assert.True(t, c.Animating())
	assert.True(t, c.Selected())

	c.Midpoint()
	assert.Equal(t, HiddenFace, c.Visible())

	require.True(t, c.FinishHide())
	assert.Equal(t, Hidden, c.State())
	assert.False(t, c.Selected())
}

func TestCard_DuplicateRequestsAreNoOps(t *testing.T) {
	c := New(0, "owl", nil)

	require.True(t, c.BeginReveal())
	assert.False(t, c.BeginReveal(), "second reveal while revealing")
	assert.False(t, c.BeginHide(), "hide while revealing")

	require.True(t, c.FinishReveal())
	assert.False(t, c.BeginReveal(), "reveal while selected")
	assert.False(t, c.FinishReveal(), "finish without a reveal in flight")

	require.True(t, c.BeginHide())
	assert.False(t, c.BeginHide(), "second hide while hiding")
	assert.False(t, c.BeginReveal(), "reveal while hiding")
}

func TestCard_HideRequiresSelection(t *testing.T) {
	c := New(0, "owl", nil)
	assert.False(t, c.BeginHide())
	assert.False(t, c.FinishHide())
	assert.Equal(t, Hidden, c.State())
}

func TestCard_MatchedIsTerminal(t *testing.T) {
	c := New(0, "owl", nil)
	require.True(t, c.BeginReveal())
	require.True(t, c.FinishReveal())

	c.MarkMatched()

	assert.True(t, c.Matched())
	assert.True(t, c.Selected(), "matching freezes the selection flag")
	assert.False(t, c.BeginHide())
	assert.False(t, c.BeginReveal())
	assert.False(t, c.FinishHide())
	assert.True(t, c.Selected())
}

func TestCard_Admits(t *testing.T) {
	tests := []struct {
		name  string
		setup func(c *Card)
		want  bool
	}{
		{"hidden idle", func(c *Card) {}, true},
		{"animating", func(c *Card) { c.BeginReveal() }, false},
		{"selected", func(c *Card) { c.BeginReveal(); c.FinishReveal() }, false},
		{"hiding", func(c *Card) { c.BeginReveal(); c.FinishReveal(); c.BeginHide() }, false},
		{"matched", func(c *Card) { c.MarkMatched() }, false},
		{"hidden again", func(c *Card) { c.BeginReveal(); c.FinishReveal(); c.BeginHide(); c.FinishHide() }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New(0, "owl", nil)
			tt.setup(c)
			assert.Equal(t, tt.want, c.Admits())
		})
	}
}

func TestCard_ClickForwardsOnlyWhenAdmitted(t *testing.T) {
	var got []*Card
	c := New(5, "owl", selectorFunc(func(c *Card) { got = append(got, c) }))

	assert.True(t, c.Click())
	require.Len(t, got, 1)
	assert.Same(t, c, got[0])

	c.BeginReveal()
	assert.False(t, c.Click())
	assert.Len(t, got, 1)
}

func TestCard_ClickWithoutSelector(t *testing.T) {
	c := New(0, "owl", nil)
	assert.False(t, c.Click())
}

func TestCard_View(t *testing.T) {
	c := New(2, "owl", nil)
	c.BeginReveal()
	c.Midpoint()

	v := c.View()
	assert.Equal(t, View{
		Index:     2,
		State:     "revealing",
		Animating: true,
		Visible:   "owl",
	}, v)
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "hidden", Hidden.String())
	assert.Equal(t, "revealing", Revealing.String())
	assert.Equal(t, "revealed", Revealed.String())
	assert.Equal(t, "hiding", Hiding.String())
	assert.Equal(t, "matched", Matched.String())
	assert.Equal(t, "unknown", State(42).String())
}
