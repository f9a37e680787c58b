// Package render draws engine snapshots as plain text.
package render

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/roach88/pairs/internal/card"
	"github.com/roach88/pairs/internal/engine"
)

// Cell returns the text for one card.
//
//	?        face down
//	apple    face up (or turning)
//	~apple   mid-flip
//	*apple*  matched
func Cell(v card.View) string {
	switch {
	case v.Matched:
		return "*" + string(v.Visible) + "*"
	case v.Visible == card.HiddenFace && !v.Animating:
		return "?"
	case v.Visible == card.HiddenFace:
		return "~?"
	case v.Animating:
		return "~" + string(v.Visible)
	default:
		return string(v.Visible)
	}
}

// Status returns the one-line summary of a snapshot.
func Status(s engine.Snapshot) string {
	if !s.HasBoard() {
		return fmt.Sprintf("gen %d  no board", s.Generation)
	}
	line := fmt.Sprintf("gen %d  %d×%d  turns %d  matches %d/%d",
		s.Generation, s.Rows, s.Cols, s.Turns, s.Matches, s.PairsNeeded)
	if s.Won {
		line += "  " + s.WinMessage
	} else if s.GameOver {
		line += "  game over"
	}
	return line
}

// Board writes the status line followed by the grid, one row per line.
// Every cell is prefixed with its index so players can address it.
// A slot left empty by an odd board is drawn as blank.
func Board(w io.Writer, s engine.Snapshot) error {
	if _, err := fmt.Fprintln(w, Status(s)); err != nil {
		return err
	}
	if !s.HasBoard() {
		return nil
	}

	cells := make([]string, len(s.Cards))
	width := 1
	for i, v := range s.Cards {
		cells[i] = Cell(v)
		if n := utf8.RuneCountInString(cells[i]); n > width {
			width = n
		}
	}
	idxWidth := len(fmt.Sprint(s.Rows*s.Cols - 1))

	for r := 0; r < s.Rows; r++ {
		parts := make([]string, 0, s.Cols)
		for c := 0; c < s.Cols; c++ {
			i := r*s.Cols + c
			if i >= len(cells) {
				break
			}
			pad := width - utf8.RuneCountInString(cells[i])
			parts = append(parts, fmt.Sprintf("%*d %s%s", idxWidth, i, cells[i], strings.Repeat(" ", pad)))
		}
		line := strings.TrimRight(strings.Join(parts, "  "), " ")
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}
