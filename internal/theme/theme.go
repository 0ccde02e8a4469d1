package theme

import (
	"image/color"

	"git.lost.host/meutraa/lanecut/internal/game"
)

type Theme interface {
	// Symbol for a note at a grid row, head is false for hold and slide bodies
	Symbol(kind game.Kind, head bool) string
	// Colour for a note, denom is the beat snap (1 for quarters, 2 for eighths)
	NoteColor(kind game.Kind, denom int) color.RGBA
	Empty() string
}
