package theme

import (
	"image/color"

	"git.lost.host/meutraa/lanecut/internal/game"
)

type DefaultTheme struct{}

func (t *DefaultTheme) Symbol(kind game.Kind, head bool) string {
	switch {
	case !head:
		return bodySym
	case kind.IsPath():
		return headSym
	case kind == game.Flick:
		return flickSym
	}
	return tapSym
}

// Taps are coloured by snap, everything else by kind.
func (t *DefaultTheme) NoteColor(kind game.Kind, denom int) color.RGBA {
	if col, ok := kindColors[kind]; ok {
		return col
	}
	return getSnapColor(denom)
}

func (t *DefaultTheme) Empty() string {
	return emptySym
}

const (
	tapSym   = "o"
	flickSym = "^"
	headSym  = "O"
	bodySym  = "|"
	emptySym = "."
)

var (
	kindColors = map[game.Kind]color.RGBA{
		game.Flick: {236, 0, 106, 255}, // pink
		game.Hold:  {236, 195, 0, 255}, // yellow
		game.Slide: {0, 236, 128, 255}, // green
	}
	snapColors = map[int]color.RGBA{
		1:  {236, 30, 0, 255},    // 1/4 red
		2:  {0, 118, 236, 255},   // 1/8 blue
		3:  {106, 0, 236, 255},   // 1/12 purple
		4:  {236, 195, 0, 255},   // 1/16 yellow
		6:  {236, 0, 106, 255},   // 1/24 pink
		8:  {236, 128, 0, 255},   // 1/32 orange
		12: {173, 236, 236, 255}, // 1/48 light blue
		16: {0, 236, 128, 255},   // 1/64 green
		-1: {255, 255, 255, 255}, // other white
	}
)

func getSnapColor(d int) color.RGBA {
	col, ok := snapColors[d]
	if !ok {
		return snapColors[-1]
	}
	return col
}
