package render

import (
	"io"

	"git.lost.host/meutraa/lanecut/internal/game"
)

type Renderer interface {
	Render(w io.Writer, chart *game.Chart) error
}
