package parser

import "git.lost.host/meutraa/lanecut/internal/game"

type Parser interface {
	Parse(data []byte) (*game.Chart, error)
	ParseFile(file string) (*game.Chart, error)
	Encode(chart *game.Chart, indent bool) ([]byte, error)
}
