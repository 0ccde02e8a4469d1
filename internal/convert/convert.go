// Package convert rewrites 7 lane charts for a 6 lane playfield.
//
// Lanes left of the center keep their index, lanes right of it shift down by
// one. Center lane notes move to whichever neighbour is free at their beat,
// alternating sides when both are free, and are dropped when both are held.
package convert

import (
	"go.uber.org/zap"

	"git.lost.host/meutraa/lanecut/internal/game"
)

type Converter interface {
	Convert(chart *game.Chart) (*game.Chart, int)
}

// Convert returns the 6 lane chart and the number of notes that could not be
// placed. The input must pass chart.Validate(game.SourceLanes) and is never
// modified. Tempo and control notes are emitted as they are.
func Convert(chart *game.Chart) (*game.Chart, int) {
	occupancy := BuildOccupancy(chart)

	out := &game.Chart{Notes: make([]game.Note, 0, len(chart.Notes))}
	dropped := 0
	side := SideUnknown
	for _, note := range chart.Notes {
		if !note.Kind.HasLane() {
			out.Notes = append(out.Notes, note.Clone())
			continue
		}
		mapped, next, ok := occupancy.mapNote(note, side)
		if !ok {
			dropped++
			continue
		}
		side = next
		out.Notes = append(out.Notes, mapped)
	}
	return out, dropped
}

// DefaultConverter logs every conversion so the dropped count is never lost.
type DefaultConverter struct {
	Logger *zap.Logger
}

func (c *DefaultConverter) Convert(chart *game.Chart) (*game.Chart, int) {
	logger := c.Logger
	if nil == logger {
		logger = zap.NewNop()
	}
	out, dropped := Convert(chart)
	fields := []zap.Field{
		zap.Int("notes", len(chart.Notes)),
		zap.Int("kept", len(out.Notes)),
		zap.Int("dropped", dropped),
	}
	if dropped > 0 {
		logger.Warn("dropped unplaceable center lane notes", fields...)
	} else {
		logger.Info("converted chart", fields...)
	}
	return out, dropped
}
