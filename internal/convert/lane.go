package convert

import "git.lost.host/meutraa/lanecut/internal/game"

// Side is the tie break carried from one note to the next.
type Side uint8

const (
	SideUnknown Side = iota
	SideLeft
	SideRight
)

func (s Side) String() string {
	switch s {
	case SideLeft:
		return "left"
	case SideRight:
		return "right"
	}
	return "unknown"
}

func sideOf(lane game.Lane) Side {
	if lane <= 2 {
		return SideLeft
	}
	return SideRight
}

// shift maps a non-center source lane onto the 6 lane playfield.
func shift(lane game.Lane) game.Lane {
	if lane > game.CenterLane {
		return lane - 1
	}
	return lane
}

// resolveCenter places a center lane note at beat. It returns false when
// both neighbouring source lanes are held and the note has nowhere to go.
func (o Occupancy) resolveCenter(beat game.Beat, last Side) (game.Lane, bool) {
	left := o.IsOccupied(game.CenterLane-1, beat)
	right := o.IsOccupied(game.CenterLane+1, beat)
	switch {
	case left && right:
		return 0, false
	case left:
		return 3, true
	case right:
		return 2, true
	case last == SideLeft:
		return 3, true
	default:
		return 2, true
	}
}

// mapNote decides the new lanes of a single note. The returned side is the
// tie break for the next note; ok is false when the note must be dropped.
func (o Occupancy) mapNote(note game.Note, last Side) (game.Note, Side, bool) {
	switch note.Kind {
	case game.Tap, game.Flick:
		lane := shift(note.Lane)
		if note.Lane == game.CenterLane {
			var ok bool
			if lane, ok = o.resolveCenter(note.Beat, last); !ok {
				return game.Note{}, last, false
			}
		}
		mapped := note.Clone()
		mapped.Lane = lane
		return mapped, sideOf(lane), true

	case game.Hold, game.Slide:
		first := note.Connections[0]
		var start game.Lane
		if first.Lane == game.CenterLane {
			var ok bool
			if start, ok = o.resolveCenter(first.Beat, last); !ok {
				return game.Note{}, last, false
			}
		}
		mapped := note.Clone()
		conns := mapped.Connections
		for i := range conns {
			switch {
			case conns[i].Lane != game.CenterLane:
				conns[i].Lane = shift(conns[i].Lane)
			case i == 0:
				conns[i].Lane = start
			default:
				// follow the path, never flip sides mid note
				conns[i].Lane = conns[i-1].Lane
			}
		}
		return mapped, sideOf(conns[len(conns)-1].Lane), true
	}
	return note, last, true
}
