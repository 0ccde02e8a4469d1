package game

import (
	"errors"
	"fmt"
)

const (
	SourceLanes = 7
	TargetLanes = 6

	// CenterLane has no counterpart on the 6 lane playfield
	CenterLane Lane = 3
)

var (
	ErrMalformedNote       = errors.New("malformed note")
	ErrLaneOutOfRange      = errors.New("lane out of range")
	ErrUnsortedConnections = errors.New("connections not sorted by beat")
)

type Chart struct {
	Notes []Note
}

// Validate checks that every note fits a playfield of the given width.
// Conversion assumes a chart that passed Validate with SourceLanes.
func (c *Chart) Validate(lanes int) error {
	for i := range c.Notes {
		if err := c.Notes[i].validate(lanes); nil != err {
			return fmt.Errorf("note %d (%v): %w", i, c.Notes[i].Kind, err)
		}
	}
	return nil
}

func (n *Note) validate(lanes int) error {
	inRange := func(l Lane) bool { return l >= 0 && int(l) < lanes }
	switch n.Kind {
	case Tempo, Control:
		return nil
	case Tap, Flick:
		if !inRange(n.Lane) {
			return fmt.Errorf("%w: %d", ErrLaneOutOfRange, n.Lane)
		}
		return nil
	case Hold, Slide:
		if len(n.Connections) < 2 {
			return fmt.Errorf("%w: %d connections", ErrMalformedNote, len(n.Connections))
		}
		for i, conn := range n.Connections {
			if !inRange(conn.Lane) {
				return fmt.Errorf("%w: connection %d lane %d", ErrLaneOutOfRange, i, conn.Lane)
			}
			if i > 0 && conn.Beat < n.Connections[i-1].Beat {
				return fmt.Errorf("%w: connection %d at beat %v", ErrUnsortedConnections, i, conn.Beat)
			}
		}
		return nil
	}
	return fmt.Errorf("%w: kind %d", ErrMalformedNote, n.Kind)
}

// Count returns the number of notes per kind.
func (c *Chart) Count() map[Kind]int {
	counts := make(map[Kind]int)
	for _, n := range c.Notes {
		counts[n.Kind]++
	}
	return counts
}

// LastBeat is the latest beat any lane bearing note reaches.
func (c *Chart) LastBeat() Beat {
	var last Beat
	for i := range c.Notes {
		if !c.Notes[i].Kind.HasLane() {
			continue
		}
		if end := c.Notes[i].End(); end > last {
			last = end
		}
	}
	return last
}
