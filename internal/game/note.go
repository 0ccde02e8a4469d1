package game

import (
	"encoding/json"
	"maps"
)

type Kind uint8

const (
	Tempo Kind = iota
	Control
	Tap
	Flick
	Hold
	Slide
)

var kindNames = [...]string{"tempo", "control", "tap", "flick", "hold", "slide"}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// HasLane reports whether notes of this kind sit on the playfield.
func (k Kind) HasLane() bool {
	return k >= Tap && k <= Slide
}

// IsPath reports whether notes of this kind are described by connections.
func (k Kind) IsPath() bool {
	return k == Hold || k == Slide
}

// Lane is a playfield column. 7-lane charts use 0-6, 6-lane charts 0-5.
type Lane int

// Beat is the chart time coordinate. Beats are compared exactly.
type Beat float64

// Fields holds wire attributes that are carried through untouched.
type Fields map[string]json.RawMessage

type Connection struct {
	Lane  Lane
	Beat  Beat
	Extra Fields
}

type Note struct {
	Kind Kind
	Lane Lane // Tap and Flick only
	Beat Beat // Tap and Flick only

	// Hold and Slide path, ordered by beat
	Connections []Connection

	Extra Fields

	// Verbatim wire form of Tempo and Control notes
	Raw json.RawMessage
}

// Start returns the lane and beat the note begins on.
func (n *Note) Start() (Lane, Beat) {
	if n.Kind.IsPath() {
		c := n.Connections[0]
		return c.Lane, c.Beat
	}
	return n.Lane, n.Beat
}

// End returns the beat the note stops holding its lane.
func (n *Note) End() Beat {
	if n.Kind.IsPath() {
		return n.Connections[len(n.Connections)-1].Beat
	}
	return n.Beat
}

// Clone returns a copy that shares no mutable state with n.
func (n Note) Clone() Note {
	c := n
	c.Extra = maps.Clone(n.Extra)
	if nil != n.Raw {
		c.Raw = append(json.RawMessage(nil), n.Raw...)
	}
	if nil != n.Connections {
		c.Connections = make([]Connection, len(n.Connections))
		for i, conn := range n.Connections {
			conn.Extra = maps.Clone(conn.Extra)
			c.Connections[i] = conn
		}
	}
	return c
}
