package parser

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"

	"git.lost.host/meutraa/lanecut/internal/game"
)

var ErrUnknownNoteType = errors.New("unknown note type")

// Bestdori note type names
var wireKinds = map[string]game.Kind{
	"BPM":         game.Tempo,
	"System":      game.Control,
	"Single":      game.Tap,
	"Directional": game.Flick,
	"Long":        game.Hold,
	"Slide":       game.Slide,
}

var wireNames = map[game.Kind]string{
	game.Tempo:   "BPM",
	game.Control: "System",
	game.Tap:     "Single",
	game.Flick:   "Directional",
	game.Hold:    "Long",
	game.Slide:   "Slide",
}

// DefaultParser reads and writes Bestdori chart JSON. Lanes is the
// playfield width charts are validated against, 7 when zero.
type DefaultParser struct {
	Lanes int
}

func (p *DefaultParser) lanes() int {
	if p.Lanes == 0 {
		return game.SourceLanes
	}
	return p.Lanes
}

func (p *DefaultParser) ParseFile(file string) (*game.Chart, error) {
	data, err := os.ReadFile(file)
	if nil != err {
		return nil, err
	}
	chart, err := p.Parse(data)
	if nil != err {
		return nil, fmt.Errorf("%s: %w", file, err)
	}
	return chart, nil
}

func (p *DefaultParser) Parse(data []byte) (*game.Chart, error) {
	var records []json.RawMessage
	if err := json.Unmarshal(data, &records); nil != err {
		return nil, fmt.Errorf("unable to decode chart: %w", err)
	}

	chart := &game.Chart{Notes: make([]game.Note, 0, len(records))}
	for i, record := range records {
		note, err := parseNote(record)
		if nil != err {
			return nil, fmt.Errorf("note %d: %w", i, err)
		}
		chart.Notes = append(chart.Notes, note)
	}

	if err := chart.Validate(p.lanes()); nil != err {
		return nil, err
	}
	return chart, nil
}

func parseNote(record json.RawMessage) (game.Note, error) {
	var fields game.Fields
	if err := json.Unmarshal(record, &fields); nil != err {
		return game.Note{}, err
	}

	var name string
	if err := json.Unmarshal(fields["type"], &name); nil != err {
		return game.Note{}, fmt.Errorf("%w: missing type", game.ErrMalformedNote)
	}
	kind, ok := wireKinds[name]
	if !ok {
		return game.Note{}, fmt.Errorf("%w: %q", ErrUnknownNoteType, name)
	}
	delete(fields, "type")

	note := game.Note{Kind: kind}
	switch kind {
	case game.Tempo, game.Control:
		note.Raw = append(json.RawMessage(nil), record...)
		// beat is informational here, some system notes carry none
		if raw, ok := fields["beat"]; ok {
			var beat float64
			if err := json.Unmarshal(raw, &beat); nil == err {
				note.Beat = game.Beat(beat)
			}
		}
		delete(fields, "beat")

	case game.Tap, game.Flick:
		lane, beat, err := position(fields)
		if nil != err {
			return game.Note{}, err
		}
		note.Lane, note.Beat = lane, beat

	case game.Hold, game.Slide:
		var conns []game.Fields
		if err := json.Unmarshal(fields["connections"], &conns); nil != err {
			return game.Note{}, fmt.Errorf("%w: connections: %v", game.ErrMalformedNote, err)
		}
		delete(fields, "connections")
		note.Connections = make([]game.Connection, 0, len(conns))
		for i, c := range conns {
			lane, beat, err := position(c)
			if nil != err {
				return game.Note{}, fmt.Errorf("connection %d: %w", i, err)
			}
			note.Connections = append(note.Connections, game.Connection{Lane: lane, Beat: beat, Extra: orNil(c)})
		}
	}
	note.Extra = orNil(fields)
	return note, nil
}

// position takes lane and beat out of fields.
func position(fields game.Fields) (game.Lane, game.Beat, error) {
	lane, err := number(fields, "lane")
	if nil != err {
		return 0, 0, err
	}
	if lane != math.Trunc(lane) {
		return 0, 0, fmt.Errorf("%w: fractional lane %v", game.ErrMalformedNote, lane)
	}
	beat, err := number(fields, "beat")
	if nil != err {
		return 0, 0, err
	}
	delete(fields, "lane")
	delete(fields, "beat")
	return game.Lane(lane), game.Beat(beat), nil
}

func number(fields game.Fields, key string) (float64, error) {
	raw, ok := fields[key]
	if !ok || string(raw) == "null" {
		return 0, fmt.Errorf("%w: missing %s", game.ErrMalformedNote, key)
	}
	var v float64
	if err := json.Unmarshal(raw, &v); nil != err {
		return 0, fmt.Errorf("%w: %s: %v", game.ErrMalformedNote, key, err)
	}
	return v, nil
}

func orNil(f game.Fields) game.Fields {
	if len(f) == 0 {
		return nil
	}
	return f
}

func (p *DefaultParser) Encode(chart *game.Chart, indent bool) ([]byte, error) {
	records := make([]json.RawMessage, 0, len(chart.Notes))
	for i := range chart.Notes {
		record, err := encodeNote(&chart.Notes[i])
		if nil != err {
			return nil, fmt.Errorf("note %d: %w", i, err)
		}
		records = append(records, record)
	}
	if indent {
		return json.MarshalIndent(records, "", "  ")
	}
	return json.Marshal(records)
}

func encodeNote(n *game.Note) (json.RawMessage, error) {
	if !n.Kind.HasLane() && nil != n.Raw {
		return n.Raw, nil
	}
	name, ok := wireNames[n.Kind]
	if !ok {
		return nil, fmt.Errorf("%w: kind %d", ErrUnknownNoteType, n.Kind)
	}

	out := make(map[string]any, len(n.Extra)+3)
	for k, v := range n.Extra {
		out[k] = v
	}
	out["type"] = name
	switch {
	case n.Kind.IsPath():
		conns := make([]map[string]any, len(n.Connections))
		for i, c := range n.Connections {
			conn := make(map[string]any, len(c.Extra)+2)
			for k, v := range c.Extra {
				conn[k] = v
			}
			conn["lane"] = c.Lane
			conn["beat"] = c.Beat
			conns[i] = conn
		}
		out["connections"] = conns
	case n.Kind.HasLane():
		out["lane"] = n.Lane
		out["beat"] = n.Beat
	default:
		out["beat"] = n.Beat
	}
	return json.Marshal(out)
}
