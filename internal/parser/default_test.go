package parser_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.lost.host/meutraa/lanecut/internal/convert"
	"git.lost.host/meutraa/lanecut/internal/game"
	"git.lost.host/meutraa/lanecut/internal/parser"
	"git.lost.host/meutraa/lanecut/internal/testdata"
)

func TestParse(t *testing.T) {
	chart, err := testdata.GetChart()
	require.NoError(t, err)
	require.Len(t, chart.Notes, 12)

	counts := chart.Count()
	assert.Equal(t, 1, counts[game.Control])
	assert.Equal(t, 2, counts[game.Tempo])
	assert.Equal(t, 5, counts[game.Tap])
	assert.Equal(t, 1, counts[game.Flick])
	assert.Equal(t, 1, counts[game.Hold])
	assert.Equal(t, 1, counts[game.Slide])

	flick := chart.Notes[6]
	assert.Equal(t, game.Lane(6), flick.Lane)
	assert.Equal(t, game.Beat(3), flick.Beat)
	assert.JSONEq(t, `"Right"`, string(flick.Extra["direction"]))

	slide := chart.Notes[10]
	require.Len(t, slide.Connections, 3)
	assert.Equal(t, game.Beat(7.5), slide.Connections[1].Beat)
	assert.JSONEq(t, `true`, string(slide.Connections[1].Extra["hidden"]))
	assert.Nil(t, slide.Extra)

	assert.Equal(t, game.Beat(6), chart.Notes[9].Beat)
	assert.Equal(t, game.Beat(8.25), chart.LastBeat())
}

func TestConvertRoundTrip(t *testing.T) {
	p := parser.DefaultParser{}
	chart, err := p.Parse([]byte(testdata.Chart7K))
	require.NoError(t, err)

	out, dropped := convert.Convert(chart)
	assert.Equal(t, testdata.Chart7KDropped, dropped)

	data, err := p.Encode(out, false)
	require.NoError(t, err)
	assert.JSONEq(t, testdata.Chart6K, string(data))

	// the result is a valid 6 lane chart
	six := parser.DefaultParser{Lanes: game.TargetLanes}
	_, err = six.Parse(data)
	assert.NoError(t, err)
}

func TestEncodeUnchanged(t *testing.T) {
	p := parser.DefaultParser{}
	chart, err := p.Parse([]byte(testdata.Chart7K))
	require.NoError(t, err)

	data, err := p.Encode(chart, true)
	require.NoError(t, err)
	assert.JSONEq(t, testdata.Chart7K, string(data))
}

func TestEncodeBuiltNotes(t *testing.T) {
	p := parser.DefaultParser{}
	data, err := p.Encode(&game.Chart{Notes: []game.Note{
		{Kind: game.Tempo, Beat: 0, Extra: game.Fields{"bpm": []byte(`150`)}},
		{Kind: game.Tap, Lane: 1, Beat: 0.5},
		{Kind: game.Hold, Connections: []game.Connection{{Lane: 0, Beat: 1}, {Lane: 5, Beat: 2}}},
	}}, false)
	require.NoError(t, err)
	assert.JSONEq(t, `[
		{"type":"BPM","bpm":150,"beat":0},
		{"type":"Single","lane":1,"beat":0.5},
		{"type":"Long","connections":[{"lane":0,"beat":1},{"lane":5,"beat":2}]}
	]`, string(data))

	empty, err := p.Encode(&game.Chart{}, false)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(empty))
}

var parseErrors = map[string]error{
	`[{"type":"Single","lane":7,"beat":1}]`:                                                 game.ErrLaneOutOfRange,
	`[{"type":"Single","lane":-1,"beat":1}]`:                                                game.ErrLaneOutOfRange,
	`[{"type":"Single","beat":1}]`:                                                          game.ErrMalformedNote,
	`[{"type":"Single","lane":null,"beat":1}]`:                                              game.ErrMalformedNote,
	`[{"type":"Single","lane":2.5,"beat":1}]`:                                               game.ErrMalformedNote,
	`[{"type":"Directional","lane":2}]`:                                                     game.ErrMalformedNote,
	`[{"type":"Long","connections":[{"lane":1,"beat":1}]}]`:                                game.ErrMalformedNote,
	`[{"type":"Slide"}]`:                                                                    game.ErrMalformedNote,
	`[{"type":"Slide","connections":[{"lane":1,"beat":2},{"lane":1,"beat":1}]}]`:            game.ErrUnsortedConnections,
	`[{"type":"Slide","connections":[{"lane":1,"beat":1},{"lane":9,"beat":2}]}]`:            game.ErrLaneOutOfRange,
	`[{"type":"Mine","lane":1,"beat":1}]`:                                                   parser.ErrUnknownNoteType,
	`[{"lane":1,"beat":1}]`:                                                                 game.ErrMalformedNote,
}

func TestParseErrors(t *testing.T) {
	p := parser.DefaultParser{}
	for in, expected := range parseErrors {
		_, err := p.Parse([]byte(in))
		if !errors.Is(err, expected) {
			t.Log("input   ", in)
			t.Log("error   ", err)
			t.Log("expected", expected)
			t.Fail()
		}
	}

	_, err := p.Parse([]byte(`{"type":"Single"}`))
	assert.Error(t, err)
}

func TestParseSixLanes(t *testing.T) {
	p := parser.DefaultParser{Lanes: game.TargetLanes}
	_, err := p.Parse([]byte(`[{"type":"Single","lane":6,"beat":1}]`))
	assert.ErrorIs(t, err, game.ErrLaneOutOfRange)
}

func TestParseFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "expert.json")
	require.NoError(t, os.WriteFile(path, []byte(testdata.Chart7K), 0o644))

	p := parser.DefaultParser{}
	chart, err := p.ParseFile(path)
	require.NoError(t, err)
	assert.Len(t, chart.Notes, 12)

	_, err = p.ParseFile(filepath.Join(t.TempDir(), "missing.json"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
