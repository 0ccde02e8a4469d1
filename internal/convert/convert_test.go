package convert

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"git.lost.host/meutraa/lanecut/internal/game"
)

func tap(lane game.Lane, beat game.Beat) game.Note {
	return game.Note{Kind: game.Tap, Lane: lane, Beat: beat}
}

func flick(lane game.Lane, beat game.Beat) game.Note {
	return game.Note{Kind: game.Flick, Lane: lane, Beat: beat}
}

func hold(points ...float64) game.Note {
	return path(game.Hold, points...)
}

func slide(points ...float64) game.Note {
	return path(game.Slide, points...)
}

// path takes lane, beat pairs
func path(kind game.Kind, points ...float64) game.Note {
	n := game.Note{Kind: kind}
	for i := 0; i+1 < len(points); i += 2 {
		n.Connections = append(n.Connections, game.Connection{Lane: game.Lane(points[i]), Beat: game.Beat(points[i+1])})
	}
	return n
}

func tempo(bpm string, beat game.Beat) game.Note {
	return game.Note{Kind: game.Tempo, Beat: beat, Raw: json.RawMessage(`{"type":"BPM","bpm":` + bpm + `,"beat":0}`)}
}

func lanes(c *game.Chart) []game.Lane {
	out := []game.Lane{}
	for _, n := range c.Notes {
		switch {
		case n.Kind.IsPath():
			for _, conn := range n.Connections {
				out = append(out, conn.Lane)
			}
		case n.Kind.HasLane():
			out = append(out, n.Lane)
		}
	}
	return out
}

func TestShiftOutsideCenter(t *testing.T) {
	expected := map[game.Lane]game.Lane{0: 0, 1: 1, 2: 2, 4: 3, 5: 4, 6: 5}
	for in, want := range expected {
		// surround the note with every neighbour so occupancy can't matter
		chart := &game.Chart{Notes: []game.Note{tap(2, 1), tap(4, 1), hold(3, 0, 3, 2), tap(in, 1)}}
		out, _ := Convert(chart)
		got := out.Notes[len(out.Notes)-1].Lane
		if got != want {
			t.Log("lane    ", in)
			t.Log("got     ", got)
			t.Log("expected", want)
			t.Fail()
		}
	}
}

func TestScenarios(t *testing.T) {
	tests := []struct {
		name    string
		notes   []game.Note
		lanes   []game.Lane
		dropped int
	}{
		{"lone center tap goes left", []game.Note{tap(3, 1)}, []game.Lane{2}, 0},
		{"both sides held", []game.Note{tap(2, 1), tap(4, 1), tap(3, 1)}, []game.Lane{2, 3}, 1},
		{"left held", []game.Note{tap(2, 1), tap(3, 1)}, []game.Lane{2, 3}, 0},
		{"right held", []game.Note{tap(4, 1), tap(3, 1)}, []game.Lane{3, 2}, 0},
		{"alternates when free", []game.Note{tap(3, 1), tap(3, 2), tap(3, 3), tap(3, 4)}, []game.Lane{2, 3, 2, 3}, 0},
		{"side follows plain notes", []game.Note{tap(0, 1), tap(3, 2), tap(6, 3), tap(3, 4)}, []game.Lane{0, 3, 5, 2}, 0},
		{"flick is a tap", []game.Note{flick(2, 1), flick(4, 1), flick(3, 1), flick(3, 2)}, []game.Lane{2, 3, 2}, 1},
		{"hold end is inclusive", []game.Note{hold(2, 0, 2, 4), tap(4, 4), tap(3, 4)}, []game.Lane{2, 2, 3}, 1},
		{"hold range uses first lane", []game.Note{hold(4, 0, 2, 4), tap(3, 2)}, []game.Lane{3, 2, 2}, 0},
		{"tap just past hold", []game.Note{hold(2, 0, 2, 4), tap(4, 4.5), tap(3, 4.25)}, []game.Lane{2, 2, 3, 2}, 0},
		{"dropped hold counts once", []game.Note{tap(2, 1), tap(4, 1), hold(3, 1, 3, 2, 3, 3)}, []game.Lane{2, 3}, 1},
		{"center path keeps its side", []game.Note{tap(2, 1), slide(3, 1, 3, 2, 3, 3)}, []game.Lane{2, 3, 3, 3}, 0},
		{"path follows previous connection", []game.Note{slide(3, 1, 5, 2, 3, 3, 1, 4, 3, 5)}, []game.Lane{2, 4, 4, 1, 1}, 0},
		{"side from last connection", []game.Note{hold(0, 1, 6, 2), tap(3, 3)}, []game.Lane{0, 5, 2}, 0},
		{"drop keeps side", []game.Note{tap(4, 1), tap(2, 1), tap(3, 1), tap(3, 2)}, []game.Lane{3, 2, 3}, 1},
		{"tempo keeps side", []game.Note{tap(3, 1), tempo("150", 1.5), tap(3, 2)}, []game.Lane{2, 3}, 0},
		{"control keeps side", []game.Note{tap(3, 1), {Kind: game.Control, Beat: 1.5, Raw: json.RawMessage(`{"type":"System","data":"bgm.wav","beat":1.5}`)}, tap(3, 2)}, []game.Lane{2, 3}, 0},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			out, dropped := Convert(&game.Chart{Notes: test.notes})
			assert.Equal(t, test.lanes, lanes(out))
			assert.Equal(t, test.dropped, dropped)
		})
	}
}

func TestPassThroughAndOrder(t *testing.T) {
	in := &game.Chart{Notes: []game.Note{
		tempo("120", 0),
		tap(1, 0),
		{Kind: game.Control, Raw: json.RawMessage(`{"type":"System","data":"bgm.wav","beat":0}`)},
		tap(2, 1),
		tap(4, 1),
		tap(3, 1),
		tempo("180", 2),
		hold(5, 2, 6, 3),
	}}
	out, dropped := Convert(in)
	require.Equal(t, 1, dropped)
	require.Len(t, out.Notes, 7)

	kinds := []game.Kind{}
	for _, n := range out.Notes {
		kinds = append(kinds, n.Kind)
	}
	assert.Equal(t, []game.Kind{game.Tempo, game.Tap, game.Control, game.Tap, game.Tap, game.Tempo, game.Hold}, kinds)
	assert.Equal(t, in.Notes[0], out.Notes[0])
	assert.Equal(t, in.Notes[2], out.Notes[2])
	assert.Equal(t, in.Notes[6], out.Notes[5])
}

func TestNoCenterKeepsEveryNote(t *testing.T) {
	in := &game.Chart{Notes: []game.Note{tap(0, 0), flick(6, 0), hold(1, 0, 2, 1), slide(4, 1, 6, 2, 5, 3), tap(5, 3)}}
	out, dropped := Convert(in)
	assert.Zero(t, dropped)
	assert.Len(t, out.Notes, len(in.Notes))
	assert.Equal(t, []game.Lane{0, 5, 1, 2, 3, 5, 4, 4}, lanes(out))
}

func TestExtraFieldsSurvive(t *testing.T) {
	in := &game.Chart{Notes: []game.Note{
		{Kind: game.Flick, Lane: 5, Beat: 1, Extra: game.Fields{"direction": json.RawMessage(`"Right"`), "width": json.RawMessage(`2`)}},
		{Kind: game.Slide, Connections: []game.Connection{
			{Lane: 3, Beat: 2},
			{Lane: 3, Beat: 3, Extra: game.Fields{"hidden": json.RawMessage(`true`)}},
			{Lane: 4, Beat: 4, Extra: game.Fields{"flick": json.RawMessage(`true`)}},
		}},
	}}
	out, _ := Convert(in)

	want := []game.Note{
		{Kind: game.Flick, Lane: 4, Beat: 1, Extra: game.Fields{"direction": json.RawMessage(`"Right"`), "width": json.RawMessage(`2`)}},
		{Kind: game.Slide, Connections: []game.Connection{
			{Lane: 2, Beat: 2},
			{Lane: 2, Beat: 3, Extra: game.Fields{"hidden": json.RawMessage(`true`)}},
			{Lane: 3, Beat: 4, Extra: game.Fields{"flick": json.RawMessage(`true`)}},
		}},
	}
	if diff := cmp.Diff(want, out.Notes); diff != "" {
		t.Errorf("converted notes mismatch (-want +got):\n%s", diff)
	}
}

func TestInputUntouched(t *testing.T) {
	in := &game.Chart{Notes: []game.Note{tap(3, 1), hold(3, 1, 6, 2), slide(4, 0, 3, 3)}}
	before := make([]game.Note, len(in.Notes))
	for i, n := range in.Notes {
		before[i] = n.Clone()
	}
	Convert(in)
	if diff := cmp.Diff(before, in.Notes); diff != "" {
		t.Errorf("input was modified (-before +after):\n%s", diff)
	}
}

func TestDeterministic(t *testing.T) {
	in := &game.Chart{Notes: []game.Note{
		tap(3, 0), tap(2, 1), tap(3, 1), hold(4, 1, 4, 3), tap(3, 2), tap(2, 2), tap(3, 2), slide(3, 4, 3, 5, 0, 6), tap(3, 7),
	}}
	first, firstDropped := Convert(in)
	second, secondDropped := Convert(in)
	assert.Equal(t, firstDropped, secondDropped)
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("conversions differ:\n%s", diff)
	}
}

func TestOccupancy(t *testing.T) {
	o := BuildOccupancy(&game.Chart{Notes: []game.Note{
		tempo("120", 0),
		tap(2, 1),
		hold(4, 2, 0, 3, 1, 5),
	}})

	tests := []struct {
		lane game.Lane
		beat game.Beat
		want bool
	}{
		{2, 1, true},
		{2, 1.001, false},
		{4, 2, true},
		{4, 4, true},
		{4, 5, true},
		{4, 5.5, false},
		{0, 3, false},
		{1, 5, false},
		{3, 1, false},
	}
	for _, test := range tests {
		assert.Equal(t, test.want, o.IsOccupied(test.lane, test.beat), "lane %d beat %v", test.lane, test.beat)
	}
}

func TestDefaultConverterLogsDrops(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	c := DefaultConverter{Logger: zap.New(core)}

	_, dropped := c.Convert(&game.Chart{Notes: []game.Note{tap(2, 1), tap(4, 1), tap(3, 1)}})
	require.Equal(t, 1, dropped)
	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, zap.WarnLevel, entry.Level)
	assert.EqualValues(t, 1, entry.ContextMap()["dropped"])
}
