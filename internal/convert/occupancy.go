package convert

import "git.lost.host/meutraa/lanecut/internal/game"

type span struct {
	start, end game.Beat
}

// Occupancy records when each source lane is held by some note.
// It is built once per conversion and only read afterwards.
type Occupancy map[game.Lane][]span

// BuildOccupancy derives one range per lane bearing note. Holds and slides
// occupy the lane of their first connection from its beat to the last
// connection's beat.
func BuildOccupancy(chart *game.Chart) Occupancy {
	o := make(Occupancy)
	for i := range chart.Notes {
		note := &chart.Notes[i]
		if !note.Kind.HasLane() {
			continue
		}
		lane, start := note.Start()
		o[lane] = append(o[lane], span{start: start, end: note.End()})
	}
	return o
}

// IsOccupied is inclusive at both ends of every range.
func (o Occupancy) IsOccupied(lane game.Lane, beat game.Beat) bool {
	for _, s := range o[lane] {
		if s.start <= beat && beat <= s.end {
			return true
		}
	}
	return false
}
