// Package render draws charts as text, one row per grid step with the
// earliest beat at the top.
package render

import (
	"errors"
	"fmt"
	"image/color"
	"io"
	"math"
	"strconv"
	"strings"

	"git.lost.host/meutraa/lanecut/internal/game"
	"git.lost.host/meutraa/lanecut/internal/theme"
)

const (
	labelWidth = 7

	DefaultMaxRows = 100000
)

var ErrTooManyRows = errors.New("chart too long to draw")

var snaps = [...]int{1, 2, 3, 4, 6, 8, 12, 16}

type DefaultRenderer struct {
	Theme theme.Theme
	Lanes int
	// Rows per beat
	Division int
	// Columns per lane, at least 1
	CellWidth int
	Color     bool
	// Largest grid drawn, DefaultMaxRows when 0
	MaxRows int

	buffer strings.Builder
}

type cell struct {
	set   bool
	head  bool
	kind  game.Kind
	denom int
}

func (r *DefaultRenderer) defaults() {
	if nil == r.Theme {
		r.Theme = &theme.DefaultTheme{}
	}
	if r.Lanes <= 0 {
		r.Lanes = game.SourceLanes
	}
	if r.Division <= 0 {
		r.Division = 4
	}
	if r.CellWidth <= 0 {
		r.CellWidth = 2
	}
	if r.MaxRows <= 0 {
		r.MaxRows = DefaultMaxRows
	}
}

// snap returns the smallest beat subdivision the beat falls on, -1 if none.
func snap(beat game.Beat) int {
	for _, d := range snaps {
		v := float64(beat) * float64(d)
		if math.Abs(v-math.Round(v)) < 1e-6 {
			return d
		}
	}
	return -1
}

func (r *DefaultRenderer) row(beat game.Beat) int {
	return int(math.Round(float64(beat) * float64(r.Division)))
}

func (r *DefaultRenderer) grid(chart *game.Chart) ([][]cell, error) {
	rows := 0
	if last := float64(chart.LastBeat()); last > 0 {
		if math.Round(last*float64(r.Division))+1 > float64(r.MaxRows) {
			return nil, fmt.Errorf("%w: last beat %v needs more than %d rows", ErrTooManyRows, last, r.MaxRows)
		}
		rows = r.row(chart.LastBeat())
	}
	grid := make([][]cell, rows+1)
	for i := range grid {
		grid[i] = make([]cell, r.Lanes)
	}

	// bodies first so heads and taps draw over them
	for _, n := range chart.Notes {
		if !n.Kind.IsPath() {
			continue
		}
		for i := 1; i < len(n.Connections); i++ {
			from, to := n.Connections[i-1], n.Connections[i]
			for row := r.row(from.Beat) + 1; row < r.row(to.Beat); row++ {
				if c := at(grid, row, from.Lane); nil != c && !c.set {
					*c = cell{set: true, kind: n.Kind, denom: -1}
				}
			}
		}
	}
	for _, n := range chart.Notes {
		switch {
		case n.Kind.IsPath():
			for _, conn := range n.Connections {
				if c := at(grid, r.row(conn.Beat), conn.Lane); nil != c {
					*c = cell{set: true, head: true, kind: n.Kind, denom: snap(conn.Beat)}
				}
			}
		case n.Kind.HasLane():
			if c := at(grid, r.row(n.Beat), n.Lane); nil != c {
				*c = cell{set: true, head: true, kind: n.Kind, denom: snap(n.Beat)}
			}
		}
	}
	return grid, nil
}

// at is nil for notes before beat 0
func at(grid [][]cell, row int, lane game.Lane) *cell {
	if row < 0 || row >= len(grid) {
		return nil
	}
	return &grid[row][lane]
}

// Render writes the chart, failing if a note is outside the lane count.
func (r *DefaultRenderer) Render(w io.Writer, chart *game.Chart) error {
	r.defaults()
	if err := chart.Validate(r.Lanes); nil != err {
		return err
	}
	grid, err := r.grid(chart)
	if nil != err {
		return err
	}

	r.buffer.Reset()
	r.Fill(labelWidth, "")
	for lane := 0; lane < r.Lanes; lane++ {
		r.Fill(r.width(lane), strconv.Itoa(lane))
	}
	r.buffer.WriteByte('\n')

	for i, cells := range grid {
		label := ""
		if i%r.Division == 0 {
			label = fmt.Sprintf("%6.2f", float64(i)/float64(r.Division))
		}
		r.Fill(labelWidth, label)
		for lane, c := range cells {
			if !c.set {
				r.Fill(r.width(lane), r.Theme.Empty())
				continue
			}
			sym := r.Theme.Symbol(c.kind, c.head)
			if r.Color {
				r.FillColor(r.width(lane), r.Theme.NoteColor(c.kind, c.denom), sym)
			} else {
				r.Fill(r.width(lane), sym)
			}
		}
		r.buffer.WriteByte('\n')
	}
	return r.flush(w)
}

// width of a lane cell, the last lane is not padded
func (r *DefaultRenderer) width(lane int) int {
	if lane == r.Lanes-1 {
		return 1
	}
	return r.CellWidth
}

// Fill writes message padded to width columns.
func (r *DefaultRenderer) Fill(width int, message string) {
	r.buffer.WriteString(message)
	if pad := width - len(message); pad > 0 {
		r.buffer.WriteString(strings.Repeat(" ", pad))
	}
}

func (r *DefaultRenderer) FillColor(width int, c color.RGBA, message string) {
	r.buffer.WriteString("\033[38;2;")
	r.buffer.WriteString(strconv.FormatInt(int64(c.R), 10))
	r.buffer.WriteString(";")
	r.buffer.WriteString(strconv.FormatInt(int64(c.G), 10))
	r.buffer.WriteString(";")
	r.buffer.WriteString(strconv.FormatInt(int64(c.B), 10))
	r.buffer.WriteString("m")
	r.buffer.WriteString(message)
	r.buffer.WriteString("\033[0m")
	if pad := width - len(message); pad > 0 {
		r.buffer.WriteString(strings.Repeat(" ", pad))
	}
}

func (r *DefaultRenderer) flush(w io.Writer) error {
	_, err := io.WriteString(w, r.buffer.String())
	r.buffer.Reset()
	return err
}
