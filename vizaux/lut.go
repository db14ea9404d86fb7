package vizaux

import (
	"errors"
	"fmt"
	"sort"

	"github.com/soypat/geometry/ms3"
)

// Stop is one color stop of a lookup gradient. Pos is in [0,1]; Color
// components are linear RGB in [0,1].
type Stop struct {
	Pos   float32
	Color ms3.Vec
}

// LUTData builds a width x 1 RGBA float texture row interpolating linearly
// between the color stops. Positions outside the stop range clamp to the
// nearest stop. Stops are sorted by position; at least two are required.
func LUTData(width int, stops []Stop) ([]float32, error) {
	if width <= 0 {
		return nil, fmt.Errorf("non-positive LUT width %d", width)
	}
	if len(stops) < 2 {
		return nil, errors.New("LUT requires at least two color stops")
	}
	sorted := append([]Stop(nil), stops...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Pos < sorted[j].Pos })
	for _, s := range sorted {
		if s.Pos < 0 || s.Pos > 1 {
			return nil, fmt.Errorf("LUT stop position %v outside [0,1]", s.Pos)
		}
	}
	data := make([]float32, width*4)
	for x := 0; x < width; x++ {
		pos := (float32(x) + 0.5) / float32(width)
		c := sampleStops(sorted, pos)
		data[x*4+0] = c.X
		data[x*4+1] = c.Y
		data[x*4+2] = c.Z
		data[x*4+3] = 1
	}
	return data, nil
}

func sampleStops(sorted []Stop, pos float32) ms3.Vec {
	if pos <= sorted[0].Pos {
		return sorted[0].Color
	}
	last := sorted[len(sorted)-1]
	if pos >= last.Pos {
		return last.Color
	}
	for i := 1; i < len(sorted); i++ {
		if pos > sorted[i].Pos {
			continue
		}
		lo, hi := sorted[i-1], sorted[i]
		span := hi.Pos - lo.Pos
		if span <= 0 {
			return hi.Color
		}
		t := (pos - lo.Pos) / span
		return ms3.Add(ms3.Scale(1-t, lo.Color), ms3.Scale(t, hi.Color))
	}
	return last.Color
}

// DefaultStops is a dark violet to warm white gradient suited to additive
// particle blending.
func DefaultStops() []Stop {
	return []Stop{
		{Pos: 0, Color: ms3.Vec{X: 0.10, Y: 0.02, Z: 0.25}},
		{Pos: 0.35, Color: ms3.Vec{X: 0.45, Y: 0.12, Z: 0.60}},
		{Pos: 0.7, Color: ms3.Vec{X: 0.95, Y: 0.45, Z: 0.30}},
		{Pos: 1, Color: ms3.Vec{X: 1, Y: 0.95, Z: 0.80}},
	}
}
