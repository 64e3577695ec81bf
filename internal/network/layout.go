package network

import (
	"fmt"
	"math"
)

// minMapWidth is the narrowest outer width the map glyph is drawn at
const minMapWidth = 250

// Layout holds station positions rescaled into a target box.
// Positions are relative to the inner box; the renderer applies the margin.
type Layout struct {
	Scale  float64
	Margin Margin
	Width  float64 // outer width
	Height float64 // outer height

	positions map[string]Point
}

// Normalize rescales every station position into the inner box of an
// outerWidth x outerHeight area, preserving aspect ratio.
func (n *Network) Normalize(outerWidth, outerHeight float64, m Margin) *Layout {
	width := outerWidth - m.Left - m.Right
	height := outerHeight - m.Top - m.Bottom

	min, max := n.Extent()
	xRange := max.X - min.X
	yRange := max.Y - min.Y

	scale := math.Inf(1)
	if xRange > 0 {
		scale = math.Min(scale, width/xRange)
	}
	if yRange > 0 {
		scale = math.Min(scale, height/yRange)
	}
	if math.IsInf(scale, 1) || scale <= 0 {
		scale = 1
	}

	l := &Layout{
		Scale:     scale,
		Margin:    m,
		Width:     math.Max(minMapWidth, scale*xRange+m.Left+m.Right),
		Height:    scale*yRange + m.Top + m.Bottom,
		positions: make(map[string]Point, len(n.stations)),
	}
	for id, s := range n.stations {
		l.positions[id] = Point{
			X: (s.Position.X - min.X) * scale,
			Y: (s.Position.Y - min.Y) * scale,
		}
	}
	return l
}

// Position returns the normalized position of a station
func (l *Layout) Position(id string) (Point, error) {
	p, ok := l.positions[id]
	if !ok {
		return Point{}, fmt.Errorf("%w: %s", ErrUnknownStation, id)
	}
	return p, nil
}
