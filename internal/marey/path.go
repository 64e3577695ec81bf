package marey

import (
	"github.com/twpayne/go-polyline"

	"github.com/mini-rodalies-3d/thetrains/internal/network"
)

// PathPoint is one vertex of a trip path. A Break lifts the pen.
type PathPoint struct {
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Break bool    `json:"break,omitempty"`
}

// Path is a trip projected onto the diagram
type Path struct {
	TripID  string      `json:"tripId"`
	Line    string      `json:"line"`
	Anchor  float64     `json:"anchor"`
	Points  []PathPoint `json:"points"`
	Missing []string    `json:"missing,omitempty"` // header keys that produced a break
}

// Runs splits the path at breaks into contiguous polylines.
// Empty runs are dropped.
func (p Path) Runs() [][]network.Point {
	var runs [][]network.Point
	var current []network.Point
	for _, pt := range p.Points {
		if pt.Break {
			if len(current) > 0 {
				runs = append(runs, current)
			}
			current = nil
			continue
		}
		current = append(current, network.Point{X: pt.X, Y: pt.Y})
	}
	if len(current) > 0 {
		runs = append(runs, current)
	}
	return runs
}

// Encode returns each run as an encoded polyline
func (p Path) Encode() []string {
	runs := p.Runs()
	encoded := make([]string, 0, len(runs))
	for _, run := range runs {
		coords := make([][]float64, 0, len(run))
		for _, pt := range run {
			coords = append(coords, []float64{pt.X, pt.Y})
		}
		encoded = append(encoded, string(polyline.EncodeCoords(coords)))
	}
	return encoded
}
