package marey

import (
	"sync"

	"github.com/mini-rodalies-3d/thetrains/internal/schedule"
)

// Projector turns trips into diagram paths. It remembers the vertical
// anchor of every trip it has drawn in absolute mode; the anchor is taken
// from the first projection and reused on every later one.
type Projector struct {
	header *Header

	mu      sync.Mutex
	anchors map[string]float64
}

// NewProjector creates a projector over header
func NewProjector(header *Header) *Projector {
	return &Projector{
		header:  header,
		anchors: make(map[string]float64),
	}
}

// Header returns the ordinate table used for the x axis
func (p *Projector) Header() *Header {
	return p.header
}

// ProjectTrip maps every stop of trip to (x, y). Stops missing from the
// header become breaks and are listed in Path.Missing.
//
// In relative mode the first stop sits at y = 0 and x is measured from the
// first stop that can be placed. Otherwise y is offset by the trip's anchor.
func (p *Projector) ProjectTrip(trip *schedule.Trip, x, y LinearScale, relative bool) Path {
	path := Path{
		TripID: trip.ID,
		Line:   trip.Line,
		Points: make([]PathPoint, 0, len(trip.Stops)),
	}
	if len(trip.Stops) == 0 {
		return path
	}

	y0 := y.Map(trip.Stops[0].Time)
	if !relative {
		path.Anchor = p.anchor(trip.ID, y0)
	}

	startX, haveStart := 0.0, !relative
	for i, stop := range trip.Stops {
		key := trip.Key(i)
		ordinate, ok := p.header.Lookup(key)
		if !ok {
			path.Points = append(path.Points, PathPoint{Break: true})
			path.Missing = append(path.Missing, key)
			continue
		}

		px := x.Map(ordinate)
		if !haveStart {
			startX, haveStart = px, true
		}
		path.Points = append(path.Points, PathPoint{
			X: px - startX,
			Y: y.Map(stop.Time) - y0 + path.Anchor,
		})
	}
	return path
}

// ProjectAll projects every trip in order
func (p *Projector) ProjectAll(trips []*schedule.Trip, x, y LinearScale, relative bool) []Path {
	paths := make([]Path, 0, len(trips))
	for _, trip := range trips {
		paths = append(paths, p.ProjectTrip(trip, x, y, relative))
	}
	return paths
}

// Anchor returns the memoized anchor of a trip, if it has one
func (p *Projector) Anchor(tripID string) (float64, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	a, ok := p.anchors[tripID]
	return a, ok
}

func (p *Projector) anchor(tripID string, y0 float64) float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	if a, ok := p.anchors[tripID]; ok {
		return a
	}
	p.anchors[tripID] = y0
	return y0
}
