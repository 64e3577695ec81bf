package position

import (
	"fmt"
	"sort"

	"github.com/mini-rodalies-3d/thetrains/internal/network"
	"github.com/mini-rodalies-3d/thetrains/internal/schedule"
)

// DefaultRadius is the perpendicular distance between a glyph and its line
const DefaultRadius = 2

// Status values for an estimate
const (
	StatusStoppedAt   = "STOPPED_AT"
	StatusInTransitTo = "IN_TRANSIT_TO"
	StatusArriving    = "ARRIVING"
)

// Estimate is the interpolated position of one trip at one instant
type Estimate struct {
	TripID        string
	Line          string
	Point         network.Point
	Heading       float64
	FromStationID string
	ToStationID   string
	Progress      float64 // 0.0-1.0 between the two stops
	Status        string
}

// Interpolator places trips on the map at arbitrary times
type Interpolator struct {
	positions network.Positioner
	radius    float64
}

// New creates an interpolator resolving stations through p
func New(p network.Positioner, radius float64) *Interpolator {
	return &Interpolator{positions: p, radius: radius}
}

// PositionAt returns the glyph position of trip at ts, or false when the
// trip is not running at ts or one of its stations cannot be placed
func (ip *Interpolator) PositionAt(trip *schedule.Trip, ts float64) (network.Point, bool) {
	est, err := ip.Estimate(trip, ts)
	if err != nil || est == nil {
		return network.Point{}, false
	}
	return est.Point, true
}

// Estimate interpolates the position of a trip at ts.
// It returns nil, nil when ts is outside the trip's span.
func (ip *Interpolator) Estimate(trip *schedule.Trip, ts float64) (*Estimate, error) {
	if len(trip.Stops) == 0 || !trip.ActiveAt(ts) {
		return nil, nil
	}

	if len(trip.Stops) == 1 {
		stop := trip.Stops[0]
		p, err := ip.positions.Position(stop.StationID)
		if err != nil {
			return nil, fmt.Errorf("trip %s: %w", trip.ID, err)
		}
		return &Estimate{
			TripID:        trip.ID,
			Line:          trip.Line,
			Point:         p,
			FromStationID: stop.StationID,
			ToStationID:   stop.StationID,
			Status:        StatusStoppedAt,
		}, nil
	}

	from, to, progress := findCurrentSegment(trip.Stops, ts)

	fromPos, err := ip.positions.Position(from.StationID)
	if err != nil {
		return nil, fmt.Errorf("trip %s: %w", trip.ID, err)
	}
	toPos, err := ip.positions.Position(to.StationID)
	if err != nil {
		return nil, fmt.Errorf("trip %s: %w", trip.ID, err)
	}

	status := StatusInTransitTo
	if progress >= 0.95 {
		status = StatusArriving
	} else if progress <= 0.05 {
		status = StatusStoppedAt
	}

	return &Estimate{
		TripID:        trip.ID,
		Line:          trip.Line,
		Point:         PlaceWithOffset(fromPos, toPos, progress, ip.radius),
		Heading:       Heading(fromPos, toPos),
		FromStationID: from.StationID,
		ToStationID:   to.StationID,
		Progress:      progress,
		Status:        status,
	}, nil
}

// findCurrentSegment finds the pair of consecutive stops bracketing ts.
// stops must hold at least two events and ts must lie within their span.
// A ts equal to a stop time starts the segment leaving that stop (progress 0);
// the last stop time ends the final segment (progress 1).
func findCurrentSegment(stops []schedule.StopEvent, ts float64) (*schedule.StopEvent, *schedule.StopEvent, float64) {
	// first stop strictly after ts
	j := sort.Search(len(stops), func(k int) bool { return stops[k].Time > ts })
	i := j - 1
	if i >= len(stops)-1 {
		i = len(stops) - 2
	}
	if i < 0 {
		i = 0
	}

	prev := &stops[i]
	next := &stops[i+1]

	duration := next.Time - prev.Time
	if duration <= 0 {
		return prev, next, 0
	}
	return prev, next, Clamp((ts-prev.Time)/duration, 0, 1)
}
