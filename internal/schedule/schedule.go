package schedule

import (
	"fmt"
	"sort"

	"github.com/mini-rodalies-3d/thetrains/internal/network"
)

// Schedule holds every valid trip, sorted by begin time then id
type Schedule struct {
	trips    []*Trip
	byID     map[string]*Trip
	minBegin float64
	maxEnd   float64
}

// New validates trip records against the station index and builds the
// schedule. Invalid trips are left out and returned as problems; one bad
// trip never prevents the others from loading.
func New(records map[string]TripRecord, stations StationIndex) (*Schedule, []error) {
	var problems []error

	s := &Schedule{byID: make(map[string]*Trip, len(records))}

	for id, rec := range records {
		trip, err := buildTrip(id, rec, stations)
		if err != nil {
			problems = append(problems, err)
			continue
		}
		s.trips = append(s.trips, trip)
		s.byID[id] = trip
	}

	sort.Slice(s.trips, func(i, j int) bool {
		if s.trips[i].Begin != s.trips[j].Begin {
			return s.trips[i].Begin < s.trips[j].Begin
		}
		return s.trips[i].ID < s.trips[j].ID
	})
	// map iteration order is random; keep the report stable
	sort.Slice(problems, func(i, j int) bool {
		return problems[i].Error() < problems[j].Error()
	})

	for i, trip := range s.trips {
		if i == 0 || trip.Begin < s.minBegin {
			s.minBegin = trip.Begin
		}
		if i == 0 || trip.End > s.maxEnd {
			s.maxEnd = trip.End
		}
	}

	return s, problems
}

func buildTrip(id string, rec TripRecord, stations StationIndex) (*Trip, error) {
	if len(rec.Stops) == 0 {
		return nil, fmt.Errorf("trip %s: %w", id, ErrEmptyTrip)
	}

	trip := &Trip{
		ID:    id,
		Line:  rec.Line,
		Stops: make([]StopEvent, 0, len(rec.Stops)),
	}
	for i, st := range rec.Stops {
		if stations != nil && !stations.Has(st.Stop) {
			return nil, fmt.Errorf("trip %s stop %d: %w: %s", id, i, network.ErrUnknownStation, st.Stop)
		}
		if i > 0 && st.Time < rec.Stops[i-1].Time {
			return nil, fmt.Errorf("trip %s stop %d: %w", id, i, ErrUnorderedStops)
		}
		trip.Stops = append(trip.Stops, StopEvent{
			StationID: st.Stop,
			Line:      rec.Line,
			Time:      st.Time,
		})
	}

	trip.Begin = trip.Stops[0].Time
	trip.End = trip.Stops[len(trip.Stops)-1].Time
	return trip, nil
}

// TripsActiveAt returns the trips whose span contains ts, in begin order
func (s *Schedule) TripsActiveAt(ts float64) []*Trip {
	var active []*Trip
	for _, trip := range s.trips {
		if trip.Begin > ts {
			break
		}
		if trip.End >= ts {
			active = append(active, trip)
		}
	}
	return active
}

// TimeSpan returns the earliest begin and latest end across all trips
func (s *Schedule) TimeSpan() (minBegin, maxEnd float64) {
	return s.minBegin, s.maxEnd
}

// LongestDuration returns the duration of the longest trip
func (s *Schedule) LongestDuration() float64 {
	var longest float64
	for _, trip := range s.trips {
		if d := trip.Duration(); d > longest {
			longest = d
		}
	}
	return longest
}

// Trips returns all trips in begin order
func (s *Schedule) Trips() []*Trip {
	return s.trips
}

// Trip looks up a trip by id
func (s *Schedule) Trip(id string) (*Trip, bool) {
	t, ok := s.byID[id]
	return t, ok
}

// Len returns the number of loaded trips
func (s *Schedule) Len() int {
	return len(s.trips)
}
