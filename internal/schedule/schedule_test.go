package schedule

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mini-rodalies-3d/thetrains/internal/network"
)

type stationSet map[string]bool

func (s stationSet) Has(id string) bool { return s[id] }

var known = stationSet{"A": true, "B": true, "C": true}

func TestNewBuildsTrips(t *testing.T) {
	s, problems := New(map[string]TripRecord{
		"t1": {Line: "red", Begin: 999, End: 999, Stops: []StopRecord{{"A", 100}, {"B", 200}, {"C", 260}}},
		"t2": {Line: "red", Stops: []StopRecord{{"C", 50}, {"B", 120}}},
	}, known)
	require.Empty(t, problems)
	require.Equal(t, 2, s.Len())

	trip, ok := s.Trip("t1")
	require.True(t, ok)
	// begin/end always come from the stops
	assert.Equal(t, 100.0, trip.Begin)
	assert.Equal(t, 260.0, trip.End)
	assert.Equal(t, "B|red", trip.Key(1))
	assert.Equal(t, "red", trip.Stops[2].Line)

	// sorted by begin
	assert.Equal(t, "t2", s.Trips()[0].ID)

	minBegin, maxEnd := s.TimeSpan()
	assert.Equal(t, 50.0, minBegin)
	assert.Equal(t, 260.0, maxEnd)
	assert.Equal(t, 160.0, s.LongestDuration())
}

func TestNewDropsInvalidTrips(t *testing.T) {
	s, problems := New(map[string]TripRecord{
		"good":      {Line: "red", Stops: []StopRecord{{"A", 0}, {"B", 10}}},
		"empty":     {Line: "red"},
		"unordered": {Line: "red", Stops: []StopRecord{{"A", 10}, {"B", 5}}},
		"ghost":     {Line: "red", Stops: []StopRecord{{"A", 0}, {"X", 10}}},
	}, known)

	assert.Equal(t, 1, s.Len())
	require.Len(t, problems, 3)

	var empty, unordered, unknown int
	for _, err := range problems {
		switch {
		case errors.Is(err, ErrEmptyTrip):
			empty++
		case errors.Is(err, ErrUnorderedStops):
			unordered++
		case errors.Is(err, network.ErrUnknownStation):
			unknown++
		}
	}
	assert.Equal(t, 1, empty)
	assert.Equal(t, 1, unordered)
	assert.Equal(t, 1, unknown)
}

func TestSimultaneousStopsAreAllowed(t *testing.T) {
	s, problems := New(map[string]TripRecord{
		"t": {Line: "red", Stops: []StopRecord{{"A", 10}, {"B", 10}, {"C", 20}}},
	}, known)
	require.Empty(t, problems)
	assert.Equal(t, 1, s.Len())
}

func TestTripsActiveAt(t *testing.T) {
	s, _ := New(map[string]TripRecord{
		"early": {Line: "red", Stops: []StopRecord{{"A", 0}, {"B", 100}}},
		"mid":   {Line: "red", Stops: []StopRecord{{"A", 50}, {"B", 150}}},
		"late":  {Line: "red", Stops: []StopRecord{{"A", 200}, {"B", 300}}},
	}, known)

	tests := []struct {
		name string
		at   float64
		want []string
	}{
		{"before everything", -1, nil},
		{"begin is inclusive", 0, []string{"early"}},
		{"overlap", 75, []string{"early", "mid"}},
		{"end is inclusive", 100, []string{"early", "mid"}},
		{"gap", 175, nil},
		{"last trip end", 300, []string{"late"}},
		{"after everything", 301, nil},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var ids []string
			for _, trip := range s.TripsActiveAt(tc.at) {
				ids = append(ids, trip.ID)
				assert.True(t, trip.ActiveAt(tc.at))
			}
			assert.Equal(t, tc.want, ids)
		})
	}
}

func TestEmptySchedule(t *testing.T) {
	s, problems := New(nil, known)
	assert.Empty(t, problems)
	minBegin, maxEnd := s.TimeSpan()
	assert.Zero(t, minBegin)
	assert.Zero(t, maxEnd)
	assert.Empty(t, s.TripsActiveAt(0))
}
