package schedule

import "errors"

var (
	// ErrEmptyTrip is reported for trips without stop events
	ErrEmptyTrip = errors.New("trip has no stops")
	// ErrUnorderedStops is reported when stop times decrease within a trip
	ErrUnorderedStops = errors.New("stop times are not ordered")
)

// StopEvent is one scheduled (station, time) pair within a trip.
// Time is in unix seconds.
type StopEvent struct {
	StationID string
	Line      string
	Time      float64
}

// Trip is an ordered sequence of stop events on one line
type Trip struct {
	ID    string
	Line  string
	Stops []StopEvent
	Begin float64 // time of first stop
	End   float64 // time of last stop
}

// StopRecord is a stop as it appears in marey-trips.json
type StopRecord struct {
	Stop string  `json:"stop"`
	Time float64 `json:"time"`
}

// TripRecord is a trip as it appears in marey-trips.json
type TripRecord struct {
	Line  string       `json:"line"`
	Begin float64      `json:"begin"`
	End   float64      `json:"end"`
	Stops []StopRecord `json:"stops"`
}

// StationIndex is the part of the network the schedule validates against
type StationIndex interface {
	Has(stationID string) bool
}

// HeaderKey builds the stationId|line key used by the station header table
func HeaderKey(stationID, line string) string {
	return stationID + "|" + line
}

// Key returns the header key of the i-th stop
func (t *Trip) Key(i int) string {
	return HeaderKey(t.Stops[i].StationID, t.Stops[i].Line)
}

// ActiveAt reports whether the trip is running at time ts
func (t *Trip) ActiveAt(ts float64) bool {
	return t.Begin <= ts && ts <= t.End
}

// Duration returns End - Begin in seconds
func (t *Trip) Duration() float64 {
	return t.End - t.Begin
}
