package db

import (
	"sort"

	"github.com/mini-rodalies-3d/thetrains/internal/dataset"
	"github.com/mini-rodalies-3d/thetrains/internal/network"
	"github.com/mini-rodalies-3d/thetrains/internal/schedule"
)

type stopRow struct {
	TripID   string
	Sequence int
	Station  string
	Time     float64
}

type headerRow struct {
	Key      string
	Sequence int
	Ordinate float64
}

// tripIDs returns the trip ids of ds in a stable order so repeated imports
// write identical rows
func tripIDs(ds *dataset.Dataset) []string {
	ids := make([]string, 0, len(ds.Trips))
	for id := range ds.Trips {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func stopRows(ds *dataset.Dataset) []stopRow {
	var rows []stopRow
	for _, id := range tripIDs(ds) {
		for i, stop := range ds.Trips[id].Stops {
			rows = append(rows, stopRow{TripID: id, Sequence: i, Station: stop.Stop, Time: stop.Time})
		}
	}
	return rows
}

func headerRows(ds *dataset.Dataset) []headerRow {
	keys := make([]string, 0, len(ds.Header))
	for k := range ds.Header {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var rows []headerRow
	for _, k := range keys {
		for i, y := range ds.Header[k] {
			rows = append(rows, headerRow{Key: k, Sequence: i, Ordinate: y})
		}
	}
	return rows
}

// assembler rebuilds a dataset from rows read in key order
type assembler struct {
	ds *dataset.Dataset
}

func newAssembler(hasHeader bool) *assembler {
	ds := &dataset.Dataset{Trips: make(map[string]schedule.TripRecord)}
	if hasHeader {
		ds.Header = make(map[string][]float64)
	}
	return &assembler{ds: ds}
}

func (a *assembler) station(id, name string, x, y float64) {
	a.ds.Nodes = append(a.ds.Nodes, network.Node{ID: id, Name: name, X: x, Y: y})
}

func (a *assembler) link(source, target, line string) {
	a.ds.Links = append(a.ds.Links, network.Link{Source: source, Target: target, Line: line})
}

func (a *assembler) trip(id, line string, begin, end float64) {
	a.ds.Trips[id] = schedule.TripRecord{Line: line, Begin: begin, End: end}
}

// stop appends to a trip; rows must arrive ordered by stop_sequence
func (a *assembler) stop(tripID, station string, t float64) {
	rec, ok := a.ds.Trips[tripID]
	if !ok {
		return
	}
	rec.Stops = append(rec.Stops, schedule.StopRecord{Stop: station, Time: t})
	a.ds.Trips[tripID] = rec
}

func (a *assembler) ordinate(key string, y float64) {
	a.ds.Header[key] = append(a.ds.Header[key], y)
}
