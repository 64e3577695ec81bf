package network

import "errors"

// ErrUnknownStation is returned when a stop, link or lookup names a station
// id that is not part of the network.
var ErrUnknownStation = errors.New("unknown station")

// ErrDuplicateStation is reported when two nodes share an id.
var ErrDuplicateStation = errors.New("duplicate station")

// Point is a planar coordinate
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Station represents a station of the schematic network
type Station struct {
	ID       string
	Name     string
	Position Point
}

// Segment is one drawable edge of one line between two adjacent stations
type Segment struct {
	Line     string
	SourceID string
	TargetID string
}

// Node is a station as it appears in station-network.json
type Node struct {
	ID   string  `json:"id"`
	Name string  `json:"name"`
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
}

// Link is a line segment as it appears in station-network.json
type Link struct {
	Source string `json:"source"`
	Target string `json:"target"`
	Line   string `json:"line"`
}

// Margin is the space kept free around a rendered box
type Margin struct {
	Top    float64
	Right  float64
	Bottom float64
	Left   float64
}

// MapMargin is the margin used around the map glyph
var MapMargin = Margin{Top: 20, Right: 30, Bottom: 10, Left: 10}

// Positioner resolves a station id to a planar position
type Positioner interface {
	Position(stationID string) (Point, error)
}
