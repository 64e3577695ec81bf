package network

import (
	"fmt"
	"math"
	"sort"
)

// Network is the immutable station/segment graph loaded once at startup
type Network struct {
	stations map[string]*Station
	order    []string
	segments []Segment
	byLine   map[string][]Segment
}

// New builds a network from parsed nodes and links.
// Links naming unknown stations are dropped; every dropped entry is
// returned so the caller can report them once.
func New(nodes []Node, links []Link) (*Network, []error) {
	var problems []error

	n := &Network{
		stations: make(map[string]*Station, len(nodes)),
		byLine:   make(map[string][]Segment),
	}

	for _, node := range nodes {
		if _, exists := n.stations[node.ID]; exists {
			problems = append(problems, fmt.Errorf("%w: %s", ErrDuplicateStation, node.ID))
			continue
		}
		n.stations[node.ID] = &Station{
			ID:       node.ID,
			Name:     node.Name,
			Position: Point{X: node.X, Y: node.Y},
		}
		n.order = append(n.order, node.ID)
	}

	for _, link := range links {
		if _, ok := n.stations[link.Source]; !ok {
			problems = append(problems, fmt.Errorf("link %s-%s on line %s: %w: %s",
				link.Source, link.Target, link.Line, ErrUnknownStation, link.Source))
			continue
		}
		if _, ok := n.stations[link.Target]; !ok {
			problems = append(problems, fmt.Errorf("link %s-%s on line %s: %w: %s",
				link.Source, link.Target, link.Line, ErrUnknownStation, link.Target))
			continue
		}

		seg := Segment{Line: link.Line, SourceID: link.Source, TargetID: link.Target}
		n.segments = append(n.segments, seg)
		n.byLine[link.Line] = append(n.byLine[link.Line], seg)
	}

	return n, problems
}

// StationByID returns the station with the given id
func (n *Network) StationByID(id string) (*Station, error) {
	s, ok := n.stations[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownStation, id)
	}
	return s, nil
}

// Has reports whether the station id is part of the network
func (n *Network) Has(id string) bool {
	_, ok := n.stations[id]
	return ok
}

// Position returns the raw (un-normalized) position of a station
func (n *Network) Position(id string) (Point, error) {
	s, err := n.StationByID(id)
	if err != nil {
		return Point{}, err
	}
	return s.Position, nil
}

// Stations returns all stations in load order
func (n *Network) Stations() []*Station {
	out := make([]*Station, 0, len(n.order))
	for _, id := range n.order {
		out = append(out, n.stations[id])
	}
	return out
}

// Segments returns every segment in load order
func (n *Network) Segments() []Segment {
	return n.segments
}

// SegmentsForLine returns the segments drawn for one line
func (n *Network) SegmentsForLine(line string) []Segment {
	return n.byLine[line]
}

// Lines returns the line names, sorted
func (n *Network) Lines() []string {
	lines := make([]string, 0, len(n.byLine))
	for line := range n.byLine {
		lines = append(lines, line)
	}
	sort.Strings(lines)
	return lines
}

// Extent returns the bounding box of the raw station positions.
// An empty network yields a zero box.
func (n *Network) Extent() (min, max Point) {
	if len(n.order) == 0 {
		return Point{}, Point{}
	}
	min = Point{X: math.Inf(1), Y: math.Inf(1)}
	max = Point{X: math.Inf(-1), Y: math.Inf(-1)}
	for _, s := range n.stations {
		min.X = math.Min(min.X, s.Position.X)
		min.Y = math.Min(min.Y, s.Position.Y)
		max.X = math.Max(max.X, s.Position.X)
		max.Y = math.Max(max.Y, s.Position.Y)
	}
	return min, max
}
