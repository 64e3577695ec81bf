package marey

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/mini-rodalies-3d/thetrains/internal/schedule"
)

var (
	// ErrMalformedHeader is reported for header entries without an ordinate
	ErrMalformedHeader = errors.New("header entry has no ordinate")
	// ErrMalformedStop marks a stop whose key is missing from the header
	ErrMalformedStop = errors.New("stop missing from header")
)

// Header maps stationId|line keys to a distance-along-line ordinate.
// It is the x axis of the Marey diagram.
type Header struct {
	ordinates map[string]float64
	keys      []string // sorted by ordinate
	byRounded map[int64]string
	min, max  float64
}

// NewHeader builds the table from the marey-header.json shape, where each
// key maps to a list whose first element is the ordinate
func NewHeader(raw map[string][]float64) (*Header, []error) {
	var problems []error
	ordinates := make(map[string]float64, len(raw))
	for key, values := range raw {
		if len(values) == 0 || math.IsNaN(values[0]) {
			problems = append(problems, fmt.Errorf("%w: %s", ErrMalformedHeader, key))
			continue
		}
		ordinates[key] = values[0]
	}
	sort.Slice(problems, func(i, j int) bool { return problems[i].Error() < problems[j].Error() })
	return newHeader(ordinates), problems
}

func newHeader(ordinates map[string]float64) *Header {
	h := &Header{
		ordinates: ordinates,
		keys:      make([]string, 0, len(ordinates)),
		byRounded: make(map[int64]string, len(ordinates)),
	}
	for key := range ordinates {
		h.keys = append(h.keys, key)
	}
	sort.Slice(h.keys, func(i, j int) bool {
		oi, oj := ordinates[h.keys[i]], ordinates[h.keys[j]]
		if oi != oj {
			return oi < oj
		}
		return h.keys[i] < h.keys[j]
	})

	for i, key := range h.keys {
		o := ordinates[key]
		if i == 0 || o < h.min {
			h.min = o
		}
		if i == 0 || o > h.max {
			h.max = o
		}
		rounded := int64(math.Round(o))
		if _, taken := h.byRounded[rounded]; !taken {
			h.byRounded[rounded] = key
		}
	}
	return h
}

// Ordinate looks up the ordinate of a station on a line
func (h *Header) Ordinate(stationID, line string) (float64, bool) {
	o, ok := h.ordinates[schedule.HeaderKey(stationID, line)]
	return o, ok
}

// Lookup looks up an ordinate by its composite key
func (h *Header) Lookup(key string) (float64, bool) {
	o, ok := h.ordinates[key]
	return o, ok
}

// StationAt returns the key whose ordinate rounds to the same integer as
// ordinate. It backs station hover on the diagram header.
func (h *Header) StationAt(ordinate float64) (string, bool) {
	key, ok := h.byRounded[int64(math.Round(ordinate))]
	return key, ok
}

// Extent returns the smallest and largest ordinate
func (h *Header) Extent() (float64, float64) {
	return h.min, h.max
}

// Keys returns every key sorted by ordinate
func (h *Header) Keys() []string {
	return h.keys
}

// Len returns the number of keys
func (h *Header) Len() int {
	return len(h.keys)
}
