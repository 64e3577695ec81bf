package engine

import (
	"errors"
	"log/slog"
	"time"

	"github.com/mini-rodalies-3d/thetrains/internal/config"
	"github.com/mini-rodalies-3d/thetrains/internal/marey"
	"github.com/mini-rodalies-3d/thetrains/internal/network"
	"github.com/mini-rodalies-3d/thetrains/internal/position"
)

// Renderer draws what the engine computes. Calls are made while the engine
// lock is held, so implementations must not call back into the engine.
type Renderer interface {
	DrawMap(MapGeometry)
	PlaceGlyphs(GlyphFrame)
	DrawPaths(PathSet)
}

// Options tune the engine
type Options struct {
	TickRate       float64
	GlyphRadius    float64
	MapWidth       float64
	MapHeight      float64
	Marey          marey.Config
	LineGap        float64
	ResizeDebounce time.Duration
	StatsEvery     int
	Logger         *slog.Logger
}

// DefaultOptions returns the options the visualization ships with
func DefaultOptions() Options {
	return Options{
		TickRate:       10,
		GlyphRadius:    position.DefaultRadius,
		MapWidth:       283,
		MapHeight:      283,
		Marey:          marey.DefaultConfig(),
		LineGap:        marey.DefaultLineGap,
		ResizeDebounce: 250 * time.Millisecond,
		StatsEvery:     600,
	}
}

// OptionsFromConfig maps loaded configuration onto engine options
func OptionsFromConfig(cfg *config.Config, logger *slog.Logger) Options {
	opts := DefaultOptions()
	opts.TickRate = cfg.TickRate
	opts.GlyphRadius = cfg.GlyphRadius
	opts.MapWidth = cfg.MapWidth
	opts.MapHeight = cfg.MapHeight
	opts.Marey.OuterHeight = cfg.MareyHeight
	opts.Marey.LinedUpHeight = cfg.LinedUpHeight
	opts.ResizeDebounce = cfg.ResizeDebounce
	opts.StatsEvery = cfg.StatsEvery
	opts.Logger = logger
	return opts
}

// Glyph is one visible train on the map
type Glyph struct {
	TripID        string        `json:"tripId"`
	Line          string        `json:"line"`
	Point         network.Point `json:"point"`
	Heading       float64       `json:"heading"`
	FromStationID string        `json:"from"`
	ToStationID   string        `json:"to"`
	Status        string        `json:"status"`
}

// GlyphFrame is the set of visible trains at one instant
type GlyphFrame struct {
	Time      float64   `json:"time"`
	Glyphs    []Glyph   `json:"glyphs"`
	Selection Selection `json:"selection"`
}

// PathSet holds every projected trip for the full and lined-up diagrams
type PathSet struct {
	Width         float64       `json:"width"`
	Full          []marey.Path  `json:"full"`
	LinedUp       []marey.Path  `json:"linedUp"`
	Layout        *marey.Layout `json:"-"`
	LinedUpLayout *marey.Layout `json:"-"`
}

// MapStation is a station placed on the map glyph
type MapStation struct {
	ID    string        `json:"id"`
	Name  string        `json:"name"`
	Point network.Point `json:"point"`
}

// MapSegment is a drawable edge of the map glyph
type MapSegment struct {
	Line     string        `json:"line"`
	SourceID string        `json:"source"`
	TargetID string        `json:"target"`
	From     network.Point `json:"from"`
	To       network.Point `json:"to"`
}

// MapGeometry is the static part of the map glyph
type MapGeometry struct {
	Width    float64        `json:"width"`
	Height   float64        `json:"height"`
	Scale    float64        `json:"scale"`
	Margin   network.Margin `json:"margin"`
	Stations []MapStation   `json:"stations"`
	Segments []MapSegment   `json:"segments"`
}

// Selection is the hover and highlight state shared with the renderer
type Selection struct {
	HighlightedTrip string `json:"highlightedTrip,omitempty"`
	HoveredTrip     string `json:"hoveredTrip,omitempty"`
	HoveredStation  string `json:"hoveredStation,omitempty"`
}

// LoadReport collects the integrity problems found while loading
type LoadReport struct {
	Stations int
	Trips    int
	Network  []error
	Schedule []error
	Header   []error
}

// Problems returns the number of problems found
func (r LoadReport) Problems() int {
	return len(r.Network) + len(r.Schedule) + len(r.Header)
}

// Err joins every problem into one error, nil when the load was clean
func (r LoadReport) Err() error {
	all := make([]error, 0, r.Problems())
	all = append(all, r.Network...)
	all = append(all, r.Schedule...)
	all = append(all, r.Header...)
	return errors.Join(all...)
}
