package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mini-rodalies-3d/thetrains/internal/animation"
	"github.com/mini-rodalies-3d/thetrains/internal/dataset"
	"github.com/mini-rodalies-3d/thetrains/internal/logging"
	"github.com/mini-rodalies-3d/thetrains/internal/marey"
	"github.com/mini-rodalies-3d/thetrains/internal/metrics"
	"github.com/mini-rodalies-3d/thetrains/internal/network"
	"github.com/mini-rodalies-3d/thetrains/internal/position"
	"github.com/mini-rodalies-3d/thetrains/internal/schedule"
)

// ErrNoRenderer is returned by Init without a renderer
var ErrNoRenderer = errors.New("engine needs a renderer")

// Engine drives the map glyph and the Marey diagrams over one dataset.
// Every state change happens under one lock, so ticks, resizes and user
// selection never interleave.
type Engine struct {
	mu sync.Mutex

	log      *slog.Logger
	session  string
	opts     Options
	renderer Renderer

	net       *network.Network
	sched     *schedule.Schedule
	header    *marey.Header
	mapLayout *network.Layout
	interp    *position.Interpolator
	projector *marey.Projector
	cursor    *animation.Cursor
	clock     *animation.Clock

	layout    *marey.Layout
	linedUp   *marey.Layout
	lastWidth float64
	paths     PathSet

	selection Selection
	report    LoadReport
	stats     metrics.FrameStats
	ticks     int
	failed    map[string]struct{} // trips whose position error was already logged

	resizeTimer *time.Timer
	task        *animation.Task
	closed      bool
}

// Init builds the models from ds, draws the map once and returns an
// engine positioned at the start of the service day. Integrity problems
// in the data do not fail Init; they are collected in Report and logged.
func Init(ds *dataset.Dataset, r Renderer, opts Options) (*Engine, error) {
	if r == nil {
		return nil, ErrNoRenderer
	}
	if err := ds.Validate(); err != nil {
		return nil, err
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	session := uuid.NewString()
	logger = logger.With(slog.String("session", session))

	e := &Engine{
		log:      logger,
		session:  session,
		opts:     opts,
		renderer: r,
		failed:   make(map[string]struct{}),
	}

	var problems []error
	e.net, problems = network.New(ds.Nodes, ds.Links)
	e.report.Network = problems

	e.sched, problems = schedule.New(ds.Trips, e.net)
	e.report.Schedule = problems

	if ds.Header == nil {
		e.header = marey.BuildHeader(e.net, opts.LineGap)
		logging.LogOperation(logger, "header built from network",
			slog.Int("keys", e.header.Len()))
	} else {
		e.header, problems = marey.NewHeader(ds.Header)
		e.report.Header = problems
	}
	e.report.Header = append(e.report.Header, missingStops(e.sched, e.header)...)
	e.report.Stations = len(e.net.Stations())
	e.report.Trips = e.sched.Len()

	e.mapLayout = e.net.Normalize(opts.MapWidth, opts.MapHeight, network.MapMargin)
	e.interp = position.New(e.mapLayout, opts.GlyphRadius)
	e.projector = marey.NewProjector(e.header)

	minBegin, maxEnd := e.sched.TimeSpan()
	e.cursor = animation.NewCursor(minBegin)
	e.clock = animation.NewClock(e.cursor, minBegin, maxEnd, opts.TickRate)

	if err := e.report.Err(); err != nil {
		logging.LogError(logger, "dataset has integrity problems", err,
			slog.Int("problems", e.report.Problems()))
	}
	logging.LogOperation(logger, "engine initialized",
		slog.Int("stations", e.report.Stations),
		slog.Int("trips", e.report.Trips),
		slog.Int("header_keys", e.header.Len()),
		slog.Float64("min_begin", minBegin),
		slog.Float64("max_end", maxEnd))

	r.DrawMap(e.mapGeometry())
	return e, nil
}

// missingStops reports every stop whose key has no ordinate, once per trip
func missingStops(sched *schedule.Schedule, header *marey.Header) []error {
	var problems []error
	for _, trip := range sched.Trips() {
		var missing []string
		for i := range trip.Stops {
			if _, ok := header.Lookup(trip.Key(i)); !ok {
				missing = append(missing, trip.Key(i))
			}
		}
		if len(missing) > 0 {
			problems = append(problems, fmt.Errorf("trip %s: %w: %v", trip.ID, marey.ErrMalformedStop, missing))
		}
	}
	return problems
}

// Session identifies this engine in logs
func (e *Engine) Session() string {
	return e.session
}

// Report returns the integrity problems found at load
func (e *Engine) Report() LoadReport {
	return e.report
}

// Time returns the current cursor time
func (e *Engine) Time() float64 {
	return e.cursor.Time()
}

// Stats returns the frame statistics collected so far
func (e *Engine) Stats() metrics.Snapshot {
	return e.stats.Snapshot()
}

// MapGeometry returns the normalized network as drawn on the map glyph
func (e *Engine) MapGeometry() MapGeometry {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.mapGeometry()
}

func (e *Engine) mapGeometry() MapGeometry {
	g := MapGeometry{
		Width:  e.mapLayout.Width,
		Height: e.mapLayout.Height,
		Scale:  e.mapLayout.Scale,
		Margin: e.mapLayout.Margin,
	}
	for _, s := range e.net.Stations() {
		p, _ := e.mapLayout.Position(s.ID)
		g.Stations = append(g.Stations, MapStation{ID: s.ID, Name: s.Name, Point: p})
	}
	for _, seg := range e.net.Segments() {
		from, _ := e.mapLayout.Position(seg.SourceID)
		to, _ := e.mapLayout.Position(seg.TargetID)
		g.Segments = append(g.Segments, MapSegment{
			Line:     seg.Line,
			SourceID: seg.SourceID,
			TargetID: seg.TargetID,
			From:     from,
			To:       to,
		})
	}
	return g
}

// Resize re-projects every trip for a new diagram width. Repeating the
// last rounded width does nothing.
func (e *Engine) Resize(width float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	e.resize(width)
}

func (e *Engine) resize(width float64) {
	width = math.Round(width)
	if width == e.lastWidth {
		return
	}
	start := time.Now()
	e.lastWidth = width

	minBegin, maxEnd := e.sched.TimeSpan()
	e.layout = marey.NewLayout(width, e.header, minBegin, maxEnd, e.opts.Marey)
	e.linedUp = marey.NewLinedUpLayout(width, e.header, e.sched, e.opts.Marey)

	trips := e.sched.Trips()
	e.paths = PathSet{
		Width:         width,
		Full:          e.projector.ProjectAll(trips, e.layout.XScale, e.layout.YScale, false),
		LinedUp:       e.projector.ProjectAll(trips, e.linedUp.XScale, e.linedUp.YScale, true),
		Layout:        e.layout,
		LinedUpLayout: e.linedUp,
	}
	e.renderer.DrawPaths(e.paths)

	logging.LogOperation(e.log, "diagram projected",
		slog.Float64("width", width),
		slog.Int("trips", len(trips)),
		slog.Duration("duration", time.Since(start)))
}

// OnResize schedules a resize. Only the last width seen within the
// debounce window is rendered.
func (e *Engine) OnResize(width float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	if e.resizeTimer != nil {
		e.resizeTimer.Stop()
	}
	e.resizeTimer = time.AfterFunc(e.opts.ResizeDebounce, func() {
		e.Resize(width)
	})
}

// Paths returns the last projected diagrams
func (e *Engine) Paths() PathSet {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.paths
}

// Tick advances the clock one step and re-places the glyphs
func (e *Engine) Tick() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	e.renderFrame(e.clock.Advance())
}

// SelectTime moves the cursor to t and re-places the glyphs. The tick
// cadence is unchanged.
func (e *Engine) SelectTime(t float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	e.cursor.Set(t)
	e.renderFrame(t)
}

// SelectPixel selects the time under a pointer on the full diagram.
// It reports false when no diagram is laid out or x is outside its body.
func (e *Engine) SelectPixel(x, y float64) (float64, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed || e.layout == nil || !e.layout.InBody(x) {
		return 0, false
	}
	t := e.layout.PixelToTime(y)
	e.cursor.Set(t)
	e.renderFrame(t)
	return t, true
}

func (e *Engine) renderFrame(t float64) {
	start := time.Now()
	active := e.sched.TripsActiveAt(t)

	frame := GlyphFrame{
		Time:      t,
		Glyphs:    make([]Glyph, 0, len(active)),
		Selection: e.selection,
	}
	errs := 0
	for _, trip := range active {
		est, err := e.interp.Estimate(trip, t)
		if err != nil {
			errs++
			e.logTripFailure(trip, err)
			continue
		}
		if est == nil {
			continue
		}
		frame.Glyphs = append(frame.Glyphs, Glyph{
			TripID:        est.TripID,
			Line:          est.Line,
			Point:         est.Point,
			Heading:       est.Heading,
			FromStationID: est.FromStationID,
			ToStationID:   est.ToStationID,
			Status:        est.Status,
		})
	}
	e.renderer.PlaceGlyphs(frame)

	e.stats.Observe(len(frame.Glyphs), time.Since(start), errs)
	e.ticks++
	if e.opts.StatsEvery > 0 && e.ticks%e.opts.StatsEvery == 0 {
		logging.LogOperation(e.log, "frame stats", e.stats.Snapshot().Attrs()...)
	}
}

func (e *Engine) logTripFailure(trip *schedule.Trip, err error) {
	if _, seen := e.failed[trip.ID]; seen {
		return
	}
	e.failed[trip.ID] = struct{}{}
	logging.LogError(e.log, "trip cannot be placed", err,
		slog.String("trip", trip.ID),
		slog.String("line", trip.Line))
}

// HighlightTrip toggles the highlighted trip and reports whether id is
// highlighted afterwards
func (e *Engine) HighlightTrip(id string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.selection.HighlightedTrip == id {
		e.selection.HighlightedTrip = ""
		return false
	}
	if _, ok := e.sched.Trip(id); !ok {
		return false
	}
	e.selection.HighlightedTrip = id
	return true
}

// HoverTrip marks id as hovered; an empty id clears the hover
func (e *Engine) HoverTrip(id string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.selection.HoveredTrip = id
}

// HoverStation resolves the header key under x on the full diagram
func (e *Engine) HoverStation(x float64) (string, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.layout == nil {
		return "", false
	}
	key, ok := e.header.StationAt(e.layout.XScale.Invert(x))
	if ok {
		e.selection.HoveredStation = key
	}
	return key, ok
}

// Selection returns the current hover and highlight state
func (e *Engine) Selection() Selection {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.selection
}

// Start renders the current frame and starts the animation. Calling it
// again while running does nothing.
func (e *Engine) Start(ctx context.Context) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed || e.task != nil {
		return
	}
	e.renderFrame(e.cursor.Time())
	ctx = logging.WithLogger(ctx, e.log)
	e.task = animation.Schedule(ctx, e.clock.Interval(), e.Tick)
	logging.LogOperation(e.log, "animation started",
		slog.Duration("interval", e.clock.Interval()),
		slog.Float64("step", e.clock.Step()))
}

// Teardown cancels the pending resize and stops the animation. No frame
// is rendered after it returns.
func (e *Engine) Teardown() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.closed = true
	if e.resizeTimer != nil {
		e.resizeTimer.Stop()
	}
	task := e.task
	e.task = nil
	e.mu.Unlock()

	// the task may be blocked on the lock inside Tick
	if task != nil {
		task.Stop()
	}
	logging.LogOperation(e.log, "engine stopped", e.stats.Snapshot().Attrs()...)
}
