package engine

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mini-rodalies-3d/thetrains/internal/dataset"
	"github.com/mini-rodalies-3d/thetrains/internal/logging"
	"github.com/mini-rodalies-3d/thetrains/internal/marey"
	"github.com/mini-rodalies-3d/thetrains/internal/network"
	"github.com/mini-rodalies-3d/thetrains/internal/position"
	"github.com/mini-rodalies-3d/thetrains/internal/schedule"
)

type fakeRenderer struct {
	mu     sync.Mutex
	maps   []MapGeometry
	frames []GlyphFrame
	paths  []PathSet
}

func (r *fakeRenderer) DrawMap(g MapGeometry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.maps = append(r.maps, g)
}

func (r *fakeRenderer) PlaceGlyphs(f GlyphFrame) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frames = append(r.frames, f)
}

func (r *fakeRenderer) DrawPaths(p PathSet) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.paths = append(r.paths, p)
}

func (r *fakeRenderer) frameCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.frames)
}

func (r *fakeRenderer) lastFrame() GlyphFrame {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.frames[len(r.frames)-1]
}

func (r *fakeRenderer) pathWidths() []float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	widths := make([]float64, 0, len(r.paths))
	for _, p := range r.paths {
		widths = append(widths, p.Width)
	}
	return widths
}

func sampleDataset() *dataset.Dataset {
	return &dataset.Dataset{
		Nodes: []network.Node{
			{ID: "A", Name: "Alewife", X: 0, Y: 0},
			{ID: "B", Name: "Davis", X: 10, Y: 0},
			{ID: "C", Name: "Porter", X: 20, Y: 0},
		},
		Links: []network.Link{
			{Source: "A", Target: "B", Line: "red"},
			{Source: "B", Target: "C", Line: "red"},
		},
		Trips: map[string]schedule.TripRecord{
			"t1": {Line: "red", Stops: []schedule.StopRecord{
				{Stop: "A", Time: 1000}, {Stop: "B", Time: 1100}, {Stop: "C", Time: 1200},
			}},
			"t2": {Line: "red", Stops: []schedule.StopRecord{
				{Stop: "C", Time: 1500}, {Stop: "B", Time: 1600},
			}},
		},
		Header: map[string][]float64{
			"A|red": {0},
			"B|red": {10},
			"C|red": {20},
		},
	}
}

func testOptions(buf *bytes.Buffer) Options {
	opts := DefaultOptions()
	opts.ResizeDebounce = 20 * time.Millisecond
	opts.Logger = logging.NewStructuredLogger(buf, slog.LevelDebug)
	return opts
}

func TestInit(t *testing.T) {
	var buf bytes.Buffer
	r := &fakeRenderer{}

	e, err := Init(sampleDataset(), r, testOptions(&buf))
	require.NoError(t, err)

	assert.NoError(t, e.Report().Err())
	assert.Equal(t, 3, e.Report().Stations)
	assert.Equal(t, 2, e.Report().Trips)
	assert.Equal(t, 1000.0, e.Time())
	assert.NotEmpty(t, e.Session())

	require.Len(t, r.maps, 1)
	g := r.maps[0]
	assert.Len(t, g.Stations, 3)
	assert.Len(t, g.Segments, 2)
	// 243px of inner width over a 20 unit wide network
	assert.InDelta(t, 12.15, g.Scale, 1e-9)
	assert.InDelta(t, 283.0, g.Width, 1e-9)
	assert.Equal(t, e.MapGeometry(), g)

	assert.Contains(t, buf.String(), `"msg":"engine initialized"`)
	assert.Contains(t, buf.String(), e.Session())
}

func TestInitRejectsMissingInputs(t *testing.T) {
	_, err := Init(sampleDataset(), nil, DefaultOptions())
	assert.ErrorIs(t, err, ErrNoRenderer)

	_, err = Init(&dataset.Dataset{}, &fakeRenderer{}, DefaultOptions())
	assert.ErrorIs(t, err, dataset.ErrNoStations)
}

func TestInitCollectsIntegrityProblems(t *testing.T) {
	ds := sampleDataset()
	ds.Links = append(ds.Links, network.Link{Source: "A", Target: "Z", Line: "red"})
	ds.Trips["ghost"] = schedule.TripRecord{Line: "red", Stops: []schedule.StopRecord{
		{Stop: "A", Time: 0}, {Stop: "Z", Time: 10},
	}}
	delete(ds.Header, "B|red")

	var buf bytes.Buffer
	e, err := Init(ds, &fakeRenderer{}, testOptions(&buf))
	require.NoError(t, err)

	report := e.Report()
	assert.Len(t, report.Network, 1)
	assert.Len(t, report.Schedule, 1)
	// both trips pass through B
	assert.Len(t, report.Header, 2)
	assert.ErrorIs(t, report.Err(), network.ErrUnknownStation)
	assert.ErrorIs(t, report.Err(), marey.ErrMalformedStop)
	assert.Equal(t, 2, report.Trips)
	assert.Contains(t, buf.String(), `"msg":"dataset has integrity problems"`)
}

func TestInitBuildsHeaderWhenMissing(t *testing.T) {
	ds := sampleDataset()
	ds.Header = nil

	var buf bytes.Buffer
	r := &fakeRenderer{}
	e, err := Init(ds, r, testOptions(&buf))
	require.NoError(t, err)
	assert.NoError(t, e.Report().Err())

	e.Resize(1270)
	paths := e.Paths()
	require.Len(t, paths.Full, 2)
	for _, p := range paths.Full {
		assert.Empty(t, p.Missing)
	}
}

func TestTickPlacesActiveTrips(t *testing.T) {
	var buf bytes.Buffer
	r := &fakeRenderer{}
	e, err := Init(sampleDataset(), r, testOptions(&buf))
	require.NoError(t, err)

	e.Tick()
	frame := r.lastFrame()
	assert.Equal(t, 1006.0, frame.Time)
	require.Len(t, frame.Glyphs, 1)
	assert.Equal(t, "t1", frame.Glyphs[0].TripID)
	assert.Equal(t, "A", frame.Glyphs[0].FromStationID)

	e.SelectTime(1300)
	assert.Empty(t, r.lastFrame().Glyphs)
	assert.Equal(t, 1300.0, e.Time())

	e.SelectTime(1550)
	require.Len(t, r.lastFrame().Glyphs, 1)
	assert.Equal(t, "t2", r.lastFrame().Glyphs[0].TripID)

	e.Tick()
	assert.Equal(t, 1556.0, e.Time())
	assert.Equal(t, 4, e.Stats().Ticks)
}

func TestTickWrapsAtEndOfService(t *testing.T) {
	var buf bytes.Buffer
	e, err := Init(sampleDataset(), &fakeRenderer{}, testOptions(&buf))
	require.NoError(t, err)

	e.SelectTime(1598)
	e.Tick()
	assert.InDelta(t, 1004.0, e.Time(), 1e-9)
}

type failingPositioner struct{}

func (failingPositioner) Position(id string) (network.Point, error) {
	return network.Point{}, fmt.Errorf("%w: %s", network.ErrUnknownStation, id)
}

func TestTripFailureIsLoggedOnceAndSkipped(t *testing.T) {
	var buf bytes.Buffer
	r := &fakeRenderer{}
	e, err := Init(sampleDataset(), r, testOptions(&buf))
	require.NoError(t, err)

	e.mu.Lock()
	e.interp = position.New(failingPositioner{}, position.DefaultRadius)
	e.mu.Unlock()

	e.SelectTime(1050)
	e.SelectTime(1060)
	assert.Empty(t, r.lastFrame().Glyphs)
	assert.Equal(t, 1, bytes.Count(buf.Bytes(), []byte(`"msg":"trip cannot be placed"`)))
	assert.Equal(t, 2, e.Stats().Errors)
}

func TestResizeProjectsBothDiagrams(t *testing.T) {
	var buf bytes.Buffer
	r := &fakeRenderer{}
	e, err := Init(sampleDataset(), r, testOptions(&buf))
	require.NoError(t, err)

	e.Resize(1269.7)
	e.Resize(1270.2)
	assert.Equal(t, []float64{1270}, r.pathWidths())

	paths := e.Paths()
	require.Len(t, paths.Full, 2)
	require.Len(t, paths.LinedUp, 2)
	for _, p := range paths.LinedUp {
		assert.InDelta(t, 0.0, p.Points[0].Y, 1e-9)
		assert.InDelta(t, 0.0, p.Points[0].X, 1e-9)
	}

	// the absolute anchor survives a width change
	anchor := paths.Full[0].Anchor
	e.Resize(800)
	assert.Equal(t, anchor, e.Paths().Full[0].Anchor)
	assert.Equal(t, []float64{1270, 800}, r.pathWidths())
}

func TestOnResizeDebounces(t *testing.T) {
	var buf bytes.Buffer
	r := &fakeRenderer{}
	e, err := Init(sampleDataset(), r, testOptions(&buf))
	require.NoError(t, err)
	defer e.Teardown()

	for _, w := range []float64{900, 950, 1000, 1100} {
		e.OnResize(w)
	}
	require.Eventually(t, func() bool { return len(r.pathWidths()) == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, []float64{1100}, r.pathWidths())
}

func TestSelectionAndHover(t *testing.T) {
	var buf bytes.Buffer
	r := &fakeRenderer{}
	e, err := Init(sampleDataset(), r, testOptions(&buf))
	require.NoError(t, err)

	_, ok := e.HoverStation(10)
	assert.False(t, ok, "no diagram laid out yet")
	_, ok = e.SelectPixel(10, 100)
	assert.False(t, ok)

	e.Resize(1270) // inner width 1000 over ordinates 0..20
	key, ok := e.HoverStation(502)
	require.True(t, ok)
	assert.Equal(t, "B|red", key)

	assert.True(t, e.HighlightTrip("t1"))
	assert.False(t, e.HighlightTrip("t1"))
	assert.False(t, e.HighlightTrip("nope"))
	assert.True(t, e.HighlightTrip("t2"))
	e.HoverTrip("t1")

	ts, ok := e.SelectPixel(500, 15)
	require.True(t, ok)
	assert.Equal(t, 1000.0, ts)
	_, ok = e.SelectPixel(-5, 15)
	assert.False(t, ok)

	sel := r.lastFrame().Selection
	assert.Equal(t, Selection{HighlightedTrip: "t2", HoveredTrip: "t1", HoveredStation: "B|red"}, sel)
	assert.Equal(t, sel, e.Selection())
}

func TestStartAndTeardown(t *testing.T) {
	var buf bytes.Buffer
	r := &fakeRenderer{}
	opts := testOptions(&buf)
	opts.TickRate = 100
	e, err := Init(sampleDataset(), r, opts)
	require.NoError(t, err)

	e.Start(context.Background())
	e.Start(context.Background())
	require.Eventually(t, func() bool { return r.frameCount() >= 5 }, 2*time.Second, 5*time.Millisecond)

	e.OnResize(1000)
	e.Teardown()
	e.Teardown()

	frames := r.frameCount()
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, frames, r.frameCount())
	assert.Empty(t, r.pathWidths(), "pending resize cancelled")

	e.Tick()
	e.SelectTime(1100)
	e.Resize(900)
	assert.Equal(t, frames, r.frameCount())
	assert.Contains(t, buf.String(), `"msg":"engine stopped"`)
}

func TestStatsAreLoggedPeriodically(t *testing.T) {
	var buf bytes.Buffer
	opts := testOptions(&buf)
	opts.StatsEvery = 2
	e, err := Init(sampleDataset(), &fakeRenderer{}, opts)
	require.NoError(t, err)

	for i := 0; i < 4; i++ {
		e.Tick()
	}
	assert.Equal(t, 2, bytes.Count(buf.Bytes(), []byte(`"msg":"frame stats"`)))
	assert.False(t, math.IsNaN(e.Stats().VisibleMean))
}
