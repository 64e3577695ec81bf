package main

import (
	"encoding/json"
	"io"
	"log/slog"
	"sync"

	"github.com/mini-rodalies-3d/thetrains/internal/engine"
	"github.com/mini-rodalies-3d/thetrains/internal/logging"
)

// event is one line of renderer output
type event struct {
	Kind  string `json:"kind"`
	Data  any    `json:"data"`
	Paths any    `json:"paths,omitempty"`
}

// encodedPath is a projected trip with its runs as polylines
type encodedPath struct {
	TripID  string   `json:"tripId"`
	Line    string   `json:"line"`
	Anchor  float64  `json:"anchor"`
	Runs    []string `json:"runs"`
	Missing []string `json:"missing,omitempty"`
}

// jsonLinesRenderer writes every draw call as one JSON object per line
type jsonLinesRenderer struct {
	mu     sync.Mutex
	enc    *json.Encoder
	log    *slog.Logger
	frames bool
}

func newJSONLinesRenderer(w io.Writer, logger *slog.Logger, frames bool) *jsonLinesRenderer {
	return &jsonLinesRenderer{enc: json.NewEncoder(w), log: logger, frames: frames}
}

func (r *jsonLinesRenderer) DrawMap(g engine.MapGeometry) {
	r.write(event{Kind: "map", Data: g})
}

func (r *jsonLinesRenderer) PlaceGlyphs(f engine.GlyphFrame) {
	if !r.frames {
		return
	}
	r.write(event{Kind: "frame", Data: f})
}

func (r *jsonLinesRenderer) DrawPaths(p engine.PathSet) {
	full := make([]encodedPath, 0, len(p.Full))
	for _, path := range p.Full {
		full = append(full, encodedPath{
			TripID:  path.TripID,
			Line:    path.Line,
			Anchor:  path.Anchor,
			Runs:    path.Encode(),
			Missing: path.Missing,
		})
	}
	linedUp := make([]encodedPath, 0, len(p.LinedUp))
	for _, path := range p.LinedUp {
		linedUp = append(linedUp, encodedPath{
			TripID:  path.TripID,
			Line:    path.Line,
			Runs:    path.Encode(),
			Missing: path.Missing,
		})
	}
	r.write(event{
		Kind:  "paths",
		Data:  map[string]float64{"width": p.Width},
		Paths: map[string][]encodedPath{"full": full, "linedUp": linedUp},
	})
}

func (r *jsonLinesRenderer) write(ev event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.enc.Encode(ev); err != nil {
		logging.LogError(r.log, "failed to write render event", err, slog.String("kind", ev.Kind))
	}
}
