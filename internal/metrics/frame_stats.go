package metrics

import (
	"log/slog"
	"sync"
	"time"
)

// FrameStats accumulates per-tick statistics of the animation
type FrameStats struct {
	mu      sync.Mutex
	visible Running
	latency Running // milliseconds
	errors  int
}

// Snapshot is a point-in-time copy of FrameStats
type Snapshot struct {
	Ticks         int
	VisibleMean   float64
	VisibleStdDev float64
	VisibleMax    int
	LatencyMeanMs float64
	LatencyMaxMs  float64
	Errors        int
}

// Observe records one rendered frame
func (s *FrameStats) Observe(visible int, elapsed time.Duration, errs int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.visible.Add(float64(visible))
	s.latency.Add(float64(elapsed) / float64(time.Millisecond))
	s.errors += errs
}

// Snapshot returns the current statistics
func (s *FrameStats) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		Ticks:         s.visible.Count(),
		VisibleMean:   s.visible.Mean(),
		VisibleStdDev: s.visible.StdDev(),
		VisibleMax:    int(s.visible.Max()),
		LatencyMeanMs: s.latency.Mean(),
		LatencyMaxMs:  s.latency.Max(),
		Errors:        s.errors,
	}
}

// Attrs renders the snapshot as log attributes
func (s Snapshot) Attrs() []slog.Attr {
	return []slog.Attr{
		slog.Int("ticks", s.Ticks),
		slog.Float64("visible_mean", s.VisibleMean),
		slog.Float64("visible_stddev", s.VisibleStdDev),
		slog.Int("visible_max", s.VisibleMax),
		slog.Float64("latency_mean_ms", s.LatencyMeanMs),
		slog.Float64("latency_max_ms", s.LatencyMaxMs),
		slog.Int("errors", s.Errors),
	}
}
