package marey

import (
	"math"

	"github.com/mini-rodalies-3d/thetrains/internal/network"
	"github.com/mini-rodalies-3d/thetrains/internal/schedule"
)

// Config holds the fixed geometry of the diagrams
type Config struct {
	Margin        network.Margin
	OuterHeight   float64
	TopOffset     float64 // first pixel row used by the time axis
	LinedUpHeight float64
}

// DefaultConfig returns the geometry of the full diagram
func DefaultConfig() Config {
	return Config{
		Margin:        network.Margin{Top: 100, Right: 10, Bottom: 0, Left: 260},
		OuterHeight:   3000,
		TopOffset:     15,
		LinedUpHeight: 600,
	}
}

// Layout is the pixel geometry of one diagram at one width
type Layout struct {
	OuterWidth  float64
	OuterHeight float64
	Width       float64
	Height      float64
	Margin      network.Margin
	XScale      LinearScale
	YScale      LinearScale
}

// NewLayout lays out the full diagram. Widths are rounded so callers can
// compare them to skip redundant work.
func NewLayout(outerWidth float64, header *Header, minBegin, maxEnd float64, cfg Config) *Layout {
	outerWidth = math.Round(outerWidth)
	l := &Layout{
		OuterWidth:  outerWidth,
		OuterHeight: cfg.OuterHeight,
		Width:       math.Max(0, outerWidth-cfg.Margin.Left-cfg.Margin.Right),
		Height:      math.Max(0, cfg.OuterHeight-cfg.Margin.Top-cfg.Margin.Bottom),
		Margin:      cfg.Margin,
	}
	lo, hi := header.Extent()
	l.XScale = NewLinearScale(lo, hi, 0, l.Width, false)
	l.YScale = NewLinearScale(minBegin, maxEnd, cfg.TopOffset, l.Height, true)
	return l
}

// NewLinedUpLayout lays out the diagram where every trip starts at the top.
// The time axis covers the longest trip so relative paths fill the panel.
func NewLinedUpLayout(outerWidth float64, header *Header, sched *schedule.Schedule, cfg Config) *Layout {
	outerWidth = math.Round(outerWidth)
	l := &Layout{
		OuterWidth:  outerWidth,
		OuterHeight: cfg.LinedUpHeight,
		Width:       math.Max(0, outerWidth-cfg.Margin.Left-cfg.Margin.Right),
		Height:      cfg.LinedUpHeight,
		Margin:      network.Margin{Left: cfg.Margin.Left, Right: cfg.Margin.Right},
	}
	lo, hi := header.Extent()
	minBegin, _ := sched.TimeSpan()
	l.XScale = NewLinearScale(lo, hi, 0, l.Width, false)
	l.YScale = NewLinearScale(minBegin, minBegin+sched.LongestDuration(), 0, l.Height, false)
	return l
}

// PixelToTime converts a vertical pixel offset into a timestamp
func (l *Layout) PixelToTime(y float64) float64 {
	return l.YScale.Invert(y)
}

// TimeToPixel converts a timestamp into a vertical pixel offset
func (l *Layout) TimeToPixel(ts float64) float64 {
	return l.YScale.Map(ts)
}

// InBody reports whether x lies strictly inside the plotting area
func (l *Layout) InBody(x float64) bool {
	return x > 0 && x < l.Width
}
