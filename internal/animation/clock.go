package animation

import (
	"math"
	"sync"
	"time"
)

// Cursor holds the time currently shown on the map. It is the only state
// shared between the animation task and manual selection.
type Cursor struct {
	mu sync.RWMutex
	t  float64
}

// NewCursor creates a cursor at t
func NewCursor(t float64) *Cursor {
	return &Cursor{t: t}
}

// Time returns the current time
func (c *Cursor) Time() float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.t
}

// Set moves the cursor to t
func (c *Cursor) Set(t float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = t
}

// Clock advances a cursor through [minBegin, maxEnd], wrapping at the end
type Clock struct {
	cursor   *Cursor
	minBegin float64
	maxEnd   float64
	tickRate float64
}

// NewClock creates a clock. tickRate is the number of ticks per second.
func NewClock(cursor *Cursor, minBegin, maxEnd, tickRate float64) *Clock {
	if tickRate <= 0 {
		tickRate = 1
	}
	return &Clock{
		cursor:   cursor,
		minBegin: minBegin,
		maxEnd:   maxEnd,
		tickRate: tickRate,
	}
}

// Step is the simulated time covered by one tick, in seconds
func (c *Clock) Step() float64 {
	return 60 / c.tickRate
}

// Interval is the wall-clock period between ticks
func (c *Clock) Interval() time.Duration {
	return time.Duration(float64(time.Second) / c.tickRate)
}

// Cursor returns the cursor driven by the clock
func (c *Clock) Cursor() *Cursor {
	return c.cursor
}

// Span returns the animated range
func (c *Clock) Span() (float64, float64) {
	return c.minBegin, c.maxEnd
}

// Advance moves the cursor one step and returns the new time
func (c *Clock) Advance() float64 {
	c.cursor.mu.Lock()
	defer c.cursor.mu.Unlock()
	c.cursor.t = c.wrap(c.cursor.t + c.Step())
	return c.cursor.t
}

func (c *Clock) wrap(t float64) float64 {
	if t <= c.maxEnd {
		return t
	}
	span := c.maxEnd - c.minBegin
	if span <= 0 {
		return c.minBegin
	}
	return c.minBegin + math.Mod(t-c.minBegin, span)
}
