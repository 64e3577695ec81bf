package position

import (
	"math"

	"github.com/mini-rodalies-3d/thetrains/internal/network"
)

// Interpolate linearly interpolates between two points
func Interpolate(start, end network.Point, fraction float64) network.Point {
	return network.Point{
		X: start.X + (end.X-start.X)*fraction,
		Y: start.Y + (end.Y-start.Y)*fraction,
	}
}

// PlaceWithOffset returns the point a fraction of the way from start to end,
// pushed radius units along the perpendicular of the travel direction
func PlaceWithOffset(start, end network.Point, fraction, radius float64) network.Point {
	mid := Interpolate(start, end, fraction)
	angle := math.Atan2(end.Y-start.Y, end.X-start.X) + math.Pi/2
	return network.Point{
		X: mid.X + math.Cos(angle)*radius,
		Y: mid.Y + math.Sin(angle)*radius,
	}
}

// Heading returns the planar travel direction in degrees (0-360),
// measured from the +X axis
func Heading(start, end network.Point) float64 {
	deg := math.Atan2(end.Y-start.Y, end.X-start.X) * 180 / math.Pi
	return math.Mod(deg+360, 360)
}

// Clamp constrains a value between min and max
func Clamp(value, min, max float64) float64 {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}
