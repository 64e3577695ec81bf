package metrics

import "math"

// Running keeps streaming statistics with Welford's online algorithm, so
// mean and deviation are updated in O(1) without storing samples.
type Running struct {
	n    int
	mean float64
	m2   float64
	min  float64
	max  float64
}

// Add records an observation
func (r *Running) Add(v float64) {
	r.n++
	if r.n == 1 || v < r.min {
		r.min = v
	}
	if r.n == 1 || v > r.max {
		r.max = v
	}
	delta := v - r.mean
	r.mean += delta / float64(r.n)
	r.m2 += delta * (v - r.mean)
}

// Count returns the number of observations
func (r *Running) Count() int { return r.n }

// Mean returns the running mean
func (r *Running) Mean() float64 { return r.mean }

// StdDev returns the population standard deviation, 0 below two samples
func (r *Running) StdDev() float64 {
	if r.n < 2 {
		return 0
	}
	return math.Sqrt(r.m2 / float64(r.n))
}

// Min returns the smallest observation
func (r *Running) Min() float64 { return r.min }

// Max returns the largest observation
func (r *Running) Max() float64 { return r.max }
