package marey

// LinearScale maps a continuous domain onto a pixel range
type LinearScale struct {
	D0, D1 float64 // domain
	R0, R1 float64 // range
	Clamp  bool
}

// NewLinearScale creates a scale from domain [d0,d1] to range [r0,r1]
func NewLinearScale(d0, d1, r0, r1 float64, clamp bool) LinearScale {
	return LinearScale{D0: d0, D1: d1, R0: r0, R1: r1, Clamp: clamp}
}

// Map projects a domain value into the range.
// A zero-width domain maps every value to the start of the range.
func (s LinearScale) Map(v float64) float64 {
	if s.D1 == s.D0 {
		return s.R0
	}
	t := (v - s.D0) / (s.D1 - s.D0)
	if s.Clamp {
		t = unit(t)
	}
	return s.R0 + t*(s.R1-s.R0)
}

// Invert maps a range value back into the domain
func (s LinearScale) Invert(px float64) float64 {
	if s.R1 == s.R0 {
		return s.D0
	}
	t := (px - s.R0) / (s.R1 - s.R0)
	if s.Clamp {
		t = unit(t)
	}
	return s.D0 + t*(s.D1-s.D0)
}

func unit(t float64) float64 {
	if t < 0 {
		return 0
	}
	if t > 1 {
		return 1
	}
	return t
}
