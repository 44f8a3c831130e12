// Package scale maps dataset domains onto pixel ranges and power onto colors.
package scale

import (
	"math"
)

// Linear maps a continuous domain onto a pixel range. Out-of-domain inputs are
// extrapolated unless Clamp is set.
type Linear struct {
	Domain [2]float64
	Range  [2]float64
	Clamp  bool
}

// NewLinear creates a non-clamping linear scale.
func NewLinear(domain, rng [2]float64) Linear {
	return Linear{Domain: domain, Range: rng}
}

// WithClamp returns a copy of the scale with clamping set to clamp.
func (l Linear) WithClamp(clamp bool) Linear {
	l.Clamp = clamp
	return l
}

// Apply maps v from the domain into the range.
func (l Linear) Apply(v float64) float64 {
	d0, d1 := l.Domain[0], l.Domain[1]
	r0, r1 := l.Range[0], l.Range[1]

	if d0 == d1 {
		return (r0 + r1) / 2
	}

	t := (v - d0) / (d1 - d0)
	if l.Clamp {
		t = math.Max(0, math.Min(1, t))
	}
	return r0 + t*(r1-r0)
}

// Round maps v and rounds to the nearest integer pixel.
func (l Linear) Round(v float64) int {
	return int(math.Round(l.Apply(v)))
}

// Invert maps a range value back into the domain.
func (l Linear) Invert(px float64) float64 {
	d0, d1 := l.Domain[0], l.Domain[1]
	r0, r1 := l.Range[0], l.Range[1]

	if r0 == r1 {
		return (d0 + d1) / 2
	}

	t := (px - r0) / (r1 - r0)
	if l.Clamp {
		t = math.Max(0, math.Min(1, t))
	}
	return d0 + t*(d1-d0)
}

// Rescale returns the scale seen through a view transform px' = px*k + offset:
// the range is kept and the domain is recomputed so that Apply on the result
// equals the transformed Apply of the original.
func (l Linear) Rescale(offset, k float64) Linear {
	inv := func(px float64) float64 {
		return l.WithClamp(false).Invert((px - offset) / k)
	}

	l.Domain = [2]float64{inv(l.Range[0]), inv(l.Range[1])}
	return l
}

// Ticks returns roughly count evenly spaced, human-friendly values within the domain.
func (l Linear) Ticks(count int) []float64 {
	return niceTicks(l.Domain[0], l.Domain[1], count)
}
