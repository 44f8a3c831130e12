package scale

import (
	"math"
	"time"

	"github.com/roman-kulish/waterfall/internal/spectrum"
)

// Time is a linear scale over elapsed time. Values are expressed in nanoseconds
// relative to the start of the domain, which keeps float64 precision for long
// recordings.
type Time struct {
	origin time.Time
	linear Linear
}

// NewTime creates a non-clamping time scale from domain onto rng.
func NewTime(domain spectrum.Range[time.Time], rng [2]float64) Time {
	return Time{
		origin: domain.Min,
		linear: NewLinear([2]float64{0, float64(domain.Max.Sub(domain.Min))}, rng),
	}
}

// WithClamp returns a copy of the scale with clamping set to clamp.
func (s Time) WithClamp(clamp bool) Time {
	s.linear = s.linear.WithClamp(clamp)
	return s
}

// Apply maps t onto the range.
func (s Time) Apply(t time.Time) float64 {
	return s.linear.Apply(float64(t.Sub(s.origin)))
}

// Round maps t and rounds to the nearest integer pixel.
func (s Time) Round(t time.Time) int {
	return int(math.Round(s.Apply(t)))
}

// Invert maps a pixel back onto a point in time.
func (s Time) Invert(px float64) time.Time {
	return s.origin.Add(time.Duration(s.linear.Invert(px)))
}

// Domain returns the current time domain.
func (s Time) Domain() spectrum.Range[time.Time] {
	return spectrum.Range[time.Time]{
		Min: s.origin.Add(time.Duration(s.linear.Domain[0])),
		Max: s.origin.Add(time.Duration(s.linear.Domain[1])),
	}
}

// Range returns the pixel range.
func (s Time) Range() [2]float64 {
	return s.linear.Range
}

// Rescale returns the scale seen through a view transform px' = px*k + offset.
func (s Time) Rescale(offset, k float64) Time {
	s.linear = s.linear.Rescale(offset, k)
	return s
}

// Ticks returns about count nicely aligned points in time within the domain.
func (s Time) Ticks(count int) []time.Time {
	d := s.Domain()
	if d.Max.Before(d.Min) {
		d.Min, d.Max = d.Max, d.Min
	}
	return timeTicks(d.Min, d.Max, count)
}
