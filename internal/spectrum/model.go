package spectrum

import (
	"time"
)

// Sample represents a single power reading within a sweep.
type Sample struct {
	Frequency float64 `json:"frequency"` // Bin start frequency in Hz
	Power     float64 `json:"power"`     // Measured power level in dB
}

// Sweep represents one full frequency scan captured at a single instant.
// Samples are ordered by ascending frequency and never contain NaN power values.
type Sweep struct {
	Timestamp time.Time `json:"timestamp"`         // When the scan started
	Samples   []Sample  `json:"samples,omitempty"` // Ordered sequence of readings in this sweep
}

// Range is a closed [Min, Max] interval.
type Range[T float64 | time.Time] struct {
	Min T `json:"min"`
	Max T `json:"max"`
}

// Span returns Max - Min.
func (r Range[T]) Span() float64 {
	switch v := any(r).(type) {
	case Range[float64]:
		return v.Max - v.Min
	case Range[time.Time]:
		return float64(v.Max.Sub(v.Min))
	}
	return 0
}

// Dataset is the normalized, time-ordered result of parsing a sweep payload.
//
// Sweeps are strictly ascending by timestamp. FreqRange and PowerRange are the
// observed min/max across all retained samples. TimeRange.Max is extended past the
// last sweep by the gap between the final two sweeps, so the last row has a height.
// The dataset is immutable once built.
type Dataset struct {
	FreqStep   float64          `json:"freqStep"`   // Uniform frequency step in Hz
	FreqRange  Range[float64]   `json:"freqRange"`  // Observed frequency bounds in Hz
	TimeRange  Range[time.Time] `json:"timeRange"`  // First timestamp to extended end
	PowerRange Range[float64]   `json:"powerRange"` // Observed power bounds in dB
	Sweeps     []Sweep          `json:"sweeps,omitempty"`
}

// NumSamples returns the total number of retained samples.
func (d *Dataset) NumSamples() int {
	var n int
	for _, s := range d.Sweeps {
		n += len(s.Samples)
	}
	return n
}

// TimeStep returns the estimated duration of one sweep, as used to extend TimeRange.
func (d *Dataset) TimeStep() time.Duration {
	if len(d.Sweeps) == 0 {
		return 0
	}
	return d.TimeRange.Max.Sub(d.Sweeps[len(d.Sweeps)-1].Timestamp)
}
