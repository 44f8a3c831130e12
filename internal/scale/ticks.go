package scale

import (
	"math"
	"slices"
	"time"
)

// Nice time intervals for time axis ticks
var niceIntervals = []time.Duration{
	time.Second,
	5 * time.Second,
	15 * time.Second,
	30 * time.Second,
	time.Minute,
	5 * time.Minute,
	10 * time.Minute,
	15 * time.Minute,
	30 * time.Minute,
	time.Hour,
	2 * time.Hour,
	4 * time.Hour,
	6 * time.Hour,
	12 * time.Hour,
	24 * time.Hour,
}

// tickStep returns a 1, 2 or 5 times power of ten step splitting [start, stop]
// into about count intervals.
func tickStep(start, stop float64, count int) float64 {
	step0 := math.Abs(stop-start) / float64(count)
	step1 := math.Pow(10, math.Floor(math.Log10(step0)))

	switch ratio := step0 / step1; {
	case ratio >= math.Sqrt(50):
		step1 *= 10
	case ratio >= math.Sqrt(10):
		step1 *= 5
	case ratio >= math.Sqrt2:
		step1 *= 2
	}
	return step1
}

func niceTicks(a, b float64, count int) []float64 {
	if count <= 0 || a == b || math.IsNaN(a) || math.IsNaN(b) {
		return nil
	}

	lo, hi := min(a, b), max(a, b)
	step := tickStep(lo, hi, count)
	if step == 0 || math.IsInf(step, 0) || math.IsNaN(step) {
		return nil
	}

	var ticks []float64
	if step < 1 {
		// divide by the inverse to keep decimal ticks exact
		inv := math.Round(1 / step)
		for i := math.Ceil(lo * inv); i <= math.Floor(hi*inv); i++ {
			ticks = append(ticks, i/inv)
		}
	} else {
		for i := math.Ceil(lo / step); i <= math.Floor(hi/step); i++ {
			ticks = append(ticks, i*step)
		}
	}

	if a > b {
		slices.Reverse(ticks)
	}
	return ticks
}

// niceTimeStep picks the first nice interval giving at most count ticks over d.
func niceTimeStep(d time.Duration, count int) time.Duration {
	if count <= 0 {
		count = 1
	}

	rough := d / time.Duration(count)
	for _, interval := range niceIntervals {
		if rough <= interval {
			return interval
		}
	}

	days := (rough + 24*time.Hour - 1) / (24 * time.Hour)
	return days * 24 * time.Hour
}

func timeTicks(start, end time.Time, count int) []time.Time {
	if !end.After(start) {
		return nil
	}

	step := niceTimeStep(end.Sub(start), count)

	var ticks []time.Time
	t := start.Truncate(step)
	if t.Before(start) {
		t = t.Add(step)
	}
	for ; !t.After(end); t = t.Add(step) {
		ticks = append(ticks, t)
	}
	return ticks
}
