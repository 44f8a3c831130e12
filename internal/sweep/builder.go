package sweep

import (
	"bufio"
	"cmp"
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"slices"
	"strings"
	"time"

	"github.com/roman-kulish/waterfall/internal/spectrum"
)

const (
	minSweeps = 2

	initialLineBuffer = 64 * 1024
	maxLineLength     = 16 * 1024 * 1024
)

// WithLogger sets the logger for the builder
func WithLogger(logger *slog.Logger) func(b *Builder) {
	return func(b *Builder) {
		b.logger = logger
	}
}

// Builder reassembles parsed rows into a normalized spectrum.Dataset.
//
// Rows are grouped into sweeps with a heuristic: the low frequency of the very
// first row is the reference start frequency, and every row returning to it starts
// a new sweep. Other rows are chunks of the current sweep. The heuristic is best
// effort; a chunk that happens to start at the reference frequency in the middle of
// a scan is taken for a new sweep.
type Builder struct {
	logger *slog.Logger

	refFreq float64 // Start frequency of the first row
	step    float64 // Global frequency step

	sweeps  []spectrum.Sweep
	rows    int
	dropped int

	hasSamples bool
	freqRange  spectrum.Range[float64]
	powerRange spectrum.Range[float64]
	timeRange  spectrum.Range[time.Time]
}

// NewBuilder creates an empty Builder with a discard logger
func NewBuilder(options ...func(b *Builder)) *Builder {
	b := Builder{
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		freqRange: spectrum.Range[float64]{
			Min: math.Inf(1),
			Max: math.Inf(-1),
		},
		powerRange: spectrum.Range[float64]{
			Min: math.Inf(1),
			Max: math.Inf(-1),
		},
	}

	for _, option := range options {
		option(&b)
	}

	return &b
}

// Add appends a parsed row, starting a new sweep when the row's low frequency
// matches the reference start frequency.
func (b *Builder) Add(row Row) error {
	if err := b.checkStep(row.FreqLow, row.FreqStep); err != nil {
		return err
	}

	if b.rows == 0 || freqEqual(row.FreqLow, b.refFreq, b.step) {
		b.sweeps = append(b.sweeps, spectrum.Sweep{Timestamp: row.Timestamp})
		b.updateTimeRange(row.Timestamp)
	}

	b.appendSamples(row.Samples)
	b.rows++
	b.dropped += row.Dropped
	return nil
}

// AddSweep appends a sweep whose framing is already known, such as one read back
// from storage. The boundary heuristic is not applied.
func (b *Builder) AddSweep(sweep spectrum.Sweep, step float64) error {
	if len(sweep.Samples) == 0 {
		return nil
	}
	if err := b.checkStep(sweep.Samples[0].Frequency, step); err != nil {
		return err
	}

	b.sweeps = append(b.sweeps, spectrum.Sweep{Timestamp: sweep.Timestamp})
	b.updateTimeRange(sweep.Timestamp)

	b.appendSamples(sweep.Samples)
	b.rows++
	return nil
}

// checkStep fixes the reference frequency and global step on the first row and
// rejects rows with a different step afterwards.
func (b *Builder) checkStep(low, step float64) error {
	if b.rows == 0 {
		b.refFreq = low
		b.step = step
		return nil
	}
	if !freqEqual(step, b.step, b.step) {
		return fmt.Errorf("frequency step %g differs from dataset step %g", step, b.step)
	}
	return nil
}

func (b *Builder) appendSamples(samples []spectrum.Sample) {
	current := &b.sweeps[len(b.sweeps)-1]
	current.Samples = append(current.Samples, samples...)

	for _, s := range samples {
		b.hasSamples = true
		b.freqRange.Min = min(b.freqRange.Min, s.Frequency)
		b.freqRange.Max = max(b.freqRange.Max, s.Frequency)
		b.powerRange.Min = min(b.powerRange.Min, s.Power)
		b.powerRange.Max = max(b.powerRange.Max, s.Power)
	}
}

func (b *Builder) updateTimeRange(t time.Time) {
	if b.timeRange.Min.IsZero() || t.Before(b.timeRange.Min) {
		b.timeRange.Min = t
	}
	if b.timeRange.Max.IsZero() || t.After(b.timeRange.Max) {
		b.timeRange.Max = t
	}
}

// Build finalizes the dataset. Sweeps are ordered by time, sweeps sharing a
// timestamp are merged, and the end of the time range is extended by the gap
// between the final two sweeps.
func (b *Builder) Build() (*spectrum.Dataset, error) {
	if b.rows == 0 {
		return nil, spectrum.NewParseError("empty payload")
	}
	if !b.hasSamples {
		return nil, spectrum.NewParseError("no valid power readings")
	}

	sweeps := mergeSweeps(b.sweeps)
	if len(sweeps) < minSweeps {
		return nil, spectrum.NewParseError(fmt.Sprintf("need at least %d sweeps, got %d", minSweeps, len(sweeps)))
	}

	last := sweeps[len(sweeps)-1].Timestamp
	prev := sweeps[len(sweeps)-2].Timestamp

	ds := &spectrum.Dataset{
		FreqStep:   b.step,
		FreqRange:  b.freqRange,
		PowerRange: b.powerRange,
		TimeRange: spectrum.Range[time.Time]{
			Min: b.timeRange.Min,
			Max: b.timeRange.Max.Add(last.Sub(prev)),
		},
		Sweeps: sweeps,
	}

	b.logger.Debug("dataset built",
		slog.Int("rows", b.rows),
		slog.Int("sweeps", len(ds.Sweeps)),
		slog.Int("samples", ds.NumSamples()),
		slog.Int("dropped", b.dropped),
	)

	return ds, nil
}

// mergeSweeps returns a copy of sweeps ordered by time, with samples ordered by
// frequency and sweeps that share a timestamp merged.
func mergeSweeps(in []spectrum.Sweep) []spectrum.Sweep {
	sorted := slices.Clone(in)
	slices.SortStableFunc(sorted, func(a, b spectrum.Sweep) int {
		return a.Timestamp.Compare(b.Timestamp)
	})

	out := make([]spectrum.Sweep, 0, len(sorted))
	for _, s := range sorted {
		if n := len(out); n > 0 && out[n-1].Timestamp.Equal(s.Timestamp) {
			out[n-1].Samples = append(out[n-1].Samples, s.Samples...)
			continue
		}
		out = append(out, spectrum.Sweep{
			Timestamp: s.Timestamp,
			Samples:   slices.Clone(s.Samples),
		})
	}

	for i := range out {
		slices.SortStableFunc(out[i].Samples, func(a, b spectrum.Sample) int {
			return cmp.Compare(a.Frequency, b.Frequency)
		})
	}
	return out
}

// Parse reads a whole sweep payload and builds the dataset. Blank lines and lines
// starting with '#' are ignored.
func Parse(ctx context.Context, r io.Reader, options ...func(b *Builder)) (*spectrum.Dataset, error) {
	b := NewBuilder(options...)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, initialLineBuffer), maxLineLength)

	var lineNo int
	for scanner.Scan() {
		lineNo++
		if lineNo%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		row, err := ParseRow(line)
		if err != nil {
			return nil, spectrum.NewLineError(lineNo, err)
		}
		if err = b.Add(row); err != nil {
			return nil, spectrum.NewLineError(lineNo, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, spectrum.WrapParseError("reading payload", err)
	}

	return b.Build()
}
