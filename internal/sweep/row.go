package sweep

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/roman-kulish/waterfall/internal/spectrum"
)

const minFields = 7

// Timestamp layouts of `rtl_power` and `hackrf_sweep` output.
var timestampLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02 15:04:05.000000",
}

// Row is a single parsed line of sweep output. A row may hold a whole sweep or
// only a chunk of one, when the tool splits wide scans across several lines.
type Row struct {
	Timestamp time.Time
	FreqLow   float64 // Hz
	FreqHigh  float64 // Hz
	FreqStep  float64 // Hz step/bin width
	Samples   []spectrum.Sample
	Dropped   int // Readings dropped because they were not valid numbers
}

// ParseRow parses a line of `date, time, freqLow, freqHigh, freqStep, reserved, dB...`.
// The reading at index k is attributed to freqLow + k*freqStep. Readings that are
// not valid numbers (including NaN) are skipped.
func ParseRow(line string) (Row, error) {
	fields := strings.Split(line, ",")
	if len(fields) < minFields {
		return Row{}, fmt.Errorf("not enough fields: %d, want at least %d", len(fields), minFields)
	}

	var row Row
	var err error

	dateTime := strings.TrimSpace(fields[0]) + " " + strings.TrimSpace(fields[1])
	if row.Timestamp, err = parseTimestamp(dateTime); err != nil {
		return Row{}, err
	}

	if row.FreqLow, err = parseFrequency(fields[2]); err != nil {
		return Row{}, fmt.Errorf("invalid low frequency: %w", err)
	}
	if row.FreqHigh, err = parseFrequency(fields[3]); err != nil {
		return Row{}, fmt.Errorf("invalid high frequency: %w", err)
	}
	if row.FreqStep, err = parseFrequency(fields[4]); err != nil {
		return Row{}, fmt.Errorf("invalid frequency step: %w", err)
	}
	if row.FreqStep <= 0 {
		return Row{}, fmt.Errorf("invalid frequency step: %g", row.FreqStep)
	}

	// fields[5] is reserved (number of samples for both tools) and not used

	readings := fields[minFields-1:]
	row.Samples = make([]spectrum.Sample, 0, len(readings))
	for k, field := range readings {
		power, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
		if err != nil || math.IsNaN(power) || math.IsInf(power, 0) {
			row.Dropped++
			continue
		}

		row.Samples = append(row.Samples, spectrum.Sample{
			Frequency: row.FreqLow + float64(k)*row.FreqStep,
			Power:     power,
		})
	}

	return row, nil
}

func parseTimestamp(value string) (time.Time, error) {
	var errs []error
	for _, layout := range timestampLayouts {
		t, err := time.ParseInLocation(layout, value, time.UTC)
		if err == nil {
			return t, nil
		}
		errs = append(errs, err)
	}
	return time.Time{}, fmt.Errorf("invalid timestamp %q: %w", value, errors.Join(errs...))
}

func parseFrequency(field string) (float64, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("not a finite number: %q", strings.TrimSpace(field))
	}
	return f, nil
}
