package annotation

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
)

const (
	sigidSeparator = "*"
	sigidMinFields = 8

	sigidDescription = 0
	sigidFreqStart   = 1
	sigidFreqStop    = 2
	sigidURL         = 7
)

// WithLogger sets the logger for the converter
func WithLogger(logger *slog.Logger) func(c *Converter) {
	return func(c *Converter) {
		c.logger = logger
	}
}

// Converter holds the settings of FromSigID.
type Converter struct {
	logger *slog.Logger
}

// FromSigID converts the Signal Identification Guide database (sigidwiki.com, as
// exported by the Artemis offline database) into annotations. Records are '*'
// separated; rows with fewer fields are ignored, and rows with both bounds at zero
// carry no frequency information and are skipped. Single-frequency entries (stop
// at zero) become point bands, and inverted bounds are swapped, so the output
// always satisfies Load.
func FromSigID(r io.Reader, options ...func(c *Converter)) (*Store, error) {
	c := Converter{
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, option := range options {
		option(&c)
	}

	var items []Annotation

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	var lineNo int
	for scanner.Scan() {
		lineNo++

		fields := strings.Split(strings.TrimRight(scanner.Text(), "\r\n"), sigidSeparator)
		if len(fields) < sigidMinFields {
			continue
		}

		start, err := strconv.ParseInt(strings.TrimSpace(fields[sigidFreqStart]), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid start frequency: %w", lineNo, err)
		}
		stop, err := strconv.ParseInt(strings.TrimSpace(fields[sigidFreqStop]), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid stop frequency: %w", lineNo, err)
		}

		a := Annotation{
			FreqStart:   float64(start),
			FreqStop:    float64(stop),
			Description: fields[sigidDescription],
			URL:         strings.TrimSpace(fields[sigidURL]),
		}

		switch {
		case start == 0 && stop == 0:
			c.logger.Debug("skipping signal without frequency", slog.String("description", a.Description))
			continue
		case stop == 0:
			a.FreqStop = a.FreqStart
		case stop < start:
			c.logger.Debug("swapping inverted bounds", slog.String("description", a.Description))
			a.FreqStart, a.FreqStop = a.FreqStop, a.FreqStart
		}

		items = append(items, a)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading signal database: %w", err)
	}

	return NewStore(items), nil
}
