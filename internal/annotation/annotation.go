// Package annotation holds the known-signal records drawn as an overlay on top of
// the waterfall.
package annotation

import (
	"cmp"
	"encoding/json"
	"fmt"
	"io"
	"slices"

	"github.com/roman-kulish/waterfall/internal/spectrum"
)

// Annotation identifies a known signal occupying a frequency band.
type Annotation struct {
	FreqStart   float64 `json:"freqStart"`   // Hz
	FreqStop    float64 `json:"freqStop"`    // Hz
	Description string  `json:"description"` // Human-readable signal name
	URL         string  `json:"url"`         // Reference page for the signal
}

// Bandwidth returns the width of the annotated band in Hz.
func (a Annotation) Bandwidth() float64 {
	return a.FreqStop - a.FreqStart
}

// Overlaps reports whether the annotation intersects r.
func (a Annotation) Overlaps(r spectrum.Range[float64]) bool {
	return a.FreqStart <= r.Max && a.FreqStop >= r.Min
}

// Store is a passive holder of annotations, kept in decreasing bandwidth order so
// that narrow signals are drawn last, on top of wide ones.
type Store struct {
	items []Annotation
}

// NewStore creates a store from the given annotations.
func NewStore(items []Annotation) *Store {
	s := &Store{items: slices.Clone(items)}
	sortByBandwidth(s.items)
	return s
}

// Load parses a JSON annotation payload: an array of
// {freqStart, freqStop, description, url} objects.
func Load(r io.Reader) (*Store, error) {
	var items []Annotation
	if err := json.NewDecoder(r).Decode(&items); err != nil {
		return nil, spectrum.WrapParseError("decoding annotations", err)
	}

	for i, a := range items {
		if a.FreqStop < a.FreqStart {
			return nil, spectrum.NewParseError(fmt.Sprintf("annotation %d (%q): stop frequency %g below start %g",
				i, a.Description, a.FreqStop, a.FreqStart))
		}
	}

	return NewStore(items), nil
}

// All returns the annotations in drawing order.
func (s *Store) All() []Annotation {
	if s == nil {
		return nil
	}
	return slices.Clone(s.items)
}

// Within returns the annotations overlapping the frequency range, in drawing order.
func (s *Store) Within(r spectrum.Range[float64]) []Annotation {
	if s == nil {
		return nil
	}

	var out []Annotation
	for _, a := range s.items {
		if a.Overlaps(r) {
			out = append(out, a)
		}
	}
	return out
}

// Len returns the number of annotations.
func (s *Store) Len() int {
	if s == nil {
		return 0
	}
	return len(s.items)
}

// Write encodes the annotations as JSON.
func (s *Store) Write(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(s.All()); err != nil {
		return fmt.Errorf("encoding annotations: %w", err)
	}
	return nil
}

func sortByBandwidth(items []Annotation) {
	slices.SortStableFunc(items, func(a, b Annotation) int {
		return cmp.Compare(b.Bandwidth(), a.Bandwidth())
	})
}
