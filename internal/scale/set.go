package scale

import (
	"fmt"
	"image"

	"github.com/roman-kulish/waterfall/internal/spectrum"
)

// Set bundles the scales used to draw a dataset into a pixel rectangle:
// frequency to x, time to y and power to color.
type Set struct {
	X      Linear
	Y      Time
	Color  *ColorMap
	Bounds image.Rectangle
}

// NewSet derives the scales from the dataset ranges and the target rectangle.
// Position scales do not clamp, so that view transforms can extrapolate.
func NewSet(ds *spectrum.Dataset, bounds image.Rectangle, theme ColorTheme) (*Set, error) {
	if ds == nil {
		return nil, spectrum.NewPreconditionError("building scales without a dataset")
	}
	if bounds.Empty() {
		return nil, fmt.Errorf("empty drawing area: %s", bounds)
	}

	cm, err := NewColorMap(theme, ds.PowerRange)
	if err != nil {
		return nil, fmt.Errorf("creating color map: %w", err)
	}

	return &Set{
		X: NewLinear(
			[2]float64{ds.FreqRange.Min, ds.FreqRange.Max},
			[2]float64{float64(bounds.Min.X), float64(bounds.Max.X)},
		),
		Y: NewTime(
			ds.TimeRange,
			[2]float64{float64(bounds.Min.Y), float64(bounds.Max.Y)},
		),
		Color:  cm,
		Bounds: bounds,
	}, nil
}

// WithColorMap returns a copy of the set using cm.
func (s *Set) WithColorMap(cm *ColorMap) *Set {
	c := *s
	c.Color = cm
	return &c
}

// Clamped returns a copy of the set whose position scales pin out-of-domain values
// to the edges of the drawing area, as used for overlay geometry.
func (s *Set) Clamped() *Set {
	c := *s
	c.X = s.X.WithClamp(true)
	c.Y = s.Y.WithClamp(true)
	return &c
}

// Rescale returns the position scales composed with the view transform
// px' = px*k + (tx, ty). Only axis labelling uses them; pixel data is untouched.
func (s *Set) Rescale(tx, ty, k float64) (Linear, Time) {
	return s.X.Rescale(tx, k), s.Y.Rescale(ty, k)
}
