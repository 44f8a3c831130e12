// Package viewport applies pan and zoom gestures to a rendered waterfall by
// compositing the cached bitmap instead of re-rendering the dataset.
package viewport

import (
	"fmt"

	"golang.org/x/image/math/f64"
)

// Transform is a uniform scale followed by a translation:
// screen = base*K + (X, Y).
type Transform struct {
	X float64
	Y float64
	K float64
}

// Identity is the transform of an unzoomed view.
var Identity = Transform{K: 1}

// Apply maps a base pixel position onto the screen.
func (t Transform) Apply(x, y float64) (float64, float64) {
	return x*t.K + t.X, y*t.K + t.Y
}

// Invert maps a screen position back onto base pixels.
func (t Transform) Invert(x, y float64) (float64, float64) {
	return (x - t.X) / t.K, (y - t.Y) / t.K
}

// Aff3 returns the source to destination matrix used by the compositor.
func (t Transform) Aff3() f64.Aff3 {
	return f64.Aff3{
		t.K, 0, t.X,
		0, t.K, t.Y,
	}
}

// Valid reports whether the transform can be inverted.
func (t Transform) Valid() bool {
	return t.K > 0
}

func (t Transform) String() string {
	return fmt.Sprintf("translate(%g,%g) scale(%g)", t.X, t.Y, t.K)
}
