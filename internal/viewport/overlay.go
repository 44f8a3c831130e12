package viewport

import (
	"image"
	"math"
	"sync"

	"github.com/roman-kulish/waterfall/internal/annotation"
	"github.com/roman-kulish/waterfall/internal/scale"
	"github.com/roman-kulish/waterfall/internal/spectrum"
)

// Region is the area an annotation covers in base (untransformed) pixels.
type Region struct {
	Annotation annotation.Annotation
	Rect       image.Rectangle
}

// Overlay holds the annotation regions of a view. Geometry is computed once with
// clamped scales; zooming only changes the transform applied on top of it.
type Overlay struct {
	mu        sync.RWMutex
	regions   []Region
	transform Transform
}

// NewOverlay lays out the annotations of store over the full height of the drawing
// area. Bounds outside the frequency domain are pinned to the visible edge, and
// annotations entirely outside it are left out.
func NewOverlay(store *annotation.Store, scales *scale.Set) *Overlay {
	o := Overlay{transform: Identity}
	if store == nil || scales == nil {
		return &o
	}

	clamped := scales.Clamped()
	visible := spectrum.Range[float64]{Min: clamped.X.Domain[0], Max: clamped.X.Domain[1]}

	for _, a := range store.Within(visible) {
		x0 := clamped.X.Round(a.FreqStart)
		x1 := clamped.X.Round(a.FreqStop)
		if x1 <= x0 {
			x1 = x0 + 1
		}

		o.regions = append(o.regions, Region{
			Annotation: a,
			Rect:       image.Rect(x0, scales.Bounds.Min.Y, x1, scales.Bounds.Max.Y),
		})
	}

	return &o
}

// Regions returns the laid out regions in drawing order: widest first, so that
// narrower annotations end up on top.
func (o *Overlay) Regions() []Region {
	o.mu.RLock()
	defer o.mu.RUnlock()

	out := make([]Region, len(o.regions))
	copy(out, o.regions)
	return out
}

// SetTransform repositions the overlay group.
func (o *Overlay) SetTransform(t Transform) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.transform = t
}

func (o *Overlay) Transform() Transform {
	o.mu.RLock()
	defer o.mu.RUnlock()

	return o.transform
}

// ScreenRect returns the on-screen rectangle of r under the current transform.
func (o *Overlay) ScreenRect(r Region) image.Rectangle {
	t := o.Transform()
	x0, y0 := t.Apply(float64(r.Rect.Min.X), float64(r.Rect.Min.Y))
	x1, y1 := t.Apply(float64(r.Rect.Max.X), float64(r.Rect.Max.Y))
	return image.Rect(
		int(math.Round(x0)), int(math.Round(y0)),
		int(math.Round(x1)), int(math.Round(y1)),
	)
}

// HitTest returns the top-most annotation under the screen position (x, y).
func (o *Overlay) HitTest(x, y float64) (annotation.Annotation, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()

	bx, by := o.transform.Invert(x, y)
	for i := len(o.regions) - 1; i >= 0; i-- {
		r := o.regions[i].Rect
		if bx >= float64(r.Min.X) && bx < float64(r.Max.X) &&
			by >= float64(r.Min.Y) && by < float64(r.Max.Y) {
			return o.regions[i].Annotation, true
		}
	}
	return annotation.Annotation{}, false
}
