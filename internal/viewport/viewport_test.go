package viewport

import (
	"bytes"
	"context"
	"image"
	"math"
	"testing"
	"time"

	"github.com/roman-kulish/waterfall/internal/annotation"
	"github.com/roman-kulish/waterfall/internal/render"
	"github.com/roman-kulish/waterfall/internal/scale"
	"github.com/roman-kulish/waterfall/internal/spectrum"
)

var t0 = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

// testDataset has four sweeps 10s apart with ten 1 kHz bins from 100 kHz. On a
// 100x80 surface every cell is 10x20 pixels.
func testDataset() *spectrum.Dataset {
	ds := &spectrum.Dataset{
		FreqStep:   1_000,
		FreqRange:  spectrum.Range[float64]{Min: 100_000, Max: 110_000},
		TimeRange:  spectrum.Range[time.Time]{Min: t0, Max: t0.Add(40 * time.Second)},
		PowerRange: spectrum.Range[float64]{Min: -90, Max: -10},
	}

	for i := 0; i < 4; i++ {
		sweep := spectrum.Sweep{Timestamp: t0.Add(time.Duration(i) * 10 * time.Second)}
		for k := 0; k < 10; k++ {
			sweep.Samples = append(sweep.Samples, spectrum.Sample{
				Frequency: 100_000 + float64(k)*1_000,
				Power:     -90 + float64((i*3+k)%9)*10,
			})
		}
		ds.Sweeps = append(ds.Sweeps, sweep)
	}
	return ds
}

type fixture struct {
	ds       *spectrum.Dataset
	scales   *scale.Set
	renderer *render.Renderer
	surface  *render.Surface
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	ds := testDataset()
	bounds := image.Rect(0, 0, 100, 80)

	scales, err := scale.NewSet(ds, bounds, scale.ViridisTheme)
	if err != nil {
		t.Fatalf("NewSet failed: %v", err)
	}
	r, err := render.NewRenderer(ds, scales, render.WithSnapshot(true))
	if err != nil {
		t.Fatalf("NewRenderer failed: %v", err)
	}

	return &fixture{ds: ds, scales: scales, renderer: r, surface: render.NewSurface(bounds)}
}

// renderPass runs a progressive pass to completion and returns its snapshot.
func (f *fixture) renderPass(t *testing.T) *render.Bitmap {
	t.Helper()

	var bmp *render.Bitmap
	task, err := f.renderer.Start(context.Background(), f.surface, func(b *render.Bitmap, err error) {
		bmp = b
	})
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err = task.Wait(); err != nil {
		t.Fatalf("render pass failed: %v", err)
	}
	if bmp == nil {
		t.Fatal("expected a snapshot")
	}
	return bmp
}

func TestTransform(t *testing.T) {
	tr := Transform{X: -30, Y: 12, K: 2.5}

	x, y := tr.Apply(10, 20)
	if x != -5 || y != 62 {
		t.Errorf("Apply(10, 20) = (%g, %g), want (-5, 62)", x, y)
	}

	bx, by := tr.Invert(x, y)
	if math.Abs(bx-10) > 1e-9 || math.Abs(by-20) > 1e-9 {
		t.Errorf("Invert(Apply(p)) = (%g, %g), want (10, 20)", bx, by)
	}

	ix, iy := Identity.Apply(7, 9)
	if ix != 7 || iy != 9 {
		t.Errorf("Identity.Apply(7, 9) = (%g, %g)", ix, iy)
	}

	if (Transform{}).Valid() {
		t.Error("zero scale must not be valid")
	}
}

func TestZoom_WithoutBitmapIsNoop(t *testing.T) {
	f := newFixture(t)
	if err := f.renderer.RenderSync(f.surface); err != nil {
		t.Fatalf("RenderSync failed: %v", err)
	}
	before := f.surface.Snapshot()

	c := NewController(f.surface, f.scales, WithZoom(true))
	if c.Zoom(Transform{X: -20, Y: -20, K: 2}) {
		t.Error("zoom without a cached bitmap must be rejected")
	}
	if c.Transform() != Identity {
		t.Errorf("transform changed to %s", c.Transform())
	}
	if !bytes.Equal(pixels(before), pixels(f.surface.Snapshot())) {
		t.Error("surface changed after a rejected zoom")
	}
}

func TestZoom_Disabled(t *testing.T) {
	f := newFixture(t)
	bmp := f.renderPass(t)

	c := NewController(f.surface, f.scales)
	c.SetBitmap(bmp)
	if c.Zoom(Transform{K: 2}) {
		t.Error("zoom must be rejected when disabled")
	}
}

func TestZoom_Equivariant(t *testing.T) {
	testCases := []struct {
		name string
		tr   Transform
	}{
		{"pan", Transform{X: 20, Y: -40, K: 1}},
		{"zoom", Transform{X: -30, Y: -20, K: 2}},
		{"zoom out", Transform{X: 10, Y: 20, K: 0.5}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			c := NewController(f.surface, f.scales, WithZoom(true))
			c.SetBitmap(f.renderPass(t))

			if !c.Zoom(tc.tr) {
				t.Fatal("zoom rejected")
			}

			// re-render the whole dataset under the rescaled axes
			axes := c.Axes()
			rescaled := *f.scales
			rescaled.X, rescaled.Y = axes.X, axes.Y

			r, err := render.NewRenderer(f.ds, &rescaled)
			if err != nil {
				t.Fatalf("NewRenderer failed: %v", err)
			}
			want := render.NewSurface(f.scales.Bounds)
			if err = r.RenderSync(want); err != nil {
				t.Fatalf("RenderSync failed: %v", err)
			}

			// compare at the centers of the transformed cells
			for i, sweep := range f.ds.Sweeps {
				y0, y1 := r.RowBounds(i)
				for _, sample := range sweep.Samples {
					x0, x1 := r.CellBounds(sample.Frequency)
					x, y := (x0+x1)/2, (y0+y1)/2
					if !image.Pt(x, y).In(f.scales.Bounds) {
						continue
					}

					if got, exp := f.surface.At(x, y), want.At(x, y); got != exp {
						t.Errorf("sweep %d, %g Hz at (%d, %d): composite %v, re-render %v",
							i, sample.Frequency, x, y, got, exp)
					}
				}
			}
		})
	}
}

func TestZoom_RescalesAxesAndOverlay(t *testing.T) {
	f := newFixture(t)
	overlay := NewOverlay(annotation.NewStore([]annotation.Annotation{
		{FreqStart: 102_000, FreqStop: 104_000, Description: "narrow"},
	}), f.scales)

	c := NewController(f.surface, f.scales, WithZoom(true), WithOverlay(overlay))
	c.SetBitmap(f.renderPass(t))

	tr := Transform{X: -100, Y: 0, K: 2}
	if !c.Zoom(tr) {
		t.Fatal("zoom rejected")
	}

	// the visible range is now 105 kHz to 110 kHz
	axes := c.Axes()
	if math.Abs(axes.X.Domain[0]-105_000) > 1e-6 || math.Abs(axes.X.Domain[1]-110_000) > 1e-6 {
		t.Errorf("unexpected rescaled domain %v", axes.X.Domain)
	}

	if overlay.Transform() != tr {
		t.Errorf("overlay transform %s, want %s", overlay.Transform(), tr)
	}
	if got := overlay.ScreenRect(overlay.Regions()[0]); got != image.Rect(-60, 0, -20, 160) {
		t.Errorf("unexpected screen rect %v", got)
	}

	c.Invalidate()
	if c.HasBitmap() {
		t.Error("bitmap must be dropped on invalidation")
	}
	if c.Transform() != Identity || overlay.Transform() != Identity {
		t.Error("view must be reset on invalidation")
	}
	if c.Zoom(tr) {
		t.Error("zoom must be rejected until the next completed pass")
	}
}

func TestOverlay_HitTest(t *testing.T) {
	f := newFixture(t)
	store := annotation.NewStore([]annotation.Annotation{
		{FreqStart: 102_000, FreqStop: 104_000, Description: "narrow"},
		{FreqStart: 95_000, FreqStop: 108_000, Description: "wide"},
		{FreqStart: 200_000, FreqStop: 300_000, Description: "out of range"},
	})
	overlay := NewOverlay(store, f.scales)

	regions := overlay.Regions()
	if len(regions) != 2 {
		t.Fatalf("expected 2 visible regions, got %d", len(regions))
	}
	// the wide band starts below the domain and is pinned to the left edge
	if regions[0].Rect != image.Rect(0, 0, 80, 80) {
		t.Errorf("unexpected wide region %v", regions[0].Rect)
	}

	testCases := []struct {
		name   string
		tr     Transform
		x, y   float64
		want   string
		wantOK bool
	}{
		{"narrow on top", Identity, 25, 10, "narrow", true},
		{"wide only", Identity, 5, 10, "wide", true},
		{"nothing", Identity, 90, 10, "", false},
		{"zoomed narrow", Transform{X: -40, K: 2}, 15, 30, "narrow", true},
		{"zoomed wide", Transform{X: -40, K: 2}, 100, 30, "wide", true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			overlay.SetTransform(tc.tr)

			got, ok := overlay.HitTest(tc.x, tc.y)
			if ok != tc.wantOK || got.Description != tc.want {
				t.Errorf("HitTest(%g, %g) = %q, %t; want %q, %t", tc.x, tc.y, got.Description, ok, tc.want, tc.wantOK)
			}
		})
	}
}

func pixels(b *render.Bitmap) []byte {
	return b.Image().(*image.RGBA).Pix
}
