package render

import (
	"bytes"
	"context"
	"errors"
	"image"
	"testing"
	"time"

	"github.com/roman-kulish/waterfall/internal/scale"
	"github.com/roman-kulish/waterfall/internal/spectrum"
)

var t0 = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

// testDataset builds sweeps of ten 1 Hz bins at the given offsets from t0. The
// time range ends one step after the last sweep.
func testDataset(offsets ...time.Duration) *spectrum.Dataset {
	ds := &spectrum.Dataset{
		FreqStep:   1,
		FreqRange:  spectrum.Range[float64]{Min: 0, Max: 10},
		PowerRange: spectrum.Range[float64]{Min: -100, Max: -20},
	}

	for i, offset := range offsets {
		sweep := spectrum.Sweep{Timestamp: t0.Add(offset)}
		for k := 0; k < 10; k++ {
			sweep.Samples = append(sweep.Samples, spectrum.Sample{
				Frequency: float64(k),
				Power:     -100 + float64((i*10+k)%9)*10,
			})
		}
		ds.Sweeps = append(ds.Sweeps, sweep)
	}

	n := len(offsets)
	last := offsets[n-1]
	ds.TimeRange = spectrum.Range[time.Time]{
		Min: t0.Add(offsets[0]),
		Max: t0.Add(last + (last - offsets[n-2])),
	}
	return ds
}

func newTestRenderer(t *testing.T, ds *spectrum.Dataset, bounds image.Rectangle, options ...func(*Renderer)) *Renderer {
	t.Helper()

	scales, err := scale.NewSet(ds, bounds, scale.ClassicTheme)
	if err != nil {
		t.Fatalf("NewSet failed: %v", err)
	}

	r, err := NewRenderer(ds, scales, options...)
	if err != nil {
		t.Fatalf("NewRenderer failed: %v", err)
	}
	return r
}

func TestRenderSync_ProgressiveIdentical(t *testing.T) {
	ds := testDataset(0, 10*time.Second, 25*time.Second, 30*time.Second)
	bounds := image.Rect(0, 0, 100, 80)

	testCases := []struct {
		name      string
		scheduler Scheduler
	}{
		{"immediate", ImmediateScheduler{}},
		{"ticker", NewTickerScheduler(time.Millisecond)},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			sync := NewSurface(bounds)
			if err := newTestRenderer(t, ds, bounds).RenderSync(sync); err != nil {
				t.Fatalf("RenderSync failed: %v", err)
			}

			progressive := NewSurface(bounds)
			r := newTestRenderer(t, ds, bounds, WithScheduler(tc.scheduler))
			task, err := r.Start(context.Background(), progressive, nil)
			if err != nil {
				t.Fatalf("Start failed: %v", err)
			}
			if err = task.Wait(); err != nil {
				t.Fatalf("progressive pass failed: %v", err)
			}
			if got := task.Painted(); got != len(ds.Sweeps) {
				t.Errorf("expected %d painted rows, got %d", len(ds.Sweeps), got)
			}

			if !bytes.Equal(sync.Snapshot().img.Pix, progressive.Snapshot().img.Pix) {
				t.Error("progressive output differs from synchronous output")
			}
		})
	}
}

func TestRowBounds(t *testing.T) {
	// 35s mapped onto 70px: sweeps at 0s, 10s, 25s and 30s
	ds := testDataset(0, 10*time.Second, 25*time.Second, 30*time.Second)
	r := newTestRenderer(t, ds, image.Rect(0, 0, 100, 70))

	testCases := []struct {
		row    int
		y0, y1 int
	}{
		{0, 0, 20},
		{1, 20, 50},
		{2, 50, 60},
		{3, 60, 70}, // last row repeats the previous gap
	}

	for _, tc := range testCases {
		y0, y1 := r.RowBounds(tc.row)
		if y0 != tc.y0 || y1 != tc.y1 {
			t.Errorf("row %d: expected [%d, %d), got [%d, %d)", tc.row, tc.y0, tc.y1, y0, y1)
		}
	}

	s := NewSurface(r.Scales().Bounds)
	if err := r.RenderSync(s); err != nil {
		t.Fatalf("RenderSync failed: %v", err)
	}

	cm := r.Scales().Color
	for _, tc := range testCases {
		sample := ds.Sweeps[tc.row].Samples[3]
		x0, x1 := r.CellBounds(sample.Frequency)
		if x1-x0 != 10 {
			t.Fatalf("expected 10px cells, got %d", x1-x0)
		}

		want := cm.Color(sample.Power)
		for _, y := range []int{tc.y0, tc.y1 - 1} {
			if got := s.At(x0+5, y); got != want {
				t.Errorf("row %d, y=%d: expected %v, got %v", tc.row, y, want, got)
			}
		}
	}
}

func TestStart_Snapshot(t *testing.T) {
	ds := testDataset(0, 10*time.Second, 20*time.Second)
	bounds := image.Rect(0, 0, 50, 30)
	r := newTestRenderer(t, ds, bounds, WithSnapshot(true))

	s := NewSurface(bounds)
	done := make(chan *Bitmap, 1)
	task, err := r.Start(context.Background(), s, func(bmp *Bitmap, err error) {
		if err != nil {
			t.Errorf("unexpected pass error: %v", err)
		}
		done <- bmp
	})
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err = task.Wait(); err != nil {
		t.Fatalf("Wait failed: %v", err)
	}

	bmp := <-done
	if bmp == nil {
		t.Fatal("expected a snapshot after a completed pass")
	}
	if !bytes.Equal(bmp.img.Pix, s.Snapshot().img.Pix) {
		t.Error("snapshot differs from the surface")
	}

	// the snapshot is a copy
	s.Clear()
	if bmp.At(1, 1).A == 0 {
		t.Error("clearing the surface must not affect the snapshot")
	}
}

func TestTask_Cancel(t *testing.T) {
	var nilTask *Task
	nilTask.Cancel()
	nilTask.Cancel()
	if err := nilTask.Wait(); err != nil {
		t.Errorf("nil task Wait returned %v", err)
	}
	select {
	case <-nilTask.Done():
	default:
		t.Error("nil task must report done")
	}

	ds := testDataset(0, 10*time.Second, 20*time.Second)
	bounds := image.Rect(0, 0, 50, 30)
	r := newTestRenderer(t, ds, bounds,
		WithScheduler(NewTickerScheduler(time.Hour)),
		WithSnapshot(true),
	)

	var gotErr error
	var gotBitmap *Bitmap
	task, err := r.Start(context.Background(), NewSurface(bounds), func(bmp *Bitmap, err error) {
		gotBitmap, gotErr = bmp, err
	})
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	task.Cancel()
	task.Cancel()

	if err = task.Wait(); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if !errors.Is(gotErr, context.Canceled) {
		t.Errorf("expected callback error context.Canceled, got %v", gotErr)
	}
	if gotBitmap != nil {
		t.Error("a cancelled pass must not produce a snapshot")
	}
	if task.Painted() != 0 {
		t.Errorf("expected no painted rows, got %d", task.Painted())
	}
}

func TestNewRenderer_Precondition(t *testing.T) {
	ds := testDataset(0, time.Second)
	scales, err := scale.NewSet(ds, image.Rect(0, 0, 10, 10), scale.GrayscaleTheme)
	if err != nil {
		t.Fatalf("NewSet failed: %v", err)
	}

	testCases := []struct {
		name   string
		ds     *spectrum.Dataset
		scales *scale.Set
	}{
		{"nil dataset", nil, scales},
		{"empty dataset", &spectrum.Dataset{}, scales},
		{"nil scales", ds, nil},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewRenderer(tc.ds, tc.scales)

			var pe *spectrum.PreconditionError
			if !errors.As(err, &pe) {
				t.Fatalf("expected PreconditionError, got %v", err)
			}
		})
	}

	var r *Renderer
	var pe *spectrum.PreconditionError
	if err = r.RenderSync(NewSurface(image.Rect(0, 0, 1, 1))); !errors.As(err, &pe) {
		t.Errorf("expected PreconditionError from nil renderer, got %v", err)
	}
}
