// Package render rasterizes a spectrum dataset onto a Surface, either in one go
// or progressively one sweep per frame.
package render

import (
	"context"
	"fmt"
	"image"
	"io"
	"log/slog"
	"time"

	"github.com/roman-kulish/waterfall/internal/scale"
	"github.com/roman-kulish/waterfall/internal/spectrum"
)

// WithLogger sets the logger for the renderer
func WithLogger(logger *slog.Logger) func(r *Renderer) {
	return func(r *Renderer) {
		r.logger = logger
	}
}

// WithScheduler sets the scheduler driving progressive passes
func WithScheduler(s Scheduler) func(r *Renderer) {
	return func(r *Renderer) {
		r.scheduler = s
	}
}

// WithSnapshot enables capturing a bitmap at the end of each completed
// progressive pass.
func WithSnapshot(enabled bool) func(r *Renderer) {
	return func(r *Renderer) {
		r.snapshot = enabled
	}
}

// Renderer paints each sweep of a dataset as one horizontal band of cells, one
// cell per sample.
type Renderer struct {
	ds     *spectrum.Dataset
	scales *scale.Set

	scheduler Scheduler
	snapshot  bool
	logger    *slog.Logger
}

// NewRenderer creates a renderer with an immediate scheduler and a discard logger.
func NewRenderer(ds *spectrum.Dataset, scales *scale.Set, options ...func(r *Renderer)) (*Renderer, error) {
	if ds == nil {
		return nil, spectrum.NewPreconditionError("rendering without a dataset")
	}
	if len(ds.Sweeps) == 0 {
		return nil, spectrum.NewPreconditionError("rendering an empty dataset")
	}
	if scales == nil || scales.Color == nil {
		return nil, spectrum.NewPreconditionError("rendering without scales")
	}

	r := Renderer{
		ds:        ds,
		scales:    scales,
		scheduler: ImmediateScheduler{},
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	for _, option := range options {
		option(&r)
	}

	return &r, nil
}

// Scales returns the scale set the renderer paints with.
func (r *Renderer) Scales() *scale.Set {
	return r.scales
}

// Rows returns the number of rows a full pass paints.
func (r *Renderer) Rows() int {
	return len(r.ds.Sweeps)
}

// RowBounds returns the vertical extent [y0, y1) of row i. The row reaches down to
// the next sweep; the last row repeats the height of the one before it.
func (r *Renderer) RowBounds(i int) (y0, y1 int) {
	sweeps := r.ds.Sweeps
	y0 = r.scales.Y.Round(sweeps[i].Timestamp)

	switch {
	case i+1 < len(sweeps):
		y1 = r.scales.Y.Round(sweeps[i+1].Timestamp)
	case i > 0:
		y1 = y0 + (y0 - r.scales.Y.Round(sweeps[i-1].Timestamp))
	default:
		y1 = r.scales.Y.Round(r.ds.TimeRange.Max)
	}
	return y0, y1
}

// CellBounds returns the horizontal extent [x0, x1) of the cell starting at freq.
func (r *Renderer) CellBounds(freq float64) (x0, x1 int) {
	x0 = r.scales.X.Round(freq)
	x1 = r.scales.X.Round(freq + r.ds.FreqStep)
	return x0, x1
}

// PaintRow paints sweep i onto s.
func (r *Renderer) PaintRow(s *Surface, i int) {
	y0, y1 := r.RowBounds(i)

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, sample := range r.ds.Sweeps[i].Samples {
		x0, x1 := r.CellBounds(sample.Frequency)
		s.fill(image.Rect(x0, y0, x1, y1), r.scales.Color.Color(sample.Power))
	}
}

// RenderSync paints every row onto s before returning.
func (r *Renderer) RenderSync(s *Surface) error {
	if r == nil {
		return spectrum.NewPreconditionError("rendering without a renderer")
	}
	if s == nil {
		return spectrum.NewPreconditionError("rendering without a surface")
	}

	for i := range r.ds.Sweeps {
		r.PaintRow(s, i)
	}
	return nil
}

// Start begins a progressive pass painting one row per scheduler frame in
// ascending time order. onDone, if not nil, runs on the pass goroutine once the
// pass ends: with a snapshot of the surface when the pass completed and snapshots
// are enabled, or with the error that stopped it. onDone must not wait on the
// returned task.
func (r *Renderer) Start(ctx context.Context, s *Surface, onDone func(*Bitmap, error)) (*Task, error) {
	if r == nil {
		return nil, spectrum.NewPreconditionError("rendering without a renderer")
	}
	if s == nil {
		return nil, spectrum.NewPreconditionError("rendering without a surface")
	}

	ctx, cancel := context.WithCancel(ctx)
	task := newTask(cancel)

	go func() {
		defer close(task.done)
		defer cancel()

		startedAt := time.Now()
		next := 0

		err := r.scheduler.Run(ctx, func() bool {
			r.PaintRow(s, next)
			next++
			task.painted.Store(int64(next))
			return next < len(r.ds.Sweeps)
		})

		var bmp *Bitmap
		if err != nil {
			r.logger.Debug("render pass stopped",
				slog.Int("painted", next),
				slog.Int("rows", len(r.ds.Sweeps)),
				slog.Any("reason", err),
			)
			err = fmt.Errorf("rendering rows: %w", err)
		} else {
			r.logger.Debug("render pass complete",
				slog.Int("rows", next),
				slog.Duration("elapsed", time.Since(startedAt)),
			)
			if r.snapshot {
				bmp = s.Snapshot()
			}
		}

		task.err = err
		if onDone != nil {
			onDone(bmp, err)
		}
	}()

	return task, nil
}
