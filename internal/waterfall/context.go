// Package waterfall ties the pipeline together: a dataset is loaded once, then an
// explicit Context owns the surface, scales, renderer and viewport built for it.
package waterfall

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"log/slog"
	"sync"

	"github.com/roman-kulish/waterfall/internal/annotation"
	"github.com/roman-kulish/waterfall/internal/render"
	"github.com/roman-kulish/waterfall/internal/scale"
	"github.com/roman-kulish/waterfall/internal/spectrum"
	"github.com/roman-kulish/waterfall/internal/viewport"
)

// WithLogger sets the logger for the context
func WithLogger(logger *slog.Logger) func(c *Context) {
	return func(c *Context) {
		c.logger = logger
	}
}

// WithAnnotations attaches annotations drawn by the overlay
func WithAnnotations(store *annotation.Store) func(c *Context) {
	return func(c *Context) {
		c.annotations = store
	}
}

// WithScheduler overrides the scheduler of animated passes
func WithScheduler(s render.Scheduler) func(c *Context) {
	return func(c *Context) {
		c.scheduler = s
	}
}

// Context is the rendering state of one dataset. Every operation goes through it;
// there is no package level state.
//
// At most one pass runs at a time. Starting a pass cancels the one in flight and
// waits for it to exit before the surface is cleared.
type Context struct {
	passMu sync.Mutex // Serializes pass restarts
	mu     sync.Mutex // Guards the fields below

	opts        Options
	ds          *spectrum.Dataset
	annotations *annotation.Store
	scheduler   render.Scheduler

	surface    *render.Surface
	scales     *scale.Set
	renderer   *render.Renderer
	overlay    *viewport.Overlay
	controller *viewport.Controller

	task       *render.Task
	generation uint64
	lastErr    error

	logger *slog.Logger
}

// Initialize builds a render context for ds and paints it. With Animated set the
// first pass is progressive and Initialize returns right away; use Wait to block
// until it completes.
func Initialize(ctx context.Context, ds *spectrum.Dataset, opts Options, options ...func(c *Context)) (*Context, error) {
	if ds == nil {
		return nil, spectrum.NewPreconditionError("initializing without a dataset")
	}
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("validating options: %w", err)
	}

	opts = opts.withDefaults()
	theme, err := scale.ParseTheme(string(opts.Theme))
	if err != nil {
		return nil, err
	}
	opts.Theme = theme

	c := Context{
		opts:   opts,
		ds:     ds,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	for _, option := range options {
		option(&c)
	}

	if c.scheduler == nil {
		c.scheduler = render.ImmediateScheduler{}
		if opts.Animated {
			c.scheduler = render.NewTickerScheduler(opts.FrameInterval)
		}
	}

	steps := []struct {
		msg string
		fn  func() error
	}{
		{"building scales", c.buildScales},
		{"building renderer", c.buildRenderer},
		{"rendering", func() error { return c.Render(ctx) }},
	}

	for _, step := range steps {
		if err = step.fn(); err != nil {
			return nil, fmt.Errorf("%s: %w", step.msg, err)
		}
	}

	c.logger.Info("render context initialized",
		slog.Int("sweeps", len(ds.Sweeps)),
		slog.Int("samples", ds.NumSamples()),
		slog.String("theme", opts.Theme.String()),
		slog.Bool("animated", opts.Animated),
		slog.Bool("zoomable", opts.Zoomable),
	)

	return &c, nil
}

// buildScales creates the surface, scales, overlay and viewport controller for
// the current geometry.
func (c *Context) buildScales() error {
	bounds := image.Rect(0, 0, c.opts.Width, c.opts.Height)

	scales, err := scale.NewSet(c.ds, bounds, c.opts.Theme)
	if err != nil {
		return err
	}

	c.surface = render.NewSurface(bounds)
	c.scales = scales
	c.overlay = viewport.NewOverlay(c.annotations, scales)
	c.controller = viewport.NewController(c.surface, scales,
		viewport.WithZoom(c.opts.Zoomable),
		viewport.WithOverlay(c.overlay),
		viewport.WithLogger(c.logger),
	)
	return nil
}

func (c *Context) buildRenderer() error {
	r, err := render.NewRenderer(c.ds, c.scales,
		render.WithScheduler(c.scheduler),
		render.WithSnapshot(c.opts.Zoomable),
		render.WithLogger(c.logger),
	)
	if err != nil {
		return err
	}

	c.renderer = r
	return nil
}

// Render cancels the pass in flight, clears the surface and paints the dataset
// again from the first sweep. The cached bitmap is dropped until the new pass
// completes.
func (c *Context) Render(ctx context.Context) error {
	c.passMu.Lock()
	defer c.passMu.Unlock()

	return c.restart(ctx, nil)
}

// restart runs under passMu. prepare, when set, mutates the context between
// cancelling the old pass and starting the new one.
func (c *Context) restart(ctx context.Context, prepare func() error) error {
	c.mu.Lock()
	task := c.task
	c.task = nil
	c.generation++
	c.mu.Unlock()

	// the old pass must exit before the surface is touched
	task.Cancel()

	c.mu.Lock()
	defer c.mu.Unlock()

	if prepare != nil {
		if err := prepare(); err != nil {
			return err
		}
	}

	c.controller.Invalidate()
	c.surface.Clear()
	c.lastErr = nil

	if !c.opts.Animated {
		if err := c.renderer.RenderSync(c.surface); err != nil {
			return err
		}
		if c.opts.Zoomable {
			c.controller.SetBitmap(c.surface.Snapshot())
		}
		return nil
	}

	gen := c.generation
	task, err := c.renderer.Start(ctx, c.surface, func(bmp *render.Bitmap, err error) {
		c.complete(gen, bmp, err)
	})
	if err != nil {
		return err
	}

	c.task = task
	return nil
}

// complete runs on the pass goroutine. Results of superseded passes are dropped.
func (c *Context) complete(gen uint64, bmp *render.Bitmap, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.generation {
		return
	}

	if err != nil {
		if !errors.Is(err, context.Canceled) {
			c.logger.Error("render pass failed", slog.Any("error", err))
		}
		c.lastErr = err
		return
	}

	if bmp != nil {
		c.controller.SetBitmap(bmp)
	}
}

// SetColorMap switches the power to color interpolator. The cached bitmap is
// invalidated and the dataset is painted again from the first sweep under the new
// map.
func (c *Context) SetColorMap(ctx context.Context, theme scale.ColorTheme) error {
	theme, err := scale.ParseTheme(string(theme))
	if err != nil {
		return err
	}

	cm, err := scale.NewColorMap(theme, c.ds.PowerRange)
	if err != nil {
		return fmt.Errorf("creating color map: %w", err)
	}

	c.passMu.Lock()
	defer c.passMu.Unlock()

	err = c.restart(ctx, func() error {
		c.opts.Theme = theme
		c.scales = c.scales.WithColorMap(cm)
		return c.buildRenderer()
	})
	if err != nil {
		return fmt.Errorf("applying color map %s: %w", theme, err)
	}

	c.logger.Debug("color map changed", slog.String("theme", theme.String()))
	return nil
}

// Resize rebuilds the scales for a new drawing area and paints the dataset again.
func (c *Context) Resize(ctx context.Context, width, height int) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("invalid geometry %dx%d", width, height)
	}

	c.passMu.Lock()
	defer c.passMu.Unlock()

	err := c.restart(ctx, func() error {
		c.opts.Width, c.opts.Height = width, height
		if err := c.buildScales(); err != nil {
			return err
		}
		return c.buildRenderer()
	})
	if err != nil {
		return fmt.Errorf("resizing to %dx%d: %w", width, height, err)
	}
	return nil
}

// Wait blocks until the current pass exits and returns its error.
func (c *Context) Wait() error {
	c.mu.Lock()
	task := c.task
	c.mu.Unlock()

	if err := task.Wait(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	return c.lastErr
}

// Progress returns the number of rows painted by the current pass.
func (c *Context) Progress() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.task == nil {
		return len(c.ds.Sweeps)
	}
	return c.task.Painted()
}

// Zoom applies a pan or zoom gesture. See viewport.Controller.Zoom.
func (c *Context) Zoom(t viewport.Transform) bool {
	c.mu.Lock()
	controller := c.controller
	c.mu.Unlock()

	return controller.Zoom(t)
}

// HitTest returns the annotation under the screen position (x, y).
func (c *Context) HitTest(x, y float64) (annotation.Annotation, bool) {
	c.mu.Lock()
	overlay := c.overlay
	c.mu.Unlock()

	return overlay.HitTest(x, y)
}

// Close cancels any pass in flight.
func (c *Context) Close() {
	c.passMu.Lock()
	defer c.passMu.Unlock()

	c.mu.Lock()
	task := c.task
	c.task = nil
	c.generation++
	c.mu.Unlock()

	task.Cancel()
}

// Palette returns the selectable color themes, or nil when the context was not
// configured as selectable.
func (c *Context) Palette() []scale.ColorTheme {
	if !c.opts.Selectable {
		return nil
	}
	return scale.Themes()
}

func (c *Context) Options() Options {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.opts
}

func (c *Context) Dataset() *spectrum.Dataset {
	return c.ds
}

func (c *Context) Annotations() *annotation.Store {
	return c.annotations
}

func (c *Context) Surface() *render.Surface {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.surface
}

func (c *Context) Scales() *scale.Set {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.scales
}

func (c *Context) Overlay() *viewport.Overlay {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.overlay
}

// Axes returns the position scales seen through the current view transform.
func (c *Context) Axes() viewport.Axes {
	c.mu.Lock()
	controller := c.controller
	c.mu.Unlock()

	return controller.Axes()
}
