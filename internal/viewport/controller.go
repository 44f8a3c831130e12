package viewport

import (
	"image"
	"io"
	"log/slog"
	"sync"

	"golang.org/x/image/draw"

	"github.com/roman-kulish/waterfall/internal/render"
	"github.com/roman-kulish/waterfall/internal/scale"
)

// Axes are the position scales seen through the current view transform. They are
// only meant for tick labelling.
type Axes struct {
	X scale.Linear
	Y scale.Time
}

// WithLogger sets the logger for the controller
func WithLogger(logger *slog.Logger) func(c *Controller) {
	return func(c *Controller) {
		c.logger = logger
	}
}

// WithZoom enables pan and zoom gestures
func WithZoom(enabled bool) func(c *Controller) {
	return func(c *Controller) {
		c.zoomable = enabled
	}
}

// WithOverlay attaches an annotation overlay that follows the view transform
func WithOverlay(o *Overlay) func(c *Controller) {
	return func(c *Controller) {
		c.overlay = o
	}
}

// Controller keeps the view transform and the cached bitmap of the last completed
// pass, and answers gestures by compositing that bitmap onto the surface.
type Controller struct {
	mu sync.Mutex

	surface   *render.Surface
	scales    *scale.Set
	overlay   *Overlay
	bitmap    *render.Bitmap
	transform Transform
	axes      Axes

	zoomable bool
	logger   *slog.Logger
}

// NewController creates a controller over surface with zoom disabled.
func NewController(surface *render.Surface, scales *scale.Set, options ...func(c *Controller)) *Controller {
	c := Controller{
		surface:   surface,
		scales:    scales,
		transform: Identity,
		axes:      Axes{X: scales.X, Y: scales.Y},
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	for _, option := range options {
		option(&c)
	}

	return &c
}

// Zoom applies the gesture transform t. It reports false and leaves the surface
// untouched when zoom is disabled, t cannot be inverted, or no completed pass has
// been cached yet.
func (c *Controller) Zoom(t Transform) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.zoomable || c.bitmap == nil || !t.Valid() {
		c.logger.Debug("zoom ignored",
			slog.Bool("zoomable", c.zoomable),
			slog.Bool("cached", c.bitmap != nil),
			slog.String("transform", t.String()),
		)
		return false
	}

	c.transform = t

	x, y := c.scales.Rescale(t.X, t.Y, t.K)
	c.axes = Axes{X: x, Y: y}

	if c.overlay != nil {
		c.overlay.SetTransform(t)
	}

	bmp := c.bitmap
	c.surface.Draw(func(dst draw.Image) {
		draw.Draw(dst, dst.Bounds(), image.Transparent, image.Point{}, draw.Src)
		draw.NearestNeighbor.Transform(dst, t.Aff3(), bmp.Image(), bmp.Bounds(), draw.Src, nil)
	})

	return true
}

// SetBitmap arms the controller with the snapshot of a completed pass.
func (c *Controller) SetBitmap(b *render.Bitmap) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.bitmap = b
}

// Invalidate drops the cached bitmap and resets the view, as required before a
// full re-render. The controller stays disarmed until the next SetBitmap.
func (c *Controller) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.bitmap = nil
	c.transform = Identity
	c.axes = Axes{X: c.scales.X, Y: c.scales.Y}
	if c.overlay != nil {
		c.overlay.SetTransform(Identity)
	}
}

// HasBitmap reports whether a cached bitmap is available.
func (c *Controller) HasBitmap() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.bitmap != nil
}

func (c *Controller) Transform() Transform {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.transform
}

func (c *Controller) Axes() Axes {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.axes
}

func (c *Controller) Overlay() *Overlay {
	return c.overlay
}
