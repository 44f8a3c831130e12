package render

import (
	"image"
	"image/color"
	"sync"

	"golang.org/x/image/draw"
)

// Surface is the drawing target shared by the render pass and the viewport
// compositor. Every write goes through the surface lock, so a composite never
// observes a half painted row.
type Surface struct {
	mu  sync.Mutex
	img *image.RGBA
}

// NewSurface allocates a transparent surface covering bounds.
func NewSurface(bounds image.Rectangle) *Surface {
	return &Surface{img: image.NewRGBA(bounds)}
}

func (s *Surface) Bounds() image.Rectangle {
	return s.img.Bounds()
}

// FillRect paints r with a solid color. The rectangle is clipped to the surface.
func (s *Surface) FillRect(r image.Rectangle, c color.Color) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.fill(r, c)
}

func (s *Surface) fill(r image.Rectangle, c color.Color) {
	r = r.Intersect(s.img.Bounds())
	if r.Empty() {
		return
	}
	draw.Draw(s.img, r, image.NewUniform(c), image.Point{}, draw.Src)
}

// Clear resets every pixel to transparent.
func (s *Surface) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	clear(s.img.Pix)
}

// Draw hands the underlying image to fn while holding the surface lock.
func (s *Surface) Draw(fn func(dst draw.Image)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	fn(s.img)
}

// Snapshot copies the current surface content into an immutable bitmap.
func (s *Surface) Snapshot() *Bitmap {
	s.mu.Lock()
	defer s.mu.Unlock()

	img := image.NewRGBA(s.img.Bounds())
	copy(img.Pix, s.img.Pix)
	return &Bitmap{img: img}
}

// At returns the color of a single pixel.
func (s *Surface) At(x, y int) color.RGBA {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.img.RGBAAt(x, y)
}

// Bitmap is a read-only raster captured from a Surface after a completed pass.
type Bitmap struct {
	img *image.RGBA
}

// Image exposes the bitmap as a read-only image.
func (b *Bitmap) Image() image.Image {
	return b.img
}

func (b *Bitmap) Bounds() image.Rectangle {
	return b.img.Bounds()
}

func (b *Bitmap) At(x, y int) color.RGBA {
	return b.img.RGBAAt(x, y)
}
