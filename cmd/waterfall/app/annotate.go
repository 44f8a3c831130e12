package app

import (
	"fmt"
	"image"
	"image/color"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/golang/freetype"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gomono"

	"github.com/roman-kulish/waterfall/internal/viewport"
	"github.com/roman-kulish/waterfall/internal/waterfall"
)

const (
	dpi             = 72.0
	fontSize        = 12.0
	tickMarkHeight  = 5
	pixelsPerXLabel = 150
	pixelsPerYLabel = 100
	labelPadding    = 3

	// Default border sizes in pixels
	defaultTopBorder    = 30
	defaultLeftBorder   = 80
	defaultBottomBorder = 30
	defaultRightBorder  = 40

	defaultDatetimeFormat = time.DateTime
)

var (
	overlayFill  = color.NRGBA{R: 0xff, G: 0xff, B: 0xff, A: 0x30}
	overlayEdge  = color.NRGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xc0}
	overlayLabel = image.NewUniform(color.White)
)

// borders defines the sizes of white space around the plot
type borders struct {
	Top    int // Space for frequency scale
	Left   int // Space for time scale
	Bottom int // Space for information bar
	Right  int // Right padding
}

type annotatorConfig struct {
	TimeFormat string
	Location   *time.Location
	Axes       bool
	InfoBar    bool
	Overlay    bool
}

// annotator composes the exported image: the rendered surface framed by scales,
// the annotation overlay and an information bar.
type annotator struct {
	context  *freetype.Context
	config   annotatorConfig
	borders  borders
	fontFace font.Face
}

func newAnnotator(config annotatorConfig) (*annotator, error) {
	parsedFont, err := freetype.ParseFont(gomono.TTF)
	if err != nil {
		return nil, fmt.Errorf("parsing font: %w", err)
	}

	if config.Location == nil {
		config.Location = time.Local
	}

	ctx := freetype.NewContext()
	ctx.SetDPI(dpi)
	ctx.SetFont(parsedFont)
	ctx.SetFontSize(fontSize)
	ctx.SetHinting(font.HintingNone)
	ctx.SetSrc(image.Black)

	var b borders
	if config.Axes {
		b.Top, b.Left = defaultTopBorder, defaultLeftBorder
	}
	if config.InfoBar {
		b.Bottom = defaultBottomBorder
	}
	if config.Axes || config.InfoBar {
		b.Right = defaultRightBorder
	}

	return &annotator{
		context: ctx,
		config:  config,
		borders: b,
		fontFace: truetype.NewFace(parsedFont, &truetype.Options{
			Size:    fontSize,
			DPI:     dpi,
			Hinting: font.HintingNone,
		}),
	}, nil
}

func (a *annotator) Close() error {
	if a.fontFace != nil {
		return a.fontFace.Close()
	}
	return nil
}

// compose copies the current surface of wc into a new image and draws the
// enabled decorations around and over it.
func (a *annotator) compose(wc *waterfall.Context) (*image.RGBA, error) {
	surface := wc.Surface()
	plot := surface.Bounds()

	full := image.Rect(0, 0,
		plot.Dx()+a.borders.Left+a.borders.Right,
		plot.Dy()+a.borders.Top+a.borders.Bottom,
	)
	img := image.NewRGBA(full)
	draw.Draw(img, full, image.White, image.Point{}, draw.Src)

	area := plot.Sub(plot.Min).Add(image.Pt(a.borders.Left, a.borders.Top))
	surface.Draw(func(src draw.Image) {
		draw.Draw(img, area, src, plot.Min, draw.Over)
	})

	a.context.SetClip(full)
	a.context.SetDst(img)

	ops := []struct {
		msg     string
		enabled bool
		fn      func(*image.RGBA, image.Rectangle, *waterfall.Context) error
	}{
		{"drawing overlay", a.config.Overlay, a.drawOverlay},
		{"drawing frequency scale", a.config.Axes, a.drawFrequencyScale},
		{"drawing time scale", a.config.Axes, a.drawTimeScale},
		{"drawing info bar", a.config.InfoBar, a.drawInfoBar},
	}
	for _, op := range ops {
		if !op.enabled {
			continue
		}
		if err := op.fn(img, area, wc); err != nil {
			return nil, fmt.Errorf("%s: %w", op.msg, err)
		}
	}

	return img, nil
}

// drawOverlay shades the annotated bands, widest first, and labels the ones wide
// enough to hold their description.
func (a *annotator) drawOverlay(img *image.RGBA, area image.Rectangle, wc *waterfall.Context) error {
	overlay := wc.Overlay()
	if overlay == nil {
		return nil
	}

	metrics := a.fontFace.Metrics()

	a.context.SetClip(area)
	a.context.SetSrc(overlayLabel)
	defer func() {
		a.context.SetClip(img.Bounds())
		a.context.SetSrc(image.Black)
	}()

	for _, r := range overlay.Regions() {
		rect := overlay.ScreenRect(r).Add(area.Min).Intersect(area)
		if rect.Empty() {
			continue
		}

		draw.Draw(img, rect, image.NewUniform(overlayFill), image.Point{}, draw.Over)
		a.drawEdges(img, rect)

		label := r.Annotation.Description
		if label == "" {
			continue
		}
		if width := font.MeasureString(a.fontFace, label).Ceil(); width+2*labelPadding > rect.Dx() {
			continue
		}

		pt := freetype.Pt(rect.Min.X+labelPadding, rect.Min.Y+labelPadding+metrics.Ascent.Ceil())
		if _, err := a.context.DrawString(label, pt); err != nil {
			return fmt.Errorf("drawing label %q: %w", label, err)
		}
	}
	return nil
}

func (a *annotator) drawEdges(img *image.RGBA, rect image.Rectangle) {
	edge := image.NewUniform(overlayEdge)
	draw.Draw(img, image.Rect(rect.Min.X, rect.Min.Y, rect.Min.X+1, rect.Max.Y), edge, image.Point{}, draw.Over)
	if rect.Dx() > 1 {
		draw.Draw(img, image.Rect(rect.Max.X-1, rect.Min.Y, rect.Max.X, rect.Max.Y), edge, image.Point{}, draw.Over)
	}
}

func (a *annotator) drawFrequencyScale(img *image.RGBA, area image.Rectangle, wc *waterfall.Context) error {
	axes := wc.Axes()
	textY := area.Min.Y - tickMarkHeight - labelPadding

	for _, freq := range axes.X.Ticks(max(2, area.Dx()/pixelsPerXLabel)) {
		x := area.Min.X + axes.X.Round(freq)
		if x < area.Min.X || x >= area.Max.X {
			continue
		}

		// Draw tick mark
		for y := area.Min.Y - tickMarkHeight; y < area.Min.Y; y++ {
			img.Set(x, y, color.Black)
		}

		label := humanHz(freq)
		width := font.MeasureString(a.fontFace, label)
		pt := freetype.Pt(x-width.Round()/2, textY)
		if _, err := a.context.DrawString(label, pt); err != nil {
			return fmt.Errorf("drawing frequency label: %w", err)
		}
	}
	return nil
}

func (a *annotator) drawTimeScale(img *image.RGBA, area image.Rectangle, wc *waterfall.Context) error {
	axes := wc.Axes()

	metrics := a.fontFace.Metrics()
	fontHeight := (metrics.Ascent + metrics.Descent).Round()

	for _, t := range axes.Y.Ticks(max(2, area.Dy()/pixelsPerYLabel)) {
		y := area.Min.Y + axes.Y.Round(t)
		if y < area.Min.Y || y >= area.Max.Y {
			continue
		}

		// Draw tick mark
		for x := area.Min.X - tickMarkHeight; x < area.Min.X; x++ {
			img.Set(x, y, color.Black)
		}

		// Center text vertically relative to the tick mark position
		textY := y + fontHeight/2 - metrics.Descent.Round()

		label := t.In(a.config.Location).Format(a.config.TimeFormat)
		width := font.MeasureString(a.fontFace, label)
		pt := freetype.Pt(area.Min.X-tickMarkHeight-labelPadding-width.Round(), textY)
		if _, err := a.context.DrawString(label, pt); err != nil {
			return fmt.Errorf("drawing time label: %w", err)
		}
	}
	return nil
}

func (a *annotator) drawInfoBar(img *image.RGBA, area image.Rectangle, wc *waterfall.Context) error {
	axes := wc.Axes()
	freqMin, freqMax := min(axes.X.Domain[0], axes.X.Domain[1]), max(axes.X.Domain[0], axes.X.Domain[1])
	span := axes.Y.Domain()

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Freq: %s - %s", humanHz(freqMin), humanHz(freqMax)))
	sb.WriteString("; ")
	sb.WriteString(fmt.Sprintf("Time: %s - %s",
		span.Min.In(a.config.Location).Format(defaultDatetimeFormat),
		span.Max.In(a.config.Location).Format(defaultDatetimeFormat)))

	sb.WriteString("; ")
	sb.WriteString(fmt.Sprintf("1px = %s", humanHz((freqMax-freqMin)/float64(area.Dx()))))

	sb.WriteString("; ")
	sb.WriteString(wc.Options().Theme.String())

	if t := wc.Overlay().Transform(); t != viewport.Identity {
		sb.WriteString("; view ")
		sb.WriteString(t.String())
	}

	metrics := a.fontFace.Metrics()
	fontHeight := (metrics.Ascent + metrics.Descent).Round()

	// Center text vertically in bottom border
	textY := img.Bounds().Max.Y - (a.borders.Bottom-fontHeight)/2 - metrics.Descent.Round()

	pt := freetype.Pt(area.Min.X, textY)
	if _, err := a.context.DrawString(sb.String(), pt); err != nil {
		return fmt.Errorf("drawing info text: %w", err)
	}
	return nil
}

func humanHz(hz float64) string {
	return humanize.SIWithDigits(hz, 2, "Hz")
}
