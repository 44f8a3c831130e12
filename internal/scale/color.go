package scale

import (
	"fmt"
	"image/color"
	"math"
	"strings"

	"github.com/lucasb-eyer/go-colorful"

	"github.com/roman-kulish/waterfall/internal/spectrum"
)

// ColorTheme names a sequential interpolator for power visualization.
type ColorTheme string

const (
	ClassicTheme   ColorTheme = "classic"   // Blue to red transition
	EnhancedTheme  ColorTheme = "enhanced"  // Black to blue to cyan to yellow to red
	GrayscaleTheme ColorTheme = "grayscale" // Black to white transition
	JungleTheme    ColorTheme = "jungle"    // Dark green to yellow transition
	ThermalTheme   ColorTheme = "thermal"   // Black to red to yellow to white
	MarineTheme    ColorTheme = "marine"    // Deep blue to cyan to white
	ViridisTheme   ColorTheme = "viridis"   // Purple to teal to yellow
	InfernoTheme   ColorTheme = "inferno"   // Black to purple to orange to pale yellow

	DefaultTheme = EnhancedTheme

	DefaultColorMapSize = 256 // Number of pre-computed colors
)

// palette is the fixed, ordered list of selectable themes.
var palette = []ColorTheme{
	ClassicTheme,
	EnhancedTheme,
	GrayscaleTheme,
	JungleTheme,
	ThermalTheme,
	MarineTheme,
	ViridisTheme,
	InfernoTheme,
}

func (t ColorTheme) String() string {
	return string(t)
}

// Themes returns the selectable themes in palette order.
func Themes() []ColorTheme {
	out := make([]ColorTheme, len(palette))
	copy(out, palette)
	return out
}

// ParseTheme resolves a theme by name, case-insensitively.
func ParseTheme(name string) (ColorTheme, error) {
	for _, t := range palette {
		if strings.EqualFold(name, string(t)) {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown color theme: %q", name)
}

// ColorMap maps power in dB onto a color using a pre-computed lookup table over a
// fixed power range.
type ColorMap struct {
	theme         ColorTheme
	colorMap      []color.RGBA // Pre-computed colors
	bounds        spectrum.Range[float64]
	powerPerIndex float64 // Power range per index step
}

// NewColorMap creates a color map for the theme over the power bounds.
func NewColorMap(theme ColorTheme, bounds spectrum.Range[float64]) (*ColorMap, error) {
	interpolate, err := interpolator(theme)
	if err != nil {
		return nil, err
	}

	cm := &ColorMap{
		theme:         theme,
		colorMap:      make([]color.RGBA, DefaultColorMapSize),
		bounds:        bounds,
		powerPerIndex: (bounds.Max - bounds.Min) / float64(DefaultColorMapSize-1),
	}

	for i := range cm.colorMap {
		cm.colorMap[i] = interpolate(float64(i) / float64(DefaultColorMapSize-1))
	}

	return cm, nil
}

// Theme returns the theme the map was built from.
func (cm *ColorMap) Theme() ColorTheme {
	return cm.theme
}

// Bounds returns the power range covered by the map.
func (cm *ColorMap) Bounds() spectrum.Range[float64] {
	return cm.bounds
}

// Color returns the color for a power value. Values outside the bounds are
// clamped to the first or last color.
func (cm *ColorMap) Color(power float64) color.RGBA {
	size := len(cm.colorMap)
	if cm.powerPerIndex <= 0 || math.IsNaN(power) {
		return cm.colorMap[size/2]
	}

	switch {
	case power <= cm.bounds.Min:
		return cm.colorMap[0]
	case power >= cm.bounds.Max:
		return cm.colorMap[size-1]
	}

	index := int((power - cm.bounds.Min) / cm.powerPerIndex)
	if index >= size {
		index = size - 1
	}
	return cm.colorMap[index]
}

// At returns the color at normalized position t in [0, 1], as used by legends.
func (cm *ColorMap) At(t float64) color.RGBA {
	t = math.Max(0, math.Min(1, t))
	return cm.colorMap[int(math.Round(t*float64(len(cm.colorMap)-1)))]
}

func hsv(h, s, v float64) color.RGBA {
	c := colorful.Hsv(h, math.Max(0, math.Min(1, s)), math.Max(0, math.Min(1, v)))
	r, g, b := c.Clamped().RGB255()
	return color.RGBA{R: r, G: g, B: b, A: 0xff}
}

func gray(v float64) color.RGBA {
	g := uint8(math.Round(math.Max(0, math.Min(1, v)) * 255))
	return color.RGBA{R: g, G: g, B: g, A: 0xff}
}

// gradient interpolates evenly spaced stops in CIE L*a*b* space.
func gradient(stops ...string) func(float64) color.RGBA {
	colors := make([]colorful.Color, len(stops))
	for i, hex := range stops {
		c, err := colorful.Hex(hex)
		if err != nil {
			panic(fmt.Sprintf("invalid gradient stop %q: %s", hex, err))
		}
		colors[i] = c
	}

	return func(t float64) color.RGBA {
		t = math.Max(0, math.Min(1, t))
		pos := t * float64(len(colors)-1)
		i := int(math.Floor(pos))
		if i >= len(colors)-1 {
			i = len(colors) - 2
		}

		c := colors[i].BlendLab(colors[i+1], pos-float64(i)).Clamped()
		r, g, b := c.RGB255()
		return color.RGBA{R: r, G: g, B: b, A: 0xff}
	}
}

var (
	viridis = gradient("#440154", "#482878", "#3e4989", "#31688e", "#26828e", "#1f9e89", "#35b779", "#6ece58", "#b5de2b", "#fde725")
	inferno = gradient("#000004", "#1b0c41", "#4a0c6b", "#781c6d", "#a52c60", "#cf4446", "#ed6925", "#fb9b06", "#f7d13d", "#fcffa4")
)

// interpolator returns the normalized [0, 1] to color function of a theme.
func interpolator(theme ColorTheme) (func(float64) color.RGBA, error) {
	switch theme {
	case ClassicTheme:
		return func(power float64) color.RGBA {
			return hsv(240-(power*240), 0.9+(power*0.1), math.Pow(power, 0.7))
		}, nil

	case EnhancedTheme:
		return enhanced, nil

	case GrayscaleTheme:
		return func(power float64) color.RGBA {
			return gray(math.Pow(power, 0.7))
		}, nil

	case JungleTheme:
		return func(power float64) color.RGBA {
			return hsv(120-(power*60), 1.0, 0.3+(math.Pow(power, 0.6)*0.7))
		}, nil

	case ThermalTheme:
		return func(power float64) color.RGBA {
			switch {
			case power < 0.33:
				return color.RGBA{R: uint8(math.Min(1, power*3) * 255), A: 0xff}
			case power < 0.66:
				return color.RGBA{R: 255, G: uint8(math.Min(1, (power-0.33)*3) * 255), A: 0xff}
			}
			return color.RGBA{R: 255, G: 255, B: uint8(math.Min(1, (power-0.66)*3) * 255), A: 0xff}
		}, nil

	case MarineTheme:
		return func(power float64) color.RGBA {
			return hsv(240-(power*60), 1.0-(power*0.8), 0.3+(math.Pow(power, 0.6)*0.7))
		}, nil

	case ViridisTheme:
		return viridis, nil

	case InfernoTheme:
		return inferno, nil
	}

	return nil, fmt.Errorf("unknown color theme: %q", theme)
}

// enhanced provides better differentiation in the lower power ranges.
func enhanced(power float64) color.RGBA {
	power = math.Max(0, math.Min(1, power))
	enhancedPower := math.Pow(power, 0.7)

	switch {
	case power < 0.25: // Black -> Blue
		return hsv(240, 1.0, enhancedPower*4)
	case power < 0.5: // Blue -> Cyan
		return hsv(240-((power-0.25)*240), 1.0, enhancedPower*1.5)
	case power < 0.75: // Cyan -> Yellow
		p := (power - 0.5) * 4
		return hsv(180-(p*120), 1.0, enhancedPower*1.5)
	default: // Yellow -> Red
		p := (power - 0.75) * 4
		return hsv(60-(p*60), 1.0, 1.0)
	}
}
