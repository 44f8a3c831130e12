// Package config loads render profiles: the YAML files that fix the options,
// theme, geometry and output settings of a waterfall render.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roman-kulish/waterfall/internal/scale"
	"github.com/roman-kulish/waterfall/internal/viewport"
	"github.com/roman-kulish/waterfall/internal/waterfall"
)

const (
	ImagePNG  ImageFormat = "png"
	ImageJPEG ImageFormat = "jpeg"

	defaultJPEGQuality = 98
	defaultTimeFormat  = "15:04:05"
)

type ImageFormat string

var validImageFormats = map[ImageFormat]struct{}{
	ImagePNG:  {},
	ImageJPEG: {},
}

// Profile represents a render profile
type Profile struct {
	Settings Settings      `yaml:"settings"`
	Render   RenderConfig  `yaml:"render"`
	Output   OutputConfig  `yaml:"output"`
	View     *ViewConfig   `yaml:"view"`
	Sources  SourcesConfig `yaml:"sources"`
}

// Settings represents global application settings
type Settings struct {
	LogLevel string `yaml:"logLevel"`
}

// RenderConfig maps onto waterfall.Options
type RenderConfig struct {
	Animated      bool     `yaml:"animated"`
	Selectable    bool     `yaml:"selectable"`
	Zoomable      bool     `yaml:"zoomable"`
	FrameInterval Duration `yaml:"frameInterval"` // Defaults to one frame at 60 fps
	Theme         string   `yaml:"theme"`
	Width         int      `yaml:"width"`
	Height        int      `yaml:"height"`
}

// OutputConfig represents exported image settings
type OutputConfig struct {
	Format     ImageFormat `yaml:"format"`
	Quality    int         `yaml:"quality"`    // JPEG only
	Axes       bool        `yaml:"axes"`       // Frequency and time scales around the plot
	InfoBar    bool        `yaml:"infoBar"`    // Band and time span summary below the plot
	Overlay    bool        `yaml:"overlay"`    // Annotation rectangles and labels
	TimeZone   string      `yaml:"timeZone"`   // IANA name, defaults to local time
	TimeFormat string      `yaml:"timeFormat"` // Go layout for time tick labels
}

// ViewConfig is a pan and zoom applied to the completed render
type ViewConfig struct {
	X float64 `yaml:"x"`
	Y float64 `yaml:"y"`
	K float64 `yaml:"k"`
}

// SourcesConfig names default payload locations, each a file path or URL
type SourcesConfig struct {
	Sweeps      string `yaml:"sweeps"`
	Annotations string `yaml:"annotations"`
}

// Default returns the profile used when no file is given.
func Default() *Profile {
	return &Profile{
		Settings: Settings{LogLevel: "info"},
		Render: RenderConfig{
			Theme:  string(scale.DefaultTheme),
			Width:  waterfall.DefaultWidth,
			Height: waterfall.DefaultHeight,
		},
		Output: OutputConfig{
			Format:     ImagePNG,
			Quality:    defaultJPEGQuality,
			Axes:       true,
			InfoBar:    true,
			Overlay:    true,
			TimeFormat: defaultTimeFormat,
		},
	}
}

// Load decodes a profile on top of the defaults. Unknown keys are rejected.
func Load(r io.Reader) (*Profile, error) {
	p := Default()

	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(p); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decoding profile: %w", err)
	}

	p.Output.Format = ImageFormat(strings.ToLower(string(p.Output.Format)))
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("validating profile: %w", err)
	}
	return p, nil
}

// LoadFile reads the profile at path.
func LoadFile(path string) (p *Profile, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening profile: %w", err)
	}
	defer func() {
		if cErr := f.Close(); cErr != nil && err == nil {
			err = cErr
		}
	}()

	return Load(f)
}

// Validate validates the profile
func (p *Profile) Validate() error {
	if p.Settings.LogLevel != "" {
		var lvl slog.Level
		if err := lvl.UnmarshalText([]byte(p.Settings.LogLevel)); err != nil {
			return fmt.Errorf("invalid log level %q: %w", p.Settings.LogLevel, err)
		}
	}
	if err := p.Render.FrameInterval.Validate(); err != nil {
		return fmt.Errorf("frameInterval: %w", err)
	}
	if _, err := p.Options(); err != nil {
		return err
	}
	if _, ok := validImageFormats[p.Output.Format]; !ok {
		return fmt.Errorf("invalid image format: %s", p.Output.Format)
	}
	if p.Output.Format == ImageJPEG && (p.Output.Quality < 1 || p.Output.Quality > 100) {
		return fmt.Errorf("jpeg quality must be within [1, 100]: %d given", p.Output.Quality)
	}
	if _, err := p.Location(); err != nil {
		return err
	}
	if p.View != nil && !p.View.Transform().Valid() {
		return fmt.Errorf("view scale must be positive: %g given", p.View.K)
	}
	return nil
}

// Options converts the render section into context options.
func (p *Profile) Options() (waterfall.Options, error) {
	theme, err := scale.ParseTheme(p.Render.Theme)
	if err != nil {
		return waterfall.Options{}, err
	}

	opts := waterfall.Options{
		Animated:      p.Render.Animated,
		Selectable:    p.Render.Selectable,
		Zoomable:      p.Render.Zoomable || p.View != nil,
		FrameInterval: p.Render.FrameInterval.Duration(),
		Theme:         theme,
		Width:         p.Render.Width,
		Height:        p.Render.Height,
	}
	if err = opts.Validate(); err != nil {
		return waterfall.Options{}, err
	}
	return opts, nil
}

// Location resolves the output time zone.
func (p *Profile) Location() (*time.Location, error) {
	if p.Output.TimeZone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(p.Output.TimeZone)
	if err != nil {
		return nil, fmt.Errorf("loading time zone: %w", err)
	}
	return loc, nil
}

// Transform returns the view as a viewport transform.
func (v *ViewConfig) Transform() viewport.Transform {
	return viewport.Transform{X: v.X, Y: v.Y, K: v.K}
}
