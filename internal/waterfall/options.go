package waterfall

import (
	"fmt"
	"time"

	"github.com/roman-kulish/waterfall/internal/scale"
)

const (
	DefaultWidth  = 1024
	DefaultHeight = 768
)

// Options configure a render context.
type Options struct {
	Animated   bool // Draw progressively, one sweep per frame
	Selectable bool // Expose the color-map palette to a chooser
	Zoomable   bool // Cache completed passes and accept pan and zoom

	FrameInterval time.Duration // Time between frames of an animated pass
	Theme         scale.ColorTheme
	Width         int
	Height        int
}

// withDefaults fills zero values.
func (o Options) withDefaults() Options {
	if o.Theme == "" {
		o.Theme = scale.DefaultTheme
	}
	if o.Width == 0 {
		o.Width = DefaultWidth
	}
	if o.Height == 0 {
		o.Height = DefaultHeight
	}
	return o
}

// Validate validates the options
func (o Options) Validate() error {
	if o.Width < 0 || o.Height < 0 {
		return fmt.Errorf("invalid geometry %dx%d", o.Width, o.Height)
	}
	if o.FrameInterval < 0 {
		return fmt.Errorf("negative frame interval %s", o.FrameInterval)
	}
	if o.Theme != "" {
		if _, err := scale.ParseTheme(string(o.Theme)); err != nil {
			return err
		}
	}
	return nil
}
