package app

import (
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"os"

	"github.com/roman-kulish/waterfall/internal/config"
)

// writeImage encodes img into the file at path.
func writeImage(path string, img image.Image, format config.ImageFormat, quality int) (err error) {
	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating output file: %w", err)
	}
	defer func() {
		if cErr := out.Close(); cErr != nil && err == nil {
			err = cErr
		}
	}()

	switch format {
	case config.ImagePNG:
		err = png.Encode(out, img)
	case config.ImageJPEG:
		err = jpeg.Encode(out, img, &jpeg.Options{
			Quality: quality,
		})
	default:
		err = fmt.Errorf("invalid image format: %s", format)
	}
	if err != nil {
		return fmt.Errorf("encoding %s: %w", format, err)
	}
	return nil
}
