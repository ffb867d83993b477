package floorplan

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"  // register GIF decoder
	_ "image/jpeg" // register JPEG decoder
	_ "image/png"  // register PNG decoder
	"os"
)

// DecodeError reports an image that could not be decoded. Decode failures
// are caller-visible bugs and never produce fallback rooms.
type DecodeError struct {
	Source string
	Err    error
}

func (e *DecodeError) Error() string {
	if e.Source != "" {
		return fmt.Sprintf("decoding image %s: %v", e.Source, e.Err)
	}
	return fmt.Sprintf("decoding image: %v", e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// DecodeImage decodes raster bytes into an image. PNG, JPEG, and GIF are
// supported.
func DecodeImage(data []byte) (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, &DecodeError{Err: err}
	}
	return img, nil
}

// DecodeImageFile loads and decodes a raster image from disk.
func DecodeImageFile(path string) (image.Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &DecodeError{Source: path, Err: err}
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, &DecodeError{Source: path, Err: err}
	}
	return img, nil
}

// OrientationOf classifies an image's aspect by its pixel dimensions.
// Square images count as landscape.
func OrientationOf(width, height int) Orientation {
	if height > width {
		return Portrait
	}
	return Landscape
}
