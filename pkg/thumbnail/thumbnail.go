// Package thumbnail normalizes cover images for storage: fit inside 300x450
// and re-encode as JPEG.
package thumbnail

import (
	"bytes"
	"image"
	"image/jpeg"

	_ "image/gif"
	_ "image/png"

	"github.com/pkg/errors"
	"golang.org/x/image/draw"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

const (
	maxWidth    = 300
	maxHeight   = 450
	jpegQuality = 80
)

// FromImageBytes decodes any supported page image and returns it resized to
// fit 300x450, JPEG-encoded. Images already within bounds are re-encoded
// without scaling.
func FromImageBytes(data []byte) ([]byte, error) {
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, errors.Wrap(err, "decode cover image")
	}

	bounds := src.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if width == 0 || height == 0 {
		return nil, errors.New("cover image has no pixels")
	}

	scale := 1.0
	if sw := float64(maxWidth) / float64(width); sw < scale {
		scale = sw
	}
	if sh := float64(maxHeight) / float64(height); sh < scale {
		scale = sh
	}

	out := src
	if scale < 1.0 {
		dst := image.NewRGBA(image.Rect(0, 0, int(float64(width)*scale), int(float64(height)*scale)))
		draw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, draw.Over, nil)
		out = dst
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, out, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, errors.Wrap(err, "encode thumbnail")
	}

	return buf.Bytes(), nil
}
