package thumbnail

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pngBytes(t *testing.T, width, height int) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for x := 0; x < width; x++ {
		for y := 0; y < height; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestFromImageBytesScalesDown(t *testing.T) {
	t.Parallel()

	data, err := FromImageBytes(pngBytes(t, 600, 900))
	require.NoError(t, err)

	img, err := jpeg.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 300, img.Bounds().Dx())
	assert.Equal(t, 450, img.Bounds().Dy())
}

func TestFromImageBytesPreservesAspectRatio(t *testing.T) {
	t.Parallel()

	// A wide image is bounded by width, not height.
	data, err := FromImageBytes(pngBytes(t, 1200, 600))
	require.NoError(t, err)

	img, err := jpeg.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 300, img.Bounds().Dx())
	assert.Equal(t, 150, img.Bounds().Dy())
}

func TestFromImageBytesSmallImageNotUpscaled(t *testing.T) {
	t.Parallel()

	data, err := FromImageBytes(pngBytes(t, 100, 150))
	require.NoError(t, err)

	img, err := jpeg.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 100, img.Bounds().Dx())
	assert.Equal(t, 150, img.Bounds().Dy())
}

func TestFromImageBytesRejectsGarbage(t *testing.T) {
	t.Parallel()

	_, err := FromImageBytes([]byte("not an image"))
	assert.Error(t, err)
}
