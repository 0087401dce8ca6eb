package data

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func checkerboard(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: uint8(10 * x), G: uint8(20 * y), B: uint8(5 * (x + y)), A: 255})
		}
	}
	return img
}

func TestImageRoundTripRGB(t *testing.T) {
	src := checkerboard(6, 4)
	b, err := FromImage(src, 3)
	require.NoError(t, err)
	size, h, w, c := b.Shape()
	assert.Equal(t, []int{1, 4, 6, 3}, []int{size, h, w, c})
	assert.InDelta(t, 50.0, b.At(0, 0, 5, 0), 1)
	assert.InDelta(t, 60.0, b.At(0, 3, 0, 1), 1)

	out, err := ToImage(b, 0)
	require.NoError(t, err)
	for y := 0; y < 4; y++ {
		for x := 0; x < 6; x++ {
			want, got := src.NRGBAAt(x, y), out.NRGBAAt(x, y)
			assert.InDelta(t, want.R, got.R, 1)
			assert.InDelta(t, want.G, got.G, 1)
			assert.InDelta(t, want.B, got.B, 1)
			assert.Equal(t, uint8(255), got.A)
		}
	}
}

func TestFromImagesResizesAndStacks(t *testing.T) {
	b, err := FromImages([]image.Image{checkerboard(12, 8), checkerboard(3, 3)}, 5, 4, 1)
	require.NoError(t, err)
	size, h, w, c := b.Shape()
	assert.Equal(t, []int{2, 4, 5, 1}, []int{size, h, w, c})
	assert.GreaterOrEqual(t, b.Min(), 0.0)
	assert.LessOrEqual(t, b.Max(), 255.0)
}

func TestFromImagesErrors(t *testing.T) {
	_, err := FromImages(nil, 4, 4, 3)
	assert.Error(t, err)
	_, err = FromImages([]image.Image{checkerboard(2, 2)}, 0, 4, 3)
	assert.Error(t, err)
	_, err = FromImages([]image.Image{checkerboard(2, 2)}, 4, 4, 2)
	assert.Error(t, err)
	_, err = ToImage(NewBatch(1, 2, 2, 3), 1)
	assert.Error(t, err)
}

func TestToImageClampsAndRounds(t *testing.T) {
	b := NewBatchFromSlice(1, 1, 3, 1, []float64{-20, 127.6, 300})
	img, err := ToImage(b, 0)
	require.NoError(t, err)
	assert.Equal(t, uint8(0), img.NRGBAAt(0, 0).R)
	assert.Equal(t, uint8(128), img.NRGBAAt(1, 0).G)
	assert.Equal(t, uint8(255), img.NRGBAAt(2, 0).B)
}

func TestWriteImageInvertsToImage(t *testing.T) {
	for _, channels := range []int{1, 3, 4} {
		b := NewBatch(2, 3, 4, channels)
		for i := range b.Data() {
			b.Data()[i] = float64((i * 37) % 256)
		}
		if channels == 4 {
			// Keep alpha opaque so NRGBA stores colour exactly
			for n := 0; n < 2; n++ {
				for y := 0; y < 3; y++ {
					for x := 0; x < 4; x++ {
						b.Pixel(n, y, x)[3] = 255
					}
				}
			}
		}
		img, err := ToImage(b, 1)
		require.NoError(t, err)

		back := NewBatchLike(b)
		require.NoError(t, WriteImage(back, 1, img))
		assert.Equal(t, b.Element(1).Data(), back.Element(1).Data(), "channels=%d", channels)
	}

	err := WriteImage(NewBatch(1, 2, 2, 3), 0, checkerboard(3, 2))
	assert.Error(t, err)
}
