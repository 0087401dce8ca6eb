package data

import (
	"image"
	"image/color"
	"math"

	"github.com/pkg/errors"
	"golang.org/x/image/draw"
)

// FromImages resizes every image to width×height and stacks them into a batch
// with values in [0,255]. channels must be 1 (grayscale), 3 (RGB) or 4 (RGBA).
func FromImages(images []image.Image, width, height, channels int) (*Batch, error) {
	if len(images) == 0 {
		return nil, errors.New("FromImages: no images given")
	}
	if width <= 0 || height <= 0 {
		return nil, errors.Errorf("FromImages: invalid target size %dx%d", width, height)
	}
	if !supportedChannels(channels) {
		return nil, errors.Errorf("FromImages: unsupported channel count %d, want 1, 3 or 4", channels)
	}

	out := NewBatch(len(images), height, width, channels)
	for n, src := range images {
		if src == nil {
			return nil, errors.Errorf("FromImages: image[%d] is nil", n)
		}
		// Resize into the batch frame (or whatever the caller asked for)
		dst := image.NewNRGBA(image.Rect(0, 0, width, height))
		draw.CatmullRom.Scale(dst, dst.Rect, src, src.Bounds(), draw.Src, nil)
		readNRGBA(dst, out, n)
	}
	return out, nil
}

// FromImage converts a single image at its own size.
func FromImage(img image.Image, channels int) (*Batch, error) {
	size := img.Bounds().Size()
	return FromImages([]image.Image{img}, size.X, size.Y, channels)
}

func supportedChannels(channels int) bool {
	return channels == 1 || channels == 3 || channels == 4
}

func readNRGBA(img *image.NRGBA, b *Batch, n int) {
	for y := 0; y < b.height; y++ {
		for x := 0; x < b.width; x++ {
			off := img.PixOffset(x, y)
			r, g, bl, a := img.Pix[off], img.Pix[off+1], img.Pix[off+2], img.Pix[off+3]
			px := b.Pixel(n, y, x)
			switch b.channels {
			case 1:
				// Standard Grayscale formula
				px[0] = 0.299*float64(r) + 0.587*float64(g) + 0.114*float64(bl)
			case 3:
				px[0], px[1], px[2] = float64(r), float64(g), float64(bl)
			case 4:
				px[0], px[1], px[2], px[3] = float64(r), float64(g), float64(bl), float64(a)
			}
		}
	}
}

// ToImage renders element n of a [0,255] batch as an 8-bit image. Values are
// rounded and clamped. Grayscale batches are replicated into R, G and B.
func ToImage(b *Batch, n int) (*image.NRGBA, error) {
	if n < 0 || n >= b.size {
		return nil, errors.Errorf("ToImage: element %d out of range for %s", n, b)
	}
	if !supportedChannels(b.channels) {
		return nil, errors.Errorf("ToImage: unsupported channel count %d, want 1, 3 or 4", b.channels)
	}
	img := image.NewNRGBA(image.Rect(0, 0, b.width, b.height))
	for y := 0; y < b.height; y++ {
		for x := 0; x < b.width; x++ {
			px := b.Pixel(n, y, x)
			c := color.NRGBA{A: 255}
			switch b.channels {
			case 1:
				v := toByte(px[0])
				c.R, c.G, c.B = v, v, v
			case 3:
				c.R, c.G, c.B = toByte(px[0]), toByte(px[1]), toByte(px[2])
			case 4:
				c.R, c.G, c.B, c.A = toByte(px[0]), toByte(px[1]), toByte(px[2]), toByte(px[3])
			}
			img.SetNRGBA(x, y, c)
		}
	}
	return img, nil
}

// ToImages renders every element of a [0,255] batch.
func ToImages(b *Batch) ([]*image.NRGBA, error) {
	out := make([]*image.NRGBA, b.size)
	for n := range out {
		img, err := ToImage(b, n)
		if err != nil {
			return nil, err
		}
		out[n] = img
	}
	return out, nil
}

// WriteImage stores img (same size as b) into element n of b, keeping the
// channel layout of b. It is the inverse of ToImage.
func WriteImage(b *Batch, n int, img *image.NRGBA) error {
	size := img.Bounds().Size()
	if size.X != b.width || size.Y != b.height {
		return errors.Errorf("WriteImage: image is %dx%d, batch frame is %dx%d", size.X, size.Y, b.width, b.height)
	}
	if img.Rect.Min != (image.Point{}) {
		img = &image.NRGBA{Pix: img.Pix[img.PixOffset(img.Rect.Min.X, img.Rect.Min.Y):], Stride: img.Stride, Rect: image.Rect(0, 0, size.X, size.Y)}
	}
	if b.channels == 1 {
		// A gray image survives ToImage as R=G=B; read R back rather than re-weighting.
		for y := 0; y < b.height; y++ {
			for x := 0; x < b.width; x++ {
				b.Pixel(n, y, x)[0] = float64(img.Pix[img.PixOffset(x, y)])
			}
		}
		return nil
	}
	readNRGBA(img, b, n)
	return nil
}

func toByte(v float64) uint8 {
	v = math.Round(v)
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}
