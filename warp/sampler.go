// Package warp implements the geometric side of the augmentation pipeline:
// bilinear resampling, elastic distortion, shear/skew/rotation transforms and
// the corner-displacement perspective solver.
//
// All operations take and return *data.Batch values shaped [B, H, W, C] and
// never modify their inputs.
package warp

import (
	"math"

	"github.com/pkg/errors"

	"github.com/b0tShaman/neuro-augment/data"
)

// Sample builds a new batch by bilinear sampling src at the coordinates in
// coords.
//
// coords is shaped [B, Ht, Wt, 2] and holds the (x, y) source position of every
// output pixel; the result is [B, Ht, Wt, C]. Neighbour indices are clamped to
// the source frame, while the blend weights come from the unclamped fractional
// distances, so coordinates outside the frame replicate the nearest edge pixel
// instead of reading zeros.
//
// Every coordinate must be finite; a NaN or infinite entry is rejected with
// ErrInvalidParameter before any pixel is read.
func (wp Warper) Sample(src, coords *data.Batch) (*data.Batch, error) {
	if coords.Channels() != 2 {
		return nil, errors.Wrapf(ErrInvalidShape, "coordinate map %s must have 2 channels", coords)
	}
	if coords.Size() != src.Size() {
		return nil, errors.Wrapf(ErrInvalidShape, "coordinate map %s and source %s differ in batch size", coords, src)
	}
	if src.Len() == 0 && coords.Len() > 0 {
		return nil, errors.Wrapf(ErrInvalidShape, "cannot sample from empty source %s", src)
	}
	if i := firstNonFinite(coords.Data()); i >= 0 {
		return nil, errors.Wrapf(ErrInvalidParameter, "coordinate map %s: non-finite value %v at flat pixel %d",
			coords, coords.Data()[i], i/2)
	}

	size, srcH, srcW, channels := src.Shape()
	_, outH, outW, _ := coords.Shape()
	out := data.NewBatch(size, outH, outW, channels)

	xMax, yMax := float64(srcW-1), float64(srcH-1)
	srcData, coordData, outData := src.Data(), coords.Data(), out.Data()

	err := wp.forEach(size, func(n int) error {
		// Flattened offset of this element's first pixel
		base := n * srcH * srcW
		for i := 0; i < outH*outW; i++ {
			cIdx := (n*outH*outW + i) * 2
			x, y := coordData[cIdx], coordData[cIdx+1]

			x0 := math.Floor(x)
			y0 := math.Floor(y)
			x1, y1 := x0+1, y0+1

			wx0, wx1 := x1-x, x-x0
			wy0, wy1 := y1-y, y-y0

			x0s, x1s := clamp(x0, 0, xMax), clamp(x1, 0, xMax)
			y0s, y1s := clamp(y0, 0, yMax), clamp(y1, 0, yMax)

			idx00 := (base + int(y0s)*srcW + int(x0s)) * channels
			idx01 := (base + int(y1s)*srcW + int(x0s)) * channels
			idx10 := (base + int(y0s)*srcW + int(x1s)) * channels
			idx11 := (base + int(y1s)*srcW + int(x1s)) * channels

			w00, w01 := wx0*wy0, wx0*wy1
			w10, w11 := wx1*wy0, wx1*wy1

			dst := outData[(n*outH*outW+i)*channels:]
			for c := 0; c < channels; c++ {
				dst[c] = w00*srcData[idx00+c] + w01*srcData[idx01+c] +
					w10*srcData[idx10+c] + w11*srcData[idx11+c]
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// IdentityCoords returns the coordinate map that samples every pixel of a
// size×height×width frame from itself.
func IdentityCoords(size, height, width int) *data.Batch {
	coords := data.NewBatch(size, height, width, 2)
	for n := 0; n < size; n++ {
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				px := coords.Pixel(n, y, x)
				px[0], px[1] = float64(x), float64(y)
			}
		}
	}
	return coords
}

// firstNonFinite returns the index of the first NaN or ±Inf in values, or -1.
func firstNonFinite(values []float64) int {
	for i, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return i
		}
	}
	return -1
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
