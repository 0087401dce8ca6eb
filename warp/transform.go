package warp

import (
	"fmt"
	"math"

	"github.com/pkg/errors"

	"github.com/b0tShaman/neuro-augment/data"
)

// Axis selects the direction of a shear.
type Axis int

const (
	// AxisLeftRight shifts rows sideways in proportion to their height.
	AxisLeftRight Axis = iota
	// AxisTopDown shifts columns vertically; it is the left-right shear applied
	// to the image rotated by 90°.
	AxisTopDown
)

func (a Axis) String() string {
	switch a {
	case AxisLeftRight:
		return "left-right"
	case AxisTopDown:
		return "top-down"
	}
	return fmt.Sprintf("Axis(%d)", int(a))
}

// RotationPadding is the margin that keeps a rotated frame free of
// out-of-source pixels after cropping: ceil(max(h,w)·(√2−1)/2).
func RotationPadding(height, width int) int {
	return int(math.Ceil(float64(max(height, width)) * (math.Sqrt2 - 1) / 2))
}

// CoverPadding is the margin after which a frame rotated by any angle still
// lies inside the padded source: the half-diagonal minus the half short side,
// plus one pixel for the bilinear neighbour.
func CoverPadding(height, width int) int {
	diagonal := math.Hypot(float64(height), float64(width))
	return int(math.Ceil((diagonal-float64(min(height, width)))/2)) + 1
}

// ShearPadding is the margin used by shears, applied twice:
// ceil(max(h,w)·(2−1)/2).
func ShearPadding(height, width int) int {
	return int(math.Ceil(float64(max(height, width)) * (2 - 1) / 2))
}

// Transform warps every image with p, which maps output pixels to source
// positions. Sampling is bilinear and positions outside the source read as 0.
// The output has the shape of images.
func (wp Warper) Transform(images *data.Batch, p Projective) (*data.Batch, error) {
	if !allFinite(p[:]) {
		return nil, errors.Wrapf(ErrDegenerateTransform, "non-finite coefficients %v", p)
	}
	size, h, w, channels := images.Shape()
	out := data.NewBatchLike(images)
	src, dst := images.Data(), out.Data()

	err := wp.forEach(size, func(n int) error {
		base := n * h * w
		// read returns the fill value for neighbours outside the frame.
		read := func(y, x, c int) float64 {
			if y < 0 || x < 0 || y >= h || x >= w {
				return 0
			}
			return src[(base+y*w+x)*channels+c]
		}
		for oy := 0; oy < h; oy++ {
			for ox := 0; ox < w; ox++ {
				sx, sy := p.Apply(float64(ox), float64(oy))
				if !(sy > -1 && sx > -1 && sy < float64(h) && sx < float64(w)) {
					continue // also skips NaN from a vanishing denominator
				}
				fy, fx := math.Floor(sy), math.Floor(sx)
				y0, x0 := int(fy), int(fx)
				dy, dx := sy-fy, sx-fx
				o := (base + oy*w + ox) * channels
				for c := 0; c < channels; c++ {
					top := (1-dx)*read(y0, x0, c) + dx*read(y0, x0+1, c)
					bottom := (1-dx)*read(y0+1, x0, c) + dx*read(y0+1, x0+1, c)
					dst[o+c] = (1-dy)*top + dy*bottom
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ApplyTransform warps images by the forward (source→destination) matrix. The
// matrix is inverted first because Transform maps destination to source.
func (wp Warper) ApplyTransform(images *data.Batch, forward *Matrix) (*data.Batch, error) {
	inverse, err := forward.Inverse()
	if err != nil {
		return nil, err
	}
	p, err := inverse.Projective()
	if err != nil {
		return nil, err
	}
	return wp.Transform(images, p)
}

// Shear applies a single-factor shear along axis. The images are reflect-padded
// twice by ShearPadding beforehand and cropped back afterwards, so corners
// pushed out of the frame are replaced by mirrored content instead of zeros.
func (wp Warper) Shear(images *data.Batch, factor float64, axis Axis) (*data.Batch, error) {
	if err := checkImages(images); err != nil {
		return nil, err
	}
	if math.IsNaN(factor) || math.IsInf(factor, 0) {
		return nil, errors.Wrapf(ErrInvalidParameter, "shear factor %v", factor)
	}
	switch axis {
	case AxisLeftRight:
		return wp.shearLeftRight(images, factor)
	case AxisTopDown:
		sheared, err := wp.shearLeftRight(data.Rot90(images, 1), factor)
		if err != nil {
			return nil, err
		}
		return data.Rot90(sheared, 3), nil
	}
	return nil, errors.Wrapf(ErrInvalidParameter, "unknown shear axis %v", axis)
}

func (wp Warper) shearLeftRight(images *data.Batch, factor float64) (*data.Batch, error) {
	h, w := images.Height(), images.Width()
	pad := ShearPadding(h, w)
	padded := data.PadReflect(data.PadReflect(images, pad), pad)
	sheared, err := wp.ApplyTransform(padded, ShearMatrix(factor))
	if err != nil {
		return nil, errors.WithMessagef(err, "shear %v", factor)
	}
	return data.Crop(sheared, 2*pad, 2*pad, h, w), nil
}

// SkewLeftRight produces an asymmetric skew in two passes: a shear by
// left+right, a horizontal flip, a shear by right alone, and a flip back.
func (wp Warper) SkewLeftRight(images *data.Batch, left, right float64) (*data.Batch, error) {
	first, err := wp.Shear(images, left+right, AxisLeftRight)
	if err != nil {
		return nil, err
	}
	second, err := wp.Shear(data.FlipLeftRight(first), right, AxisLeftRight)
	if err != nil {
		return nil, err
	}
	return data.FlipLeftRight(second), nil
}

// Rotate turns every image counter-clockwise by degrees around its centre,
// filling the uncovered corners with reflected content. The frame is padded by
// CoverPadding, so any angle on any aspect ratio stays inside the source.
func (wp Warper) Rotate(images *data.Batch, degrees float64) (*data.Batch, error) {
	if err := checkImages(images); err != nil {
		return nil, err
	}
	if math.IsNaN(degrees) || math.IsInf(degrees, 0) {
		return nil, errors.Wrapf(ErrInvalidParameter, "rotation angle %v", degrees)
	}
	pad := CoverPadding(images.Height(), images.Width())
	padded := data.PadReflect(images, pad)
	cx := float64(padded.Width()-1) / 2
	cy := float64(padded.Height()-1) / 2
	rotated, err := wp.ApplyTransform(padded, RotationMatrix(degrees, cx, cy))
	if err != nil {
		return nil, err
	}
	return data.CenterCrop(rotated, pad), nil
}

// Shift translates every image by (dx, dy) pixels, filling the uncovered
// border by reflection.
func Shift(images *data.Batch, dx, dy int) (*data.Batch, error) {
	if err := checkImages(images); err != nil {
		return nil, err
	}
	pad := max(abs(dx), abs(dy))
	if pad == 0 {
		return images.Clone(), nil
	}
	padded := data.PadReflect(images, pad)
	return data.Crop(padded, pad-dy, pad-dx, images.Height(), images.Width()), nil
}

func checkImages(images *data.Batch) error {
	size, h, w, c := images.Shape()
	if size == 0 || h == 0 || w == 0 || c == 0 {
		return errors.Wrapf(ErrInvalidShape, "empty batch %s", images)
	}
	return nil
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
