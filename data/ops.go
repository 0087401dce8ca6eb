package data

import (
	"fmt"
	"math"
)

// PadMode selects how Pad fills the border.
type PadMode int

const (
	PadModeReflect PadMode = iota // mirror without repeating the edge pixel
	PadConstant                   // zero fill
	PadEdge                       // replicate the edge pixel
)

func (m PadMode) String() string {
	switch m {
	case PadModeReflect:
		return "reflect"
	case PadConstant:
		return "constant"
	case PadEdge:
		return "edge"
	}
	return fmt.Sprintf("PadMode(%d)", int(m))
}

// Pad grows height and width by pad pixels on every side.
//
// Reflect padding folds indices back and forth across the frame, so margins
// wider than the image are still defined.
func Pad(b *Batch, pad int, mode PadMode) *Batch {
	if pad < 0 {
		panic(fmt.Sprintf("negative padding %d", pad))
	}
	if pad == 0 {
		return b.Clone()
	}
	h, w, c := b.height, b.width, b.channels
	ph, pw := h+2*pad, w+2*pad
	out := NewBatch(b.size, ph, pw, c)
	for n := 0; n < b.size; n++ {
		for y := 0; y < ph; y++ {
			sy, okY := borderIndex(y-pad, h, mode)
			for x := 0; x < pw; x++ {
				sx, okX := borderIndex(x-pad, w, mode)
				if !okY || !okX {
					continue
				}
				copy(out.Pixel(n, y, x), b.Pixel(n, sy, sx))
			}
		}
	}
	return out
}

// PadReflect is Pad with PadModeReflect.
func PadReflect(b *Batch, pad int) *Batch {
	return Pad(b, pad, PadModeReflect)
}

// borderIndex maps i into [0, n). The second result is false when the
// position should be left at zero.
func borderIndex(i, n int, mode PadMode) (int, bool) {
	if i >= 0 && i < n {
		return i, true
	}
	switch mode {
	case PadModeReflect:
		return reflectIndex(i, n), true
	case PadEdge:
		if i < 0 {
			return 0, true
		}
		return n - 1, true
	}
	return 0, false
}

func reflectIndex(i, n int) int {
	if n == 1 {
		return 0
	}
	period := 2 * (n - 1)
	i %= period
	if i < 0 {
		i += period
	}
	if i >= n {
		i = period - i
	}
	return i
}

// Crop copies the height×width window whose top-left corner is (top, left).
func Crop(b *Batch, top, left, height, width int) *Batch {
	if top < 0 || left < 0 || top+height > b.height || left+width > b.width {
		panic(fmt.Sprintf("crop window (%d,%d)+(%d,%d) outside %s", top, left, height, width, b))
	}
	out := NewBatch(b.size, height, width, b.channels)
	rowLen := width * b.channels
	for n := 0; n < b.size; n++ {
		for y := 0; y < height; y++ {
			src := b.Index(n, top+y, left, 0)
			dst := out.Index(n, y, 0, 0)
			copy(out.data[dst:dst+rowLen], b.data[src:src+rowLen])
		}
	}
	return out
}

// CenterCrop crops the pad-pixel margin added by Pad.
func CenterCrop(b *Batch, pad int) *Batch {
	return Crop(b, pad, pad, b.height-2*pad, b.width-2*pad)
}

// FlipLeftRight mirrors every image along the width axis.
func FlipLeftRight(b *Batch) *Batch {
	out := NewBatchLike(b)
	for n := 0; n < b.size; n++ {
		for y := 0; y < b.height; y++ {
			for x := 0; x < b.width; x++ {
				copy(out.Pixel(n, y, x), b.Pixel(n, y, b.width-1-x))
			}
		}
	}
	return out
}

// FlipUpDown mirrors every image along the height axis.
func FlipUpDown(b *Batch) *Batch {
	out := NewBatchLike(b)
	rowLen := b.width * b.channels
	for n := 0; n < b.size; n++ {
		for y := 0; y < b.height; y++ {
			src := b.Index(n, b.height-1-y, 0, 0)
			dst := out.Index(n, y, 0, 0)
			copy(out.data[dst:dst+rowLen], b.data[src:src+rowLen])
		}
	}
	return out
}

// Rot90 rotates every image counter-clockwise by k quarter turns. Height and
// width swap for odd k.
func Rot90(b *Batch, k int) *Batch {
	k %= 4
	if k < 0 {
		k += 4
	}
	out := b.Clone()
	for ; k > 0; k-- {
		out = rot90Once(out)
	}
	return out
}

func rot90Once(b *Batch) *Batch {
	h, w := b.height, b.width
	out := NewBatch(b.size, w, h, b.channels)
	for n := 0; n < b.size; n++ {
		for i := 0; i < w; i++ {
			for j := 0; j < h; j++ {
				copy(out.Pixel(n, i, j), b.Pixel(n, j, w-1-i))
			}
		}
	}
	return out
}

// ResizeBilinear resamples every image to height×width. With alignCorners the
// corner pixels of input and output coincide.
func ResizeBilinear(b *Batch, height, width int, alignCorners bool) *Batch {
	out := NewBatch(b.size, height, width, b.channels)
	scaleY := resizeScale(b.height, height, alignCorners)
	scaleX := resizeScale(b.width, width, alignCorners)
	for n := 0; n < b.size; n++ {
		for y := 0; y < height; y++ {
			inY := float64(y) * scaleY
			y0 := int(math.Floor(inY))
			y1 := min(y0+1, b.height-1)
			dy := inY - float64(y0)
			for x := 0; x < width; x++ {
				inX := float64(x) * scaleX
				x0 := int(math.Floor(inX))
				x1 := min(x0+1, b.width-1)
				dx := inX - float64(x0)
				p00, p01 := b.Pixel(n, y0, x0), b.Pixel(n, y0, x1)
				p10, p11 := b.Pixel(n, y1, x0), b.Pixel(n, y1, x1)
				dst := out.Pixel(n, y, x)
				for c := range dst {
					top := p00[c] + (p01[c]-p00[c])*dx
					bottom := p10[c] + (p11[c]-p10[c])*dx
					dst[c] = top + (bottom-top)*dy
				}
			}
		}
	}
	return out
}

func resizeScale(in, out int, alignCorners bool) float64 {
	if alignCorners {
		if out > 1 {
			return float64(in-1) / float64(out-1)
		}
		return 0
	}
	return float64(in) / float64(out)
}
