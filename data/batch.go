package data

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
)

// Batch is a dense [size, height, width, channels] tensor of pixel intensities
// backed by a flat, row-major slice.
type Batch struct {
	size, height, width, channels int
	data                          []float64
}

// -------- CONSTRUCTORS ------- //
func NewBatch(size, height, width, channels int) *Batch {
	if size < 0 || height < 0 || width < 0 || channels < 0 {
		panic(fmt.Sprintf("negative batch shape [%d, %d, %d, %d]", size, height, width, channels))
	}
	return &Batch{
		size:     size,
		height:   height,
		width:    width,
		channels: channels,
		data:     make([]float64, size*height*width*channels),
	}
}

// NewBatchFromSlice wraps data without copying it.
func NewBatchFromSlice(size, height, width, channels int, data []float64) *Batch {
	if len(data) != size*height*width*channels {
		panic("Slice length mismatch")
	}
	return &Batch{
		size:     size,
		height:   height,
		width:    width,
		channels: channels,
		data:     data,
	}
}

// NewBatchLike allocates a zeroed batch with the shape of b.
func NewBatchLike(b *Batch) *Batch {
	return NewBatch(b.size, b.height, b.width, b.channels)
}

// ------- BATCH METHODS ------ //
func (b *Batch) Shape() (size, height, width, channels int) {
	return b.size, b.height, b.width, b.channels
}

func (b *Batch) Size() int     { return b.size }
func (b *Batch) Height() int   { return b.height }
func (b *Batch) Width() int    { return b.width }
func (b *Batch) Channels() int { return b.channels }

// Data returns the underlying slice. Writes through it modify the batch.
func (b *Batch) Data() []float64 { return b.data }

// Len is the number of values in the batch.
func (b *Batch) Len() int { return len(b.data) }

// Index returns the flat offset of element (n, y, x, c).
func (b *Batch) Index(n, y, x, c int) int {
	return ((n*b.height+y)*b.width+x)*b.channels + c
}

func (b *Batch) At(n, y, x, c int) float64 {
	return b.data[b.Index(n, y, x, c)]
}

func (b *Batch) Set(n, y, x, c int, v float64) {
	b.data[b.Index(n, y, x, c)] = v
}

// Pixel returns the channel values of one pixel as a sub-slice of the batch.
func (b *Batch) Pixel(n, y, x int) []float64 {
	start := b.Index(n, y, x, 0)
	return b.data[start : start+b.channels]
}

// Element returns a single-image view of element n that shares storage with b.
func (b *Batch) Element(n int) *Batch {
	stride := b.height * b.width * b.channels
	return NewBatchFromSlice(1, b.height, b.width, b.channels, b.data[n*stride:(n+1)*stride])
}

func (b *Batch) Clone() *Batch {
	out := NewBatchLike(b)
	copy(out.data, b.data)
	return out
}

// SameShape reports whether b and o have identical dimensions.
func (b *Batch) SameShape(o *Batch) bool {
	return b.size == o.size && b.height == o.height && b.width == o.width && b.channels == o.channels
}

func (b *Batch) String() string {
	return fmt.Sprintf("Batch[%d, %d, %d, %d]", b.size, b.height, b.width, b.channels)
}

// Max returns the largest value in the batch, or 0 for an empty batch.
func (b *Batch) Max() float64 {
	if len(b.data) == 0 {
		return 0
	}
	return floats.Max(b.data)
}

// Min returns the smallest value in the batch, or 0 for an empty batch.
func (b *Batch) Min() float64 {
	if len(b.data) == 0 {
		return 0
	}
	return floats.Min(b.data)
}

// Scale multiplies every value in place.
func (b *Batch) Scale(f float64) {
	floats.Scale(f, b.data)
}

// Clip limits every value to [lo, hi] in place.
func (b *Batch) Clip(lo, hi float64) {
	for i, v := range b.data {
		if v < lo {
			b.data[i] = lo
		} else if v > hi {
			b.data[i] = hi
		}
	}
}

// ApplyFunc replaces every value v with fn(v).
func (b *Batch) ApplyFunc(fn func(float64) float64) {
	for i := range b.data {
		b.data[i] = fn(b.data[i])
	}
}

// ------ UTILITY FUNCTIONS ------
// Stack concatenates same-shaped single images (or batches) along the batch axis.
func Stack(parts ...*Batch) *Batch {
	if len(parts) == 0 {
		return NewBatch(0, 0, 0, 0)
	}
	first := parts[0]
	total := 0
	for _, p := range parts {
		if p.height != first.height || p.width != first.width || p.channels != first.channels {
			panic(fmt.Sprintf("Stack shape mismatch: %s vs %s", p, first))
		}
		total += p.size
	}
	out := NewBatch(total, first.height, first.width, first.channels)
	pos := 0
	for _, p := range parts {
		pos += copy(out.data[pos:], p.data)
	}
	return out
}
