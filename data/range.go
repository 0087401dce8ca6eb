package data

import "fmt"

// ByteMax is the top of the 8-bit intensity range the leaf operations assume.
const ByteMax = 255.0

// Range is the pixel-value convention of a batch.
type Range int

const (
	// RangeAuto infers the convention: a batch whose maximum is <= 1.0 is
	// treated as [0,1]. A genuinely dark [0,255] batch is misread as [0,1].
	RangeAuto Range = iota
	RangeUnit       // [0, 1]
	RangeByte       // [0, 255]
)

func (r Range) String() string {
	switch r {
	case RangeAuto:
		return "auto"
	case RangeUnit:
		return "unit"
	case RangeByte:
		return "byte"
	}
	return fmt.Sprintf("Range(%d)", int(r))
}

// IsUnitRange is the max <= 1.0 heuristic.
func IsUnitRange(b *Batch) bool {
	return b.Max() <= 1.0
}

// Resolve turns RangeAuto into RangeUnit or RangeByte for b.
func (r Range) Resolve(b *Batch) Range {
	if r != RangeAuto {
		return r
	}
	if IsUnitRange(b) {
		return RangeUnit
	}
	return RangeByte
}

// InByteRange runs fn on a [0,255] view of b and restores the original
// convention on the result. b itself is never modified.
func InByteRange(b *Batch, r Range, fn func(*Batch) (*Batch, error)) (*Batch, error) {
	if r.Resolve(b) != RangeUnit {
		return fn(b)
	}
	scaled := b.Clone()
	scaled.Scale(ByteMax)
	out, err := fn(scaled)
	if err != nil {
		return nil, err
	}
	// Divide rather than scale by 1/255 so 255 maps back to exactly 1.
	out.ApplyFunc(func(v float64) float64 { return v / ByteMax })
	return out, nil
}
