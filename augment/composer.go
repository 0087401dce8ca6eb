// Package augment chains randomized photometric and geometric operations into
// training-sample variants. A Composer picks one variant per family, either
// uniformly from the weighted choice lists or as an explicit Combination, and
// applies the families in a fixed order.
package augment

import (
	"math"
	"math/rand/v2"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/stat/distuv"
	"k8s.io/klog/v2"

	"github.com/b0tShaman/neuro-augment/data"
	"github.com/b0tShaman/neuro-augment/warp"
)

// Composer draws and applies augmentation combinations. All randomness comes
// from the generator passed to New, so a fixed seed reproduces every output.
// A Composer is not safe for concurrent use.
type Composer struct {
	rng    *rand.Rand
	cfg    Config
	warper warp.Warper
}

// New builds a Composer from DefaultConfig adjusted by opts.
func New(rng *rand.Rand, opts ...Option) (*Composer, error) {
	if rng == nil {
		return nil, errors.Wrap(warp.ErrInvalidParameter, "augment.New: nil random source")
	}
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.WithMessage(err, "augment.New")
	}
	return &Composer{rng: rng, cfg: cfg, warper: warp.Warper{Workers: cfg.Workers}}, nil
}

func (c *Composer) Config() Config {
	return c.cfg
}

// Sample draws one combination uniformly from the product of the choice lists
// (the perspective family only when enabled).
func (c *Composer) Sample() Combination {
	combo := Combination{
		Photometric: PhotometricChoices[c.rng.IntN(len(PhotometricChoices))],
		Distortion:  DistortionChoices[c.rng.IntN(len(DistortionChoices))],
		Mirror:      MirrorChoices[c.rng.IntN(len(MirrorChoices))],
		Shift:       ShiftChoices[c.rng.IntN(len(ShiftChoices))],
		Color:       ColorChoices[c.rng.IntN(len(ColorChoices))],
		Geometric:   GeometricChoices[c.rng.IntN(len(GeometricChoices))],
	}
	if c.cfg.Perspective {
		combo.Perspective = PerspectiveChoices[c.rng.IntN(len(PerspectiveChoices))]
	}
	return combo
}

// Compose samples a combination and applies it.
func (c *Composer) Compose(images *data.Batch) (*data.Batch, Combination, error) {
	combo := c.Sample()
	out, err := c.Apply(images, combo)
	return out, combo, err
}

// Apply runs combo on images: photometric, distortion, mirror, shift, color,
// geometric, then perspective. images is not modified and the result has its
// shape.
func (c *Composer) Apply(images *data.Batch, combo Combination) (*data.Batch, error) {
	size, h, w, ch := images.Shape()
	if size == 0 || h == 0 || w == 0 || ch == 0 {
		return nil, errors.Wrapf(warp.ErrInvalidShape, "augment: empty batch %s", images)
	}
	klog.V(1).Infof("augment %s: %s", images, combo)

	// 1. Each family maps the running batch to the next one
	steps := []struct {
		family Family
		run    func(*data.Batch) (*data.Batch, error)
	}{
		{FamilyPhotometric, func(b *data.Batch) (*data.Batch, error) { return c.photometric(b, combo.Photometric) }},
		{FamilyDistortion, func(b *data.Batch) (*data.Batch, error) { return c.distortion(b, combo.Distortion) }},
		{FamilyMirror, func(b *data.Batch) (*data.Batch, error) { return c.mirror(b, combo.Mirror) }},
		{FamilyShift, func(b *data.Batch) (*data.Batch, error) { return c.shift(b, combo.Shift) }},
		{FamilyColorSpace, func(b *data.Batch) (*data.Batch, error) { return c.color(b, combo.Color) }},
		{FamilyGeometric, func(b *data.Batch) (*data.Batch, error) { return c.geometric(b, combo.Geometric) }},
		{FamilyPerspective, func(b *data.Batch) (*data.Batch, error) { return c.perspective(b, combo.Perspective) }},
	}

	// 2. Chain them
	out := images
	for _, step := range steps {
		next, err := step.run(out)
		if err != nil {
			return nil, errors.WithMessagef(err, "augment %s", step.family)
		}
		out = next
	}
	if out == images {
		out = images.Clone()
	}
	return out, nil
}

// leaf runs fn in the 0..255 convention the operations assume, clipping the
// result to that range before the convention of images is restored.
func (c *Composer) leaf(images *data.Batch, fn func(*data.Batch) (*data.Batch, error)) (*data.Batch, error) {
	return data.InByteRange(images, c.cfg.Range, func(b *data.Batch) (*data.Batch, error) {
		out, err := fn(b)
		if err != nil {
			return nil, err
		}
		out.Clip(0, data.ByteMax)
		return out, nil
	})
}

// ------- FAMILY DISPATCH ------ //
// Identity variants return the batch they were given.

func (c *Composer) photometric(images *data.Batch, v Photometric) (*data.Batch, error) {
	switch v {
	case PhotometricIdentity:
		return images, nil
	case PhotometricShade:
		return c.leaf(images, c.additiveShade)
	case PhotometricBrightness:
		return c.leaf(images, c.randomBrightness)
	case PhotometricContrast:
		return c.leaf(images, c.randomContrast)
	case PhotometricSaturation:
		return c.leaf(images, c.randomSaturation)
	}
	return nil, unknownVariant(FamilyPhotometric, v)
}

func (c *Composer) distortion(images *data.Batch, v Distortion) (*data.Batch, error) {
	switch v {
	case DistortionIdentity:
		return images, nil
	case DistortionElastic:
		return c.leaf(images, c.randomDistort)
	}
	return nil, unknownVariant(FamilyDistortion, v)
}

func (c *Composer) mirror(images *data.Batch, v Mirror) (*data.Batch, error) {
	switch v {
	case MirrorIdentity:
		return images, nil
	case MirrorFlip:
		return c.leaf(images, func(b *data.Batch) (*data.Batch, error) {
			return data.FlipLeftRight(b), nil
		})
	}
	return nil, unknownVariant(FamilyMirror, v)
}

func (c *Composer) shift(images *data.Batch, v Shift) (*data.Batch, error) {
	switch v {
	case ShiftIdentity:
		return images, nil
	case ShiftRandom:
		return c.leaf(images, c.randomShift)
	}
	return nil, unknownVariant(FamilyShift, v)
}

func (c *Composer) color(images *data.Batch, v ColorSpace) (*data.Batch, error) {
	switch v {
	case ColorIdentity:
		return images, nil
	case ColorTransform:
		return c.leaf(images, c.colorSpaceTransform)
	}
	return nil, unknownVariant(FamilyColorSpace, v)
}

func (c *Composer) geometric(images *data.Batch, v Geometric) (*data.Batch, error) {
	switch v {
	case GeometricIdentity:
		return images, nil
	case GeometricTopDown:
		return c.leaf(images, c.randomShear(warp.AxisTopDown, 1))
	case GeometricLeftRight:
		return c.leaf(images, c.randomShear(warp.AxisLeftRight, 1))
	case GeometricDownTop:
		return c.leaf(images, c.randomShear(warp.AxisTopDown, -1))
	case GeometricRightLeft:
		return c.leaf(images, c.randomShear(warp.AxisLeftRight, -1))
	case GeometricSkew:
		return c.leaf(images, c.randomSkew)
	}
	return nil, unknownVariant(FamilyGeometric, v)
}

func (c *Composer) perspective(images *data.Batch, v Perspective) (*data.Batch, error) {
	switch v {
	case "", PerspectiveIdentity:
		return images, nil
	case PerspectiveRotate:
		return c.leaf(images, c.randomRotate)
	case PerspectiveSkew:
		return c.leaf(images, c.randomPerspective)
	}
	return nil, unknownVariant(FamilyPerspective, v)
}

func unknownVariant[V ~string](family Family, v V) error {
	return errors.Wrapf(warp.ErrInvalidParameter, "unknown %s variant %q", family, string(v))
}

// ------- GEOMETRIC LEAVES ------ //

func (c *Composer) randomDistort(images *data.Batch) (*data.Batch, error) {
	w := images.Width()
	n := c.randInt(5, max(5, w/5+1))
	anchors := max(2, w/n)
	sigma := float64(c.randInt(-c.cfg.DistortSigma, c.cfg.DistortSigma))
	klog.V(2).Infof("elastic distort: %d anchors, sigma %v", anchors, sigma)
	return c.warper.Distort(c.rng, images, anchors, sigma)
}

// randomShift moves the batch by up to ratio·frame in each direction, with
// ratio drawn from ShiftPermille.
func (c *Composer) randomShift(images *data.Batch) (*data.Batch, error) {
	ratio := c.permille(c.cfg.ShiftPermille)
	dx := int(math.Round(c.uniform(-ratio, ratio) * float64(images.Width())))
	dy := int(math.Round(c.uniform(-ratio, ratio) * float64(images.Height())))
	klog.V(2).Infof("shift: ratio %v, (%d, %d)", ratio, dx, dy)
	return warp.Shift(images, dx, dy)
}

func (c *Composer) randomShear(axis warp.Axis, sign float64) func(*data.Batch) (*data.Batch, error) {
	return func(images *data.Batch) (*data.Batch, error) {
		lambda := sign * c.permille(c.cfg.ShearPermille)
		klog.V(2).Infof("shear %s: %v", axis, lambda)
		return c.warper.Shear(images, lambda, axis)
	}
}

func (c *Composer) randomSkew(images *data.Batch) (*data.Batch, error) {
	left := c.permille(c.cfg.ShearPermille) * c.sign()
	right := c.permille(c.cfg.ShearPermille) * c.sign()
	klog.V(2).Infof("skew: left %v, right %v", left, right)
	return c.warper.SkewLeftRight(images, left, right)
}

func (c *Composer) randomRotate(images *data.Batch) (*data.Batch, error) {
	degrees := float64(c.randInt(-c.cfg.RotationDegrees, c.cfg.RotationDegrees))
	klog.V(2).Infof("rotate: %v°", degrees)
	return c.warper.Rotate(images, degrees)
}

func (c *Composer) randomPerspective(images *data.Batch) (*data.Batch, error) {
	return c.warper.Perspective(c.rng, images, c.cfg.SkewMode, c.cfg.SkewMagnitude)
}

// ------ RANDOM DRAWS ------

// randInt draws from [lo, hi], both ends included.
func (c *Composer) randInt(lo, hi int) int {
	return lo + c.rng.IntN(hi-lo+1)
}

func (c *Composer) uniform(lo, hi float64) float64 {
	if lo == hi {
		return lo
	}
	return distuv.Uniform{Min: lo, Max: hi, Src: c.rng}.Rand()
}

func (c *Composer) permille(r [2]int) float64 {
	return float64(c.randInt(r[0], r[1])) / 1000
}

func (c *Composer) sign() float64 {
	if c.rng.IntN(2) == 0 {
		return 1
	}
	return -1
}
