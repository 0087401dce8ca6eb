package warp

import (
	"math/rand/v2"

	"github.com/b0tShaman/neuro-augment/data"
)

// Warper runs the warp operations with a bounded per-image fan-out. The zero
// value uses GOMAXPROCS workers, which is what the package-level functions do.
type Warper struct {
	// Workers caps the goroutines used per call; <= 0 means GOMAXPROCS.
	Workers int
}

var defaultWarper Warper

func (wp Warper) forEach(n int, fn func(i int) error) error {
	return data.ForEach(n, wp.Workers, fn)
}

// -------- PACKAGE-LEVEL SHORTHANDS -------- //

// Sample is Warper{}.Sample.
func Sample(src, coords *data.Batch) (*data.Batch, error) {
	return defaultWarper.Sample(src, coords)
}

// Transform is Warper{}.Transform.
func Transform(images *data.Batch, p Projective) (*data.Batch, error) {
	return defaultWarper.Transform(images, p)
}

// ApplyTransform is Warper{}.ApplyTransform.
func ApplyTransform(images *data.Batch, forward *Matrix) (*data.Batch, error) {
	return defaultWarper.ApplyTransform(images, forward)
}

// Shear is Warper{}.Shear.
func Shear(images *data.Batch, factor float64, axis Axis) (*data.Batch, error) {
	return defaultWarper.Shear(images, factor, axis)
}

// SkewLeftRight is Warper{}.SkewLeftRight.
func SkewLeftRight(images *data.Batch, left, right float64) (*data.Batch, error) {
	return defaultWarper.SkewLeftRight(images, left, right)
}

// Rotate is Warper{}.Rotate.
func Rotate(images *data.Batch, degrees float64) (*data.Batch, error) {
	return defaultWarper.Rotate(images, degrees)
}

// Distort is Warper{}.Distort.
func Distort(rng *rand.Rand, images *data.Batch, numAnchors int, perturbSigma float64) (*data.Batch, error) {
	return defaultWarper.Distort(rng, images, numAnchors, perturbSigma)
}

// Perspective is Warper{}.Perspective.
func Perspective(rng *rand.Rand, images *data.Batch, mode SkewMode, magnitude float64) (*data.Batch, error) {
	return defaultWarper.Perspective(rng, images, mode, magnitude)
}
