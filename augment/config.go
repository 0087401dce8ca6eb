package augment

import (
	"github.com/pkg/errors"

	"github.com/b0tShaman/neuro-augment/data"
	"github.com/b0tShaman/neuro-augment/warp"
)

// Config holds the parameter ranges of every leaf. Integer ranges are
// inclusive on both ends.
type Config struct {
	Range   data.Range // pixel convention; RangeAuto uses the max <= 1.0 test
	Workers int        // per-element fan-out; <= 0 means GOMAXPROCS

	// Photometric
	BrightnessMaxDelta float64    // pixel units on the 0..255 scale
	ContrastFactor     [2]float64 // multiplier around mid-grey
	SaturationFactor   [2]float64
	ShadeEllipses      int
	ShadeTransparency  [2]float64 // negative values brighten
	ShadeKernel        [2]int     // Gaussian kernel size, made odd

	// Distortion
	DistortSigma int // anchor noise sigma is drawn from [-DistortSigma, DistortSigma]

	// Shift and shear magnitudes, in thousandths of the frame / shear factor
	ShiftPermille [2]int
	ShearPermille [2]int

	// Color space jitter
	HueShift       float64    // degrees, drawn from [-HueShift, HueShift]
	ChromaScale    [2]float64 // saturation (HSV/HSL) or a*/b* (Lab) scale
	LightnessScale [2]float64 // value, lightness or L* scale

	// Optional perspective family
	Perspective     bool
	RotationDegrees int // drawn from [-RotationDegrees, RotationDegrees]
	SkewMode        warp.SkewMode
	SkewMagnitude   float64
}

// DefaultConfig reproduces the parameter ranges the pipeline was tuned with.
func DefaultConfig() Config {
	return Config{
		Range:              data.RangeAuto,
		Workers:            0,
		BrightnessMaxDelta: 100,
		ContrastFactor:     [2]float64{0.5, 1.5},
		SaturationFactor:   [2]float64{0.5, 1.5},
		ShadeEllipses:      20,
		ShadeTransparency:  [2]float64{-0.5, 0.8},
		ShadeKernel:        [2]int{250, 350},
		DistortSigma:       5,
		ShiftPermille:      [2]int{50, 125},
		ShearPermille:      [2]int{50, 125},
		HueShift:           18,
		ChromaScale:        [2]float64{0.7, 1.3},
		LightnessScale:     [2]float64{0.8, 1.2},
		Perspective:        false,
		RotationDegrees:    35,
		SkewMode:           warp.SkewAny,
		SkewMagnitude:      1,
	}
}

type Option func(*Config)

// WithRange replaces the max <= 1.0 heuristic with an explicit convention.
func WithRange(r data.Range) Option {
	return func(c *Config) {
		c.Range = r
	}
}

func WithWorkers(n int) Option {
	return func(c *Config) {
		c.Workers = n
	}
}

// WithPerspective enables the rotation / corner-skew family.
func WithPerspective(mode warp.SkewMode, magnitude float64) Option {
	return func(c *Config) {
		c.Perspective = true
		c.SkewMode = mode
		c.SkewMagnitude = magnitude
	}
}

func WithBrightnessDelta(maxDelta float64) Option {
	return func(c *Config) {
		c.BrightnessMaxDelta = maxDelta
	}
}

func WithShadeTransparency(lo, hi float64) Option {
	return func(c *Config) {
		c.ShadeTransparency = [2]float64{lo, hi}
	}
}

func WithShearPermille(lo, hi int) Option {
	return func(c *Config) {
		c.ShearPermille = [2]int{lo, hi}
	}
}

func WithShiftPermille(lo, hi int) Option {
	return func(c *Config) {
		c.ShiftPermille = [2]int{lo, hi}
	}
}

func WithDistortSigma(sigma int) Option {
	return func(c *Config) {
		c.DistortSigma = sigma
	}
}

// Validate reports the first out-of-domain field.
func (c Config) Validate() error {
	switch {
	case c.BrightnessMaxDelta < 0:
		return errors.Wrapf(warp.ErrInvalidParameter, "BrightnessMaxDelta = %v", c.BrightnessMaxDelta)
	case !ordered(c.ContrastFactor) || c.ContrastFactor[0] <= 0:
		return errors.Wrapf(warp.ErrInvalidParameter, "ContrastFactor = %v", c.ContrastFactor)
	case !ordered(c.SaturationFactor) || c.SaturationFactor[0] < 0:
		return errors.Wrapf(warp.ErrInvalidParameter, "SaturationFactor = %v", c.SaturationFactor)
	case c.ShadeEllipses < 0:
		return errors.Wrapf(warp.ErrInvalidParameter, "ShadeEllipses = %d", c.ShadeEllipses)
	case !ordered(c.ShadeTransparency):
		return errors.Wrapf(warp.ErrInvalidParameter, "ShadeTransparency = %v", c.ShadeTransparency)
	case !ordered(c.ShadeKernel) || c.ShadeKernel[0] < 1:
		return errors.Wrapf(warp.ErrInvalidParameter, "ShadeKernel = %v", c.ShadeKernel)
	case c.DistortSigma < 0:
		return errors.Wrapf(warp.ErrInvalidParameter, "DistortSigma = %d", c.DistortSigma)
	case !ordered(c.ShiftPermille) || c.ShiftPermille[0] < 0:
		return errors.Wrapf(warp.ErrInvalidParameter, "ShiftPermille = %v", c.ShiftPermille)
	case !ordered(c.ShearPermille) || c.ShearPermille[0] < 0:
		return errors.Wrapf(warp.ErrInvalidParameter, "ShearPermille = %v", c.ShearPermille)
	case c.HueShift < 0:
		return errors.Wrapf(warp.ErrInvalidParameter, "HueShift = %v", c.HueShift)
	case !ordered(c.ChromaScale) || c.ChromaScale[0] < 0:
		return errors.Wrapf(warp.ErrInvalidParameter, "ChromaScale = %v", c.ChromaScale)
	case !ordered(c.LightnessScale) || c.LightnessScale[0] < 0:
		return errors.Wrapf(warp.ErrInvalidParameter, "LightnessScale = %v", c.LightnessScale)
	case c.RotationDegrees < 0:
		return errors.Wrapf(warp.ErrInvalidParameter, "RotationDegrees = %d", c.RotationDegrees)
	case c.Perspective && !(c.SkewMagnitude > 0):
		return errors.Wrapf(warp.ErrInvalidParameter, "SkewMagnitude = %v", c.SkewMagnitude)
	}
	return nil
}

func ordered[T int | float64](r [2]T) bool {
	return r[0] <= r[1]
}
