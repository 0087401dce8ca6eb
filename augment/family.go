package augment

import (
	"fmt"
	"strings"
)

// Family names one independent stage of the pipeline.
type Family string

const (
	FamilyPhotometric Family = "photometric"
	FamilyDistortion  Family = "distortion"
	FamilyMirror      Family = "mirror"
	FamilyShift       Family = "shift"
	FamilyColorSpace  Family = "color"
	FamilyGeometric   Family = "geometric"
	FamilyPerspective Family = "perspective"
)

// -------- VARIANTS -------- //
// Every family has its own variant type so a dispatch switch only has to
// cover the cases that can actually reach it.

type Photometric string

const (
	PhotometricIdentity   Photometric = "identity"
	PhotometricShade      Photometric = "additive_shade"
	PhotometricBrightness Photometric = "brightness"
	PhotometricContrast   Photometric = "contrast"
	PhotometricSaturation Photometric = "saturation"
)

type Distortion string

const (
	DistortionIdentity Distortion = "identity"
	DistortionElastic  Distortion = "elastic"
)

type Mirror string

const (
	MirrorIdentity Mirror = "identity"
	MirrorFlip     Mirror = "flip_left_right"
)

type Shift string

const (
	ShiftIdentity Shift = "identity"
	ShiftRandom   Shift = "random_shift"
)

type ColorSpace string

const (
	ColorIdentity  ColorSpace = "identity"
	ColorTransform ColorSpace = "color_space_transform"
)

// Geometric covers the four directional shears and the two-pass skew. The
// reversed directions are the same shear with a negated factor.
type Geometric string

const (
	GeometricIdentity  Geometric = "identity"
	GeometricTopDown   Geometric = "shear_top_down"
	GeometricLeftRight Geometric = "shear_left_right"
	GeometricDownTop   Geometric = "shear_down_top"
	GeometricRightLeft Geometric = "shear_right_left"
	GeometricSkew      Geometric = "skew_left_right"
)

// Perspective is the optional family enabled by WithPerspective. Its zero
// value means the family does not run.
type Perspective string

const (
	PerspectiveIdentity Perspective = "identity"
	PerspectiveRotate   Perspective = "rotate"
	PerspectiveSkew     Perspective = "corner_skew"
)

// -------- CHOICE LISTS -------- //
// Duplicates are weights: a uniform pick from each list gives the variant
// frequencies of the full product.

var PhotometricChoices = []Photometric{
	PhotometricIdentity, PhotometricIdentity, PhotometricShade,
	PhotometricBrightness, PhotometricContrast, PhotometricSaturation,
}

var DistortionChoices = []Distortion{
	DistortionIdentity, DistortionElastic, DistortionElastic,
	DistortionElastic, DistortionElastic, DistortionElastic,
}

var MirrorChoices = []Mirror{
	MirrorIdentity, MirrorFlip, MirrorFlip, MirrorFlip, MirrorFlip, MirrorFlip,
}

var ShiftChoices = []Shift{
	ShiftIdentity, ShiftRandom, ShiftRandom, ShiftRandom, ShiftRandom, ShiftRandom,
}

var ColorChoices = []ColorSpace{
	ColorIdentity, ColorTransform, ColorTransform, ColorTransform, ColorTransform, ColorTransform,
}

var GeometricChoices = []Geometric{
	GeometricIdentity, GeometricTopDown, GeometricLeftRight,
	GeometricDownTop, GeometricRightLeft, GeometricSkew,
}

var PerspectiveChoices = []Perspective{
	PerspectiveIdentity, PerspectiveRotate, PerspectiveSkew,
}

// Combination picks one variant per family. Families run in field order.
type Combination struct {
	Photometric Photometric
	Distortion  Distortion
	Mirror      Mirror
	Shift       Shift
	Color       ColorSpace
	Geometric   Geometric
	Perspective Perspective
}

// Identity is the combination that leaves images untouched.
var Identity = Combination{
	Photometric: PhotometricIdentity,
	Distortion:  DistortionIdentity,
	Mirror:      MirrorIdentity,
	Shift:       ShiftIdentity,
	Color:       ColorIdentity,
	Geometric:   GeometricIdentity,
}

func (c Combination) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s=%s %s=%s %s=%s %s=%s %s=%s %s=%s",
		FamilyPhotometric, c.Photometric,
		FamilyDistortion, c.Distortion,
		FamilyMirror, c.Mirror,
		FamilyShift, c.Shift,
		FamilyColorSpace, c.Color,
		FamilyGeometric, c.Geometric)
	if c.Perspective != "" {
		fmt.Fprintf(&sb, " %s=%s", FamilyPerspective, c.Perspective)
	}
	return sb.String()
}

// Count is the size of the base product (the optional perspective family is
// not part of it).
func Count() int {
	return len(PhotometricChoices) * len(DistortionChoices) * len(MirrorChoices) *
		len(ShiftChoices) * len(ColorChoices) * len(GeometricChoices)
}

// Combinations enumerates the full Cartesian product of the base families,
// duplicates included, with the photometric choice varying slowest.
func Combinations() []Combination {
	out := make([]Combination, 0, Count())
	for _, p := range PhotometricChoices {
		for _, d := range DistortionChoices {
			for _, m := range MirrorChoices {
				for _, s := range ShiftChoices {
					for _, c := range ColorChoices {
						for _, g := range GeometricChoices {
							out = append(out, Combination{
								Photometric: p,
								Distortion:  d,
								Mirror:      m,
								Shift:       s,
								Color:       c,
								Geometric:   g,
							})
						}
					}
				}
			}
		}
	}
	return out
}
