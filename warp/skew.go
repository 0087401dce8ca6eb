package warp

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
	"k8s.io/klog/v2"

	"github.com/b0tShaman/neuro-augment/data"
)

// SkewMode selects which corners of the frame a perspective skew displaces.
type SkewMode int

const (
	// SkewAny picks one of the other modes uniformly at random.
	SkewAny SkewMode = iota
	// SkewTilt tilts left, right, forward or backward.
	SkewTilt
	// SkewTiltLeftRight tilts left or right only.
	SkewTiltLeftRight
	// SkewTiltTopBottom tilts forward or backward only.
	SkewTiltTopBottom
	// SkewCorner moves a single corner along one axis.
	SkewCorner
)

var skewModeNames = map[SkewMode]string{
	SkewAny:           "any",
	SkewTilt:          "tilt",
	SkewTiltLeftRight: "tilt-left-right",
	SkewTiltTopBottom: "tilt-top-bottom",
	SkewCorner:        "corner",
}

func (m SkewMode) String() string {
	if name, ok := skewModeNames[m]; ok {
		return name
	}
	return fmt.Sprintf("SkewMode(%d)", int(m))
}

// ParseSkewMode is the inverse of SkewMode.String.
func ParseSkewMode(name string) (SkewMode, error) {
	for mode, n := range skewModeNames {
		if n == name {
			return mode, nil
		}
	}
	return 0, errors.Wrapf(ErrInvalidParameter, "unknown skew mode %q", name)
}

// Point is a position in pixel coordinates.
type Point struct {
	X, Y float64
}

// Plane is the four corners of a quadrilateral in the order top-left,
// top-right, bottom-right, bottom-left.
type Plane [4]Point

// Rect returns the corners of a width×height frame.
func Rect(width, height int) Plane {
	w, h := float64(width), float64(height)
	return Plane{{0, 0}, {w, 0}, {w, h}, {0, h}}
}

// pinvRcond is the relative singular-value cutoff, numpy's pinv default for
// an 8×8 system.
const pinvRcond = 1e-15 * 8

// SolveProjective returns the coefficients that map each point of from onto
// the matching point of to.
//
// The 8×8 system (two rows per correspondence) is solved in the least-squares,
// minimum-norm sense through the SVD pseudo-inverse. A rank-deficient system or
// non-finite result is reported as ErrDegenerateTransform rather than handed
// back as a silently collapsed transform.
func SolveProjective(from, to Plane) (Projective, error) {
	a := mat.NewDense(8, 8, nil)
	b := mat.NewVecDense(8, nil)
	for i := range from {
		p, q := from[i], to[i]
		r := 2 * i
		// x' = (a0 x + a1 y + a2) / (a6 x + a7 y + 1)
		a.SetRow(r, []float64{p.X, p.Y, 1, 0, 0, 0, -q.X * p.X, -q.X * p.Y})
		b.SetVec(r, q.X)
		// y' = (a3 x + a4 y + a5) / (a6 x + a7 y + 1)
		a.SetRow(r+1, []float64{0, 0, 0, p.X, p.Y, 1, -q.Y * p.X, -q.Y * p.Y})
		b.SetVec(r+1, q.Y)
	}

	var svd mat.SVD
	if ok := svd.Factorize(a, mat.SVDFull); !ok {
		return Projective{}, errors.Wrapf(ErrDegenerateTransform, "SVD failed for %v -> %v", from, to)
	}
	rank := svd.Rank(pinvRcond)
	if rank < 8 {
		klog.Warningf("skew solve is rank deficient (rank %d) for %v -> %v", rank, from, to)
		return Projective{}, errors.Wrapf(ErrDegenerateTransform, "rank %d system for %v -> %v", rank, from, to)
	}

	var x mat.VecDense
	svd.SolveVecTo(&x, b, rank)

	var p Projective
	for i := range p {
		p[i] = x.AtVec(i)
	}
	if !allFinite(p[:]) {
		return Projective{}, errors.Wrapf(ErrDegenerateTransform, "non-finite coefficients %v", p)
	}
	return p, nil
}

// SkewPlane displaces the corners of a width×height frame according to mode.
// It returns the displaced plane and the mode that was actually used (SkewAny
// resolves to a concrete mode).
func SkewPlane(rng *rand.Rand, width, height int, mode SkewMode, magnitude float64) (Plane, SkewMode, error) {
	if width <= 0 || height <= 0 {
		return Plane{}, mode, errors.Wrapf(ErrInvalidParameter, "frame %dx%d", width, height)
	}
	if !(magnitude > 0) || math.IsInf(magnitude, 0) {
		return Plane{}, mode, errors.Wrapf(ErrInvalidParameter, "skew magnitude %v must be > 0", magnitude)
	}
	if _, ok := skewModeNames[mode]; !ok {
		return Plane{}, mode, errors.Wrapf(ErrInvalidParameter, "unknown skew mode %v", mode)
	}

	maxSkew := int(math.Ceil(float64(max(width, height)/5) * magnitude))
	if maxSkew < 1 {
		maxSkew = 1
	}
	amount := float64(1 + rng.IntN(maxSkew))

	if mode == SkewAny {
		mode = SkewTilt + SkewMode(rng.IntN(4))
	}

	// Corners of the plane
	w, h := float64(width), float64(height)
	tl, tr, br, bl := Point{0, 0}, Point{w, 0}, Point{w, h}, Point{0, h}

	switch mode {
	case SkewTilt, SkewTiltLeftRight, SkewTiltTopBottom:
		var direction int
		switch mode {
		case SkewTilt:
			direction = rng.IntN(4)
		case SkewTiltLeftRight:
			direction = rng.IntN(2)
		default:
			direction = 2 + rng.IntN(2)
		}
		switch direction {
		case 0: // left
			tl.Y -= amount
			bl.Y += amount
		case 1: // right
			tr.Y -= amount
			br.Y += amount
		case 2: // forward
			tl.X -= amount
			tr.X += amount
		case 3: // backward
			br.X += amount
			bl.X -= amount
		}
	case SkewCorner:
		switch rng.IntN(8) {
		case 0:
			tl.X -= amount
		case 1:
			tl.Y -= amount
		case 2:
			tr.X += amount
		case 3:
			tr.Y -= amount
		case 4:
			br.X += amount
		case 5:
			br.Y += amount
		case 6:
			bl.X -= amount
		case 7:
			bl.Y += amount
		}
	}
	return Plane{tl, tr, br, bl}, mode, nil
}

// SolveSkew draws a random corner displacement of a width×height frame and
// returns the coefficients that map the displaced plane back onto the frame,
// which is what Transform expects, together with the displaced plane.
//
// The displacement is an integer in [1, ceil((max(w,h)/5)·magnitude)].
func SolveSkew(rng *rand.Rand, width, height int, mode SkewMode, magnitude float64) (Projective, Plane, error) {
	plane, resolved, err := SkewPlane(rng, width, height, mode, magnitude)
	if err != nil {
		return Projective{}, Plane{}, err
	}
	klog.V(2).Infof("skew %s: %v", resolved, plane)
	p, err := SolveProjective(plane, Rect(width, height))
	if err != nil {
		return Projective{}, plane, err
	}
	return p, plane, nil
}

// Perspective applies a random corner-displacement skew to every image of the
// batch. The frame size is kept; uncovered regions are zero.
func (wp Warper) Perspective(rng *rand.Rand, images *data.Batch, mode SkewMode, magnitude float64) (*data.Batch, error) {
	if err := checkImages(images); err != nil {
		return nil, err
	}
	p, _, err := SolveSkew(rng, images.Width(), images.Height(), mode, magnitude)
	if err != nil {
		return nil, err
	}
	return wp.Transform(images, p)
}
