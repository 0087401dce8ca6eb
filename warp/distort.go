package warp

import (
	"math"
	"math/rand/v2"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/stat/distuv"
	"k8s.io/klog/v2"

	"github.com/b0tShaman/neuro-augment/data"
)

// Distort applies a smooth random warp, similar in look to an elastic
// deformation but much cheaper.
//
// A numAnchors×numAnchors grid of control points spanning the (reflect-padded)
// frame is jittered with Gaussian noise of standard deviation perturbSigma,
// upsampled bilinearly to a dense coordinate map and used to resample the
// images. More anchors give more local warps; a larger sigma gives stronger
// displacement. The output has the shape of images.
func (wp Warper) Distort(rng *rand.Rand, images *data.Batch, numAnchors int, perturbSigma float64) (*data.Batch, error) {
	if err := checkImages(images); err != nil {
		return nil, err
	}
	if numAnchors < 2 {
		return nil, errors.Wrapf(ErrInvalidParameter, "numAnchors = %d, need at least 2", numAnchors)
	}
	if math.IsNaN(perturbSigma) || math.IsInf(perturbSigma, 0) {
		return nil, errors.Wrapf(ErrInvalidParameter, "perturbSigma = %v", perturbSigma)
	}

	size, srcH, srcW, _ := images.Shape()
	pad := RotationPadding(srcH, srcW)
	padded := data.PadReflect(images, pad)
	height, width := padded.Height(), padded.Width()

	anchorsX, anchorsY := AnchorGrid(rng, size, numAnchors, height, width, perturbSigma)
	coords := CoordsFromAnchors(anchorsX, anchorsY, height, width)
	klog.V(2).Infof("distort: %s with %d² anchors, sigma %.2f, pad %d", images, numAnchors, perturbSigma, pad)

	warped, err := wp.Sample(padded, coords)
	if err != nil {
		return nil, errors.WithMessage(err, "distort")
	}
	return data.Crop(warped, pad, pad, srcH, srcW), nil
}

// AnchorGrid returns the perturbed anchor positions, shaped [size, N, N, 1],
// for the x and y axes. The base grid is N evenly spaced values from 0 to width
// (columns) and from 0 to height (rows); every anchor gets independent
// N(0, sigma²) noise per axis. All x noise is drawn before any y noise.
func AnchorGrid(rng *rand.Rand, size, numAnchors, height, width int, sigma float64) (x, y *data.Batch) {
	noise := distuv.Normal{Mu: 0, Sigma: sigma, Src: rng}
	baseX := linspace(0, float64(width), numAnchors)
	baseY := linspace(0, float64(height), numAnchors)

	x = data.NewBatch(size, numAnchors, numAnchors, 1)
	y = data.NewBatch(size, numAnchors, numAnchors, 1)
	for n := 0; n < size; n++ {
		for i := 0; i < numAnchors; i++ {
			for j := 0; j < numAnchors; j++ {
				x.Set(n, i, j, 0, baseX[j]+noise.Rand())
			}
		}
	}
	for n := 0; n < size; n++ {
		for i := 0; i < numAnchors; i++ {
			for j := 0; j < numAnchors; j++ {
				y.Set(n, i, j, 0, baseY[i]+noise.Rand())
			}
		}
	}
	return x, y
}

// CoordsFromAnchors upsamples the anchor grids (corner-aligned bilinear) into a
// [size, height, width, 2] coordinate map.
func CoordsFromAnchors(anchorsX, anchorsY *data.Batch, height, width int) *data.Batch {
	mapX := data.ResizeBilinear(anchorsX, height, width, true)
	mapY := data.ResizeBilinear(anchorsY, height, width, true)

	coords := data.NewBatch(anchorsX.Size(), height, width, 2)
	cd, xd, yd := coords.Data(), mapX.Data(), mapY.Data()
	for i := range xd {
		cd[2*i] = xd[i]
		cd[2*i+1] = yd[i]
	}
	return coords
}

func linspace(start, stop float64, num int) []float64 {
	out := make([]float64, num)
	if num == 1 {
		out[0] = start
		return out
	}
	step := (stop - start) / float64(num-1)
	for i := range out {
		out[i] = start + float64(i)*step
	}
	out[num-1] = stop
	return out
}
