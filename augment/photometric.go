package augment

import (
	"image"

	"github.com/disintegration/imaging"
	"github.com/fogleman/gg"
	"k8s.io/klog/v2"

	"github.com/b0tShaman/neuro-augment/data"
)

// The photometric leaves run on 8-bit images, so their output is quantised to
// whole intensity steps.

// randomBrightness adds one delta in [-BrightnessMaxDelta, BrightnessMaxDelta]
// to every channel of every image.
func (c *Composer) randomBrightness(images *data.Batch) (*data.Batch, error) {
	delta := c.uniform(-c.cfg.BrightnessMaxDelta, c.cfg.BrightnessMaxDelta)
	klog.V(2).Infof("brightness: %+.1f", delta)
	// imaging shifts by 255·pct/100
	pct := delta / data.ByteMax * 100
	return c.mapImages(images, func(img *image.NRGBA) *image.NRGBA {
		return imaging.AdjustBrightness(img, pct)
	})
}

// randomContrast scales the distance from mid-grey by a factor drawn from
// ContrastFactor.
func (c *Composer) randomContrast(images *data.Batch) (*data.Batch, error) {
	factor := c.uniform(c.cfg.ContrastFactor[0], c.cfg.ContrastFactor[1])
	klog.V(2).Infof("contrast: x%.3f", factor)
	pct := contrastPercent(factor)
	return c.mapImages(images, func(img *image.NRGBA) *image.NRGBA {
		return imaging.AdjustContrast(img, pct)
	})
}

// contrastPercent inverts imaging's contrast curve: the slope is v for
// v = 1+pct/100 <= 1 and 1/(2-v) above that.
func contrastPercent(factor float64) float64 {
	if factor <= 1 {
		return (factor - 1) * 100
	}
	return (1 - 1/factor) * 100
}

func (c *Composer) randomSaturation(images *data.Batch) (*data.Batch, error) {
	factor := c.uniform(c.cfg.SaturationFactor[0], c.cfg.SaturationFactor[1])
	klog.V(2).Infof("saturation: x%.3f", factor)
	pct := (factor - 1) * 100
	return c.mapImages(images, func(img *image.NRGBA) *image.NRGBA {
		return imaging.AdjustSaturation(img, pct)
	})
}

// mapImages pushes every element of images through fn as an 8-bit image.
// Channel counts an image cannot carry pass through unchanged.
func (c *Composer) mapImages(images *data.Batch, fn func(*image.NRGBA) *image.NRGBA) (*data.Batch, error) {
	if !imageChannels(images.Channels()) {
		klog.Warningf("photometric leaf skipped: %d channels cannot be rendered as an image", images.Channels())
		return images.Clone(), nil
	}
	out := data.NewBatchLike(images)
	err := data.ForEach(images.Size(), c.cfg.Workers, func(n int) error {
		img, err := data.ToImage(images, n)
		if err != nil {
			return err
		}
		return data.WriteImage(out, n, fn(img))
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func imageChannels(channels int) bool {
	return channels == 1 || channels == 3 || channels == 4
}

// ------- ADDITIVE SHADE ------ //

type ellipse struct {
	cx, cy, rx, ry float64
	angle          float64 // degrees
}

type shade struct {
	ellipses     []ellipse
	transparency float64
	sigma        float64
}

// drawShade picks the ellipses and blur of one shade mask for a width×height
// frame.
func (c *Composer) drawShade(width, height int) shade {
	minDim := float64(min(width, height)) / 4
	s := shade{ellipses: make([]ellipse, c.cfg.ShadeEllipses)}
	for i := range s.ellipses {
		rx := float64(int(max(c.rng.Float64()*minDim, minDim/5)))
		ry := float64(int(max(c.rng.Float64()*minDim, minDim/5)))
		maxRad := int(max(rx, ry))
		s.ellipses[i] = ellipse{
			cx:    float64(c.centre(maxRad, width)),
			cy:    float64(c.centre(maxRad, height)),
			rx:    rx,
			ry:    ry,
			angle: c.rng.Float64() * 90,
		}
	}
	s.transparency = c.uniform(c.cfg.ShadeTransparency[0], c.cfg.ShadeTransparency[1])

	kernel := c.cfg.ShadeKernel[0]
	if span := c.cfg.ShadeKernel[1] - c.cfg.ShadeKernel[0]; span > 0 {
		kernel += c.rng.IntN(span)
	}
	if kernel%2 == 0 {
		kernel++
	}
	// Sigma a Gaussian kernel of this size gets when none is given
	s.sigma = 0.3*(float64(kernel-1)*0.5-1) + 0.8
	return s
}

// centre draws a centre coordinate in [margin, size-margin), or the middle of
// the frame when the ellipse does not fit.
func (c *Composer) centre(margin, size int) int {
	if size-margin <= margin {
		return size / 2
	}
	return margin + c.rng.IntN(size-2*margin)
}

// mask rasterises the ellipses in white on black and blurs them. The red
// channel of the result holds the mask in 0..255.
func (s shade) mask(width, height int) *image.NRGBA {
	dc := gg.NewContext(width, height)
	dc.SetRGB(0, 0, 0)
	dc.Clear()
	dc.SetRGB(1, 1, 1)
	for _, e := range s.ellipses {
		dc.Push()
		dc.RotateAbout(gg.Radians(e.angle), e.cx, e.cy)
		dc.DrawEllipse(e.cx, e.cy, e.rx, e.ry)
		dc.Fill()
		dc.Pop()
	}
	return imaging.Blur(dc.Image(), s.sigma)
}

// additiveShade darkens (or, for negative transparency, brightens) each image
// under a blurred mask of random ellipses: v·(1 - t·mask/255).
func (c *Composer) additiveShade(images *data.Batch) (*data.Batch, error) {
	size, h, w, channels := images.Shape()

	// 1. Draw every mask up front so the result does not depend on scheduling
	shades := make([]shade, size)
	for n := range shades {
		shades[n] = c.drawShade(w, h)
		klog.V(2).Infof("shade[%d]: %d ellipses, transparency %.2f, sigma %.1f",
			n, len(shades[n].ellipses), shades[n].transparency, shades[n].sigma)
	}

	// 2. Rasterise and apply per element
	colour := channels
	if channels == 4 {
		colour = 3 // leave alpha alone
	}
	out := images.Clone()
	err := data.ForEach(size, c.cfg.Workers, func(n int) error {
		s := shades[n]
		m := s.mask(w, h)
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				k := 1 - s.transparency*float64(m.Pix[m.PixOffset(x, y)])/data.ByteMax
				px := out.Pixel(n, y, x)
				for ch := 0; ch < colour; ch++ {
					px[ch] *= k
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	out.Clip(0, data.ByteMax)
	return out, nil
}
