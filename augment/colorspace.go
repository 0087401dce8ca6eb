package augment

import (
	"math"

	"github.com/lucasb-eyer/go-colorful"
	"k8s.io/klog/v2"

	"github.com/b0tShaman/neuro-augment/data"
)

// colorModel is the space a color jitter is applied in.
type colorModel int

const (
	modelHSV colorModel = iota
	modelHSL
	modelLab
)

func (m colorModel) String() string {
	return [...]string{"hsv", "hsl", "lab"}[m]
}

// colorJitter is one draw of the color-space transform.
type colorJitter struct {
	model     colorModel
	hue       float64 // degrees
	chroma    float64
	lightness float64
}

// apply jitters a single RGB color with components in [0,1].
func (j colorJitter) apply(c colorful.Color) colorful.Color {
	switch j.model {
	case modelHSV:
		h, s, v := c.Hsv()
		return colorful.Hsv(wrapHue(h+j.hue), clamp01(s*j.chroma), clamp01(v*j.lightness))
	case modelHSL:
		h, s, l := c.Hsl()
		return colorful.Hsl(wrapHue(h+j.hue), clamp01(s*j.chroma), clamp01(l*j.lightness))
	default:
		// Hue rotation in Lab turns the a*/b* plane
		l, a, b := c.Lab()
		sin, cos := math.Sincos(j.hue * math.Pi / 180)
		a, b = a*cos-b*sin, a*sin+b*cos
		return colorful.Lab(l*j.lightness, a*j.chroma, b*j.chroma)
	}
}

// colorSpaceTransform converts every RGB pixel to a randomly chosen color
// space (HSV, HSL or CIE Lab), jitters hue, chroma and lightness there, and
// converts back. Batches without three color channels pass through.
func (c *Composer) colorSpaceTransform(images *data.Batch) (*data.Batch, error) {
	channels := images.Channels()
	if channels != 3 && channels != 4 {
		klog.Warningf("color space transform skipped: needs RGB, batch has %d channels", channels)
		return images.Clone(), nil
	}

	j := colorJitter{
		model:     colorModel(c.rng.IntN(3)),
		hue:       c.uniform(-c.cfg.HueShift, c.cfg.HueShift),
		chroma:    c.uniform(c.cfg.ChromaScale[0], c.cfg.ChromaScale[1]),
		lightness: c.uniform(c.cfg.LightnessScale[0], c.cfg.LightnessScale[1]),
	}
	klog.V(2).Infof("color space %s: hue %+.1f°, chroma x%.2f, lightness x%.2f", j.model, j.hue, j.chroma, j.lightness)

	out := images.Clone()
	_, h, w, _ := images.Shape()
	err := data.ForEach(images.Size(), c.cfg.Workers, func(n int) error {
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				px := out.Pixel(n, y, x)
				rgb := colorful.Color{R: px[0] / data.ByteMax, G: px[1] / data.ByteMax, B: px[2] / data.ByteMax}
				rgb = j.apply(rgb.Clamped()).Clamped()
				px[0], px[1], px[2] = rgb.R*data.ByteMax, rgb.G*data.ByteMax, rgb.B*data.ByteMax
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func wrapHue(h float64) float64 {
	h = math.Mod(h, 360)
	if h < 0 {
		h += 360
	}
	return h
}

func clamp01(v float64) float64 {
	return math.Min(math.Max(v, 0), 1)
}
