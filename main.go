package main

import (
	"flag"
	"fmt"
	"image"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"k8s.io/klog/v2"

	"github.com/b0tShaman/neuro-augment/augment"
	"github.com/b0tShaman/neuro-augment/data"
	"github.com/b0tShaman/neuro-augment/warp"
)

var ranges = map[string]data.Range{
	"auto": data.RangeAuto,
	"unit": data.RangeUnit,
	"byte": data.RangeByte,
}

// -------- MAIN -------- //
func main() {
	defer klog.Flush()
	if err := newApp().Run(os.Args); err != nil {
		klog.Errorf("%+v", err)
		klog.Flush()
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "neuro-augment",
		Usage: "write randomly augmented variants of an image",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "input", Aliases: []string{"i"}, Required: true, Usage: "image to augment"},
			&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Value: "augmented", Usage: "output directory"},
			&cli.IntFlag{Name: "count", Aliases: []string{"n"}, Value: 8, Usage: "number of variants"},
			&cli.IntFlag{Name: "size", Value: 0, Usage: "resize to size×size first (0 keeps the image size)"},
			&cli.IntFlag{Name: "channels", Value: 3, Usage: "1 (grayscale), 3 (RGB) or 4 (RGBA)"},
			&cli.Uint64Flag{Name: "seed", Value: 1, Usage: "random seed"},
			&cli.StringFlag{Name: "range", Value: "auto", Usage: "pixel convention: auto, unit or byte"},
			&cli.BoolFlag{Name: "perspective", Usage: "enable the rotation / corner-skew family"},
			&cli.StringFlag{Name: "skew-mode", Value: warp.SkewAny.String(), Usage: "any, tilt, tilt-left-right, tilt-top-bottom or corner"},
			&cli.Float64Flag{Name: "skew-magnitude", Value: 1, Usage: "corner displacement scale"},
			&cli.IntFlag{Name: "workers", Value: 0, Usage: "per-image fan-out (0 = GOMAXPROCS)"},
			&cli.IntFlag{Name: "v", Value: 0, Usage: "log verbosity"},
		},
		Before: initLogging,
		Action: run,
	}
}

// initLogging forwards --v to klog, which keeps its settings in a flag set.
func initLogging(c *cli.Context) error {
	fs := flag.NewFlagSet("klog", flag.ContinueOnError)
	klog.InitFlags(fs)
	return fs.Set("v", strconv.Itoa(c.Int("v")))
}

func run(c *cli.Context) error {
	// 1. Load the image as a one-element batch in [0,255]
	input := c.String("input")
	src, err := imaging.Open(input)
	if err != nil {
		return errors.Wrapf(err, "opening %s", input)
	}
	batch, err := loadBatch(src, c.Int("size"), c.Int("channels"))
	if err != nil {
		return err
	}

	// 2. Configure the composer
	r, ok := ranges[c.String("range")]
	if !ok {
		return errors.Errorf("unknown range %q, want auto, unit or byte", c.String("range"))
	}
	opts := []augment.Option{augment.WithRange(r), augment.WithWorkers(c.Int("workers"))}
	if c.Bool("perspective") {
		mode, err := warp.ParseSkewMode(c.String("skew-mode"))
		if err != nil {
			return err
		}
		opts = append(opts, augment.WithPerspective(mode, c.Float64("skew-magnitude")))
	}
	seed := c.Uint64("seed")
	composer, err := augment.New(rand.New(rand.NewPCG(seed, seed)), opts...)
	if err != nil {
		return err
	}
	if r == data.RangeUnit {
		batch.ApplyFunc(func(v float64) float64 { return v / data.ByteMax })
	}

	// 3. Augment and save
	outDir := c.String("out")
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return errors.Wrapf(err, "creating %s", outDir)
	}
	stem := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
	klog.Infof("augmenting %s as %s, %d variants into %s", input, batch, c.Int("count"), outDir)
	for i := 0; i < c.Int("count"); i++ {
		out, combo, err := composer.Compose(batch)
		if err != nil {
			return errors.WithMessagef(err, "variant %d", i)
		}
		if r == data.RangeUnit {
			out.Scale(data.ByteMax)
		}
		img, err := data.ToImage(out, 0)
		if err != nil {
			return err
		}
		path := filepath.Join(outDir, fmt.Sprintf("%s_%03d.png", stem, i))
		if err := imaging.Save(img, path); err != nil {
			return errors.Wrapf(err, "saving %s", path)
		}
		klog.V(1).Infof("%s: %s", path, combo)
	}
	return nil
}

func loadBatch(src image.Image, size, channels int) (*data.Batch, error) {
	if size > 0 {
		return data.FromImages([]image.Image{src}, size, size, channels)
	}
	return data.FromImage(src, channels)
}
