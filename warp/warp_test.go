package warp

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/b0tShaman/neuro-augment/data"
)

// --- Global Variables to prevent compiler optimizations ---
var resultBatch *data.Batch

func randomImages(rng *rand.Rand, size, height, width, channels int) *data.Batch {
	b := data.NewBatch(size, height, width, channels)
	for i := range b.Data() {
		b.Data()[i] = math.Round(rng.Float64() * 255)
	}
	return b
}

func constantImages(size, height, width, channels int, v float64) *data.Batch {
	b := data.NewBatch(size, height, width, channels)
	for i := range b.Data() {
		b.Data()[i] = v
	}
	return b
}

func assertShape(t *testing.T, want, got *data.Batch) {
	t.Helper()
	assert.True(t, want.SameShape(got), "shape %s, want %s", got, want)
}

// --- 1. Bilinear sampler ---

func TestSampleIdentity(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	src := randomImages(rng, 2, 5, 7, 3)
	out, err := Sample(src, IdentityCoords(2, 5, 7))
	require.NoError(t, err)
	assert.Equal(t, src.Data(), out.Data())
}

func TestSampleEdgeClamp(t *testing.T) {
	rng := rand.New(rand.NewPCG(3, 4))
	src := randomImages(rng, 1, 4, 6, 2)
	coords := data.NewBatchFromSlice(1, 1, 3, 2, []float64{
		-5, -5, // above and left of the frame
		100, 100, // below and right
		-0.5, 2, // half a pixel left of column 0
	})
	out, err := Sample(src, coords)
	require.NoError(t, err)
	assert.Equal(t, src.Pixel(0, 0, 0), out.Pixel(0, 0, 0))
	assert.Equal(t, src.Pixel(0, 3, 5), out.Pixel(0, 0, 1))
	assert.InDeltaSlice(t, src.Pixel(0, 2, 0), out.Pixel(0, 0, 2), 1e-9)
}

func TestSampleInterpolates(t *testing.T) {
	src := data.NewBatchFromSlice(1, 2, 2, 1, []float64{
		0, 10,
		20, 30,
	})
	coords := data.NewBatchFromSlice(1, 1, 2, 2, []float64{0.5, 0, 0.5, 0.5})
	out, err := Sample(src, coords)
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{5, 15}, out.Data(), 1e-12)
}

func TestSampleShapeErrors(t *testing.T) {
	src := data.NewBatch(2, 3, 3, 1)
	_, err := Sample(src, data.NewBatch(2, 3, 3, 3))
	assert.True(t, errors.Is(err, ErrInvalidShape))
	_, err = Sample(src, IdentityCoords(1, 3, 3))
	assert.True(t, errors.Is(err, ErrInvalidShape))
}

func TestSampleRejectsNonFiniteCoords(t *testing.T) {
	src := constantImages(2, 4, 4, 1, 5)
	for _, v := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		for _, idx := range []int{0, 1, 16*2 + 7} {
			coords := IdentityCoords(2, 4, 4)
			coords.Data()[idx] = v
			out, err := Sample(src, coords)
			assert.True(t, errors.Is(err, ErrInvalidParameter), "%v at %d", v, idx)
			assert.Nil(t, out)
		}
	}

	// Huge finite coordinates still clamp to the edge
	coords := IdentityCoords(2, 4, 4)
	coords.Data()[0], coords.Data()[1] = 1e300, -1e300
	_, err := Sample(src, coords)
	assert.NoError(t, err)
}

// --- 2. Elastic distortion ---

func TestDistortKeepsShape(t *testing.T) {
	rng := rand.New(rand.NewPCG(5, 6))
	for _, dims := range [][4]int{{1, 16, 16, 3}, {3, 20, 12, 1}, {2, 9, 31, 4}} {
		images := randomImages(rng, dims[0], dims[1], dims[2], dims[3])
		before := images.Clone()
		out, err := Distort(rng, images, 4, 3)
		require.NoError(t, err)
		assertShape(t, images, out)
		assert.Equal(t, before.Data(), images.Data(), "input modified")
	}
}

func TestDistortDeterministic(t *testing.T) {
	images := randomImages(rand.New(rand.NewPCG(7, 8)), 2, 24, 24, 3)
	a, err := Distort(rand.New(rand.NewPCG(42, 0)), images, 5, 4)
	require.NoError(t, err)
	b, err := Distort(rand.New(rand.NewPCG(42, 0)), images, 5, 4)
	require.NoError(t, err)
	assert.Equal(t, a.Data(), b.Data())

	c, err := Distort(rand.New(rand.NewPCG(43, 0)), images, 5, 4)
	require.NoError(t, err)
	assert.NotEqual(t, a.Data(), c.Data())
}

func TestDistortConstantImage(t *testing.T) {
	// Reflect padding plus edge clamping means no zeros can leak in
	images := constantImages(2, 15, 15, 1, 200)
	out, err := Distort(rand.New(rand.NewPCG(9, 9)), images, 3, 5)
	require.NoError(t, err)
	assert.InDelta(t, 200, out.Min(), 1e-9)
	assert.InDelta(t, 200, out.Max(), 1e-9)
}

func TestDistortErrors(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 1))
	_, err := Distort(rng, data.NewBatch(1, 8, 8, 1), 1, 2)
	assert.True(t, errors.Is(err, ErrInvalidParameter))
	_, err = Distort(rng, data.NewBatch(0, 8, 8, 1), 4, 2)
	assert.True(t, errors.Is(err, ErrInvalidShape))

	for _, sigma := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		for _, size := range []int{1, 3} {
			_, err = Distort(rng, constantImages(size, 8, 8, 1, 1), 3, sigma)
			assert.True(t, errors.Is(err, ErrInvalidParameter), "sigma %v, batch %d", sigma, size)
		}
	}

	// Negative sigma is a valid draw
	_, err = Distort(rng, constantImages(2, 8, 8, 1, 1), 3, -4)
	assert.NoError(t, err)
}

func TestAnchorGrid(t *testing.T) {
	x, y := AnchorGrid(rand.New(rand.NewPCG(1, 2)), 2, 3, 10, 20, 0)
	// Without noise the grid spans the frame corner to corner
	assert.Equal(t, []float64{0, 10, 20}, []float64{x.At(1, 2, 0, 0), x.At(1, 2, 1, 0), x.At(1, 2, 2, 0)})
	assert.Equal(t, []float64{0, 5, 10}, []float64{y.At(0, 0, 1, 0), y.At(0, 1, 1, 0), y.At(0, 2, 1, 0)})

	coords := CoordsFromAnchors(x, y, 10, 20)
	assert.Equal(t, 2, coords.Channels())
	assert.InDeltaSlice(t, []float64{20, 10}, coords.Pixel(0, 9, 19), 1e-9)
}

// --- 3. Transform builder ---

func TestMatrixInverse(t *testing.T) {
	m := ShearMatrix(0.3)
	inv, err := m.Inverse()
	require.NoError(t, err)
	prod := m.Mul(inv)
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			want := 0.0
			if i == j {
				want = 1
			}
			assert.InDelta(t, want, prod.At(i, j), 1e-12)
		}
	}

	_, err = NewMatrix([3][3]float64{{1, 2, 0}, {2, 4, 0}, {0, 0, 1}}).Inverse()
	assert.True(t, errors.Is(err, ErrDegenerateTransform))

	_, err = NewMatrix([3][3]float64{{1, 0, 0}, {0, 1, 0}, {1, 1, 0}}).Projective()
	assert.True(t, errors.Is(err, ErrDegenerateTransform))
}

func TestRotationMatrix(t *testing.T) {
	// A quarter turn counter-clockwise on screen sends +x to -y
	x, y := RotationMatrix(90, 0, 0).Apply(1, 0)
	assert.InDelta(t, 0, x, 1e-12)
	assert.InDelta(t, -1, y, 1e-12)

	// The centre is fixed
	x, y = RotationMatrix(33, 4, 7).Apply(4, 7)
	assert.InDelta(t, 4, x, 1e-12)
	assert.InDelta(t, 7, y, 1e-12)
}

func TestTransformZeroFill(t *testing.T) {
	images := constantImages(1, 4, 4, 2, 9)
	out, err := Transform(images, Projective{1, 0, 100, 0, 1, 0, 0, 0})
	require.NoError(t, err)
	assert.Equal(t, 0.0, out.Max())

	out, err = Transform(images, IdentityProjective)
	require.NoError(t, err)
	assert.Equal(t, images.Data(), out.Data())

	_, err = Transform(images, Projective{math.NaN(), 0, 0, 0, 1, 0, 0, 0})
	assert.True(t, errors.Is(err, ErrDegenerateTransform))
}

func TestShearZeroIsNoOp(t *testing.T) {
	rng := rand.New(rand.NewPCG(11, 12))
	images := randomImages(rng, 2, 9, 13, 3)
	for _, axis := range []Axis{AxisLeftRight, AxisTopDown} {
		out, err := Shear(images, 0, axis)
		require.NoError(t, err)
		assert.InDeltaSlice(t, images.Data(), out.Data(), 1e-9, axis.String())
	}
}

func TestShearKeepsShape(t *testing.T) {
	rng := rand.New(rand.NewPCG(13, 14))
	images := randomImages(rng, 2, 10, 17, 3)
	for _, axis := range []Axis{AxisLeftRight, AxisTopDown} {
		for _, f := range []float64{-0.125, -0.05, 0.05, 0.125, 0.4} {
			out, err := Shear(images, f, axis)
			require.NoError(t, err)
			assertShape(t, images, out)
		}
	}
	skewed, err := SkewLeftRight(images, 0.1, -0.07)
	require.NoError(t, err)
	assertShape(t, images, skewed)

	_, err = Shear(images, math.Inf(1), AxisLeftRight)
	assert.True(t, errors.Is(err, ErrInvalidParameter))
	_, err = Shear(images, 0.1, Axis(7))
	assert.True(t, errors.Is(err, ErrInvalidParameter))
}

// The crop window of a padded shear must map inside the padded source for
// every |λ| <= 0.125, so no zero fill reaches the output.
func TestShearPaddingSufficient(t *testing.T) {
	for _, dims := range [][2]int{{8, 8}, {10, 30}, {31, 7}, {1, 5}} {
		h, w := dims[0], dims[1]
		pad := ShearPadding(h, w)
		ph, pw := float64(h+4*pad), float64(w+4*pad)
		for _, f := range []float64{-0.125, -0.1, -0.05, 0.05, 0.1, 0.125} {
			inv, err := ShearMatrix(f).Inverse()
			require.NoError(t, err)
			p, err := inv.Projective()
			require.NoError(t, err)
			top, left := float64(2*pad), float64(2*pad)
			bottom, right := top+float64(h-1), left+float64(w-1)
			for _, c := range [][2]float64{{left, top}, {right, top}, {right, bottom}, {left, bottom}} {
				sx, sy := p.Apply(c[0], c[1])
				assert.True(t, sx >= 0 && sx <= pw-1, "x=%v outside [0,%v] for λ=%v %dx%d", sx, pw-1, f, h, w)
				assert.True(t, sy >= 0 && sy <= ph-1, "y=%v outside [0,%v] for λ=%v %dx%d", sy, ph-1, f, h, w)
			}
		}
	}

	// Behavioural check: a constant image stays constant
	images := constantImages(1, 12, 20, 3, 77)
	for _, axis := range []Axis{AxisLeftRight, AxisTopDown} {
		for _, f := range []float64{-0.125, 0.125} {
			out, err := Shear(images, f, axis)
			require.NoError(t, err)
			assert.InDelta(t, 77, out.Min(), 1e-9)
			assert.InDelta(t, 77, out.Max(), 1e-9)
		}
	}
}

func TestRotate(t *testing.T) {
	rng := rand.New(rand.NewPCG(15, 16))
	images := randomImages(rng, 2, 9, 9, 2)

	out, err := Rotate(images, 0)
	require.NoError(t, err)
	assert.InDeltaSlice(t, images.Data(), out.Data(), 1e-9)

	// A quarter turn of a square image matches the exact array rotation
	out, err = Rotate(images, 90)
	require.NoError(t, err)
	assert.InDeltaSlice(t, data.Rot90(images, 1).Data(), out.Data(), 1e-6)

	wide := randomImages(rng, 1, 6, 14, 3)
	out, err = Rotate(wide, -27)
	require.NoError(t, err)
	assertShape(t, wide, out)
}

func TestRotateCoversNonSquareFrames(t *testing.T) {
	// No zero fill reaches the crop at any angle or aspect ratio
	for _, dims := range [][2]int{{20, 40}, {6, 14}, {40, 20}, {9, 9}, {1, 12}} {
		images := constantImages(1, dims[0], dims[1], 2, 200)
		for _, deg := range []float64{-35, 35, 45, 90, 135} {
			out, err := Rotate(images, deg)
			require.NoError(t, err)
			assertShape(t, images, out)
			assert.InDelta(t, 200, out.Min(), 1e-9, "%v at %v°", dims, deg)
			assert.InDelta(t, 200, out.Max(), 1e-9, "%v at %v°", dims, deg)
		}
	}
}

func TestWarperWorkers(t *testing.T) {
	images := randomImages(rand.New(rand.NewPCG(21, 22)), 4, 16, 20, 3)
	serial := Warper{Workers: 1}

	a, err := serial.Distort(rand.New(rand.NewPCG(3, 3)), images, 4, 3)
	require.NoError(t, err)
	b, err := Distort(rand.New(rand.NewPCG(3, 3)), images, 4, 3)
	require.NoError(t, err)
	assert.Equal(t, a.Data(), b.Data())

	a, err = serial.Shear(images, 0.1, AxisTopDown)
	require.NoError(t, err)
	b, err = Warper{Workers: 3}.Shear(images, 0.1, AxisTopDown)
	require.NoError(t, err)
	assert.Equal(t, a.Data(), b.Data())

	a, err = serial.Perspective(rand.New(rand.NewPCG(4, 4)), images, SkewCorner, 1)
	require.NoError(t, err)
	b, err = Perspective(rand.New(rand.NewPCG(4, 4)), images, SkewCorner, 1)
	require.NoError(t, err)
	assert.Equal(t, a.Data(), b.Data())
}

func TestShift(t *testing.T) {
	images := data.NewBatchFromSlice(1, 1, 5, 1, []float64{1, 2, 3, 4, 5})
	out, err := Shift(images, 2, 0)
	require.NoError(t, err)
	// Content moves right; the vacated columns are reflected
	assert.Equal(t, []float64{3, 2, 1, 2, 3}, out.Data())

	out, err = Shift(images, -1, 0)
	require.NoError(t, err)
	assert.Equal(t, []float64{2, 3, 4, 5, 4}, out.Data())

	out, err = Shift(images, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, images.Data(), out.Data())
}

func TestPaddingMargins(t *testing.T) {
	assert.Equal(t, 42, RotationPadding(100, 200))
	assert.Equal(t, 1, RotationPadding(1, 1))
	assert.Equal(t, 14, CoverPadding(20, 40))
	assert.Equal(t, 14, CoverPadding(40, 20))
	assert.Equal(t, 3, CoverPadding(9, 9))
	assert.Equal(t, 100, ShearPadding(50, 200))
	assert.Equal(t, 4, ShearPadding(7, 3))
}

// --- 4. Benchmarks ---

func benchSample(b *testing.B, size int) {
	rng := rand.New(rand.NewPCG(1, 2))
	images := randomImages(rng, 4, size, size, 3)
	coords := IdentityCoords(4, size, size)
	for i := range coords.Data() {
		coords.Data()[i] += rng.Float64() - 0.5
	}
	b.ResetTimer()
	for n := 0; n < b.N; n++ {
		resultBatch, _ = Sample(images, coords)
	}
}

func BenchmarkSample_64(b *testing.B)  { benchSample(b, 64) }
func BenchmarkSample_256(b *testing.B) { benchSample(b, 256) }

func benchDistort(b *testing.B, size int) {
	rng := rand.New(rand.NewPCG(1, 2))
	images := randomImages(rng, 4, size, size, 3)
	b.ResetTimer()
	for n := 0; n < b.N; n++ {
		resultBatch, _ = Distort(rng, images, size/8, 3)
	}
}

func BenchmarkDistort_64(b *testing.B)  { benchDistort(b, 64) }
func BenchmarkDistort_256(b *testing.B) { benchDistort(b, 256) }

func benchShear(b *testing.B, size int, axis Axis) {
	rng := rand.New(rand.NewPCG(1, 2))
	images := randomImages(rng, 4, size, size, 3)
	b.ResetTimer()
	for n := 0; n < b.N; n++ {
		resultBatch, _ = Shear(images, 0.1, axis)
	}
}

func BenchmarkShear_LeftRight_64(b *testing.B)  { benchShear(b, 64, AxisLeftRight) }
func BenchmarkShear_TopDown_64(b *testing.B)    { benchShear(b, 64, AxisTopDown) }
func BenchmarkShear_LeftRight_256(b *testing.B) { benchShear(b, 256, AxisLeftRight) }
func BenchmarkShear_TopDown_256(b *testing.B)   { benchShear(b, 256, AxisTopDown) }
