package warp

import (
	"fmt"
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// Matrix is a 3×3 homogeneous transform acting on (x, y, 1) pixel
// coordinates.
type Matrix struct {
	data  []float64
	dense *mat.Dense
}

// Projective is the flattened 8-coefficient form of a transform that maps an
// output pixel (x, y) to the source position
//
//	((a0*x + a1*y + a2) / k, (a3*x + a4*y + a5) / k),  k = a6*x + a7*y + 1
type Projective [8]float64

// IdentityProjective leaves every pixel where it is.
var IdentityProjective = Projective{1, 0, 0, 0, 1, 0, 0, 0}

// -------- CONSTRUCTORS ------- //
func NewMatrix(rows [3][3]float64) *Matrix {
	data := make([]float64, 0, 9)
	for _, row := range rows {
		data = append(data, row[:]...)
	}
	return &Matrix{data: data, dense: mat.NewDense(3, 3, data)}
}

func Identity() *Matrix {
	return NewMatrix([3][3]float64{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}})
}

// ShearMatrix shears x proportionally to y: x' = x + factor*y.
func ShearMatrix(factor float64) *Matrix {
	return NewMatrix([3][3]float64{
		{1, factor, 0},
		{0, 1, 0},
		{0, 0, 1},
	})
}

// TranslationMatrix moves every point by (dx, dy).
func TranslationMatrix(dx, dy float64) *Matrix {
	return NewMatrix([3][3]float64{
		{1, 0, dx},
		{0, 1, dy},
		{0, 0, 1},
	})
}

// RotationMatrix rotates counter-clockwise (as seen on screen, y pointing
// down) by degrees around (cx, cy).
func RotationMatrix(degrees, cx, cy float64) *Matrix {
	sin, cos := math.Sincos(-degrees * math.Pi / 180)
	rot := NewMatrix([3][3]float64{
		{cos, -sin, 0},
		{sin, cos, 0},
		{0, 0, 1},
	})
	return TranslationMatrix(cx, cy).Mul(rot).Mul(TranslationMatrix(-cx, -cy))
}

// ------- MATRIX METHODS ------ //
func (m *Matrix) At(i, j int) float64 {
	return m.dense.At(i, j)
}

// Mul returns m·o, the transform that applies o first and then m.
func (m *Matrix) Mul(o *Matrix) *Matrix {
	out := Identity()
	out.dense.Mul(m.dense, o.dense)
	return out
}

// Apply maps the point (x, y) through m with the homogeneous divide.
func (m *Matrix) Apply(x, y float64) (float64, float64) {
	d := m.data
	k := d[6]*x + d[7]*y + d[8]
	return (d[0]*x + d[1]*y + d[2]) / k, (d[3]*x + d[4]*y + d[5]) / k
}

// Inverse returns m⁻¹, or ErrDegenerateTransform when m is singular.
func (m *Matrix) Inverse() (*Matrix, error) {
	out := Identity()
	if err := out.dense.Inverse(m.dense); err != nil {
		return nil, errors.Wrapf(ErrDegenerateTransform, "inverting %v: %v", m, err)
	}
	if !allFinite(out.data) {
		return nil, errors.Wrapf(ErrDegenerateTransform, "inverse of %v is not finite", m)
	}
	return out, nil
}

// Projective flattens m by normalising m[2][2] to 1 and dropping it.
func (m *Matrix) Projective() (Projective, error) {
	scale := m.data[8]
	if scale == 0 || !allFinite(m.data) {
		return Projective{}, errors.Wrapf(ErrDegenerateTransform, "cannot flatten %v", m)
	}
	var p Projective
	for i := range p {
		p[i] = m.data[i] / scale
	}
	return p, nil
}

func (m *Matrix) String() string {
	return fmt.Sprintf("%v", mat.Formatted(m.dense, mat.Squeeze()))
}

// Apply maps an output pixel to its source position.
func (p Projective) Apply(x, y float64) (float64, float64) {
	k := p[6]*x + p[7]*y + 1
	return (p[0]*x + p[1]*y + p[2]) / k, (p[3]*x + p[4]*y + p[5]) / k
}

// Matrix expands p back to 3×3 form.
func (p Projective) Matrix() *Matrix {
	return NewMatrix([3][3]float64{
		{p[0], p[1], p[2]},
		{p[3], p[4], p[5]},
		{p[6], p[7], 1},
	})
}

func allFinite(values []float64) bool {
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
