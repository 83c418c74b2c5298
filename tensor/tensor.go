// Package tensor provides the 3x3 complex tensors used by the
// dielectric engine: constructors, the small set of linear-algebra
// operations the effective-medium solvers need, shape depolarisation
// matrices, and refractive-index extraction.
//
// Tensor is a value type. Every operation returns a fresh value, so
// tensors can be passed between solvers and goroutines without
// aliasing concerns. Real tensors are the special case with zero
// imaginary parts.
package tensor

import (
	"errors"
	"fmt"
	"math"
	"math/cmplx"
)

// ErrSingular reports a degenerate geometry or a non-invertible tensor.
var ErrSingular = errors.New("tensor: singular matrix")

// Tensor is a 3x3 complex matrix stored by value.
type Tensor [3][3]complex128

// Vec is a real 3-vector.
type Vec [3]float64

// Unit returns the 3x3 identity tensor.
func Unit() Tensor {
	return Tensor{
		{1, 0, 0},
		{0, 1, 0},
		{0, 0, 1},
	}
}

// Diagonal returns a real diagonal tensor with the given entries.
func Diagonal(d1, d2, d3 float64) Tensor {
	return Tensor{
		{complex(d1, 0), 0, 0},
		{0, complex(d2, 0), 0},
		{0, 0, complex(d3, 0)},
	}
}

// Isotropic returns c times the identity.
func Isotropic(c complex128) Tensor {
	return Tensor{
		{c, 0, 0},
		{0, c, 0},
		{0, 0, c},
	}
}

// FromReal converts a real 3x3 matrix to a Tensor.
func FromReal(m [3][3]float64) Tensor {
	var t Tensor
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			t[i][j] = complex(m[i][j], 0)
		}
	}
	return t
}

// Outer returns the outer product u v^T as a real-valued tensor.
func Outer(u, v Vec) Tensor {
	var t Tensor
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			t[i][j] = complex(u[i]*v[j], 0)
		}
	}
	return t
}

// Add returns t + o.
func (t Tensor) Add(o Tensor) Tensor {
	var r Tensor
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			r[i][j] = t[i][j] + o[i][j]
		}
	}
	return r
}

// Sub returns t - o.
func (t Tensor) Sub(o Tensor) Tensor {
	var r Tensor
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			r[i][j] = t[i][j] - o[i][j]
		}
	}
	return r
}

// Scale returns c * t.
func (t Tensor) Scale(c complex128) Tensor {
	var r Tensor
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			r[i][j] = c * t[i][j]
		}
	}
	return r
}

// Mul returns the matrix product t o.
func (t Tensor) Mul(o Tensor) Tensor {
	var r Tensor
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			var s complex128
			for k := 0; k < 3; k++ {
				s += t[i][k] * o[k][j]
			}
			r[i][j] = s
		}
	}
	return r
}

// Trace returns the sum of the diagonal entries.
func (t Tensor) Trace() complex128 {
	return t[0][0] + t[1][1] + t[2][2]
}

// Average returns the orientation-averaged (isotropic) tensor
// trace/3 times the identity.
func (t Tensor) Average() Tensor {
	return Isotropic(t.Trace() / 3)
}

// Norm returns the Frobenius norm of t.
func (t Tensor) Norm() float64 {
	var s float64
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			a := cmplx.Abs(t[i][j])
			s += a * a
		}
	}
	return math.Sqrt(s)
}

// Inverse returns the matrix inverse of t, computed from the adjugate.
// At fixed 3x3 size the closed form is exact; ErrSingular is returned
// when the determinant underflows relative to the matrix scale.
func (t Tensor) Inverse() (Tensor, error) {
	c00 := t[1][1]*t[2][2] - t[1][2]*t[2][1]
	c01 := t[1][2]*t[2][0] - t[1][0]*t[2][2]
	c02 := t[1][0]*t[2][1] - t[1][1]*t[2][0]
	det := t[0][0]*c00 + t[0][1]*c01 + t[0][2]*c02

	scale := t.Norm()
	if cmplx.Abs(det) <= 1e-300 || cmplx.Abs(det) < 1e-14*scale*scale*scale {
		return Tensor{}, fmt.Errorf("%w: determinant %v", ErrSingular, det)
	}

	var r Tensor
	r[0][0] = c00 / det
	r[1][0] = c01 / det
	r[2][0] = c02 / det
	r[0][1] = (t[0][2]*t[2][1] - t[0][1]*t[2][2]) / det
	r[1][1] = (t[0][0]*t[2][2] - t[0][2]*t[2][0]) / det
	r[2][1] = (t[0][1]*t[2][0] - t[0][0]*t[2][1]) / det
	r[0][2] = (t[0][1]*t[1][2] - t[0][2]*t[1][1]) / det
	r[1][2] = (t[0][2]*t[1][0] - t[0][0]*t[1][2]) / det
	r[2][2] = (t[0][0]*t[1][1] - t[0][1]*t[1][0]) / det
	return r, nil
}

// Dot returns the scalar product of two vectors.
func (v Vec) Dot(o Vec) float64 {
	return v[0]*o[0] + v[1]*o[1] + v[2]*o[2]
}

// Cross returns the vector product v x o.
func (v Vec) Cross(o Vec) Vec {
	return Vec{
		v[1]*o[2] - v[2]*o[1],
		v[2]*o[0] - v[0]*o[2],
		v[0]*o[1] - v[1]*o[0],
	}
}

// Norm returns the Euclidean length of v.
func (v Vec) Norm() float64 {
	return math.Sqrt(v.Dot(v))
}

// Normalized returns v scaled to unit length. A zero-length vector is
// a degenerate geometry and yields ErrSingular.
func (v Vec) Normalized() (Vec, error) {
	n := v.Norm()
	if n < 1e-12 {
		return Vec{}, fmt.Errorf("%w: zero-length direction vector", ErrSingular)
	}
	return Vec{v[0] / n, v[1] / n, v[2] / n}, nil
}
