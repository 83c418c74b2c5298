package tensor

import (
	"math"
	"math/cmplx"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnitAndDiagonal(t *testing.T) {
	u := Unit()
	assert.InDelta(t, 3.0, real(u.Trace()), 1e-15)
	d := Diagonal(1, 2, 3)
	assert.InDelta(t, 6.0, real(d.Trace()), 1e-15)
	assert.Equal(t, complex128(0), d[0][1])
}

func TestMulInverseRoundTrip(t *testing.T) {
	a := Tensor{
		{2 + 1i, 0.3, -0.1},
		{0.3, 1.5 - 0.2i, 0.05},
		{-0.1, 0.05, 4 + 0.5i},
	}
	inv, err := a.Inverse()
	require.NoError(t, err)
	prod := a.Mul(inv)
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			want := complex128(0)
			if i == j {
				want = 1
			}
			assert.InDelta(t, real(want), real(prod[i][j]), 1e-12)
			assert.InDelta(t, imag(want), imag(prod[i][j]), 1e-12)
		}
	}
}

func TestInverseSingular(t *testing.T) {
	var zero Tensor
	_, err := zero.Inverse()
	assert.ErrorIs(t, err, ErrSingular)

	// Rank-deficient: two identical rows.
	s := Tensor{
		{1, 2, 3},
		{1, 2, 3},
		{0, 0, 1},
	}
	_, err = s.Inverse()
	assert.ErrorIs(t, err, ErrSingular)
}

func TestAverageIsIsotropic(t *testing.T) {
	a := Tensor{
		{1 + 1i, 9, 9},
		{9, 2, 9},
		{9, 9, 3 - 1i},
	}
	av := a.Average()
	assert.Equal(t, av[0][0], av[1][1])
	assert.Equal(t, av[1][1], av[2][2])
	assert.Equal(t, complex128(0), av[0][1])
	assert.InDelta(t, real(a.Trace())/3, real(av[0][0]), 1e-15)
	assert.InDelta(t, imag(a.Trace())/3, imag(av[0][0]), 1e-15)
}

func TestOuterProduct(t *testing.T) {
	u := Vec{1, 2, 3}
	o := Outer(u, u)
	assert.InDelta(t, 14.0, real(o.Trace()), 1e-14)
	// rank one: all 2x2 minors vanish
	m := o[0][0]*o[1][1] - o[0][1]*o[1][0]
	assert.InDelta(t, 0.0, cmplx.Abs(m), 1e-14)
}

func TestVecNormalized(t *testing.T) {
	v := Vec{3, 4, 0}
	n, err := v.Normalized()
	require.NoError(t, err)
	assert.InDelta(t, 1.0, n.Norm(), 1e-15)

	_, err = Vec{}.Normalized()
	assert.ErrorIs(t, err, ErrSingular)
}

func TestDepolarizationTraceIsOne(t *testing.T) {
	directions := []Vec{
		{0, 0, 1},
		{1, 1, 1},
		{0.2, -0.7, 0.4},
		{1, 0, 0},
	}
	cases := []struct {
		name   string
		shape  Shape
		aspect float64
	}{
		{"sphere", Sphere, 0},
		{"plate", Plate, 0},
		{"needle", Needle, 0},
		{"prolate", Ellipsoid, 3.0},
		{"oblate", Ellipsoid, 0.25},
		{"near-sphere", Ellipsoid, 1.0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			for _, dir := range directions {
				l, err := Depolarization(tc.shape, dir, tc.aspect)
				require.NoError(t, err)
				assert.InDelta(t, 1.0, real(l.Trace()), 1e-10)
				assert.InDelta(t, 0.0, imag(l.Trace()), 1e-10)
			}
		})
	}
}

func TestDepolarizationSphere(t *testing.T) {
	l, err := Depolarization(Sphere, Vec{0, 0, 1}, 0)
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		assert.InDelta(t, 1.0/3.0, real(l[i][i]), 1e-15)
	}
}

func TestDepolarizationPlate(t *testing.T) {
	// Plate with normal along z: L = e_z e_z^T.
	l, err := Depolarization(Plate, Vec{0, 0, 2}, 0)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, real(l[2][2]), 1e-14)
	assert.InDelta(t, 0.0, real(l[0][0]), 1e-14)
	assert.InDelta(t, 0.0, real(l[1][1]), 1e-14)
}

func TestDepolarizationNeedle(t *testing.T) {
	// Needle along z: no depolarisation along the axis, 1/2 across it.
	l, err := Depolarization(Needle, Vec{0, 0, 1}, 0)
	require.NoError(t, err)
	assert.InDelta(t, 0.0, real(l[2][2]), 1e-14)
	assert.InDelta(t, 0.5, real(l[0][0]), 1e-14)
	assert.InDelta(t, 0.5, real(l[1][1]), 1e-14)
}

func TestDepolarizationNeedleTieBreak(t *testing.T) {
	// A (0,1,1) axis projects equally onto y and z; the x axis has the
	// strictly smallest projection and seeds the perpendicular pair.
	l, err := Depolarization(Needle, Vec{0, 1, 1}, 0)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, real(l.Trace()), 1e-10)
	assert.InDelta(t, 0.5, real(l[0][0]), 1e-12)

	// The fully degenerate (1,1,1) axis: all three projections tie and
	// x wins by iteration order. The result must still have unit trace
	// and vanish along the axis.
	l, err = Depolarization(Needle, Vec{1, 1, 1}, 0)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, real(l.Trace()), 1e-10)
	n := Vec{1, 1, 1}
	n, _ = n.Normalized()
	var along complex128
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			along += complex(n[i]*n[j], 0) * l[i][j]
		}
	}
	assert.InDelta(t, 0.0, cmplx.Abs(along), 1e-12)
}

func TestDepolarizationEllipsoidLimits(t *testing.T) {
	// Aspect ratio 1 within tolerance degenerates to the sphere.
	l, err := Depolarization(Ellipsoid, Vec{0, 0, 1}, 1+1e-10)
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		assert.InDelta(t, 1.0/3.0, real(l[i][i]), 1e-8)
	}

	// A very long prolate ellipsoid approaches the needle.
	l, err = Depolarization(Ellipsoid, Vec{0, 0, 1}, 1000)
	require.NoError(t, err)
	assert.InDelta(t, 0.0, real(l[2][2]), 1e-4)

	// A very flat oblate ellipsoid approaches the plate.
	l, err = Depolarization(Ellipsoid, Vec{0, 0, 1}, 1e-3)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, real(l[2][2]), 1e-2)
}

func TestDepolarizationZeroDirection(t *testing.T) {
	for _, shape := range []Shape{Plate, Needle, Ellipsoid} {
		_, err := Depolarization(shape, Vec{}, 2.0)
		assert.ErrorIs(t, err, ErrSingular, shape.String())
	}
}

func TestParseShape(t *testing.T) {
	for _, s := range []Shape{Sphere, Plate, Needle, Ellipsoid} {
		got, err := ParseShape(s.String())
		require.NoError(t, err)
		assert.Equal(t, s, got)
	}
	_, err := ParseShape("cube")
	assert.Error(t, err)
}

func TestRefractiveIndex(t *testing.T) {
	cases := []struct {
		name string
		eps  Tensor
	}{
		{"vacuum", Unit()},
		{"lossy", Isotropic(4 + 0.5i)},
		{"metallic", Isotropic(-2 + 0.1i)},
		{"anisotropic", Diagonal(2, 3, 4)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			n, err := RefractiveIndex(tc.eps)
			require.NoError(t, err)
			trace := tc.eps.Trace() / 3
			assert.InDelta(t, 0.0, cmplx.Abs(n*n-trace)/(1+cmplx.Abs(trace)), 1e-8)
			assert.GreaterOrEqual(t, imag(n), 0.0)
		})
	}
}

func TestRefractiveIndexNegativeReal(t *testing.T) {
	// A negative real permittivity must pick the +i branch, not -i.
	n, err := RefractiveIndex(Isotropic(-4))
	require.NoError(t, err)
	assert.InDelta(t, 0.0, real(n), 1e-12)
	assert.InDelta(t, 2.0, imag(n), 1e-12)
	assert.True(t, !math.IsNaN(real(n)))
}
