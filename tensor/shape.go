package tensor

import (
	"fmt"
	"math"
)

// Shape identifies an inclusion geometry for the depolarisation tensor.
type Shape int

const (
	Sphere Shape = iota
	Plate
	Needle
	Ellipsoid
)

// String implements fmt.Stringer.
func (s Shape) String() string {
	switch s {
	case Sphere:
		return "sphere"
	case Plate:
		return "plate"
	case Needle:
		return "needle"
	case Ellipsoid:
		return "ellipsoid"
	}
	return fmt.Sprintf("Shape(%d)", int(s))
}

// ParseShape converts a shape name into its Shape tag.
func ParseShape(name string) (Shape, error) {
	switch name {
	case "sphere":
		return Sphere, nil
	case "plate":
		return Plate, nil
	case "needle":
		return Needle, nil
	case "ellipsoid":
		return Ellipsoid, nil
	}
	return 0, fmt.Errorf("unknown shape %q", name)
}

// ellipsoidTol is the window around b/a = 1 inside which the ellipsoid
// degenerates to a sphere.
const ellipsoidTol = 1e-8

// Depolarization returns the shape depolarisation tensor. unique is
// the unique direction of the shape (the plate normal, the needle
// axis, or the ellipsoid symmetry axis); it need not be normalised.
// aspect is the a/b axis ratio and is only consulted for Ellipsoid.
// The returned tensor always has unit trace.
func Depolarization(shape Shape, unique Vec, aspect float64) (Tensor, error) {
	switch shape {
	case Sphere:
		third := 1.0 / 3.0
		return Diagonal(third, third, third), nil
	case Plate:
		n, err := unique.Normalized()
		if err != nil {
			return Tensor{}, err
		}
		t := Outer(n, n)
		return t.Scale(1 / t.Trace()), nil
	case Needle:
		n, err := unique.Normalized()
		if err != nil {
			return Tensor{}, err
		}
		dir1, dir2, err := perpendicularPair(n)
		if err != nil {
			return Tensor{}, err
		}
		t := Outer(dir1, dir1).Add(Outer(dir2, dir2))
		return t.Scale(1 / t.Trace()), nil
	case Ellipsoid:
		n, err := unique.Normalized()
		if err != nil {
			return Tensor{}, err
		}
		dir1, dir2, err := perpendicularPair(n)
		if err != nil {
			return Tensor{}, err
		}
		if aspect <= 0 {
			return Tensor{}, fmt.Errorf("ellipsoid aspect ratio must be positive, got %g", aspect)
		}
		nz := axialDepolarization(1 / aspect)
		nxy := (1 - nz) * 0.5
		t := Outer(n, n).Scale(complex(nz, 0)).
			Add(Outer(dir1, dir1).Scale(complex(nxy, 0))).
			Add(Outer(dir2, dir2).Scale(complex(nxy, 0)))
		return t.Scale(1 / t.Trace()), nil
	}
	return Tensor{}, fmt.Errorf("unknown shape %v", shape)
}

// perpendicularPair builds two orthonormal directions perpendicular to
// the unit vector n. The seed axis is the coordinate axis with the
// smallest absolute projection onto n; ties resolve in x, y, z order.
func perpendicularPair(n Vec) (Vec, Vec, error) {
	x := Vec{1, 0, 0}
	y := Vec{0, 1, 0}
	z := Vec{0, 0, 1}
	xdotn := x.Dot(n)
	ydotn := y.Dot(n)
	zdotn := z.Dot(n)
	absx := math.Abs(xdotn)
	absy := math.Abs(ydotn)
	absz := math.Abs(zdotn)

	var dir1 Vec
	switch {
	case absx <= absy && absx <= absz:
		dir1 = Vec{x[0] - xdotn*n[0], x[1] - xdotn*n[1], x[2] - xdotn*n[2]}
	case absy <= absx && absy <= absz:
		dir1 = Vec{y[0] - ydotn*n[0], y[1] - ydotn*n[1], y[2] - ydotn*n[2]}
	default:
		dir1 = Vec{z[0] - zdotn*n[0], z[1] - zdotn*n[1], z[2] - zdotn*n[2]}
	}
	dir1, err := dir1.Normalized()
	if err != nil {
		return Vec{}, Vec{}, err
	}
	dir2, err := n.Cross(dir1).Normalized()
	if err != nil {
		return Vec{}, Vec{}, err
	}
	return dir1, dir2, nil
}

// axialDepolarization evaluates the closed-form axisymmetric
// depolarisation factor along the unique axis for an ellipsoid with
// perpendicular-to-unique axis ratio bovera. bovera < 1 is prolate,
// bovera > 1 oblate; within ellipsoidTol of 1 the factor is the
// sphere value 1/3.
func axialDepolarization(bovera float64) float64 {
	switch {
	case bovera < 1-ellipsoidTol:
		e := math.Sqrt(1 - bovera*bovera)
		return (1 - e*e) * (math.Log((1+e)/(1-e)) - 2*e) / (2 * e * e * e)
	case bovera > 1+ellipsoidTol:
		e := math.Sqrt(bovera*bovera - 1)
		return (1 + e*e) * (e - math.Atan(e)) / (e * e * e)
	}
	return 1.0 / 3.0
}
