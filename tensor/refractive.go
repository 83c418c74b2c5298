package tensor

import (
	"fmt"
	"math/cmplx"
)

// refractiveTol is the relative tolerance for the branch self-check in
// RefractiveIndex.
const refractiveTol = 1e-8

// RefractiveIndex returns the complex refractive index of a dielectric
// tensor: the square root of trace/3 on the branch with the larger
// imaginary part, so that a passive medium has non-negative
// absorption. The returned value is always usable; a non-nil error
// flags that the branch self-check |n^2 - t|/(1+|t|) exceeded its
// tolerance, indicating an anomalous input tensor.
func RefractiveIndex(dielectric Tensor) (complex128, error) {
	trace := dielectric.Trace() / 3
	root := cmplx.Sqrt(trace)
	// The second root is the reflection through the origin.
	other := -root
	n := root
	if imag(other) > imag(n) {
		n = other
	}
	if resid := cmplx.Abs(n*n-trace) / (1 + cmplx.Abs(trace)); resid > refractiveTol {
		return n, fmt.Errorf("refractive index branch check failed: trace %v, n^2 %v, residual %g", trace, n*n, resid)
	}
	return n, nil
}
