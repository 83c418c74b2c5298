package phonon

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/materialsim/phonodielec/tensor"
	"github.com/materialsim/phonodielec/units"
)

// Projector removes unwanted rigid-body components from a dynamical
// matrix in place, before it is diagonalised.
type Projector interface {
	Project(d *mat.Dense)
}

// LongitudinalModes applies the nonanalytic long-range correction to
// the dynamical matrix and returns the corrected frequencies for each
// query propagation direction.
//
// frequencies are signed: a negative value encodes an imaginary
// (unstable) mode. massWeighted holds the orthonormal mass-weighted
// eigenvectors, indexed [mode][atom]. epsInf is the high-frequency
// dielectric tensor and volume the unit-cell volume, both in atomic
// units. proj, when non-nil, is applied to the corrected matrix before
// diagonalisation (Eckart projection).
//
// The dynamical matrix is reconstructed as D = U^T diag(sign(f) f^2) U,
// which recovers the real matrix even though a plain eigendecomposition
// of frequencies alone loses the sign of unstable modes. For each
// direction q the correction block for atom pair (a, b) is
// 4 pi (qZ_a)(qZ_b)^T / (q eps q V sqrt(m_a m_b)). Eigenvalues map back
// to signed frequencies (+sqrt(e) or -sqrt(-e)), sorted ascending.
func LongitudinalModes(frequencies []float64, massWeighted []Displacements,
	born []BornCharge, masses []float64, epsInf tensor.Tensor, volume float64,
	qlist []tensor.Vec, proj Projector) ([][]float64, error) {

	nmodes := len(frequencies)
	if len(massWeighted) != nmodes {
		return nil, fmt.Errorf("%d frequencies but %d normal modes", nmodes, len(massWeighted))
	}
	natoms := len(masses)
	if len(born) != natoms {
		return nil, fmt.Errorf("%d masses but %d born charge tensors", natoms, len(born))
	}
	if volume <= 0 {
		return nil, fmt.Errorf("unit-cell volume must be positive, got %g", volume)
	}
	n3 := 3 * natoms

	// Rows of U are the flattened mass-weighted modes.
	u := mat.NewDense(nmodes, n3, nil)
	for imode, mode := range massWeighted {
		if len(mode) != natoms {
			return nil, fmt.Errorf("mode %d has %d atoms, expected %d", imode, len(mode), natoms)
		}
		for a, disp := range mode {
			u.Set(imode, a*3+0, disp[0])
			u.Set(imode, a*3+1, disp[1])
			u.Set(imode, a*3+2, disp[2])
		}
	}

	// D = U^T diag(sign(f) f^2) U.
	f2 := mat.NewDense(nmodes, nmodes, nil)
	for i, f := range frequencies {
		f2.Set(i, i, math.Copysign(f*f, f))
	}
	var tmp, dm mat.Dense
	tmp.Mul(f2, u)
	dm.Mul(u.T(), &tmp)

	results := make([][]float64, 0, len(qlist))
	dq := mat.NewDense(n3, n3, nil)
	for _, q := range qlist {
		qeq := quadraticForm(q, epsInf)
		if qeq == 0 {
			return nil, fmt.Errorf("%w: q.eps.q vanishes for direction %v", tensor.ErrSingular, q)
		}
		constant := 4 * units.Pi / (qeq * volume)

		qz := make([]tensor.Vec, natoms)
		for a, z := range born {
			qz[a] = z.projectOnto(q)
		}
		for a := 0; a < natoms; a++ {
			for b := 0; b < natoms; b++ {
				scale := constant / math.Sqrt(masses[a]*masses[b])
				for i := 0; i < 3; i++ {
					for j := 0; j < 3; j++ {
						dq.Set(a*3+i, b*3+j, dm.At(a*3+i, b*3+j)+scale*qz[a][i]*qz[b][j])
					}
				}
			}
		}
		if proj != nil {
			proj.Project(dq)
		}

		values, err := signedSqrtEigenvalues(dq)
		if err != nil {
			return nil, err
		}
		sort.Float64s(values)
		results = append(results, values)
	}
	return results, nil
}

// signedSqrtEigenvalues diagonalises the (symmetrised) matrix and maps
// each eigenvalue e to +sqrt(e) for e >= 0 or -sqrt(-e) otherwise, so
// unstable modes survive as negative frequencies.
func signedSqrtEigenvalues(d *mat.Dense) ([]float64, error) {
	n, _ := d.Dims()
	sym := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			sym.SetSym(i, j, 0.5*(d.At(i, j)+d.At(j, i)))
		}
	}
	var es mat.EigenSym
	if ok := es.Factorize(sym, false); !ok {
		return nil, fmt.Errorf("dynamical matrix eigendecomposition failed")
	}
	eig := es.Values(nil)
	values := make([]float64, n)
	for i, e := range eig {
		if e >= 0 {
			values[i] = math.Sqrt(e)
		} else {
			values[i] = -math.Sqrt(-e)
		}
	}
	return values, nil
}

// quadraticForm evaluates q^T Re(eps) q.
func quadraticForm(q tensor.Vec, eps tensor.Tensor) float64 {
	var s float64
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			s += q[i] * real(eps[i][j]) * q[j]
		}
	}
	return s
}

// EckartProjector removes the three mass-weighted rigid translations
// from a dynamical matrix: P D P with P = I - sum_t |t><t| over the
// normalised translation vectors. The projected matrix is
// re-symmetrised as 0.5 (H + H^T).
type EckartProjector struct {
	p *mat.Dense
}

// NewEckartProjector builds the projector for the given atomic masses.
func NewEckartProjector(masses []float64) (*EckartProjector, error) {
	natoms := len(masses)
	if natoms == 0 {
		return nil, fmt.Errorf("no masses supplied")
	}
	n3 := 3 * natoms
	var mtot float64
	for a, m := range masses {
		if m <= 0 {
			return nil, fmt.Errorf("atom %d has non-positive mass %g", a, m)
		}
		mtot += m
	}

	p := mat.NewDense(n3, n3, nil)
	for i := 0; i < n3; i++ {
		p.Set(i, i, 1)
	}
	// Normalised mass-weighted translation along each axis:
	// t[a*3+axis] = sqrt(m_a / M).
	for axis := 0; axis < 3; axis++ {
		t := make([]float64, n3)
		for a, m := range masses {
			t[a*3+axis] = math.Sqrt(m / mtot)
		}
		for i := 0; i < n3; i++ {
			for j := 0; j < n3; j++ {
				p.Set(i, j, p.At(i, j)-t[i]*t[j])
			}
		}
	}
	return &EckartProjector{p: p}, nil
}

// Project implements Projector.
func (e *EckartProjector) Project(d *mat.Dense) {
	var tmp, out mat.Dense
	tmp.Mul(e.p, d)
	out.Mul(&tmp, e.p)
	n, _ := d.Dims()
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			d.Set(i, j, 0.5*(out.At(i, j)+out.At(j, i)))
		}
	}
}
