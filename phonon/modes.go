// Package phonon derives per-mode oscillator quantities from raw
// phonon data (frequencies, mass-weighted normal modes, Born effective
// charges, atomic masses) and applies the direction-dependent
// longitudinal-mode correction to the dynamical matrix.
//
// All quantities are expected in a single consistent unit system; the
// engine uses Hartree atomic units throughout (see the units package
// for conversions from conventional inputs).
package phonon

import (
	"fmt"
	"math"

	"github.com/materialsim/phonodielec/tensor"
	"github.com/materialsim/phonodielec/units"
)

// BornCharge is the Born effective charge tensor of one atom. Row d is
// the dipole induced along field direction d per unit displacement of
// the atom along x, y, z.
type BornCharge [3][3]float64

// Displacements is one normal mode: a 3-vector per atom.
type Displacements []tensor.Vec

// CartesianModes converts mass-weighted normal modes to Cartesian
// displacements by scaling each atomic 3-vector by 1/sqrt(mass). The
// result is not renormalised; whether to renormalise is a caller
// policy decision.
func CartesianModes(masses []float64, massWeighted []Displacements) ([]Displacements, error) {
	out := make([]Displacements, len(massWeighted))
	for imode, mode := range massWeighted {
		if len(mode) != len(masses) {
			return nil, fmt.Errorf("mode %d has %d atoms, expected %d", imode, len(mode), len(masses))
		}
		cart := make(Displacements, len(mode))
		for a, disp := range mode {
			if masses[a] <= 0 {
				return nil, fmt.Errorf("atom %d has non-positive mass %g", a, masses[a])
			}
			w := 1 / math.Sqrt(masses[a])
			cart[a] = tensor.Vec{disp[0] * w, disp[1] * w, disp[2] * w}
		}
		out[imode] = cart
	}
	return out, nil
}

// OscillatorStrengths computes the 3x3 oscillator-strength tensor of
// each mode: the outer product of the mode dipole, which is the sum
// over atoms of the Born charge applied to the atomic displacement.
// Each result is symmetric positive-semidefinite of rank at most one.
func OscillatorStrengths(modes []Displacements, born []BornCharge) ([]tensor.Tensor, error) {
	strengths := make([]tensor.Tensor, len(modes))
	for imode, mode := range modes {
		if len(mode) != len(born) {
			return nil, fmt.Errorf("mode %d has %d atoms but %d born charge tensors supplied", imode, len(mode), len(born))
		}
		var dipole tensor.Vec
		for a, z := range born {
			d := z.apply(mode[a])
			dipole[0] += d[0]
			dipole[1] += d[1]
			dipole[2] += d[2]
		}
		strengths[imode] = tensor.Outer(dipole, dipole)
	}
	return strengths, nil
}

// InfraredIntensities returns the IR intensity of each mode in
// (D/A)^2/amu: the trace of the oscillator-strength tensor divided by
// the unit conversion from atomic units.
func InfraredIntensities(strengths []tensor.Tensor) []float64 {
	intensities := make([]float64, len(strengths))
	for imode, s := range strengths {
		intensities[imode] = real(s.Trace()) / units.DsqPerAmuAngsqAU
	}
	return intensities
}

// IonicPermittivity sums strength/frequency^2 over the selected modes
// and scales by 4 pi / volume, giving the static (zero-frequency)
// ionic contribution to the permittivity.
func IonicPermittivity(modeList []int, strengths []tensor.Tensor, frequencies []float64, volume float64) (tensor.Tensor, error) {
	var perm tensor.Tensor
	for _, imode := range modeList {
		if imode < 0 || imode >= len(strengths) || imode >= len(frequencies) {
			return tensor.Tensor{}, fmt.Errorf("mode index %d out of range (%d modes)", imode, len(strengths))
		}
		f := frequencies[imode]
		if f == 0 {
			return tensor.Tensor{}, fmt.Errorf("mode %d has zero frequency", imode)
		}
		perm = perm.Add(strengths[imode].Scale(complex(1/(f*f), 0)))
	}
	return perm.Scale(complex(4*units.Pi/volume, 0)), nil
}

// NeutraliseBornCharges enforces the acoustic sum rule by subtracting
// the mean Born tensor from every atom, so the corrected charges sum
// to zero. The input is not modified.
func NeutraliseBornCharges(born []BornCharge) []BornCharge {
	if len(born) == 0 {
		return nil
	}
	var mean BornCharge
	for _, z := range born {
		for i := 0; i < 3; i++ {
			for j := 0; j < 3; j++ {
				mean[i][j] += z[i][j]
			}
		}
	}
	n := float64(len(born))
	out := make([]BornCharge, len(born))
	for a, z := range born {
		for i := 0; i < 3; i++ {
			for j := 0; j < 3; j++ {
				out[a][i][j] = z[i][j] - mean[i][j]/n
			}
		}
	}
	return out
}

// apply multiplies the Born tensor by a displacement, giving the
// induced dipole.
func (z BornCharge) apply(u tensor.Vec) tensor.Vec {
	var d tensor.Vec
	for i := 0; i < 3; i++ {
		d[i] = z[i][0]*u[0] + z[i][1]*u[1] + z[i][2]*u[2]
	}
	return d
}

// projectOnto contracts the Born tensor from the left with a direction
// vector: (q Z)_j = sum_i q_i Z_ij.
func (z BornCharge) projectOnto(q tensor.Vec) tensor.Vec {
	var p tensor.Vec
	for j := 0; j < 3; j++ {
		p[j] = q[0]*z[0][j] + q[1]*z[1][j] + q[2]*z[2][j]
	}
	return p
}
