// Package dielectric builds the frequency-dependent complex dielectric
// response from per-mode oscillator data: a coherent sum of damped
// Lorentzian oscillators, an optional isotropic Drude free-carrier
// term, and a scalar Lorentzian absorption from mode intensities.
package dielectric

import (
	"github.com/materialsim/phonodielec/tensor"
	"github.com/materialsim/phonodielec/units"
)

// drudeFloor keeps the Drude denominator away from the origin.
const drudeFloor = 1e-8

// Contribution returns the ionic contribution to the complex
// dielectric tensor at frequency f: the sum over the selected modes of
// strength / (v^2 - f^2 - i sigma f), scaled by 4 pi / volume. All
// quantities are in atomic units.
func Contribution(f float64, modeList []int, frequencies, sigmas []float64,
	strengths []tensor.Tensor, volume float64) tensor.Tensor {

	var eps tensor.Tensor
	for _, imode := range modeList {
		v := frequencies[imode]
		sigma := sigmas[imode]
		denom := complex(v*v-f*f, -sigma*f)
		eps = eps.Add(strengths[imode].Scale(1 / denom))
	}
	return eps.Scale(complex(4*units.Pi/volume, 0))
}

// DrudeContribution returns the isotropic free-carrier term
// -plasma^2 / (-f^2 - i sigma f) scaled by 4 pi / volume. The
// frequency is floored at 1e-8 to avoid the pole at the origin.
func DrudeContribution(f, plasma, sigma, volume float64) tensor.Tensor {
	if f <= drudeFloor {
		f = drudeFloor
	}
	term := -complex(plasma*plasma, 0) / complex(-f*f, -sigma*f)
	return tensor.Isotropic(term).Scale(complex(4*units.Pi/volume, 0))
}

// AbsorptionFromModeIntensities returns the molar absorption
// coefficient at frequency f (cm-1) as a sum of Lorentzian line shapes
// over the selected modes. frequencies and sigmas are in cm-1,
// intensities in (D/A)^2/amu; the result is in L.mol-1.cm-1.
func AbsorptionFromModeIntensities(f float64, modeList []int, frequencies, sigmas, intensities []float64) float64 {
	var absorption float64
	for _, imode := range modeList {
		v := frequencies[imode]
		sigma := sigmas[imode]
		lorentz := sigma / (4*(f-v)*(f-v) + sigma*sigma)
		absorption += 2 * units.LorentzianPrefactor * intensities[imode] / units.Pi * lorentz
	}
	return absorption
}
