package effmedium

import (
	"github.com/materialsim/phonodielec/tensor"
)

// AveragedPermittivityTensor is the linear volume-weighted average of
// host and inclusion, with no shape dependence. It is the trivial
// baseline against which the shaped theories are compared.
func AveragedPermittivityTensor(host, inclusion tensor.Tensor, vf float64) tensor.Tensor {
	eff := inclusion.Scale(complex(vf, 0)).Add(host.Scale(complex(1-vf, 0)))
	return eff.Average()
}

// BalanTensor computes the effective permittivity with the method of
// Balan: the host screens the inclusion contrast through the shape
// depolarisation, and the volume fraction scales the traced result.
func BalanTensor(host, inclusion, depol tensor.Tensor, vf float64) (tensor.Tensor, error) {
	unit := tensor.Unit()
	contrast := inclusion.Sub(host)
	inv, err := host.Add(depol.Mul(contrast)).Inverse()
	if err != nil {
		return tensor.Tensor{}, err
	}
	deformation := host.Mul(inv)
	effd := unit.Add(deformation.Mul(inclusion.Sub(unit)))
	trace := complex(vf, 0) * effd.Trace() / 3
	return tensor.Isotropic(trace), nil
}

// MaxwellGarnettTensor computes the effective permittivity with the
// Maxwell-Garnett theory (Sihvola eq. 5.78). The raw polarisability
// n alpha and the product n alpha L are orientation-averaged
// separately before the polarisation solve; that ordering is part of
// the theory, not an optimisation.
func MaxwellGarnettTensor(host, inclusion, depol tensor.Tensor, vf float64) (tensor.Tensor, error) {
	eff, err := maxwellGarnett(host, inclusion, depol, vf, host.Trace()/3)
	if err != nil {
		return tensor.Tensor{}, err
	}
	return eff, nil
}

// maxwellGarnett is the Maxwell-Garnett formula with the orientation
// average of n alpha L taken against an explicit apparent-medium
// trace. The plain theory passes the host trace; the coherent method
// passes its current self-consistent estimate.
func maxwellGarnett(host, inclusion, depol tensor.Tensor, vf float64, eapparent complex128) (tensor.Tensor, error) {
	unit := tensor.Unit()
	emedium := host.Trace() / 3
	contrast := inclusion.Sub(host)
	inv, err := host.Add(depol.Mul(contrast)).Inverse()
	if err != nil {
		return tensor.Tensor{}, err
	}
	nalpha := contrast.Mul(inv).Scale(emedium * complex(vf, 0))
	nalphal := nalpha.Scale(1 / eapparent).Mul(depol)
	nalpha = nalpha.Average()
	nalphal = nalphal.Average()
	inv, err = unit.Sub(nalphal).Inverse()
	if err != nil {
		return tensor.Tensor{}, err
	}
	polarisation := inv.Mul(nalpha)
	return host.Add(polarisation).Average(), nil
}

// MaxwellSihvolaTensor is the Maxwell-Garnett variant of Sihvola
// eqs. 6.29/6.40: structurally the same solve, but normalised by the
// inverse host trace Mem1 = 3/trace(host). It is numerically distinct
// from MaxwellGarnettTensor, not a simplification of it.
func MaxwellSihvolaTensor(host, inclusion, depol tensor.Tensor, vf float64) (tensor.Tensor, error) {
	unit := tensor.Unit()
	mem1 := 3 / host.Trace()
	contrast := inclusion.Sub(host)
	inv, err := unit.Add(depol.Mul(contrast).Scale(mem1)).Inverse()
	if err != nil {
		return tensor.Tensor{}, err
	}
	na := contrast.Mul(inv).Scale(complex(vf, 0))
	nal := na.Mul(depol)
	na = na.Average()
	nal = tensor.Isotropic(nal.Trace() / 3 * mem1)
	inv, err = unit.Sub(nal).Inverse()
	if err != nil {
		return tensor.Tensor{}, err
	}
	pol := inv.Mul(na)
	return host.Add(pol).Average(), nil
}

// CoherentTensor is the self-consistent coherent-potential method: a
// damped fixed-point iteration x <- 0.1 x + 0.9 f(x), seeded from the
// Maxwell-Garnett estimate and run for a fixed iteration count, where
// f is Maxwell-Garnett evaluated with the current estimate's trace in
// the orientation-average denominator. There is no convergence check;
// the budget is always consumed.
func (s *Solver) CoherentTensor(host, inclusion, depol tensor.Tensor, vf float64) (tensor.Tensor, error) {
	apparent, err := MaxwellGarnettTensor(host, inclusion, depol, vf)
	if err != nil {
		return tensor.Tensor{}, err
	}
	for i := 0; i < s.coherentIterations(); i++ {
		step, err := maxwellGarnett(host, inclusion, depol, vf, apparent.Trace()/3)
		if err != nil {
			return tensor.Tensor{}, err
		}
		apparent = apparent.Scale(0.1).Add(step.Scale(0.9))
	}
	return apparent, nil
}
