package effmedium

import (
	"math"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/optimize"

	"github.com/materialsim/phonodielec/tensor"
)

// Bruggeman treats host and inclusion symmetrically: the effective
// medium is the one in which the volume-weighted polarisabilities of
// both components cancel, f1 alpha1 + f2 alpha2 = 0. Both variants
// below assume an isotropic complex effective permittivity and
// isotropise every intermediate host/inclusion/depolarisation product;
// skipping that step changes the convergence behaviour.

// optimizerTol is the absolute and relative function tolerance of the
// Bruggeman minimisation.
const optimizerTol = 1e-4

// BruggemanMinimiseTensor solves the Bruggeman condition by
// derivative-free minimisation of the residual norm. The unknown
// isotropic complex permittivity is parameterised as two reals, the
// real part and log(1+|imag|), so the loss variable is well scaled
// when the imaginary part spans orders of magnitude. The seed is
// the Maxwell-Garnett estimate. When the optimiser fails to converge
// the failure is logged and the last iterate returned with
// converged == false.
func (s *Solver) BruggemanMinimiseTensor(host, inclusion, depol tensor.Tensor, vf float64) (tensor.Tensor, bool, error) {
	seed, err := MaxwellGarnettTensor(host, inclusion, depol, vf)
	if err != nil {
		return tensor.Tensor{}, false, err
	}
	f1 := 1 - vf
	trace := seed.Trace() / 3
	init := []float64{real(trace), math.Log(1 + math.Abs(imag(trace)))}

	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			return bruggemanResidual(unpackEffective(x), host, inclusion, depol, f1)
		},
	}
	settings := &optimize.Settings{
		Converger: &optimize.FunctionConverge{
			Absolute:   optimizerTol,
			Relative:   optimizerTol,
			Iterations: 20,
		},
		MajorIterations: s.optimizerMaxIter(),
	}
	result, err := optimize.Minimize(problem, init, settings, &optimize.NelderMead{})
	if result == nil {
		s.logger().Warn("bruggeman minimisation failed outright, keeping maxwell-garnett seed",
			zap.Error(err))
		return seed, false, nil
	}
	converged := err == nil && result.Status != optimize.IterationLimit &&
		result.Status != optimize.FunctionEvaluationLimit && result.Status != optimize.Failure
	if !converged {
		s.logger().Warn("bruggeman minimisation did not converge",
			zap.Stringer("status", result.Status),
			zap.Float64("residual", result.F-1),
			zap.Error(err))
	}
	return tensor.Isotropic(unpackEffective(result.X)), converged, nil
}

// BruggemanIterateTensor solves the Bruggeman condition by fixed-point
// iteration from the Maxwell-Garnett estimate, stopping when the
// residual norm drops below the tolerance or the iteration budget is
// exhausted. Exhaustion is logged and the last iterate returned with
// converged == false.
func (s *Solver) BruggemanIterateTensor(host, inclusion, depol tensor.Tensor, vf float64) (tensor.Tensor, bool, error) {
	epsbr, err := MaxwellGarnettTensor(host, inclusion, depol, vf)
	if err != nil {
		return tensor.Tensor{}, false, err
	}
	f1 := 1 - vf
	tol := s.bruggemanTol()
	maxIter := s.bruggemanMaxIter()

	for iter := 0; iter < maxIter; iter++ {
		next, residual, err := bruggemanStep(epsbr, host, inclusion, depol, f1)
		if err != nil {
			return tensor.Tensor{}, false, err
		}
		epsbr = next
		if residual < tol {
			return epsbr.Average(), true, nil
		}
	}
	// Best-effort: report the cap, keep the last iterate.
	_, residual, _ := bruggemanStep(epsbr, host, inclusion, depol, f1)
	s.logger().Warn("bruggeman iteration cap reached",
		zap.Int("iterations", maxIter),
		zap.Float64("residual", residual))
	return epsbr.Average(), false, nil
}

// unpackEffective reconstructs the isotropic complex permittivity from
// the optimiser's two real variables.
func unpackEffective(x []float64) complex128 {
	return complex(x[0], math.Exp(x[1])-1)
}

// bruggemanResidual is the minimisation objective: 1 plus the norm of
// the volume-weighted polarisability sum in the trial effective
// medium. The +1 shift keeps the optimiser's relative function
// tolerance meaningful near the zero-residual solution. Singular trial
// media score a large penalty instead of aborting the solve.
func bruggemanResidual(trial complex128, eps1, eps2, depol tensor.Tensor, f1 float64) float64 {
	epsbr := tensor.Isotropic(trial)
	f2 := 1 - f1
	alpha1, err := polarisability(eps1, epsbr, depol)
	if err != nil {
		return 1e10
	}
	alpha2, err := polarisability(eps2, epsbr, depol)
	if err != nil {
		return 1e10
	}
	residual := alpha1.Scale(complex(f1, 0)).Add(alpha2.Scale(complex(f2, 0)))
	return 1 + residual.Norm()
}

// polarisability is the isotropised polarisability of a component in
// the trial effective medium: avg((eps - epsbr) inv(epsbr + avg(L (eps - epsbr)))).
func polarisability(eps, epsbr, depol tensor.Tensor) (tensor.Tensor, error) {
	b := depol.Mul(eps.Sub(epsbr)).Average()
	a, err := epsbr.Add(b).Inverse()
	if err != nil {
		return tensor.Tensor{}, err
	}
	return eps.Sub(epsbr).Mul(a).Average(), nil
}

// bruggemanStep performs one fixed-point update and reports the
// residual of the incoming iterate. The update combines the component
// permittivities weighted by their field-concentration tensors:
// eps <- (f1 eps1 a1 + f2 eps2 a2) (f1 a1 + f2 a2)^-1, isotropised.
func bruggemanStep(epsbr, eps1, eps2, depol tensor.Tensor, f1 float64) (tensor.Tensor, float64, error) {
	f2 := 1 - f1
	cf1 := complex(f1, 0)
	cf2 := complex(f2, 0)

	leps1 := depol.Mul(eps1.Sub(epsbr)).Average()
	leps2 := depol.Mul(eps2.Sub(epsbr)).Average()
	a1, err := epsbr.Add(leps1).Inverse()
	if err != nil {
		return tensor.Tensor{}, 0, err
	}
	a2, err := epsbr.Add(leps2).Inverse()
	if err != nil {
		return tensor.Tensor{}, 0, err
	}

	alpha1 := eps1.Average().Sub(epsbr).Mul(a1)
	alpha2 := eps2.Average().Sub(epsbr).Mul(a2)
	residual := alpha1.Scale(cf1).Add(alpha2.Scale(cf2)).Norm()

	m1 := eps1.Mul(a1).Scale(cf1).Add(eps2.Mul(a2).Scale(cf2))
	m2, err := a1.Scale(cf1).Add(a2.Scale(cf2)).Inverse()
	if err != nil {
		return tensor.Tensor{}, 0, err
	}
	next := m1.Mul(m2).Average()
	return next, residual, nil
}
