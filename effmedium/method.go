// Package effmedium implements the effective-medium homogenisation
// theories: given the host and inclusion dielectric tensors, a shape
// depolarisation tensor and a volume fraction, each method returns the
// isotropically averaged effective permittivity of the composite.
//
// The closed-form methods are plain functions; the iterative and
// optimisation-based methods hang off a Solver carrying their budgets
// and a logger for non-fatal convergence warnings.
package effmedium

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/materialsim/phonodielec/tensor"
)

// ErrUnknownMethod reports an unrecognised homogenisation method name.
// It is a configuration error: there is no sensible default method.
var ErrUnknownMethod = errors.New("effmedium: unknown method")

// Method selects one of the homogenisation theories.
type Method int

const (
	AveragedPermittivity Method = iota
	Balan
	MaxwellGarnett
	MaxwellSihvola
	Coherent
	BruggemanMinimise
	BruggemanIterate
)

// String implements fmt.Stringer.
func (m Method) String() string {
	switch m {
	case AveragedPermittivity:
		return "averagedpermittivity"
	case Balan:
		return "balan"
	case MaxwellGarnett:
		return "maxwell"
	case MaxwellSihvola:
		return "maxwell_sihvola"
	case Coherent:
		return "coherent"
	case BruggemanMinimise:
		return "bruggeman_minimise"
	case BruggemanIterate:
		return "bruggeman"
	}
	return fmt.Sprintf("Method(%d)", int(m))
}

// ParseMethod maps a method name to its tag. The accepted names match
// the configuration surface, including the short and long aliases.
func ParseMethod(name string) (Method, error) {
	switch name {
	case "ap", "averagedpermittivity":
		return AveragedPermittivity, nil
	case "balan":
		return Balan, nil
	case "maxwell":
		return MaxwellGarnett, nil
	case "maxwell_sihvola":
		return MaxwellSihvola, nil
	case "coherent":
		return Coherent, nil
	case "bruggeman_minimise":
		return BruggemanMinimise, nil
	case "bruggeman", "bruggeman_iter":
		return BruggemanIterate, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownMethod, name)
}

// Default iteration budgets. These are tunable, not principled: the
// iterative solvers historically run with exactly these values.
const (
	DefaultCoherentIterations = 10
	DefaultBruggemanMaxIter   = 3000
	DefaultBruggemanTol       = 1e-8
	DefaultOptimizerMaxIter   = 1000
)

// Solver evaluates homogenisation methods. The zero value is usable:
// budgets fall back to their defaults and warnings are discarded.
type Solver struct {
	// Logger receives non-fatal numerical warnings (iteration caps,
	// optimiser non-convergence). Nil means discard.
	Logger *zap.Logger

	// CoherentIterations is the fixed damped-iteration count of the
	// coherent method; zero means DefaultCoherentIterations.
	CoherentIterations int

	// BruggemanMaxIter caps the Bruggeman fixed-point iteration; zero
	// means DefaultBruggemanMaxIter.
	BruggemanMaxIter int

	// BruggemanTol is the fixed-point residual target; zero means
	// DefaultBruggemanTol.
	BruggemanTol float64

	// OptimizerMaxIter bounds the Nelder-Mead iterations of the
	// Bruggeman minimisation so one pathological frequency point
	// cannot stall a batch; zero means DefaultOptimizerMaxIter.
	OptimizerMaxIter int
}

// Result is the outcome of one homogenisation solve.
type Result struct {
	// Effective is the isotropically averaged effective permittivity.
	Effective tensor.Tensor

	// Converged is false when an iterative or optimisation-based
	// method exhausted its budget; the tensor is then the best
	// available iterate.
	Converged bool
}

// Solve dispatches on the method tag. Matrix-inversion failures are
// returned as errors local to this evaluation; convergence failures
// are reported through Result.Converged and the logger.
func (s *Solver) Solve(m Method, host, inclusion, depol tensor.Tensor, vf float64) (Result, error) {
	switch m {
	case AveragedPermittivity:
		return Result{Effective: AveragedPermittivityTensor(host, inclusion, vf), Converged: true}, nil
	case Balan:
		eff, err := BalanTensor(host, inclusion, depol, vf)
		return Result{Effective: eff, Converged: true}, err
	case MaxwellGarnett:
		eff, err := MaxwellGarnettTensor(host, inclusion, depol, vf)
		return Result{Effective: eff, Converged: true}, err
	case MaxwellSihvola:
		eff, err := MaxwellSihvolaTensor(host, inclusion, depol, vf)
		return Result{Effective: eff, Converged: true}, err
	case Coherent:
		eff, err := s.CoherentTensor(host, inclusion, depol, vf)
		return Result{Effective: eff, Converged: true}, err
	case BruggemanMinimise:
		eff, converged, err := s.BruggemanMinimiseTensor(host, inclusion, depol, vf)
		return Result{Effective: eff, Converged: converged}, err
	case BruggemanIterate:
		eff, converged, err := s.BruggemanIterateTensor(host, inclusion, depol, vf)
		return Result{Effective: eff, Converged: converged}, err
	}
	return Result{}, fmt.Errorf("%w: %v", ErrUnknownMethod, m)
}

func (s *Solver) logger() *zap.Logger {
	if s.Logger == nil {
		return zap.NewNop()
	}
	return s.Logger
}

func (s *Solver) coherentIterations() int {
	if s.CoherentIterations <= 0 {
		return DefaultCoherentIterations
	}
	return s.CoherentIterations
}

func (s *Solver) bruggemanMaxIter() int {
	if s.BruggemanMaxIter <= 0 {
		return DefaultBruggemanMaxIter
	}
	return s.BruggemanMaxIter
}

func (s *Solver) bruggemanTol() float64 {
	if s.BruggemanTol <= 0 {
		return DefaultBruggemanTol
	}
	return s.BruggemanTol
}

func (s *Solver) optimizerMaxIter() int {
	if s.OptimizerMaxIter <= 0 {
		return DefaultOptimizerMaxIter
	}
	return s.OptimizerMaxIter
}
