package scan

import (
	"context"
	"fmt"
	"runtime"
	"sort"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/materialsim/phonodielec/dielectric"
	"github.com/materialsim/phonodielec/effmedium"
	"github.com/materialsim/phonodielec/phonon"
	"github.com/materialsim/phonodielec/tensor"
	"github.com/materialsim/phonodielec/units"
)

// Point is the scan result at one frequency. Err marks a per-point
// computation failure (degenerate geometry at that frequency); the
// remaining fields are then zero.
type Point struct {
	// Frequency in cm-1.
	Frequency float64

	// Trace is the isotropic effective permittivity (trace/3).
	Trace complex128

	// RefractiveIndex is the complex refractive index of the
	// effective medium.
	RefractiveIndex complex128

	// Absorption is the decadic absorption coefficient in cm-1.
	Absorption float64

	// MolarAbsorption is Absorption scaled by concentration and
	// volume fraction, in L.mol-1.cm-1.
	MolarAbsorption float64

	// Converged is false when the solver hit an iteration or
	// optimisation budget at this frequency.
	Converged bool

	Err error
}

// ScenarioResult couples a scenario with its frequency sweep, points
// ascending by frequency.
type ScenarioResult struct {
	Scenario Scenario
	Method   effmedium.Method
	Shape    tensor.Shape
	Points   []Point
}

// LOResult is the longitudinal-mode correction for one propagation
// direction: corrected frequencies in cm-1, ascending.
type LOResult struct {
	Direction   tensor.Vec
	Frequencies []float64
}

// Runner evaluates scan configurations against one phonon dataset.
type Runner struct {
	Logger *zap.Logger
	Solver *effmedium.Solver
}

// NewRunner prepares a runner; a nil logger discards warnings.
func NewRunner(logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		Logger: logger,
		Solver: &effmedium.Solver{Logger: logger},
	}
}

// oscillators is the precomputed, immutable per-mode data shared by
// every frequency point of a scan.
type oscillators struct {
	modeList    []int
	frequencies []float64 // atomic units
	sigmas      []float64 // atomic units
	strengths   []tensor.Tensor
	volume      float64 // atomic units
	epsInf      tensor.Tensor
}

// Run executes every scenario of the configuration over the frequency
// grid. Configuration problems (unknown method, malformed shape) are
// fatal and returned before any work; numerical problems stay local to
// single points.
func (r *Runner) Run(ctx context.Context, ds Dataset, cfg Config) ([]ScenarioResult, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := ds.Validate(); err != nil {
		return nil, err
	}
	osc, err := r.prepare(ds, cfg)
	if err != nil {
		return nil, err
	}

	grid := cfg.Grid.Frequencies()
	results := make([]ScenarioResult, 0, len(cfg.Scenarios))
	for _, sc := range cfg.Scenarios {
		res, err := r.runScenario(ctx, sc, osc, ds.Volume, grid, cfg)
		if err != nil {
			return nil, err
		}
		results = append(results, res)
	}
	return results, nil
}

// prepare derives the oscillator data once, in atomic units.
func (r *Runner) prepare(ds Dataset, cfg Config) (*oscillators, error) {
	masses := make([]float64, len(ds.Masses))
	for i, m := range ds.Masses {
		masses[i] = m * units.EmassPerAMU
	}
	born := ds.BornCharges
	if ds.NeutraliseBorn {
		born = phonon.NeutraliseBornCharges(born)
	}

	cartesian, err := phonon.CartesianModes(masses, ds.MassWeightedModes)
	if err != nil {
		return nil, err
	}
	strengths, err := phonon.OscillatorStrengths(cartesian, born)
	if err != nil {
		return nil, err
	}

	nmodes := len(ds.Frequencies)
	frequencies := make([]float64, nmodes)
	sigmas := make([]float64, nmodes)
	sigma := cfg.Sigma
	if sigma <= 0 {
		sigma = DefaultSigma
	}
	for i, f := range ds.Frequencies {
		frequencies[i] = f * units.HartreePerWavenumber
		s := sigma
		if override, ok := cfg.Sigmas[i]; ok {
			s = override
		}
		sigmas[i] = s * units.HartreePerWavenumber
	}

	modeList, err := selectModes(ds.Frequencies, cfg)
	if err != nil {
		return nil, err
	}
	r.Logger.Debug("prepared oscillator data",
		zap.Int("modes", nmodes),
		zap.Int("selected", len(modeList)))

	epsInf := tensor.Unit()
	if ds.EpsilonInf != nil {
		epsInf = tensor.FromReal(*ds.EpsilonInf)
	}
	bohr := units.BohrPerAngstrom
	return &oscillators{
		modeList:    modeList,
		frequencies: frequencies,
		sigmas:      sigmas,
		strengths:   strengths,
		volume:      ds.Volume * bohr * bohr * bohr,
		epsInf:      epsInf,
	}, nil
}

// selectModes applies the explicit list, or the cutoff-and-ignore
// policy, to choose the contributing modes.
func selectModes(frequencies []float64, cfg Config) ([]int, error) {
	if len(cfg.Modes) > 0 {
		for _, m := range cfg.Modes {
			if m < 0 || m >= len(frequencies) {
				return nil, fmt.Errorf("mode index %d out of range (%d modes)", m, len(frequencies))
			}
		}
		return cfg.Modes, nil
	}
	cutoff := cfg.ModeCutoff
	if cutoff <= 0 {
		cutoff = DefaultModeCutoff
	}
	ignored := make(map[int]bool, len(cfg.Ignore))
	for _, m := range cfg.Ignore {
		ignored[m] = true
	}
	var modes []int
	for i, f := range frequencies {
		if ignored[i] {
			continue
		}
		if f > cutoff || f < -cutoff {
			modes = append(modes, i)
		}
	}
	return modes, nil
}

// runScenario sweeps one scenario over the grid, scattering points
// across workers and gathering them back in frequency order.
func (r *Runner) runScenario(ctx context.Context, sc Scenario, osc *oscillators,
	volumeA3 float64, grid []float64, cfg Config) (ScenarioResult, error) {

	method, err := effmedium.ParseMethod(sc.Method)
	if err != nil {
		return ScenarioResult{}, err
	}
	shape, err := tensor.ParseShape(sc.Shape)
	if err != nil {
		return ScenarioResult{}, err
	}
	depol, err := tensor.Depolarization(shape, tensor.Vec(sc.UniqueDirection), sc.AspectRatio)
	if err != nil {
		return ScenarioResult{}, fmt.Errorf("scenario %s/%s: %w", sc.Shape, sc.Method, err)
	}

	medium := sc.MediumPermittivity
	if medium == 0 {
		medium = 1
	}
	host := tensor.Isotropic(complex(medium, 0))

	concentration := sc.Concentration
	if concentration == 0 {
		concentration = CellConcentration(volumeA3)
	}

	points := make([]Point, len(grid))
	g, ctx := errgroup.WithContext(ctx)
	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	g.SetLimit(workers)

	for i, v := range grid {
		i, v := i, v
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			points[i] = r.evaluate(v, sc, method, host, depol, osc, concentration, cfg)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return ScenarioResult{}, err
	}

	// Completion order is unspecified; the contract is ascending
	// frequency.
	sort.Slice(points, func(a, b int) bool { return points[a].Frequency < points[b].Frequency })
	return ScenarioResult{Scenario: sc, Method: method, Shape: shape, Points: points}, nil
}

// evaluate computes one (frequency, scenario) point. Errors are
// recorded on the point, never propagated: a batch yields partial
// results with per-point failure markers.
func (r *Runner) evaluate(v float64, sc Scenario, method effmedium.Method,
	host, depol tensor.Tensor, osc *oscillators, concentration float64, cfg Config) Point {

	vau := v * units.HartreePerWavenumber
	dielec := dielectric.Contribution(vau, osc.modeList, osc.frequencies, osc.sigmas, osc.strengths, osc.volume)
	if cfg.Drude {
		dielec = dielec.Add(dielectric.DrudeContribution(vau,
			cfg.DrudePlasma*units.HartreePerWavenumber,
			cfg.DrudeSigma*units.HartreePerWavenumber,
			osc.volume))
	}
	dielec = dielec.Add(osc.epsInf)

	result, err := r.Solver.Solve(method, host, dielec, depol, sc.VolumeFraction)
	if err != nil {
		r.Logger.Warn("effective-medium solve failed",
			zap.Float64("frequency", v),
			zap.Stringer("method", method),
			zap.Error(err))
		return Point{Frequency: v, Err: err}
	}

	n, err := tensor.RefractiveIndex(result.Effective)
	if err != nil {
		// Branch-check anomaly: non-fatal, the value is best-effort.
		r.Logger.Warn("refractive index anomaly",
			zap.Float64("frequency", v),
			zap.Error(err))
	}
	absorption := v * 4 * units.Pi * imag(n) * units.Log10E
	return Point{
		Frequency:       v,
		Trace:           result.Effective.Trace() / 3,
		RefractiveIndex: n,
		Absorption:      absorption,
		MolarAbsorption: absorption / concentration / sc.VolumeFraction,
		Converged:       result.Converged,
	}
}

// LongitudinalModes applies the nonanalytic correction for the
// configured propagation directions and returns corrected frequencies
// in cm-1. This branch is independent of the frequency scan.
func (r *Runner) LongitudinalModes(ds Dataset, cfg Config) ([]LOResult, error) {
	if len(cfg.LODirections) == 0 {
		return nil, nil
	}
	if err := ds.Validate(); err != nil {
		return nil, err
	}

	masses := make([]float64, len(ds.Masses))
	for i, m := range ds.Masses {
		masses[i] = m * units.EmassPerAMU
	}
	frequencies := make([]float64, len(ds.Frequencies))
	for i, f := range ds.Frequencies {
		frequencies[i] = f * units.HartreePerWavenumber
	}
	born := ds.BornCharges
	if ds.NeutraliseBorn {
		born = phonon.NeutraliseBornCharges(born)
	}
	epsInf := tensor.Unit()
	if ds.EpsilonInf != nil {
		epsInf = tensor.FromReal(*ds.EpsilonInf)
	}

	var proj phonon.Projector
	if cfg.Eckart {
		p, err := phonon.NewEckartProjector(masses)
		if err != nil {
			return nil, err
		}
		proj = p
	}

	qlist := make([]tensor.Vec, len(cfg.LODirections))
	for i, q := range cfg.LODirections {
		nq, err := tensor.Vec(q).Normalized()
		if err != nil {
			return nil, fmt.Errorf("lo direction %d: %w", i, err)
		}
		qlist[i] = nq
	}

	bohr := units.BohrPerAngstrom
	corrected, err := phonon.LongitudinalModes(frequencies, ds.MassWeightedModes, born,
		masses, epsInf, ds.Volume*bohr*bohr*bohr, qlist, proj)
	if err != nil {
		return nil, err
	}

	out := make([]LOResult, len(qlist))
	for i, freqs := range corrected {
		cm := make([]float64, len(freqs))
		for j, f := range freqs {
			cm[j] = f / units.HartreePerWavenumber
		}
		out[i] = LOResult{Direction: qlist[i], Frequencies: cm}
	}
	return out, nil
}
