// Package scan orchestrates the effective-medium frequency scan: it
// turns a phonon dataset and a scenario configuration into per-
// frequency effective permittivities, refractive indices and
// absorption coefficients. Per-frequency evaluations are pure and run
// in parallel; failures stay local to one (frequency, scenario) point.
package scan

import (
	"fmt"
	"math"
	"os"

	"github.com/go-playground/validator/v10"
	"gonum.org/v1/gonum/floats"
	"gopkg.in/yaml.v3"

	"github.com/materialsim/phonodielec/effmedium"
	"github.com/materialsim/phonodielec/phonon"
	"github.com/materialsim/phonodielec/tensor"
	"github.com/materialsim/phonodielec/units"
)

// DefaultSigma is the damping width applied to modes without an
// explicit override, in cm-1.
const DefaultSigma = 5.0

// DefaultModeCutoff excludes near-zero (acoustic) modes from the
// oscillator sum, in cm-1.
const DefaultModeCutoff = 5.0

// Grid is an inclusive frequency grid in cm-1.
type Grid struct {
	Min       float64 `yaml:"min" validate:"gte=0"`
	Max       float64 `yaml:"max" validate:"gtfield=Min"`
	Increment float64 `yaml:"increment" validate:"gt=0"`
}

// Frequencies expands the grid into an ascending slice of sample
// frequencies.
func (g Grid) Frequencies() []float64 {
	n := int(math.Floor((g.Max-g.Min)/g.Increment)) + 1
	if n < 2 {
		return []float64{g.Min}
	}
	return floats.Span(make([]float64, n), g.Min, g.Min+float64(n-1)*g.Increment)
}

// Scenario describes one composite to homogenise: inclusion shape and
// orientation, volume fraction, supporting-medium permittivity and the
// homogenisation method.
type Scenario struct {
	Shape           string     `yaml:"shape" validate:"required,oneof=sphere plate needle ellipsoid"`
	UniqueDirection [3]float64 `yaml:"unique_direction"`
	AspectRatio     float64    `yaml:"aspect_ratio" validate:"gte=0"`
	VolumeFraction  float64    `yaml:"volume_fraction" validate:"gt=0,lte=1"`
	Method          string     `yaml:"method" validate:"required"`

	// MediumPermittivity is the scalar permittivity of the supporting
	// medium; zero means vacuum (1.0).
	MediumPermittivity float64 `yaml:"medium_permittivity" validate:"gte=0"`

	// Concentration is the molarity of unit cells at volume fraction
	// one, in mol/L; zero means derive it from the cell volume.
	Concentration float64 `yaml:"concentration" validate:"gte=0"`
}

// Config is the scan configuration surface.
type Config struct {
	Grid      Grid       `yaml:"frequency_grid"`
	Scenarios []Scenario `yaml:"scenarios" validate:"required,min=1,dive"`

	// Sigma is the default mode damping width in cm-1; zero means
	// DefaultSigma. Sigmas overrides individual modes by index.
	Sigma  float64         `yaml:"sigma" validate:"gte=0"`
	Sigmas map[int]float64 `yaml:"sigmas"`

	// Modes selects the contributing modes explicitly. When empty,
	// every mode whose |frequency| exceeds ModeCutoff contributes,
	// minus any listed in Ignore.
	Modes      []int   `yaml:"modes"`
	Ignore     []int   `yaml:"ignore"`
	ModeCutoff float64 `yaml:"mode_cutoff" validate:"gte=0"`

	// Optional Drude free-carrier term, plasma frequency and width in
	// cm-1.
	Drude       bool    `yaml:"drude"`
	DrudePlasma float64 `yaml:"drude_plasma" validate:"gte=0"`
	DrudeSigma  float64 `yaml:"drude_sigma" validate:"gte=0"`

	// Workers bounds the scan parallelism; zero means GOMAXPROCS.
	Workers int `yaml:"workers" validate:"gte=0"`

	// LODirections lists propagation directions for the longitudinal-
	// mode correction, reported separately from the scan. Eckart
	// requests translational projection of the dynamical matrix first.
	LODirections [][3]float64 `yaml:"lo_directions"`
	Eckart       bool         `yaml:"eckart"`
}

// Dataset is the fixed data contract with the excluded parsing
// collaborators: everything the engine needs, per calculation, in
// conventional units (amu, Angstrom^3, cm-1).
type Dataset struct {
	Masses            []float64             `yaml:"masses" validate:"required,min=1"`
	Volume            float64               `yaml:"volume" validate:"gt=0"`
	Frequencies       []float64             `yaml:"frequencies" validate:"required,min=1"`
	MassWeightedModes []phonon.Displacements `yaml:"mass_weighted_modes" validate:"required,min=1"`
	BornCharges       []phonon.BornCharge   `yaml:"born_charges" validate:"required,min=1"`

	// EpsilonInf is the crystal's optical (high-frequency) dielectric
	// tensor; nil means vacuum.
	EpsilonInf *[3][3]float64 `yaml:"epsilon_inf"`

	// NeutraliseBorn applies the acoustic sum rule to the Born charges
	// before any derivation.
	NeutraliseBorn bool `yaml:"neutralise_born_charges"`
}

var validate = validator.New()

// LoadConfig reads and validates a YAML scan configuration.
func LoadConfig(path string) (Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading config: %w", err)
	}
	return ParseConfig(raw)
}

// ParseConfig parses and validates a YAML scan configuration. Unknown
// methods and malformed shapes are configuration errors and fail here,
// before any work starts.
func ParseConfig(raw []byte) (Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks structural constraints and resolves every method and
// shape name, so a scan never starts with an unknown method.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	for i, sc := range c.Scenarios {
		if _, err := effmedium.ParseMethod(sc.Method); err != nil {
			return fmt.Errorf("scenario %d: %w", i, err)
		}
		shape, err := tensor.ParseShape(sc.Shape)
		if err != nil {
			return fmt.Errorf("scenario %d: %w", i, err)
		}
		if shape != tensor.Sphere {
			if _, err := (tensor.Vec(sc.UniqueDirection)).Normalized(); err != nil {
				return fmt.Errorf("scenario %d: unique direction: %w", i, err)
			}
		}
		if shape == tensor.Ellipsoid && sc.AspectRatio <= 0 {
			return fmt.Errorf("scenario %d: ellipsoid needs a positive aspect ratio", i)
		}
	}
	return nil
}

// LoadDataset reads and validates a YAML phonon dataset.
func LoadDataset(path string) (Dataset, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Dataset{}, fmt.Errorf("reading dataset: %w", err)
	}
	var ds Dataset
	if err := yaml.Unmarshal(raw, &ds); err != nil {
		return Dataset{}, fmt.Errorf("parsing dataset: %w", err)
	}
	if err := ds.Validate(); err != nil {
		return Dataset{}, err
	}
	return ds, nil
}

// Validate checks the dataset's internal consistency.
func (d *Dataset) Validate() error {
	if err := validate.Struct(d); err != nil {
		return fmt.Errorf("invalid dataset: %w", err)
	}
	natoms := len(d.Masses)
	if len(d.BornCharges) != natoms {
		return fmt.Errorf("invalid dataset: %d born charge tensors for %d atoms", len(d.BornCharges), natoms)
	}
	if len(d.MassWeightedModes) != len(d.Frequencies) {
		return fmt.Errorf("invalid dataset: %d modes for %d frequencies", len(d.MassWeightedModes), len(d.Frequencies))
	}
	for i, mode := range d.MassWeightedModes {
		if len(mode) != natoms {
			return fmt.Errorf("invalid dataset: mode %d has %d atoms, expected %d", i, len(mode), natoms)
		}
	}
	return nil
}

// CellConcentration is the molarity of unit cells in mol/L for a
// volume fraction of one, given the cell volume in Angstrom^3.
func CellConcentration(volumeA3 float64) float64 {
	return 1e27 / (units.Avogadro * volumeA3)
}
