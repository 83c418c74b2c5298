package phonon

import (
	"math"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/materialsim/phonodielec/tensor"
)

// mixedModes builds a full orthonormal mode set for two atoms by
// rotating pairs of Cartesian basis vectors, so the reconstruction is
// exercised with non-trivial eigenvectors.
func mixedModes() []Displacements {
	c := math.Cos(0.3)
	s := math.Sin(0.3)
	return []Displacements{
		{{c, 0, 0}, {s, 0, 0}},
		{{-s, 0, 0}, {c, 0, 0}},
		{{0, c, 0}, {0, s, 0}},
		{{0, -s, 0}, {0, c, 0}},
		{{0, 0, 1}, {0, 0, 0}},
		{{0, 0, 0}, {0, 0, 1}},
	}
}

func TestLongitudinalModesRoundTrip(t *testing.T) {
	// With zero Born charges the nonanalytic correction vanishes and
	// diagonalising the reconstructed matrix must reproduce the input
	// frequencies, including the unstable (negative) one.
	frequencies := []float64{-50, 10, 20, 30, 40, 60}
	masses := []float64{1, 2}
	born := []BornCharge{{}, {}}
	qlist := []tensor.Vec{{0, 0, 1}, {1, 1, 0}}

	results, err := LongitudinalModes(frequencies, mixedModes(), born, masses,
		tensor.Unit(), 100, qlist, nil)
	require.NoError(t, err)
	require.Len(t, results, 2)

	want := append([]float64(nil), frequencies...)
	sort.Float64s(want)
	for _, got := range results {
		assert.InDeltaSlice(t, want, got, 1e-8)
	}
}

func TestLongitudinalModesSplitting(t *testing.T) {
	// Opposite unit charges on the two atoms: the correction is
	// positive semidefinite, so the top frequency must not decrease
	// and the mode polarised along q must stiffen.
	frequencies := []float64{10, 20, 30, 40, 50, 60}
	masses := []float64{1, 1}
	plus := BornCharge{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}
	minus := BornCharge{{-1, 0, 0}, {0, -1, 0}, {0, 0, -1}}
	born := []BornCharge{plus, minus}
	q := tensor.Vec{0, 0, 1}

	uncorrected, err := LongitudinalModes(frequencies, mixedModes(), []BornCharge{{}, {}},
		masses, tensor.Unit(), 100, []tensor.Vec{q}, nil)
	require.NoError(t, err)
	corrected, err := LongitudinalModes(frequencies, mixedModes(), born, masses,
		tensor.Unit(), 100, []tensor.Vec{q}, nil)
	require.NoError(t, err)

	n := len(frequencies)
	assert.GreaterOrEqual(t, corrected[0][n-1], uncorrected[0][n-1])

	// Sum of squared signed frequencies grows by exactly trace(W).
	var sumU, sumC float64
	for i := 0; i < n; i++ {
		sumU += math.Copysign(uncorrected[0][i]*uncorrected[0][i], uncorrected[0][i])
		sumC += math.Copysign(corrected[0][i]*corrected[0][i], corrected[0][i])
	}
	// trace(W) = 4 pi / (q.eps.q V) * sum_a |qZ_a|^2 / m_a
	wantTrace := 4 * math.Pi / 100.0 * 2.0
	assert.InDelta(t, wantTrace, sumC-sumU, 1e-8)
}

func TestLongitudinalModesErrors(t *testing.T) {
	_, err := LongitudinalModes([]float64{1}, mixedModes(), nil, []float64{1, 2},
		tensor.Unit(), 100, nil, nil)
	assert.Error(t, err)

	// Vanishing q.eps.q is a degenerate geometry.
	frequencies := []float64{10, 20, 30, 40, 50, 60}
	born := []BornCharge{{}, {}}
	_, err = LongitudinalModes(frequencies, mixedModes(), born, []float64{1, 2},
		tensor.Tensor{}, 100, []tensor.Vec{{0, 0, 1}}, nil)
	assert.ErrorIs(t, err, tensor.ErrSingular)

	_, err = LongitudinalModes(frequencies, mixedModes(), born, []float64{1, 2},
		tensor.Unit(), -1, nil, nil)
	assert.Error(t, err)
}

// translationModes builds the orthonormal mass-weighted basis of two
// atoms split into rigid translations and internal vibrations.
func translationModes(m1, m2 float64) []Displacements {
	mt := m1 + m2
	a := math.Sqrt(m1 / mt)
	b := math.Sqrt(m2 / mt)
	return []Displacements{
		// translations
		{{a, 0, 0}, {b, 0, 0}},
		{{0, a, 0}, {0, b, 0}},
		{{0, 0, a}, {0, 0, b}},
		// vibrations
		{{b, 0, 0}, {-a, 0, 0}},
		{{0, b, 0}, {0, -a, 0}},
		{{0, 0, b}, {0, 0, -a}},
	}
}

func TestEckartProjectionZeroesTranslations(t *testing.T) {
	masses := []float64{1, 3}
	modes := translationModes(masses[0], masses[1])
	// The translations carry spurious non-zero frequencies; Eckart
	// projection must push them to zero and leave the vibrations.
	frequencies := []float64{7, 8, 9, 100, 110, 120}

	proj, err := NewEckartProjector(masses)
	require.NoError(t, err)

	results, err := LongitudinalModes(frequencies, modes, []BornCharge{{}, {}},
		masses, tensor.Unit(), 100, []tensor.Vec{{0, 0, 1}}, proj)
	require.NoError(t, err)

	want := []float64{0, 0, 0, 100, 110, 120}
	assert.InDeltaSlice(t, want, results[0], 1e-8)
}

func TestEckartProjectorKillsTranslationVector(t *testing.T) {
	masses := []float64{2, 5}
	proj, err := NewEckartProjector(masses)
	require.NoError(t, err)

	// Project a matrix whose only content is along a translation.
	mt := masses[0] + masses[1]
	tvec := []float64{math.Sqrt(masses[0] / mt), 0, 0, math.Sqrt(masses[1] / mt), 0, 0}
	d := mat.NewDense(6, 6, nil)
	for i := 0; i < 6; i++ {
		for j := 0; j < 6; j++ {
			d.Set(i, j, 42*tvec[i]*tvec[j])
		}
	}
	proj.Project(d)
	for i := 0; i < 6; i++ {
		for j := 0; j < 6; j++ {
			assert.InDelta(t, 0.0, d.At(i, j), 1e-12)
		}
	}
}

func TestNewEckartProjectorErrors(t *testing.T) {
	_, err := NewEckartProjector(nil)
	assert.Error(t, err)
	_, err = NewEckartProjector([]float64{1, 0})
	assert.Error(t, err)
}
