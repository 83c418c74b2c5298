package effmedium

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMethod(t *testing.T) {
	cases := []struct {
		name string
		want Method
	}{
		{"averagedpermittivity", AveragedPermittivity},
		{"ap", AveragedPermittivity},
		{"balan", Balan},
		{"maxwell", MaxwellGarnett},
		{"maxwell_sihvola", MaxwellSihvola},
		{"coherent", Coherent},
		{"bruggeman_minimise", BruggemanMinimise},
		{"bruggeman", BruggemanIterate},
		{"bruggeman_iter", BruggemanIterate},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			m, err := ParseMethod(tc.name)
			require.NoError(t, err)
			assert.Equal(t, tc.want, m)
		})
	}
}

func TestParseMethodUnknown(t *testing.T) {
	_, err := ParseMethod("mie")
	require.ErrorIs(t, err, ErrUnknownMethod)
}

func TestMethodStringRoundTrip(t *testing.T) {
	// Every canonical name parses back to the same tag. "ap" and
	// "bruggeman_iter" are input-only aliases, so only the String side
	// is checked here.
	for _, m := range []Method{
		AveragedPermittivity, Balan, MaxwellGarnett, MaxwellSihvola,
		Coherent, BruggemanMinimise, BruggemanIterate,
	} {
		back, err := ParseMethod(m.String())
		require.NoError(t, err, m.String())
		assert.Equal(t, m, back)
	}
}

func TestSolveUnknownMethod(t *testing.T) {
	var s Solver
	_, err := s.Solve(Method(99), hostUnit(), hostUnit(), sphereDepol(), 0.1)
	require.ErrorIs(t, err, ErrUnknownMethod)
}
