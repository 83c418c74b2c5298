// Package units holds the physical constants and unit conversions used
// throughout the dielectric engine. Internally all engine quantities are
// in Hartree atomic units; these factors convert the conventional input
// units (amu, Angstrom, cm-1, Debye) into atomic units and back.
//
// The values are read-only process-wide state: nothing in this module
// mutates them after initialisation.
package units

import "math"

const (
	Pi = math.Pi

	// Avogadro is the SI Avogadro constant, mol^-1.
	Avogadro = 6.02214076e23

	// BohrPerAngstrom converts lengths from Angstrom to Bohr.
	BohrPerAngstrom = 1.8897261246

	// EmassPerAMU converts masses from atomic mass units to electron masses.
	EmassPerAMU = 1822.8884850

	// HartreePerWavenumber converts frequencies from cm-1 to Hartree.
	HartreePerWavenumber = 4.556335252767e-6

	// AUPerDebye converts dipole moments from Debye to atomic units (e.Bohr).
	AUPerDebye = 0.3934303
)

// DsqPerAmuAngsqAU is the value of 1 (D/A)^2/amu in atomic units.
// Oscillator-strength traces computed in atomic units are divided by
// this to give infrared intensities in the conventional (D/A)^2/amu.
const DsqPerAmuAngsqAU = (AUPerDebye / BohrPerAngstrom) * (AUPerDebye / BohrPerAngstrom) / EmassPerAMU

// LorentzianPrefactor converts mode intensities in (D/A)^2/amu into a
// molar absorption coefficient in L.mol-1.cm-2 when summed over
// Lorentzian line shapes.
const LorentzianPrefactor = 4225.6

// Log10E appears in the decadic Beer-Lambert absorption coefficient.
var Log10E = math.Log10(math.E)
