// Package physconsts collects the small set of physical and default
// numeric constants used across the power-flow and LOPF solvers.
package physconsts

const (
	// BaseMVA is the system-wide apparent power base used when no
	// per-scenario base is given.
	BaseMVA = 1.0

	// DegToRad converts phase-shift degrees (transformer taps) to radians.
	DegToRad = 3.14159265358979323846 / 180.0
)

const (
	// DefaultNRTolerance is the default Newton-Raphson mismatch tolerance
	// (infinity norm of the real/imag mismatch vector).
	DefaultNRTolerance = 1e-6

	// DefaultNRMaxIter bounds Newton-Raphson iterations absent a configured cap.
	DefaultNRMaxIter = 100

	// DefaultPTDFTolerance zeroes PTDF entries below this magnitude.
	DefaultPTDFTolerance = 1e-8
)

// DefaultDCOPFFormulation is the branch-flow formulation used by LOPF
// when the caller does not pick one explicitly.
const DefaultDCOPFFormulation = "angles"
