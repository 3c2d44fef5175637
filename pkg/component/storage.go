package component

import "github.com/psanalysis/gopsa/pkg/snapshot"

// StorageUnit extends Generator with a state-of-charge recurrence
// across snapshots. It is still a Generator-shaped one-port for
// nodal-balance purposes: its net dispatch is (p_dispatch - p_store).
type StorageUnit struct {
	Generator

	StateOfChargeInitial float64

	// StateOfCharge holds user-pinned values; a stored NaN (the Go
	// zero-value sentinel is not NaN, callers must set math.NaN()
	// explicitly) means "free variable, solved by LOPF". A non-NaN entry
	// means the LOPF model builder substitutes the constant directly and
	// does not allocate a decision variable for that cell.
	StateOfCharge snapshot.Series

	MaxHours           float64
	Inflow             snapshot.Series
	EfficiencyStore    float64
	EfficiencyDispatch float64
	StandingLoss       float64

	// PDispatch/PStore are the split dispatch-direction series written
	// by LOPF result extraction; Generator.P holds their net (dispatch -
	// store) for callers that only want net output.
	PDispatch snapshot.Series
	PStore    snapshot.Series
}

// NewStorageUnit builds a StorageUnit with full round-trip efficiency
// and no standing loss; callers override as needed.
func NewStorageUnit(name, bus string, pNom, maxHours float64) *StorageUnit {
	return &StorageUnit{
		Generator:          *NewGenerator(name, bus, pNom, 0),
		MaxHours:           maxHours,
		EfficiencyStore:    1,
		EfficiencyDispatch: 1,
		StandingLoss:       0,
		StateOfCharge:      snapshot.Series{},
		Inflow:             snapshot.Series{},
		PDispatch:          snapshot.Series{},
		PStore:             snapshot.Series{},
	}
}

// FixedSOC reports whether the user pinned a (non-NaN) state-of-charge
// value for snap, and what it is.
func (s *StorageUnit) FixedSOC(snap string) (value float64, fixed bool) {
	v, ok := s.StateOfCharge[snap]
	if !ok {
		return 0, false
	}
	return v, v == v // v==v is false only for NaN
}

// MaxCapacity returns max_hours * p_nom (or p_nom_opt once extended),
// the upper bound on state_of_charge.
func (s *StorageUnit) MaxCapacity() float64 {
	if s.PNomExtendable {
		return s.MaxHours * s.PNomOpt
	}
	return s.MaxHours * s.PNom
}
