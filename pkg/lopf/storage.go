package lopf

import (
	"fmt"
	"math"

	"github.com/psanalysis/gopsa/pkg/network"
)

// buildStorageSOC emits the state-of-charge recurrence:
//
//	soc[s,t] = (1-standing_loss)^w[t] * soc_prev
//	         + efficiency_store * p_store[t] * w[t]
//	         - (1/efficiency_dispatch) * p_dispatch[t] * w[t]
//	         + inflow[t] * w[t]
//
// soc_prev is state_of_charge_initial for the first snapshot, else
// soc[s,t-1]. A (storage, snapshot) cell the user pinned with a non-NaN
// value contributes as a constant (no decision variable, no row).
func buildStorageSOC(net *network.Network, p *Problem, idx *VarIndex) error {
	for _, name := range net.StorageUnitNames() {
		s := net.StorageUnits[name]

		prevIsVar := false
		prevVar := 0
		prevConst := s.StateOfChargeInitial

		for _, snap := range net.Snapshots.Names {
			w := net.Snapshots.Weight(snap)
			decay := math.Pow(1-s.StandingLoss, w)
			inflow := s.Inflow.At(snap, 0) * w

			if fixedVal, fixed := s.FixedSOC(snap); fixed {
				prevIsVar = false
				prevConst = fixedVal
				continue
			}

			socVar, ok := idx.StateOfCharge[VarKey{name, snap}]
			if !ok {
				return fmt.Errorf("lopf: storage %q snapshot %q has no soc variable and is not fixed", name, snap)
			}

			terms := []Term{{Var: socVar, Coef: 1}}
			rhs := inflow
			if prevIsVar {
				terms = append(terms, Term{Var: prevVar, Coef: -decay})
			} else {
				rhs += decay * prevConst
			}

			pdispatch := idx.StoragePDispatch[VarKey{name, snap}]
			pstore := idx.StoragePStore[VarKey{name, snap}]
			terms = append(terms,
				Term{Var: pstore, Coef: -s.EfficiencyStore * w},
				Term{Var: pdispatch, Coef: 1 / s.EfficiencyDispatch * w},
			)

			p.AddConstraint(fmt.Sprintf("soc_balance[%s,%s]", name, snap), terms, EQ, rhs)

			prevIsVar = true
			prevVar = socVar
		}
	}
	return nil
}
