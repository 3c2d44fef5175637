package lopf

import (
	"fmt"

	"github.com/psanalysis/gopsa/pkg/component"
	"github.com/psanalysis/gopsa/pkg/network"
)

// busInjectionExprs builds the "power_balance[bus,t]" expression per
// bus: generator dispatch*sign + storage (dispatch-store)*sign +
// load.p_set·sign (load's sign is -1, folded into the constant here) +
// controllable-branch inflows (-1 at bus0, +1 at bus1). It does not
// include passive-branch flow, which each formulation folds in
// differently (angles: via the theta variables directly in the
// constraint row; ptdf: via the PTDF-weighted sum of these expressions).
func busInjectionExprs(net *network.Network, snap string, idx *VarIndex) map[string]*expr {
	out := map[string]*expr{}
	get := func(bus string) *expr {
		e, ok := out[bus]
		if !ok {
			e = &expr{}
			out[bus] = e
		}
		return e
	}

	for _, name := range net.GeneratorNames() {
		g := net.Generators[name]
		get(g.Bus).add(idx.GenP[VarKey{name, snap}], g.Sign)
	}
	for _, name := range net.StorageUnitNames() {
		s := net.StorageUnits[name]
		e := get(s.Bus)
		e.add(idx.StoragePDispatch[VarKey{name, snap}], s.Sign)
		e.add(idx.StoragePStore[VarKey{name, snap}], -s.Sign)
	}
	for _, name := range net.LoadNames() {
		l := net.Loads[name]
		get(l.Bus).addConst(l.Sign * l.PSet.At(snap, 0))
	}
	for _, name := range net.ConverterNames() {
		c := net.Converters[name]
		v := idx.ControllableP[VarKey{name, snap}]
		get(c.Bus0).add(v, -1)
		get(c.Bus1).add(v, 1)
	}
	for _, name := range net.TransportLinkNames() {
		t := net.TransportLinks[name]
		v := idx.ControllableP[VarKey{name, snap}]
		get(t.Bus0).add(v, -1)
		get(t.Bus1).add(v, 1)
	}
	return out
}

// branchSusceptance returns b = 1/x_pu (AC) or 1/r_pu (DC), the same
// convention pkg/matrix.BuildBH uses.
func branchSusceptance(ac bool, rPu, xPu float64) (float64, error) {
	if ac {
		if xPu == 0 {
			return 0, fmt.Errorf("lopf: branch has zero x_pu")
		}
		return 1 / xPu, nil
	}
	if rPu == 0 {
		return 0, fmt.Errorf("lopf: branch has zero r_pu")
	}
	return 1 / rPu, nil
}

// addThermalLimit emits the |flow| <= limit pair of rows:
// terms+flowConst is the flow expression,
// bounded by sNomFixed when not extendable or by the ±sNomVarIdx
// variable when it is.
func addThermalLimit(p *Problem, name, snap string, terms []Term, flowConst float64, sNomFixed float64, sNomVarIdx int, extendable bool) {
	if extendable {
		ub := append(append([]Term(nil), terms...), Term{Var: sNomVarIdx, Coef: -1})
		lb := append(append([]Term(nil), terms...), Term{Var: sNomVarIdx, Coef: 1})
		p.AddConstraint(fmt.Sprintf("thermal_ub[%s,%s]", name, snap), ub, LE, -flowConst)
		p.AddConstraint(fmt.Sprintf("thermal_lb[%s,%s]", name, snap), lb, GE, -flowConst)
		return
	}
	p.AddConstraint(fmt.Sprintf("thermal_ub[%s,%s]", name, snap), terms, LE, sNomFixed-flowConst)
	p.AddConstraint(fmt.Sprintf("thermal_lb[%s,%s]", name, snap), terms, GE, -sNomFixed-flowConst)
}

// buildAnglesFormulation emits the "angles" branch-flow formulation:
// one nodal-balance equality per (bus, snapshot) folding the
// DC susceptance matrix B directly into the same row as the injection
// terms, and one thermal-limit pair per (passive branch, snapshot).
func buildAnglesFormulation(net *network.Network, p *Problem, idx *VarIndex, cidx *ConstraintIndex) error {
	for _, subName := range net.SubNetworkNames() {
		sn := net.SubNetworks[subName]
		mats, err := net.Matrices(subName)
		if err != nil {
			return fmt.Errorf("lopf: matrices for %q: %w", subName, err)
		}
		for _, snap := range net.Snapshots.Names {
			busExprs := busInjectionExprs(net, snap, idx)

			for i, bus := range sn.BusesO {
				e := busExprs[bus]
				if e == nil {
					e = &expr{}
				}
				terms := append([]Term(nil), e.terms...)
				if mats.BH != nil {
					for j, busJ := range sn.BusesO {
						coef := mats.BH.B[i][j]
						if coef == 0 {
							continue
						}
						terms = append(terms, Term{Var: idx.VoltageAngle[VarKey{busJ, snap}], Coef: -coef})
					}
				}
				row := p.AddConstraint(fmt.Sprintf("balance[%s,%s]", bus, snap), terms, EQ, -e.const_)
				cidx.BusBalance[VarKey{bus, snap}] = row
			}

			if mats.BH == nil {
				continue
			}
			for _, branchName := range mats.BH.BranchNames {
				rPu, xPu, err := branchPu(net, branchName)
				if err != nil {
					return err
				}
				b, err := branchSusceptance(sn.CurrentType == component.AC, rPu, xPu)
				if err != nil {
					return fmt.Errorf("lopf: branch %q: %w", branchName, err)
				}
				bus0, bus1 := branchBuses(net, branchName)
				theta0 := idx.VoltageAngle[VarKey{bus0, snap}]
				theta1 := idx.VoltageAngle[VarKey{bus1, snap}]
				terms := []Term{{Var: theta0, Coef: b}, {Var: theta1, Coef: -b}}
				sNomFixed, sNomVarIdx, extendable := branchSNomInfo(net, idx, branchName)
				addThermalLimit(p, branchName, snap, terms, 0, sNomFixed, sNomVarIdx, extendable)
			}
		}
	}
	return nil
}

// buildPTDFFormulation emits the "ptdf" branch-flow formulation: one
// total-balance equality per (sub-network, snapshot)
// and one thermal-limit pair per (passive branch, snapshot) expressed as
// a PTDF-weighted sum of every bus's injection expression in its
// sub-network.
func buildPTDFFormulation(net *network.Network, p *Problem, idx *VarIndex, cidx *ConstraintIndex) error {
	for _, subName := range net.SubNetworkNames() {
		sn := net.SubNetworks[subName]
		mats, err := net.Matrices(subName)
		if err != nil {
			return fmt.Errorf("lopf: matrices for %q: %w", subName, err)
		}
		for _, snap := range net.Snapshots.Names {
			busExprs := busInjectionExprs(net, snap, idx)

			total := &expr{}
			for _, bus := range sn.BusesO {
				if e := busExprs[bus]; e != nil {
					mergeInto(total, *e)
				}
			}
			row := p.AddConstraint(fmt.Sprintf("subbalance[%s,%s]", subName, snap), total.terms, EQ, -total.const_)
			cidx.SubNetworkBalance[VarKey{subName, snap}] = row

			if mats.PTDF == nil {
				continue
			}
			for k, branchName := range mats.BH.BranchNames {
				flow := &expr{}
				for i, bus := range sn.BusesO {
					w := mats.PTDF[k][i]
					if w == 0 {
						continue
					}
					if e := busExprs[bus]; e != nil {
						mergeInto(flow, e.scaled(w))
					}
				}
				sNomFixed, sNomVarIdx, extendable := branchSNomInfo(net, idx, branchName)
				addThermalLimit(p, branchName, snap, flow.terms, flow.const_, sNomFixed, sNomVarIdx, extendable)
			}
		}
	}
	return nil
}

func branchPu(net *network.Network, name string) (rPu, xPu float64, err error) {
	if l, ok := net.Lines[name]; ok {
		return l.RPu, l.XPu, nil
	}
	if t, ok := net.Transformers[name]; ok {
		return t.RPu, t.XPu, nil
	}
	return 0, 0, fmt.Errorf("lopf: unknown passive branch %q", name)
}

func branchBuses(net *network.Network, name string) (bus0, bus1 string) {
	if l, ok := net.Lines[name]; ok {
		return l.Bus0, l.Bus1
	}
	if t, ok := net.Transformers[name]; ok {
		return t.Bus0, t.Bus1
	}
	return "", ""
}

func branchSNomInfo(net *network.Network, idx *VarIndex, name string) (fixed float64, varIdx int, extendable bool) {
	if l, ok := net.Lines[name]; ok {
		if l.SNomExtendable {
			return 0, idx.BranchSNom[name], true
		}
		return l.SNom, 0, false
	}
	if t, ok := net.Transformers[name]; ok {
		if t.SNomExtendable {
			return 0, idx.BranchSNom[name], true
		}
		return t.SNom, 0, false
	}
	return 0, 0, false
}
