package lopf

import (
	"fmt"
	"math"

	"github.com/psanalysis/gopsa/pkg/component"
	"github.com/psanalysis/gopsa/pkg/network"
)

var inf = math.Inf(1)

// genPuBounds returns the per-snapshot [min,max] *_pu multipliers for a
// generator (or a storage unit's embedded Generator):
// Flexible/Inflexible use the fixed scalar, Variable uses the
// per-snapshot series and it is a NotImplemented error for that series
// to be missing the snapshot.
func genPuBounds(g *component.Generator, snap string) (minPu, maxPu float64, err error) {
	if g.Dispatch == component.Variable {
		if _, ok := g.PMaxPu[snap]; !ok {
			return 0, 0, fmt.Errorf("lopf: generator %q is variable-dispatch with no p_max_pu for snapshot %q: %w", g.Name, snap, network.ErrNotImplemented)
		}
		return g.PMinPu.At(snap, 0), g.PMaxPu.At(snap, 0), nil
	}
	return g.PMinPuFixed, g.PMaxPuFixed, nil
}

// buildGeneratorVars declares gen_p[g,t] for every generator/snapshot
// and gen_p_nom[g] for every extendable generator.
func buildGeneratorVars(net *network.Network, p *Problem, idx *VarIndex) error {
	for _, name := range net.GeneratorNames() {
		g := net.Generators[name]
		if g.PNomExtendable {
			idx.GenPNom[name] = p.AddVariable("gen_p_nom["+name+"]", g.PNomMin, g.PNomMax)
		}
		for _, snap := range net.Snapshots.Names {
			minPu, maxPu, err := genPuBounds(g, snap)
			if err != nil {
				return err
			}
			var lower, upper float64
			if g.PNomExtendable {
				lower, upper = -inf, inf
			} else {
				lower, upper = g.PNom*minPu, g.PNom*maxPu
			}
			v := p.AddVariable(fmt.Sprintf("gen_p[%s,%s]", name, snap), lower, upper)
			idx.GenP[VarKey{name, snap}] = v
			if g.PNomExtendable {
				pnomVar := idx.GenPNom[name]
				p.AddConstraint(fmt.Sprintf("gen_p_ub[%s,%s]", name, snap),
					[]Term{{Var: v, Coef: 1}, {Var: pnomVar, Coef: -maxPu}}, LE, 0)
				p.AddConstraint(fmt.Sprintf("gen_p_lb[%s,%s]", name, snap),
					[]Term{{Var: v, Coef: 1}, {Var: pnomVar, Coef: -minPu}}, GE, 0)
			}
		}
	}
	return nil
}

// buildStorageVars declares storage_p_dispatch, storage_p_store,
// storage_p_nom and state_of_charge. A (storage, snapshot) cell with a
// user-pinned (non-NaN) state_of_charge does not get a decision
// variable.
func buildStorageVars(net *network.Network, p *Problem, idx *VarIndex) error {
	for _, name := range net.StorageUnitNames() {
		s := net.StorageUnits[name]
		if s.PNomExtendable {
			idx.StoragePNom[name] = p.AddVariable("storage_p_nom["+name+"]", s.PNomMin, s.PNomMax)
		}
		for _, snap := range net.Snapshots.Names {
			minPu, maxPu, err := genPuBounds(&s.Generator, snap)
			if err != nil {
				return err
			}
			if minPu < 0 {
				minPu = 0 // directional variables are split non-negative
			}

			var upper float64
			if s.PNomExtendable {
				upper = inf
			} else {
				upper = s.PNom * maxPu
			}

			vd := p.AddVariable(fmt.Sprintf("storage_p_dispatch[%s,%s]", name, snap), 0, upper)
			vs := p.AddVariable(fmt.Sprintf("storage_p_store[%s,%s]", name, snap), 0, upper)
			idx.StoragePDispatch[VarKey{name, snap}] = vd
			idx.StoragePStore[VarKey{name, snap}] = vs

			if s.PNomExtendable {
				pnomVar := idx.StoragePNom[name]
				p.AddConstraint(fmt.Sprintf("storage_dispatch_ub[%s,%s]", name, snap),
					[]Term{{Var: vd, Coef: 1}, {Var: pnomVar, Coef: -maxPu}}, LE, 0)
				p.AddConstraint(fmt.Sprintf("storage_store_ub[%s,%s]", name, snap),
					[]Term{{Var: vs, Coef: 1}, {Var: pnomVar, Coef: -maxPu}}, LE, 0)
			}

			if _, fixed := s.FixedSOC(snap); fixed {
				continue
			}
			soc := p.AddVariable(fmt.Sprintf("soc[%s,%s]", name, snap), 0, inf)
			idx.StateOfCharge[VarKey{name, snap}] = soc
			if s.PNomExtendable {
				pnomVar := idx.StoragePNom[name]
				p.AddConstraint(fmt.Sprintf("soc_cap[%s,%s]", name, snap),
					[]Term{{Var: soc, Coef: 1}, {Var: pnomVar, Coef: -s.MaxHours}}, LE, 0)
			} else {
				p.Variables[soc].Upper = s.MaxHours * s.PNom
			}
		}
	}
	return nil
}

// buildBranchSNomVars declares branch_s_nom[br] for every extendable
// passive or controllable branch.
func buildBranchSNomVars(net *network.Network, p *Problem, idx *VarIndex) {
	for _, name := range net.LineNames() {
		l := net.Lines[name]
		if l.SNomExtendable {
			idx.BranchSNom[name] = p.AddVariable("branch_s_nom["+name+"]", l.SNomMin, l.SNomMax)
		}
	}
	for _, name := range net.TransformerNames() {
		t := net.Transformers[name]
		if t.SNomExtendable {
			idx.BranchSNom[name] = p.AddVariable("branch_s_nom["+name+"]", t.SNomMin, t.SNomMax)
		}
	}
	for _, name := range net.ConverterNames() {
		c := net.Converters[name]
		if c.SNomExtendable {
			idx.BranchSNom[name] = p.AddVariable("branch_s_nom["+name+"]", c.SNomMin, c.SNomMax)
		}
	}
	for _, name := range net.TransportLinkNames() {
		t := net.TransportLinks[name]
		if t.SNomExtendable {
			idx.BranchSNom[name] = p.AddVariable("branch_s_nom["+name+"]", t.SNomMin, t.SNomMax)
		}
	}
}

// buildControllableVars declares controllable_branch_p[br,t] for every
// Converter/TransportLink and snapshot.
func buildControllableVars(net *network.Network, p *Problem, idx *VarIndex) {
	addOne := func(name string, pMin, pMax float64, extendable bool) {
		for _, snap := range net.Snapshots.Names {
			var lower, upper float64
			if extendable {
				lower, upper = -inf, inf
			} else {
				lower, upper = pMin, pMax
			}
			v := p.AddVariable(fmt.Sprintf("controllable_p[%s,%s]", name, snap), lower, upper)
			idx.ControllableP[VarKey{name, snap}] = v
			if extendable {
				sVar := idx.BranchSNom[name]
				p.AddConstraint(fmt.Sprintf("controllable_ub[%s,%s]", name, snap),
					[]Term{{Var: v, Coef: 1}, {Var: sVar, Coef: -1}}, LE, 0)
				p.AddConstraint(fmt.Sprintf("controllable_lb[%s,%s]", name, snap),
					[]Term{{Var: v, Coef: 1}, {Var: sVar, Coef: 1}}, GE, 0)
			}
		}
	}
	for _, name := range net.ConverterNames() {
		c := net.Converters[name]
		addOne(name, c.PMin, c.PMax, c.SNomExtendable)
	}
	for _, name := range net.TransportLinkNames() {
		t := net.TransportLinks[name]
		addOne(name, t.PMin, t.PMax, t.SNomExtendable)
	}
}

// buildVoltageAngleVars declares voltage_angles[bus,t] (angles
// formulation only), fixing each sub-network's slack bus angle to 0 per
// snapshot by pinning the variable's bounds rather than adding a
// separate equality row.
func buildVoltageAngleVars(net *network.Network, p *Problem, idx *VarIndex) {
	for _, subName := range net.SubNetworkNames() {
		sn := net.SubNetworks[subName]
		for _, bus := range sn.BusesO {
			for _, snap := range net.Snapshots.Names {
				lower, upper := -inf, inf
				if bus == sn.SlackBus {
					lower, upper = 0, 0
				}
				v := p.AddVariable(fmt.Sprintf("theta[%s,%s]", bus, snap), lower, upper)
				idx.VoltageAngle[VarKey{bus, snap}] = v
			}
		}
	}
}
