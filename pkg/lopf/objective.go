package lopf

import "github.com/psanalysis/gopsa/pkg/network"

// buildObjective assembles the objective: operating cost
// (marginal_cost * dispatch * snapshot weight) plus, for every
// extendable asset, capital_cost * (p_nom_var - p_nom_fixed) so the
// optimiser pays only for capacity added beyond what already exists.
func buildObjective(net *network.Network, p *Problem, idx *VarIndex) {
	for _, name := range net.GeneratorNames() {
		g := net.Generators[name]
		for _, snap := range net.Snapshots.Names {
			w := net.Snapshots.Weight(snap)
			p.AddObjectiveTerm(idx.GenP[VarKey{name, snap}], g.MarginalCost*w)
		}
		if g.PNomExtendable {
			p.AddObjectiveTerm(idx.GenPNom[name], g.CapitalCost)
			p.ObjectiveConstant -= g.CapitalCost * g.PNom
		}
	}

	for _, name := range net.StorageUnitNames() {
		s := net.StorageUnits[name]
		for _, snap := range net.Snapshots.Names {
			w := net.Snapshots.Weight(snap)
			p.AddObjectiveTerm(idx.StoragePDispatch[VarKey{name, snap}], s.MarginalCost*w)
		}
		if s.PNomExtendable {
			p.AddObjectiveTerm(idx.StoragePNom[name], s.CapitalCost)
			p.ObjectiveConstant -= s.CapitalCost * s.PNom
		}
	}

	for _, name := range net.LineNames() {
		l := net.Lines[name]
		if l.SNomExtendable {
			p.AddObjectiveTerm(idx.BranchSNom[name], l.CapitalCost)
			p.ObjectiveConstant -= l.CapitalCost * l.SNom
		}
	}
	for _, name := range net.TransformerNames() {
		t := net.Transformers[name]
		if t.SNomExtendable {
			p.AddObjectiveTerm(idx.BranchSNom[name], t.CapitalCost)
			p.ObjectiveConstant -= t.CapitalCost * t.SNom
		}
	}
	for _, name := range net.ConverterNames() {
		c := net.Converters[name]
		if c.SNomExtendable {
			p.AddObjectiveTerm(idx.BranchSNom[name], c.CapitalCost)
			p.ObjectiveConstant -= c.CapitalCost * c.SNom
		}
	}
	for _, name := range net.TransportLinkNames() {
		t := net.TransportLinks[name]
		if t.SNomExtendable {
			p.AddObjectiveTerm(idx.BranchSNom[name], t.CapitalCost)
			p.ObjectiveConstant -= t.CapitalCost * t.SNom
		}
	}
}
