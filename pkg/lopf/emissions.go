package lopf

import "github.com/psanalysis/gopsa/pkg/network"

// buildEmissionsCap emits the optional global cap:
//
//	Σ_{g,t} (source.co2_emissions / efficiency) * gen_p[g,t] * w[t] <= co2_limit
//
// Generators whose Source is unset or unknown contribute nothing (no
// emissions data to charge against the cap).
func buildEmissionsCap(net *network.Network, p *Problem, idx *VarIndex) {
	if !net.Config.CO2LimitSet {
		return
	}
	var terms []Term
	for _, name := range net.GeneratorNames() {
		g := net.Generators[name]
		src, ok := net.Sources[g.Source]
		if !ok || src.CO2Emissions == 0 {
			continue
		}
		eff := g.Efficiency
		if eff == 0 {
			eff = 1
		}
		coef := src.CO2Emissions / eff
		for _, snap := range net.Snapshots.Names {
			w := net.Snapshots.Weight(snap)
			terms = append(terms, Term{Var: idx.GenP[VarKey{name, snap}], Coef: coef * w})
		}
	}
	p.AddConstraint("co2_cap", terms, LE, net.Config.CO2Limit)
}
