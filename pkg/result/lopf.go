package result

import (
	"fmt"

	"github.com/psanalysis/gopsa/pkg/component"
	"github.com/psanalysis/gopsa/pkg/lopf"
	"github.com/psanalysis/gopsa/pkg/network"
	"github.com/psanalysis/gopsa/pkg/powerflow"
)

// RunLOPF builds the linear optimal power flow model, hands it to
// solver, and on an optimal solution writes dispatch, state of charge,
// flows, prices, and extendable capacities back onto net. A non-optimal
// status surfaces as network.ErrInfeasibleSolver and leaves every
// series untouched: LOPF failures are whole-problem.
func RunLOPF(net *network.Network, solver lopf.Solver) (*lopf.Solution, error) {
	model, err := lopf.Build(net)
	if err != nil {
		return nil, err
	}
	sol, err := solver.Solve(model.Problem)
	if err != nil {
		return nil, fmt.Errorf("result: LP solve: %w", err)
	}
	if sol.Status != lopf.StatusOptimal {
		return sol, fmt.Errorf("result: solver finished with status %v: %w", sol.Status, network.ErrInfeasibleSolver)
	}
	if err := ExtractLOPF(net, model, sol); err != nil {
		return sol, err
	}
	return sol, nil
}

// ExtractLOPF writes an optimal Solution back onto the network,
// following the same pass order as the power-flow writer: per-snapshot
// dispatch first, then bus state, then flows, then the one-off capacity
// mutations.
func ExtractLOPF(net *network.Network, model *lopf.Model, sol *lopf.Solution) error {
	for _, snap := range net.Snapshots.Names {
		extractDispatch(net, model, sol, snap)
		extractBusPower(net, snap)
		if model.Formulation == "angles" {
			extractAnglesAndPrices(net, model, sol, snap)
		}
		extractControllable(net, model, sol, snap)
		if model.Formulation == "ptdf" {
			if err := recoverAnglesDC(net, snap); err != nil {
				return err
			}
		}
		if err := extractPassiveFlows(net, snap); err != nil {
			return err
		}
	}
	extractCapacities(net, model, sol)
	return nil
}

// extractDispatch writes generator and storage dispatch plus the solved
// (or user-pinned) state of charge, and each load's realised p = p_set.
func extractDispatch(net *network.Network, model *lopf.Model, sol *lopf.Solution, snap string) {
	for _, name := range net.GeneratorNames() {
		g := net.Generators[name]
		g.P.Set(snap, sol.VarValues[model.Vars.GenP[lopf.VarKey{Name: name, Snap: snap}]])
	}
	for _, name := range net.StorageUnitNames() {
		s := net.StorageUnits[name]
		pd := sol.VarValues[model.Vars.StoragePDispatch[lopf.VarKey{Name: name, Snap: snap}]]
		ps := sol.VarValues[model.Vars.StoragePStore[lopf.VarKey{Name: name, Snap: snap}]]
		s.PDispatch.Set(snap, pd)
		s.PStore.Set(snap, ps)
		s.P.Set(snap, pd-ps)
		if socVar, ok := model.Vars.StateOfCharge[lopf.VarKey{Name: name, Snap: snap}]; ok {
			s.StateOfCharge.Set(snap, sol.VarValues[socVar])
		}
		// User-pinned cells already hold their value; nothing to write.
	}
	for _, name := range net.LoadNames() {
		l := net.Loads[name]
		l.P.Set(snap, l.PSet.At(snap, 0))
	}
}

// extractBusPower settles each bus's net p = sum of sign*p over its
// attached one-ports. Controllable branch flows are subtracted later by
// extractControllable, matching the pass order of the original.
func extractBusPower(net *network.Network, snap string) {
	for _, name := range net.BusNames() {
		net.Buses[name].P.Set(snap, 0)
	}
	add := func(bus string, v float64) {
		b := net.Buses[bus]
		b.P.Set(snap, b.P.At(snap, 0)+v)
	}
	for _, name := range net.GeneratorNames() {
		g := net.Generators[name]
		add(g.Bus, g.Sign*g.P.At(snap, 0))
	}
	for _, name := range net.StorageUnitNames() {
		s := net.StorageUnits[name]
		add(s.Bus, s.Sign*s.P.At(snap, 0))
	}
	for _, name := range net.LoadNames() {
		l := net.Loads[name]
		add(l.Bus, l.Sign*l.P.At(snap, 0))
	}
}

// extractAnglesAndPrices reads bus voltage angles straight off the theta
// variables and each bus's marginal price off the dual of its nodal
// balance row. Only the angles formulation carries per-bus balance rows;
// the ptdf formulation recovers angles by DC back-solve instead and has
// no per-bus dual to report.
func extractAnglesAndPrices(net *network.Network, model *lopf.Model, sol *lopf.Solution, snap string) {
	for _, name := range net.BusNames() {
		b := net.Buses[name]
		if v, ok := model.Vars.VoltageAngle[lopf.VarKey{Name: name, Snap: snap}]; ok {
			b.VAng.Set(snap, sol.VarValues[v])
		}
		if row, ok := model.Constraints.BusBalance[lopf.VarKey{Name: name, Snap: snap}]; ok {
			b.MarginalPrice.Set(snap, sol.Duals[row])
		}
	}
}

// extractControllable writes each controllable branch's flow (p0 at
// bus0, p1 = -p0 at bus1) and subtracts both ends from the endpoint
// buses' net p.
func extractControllable(net *network.Network, model *lopf.Model, sol *lopf.Solution, snap string) {
	settle := func(cb *component.ControllableBranch) {
		p0 := sol.VarValues[model.Vars.ControllableP[lopf.VarKey{Name: cb.Name, Snap: snap}]]
		cb.P0.Set(snap, p0)
		cb.P1.Set(snap, -p0)
		b0, b1 := net.Buses[cb.Bus0], net.Buses[cb.Bus1]
		b0.P.Set(snap, b0.P.At(snap, 0)-p0)
		b1.P.Set(snap, b1.P.At(snap, 0)+p0)
	}
	for _, name := range net.ConverterNames() {
		settle(&net.Converters[name].ControllableBranch)
	}
	for _, name := range net.TransportLinkNames() {
		settle(&net.TransportLinks[name].ControllableBranch)
	}
}

// recoverAnglesDC back-solves B[1:,1:]*theta[1:] = p[1:] per
// sub-network from the settled bus net p, the after-the-fact angle
// recovery the ptdf formulation needs.
func recoverAnglesDC(net *network.Network, snap string) error {
	for _, subName := range net.SubNetworkNames() {
		sn := net.SubNetworks[subName]
		mats, err := net.Matrices(subName)
		if err != nil {
			return err
		}
		p := make([]float64, len(sn.BusesO))
		for i, bus := range sn.BusesO {
			p[i] = net.Buses[bus].P.At(snap, 0)
		}
		res, err := powerflow.SolveDC(mats.BH, p)
		if err != nil {
			return fmt.Errorf("result: recover angles on %q/%q: %w", subName, snap, err)
		}
		for i, bus := range sn.BusesO {
			net.Buses[bus].VAng.Set(snap, res.DTheta[i])
		}
	}
	return nil
}

// extractPassiveFlows recomputes every passive branch's p0/p1 from the
// settled bus angles: p0 = 1/x_pu (AC) or 1/r_pu (DC) * (theta0 -
// theta1), p1 = -p0.
func extractPassiveFlows(net *network.Network, snap string) error {
	flow := func(subName string, rPu, xPu float64, bus0, bus1 string) (float64, error) {
		sn, ok := net.SubNetworks[subName]
		if !ok {
			return 0, fmt.Errorf("result: branch endpoints in unknown sub-network %q", subName)
		}
		den := xPu
		if sn.CurrentType == component.DC {
			den = rPu
		}
		if den == 0 {
			return 0, fmt.Errorf("result: zero per-unit impedance on branch in %q", subName)
		}
		dAng := net.Buses[bus0].VAng.At(snap, 0) - net.Buses[bus1].VAng.At(snap, 0)
		return dAng / den, nil
	}
	for _, name := range net.LineNames() {
		l := net.Lines[name]
		f, err := flow(l.SubNetwork, l.RPu, l.XPu, l.Bus0, l.Bus1)
		if err != nil {
			return err
		}
		l.P0.Set(snap, f)
		l.P1.Set(snap, -f)
	}
	for _, name := range net.TransformerNames() {
		t := net.Transformers[name]
		f, err := flow(t.SubNetwork, t.RPu, t.XPu, t.Bus0, t.Bus1)
		if err != nil {
			return err
		}
		t.P0.Set(snap, f)
		t.P1.Set(snap, -f)
	}
	return nil
}

// extractCapacities permanently mutates p_nom / s_nom for every
// extendable asset to its optimised value.
func extractCapacities(net *network.Network, model *lopf.Model, sol *lopf.Solution) {
	for name, v := range model.Vars.GenPNom {
		g := net.Generators[name]
		g.PNom = sol.VarValues[v]
		g.PNomOpt = g.PNom
	}
	for name, v := range model.Vars.StoragePNom {
		s := net.StorageUnits[name]
		s.PNom = sol.VarValues[v]
		s.PNomOpt = s.PNom
	}
	for name, v := range model.Vars.BranchSNom {
		val := sol.VarValues[v]
		switch {
		case net.Lines[name] != nil:
			net.Lines[name].SNom = val
			net.Lines[name].SNomOpt = val
		case net.Transformers[name] != nil:
			net.Transformers[name].SNom = val
			net.Transformers[name].SNomOpt = val
		case net.Converters[name] != nil:
			net.Converters[name].SNom = val
			net.Converters[name].SNomOpt = val
		case net.TransportLinks[name] != nil:
			net.TransportLinks[name].SNom = val
			net.TransportLinks[name].SNomOpt = val
		}
	}
}
