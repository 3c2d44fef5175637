// Package result writes the output of power-flow solves and LOPF
// optimisation back onto a network.Network's per-snapshot series.
package result

import (
	"fmt"
	"math/cmplx"

	"github.com/psanalysis/gopsa/pkg/component"
	"github.com/psanalysis/gopsa/pkg/network"
	"github.com/psanalysis/gopsa/pkg/powerflow"
)

// RunAC solves one sub-network/snapshot with Newton-Raphson and writes
// V/angle, branch flows, and slack/PV power back onto the network. It
// returns the solver's ACResult for callers that want
// the iteration count/residual; a non-converged result is reported as
// network.ErrDivergence rather than silently written back.
func RunAC(net *network.Network, subName, snap string, conv powerflow.Convergence) (*powerflow.ACResult, error) {
	mats, err := net.Matrices(subName)
	if err != nil {
		return nil, err
	}
	if mats.Y == nil {
		return nil, fmt.Errorf("result: nonlinear AC flow on non-AC sub-network %q: %w", subName, network.ErrNotImplemented)
	}
	sn := net.SubNetworks[subName]

	inj, err := acInjection(net, sn, snap)
	if err != nil {
		return nil, err
	}
	numPV, numPQ := len(sn.PVs), len(sn.PQs)

	res, err := powerflow.SolveAC(mats.Y, inj, numPV, numPQ, conv)
	if err != nil {
		return res, fmt.Errorf("result: AC solve on %q/%q: %w", subName, snap, err)
	}
	if !res.Converged {
		return res, fmt.Errorf("result: AC solve on %q/%q did not converge after %d iterations (residual %g): %w",
			subName, snap, res.Iterations, res.Residual, network.ErrDivergence)
	}

	for i, bus := range sn.BusesO {
		b := net.Buses[bus]
		b.VMag.Set(snap, cmplx.Abs(res.V[i]))
		b.VAng.Set(snap, cmplx.Phase(res.V[i]))
	}

	p0, q0, p1, q1 := powerflow.BranchFlows(mats.Y, res.V)
	writeBranchFlows(net, mats.Y.BranchNames, snap, p0, q0, p1, q1)

	slackP, slackQ, pvQ := powerflow.SlackAndPVPower(mats.Y, res.V, numPV)
	net.Buses[sn.SlackBus].P.Set(snap, slackP)
	net.Buses[sn.SlackBus].Q.Set(snap, slackQ)
	if sn.SlackGenerator != "" {
		net.Generators[sn.SlackGenerator].P.Set(snap, slackP)
		net.Generators[sn.SlackGenerator].Q.Set(snap, slackQ)
	}
	for i, bus := range sn.PVs {
		net.Buses[bus].Q.Set(snap, pvQ[i])
	}

	return res, nil
}

// acInjection builds the complex nodal injection vector in bus_o
// order, plus the |V| setpoint used at slack/PV buses (1.0 elsewhere,
// matching SolveAC's own PQ initial guess).
func acInjection(net *network.Network, sn *component.SubNetwork, snap string) (powerflow.NodalInjection, error) {
	n := len(sn.BusesO)
	s := make([]complex128, n)
	vset := make([]float64, n)
	for i := range vset {
		vset[i] = 1
	}

	for _, name := range net.GeneratorNames() {
		g := net.Generators[name]
		i, ok := sn.Index[g.Bus]
		if !ok {
			continue
		}
		s[i] += complex(g.Sign*g.P.At(snap, 0), g.Sign*g.Q.At(snap, 0))
	}
	for _, name := range net.StorageUnitNames() {
		su := net.StorageUnits[name]
		i, ok := sn.Index[su.Bus]
		if !ok {
			continue
		}
		s[i] += complex(su.Sign*su.P.At(snap, 0), su.Sign*su.Q.At(snap, 0))
	}
	for _, name := range net.LoadNames() {
		l := net.Loads[name]
		i, ok := sn.Index[l.Bus]
		if !ok {
			continue
		}
		s[i] += complex(l.Sign*l.PSet.At(snap, 0), l.Sign*l.QSet.At(snap, 0))
	}
	for _, name := range net.ConverterNames() {
		c := net.Converters[name]
		if i, ok := sn.Index[c.Bus0]; ok {
			s[i] -= complex(c.P0.At(snap, 0), 0)
		}
		if i, ok := sn.Index[c.Bus1]; ok {
			s[i] -= complex(c.P1.At(snap, 0), 0)
		}
	}
	for _, name := range net.TransportLinkNames() {
		t := net.TransportLinks[name]
		if i, ok := sn.Index[t.Bus0]; ok {
			s[i] -= complex(t.P0.At(snap, 0), 0)
		}
		if i, ok := sn.Index[t.Bus1]; ok {
			s[i] -= complex(t.P1.At(snap, 0), 0)
		}
	}

	for i, bus := range sn.BusesO {
		if bus == sn.SlackBus || containsName(sn.PVs, bus) {
			b := net.Buses[bus]
			if v, ok := b.VMag[snap]; ok && v == v && v != 0 {
				vset[i] = v
			} else {
				vset[i] = 1
			}
		}
	}

	return powerflow.NodalInjection{S: s, VSet: vset}, nil
}

func containsName(names []string, name string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}

// RunDC solves one sub-network/snapshot with the linear power flow and
// writes the settled state back: bus angles (AC) or voltage magnitudes
// (DC), branch flows, realised load p, and the slack absorption. Linear
// flow has no reactive component, so Q0/Q1 are left untouched.
func RunDC(net *network.Network, subName, snap string) (*powerflow.DCResult, error) {
	mats, err := net.Matrices(subName)
	if err != nil {
		return nil, err
	}
	sn := net.SubNetworks[subName]

	p := net.NodalP(sn, snap)
	res, err := powerflow.SolveDC(mats.BH, p)
	if err != nil {
		return nil, fmt.Errorf("result: DC solve on %q/%q: %w", subName, snap, err)
	}

	for i, bus := range sn.BusesO {
		b := net.Buses[bus]
		if sn.CurrentType == component.AC {
			b.VAng.Set(snap, res.DTheta[i])
		} else {
			// For DC sub-networks dtheta*v_nom is the voltage magnitude
			// deviation from nominal.
			b.VMag.Set(snap, b.VNom+res.DTheta[i]*b.VNom)
		}
	}
	if mats.BH != nil {
		p0 := make([]float64, len(res.Flow))
		p1 := make([]float64, len(res.Flow))
		copy(p0, res.Flow)
		for k, v := range res.Flow {
			p1[k] = -v
		}
		writeBranchFlows(net, mats.BH.BranchNames, snap, p0, nil, p1, nil)
	}

	// The slack bus picks up whatever the remaining buses leave
	// unbalanced; loads dispatch as set.
	net.Buses[sn.SlackBus].P.Set(snap, res.SlackP)
	for _, name := range net.LoadNames() {
		l := net.Loads[name]
		if _, ok := sn.Index[l.Bus]; ok {
			l.P.Set(snap, l.PSet.At(snap, 0))
		}
	}
	if sn.SlackGenerator != "" {
		g := net.Generators[sn.SlackGenerator]
		g.P.Set(snap, g.P.At(snap, 0)+res.SlackP-p[0])
	}

	return res, nil
}

// writeBranchFlows correlates BranchFlows/SolveDC output (branch-build
// order) back to Line/Transformer entities by name. q0/q1 may be nil
// (DC has no reactive component).
func writeBranchFlows(net *network.Network, names []string, snap string, p0, q0, p1, q1 []float64) {
	for k, name := range names {
		if l, ok := net.Lines[name]; ok {
			l.P0.Set(snap, p0[k])
			l.P1.Set(snap, p1[k])
			if q0 != nil {
				l.Q0.Set(snap, q0[k])
				l.Q1.Set(snap, q1[k])
			}
			continue
		}
		if t, ok := net.Transformers[name]; ok {
			t.P0.Set(snap, p0[k])
			t.P1.Set(snap, p1[k])
			if q0 != nil {
				t.Q0.Set(snap, q0[k])
				t.Q1.Set(snap, q1[k])
			}
		}
	}
}
