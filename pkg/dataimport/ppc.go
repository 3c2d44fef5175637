package dataimport

import (
	"fmt"

	"github.com/psanalysis/gopsa/pkg/component"
	"github.com/psanalysis/gopsa/pkg/network"
)

// PPC is a legacy MATPOWER-style power-flow case: dense numeric tables
// in the conventional column layout, all impedances in per-unit on
// BaseMVA.
type PPC struct {
	BaseMVA float64
	// Bus rows: [bus_i, type, Pd, Qd, Gs, Bs, area, Vm, Va, baseKV, ...]
	Bus [][]float64
	// Gen rows: [bus, Pg, Qg, Qmax, Qmin, Vg, mBase, status, Pmax, Pmin, ...]
	Gen [][]float64
	// Branch rows: [fbus, tbus, r, x, b, rateA, rateB, rateC, ratio, angle, status, ...]
	Branch [][]float64
}

const (
	ppcBusPQ    = 1
	ppcBusPV    = 2
	ppcBusSlack = 3
)

// ImportPPC translates a ppc case into a Network: bus rows become Buses
// (and Loads/ShuntImpedances where Pd/Qd/Gs/Bs are nonzero), gen rows
// become Generators, and branch rows become Lines, or Transformers when
// the tap ratio is nonzero. Impedances are rescaled so that
// the per-unit calculator reproduces the ppc's BaseMVA-based values on
// the 1 MVA system base.
func ImportPPC(ppc *PPC) (*network.Network, error) {
	if ppc.BaseMVA <= 0 {
		return nil, fmt.Errorf("dataimport: ppc baseMVA must be positive, got %g: %w", ppc.BaseMVA, network.ErrConfiguration)
	}
	net := network.New()

	busName := map[int]string{}
	busType := map[int]int{}
	for _, row := range ppc.Bus {
		if len(row) < 10 {
			return nil, fmt.Errorf("dataimport: ppc bus row has %d columns, need 10", len(row))
		}
		id := int(row[0])
		name := fmt.Sprintf("bus%d", id)
		busName[id] = name
		busType[id] = int(row[1])

		vNom := row[9]
		if vNom == 0 {
			vNom = 1
		}
		b := component.NewBus(name, vNom, component.AC)
		if err := net.AddBus(b); err != nil {
			return nil, err
		}
		for _, snap := range net.Snapshots.Names {
			b.VMag.Set(snap, row[7])
		}

		if pd, qd := row[2], row[3]; pd != 0 || qd != 0 {
			l := component.NewLoad(fmt.Sprintf("load%d", id), name)
			for _, snap := range net.Snapshots.Names {
				l.PSet.Set(snap, pd)
				l.QSet.Set(snap, qd)
			}
			if err := net.AddLoad(l); err != nil {
				return nil, err
			}
		}
		if gs, bs := row[4], row[5]; gs != 0 || bs != 0 {
			// Gs/Bs are MW/MVAr at V = 1 p.u.; undo the per-unit
			// calculator's v_nom^2 scaling so GPu/BPu land on Gs/BaseMVA.
			sh := component.NewShuntImpedance(fmt.Sprintf("shunt%d", id), name,
				gs/ppc.BaseMVA/(vNom*vNom), bs/ppc.BaseMVA/(vNom*vNom))
			if err := net.AddShunt(sh); err != nil {
				return nil, err
			}
		}
	}

	for i, row := range ppc.Gen {
		if len(row) < 10 {
			return nil, fmt.Errorf("dataimport: ppc gen row has %d columns, need 10", len(row))
		}
		id := int(row[0])
		bus, ok := busName[id]
		if !ok {
			return nil, fmt.Errorf("dataimport: ppc gen %d references unknown bus %d: %w", i, id, network.ErrTopology)
		}
		if len(row) > 7 && row[7] == 0 {
			continue // out of service
		}
		g := component.NewGenerator(fmt.Sprintf("gen%d", i+1), bus, row[8], 0)
		g.PMinPuFixed = 0
		if row[8] != 0 {
			g.PMinPuFixed = row[9] / row[8]
		}
		switch busType[id] {
		case ppcBusSlack:
			g.Control = component.Slack
		default:
			g.Control = component.PV
		}
		for _, snap := range net.Snapshots.Names {
			g.P.Set(snap, row[1])
			g.Q.Set(snap, row[2])
		}
		b := net.Buses[bus]
		for _, snap := range net.Snapshots.Names {
			if row[5] != 0 {
				b.VMag.Set(snap, row[5])
			}
		}
		if err := net.AddGenerator(g); err != nil {
			return nil, err
		}
	}

	for i, row := range ppc.Branch {
		if len(row) < 9 {
			return nil, fmt.Errorf("dataimport: ppc branch row has %d columns, need 9", len(row))
		}
		if len(row) > 10 && row[10] == 0 {
			continue // out of service
		}
		from, okF := busName[int(row[0])]
		to, okT := busName[int(row[1])]
		if !okF || !okT {
			return nil, fmt.Errorf("dataimport: ppc branch %d references unknown bus: %w", i, network.ErrTopology)
		}
		r, x, b := row[2], row[3], row[4]
		rate := row[5]
		tap := row[8]

		if tap != 0 {
			sNom := rate
			if sNom == 0 {
				sNom = ppc.BaseMVA
			}
			// Transformer per-unit values reference its own s_nom; scale
			// so the calculator's /s_nom recovers the BaseMVA-based value.
			t := component.NewTransformer(fmt.Sprintf("branch%d", i+1), from, to,
				r*sNom/ppc.BaseMVA, x*sNom/ppc.BaseMVA, sNom)
			t.B = b * ppc.BaseMVA / sNom
			t.TapRatio = tap
			if len(row) > 9 {
				t.PhaseShift = row[9]
			}
			if err := net.AddTransformer(t); err != nil {
				return nil, err
			}
			continue
		}

		vNom := net.Buses[from].VNom
		// Line per-unit values come out as r / v_nom^2; pre-multiply so
		// r_pu lands on the ppc's BaseMVA-based per-unit value.
		l := component.NewLine(fmt.Sprintf("branch%d", i+1), from, to,
			r/ppc.BaseMVA*vNom*vNom, x/ppc.BaseMVA*vNom*vNom, rate)
		l.B = b * ppc.BaseMVA / (vNom * vNom)
		if err := net.AddLine(l); err != nil {
			return nil, err
		}
	}

	return net, nil
}
