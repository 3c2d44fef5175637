// Package lopf builds the linear optimal power flow program from a
// network.Network and hands it to an external Solver; the LP data types
// (Variable, Constraint, Problem) are this module's own vocabulary, not
// borrowed from any one solver backend, so any conformant backend can
// serve. Result extraction back onto the network lives in pkg/result,
// which reads the VarIndex/ConstraintIndex this package returns.
package lopf

import (
	"fmt"

	"github.com/psanalysis/gopsa/pkg/network"
)

// Build constructs the full multi-snapshot LP from net's current
// entities, topology, and configuration. It runs
// Network.EnsureTopology first (building sub-networks/matrices if stale)
// and returns a ConfigurationError if dc_opf_formulation is not one of
// "angles"/"ptdf".
func Build(net *network.Network) (*Model, error) {
	formulation := net.Config.DCOPFFormulation
	if formulation == "" {
		formulation = "angles"
	}
	if formulation != "angles" && formulation != "ptdf" {
		return nil, fmt.Errorf("lopf: unknown dc_opf_formulation %q: %w", formulation, network.ErrConfiguration)
	}

	if err := net.EnsureTopology(); err != nil {
		return nil, fmt.Errorf("lopf: %w", err)
	}

	p := &Problem{}
	idx := newVarIndex()
	cidx := newConstraintIndex()

	if err := buildGeneratorVars(net, p, idx); err != nil {
		return nil, err
	}
	if err := buildStorageVars(net, p, idx); err != nil {
		return nil, err
	}
	buildBranchSNomVars(net, p, idx)
	buildControllableVars(net, p, idx)

	if formulation == "angles" {
		buildVoltageAngleVars(net, p, idx)
		if err := buildAnglesFormulation(net, p, idx, cidx); err != nil {
			return nil, err
		}
	} else {
		if err := buildPTDFFormulation(net, p, idx, cidx); err != nil {
			return nil, err
		}
	}

	if err := buildStorageSOC(net, p, idx); err != nil {
		return nil, err
	}
	buildEmissionsCap(net, p, idx)
	buildObjective(net, p, idx)

	return &Model{Problem: p, Vars: idx, Constraints: cidx, Formulation: formulation}, nil
}
