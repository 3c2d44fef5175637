package component

import "github.com/psanalysis/gopsa/pkg/snapshot"

// Generator is a one-port injecting active (and, for AC sub-networks,
// reactive) power at its bus.
type Generator struct {
	Name   string
	Bus    string
	Source string // fuel type, references a Source entity by name

	Dispatch DispatchType
	Control  BusControl // PQ / PV / Slack role this generator may take

	PNom           float64
	PNomMin        float64
	PNomMax        float64
	PNomExtendable bool

	// PMinPuFixed/PMaxPuFixed are used for Flexible/Inflexible generators.
	// PMinPu/PMaxPu are used for Variable generators (time series).
	PMinPuFixed float64
	PMaxPuFixed float64
	PMinPu      snapshot.Series
	PMaxPu      snapshot.Series

	Efficiency   float64
	MarginalCost float64
	CapitalCost  float64

	// Sign is always +1 for a Generator; the field exists (rather than a
	// hardcoded literal in balance code) so StorageUnit, which embeds
	// Generator, and any future one-port can share the same nodal-balance
	// expression.
	Sign float64

	P snapshot.Series
	Q snapshot.Series

	// PNomOpt is the post-solve extendable capacity, written by LOPF
	// result extraction; equals PNom when not extendable.
	PNomOpt float64
}

// NewGenerator builds a flexible, non-extendable Generator with sign +1.
func NewGenerator(name, bus string, pNom, marginalCost float64) *Generator {
	return &Generator{
		Name:         name,
		Bus:          bus,
		Dispatch:     Flexible,
		Control:      PQ,
		PNom:         pNom,
		PNomOpt:      pNom,
		PMinPuFixed:  0,
		PMaxPuFixed:  1,
		Efficiency:   1,
		MarginalCost: marginalCost,
		Sign:         1,
		P:            snapshot.Series{},
		Q:            snapshot.Series{},
		PMinPu:       snapshot.Series{},
		PMaxPu:       snapshot.Series{},
	}
}

func (g *Generator) GetName() string  { return g.Name }
func (g *Generator) BusName() string  { return g.Bus }
func (g *Generator) GetSign() float64 { return g.Sign }

// PBounds returns the per-snapshot [min, max] active-power bound for a
// non-extendable generator.
func (g *Generator) PBounds(snap string) (min, max float64) {
	switch g.Dispatch {
	case Variable:
		return g.PNom * g.PMinPu.At(snap, 0), g.PNom * g.PMaxPu.At(snap, 1)
	default: // Flexible, Inflexible
		return g.PNom * g.PMinPuFixed, g.PNom * g.PMaxPuFixed
	}
}
