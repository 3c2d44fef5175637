package component

import "github.com/psanalysis/gopsa/pkg/snapshot"

// ControllableBranch is the common shape of Converter and TransportLink:
// a branch whose flow is a decision variable (or a fixed schedule)
// rather than a function of bus-angle difference. Controllable branches
// do not create sub-network connectivity.
type ControllableBranch struct {
	Name       string
	Bus0, Bus1 string

	PMin, PMax float64
	PSet       snapshot.Series

	SNom           float64
	SNomExtendable bool
	SNomMin        float64
	SNomMax        float64
	CapitalCost    float64

	P0, P1  snapshot.Series
	SNomOpt float64
}

func newControllableBranch(name, bus0, bus1 string, pMin, pMax float64) ControllableBranch {
	return ControllableBranch{
		Name: name, Bus0: bus0, Bus1: bus1,
		PMin: pMin, PMax: pMax,
		PSet: snapshot.Series{},
		P0:   snapshot.Series{},
		P1:   snapshot.Series{},
	}
}

func (c *ControllableBranch) GetName() string  { return c.Name }
func (c *ControllableBranch) Bus0Name() string { return c.Bus0 }
func (c *ControllableBranch) Bus1Name() string { return c.Bus1 }

// Converter is a controllable branch, typically modelling an AC/DC
// converter station.
type Converter struct{ ControllableBranch }

func NewConverter(name, bus0, bus1 string, pMin, pMax float64) *Converter {
	return &Converter{newControllableBranch(name, bus0, bus1, pMin, pMax)}
}

// TransportLink is a controllable branch with a user-set schedule,
// typically modelling a merchant HVDC link.
type TransportLink struct{ ControllableBranch }

func NewTransportLink(name, bus0, bus1 string, pMin, pMax float64) *TransportLink {
	return &TransportLink{newControllableBranch(name, bus0, bus1, pMin, pMax)}
}
