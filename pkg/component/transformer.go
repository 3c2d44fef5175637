package component

import "github.com/psanalysis/gopsa/pkg/snapshot"

// Transformer is a passive branch whose r/x/g/b are given per-unit of
// its own s_nom; the per-unit calculator renormalises those onto the
// shared 1 MVA system base.
type Transformer struct {
	Name       string
	Bus0, Bus1 string

	// R, X, G, B are per-unit-of-s_nom as given by the user; RPu etc. are
	// renormalised onto the system base.
	R, X, G, B         float64
	RPu, XPu, GPu, BPu float64

	TapRatio    float64 // 0 or unset means 1:1
	PhaseShift  float64 // degrees

	SNom           float64
	SNomExtendable bool
	SNomMin        float64
	SNomMax        float64
	CapitalCost    float64

	SubNetwork string

	P0, Q0 snapshot.Series
	P1, Q1 snapshot.Series

	SNomOpt float64
}

func NewTransformer(name, bus0, bus1 string, r, x, sNom float64) *Transformer {
	return &Transformer{
		Name: name, Bus0: bus0, Bus1: bus1,
		R: r, X: x, SNom: sNom, SNomOpt: sNom,
		TapRatio: 1,
		P0:       snapshot.Series{},
		Q0:       snapshot.Series{},
		P1:       snapshot.Series{},
		Q1:       snapshot.Series{},
	}
}

func (t *Transformer) GetName() string  { return t.Name }
func (t *Transformer) Bus0Name() string { return t.Bus0 }
func (t *Transformer) Bus1Name() string { return t.Bus1 }

// Tau returns the effective tap ratio, treating 0 (unset) as 1.
func (t *Transformer) Tau() float64 {
	if t.TapRatio == 0 {
		return 1
	}
	return t.TapRatio
}
