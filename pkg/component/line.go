package component

import "github.com/psanalysis/gopsa/pkg/snapshot"

// Line is a passive AC or DC branch. R/X/G/B are physical values; the
// Pu-suffixed fields are filled in by the per-unit calculator using the
// v_nom of its endpoint buses.
type Line struct {
	Name       string
	Bus0, Bus1 string

	R, X, G, B         float64
	RPu, XPu, GPu, BPu float64
	Length             float64

	SNom            float64
	SNomExtendable  bool
	SNomMin         float64
	SNomMax         float64
	CapitalCost     float64
	TerrainFactor   float64

	VAngMin, VAngMax float64

	// SubNetwork is set by topology analysis.
	SubNetwork string

	P0, Q0 snapshot.Series
	P1, Q1 snapshot.Series

	// SNomOpt is the post-solve extendable rating.
	SNomOpt float64
}

func NewLine(name, bus0, bus1 string, r, x, sNom float64) *Line {
	return &Line{
		Name: name, Bus0: bus0, Bus1: bus1,
		R: r, X: x, SNom: sNom, SNomOpt: sNom,
		TerrainFactor: 1,
		P0:            snapshot.Series{},
		Q0:            snapshot.Series{},
		P1:            snapshot.Series{},
		Q1:            snapshot.Series{},
	}
}

func (l *Line) GetName() string  { return l.Name }
func (l *Line) Bus0Name() string { return l.Bus0 }
func (l *Line) Bus1Name() string { return l.Bus1 }
