package component

import "github.com/psanalysis/gopsa/pkg/snapshot"

// Bus is an electrical node; its per-snapshot state is a complex
// voltage (VMag, VAng) plus the net injection (P, Q) settled onto it by
// power flow or LOPF result extraction.
type Bus struct {
	Name        string
	VNom        float64
	CurrentType CurrentType
	Control     BusControl

	X, Y float64 // coordinates, for plotting/export only

	// SubNetwork is set by topology analysis; empty until computed.
	SubNetwork string

	VMag          snapshot.Series
	VAng          snapshot.Series
	P             snapshot.Series
	Q             snapshot.Series
	MarginalPrice snapshot.Series
}

// NewBus constructs a Bus with empty per-snapshot series; values are
// written per snapshot as they are set or computed, and reads of an
// unset snapshot return the fallback passed to Series.At.
func NewBus(name string, vNom float64, currentType CurrentType) *Bus {
	return &Bus{
		Name:        name,
		VNom:        vNom,
		CurrentType: currentType,
		Control:     PQ,
		VMag:        snapshot.Series{},
		VAng:        snapshot.Series{},
		P:           snapshot.Series{},
		Q:           snapshot.Series{},
		MarginalPrice: snapshot.Series{},
	}
}

func (b *Bus) GetName() string { return b.Name }
