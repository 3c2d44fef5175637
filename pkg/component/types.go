// Package component declares the entity types of a power network: Bus,
// Generator, StorageUnit, Load, ShuntImpedance, Line, Transformer,
// Converter, TransportLink, Source, and SubNetwork.
//
// Entities reference each other by stable string name, never by
// pointer: Generator.Bus holds a bus name, not a *Bus.
// This keeps the data model a set of flat tables indexable by name, the
// shape pkg/network actually assembles matrices from, and avoids the
// reference cycles a pointer-linked graph of these types would invite.
package component

// CurrentType distinguishes AC from DC buses and sub-networks.
type CurrentType int

const (
	AC CurrentType = iota
	DC
)

func (c CurrentType) String() string {
	if c == DC {
		return "DC"
	}
	return "AC"
}

// BusControl is the power-flow role assigned to a bus within its
// sub-network.
type BusControl int

const (
	PQ BusControl = iota
	PV
	Slack
)

func (c BusControl) String() string {
	switch c {
	case PV:
		return "PV"
	case Slack:
		return "Slack"
	default:
		return "PQ"
	}
}

// DispatchType classifies how a Generator's active-power bounds behave.
type DispatchType int

const (
	// Flexible generators have a fixed scalar p_min/max_pu.
	Flexible DispatchType = iota
	// Variable generators have a per-snapshot p_max_pu (e.g. wind/solar).
	Variable
	// Inflexible generators are bounded by the same fixed scalar
	// p_min/max_pu as Flexible ones; no output is pinned.
	Inflexible
)

// OnePort is any component attached to exactly one Bus whose dispatch
// contributes to that bus's nodal balance with a fixed sign convention.
type OnePort interface {
	GetName() string
	BusName() string
	GetSign() float64
}

// Branch is any component connecting exactly two buses.
type Branch interface {
	GetName() string
	Bus0Name() string
	Bus1Name() string
}
