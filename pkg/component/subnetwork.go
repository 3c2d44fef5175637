package component

// SubNetwork is a maximal connected component of passive branches of
// one current type. Its numeric caches (Y, B, H, PTDF) are NOT stored
// here: they live in network.Network's matrix-cache table, keyed by
// SubNetwork name, so this package never imports pkg/matrix and stays a
// pure data type.
type SubNetwork struct {
	Name        string
	CurrentType CurrentType
	Frequency   float64
	NumPhases   int

	// Buses is the sub-network's membership, in discovery order (not the
	// canonical numbering — that is BusesO).
	Buses    []string
	Branches []string // Line/Transformer names belonging to this sub-network

	SlackBus       string
	SlackGenerator string // empty if the sub-network has no generators

	// PVs/PQs/PVPQs/BusesO are the canonical bus orderings every matrix
	// shares: BusesO = [slack] ++ PVPQs, and Index gives each bus's dense
	// column/row position in that order.
	PVs     []string
	PQs     []string
	PVPQs   []string
	BusesO  []string
	Index   map[string]int
}

// NewSubNetwork builds an empty SubNetwork of the given current type.
func NewSubNetwork(name string, ct CurrentType) *SubNetwork {
	return &SubNetwork{
		Name:        name,
		CurrentType: ct,
		Frequency:   50,
		NumPhases:   3,
		Index:       map[string]int{},
	}
}

// NumBuses returns len(BusesO), the dimension of this sub-network's
// Y/B/H matrices.
func (s *SubNetwork) NumBuses() int { return len(s.BusesO) }
