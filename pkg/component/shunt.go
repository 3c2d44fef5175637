package component

// ShuntImpedance is a fixed admittance to ground attached to a bus. G/B
// are the physical conductance/susceptance; GPu/BPu are filled in by the
// per-unit calculator (network.CalculateDependentValues).
type ShuntImpedance struct {
	Name string
	Bus  string

	G, B   float64
	GPu, BPu float64
}

func NewShuntImpedance(name, bus string, g, b float64) *ShuntImpedance {
	return &ShuntImpedance{Name: name, Bus: bus, G: g, B: b}
}

func (s *ShuntImpedance) GetName() string { return s.Name }
func (s *ShuntImpedance) BusName() string { return s.Bus }
