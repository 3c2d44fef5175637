package component

// Source is a fuel/technology template referenced by Generator.Source
// (e.g. "coal", "wind"); it carries the emissions intensity charged
// against the LOPF emissions cap.
type Source struct {
	Name          string
	CO2Emissions  float64 // tCO2 per MWh primary energy
	Efficiency    float64
	MarginalCost  float64
	CapitalCost   float64
}

func NewSource(name string, co2PerMWh float64) *Source {
	return &Source{Name: name, CO2Emissions: co2PerMWh, Efficiency: 1}
}

func (s *Source) GetName() string { return s.Name }
