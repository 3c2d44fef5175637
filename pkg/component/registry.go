package component

// Kind names one of the fixed entity types. Kept as an explicit,
// enumerable registry rather than introspecting struct types at
// runtime.
type Kind string

const (
	KindBus           Kind = "Bus"
	KindGenerator     Kind = "Generator"
	KindStorageUnit   Kind = "StorageUnit"
	KindLoad          Kind = "Load"
	KindShunt         Kind = "ShuntImpedance"
	KindLine          Kind = "Line"
	KindTransformer   Kind = "Transformer"
	KindConverter     Kind = "Converter"
	KindTransportLink Kind = "TransportLink"
	KindSource        Kind = "Source"
	KindSubNetwork    Kind = "SubNetwork"
)

// Schema describes one entity kind's attribute names, split into static
// (scalar, one value per entity) and time-varying (one Series per
// snapshot) groups. The table is descriptive: pkg/dataimport reads CSV
// columns by name in its own per-kind readers and does not consult it.
type Schema struct {
	Kind      Kind
	Static    []string
	TimeVarying []string
	IsBranch  bool // true for two-bus entities, false for one-port/bus
}

// Registry lists the attribute schema for every entity kind the core
// understands. It is a plain literal table, not a reflection-derived
// one, per the design note above.
var Registry = map[Kind]Schema{
	KindBus: {
		Kind:        KindBus,
		Static:      []string{"name", "v_nom", "current_type", "control", "x", "y"},
		TimeVarying: []string{"v_mag", "v_ang", "p", "q", "marginal_price"},
	},
	KindGenerator: {
		Kind: KindGenerator,
		Static: []string{
			"name", "bus", "source", "dispatch", "control",
			"p_nom", "p_nom_min", "p_nom_max", "p_nom_extendable",
			"p_min_pu_fixed", "p_max_pu_fixed", "efficiency",
			"marginal_cost", "capital_cost", "sign",
		},
		TimeVarying: []string{"p", "q", "p_min_pu", "p_max_pu"},
	},
	KindStorageUnit: {
		Kind: KindStorageUnit,
		Static: []string{
			"name", "bus", "p_nom", "p_nom_extendable",
			"state_of_charge_initial", "max_hours",
			"efficiency_store", "efficiency_dispatch", "standing_loss",
			"marginal_cost", "capital_cost", "sign",
		},
		TimeVarying: []string{"p", "state_of_charge", "inflow", "p_dispatch", "p_store"},
	},
	KindLoad: {
		Kind:        KindLoad,
		Static:      []string{"name", "bus", "sign"},
		TimeVarying: []string{"p_set", "q_set"},
	},
	KindShunt: {
		Kind:   KindShunt,
		Static: []string{"name", "bus", "g", "b"},
	},
	KindLine: {
		Kind: KindLine,
		Static: []string{
			"name", "bus0", "bus1", "r", "x", "g", "b", "length",
			"s_nom", "s_nom_extendable", "s_nom_min", "s_nom_max",
			"v_ang_min", "v_ang_max", "capital_cost",
		},
		TimeVarying: []string{"p0", "q0", "p1", "q1"},
		IsBranch:    true,
	},
	KindTransformer: {
		Kind: KindTransformer,
		Static: []string{
			"name", "bus0", "bus1", "r", "x", "g", "b",
			"tap_ratio", "phase_shift", "s_nom",
			"s_nom_extendable", "s_nom_min", "s_nom_max", "capital_cost",
		},
		TimeVarying: []string{"p0", "q0", "p1", "q1"},
		IsBranch:    true,
	},
	KindConverter: {
		Kind:        KindConverter,
		Static:      []string{"name", "bus0", "bus1", "p_min", "p_max", "s_nom", "s_nom_extendable"},
		TimeVarying: []string{"p_set", "p0", "p1"},
		IsBranch:    true,
	},
	KindTransportLink: {
		Kind:        KindTransportLink,
		Static:      []string{"name", "bus0", "bus1", "p_min", "p_max", "s_nom", "s_nom_extendable"},
		TimeVarying: []string{"p_set", "p0", "p1"},
		IsBranch:    true,
	},
	KindSource: {
		Kind:   KindSource,
		Static: []string{"name", "co2_emissions", "efficiency", "marginal_cost", "capital_cost"},
	},
}
