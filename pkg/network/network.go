// Package network assembles the component entities, snapshot list, and
// per-sub-network numeric caches into the single aggregate every
// analysis in this module operates on.
package network

import (
	"fmt"
	"sort"

	"github.com/psanalysis/gopsa/pkg/component"
	"github.com/psanalysis/gopsa/pkg/matrix"
	"github.com/psanalysis/gopsa/pkg/snapshot"
	"github.com/psanalysis/gopsa/pkg/topology"
)

// Config holds the recognised network-level options.
type Config struct {
	Now                string
	CO2Limit           float64
	CO2LimitSet        bool
	SRID               string
	NRXTol             float64
	DCOPFFormulation   string // "angles" or "ptdf"
	PTDFTolerance      float64
}

// DefaultConfig returns the stock tolerances and formulation choice.
func DefaultConfig() Config {
	return Config{
		NRXTol:           1e-6,
		DCOPFFormulation: "angles",
		PTDFTolerance:    1e-8,
	}
}

// SubNetworkMatrices holds the cached sparse matrices of one
// sub-network (Y with its Y0/Y1 branch rows, B/H, PTDF). They live here,
// keyed by
// sub-network name, rather than on component.SubNetwork itself, so
// pkg/component never has to import pkg/matrix (see
// pkg/component/subnetwork.go).
type SubNetworkMatrices struct {
	Y    *matrix.Y
	BH   *matrix.BH
	PTDF [][]float64
}

// Network is the full entity-relationship aggregate: every component
// table, the snapshot list, and the derived topology caches.
type Network struct {
	Config Config

	Snapshots *snapshot.List

	Buses           map[string]*component.Bus
	Generators      map[string]*component.Generator
	StorageUnits    map[string]*component.StorageUnit
	Loads           map[string]*component.Load
	Shunts          map[string]*component.ShuntImpedance
	Lines           map[string]*component.Line
	Transformers    map[string]*component.Transformer
	Converters      map[string]*component.Converter
	TransportLinks  map[string]*component.TransportLink
	Sources         map[string]*component.Source

	SubNetworks map[string]*component.SubNetwork
	matrices    map[string]*SubNetworkMatrices

	dependentValuesCalculated bool
	topologyDetermined        bool
}

// New builds an empty Network with one default snapshot "now".
func New() *Network {
	snaps := snapshot.NewList("now")
	return &Network{
		Config:         DefaultConfig(),
		Snapshots:      snaps,
		Buses:          map[string]*component.Bus{},
		Generators:     map[string]*component.Generator{},
		StorageUnits:   map[string]*component.StorageUnit{},
		Loads:          map[string]*component.Load{},
		Shunts:         map[string]*component.ShuntImpedance{},
		Lines:          map[string]*component.Line{},
		Transformers:   map[string]*component.Transformer{},
		Converters:     map[string]*component.Converter{},
		TransportLinks: map[string]*component.TransportLink{},
		Sources:        map[string]*component.Source{},
		SubNetworks:    map[string]*component.SubNetwork{},
		matrices:       map[string]*SubNetworkMatrices{},
	}
}

// AddBus, AddGenerator, AddStorageUnit and the branch adders register
// entities and invalidate the cached topology/matrices (add, then mark
// dependent state stale). AddShunt marks only the per-unit values stale;
// AddLoad and AddSource register without invalidating anything.
func (n *Network) AddBus(b *component.Bus) error {
	if _, exists := n.Buses[b.Name]; exists {
		return fmt.Errorf("network: bus %q already exists", b.Name)
	}
	n.Buses[b.Name] = b
	n.invalidateTopology()
	return nil
}

func (n *Network) AddGenerator(g *component.Generator) error {
	if _, ok := n.Buses[g.Bus]; !ok {
		return fmt.Errorf("network: generator %q references unknown bus %q: %w", g.Name, g.Bus, ErrTopology)
	}
	n.Generators[g.Name] = g
	n.invalidateTopology()
	return nil
}

func (n *Network) AddStorageUnit(s *component.StorageUnit) error {
	if _, ok := n.Buses[s.Bus]; !ok {
		return fmt.Errorf("network: storage unit %q references unknown bus %q: %w", s.Name, s.Bus, ErrTopology)
	}
	n.StorageUnits[s.Name] = s
	n.invalidateTopology()
	return nil
}

func (n *Network) AddLoad(l *component.Load) error {
	if _, ok := n.Buses[l.Bus]; !ok {
		return fmt.Errorf("network: load %q references unknown bus %q: %w", l.Name, l.Bus, ErrTopology)
	}
	n.Loads[l.Name] = l
	return nil
}

func (n *Network) AddShunt(s *component.ShuntImpedance) error {
	if _, ok := n.Buses[s.Bus]; !ok {
		return fmt.Errorf("network: shunt %q references unknown bus %q: %w", s.Name, s.Bus, ErrTopology)
	}
	n.Shunts[s.Name] = s
	n.invalidateDependentValues()
	return nil
}

func (n *Network) AddLine(l *component.Line) error {
	if err := n.checkBranchBuses(l.Name, l.Bus0, l.Bus1); err != nil {
		return err
	}
	n.Lines[l.Name] = l
	n.invalidateTopology()
	return nil
}

func (n *Network) AddTransformer(t *component.Transformer) error {
	if err := n.checkBranchBuses(t.Name, t.Bus0, t.Bus1); err != nil {
		return err
	}
	n.Transformers[t.Name] = t
	n.invalidateTopology()
	return nil
}

func (n *Network) AddConverter(c *component.Converter) error {
	if err := n.checkBranchBuses(c.Name, c.Bus0, c.Bus1); err != nil {
		return err
	}
	n.Converters[c.Name] = c
	n.invalidateTopology()
	return nil
}

func (n *Network) AddTransportLink(t *component.TransportLink) error {
	if err := n.checkBranchBuses(t.Name, t.Bus0, t.Bus1); err != nil {
		return err
	}
	n.TransportLinks[t.Name] = t
	n.invalidateTopology()
	return nil
}

func (n *Network) AddSource(s *component.Source) error {
	n.Sources[s.Name] = s
	return nil
}

func (n *Network) checkBranchBuses(name, bus0, bus1 string) error {
	b0, ok0 := n.Buses[bus0]
	b1, ok1 := n.Buses[bus1]
	if !ok0 || !ok1 {
		return fmt.Errorf("network: branch %q references unknown bus: %w", name, ErrTopology)
	}
	if b0.CurrentType != b1.CurrentType {
		return fmt.Errorf("network: branch %q connects mismatched current types (%s, %s): %w", name, b0.CurrentType, b1.CurrentType, ErrTopology)
	}
	return nil
}

func (n *Network) invalidateTopology() {
	n.topologyDetermined = false
	n.matrices = map[string]*SubNetworkMatrices{}
}

func (n *Network) invalidateDependentValues() {
	n.dependentValuesCalculated = false
}

// SetSnapshots replaces the snapshot list (with default weightings).
// Existing time-varying series are not reindexed: values stored for
// snapshots no longer listed stay in place, and a newly introduced
// snapshot reads the fallback its caller passes to Series.At.
func (n *Network) SetSnapshots(names ...string) {
	n.Snapshots = snapshot.NewList(names...)
	// Existing series already default-fill on read via Series.At, so no
	// eager reallocation is required.
}

// CalculateDependentValues runs the per-unit calculator: line and shunt
// impedances normalise on the endpoint bus's v_nom, transformers on
// their own s_nom. It is idempotent: running it twice yields identical
// RPu/XPu/... values.
func (n *Network) CalculateDependentValues() {
	for _, l := range n.Lines {
		vNom := n.endpointVNom(l.Bus0)
		l.RPu = l.R / (vNom * vNom)
		l.XPu = l.X / (vNom * vNom)
		l.BPu = l.B * vNom * vNom
		l.GPu = l.G * vNom * vNom
	}
	for _, t := range n.Transformers {
		sNom := t.SNom
		if sNom == 0 {
			sNom = 1
		}
		t.RPu = t.R / sNom
		t.XPu = t.X / sNom
		t.BPu = t.B * sNom
		t.GPu = t.G * sNom
	}
	for _, s := range n.Shunts {
		vNom := n.endpointVNom(s.Bus)
		s.GPu = s.G * vNom * vNom
		s.BPu = s.B * vNom * vNom
	}
	n.matrices = map[string]*SubNetworkMatrices{}
	n.dependentValuesCalculated = true
}

func (n *Network) endpointVNom(bus string) float64 {
	if b, ok := n.Buses[bus]; ok && b.VNom != 0 {
		return b.VNom
	}
	return 1
}

// DetermineTopology runs the topology analyser: it rebuilds SubNetworks
// from scratch, classifies slack/PV/PQ buses, and
// writes sub_network back onto every bus and passive branch.
func (n *Network) DetermineTopology() error {
	if !n.dependentValuesCalculated {
		n.CalculateDependentValues()
	}

	buses := make([]*component.Bus, 0, len(n.Buses))
	for _, b := range n.Buses {
		buses = append(buses, b)
	}
	sort.Slice(buses, func(i, j int) bool { return buses[i].Name < buses[j].Name })
	passive := n.passiveBranches()
	controllable := n.controllableBranches()

	subnets, err := topology.DiscoverSubNetworks(buses, passive, controllable)
	if err != nil {
		return fmt.Errorf("network: determine topology: %w", err)
	}

	n.SubNetworks = map[string]*component.SubNetwork{}
	n.matrices = map[string]*SubNetworkMatrices{}

	for _, sn := range subnets {
		gens := n.generatorsOnBuses(sn.Buses)
		if err := topology.ClassifyBuses(sn, gens); err != nil {
			return fmt.Errorf("network: classify sub-network %q: %w", sn.Name, err)
		}
		n.SubNetworks[sn.Name] = sn
		for _, busName := range sn.Buses {
			n.Buses[busName].SubNetwork = sn.Name
			if busName == sn.SlackBus {
				n.Buses[busName].Control = component.Slack
			} else if containsName(sn.PVs, busName) {
				n.Buses[busName].Control = component.PV
			} else {
				n.Buses[busName].Control = component.PQ
			}
		}
		for _, l := range n.Lines {
			if containsName(sn.Buses, l.Bus0) {
				l.SubNetwork = sn.Name
			}
		}
		for _, t := range n.Transformers {
			if containsName(sn.Buses, t.Bus0) {
				t.SubNetwork = sn.Name
			}
		}
	}

	n.topologyDetermined = true
	return nil
}

func containsName(names []string, name string) bool {
	for _, nm := range names {
		if nm == name {
			return true
		}
	}
	return false
}

func (n *Network) passiveBranches() []component.Branch {
	var out []component.Branch
	for _, l := range n.Lines {
		out = append(out, l)
	}
	for _, t := range n.Transformers {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].GetName() < out[j].GetName() })
	return out
}

func (n *Network) controllableBranches() []component.Branch {
	var out []component.Branch
	for _, c := range n.Converters {
		out = append(out, c)
	}
	for _, t := range n.TransportLinks {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].GetName() < out[j].GetName() })
	return out
}

// The sorted*Names helpers return the sorted key list of a map, used
// wherever a stable iteration order is required (variable/constraint
// construction for the LP, branch matrix row order, ...).
func sortedGeneratorNames(m map[string]*component.Generator) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func sortedStorageNames(m map[string]*component.StorageUnit) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func sortedLoadNames(m map[string]*component.Load) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func sortedBusNames(m map[string]*component.Bus) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func sortedLineNames(m map[string]*component.Line) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func sortedTransformerNames(m map[string]*component.Transformer) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func sortedConverterNames(m map[string]*component.Converter) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func sortedTransportLinkNames(m map[string]*component.TransportLink) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func sortedSubNetworkNames(m map[string]*component.SubNetwork) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func (n *Network) generatorsOnBuses(buses []string) []*component.Generator {
	set := map[string]bool{}
	for _, b := range buses {
		set[b] = true
	}
	var out []*component.Generator
	for _, name := range sortedGeneratorNames(n.Generators) {
		g := n.Generators[name]
		if set[g.Bus] {
			out = append(out, g)
		}
	}
	return out
}

// branchInputs gathers matrix.BranchInput for every passive branch of a
// sub-network, pulling per-unit values already computed by
// CalculateDependentValues. Lines are listed before transformers, each
// group sorted by name, so the resulting branch row order (and hence
// every Y0/Y1/H row index) is stable across runs.
func (n *Network) branchInputs(sn *component.SubNetwork) []matrix.BranchInput {
	var out []matrix.BranchInput
	busSet := map[string]bool{}
	for _, b := range sn.Buses {
		busSet[b] = true
	}
	for _, name := range sortedLineNames(n.Lines) {
		l := n.Lines[name]
		if !busSet[l.Bus0] {
			continue
		}
		out = append(out, matrix.BranchInput{
			Name: l.Name, Bus0: l.Bus0, Bus1: l.Bus1,
			RPu: l.RPu, XPu: l.XPu, GPu: l.GPu, BPu: l.BPu,
			Tau: 1, PhaseShiftDeg: 0,
		})
	}
	for _, name := range sortedTransformerNames(n.Transformers) {
		t := n.Transformers[name]
		if !busSet[t.Bus0] {
			continue
		}
		out = append(out, matrix.BranchInput{
			Name: t.Name, Bus0: t.Bus0, Bus1: t.Bus1,
			RPu: t.RPu, XPu: t.XPu, GPu: t.GPu, BPu: t.BPu,
			Tau: t.Tau(), PhaseShiftDeg: t.PhaseShift,
		})
	}
	return out
}

// Matrices returns (building on demand and caching) the Y/B/H/PTDF
// matrices of a sub-network; the cache is discarded whenever topology
// is rebuilt or per-unit values recomputed.
func (n *Network) Matrices(subName string) (*SubNetworkMatrices, error) {
	if !n.topologyDetermined {
		if err := n.DetermineTopology(); err != nil {
			return nil, err
		}
	}
	if m, ok := n.matrices[subName]; ok {
		return m, nil
	}
	sn, ok := n.SubNetworks[subName]
	if !ok {
		return nil, fmt.Errorf("network: unknown sub-network %q", subName)
	}

	branches := n.branchInputs(sn)
	m := &SubNetworkMatrices{}

	if sn.CurrentType == component.AC {
		shuntG := map[string]float64{}
		shuntB := map[string]float64{}
		for _, s := range n.Shunts {
			if containsName(sn.Buses, s.Bus) {
				shuntG[s.Bus] += s.GPu
				shuntB[s.Bus] += s.BPu
			}
		}
		y, err := matrix.BuildY(sn.BusesO, sn.Index, branches, shuntG, shuntB)
		if err != nil {
			return nil, fmt.Errorf("network: build Y for %q: %w", subName, err)
		}
		m.Y = y
	}

	bh, err := matrix.BuildBH(sn.BusesO, sn.Index, branches, sn.CurrentType == component.AC)
	if err != nil {
		return nil, fmt.Errorf("network: build B/H for %q: %w", subName, err)
	}
	m.BH = bh
	ptdf, err := matrix.PTDF(bh, n.Config.PTDFTolerance)
	if err != nil {
		return nil, fmt.Errorf("network: build PTDF for %q: %w", subName, err)
	}
	m.PTDF = ptdf
	// A sub-network with no branches (single isolated bus) still gets a
	// 1x1 B with no H rows; that is expected, not an error.

	n.matrices[subName] = m
	return m, nil
}

// NodalP returns, for one sub-network and snapshot, the real-power
// injection vector in bus_o order: generator + storage dispatch minus
// load minus controllable-branch flow minus shunt conductance draw.
func (n *Network) NodalP(sn *component.SubNetwork, snap string) []float64 {
	p := make([]float64, len(sn.BusesO))
	for _, g := range n.Generators {
		i, ok := sn.Index[g.Bus]
		if !ok {
			continue
		}
		p[i] += g.Sign * g.P.At(snap, 0)
	}
	for _, s := range n.StorageUnits {
		i, ok := sn.Index[s.Bus]
		if !ok {
			continue
		}
		p[i] += s.Sign * s.P.At(snap, 0)
	}
	for _, l := range n.Loads {
		i, ok := sn.Index[l.Bus]
		if !ok {
			continue
		}
		p[i] += l.Sign * l.PSet.At(snap, 0)
	}
	for _, s := range n.Shunts {
		i, ok := sn.Index[s.Bus]
		if !ok {
			continue
		}
		if v, ok := n.Buses[s.Bus].VMag[snap]; ok && v == v {
			p[i] -= s.GPu * v * v
		} else {
			p[i] -= s.GPu
		}
	}
	for _, c := range n.Converters {
		applyControllableFlow(sn, c.Bus0, c.Bus1, c.P0.At(snap, 0), c.P1.At(snap, 0), p)
	}
	for _, t := range n.TransportLinks {
		applyControllableFlow(sn, t.Bus0, t.Bus1, t.P0.At(snap, 0), t.P1.At(snap, 0), p)
	}
	return p
}

func applyControllableFlow(sn *component.SubNetwork, bus0, bus1 string, p0, p1 float64, p []float64) {
	if i, ok := sn.Index[bus0]; ok {
		p[i] -= p0
	}
	if i, ok := sn.Index[bus1]; ok {
		p[i] -= p1
	}
}
