// Package dataimport holds the thin import surfaces: a CSV-folder
// reader (one file per entity type, sibling per-attribute files for
// time series) and a translator for the legacy MATPOWER-style ppc case
// layout. Both only assemble a network.Network; all analysis lives
// elsewhere.
package dataimport

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/psanalysis/gopsa/pkg/component"
	"github.com/psanalysis/gopsa/pkg/network"
)

// row is one CSV record keyed by header column name.
type row map[string]string

func (r row) str(col, fallback string) string {
	if v, ok := r[col]; ok && v != "" {
		return v
	}
	return fallback
}

func (r row) num(col string, fallback float64) (float64, error) {
	v, ok := r[col]
	if !ok || v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("dataimport: column %q: %w", col, err)
	}
	return f, nil
}

func (r row) boolean(col string) bool {
	v := strings.ToLower(r.str(col, ""))
	return v == "true" || v == "1" || v == "yes"
}

// readTable reads one CSV file into header-keyed rows. A missing file is
// not an error: entity types are all optional in a folder import.
func readTable(path string) ([]row, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("dataimport: open %s: %w", path, err)
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("dataimport: read %s: %w", path, err)
	}
	if len(records) < 1 {
		return nil, nil
	}
	header := records[0]
	rows := make([]row, 0, len(records)-1)
	for _, rec := range records[1:] {
		r := row{}
		for i, col := range header {
			if i < len(rec) {
				r[col] = strings.TrimSpace(rec[i])
			}
		}
		rows = append(rows, r)
	}
	return rows, nil
}

// ImportCSVFolder builds a Network from a directory with one file per
// entity type (buses.csv, generators.csv, ...) plus optional sibling
// per-attribute time-series files named <entity>-<attribute>.csv whose
// first column is the snapshot label and remaining columns are entity
// names. Missing columns take each attribute's default.
func ImportCSVFolder(dir string) (*network.Network, error) {
	net := network.New()

	if err := importSnapshots(net, dir); err != nil {
		return nil, err
	}
	if err := importBuses(net, dir); err != nil {
		return nil, err
	}
	if err := importSources(net, dir); err != nil {
		return nil, err
	}
	if err := importGenerators(net, dir); err != nil {
		return nil, err
	}
	if err := importStorageUnits(net, dir); err != nil {
		return nil, err
	}
	if err := importLoads(net, dir); err != nil {
		return nil, err
	}
	if err := importShunts(net, dir); err != nil {
		return nil, err
	}
	if err := importLines(net, dir); err != nil {
		return nil, err
	}
	if err := importTransformers(net, dir); err != nil {
		return nil, err
	}
	if err := importControllables(net, dir); err != nil {
		return nil, err
	}
	if err := importSeries(net, dir); err != nil {
		return nil, err
	}
	return net, nil
}

func importSnapshots(net *network.Network, dir string) error {
	rows, err := readTable(filepath.Join(dir, "snapshots.csv"))
	if err != nil || len(rows) == 0 {
		return err
	}
	names := make([]string, 0, len(rows))
	for _, r := range rows {
		names = append(names, r.str("name", ""))
	}
	net.SetSnapshots(names...)
	for _, r := range rows {
		w, err := r.num("weighting", 1)
		if err != nil {
			return err
		}
		if err := net.Snapshots.SetWeighting(r.str("name", ""), w); err != nil {
			return err
		}
	}
	return nil
}

func importBuses(net *network.Network, dir string) error {
	rows, err := readTable(filepath.Join(dir, "buses.csv"))
	if err != nil {
		return err
	}
	for _, r := range rows {
		vNom, err := r.num("v_nom", 1)
		if err != nil {
			return err
		}
		ct := component.AC
		if strings.EqualFold(r.str("current_type", "AC"), "DC") {
			ct = component.DC
		}
		b := component.NewBus(r.str("name", ""), vNom, ct)
		if b.X, err = r.num("x", 0); err != nil {
			return err
		}
		if b.Y, err = r.num("y", 0); err != nil {
			return err
		}
		if err := net.AddBus(b); err != nil {
			return err
		}
	}
	return nil
}

func importSources(net *network.Network, dir string) error {
	rows, err := readTable(filepath.Join(dir, "sources.csv"))
	if err != nil {
		return err
	}
	for _, r := range rows {
		co2, err := r.num("co2_emissions", 0)
		if err != nil {
			return err
		}
		s := component.NewSource(r.str("name", ""), co2)
		if s.Efficiency, err = r.num("efficiency", 1); err != nil {
			return err
		}
		if err := net.AddSource(s); err != nil {
			return err
		}
	}
	return nil
}

func importGenerators(net *network.Network, dir string) error {
	rows, err := readTable(filepath.Join(dir, "generators.csv"))
	if err != nil {
		return err
	}
	for _, r := range rows {
		pNom, err := r.num("p_nom", 0)
		if err != nil {
			return err
		}
		mc, err := r.num("marginal_cost", 0)
		if err != nil {
			return err
		}
		g := component.NewGenerator(r.str("name", ""), r.str("bus", ""), pNom, mc)
		g.Source = r.str("source", "")
		switch strings.ToLower(r.str("dispatch", "flexible")) {
		case "variable":
			g.Dispatch = component.Variable
		case "inflexible":
			g.Dispatch = component.Inflexible
		case "flexible":
			g.Dispatch = component.Flexible
		default:
			return fmt.Errorf("dataimport: generator %q has unknown dispatch %q: %w", g.Name, r.str("dispatch", ""), network.ErrConfiguration)
		}
		if strings.EqualFold(r.str("control", ""), "slack") {
			g.Control = component.Slack
		} else if strings.EqualFold(r.str("control", ""), "pv") {
			g.Control = component.PV
		}
		g.PNomExtendable = r.boolean("p_nom_extendable")
		if g.PNomMin, err = r.num("p_nom_min", 0); err != nil {
			return err
		}
		if g.PNomMax, err = r.num("p_nom_max", 0); err != nil {
			return err
		}
		if g.PMinPuFixed, err = r.num("p_min_pu_fixed", 0); err != nil {
			return err
		}
		if g.PMaxPuFixed, err = r.num("p_max_pu_fixed", 1); err != nil {
			return err
		}
		if g.Efficiency, err = r.num("efficiency", 1); err != nil {
			return err
		}
		if g.CapitalCost, err = r.num("capital_cost", 0); err != nil {
			return err
		}
		if err := net.AddGenerator(g); err != nil {
			return err
		}
	}
	return nil
}

func importStorageUnits(net *network.Network, dir string) error {
	rows, err := readTable(filepath.Join(dir, "storage_units.csv"))
	if err != nil {
		return err
	}
	for _, r := range rows {
		pNom, err := r.num("p_nom", 0)
		if err != nil {
			return err
		}
		maxHours, err := r.num("max_hours", 0)
		if err != nil {
			return err
		}
		s := component.NewStorageUnit(r.str("name", ""), r.str("bus", ""), pNom, maxHours)
		if s.StateOfChargeInitial, err = r.num("state_of_charge_initial", 0); err != nil {
			return err
		}
		if s.EfficiencyStore, err = r.num("efficiency_store", 1); err != nil {
			return err
		}
		if s.EfficiencyDispatch, err = r.num("efficiency_dispatch", 1); err != nil {
			return err
		}
		if s.StandingLoss, err = r.num("standing_loss", 0); err != nil {
			return err
		}
		if s.MarginalCost, err = r.num("marginal_cost", 0); err != nil {
			return err
		}
		if s.CapitalCost, err = r.num("capital_cost", 0); err != nil {
			return err
		}
		s.PNomExtendable = r.boolean("p_nom_extendable")
		if s.PNomMin, err = r.num("p_nom_min", 0); err != nil {
			return err
		}
		if s.PNomMax, err = r.num("p_nom_max", 0); err != nil {
			return err
		}
		if err := net.AddStorageUnit(s); err != nil {
			return err
		}
	}
	return nil
}

func importLoads(net *network.Network, dir string) error {
	rows, err := readTable(filepath.Join(dir, "loads.csv"))
	if err != nil {
		return err
	}
	for _, r := range rows {
		l := component.NewLoad(r.str("name", ""), r.str("bus", ""))
		pSet, err := r.num("p_set", 0)
		if err != nil {
			return err
		}
		qSet, err := r.num("q_set", 0)
		if err != nil {
			return err
		}
		for _, snap := range net.Snapshots.Names {
			l.PSet.Set(snap, pSet)
			l.QSet.Set(snap, qSet)
		}
		if err := net.AddLoad(l); err != nil {
			return err
		}
	}
	return nil
}

func importShunts(net *network.Network, dir string) error {
	rows, err := readTable(filepath.Join(dir, "shunt_impedances.csv"))
	if err != nil {
		return err
	}
	for _, r := range rows {
		g, err := r.num("g", 0)
		if err != nil {
			return err
		}
		b, err := r.num("b", 0)
		if err != nil {
			return err
		}
		if err := net.AddShunt(component.NewShuntImpedance(r.str("name", ""), r.str("bus", ""), g, b)); err != nil {
			return err
		}
	}
	return nil
}

func importLines(net *network.Network, dir string) error {
	rows, err := readTable(filepath.Join(dir, "lines.csv"))
	if err != nil {
		return err
	}
	for _, r := range rows {
		rr, err := r.num("r", 0)
		if err != nil {
			return err
		}
		x, err := r.num("x", 0)
		if err != nil {
			return err
		}
		sNom, err := r.num("s_nom", 0)
		if err != nil {
			return err
		}
		l := component.NewLine(r.str("name", ""), r.str("bus0", ""), r.str("bus1", ""), rr, x, sNom)
		if l.G, err = r.num("g", 0); err != nil {
			return err
		}
		if l.B, err = r.num("b", 0); err != nil {
			return err
		}
		if l.Length, err = r.num("length", 0); err != nil {
			return err
		}
		l.SNomExtendable = r.boolean("s_nom_extendable")
		if l.SNomMin, err = r.num("s_nom_min", 0); err != nil {
			return err
		}
		if l.SNomMax, err = r.num("s_nom_max", 0); err != nil {
			return err
		}
		if l.CapitalCost, err = r.num("capital_cost", 0); err != nil {
			return err
		}
		if err := net.AddLine(l); err != nil {
			return err
		}
	}
	return nil
}

func importTransformers(net *network.Network, dir string) error {
	rows, err := readTable(filepath.Join(dir, "transformers.csv"))
	if err != nil {
		return err
	}
	for _, r := range rows {
		rr, err := r.num("r", 0)
		if err != nil {
			return err
		}
		x, err := r.num("x", 0)
		if err != nil {
			return err
		}
		sNom, err := r.num("s_nom", 0)
		if err != nil {
			return err
		}
		t := component.NewTransformer(r.str("name", ""), r.str("bus0", ""), r.str("bus1", ""), rr, x, sNom)
		if t.G, err = r.num("g", 0); err != nil {
			return err
		}
		if t.B, err = r.num("b", 0); err != nil {
			return err
		}
		if t.TapRatio, err = r.num("tap_ratio", 1); err != nil {
			return err
		}
		if t.PhaseShift, err = r.num("phase_shift", 0); err != nil {
			return err
		}
		if err := net.AddTransformer(t); err != nil {
			return err
		}
	}
	return nil
}

func importControllables(net *network.Network, dir string) error {
	convRows, err := readTable(filepath.Join(dir, "converters.csv"))
	if err != nil {
		return err
	}
	for _, r := range convRows {
		pMin, err := r.num("p_min", 0)
		if err != nil {
			return err
		}
		pMax, err := r.num("p_max", 0)
		if err != nil {
			return err
		}
		c := component.NewConverter(r.str("name", ""), r.str("bus0", ""), r.str("bus1", ""), pMin, pMax)
		if err := net.AddConverter(c); err != nil {
			return err
		}
	}

	linkRows, err := readTable(filepath.Join(dir, "transport_links.csv"))
	if err != nil {
		return err
	}
	for _, r := range linkRows {
		pMin, err := r.num("p_min", 0)
		if err != nil {
			return err
		}
		pMax, err := r.num("p_max", 0)
		if err != nil {
			return err
		}
		t := component.NewTransportLink(r.str("name", ""), r.str("bus0", ""), r.str("bus1", ""), pMin, pMax)
		if err := net.AddTransportLink(t); err != nil {
			return err
		}
	}
	return nil
}

// importSeries walks the recognised <entity>-<attribute>.csv sibling
// files: first column is the snapshot label, remaining columns are
// entity names.
func importSeries(net *network.Network, dir string) error {
	type target struct {
		file  string
		apply func(entity, snap string, v float64) error
	}
	targets := []target{
		{"loads-p_set.csv", func(entity, snap string, v float64) error {
			l, ok := net.Loads[entity]
			if !ok {
				return fmt.Errorf("dataimport: loads-p_set.csv references unknown load %q", entity)
			}
			l.PSet.Set(snap, v)
			return nil
		}},
		{"loads-q_set.csv", func(entity, snap string, v float64) error {
			l, ok := net.Loads[entity]
			if !ok {
				return fmt.Errorf("dataimport: loads-q_set.csv references unknown load %q", entity)
			}
			l.QSet.Set(snap, v)
			return nil
		}},
		{"generators-p_max_pu.csv", func(entity, snap string, v float64) error {
			g, ok := net.Generators[entity]
			if !ok {
				return fmt.Errorf("dataimport: generators-p_max_pu.csv references unknown generator %q", entity)
			}
			g.PMaxPu.Set(snap, v)
			return nil
		}},
		{"generators-p_min_pu.csv", func(entity, snap string, v float64) error {
			g, ok := net.Generators[entity]
			if !ok {
				return fmt.Errorf("dataimport: generators-p_min_pu.csv references unknown generator %q", entity)
			}
			g.PMinPu.Set(snap, v)
			return nil
		}},
		{"storage_units-inflow.csv", func(entity, snap string, v float64) error {
			s, ok := net.StorageUnits[entity]
			if !ok {
				return fmt.Errorf("dataimport: storage_units-inflow.csv references unknown storage unit %q", entity)
			}
			s.Inflow.Set(snap, v)
			return nil
		}},
		{"storage_units-state_of_charge.csv", func(entity, snap string, v float64) error {
			s, ok := net.StorageUnits[entity]
			if !ok {
				return fmt.Errorf("dataimport: storage_units-state_of_charge.csv references unknown storage unit %q", entity)
			}
			s.StateOfCharge.Set(snap, v)
			return nil
		}},
	}

	for _, tg := range targets {
		path := filepath.Join(dir, tg.file)
		f, err := os.Open(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return fmt.Errorf("dataimport: open %s: %w", path, err)
		}
		records, err := csv.NewReader(f).ReadAll()
		f.Close()
		if err != nil {
			return fmt.Errorf("dataimport: read %s: %w", path, err)
		}
		if len(records) < 2 {
			continue
		}
		header := records[0]
		for _, rec := range records[1:] {
			snap := strings.TrimSpace(rec[0])
			for i := 1; i < len(rec) && i < len(header); i++ {
				if strings.TrimSpace(rec[i]) == "" {
					continue
				}
				v, err := strconv.ParseFloat(strings.TrimSpace(rec[i]), 64)
				if err != nil {
					return fmt.Errorf("dataimport: %s: %w", tg.file, err)
				}
				if err := tg.apply(strings.TrimSpace(header[i]), snap, v); err != nil {
					return err
				}
			}
		}
	}
	return nil
}
