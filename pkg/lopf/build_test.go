package lopf

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/psanalysis/gopsa/pkg/component"
	"github.com/psanalysis/gopsa/pkg/network"
)

func singleBusNet(t *testing.T) *network.Network {
	t.Helper()
	net := network.New()
	if err := net.AddBus(component.NewBus("hub", 380, component.AC)); err != nil {
		t.Fatal(err)
	}
	gen := component.NewGenerator("gen", "hub", 100, 10)
	gen.Control = component.Slack
	if err := net.AddGenerator(gen); err != nil {
		t.Fatal(err)
	}
	load := component.NewLoad("load", "hub")
	load.PSet.Set("now", 50)
	if err := net.AddLoad(load); err != nil {
		t.Fatal(err)
	}
	return net
}

func TestBuildRejectsUnknownFormulation(t *testing.T) {
	net := singleBusNet(t)
	net.Config.DCOPFFormulation = "quadratic"
	_, err := Build(net)
	if !errors.Is(err, network.ErrConfiguration) {
		t.Errorf("err = %v, want ErrConfiguration", err)
	}
}

func TestBuildGeneratorBounds(t *testing.T) {
	net := singleBusNet(t)
	model, err := Build(net)
	if err != nil {
		t.Fatal(err)
	}
	v, ok := model.Vars.GenP[VarKey{"gen", "now"}]
	if !ok {
		t.Fatal("gen_p variable missing")
	}
	b := model.Problem.Variables[v]
	if b.Lower != 0 || b.Upper != 100 {
		t.Errorf("bounds = [%g, %g], want [0, 100]", b.Lower, b.Upper)
	}
	if _, ok := model.Vars.GenPNom["gen"]; ok {
		t.Error("non-extendable generator must not get a p_nom variable")
	}
}

func TestBuildExtendableGenerator(t *testing.T) {
	net := singleBusNet(t)
	g := net.Generators["gen"]
	g.PNomExtendable = true
	g.PNomMin, g.PNomMax = 0, 500

	model, err := Build(net)
	if err != nil {
		t.Fatal(err)
	}
	nomVar, ok := model.Vars.GenPNom["gen"]
	if !ok {
		t.Fatal("extendable generator needs a p_nom variable")
	}
	nb := model.Problem.Variables[nomVar]
	if nb.Lower != 0 || nb.Upper != 500 {
		t.Errorf("p_nom bounds = [%g, %g], want [0, 500]", nb.Lower, nb.Upper)
	}
	pv := model.Problem.Variables[model.Vars.GenP[VarKey{"gen", "now"}]]
	if !math.IsInf(pv.Lower, -1) || !math.IsInf(pv.Upper, 1) {
		t.Errorf("extendable gen_p must be unbounded, got [%g, %g]", pv.Lower, pv.Upper)
	}
	// The coupling rows gen_p <= max_pu * p_nom must exist instead.
	var found bool
	for _, c := range model.Problem.Constraints {
		if strings.HasPrefix(c.Name, "gen_p_ub[gen") {
			found = true
		}
	}
	if !found {
		t.Error("missing gen_p upper coupling row")
	}
}

func TestBuildVariableDispatchNeedsSeries(t *testing.T) {
	net := singleBusNet(t)
	net.Generators["gen"].Dispatch = component.Variable // no PMaxPu set
	_, err := Build(net)
	if !errors.Is(err, network.ErrNotImplemented) {
		t.Errorf("err = %v, want ErrNotImplemented", err)
	}
}

func TestBuildFixedSOCHasNoVariable(t *testing.T) {
	net := singleBusNet(t)
	net.SetSnapshots("t0", "t1")
	net.Loads["load"].PSet.Set("t0", 50)
	net.Loads["load"].PSet.Set("t1", 50)
	su := component.NewStorageUnit("batt", "hub", 20, 4)
	su.StateOfCharge.Set("t0", 40)        // pinned
	su.StateOfCharge.Set("t1", math.NaN()) // free
	if err := net.AddStorageUnit(su); err != nil {
		t.Fatal(err)
	}

	model, err := Build(net)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := model.Vars.StateOfCharge[VarKey{"batt", "t0"}]; ok {
		t.Error("pinned SOC cell must not allocate a variable")
	}
	if _, ok := model.Vars.StateOfCharge[VarKey{"batt", "t1"}]; !ok {
		t.Error("free SOC cell must allocate a variable")
	}
	// The t1 recurrence folds the pinned t0 value into its RHS.
	var rhs float64
	var found bool
	for _, c := range model.Problem.Constraints {
		if c.Name == "soc_balance[batt,t1]" {
			rhs, found = c.RHS, true
		}
	}
	if !found {
		t.Fatal("missing soc_balance row for t1")
	}
	if rhs != 40 {
		t.Errorf("soc_balance[t1] RHS = %g, want pinned previous value 40", rhs)
	}
	if socVar := model.Vars.StateOfCharge[VarKey{"batt", "t1"}]; model.Problem.Variables[socVar].Upper != 80 {
		t.Errorf("soc upper = %g, want max_hours*p_nom = 80", model.Problem.Variables[socVar].Upper)
	}
}

func TestBuildEmissionsCap(t *testing.T) {
	net := singleBusNet(t)
	src := component.NewSource("coal", 0.9)
	if err := net.AddSource(src); err != nil {
		t.Fatal(err)
	}
	net.Generators["gen"].Source = "coal"
	net.Generators["gen"].Efficiency = 0.45
	net.Config.CO2Limit = 100
	net.Config.CO2LimitSet = true

	model, err := Build(net)
	if err != nil {
		t.Fatal(err)
	}
	var capRow *Constraint
	for i := range model.Problem.Constraints {
		if model.Problem.Constraints[i].Name == "co2_cap" {
			capRow = &model.Problem.Constraints[i]
		}
	}
	if capRow == nil {
		t.Fatal("co2_cap row missing")
	}
	if capRow.Sense != LE || capRow.RHS != 100 {
		t.Errorf("cap row = sense %v rhs %g", capRow.Sense, capRow.RHS)
	}
	wantCoef := 0.9 / 0.45
	if len(capRow.Terms) != 1 || math.Abs(capRow.Terms[0].Coef-wantCoef) > 1e-12 {
		t.Errorf("cap terms = %v, want single coef %g", capRow.Terms, wantCoef)
	}
}

func TestBuildNoEmissionsRowWithoutLimit(t *testing.T) {
	net := singleBusNet(t)
	model, err := Build(net)
	if err != nil {
		t.Fatal(err)
	}
	for _, c := range model.Problem.Constraints {
		if c.Name == "co2_cap" {
			t.Fatal("co2_cap emitted without a configured limit")
		}
	}
}

func TestBuildObjectiveCapitalBaseline(t *testing.T) {
	net := singleBusNet(t)
	g := net.Generators["gen"]
	g.PNomExtendable = true
	g.PNomMin, g.PNomMax = 0, 500
	g.CapitalCost = 7

	model, err := Build(net)
	if err != nil {
		t.Fatal(err)
	}
	// Existing capacity is free: the constant subtracts capital*p_nom.
	if model.Problem.ObjectiveConstant != -700 {
		t.Errorf("objective constant = %g, want -700", model.Problem.ObjectiveConstant)
	}
}

func TestBuildAnglesPinsSlack(t *testing.T) {
	net := singleBusNet(t)
	model, err := Build(net)
	if err != nil {
		t.Fatal(err)
	}
	v, ok := model.Vars.VoltageAngle[VarKey{"hub", "now"}]
	if !ok {
		t.Fatal("angles formulation should declare theta for every bus")
	}
	b := model.Problem.Variables[v]
	if b.Lower != 0 || b.Upper != 0 {
		t.Errorf("slack theta bounds = [%g, %g], want pinned to 0", b.Lower, b.Upper)
	}
	if _, ok := model.Constraints.BusBalance[VarKey{"hub", "now"}]; !ok {
		t.Error("missing per-bus balance row")
	}
}

func TestBuildPTDFSubNetworkBalance(t *testing.T) {
	net := singleBusNet(t)
	net.Config.DCOPFFormulation = "ptdf"
	model, err := Build(net)
	if err != nil {
		t.Fatal(err)
	}
	if len(model.Vars.VoltageAngle) != 0 {
		t.Error("ptdf formulation must not declare theta variables")
	}
	if len(model.Constraints.SubNetworkBalance) != 1 {
		t.Errorf("sub-network balance rows = %d, want 1", len(model.Constraints.SubNetworkBalance))
	}
}
