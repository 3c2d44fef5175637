package result_test

import (
	"errors"
	"math"
	"testing"

	"github.com/psanalysis/gopsa/examples"
	"github.com/psanalysis/gopsa/pkg/component"
	"github.com/psanalysis/gopsa/pkg/lpsolver"
	"github.com/psanalysis/gopsa/pkg/network"
	"github.com/psanalysis/gopsa/pkg/powerflow"
	"github.com/psanalysis/gopsa/pkg/result"
)

func approx(t *testing.T, name string, got, want, tol float64) {
	t.Helper()
	if math.Abs(got-want) > tol {
		t.Errorf("%s = %g, want %g (tolerance %g)", name, got, want, tol)
	}
}

func TestTwoBusDCLinearPF(t *testing.T) {
	net, err := examples.TwoBusDC()
	if err != nil {
		t.Fatal(err)
	}
	if err := net.DetermineTopology(); err != nil {
		t.Fatal(err)
	}
	sub := net.Buses["A"].SubNetwork
	if _, err := result.RunDC(net, sub, "now"); err != nil {
		t.Fatal(err)
	}

	l := net.Lines["A-B"]
	approx(t, "flow A->B", l.P0.At("now", 0), 100, 1e-6)
	approx(t, "flow B end", l.P1.At("now", 0), -100, 1e-6)

	// A DC sub-network settles voltage magnitudes: the slack holds
	// nominal, the receiving bus droops below it.
	approx(t, "slack v_mag", net.Buses["A"].VMag.At("now", 0), 380, 1e-9)
	if v := net.Buses["B"].VMag.At("now", 0); v >= 380 || v < 379 {
		t.Errorf("receiving v_mag = %g, expected slightly below 380", v)
	}

	// Balanced case: the slack absorbs exactly the load.
	approx(t, "slack bus p", net.Buses["A"].P.At("now", 0), 100, 1e-9)
	approx(t, "slack gen p", net.Generators["gen"].P.At("now", 0), 100, 1e-9)
	approx(t, "load realised", net.Loads["load"].P.At("now", 0), 100, 1e-12)
}

func TestTwoBusDCSlackAbsorbsImbalance(t *testing.T) {
	net, err := examples.TwoBusDC()
	if err != nil {
		t.Fatal(err)
	}
	// Schedule 20 MW more generation than the 100 MW load: the flow is
	// fixed by the load side, so the slack must absorb the surplus.
	net.Generators["gen"].P.Set("now", 120)
	if err := net.DetermineTopology(); err != nil {
		t.Fatal(err)
	}
	sub := net.Buses["A"].SubNetwork
	res, err := result.RunDC(net, sub, "now")
	if err != nil {
		t.Fatal(err)
	}

	approx(t, "slack absorption", res.SlackP, 100, 1e-9)
	approx(t, "slack bus p", net.Buses["A"].P.At("now", 0), 100, 1e-9)
	// The slack generator is backed off from its 120 MW schedule to the
	// 100 MW the system actually takes.
	approx(t, "slack gen p", net.Generators["gen"].P.At("now", 0), 100, 1e-9)
	approx(t, "flow A->B", net.Lines["A-B"].P0.At("now", 0), 100, 1e-6)
}

func TestTwoBusDCLOPF(t *testing.T) {
	net, err := examples.TwoBusDC()
	if err != nil {
		t.Fatal(err)
	}
	sol, err := result.RunLOPF(net, lpsolver.New())
	if err != nil {
		t.Fatal(err)
	}
	approx(t, "objective", sol.ObjectiveValue, 1000, 0.5)
	approx(t, "dispatch", net.Generators["gen"].P.At("now", 0), 100, 1e-3)
	approx(t, "flow", net.Lines["A-B"].P0.At("now", 0), 100, 0.1)
	approx(t, "load realised", net.Loads["load"].P.At("now", 0), 100, 1e-12)
}

func TestThreeBusRingLOPF(t *testing.T) {
	net, err := examples.ThreeBusRing()
	if err != nil {
		t.Fatal(err)
	}
	sol, err := result.RunLOPF(net, lpsolver.New())
	if err != nil {
		t.Fatal(err)
	}
	approx(t, "objective", sol.ObjectiveValue, 3000, 1e-3)
	approx(t, "gen1", net.Generators["gen1"].P.At("now", 0), 300, 1e-4)
	approx(t, "gen2", net.Generators["gen2"].P.At("now", 0), 0, 1e-4)

	// All of gen1's 300 MW reach bus 3: 200 direct, 100 around the ring.
	approx(t, "flow 1-3", net.Lines["1-3"].P0.At("now", 0), 200, 1e-4)
	approx(t, "flow 1-2", net.Lines["1-2"].P0.At("now", 0), 100, 1e-4)
	approx(t, "flow 2-3", net.Lines["2-3"].P0.At("now", 0), 100, 1e-4)

	// Uncongested network: every bus prices at the marginal generator.
	for _, bus := range net.BusNames() {
		approx(t, "price "+bus, net.Buses[bus].MarginalPrice.At("now", 0), 10, 1e-4)
	}

	// Nodal balance settles: sum of bus p is zero.
	var total float64
	for _, bus := range net.BusNames() {
		total += net.Buses[bus].P.At("now", 0)
	}
	approx(t, "sum bus p", total, 0, 1e-6)
}

func TestAnglesPTDFEquivalence(t *testing.T) {
	netA, err := examples.ThreeBusRing()
	if err != nil {
		t.Fatal(err)
	}
	netP, err := examples.ThreeBusRing()
	if err != nil {
		t.Fatal(err)
	}
	netP.Config.DCOPFFormulation = "ptdf"

	solA, err := result.RunLOPF(netA, lpsolver.New())
	if err != nil {
		t.Fatal(err)
	}
	solP, err := result.RunLOPF(netP, lpsolver.New())
	if err != nil {
		t.Fatal(err)
	}

	approx(t, "objective", solP.ObjectiveValue, solA.ObjectiveValue, 1e-4)
	for _, g := range netA.GeneratorNames() {
		approx(t, "dispatch "+g,
			netP.Generators[g].P.At("now", 0),
			netA.Generators[g].P.At("now", 0), 1e-4)
	}
	// The ptdf back-solve reproduces the angles formulation's flows.
	for _, l := range netA.LineNames() {
		approx(t, "flow "+l,
			netP.Lines[l].P0.At("now", 0),
			netA.Lines[l].P0.At("now", 0), 1e-4)
	}
}

func TestStorageArbitrageLOPF(t *testing.T) {
	net, err := examples.StorageArbitrage()
	if err != nil {
		t.Fatal(err)
	}
	if _, err := result.RunLOPF(net, lpsolver.New()); err != nil {
		t.Fatal(err)
	}

	su := net.StorageUnits["battery"]
	// Generation falls 25 MW short in t1; the battery covers it.
	approx(t, "dispatch t1", su.PDispatch.At("t1", 0), 25, 1e-3)
	// Charging 25*12/0.9 MWh costs 333.33/(0.9*12) MW of extra output in t0.
	approx(t, "store t0", su.PStore.At("t0", 0), 25.0*12/0.9/0.9/12, 1e-3)
	approx(t, "soc t0", su.StateOfCharge.At("t0", 0), 25.0*12/0.9, 1e-2)
	// Nothing is left over: SOC returns to its (zero) initial level.
	approx(t, "soc t1", su.StateOfCharge.At("t1", 0), 0, 1e-6)

	// SOC boundedness invariant.
	for _, snap := range net.Snapshots.Names {
		soc := su.StateOfCharge.At(snap, 0)
		if soc < -1e-9 || soc > su.MaxCapacity()+1e-9 {
			t.Errorf("soc[%s] = %g outside [0, %g]", snap, soc, su.MaxCapacity())
		}
	}
}

func TestVariableWindLOPF(t *testing.T) {
	net, err := examples.VariableWind()
	if err != nil {
		t.Fatal(err)
	}
	sol, err := result.RunLOPF(net, lpsolver.New())
	if err != nil {
		t.Fatal(err)
	}
	approx(t, "wind t0", net.Generators["wind"].P.At("t0", 0), 100, 1e-4)
	approx(t, "wind t1", net.Generators["wind"].P.At("t1", 0), 20, 1e-4)
	approx(t, "gas t0", net.Generators["gas"].P.At("t0", 0), 50, 1e-4)
	approx(t, "gas t1", net.Generators["gas"].P.At("t1", 0), 130, 1e-4)
	approx(t, "objective", sol.ObjectiveValue, 50*50+130*50, 1e-3)
}

func TestExtendableLineLOPF(t *testing.T) {
	net, err := examples.ExtendableLine()
	if err != nil {
		t.Fatal(err)
	}
	sol, err := result.RunLOPF(net, lpsolver.New())
	if err != nil {
		t.Fatal(err)
	}
	l := net.Lines["corridor"]
	approx(t, "s_nom", l.SNom, 100, 1e-3)
	// 100 MW at 10/MWh plus 50 MVA of new capacity at 1/MVA.
	approx(t, "objective", sol.ObjectiveValue, 1050, 1e-2)
	approx(t, "flow", l.P0.At("now", 0), 100, 1e-3)
}

func TestEmissionsCapBinds(t *testing.T) {
	net := network.New()
	if err := net.AddBus(component.NewBus("hub", 380, component.AC)); err != nil {
		t.Fatal(err)
	}
	if err := net.AddSource(component.NewSource("lignite", 1.0)); err != nil {
		t.Fatal(err)
	}
	if err := net.AddSource(component.NewSource("hydro", 0)); err != nil {
		t.Fatal(err)
	}
	coal := component.NewGenerator("coal", "hub", 500, 10)
	coal.Control = component.Slack
	coal.Source = "lignite"
	if err := net.AddGenerator(coal); err != nil {
		t.Fatal(err)
	}
	hydro := component.NewGenerator("hydro", "hub", 500, 20)
	hydro.Source = "hydro"
	if err := net.AddGenerator(hydro); err != nil {
		t.Fatal(err)
	}
	load := component.NewLoad("city", "hub")
	load.PSet.Set("now", 100)
	if err := net.AddLoad(load); err != nil {
		t.Fatal(err)
	}
	net.Config.CO2Limit = 50
	net.Config.CO2LimitSet = true

	sol, err := result.RunLOPF(net, lpsolver.New())
	if err != nil {
		t.Fatal(err)
	}
	approx(t, "coal", net.Generators["coal"].P.At("now", 0), 50, 1e-4)
	approx(t, "hydro", net.Generators["hydro"].P.At("now", 0), 50, 1e-4)
	approx(t, "objective", sol.ObjectiveValue, 50*10+50*20, 1e-3)

	emitted := net.Generators["coal"].P.At("now", 0) * 1.0
	if emitted > 50+1e-6 {
		t.Errorf("emissions %g exceed the cap", emitted)
	}
}

func TestInfeasibleLOPFLeavesNetworkUntouched(t *testing.T) {
	net := network.New()
	if err := net.AddBus(component.NewBus("hub", 380, component.AC)); err != nil {
		t.Fatal(err)
	}
	gen := component.NewGenerator("gen", "hub", 50, 10) // too small for the load
	gen.Control = component.Slack
	if err := net.AddGenerator(gen); err != nil {
		t.Fatal(err)
	}
	load := component.NewLoad("city", "hub")
	load.PSet.Set("now", 100)
	if err := net.AddLoad(load); err != nil {
		t.Fatal(err)
	}

	_, err := result.RunLOPF(net, lpsolver.New())
	if !errors.Is(err, network.ErrInfeasibleSolver) {
		t.Fatalf("err = %v, want ErrInfeasibleSolver", err)
	}
	if _, ok := net.Generators["gen"].P["now"]; ok {
		t.Error("infeasible solve must not write result series")
	}
}

func TestACThreeBusNewtonRaphson(t *testing.T) {
	net, err := examples.ACThreeBus()
	if err != nil {
		t.Fatal(err)
	}
	if err := net.DetermineTopology(); err != nil {
		t.Fatal(err)
	}
	sub := net.Buses["slack"].SubNetwork
	conv := powerflow.Convergence{MaxIter: 100, XTol: 1e-8}
	res, err := result.RunAC(net, sub, "now", conv)
	if err != nil {
		t.Fatal(err)
	}
	if !res.Converged || res.Iterations > 20 {
		t.Fatalf("converged=%v after %d iterations (residual %g)", res.Converged, res.Iterations, res.Residual)
	}

	// PV bus holds its setpoint.
	approx(t, "pv |V|", net.Buses["pv"].VMag.At("now", 0), 1.02, 1e-9)
	// Slack angle is the reference.
	approx(t, "slack angle", net.Buses["slack"].VAng.At("now", 1), 0, 1e-12)

	// Conservation: slack + pv injections minus load equals line losses.
	slackP := net.Buses["slack"].P.At("now", 0)
	var losses float64
	for _, name := range net.LineNames() {
		l := net.Lines[name]
		losses += l.P0.At("now", 0) + l.P1.At("now", 0)
	}
	approx(t, "balance", slackP+0.4-0.8, losses, 1e-6)
	if losses <= 0 {
		t.Errorf("losses = %g, expected positive with resistive lines", losses)
	}
	// The slack generator series mirrors the slack bus.
	approx(t, "slack gen p", net.Generators["slack-gen"].P.At("now", 0), slackP, 1e-12)
}
