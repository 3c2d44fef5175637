package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/psanalysis/gopsa/examples"
	"github.com/psanalysis/gopsa/pkg/dataimport"
	"github.com/psanalysis/gopsa/pkg/lpsolver"
	"github.com/psanalysis/gopsa/pkg/network"
	"github.com/psanalysis/gopsa/pkg/powerflow"
	"github.com/psanalysis/gopsa/pkg/result"
	"github.com/psanalysis/gopsa/pkg/util"
)

var scenarios = map[string]func() (*network.Network, error){
	"two-bus":         examples.TwoBusDC,
	"ring":            examples.ThreeBusRing,
	"storage":         examples.StorageArbitrage,
	"wind":            examples.VariableWind,
	"extendable-line": examples.ExtendableLine,
	"ac-three-bus":    examples.ACThreeBus,
}

func main() {
	scenario := flag.String("scenario", "", "built-in scenario to run (two-bus, ring, storage, wind, extendable-line, ac-three-bus)")
	csvDir := flag.String("csv", "", "CSV folder to import instead of a built-in scenario")
	analysis := flag.String("analysis", "lopf", "analysis to run: pf, acpf or lopf")
	formulation := flag.String("formulation", "angles", "LOPF branch-flow formulation: angles or ptdf")
	flag.Parse()

	net, err := loadNetwork(*scenario, *csvDir)
	if err != nil {
		log.Fatalf("Error loading network: %v", err)
	}
	net.Config.DCOPFFormulation = *formulation

	if err := net.DetermineTopology(); err != nil {
		log.Fatalf("Error determining topology: %v", err)
	}

	switch *analysis {
	case "pf":
		runLinearPF(net)
	case "acpf":
		runACPF(net)
	case "lopf":
		runLOPF(net)
	default:
		log.Fatalf("Unknown analysis %q (want pf, acpf or lopf)", *analysis)
	}
}

func loadNetwork(scenario, csvDir string) (*network.Network, error) {
	if csvDir != "" {
		return dataimport.ImportCSVFolder(csvDir)
	}
	build, ok := scenarios[scenario]
	if !ok {
		fmt.Fprintln(os.Stderr, "Available scenarios:")
		for name := range scenarios {
			fmt.Fprintf(os.Stderr, "  %s\n", name)
		}
		return nil, fmt.Errorf("unknown scenario %q", scenario)
	}
	return build()
}

func runLinearPF(net *network.Network) {
	for _, subName := range net.SubNetworkNames() {
		for _, snap := range net.Snapshots.Names {
			if _, err := result.RunDC(net, subName, snap); err != nil {
				log.Fatalf("Linear power flow failed on %s/%s: %v", subName, snap, err)
			}
		}
	}
	printNetworkState(net, false)
}

func runACPF(net *network.Network) {
	conv := powerflow.DefaultConvergence()
	conv.XTol = net.Config.NRXTol
	for _, subName := range net.SubNetworkNames() {
		for _, snap := range net.Snapshots.Names {
			res, err := result.RunAC(net, subName, snap, conv)
			if err != nil {
				log.Fatalf("AC power flow failed on %s/%s: %v", subName, snap, err)
			}
			fmt.Printf("Sub-network %s snapshot %s: converged in %d iterations (residual %.3g)\n",
				subName, snap, res.Iterations, res.Residual)
		}
	}
	printNetworkState(net, true)
}

func runLOPF(net *network.Network) {
	sol, err := result.RunLOPF(net, lpsolver.New())
	if err != nil {
		log.Fatalf("LOPF failed: %v", err)
	}
	fmt.Printf("Objective: %s\n", util.FormatCost(sol.ObjectiveValue))
	printNetworkState(net, false)

	fmt.Println("\nGenerator dispatch:")
	for _, name := range net.GeneratorNames() {
		g := net.Generators[name]
		for _, snap := range net.Snapshots.Names {
			fmt.Printf("  %-12s %-8s %s\n", name, snap, util.FormatPower(g.P.At(snap, 0)))
		}
	}
	for _, name := range net.StorageUnitNames() {
		s := net.StorageUnits[name]
		for _, snap := range net.Snapshots.Names {
			fmt.Printf("  %-12s %-8s %s (soc %s)\n", name, snap,
				util.FormatPower(s.P.At(snap, 0)), util.FormatPower(s.StateOfCharge.At(snap, 0)))
		}
	}
}

func printNetworkState(net *network.Network, withVoltage bool) {
	fmt.Println("\nBus state:")
	for _, name := range net.BusNames() {
		b := net.Buses[name]
		for _, snap := range net.Snapshots.Names {
			if withVoltage {
				fmt.Printf("  %-12s %-8s p=%s  |V|=%s  ang=%s\n", name, snap,
					util.FormatPower(b.P.At(snap, 0)),
					util.FormatPerUnit(b.VMag.At(snap, 1)),
					util.FormatAngle(b.VAng.At(snap, 0)))
			} else {
				fmt.Printf("  %-12s %-8s p=%s  ang=%s\n", name, snap,
					util.FormatPower(b.P.At(snap, 0)),
					util.FormatAngle(b.VAng.At(snap, 0)))
			}
		}
	}

	fmt.Println("\nBranch flows:")
	for _, name := range net.LineNames() {
		l := net.Lines[name]
		for _, snap := range net.Snapshots.Names {
			fmt.Printf("  %-12s %-8s p0=%s p1=%s\n", name, snap,
				util.FormatPower(l.P0.At(snap, 0)), util.FormatPower(l.P1.At(snap, 0)))
		}
	}
	for _, name := range net.TransformerNames() {
		t := net.Transformers[name]
		for _, snap := range net.Snapshots.Names {
			fmt.Printf("  %-12s %-8s p0=%s p1=%s\n", name, snap,
				util.FormatPower(t.P0.At(snap, 0)), util.FormatPower(t.P1.At(snap, 0)))
		}
	}
}
