// Package topology discovers sub-networks (maximal connected islands
// of passive branches), classifies each sub-network's buses into
// slack/PV/PQ roles, and provides the spanning-tree and cycle-basis
// utilities used by the linear methods.
//
// The multigraph itself is built with github.com/katalvlaran/lvlath, the
// same way the rest of this module leans on a real graph library instead
// of hand-rolled adjacency lists.
package topology

import (
	"fmt"
	"log"
	"sort"

	"github.com/katalvlaran/lvlath/core"
	"github.com/katalvlaran/lvlath/dfs"
	"github.com/katalvlaran/lvlath/prim_kruskal"

	"github.com/psanalysis/gopsa/pkg/component"
)

// branchEdge pairs a branch entity with the graph edge ID lvlath assigned
// it, so results can be translated back from vertex/edge IDs to branch
// names.
type branchEdge struct {
	branch component.Branch
	edgeID string
}

// buildGraph constructs a multigraph over buses with one edge per branch
// in branches. Parallel lines between the same bus pair coexist because
// the graph is built with core.WithMultiEdges().
func buildGraph(buses []*component.Bus, branches []component.Branch) (*core.Graph, []branchEdge, error) {
	g := core.NewGraph(core.WithWeighted(), core.WithMultiEdges())
	for _, b := range buses {
		if err := g.AddVertex(b.Name); err != nil {
			return nil, nil, fmt.Errorf("topology: add bus %q: %w", b.Name, err)
		}
	}
	edges := make([]branchEdge, 0, len(branches))
	for _, br := range branches {
		id, err := g.AddEdge(br.Bus0Name(), br.Bus1Name(), 1)
		if err != nil {
			return nil, nil, fmt.Errorf("topology: add branch %q: %w", br.GetName(), err)
		}
		edges = append(edges, branchEdge{branch: br, edgeID: id})
	}
	return g, edges, nil
}

// DiscoverSubNetworks partitions the passive-branch multigraph into
// connected components. Each component becomes a SubNetwork carrying
// its member bus and branch names in discovery order; slack/PV/PQ
// classification is done separately by ClassifyBuses since it
// additionally needs the generator set. Controllable branches are
// accepted (they belong to the full topology) but never contribute
// connectivity, so the reduced graph is built from passive branches
// alone.
func DiscoverSubNetworks(buses []*component.Bus, passive, controllable []component.Branch) ([]*component.SubNetwork, error) {
	_ = controllable

	g, edges, err := buildGraph(buses, passive)
	if err != nil {
		return nil, err
	}

	busByName := make(map[string]*component.Bus, len(buses))
	for _, b := range buses {
		busByName[b.Name] = b
	}

	visited := map[string]bool{}
	var subnets []*component.SubNetwork
	order := 0
	for _, b := range buses {
		if visited[b.Name] {
			continue
		}
		res, err := dfs.DFS(g, b.Name)
		if err != nil {
			return nil, fmt.Errorf("topology: dfs from %q: %w", b.Name, err)
		}
		for _, id := range res.Order {
			visited[id] = true
		}
		if len(res.Order) == 0 {
			// b itself is isolated; DFS from an isolated vertex still
			// visits it alone, but guard anyway for safety.
			res.Order = []string{b.Name}
			visited[b.Name] = true
		}

		order++
		ct := busByName[res.Order[0]].CurrentType
		sn := component.NewSubNetwork(fmt.Sprintf("sub%d", order), ct)
		sn.Buses = append([]string(nil), res.Order...)
		for _, be := range edges {
			if visited[be.branch.Bus0Name()] && containsName(sn.Buses, be.branch.Bus0Name()) && containsName(sn.Buses, be.branch.Bus1Name()) {
				sn.Branches = append(sn.Branches, be.branch.GetName())
			}
		}
		subnets = append(subnets, sn)
	}
	return subnets, nil
}

func containsName(names []string, name string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}

// ClassifyBuses performs the slack/PV/PQ selection for one sub-network.
// It mutates sn in place, filling SlackBus, SlackGenerator, PVs, PQs, PVPQs,
// BusesO and Index. generators must be restricted to the generators whose
// bus is a member of sn (callers typically filter the network's full
// generator list by sn.Buses first).
func ClassifyBuses(sn *component.SubNetwork, generators []*component.Generator) error {
	if len(sn.Buses) == 0 {
		return fmt.Errorf("topology: sub-network %q has no buses", sn.Name)
	}

	if len(generators) == 0 {
		sn.SlackGenerator = ""
		sn.SlackBus = firstInIndexOrder(sn.Buses)
		sn.PVs = nil
		sn.PQs = remaining(sn.Buses, sn.SlackBus, nil)
		sn.PVPQs = append([]string(nil), sn.PQs...)
		sn.BusesO = append([]string{sn.SlackBus}, sn.PVPQs...)
		sn.Index = indexOf(sn.BusesO)
		return nil
	}

	var slackGen *component.Generator
	for _, g := range generators {
		if g.Control == component.Slack {
			if slackGen == nil {
				slackGen = g
			} else {
				g.Control = component.PV // demote every Slack after the first
			}
		}
	}
	if slackGen == nil {
		slackGen = generators[0]
		slackGen.Control = component.Slack
		log.Printf("topology: sub-network %q has no Slack generator, promoting %q", sn.Name, slackGen.Name)
	}
	var pvCandidates []*component.Generator
	for _, g := range generators {
		if g == slackGen {
			continue
		}
		pvCandidates = append(pvCandidates, g)
	}

	sn.SlackGenerator = slackGen.Name
	sn.SlackBus = slackGen.Bus

	pvSet := map[string]bool{}
	var pvs []string
	for _, g := range pvCandidates {
		if g.Bus == sn.SlackBus {
			continue
		}
		if g.Control == component.PV && !pvSet[g.Bus] {
			pvSet[g.Bus] = true
			pvs = append(pvs, g.Bus)
		}
	}
	sort.Strings(pvs)

	var pqs []string
	for _, bus := range sn.Buses {
		if bus == sn.SlackBus || pvSet[bus] {
			continue
		}
		pqs = append(pqs, bus)
	}

	sn.PVs = pvs
	sn.PQs = pqs
	sn.PVPQs = append(append([]string(nil), pvs...), pqs...)
	sn.BusesO = append([]string{sn.SlackBus}, sn.PVPQs...)
	sn.Index = indexOf(sn.BusesO)
	return nil
}

func firstInIndexOrder(buses []string) string { return buses[0] }

func remaining(all []string, exclude string, alsoExclude map[string]bool) []string {
	var out []string
	for _, b := range all {
		if b == exclude {
			continue
		}
		if alsoExclude != nil && alsoExclude[b] {
			continue
		}
		out = append(out, b)
	}
	return out
}

func indexOf(busesO []string) map[string]int {
	idx := make(map[string]int, len(busesO))
	for i, b := range busesO {
		idx[b] = i
	}
	return idx
}

// SpanningTree computes a spanning tree of the given branches and
// returns the tree branch names, the root (conventionally the "tree
// slack", the highest-degree bus) and, per tree branch, its bus1 as the
// downstream bus with orientation sign +1. The orientation follows each
// branch's own bus0->bus1 direction; it is not derived from the root's
// position in the tree, and the full set of buses fed is not computed.
func SpanningTree(buses []*component.Bus, branches []component.Branch) (treeBranches []string, downstream map[string]string, sign map[string]float64, root string, err error) {
	g, edges, err := buildGraph(buses, branches)
	if err != nil {
		return nil, nil, nil, "", err
	}

	degree := map[string]int{}
	for _, be := range edges {
		degree[be.branch.Bus0Name()]++
		degree[be.branch.Bus1Name()]++
	}
	root = highestDegreeBus(buses, degree)

	mstEdges, _, err := prim_kruskal.Kruskal(g)
	if err != nil {
		return nil, nil, nil, "", fmt.Errorf("topology: kruskal: %w", err)
	}
	mstSet := map[string]bool{}
	for _, e := range mstEdges {
		mstSet[e.ID] = true
	}

	downstream = map[string]string{}
	sign = map[string]float64{}
	for _, be := range edges {
		if !mstSet[be.edgeID] {
			continue
		}
		treeBranches = append(treeBranches, be.branch.GetName())
		// Orientation: bus1 is recorded as downstream with sign +1 for
		// every tree edge, without a traversal from root.
		downstream[be.branch.GetName()] = be.branch.Bus1Name()
		sign[be.branch.GetName()] = 1
	}
	return treeBranches, downstream, sign, root, nil
}

func highestDegreeBus(buses []*component.Bus, degree map[string]int) string {
	best := ""
	bestDeg := -1
	for _, b := range buses {
		d := degree[b.Name]
		if d > bestDeg {
			bestDeg = d
			best = b.Name
		}
	}
	return best
}

// CycleBasis computes the fundamental cycle basis of the given
// branches: the spanning tree from SpanningTree plus, for every
// non-tree ("chord") branch, the unique cycle it closes with tree
// edges. Each entry records which branches participate in that cycle
// and their orientation sign relative to an arbitrary traversal
// direction.
type Cycle struct {
	Index    int
	Branches []string
	Signs    []float64
}

func CycleBasis(buses []*component.Bus, branches []component.Branch) ([]Cycle, error) {
	g, edges, err := buildGraph(buses, branches)
	if err != nil {
		return nil, err
	}
	mstEdges, _, err := prim_kruskal.Kruskal(g)
	if err != nil {
		return nil, fmt.Errorf("topology: kruskal: %w", err)
	}
	mstSet := map[string]bool{}
	for _, e := range mstEdges {
		mstSet[e.ID] = true
	}

	// Build an adjacency map over tree edges only, so each chord's
	// fundamental cycle can be found as the tree path between its
	// endpoints.
	treeAdj := map[string][]branchEdge{}
	for _, be := range edges {
		if !mstSet[be.edgeID] {
			continue
		}
		treeAdj[be.branch.Bus0Name()] = append(treeAdj[be.branch.Bus0Name()], be)
		treeAdj[be.branch.Bus1Name()] = append(treeAdj[be.branch.Bus1Name()], be)
	}

	var cycles []Cycle
	idx := 0
	for _, be := range edges {
		if mstSet[be.edgeID] {
			continue
		}
		path, pathSigns, err := treePath(treeAdj, be.branch.Bus0Name(), be.branch.Bus1Name())
		if err != nil {
			return nil, fmt.Errorf("topology: cycle basis: %w", err)
		}
		idx++
		c := Cycle{Index: idx}
		c.Branches = append(c.Branches, be.branch.GetName())
		c.Signs = append(c.Signs, 1)
		c.Branches = append(c.Branches, path...)
		c.Signs = append(c.Signs, pathSigns...)
		cycles = append(cycles, c)
	}
	return cycles, nil
}

// treePath walks the tree adjacency from 'from' to 'to' via BFS (the tree
// has a unique simple path between any two buses) and returns the branch
// names traversed plus their sign relative to the from->to direction.
func treePath(adj map[string][]branchEdge, from, to string) ([]string, []float64, error) {
	type frame struct {
		bus    string
		branch string
		sign   float64
	}
	visited := map[string]bool{from: true}
	parent := map[string]frame{}
	queue := []string{from}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if cur == to {
			break
		}
		for _, be := range adj[cur] {
			var next string
			var s float64
			if be.branch.Bus0Name() == cur {
				next, s = be.branch.Bus1Name(), 1
			} else {
				next, s = be.branch.Bus0Name(), -1
			}
			if visited[next] {
				continue
			}
			visited[next] = true
			parent[next] = frame{bus: cur, branch: be.branch.GetName(), sign: s}
			queue = append(queue, next)
		}
	}
	if !visited[to] {
		return nil, nil, fmt.Errorf("no tree path from %q to %q", from, to)
	}
	var branches []string
	var signs []float64
	for cur := to; cur != from; {
		f, ok := parent[cur]
		if !ok {
			return nil, nil, fmt.Errorf("broken tree path to %q", to)
		}
		branches = append(branches, f.branch)
		signs = append(signs, -f.sign) // reverse direction: to -> from
		cur = f.bus
	}
	return branches, signs, nil
}

// AggregateParallelBranches returns a new slice of lines where parallel
// lines (same unordered bus pair) are replaced by one equivalent line.
// It never mutates its input: aggregation is destructive to entity
// identity, so it stays opt-in and operates on a copy.
func AggregateParallelBranches(lines []*component.Line) []*component.Line {
	groups := map[[2]string][]*component.Line{}
	var order [][2]string
	for _, l := range lines {
		key := pairKey(l.Bus0, l.Bus1)
		if _, ok := groups[key]; !ok {
			order = append(order, key)
		}
		groups[key] = append(groups[key], l)
	}

	out := make([]*component.Line, 0, len(order))
	for _, key := range order {
		group := groups[key]
		if len(group) == 1 {
			cp := *group[0]
			out = append(out, &cp)
			continue
		}
		out = append(out, mergeParallel(group))
	}
	return out
}

func pairKey(a, b string) [2]string {
	if a <= b {
		return [2]string{a, b}
	}
	return [2]string{b, a}
}

func mergeParallel(group []*component.Line) *component.Line {
	first := group[0]
	merged := *first
	merged.Name = first.Name + "+parallel"

	var invR, invX, sumB, sumG, sumSNom, sumSNomMin, sumSNomMax float64
	var sumCapCost, sumLength, sumTerrain float64
	for _, l := range group {
		if l.RPu != 0 {
			invR += 1 / l.RPu
		}
		if l.XPu != 0 {
			invX += 1 / l.XPu
		}
		sumB += l.BPu
		sumG += l.GPu
		sumSNom += l.SNom
		sumSNomMin += l.SNomMin
		sumSNomMax += l.SNomMax
		sumCapCost += l.CapitalCost
		sumLength += l.Length
		sumTerrain += l.TerrainFactor
	}
	n := float64(len(group))
	if invR != 0 {
		merged.RPu = 1 / invR
	}
	if invX != 0 {
		merged.XPu = 1 / invX
	}
	merged.BPu = sumB
	merged.GPu = sumG
	merged.SNom = sumSNom
	merged.SNomMin = sumSNomMin
	merged.SNomMax = sumSNomMax
	merged.CapitalCost = sumCapCost / n
	merged.Length = sumLength / n
	merged.TerrainFactor = sumTerrain / n
	return &merged
}
