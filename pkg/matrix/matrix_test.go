package matrix

import (
	"math"
	"math/cmplx"
	"testing"
)

func twoBusBranch(xPu float64) []BranchInput {
	return []BranchInput{{Name: "a-b", Bus0: "a", Bus1: "b", XPu: xPu, Tau: 1}}
}

var twoBusIndex = map[string]int{"a": 0, "b": 1}

func TestBuildYPureReactance(t *testing.T) {
	y, err := BuildY([]string{"a", "b"}, twoBusIndex, twoBusBranch(0.1), nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	want := complex(0, -10) // 1/(j*0.1)
	if d := cmplx.Abs(y.Dense[0][0] - want); d > 1e-12 {
		t.Errorf("Y[0][0] = %v, want %v", y.Dense[0][0], want)
	}
	if d := cmplx.Abs(y.Dense[0][1] + want); d > 1e-12 {
		t.Errorf("Y[0][1] = %v, want %v", y.Dense[0][1], -want)
	}
	if d := cmplx.Abs(y.Dense[1][0] + want); d > 1e-12 {
		t.Errorf("Y[1][0] = %v, want %v", y.Dense[1][0], -want)
	}
	if d := cmplx.Abs(y.Dense[1][1] - want); d > 1e-12 {
		t.Errorf("Y[1][1] = %v, want %v", y.Dense[1][1], want)
	}
	if len(y.BranchNames) != 1 || y.BranchNames[0] != "a-b" {
		t.Errorf("BranchNames = %v", y.BranchNames)
	}
}

func TestBuildYTransformerTap(t *testing.T) {
	br := []BranchInput{{Name: "trafo", Bus0: "a", Bus1: "b", XPu: 0.1, Tau: 2}}
	y, err := BuildY([]string{"a", "b"}, twoBusIndex, br, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	ySe := 1 / complex(0, 0.1)
	if d := cmplx.Abs(y.Dense[0][0] - ySe/4); d > 1e-12 {
		t.Errorf("Y00 = %v, want y_se/tau^2 = %v", y.Dense[0][0], ySe/4)
	}
	if d := cmplx.Abs(y.Dense[1][1] - ySe); d > 1e-12 {
		t.Errorf("Y11 = %v, want y_se = %v", y.Dense[1][1], ySe)
	}
	if d := cmplx.Abs(y.Dense[0][1] + ySe/2); d > 1e-12 {
		t.Errorf("Y01 = %v, want -y_se/tau = %v", y.Dense[0][1], -ySe/2)
	}
}

func TestBuildYPhaseShiftAsymmetry(t *testing.T) {
	br := []BranchInput{{Name: "ps", Bus0: "a", Bus1: "b", XPu: 0.1, Tau: 1, PhaseShiftDeg: 30}}
	y, err := BuildY([]string{"a", "b"}, twoBusIndex, br, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	// A phase shifter breaks off-diagonal symmetry; for a lossless
	// branch the two off-diagonals are related by Y01 = -conj(Y10).
	if cmplx.Abs(y.Dense[0][1]-y.Dense[1][0]) < 1e-12 {
		t.Error("phase shift should break off-diagonal symmetry")
	}
	if d := cmplx.Abs(y.Dense[0][1] + cmplx.Conj(y.Dense[1][0])); d > 1e-12 {
		t.Errorf("Y01 != -conj(Y10): %v vs %v", y.Dense[0][1], y.Dense[1][0])
	}
}

func TestYSolve(t *testing.T) {
	// A single bus with a 2+j1 shunt: Y*V = I has the closed-form
	// solution V = I/(2+j1).
	y, err := BuildY([]string{"a"}, map[string]int{"a": 0}, nil,
		map[string]float64{"a": 2}, map[string]float64{"a": 1})
	if err != nil {
		t.Fatal(err)
	}
	vRe, vIm, err := y.Solve([]float64{4}, []float64{2})
	if err != nil {
		t.Fatal(err)
	}
	want := complex(4, 2) / complex(2, 1)
	got := complex(vRe[0], vIm[0])
	if cmplx.Abs(got-want) > 1e-9 {
		t.Errorf("V = %v, want %v", got, want)
	}
}

func TestBuildBHAndSolveAngles(t *testing.T) {
	bh, err := BuildBH([]string{"a", "b"}, twoBusIndex, twoBusBranch(0.1), true)
	if err != nil {
		t.Fatal(err)
	}
	if bh.B[0][0] != 10 || bh.B[0][1] != -10 || bh.B[1][1] != 10 {
		t.Errorf("B = %v", bh.B)
	}
	if bh.H[0][0] != 10 || bh.H[0][1] != -10 {
		t.Errorf("H = %v", bh.H)
	}

	dtheta, flow, err := bh.SolveAngles([]float64{100, -100})
	if err != nil {
		t.Fatal(err)
	}
	if dtheta[0] != 0 {
		t.Errorf("slack angle = %g, want 0", dtheta[0])
	}
	if math.Abs(dtheta[1]+10) > 1e-9 {
		t.Errorf("dtheta[1] = %g, want -10", dtheta[1])
	}
	if math.Abs(flow[0]-100) > 1e-9 {
		t.Errorf("flow = %g, want 100", flow[0])
	}
}

func TestBuildBHDCUsesResistance(t *testing.T) {
	br := []BranchInput{{Name: "dc", Bus0: "a", Bus1: "b", RPu: 0.05, Tau: 1}}
	bh, err := BuildBH([]string{"a", "b"}, twoBusIndex, br, false)
	if err != nil {
		t.Fatal(err)
	}
	if bh.H[0][0] != 20 {
		t.Errorf("H[0][0] = %g, want 1/r_pu = 20", bh.H[0][0])
	}
}

func TestPTDFTwoBus(t *testing.T) {
	bh, err := BuildBH([]string{"a", "b"}, twoBusIndex, twoBusBranch(0.1), true)
	if err != nil {
		t.Fatal(err)
	}
	ptdf, err := PTDF(bh, 1e-8)
	if err != nil {
		t.Fatal(err)
	}
	// Slack column is zero; injecting 1 MW at b (withdrawing at the
	// slack) sends -1 through the a->b oriented branch.
	if ptdf[0][0] != 0 {
		t.Errorf("PTDF slack column = %g, want 0", ptdf[0][0])
	}
	if math.Abs(ptdf[0][1]+1) > 1e-9 {
		t.Errorf("PTDF[0][1] = %g, want -1", ptdf[0][1])
	}
}

func TestPTDFRing(t *testing.T) {
	// Three equal reactances in a ring: injecting at bus 1 (withdrawing
	// at slack) splits 2/3 over the direct branch and 1/3 over the far
	// path.
	idx := map[string]int{"0": 0, "1": 1, "2": 2}
	branches := []BranchInput{
		{Name: "0-1", Bus0: "0", Bus1: "1", XPu: 0.1, Tau: 1},
		{Name: "0-2", Bus0: "0", Bus1: "2", XPu: 0.1, Tau: 1},
		{Name: "1-2", Bus0: "1", Bus1: "2", XPu: 0.1, Tau: 1},
	}
	bh, err := BuildBH([]string{"0", "1", "2"}, idx, branches, true)
	if err != nil {
		t.Fatal(err)
	}
	ptdf, err := PTDF(bh, 1e-8)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(ptdf[0][1]+2.0/3) > 1e-9 {
		t.Errorf("PTDF[0-1][1] = %g, want -2/3", ptdf[0][1])
	}
	if math.Abs(ptdf[1][1]+1.0/3) > 1e-9 {
		t.Errorf("PTDF[0-2][1] = %g, want -1/3", ptdf[1][1])
	}
}

func TestPTDFSingleBus(t *testing.T) {
	bh, err := BuildBH([]string{"only"}, map[string]int{"only": 0}, nil, true)
	if err != nil {
		t.Fatal(err)
	}
	ptdf, err := PTDF(bh, 1e-8)
	if err != nil {
		t.Fatal(err)
	}
	if len(ptdf) != 0 {
		t.Errorf("PTDF of branchless sub-network = %v, want empty", ptdf)
	}
}

func TestBuildBHZeroImpedance(t *testing.T) {
	if _, err := BuildBH([]string{"a", "b"}, twoBusIndex, twoBusBranch(0), true); err == nil {
		t.Error("zero x_pu should be rejected for AC")
	}
}
