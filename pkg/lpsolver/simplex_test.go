package lpsolver

import (
	"math"
	"testing"

	"github.com/psanalysis/gopsa/pkg/lopf"
)

const tol = 1e-6

func approx(t *testing.T, name string, got, want, tolerance float64) {
	t.Helper()
	if math.Abs(got-want) > tolerance {
		t.Errorf("%s = %g, want %g (tolerance %g)", name, got, want, tolerance)
	}
}

func TestSolveBoundedMinimum(t *testing.T) {
	// min 3x + 2y  s.t.  x + y >= 4,  x in [0,10], y in [0,10].
	// Optimum: x=0, y=4, objective 8.
	p := &lopf.Problem{}
	x := p.AddVariable("x", 0, 10)
	y := p.AddVariable("y", 0, 10)
	p.AddConstraint("demand", []lopf.Term{{Var: x, Coef: 1}, {Var: y, Coef: 1}}, lopf.GE, 4)
	p.AddObjectiveTerm(x, 3)
	p.AddObjectiveTerm(y, 2)

	sol, err := New().Solve(p)
	if err != nil {
		t.Fatal(err)
	}
	if sol.Status != lopf.StatusOptimal {
		t.Fatalf("status = %v, want optimal", sol.Status)
	}
	approx(t, "x", sol.VarValues[x], 0, tol)
	approx(t, "y", sol.VarValues[y], 4, tol)
	approx(t, "objective", sol.ObjectiveValue, 8, tol)
}

func TestSolveEqualityDual(t *testing.T) {
	// min 10x  s.t.  x = 5. The dual of the equality is the marginal
	// cost of one more unit of RHS: 10.
	p := &lopf.Problem{}
	x := p.AddVariable("x", 0, math.Inf(1))
	row := p.AddConstraint("fix", []lopf.Term{{Var: x, Coef: 1}}, lopf.EQ, 5)
	p.AddObjectiveTerm(x, 10)

	sol, err := New().Solve(p)
	if err != nil {
		t.Fatal(err)
	}
	if sol.Status != lopf.StatusOptimal {
		t.Fatalf("status = %v, want optimal", sol.Status)
	}
	approx(t, "x", sol.VarValues[x], 5, tol)
	approx(t, "objective", sol.ObjectiveValue, 50, tol)
	approx(t, "dual", sol.Duals[row], 10, tol)
}

func TestSolveTwoGeneratorDispatch(t *testing.T) {
	// The LP shape the LOPF builder emits for one bus: two bounded
	// generators, an equality balance, cheap one runs first.
	p := &lopf.Problem{}
	g1 := p.AddVariable("g1", 0, 60)
	g2 := p.AddVariable("g2", 0, 100)
	row := p.AddConstraint("balance", []lopf.Term{{Var: g1, Coef: 1}, {Var: g2, Coef: 1}}, lopf.EQ, 100)
	p.AddObjectiveTerm(g1, 10)
	p.AddObjectiveTerm(g2, 20)

	sol, err := New().Solve(p)
	if err != nil {
		t.Fatal(err)
	}
	if sol.Status != lopf.StatusOptimal {
		t.Fatalf("status = %v, want optimal", sol.Status)
	}
	approx(t, "g1", sol.VarValues[g1], 60, tol)
	approx(t, "g2", sol.VarValues[g2], 40, tol)
	approx(t, "objective", sol.ObjectiveValue, 1400, tol)
	// Marginal unit is g2, so the balance dual is its cost.
	approx(t, "dual", sol.Duals[row], 20, tol)
}

func TestSolveFreeVariable(t *testing.T) {
	// Free variable pinned by an equality; no objective terms.
	p := &lopf.Problem{}
	theta := p.AddVariable("theta", math.Inf(-1), math.Inf(1))
	p.AddConstraint("pin", []lopf.Term{{Var: theta, Coef: 2}}, lopf.EQ, -6)

	sol, err := New().Solve(p)
	if err != nil {
		t.Fatal(err)
	}
	if sol.Status != lopf.StatusOptimal {
		t.Fatalf("status = %v, want optimal", sol.Status)
	}
	approx(t, "theta", sol.VarValues[theta], -3, tol)
}

func TestSolveNegativeLowerBound(t *testing.T) {
	// A variable with a negative lower bound (a controllable branch's
	// p_min) must be shifted, not clamped at zero.
	p := &lopf.Problem{}
	f := p.AddVariable("flow", -50, 50)
	p.AddConstraint("want", []lopf.Term{{Var: f, Coef: 1}}, lopf.LE, -20)
	p.AddObjectiveTerm(f, -1) // push f up against the constraint

	sol, err := New().Solve(p)
	if err != nil {
		t.Fatal(err)
	}
	if sol.Status != lopf.StatusOptimal {
		t.Fatalf("status = %v, want optimal", sol.Status)
	}
	approx(t, "flow", sol.VarValues[f], -20, tol)
}

func TestSolveInfeasible(t *testing.T) {
	p := &lopf.Problem{}
	x := p.AddVariable("x", 0, 1)
	p.AddConstraint("impossible", []lopf.Term{{Var: x, Coef: 1}}, lopf.GE, 5)

	sol, err := New().Solve(p)
	if err != nil {
		t.Fatal(err)
	}
	if sol.Status != lopf.StatusInfeasible {
		t.Fatalf("status = %v, want infeasible", sol.Status)
	}
}

func TestSolveUnbounded(t *testing.T) {
	p := &lopf.Problem{}
	x := p.AddVariable("x", 0, math.Inf(1))
	p.AddObjectiveTerm(x, -1)

	sol, err := New().Solve(p)
	if err != nil {
		t.Fatal(err)
	}
	if sol.Status != lopf.StatusUnbounded {
		t.Fatalf("status = %v, want unbounded", sol.Status)
	}
}

func TestSolveObjectiveConstant(t *testing.T) {
	// The capital-cost baseline rides on ObjectiveConstant; the solver
	// must add it to the reported objective without seeing it.
	p := &lopf.Problem{}
	x := p.AddVariable("x", 2, 10)
	p.AddObjectiveTerm(x, 1)
	p.ObjectiveConstant = -2

	sol, err := New().Solve(p)
	if err != nil {
		t.Fatal(err)
	}
	approx(t, "objective", sol.ObjectiveValue, 0, tol)
	approx(t, "x", sol.VarValues[x], 2, tol)
}
