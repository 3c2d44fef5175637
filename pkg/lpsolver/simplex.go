// Package lpsolver is a reference dense Big-M simplex implementation of
// the lopf.Solver interface: a single well-known textbook algorithm,
// laid out for direct inspection rather than wrapped around an external
// LP library, using gonum.org/v1/gonum/mat for the dense tableau.
package lpsolver

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/psanalysis/gopsa/pkg/lopf"
)

// bigM dominates every real cost coefficient the solver is likely to
// see (marginal_cost/capital_cost magnitudes); it is a
// fixed constant rather than derived from the problem because deriving it
// from input data would make the penalty's dominance data-dependent and
// harder to reason about for a reference implementation.
const bigM = 1e7

const (
	maxIterFactor = 200 // pivot budget = maxIterFactor * (rows+cols), anti-cycling backstop
	eps           = 1e-9
)

// tableau is the Big-M simplex working state: an (m+1) x (n+1) dense
// matrix (row m is the objective row, column n is the RHS), plus the
// bookkeeping needed to read off variable values and constraint duals
// once pivoting stops.
type tableau struct {
	m, n int // rows (excluding objective), total non-RHS columns
	mat  *mat.Dense

	basis       []int // basis[i] = column currently basic in row i
	cost        []float64
	trackingCol []int // one identity-tracking column per row, for dual extraction
	artificial  map[int]bool
	// rowSign[i] is -1 when normalizeRow flipped row i to make its RHS
	// non-negative; the tracking column then tracks B^-1 of the flipped
	// row, so the raw dual must be negated back to match the caller's
	// original constraint orientation.
	rowSign []float64
}

func newTableau(sf *standardForm) *tableau {
	m := len(sf.rows)

	slackCol := make([]int, m)
	artCol := make([]int, m)
	for i := range slackCol {
		slackCol[i], artCol[i] = -1, -1
	}

	col := sf.numCols
	for i, row := range sf.rows {
		switch normalizedSense(row) {
		case lopf.LE:
			slackCol[i] = col
			col++
		case lopf.GE:
			slackCol[i] = col
			col++
			artCol[i] = col
			col++
		case lopf.EQ:
			artCol[i] = col
			col++
		}
	}
	trackingCol := make([]int, m)
	for i := range trackingCol {
		trackingCol[i] = col
		col++
	}
	n := col

	t := &tableau{
		m: m, n: n,
		mat:         mat.NewDense(m+1, n+1, nil),
		basis:       make([]int, m),
		cost:        make([]float64, n),
		trackingCol: trackingCol,
		artificial:  map[int]bool{},
		rowSign:     make([]float64, m),
	}

	for c, coef := range sf.objective {
		t.cost[c] = coef
	}
	for i := range slackCol {
		if slackCol[i] >= 0 {
			t.cost[slackCol[i]] = 0
		}
		if artCol[i] >= 0 {
			t.cost[artCol[i]] = bigM
			t.artificial[artCol[i]] = true
		}
	}

	for i, row := range sf.rows {
		coef, sense, rhs := normalizeRow(row)
		t.rowSign[i] = 1
		if sense != row.sense {
			t.rowSign[i] = -1
		}
		for c, v := range coef {
			t.mat.Set(i, c, v)
		}
		switch sense {
		case lopf.LE:
			t.mat.Set(i, slackCol[i], 1)
			t.basis[i] = slackCol[i]
		case lopf.GE:
			t.mat.Set(i, slackCol[i], -1)
			t.mat.Set(i, artCol[i], 1)
			t.basis[i] = artCol[i]
		case lopf.EQ:
			t.mat.Set(i, artCol[i], 1)
			t.basis[i] = artCol[i]
		}
		t.mat.Set(i, trackingCol[i], 1)
		t.mat.Set(i, n, rhs)
	}

	for c := 0; c < n; c++ {
		t.mat.Set(m, c, t.cost[c])
	}
	for i := 0; i < m; i++ {
		b := t.basis[i]
		cb := t.cost[b]
		if cb == 0 {
			continue
		}
		for c := 0; c <= n; c++ {
			t.mat.Set(m, c, t.mat.At(m, c)-cb*t.mat.At(i, c))
		}
	}

	return t
}

// normalizedSense is the sense a row will have after normalizeRow makes
// its RHS non-negative (EQ is unaffected; LE/GE swap if the row is
// flipped).
func normalizedSense(row standardRow) lopf.Sense {
	if row.rhs >= 0 {
		return row.sense
	}
	switch row.sense {
	case lopf.LE:
		return lopf.GE
	case lopf.GE:
		return lopf.LE
	default:
		return lopf.EQ
	}
}

func normalizeRow(row standardRow) (map[int]float64, lopf.Sense, float64) {
	if row.rhs >= 0 {
		return row.coef, row.sense, row.rhs
	}
	flipped := make(map[int]float64, len(row.coef))
	for c, v := range row.coef {
		flipped[c] = -v
	}
	return flipped, normalizedSense(row), -row.rhs
}

// solveResult is the tableau's raw output before it is mapped back
// through the standardForm's variable transforms.
type solveResult struct {
	status lopf.Status
	y      []float64 // standard-form column values
	duals  []float64 // one per tableau row, in row order
}

func (t *tableau) solve() (*solveResult, error) {
	maxIter := maxIterFactor * (t.m + t.n)
	for iter := 0; ; iter++ {
		if iter >= maxIter {
			return nil, fmt.Errorf("lpsolver: simplex did not converge within %d iterations", maxIter)
		}

		enter := -1
		for c := 0; c < t.n; c++ {
			if t.isTracking(c) {
				continue
			}
			if t.mat.At(t.m, c) < -eps {
				enter = c
				break // Bland's rule: smallest-index entering column
			}
		}
		if enter == -1 {
			break // optimal
		}

		leave := -1
		best := math.Inf(1)
		for i := 0; i < t.m; i++ {
			a := t.mat.At(i, enter)
			if a <= eps {
				continue
			}
			ratio := t.mat.At(i, t.n) / a
			if ratio < best-eps || (ratio < best+eps && (leave == -1 || t.basis[i] < t.basis[leave])) {
				best = ratio
				leave = i
			}
		}
		if leave == -1 {
			return &solveResult{status: lopf.StatusUnbounded}, nil
		}

		t.pivot(leave, enter)
	}

	for i := 0; i < t.m; i++ {
		if t.artificial[t.basis[i]] && t.mat.At(i, t.n) > 1e-6 {
			return &solveResult{status: lopf.StatusInfeasible}, nil
		}
	}

	y := make([]float64, t.n)
	for i := 0; i < t.m; i++ {
		y[t.basis[i]] = t.mat.At(i, t.n)
	}

	duals := make([]float64, t.m)
	for i := 0; i < t.m; i++ {
		duals[i] = -t.rowSign[i] * t.mat.At(t.m, t.trackingCol[i])
	}

	return &solveResult{status: lopf.StatusOptimal, y: y[:len(y)], duals: duals}, nil
}

func (t *tableau) isTracking(c int) bool {
	for _, tc := range t.trackingCol {
		if tc == c {
			return true
		}
	}
	return false
}

// pivot performs the elementary row operations that make column enter
// the basis in place of row leave's current basic variable.
func (t *tableau) pivot(leave, enter int) {
	piv := t.mat.At(leave, enter)
	for c := 0; c <= t.n; c++ {
		t.mat.Set(leave, c, t.mat.At(leave, c)/piv)
	}
	for i := 0; i <= t.m; i++ {
		if i == leave {
			continue
		}
		factor := t.mat.At(i, enter)
		if factor == 0 {
			continue
		}
		for c := 0; c <= t.n; c++ {
			t.mat.Set(i, c, t.mat.At(i, c)-factor*t.mat.At(leave, c))
		}
	}
	t.basis[leave] = enter
}
