package lpsolver

import (
	"math"

	"github.com/psanalysis/gopsa/pkg/lopf"
)

// varKind classifies how a bounded decision variable of the caller's
// Problem is rewritten onto a non-negative simplex column (or pair of
// columns), since the Big-M tableau in simplex.go only ever works with
// variables constrained to >= 0.
type varKind int

const (
	shiftLower  varKind = iota // x = lower + y,  y >= 0  (lower finite)
	reflectUpper                // x = upper - y,  y >= 0  (lower = -inf, upper finite)
	splitFree                   // x = yPlus - yMinus, both >= 0  (both infinite)
)

type varTransform struct {
	kind             varKind
	lower, upper     float64
	col, colMinus    int // column index(es) in the standard-form tableau
}

// standardRow is one constraint row already expressed purely in terms of
// non-negative standard-form columns.
type standardRow struct {
	name  string
	coef  map[int]float64
	sense lopf.Sense
	rhs   float64
}

// standardForm is an intermediate, solver-agnostic rewriting of a
// lopf.Problem: every column is >= 0, matching the classical textbook
// input a Big-M simplex tableau expects.
type standardForm struct {
	numCols int
	transforms []varTransform // one per original Problem.Variables entry
	rows    []standardRow
	// firstConstraintRow is the index within rows where the caller's own
	// Problem.Constraints begin (rows before it are synthesised variable
	// upper-bound rows); duals are reported only for rows from here on,
	// in the caller's original order.
	firstConstraintRow int
	objective           map[int]float64
}

// toStandardForm applies the three transforms above per variable
// (depending on which bound is finite), rewrites every constraint and
// the objective in terms of the resulting non-negative columns, and adds
// one upper-bound row per shifted variable that still has a finite
// upper bound (reflected and split variables need no extra row: their
// non-negativity alone reproduces the original bound).
func toStandardForm(p *lopf.Problem) *standardForm {
	sf := &standardForm{
		transforms: make([]varTransform, len(p.Variables)),
		objective:  map[int]float64{},
	}

	col := 0
	for i, v := range p.Variables {
		lowerFinite := !math.IsInf(v.Lower, -1)
		upperFinite := !math.IsInf(v.Upper, 1)
		switch {
		case lowerFinite:
			sf.transforms[i] = varTransform{kind: shiftLower, lower: v.Lower, upper: v.Upper, col: col}
			col++
		case upperFinite:
			sf.transforms[i] = varTransform{kind: reflectUpper, lower: v.Lower, upper: v.Upper, col: col}
			col++
		default:
			sf.transforms[i] = varTransform{kind: splitFree, col: col, colMinus: col + 1}
			col += 2
		}
	}
	sf.numCols = col

	// Upper-bound rows for shifted (finite-lower) variables that also
	// have a finite upper bound.
	for i, v := range p.Variables {
		tr := sf.transforms[i]
		if tr.kind == shiftLower && !math.IsInf(v.Upper, 1) {
			sf.rows = append(sf.rows, standardRow{
				name:  "bound",
				coef:  map[int]float64{tr.col: 1},
				sense: lopf.LE,
				rhs:   v.Upper - v.Lower,
			})
		}
	}

	sf.firstConstraintRow = len(sf.rows)

	for _, c := range p.Constraints {
		coef := map[int]float64{}
		rhs := c.RHS
		for _, t := range c.Terms {
			contrib, constant := sf.expand(t.Var, t.Coef)
			for col, v := range contrib {
				coef[col] += v
			}
			rhs -= constant
		}
		sf.rows = append(sf.rows, standardRow{name: c.Name, coef: coef, sense: c.Sense, rhs: rhs})
	}

	for _, t := range p.Objective {
		contrib, _ := sf.expand(t.Var, t.Coef)
		for col, v := range contrib {
			sf.objective[col] += v
		}
	}

	return sf
}

// expand rewrites one coef*x_i term into its standard-form column
// contribution(s) plus the constant term the shift/reflection pulls out.
func (sf *standardForm) expand(varIdx int, coef float64) (cols map[int]float64, constant float64) {
	tr := sf.transforms[varIdx]
	switch tr.kind {
	case shiftLower:
		return map[int]float64{tr.col: coef}, coef * tr.lower
	case reflectUpper:
		return map[int]float64{tr.col: -coef}, coef * tr.upper
	default: // splitFree
		return map[int]float64{tr.col: coef, tr.colMinus: -coef}, 0
	}
}

// value maps a solved standard-form column vector back to the original
// Problem's variable value.
func (sf *standardForm) value(varIdx int, y []float64) float64 {
	tr := sf.transforms[varIdx]
	switch tr.kind {
	case shiftLower:
		return tr.lower + y[tr.col]
	case reflectUpper:
		return tr.upper - y[tr.col]
	default:
		return y[tr.col] - y[tr.colMinus]
	}
}
