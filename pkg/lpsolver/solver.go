package lpsolver

import (
	"github.com/psanalysis/gopsa/pkg/lopf"
)

// Solver is the reference lopf.Solver backend: it rewrites a Problem into
// non-negative standard form (standardform.go) and runs the Big-M dense
// simplex tableau (simplex.go) to optimality. It keeps no state between
// calls and is safe to reuse across networks.
type Solver struct{}

// New returns a ready-to-use Solver.
func New() *Solver { return &Solver{} }

// Solve implements lopf.Solver.
func (s *Solver) Solve(p *lopf.Problem) (*lopf.Solution, error) {
	if len(p.Variables) == 0 {
		return &lopf.Solution{Status: lopf.StatusOptimal, ObjectiveValue: p.ObjectiveConstant}, nil
	}

	sf := toStandardForm(p)
	t := newTableau(sf)
	res, err := t.solve()
	if err != nil {
		return nil, err
	}
	if res.status != lopf.StatusOptimal {
		return &lopf.Solution{Status: res.status}, nil
	}

	varValues := make([]float64, len(p.Variables))
	for i := range p.Variables {
		varValues[i] = sf.value(i, res.y)
	}

	duals := make([]float64, len(p.Constraints))
	for i := range p.Constraints {
		duals[i] = res.duals[sf.firstConstraintRow+i]
	}

	objective := p.ObjectiveConstant
	for _, term := range p.Objective {
		objective += term.Coef * varValues[term.Var]
	}

	return &lopf.Solution{
		Status:         lopf.StatusOptimal,
		ObjectiveValue: objective,
		VarValues:      varValues,
		Duals:          duals,
	}, nil
}
