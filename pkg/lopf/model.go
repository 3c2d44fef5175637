package lopf

// VarKey indexes one family of LP variables for after-solve extraction.
// snap is the empty string for variables that have no per-snapshot
// dimension (the extendable-capacity variables).
type VarKey struct {
	Name string
	Snap string
}

// VarIndex maps every named decision variable family the builder declares
// back to its Problem.Variables index, so pkg/result can read
// Solution.VarValues without re-deriving the same bookkeeping the builder
// used to create them.
type VarIndex struct {
	GenP               map[VarKey]int
	GenPNom            map[string]int
	StoragePDispatch   map[VarKey]int
	StoragePStore      map[VarKey]int
	StoragePNom        map[string]int
	StateOfCharge      map[VarKey]int // absent entries are user-fixed cells (no variable)
	BranchSNom         map[string]int // lines + transformers + controllable branches, extendable only
	ControllableP      map[VarKey]int
	VoltageAngle       map[VarKey]int // angles formulation only
}

func newVarIndex() *VarIndex {
	return &VarIndex{
		GenP:             map[VarKey]int{},
		GenPNom:          map[string]int{},
		StoragePDispatch: map[VarKey]int{},
		StoragePStore:    map[VarKey]int{},
		StoragePNom:      map[string]int{},
		StateOfCharge:    map[VarKey]int{},
		BranchSNom:       map[string]int{},
		ControllableP:    map[VarKey]int{},
		VoltageAngle:     map[VarKey]int{},
	}
}

// ConstraintIndex records the row index of every nodal-balance constraint
// the builder emits, keyed by what the row represents: one per (bus,
// snapshot) in the angles formulation, one per (sub-network, snapshot) in
// the PTDF formulation. pkg/result reads BusBalance to pull the dual
// (shadow price) of each bus row into Bus.MarginalPrice; the
// SubNetworkBalance rows are not read back.
type ConstraintIndex struct {
	BusBalance       map[VarKey]int // angles formulation: bus -> snapshot -> row
	SubNetworkBalance map[VarKey]int // ptdf formulation: sub-network -> snapshot -> row
}

func newConstraintIndex() *ConstraintIndex {
	return &ConstraintIndex{
		BusBalance:        map[VarKey]int{},
		SubNetworkBalance: map[VarKey]int{},
	}
}

// Model is the fully built LP plus the bookkeeping needed to read a
// Solution back onto the network.
type Model struct {
	Problem     *Problem
	Vars        *VarIndex
	Constraints *ConstraintIndex
	Formulation string // "angles" or "ptdf", echoed from network.Config
}

// expr is a linear combination of decision variables plus a constant:
// a "power_balance[bus,t]" expression before it is folded into a
// constraint row. Const carries the contribution of data
// (load p_set, user-fixed SOC) that isn't a variable.
type expr struct {
	terms []Term
	const_ float64
}

func (e *expr) add(v int, coef float64) {
	if coef == 0 {
		return
	}
	e.terms = append(e.terms, Term{Var: v, Coef: coef})
}

func (e *expr) addConst(c float64) { e.const_ += c }

// scaled returns a copy of e's terms scaled by k, and its constant scaled
// by k (used by the PTDF formulation to weight a bus's balance
// expression by PTDF[branch][bus]).
func (e *expr) scaled(k float64) expr {
	if k == 0 {
		return expr{}
	}
	out := expr{const_: e.const_ * k}
	out.terms = make([]Term, len(e.terms))
	for i, t := range e.terms {
		out.terms[i] = Term{Var: t.Var, Coef: t.Coef * k}
	}
	return out
}

func mergeInto(dst *expr, src expr) {
	dst.terms = append(dst.terms, src.terms...)
	dst.const_ += src.const_
}
