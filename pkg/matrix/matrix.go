// Package matrix assembles and solves the nodal admittance matrices
// used by steady-state analysis: the complex Y matrix for AC
// Newton-Raphson, the real B/H pair for DC and linearised-AC flow, and
// the power transfer distribution factor matrix PTDF. It wraps
// github.com/edp1096/sparse for factorisation and solves. The sparse
// library is 1-based (index 0 is the SPICE-style ground row); sysMatrix
// hides that offset so the rest of this package stays 0-based in bus_o
// order.
package matrix

import (
	"fmt"
	"math"
	"math/cmplx"

	"github.com/edp1096/sparse"

	"github.com/psanalysis/gopsa/internal/physconsts"
)

// StampTarget is the narrow interface branch-admittance stampers write
// into, in the style of a SPICE engine's device Stamp methods.
type StampTarget interface {
	AddElement(row, col int, real float64)
	AddRHS(row int, real float64)
	AddComplexElement(row, col int, real, imag float64)
	AddComplexRHS(row int, real, imag float64)
}

// sysMatrix is the thin 1-based wrapper around sparse.Matrix, sized for
// one sub-network. Rows/columns passed to its methods are 0-based; the
// +1 shift to the library's SPICE-style indexing happens here and only
// here.
type sysMatrix struct {
	size    int
	mat     *sparse.Matrix
	rhs     []float64
	rhsImag []float64
	complex bool
}

var _ StampTarget = (*sysMatrix)(nil)

func newSysMatrix(size int, isComplex bool) (*sysMatrix, error) {
	cfg := &sparse.Configuration{
		Real:                    true,
		Complex:                 isComplex,
		SeparatedComplexVectors: true,
		Expandable:              true,
		Translate:               false,
		ModifiedNodal:           false,
		TiesMultiplier:          5,
	}
	m, err := sparse.Create(int64(size), cfg)
	if err != nil {
		return nil, fmt.Errorf("matrix: create %dx%d sparse matrix: %w", size, size, err)
	}
	return &sysMatrix{
		size:    size,
		mat:     m,
		rhs:     make([]float64, size+1),
		rhsImag: make([]float64, size+1),
		complex: isComplex,
	}, nil
}

func (m *sysMatrix) AddElement(row, col int, v float64) {
	m.mat.GetElement(int64(row+1), int64(col+1)).Real += v
}

func (m *sysMatrix) AddComplexElement(row, col int, re, im float64) {
	e := m.mat.GetElement(int64(row+1), int64(col+1))
	e.Real += re
	e.Imag += im
}

func (m *sysMatrix) AddRHS(row int, v float64) {
	m.rhs[row+1] += v
}

func (m *sysMatrix) AddComplexRHS(row int, re, im float64) {
	m.rhs[row+1] += re
	m.rhsImag[row+1] += im
}

func (m *sysMatrix) clearRHS() {
	for i := range m.rhs {
		m.rhs[i] = 0
	}
	for i := range m.rhsImag {
		m.rhsImag[i] = 0
	}
}

// solve factors (the library caches the factorisation) and solves for the
// current RHS, returning the solution re-based to 0-based order.
func (m *sysMatrix) solve() ([]float64, error) {
	if err := m.mat.Factor(); err != nil {
		return nil, fmt.Errorf("matrix: factor: %w", err)
	}
	sol, err := m.mat.Solve(m.rhs)
	if err != nil {
		return nil, fmt.Errorf("matrix: solve: %w", err)
	}
	return sol[1 : m.size+1], nil
}

func (m *sysMatrix) solveComplex() (re, im []float64, err error) {
	if err := m.mat.Factor(); err != nil {
		return nil, nil, fmt.Errorf("matrix: factor: %w", err)
	}
	solRe, solIm, err := m.mat.SolveComplex(m.rhs, m.rhsImag)
	if err != nil {
		return nil, nil, fmt.Errorf("matrix: solve complex: %w", err)
	}
	return solRe[1 : m.size+1], solIm[1 : m.size+1], nil
}

// Y holds the complex nodal admittance matrix of one AC sub-network, in
// the canonical bus_o ordering (slack first).
type Y struct {
	dim int
	sys *sysMatrix
	// Dense mirrors the sparse stamp for the random access the Jacobian
	// assembly in pkg/powerflow needs every iteration; sub-networks in
	// scope for nonlinear AC flow stay small enough (a few hundred
	// buses) that this duplication is cheap next to the NR loop itself.
	Dense [][]complex128
	// Y0, Y1 are the per-branch "from" and "to" admittance rows used to
	// back-calculate branch currents after a voltage solve:
	// Y0[k,:] * V = current injected at branch k's bus0, Y1[k,:] * V at
	// bus1.
	Y0 []map[int64]complex128
	Y1 []map[int64]complex128
	// Bus0Idx/Bus1Idx record each branch's two terminal bus indices, in
	// the same order Y0/Y1 were populated, so callers can recover V_from
	// and V_to without depending on map iteration order.
	Bus0Idx []int64
	Bus1Idx []int64
	// BranchNames is the branch name at each row of Y0/Y1, in build order.
	BranchNames []string
}

// branchPrimitive returns the primitive 2x2 admittance block of one
// passive branch in (bus0, bus1) order:
//
//	y_se = 1/(r_pu + j x_pu), y_sh = g_pu + j b_pu, tau, phase shift phi.
//	Y00 = (y_se + y_sh/2) / tau^2
//	Y01 = -y_se / (tau * conj(exp(j phi)))
//	Y10 = -y_se / (tau * exp(j phi))
//	Y11 = y_se + y_sh/2
func branchPrimitive(rPu, xPu, gPu, bPu, tau, phaseShiftDeg float64) (y00, y01, y10, y11 complex128) {
	ySe := 1 / complex(rPu, xPu)
	ySh := complex(gPu, bPu)
	if tau == 0 {
		tau = 1
	}
	phi := phaseShiftDeg * physconsts.DegToRad
	shift := cmplx.Exp(complex(0, phi))

	y00 = (ySe + ySh/2) / complex(tau*tau, 0)
	y01 = -ySe / (complex(tau, 0) * cmplx.Conj(shift))
	y10 = -ySe / (complex(tau, 0) * shift)
	y11 = ySe + ySh/2
	return
}

// BranchInput is the normalised per-unit data matrix.BuildY and BuildBH
// need from a passive branch; callers (pkg/network) fill it from Line or
// Transformer fields after the per-unit calculator has run.
type BranchInput struct {
	Name          string
	Bus0, Bus1    string
	RPu, XPu      float64
	GPu, BPu      float64
	Tau           float64 // 1 for lines
	PhaseShiftDeg float64 // 0 for lines
}

// BuildY assembles the complex nodal admittance matrix of an AC
// sub-network over the given canonical bus order (sn.BusesO), stamping
// each branch's primitive block at its two terminal rows/columns and
// each shunt's g_pu+j*b_pu on its own bus's diagonal.
func BuildY(busOrder []string, busIndex map[string]int, branches []BranchInput, shuntGPu, shuntBPu map[string]float64) (*Y, error) {
	dim := len(busOrder)
	sys, err := newSysMatrix(dim, true)
	if err != nil {
		return nil, fmt.Errorf("matrix: create Y (%d buses): %w", dim, err)
	}
	dense := make([][]complex128, dim)
	for i := range dense {
		dense[i] = make([]complex128, dim)
	}

	y0 := make([]map[int64]complex128, len(branches))
	y1 := make([]map[int64]complex128, len(branches))
	bus0Idx := make([]int64, len(branches))
	bus1Idx := make([]int64, len(branches))

	for k, br := range branches {
		i0, ok0 := busIndex[br.Bus0]
		i1, ok1 := busIndex[br.Bus1]
		if !ok0 || !ok1 {
			return nil, fmt.Errorf("matrix: branch %q references bus outside sub-network", br.Name)
		}
		y00, y01, y10, y11 := branchPrimitive(br.RPu, br.XPu, br.GPu, br.BPu, br.Tau, br.PhaseShiftDeg)

		stampComplex(sys, dense, i0, i0, y00)
		stampComplex(sys, dense, i0, i1, y01)
		stampComplex(sys, dense, i1, i0, y10)
		stampComplex(sys, dense, i1, i1, y11)

		y0[k] = map[int64]complex128{int64(i0): y00, int64(i1): y01}
		y1[k] = map[int64]complex128{int64(i0): y10, int64(i1): y11}
		bus0Idx[k] = int64(i0)
		bus1Idx[k] = int64(i1)
	}

	for bus, g := range shuntGPu {
		i, ok := busIndex[bus]
		if !ok {
			continue
		}
		stampComplex(sys, dense, i, i, complex(g, shuntBPu[bus]))
	}

	names := make([]string, len(branches))
	for k, br := range branches {
		names[k] = br.Name
	}

	return &Y{dim: dim, sys: sys, Dense: dense, Y0: y0, Y1: y1, Bus0Idx: bus0Idx, Bus1Idx: bus1Idx, BranchNames: names}, nil
}

func stampComplex(sys *sysMatrix, dense [][]complex128, row, col int, v complex128) {
	sys.AddComplexElement(row, col, real(v), imag(v))
	dense[row][col] += v
}

// Solve factors Y (if not already factored) and solves Y*V = I for the
// complex current injection vector i, returning V in bus_o order.
func (y *Y) Solve(iReal, iImag []float64) (vReal, vImag []float64, err error) {
	y.sys.clearRHS()
	for i := range iReal {
		y.sys.AddComplexRHS(i, iReal[i], iImag[i])
	}
	return y.sys.solveComplex()
}

// Dim returns the matrix dimension (number of buses in bus_o order).
func (y *Y) Dim() int { return y.dim }

// BH holds the real incidence-weighted susceptance matrices of one
// sub-network: H is num_branches x num_buses, B is
// incidence^T * H. Row/column 0 of B corresponds to the slack bus.
type BH struct {
	NumBuses    int
	NumBranches int
	H           [][]float64 // [branch][bus]
	B           [][]float64 // [bus][bus]
	// BranchNames is the branch name at each row of H, in build order.
	BranchNames []string
}

// BuildBH assembles B and H for a DC or linearised-AC sub-network. ac
// selects the susceptance convention: b = 1/x_pu when true (AC), 1/r_pu
// when false (DC).
func BuildBH(busOrder []string, busIndex map[string]int, branches []BranchInput, ac bool) (*BH, error) {
	nb := len(busOrder)
	nBr := len(branches)

	h := make([][]float64, nBr)
	b := make([][]float64, nb)
	for i := range b {
		b[i] = make([]float64, nb)
	}

	for k, br := range branches {
		i0, ok0 := busIndex[br.Bus0]
		i1, ok1 := busIndex[br.Bus1]
		if !ok0 || !ok1 {
			return nil, fmt.Errorf("matrix: branch %q references bus outside sub-network", br.Name)
		}
		var bb float64
		if ac {
			if br.XPu == 0 {
				return nil, fmt.Errorf("matrix: branch %q has zero x_pu", br.Name)
			}
			bb = 1 / br.XPu
		} else {
			if br.RPu == 0 {
				return nil, fmt.Errorf("matrix: branch %q has zero r_pu", br.Name)
			}
			bb = 1 / br.RPu
		}

		row := make([]float64, nb)
		row[i0] = bb
		row[i1] = -bb
		h[k] = row

		b[i0][i0] += bb
		b[i1][i1] += bb
		b[i0][i1] -= bb
		b[i1][i0] -= bb
	}

	names := make([]string, nBr)
	for k, br := range branches {
		names[k] = br.Name
	}

	return &BH{NumBuses: nb, NumBranches: nBr, H: h, B: b, BranchNames: names}, nil
}

// reducedB stamps B[1:,1:] (the slack row/column dropped) into a fresh
// sparse matrix ready to factor. The reduced matrix is rebuilt per solve
// rather than cached: B itself is cached one level up (pkg/network), and
// the library's factorisation is the expensive step either way.
func (m *BH) reducedB() (*sysMatrix, error) {
	red, err := newSysMatrix(m.NumBuses-1, false)
	if err != nil {
		return nil, fmt.Errorf("matrix: create reduced B: %w", err)
	}
	for i := 1; i < m.NumBuses; i++ {
		for j := 1; j < m.NumBuses; j++ {
			if m.B[i][j] != 0 {
				red.AddElement(i-1, j-1, m.B[i][j])
			}
		}
	}
	return red, nil
}

// SolveAngles solves B[1:,1:] * dtheta[1:] = p[1:], dtheta[0] = 0, and
// returns the per-branch flow H * dtheta.
func (m *BH) SolveAngles(p []float64) (dtheta []float64, flow []float64, err error) {
	if m.NumBuses == 1 {
		return []float64{0}, make([]float64, m.NumBranches), nil
	}

	red, err := m.reducedB()
	if err != nil {
		return nil, nil, err
	}
	for i := 1; i < m.NumBuses; i++ {
		red.AddRHS(i-1, p[i])
	}
	sol, err := red.solve()
	if err != nil {
		return nil, nil, fmt.Errorf("matrix: solve B dtheta = p: %w", err)
	}

	dtheta = append([]float64{0}, sol...)
	flow = make([]float64, m.NumBranches)
	for k, row := range m.H {
		var f float64
		for j, hij := range row {
			f += hij * dtheta[j]
		}
		flow[k] = f
	}
	return dtheta, flow, nil
}

// PTDF computes the power transfer distribution factor matrix of a
// sub-network: B_inv solves B[1:,1:]*X = I column by
// column, padded back with a zero slack row/column, and PTDF = H*B_inv.
// Entries with |value| below tol are zeroed.
func PTDF(m *BH, tol float64) ([][]float64, error) {
	n := m.NumBuses
	if n <= 1 {
		ptdf := make([][]float64, m.NumBranches)
		for k := range ptdf {
			ptdf[k] = make([]float64, n)
		}
		return ptdf, nil
	}

	red, err := m.reducedB()
	if err != nil {
		return nil, err
	}

	bInv := make([][]float64, n)
	for i := range bInv {
		bInv[i] = make([]float64, n)
	}
	for col := 0; col < n-1; col++ {
		red.clearRHS()
		red.AddRHS(col, 1)
		sol, err := red.solve()
		if err != nil {
			return nil, fmt.Errorf("matrix: solve PTDF column %d: %w", col, err)
		}
		for i, v := range sol {
			bInv[i+1][col+1] = v
		}
	}

	ptdf := make([][]float64, m.NumBranches)
	for k, row := range m.H {
		r := make([]float64, n)
		for j := 0; j < n; j++ {
			var v float64
			for i := 0; i < n; i++ {
				v += row[i] * bInv[i][j]
			}
			if math.Abs(v) < tol {
				v = 0
			}
			r[j] = v
		}
		ptdf[k] = r
	}
	return ptdf, nil
}
