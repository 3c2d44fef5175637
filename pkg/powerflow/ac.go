// Package powerflow implements the nonlinear AC Newton-Raphson solver
// and the linear DC power flow solver. The NR loop follows the classic
// stamp, solve, check ||F||, iterate shape with a hard iteration cap,
// operating on complex bus voltages in the sub-network's canonical
// ordering.
package powerflow

import (
	"fmt"
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/mat"

	"github.com/psanalysis/gopsa/internal/physconsts"
	"github.com/psanalysis/gopsa/pkg/matrix"
)

// Convergence is a small bag of tolerances and limits threaded through
// the NR loop instead of being recomputed or hardcoded at each call
// site.
type Convergence struct {
	MaxIter int
	XTol    float64
}

// DefaultConvergence returns the stock nr_x_tol and iteration cap.
func DefaultConvergence() Convergence {
	return Convergence{MaxIter: physconsts.DefaultNRMaxIter, XTol: physconsts.DefaultNRTolerance}
}

// ACResult reports the outcome of one sub-network/snapshot AC solve.
type ACResult struct {
	V         []complex128 // bus_o order
	Iterations int
	Residual  float64
	Converged bool
}

// NodalInjection is the complex power injection s = p + jq at each bus
// in bus_o order, plus each bus's voltage-magnitude setpoint. Which
// buses are PV is given to SolveAC by its numPV argument.
type NodalInjection struct {
	S       []complex128
	VSet    []float64 // per-bus |V| setpoint, used at slack and PV buses
}

// SolveAC runs Newton-Raphson to convergence on one sub-network's Y
// matrix. numPV/numPQ give the split of
// sn.PVPQs (PV buses first, per the canonical ordering), so slack is bus
// index 0, PV buses are indices [1, 1+numPV), PQ buses the rest.
func SolveAC(y *matrix.Y, inj NodalInjection, numPV, numPQ int, conv Convergence) (*ACResult, error) {
	n := y.Dim()
	if len(inj.S) != n || len(inj.VSet) != n {
		return nil, fmt.Errorf("powerflow: injection vector length %d does not match sub-network size %d", len(inj.S), n)
	}

	v := make([]complex128, n)
	for i := range v {
		if i == 0 || (i >= 1 && i < 1+numPV) {
			v[i] = complex(inj.VSet[i], 0)
		} else {
			v[i] = complex(1, 0)
		}
	}

	// Unknowns: angles at PV+PQ buses (indices 1..n-1), magnitudes at PQ
	// buses only (indices 1+numPV..n-1).
	nonSlack := n - 1
	dim := nonSlack + numPQ

	res := &ACResult{V: v}
	for iter := 0; iter < conv.MaxIter; iter++ {
		f, fNorm := mismatch(y, v, inj.S, numPV, numPQ)
		res.Residual = fNorm
		res.Iterations = iter
		if fNorm <= conv.XTol {
			res.Converged = true
			return res, nil
		}

		j := jacobian(y, v, numPV, numPQ)
		var dx mat.Dense
		jm := mat.NewDense(dim, dim, j)
		fm := mat.NewDense(dim, 1, f)
		if err := dx.Solve(jm, fm); err != nil {
			return res, fmt.Errorf("powerflow: singular Jacobian at iteration %d: %w", iter, err)
		}

		for i := 0; i < nonSlack; i++ {
			busIdx := i + 1
			ang := cmplx.Phase(v[busIdx]) - dx.At(i, 0)
			mag := cmplx.Abs(v[busIdx])
			v[busIdx] = cmplx.Rect(mag, ang)
		}
		for i := 0; i < numPQ; i++ {
			busIdx := 1 + numPV + i
			mag := cmplx.Abs(v[busIdx]) - dx.At(nonSlack+i, 0)
			ang := cmplx.Phase(v[busIdx])
			v[busIdx] = cmplx.Rect(mag, ang)
		}
	}

	_, fNorm := mismatch(y, v, inj.S, numPV, numPQ)
	res.Residual = fNorm
	res.Iterations = conv.MaxIter
	res.Converged = fNorm <= conv.XTol
	return res, nil
}

// yTimesV computes the complex matrix-vector product Y*V.
func yTimesV(y *matrix.Y, v []complex128) []complex128 {
	n := len(v)
	out := make([]complex128, n)
	for i := 0; i < n; i++ {
		var s complex128
		row := y.Dense[i]
		for k := 0; k < n; k++ {
			if row[k] != 0 {
				s += row[k] * v[k]
			}
		}
		out[i] = s
	}
	return out
}

// mismatch computes F = V * conj(Y*V) - s, restricted to non-slack rows
// (real part) and PQ rows (imaginary part), and its infinity norm.
func mismatch(y *matrix.Y, v []complex128, s []complex128, numPV, numPQ int) ([]float64, float64) {
	n := len(v)
	iv := yTimesV(y, v)
	sCalc := make([]complex128, n)
	for i := 0; i < n; i++ {
		sCalc[i] = v[i] * cmplx.Conj(iv[i])
	}

	nonSlack := n - 1
	dim := nonSlack + numPQ
	f := make([]float64, dim)
	maxAbs := 0.0
	for i := 0; i < nonSlack; i++ {
		busIdx := i + 1
		r := real(sCalc[busIdx]) - real(s[busIdx])
		f[i] = r
		if math.Abs(r) > maxAbs {
			maxAbs = math.Abs(r)
		}
	}
	for i := 0; i < numPQ; i++ {
		busIdx := 1 + numPV + i
		im := imag(sCalc[busIdx]) - imag(s[busIdx])
		f[nonSlack+i] = im
		if math.Abs(im) > maxAbs {
			maxAbs = math.Abs(im)
		}
	}
	return f, maxAbs
}

// jacobian assembles the real 2x2-block Newton-Raphson Jacobian,
// restricted to non-slack rows/cols (and PQ-only for the magnitude
// columns and imaginary rows).
func jacobian(y *matrix.Y, v []complex128, numPV, numPQ int) []float64 {
	n := len(v)
	nonSlack := n - 1
	dim := nonSlack + numPQ
	jac := make([]float64, dim*dim)
	set := func(r, c int, val float64) { jac[r*dim+c] = val }

	iv := yTimesV(y, v)

	// dS/dtheta_k (column for bus k's angle) has two kinds of entries:
	// off-diagonal (i != k): V_i * conj(Y_ik * V_k) * (-j) contribution
	// handled via the analytic formula below applied per bus pair.
	for i := 0; i < nonSlack; i++ {
		busI := i + 1
		for k := 0; k < nonSlack; k++ {
			busK := k + 1
			var dSdTheta complex128
			if busI == busK {
				dSdTheta = complex(0, 1) * v[busI] * cmplx.Conj(iv[busI]-y.Dense[busI][busI]*v[busI])
			} else {
				dSdTheta = complex(0, -1) * v[busI] * cmplx.Conj(y.Dense[busI][busK]*v[busK])
			}
			set(i, k, real(dSdTheta))
		}
	}

	// The imaginary-row block (PQ rows only) for the angle columns.
	for pqRow := 0; pqRow < numPQ; pqRow++ {
		busI := 1 + numPV + pqRow
		for k := 0; k < nonSlack; k++ {
			busK := k + 1
			var dSdTheta complex128
			if busI == busK {
				dSdTheta = complex(0, 1) * v[busI] * cmplx.Conj(iv[busI]-y.Dense[busI][busI]*v[busI])
			} else {
				dSdTheta = complex(0, -1) * v[busI] * cmplx.Conj(y.Dense[busI][busK]*v[busK])
			}
			set(nonSlack+pqRow, k, imag(dSdTheta))
		}
	}

	// dS/d|V|_k columns exist only for PQ buses k.
	for i := 0; i < nonSlack; i++ {
		busI := i + 1
		vHatI := v[busI] / complex(cmplx.Abs(v[busI]), 0)
		for pqCol := 0; pqCol < numPQ; pqCol++ {
			busK := 1 + numPV + pqCol
			vHatK := v[busK] / complex(cmplx.Abs(v[busK]), 0)
			var dSdV complex128
			if busI == busK {
				dSdV = vHatI*cmplx.Conj(iv[busI]) + v[busI]*cmplx.Conj(y.Dense[busI][busI]*vHatK)
			} else {
				dSdV = v[busI] * cmplx.Conj(y.Dense[busI][busK]*vHatK)
			}
			set(i, nonSlack+pqCol, real(dSdV))
		}
	}
	for pqRow := 0; pqRow < numPQ; pqRow++ {
		busI := 1 + numPV + pqRow
		vHatI := v[busI] / complex(cmplx.Abs(v[busI]), 0)
		for pqCol := 0; pqCol < numPQ; pqCol++ {
			busK := 1 + numPV + pqCol
			vHatK := v[busK] / complex(cmplx.Abs(v[busK]), 0)
			var dSdV complex128
			if busI == busK {
				dSdV = vHatI*cmplx.Conj(iv[busI]) + v[busI]*cmplx.Conj(y.Dense[busI][busI]*vHatK)
			} else {
				dSdV = v[busI] * cmplx.Conj(y.Dense[busI][busK]*vHatK)
			}
			set(nonSlack+pqRow, nonSlack+pqCol, imag(dSdV))
		}
	}

	return jac
}

// BranchFlows computes branch active/reactive power at both ends after
// a converged AC solve: i0 = Y0*V, s0 = V_from * conj(i0), and likewise
// at the receiving end.
func BranchFlows(y *matrix.Y, v []complex128) (p0, q0, p1, q1 []float64) {
	nBr := len(y.Y0)
	p0 = make([]float64, nBr)
	q0 = make([]float64, nBr)
	p1 = make([]float64, nBr)
	q1 = make([]float64, nBr)
	for k := 0; k < nBr; k++ {
		var i0, i1 complex128
		for idx, yv := range y.Y0[k] {
			i0 += yv * v[idx]
		}
		for idx, yv := range y.Y1[k] {
			i1 += yv * v[idx]
		}
		vFrom := v[y.Bus0Idx[k]]
		vTo := v[y.Bus1Idx[k]]
		s0 := vFrom * cmplx.Conj(i0)
		s1 := vTo * cmplx.Conj(i1)
		p0[k], q0[k] = real(s0), imag(s0)
		p1[k], q1[k] = real(s1), imag(s1)
	}
	return
}

// SlackAndPVPower recomputes the slack bus's p,q and every PV bus's q
// from the converged Y*V product.
func SlackAndPVPower(y *matrix.Y, v []complex128, numPV int) (slackP, slackQ float64, pvQ []float64) {
	iv := yTimesV(y, v)
	s0 := v[0] * cmplx.Conj(iv[0])
	slackP, slackQ = real(s0), imag(s0)
	pvQ = make([]float64, numPV)
	for i := 0; i < numPV; i++ {
		busIdx := 1 + i
		s := v[busIdx] * cmplx.Conj(iv[busIdx])
		pvQ[i] = imag(s)
	}
	return
}
