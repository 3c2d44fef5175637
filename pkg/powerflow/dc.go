package powerflow

import (
	"github.com/psanalysis/gopsa/pkg/matrix"
)

// DCResult reports the outcome of a linear power flow solve on one
// sub-network and snapshot.
type DCResult struct {
	DTheta []float64 // bus_o order; slack entry is always 0
	Flow   []float64 // branch order
	// SlackP is the slack bus's settled real power, -sum(p[1:]): the
	// slack absorbs whatever the remaining buses leave unbalanced.
	SlackP float64
}

// SolveDC runs the single sparse solve B[1:,1:]*dtheta = p[1:],
// dtheta[0] = 0, branch flows = H*dtheta. p is the nodal real
// power injection in bus_o order (network.Network.NodalP). If the
// sub-network has no branches (bh is nil), the only bus is the slack and
// it absorbs everything.
func SolveDC(bh *matrix.BH, p []float64) (*DCResult, error) {
	var slackP float64
	for _, v := range p[1:] {
		slackP -= v
	}

	if bh == nil {
		return &DCResult{DTheta: []float64{0}, Flow: nil, SlackP: slackP}, nil
	}
	dtheta, flow, err := bh.SolveAngles(p)
	if err != nil {
		return nil, err
	}
	return &DCResult{DTheta: dtheta, Flow: flow, SlackP: slackP}, nil
}
