package component

import "github.com/psanalysis/gopsa/pkg/snapshot"

// Load is a one-port consuming active (and, for AC, reactive) power; its
// sign is always -1 so it subtracts from the nodal balance.
type Load struct {
	Name string
	Bus  string
	Sign float64

	PSet snapshot.Series
	QSet snapshot.Series

	// P is the realised consumption written back by LOPF result
	// extraction; it equals PSet in any feasible solution.
	P snapshot.Series
}

// NewLoad builds a Load with sign -1.
func NewLoad(name, bus string) *Load {
	return &Load{
		Name: name,
		Bus:  bus,
		Sign: -1,
		PSet: snapshot.Series{},
		QSet: snapshot.Series{},
		P:    snapshot.Series{},
	}
}

func (l *Load) GetName() string  { return l.Name }
func (l *Load) BusName() string  { return l.Bus }
func (l *Load) GetSign() float64 { return l.Sign }
