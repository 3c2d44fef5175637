package component

import (
	"math"
	"testing"
)

func TestGeneratorPBounds(t *testing.T) {
	g := NewGenerator("g", "bus", 200, 10)
	min, max := g.PBounds("now")
	if min != 0 || max != 200 {
		t.Errorf("flexible bounds = [%g, %g], want [0, 200]", min, max)
	}

	g.Dispatch = Variable
	g.PMaxPu.Set("now", 0.5)
	min, max = g.PBounds("now")
	if min != 0 || max != 100 {
		t.Errorf("variable bounds = [%g, %g], want [0, 100]", min, max)
	}
}

func TestStorageFixedSOC(t *testing.T) {
	s := NewStorageUnit("s", "bus", 100, 4)
	if _, fixed := s.FixedSOC("t0"); fixed {
		t.Error("unset cell must not be fixed")
	}
	s.StateOfCharge.Set("t0", math.NaN())
	if _, fixed := s.FixedSOC("t0"); fixed {
		t.Error("NaN means free, not fixed")
	}
	s.StateOfCharge.Set("t1", 250)
	v, fixed := s.FixedSOC("t1")
	if !fixed || v != 250 {
		t.Errorf("FixedSOC(t1) = (%g, %v), want (250, true)", v, fixed)
	}
}

func TestStorageMaxCapacity(t *testing.T) {
	s := NewStorageUnit("s", "bus", 100, 4)
	if s.MaxCapacity() != 400 {
		t.Errorf("MaxCapacity = %g, want 400", s.MaxCapacity())
	}
	s.PNomExtendable = true
	s.PNomOpt = 150
	if s.MaxCapacity() != 600 {
		t.Errorf("extendable MaxCapacity = %g, want 600", s.MaxCapacity())
	}
}

func TestTransformerTau(t *testing.T) {
	tr := NewTransformer("t", "a", "b", 0.01, 0.1, 100)
	if tr.Tau() != 1 {
		t.Errorf("default Tau = %g, want 1", tr.Tau())
	}
	tr.TapRatio = 0
	if tr.Tau() != 1 {
		t.Errorf("zero tap must read as 1, got %g", tr.Tau())
	}
	tr.TapRatio = 1.05
	if tr.Tau() != 1.05 {
		t.Errorf("Tau = %g, want 1.05", tr.Tau())
	}
}

func TestSignConventions(t *testing.T) {
	var g OnePort = NewGenerator("g", "bus", 100, 0)
	var l OnePort = NewLoad("l", "bus")
	if g.GetSign() != 1 || l.GetSign() != -1 {
		t.Errorf("signs = %g, %g; want +1, -1", g.GetSign(), l.GetSign())
	}
}

func TestRegistryCoversAllKinds(t *testing.T) {
	for _, k := range []Kind{KindBus, KindGenerator, KindStorageUnit, KindLoad,
		KindShunt, KindLine, KindTransformer, KindConverter, KindTransportLink, KindSource} {
		s, ok := Registry[k]
		if !ok {
			t.Errorf("registry missing %q", k)
			continue
		}
		if len(s.Static) == 0 {
			t.Errorf("%q has no static attributes", k)
		}
	}
	if !Registry[KindLine].IsBranch || Registry[KindLoad].IsBranch {
		t.Error("IsBranch flags wrong")
	}
}
