package util

import (
	"math"
	"testing"
)

func TestFormatPower(t *testing.T) {
	cases := []struct {
		in   float64
		want string
	}{
		{100, "100.000 MW"},
		{0.5, "500.000 kW"},
		{0, "0.000 MW"},
		{-2.5, "-2.500 MW"},
	}
	for _, c := range cases {
		if got := FormatPower(c.in); got != c.want {
			t.Errorf("FormatPower(%g) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestFormatVoltage(t *testing.T) {
	if got := FormatVoltage(380); got != "380.0 kV" {
		t.Errorf("got %q", got)
	}
	if got := FormatVoltage(0.4); got != "400.0 V" {
		t.Errorf("got %q", got)
	}
}

func TestFormatAngle(t *testing.T) {
	if got := FormatAngle(math.Pi); got != "180.00 deg" {
		t.Errorf("got %q", got)
	}
}
