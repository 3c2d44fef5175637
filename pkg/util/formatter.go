package util

import (
	"fmt"
	"math"
)

// FormatPower renders an active power value in MW, stepping down to kW/W
// for small magnitudes.
func FormatPower(value float64) string {
	absValue := math.Abs(value)
	switch {
	case absValue >= 1:
		return fmt.Sprintf("%.3f MW", value)
	case absValue >= 1e-3:
		return fmt.Sprintf("%.3f kW", value*1e3)
	case absValue == 0:
		return "0.000 MW"
	default:
		return fmt.Sprintf("%.3f W", value*1e6)
	}
}

// FormatVoltage renders a nominal voltage in kV or V.
func FormatVoltage(value float64) string {
	if math.Abs(value) >= 1 {
		return fmt.Sprintf("%.1f kV", value)
	}
	return fmt.Sprintf("%.1f V", value*1e3)
}

// FormatPerUnit renders a dimensionless per-unit quantity.
func FormatPerUnit(value float64) string {
	if math.Abs(value) >= 1000 || (math.Abs(value) < 0.001 && value != 0) {
		return fmt.Sprintf("%8.2e p.u.", value)
	}
	return fmt.Sprintf("%8.4f p.u.", value)
}

// FormatAngle renders a voltage angle, stored in radians, as degrees.
func FormatAngle(radians float64) string {
	return fmt.Sprintf("%6.2f deg", radians*180/math.Pi)
}

// FormatCost renders a cost or price value.
func FormatCost(value float64) string {
	return fmt.Sprintf("%.2f", value)
}
