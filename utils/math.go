// utils/math.go
package utils

import "math"

const Epsilon = 1e-9

// FloatEquals compares two floating-point numbers for near-equality.
func FloatEquals(a, b float64) bool {
	return math.Abs(a-b) < Epsilon
}

// RoundToPrecision rounds a float64 to a specified number of decimal places.
func RoundToPrecision(value float64, precision int) float64 {
	pow := math.Pow(10, float64(precision))
	return math.Round(value*pow) / pow
}

// DrawdownFloor returns the equity floor implied by a reference amount and
// a drawdown percentage.
func DrawdownFloor(reference, percent float64) float64 {
	return reference * (1 - percent/100)
}

// ProfitCeiling returns the equity level that satisfies a profit target
// percentage over a reference amount.
func ProfitCeiling(reference, percent float64) float64 {
	return reference * (1 + percent/100)
}
