package util

import "math"

// Round rounds v to the given number of decimals with ties going towards
// positive infinity, so -0.125 becomes -0.12 and 0.125 becomes 0.13.
func Round(v float64, decimals int) float64 {
	p := math.Pow(10, float64(decimals))
	return math.Floor(v*p+0.5) / p
}

// CeilPercent returns ceil(n * percent / 100) using integer arithmetic.
func CeilPercent(n, percent int) int {
	if n <= 0 {
		return 0
	}
	return (n*percent + 99) / 100
}
