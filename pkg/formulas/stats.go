// Package formulas provides the leaf statistical calculations used by the
// feature engine. Every function guards short windows and degenerate inputs
// by returning nil ("no signal") instead of panicking or returning NaN.
package formulas

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// Mean calculates the arithmetic mean of a slice of float64 values
func Mean(data []float64) float64 {
	if len(data) == 0 {
		return 0
	}
	return stat.Mean(data, nil)
}

// StdDev calculates the sample standard deviation of a slice of float64 values
func StdDev(data []float64) float64 {
	if len(data) < 2 {
		return 0
	}
	return stat.StdDev(data, nil)
}

// ZScore calculates how many standard deviations the last price sits from
// the window mean.
//
// Returns nil when the window is empty or the standard deviation is zero
// (flat window), since "zero deviations from a flat line" carries no signal.
func ZScore(prices []float64) *float64 {
	if len(prices) < 2 {
		return nil
	}

	mean := Mean(prices)
	sd := StdDev(prices)
	if sd == 0 {
		return nil
	}

	z := (prices[len(prices)-1] - mean) / sd
	if isNaN(z) || math.IsInf(z, 0) {
		return nil
	}
	return &z
}

// CoefficientOfVariation calculates stdev/mean, used as a volatility gate to
// reject near-flat instruments.
//
// Returns nil when the mean is zero or the window is too short.
func CoefficientOfVariation(prices []float64) *float64 {
	if len(prices) < 2 {
		return nil
	}

	mean := Mean(prices)
	if mean == 0 {
		return nil
	}

	cv := StdDev(prices) / math.Abs(mean)
	if isNaN(cv) {
		return nil
	}
	return &cv
}

// isNaN checks if a float64 is NaN
func isNaN(f float64) bool {
	return f != f
}
