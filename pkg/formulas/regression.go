package formulas

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// TrendRegression holds ordinary-least-squares results of price against
// tick index.
type TrendRegression struct {
	Slope       float64 `json:"slope"`
	Intercept   float64 `json:"intercept"`
	RSquared    float64 `json:"r_squared"`
	ResidualStd float64 `json:"residual_std"`
}

// CalculateTrendRegression fits price = intercept + slope*index via OLS.
// Used as a trend filter (slope sign, R-squared strength) and as the basis
// for the regression residual z-score.
//
// Returns nil if fewer than 3 points are available (slope of 2 points is
// noise, not trend).
func CalculateTrendRegression(prices []float64) *TrendRegression {
	n := len(prices)
	if n < 3 {
		return nil
	}

	xs := make([]float64, n)
	for i := range xs {
		xs[i] = float64(i)
	}

	intercept, slope := stat.LinearRegression(xs, prices, nil, false)
	if isNaN(slope) || isNaN(intercept) {
		return nil
	}

	r2 := stat.RSquared(xs, prices, nil, intercept, slope)
	if isNaN(r2) {
		// Flat series: residuals are zero, the fit explains everything.
		r2 = 1.0
	}

	// Sample standard deviation of residuals around the fitted line.
	var sumSq float64
	for i, x := range xs {
		resid := prices[i] - (intercept + slope*x)
		sumSq += resid * resid
	}
	residStd := math.Sqrt(sumSq / float64(n-1))

	return &TrendRegression{
		Slope:       slope,
		Intercept:   intercept,
		RSquared:    r2,
		ResidualStd: residStd,
	}
}

// ResidualZScore calculates the regression residual z-score: how far the
// last price sits from the fitted trend line, in residual standard
// deviations. An alternative to the plain z-score that does not flag
// steady trends as deviations.
//
// Returns nil on short windows or when residuals are zero (prices exactly
// on a line carry no reversion signal).
func ResidualZScore(prices []float64) *float64 {
	reg := CalculateTrendRegression(prices)
	if reg == nil || reg.ResidualStd == 0 {
		return nil
	}

	n := len(prices)
	fitted := reg.Intercept + reg.Slope*float64(n-1)
	z := (prices[n-1] - fitted) / reg.ResidualStd
	if isNaN(z) || math.IsInf(z, 0) {
		return nil
	}
	return &z
}
