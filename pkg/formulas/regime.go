package formulas

import "math"

// RegimeEstimate calculates a Hurst-style regime estimate via rescaled-range
// analysis of the full window:
//
//	H = log(R/S) / log(n)
//
// where R is the range of mean-adjusted cumulative deviations and S the
// sample standard deviation. Values near 0.5 indicate a random walk, above
// ~0.6 a persistent (trending) regime, below ~0.4 an anti-persistent
// (mean-reverting) regime.
//
// Returns nil for windows shorter than 8 points or flat windows (S == 0) -
// the estimate is meaningless there, not zero.
func RegimeEstimate(prices []float64) *float64 {
	n := len(prices)
	if n < 8 {
		return nil
	}

	mean := Mean(prices)
	sd := StdDev(prices)
	if sd == 0 {
		return nil
	}

	// Range of mean-adjusted cumulative deviations.
	var cum, minCum, maxCum float64
	for _, p := range prices {
		cum += p - mean
		if cum < minCum {
			minCum = cum
		}
		if cum > maxCum {
			maxCum = cum
		}
	}

	rs := (maxCum - minCum) / sd
	if rs <= 0 {
		return nil
	}

	h := math.Log(rs) / math.Log(float64(n))
	if isNaN(h) || math.IsInf(h, 0) {
		return nil
	}
	return &h
}
