package formulas

import "math"

// EfficiencyRatio calculates Kaufman's efficiency ratio over a lookback:
// net displacement divided by the summed absolute tick-to-tick path length.
//
// Near 0 = noisy / mean-reverting, near 1 = smooth trend.
//
// Returns nil when fewer than lookback+1 prices are available or the path
// length is zero (flat window).
func EfficiencyRatio(prices []float64, lookback int) *float64 {
	if lookback <= 0 || len(prices) < lookback+1 {
		return nil
	}

	window := prices[len(prices)-lookback-1:]
	displacement := math.Abs(window[len(window)-1] - window[0])

	var pathLength float64
	for i := 1; i < len(window); i++ {
		pathLength += math.Abs(window[i] - window[i-1])
	}
	if pathLength == 0 {
		return nil
	}

	er := displacement / pathLength
	return &er
}
