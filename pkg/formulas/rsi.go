package formulas

import (
	"github.com/markcheno/go-talib"
)

// CalculateRSI calculates the Relative Strength Index over the last `length`
// periods.
//
// RSI Formula:
//   RSI = 100 - (100 / (1 + RS))
//   where RS = Average Gain / Average Loss over N periods
//
// Edge semantics:
//   - Window shorter than length+1: neutral 50 (not enough data to lean
//     either way).
//   - No losses in the window: 100.
//   - No gains and no losses (flat window): neutral 50.
//
// Args:
//   closes: Array of closing prices
//   length: RSI period (typically 14)
//
// Returns:
//   Current RSI value (0-100); always defined, never NaN
func CalculateRSI(closes []float64, length int) float64 {
	if length <= 0 || len(closes) < length+1 {
		return 50.0
	}

	// Inspect the tail of the window first: talib's Wilder smoothing is
	// undefined for all-flat input and we want explicit edge values.
	var gains, losses float64
	for i := len(closes) - length; i < len(closes); i++ {
		change := closes[i] - closes[i-1]
		if change > 0 {
			gains += change
		} else {
			losses -= change
		}
	}

	if losses == 0 {
		if gains == 0 {
			return 50.0 // flat window, neutral
		}
		return 100.0
	}

	rsi := talib.Rsi(closes, length)
	last := rsi[len(rsi)-1]
	if isNaN(last) {
		return 50.0
	}
	return last
}
