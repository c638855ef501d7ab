package formulas

import (
	"github.com/markcheno/go-talib"
)

// BollingerBands represents Bollinger Bands values
type BollingerBands struct {
	Upper  float64 `json:"upper"`
	Middle float64 `json:"middle"`
	Lower  float64 `json:"lower"`
}

// CalculateBollingerBands calculates mean +/- k*stdev envelope bands.
//
// Args:
//
//	closes: Array of closing prices
//	length: Period for moving average (typically 20)
//	stdDevMultiplier: Standard deviation multiplier (typically 2)
//
// Returns:
//
//	BollingerBands struct or nil if insufficient data. A flat window yields
//	collapsed bands (upper == middle == lower), never an error.
func CalculateBollingerBands(closes []float64, length int, stdDevMultiplier float64) *BollingerBands {
	if length <= 0 || len(closes) < length {
		return nil
	}

	// MAType 0 = SMA (Simple Moving Average)
	upper, middle, lower := talib.BBands(closes, length, stdDevMultiplier, stdDevMultiplier, 0)

	if len(upper) == 0 || isNaN(upper[len(upper)-1]) {
		return nil
	}

	return &BollingerBands{
		Upper:  upper[len(upper)-1],
		Middle: middle[len(middle)-1],
		Lower:  lower[len(lower)-1],
	}
}

// BandPosition calculates where price sits within the bands:
// 0.0 at the lower band, 0.5 at the middle, 1.0 at the upper band,
// clamped for prices outside the envelope.
//
// Returns 0.5 for collapsed bands (flat window) - price is at the middle by
// definition and no division happens.
func BandPosition(price float64, bands *BollingerBands) float64 {
	if bands == nil {
		return 0.5
	}

	width := bands.Upper - bands.Lower
	if width == 0 {
		return 0.5
	}

	position := (price - bands.Lower) / width
	if position < 0.0 {
		position = 0.0
	}
	if position > 1.0 {
		position = 1.0
	}
	return position
}
