package formulas

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalculateBollingerBands(t *testing.T) {
	t.Run("insufficient data returns nil", func(t *testing.T) {
		assert.Nil(t, CalculateBollingerBands([]float64{1, 2, 3}, 5, 2))
		assert.Nil(t, CalculateBollingerBands(nil, 20, 2))
	})

	t.Run("flat window collapses bands without error", func(t *testing.T) {
		closes := make([]float64, 20)
		for i := range closes {
			closes[i] = 100
		}
		bands := CalculateBollingerBands(closes, 20, 2)
		require.NotNil(t, bands)
		assert.Equal(t, 100.0, bands.Upper)
		assert.Equal(t, 100.0, bands.Middle)
		assert.Equal(t, 100.0, bands.Lower)
	})

	t.Run("middle band is the window mean", func(t *testing.T) {
		closes := []float64{1, 2, 3, 4, 5}
		bands := CalculateBollingerBands(closes, 5, 2)
		require.NotNil(t, bands)
		assert.InDelta(t, 3.0, bands.Middle, 1e-9)
		assert.Greater(t, bands.Upper, bands.Middle)
		assert.Less(t, bands.Lower, bands.Middle)
	})
}

func TestBandPosition(t *testing.T) {
	assert.Equal(t, 0.5, BandPosition(100, nil))

	collapsed := &BollingerBands{Upper: 100, Middle: 100, Lower: 100}
	assert.Equal(t, 0.5, BandPosition(100, collapsed))

	bands := &BollingerBands{Upper: 110, Middle: 100, Lower: 90}
	assert.InDelta(t, 0.5, BandPosition(100, bands), 1e-9)
	assert.InDelta(t, 0.0, BandPosition(90, bands), 1e-9)
	assert.InDelta(t, 1.0, BandPosition(110, bands), 1e-9)
	assert.Equal(t, 0.0, BandPosition(50, bands))  // clamped
	assert.Equal(t, 1.0, BandPosition(150, bands)) // clamped
}
