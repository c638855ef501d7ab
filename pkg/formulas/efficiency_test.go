package formulas

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEfficiencyRatio(t *testing.T) {
	t.Run("insufficient data returns nil", func(t *testing.T) {
		assert.Nil(t, EfficiencyRatio([]float64{1, 2, 3}, 5))
		assert.Nil(t, EfficiencyRatio([]float64{1, 2, 3}, 0))
	})

	t.Run("flat window returns nil", func(t *testing.T) {
		assert.Nil(t, EfficiencyRatio([]float64{100, 100, 100, 100, 100, 100}, 5))
	})

	t.Run("smooth trend is maximally efficient", func(t *testing.T) {
		er := EfficiencyRatio([]float64{100, 101, 102, 103, 104, 105}, 5)
		require.NotNil(t, er)
		assert.InDelta(t, 1.0, *er, 1e-9)
	})

	t.Run("round trip is inefficient", func(t *testing.T) {
		// Net displacement 1, path length 9.
		er := EfficiencyRatio([]float64{100, 102, 104, 102, 100, 101}, 5)
		require.NotNil(t, er)
		assert.InDelta(t, 1.0/9.0, *er, 1e-9)
	})
}
