package risk

import (
	"testing"

	"github.com/aristath/darwin-agent/internal/domain"
	"github.com/aristath/darwin-agent/internal/features"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr(v float64) *float64 { return &v }

func TestBracketEntryBrackets(t *testing.T) {
	t.Run("fixed percentages of entry price", func(t *testing.T) {
		p := NewBracketPolicy(BracketConfig{StopLossPct: 0.05, TakeProfitPct: 0.10}, zerolog.Nop())

		stop, target := p.EntryBrackets(100, nil)
		require.NotNil(t, stop)
		require.NotNil(t, target)
		assert.InDelta(t, 95.0, *stop, 1e-9)
		assert.InDelta(t, 110.0, *target, 1e-9)
	})

	t.Run("volatility scaled distances", func(t *testing.T) {
		p := NewBracketPolicy(BracketConfig{
			StopLossPct:   0.05,
			TakeProfitPct: 0.10,
			VolScaled:     true,
			VolMultiplier: 2,
		}, zerolog.Nop())

		snap := &features.Snapshot{LastPrice: 100, StdDev: 2}
		stop, target := p.EntryBrackets(100, snap)
		require.NotNil(t, stop)
		require.NotNil(t, target)
		assert.InDelta(t, 96.0, *stop, 1e-9)
		assert.InDelta(t, 108.0, *target, 1e-9)
	})

	t.Run("stop never goes negative", func(t *testing.T) {
		p := NewBracketPolicy(BracketConfig{
			StopLossPct:   0.05,
			TakeProfitPct: 0.10,
			VolScaled:     true,
			VolMultiplier: 10,
		}, zerolog.Nop())

		snap := &features.Snapshot{LastPrice: 1, StdDev: 5}
		stop, _ := p.EntryBrackets(1, snap)
		require.NotNil(t, stop)
		assert.Equal(t, 0.0, *stop)
	})
}

func TestBracketExitPriority(t *testing.T) {
	p := NewBracketPolicy(BracketConfig{
		StopLossPct:   0.05,
		TakeProfitPct: 0.10,
		TrailingPct:   0.20,
		MaxHoldTicks:  5,
	}, zerolog.Nop())

	t.Run("hard stop outranks everything", func(t *testing.T) {
		pos := &domain.Position{AvgPrice: 100, Quantity: 1, StopLoss: ptr(95), TakeProfit: ptr(105), PeakPrice: 200, AgeTicks: 10}
		signal := p.EvaluateExit(pos, 90)
		require.NotNil(t, signal)
		assert.Equal(t, "stop_loss", signal.Reason)
		assert.Equal(t, SeverityStopLoss, signal.Severity)
	})

	t.Run("trailing stop outranks take profit", func(t *testing.T) {
		// Peak 200 puts the trail at 160, above the 105 target; price 150
		// satisfies both conditions.
		pos := &domain.Position{AvgPrice: 100, Quantity: 1, StopLoss: ptr(95), TakeProfit: ptr(105), PeakPrice: 200}
		signal := p.EvaluateExit(pos, 150)
		require.NotNil(t, signal)
		assert.Equal(t, "trailing_stop", signal.Reason)
		assert.Equal(t, SeverityTrailingStop, signal.Severity)
	})

	t.Run("trailing stop is inactive until raised above the entry stop", func(t *testing.T) {
		// Trail from peak 110 is 88, below the 95 entry stop: ignored.
		pos := &domain.Position{AvgPrice: 100, Quantity: 1, StopLoss: ptr(95), TakeProfit: ptr(120), PeakPrice: 110}
		assert.Nil(t, p.EvaluateExit(pos, 96))
	})

	t.Run("take profit", func(t *testing.T) {
		pos := &domain.Position{AvgPrice: 100, Quantity: 1, StopLoss: ptr(95), TakeProfit: ptr(105), PeakPrice: 106}
		signal := p.EvaluateExit(pos, 106)
		require.NotNil(t, signal)
		assert.Equal(t, "take_profit", signal.Reason)
		assert.Equal(t, SeverityTakeProfit, signal.Severity)
	})

	t.Run("time stop after max hold", func(t *testing.T) {
		pos := &domain.Position{AvgPrice: 100, Quantity: 1, StopLoss: ptr(95), TakeProfit: ptr(110), PeakPrice: 100, AgeTicks: 5}
		signal := p.EvaluateExit(pos, 100)
		require.NotNil(t, signal)
		assert.Equal(t, "time_stop", signal.Reason)
		assert.Equal(t, SeverityTimeStop, signal.Severity)
	})

	t.Run("no condition holds", func(t *testing.T) {
		pos := &domain.Position{AvgPrice: 100, Quantity: 1, StopLoss: ptr(95), TakeProfit: ptr(110), PeakPrice: 100, AgeTicks: 1}
		assert.Nil(t, p.EvaluateExit(pos, 100))
	})
}

func TestBracketNeverAverages(t *testing.T) {
	p := NewBracketPolicy(BracketConfig{StopLossPct: 0.05, TakeProfitPct: 0.10}, zerolog.Nop())
	pos := &domain.Position{AvgPrice: 100, Quantity: 1}
	assert.False(t, p.EvaluateAdd(pos, 50))
}
