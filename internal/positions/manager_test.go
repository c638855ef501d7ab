package positions

import (
	"testing"

	"github.com/aristath/darwin-agent/internal/domain"
	"github.com/aristath/darwin-agent/internal/risk"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr(v float64) *float64 { return &v }

func bracketManager(limits Limits) *Manager {
	policy := risk.NewBracketPolicy(risk.BracketConfig{
		StopLossPct:   0.05,
		TakeProfitPct: 0.10,
		MaxHoldTicks:  5,
	}, zerolog.Nop())
	return NewManager(policy, &risk.FixedUSDSizer{Amount: 100}, limits, zerolog.Nop())
}

func averagingManager(limits Limits, sizer risk.Sizer) *Manager {
	policy := risk.NewAveragingPolicy(risk.AveragingConfig{
		MinProfitFloor:  0.03,
		AddDrawdownStep: 0.05,
		MaxDCALevels:    3,
	}, zerolog.Nop())
	return NewManager(policy, sizer, limits, zerolog.Nop())
}

func TestEvaluateExitsHighestSeverityWins(t *testing.T) {
	m := bracketManager(Limits{MaxConcurrent: 5})
	state := domain.NewStrategyState(1000)

	// AAA only qualifies for the time stop, BBB breaches its hard stop.
	state.Positions["AAA"] = &domain.Position{Symbol: "AAA", AvgPrice: 100, Quantity: 1, StopLoss: ptr(90), TakeProfit: ptr(120), AgeTicks: 10}
	state.Positions["BBB"] = &domain.Position{Symbol: "BBB", AvgPrice: 100, Quantity: 2, StopLoss: ptr(95), TakeProfit: ptr(120)}

	decision := m.EvaluateExits(state, map[string]float64{"AAA": 100, "BBB": 90})
	require.NotNil(t, decision)
	assert.Equal(t, domain.SideSell, decision.Side)
	assert.Equal(t, "BBB", decision.Symbol)
	assert.InDelta(t, 180.0, decision.Amount, 1e-9, "sell notional is quantity at the exit price")
}

func TestEvaluateExitsNoPriceNoExit(t *testing.T) {
	m := bracketManager(Limits{MaxConcurrent: 5})
	state := domain.NewStrategyState(1000)
	state.Positions["AAA"] = &domain.Position{Symbol: "AAA", AvgPrice: 100, Quantity: 1, StopLoss: ptr(95)}

	assert.Nil(t, m.EvaluateExits(state, map[string]float64{"BBB": 10}))
}

func TestEvaluateAddsSkipsCeilingBreaches(t *testing.T) {
	m := averagingManager(Limits{
		MaxConcurrent:           5,
		MaxSymbolExposurePct:    0.25,
		MaxPortfolioExposurePct: 0.90,
	}, &risk.FixedUSDSizer{Amount: 50})

	state := domain.NewStrategyState(1000)
	// AAA sits exactly at the 250 per-symbol ceiling with the deepest
	// drawdown; its averaging buy must be skipped, not resized, and the
	// shallower BBB add taken instead.
	state.Positions["AAA"] = &domain.Position{Symbol: "AAA", AvgPrice: 100, Quantity: 2.5}
	state.Positions["BBB"] = &domain.Position{Symbol: "BBB", AvgPrice: 100, Quantity: 1}

	decision := m.EvaluateAdds(state, map[string]float64{"AAA": 80, "BBB": 90})
	require.NotNil(t, decision)
	assert.Equal(t, domain.SideBuy, decision.Side)
	assert.Equal(t, "BBB", decision.Symbol)
	assert.Equal(t, 50.0, decision.Amount)
	assert.Contains(t, decision.Tags, "averaging_down")
}

func TestEvaluateAddsDeepestDrawdownFirst(t *testing.T) {
	m := averagingManager(Limits{MaxConcurrent: 5}, &risk.FixedUSDSizer{Amount: 50})

	state := domain.NewStrategyState(1000)
	state.Positions["AAA"] = &domain.Position{Symbol: "AAA", AvgPrice: 100, Quantity: 1}
	state.Positions["BBB"] = &domain.Position{Symbol: "BBB", AvgPrice: 100, Quantity: 1}

	decision := m.EvaluateAdds(state, map[string]float64{"AAA": 93, "BBB": 85})
	require.NotNil(t, decision)
	assert.Equal(t, "BBB", decision.Symbol)
}

func TestValidateBuy(t *testing.T) {
	m := bracketManager(Limits{
		MaxConcurrent:           3,
		MaxSymbolExposurePct:    0.25,
		MaxPortfolioExposurePct: 0.90,
	})

	t.Run("insufficient balance", func(t *testing.T) {
		state := domain.NewStrategyState(1000)
		state.Balance = 40
		reason, ok := m.ValidateBuy(state, "AAA", 50)
		assert.False(t, ok)
		assert.Equal(t, "insufficient_balance", reason)
	})

	t.Run("symbol ceiling", func(t *testing.T) {
		state := domain.NewStrategyState(1000)
		state.Positions["AAA"] = &domain.Position{Symbol: "AAA", AvgPrice: 100, Quantity: 2.2}
		reason, ok := m.ValidateBuy(state, "AAA", 50)
		assert.False(t, ok)
		assert.Equal(t, "symbol_exposure_ceiling", reason)
	})

	t.Run("portfolio ceiling", func(t *testing.T) {
		state := domain.NewStrategyState(4000)
		state.Positions["AAA"] = &domain.Position{Symbol: "AAA", AvgPrice: 100, Quantity: 9}
		state.Positions["BBB"] = &domain.Position{Symbol: "BBB", AvgPrice: 100, Quantity: 9}
		state.Positions["CCC"] = &domain.Position{Symbol: "CCC", AvgPrice: 100, Quantity: 9}
		state.Positions["DDD"] = &domain.Position{Symbol: "DDD", AvgPrice: 100, Quantity: 8.8}
		// Total exposure 3580 of the 3600 ceiling; a 50 buy within the
		// 1000 per-symbol ceiling must still fail on the portfolio bound.
		reason, ok := m.ValidateBuy(state, "EEE", 50)
		assert.False(t, ok)
		assert.Equal(t, "portfolio_exposure_ceiling", reason)
	})

	t.Run("allowed", func(t *testing.T) {
		state := domain.NewStrategyState(1000)
		reason, ok := m.ValidateBuy(state, "AAA", 100)
		assert.True(t, ok)
		assert.Empty(t, reason)
	})
}

func TestCanOpen(t *testing.T) {
	m := bracketManager(Limits{MaxConcurrent: 2})
	state := domain.NewStrategyState(1000)

	assert.True(t, m.CanOpen(state))
	state.Positions["AAA"] = &domain.Position{Symbol: "AAA", AvgPrice: 1, Quantity: 1}
	state.Positions["BBB"] = &domain.Position{Symbol: "BBB", AvgPrice: 1, Quantity: 1}
	assert.False(t, m.CanOpen(state))
}

func TestApplyFillLifecycle(t *testing.T) {
	m := bracketManager(Limits{MaxConcurrent: 3, CooldownTicks: 5})
	state := domain.NewStrategyState(1000)

	// FLAT -> OPEN
	require.NoError(t, m.ApplyFill(state, "AAA", domain.SideBuy, 100, 50))
	pos := state.Positions["AAA"]
	require.NotNil(t, pos)
	assert.InDelta(t, 2.0, pos.Quantity, 1e-9)
	assert.Equal(t, 50.0, pos.AvgPrice)
	assert.Equal(t, 0, pos.DCALevel)
	assert.InDelta(t, 900.0, state.Balance, 1e-9)

	// OPEN -> OPEN(dca+1)
	require.NoError(t, m.ApplyFill(state, "AAA", domain.SideBuy, 100, 40))
	assert.InDelta(t, 4.5, pos.Quantity, 1e-9)
	assert.InDelta(t, 44.4444, pos.AvgPrice, 1e-3)
	assert.Equal(t, 1, pos.DCALevel)
	assert.InDelta(t, 800.0, state.Balance, 1e-9)

	// OPEN -> CLOSED, balance credited at the fill price, cooldown armed.
	require.NoError(t, m.ApplyFill(state, "AAA", domain.SideSell, pos.Quantity*60, 60))
	assert.NotContains(t, state.Positions, "AAA")
	assert.InDelta(t, 800.0+4.5*60, state.Balance, 1e-9)
	assert.True(t, state.InCooldown("AAA"))
}

func TestApplyFillRejectsMalformed(t *testing.T) {
	m := bracketManager(Limits{MaxConcurrent: 3})
	state := domain.NewStrategyState(1000)

	assert.Error(t, m.ApplyFill(state, "AAA", domain.SideBuy, 100, 0))
	assert.Error(t, m.ApplyFill(state, "AAA", domain.SideBuy, -5, 50))
	assert.Error(t, m.ApplyFill(state, "AAA", domain.SideSell, 100, 50), "sell without a position")
	assert.Error(t, m.ApplyFill(state, "AAA", domain.Side("SHORT"), 100, 50))
}

func TestSetBrackets(t *testing.T) {
	m := bracketManager(Limits{MaxConcurrent: 3})
	state := domain.NewStrategyState(1000)

	m.SetBrackets(state, "GHOST", ptr(95), ptr(110), []string{"x"}) // no-op

	require.NoError(t, m.ApplyFill(state, "AAA", domain.SideBuy, 100, 100))
	m.SetBrackets(state, "AAA", ptr(95), ptr(110), []string{"zscore_reversion"})

	pos := state.Positions["AAA"]
	require.NotNil(t, pos.StopLoss)
	assert.Equal(t, 95.0, *pos.StopLoss)
	require.NotNil(t, pos.TakeProfit)
	assert.Equal(t, 110.0, *pos.TakeProfit)
	assert.Equal(t, []string{"zscore_reversion"}, pos.EntryTags)
}
