package risk

import (
	"math"

	"github.com/aristath/darwin-agent/internal/domain"
	"github.com/aristath/darwin-agent/internal/features"
)

// Sizer decides how much quote currency a decision commits. Independent of
// the exit policy: any sizer can be paired with any policy.
//
// Sizers return a raw notional; the position manager validates it against
// the tracked balance and the capital ceilings, and skips the candidate
// when insufficient - a sizer never shrinks its answer to fit.
type Sizer interface {
	// Name returns the sizer identifier used in configuration.
	Name() string

	// EntryNotional sizes a new position.
	EntryNotional(state *domain.StrategyState, snap *features.Snapshot) float64

	// AddNotional sizes an averaging buy for an existing position.
	AddNotional(state *domain.StrategyState, pos *domain.Position, price float64) float64
}

// FixedUSDSizer commits a constant notional per decision.
type FixedUSDSizer struct {
	Amount float64
}

// Name returns the sizer identifier.
func (s *FixedUSDSizer) Name() string { return "fixed_usd" }

// EntryNotional returns the fixed amount.
func (s *FixedUSDSizer) EntryNotional(state *domain.StrategyState, snap *features.Snapshot) float64 {
	return s.Amount
}

// AddNotional returns the fixed amount.
func (s *FixedUSDSizer) AddNotional(state *domain.StrategyState, pos *domain.Position, price float64) float64 {
	return s.Amount
}

// PercentBalanceSizer commits a fraction of the currently tracked balance.
type PercentBalanceSizer struct {
	Percent float64 // e.g. 0.10 for 10%
}

// Name returns the sizer identifier.
func (s *PercentBalanceSizer) Name() string { return "percent_balance" }

// EntryNotional returns percent of the current balance.
func (s *PercentBalanceSizer) EntryNotional(state *domain.StrategyState, snap *features.Snapshot) float64 {
	return state.Balance * s.Percent
}

// AddNotional returns percent of the current balance.
func (s *PercentBalanceSizer) AddNotional(state *domain.StrategyState, pos *domain.Position, price float64) float64 {
	return state.Balance * s.Percent
}

// VolInverseSizer sizes inversely to the window's coefficient of variation
// (risk parity): volatile instruments get less capital. Candidates without
// a usable volatility reading are skipped (zero notional).
type VolInverseSizer struct {
	RiskBudget  float64 // notional at CV == 1.0
	MaxNotional float64 // hard cap per decision
}

// Name returns the sizer identifier.
func (s *VolInverseSizer) Name() string { return "vol_inverse" }

// EntryNotional returns RiskBudget / CV, capped at MaxNotional.
func (s *VolInverseSizer) EntryNotional(state *domain.StrategyState, snap *features.Snapshot) float64 {
	if snap == nil || snap.CoefVariation == nil || *snap.CoefVariation <= 0 {
		return 0
	}
	notional := s.RiskBudget / *snap.CoefVariation
	if s.MaxNotional > 0 && notional > s.MaxNotional {
		notional = s.MaxNotional
	}
	return notional
}

// AddNotional sizes adds the same way as entries, using the cap.
func (s *VolInverseSizer) AddNotional(state *domain.StrategyState, pos *domain.Position, price float64) float64 {
	if s.MaxNotional > 0 {
		return s.MaxNotional
	}
	return s.RiskBudget
}

// GeometricSizer applies a Martingale-style multiplier per DCA level:
// the first buy commits Base, each averaging buy commits
// Base * Multiplier^(level+1). Observed multipliers run 1.2x-2.5x per step.
type GeometricSizer struct {
	Base       float64
	Multiplier float64
}

// Name returns the sizer identifier.
func (s *GeometricSizer) Name() string { return "geometric" }

// EntryNotional returns the base amount.
func (s *GeometricSizer) EntryNotional(state *domain.StrategyState, snap *features.Snapshot) float64 {
	return s.Base
}

// AddNotional returns the base amount scaled by the multiplier for the
// next DCA level.
func (s *GeometricSizer) AddNotional(state *domain.StrategyState, pos *domain.Position, price float64) float64 {
	return s.Base * math.Pow(s.Multiplier, float64(pos.DCALevel+1))
}
