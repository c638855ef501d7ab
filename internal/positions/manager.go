// Package positions owns the per-symbol position lifecycle state machine:
//
//	FLAT -> OPEN -> OPEN(dcaLevel+1)* -> CLOSED
//
// The manager applies the configured risk policy each tick and enforces
// the concurrency and capital ceilings. At most one transition is emitted
// per tick; exits are evaluated before any capital is allocated.
package positions

import (
	"fmt"
	"sort"

	"github.com/aristath/darwin-agent/internal/domain"
	"github.com/aristath/darwin-agent/internal/risk"
	"github.com/rs/zerolog"
)

// Limits holds the manager's concurrency and capital ceilings.
//
// The exposure ceilings exist because the averaging policy has no
// intrinsic solvency bound: without them an agent can fully commit its
// account to one losing position with no recovery path.
type Limits struct {
	MaxConcurrent           int     // max open positions
	CooldownTicks           int     // re-entry lockout after a close; 0 disables
	MaxSymbolExposurePct    float64 // cost basis per symbol, fraction of initial balance
	MaxPortfolioExposurePct float64 // cost basis across all positions, fraction of initial balance
}

// Manager applies the risk policy to open positions and validates buys
// against the balance and exposure ceilings.
type Manager struct {
	policy risk.Policy
	sizer  risk.Sizer
	limits Limits
	log    zerolog.Logger
}

// NewManager creates a position manager.
func NewManager(policy risk.Policy, sizer risk.Sizer, limits Limits, log zerolog.Logger) *Manager {
	if limits.MaxConcurrent <= 0 {
		limits.MaxConcurrent = 3
	}
	if limits.MaxSymbolExposurePct <= 0 {
		limits.MaxSymbolExposurePct = 0.25
	}
	if limits.MaxPortfolioExposurePct <= 0 {
		limits.MaxPortfolioExposurePct = 0.90
	}
	return &Manager{
		policy: policy,
		sizer:  sizer,
		limits: limits,
		log:    log.With().Str("component", "positions").Logger(),
	}
}

// Policy exposes the configured risk policy.
func (m *Manager) Policy() risk.Policy {
	return m.policy
}

// Sizer exposes the configured sizer.
func (m *Manager) Sizer() risk.Sizer {
	return m.sizer
}

// Limits exposes the configured limits.
func (m *Manager) Limits() Limits {
	return m.limits
}

// Track updates per-tick age and peak bookkeeping for every open position
// that has a current price. Must run before exit evaluation so time stops
// and trailing stops see this tick.
func (m *Manager) Track(state *domain.StrategyState, prices map[string]float64) {
	for symbol, pos := range state.Positions {
		if price, ok := prices[symbol]; ok && price > 0 {
			pos.Track(price)
		}
	}
}

// EvaluateExits checks every open position against the policy's exit rules
// and returns at most one sell decision: the highest-severity signal wins,
// ties broken by symbol for determinism.
func (m *Manager) EvaluateExits(state *domain.StrategyState, prices map[string]float64) *domain.TradeDecision {
	type hit struct {
		symbol string
		price  float64
		pos    *domain.Position
		signal *risk.ExitSignal
	}

	var best *hit
	symbols := make([]string, 0, len(state.Positions))
	for symbol := range state.Positions {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)

	for _, symbol := range symbols {
		price, ok := prices[symbol]
		if !ok || price <= 0 {
			continue
		}

		pos := state.Positions[symbol]
		signal := m.policy.EvaluateExit(pos, price)
		if signal == nil {
			continue
		}

		if best == nil || signal.Severity > best.signal.Severity {
			best = &hit{symbol: symbol, price: price, pos: pos, signal: signal}
		}
	}

	if best == nil {
		return nil
	}

	m.log.Info().
		Str("symbol", best.symbol).
		Str("reason", best.signal.Reason).
		Float64("price", best.price).
		Float64("avg_price", best.pos.AvgPrice).
		Int("dca_level", best.pos.DCALevel).
		Msg("Exit signal")

	return &domain.TradeDecision{
		Side:   domain.SideSell,
		Symbol: best.symbol,
		Amount: best.pos.Quantity * best.price,
		Tags:   best.signal.Tags,
		Reason: fmt.Sprintf("%s at %.4f (avg %.4f, age %d)", best.signal.Reason, best.price, best.pos.AvgPrice, best.pos.AgeTicks),
	}
}

// EvaluateAdds checks open positions for averaging-down triggers and
// returns at most one buy decision, deepest drawdown first. Buys that the
// balance or the exposure ceilings cannot absorb are skipped, never
// resized.
func (m *Manager) EvaluateAdds(state *domain.StrategyState, prices map[string]float64) *domain.TradeDecision {
	type hit struct {
		symbol   string
		price    float64
		pos      *domain.Position
		drawdown float64
	}

	var hits []hit
	for symbol, pos := range state.Positions {
		price, ok := prices[symbol]
		if !ok || price <= 0 {
			continue
		}
		if m.policy.EvaluateAdd(pos, price) {
			hits = append(hits, hit{symbol: symbol, price: price, pos: pos, drawdown: pos.UnrealizedReturn(price)})
		}
	}
	if len(hits) == 0 {
		return nil
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].drawdown != hits[j].drawdown {
			return hits[i].drawdown < hits[j].drawdown
		}
		return hits[i].symbol < hits[j].symbol
	})

	for _, h := range hits {
		notional := m.sizer.AddNotional(state, h.pos, h.price)
		if notional <= 0 {
			continue
		}
		if reason, ok := m.ValidateBuy(state, h.symbol, notional); !ok {
			m.log.Debug().
				Str("symbol", h.symbol).
				Float64("notional", notional).
				Str("reason", reason).
				Msg("Averaging buy skipped")
			continue
		}

		m.log.Info().
			Str("symbol", h.symbol).
			Float64("price", h.price).
			Float64("drawdown", h.drawdown).
			Int("dca_level", h.pos.DCALevel).
			Float64("notional", notional).
			Msg("Averaging-down signal")

		return &domain.TradeDecision{
			Side:   domain.SideBuy,
			Symbol: h.symbol,
			Amount: notional,
			Tags:   []string{"averaging_down", "dca"},
			Reason: fmt.Sprintf("averaging down: %.1f%% under avg %.4f, level %d", h.drawdown*100, h.pos.AvgPrice, h.pos.DCALevel+1),
		}
	}

	return nil
}

// CanOpen reports whether a new position may be opened this tick.
func (m *Manager) CanOpen(state *domain.StrategyState) bool {
	return len(state.Positions) < m.limits.MaxConcurrent
}

// ValidateBuy checks a buy notional against the tracked balance and the
// per-symbol / portfolio exposure ceilings. Returns the failing constraint
// name when the buy is not allowed.
func (m *Manager) ValidateBuy(state *domain.StrategyState, symbol string, notional float64) (string, bool) {
	if notional > state.Balance {
		return "insufficient_balance", false
	}

	symbolCeiling := m.limits.MaxSymbolExposurePct * state.InitialBalance
	if state.SymbolExposure(symbol)+notional > symbolCeiling {
		return "symbol_exposure_ceiling", false
	}

	portfolioCeiling := m.limits.MaxPortfolioExposurePct * state.InitialBalance
	if state.TotalExposure()+notional > portfolioCeiling {
		return "portfolio_exposure_ceiling", false
	}

	return "", true
}

// ApplyFill reconciles a confirmed fill into the state: FLAT -> OPEN on a
// first buy, OPEN -> OPEN(level+1) on an averaging buy, OPEN -> CLOSED on
// a sell (full exit, cooldown started).
func (m *Manager) ApplyFill(state *domain.StrategyState, symbol string, side domain.Side, amount, fillPrice float64) error {
	if fillPrice <= 0 {
		return fmt.Errorf("non-positive fill price %.6f for %s", fillPrice, symbol)
	}
	if amount <= 0 {
		return fmt.Errorf("non-positive fill amount %.6f for %s", amount, symbol)
	}

	switch side {
	case domain.SideBuy:
		qty := amount / fillPrice
		if pos, ok := state.Positions[symbol]; ok {
			pos.ApplyFill(qty, fillPrice)
			m.log.Info().
				Str("symbol", symbol).
				Float64("qty", qty).
				Float64("fill_price", fillPrice).
				Float64("new_avg", pos.AvgPrice).
				Int("dca_level", pos.DCALevel).
				Msg("Averaging fill applied")
		} else {
			state.Positions[symbol] = &domain.Position{
				Symbol:    symbol,
				AvgPrice:  fillPrice,
				Quantity:  qty,
				PeakPrice: fillPrice,
			}
			m.log.Info().
				Str("symbol", symbol).
				Float64("qty", qty).
				Float64("fill_price", fillPrice).
				Msg("Position opened")
		}
		state.Balance -= amount

	case domain.SideSell:
		pos, ok := state.Positions[symbol]
		if !ok {
			return fmt.Errorf("sell fill for unknown position %s", symbol)
		}
		pnl := (fillPrice - pos.AvgPrice) * pos.Quantity
		state.Balance += pos.Quantity * fillPrice
		delete(state.Positions, symbol)
		if m.limits.CooldownTicks > 0 {
			state.Cooldowns[symbol] = m.limits.CooldownTicks
		}
		m.log.Info().
			Str("symbol", symbol).
			Float64("fill_price", fillPrice).
			Float64("pnl", pnl).
			Float64("balance", state.Balance).
			Msg("Position closed")

	default:
		return fmt.Errorf("unknown side %q", side)
	}

	return nil
}

// SetBrackets stores policy-computed stop/target levels and entry tags on
// a freshly opened position. No-op when the position does not exist.
func (m *Manager) SetBrackets(state *domain.StrategyState, symbol string, stopLoss, takeProfit *float64, tags []string) {
	pos, ok := state.Positions[symbol]
	if !ok {
		return
	}
	pos.StopLoss = stopLoss
	pos.TakeProfit = takeProfit
	pos.EntryTags = tags
}
