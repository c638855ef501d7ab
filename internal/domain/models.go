// Package domain contains the core data model shared by all engine
// components. The domain layer is pure: no infrastructure dependencies.
package domain

// Side is the direction of a trade decision.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// PricePoint is one observed tick for a symbol. Metadata fields are
// optional - absent values are nil, not zero, so a missing 24h change is
// distinguishable from an unchanged price.
type PricePoint struct {
	Symbol    string   `json:"symbol" msgpack:"symbol"`
	Price     float64  `json:"price" msgpack:"price"`
	Change24h *float64 `json:"change_24h,omitempty" msgpack:"change_24h,omitempty"`
	Liquidity *float64 `json:"liquidity,omitempty" msgpack:"liquidity,omitempty"`
	Volume    *float64 `json:"volume,omitempty" msgpack:"volume,omitempty"`
}

// TradeDecision is the single instruction an engine may emit per tick.
// Output-only: the engine never reads a decision back, it waits for the
// execution collaborator to confirm a fill via OnTradeExecuted.
type TradeDecision struct {
	Side       Side     `json:"side"`
	Symbol     string   `json:"symbol"`
	Amount     float64  `json:"amount"` // quote-currency notional (USD)
	Tags       []string `json:"tags"`   // reason tags, consumed by the hive feedback loop
	Reason     string   `json:"reason"`
	TakeProfit *float64 `json:"take_profit,omitempty"`
	StopLoss   *float64 `json:"stop_loss,omitempty"`
}

// Position is one open holding. Created on a confirmed entry fill, mutated
// by averaging fills and per-tick age/peak tracking, destroyed on exit.
//
// Invariant: Quantity > 0 while the position is present in the
// open-positions map.
type Position struct {
	Symbol     string   `json:"symbol" msgpack:"symbol"`
	AvgPrice   float64  `json:"avg_price" msgpack:"avg_price"`
	Quantity   float64  `json:"quantity" msgpack:"quantity"`
	DCALevel   int      `json:"dca_level" msgpack:"dca_level"` // count of averaging events, 0 initially
	PeakPrice  float64  `json:"peak_price" msgpack:"peak_price"`
	AgeTicks   int      `json:"age_ticks" msgpack:"age_ticks"`
	StopLoss   *float64 `json:"stop_loss,omitempty" msgpack:"stop_loss,omitempty"`     // fixed at entry, raised by trailing only
	TakeProfit *float64 `json:"take_profit,omitempty" msgpack:"take_profit,omitempty"` // fixed at entry
	EntryTags  []string `json:"entry_tags,omitempty" msgpack:"entry_tags,omitempty"`
}

// ApplyFill folds an additional buy into the position using the
// weighted-average invariant:
//
//	avg' = (oldQty*oldAvg + fillQty*fillPrice) / (oldQty + fillQty)
//
// and increments the DCA level. The DCA level never decreases.
func (p *Position) ApplyFill(fillQty, fillPrice float64) {
	if fillQty <= 0 {
		return
	}

	total := p.Quantity + fillQty
	p.AvgPrice = (p.Quantity*p.AvgPrice + fillQty*fillPrice) / total
	p.Quantity = total
	p.DCALevel++
}

// Track updates per-tick bookkeeping: age and peak price since entry.
func (p *Position) Track(price float64) {
	p.AgeTicks++
	if price > p.PeakPrice {
		p.PeakPrice = price
	}
}

// UnrealizedReturn is the fractional gain of the position at the given
// price: 0.05 means +5% over the average entry price.
func (p *Position) UnrealizedReturn(price float64) float64 {
	if p.AvgPrice == 0 {
		return 0
	}
	return (price - p.AvgPrice) / p.AvgPrice
}

// HiveSignal is a cross-agent feedback message: tags to penalize (ban) and
// tags to boost.
type HiveSignal struct {
	Penalize []string `json:"penalize"`
	Boost    []string `json:"boost"`
}

// StrategyState is the process-wide mutable state of one agent instance.
// Created at agent construction, mutated by every tick and every hive
// signal, discarded at shutdown. Owned exclusively by one engine - never
// shared between agents, never package-level.
type StrategyState struct {
	Balance        float64              `msgpack:"balance"`
	InitialBalance float64              `msgpack:"initial_balance"`
	Tick           int64                `msgpack:"tick"`
	Positions      map[string]*Position `msgpack:"positions"`
	Cooldowns      map[string]int       `msgpack:"cooldowns"` // symbol -> remaining ticks with entries disallowed
	BannedTags     map[string]bool      `msgpack:"banned_tags"`
	BoostedTags    map[string]bool      `msgpack:"boosted_tags"`
}

// NewStrategyState creates an initialized state with the given starting
// balance.
func NewStrategyState(balance float64) *StrategyState {
	return &StrategyState{
		Balance:        balance,
		InitialBalance: balance,
		Positions:      make(map[string]*Position),
		Cooldowns:      make(map[string]int),
		BannedTags:     make(map[string]bool),
		BoostedTags:    make(map[string]bool),
	}
}

// SymbolExposure is the cost basis currently committed to a symbol.
func (s *StrategyState) SymbolExposure(symbol string) float64 {
	pos, ok := s.Positions[symbol]
	if !ok {
		return 0
	}
	return pos.AvgPrice * pos.Quantity
}

// TotalExposure is the cost basis committed across all open positions.
func (s *StrategyState) TotalExposure() float64 {
	var total float64
	for _, pos := range s.Positions {
		total += pos.AvgPrice * pos.Quantity
	}
	return total
}

// InCooldown reports whether new entries on the symbol are disallowed.
func (s *StrategyState) InCooldown(symbol string) bool {
	return s.Cooldowns[symbol] > 0
}

// DecayCooldowns decrements every cooldown counter, removing expired ones.
// Called once per tick before entry evaluation.
func (s *StrategyState) DecayCooldowns() {
	for symbol, remaining := range s.Cooldowns {
		if remaining <= 1 {
			delete(s.Cooldowns, symbol)
		} else {
			s.Cooldowns[symbol] = remaining - 1
		}
	}
}
