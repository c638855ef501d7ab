// Package engine wires the history buffer, feature engine, position
// manager, scanner and feedback adapter into the per-tick decision loop.
//
// The engine is single-threaded and synchronous: one entry point per
// external price update, all state mutations inside that call, no blocking
// or I/O besides the optional journal. Within one tick, exit evaluation
// precedes averaging, which precedes entry scanning - capital is freed
// before it is allocated.
package engine

import (
	"math"
	"math/rand"

	"github.com/aristath/darwin-agent/internal/domain"
	"github.com/aristath/darwin-agent/internal/features"
	"github.com/aristath/darwin-agent/internal/feedback"
	"github.com/aristath/darwin-agent/internal/history"
	"github.com/aristath/darwin-agent/internal/positions"
	"github.com/aristath/darwin-agent/internal/risk"
	"github.com/aristath/darwin-agent/internal/scanner"
	"github.com/rs/zerolog"
)

// Journal persists decisions, fills and epoch outcomes. Optional: a nil
// journal disables persistence without changing engine behavior.
type Journal interface {
	RecordDecision(tick int64, decision *domain.TradeDecision) error
	RecordFill(tick int64, symbol string, side domain.Side, amount, fillPrice float64) error
	RecordEpoch(rank, total int, label, reflection string) error
}

// Config holds the engine-level parameters. Policy and Sizer are injected
// so the two risk families stay independently testable and selectable by
// configuration.
type Config struct {
	InitialBalance float64
	WindowSize     int // rolling window length fed to the feature engine

	Features   features.Config
	Scanner    scanner.Config
	Limits     positions.Limits
	Reflection feedback.ReflectionConfig

	// BoostSizingMultiplier scales entry notional when the decision's tags
	// are boosted by the hive. 1.0 disables.
	BoostSizingMultiplier float64
}

// Engine is one agent instance. It owns its StrategyState exclusively.
type Engine struct {
	cfg      Config
	state    *domain.StrategyState
	history  *history.Buffer
	features *features.Engine
	manager  *positions.Manager
	scanner  *scanner.Scanner
	adapter  *feedback.Adapter
	journal  Journal
	pending  map[string]*domain.TradeDecision // decisions awaiting fill confirmation
	log      zerolog.Logger
}

// New creates an engine with the given risk policy and sizer.
func New(cfg Config, policy risk.Policy, sizer risk.Sizer, rng *rand.Rand, journal Journal, log zerolog.Logger) *Engine {
	if cfg.WindowSize < 2 {
		cfg.WindowSize = 20
	}
	if cfg.InitialBalance <= 0 {
		cfg.InitialBalance = 1000
	}
	if cfg.BoostSizingMultiplier <= 0 {
		cfg.BoostSizingMultiplier = 1.0
	}
	if cfg.Features.MinWindow <= 0 {
		cfg.Features.MinWindow = cfg.WindowSize
	}

	log = log.With().Str("component", "engine").Logger()

	return &Engine{
		cfg:      cfg,
		state:    domain.NewStrategyState(cfg.InitialBalance),
		history:  history.New(cfg.WindowSize),
		features: features.New(cfg.Features, log),
		manager:  positions.NewManager(policy, sizer, cfg.Limits, log),
		scanner:  scanner.New(cfg.Scanner, rng, log),
		adapter:  feedback.New(cfg.Reflection, log),
		journal:  journal,
		pending:  make(map[string]*domain.TradeDecision),
		log:      log,
	}
}

// State exposes the strategy state for snapshotting. The caller must not
// mutate it outside engine entry points.
func (e *Engine) State() *domain.StrategyState {
	return e.state
}

// History exposes the rolling window buffer for snapshotting.
func (e *Engine) History() *history.Buffer {
	return e.history
}

// Restore replaces the engine's state and history, used when resuming
// from a persisted snapshot.
func (e *Engine) Restore(state *domain.StrategyState, series map[string][]domain.PricePoint) {
	if state != nil {
		e.state = state
	}
	if series != nil {
		e.history.Restore(series)
	}
}

// Snapshot implements scanner.SnapshotProvider over the history buffer.
func (e *Engine) Snapshot(symbol string) *features.Snapshot {
	prices, ok := e.history.Prices(symbol, e.cfg.WindowSize)
	if !ok {
		return nil
	}
	return e.features.Compute(symbol, prices)
}

// TickUp implements scanner.SnapshotProvider.
func (e *Engine) TickUp(symbol string) bool {
	return e.history.TickUp(symbol)
}

// OnPriceUpdate is the sole per-tick entry point. Returns at most one
// decision; every failure mode for a symbol degrades to skipping that
// symbol, never to an error escaping the tick.
func (e *Engine) OnPriceUpdate(prices map[string]domain.PricePoint) *domain.TradeDecision {
	e.state.Tick++

	// Ingest: malformed per-symbol data is skipped, the tick continues.
	valid := make(map[string]float64, len(prices))
	for symbol, point := range prices {
		if symbol == "" || point.Price <= 0 || math.IsNaN(point.Price) || math.IsInf(point.Price, 0) {
			e.log.Debug().
				Str("symbol", symbol).
				Float64("price", point.Price).
				Msg("Skipping malformed price point")
			continue
		}
		point.Symbol = symbol
		e.history.Append(point)
		valid[symbol] = point.Price
	}

	e.state.DecayCooldowns()
	e.manager.Track(e.state, valid)

	// Exits first: free capital before allocating it.
	if exit := e.manager.EvaluateExits(e.state, valid); exit != nil {
		return e.emit(exit)
	}

	// Averaging buys on open positions outrank new entries. Like entries,
	// they are buy decisions and honor the hive's banned tags; a suppressed
	// add falls through to entry scanning. Sell-side exits are never
	// filtered - closing a position preserves capital.
	if add := e.manager.EvaluateAdds(e.state, valid); add != nil {
		if !e.adapter.Suppressed(e.state, add.Tags) {
			return e.emit(add)
		}
		e.log.Debug().
			Str("symbol", add.Symbol).
			Strs("tags", add.Tags).
			Msg("Averaging buy suppressed by banned tags")
	}

	// Entry scanning, silently disabled when the position slots are full.
	if !e.manager.CanOpen(e.state) {
		return nil
	}

	idle := make([]string, 0, len(valid))
	for symbol := range valid {
		if _, held := e.state.Positions[symbol]; held {
			continue
		}
		if e.state.InCooldown(symbol) {
			continue
		}
		idle = append(idle, symbol)
	}
	if len(idle) == 0 {
		return nil
	}

	relaxed := e.adapter.Boosted(e.state, scanner.EntryTags())
	candidates := e.scanner.Scan(idle, e, relaxed)

	// Walk candidates best-first; a banned or unaffordable candidate is
	// skipped and the next-best one is evaluated in the same tick.
	for _, candidate := range candidates {
		if e.adapter.Suppressed(e.state, candidate.Tags) {
			e.log.Debug().
				Str("symbol", candidate.Symbol).
				Strs("tags", candidate.Tags).
				Msg("Candidate suppressed by banned tags, trying next")
			continue
		}

		notional := e.manager.Sizer().EntryNotional(e.state, candidate.Snapshot)
		if notional <= 0 {
			continue
		}
		if e.adapter.Boosted(e.state, candidate.Tags) {
			notional *= e.cfg.BoostSizingMultiplier
		}

		if reason, ok := e.manager.ValidateBuy(e.state, candidate.Symbol, notional); !ok {
			e.log.Debug().
				Str("symbol", candidate.Symbol).
				Float64("notional", notional).
				Str("reason", reason).
				Msg("Entry candidate skipped, trying next")
			continue
		}

		stop, target := e.manager.Policy().EntryBrackets(candidate.Snapshot.LastPrice, candidate.Snapshot)
		decision := &domain.TradeDecision{
			Side:       domain.SideBuy,
			Symbol:     candidate.Symbol,
			Amount:     notional,
			Tags:       candidate.Tags,
			Reason:     candidate.Reason,
			StopLoss:   stop,
			TakeProfit: target,
		}
		return e.emit(decision)
	}

	return nil
}

// emit journals a decision and records it as pending until the fill
// confirmation arrives.
func (e *Engine) emit(decision *domain.TradeDecision) *domain.TradeDecision {
	e.pending[decision.Symbol] = decision

	if e.journal != nil {
		if err := e.journal.RecordDecision(e.state.Tick, decision); err != nil {
			e.log.Warn().Err(err).Str("symbol", decision.Symbol).Msg("Failed to journal decision")
		}
	}

	e.log.Info().
		Str("side", string(decision.Side)).
		Str("symbol", decision.Symbol).
		Float64("amount", decision.Amount).
		Strs("tags", decision.Tags).
		Msg("Decision emitted")

	return decision
}

// OnTradeExecuted reconciles a confirmed fill into position and balance
// bookkeeping. Called by the execution collaborator.
func (e *Engine) OnTradeExecuted(symbol string, side domain.Side, amount, fillPrice float64) {
	_, existed := e.state.Positions[symbol]

	if err := e.manager.ApplyFill(e.state, symbol, side, amount, fillPrice); err != nil {
		e.log.Warn().Err(err).Str("symbol", symbol).Msg("Fill rejected")
		return
	}

	// A freshly opened position inherits the brackets computed when the
	// entry decision was emitted. Averaging fills never revise brackets.
	if side == domain.SideBuy && !existed {
		if decision, ok := e.pending[symbol]; ok && decision.Side == domain.SideBuy {
			e.manager.SetBrackets(e.state, symbol, decision.StopLoss, decision.TakeProfit, decision.Tags)
		}
	}
	delete(e.pending, symbol)

	if e.journal != nil {
		if err := e.journal.RecordFill(e.state.Tick, symbol, side, amount, fillPrice); err != nil {
			e.log.Warn().Err(err).Str("symbol", symbol).Msg("Failed to journal fill")
		}
	}
}

// OnHiveSignal applies a cross-agent reputation signal to the tag sets.
func (e *Engine) OnHiveSignal(signal domain.HiveSignal) {
	e.adapter.ApplySignal(e.state, signal)
}

// OnEpochEnd renders the end-of-cycle reflection and journals the epoch
// outcome. Display-only: trading state is untouched.
func (e *Engine) OnEpochEnd(rank, total int, peerWisdom string) string {
	reflection := e.adapter.RenderReflection(rank, total, peerWisdom)

	if e.journal != nil {
		if err := e.journal.RecordEpoch(rank, total, reflection.Label, reflection.Text); err != nil {
			e.log.Warn().Err(err).Msg("Failed to journal epoch")
		}
	}

	return reflection.Text
}

// CouncilMessage returns the free-text self-report. No functional effect.
func (e *Engine) CouncilMessage(isWinner bool) string {
	return e.adapter.CouncilMessage(isWinner)
}
