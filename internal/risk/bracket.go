package risk

import (
	"github.com/aristath/darwin-agent/internal/domain"
	"github.com/aristath/darwin-agent/internal/features"
	"github.com/rs/zerolog"
)

// BracketConfig holds BracketPolicy parameters.
type BracketConfig struct {
	StopLossPct   float64 // fractional distance below entry, e.g. 0.05
	TakeProfitPct float64 // fractional distance above entry
	TrailingPct   float64 // trailing stop distance below peak; 0 disables
	MaxHoldTicks  int     // time-based exit; 0 disables
	VolScaled     bool    // scale bracket distances by window stddev instead of price
	VolMultiplier float64 // stddev multiple when VolScaled
}

// BracketPolicy computes fixed or volatility-scaled stop-loss and
// take-profit levels at entry and never revises them, except for the
// trailing rule: the effective stop rises as price makes new highs and is
// never lowered.
//
// Exit priority: hard stop-loss > trailing stop > fixed take-profit >
// time-based exit.
type BracketPolicy struct {
	cfg BracketConfig
	log zerolog.Logger
}

// NewBracketPolicy creates a bracket policy.
func NewBracketPolicy(cfg BracketConfig, log zerolog.Logger) *BracketPolicy {
	if cfg.StopLossPct <= 0 {
		cfg.StopLossPct = 0.05
	}
	if cfg.TakeProfitPct <= 0 {
		cfg.TakeProfitPct = 0.10
	}
	if cfg.VolScaled && cfg.VolMultiplier <= 0 {
		cfg.VolMultiplier = 2.0
	}
	return &BracketPolicy{
		cfg: cfg,
		log: log.With().Str("policy", "bracket").Logger(),
	}
}

// Name returns the policy identifier.
func (p *BracketPolicy) Name() string {
	return "bracket"
}

// EntryBrackets computes the stop and target for an entry at price.
// When VolScaled is set and the window has usable volatility, bracket
// distances are stddev multiples; otherwise fixed percentages of price.
func (p *BracketPolicy) EntryBrackets(price float64, snap *features.Snapshot) (*float64, *float64) {
	stopDist := price * p.cfg.StopLossPct
	targetDist := price * p.cfg.TakeProfitPct

	if p.cfg.VolScaled && snap != nil && snap.StdDev > 0 {
		stopDist = snap.StdDev * p.cfg.VolMultiplier
		targetDist = snap.StdDev * p.cfg.VolMultiplier * (p.cfg.TakeProfitPct / p.cfg.StopLossPct)
	}

	stop := price - stopDist
	target := price + targetDist
	if stop < 0 {
		stop = 0
	}
	return &stop, &target
}

// EvaluateExit checks the bracket conditions in priority order.
func (p *BracketPolicy) EvaluateExit(pos *domain.Position, price float64) *ExitSignal {
	// Hard stop-loss: the level computed at entry.
	if pos.StopLoss != nil && price <= *pos.StopLoss {
		return &ExitSignal{
			Reason:   "stop_loss",
			Tags:     []string{"stop_loss", "bracket_exit"},
			Severity: SeverityStopLoss,
		}
	}

	// Trailing stop: peak-anchored, only meaningful once it has risen
	// above the entry stop. Peak price is monotonic, so the effective
	// stop never moves down.
	if p.cfg.TrailingPct > 0 && pos.PeakPrice > 0 {
		trail := pos.PeakPrice * (1 - p.cfg.TrailingPct)
		raised := pos.StopLoss == nil || trail > *pos.StopLoss
		if raised && price <= trail {
			return &ExitSignal{
				Reason:   "trailing_stop",
				Tags:     []string{"trailing_stop", "bracket_exit"},
				Severity: SeverityTrailingStop,
			}
		}
	}

	// Fixed take-profit.
	if pos.TakeProfit != nil && price >= *pos.TakeProfit {
		return &ExitSignal{
			Reason:   "take_profit",
			Tags:     []string{"take_profit", "bracket_exit"},
			Severity: SeverityTakeProfit,
		}
	}

	// Time-based exit: held too long without hitting a bracket.
	if p.cfg.MaxHoldTicks > 0 && pos.AgeTicks >= p.cfg.MaxHoldTicks {
		return &ExitSignal{
			Reason:   "time_stop",
			Tags:     []string{"time_stop", "bracket_exit"},
			Severity: SeverityTimeStop,
		}
	}

	return nil
}

// EvaluateAdd always returns false: the bracket family never averages down.
func (p *BracketPolicy) EvaluateAdd(pos *domain.Position, price float64) bool {
	return false
}
