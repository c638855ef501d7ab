package risk

import (
	"github.com/aristath/darwin-agent/internal/domain"
	"github.com/aristath/darwin-agent/internal/features"
	"github.com/rs/zerolog"
)

// AveragingConfig holds AveragingPolicy parameters.
type AveragingConfig struct {
	MinProfitFloor  float64 // initial exit target as a fraction above average price, e.g. 0.03
	ProfitDecay     float64 // per-tick decay of the exit target; 0 disables
	MinProfitFinal  float64 // positive floor the decayed target never crosses
	AddDrawdownStep float64 // each DCA level k triggers at a loss of (k+1)*step
	MaxDCALevels    int     // cap on averaging events per position
}

// AveragingPolicy never emits a sell while the position is under water:
// below the profit floor it buys more on configured adverse thresholds to
// lower the average price, and exits only once the (optionally decaying)
// profit target is reached.
//
// The decay forces eventual rotation on stagnant positions but the target
// never goes non-positive, so a sell below average entry price is
// impossible by construction. Capital ceilings for the averaging buys are
// enforced by the position manager.
type AveragingPolicy struct {
	cfg AveragingConfig
	log zerolog.Logger
}

// NewAveragingPolicy creates an averaging (no-loss) policy.
func NewAveragingPolicy(cfg AveragingConfig, log zerolog.Logger) *AveragingPolicy {
	if cfg.MinProfitFloor <= 0 {
		cfg.MinProfitFloor = 0.03
	}
	if cfg.MinProfitFinal <= 0 {
		cfg.MinProfitFinal = 0.002
	}
	if cfg.AddDrawdownStep <= 0 {
		cfg.AddDrawdownStep = 0.05
	}
	if cfg.MaxDCALevels <= 0 {
		cfg.MaxDCALevels = 3
	}
	return &AveragingPolicy{
		cfg: cfg,
		log: log.With().Str("policy", "averaging").Logger(),
	}
}

// Name returns the policy identifier.
func (p *AveragingPolicy) Name() string {
	return "averaging"
}

// EntryBrackets returns no brackets: exits are driven by the profit target.
func (p *AveragingPolicy) EntryBrackets(price float64, snap *features.Snapshot) (*float64, *float64) {
	return nil, nil
}

// currentTarget is the exit target for a position of the given age.
// Decays toward MinProfitFinal, never below it.
func (p *AveragingPolicy) currentTarget(ageTicks int) float64 {
	target := p.cfg.MinProfitFloor - p.cfg.ProfitDecay*float64(ageTicks)
	if target < p.cfg.MinProfitFinal {
		target = p.cfg.MinProfitFinal
	}
	return target
}

// EvaluateExit emits a sell only when the unrealized return has reached
// the current profit target. It never fires at a loss.
func (p *AveragingPolicy) EvaluateExit(pos *domain.Position, price float64) *ExitSignal {
	if pos.UnrealizedReturn(price) >= p.currentTarget(pos.AgeTicks) {
		return &ExitSignal{
			Reason:   "profit_target",
			Tags:     []string{"profit_target", "averaging_exit"},
			Severity: SeverityTakeProfit,
		}
	}
	return nil
}

// EvaluateAdd triggers an averaging buy once the drawdown has crossed the
// next level threshold: level k fires at a loss of (k+1)*AddDrawdownStep,
// up to MaxDCALevels.
func (p *AveragingPolicy) EvaluateAdd(pos *domain.Position, price float64) bool {
	if pos.DCALevel >= p.cfg.MaxDCALevels {
		return false
	}

	threshold := -float64(pos.DCALevel+1) * p.cfg.AddDrawdownStep
	return pos.UnrealizedReturn(price) <= threshold
}
