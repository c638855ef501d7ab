// Package features computes derived statistics from a price window.
// The engine is pure and stateless: every snapshot is derived fresh from
// the window it is given, nothing is cached between ticks.
package features

import (
	"github.com/aristath/darwin-agent/pkg/formulas"
	"github.com/rs/zerolog"
)

// Config holds the feature engine parameters.
type Config struct {
	MinWindow  int     // minimum window length before any snapshot is produced
	RSIPeriod  int     // RSI lookback (typically 14)
	ERLookback int     // efficiency ratio lookback
	BollingerK float64 // band width in standard deviations
}

// Snapshot is the set of derived statistics for one symbol at one tick.
// Metrics that are undefined for the given window (flat prices, short
// sub-windows) are nil, never NaN - consumers treat nil as "no signal".
type Snapshot struct {
	Symbol    string
	LastPrice float64
	Mean      float64
	StdDev    float64

	ZScore          *float64
	RSI             float64 // always defined: neutral 50 on short windows
	Slope           *float64
	RSquared        *float64
	ResidualZ       *float64
	EfficiencyRatio *float64
	RegimeEstimate  *float64
	CoefVariation   *float64
	Bands           *formulas.BollingerBands
}

// Engine computes feature snapshots from price windows.
type Engine struct {
	cfg Config
	log zerolog.Logger
}

// New creates a feature engine.
func New(cfg Config, log zerolog.Logger) *Engine {
	if cfg.MinWindow < 2 {
		cfg.MinWindow = 2
	}
	if cfg.RSIPeriod <= 0 {
		cfg.RSIPeriod = 14
	}
	if cfg.ERLookback <= 0 {
		cfg.ERLookback = 10
	}
	if cfg.BollingerK <= 0 {
		cfg.BollingerK = 2
	}
	return &Engine{
		cfg: cfg,
		log: log.With().Str("component", "features").Logger(),
	}
}

// MinWindow returns the configured minimum window length.
func (e *Engine) MinWindow() int {
	return e.cfg.MinWindow
}

// Compute derives a snapshot from a price window.
// Returns nil when the window is shorter than the configured minimum -
// "insufficient data" is a non-value, not a snapshot of zeros.
func (e *Engine) Compute(symbol string, prices []float64) *Snapshot {
	if len(prices) < e.cfg.MinWindow {
		return nil
	}

	snap := &Snapshot{
		Symbol:    symbol,
		LastPrice: prices[len(prices)-1],
		Mean:      formulas.Mean(prices),
		StdDev:    formulas.StdDev(prices),

		ZScore:          formulas.ZScore(prices),
		RSI:             formulas.CalculateRSI(prices, e.cfg.RSIPeriod),
		ResidualZ:       formulas.ResidualZScore(prices),
		EfficiencyRatio: formulas.EfficiencyRatio(prices, e.cfg.ERLookback),
		RegimeEstimate:  formulas.RegimeEstimate(prices),
		CoefVariation:   formulas.CoefficientOfVariation(prices),
		Bands:           formulas.CalculateBollingerBands(prices, len(prices), e.cfg.BollingerK),
	}

	if reg := formulas.CalculateTrendRegression(prices); reg != nil {
		snap.Slope = &reg.Slope
		snap.RSquared = &reg.RSquared
	}

	return snap
}
