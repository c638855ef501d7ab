// Package scanner iterates idle candidate symbols, applies the entry
// predicate conjunction to their feature snapshots and scores the
// survivors by deviation magnitude.
package scanner

import (
	"fmt"
	"math"
	"math/rand"
	"sort"

	"github.com/aristath/darwin-agent/internal/features"
	"github.com/rs/zerolog"
)

// Config holds the entry predicates. Zero values disable optional gates.
type Config struct {
	ZScoreEntry      float64 // enter when z-score <= this (negative, e.g. -2.0)
	RSIMax           float64 // require RSI <= this (oversold gate); 0 disables
	EfficiencyMax    float64 // require efficiency ratio <= this (noise ceiling); 0 disables
	MinCoefVariation float64 // volatility floor rejecting near-flat instruments; 0 disables
	SlopeFilter      string  // "", "positive" or "negative" trend-slope sign gate
	RequireTickUp    bool    // last move must be upward (avoid entering mid-collapse)
	Shuffle          bool    // randomize iteration order per tick
	BoostRelax       float64 // fractional threshold relaxation when entry tags are boosted
}

// SnapshotProvider supplies per-symbol feature snapshots and tick
// confirmation. Implemented by the engine over its history buffer.
type SnapshotProvider interface {
	Snapshot(symbol string) *features.Snapshot // nil while the window is not ready
	TickUp(symbol string) bool
}

// deepDeviationScore is the |z| above which a candidate additionally
// carries the "deep_deviation" tag, letting the hive reward or ban
// tail-chasing separately from ordinary reversion entries.
const deepDeviationScore = 3.0

// Candidate is a symbol that passed every entry predicate, scored by
// deviation magnitude.
type Candidate struct {
	Symbol   string
	Score    float64
	Snapshot *features.Snapshot
	Tags     []string
	Reason   string
}

// Scanner evaluates entry candidates. Iteration order may be shuffled per
// tick by design (several strategy variants do this deliberately to avoid
// detectable execution patterns); the random source is injected and
// seedable so tests are reproducible.
type Scanner struct {
	cfg Config
	rng *rand.Rand
	log zerolog.Logger
}

// New creates a scanner with an injected random source.
func New(cfg Config, rng *rand.Rand, log zerolog.Logger) *Scanner {
	if cfg.ZScoreEntry == 0 {
		cfg.ZScoreEntry = -2.0
	}
	return &Scanner{
		cfg: cfg,
		rng: rng,
		log: log.With().Str("component", "scanner").Logger(),
	}
}

// EntryTags are the reason tags a scanner entry decision can carry. The
// feedback adapter consults these to decide whether boosted thresholds
// apply to the scan as a whole.
func EntryTags() []string {
	return []string{"zscore_reversion", "oversold_rsi", "mean_reversion", "deep_deviation"}
}

// Scan evaluates the given idle symbols and returns all passing candidates
// sorted by score, best first. When relaxed is true (some entry tag is
// currently boosted by the hive), the z-score and RSI gates are loosened
// by BoostRelax.
func (s *Scanner) Scan(symbols []string, provider SnapshotProvider, relaxed bool) []Candidate {
	order := make([]string, len(symbols))
	copy(order, symbols)
	if s.cfg.Shuffle && s.rng != nil {
		s.rng.Shuffle(len(order), func(i, j int) {
			order[i], order[j] = order[j], order[i]
		})
	}

	zThreshold := s.cfg.ZScoreEntry
	rsiMax := s.cfg.RSIMax
	if relaxed && s.cfg.BoostRelax > 0 {
		zThreshold *= 1 - s.cfg.BoostRelax
		if rsiMax > 0 {
			rsiMax *= 1 + s.cfg.BoostRelax
		}
	}

	var candidates []Candidate
	for _, symbol := range order {
		snap := provider.Snapshot(symbol)
		if snap == nil {
			continue // window not ready: no entry, by invariant
		}

		candidate, ok := s.evaluate(symbol, snap, provider, zThreshold, rsiMax)
		if !ok {
			continue
		}
		candidates = append(candidates, candidate)
	}

	// Stable sort preserves the shuffled order among equal scores.
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})

	s.log.Debug().
		Int("scanned", len(order)).
		Int("candidates", len(candidates)).
		Bool("relaxed", relaxed).
		Msg("Scan complete")

	return candidates
}

// evaluate applies the predicate conjunction to one snapshot.
func (s *Scanner) evaluate(symbol string, snap *features.Snapshot, provider SnapshotProvider, zThreshold, rsiMax float64) (Candidate, bool) {
	// Volatility floor: flat instruments carry no tradable deviation.
	if s.cfg.MinCoefVariation > 0 {
		if snap.CoefVariation == nil || *snap.CoefVariation < s.cfg.MinCoefVariation {
			return Candidate{}, false
		}
	}

	// Primary predicate: z-score below the entry threshold.
	if snap.ZScore == nil || *snap.ZScore > zThreshold {
		return Candidate{}, false
	}
	tags := []string{"zscore_reversion", "mean_reversion"}

	// RSI oversold gate.
	if rsiMax > 0 {
		if snap.RSI > rsiMax {
			return Candidate{}, false
		}
		tags = append(tags, "oversold_rsi")
	}

	// Noise ceiling: only mean-revert in choppy regimes.
	if s.cfg.EfficiencyMax > 0 {
		if snap.EfficiencyRatio == nil || *snap.EfficiencyRatio > s.cfg.EfficiencyMax {
			return Candidate{}, false
		}
	}

	// Trend-slope sign filter.
	if s.cfg.SlopeFilter != "" && snap.Slope != nil {
		if s.cfg.SlopeFilter == "positive" && *snap.Slope < 0 {
			return Candidate{}, false
		}
		if s.cfg.SlopeFilter == "negative" && *snap.Slope > 0 {
			return Candidate{}, false
		}
	}

	// Tick-up confirmation: do not catch a falling knife mid-collapse.
	if s.cfg.RequireTickUp && !provider.TickUp(symbol) {
		return Candidate{}, false
	}

	score := math.Abs(*snap.ZScore)
	if score >= deepDeviationScore {
		tags = append(tags, "deep_deviation")
	}
	return Candidate{
		Symbol:   symbol,
		Score:    score,
		Snapshot: snap,
		Tags:     tags,
		Reason:   fmt.Sprintf("z=%.2f rsi=%.1f price=%.4f", *snap.ZScore, snap.RSI, snap.LastPrice),
	}, true
}
