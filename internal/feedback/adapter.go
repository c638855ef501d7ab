// Package feedback ingests hive-mind ban/boost tag signals, filters
// decisions against the banned set and renders end-of-epoch reflections.
package feedback

import (
	"fmt"

	"github.com/aristath/darwin-agent/internal/domain"
	"github.com/rs/zerolog"
)

// ReflectionConfig holds the performance-label cut points as fractions of
// the field: rank within ExcellentPct of total is "excellent", within
// AveragePct "average", the rest "poor". The three tiers partition every
// possible rank.
type ReflectionConfig struct {
	ExcellentPct float64 // default 0.10
	AveragePct   float64 // default 0.50
}

// Reflection is the display-only epoch summary. It has no effect on
// trading logic.
type Reflection struct {
	Label string
	Text  string
}

// Adapter applies hive signals to the strategy state and consults the
// resulting tag sets on behalf of the scanner and risk policy.
type Adapter struct {
	cfg ReflectionConfig
	log zerolog.Logger
}

// New creates a feedback adapter.
func New(cfg ReflectionConfig, log zerolog.Logger) *Adapter {
	if cfg.ExcellentPct <= 0 {
		cfg.ExcellentPct = 0.10
	}
	if cfg.AveragePct <= cfg.ExcellentPct {
		cfg.AveragePct = 0.50
	}
	return &Adapter{
		cfg: cfg,
		log: log.With().Str("component", "feedback").Logger(),
	}
}

// ApplySignal folds a hive signal into the state's tag sets. Penalized
// tags join the banned set and leave the boosted set; boosted tags join
// the boosted set and leave the banned set. The latest signal wins on
// conflict.
func (a *Adapter) ApplySignal(state *domain.StrategyState, signal domain.HiveSignal) {
	for _, tag := range signal.Penalize {
		if tag == "" {
			continue
		}
		state.BannedTags[tag] = true
		delete(state.BoostedTags, tag)
	}
	for _, tag := range signal.Boost {
		if tag == "" {
			continue
		}
		state.BoostedTags[tag] = true
		delete(state.BannedTags, tag)
	}

	a.log.Info().
		Strs("penalize", signal.Penalize).
		Strs("boost", signal.Boost).
		Int("banned_total", len(state.BannedTags)).
		Int("boosted_total", len(state.BoostedTags)).
		Msg("Hive signal applied")
}

// Suppressed reports whether any of the tags intersects the banned set.
// Callers must continue to the next-best candidate when a decision is
// suppressed, not terminate the tick.
func (a *Adapter) Suppressed(state *domain.StrategyState, tags []string) bool {
	for _, tag := range tags {
		if state.BannedTags[tag] {
			return true
		}
	}
	return false
}

// Boosted reports whether any of the tags intersects the boosted set.
// The scanner relaxes thresholds and the sizing may increase for boosted
// decisions.
func (a *Adapter) Boosted(state *domain.StrategyState, tags []string) bool {
	for _, tag := range tags {
		if state.BoostedTags[tag] {
			return true
		}
	}
	return false
}

// RenderReflection produces the categorical performance label and a
// free-text summary for the epoch. rank is 1-based; total is the number
// of participants.
func (a *Adapter) RenderReflection(rank, total int, peerWisdom string) Reflection {
	if total < 1 {
		total = 1
	}
	if rank < 1 {
		rank = 1
	}
	if rank > total {
		rank = total
	}

	percentile := float64(rank) / float64(total)

	var label string
	switch {
	case percentile <= a.cfg.ExcellentPct:
		label = "excellent"
	case percentile <= a.cfg.AveragePct:
		label = "average"
	default:
		label = "poor"
	}

	text := fmt.Sprintf("Finished epoch ranked %d of %d (%s tier).", rank, total, label)
	switch label {
	case "excellent":
		text += " The entry thresholds and exit discipline held up; keeping the current configuration."
	case "average":
		text += " Mid-field result; tightening the volatility gate may lift entry quality."
	default:
		text += " Underperformed the field; the hive's penalized tags point at the weakest signals."
	}
	if peerWisdom != "" {
		text += " Peer wisdom: " + peerWisdom
	}

	a.log.Info().
		Int("rank", rank).
		Int("total", total).
		Str("label", label).
		Msg("Epoch reflection rendered")

	return Reflection{Label: label, Text: text}
}

// CouncilMessage is the free-text self-report sent to the arena council.
// No functional effect.
func (a *Adapter) CouncilMessage(isWinner bool) string {
	if isWinner {
		return "Held the line on risk and let the statistics do the work. The edge is in the exits."
	}
	return "Took the losses the policy dictated and logged every reason tag. Next epoch the thresholds adapt."
}
