// Package risk provides the pluggable risk policies and position sizing
// strategies applied by the position manager.
//
// Two policy families exist and are selected by configuration, never by
// branching inside the engine: BracketPolicy (stop/target brackets computed
// at entry) and AveragingPolicy (never sells at a loss, averages down
// instead). They are deliberately independent implementations - the arena
// alternates between them across generations in response to penalty
// signals, and they are not compatible evolutions of one policy.
package risk

import (
	"github.com/aristath/darwin-agent/internal/domain"
	"github.com/aristath/darwin-agent/internal/features"
)

// Exit severity ranks. When multiple exit conditions are true in the same
// tick, the highest severity wins: capital preservation precedence.
const (
	SeverityTimeStop = iota + 1
	SeverityTakeProfit
	SeverityTrailingStop
	SeverityStopLoss
)

// ExitSignal describes why a position should be closed.
type ExitSignal struct {
	Reason   string
	Tags     []string
	Severity int
}

// Policy decides entry bracket levels, exit triggers and averaging
// triggers for open positions.
type Policy interface {
	// Name returns the policy identifier used in configuration.
	Name() string

	// EntryBrackets computes optional stop-loss / take-profit levels for a
	// new position entered at the given price. Policies without brackets
	// return nil, nil.
	EntryBrackets(price float64, snap *features.Snapshot) (stopLoss, takeProfit *float64)

	// EvaluateExit returns a non-nil signal when the position should be
	// closed at the current price. When several exit conditions hold at
	// once the signal carries the highest-severity reason.
	EvaluateExit(pos *domain.Position, price float64) *ExitSignal

	// EvaluateAdd reports whether the policy wants to average down on the
	// position at the current price. Sizing and capital ceilings are the
	// manager's concern, not the policy's.
	EvaluateAdd(pos *domain.Position, price float64) bool
}
