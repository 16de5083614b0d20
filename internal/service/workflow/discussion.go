package workflow

import (
	"github.com/hugo-lorenzo-mato/panel/internal/core"
)

// DiscussionManager owns the termination policy of the discussion loop.
type DiscussionManager struct {
	threshold float64
	maxRounds int
}

// NewDiscussionManager creates a manager for one analysis.
func NewDiscussionManager(threshold float64, maxRounds int) *DiscussionManager {
	return &DiscussionManager{threshold: threshold, maxRounds: maxRounds}
}

// ShouldDiscuss reports whether round disagrees strongly enough and the
// discussion budget allows another round.
func (m *DiscussionManager) ShouldDiscuss(round core.Round) bool {
	return round.DisagreementScore > m.threshold && round.Index < m.maxRounds
}

// Converged reports whether round is at or below the disagreement threshold.
func (m *DiscussionManager) Converged(round core.Round) bool {
	return round.DisagreementScore <= m.threshold
}

// Prepare builds the read-only context the next round is dispatched with.
func (m *DiscussionManager) Prepare(last core.Round) *core.PriorContext {
	return last.Snapshot()
}
