package events

import "github.com/hugo-lorenzo-mato/panel/internal/core"

// Event type constants for analysis events.
const (
	TypeAnalysisStarted   = "analysis_started"
	TypeStateChanged      = "state_changed"
	TypeVerdictDegraded   = "verdict_degraded"
	TypeRoundCompleted    = "round_completed"
	TypeAnalysisCompleted = "analysis_completed"
)

// AnalysisStartedEvent is emitted once the input has been validated.
type AnalysisStartedEvent struct {
	BaseEvent
	Roles     []string `json:"roles"`
	MaxRounds int      `json:"max_rounds"`
	Threshold float64  `json:"threshold"`
}

// NewAnalysisStartedEvent creates a new analysis started event.
func NewAnalysisStartedEvent(analysisID string, cfg core.WorkflowConfig) AnalysisStartedEvent {
	return AnalysisStartedEvent{
		BaseEvent: NewBaseEvent(TypeAnalysisStarted, analysisID),
		Roles:     append([]string{}, cfg.AgentRoles...),
		MaxRounds: cfg.MaxDiscussionRounds,
		Threshold: cfg.DisagreementThreshold,
	}
}

// StateChangedEvent is emitted on every state machine transition.
type StateChangedEvent struct {
	BaseEvent
	From  core.State `json:"from"`
	To    core.State `json:"to"`
	Round int        `json:"round"`
}

// NewStateChangedEvent creates a new state changed event.
func NewStateChangedEvent(analysisID string, from, to core.State, round int) StateChangedEvent {
	return StateChangedEvent{
		BaseEvent: NewBaseEvent(TypeStateChanged, analysisID),
		From:      from,
		To:        to,
		Round:     round,
	}
}

// VerdictDegradedEvent is emitted when a specialist call ends degraded.
type VerdictDegradedEvent struct {
	BaseEvent
	Role  string `json:"role"`
	Round int    `json:"round"`
	Error string `json:"error"`
}

// NewVerdictDegradedEvent creates a new verdict degraded event.
func NewVerdictDegradedEvent(analysisID, role string, round int, errMsg string) VerdictDegradedEvent {
	return VerdictDegradedEvent{
		BaseEvent: NewBaseEvent(TypeVerdictDegraded, analysisID),
		Role:      role,
		Round:     round,
		Error:     errMsg,
	}
}

// RoundCompletedEvent is emitted after each round is evaluated.
type RoundCompletedEvent struct {
	BaseEvent
	Round             int                 `json:"round"`
	DisagreementScore float64             `json:"disagreement_score"`
	AgreementLevel    core.AgreementLevel `json:"agreement_level"`
	Degraded          int                 `json:"degraded"`
	WillDiscuss       bool                `json:"will_discuss"`
}

// NewRoundCompletedEvent creates a new round completed event.
func NewRoundCompletedEvent(analysisID string, round core.Round, level core.AgreementLevel, willDiscuss bool) RoundCompletedEvent {
	return RoundCompletedEvent{
		BaseEvent:         NewBaseEvent(TypeRoundCompleted, analysisID),
		Round:             round.Index,
		DisagreementScore: round.DisagreementScore,
		AgreementLevel:    level,
		Degraded:          round.DegradedCount(),
		WillDiscuss:       willDiscuss,
	}
}

// AnalysisCompletedEvent is emitted with the final verdict. It is a
// priority event.
type AnalysisCompletedEvent struct {
	BaseEvent
	FinalSentiment   core.Sentiment      `json:"final_sentiment"`
	FinalConfidence  float64             `json:"final_confidence"`
	AgreementLevel   core.AgreementLevel `json:"agreement_level"`
	ConsensusReached bool                `json:"consensus_reached"`
	LowConfidence    bool                `json:"low_confidence"`
	Rounds           int                 `json:"rounds"`
}

// NewAnalysisCompletedEvent creates a new analysis completed event.
func NewAnalysisCompletedEvent(analysisID string, report *core.ConsensusReport) AnalysisCompletedEvent {
	return AnalysisCompletedEvent{
		BaseEvent:        NewBaseEvent(TypeAnalysisCompleted, analysisID),
		FinalSentiment:   report.FinalSentiment,
		FinalConfidence:  report.FinalConfidence,
		AgreementLevel:   report.AgreementLevel,
		ConsensusReached: report.ConsensusReached,
		LowConfidence:    report.LowConfidence,
		Rounds:           len(report.Rounds),
	}
}
