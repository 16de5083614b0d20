package core

// State is a stage of the analysis state machine.
type State string

const (
	StateDispatch   State = "dispatch"
	StateEvaluate   State = "evaluate"
	StateDiscuss    State = "discuss"
	StateSynthesize State = "synthesize"
	StateAdvise     State = "advise"
	StateDone       State = "done"
)

// String implements fmt.Stringer.
func (s State) String() string {
	return string(s)
}

// CanTransitionTo reports whether the state machine allows s -> next.
func (s State) CanTransitionTo(next State) bool {
	switch s {
	case StateDispatch:
		return next == StateEvaluate
	case StateEvaluate:
		return next == StateDiscuss || next == StateSynthesize
	case StateDiscuss:
		return next == StateDispatch
	case StateSynthesize:
		return next == StateAdvise || next == StateDone
	case StateAdvise:
		return next == StateDone
	default:
		return false
	}
}

// IsTerminal reports whether s ends the run.
func (s State) IsTerminal() bool {
	return s == StateDone
}
