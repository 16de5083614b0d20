package core

// Round is one dispatch of every requested specialist. Index 0 is the
// initial round; later indices are discussion rounds.
type Round struct {
	Index             int       `json:"index"`
	Verdicts          []Verdict `json:"verdicts"`
	DisagreementScore float64   `json:"disagreement_score"`
}

// NewRound builds a Round from a copy of verdicts so later changes to the
// caller's slice cannot leak into the audit trail.
func NewRound(index int, verdicts []Verdict, score float64) Round {
	cp := make([]Verdict, len(verdicts))
	for i, v := range verdicts {
		cp[i] = v
		cp[i].Topics = append([]string{}, v.Topics...)
		if v.Emotions != nil {
			cp[i].Emotions = append([]string{}, v.Emotions...)
		}
	}
	return Round{Index: index, Verdicts: cp, DisagreementScore: Clamp01(score)}
}

// DegradedCount returns how many verdicts in the round are degraded.
func (r Round) DegradedCount() int {
	n := 0
	for _, v := range r.Verdicts {
		if v.Degraded {
			n++
		}
	}
	return n
}

// AllDegraded reports whether no specialist produced a usable verdict.
func (r Round) AllDegraded() bool {
	return len(r.Verdicts) > 0 && r.DegradedCount() == len(r.Verdicts)
}

// PriorVerdict is the part of a verdict visible to the next round.
type PriorVerdict struct {
	Role       string    `json:"role"`
	Sentiment  Sentiment `json:"sentiment"`
	Confidence float64   `json:"confidence"`
	Reasoning  string    `json:"reasoning"`
	Degraded   bool      `json:"degraded"`
}

// PriorContext is a read-only view of the previous round handed to every
// specialist in a discussion round. It never carries the document itself.
type PriorContext struct {
	RoundIndex        int            `json:"round_index"`
	DisagreementScore float64        `json:"disagreement_score"`
	Verdicts          []PriorVerdict `json:"verdicts"`
}

// Snapshot returns the prior context derived from r.
func (r Round) Snapshot() *PriorContext {
	pc := &PriorContext{
		RoundIndex:        r.Index,
		DisagreementScore: r.DisagreementScore,
		Verdicts:          make([]PriorVerdict, len(r.Verdicts)),
	}
	for i, v := range r.Verdicts {
		pc.Verdicts[i] = PriorVerdict{
			Role:       v.Role,
			Sentiment:  v.Sentiment,
			Confidence: v.Confidence,
			Reasoning:  Truncate(v.Reasoning, PriorReasoningLength),
			Degraded:   v.Degraded,
		}
	}
	return pc
}

// Others returns the prior verdicts of every role except role.
func (pc *PriorContext) Others(role string) []PriorVerdict {
	if pc == nil {
		return nil
	}
	out := make([]PriorVerdict, 0, len(pc.Verdicts))
	for _, v := range pc.Verdicts {
		if v.Role != role {
			out = append(out, v)
		}
	}
	return out
}

// Own returns the prior verdict of role, if it took part.
func (pc *PriorContext) Own(role string) (PriorVerdict, bool) {
	if pc == nil {
		return PriorVerdict{}, false
	}
	for _, v := range pc.Verdicts {
		if v.Role == role {
			return v, true
		}
	}
	return PriorVerdict{}, false
}
