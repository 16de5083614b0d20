package core

import (
	"math"
	"strings"
	"unicode/utf8"
)

const (
	// MaxReasoningLength bounds Verdict.Reasoning, in runes.
	MaxReasoningLength = 600
	// MaxBusinessImpactLength bounds Verdict.BusinessImpact, in runes.
	MaxBusinessImpactLength = 300
	// MaxTags bounds the Topics and Emotions lists.
	MaxTags = 10
	// PriorReasoningLength bounds reasoning carried into a discussion round.
	PriorReasoningLength = 200
)

// Verdict is one specialist's assessment of the document.
type Verdict struct {
	Role           string    `json:"role"`
	Sentiment      Sentiment `json:"sentiment"`
	Confidence     float64   `json:"confidence"`
	Reasoning      string    `json:"reasoning"`
	Topics         []string  `json:"topics"`
	Emotions       []string  `json:"emotions,omitempty"`
	BusinessImpact string    `json:"business_impact,omitempty"`
	Degraded       bool      `json:"degraded"`
	Error          string    `json:"error,omitempty"`
}

// NewDegradedVerdict builds the placeholder recorded when a specialist could
// not produce a usable answer.
func NewDegradedVerdict(role string, cause error) Verdict {
	v := Verdict{
		Role:       role,
		Sentiment:  SentimentNeutral,
		Confidence: 0,
		Reasoning:  "no usable answer from specialist",
		Topics:     []string{},
		Degraded:   true,
	}
	if cause != nil {
		v.Error = cause.Error()
	}
	return v
}

// Normalize enforces field bounds in place: confidence is clamped to [0,1],
// text fields are truncated and tag lists are trimmed and capped.
func (v *Verdict) Normalize() {
	v.Confidence = Clamp01(v.Confidence)
	v.Reasoning = Truncate(strings.TrimSpace(v.Reasoning), MaxReasoningLength)
	v.BusinessImpact = Truncate(strings.TrimSpace(v.BusinessImpact), MaxBusinessImpactLength)
	v.Topics = cleanTags(v.Topics)
	v.Emotions = cleanTags(v.Emotions)
	if len(v.Emotions) == 0 {
		v.Emotions = nil
	}
}

func cleanTags(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]bool, len(in))
	for _, t := range in {
		t = strings.TrimSpace(t)
		if t == "" || seen[strings.ToLower(t)] {
			continue
		}
		seen[strings.ToLower(t)] = true
		out = append(out, t)
		if len(out) == MaxTags {
			break
		}
	}
	return out
}

// Clamp01 limits x to the closed unit interval.
func Clamp01(x float64) float64 {
	switch {
	case math.IsNaN(x):
		return 0
	case x < 0:
		return 0
	case x > 1:
		return 1
	default:
		return x
	}
}

// Truncate shortens s to at most n runes, marking the cut with an ellipsis.
func Truncate(s string, n int) string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	if n <= 3 {
		return string(runes[:n])
	}
	return strings.TrimSpace(string(runes[:n-3])) + "..."
}
