package service

import (
	"math"

	"github.com/hugo-lorenzo-mato/panel/internal/core"
)

// AgreementBuckets maps disagreement scores to agreement levels. Scores
// below HighBelow are high agreement, scores above LowAbove are low.
type AgreementBuckets struct {
	HighBelow float64
	LowAbove  float64
}

// DefaultAgreementBuckets returns the standard bucket edges.
func DefaultAgreementBuckets() AgreementBuckets {
	return AgreementBuckets{HighBelow: 0.3, LowAbove: 0.6}
}

// Level returns the agreement level for score.
func (b AgreementBuckets) Level(score float64) core.AgreementLevel {
	switch {
	case score < b.HighBelow:
		return core.AgreementHigh
	case score > b.LowAbove:
		return core.AgreementLow
	default:
		return core.AgreementModerate
	}
}

// DisagreementEvaluator measures how far apart the specialists of a round are.
type DisagreementEvaluator struct {
	buckets AgreementBuckets
}

// DisagreementResult holds the evaluation outcome.
type DisagreementResult struct {
	Score      float64             `json:"score"`
	Level      core.AgreementLevel `json:"level"`
	Considered int                 `json:"considered"`
	Excluded   int                 `json:"excluded"`
	Lowest     core.Sentiment      `json:"lowest,omitempty"`
	Highest    core.Sentiment      `json:"highest,omitempty"`
}

// NewDisagreementEvaluator creates an evaluator using the given buckets.
func NewDisagreementEvaluator(buckets AgreementBuckets) *DisagreementEvaluator {
	return &DisagreementEvaluator{buckets: buckets}
}

// Score returns the polarity spread of the non-degraded verdicts.
func (e *DisagreementEvaluator) Score(verdicts []core.Verdict) float64 {
	return e.Evaluate(verdicts).Score
}

// Evaluate computes the spread (max - min) of the non-degraded verdicts on
// the sentiment axis. Fewer than two usable opinions cannot disagree.
func (e *DisagreementEvaluator) Evaluate(verdicts []core.Verdict) DisagreementResult {
	result := DisagreementResult{}

	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range verdicts {
		if v.Degraded {
			result.Excluded++
			continue
		}
		result.Considered++
		p := v.Sentiment.AxisPoint()
		if p < lo {
			lo = p
			result.Lowest = v.Sentiment
		}
		if p > hi {
			hi = p
			result.Highest = v.Sentiment
		}
	}

	if result.Considered >= 2 {
		result.Score = core.Clamp01(hi - lo)
	}
	result.Level = e.buckets.Level(result.Score)
	return result
}

// Level returns the agreement level for score.
func (e *DisagreementEvaluator) Level(score float64) core.AgreementLevel {
	return e.buckets.Level(score)
}
