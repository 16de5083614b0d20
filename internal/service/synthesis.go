package service

import (
	"math"
	"sort"

	"github.com/hugo-lorenzo-mato/panel/internal/core"
)

// Synthesizer turns the final round into one weighted verdict.
type Synthesizer struct {
	// DegradedWeight is the vote each degraded verdict adds to neutral.
	DegradedWeight float64
	// TieEpsilon is the weight gap under which the top two buckets tie.
	TieEpsilon float64
	// DisagreementPenalty scales confidence down by penalty*score.
	DisagreementPenalty float64
	// MinPolarShare is the fraction of the heaviest bucket's weight a
	// balanced positive/negative pair must reach together to be reported
	// as mixed.
	MinPolarShare float64
	Buckets       AgreementBuckets
}

// SynthesizerOption configures a synthesizer.
type SynthesizerOption func(*Synthesizer)

// WithDegradedWeight sets the neutral vote of a degraded verdict.
func WithDegradedWeight(w float64) SynthesizerOption {
	return func(s *Synthesizer) {
		s.DegradedWeight = w
	}
}

// WithTieEpsilon sets the tie window.
func WithTieEpsilon(eps float64) SynthesizerOption {
	return func(s *Synthesizer) {
		s.TieEpsilon = eps
	}
}

// WithDisagreementPenalty sets the confidence penalty factor.
func WithDisagreementPenalty(p float64) SynthesizerOption {
	return func(s *Synthesizer) {
		s.DisagreementPenalty = p
	}
}

// WithMinPolarShare sets how heavy a balanced polar split must be to win
// as mixed.
func WithMinPolarShare(share float64) SynthesizerOption {
	return func(s *Synthesizer) {
		s.MinPolarShare = share
	}
}

// WithBuckets sets the agreement buckets used for the report.
func WithBuckets(b AgreementBuckets) SynthesizerOption {
	return func(s *Synthesizer) {
		s.Buckets = b
	}
}

// NewSynthesizer creates a synthesizer with default constants.
func NewSynthesizer(opts ...SynthesizerOption) *Synthesizer {
	s := &Synthesizer{
		DegradedWeight:      0.1,
		TieEpsilon:          0.05,
		DisagreementPenalty: 0.5,
		MinPolarShare:       0.5,
		Buckets:             DefaultAgreementBuckets(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Synthesis is the outcome of a weighted vote.
type Synthesis struct {
	Sentiment   core.Sentiment
	Confidence  float64
	VoteWeights map[core.Sentiment]float64
}

type bucket struct {
	sentiment core.Sentiment
	weight    float64
	confSum   float64
	count     int
	order     int
}

func (b bucket) avgConfidence() float64 {
	if b.count == 0 {
		return 0
	}
	return b.confSum / float64(b.count)
}

// Synthesize runs the weighted vote over round. roleWeights scales each
// role's vote; roles missing from the map weigh 1.
func (s *Synthesizer) Synthesize(round core.Round, roleWeights map[string]float64) Synthesis {
	order := core.AllSentiments()
	buckets := make(map[core.Sentiment]*bucket, len(order))
	for i, sent := range order {
		buckets[sent] = &bucket{sentiment: sent, order: i}
	}

	var weightedConf, totalWeight float64
	for _, v := range round.Verdicts {
		if v.Degraded {
			buckets[core.SentimentNeutral].weight += s.DegradedWeight
			totalWeight += s.DegradedWeight
			continue
		}
		b, ok := buckets[v.Sentiment]
		if !ok {
			continue
		}
		rw := roleWeight(roleWeights, v.Role)
		b.weight += v.Confidence * rw
		b.confSum += v.Confidence
		b.count++
		weightedConf += v.Confidence * rw
		totalWeight += rw
	}

	ranked := make([]*bucket, 0, len(buckets))
	for _, b := range buckets {
		ranked = append(ranked, b)
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].weight != ranked[j].weight {
			return ranked[i].weight > ranked[j].weight
		}
		return ranked[i].order < ranked[j].order
	})

	winner := s.breakTie(ranked[0], ranked[1])
	if s.polarSplit(buckets[core.SentimentPositive], buckets[core.SentimentNegative], ranked[0]) {
		winner = core.SentimentMixed
	}

	confidence := 0.0
	if totalWeight > 0 {
		confidence = weightedConf / totalWeight
	}
	confidence *= 1 - s.DisagreementPenalty*round.DisagreementScore

	weights := make(map[core.Sentiment]float64, len(order))
	for _, sent := range order {
		weights[sent] = round4(buckets[sent].weight)
	}

	return Synthesis{
		Sentiment:   winner,
		Confidence:  round4(core.Clamp01(confidence)),
		VoteWeights: weights,
	}
}

// polarSplit reports whether positive and negative both received votes,
// cannot be separated by weight and together carry at least MinPolarShare
// of the heaviest bucket. Such a split is reported as mixed even when
// neutral votes outweigh it.
func (s *Synthesizer) polarSplit(pos, neg, top *bucket) bool {
	if pos.weight <= 0 || neg.weight <= 0 || math.Abs(pos.weight-neg.weight) > s.TieEpsilon {
		return false
	}
	return pos.weight+neg.weight >= s.MinPolarShare*top.weight
}

// breakTie picks between the two heaviest buckets: the more confident bucket
// wins and the fixed sentiment order settles the rest.
func (s *Synthesizer) breakTie(first, second *bucket) core.Sentiment {
	if second.weight <= 0 || first.weight-second.weight > s.TieEpsilon {
		return first.sentiment
	}
	a, b := first.avgConfidence(), second.avgConfidence()
	switch {
	case math.Abs(a-b) < 1e-9:
		if second.order < first.order {
			return second.sentiment
		}
		return first.sentiment
	case b > a:
		return second.sentiment
	default:
		return first.sentiment
	}
}

// Report assembles the consensus report from the recorded rounds.
func (s *Synthesizer) Report(rounds []core.Round, threshold float64, roleWeights map[string]float64) *core.ConsensusReport {
	report := &core.ConsensusReport{
		Rounds:         append([]core.Round{}, rounds...),
		FinalSentiment: core.SentimentNeutral,
		AgreementLevel: core.AgreementHigh,
		LowConfidence:  true,
	}
	if len(rounds) == 0 {
		return report
	}

	final := rounds[len(rounds)-1]
	syn := s.Synthesize(final, roleWeights)

	report.FinalSentiment = syn.Sentiment
	report.FinalConfidence = syn.Confidence
	report.VoteWeights = syn.VoteWeights
	report.AgreementLevel = s.Buckets.Level(final.DisagreementScore)

	allDegraded := final.AllDegraded()
	report.ConsensusReached = !allDegraded && final.DisagreementScore <= threshold
	report.LowConfidence = allDegraded || syn.Confidence < core.LowConfidenceFloor
	return report
}

func roleWeight(weights map[string]float64, role string) float64 {
	if w, ok := weights[role]; ok && w > 0 {
		return w
	}
	return 1
}

// round4 keeps reported floats stable across platforms and runs.
func round4(x float64) float64 {
	return math.Round(x*10000) / 10000
}
