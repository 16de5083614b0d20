package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/hugo-lorenzo-mato/panel/internal/core"
)

var (
	positiveWords = map[string]bool{
		"amazing": true, "awesome": true, "best": true, "excellent": true, "fantastic": true,
		"fast": true, "friendly": true, "good": true, "great": true, "happy": true,
		"helpful": true, "intuitive": true, "love": true, "loved": true, "perfect": true,
		"pleased": true, "recommend": true, "reliable": true, "smooth": true, "solid": true,
		"sturdy": true, "easy": true, "worth": true, "works": true, "impressed": true,
	}
	negativeWords = map[string]bool{
		"awful": true, "bad": true, "broke": true, "broken": true, "cheap": true,
		"confusing": true, "crash": true, "crashes": true, "defective": true, "died": true,
		"disappointed": true, "disappointing": true, "expensive": true, "frustrating": true, "hate": true,
		"horrible": true, "late": true, "overpriced": true, "poor": true, "refund": true,
		"rude": true, "slow": true, "terrible": true, "unreliable": true, "useless": true,
		"worst": true, "never": true,
	}
	negators = map[string]bool{
		"not": true, "no": true, "isn't": true, "wasn't": true, "don't": true,
		"doesn't": true, "didn't": true, "hardly": true,
	}
	emotionWords = []struct {
		stem, emotion string
	}{
		{"love", "delight"},
		{"happy", "joy"},
		{"impress", "admiration"},
		{"frustrat", "frustration"},
		{"disappoint", "disappointment"},
		{"hate", "anger"},
		{"angry", "anger"},
		{"confus", "confusion"},
		{"worr", "anxiety"},
	}
)

// StubOracle answers every role from a word lexicon, weighting sentences
// that mention the role's focus words. It needs no network and gives the
// same answer for the same request, which makes it suitable for demos and
// reproducible runs. In discussion rounds it moves toward the majority of
// its colleagues.
type StubOracle struct {
	catalog *core.RoleCatalog
	latency time.Duration
}

// NewStubOracle creates a stub that reads focus words from catalog.
func NewStubOracle(catalog *core.RoleCatalog) *StubOracle {
	if catalog == nil {
		catalog = core.DefaultRoleCatalog()
	}
	return &StubOracle{catalog: catalog}
}

// WithLatency delays every answer by d, honouring cancellation.
func (o *StubOracle) WithLatency(d time.Duration) *StubOracle {
	o.latency = d
	return o
}

// Name implements core.Oracle.
func (o *StubOracle) Name() string {
	return TransportStub
}

// Ping implements core.Oracle.
func (o *StubOracle) Ping(_ context.Context) error {
	return nil
}

type stubVerdict struct {
	Sentiment      core.Sentiment `json:"sentiment"`
	Confidence     float64        `json:"confidence"`
	Reasoning      string         `json:"reasoning"`
	Topics         []string       `json:"topics"`
	Emotions       []string       `json:"emotions,omitempty"`
	BusinessImpact string         `json:"business_impact,omitempty"`
}

type stubAdvisory struct {
	Narrative       string   `json:"narrative"`
	Recommendations []string `json:"recommendations"`
	Priority        string   `json:"priority"`
}

// Execute implements core.Oracle.
func (o *StubOracle) Execute(ctx context.Context, req core.OracleRequest) (*core.OracleResult, error) {
	if o.latency > 0 {
		timer := time.NewTimer(o.latency)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var answer any
	if req.Round < 0 {
		answer = o.advise(req)
	} else {
		answer = o.classify(req)
	}
	data, err := json.Marshal(answer)
	if err != nil {
		return nil, fmt.Errorf("encoding stub answer: %w", err)
	}
	return &core.OracleResult{Output: string(data), Duration: o.latency}, nil
}

func (o *StubOracle) classify(req core.OracleRequest) stubVerdict {
	profile, ok := o.catalog.Get(req.Role)
	if !ok {
		profile = core.RoleProfile{Name: req.Role, Title: req.Role}
	}
	v := lexiconVerdict(profile, req.Document)
	if req.Prior != nil {
		v = revise(v, req.Role, req.Prior)
	}
	return v
}

// Score reports the lexicon evidence found in document for profile.
type Score struct {
	Positive float64
	Negative float64
	Topics   []string
}

// ScoreDocument weighs every sentiment word in document; sentences that
// mention one of the profile's focus words count double.
func ScoreDocument(profile core.RoleProfile, document string) Score {
	var s Score
	seenTopic := make(map[string]bool)

	for _, sentence := range splitSentences(document) {
		lower := strings.ToLower(sentence)
		weight := 1.0
		for _, f := range profile.Focus {
			if strings.Contains(lower, strings.ToLower(f)) {
				weight = 2
				if !seenTopic[f] {
					seenTopic[f] = true
					s.Topics = append(s.Topics, f)
				}
			}
		}

		tokens := tokenize(lower)
		for i, tok := range tokens {
			polarity := 0.0
			switch {
			case positiveWords[tok]:
				polarity = 1
			case negativeWords[tok]:
				polarity = -1
			default:
				continue
			}
			if i > 0 && negators[tokens[i-1]] {
				polarity = -polarity
			}
			if polarity > 0 {
				s.Positive += weight
			} else {
				s.Negative += weight
			}
		}
	}
	return s
}

func lexiconVerdict(profile core.RoleProfile, document string) stubVerdict {
	score := ScoreDocument(profile, document)
	title := profile.Title
	if title == "" {
		title = profile.Name
	}

	v := stubVerdict{
		Topics:   score.Topics,
		Emotions: detectEmotions(document),
	}
	if v.Topics == nil {
		v.Topics = []string{}
	}

	total := score.Positive + score.Negative
	if total == 0 {
		v.Sentiment = core.SentimentNeutral
		v.Confidence = 0.55
		v.Reasoning = fmt.Sprintf("%s found no clear sentiment signal.", title)
		return v
	}

	balance := (score.Positive - score.Negative) / total
	evidence := math.Min(total, 4) / 4

	switch {
	case score.Positive > 0 && score.Negative > 0 && math.Abs(balance) < 0.34:
		v.Sentiment = core.SentimentMixed
		v.Confidence = round2(0.5 + 0.2*evidence)
	case balance > 0:
		v.Sentiment = core.SentimentPositive
		v.Confidence = round2(0.5 + 0.45*math.Abs(balance)*evidence)
	default:
		v.Sentiment = core.SentimentNegative
		v.Confidence = round2(0.5 + 0.45*math.Abs(balance)*evidence)
	}
	v.Reasoning = fmt.Sprintf("%s counted %.0f positive and %.0f negative signals.",
		title, score.Positive, score.Negative)

	if profile.Name == core.RoleBusiness {
		switch v.Sentiment {
		case core.SentimentPositive:
			v.BusinessImpact = "Supports repeat purchases and referrals."
		case core.SentimentNegative:
			v.BusinessImpact = "Churn and refund risk."
		}
	}
	return v
}

// revise moves v to the sentiment held by more than half of the other
// usable verdicts.
func revise(v stubVerdict, role string, prior *core.PriorContext) stubVerdict {
	counts := make(map[core.Sentiment]int)
	confs := make(map[core.Sentiment]float64)
	usable := 0
	for _, pv := range prior.Others(role) {
		if pv.Degraded {
			continue
		}
		usable++
		counts[pv.Sentiment]++
		confs[pv.Sentiment] += pv.Confidence
	}
	if usable == 0 {
		return v
	}

	for _, s := range core.AllSentiments() {
		if counts[s]*2 <= usable || s == v.Sentiment {
			continue
		}
		v.Confidence = round2(0.9 * confs[s] / float64(counts[s]))
		v.Sentiment = s
		v.Reasoning = fmt.Sprintf("Revised after discussion: %d of %d colleagues read it as %s. %s",
			counts[s], usable, s, v.Reasoning)
		break
	}
	return v
}

func (o *StubOracle) advise(req core.OracleRequest) stubAdvisory {
	counts := make(map[core.Sentiment]int)
	var roles []string
	if req.Prior != nil {
		for _, pv := range req.Prior.Verdicts {
			if pv.Degraded {
				continue
			}
			counts[pv.Sentiment]++
			if pv.Sentiment == core.SentimentNegative {
				roles = append(roles, pv.Role)
			}
		}
	}
	sort.Strings(roles)

	adv := stubAdvisory{Priority: "low"}
	switch {
	case counts[core.SentimentNegative] > counts[core.SentimentPositive]:
		adv.Priority = "high"
		adv.Narrative = "The panel reads this feedback as predominantly negative."
		adv.Recommendations = []string{"Reach out to the customer and resolve the reported problems."}
		for _, r := range roles {
			adv.Recommendations = append(adv.Recommendations, fmt.Sprintf("Review the %s findings with the owning team.", r))
		}
	case counts[core.SentimentPositive] > counts[core.SentimentNegative]:
		adv.Narrative = "The panel reads this feedback as predominantly positive."
		adv.Recommendations = []string{"Use the praised aspects in product messaging."}
	default:
		adv.Priority = "medium"
		adv.Narrative = "The panel is divided on this feedback."
		adv.Recommendations = []string{"Collect more feedback before acting."}
	}
	return adv
}

func detectEmotions(document string) []string {
	lower := strings.ToLower(document)
	var out []string
	seen := make(map[string]bool)
	for _, e := range emotionWords {
		if strings.Contains(lower, e.stem) && !seen[e.emotion] {
			seen[e.emotion] = true
			out = append(out, e.emotion)
		}
	}
	return out
}

func splitSentences(text string) []string {
	return strings.FieldsFunc(text, func(r rune) bool {
		return r == '.' || r == '!' || r == '?' || r == '\n'
	})
}

func tokenize(text string) []string {
	return strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && r != '\''
	})
}

func round2(x float64) float64 {
	return math.Round(x*100) / 100
}
