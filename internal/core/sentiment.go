package core

import (
	"fmt"
	"strings"
)

// Sentiment is the polarity label a specialist assigns to a document.
type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNegative Sentiment = "negative"
	SentimentNeutral  Sentiment = "neutral"
	SentimentMixed    Sentiment = "mixed"
)

// AllSentiments returns every sentiment in tie-break order: when two buckets
// cannot be separated by weight or confidence, the one listed first wins.
func AllSentiments() []Sentiment {
	return []Sentiment{SentimentNeutral, SentimentMixed, SentimentNegative, SentimentPositive}
}

// ParseSentiment converts a label to a Sentiment.
func ParseSentiment(s string) (Sentiment, error) {
	switch Sentiment(strings.ToLower(strings.TrimSpace(s))) {
	case SentimentPositive:
		return SentimentPositive, nil
	case SentimentNegative:
		return SentimentNegative, nil
	case SentimentNeutral:
		return SentimentNeutral, nil
	case SentimentMixed:
		return SentimentMixed, nil
	default:
		return "", fmt.Errorf("unknown sentiment %q", s)
	}
}

// Valid reports whether s is one of the four known labels.
func (s Sentiment) Valid() bool {
	switch s {
	case SentimentPositive, SentimentNegative, SentimentNeutral, SentimentMixed:
		return true
	}
	return false
}

// AxisPoint maps a sentiment onto the [0,1] polarity axis used to measure
// disagreement. Mixed sits at the midpoint with neutral.
func (s Sentiment) AxisPoint() float64 {
	switch s {
	case SentimentNegative:
		return 0
	case SentimentPositive:
		return 1
	default:
		return 0.5
	}
}

// AgreementLevel buckets a disagreement score for reporting.
type AgreementLevel string

const (
	AgreementHigh     AgreementLevel = "high"
	AgreementModerate AgreementLevel = "moderate"
	AgreementLow      AgreementLevel = "low"
)
