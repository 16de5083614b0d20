package workflow

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/hugo-lorenzo-mato/panel/internal/core"
)

// rawVerdict mirrors the JSON object specialists are asked to return.
type rawVerdict struct {
	Sentiment      string   `json:"sentiment"`
	Confidence     *float64 `json:"confidence"`
	Reasoning      string   `json:"reasoning"`
	Topics         []string `json:"topics"`
	Emotions       []string `json:"emotions"`
	BusinessImpact string   `json:"business_impact"`
}

// ParseVerdict converts a raw oracle answer into a Verdict for role. Any
// answer that does not carry a known sentiment and a confidence in [0,1]
// is a retryable parse error.
func ParseVerdict(role, output string) (core.Verdict, error) {
	var raw rawVerdict
	if err := ParseJSON(output, &raw); err != nil {
		return core.Verdict{}, core.ErrParse(err.Error()).WithDetail("role", role)
	}

	sentiment, err := core.ParseSentiment(raw.Sentiment)
	if err != nil {
		return core.Verdict{}, core.ErrParse(err.Error()).WithDetail("role", role)
	}
	if raw.Confidence == nil {
		return core.Verdict{}, core.ErrParse("confidence is missing").WithDetail("role", role)
	}
	if *raw.Confidence < 0 || *raw.Confidence > 1 {
		return core.Verdict{}, core.ErrParse(fmt.Sprintf("confidence %v outside [0,1]", *raw.Confidence)).
			WithDetail("role", role)
	}

	v := core.Verdict{
		Role:           role,
		Sentiment:      sentiment,
		Confidence:     *raw.Confidence,
		Reasoning:      raw.Reasoning,
		Topics:         raw.Topics,
		Emotions:       raw.Emotions,
		BusinessImpact: raw.BusinessImpact,
	}
	v.Normalize()
	return v, nil
}

// ParseJSON decodes the first JSON value found in output into v. Oracles
// often wrap their answer in prose or markdown fences.
func ParseJSON(output string, v interface{}) error {
	trimmed := strings.TrimSpace(output)
	if trimmed == "" {
		return fmt.Errorf("empty output")
	}
	if err := json.Unmarshal([]byte(trimmed), v); err == nil {
		return nil
	}

	extracted := ExtractJSON(trimmed)
	if extracted == "" {
		return fmt.Errorf("no JSON object found in output")
	}
	if err := json.Unmarshal([]byte(extracted), v); err != nil {
		return fmt.Errorf("decoding JSON: %w", err)
	}
	return nil
}

// ExtractJSON finds the first balanced JSON object in mixed text output.
func ExtractJSON(output string) string {
	start := strings.Index(output, "{")
	if start == -1 {
		return ""
	}

	depth := 0
	inString := false
	escaped := false

	for i := start; i < len(output); i++ {
		c := output[i]

		switch {
		case escaped:
			escaped = false
		case c == '\\' && inString:
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
		case c == '{':
			depth++
		case c == '}':
			depth--
			if depth == 0 {
				return output[start : i+1]
			}
		}
	}

	return ""
}
