package logging

import (
	"regexp"
)

// Sanitizer redacts credentials from log output. Oracle endpoints and
// commands are configured by users and routinely embed keys.
type Sanitizer struct {
	patterns []*regexp.Regexp
	redacted string
}

// NewSanitizer creates a sanitizer with default patterns.
func NewSanitizer() *Sanitizer {
	return &Sanitizer{
		patterns: defaultPatterns(),
		redacted: "[REDACTED]",
	}
}

func defaultPatterns() []*regexp.Regexp {
	patterns := []string{
		// Anthropic, then OpenAI style keys
		`sk-ant-[a-zA-Z0-9-]{40,}`,
		`sk-[A-Za-z0-9_-]{20,}`,
		// Google AI
		`AIza[a-zA-Z0-9_-]{35}`,
		// AWS access key
		`AKIA[0-9A-Z]{16}`,
		// Credentials embedded in URLs
		`://[^/\s:@]+:[^/\s@]+@`,
		// Authorization headers
		`(?i)bearer\s+[a-zA-Z0-9._~+/-]{20,}=*`,
		`(?i)basic\s+[a-zA-Z0-9+/]{16,}=*`,
		// key=value style secrets in query strings, env dumps and JSON
		`(?i)(api[_-]?key|access[_-]?token|secret|password|token)["'\s:=]+[^\s"'&,}]{8,}`,
	}

	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		compiled = append(compiled, regexp.MustCompile(p))
	}
	return compiled
}

// Sanitize redacts sensitive information from a string.
func (s *Sanitizer) Sanitize(input string) string {
	result := input
	for _, pattern := range s.patterns {
		result = pattern.ReplaceAllString(result, s.redacted)
	}
	return result
}

// AddPattern adds a custom pattern.
func (s *Sanitizer) AddPattern(pattern string) error {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return err
	}
	s.patterns = append(s.patterns, re)
	return nil
}
