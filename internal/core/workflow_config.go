package core

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// WorkflowConfig holds the knobs of one analysis. Every field can be
// overridden per call.
type WorkflowConfig struct {
	AgentRoles            []string      `json:"agent_roles"`
	MaxDiscussionRounds   int           `json:"max_discussion_rounds"`
	DisagreementThreshold float64       `json:"disagreement_threshold"`
	PerCallTimeout        time.Duration `json:"per_call_timeout"`
	PerCallMaxRetries     int           `json:"per_call_max_retries"`
	RetryDelay            time.Duration `json:"retry_delay"`
	MaxParallelism        int           `json:"max_parallelism"`
	Advise                bool          `json:"advise"`
}

// DefaultRoles lists the specialists consulted when no roles are given.
var DefaultRoles = []string{
	RoleQuality,
	RoleExperience,
	RoleUserExperience,
	RoleBusiness,
	RoleTechnical,
}

// DefaultWorkflowConfig returns sensible defaults.
func DefaultWorkflowConfig() WorkflowConfig {
	return WorkflowConfig{
		AgentRoles:            append([]string{}, DefaultRoles...),
		MaxDiscussionRounds:   2,
		DisagreementThreshold: 0.6,
		PerCallTimeout:        30 * time.Second,
		PerCallMaxRetries:     2,
		RetryDelay:            500 * time.Millisecond,
		MaxParallelism:        0,
		Advise:                true,
	}
}

// Parallelism returns the effective number of concurrent specialist calls.
func (c WorkflowConfig) Parallelism() int {
	if c.MaxParallelism <= 0 || c.MaxParallelism > len(c.AgentRoles) {
		return len(c.AgentRoles)
	}
	return c.MaxParallelism
}

// Validate checks the configuration and reports every violation at once.
func (c WorkflowConfig) Validate() error {
	var problems []string

	if len(c.AgentRoles) == 0 {
		problems = append(problems, "agent_roles must not be empty")
	}
	seen := make(map[string]bool, len(c.AgentRoles))
	for _, r := range c.AgentRoles {
		name := strings.TrimSpace(r)
		if name == "" {
			problems = append(problems, "agent_roles contains an empty name")
			continue
		}
		if seen[name] {
			problems = append(problems, fmt.Sprintf("agent_roles contains duplicate %q", name))
		}
		seen[name] = true
	}
	if c.MaxDiscussionRounds < 0 {
		problems = append(problems, "max_discussion_rounds must be >= 0")
	}
	if c.DisagreementThreshold < 0 || c.DisagreementThreshold > 1 || math.IsNaN(c.DisagreementThreshold) {
		problems = append(problems, "disagreement_threshold must be within [0,1]")
	}
	if c.PerCallTimeout <= 0 {
		problems = append(problems, "per_call_timeout must be positive")
	}
	if c.PerCallMaxRetries < 0 {
		problems = append(problems, "per_call_max_retries must be >= 0")
	}
	if c.RetryDelay < 0 {
		problems = append(problems, "retry_delay must be >= 0")
	}
	if c.MaxParallelism < 0 {
		problems = append(problems, "max_parallelism must be >= 0")
	}

	if len(problems) == 0 {
		return nil
	}
	code := CodeInvalidConfig
	if len(c.AgentRoles) == 0 {
		code = CodeNoRoles
	}
	return ErrValidation(code, strings.Join(problems, "; ")).WithDetail("problems", problems)
}

// ValidateDocument rejects documents the engine will not analyze.
func ValidateDocument(document string) error {
	if strings.TrimSpace(document) == "" {
		return ErrValidation(CodeEmptyDocument, "document is empty")
	}
	if len(document) > MaxDocumentLength {
		return ErrValidation(CodeDocumentTooLong,
			fmt.Sprintf("document is %d bytes, limit is %d", len(document), MaxDocumentLength))
	}
	return nil
}
