package config

import (
	"fmt"
	"strings"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("config validation: %s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors collects multiple validation errors.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	msgs := make([]string, 0, len(e))
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// HasErrors returns true if there are any validation errors.
func (e ValidationErrors) HasErrors() bool {
	return len(e) > 0
}

// Validator validates configuration.
type Validator struct {
	errors ValidationErrors
}

// NewValidator creates a new validator.
func NewValidator() *Validator {
	return &Validator{
		errors: make(ValidationErrors, 0),
	}
}

// Validate validates the entire configuration.
func (v *Validator) Validate(cfg *Config) error {
	v.validateLog(&cfg.Log)
	v.validateAnalysis(&cfg.Analysis)
	v.validateConsensus(&cfg.Consensus)
	v.validateOracle(&cfg.Oracle)
	v.validateStore(&cfg.Store)
	v.validateServer(&cfg.Server)

	if len(v.errors) > 0 {
		return v.errors
	}
	return nil
}

// Errors returns the collected validation errors.
func (v *Validator) Errors() ValidationErrors {
	return v.errors
}

func (v *Validator) addError(field string, value interface{}, msg string) {
	v.errors = append(v.errors, ValidationError{
		Field:   field,
		Value:   value,
		Message: msg,
	})
}

func (v *Validator) validateLog(cfg *LogConfig) {
	switch cfg.Level {
	case "debug", "info", "warn", "error":
	default:
		v.addError("log.level", cfg.Level, "must be one of debug, info, warn, error")
	}
	switch cfg.Format {
	case "auto", "text", "json":
	default:
		v.addError("log.format", cfg.Format, "must be one of auto, text, json")
	}
}

func (v *Validator) validateAnalysis(cfg *AnalysisConfig) {
	if cfg.MaxDiscussionRounds < 0 {
		v.addError("analysis.max_discussion_rounds", cfg.MaxDiscussionRounds, "must be non-negative")
	}
	if cfg.DisagreementThreshold < 0 || cfg.DisagreementThreshold > 1 {
		v.addError("analysis.disagreement_threshold", cfg.DisagreementThreshold, "must be between 0 and 1")
	}
	if cfg.PerCallMaxRetries < 0 {
		v.addError("analysis.per_call_max_retries", cfg.PerCallMaxRetries, "must be non-negative")
	}
	if cfg.MaxParallelism < 0 {
		v.addError("analysis.max_parallelism", cfg.MaxParallelism, "must be non-negative")
	}
	v.validateDuration("analysis.per_call_timeout", cfg.PerCallTimeout)
	v.validateDuration("analysis.retry_delay", cfg.RetryDelay)
	for i, r := range cfg.Roles {
		if strings.TrimSpace(r) == "" {
			v.addError(fmt.Sprintf("analysis.roles[%d]", i), r, "must not be empty")
		}
	}
	if cfg.Advise && strings.TrimSpace(cfg.AdvisorRole) == "" {
		v.addError("analysis.advisor_role", cfg.AdvisorRole, "required when advise is enabled")
	}
}

func (v *Validator) validateConsensus(cfg *ConsensusConfig) {
	fractions := []struct {
		field string
		value float64
	}{
		{"consensus.high_agreement_below", cfg.HighAgreementBelow},
		{"consensus.low_agreement_above", cfg.LowAgreementAbove},
		{"consensus.degraded_weight", cfg.DegradedWeight},
		{"consensus.tie_epsilon", cfg.TieEpsilon},
		{"consensus.disagreement_penalty", cfg.DisagreementPenalty},
		{"consensus.min_polar_share", cfg.MinPolarShare},
	}
	for _, f := range fractions {
		if f.value < 0 || f.value > 1 {
			v.addError(f.field, f.value, "must be between 0 and 1")
		}
	}
	if cfg.HighAgreementBelow > cfg.LowAgreementAbove {
		v.addError("consensus.high_agreement_below", cfg.HighAgreementBelow, "must not exceed low_agreement_above")
	}
}

func (v *Validator) validateOracle(cfg *OracleConfig) {
	switch cfg.Transport {
	case "", "stub":
	case "a2a":
		if cfg.Endpoint == "" && len(cfg.Endpoints) == 0 {
			v.addError("oracle.endpoint", cfg.Endpoint, "required for the a2a transport")
		}
	case "exec":
		if cfg.Command == "" {
			v.addError("oracle.command", cfg.Command, "required for the exec transport")
		}
	default:
		v.addError("oracle.transport", cfg.Transport, "must be one of stub, a2a, exec")
	}
	v.validateDuration("oracle.stub_latency", cfg.StubLatency)
	if cfg.RateLimit.MaxTokens < 0 || cfg.RateLimit.RefillRate < 0 {
		v.addError("oracle.rate_limit", cfg.RateLimit, "must be non-negative")
	}
	if cfg.RateLimit.MaxTokens > 0 && cfg.RateLimit.RefillRate == 0 {
		v.addError("oracle.rate_limit.refill_rate", cfg.RateLimit.RefillRate, "must be positive when max_tokens is set")
	}
	if cfg.Breaker.Threshold < 0 {
		v.addError("oracle.breaker.threshold", cfg.Breaker.Threshold, "must be non-negative")
	}
	v.validateDuration("oracle.breaker.cooldown", cfg.Breaker.Cooldown)
}

func (v *Validator) validateStore(cfg *StoreConfig) {
	switch cfg.Backend {
	case "sqlite":
		if !strings.HasSuffix(cfg.Path, ".db") {
			v.addError("store.path", cfg.Path, "sqlite path must end in .db")
		}
	case "json":
	default:
		v.addError("store.backend", cfg.Backend, "must be one of sqlite, json")
	}
	if cfg.Path == "" {
		v.addError("store.path", cfg.Path, "must not be empty")
	}
}

func (v *Validator) validateServer(cfg *ServerConfig) {
	if cfg.Addr == "" {
		v.addError("server.addr", cfg.Addr, "must not be empty")
	}
	v.validateDuration("server.shutdown_timeout", cfg.ShutdownTimeout)
}

func (v *Validator) validateDuration(field, value string) {
	d, err := parseDuration(field, value)
	if err != nil {
		v.addError(field, value, "invalid duration")
		return
	}
	if d < 0 {
		v.addError(field, value, "must be non-negative")
	}
}

// ValidateConfig is a convenience function to validate configuration.
func ValidateConfig(cfg *Config) error {
	return NewValidator().Validate(cfg)
}

