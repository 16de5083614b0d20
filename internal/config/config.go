package config

import (
	"fmt"
	"time"

	"github.com/hugo-lorenzo-mato/panel/internal/core"
)

// Config holds all application configuration.
type Config struct {
	Log       LogConfig       `mapstructure:"log"`
	Analysis  AnalysisConfig  `mapstructure:"analysis"`
	Consensus ConsensusConfig `mapstructure:"consensus"`
	Oracle    OracleConfig    `mapstructure:"oracle"`
	Roles     RolesConfig     `mapstructure:"roles"`
	Store     StoreConfig     `mapstructure:"store"`
	Server    ServerConfig    `mapstructure:"server"`
}

// LogConfig configures logging behavior.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	File   string `mapstructure:"file"`
}

// AnalysisConfig holds the per-analysis defaults. Every field can be
// overridden per call.
type AnalysisConfig struct {
	Roles                 []string `mapstructure:"roles"`
	MaxDiscussionRounds   int      `mapstructure:"max_discussion_rounds"`
	DisagreementThreshold float64  `mapstructure:"disagreement_threshold"`
	PerCallTimeout        string   `mapstructure:"per_call_timeout"`
	PerCallMaxRetries     int      `mapstructure:"per_call_max_retries"`
	RetryDelay            string   `mapstructure:"retry_delay"`
	MaxParallelism        int      `mapstructure:"max_parallelism"`
	Advise                bool     `mapstructure:"advise"`
	AdvisorRole           string   `mapstructure:"advisor_role"`
}

// ConsensusConfig tunes scoring and synthesis.
type ConsensusConfig struct {
	HighAgreementBelow  float64 `mapstructure:"high_agreement_below"`
	LowAgreementAbove   float64 `mapstructure:"low_agreement_above"`
	DegradedWeight      float64 `mapstructure:"degraded_weight"`
	TieEpsilon          float64 `mapstructure:"tie_epsilon"`
	DisagreementPenalty float64 `mapstructure:"disagreement_penalty"`
	MinPolarShare       float64 `mapstructure:"min_polar_share"`
}

// OracleConfig selects the transport specialists are reached through.
type OracleConfig struct {
	Transport   string            `mapstructure:"transport"`
	Endpoint    string            `mapstructure:"endpoint"`
	Endpoints   map[string]string `mapstructure:"endpoints"`
	Headers     map[string]string `mapstructure:"headers"`
	Command     string            `mapstructure:"command"`
	Args        []string          `mapstructure:"args"`
	WorkDir     string            `mapstructure:"work_dir"`
	Env         map[string]string `mapstructure:"env"`
	StubLatency string            `mapstructure:"stub_latency"`
	RateLimit   RateLimitConfig   `mapstructure:"rate_limit"`
	Breaker     BreakerConfig     `mapstructure:"breaker"`
}

// RateLimitConfig is a token bucket per role. Zero max_tokens disables it.
type RateLimitConfig struct {
	MaxTokens  float64 `mapstructure:"max_tokens"`
	RefillRate float64 `mapstructure:"refill_rate"`
}

// BreakerConfig stops calling a role's oracle after Threshold consecutive
// transport failures until Cooldown has passed. Zero threshold disables it.
type BreakerConfig struct {
	Threshold int    `mapstructure:"threshold"`
	Cooldown  string `mapstructure:"cooldown"`
}

// RolesConfig points at an optional role catalog file.
type RolesConfig struct {
	File  string `mapstructure:"file"`
	Watch bool   `mapstructure:"watch"`
}

// StoreConfig configures report persistence.
type StoreConfig struct {
	Backend string `mapstructure:"backend"`
	Path    string `mapstructure:"path"`
}

// ServerConfig configures the HTTP service.
type ServerConfig struct {
	Addr            string   `mapstructure:"addr"`
	CORSOrigins     []string `mapstructure:"cors_origins"`
	PublicURL       string   `mapstructure:"public_url"`
	ShutdownTimeout string   `mapstructure:"shutdown_timeout"`
}

// WorkflowConfig converts the analysis section into engine config.
func (c AnalysisConfig) WorkflowConfig() (core.WorkflowConfig, error) {
	timeout, err := parseDuration("analysis.per_call_timeout", c.PerCallTimeout)
	if err != nil {
		return core.WorkflowConfig{}, err
	}
	delay, err := parseDuration("analysis.retry_delay", c.RetryDelay)
	if err != nil {
		return core.WorkflowConfig{}, err
	}

	roles := c.Roles
	if len(roles) == 0 {
		roles = core.DefaultRoles
	}
	return core.WorkflowConfig{
		AgentRoles:            append([]string{}, roles...),
		MaxDiscussionRounds:   c.MaxDiscussionRounds,
		DisagreementThreshold: c.DisagreementThreshold,
		PerCallTimeout:        timeout,
		PerCallMaxRetries:     c.PerCallMaxRetries,
		RetryDelay:            delay,
		MaxParallelism:        c.MaxParallelism,
		Advise:                c.Advise,
	}, nil
}

// Duration parses a duration field; empty means zero.
func Duration(value string) (time.Duration, error) {
	return parseDuration("duration", value)
}

func parseDuration(field, value string) (time.Duration, error) {
	if value == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, core.ErrValidation(core.CodeInvalidTimeout, fmt.Sprintf("%s: invalid duration %q", field, value)).WithCause(err)
	}
	return d, nil
}

// ProjectDir is the per-project directory holding config and reports.
const ProjectDir = ".panel"
