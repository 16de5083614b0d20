package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment overrides, e.g. PANEL_ORACLE_TRANSPORT.
const EnvPrefix = "PANEL"

// Loader handles configuration loading from multiple sources.
type Loader struct {
	v          *viper.Viper
	configFile string
	envPrefix  string
}

// NewLoader creates a new configuration loader.
func NewLoader() *Loader {
	return NewLoaderWithViper(viper.New())
}

// NewLoaderWithViper creates a loader using an existing viper instance so
// CLI flags bound to it take precedence.
func NewLoaderWithViper(v *viper.Viper) *Loader {
	return &Loader{
		v:         v,
		envPrefix: EnvPrefix,
	}
}

// WithConfigFile sets an explicit config file path.
func (l *Loader) WithConfigFile(path string) *Loader {
	l.configFile = path
	return l
}

// WithEnvPrefix sets the environment variable prefix.
func (l *Loader) WithEnvPrefix(prefix string) *Loader {
	l.envPrefix = prefix
	return l
}

// Viper returns the underlying viper instance for flag binding.
func (l *Loader) Viper() *viper.Viper {
	return l.v
}

// Load loads configuration from all sources.
// Precedence (highest to lowest):
// 1. CLI flags (bound via viper.BindPFlag)
// 2. Environment variables (PANEL_*)
// 3. Project config (.panel/config.yaml)
// 4. User config (~/.config/panel/config.yaml)
// 5. Defaults
func (l *Loader) Load() (*Config, error) {
	l.setDefaults()

	l.v.SetEnvPrefix(l.envPrefix)
	l.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	l.v.AutomaticEnv()

	if l.configFile != "" {
		l.v.SetConfigFile(l.configFile)
	} else {
		l.v.SetConfigName("config")
		l.v.SetConfigType("yaml")
		l.v.AddConfigPath(ProjectDir)
		if home, err := os.UserHomeDir(); err == nil {
			l.v.AddConfigPath(filepath.Join(home, ".config", "panel"))
		}
	}

	if err := l.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := l.v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	return &cfg, nil
}

// setDefaults mirrors DefaultConfigYAML.
func (l *Loader) setDefaults() {
	l.v.SetDefault("log.level", "info")
	l.v.SetDefault("log.format", "auto")

	l.v.SetDefault("analysis.roles", []string{"quality", "experience", "user_experience", "business", "technical"})
	l.v.SetDefault("analysis.max_discussion_rounds", 2)
	l.v.SetDefault("analysis.disagreement_threshold", 0.6)
	l.v.SetDefault("analysis.per_call_timeout", "30s")
	l.v.SetDefault("analysis.per_call_max_retries", 2)
	l.v.SetDefault("analysis.retry_delay", "500ms")
	l.v.SetDefault("analysis.max_parallelism", 0)
	l.v.SetDefault("analysis.advise", true)
	l.v.SetDefault("analysis.advisor_role", "business_advisor")

	l.v.SetDefault("consensus.high_agreement_below", 0.3)
	l.v.SetDefault("consensus.low_agreement_above", 0.6)
	l.v.SetDefault("consensus.degraded_weight", 0.1)
	l.v.SetDefault("consensus.tie_epsilon", 0.05)
	l.v.SetDefault("consensus.disagreement_penalty", 0.5)
	l.v.SetDefault("consensus.min_polar_share", 0.5)

	l.v.SetDefault("oracle.transport", "stub")
	l.v.SetDefault("oracle.endpoint", "")
	l.v.SetDefault("oracle.rate_limit.max_tokens", 0)
	l.v.SetDefault("oracle.rate_limit.refill_rate", 0)
	l.v.SetDefault("oracle.breaker.threshold", 5)
	l.v.SetDefault("oracle.breaker.cooldown", "30s")

	l.v.SetDefault("roles.file", "")
	l.v.SetDefault("roles.watch", true)

	l.v.SetDefault("store.backend", "sqlite")
	l.v.SetDefault("store.path", filepath.Join(ProjectDir, "reports.db"))

	l.v.SetDefault("server.addr", "127.0.0.1:8080")
	l.v.SetDefault("server.cors_origins", []string{"*"})
	l.v.SetDefault("server.public_url", "")
	l.v.SetDefault("server.shutdown_timeout", "10s")
}

// ConfigFile returns the config file path if one was used.
func (l *Loader) ConfigFile() string {
	return l.v.ConfigFileUsed()
}

// Get returns a configuration value by key.
func (l *Loader) Get(key string) interface{} {
	return l.v.Get(key)
}

// Set sets a configuration value.
func (l *Loader) Set(key string, value interface{}) {
	l.v.Set(key, value)
}

// IsSet checks if a key has been set.
func (l *Loader) IsSet(key string) bool {
	return l.v.IsSet(key)
}
