package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// DefaultConfigYAML is written by `panel init`.
const DefaultConfigYAML = `# Panel configuration
#
# Values not specified here use built-in defaults.
# Every key can be overridden by an environment variable, e.g.
# PANEL_ORACLE_TRANSPORT=a2a or PANEL_ANALYSIS_ADVISE=false.

log:
  level: info        # debug, info, warn, error
  format: auto       # auto, text, json

analysis:
  roles: [quality, experience, user_experience, business, technical]
  max_discussion_rounds: 2
  disagreement_threshold: 0.6
  per_call_timeout: 30s
  per_call_max_retries: 2
  retry_delay: 500ms
  max_parallelism: 0   # 0 = one call per role
  advise: true
  advisor_role: business_advisor

consensus:
  high_agreement_below: 0.3
  low_agreement_above: 0.6
  degraded_weight: 0.1
  tie_epsilon: 0.05
  disagreement_penalty: 0.5
  min_polar_share: 0.5   # share of the heaviest bucket a tied positive/negative pair needs to count as mixed

oracle:
  transport: stub      # stub, a2a, exec
  # endpoint: http://localhost:9000/rpc
  # endpoints:
  #   technical: http://localhost:9001/rpc
  # command: my-agent
  # args: ["--json"]
  rate_limit:
    max_tokens: 0      # 0 disables per-role rate limiting
    refill_rate: 0
  breaker:
    threshold: 5       # consecutive failures per role, within one analysis, before calls fail fast
    cooldown: 30s

roles:
  file: ""             # optional YAML file with extra or overriding roles
  watch: true

store:
  backend: sqlite      # sqlite, json
  path: .panel/reports.db

server:
  addr: 127.0.0.1:8080
  cors_origins: ["*"]
  shutdown_timeout: 10s
`

// WriteDefault writes DefaultConfigYAML to path unless it exists and force
// is false.
func WriteDefault(path string, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("config already exists at %s (use --force to overwrite)", path)
	}
	return AtomicWrite(path, []byte(DefaultConfigYAML))
}

// DefaultConfigPath returns the project config path under dir.
func DefaultConfigPath(dir string) string {
	return filepath.Join(dir, ProjectDir, "config.yaml")
}
