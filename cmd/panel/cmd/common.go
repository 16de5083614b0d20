package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/viper"
	"golang.org/x/term"

	"github.com/hugo-lorenzo-mato/panel/internal/adapters/oracle"
	"github.com/hugo-lorenzo-mato/panel/internal/adapters/store"
	"github.com/hugo-lorenzo-mato/panel/internal/config"
	"github.com/hugo-lorenzo-mato/panel/internal/core"
	"github.com/hugo-lorenzo-mato/panel/internal/events"
	"github.com/hugo-lorenzo-mato/panel/internal/logging"
	"github.com/hugo-lorenzo-mato/panel/internal/service"
	"github.com/hugo-lorenzo-mato/panel/internal/service/workflow"
	"github.com/hugo-lorenzo-mato/panel/internal/tui"
)

// loadConfig loads and validates configuration using the global viper
// instance so bound flags take precedence.
func loadConfig() (*config.Config, error) {
	loader := config.NewLoaderWithViper(viper.GetViper())
	if cfgFile != "" {
		loader.WithConfigFile(cfgFile)
	}
	cfg, err := loader.Load()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if err := config.ValidateConfig(cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) *logging.Logger {
	return logging.New(logging.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: os.Stderr,
	})
}

// engineDeps holds everything an analysis needs.
type engineDeps struct {
	Config   *config.Config
	Logger   *logging.Logger
	Workflow core.WorkflowConfig
	Catalog  workflow.CatalogSource
	Oracle   core.Oracle
	Metrics  *service.MetricsCollector
	Bus      *events.EventBus
	Engine   *workflow.Orchestrator

	watcher *config.RoleWatcher
}

// Close stops the role watcher, if any.
func (d *engineDeps) Close() {
	if d.watcher != nil {
		_ = d.watcher.Close()
	}
	if d.Bus != nil {
		d.Bus.Close()
	}
}

// newEngine wires config into an orchestrator. With watch set and a roles
// file configured, role edits apply to the next analysis.
func newEngine(cfg *config.Config, logger *logging.Logger, watch bool) (*engineDeps, error) {
	deps := &engineDeps{
		Config:  cfg,
		Logger:  logger,
		Metrics: service.NewMetricsCollector(),
		Bus:     events.New(256),
	}

	wf, err := cfg.Analysis.WorkflowConfig()
	if err != nil {
		return nil, err
	}
	deps.Workflow = wf

	if watch && cfg.Roles.File != "" && cfg.Roles.Watch {
		w, err := config.NewRoleWatcher(cfg.Roles.File, logger)
		if err != nil {
			return nil, err
		}
		deps.watcher = w
		deps.Catalog = w.Current
	} else {
		catalog, err := config.LoadRoleCatalog(cfg.Roles.File)
		if err != nil {
			return nil, err
		}
		deps.Catalog = func() *core.RoleCatalog { return catalog }
	}

	oracleCfg, err := oracleConfig(cfg.Oracle)
	if err != nil {
		deps.Close()
		return nil, err
	}
	deps.Oracle, err = oracle.New(oracleCfg, deps.Catalog(), logger)
	if err != nil {
		deps.Close()
		return nil, fmt.Errorf("creating oracle: %w", err)
	}

	buckets := service.AgreementBuckets{
		HighBelow: cfg.Consensus.HighAgreementBelow,
		LowAbove:  cfg.Consensus.LowAgreementAbove,
	}
	synth := service.NewSynthesizer(
		service.WithDegradedWeight(cfg.Consensus.DegradedWeight),
		service.WithTieEpsilon(cfg.Consensus.TieEpsilon),
		service.WithDisagreementPenalty(cfg.Consensus.DisagreementPenalty),
		service.WithMinPolarShare(cfg.Consensus.MinPolarShare),
	)
	limiters := service.NewRateLimiterRegistry(service.RateLimiterConfig{
		MaxTokens:  cfg.Oracle.RateLimit.MaxTokens,
		RefillRate: cfg.Oracle.RateLimit.RefillRate,
	})

	opts := []workflow.Option{
		workflow.WithCatalogSource(deps.Catalog),
		workflow.WithLogger(logger),
		workflow.WithEventBus(deps.Bus),
		workflow.WithMetrics(deps.Metrics),
		workflow.WithSynthesizer(synth),
		workflow.WithBuckets(buckets),
		workflow.WithRateLimiters(limiters),
		workflow.WithAnalysisScope(oracle.BreakerScope(oracleCfg, logger)),
	}
	if cfg.Analysis.AdvisorRole != "" {
		opts = append(opts, workflow.WithAdvisorRole(cfg.Analysis.AdvisorRole))
	}
	deps.Engine, err = workflow.NewOrchestrator(deps.Oracle, opts...)
	if err != nil {
		deps.Close()
		return nil, err
	}
	return deps, nil
}

func oracleConfig(c config.OracleConfig) (oracle.Config, error) {
	latency, err := config.Duration(c.StubLatency)
	if err != nil {
		return oracle.Config{}, err
	}
	cooldown, err := config.Duration(c.Breaker.Cooldown)
	if err != nil {
		return oracle.Config{}, err
	}
	return oracle.Config{
		Transport:   c.Transport,
		Endpoint:    c.Endpoint,
		Endpoints:   c.Endpoints,
		Headers:     c.Headers,
		Command:     c.Command,
		Args:        c.Args,
		WorkDir:     c.WorkDir,
		Env:         c.Env,
		StubLatency: latency,

		BreakerThreshold: c.Breaker.Threshold,
		BreakerCooldown:  cooldown,
	}, nil
}

func openStore(cfg *config.Config) (core.ReportStore, error) {
	st, err := store.NewReportStore(cfg.Store.Backend, cfg.Store.Path)
	if err != nil {
		return nil, fmt.Errorf("opening report store: %w", err)
	}
	return st, nil
}

// newRenderer returns a renderer that only styles terminal output.
func newRenderer(out io.Writer, verbose bool) *tui.ReportRenderer {
	plain := noColor
	width := 80
	if f, ok := out.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		if w, _, err := term.GetSize(int(f.Fd())); err == nil && w > 0 {
			width = min(w, 120)
		}
	} else {
		plain = true
	}
	return tui.NewReportRenderer(
		tui.WithNoColor(plain),
		tui.WithWidth(width),
		tui.WithVerbose(verbose),
	)
}

func validateOutput(format string) error {
	switch format {
	case "pretty", "json":
		return nil
	default:
		return fmt.Errorf("invalid --output %q (valid: pretty, json)", format)
	}
}

func isTerminalReader(r io.Reader) bool {
	f, ok := r.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
