// Package oracle provides the transports used to reach specialists.
package oracle

import (
	"fmt"
	"time"

	"github.com/hugo-lorenzo-mato/panel/internal/core"
	"github.com/hugo-lorenzo-mato/panel/internal/logging"
)

// Transport names.
const (
	TransportStub = "stub"
	TransportA2A  = "a2a"
	TransportExec = "exec"
)

// Config selects and configures a transport.
type Config struct {
	Transport string
	// Endpoint is the default JSON-RPC URL for a2a.
	Endpoint string
	// Endpoints overrides Endpoint per role.
	Endpoints map[string]string
	Headers   map[string]string
	Command   string
	Args      []string
	WorkDir   string
	Env       map[string]string
	// StubLatency delays stub answers.
	StubLatency time.Duration
	// BreakerThreshold enables a per-analysis BreakerOracle around network
	// transports when positive. See BreakerScope.
	BreakerThreshold int
	BreakerCooldown  time.Duration
}

// New builds the oracle described by cfg. catalog feeds the stub's focus
// words.
func New(cfg Config, catalog *core.RoleCatalog, logger *logging.Logger) (core.Oracle, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	return newTransport(cfg, catalog, logger)
}

// BreakerScope returns a wrapper that puts a fresh BreakerOracle around the
// oracle of one analysis, so circuits opened by one analysis never affect
// another. It returns nil when the breaker is disabled. The stub cannot fail
// and is never wrapped.
func BreakerScope(cfg Config, logger *logging.Logger) func(core.Oracle) core.Oracle {
	if cfg.BreakerThreshold <= 0 {
		return nil
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	logger = logger.WithComponent("breaker")
	return func(o core.Oracle) core.Oracle {
		if o.Name() == TransportStub {
			return o
		}
		return NewBreakerOracle(o, cfg.BreakerThreshold, cfg.BreakerCooldown, logger)
	}
}

func newTransport(cfg Config, catalog *core.RoleCatalog, logger *logging.Logger) (core.Oracle, error) {
	switch cfg.Transport {
	case "", TransportStub:
		return NewStubOracle(catalog).WithLatency(cfg.StubLatency), nil

	case TransportA2A:
		if cfg.Endpoint == "" && len(cfg.Endpoints) == 0 {
			return nil, core.ErrValidation(core.CodeInvalidConfig, "a2a transport needs an endpoint")
		}
		opts := []A2AOption{WithA2ALogger(logger.WithComponent("a2a"))}
		for role, ep := range cfg.Endpoints {
			opts = append(opts, WithRoleEndpoint(role, ep))
		}
		for k, v := range cfg.Headers {
			opts = append(opts, WithHeader(k, v))
		}
		return NewA2AOracle(cfg.Endpoint, opts...), nil

	case TransportExec:
		return NewExecOracle(ExecConfig{
			Command: cfg.Command,
			Args:    cfg.Args,
			WorkDir: cfg.WorkDir,
			Env:     cfg.Env,
		}, logger.WithComponent("exec"))

	default:
		return nil, core.ErrValidation(core.CodeInvalidConfig,
			fmt.Sprintf("unknown oracle transport %q (valid: stub, a2a, exec)", cfg.Transport))
	}
}
