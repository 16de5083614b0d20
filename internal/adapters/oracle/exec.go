package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/hugo-lorenzo-mato/panel/internal/core"
	"github.com/hugo-lorenzo-mato/panel/internal/logging"
)

// ExecConfig configures an ExecOracle.
type ExecConfig struct {
	// Command may contain arguments, e.g. "llm -m gpt-4o-mini".
	Command string
	Args    []string
	WorkDir string
	Env     map[string]string
	// KillGrace is how long a cancelled process gets before SIGKILL.
	KillGrace time.Duration
}

// ExecOracle runs a command per request: the prompt goes to stdin and
// stdout is the answer. PANEL_ROLE and PANEL_ROUND tell the command who it
// is speaking for.
type ExecOracle struct {
	cfg    ExecConfig
	logger *logging.Logger
}

// NewExecOracle creates an exec oracle.
func NewExecOracle(cfg ExecConfig, logger *logging.Logger) (*ExecOracle, error) {
	if strings.TrimSpace(cfg.Command) == "" {
		return nil, core.ErrValidation(core.CodeInvalidConfig, "oracle command not configured")
	}
	if cfg.KillGrace <= 0 {
		cfg.KillGrace = 2 * time.Second
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &ExecOracle{cfg: cfg, logger: logger}, nil
}

// Name implements core.Oracle.
func (o *ExecOracle) Name() string {
	return TransportExec
}

// Ping checks that the command is on PATH.
func (o *ExecOracle) Ping(_ context.Context) error {
	path, _ := o.command()
	if _, err := exec.LookPath(path); err != nil {
		return core.ErrOracle(core.CodeOracleUnavailable, fmt.Sprintf("command %q not found", path)).WithCause(err)
	}
	return nil
}

func (o *ExecOracle) command() (string, []string) {
	parts := strings.Fields(o.cfg.Command)
	return parts[0], append(parts[1:], o.cfg.Args...)
}

// execResult holds the outcome of one process run.
type execResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
	Duration time.Duration
}

// Execute implements core.Oracle. The deadline of ctx bounds the process.
func (o *ExecOracle) Execute(ctx context.Context, req core.OracleRequest) (*core.OracleResult, error) {
	path, args := o.command()

	// #nosec G204 -- command comes from validated config
	cmd := exec.CommandContext(ctx, path, args...)
	configureProcAttr(cmd, o.cfg.KillGrace)
	if o.cfg.WorkDir != "" {
		cmd.Dir = o.cfg.WorkDir
	}
	cmd.Stdin = strings.NewReader(req.Prompt)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	cmd.Env = append(os.Environ(),
		"PANEL_MANAGED=true",
		"PANEL_ROLE="+req.Role,
		"PANEL_ROUND="+strconv.Itoa(req.Round),
	)
	for k, v := range o.cfg.Env {
		cmd.Env = append(cmd.Env, k+"="+v)
	}

	log := o.logger.WithRole(req.Role).WithRound(req.Round)
	log.Debug("exec: running oracle command", "path", path, "args", args, "stdin_length", len(req.Prompt))

	start := time.Now()
	err := cmd.Run()
	result := execResult{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: time.Since(start),
	}

	if ctx.Err() != nil {
		log.Debug("exec: command interrupted", "duration", result.Duration, "reason", ctx.Err())
		return nil, ctx.Err()
	}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
			log.Warn("exec: command failed",
				"exit_code", result.ExitCode,
				"duration", result.Duration,
				"stderr", core.Truncate(result.Stderr, 500),
			)
			return nil, classifyExecError(result)
		}
		return nil, core.ErrOracle(core.CodeOracleUnavailable, "starting oracle command").WithCause(err)
	}

	log.Debug("exec: command completed", "duration", result.Duration, "stdout_length", len(result.Stdout))
	return &core.OracleResult{Output: result.Stdout, Duration: result.Duration}, nil
}

// classifyExecError reads the failure message from stderr, or from a JSON
// error object on stdout, and maps it onto a domain error.
func classifyExecError(result execResult) error {
	msg := strings.TrimSpace(result.Stderr)
	if msg == "" {
		msg = errorFromStdout(result.Stdout)
	}
	if msg == "" {
		msg = "(no error message captured)"
	}
	lower := strings.ToLower(msg)

	switch {
	case containsAny(lower, "rate limit", "too many requests", "429", "quota"):
		return core.ErrRateLimit(msg)
	case containsAny(lower, "unauthorized", "authentication", "api key", "forbidden"):
		err := core.ErrOracle(core.CodeOracleRejected, msg)
		err.Retryable = false
		return err
	case containsAny(lower, "connection", "network", "timeout", "unreachable"):
		return core.ErrOracle(core.CodeOracleUnavailable, msg)
	default:
		return core.ErrOracle(core.CodeOracleUnavailable,
			fmt.Sprintf("command failed with exit code %d: %s", result.ExitCode, core.Truncate(msg, 300)))
	}
}

func errorFromStdout(stdout string) string {
	lines := strings.Split(stdout, "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		line := strings.TrimSpace(lines[i])
		if !strings.HasPrefix(line, "{") {
			continue
		}
		var obj struct {
			Error json.RawMessage `json:"error"`
		}
		if json.Unmarshal([]byte(line), &obj) != nil || len(obj.Error) == 0 {
			continue
		}
		var s string
		if json.Unmarshal(obj.Error, &s) == nil && s != "" {
			return s
		}
		var nested struct {
			Message string `json:"message"`
		}
		if json.Unmarshal(obj.Error, &nested) == nil && nested.Message != "" {
			return nested.Message
		}
	}
	for i := len(lines) - 1; i >= 0; i-- {
		if line := strings.TrimSpace(lines[i]); line != "" && !strings.HasPrefix(line, "{") {
			return core.Truncate(line, 200)
		}
	}
	return ""
}

func containsAny(s string, substrings ...string) bool {
	for _, sub := range substrings {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
