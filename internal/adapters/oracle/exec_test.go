//go:build !windows

package oracle

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/hugo-lorenzo-mato/panel/internal/core"
)

func TestNewExecOracle_RequiresCommand(t *testing.T) {
	if _, err := NewExecOracle(ExecConfig{Command: "  "}, nil); err == nil {
		t.Fatal("NewExecOracle() should reject an empty command")
	}
}

func TestExecOracle_Execute(t *testing.T) {
	o, err := NewExecOracle(ExecConfig{
		Command: "sh",
		Args:    []string{"-c", `read line; printf '%s|%s|%s' "$PANEL_ROLE" "$PANEL_ROUND" "$line"`},
	}, nil)
	if err != nil {
		t.Fatalf("NewExecOracle() error = %v", err)
	}

	res, err := o.Execute(context.Background(), core.OracleRequest{Role: core.RoleTechnical, Round: 2, Prompt: "hello\n"})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if res.Output != "technical|2|hello" {
		t.Errorf("Output = %q, want %q", res.Output, "technical|2|hello")
	}
}

func TestExecOracle_ClassifiesFailures(t *testing.T) {
	tests := []struct {
		name      string
		script    string
		category  core.ErrorCategory
		retryable bool
	}{
		{"rate limit", "echo 'Error: rate limit exceeded' >&2; exit 1", core.ErrCatRateLimit, true},
		{"auth", "echo 'invalid API key' >&2; exit 1", core.ErrCatOracle, false},
		{"json error on stdout", `echo '{"error":{"message":"network unreachable"}}'; exit 2`, core.ErrCatOracle, true},
		{"generic", "exit 3", core.ErrCatOracle, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o, err := NewExecOracle(ExecConfig{Command: "sh", Args: []string{"-c", tt.script}}, nil)
			if err != nil {
				t.Fatal(err)
			}
			_, err = o.Execute(context.Background(), core.OracleRequest{Role: "r"})
			if err == nil {
				t.Fatal("Execute() expected error")
			}
			if got := core.GetCategory(err); got != tt.category {
				t.Errorf("category = %v, want %v (%v)", got, tt.category, err)
			}
			if got := core.IsRetryable(err); got != tt.retryable {
				t.Errorf("retryable = %v, want %v", got, tt.retryable)
			}
		})
	}
}

func TestExecOracle_Deadline(t *testing.T) {
	o, err := NewExecOracle(ExecConfig{Command: "sleep 5", KillGrace: 50 * time.Millisecond}, nil)
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err = o.Execute(ctx, core.OracleRequest{Role: "r"})
	if err != context.DeadlineExceeded {
		t.Errorf("Execute() error = %v, want deadline exceeded", err)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("Execute() took %v after the deadline", elapsed)
	}
}

func TestExecOracle_Ping(t *testing.T) {
	ok, _ := NewExecOracle(ExecConfig{Command: "sh -c true"}, nil)
	if err := ok.Ping(context.Background()); err != nil {
		t.Errorf("Ping() error = %v", err)
	}
	missing, _ := NewExecOracle(ExecConfig{Command: "panel-definitely-missing-binary"}, nil)
	if err := missing.Ping(context.Background()); err == nil || !strings.Contains(err.Error(), "not found") {
		t.Errorf("Ping() error = %v, want not found", err)
	}
}
