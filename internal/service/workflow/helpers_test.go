package workflow

import (
	"testing"
	"time"

	"github.com/hugo-lorenzo-mato/panel/internal/core"
	"github.com/hugo-lorenzo-mato/panel/internal/service"
	"github.com/hugo-lorenzo-mato/panel/internal/testutil"
)

const testDocument = "The battery died after two days and support never answered my emails."

// testConfig returns a fast config over the five default roles.
func testConfig() core.WorkflowConfig {
	cfg := core.DefaultWorkflowConfig()
	cfg.PerCallTimeout = 2 * time.Second
	cfg.PerCallMaxRetries = 1
	cfg.RetryDelay = time.Millisecond
	cfg.Advise = false
	return cfg
}

func testProfiles(t *testing.T, names ...string) []core.RoleProfile {
	t.Helper()
	profiles, err := core.DefaultRoleCatalog().Resolve(names)
	if err != nil {
		t.Fatalf("Resolve(%v) error = %v", names, err)
	}
	return profiles
}

func newTestClient(t *testing.T, oracle core.Oracle) *SpecialistClient {
	t.Helper()
	prompts, err := service.NewPromptRenderer()
	if err != nil {
		t.Fatalf("NewPromptRenderer() error = %v", err)
	}
	return NewSpecialistClient(oracle, prompts, nil, nil, nil, nil)
}

func newTestOrchestrator(t *testing.T, oracle *testutil.MockOracle, opts ...Option) *Orchestrator {
	t.Helper()
	o, err := NewOrchestrator(oracle, opts...)
	if err != nil {
		t.Fatalf("NewOrchestrator() error = %v", err)
	}
	return o
}
