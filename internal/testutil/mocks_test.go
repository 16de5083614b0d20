package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/hugo-lorenzo-mato/panel/internal/core"
)

func TestMockOracle_Scripts(t *testing.T) {
	m := NewMockOracle().
		WithVerdict("a", core.SentimentPositive, 0.9).
		WithRoundVerdict("a", 1, core.SentimentNegative, 0.4).
		WithRoleError("b", ErrTest)
	ctx := context.Background()

	res, err := m.Execute(ctx, core.OracleRequest{Role: "a", Round: 0})
	if err != nil || res.Output != VerdictJSON(core.SentimentPositive, 0.9, "a thinks positive") {
		t.Errorf("round 0 answer = %v, %v", res, err)
	}
	res, _ = m.Execute(ctx, core.OracleRequest{Role: "a", Round: 1})
	if res.Output != VerdictJSON(core.SentimentNegative, 0.4, "a round 1") {
		t.Errorf("round 1 answer = %s", res.Output)
	}
	if _, err := m.Execute(ctx, core.OracleRequest{Role: "b"}); err != ErrTest {
		t.Errorf("role b error = %v, want ErrTest", err)
	}
	res, _ = m.Execute(ctx, core.OracleRequest{Role: "c"})
	if res.Output != VerdictJSON(core.SentimentNeutral, 0.5, "mock default") {
		t.Errorf("default answer = %s", res.Output)
	}

	if m.CallCount("a") != 2 || m.CallCount("") != 4 {
		t.Errorf("CallCount = %d/%d", m.CallCount("a"), m.CallCount(""))
	}
	m.Reset()
	if len(m.Calls()) != 0 {
		t.Error("Reset() should clear calls")
	}
}

func TestMockOracle_LatencyHonoursContext(t *testing.T) {
	m := NewMockOracle().WithLatency(time.Second, 2*time.Second)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	start := time.Now()
	if _, err := m.Execute(ctx, core.OracleRequest{Role: "a"}); err == nil {
		t.Error("Execute() should fail when the context expires")
	}
	if time.Since(start) > 500*time.Millisecond {
		t.Error("Execute() ignored context cancellation")
	}
}
