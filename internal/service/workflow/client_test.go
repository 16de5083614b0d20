package workflow

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hugo-lorenzo-mato/panel/internal/core"
	"github.com/hugo-lorenzo-mato/panel/internal/events"
	"github.com/hugo-lorenzo-mato/panel/internal/service"
	"github.com/hugo-lorenzo-mato/panel/internal/testutil"
)

func TestSpecialistClient_Call_Success(t *testing.T) {
	oracle := testutil.NewMockOracle().WithVerdict(core.RoleQuality, core.SentimentNegative, 0.9)
	client := newTestClient(t, oracle)
	role := testProfiles(t, core.RoleQuality)[0]

	v := client.Call(context.Background(), role, testDocument, 0, nil, CallOptionsFor("a1", testConfig()))

	if v.Degraded {
		t.Fatalf("Call() degraded: %s", v.Error)
	}
	if v.Role != core.RoleQuality {
		t.Errorf("Role = %q, want %q", v.Role, core.RoleQuality)
	}
	if v.Sentiment != core.SentimentNegative || v.Confidence != 0.9 {
		t.Errorf("verdict = %s(%v), want negative(0.9)", v.Sentiment, v.Confidence)
	}

	calls := oracle.Calls()
	if len(calls) != 1 {
		t.Fatalf("oracle calls = %d, want 1", len(calls))
	}
	if !strings.Contains(calls[0].Prompt, testDocument) {
		t.Error("prompt should embed the document")
	}
	if calls[0].Prior != nil {
		t.Error("initial round should carry no prior context")
	}
}

func TestSpecialistClient_Call_RetriesParseFailure(t *testing.T) {
	var n atomic.Int32
	oracle := testutil.NewMockOracle().WithRoleFunc(core.RoleBusiness,
		func(ctx context.Context, req core.OracleRequest) (*core.OracleResult, error) {
			if n.Add(1) == 1 {
				return testutil.Answer("I think it is fine"), nil
			}
			return testutil.Answer(testutil.VerdictJSON(core.SentimentPositive, 0.7, "ok")), nil
		})
	client := newTestClient(t, oracle)
	role := testProfiles(t, core.RoleBusiness)[0]

	v := client.Call(context.Background(), role, testDocument, 0, nil, CallOptionsFor("a1", testConfig()))

	if v.Degraded {
		t.Fatalf("Call() degraded after retry: %s", v.Error)
	}
	if got := oracle.CallCount(core.RoleBusiness); got != 2 {
		t.Errorf("CallCount() = %d, want 2", got)
	}
}

func TestSpecialistClient_Call_DegradesAfterRetries(t *testing.T) {
	oracle := testutil.NewMockOracle().WithRoleError(core.RoleTechnical, testutil.ErrTest)
	metrics := service.NewMetricsCollector()
	bus := events.New(10)
	defer bus.Close()
	sub := bus.Subscribe(events.TypeVerdictDegraded)

	prompts, err := service.NewPromptRenderer()
	if err != nil {
		t.Fatal(err)
	}
	client := NewSpecialistClient(oracle, prompts, nil, metrics, bus, nil)
	role := testProfiles(t, core.RoleTechnical)[0]

	cfg := testConfig()
	cfg.PerCallMaxRetries = 2
	v := client.Call(context.Background(), role, testDocument, 3, nil, CallOptionsFor("a1", cfg))

	if !v.Degraded {
		t.Fatal("Call() should degrade when every attempt fails")
	}
	if v.Sentiment != core.SentimentNeutral || v.Confidence != 0 {
		t.Errorf("degraded verdict = %s(%v), want neutral(0)", v.Sentiment, v.Confidence)
	}
	if v.Error == "" {
		t.Error("degraded verdict should carry the error")
	}
	if got := oracle.CallCount(core.RoleTechnical); got != 3 {
		t.Errorf("CallCount() = %d, want 3", got)
	}

	rm, ok := metrics.Role(core.RoleTechnical)
	if !ok {
		t.Fatal("metrics missing role")
	}
	if rm.Degraded != 1 {
		t.Errorf("Degraded = %d, want 1", rm.Degraded)
	}

	select {
	case ev := <-sub:
		de, ok := ev.(events.VerdictDegradedEvent)
		if !ok {
			t.Fatalf("event type = %T", ev)
		}
		if de.Role != core.RoleTechnical || de.Round != 3 {
			t.Errorf("event = %+v", de)
		}
	case <-time.After(time.Second):
		t.Fatal("no degraded event published")
	}
}

func TestSpecialistClient_Call_NonRetryableStopsImmediately(t *testing.T) {
	rejected := core.ErrOracle(core.CodeOracleRejected, "bad request")
	rejected.Retryable = false
	oracle := testutil.NewMockOracle().WithRoleError(core.RoleQuality, rejected)
	client := newTestClient(t, oracle)
	role := testProfiles(t, core.RoleQuality)[0]

	cfg := testConfig()
	cfg.PerCallMaxRetries = 5
	v := client.Call(context.Background(), role, testDocument, 0, nil, CallOptionsFor("a1", cfg))

	if !v.Degraded {
		t.Fatal("expected degraded verdict")
	}
	if got := oracle.CallCount(core.RoleQuality); got != 1 {
		t.Errorf("CallCount() = %d, want 1", got)
	}
}

func TestSpecialistClient_Call_Timeout(t *testing.T) {
	oracle := testutil.NewMockOracle().WithLatency(200*time.Millisecond, 200*time.Millisecond)
	client := newTestClient(t, oracle)
	role := testProfiles(t, core.RoleQuality)[0]

	cfg := testConfig()
	cfg.PerCallTimeout = 10 * time.Millisecond
	cfg.PerCallMaxRetries = 1

	start := time.Now()
	v := client.Call(context.Background(), role, testDocument, 0, nil, CallOptionsFor("a1", cfg))

	if !v.Degraded {
		t.Fatal("expected degraded verdict after timeout")
	}
	if !strings.Contains(v.Error, "did not answer") {
		t.Errorf("Error = %q, want timeout message", v.Error)
	}
	if got := oracle.CallCount(core.RoleQuality); got != 2 {
		t.Errorf("timeouts should be retried: CallCount() = %d, want 2", got)
	}
	if elapsed := time.Since(start); elapsed > 150*time.Millisecond {
		t.Errorf("Call() took %v, per-attempt timeout not applied", elapsed)
	}
}

func TestSpecialistClient_Call_DiscussionPrompt(t *testing.T) {
	oracle := testutil.NewMockOracle()
	client := newTestClient(t, oracle)
	role := testProfiles(t, core.RoleQuality)[0]

	prev := core.NewRound(0, []core.Verdict{
		{Role: core.RoleQuality, Sentiment: core.SentimentPositive, Confidence: 0.6, Reasoning: "solid build"},
		{Role: core.RoleBusiness, Sentiment: core.SentimentNegative, Confidence: 0.9, Reasoning: "overpriced"},
	}, 1)
	prior := prev.Snapshot()

	v := client.Call(context.Background(), role, testDocument, 1, prior, CallOptionsFor("a1", testConfig()))
	if v.Degraded {
		t.Fatalf("Call() degraded: %s", v.Error)
	}

	calls := oracle.Calls()
	if len(calls) != 1 {
		t.Fatalf("calls = %d, want 1", len(calls))
	}
	if calls[0].Round != 1 {
		t.Errorf("Round = %d, want 1", calls[0].Round)
	}
	if calls[0].Prior != prior {
		t.Error("prior context should be forwarded to the oracle")
	}
	if !strings.Contains(calls[0].Prompt, "overpriced") {
		t.Error("discussion prompt should quote colleagues' reasoning")
	}
}

func TestClassifyCallError(t *testing.T) {
	timeout := 5 * time.Millisecond

	t.Run("caller cancelled", func(t *testing.T) {
		parent, cancel := context.WithCancel(context.Background())
		cancel()
		err := classifyCallError(parent, parent, context.Canceled, timeout)
		if !core.IsCategory(err, core.ErrCatCancelled) {
			t.Errorf("category = %v, want cancelled", core.GetCategory(err))
		}
		if core.IsRetryable(err) {
			t.Error("cancellation must not be retryable")
		}
	})

	t.Run("attempt deadline", func(t *testing.T) {
		attemptCtx, cancel := context.WithTimeout(context.Background(), time.Nanosecond)
		defer cancel()
		<-attemptCtx.Done()
		err := classifyCallError(context.Background(), attemptCtx, context.DeadlineExceeded, timeout)
		if !core.IsCategory(err, core.ErrCatTimeout) {
			t.Errorf("category = %v, want timeout", core.GetCategory(err))
		}
		if !core.IsRetryable(err) {
			t.Error("timeouts should be retryable")
		}
	})

	t.Run("domain error passes through", func(t *testing.T) {
		in := core.ErrRateLimit("slow down")
		err := classifyCallError(context.Background(), context.Background(), in, timeout)
		if !errors.Is(err, in) {
			t.Errorf("err = %v, want %v", err, in)
		}
	})

	t.Run("plain error", func(t *testing.T) {
		err := classifyCallError(context.Background(), context.Background(), testutil.ErrTest, timeout)
		if core.GetCode(err) != core.CodeOracleUnavailable {
			t.Errorf("code = %q, want %q", core.GetCode(err), core.CodeOracleUnavailable)
		}
		if !errors.Is(err, testutil.ErrTest) {
			t.Error("cause should be preserved")
		}
	})
}
