package workflow

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hugo-lorenzo-mato/panel/internal/core"
	"github.com/hugo-lorenzo-mato/panel/internal/service"
	"github.com/hugo-lorenzo-mato/panel/internal/testutil"
)

func newTestDispatcher(t *testing.T, oracle core.Oracle) *Dispatcher {
	t.Helper()
	return NewDispatcher(newTestClient(t, oracle), service.NewDisagreementEvaluator(service.DefaultAgreementBuckets()), nil)
}

func TestDispatcher_PreservesRoleOrder(t *testing.T) {
	oracle := testutil.NewMockOracle().
		WithLatency(0, 20*time.Millisecond).
		WithVerdict(core.RoleQuality, core.SentimentPositive, 0.9).
		WithVerdict(core.RoleExperience, core.SentimentNegative, 0.8).
		WithVerdict(core.RoleUserExperience, core.SentimentMixed, 0.7).
		WithVerdict(core.RoleBusiness, core.SentimentNeutral, 0.6).
		WithVerdict(core.RoleTechnical, core.SentimentPositive, 0.5)
	d := newTestDispatcher(t, oracle)
	roles := testProfiles(t, core.DefaultRoles...)

	for run := 0; run < 5; run++ {
		round := d.Dispatch(context.Background(), 0, roles, testDocument, nil, DispatchOptions{
			Call: CallOptionsFor("a1", testConfig()),
		})

		if len(round.Verdicts) != len(roles) {
			t.Fatalf("verdicts = %d, want %d", len(round.Verdicts), len(roles))
		}
		for i, v := range round.Verdicts {
			if v.Role != roles[i].Name {
				t.Errorf("run %d: verdict[%d].Role = %q, want %q", run, i, v.Role, roles[i].Name)
			}
		}
		if round.DisagreementScore != 1 {
			t.Errorf("DisagreementScore = %v, want 1", round.DisagreementScore)
		}
	}
}

func TestDispatcher_DegradedRoleDoesNotFailRound(t *testing.T) {
	oracle := testutil.NewMockOracle().
		WithVerdict(core.RoleQuality, core.SentimentPositive, 0.9).
		WithVerdict(core.RoleExperience, core.SentimentPositive, 0.8).
		WithRoleError(core.RoleBusiness, testutil.ErrTest)
	d := newTestDispatcher(t, oracle)
	roles := testProfiles(t, core.RoleQuality, core.RoleExperience, core.RoleBusiness)

	round := d.Dispatch(context.Background(), 0, roles, testDocument, nil, DispatchOptions{
		Call: CallOptionsFor("a1", testConfig()),
	})

	if got := round.DegradedCount(); got != 1 {
		t.Errorf("DegradedCount() = %d, want 1", got)
	}
	if !round.Verdicts[2].Degraded {
		t.Error("business verdict should be degraded")
	}
	// Degraded verdicts are excluded from the spread.
	if round.DisagreementScore != 0 {
		t.Errorf("DisagreementScore = %v, want 0", round.DisagreementScore)
	}
}

func TestDispatcher_RunsInParallel(t *testing.T) {
	var inFlight, peak atomic.Int32
	oracle := testutil.NewMockOracle().WithFunc(func(ctx context.Context, req core.OracleRequest) (*core.OracleResult, error) {
		n := inFlight.Add(1)
		defer inFlight.Add(-1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(30 * time.Millisecond)
		return testutil.Answer(testutil.VerdictJSON(core.SentimentNeutral, 0.5, "ok")), nil
	})
	d := newTestDispatcher(t, oracle)
	roles := testProfiles(t, core.DefaultRoles...)

	d.Dispatch(context.Background(), 0, roles, testDocument, nil, DispatchOptions{
		Call: CallOptionsFor("a1", testConfig()),
	})
	if got := peak.Load(); got != int32(len(roles)) {
		t.Errorf("peak concurrency = %d, want %d", got, len(roles))
	}

	peak.Store(0)
	d.Dispatch(context.Background(), 0, roles, testDocument, nil, DispatchOptions{
		Call:        CallOptionsFor("a1", testConfig()),
		Parallelism: 2,
	})
	if got := peak.Load(); got > 2 {
		t.Errorf("peak concurrency = %d, want <= 2", got)
	}
}

func TestDispatcher_Cancelled(t *testing.T) {
	oracle := testutil.NewMockOracle().WithLatency(time.Second, time.Second)
	d := newTestDispatcher(t, oracle)
	roles := testProfiles(t, core.DefaultRoles...)

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(20*time.Millisecond, cancel)

	start := time.Now()
	round := d.Dispatch(ctx, 0, roles, testDocument, nil, DispatchOptions{
		Call: CallOptionsFor("a1", testConfig()),
	})

	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Errorf("Dispatch() took %v after cancellation", elapsed)
	}
	if !round.AllDegraded() {
		t.Error("every in-flight call should degrade on cancellation")
	}
	if got := oracle.CallCount(""); got != len(roles) {
		t.Errorf("cancelled calls must not be retried: CallCount() = %d, want %d", got, len(roles))
	}
}
