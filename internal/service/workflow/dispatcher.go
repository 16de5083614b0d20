package workflow

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hugo-lorenzo-mato/panel/internal/core"
	"github.com/hugo-lorenzo-mato/panel/internal/logging"
	"github.com/hugo-lorenzo-mato/panel/internal/service"
)

// Dispatcher fans a round out to every role in parallel and fans the
// verdicts back in, in role order.
type Dispatcher struct {
	client    *SpecialistClient
	evaluator *service.DisagreementEvaluator
	logger    *logging.Logger
}

// NewDispatcher creates a dispatcher.
func NewDispatcher(client *SpecialistClient, evaluator *service.DisagreementEvaluator, logger *logging.Logger) *Dispatcher {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Dispatcher{client: client, evaluator: evaluator, logger: logger}
}

// DispatchOptions bounds one round.
type DispatchOptions struct {
	Call CallOptions
	// Parallelism caps concurrent calls; <= 0 means one goroutine per role.
	Parallelism int
}

// Dispatch runs every role against document and returns the round with
// index. Verdict i always belongs to roles[i], whatever order the calls
// finish in.
func (d *Dispatcher) Dispatch(ctx context.Context, index int, roles []core.RoleProfile, document string, prior *core.PriorContext, opts DispatchOptions) core.Round {
	start := time.Now()
	verdicts := make([]core.Verdict, len(roles))

	limit := opts.Parallelism
	if limit <= 0 || limit > len(roles) {
		limit = len(roles)
	}

	// Calls never fail, so a plain group: one slow role must not cancel
	// its siblings.
	var g errgroup.Group
	if limit > 0 {
		g.SetLimit(limit)
	}
	for i, role := range roles {
		g.Go(func() error {
			verdicts[i] = d.client.Call(ctx, role, document, index, prior, opts.Call)
			return nil
		})
	}
	_ = g.Wait()

	score := d.evaluator.Score(verdicts)
	round := core.NewRound(index, verdicts, score)

	d.logger.WithRound(index).Info("round dispatched",
		"roles", len(roles),
		"degraded", round.DegradedCount(),
		"disagreement", round.DisagreementScore,
		"duration", time.Since(start),
	)
	return round
}
