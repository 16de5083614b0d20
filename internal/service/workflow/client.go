package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hugo-lorenzo-mato/panel/internal/core"
	"github.com/hugo-lorenzo-mato/panel/internal/events"
	"github.com/hugo-lorenzo-mato/panel/internal/logging"
	"github.com/hugo-lorenzo-mato/panel/internal/service"
)

// CallOptions bounds a single specialist call.
type CallOptions struct {
	// Timeout applies to each attempt separately.
	Timeout time.Duration
	Policy  *service.RetryPolicy
	// AnalysisID tags emitted events.
	AnalysisID string
}

// CallOptionsFor derives call options from an analysis config.
func CallOptionsFor(analysisID string, cfg core.WorkflowConfig) CallOptions {
	return CallOptions{
		Timeout:    cfg.PerCallTimeout,
		Policy:     service.RetryPolicyFor(cfg),
		AnalysisID: analysisID,
	}
}

// SpecialistClient wraps one oracle call per role with prompt rendering,
// per-attempt timeouts, retries and verdict parsing. It never returns an
// error: every failure ends in a degraded verdict.
type SpecialistClient struct {
	oracle   core.Oracle
	prompts  *service.PromptRenderer
	limiters *service.RateLimiterRegistry
	metrics  *service.MetricsCollector
	bus      *events.EventBus
	logger   *logging.Logger
}

// NewSpecialistClient creates a client. limiters, metrics and bus may be nil.
func NewSpecialistClient(
	oracle core.Oracle,
	prompts *service.PromptRenderer,
	limiters *service.RateLimiterRegistry,
	metrics *service.MetricsCollector,
	bus *events.EventBus,
	logger *logging.Logger,
) *SpecialistClient {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &SpecialistClient{
		oracle:   oracle,
		prompts:  prompts,
		limiters: limiters,
		metrics:  metrics,
		bus:      bus,
		logger:   logger,
	}
}

// Call asks role for its verdict on document. prior is nil for the initial
// round.
func (c *SpecialistClient) Call(ctx context.Context, role core.RoleProfile, document string, round int, prior *core.PriorContext, opts CallOptions) core.Verdict {
	log := c.logger.WithRole(role.Name).WithRound(round)
	start := time.Now()

	prompt, err := c.renderPrompt(role, document, prior)
	if err != nil {
		log.Error("rendering specialist prompt", "error", err)
		return c.degrade(role.Name, round, opts, 0, 0, start, err)
	}

	req := core.OracleRequest{
		Role:     role.Name,
		Prompt:   prompt,
		Round:    round,
		Document: document,
		Prior:    prior,
	}

	var verdict core.Verdict
	attempts, failures := 0, 0
	policy := opts.Policy
	if policy == nil {
		policy = service.DefaultRetryPolicy()
	}

	err = policy.ExecuteWithNotify(ctx, func(ctx context.Context) error {
		attempts++
		v, err := c.attempt(ctx, req, opts.Timeout)
		if err != nil {
			failures++
			return err
		}
		verdict = v
		return nil
	}, func(attempt int, err error, delay time.Duration) {
		log.Warn("specialist call failed, retrying",
			"attempt", attempt,
			"error", err,
			"delay", delay,
		)
	})
	if err != nil {
		log.Warn("specialist degraded", "attempts", attempts, "error", err)
		return c.degrade(role.Name, round, opts, attempts, failures, start, err)
	}

	c.metrics.RecordCall(role.Name, attempts, failures, false, time.Since(start))
	log.Debug("specialist answered",
		"sentiment", verdict.Sentiment,
		"confidence", verdict.Confidence,
		"attempts", attempts,
	)
	return verdict
}

func (c *SpecialistClient) renderPrompt(role core.RoleProfile, document string, prior *core.PriorContext) (string, error) {
	if prior == nil {
		return c.prompts.RenderSpecialist(service.SpecialistParams{Role: role, Document: document})
	}
	return c.prompts.RenderDiscussion(service.NewDiscussionParams(role, document, prior))
}

// attempt runs one oracle call under its own deadline and classifies the
// outcome for the retry policy.
func (c *SpecialistClient) attempt(ctx context.Context, req core.OracleRequest, timeout time.Duration) (core.Verdict, error) {
	if limiter := c.limiters.Get(req.Role); limiter != nil {
		if err := limiter.Acquire(ctx); err != nil {
			return core.Verdict{}, core.ErrCancelled("waiting for rate limiter").WithCause(err)
		}
	}

	attemptCtx, cancel := withAttemptTimeout(ctx, timeout)
	defer cancel()

	res, err := c.oracle.Execute(attemptCtx, req)
	if err != nil {
		return core.Verdict{}, classifyCallError(ctx, attemptCtx, err, timeout)
	}
	if res == nil {
		return core.Verdict{}, core.ErrParse("oracle returned no answer")
	}
	return ParseVerdict(req.Role, res.Output)
}

// withAttemptTimeout derives the deadline of one attempt; a zero timeout
// leaves ctx unbounded.
func withAttemptTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}

// classifyCallError turns a transport failure into a domain error. Caller
// cancellation wins over the attempt deadline.
func classifyCallError(parent, attemptCtx context.Context, err error, timeout time.Duration) error {
	if parent.Err() != nil {
		return core.ErrCancelled("call cancelled by caller").WithCause(parent.Err())
	}
	if errors.Is(attemptCtx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return core.ErrTimeout(fmt.Sprintf("oracle did not answer within %s", timeout)).WithCause(err)
	}
	var domErr *core.DomainError
	if errors.As(err, &domErr) {
		return err
	}
	return core.ErrOracle(core.CodeOracleUnavailable, "oracle call failed").WithCause(err)
}

func (c *SpecialistClient) degrade(role string, round int, opts CallOptions, attempts, failures int, start time.Time, cause error) core.Verdict {
	v := core.NewDegradedVerdict(role, cause)
	c.metrics.RecordCall(role, attempts, failures, true, time.Since(start))
	c.bus.Publish(events.NewVerdictDegradedEvent(opts.AnalysisID, role, round, v.Error))
	return v
}
