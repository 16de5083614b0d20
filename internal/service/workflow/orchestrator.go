package workflow

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hugo-lorenzo-mato/panel/internal/core"
	"github.com/hugo-lorenzo-mato/panel/internal/events"
	"github.com/hugo-lorenzo-mato/panel/internal/logging"
	"github.com/hugo-lorenzo-mato/panel/internal/service"
)

// CatalogSource returns the role catalog to resolve names against. It is
// called once per analysis so a reloaded catalog applies to the next run.
type CatalogSource func() *core.RoleCatalog

// Orchestrator runs analyses. It holds no per-analysis state and may serve
// concurrent calls.
type Orchestrator struct {
	oracle      core.Oracle
	catalog     CatalogSource
	prompts     *service.PromptRenderer
	evaluator   *service.DisagreementEvaluator
	synthesizer *service.Synthesizer
	limiters    *service.RateLimiterRegistry
	metrics     *service.MetricsCollector
	bus         *events.EventBus
	logger      *logging.Logger
	advisorRole string
	buckets     *service.AgreementBuckets
	scopes      []OracleScope
}

// OracleScope wraps the oracle for the duration of one analysis. Whatever
// state the wrapper keeps is dropped when the analysis ends.
type OracleScope func(core.Oracle) core.Oracle

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithCatalog uses a fixed role catalog.
func WithCatalog(c *core.RoleCatalog) Option {
	return func(o *Orchestrator) {
		o.catalog = func() *core.RoleCatalog { return c }
	}
}

// WithCatalogSource uses a dynamic role catalog.
func WithCatalogSource(src CatalogSource) Option {
	return func(o *Orchestrator) {
		o.catalog = src
	}
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(o *Orchestrator) {
		o.logger = l
	}
}

// WithEventBus publishes analysis events to bus.
func WithEventBus(bus *events.EventBus) Option {
	return func(o *Orchestrator) {
		o.bus = bus
	}
}

// WithMetrics records call and analysis metrics.
func WithMetrics(m *service.MetricsCollector) Option {
	return func(o *Orchestrator) {
		o.metrics = m
	}
}

// WithSynthesizer replaces the default synthesizer.
func WithSynthesizer(s *service.Synthesizer) Option {
	return func(o *Orchestrator) {
		o.synthesizer = s
	}
}

// WithBuckets sets the agreement buckets used by evaluation and reporting.
// They apply regardless of option order and never modify a synthesizer
// passed with WithSynthesizer.
func WithBuckets(b service.AgreementBuckets) Option {
	return func(o *Orchestrator) {
		o.buckets = &b
	}
}

// WithAnalysisScope wraps the oracle anew for every analysis. A nil scope
// is ignored.
func WithAnalysisScope(scope OracleScope) Option {
	return func(o *Orchestrator) {
		if scope != nil {
			o.scopes = append(o.scopes, scope)
		}
	}
}

// WithRateLimiters gates oracle calls per role.
func WithRateLimiters(r *service.RateLimiterRegistry) Option {
	return func(o *Orchestrator) {
		o.limiters = r
	}
}

// WithAdvisorRole sets the catalog role used by the advise stage.
func WithAdvisorRole(name string) Option {
	return func(o *Orchestrator) {
		o.advisorRole = name
	}
}

// NewOrchestrator creates an orchestrator backed by oracle.
func NewOrchestrator(oracle core.Oracle, opts ...Option) (*Orchestrator, error) {
	if oracle == nil {
		return nil, core.ErrValidation(core.CodeInvalidConfig, "oracle is required")
	}
	prompts, err := service.NewPromptRenderer()
	if err != nil {
		return nil, fmt.Errorf("creating prompt renderer: %w", err)
	}

	o := &Orchestrator{
		oracle:      oracle,
		catalog:     core.DefaultRoleCatalog,
		prompts:     prompts,
		evaluator:   service.NewDisagreementEvaluator(service.DefaultAgreementBuckets()),
		synthesizer: service.NewSynthesizer(),
		logger:      logging.NewNop(),
		advisorRole: core.RoleBusinessAdvisor,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.buckets != nil {
		o.evaluator = service.NewDisagreementEvaluator(*o.buckets)
		synth := *o.synthesizer
		synth.Buckets = *o.buckets
		o.synthesizer = &synth
	}
	return o, nil
}

// Catalog returns the role catalog the next analysis will use.
func (o *Orchestrator) Catalog() *core.RoleCatalog {
	return o.catalog()
}

// AnalysisRequest is one analysis invocation.
type AnalysisRequest struct {
	// ID tags logs and events; generated when empty.
	ID       string
	Document string
	Config   core.WorkflowConfig
}

// RunAnalysis analyzes document with cfg. It returns a validation error for
// bad input and otherwise always returns a report, possibly flagged low
// confidence.
func (o *Orchestrator) RunAnalysis(ctx context.Context, document string, cfg core.WorkflowConfig) (*core.ConsensusReport, error) {
	return o.Analyze(ctx, AnalysisRequest{Document: document, Config: cfg})
}

// Analyze runs req through the state machine.
func (o *Orchestrator) Analyze(ctx context.Context, req AnalysisRequest) (*core.ConsensusReport, error) {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	o.metrics.StartAnalysis()

	r, err := o.prepare(req)
	if err != nil {
		o.metrics.RejectAnalysis()
		o.logger.WithAnalysis(req.ID).Warn("analysis rejected", "error", err)
		return nil, err
	}

	start := time.Now()
	r.log.Info("analysis started",
		"roles", strings.Join(req.Config.AgentRoles, ","),
		"max_rounds", req.Config.MaxDiscussionRounds,
		"threshold", req.Config.DisagreementThreshold,
		"document_bytes", len(req.Document),
	)
	o.bus.Publish(events.NewAnalysisStartedEvent(req.ID, req.Config))

	report := o.execute(ctx, r)

	o.metrics.EndAnalysis(report, time.Since(start))
	o.bus.PublishPriority(events.NewAnalysisCompletedEvent(req.ID, report))
	r.log.Info("analysis completed",
		"sentiment", report.FinalSentiment,
		"confidence", report.FinalConfidence,
		"agreement", report.AgreementLevel,
		"consensus", report.ConsensusReached,
		"rounds", len(report.Rounds),
		"duration", time.Since(start),
	)
	return report, nil
}

// run is the state of one analysis.
type run struct {
	id         string
	document   string
	cfg        core.WorkflowConfig
	roles      []core.RoleProfile
	weights    map[string]float64
	oracle     core.Oracle
	advisor    *core.RoleProfile
	state      core.State
	rounds     []core.Round
	prior      *core.PriorContext
	report     *core.ConsensusReport
	dispatcher *Dispatcher
	discussion *DiscussionManager
	dispatch   DispatchOptions
	log        *logging.Logger
}

// prepare validates the request before any oracle call is made.
func (o *Orchestrator) prepare(req AnalysisRequest) (*run, error) {
	if err := req.Config.Validate(); err != nil {
		return nil, err
	}
	if err := core.ValidateDocument(req.Document); err != nil {
		return nil, err
	}

	catalog := o.catalog()
	roles, err := catalog.Resolve(req.Config.AgentRoles)
	if err != nil {
		return nil, err
	}

	weights := make(map[string]float64, len(roles))
	for _, p := range roles {
		weights[p.Name] = p.VoteWeight()
	}

	oracle := o.oracle
	for _, scope := range o.scopes {
		oracle = scope(oracle)
	}

	log := o.logger.WithAnalysis(req.ID)
	client := NewSpecialistClient(oracle, o.prompts, o.limiters, o.metrics, o.bus, log)

	r := &run{
		id:         req.ID,
		document:   req.Document,
		cfg:        req.Config,
		roles:      roles,
		weights:    weights,
		oracle:     oracle,
		state:      core.StateDispatch,
		dispatcher: NewDispatcher(client, o.evaluator, log),
		discussion: NewDiscussionManager(req.Config.DisagreementThreshold, req.Config.MaxDiscussionRounds),
		dispatch: DispatchOptions{
			Call:        CallOptionsFor(req.ID, req.Config),
			Parallelism: req.Config.Parallelism(),
		},
		log: log,
	}
	if req.Config.Advise {
		if p, ok := catalog.Get(o.advisorRole); ok {
			r.advisor = &p
		}
	}
	return r, nil
}

// execute drives the state machine until Done.
func (o *Orchestrator) execute(ctx context.Context, r *run) *core.ConsensusReport {
	for !r.state.IsTerminal() {
		var next core.State

		switch r.state {
		case core.StateDispatch:
			round := r.dispatcher.Dispatch(ctx, len(r.rounds), r.roles, r.document, r.prior, r.dispatch)
			r.rounds = append(r.rounds, round)
			next = core.StateEvaluate

		case core.StateEvaluate:
			last := r.rounds[len(r.rounds)-1]
			discuss := r.discussion.ShouldDiscuss(last)
			if discuss && ctx.Err() != nil {
				r.log.Warn("skipping discussion, analysis cancelled", "round", last.Index)
				discuss = false
			}
			o.bus.Publish(events.NewRoundCompletedEvent(r.id, last, o.evaluator.Level(last.DisagreementScore), discuss))
			next = core.StateSynthesize
			if discuss {
				next = core.StateDiscuss
			} else if last.Index > 0 {
				r.log.Info("discussion ended",
					"rounds", len(r.rounds),
					"converged", r.discussion.Converged(last),
					"disagreement", last.DisagreementScore,
				)
			}

		case core.StateDiscuss:
			r.prior = r.discussion.Prepare(r.rounds[len(r.rounds)-1])
			next = core.StateDispatch

		case core.StateSynthesize:
			r.report = o.synthesizer.Report(r.rounds, r.cfg.DisagreementThreshold, r.weights)
			next = core.StateDone
			if r.cfg.Advise {
				next = core.StateAdvise
			}

		case core.StateAdvise:
			o.advise(ctx, r)
			next = core.StateDone

		default:
			// Unknown states end the run with whatever has been synthesized.
			r.log.Error("unknown analysis state", "state", r.state)
			next = core.StateDone
		}

		o.transition(r, next)
	}

	if r.report == nil {
		r.report = o.synthesizer.Report(r.rounds, r.cfg.DisagreementThreshold, r.weights)
	}
	return r.report
}

func (o *Orchestrator) transition(r *run, next core.State) {
	if !r.state.CanTransitionTo(next) {
		r.log.Error("invalid state transition", "from", r.state, "to", next)
	}
	r.log.Debug("state transition", "from", r.state, "to", next, "round", len(r.rounds)-1)
	o.bus.Publish(events.NewStateChangedEvent(r.id, r.state, next, len(r.rounds)-1))
	r.state = next
}

func (o *Orchestrator) advise(ctx context.Context, r *run) {
	if r.advisor == nil {
		r.report.AdvisoryError = fmt.Sprintf("advisor role %q is not in the catalog", o.advisorRole)
		r.log.Warn("advise skipped", "reason", r.report.AdvisoryError)
		return
	}
	if ctx.Err() != nil {
		r.report.AdvisoryError = "analysis cancelled before advise"
		return
	}

	adv := NewAdvisor(r.oracle, o.prompts, r.log.WithRole(r.advisor.Name))
	advisory, err := adv.Advise(ctx, *r.advisor, r.document, r.report, r.dispatch.Call)
	if err != nil {
		r.report.AdvisoryError = err.Error()
		r.log.Warn("advise failed, narrative omitted", "error", err)
		return
	}
	r.report.Advisory = advisory
}
