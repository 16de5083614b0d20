package workflow

import (
	"context"
	"strings"

	"github.com/hugo-lorenzo-mato/panel/internal/core"
	"github.com/hugo-lorenzo-mato/panel/internal/logging"
	"github.com/hugo-lorenzo-mato/panel/internal/service"
)

// Advisor produces the business narrative of a finished consensus. It is
// purely additive: a failure never changes the numeric result.
type Advisor struct {
	oracle  core.Oracle
	prompts *service.PromptRenderer
	logger  *logging.Logger
}

// NewAdvisor creates an advisor.
func NewAdvisor(oracle core.Oracle, prompts *service.PromptRenderer, logger *logging.Logger) *Advisor {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Advisor{oracle: oracle, prompts: prompts, logger: logger}
}

type rawAdvisory struct {
	Narrative       string   `json:"narrative"`
	Recommendations []string `json:"recommendations"`
	Priority        string   `json:"priority"`
}

// AdvisoryRound is the round index reported to the oracle for the advisory
// call; it never collides with a discussion round.
const AdvisoryRound = -1

// Advise asks profile for a narrative over report.
func (a *Advisor) Advise(ctx context.Context, profile core.RoleProfile, document string, report *core.ConsensusReport, opts CallOptions) (*core.Advisory, error) {
	final, ok := report.FinalRound()
	if !ok {
		return nil, core.ErrState("NO_ROUNDS", "cannot advise on an empty report")
	}

	prompt, err := a.prompts.RenderAdvisory(service.AdvisoryParams{
		Role:             profile,
		Document:         document,
		Sentiment:        report.FinalSentiment,
		Confidence:       report.FinalConfidence,
		AgreementLevel:   report.AgreementLevel,
		ConsensusReached: report.ConsensusReached,
		Rounds:           len(report.Rounds),
		Verdicts:         final.Snapshot().Verdicts,
	})
	if err != nil {
		return nil, err
	}

	req := core.OracleRequest{
		Role:     profile.Name,
		Prompt:   prompt,
		Round:    AdvisoryRound,
		Document: document,
		Prior:    final.Snapshot(),
	}

	policy := opts.Policy
	if policy == nil {
		policy = service.DefaultRetryPolicy()
	}

	var advisory *core.Advisory
	err = policy.Execute(ctx, func(ctx context.Context) error {
		attemptCtx, cancel := withAttemptTimeout(ctx, opts.Timeout)
		defer cancel()

		res, err := a.oracle.Execute(attemptCtx, req)
		if err != nil {
			return classifyCallError(ctx, attemptCtx, err, opts.Timeout)
		}
		if res == nil {
			return core.ErrParse("advisor returned no answer")
		}
		adv, err := ParseAdvisory(res.Output)
		if err != nil {
			return err
		}
		advisory = adv
		return nil
	})
	if err != nil {
		return nil, err
	}

	a.logger.Debug("advisory produced", "recommendations", len(advisory.Recommendations))
	return advisory, nil
}

// ParseAdvisory accepts either the requested JSON object or free text,
// which is used as the narrative.
func ParseAdvisory(output string) (*core.Advisory, error) {
	text := strings.TrimSpace(output)
	if text == "" {
		return nil, core.ErrParse("advisor returned an empty answer")
	}

	var raw rawAdvisory
	if err := ParseJSON(text, &raw); err == nil && strings.TrimSpace(raw.Narrative) != "" {
		adv := &core.Advisory{
			Narrative: strings.TrimSpace(raw.Narrative),
			Priority:  strings.ToLower(strings.TrimSpace(raw.Priority)),
		}
		for _, r := range raw.Recommendations {
			if r = strings.TrimSpace(r); r != "" {
				adv.Recommendations = append(adv.Recommendations, r)
			}
		}
		return adv, nil
	}

	if strings.HasPrefix(text, "{") {
		return nil, core.ErrParse("advisor JSON has no narrative")
	}
	return &core.Advisory{Narrative: text}, nil
}
