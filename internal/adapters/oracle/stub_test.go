package oracle

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hugo-lorenzo-mato/panel/internal/core"
	"github.com/hugo-lorenzo-mato/panel/internal/service/workflow"
)

func stubVerdictFor(t *testing.T, o *StubOracle, req core.OracleRequest) core.Verdict {
	t.Helper()
	res, err := o.Execute(context.Background(), req)
	require.NoError(t, err)
	v, err := workflow.ParseVerdict(req.Role, res.Output)
	require.NoError(t, err)
	return v
}

func TestStubOracle_Classify(t *testing.T) {
	o := NewStubOracle(nil)

	tests := []struct {
		name     string
		document string
		want     core.Sentiment
	}{
		{"positive", "Great phone, I love it. Excellent battery and very reliable.", core.SentimentPositive},
		{"negative", "Terrible. The screen broke after a week and support was rude.", core.SentimentNegative},
		{"negated", "The battery is not good. Not reliable either.", core.SentimentNegative},
		{"mixed", "Great camera but terrible battery.", core.SentimentMixed},
		{"neutral", "I received the package on Tuesday.", core.SentimentNeutral},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := stubVerdictFor(t, o, core.OracleRequest{Role: core.RoleTechnical, Document: tt.document})
			assert.Equal(t, tt.want, v.Sentiment)
			assert.GreaterOrEqual(t, v.Confidence, 0.5)
			assert.LessOrEqual(t, v.Confidence, 1.0)
		})
	}
}

func TestStubOracle_FocusWordsRaiseWeight(t *testing.T) {
	catalog := core.DefaultRoleCatalog()
	technical, _ := catalog.Get(core.RoleTechnical)
	business, _ := catalog.Get(core.RoleBusiness)
	doc := "The battery is great. The box was ugly and bad."

	tech := ScoreDocument(technical, doc)
	biz := ScoreDocument(business, doc)

	assert.Equal(t, 2.0, tech.Positive)
	assert.Equal(t, 1.0, tech.Negative)
	assert.Equal(t, []string{"battery"}, tech.Topics)
	assert.Equal(t, 1.0, biz.Positive)
	assert.Empty(t, biz.Topics)
}

func TestStubOracle_Deterministic(t *testing.T) {
	o := NewStubOracle(nil)
	req := core.OracleRequest{Role: core.RoleBusiness, Document: "Too expensive, but I still recommend it."}
	first, err := o.Execute(context.Background(), req)
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		again, err := o.Execute(context.Background(), req)
		require.NoError(t, err)
		assert.Equal(t, first.Output, again.Output)
	}
}

func TestStubOracle_DiscussionMovesTowardMajority(t *testing.T) {
	o := NewStubOracle(nil)
	prior := &core.PriorContext{
		RoundIndex: 0,
		Verdicts: []core.PriorVerdict{
			{Role: core.RoleTechnical, Sentiment: core.SentimentPositive, Confidence: 0.7},
			{Role: core.RoleQuality, Sentiment: core.SentimentNegative, Confidence: 0.8},
			{Role: core.RoleExperience, Sentiment: core.SentimentNegative, Confidence: 0.6},
			{Role: core.RoleBusiness, Degraded: true, Sentiment: core.SentimentNeutral},
		},
	}
	req := core.OracleRequest{
		Role:     core.RoleTechnical,
		Round:    1,
		Document: "Great battery life.",
		Prior:    prior,
	}

	v := stubVerdictFor(t, o, req)
	assert.Equal(t, core.SentimentNegative, v.Sentiment)
	assert.InDelta(t, 0.63, v.Confidence, 1e-9)
	assert.Contains(t, v.Reasoning, "Revised after discussion")
}

func TestStubOracle_DiscussionKeepsWithoutMajority(t *testing.T) {
	o := NewStubOracle(nil)
	prior := &core.PriorContext{Verdicts: []core.PriorVerdict{
		{Role: core.RoleQuality, Sentiment: core.SentimentNegative, Confidence: 0.8},
		{Role: core.RoleExperience, Sentiment: core.SentimentMixed, Confidence: 0.6},
	}}
	v := stubVerdictFor(t, o, core.OracleRequest{Role: core.RoleTechnical, Round: 1, Document: "Great battery life.", Prior: prior})
	assert.Equal(t, core.SentimentPositive, v.Sentiment)
}

func TestStubOracle_Advise(t *testing.T) {
	o := NewStubOracle(nil)
	prior := &core.PriorContext{Verdicts: []core.PriorVerdict{
		{Role: core.RoleQuality, Sentiment: core.SentimentNegative, Confidence: 0.8},
		{Role: core.RoleTechnical, Sentiment: core.SentimentNegative, Confidence: 0.7},
		{Role: core.RoleBusiness, Sentiment: core.SentimentPositive, Confidence: 0.6},
	}}
	res, err := o.Execute(context.Background(), core.OracleRequest{Role: core.RoleBusinessAdvisor, Round: workflow.AdvisoryRound, Prior: prior})
	require.NoError(t, err)

	adv, err := workflow.ParseAdvisory(res.Output)
	require.NoError(t, err)
	assert.Equal(t, "high", adv.Priority)
	assert.Len(t, adv.Recommendations, 3)
}

func TestStubOracle_HonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewStubOracle(nil).Execute(ctx, core.OracleRequest{Role: "r"})
	assert.ErrorIs(t, err, context.Canceled)
}
