package intent

import (
	"context"
	"errors"
	"io"
	"log"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pc-build-advisor-be/internal/entity"
	"pc-build-advisor-be/pkg/llm"
)

type stubLLM struct {
	response string
	err      error
}

func (s *stubLLM) Generate(_ context.Context, _ string, _ ...llm.Option) (string, error) {
	return s.response, s.err
}

func (s *stubLLM) Chat(_ context.Context, _ []llm.Message, _ ...llm.Option) (string, error) {
	return s.response, s.err
}

func newResolver(response string, err error) *Resolver {
	return NewResolver(&stubLLM{response: response, err: err}, log.New(io.Discard, "", 0))
}

func TestResolve_ParsesModelClassification(t *testing.T) {
	resolver := newResolver(`{
		"action": "ASK_RECOMMENDATION",
		"query": "quiet cpu cooler",
		"category": "cooler",
		"confidence": 0.9,
		"reasoning": "part question"
	}`, nil)

	intent, err := resolver.Resolve(context.Background(), "recommend a quiet cooler", nil)
	require.NoError(t, err)
	assert.Equal(t, ActionAskRecommendation, intent.Action)
	assert.Equal(t, "cooler", intent.Category)
	assert.Equal(t, "quiet cpu cooler", intent.Query)
}

func TestResolve_BudgetFromTextOverridesModel(t *testing.T) {
	resolver := newResolver(`{"action": "START_BUILD", "purpose": "gaming", "budget": 15, "confidence": 0.9}`, nil)

	intent, err := resolver.Resolve(context.Background(), "build me a gaming PC for 1,500,000", nil)
	require.NoError(t, err)
	assert.Equal(t, ActionStartBuild, intent.Action)
	assert.Equal(t, 1500000, intent.Budget)
}

func TestResolve_LLMFailureFallsBack(t *testing.T) {
	resolver := newResolver("", errors.New("connection refused"))

	intent, err := resolver.Resolve(context.Background(), "build a workstation for 2 juta", nil)
	require.NoError(t, err)
	assert.Equal(t, ActionStartBuild, intent.Action)
	assert.Equal(t, 2000000, intent.Budget)
}

func TestResolve_GarbageResponseFallsBack(t *testing.T) {
	resolver := newResolver("I think the user probably wants something", nil)

	intent, err := resolver.Resolve(context.Background(), "which ssd is fastest", nil)
	require.NoError(t, err)
	assert.Equal(t, ActionAskRecommendation, intent.Action)
	assert.Equal(t, "which ssd is fastest", intent.Query)
}

func TestResolve_CollectingSessionBiasesFallback(t *testing.T) {
	resolver := newResolver("", errors.New("down"))
	session := &entity.BuildSession{Phase: entity.PhaseCollecting}

	intent, err := resolver.Resolve(context.Background(), "my budget is 750k", session)
	require.NoError(t, err)
	assert.Equal(t, ActionProvideRequirements, intent.Action)
	assert.Equal(t, 750000, intent.Budget)
}

func TestParseBudget(t *testing.T) {
	tests := []struct {
		text     string
		expected int
		found    bool
	}{
		{"1500000", 1500000, true},
		{"1,500,000", 1500000, true},
		{"1.500.000", 1500000, true},
		{"1.5m", 1500000, true},
		{"2 juta", 2000000, true},
		{"750k", 750000, true},
		{"500 rb", 500000, true},
		{"a cooler with 2 fans", 0, false},
		{"no numbers here", 0, false},
		{"between 500k and 1 juta", 1000000, true},
	}
	for _, tc := range tests {
		t.Run(tc.text, func(t *testing.T) {
			got, ok := ParseBudget(tc.text)
			assert.Equal(t, tc.found, ok)
			assert.Equal(t, tc.expected, got)
		})
	}
}
