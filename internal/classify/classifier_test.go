package classify

import (
	"context"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/albarami/udc-sub000/internal/llm"
	"github.com/albarami/udc-sub000/internal/model"
)

type fakeCompleter struct {
	text  string
	err   error
	calls int
}

func (f *fakeCompleter) Complete(_ context.Context, _ llm.Request) (*llm.Response, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &llm.Response{Text: f.text}, nil
}

func TestHeuristic(t *testing.T) {
	tests := []struct {
		name     string
		query    string
		want     model.Complexity
		decisive bool
	}{
		{"urgent cue", "We need a liquidity assessment immediately", model.ComplexityCritical, true},
		{"crisis cue", "How do we handle this crisis", model.ComplexityCritical, true},
		{"strategy cue", "Is our land sales strategy sustainable", model.ComplexityComplex, true},
		{"should-we cue", "Should we expand into hospitality", model.ComplexityComplex, true},
		{"long query", "Given the recent performance of the portfolio across residential retail and hospitality segments please assess whether the current capital allocation remains appropriate for the next five years of development", model.ComplexityComplex, true},
		{"simple lookup", "What is our total revenue", model.ComplexitySimple, true},
		{"simple with and", "What is our revenue and net profit", model.ComplexityMedium, false},
		{"plain medium", "Assess the margin trend this year", model.ComplexityMedium, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, decisive := Heuristic(tt.query)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.decisive, decisive)
		})
	}
}

func TestHeuristic_Deterministic(t *testing.T) {
	q := "Assess the margin trend this year"
	first, _ := Heuristic(q)
	for i := 0; i < 5; i++ {
		got, _ := Heuristic(q)
		assert.Equal(t, first, got)
	}
}

func TestClassify_DecisiveSkipsLLM(t *testing.T) {
	fake := &fakeCompleter{text: "critical"}
	c := New(fake, "test-model")
	state := model.NewState("s", "What is our total revenue")

	require.NoError(t, c.Classify(context.Background(), state))
	assert.Equal(t, model.ComplexitySimple, state.Complexity)
	assert.Equal(t, 0, fake.calls)
	assert.NotEmpty(t, state.ReasoningChain)
}

func TestClassify_LLMFallbackForInconclusive(t *testing.T) {
	fake := &fakeCompleter{text: " Complex \n"}
	c := New(fake, "test-model")
	state := model.NewState("s", "Assess the margin trend this year")

	require.NoError(t, c.Classify(context.Background(), state))
	assert.Equal(t, model.ComplexityComplex, state.Complexity)
	assert.Equal(t, 1, fake.calls)
}

func TestClassify_FallbackFailureDefaultsMedium(t *testing.T) {
	fake := &fakeCompleter{err: eris.New("api down")}
	c := New(fake, "test-model")
	state := model.NewState("s", "Assess the margin trend this year")

	require.NoError(t, c.Classify(context.Background(), state))
	assert.Equal(t, model.ComplexityMedium, state.Complexity)
	require.Len(t, state.Warnings, 1)
	assert.Contains(t, state.Warnings[0], "classifier fallback failed")
}

func TestClassify_UnrecognizedTierDefaultsMedium(t *testing.T) {
	fake := &fakeCompleter{text: "extremely complex"}
	c := New(fake, "test-model")
	state := model.NewState("s", "Assess the margin trend this year")

	require.NoError(t, c.Classify(context.Background(), state))
	assert.Equal(t, model.ComplexityMedium, state.Complexity)
}

func TestClassify_NilCompleterHeuristicsOnly(t *testing.T) {
	c := New(nil, "")
	state := model.NewState("s", "Assess the margin trend this year")

	require.NoError(t, c.Classify(context.Background(), state))
	assert.Equal(t, model.ComplexityMedium, state.Complexity)
}
