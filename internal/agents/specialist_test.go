package agents

import (
	"context"
	"strings"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/albarami/udc-sub000/internal/llm"
	"github.com/albarami/udc-sub000/internal/model"
)

type fakeCompleter struct {
	text string
	err  error
	reqs []llm.Request
}

func (f *fakeCompleter) Complete(_ context.Context, req llm.Request) (*llm.Response, error) {
	f.reqs = append(f.reqs, req)
	if f.err != nil {
		return nil, f.err
	}
	return &llm.Response{Text: f.text, InputTokens: 200, OutputTokens: 120}, nil
}

func testProfile() model.SpecialistProfile {
	return model.SpecialistProfile{
		Role:              model.RoleFinancial,
		Persona:           "You are a financial analyst.",
		BaseConfidence:    0.85,
		DisclaimerPenalty: 0.05,
	}
}

func TestConfidence_CoverageCappedAtFivePoints(t *testing.T) {
	s := New(testProfile(), nil, "m", 0.3)

	assert.InDelta(t, 0.85, s.Confidence(0, "analysis"), 1e-9)
	assert.InDelta(t, 0.88, s.Confidence(3, "analysis"), 1e-9)
	assert.InDelta(t, 0.90, s.Confidence(5, "analysis"), 1e-9)
	assert.InDelta(t, 0.90, s.Confidence(12, "analysis"), 1e-9)
}

func TestConfidence_DisclaimerPenaltyPerOccurrence(t *testing.T) {
	s := New(testProfile(), nil, "m", 0.3)
	analysis := "Margin data: " + Disclaimer + ". Debt maturity: " + Disclaimer + "."

	assert.InDelta(t, 0.75, s.Confidence(0, analysis), 1e-9)
}

func TestConfidence_ClampedToUnitInterval(t *testing.T) {
	low := New(model.SpecialistProfile{BaseConfidence: 0.1, DisclaimerPenalty: 0.1}, nil, "m", 0.3)
	many := strings.Repeat(Disclaimer+" ", 5)
	assert.InDelta(t, 0.0, low.Confidence(0, many), 1e-9)

	high := New(model.SpecialistProfile{BaseConfidence: 0.99}, nil, "m", 0.3)
	assert.InDelta(t, 1.0, high.Confidence(10, "analysis"), 1e-9)
}

func TestRun_DoesNotTouchState(t *testing.T) {
	fc := &fakeCompleter{text: "  Solid liquidity position.  "}
	s := New(testProfile(), fc, "model-a", 0.3)

	analysis, confidence, err := s.Run(context.Background(), Input{
		Query:      "how is liquidity",
		Complexity: model.ComplexityMedium,
		Facts:      model.FactSet{"revenue": {Value: 1060, Unit: "millions", Quote: "q", Confidence: 0.98}},
	})
	require.NoError(t, err)
	assert.Equal(t, "Solid liquidity position.", analysis)
	assert.InDelta(t, 0.86, confidence, 1e-9)

	require.Len(t, fc.reqs, 1)
	req := fc.reqs[0]
	assert.Equal(t, "model-a", req.Model)
	assert.Contains(t, req.System, "You are a financial analyst.")
	assert.Contains(t, req.System, Disclaimer)
	assert.Contains(t, req.User, "how is liquidity")
	assert.Contains(t, req.User, "revenue: 1060.00 millions")
}

func TestRun_ErrorCarriesRole(t *testing.T) {
	fc := &fakeCompleter{err: eris.New("api down")}
	s := New(testProfile(), fc, "m", 0.3)

	_, _, err := s.Run(context.Background(), Input{Query: "q"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "financial")
}

func TestAnalyze_RecordsOnState(t *testing.T) {
	fc := &fakeCompleter{text: "Observation."}
	s := New(testProfile(), fc, "m", 0.3)
	state := model.NewState("s1", "how is liquidity")
	state.Complexity = model.ComplexityMedium

	require.NoError(t, s.Analyze(context.Background(), state))
	assert.Equal(t, "Observation.", state.Analysis(model.RoleFinancial))
	assert.InDelta(t, 0.85, state.AgentConfidenceScores[model.RoleFinancial], 1e-9)
	assert.Contains(t, state.AgentsInvoked, "financial")
	require.NotEmpty(t, state.ReasoningChain)
	assert.Contains(t, state.ReasoningChain[len(state.ReasoningChain)-1], "financial analysis complete")
}

func TestBuildInput_CarriesOnlyRequestedPriors(t *testing.T) {
	state := model.NewState("s1", "q")
	state.Analyses[model.RoleFinancial] = "fin view"
	state.Analyses[model.RoleMarket] = "mkt view"

	in := BuildInput(state, []model.Role{model.RoleFinancial})
	assert.Equal(t, "fin view", in.Prior[model.RoleFinancial])
	_, ok := in.Prior[model.RoleMarket]
	assert.False(t, ok)
}

func TestFormatPrior_FixedOrderAndSkipsEmpty(t *testing.T) {
	prior := map[model.Role]string{
		model.RoleMarket:    "mkt view",
		model.RoleFinancial: "fin view",
		model.RoleResearch:  "",
	}
	got := formatPrior(prior)
	assert.Less(t, strings.Index(got, "PRIOR FINANCIAL ANALYSIS"), strings.Index(got, "PRIOR MARKET ANALYSIS"))
	assert.NotContains(t, got, "RESEARCH")

	assert.Empty(t, formatPrior(nil))
}
