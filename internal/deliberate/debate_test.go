package deliberate

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
	reqs  []llm.Request
}

func (f *fakeCompleter) Complete(_ context.Context, req llm.Request) (*llm.Response, error) {
	f.calls++
	f.reqs = append(f.reqs, req)
	if f.err != nil {
		return nil, f.err
	}
	return &llm.Response{Text: f.text, InputTokens: 300, OutputTokens: 200}, nil
}

const debateOutput = `AGREEMENTS:
- Revenue growth is broadly positive.
- Liquidity covers near-term obligations.
- Hospitality remains the weak segment.

CONTRADICTIONS:
- Financial sees margin pressure where market sees pricing power (type: interpretation)
- Occupancy trend direction disputed (type: data)

RESOLUTION:
The panel leans toward cautious optimism.

EMERGENT INSIGHTS:
- Land sales mask recurring-revenue softness.

COLLECTIVE RECOMMENDATION:
Hold course with quarterly review.

CONFIDENCE ASSESSMENT:
Moderate.`

func debateState(analyses int) *model.State {
	state := model.NewState("s1", "how is the business")
	roles := model.AllRoles
	for i := 0; i < analyses && i < len(roles); i++ {
		state.Analyses[roles[i]] = "view " + string(roles[i])
	}
	return state
}

func TestDebate_RecordsSummaryAndContradictions(t *testing.T) {
	fc := &fakeCompleter{text: debateOutput}
	d := NewDebate(fc, "m", 0.7)
	state := debateState(3)

	require.NoError(t, d.Run(context.Background(), state))
	assert.Equal(t, 1, fc.calls)
	assert.Contains(t, state.DebateSummary, "AGREEMENTS:")

	require.Len(t, state.Contradictions, 2)
	assert.Equal(t, "Financial sees margin pressure where market sees pricing power", state.Contradictions[0].Description)
	assert.Equal(t, "interpretation", state.Contradictions[0].Type)
	assert.Equal(t, "data", state.Contradictions[1].Type)
}

func TestDebate_SkipsWithFewerThanTwoAnalyses(t *testing.T) {
	fc := &fakeCompleter{text: debateOutput}
	d := NewDebate(fc, "m", 0.7)
	state := debateState(1)

	require.NoError(t, d.Run(context.Background(), state))
	assert.Zero(t, fc.calls)
	assert.Empty(t, state.DebateSummary)
	assert.Contains(t, state.Warnings, "debate skipped: fewer than two specialist analyses available")
}

func TestDebate_CompleterErrorPropagates(t *testing.T) {
	fc := &fakeCompleter{err: eris.New("api down")}
	d := NewDebate(fc, "m", 0.7)

	err := d.Run(context.Background(), debateState(2))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "debate")
}

func TestDebate_PromptCarriesAnalysesInRoleOrder(t *testing.T) {
	fc := &fakeCompleter{text: debateOutput}
	d := NewDebate(fc, "m", 0.7)
	state := debateState(2)

	require.NoError(t, d.Run(context.Background(), state))
	user := fc.reqs[0].User
	assert.Contains(t, user, "=== FINANCIAL ===")
	assert.Contains(t, user, "=== MARKET ===")
	assert.NotContains(t, user, "=== OPERATIONS ===")
}

func TestContradictionType(t *testing.T) {
	desc, kind := contradictionType("margins disputed (type: data)")
	assert.Equal(t, "margins disputed", desc)
	assert.Equal(t, "data", kind)

	desc, kind = contradictionType("plain disagreement")
	assert.Equal(t, "plain disagreement", desc)
	assert.Equal(t, "interpretation", kind)
}

func TestDebateConfidence(t *testing.T) {
	tests := []struct {
		name           string
		agreements     int
		contradictions int
		want           float64
	}{
		{"no items", 0, 0, 0.5},
		{"all agreement", 4, 0, 0.85},
		{"high ratio with one contradiction", 3, 1, 0.81},
		{"even split", 2, 2, 0.67},
		{"mostly contradiction", 1, 3, 0.48},
		{"penalty capped", 1, 10, 0.45},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, DebateConfidence(tt.agreements, tt.contradictions), 1e-9)
		})
	}
}
