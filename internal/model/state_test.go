package model

import (
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewState_Defaults(t *testing.T) {
	s := NewState("sess-1", "what is our revenue")

	assert.Equal(t, "sess-1", s.SessionID)
	assert.Equal(t, "what is our revenue", s.Query)
	assert.NotNil(t, s.ExtractedFacts)
	assert.NotNil(t, s.Analyses)
	assert.NotNil(t, s.AgentConfidenceScores)
	assert.Equal(t, VerificationComplete, s.VerificationStatus)
	assert.False(t, s.ExecutionStart.IsZero())
}

func TestState_AuditTrailsAppendOnly(t *testing.T) {
	s := NewState("sess-1", "q")

	s.AppendReasoning("step one")
	s.AppendReasoning("step two")
	s.MarkExecuted("classify")
	s.MarkExecuted("extract")
	s.MarkAgentInvoked(RoleFinancial)
	s.AddRoutingDecision("classify", "extract", "complexity=simple")
	s.AddWarning("w1")
	s.AddError("extract", eris.New("boom"))

	assert.Equal(t, []string{"step one", "step two"}, s.ReasoningChain)
	assert.Equal(t, []string{"classify", "extract"}, s.NodesExecuted)
	assert.Equal(t, []string{"financial"}, s.AgentsInvoked)
	require.Len(t, s.RoutingDecisions, 1)
	assert.Equal(t, "classify", s.RoutingDecisions[0].From)
	assert.Equal(t, "extract", s.RoutingDecisions[0].To)
	require.Len(t, s.Errors, 1)
	assert.Equal(t, "extract", s.Errors[0].Stage)
	assert.Equal(t, "boom", s.Errors[0].Message)
	assert.Equal(t, []string{"w1"}, s.Warnings)
}

func TestState_AnalysisMissingRoleIsEmpty(t *testing.T) {
	s := NewState("sess-1", "q")
	s.Analyses[RoleFinancial] = "financial view"

	assert.Equal(t, "financial view", s.Analysis(RoleFinancial))
	assert.Equal(t, "", s.Analysis(RoleResearch))
}

func TestComplexity_Valid(t *testing.T) {
	assert.True(t, ComplexitySimple.Valid())
	assert.True(t, ComplexityCritical.Valid())
	assert.False(t, Complexity("").Valid())
	assert.False(t, Complexity("extreme").Valid())
}

func TestClampConfidence(t *testing.T) {
	tests := []struct {
		name string
		in   float64
		want float64
	}{
		{"negative", -0.2, 0},
		{"zero", 0, 0},
		{"mid", 0.7, 0.7},
		{"at cap", 0.95, 0.95},
		{"above cap", 1.2, 0.95},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClampConfidence(tt.in))
		})
	}
}

func TestState_SnapshotIsolation(t *testing.T) {
	s := NewState("sess-1", "q")
	s.ExtractedFacts["revenue"] = Fact{Value: 100, Unit: "millions"}
	s.Analyses[RoleFinancial] = "original"
	s.AppendReasoning("before")
	s.AddWarning("before")

	snap := s.Snapshot()

	s.ExtractedFacts["net_profit"] = Fact{Value: 10}
	s.Analyses[RoleFinancial] = "mutated"
	s.AppendReasoning("after")
	s.AddWarning("after")
	s.MarkExecuted("extract")

	assert.Len(t, snap.ExtractedFacts, 1)
	assert.Equal(t, "original", snap.Analyses[RoleFinancial])
	assert.Equal(t, []string{"before"}, snap.ReasoningChain)
	assert.Equal(t, []string{"before"}, snap.Warnings)
	assert.Empty(t, snap.NodesExecuted)
}

func TestAllRoles_FixedOrder(t *testing.T) {
	assert.Equal(t, []Role{RoleFinancial, RoleMarket, RoleOperations, RoleResearch}, AllRoles)
}
