package verify

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/albarami/udc-sub000/internal/model"
)

func testFacts() model.FactSet {
	return model.FactSet{
		"revenue":    {Value: 1060, Unit: "millions", Quote: "revenue of QR 1.06 billion", Confidence: 0.98},
		"net_profit": {Value: 430, Unit: "millions", Quote: "net profit of QR 430 million", Confidence: 0.92},
	}
}

func TestVerifyAnalysis_AnchoredClaimVerified(t *testing.T) {
	v := New(nil)
	analysis := "Net profit was QR 430 million [Per extraction: net profit of QR 430 million]."

	result, fabs := v.VerifyAnalysis(model.RoleFinancial, analysis, testFacts())
	assert.Empty(t, fabs)
	assert.Equal(t, 1, result.TotalNumbers)
	assert.Equal(t, 1, result.Verified)
	assert.InDelta(t, 1.0, result.VerificationRate, 1e-9)
}

func TestVerifyAnalysis_AnchorScaleNormalized(t *testing.T) {
	v := New(nil)
	analysis := "Revenue hit QR 1,060 million [Per extraction: revenue of QR 1.06 billion]."

	result, fabs := v.VerifyAnalysis(model.RoleFinancial, analysis, testFacts())
	assert.Empty(t, fabs)
	assert.Equal(t, 1, result.Verified)
}

func TestVerifyAnalysis_MismatchedAnchorIsFabrication(t *testing.T) {
	v := New(nil)
	analysis := "Net profit was QR 900 million [Per extraction: net profit of QR 430 million]."

	result, fabs := v.VerifyAnalysis(model.RoleFinancial, analysis, testFacts())
	require.Len(t, fabs, 1)
	assert.Equal(t, model.RoleFinancial, fabs[0].Role)
	assert.Equal(t, "900", fabs[0].Claim)
	assert.Equal(t, "cited quote does not contain the claimed value", fabs[0].Reason)
	assert.Equal(t, 0, result.Verified)
}

func TestVerifyAnalysis_UnanchoredFactMatchIsWeakVerification(t *testing.T) {
	v := New(nil)
	analysis := "The company earned QR 430 million last year."

	result, fabs := v.VerifyAnalysis(model.RoleFinancial, analysis, testFacts())
	assert.Empty(t, fabs)
	assert.Equal(t, 1, result.Verified)
	assert.Equal(t, 1, result.WeakCitations)
}

func TestVerifyAnalysis_AnchoredClaimIsNotWeak(t *testing.T) {
	v := New(nil)
	analysis := "Net profit was QR 430 million [Per extraction: net profit of QR 430 million]."

	result, _ := v.VerifyAnalysis(model.RoleFinancial, analysis, testFacts())
	assert.Equal(t, 1, result.Verified)
	assert.Equal(t, 0, result.WeakCitations)
}

func TestRun_WeakCitationsWarned(t *testing.T) {
	v := New(nil)
	state := model.NewState("s1", "q")
	state.ExtractedFacts = testFacts()
	state.Analyses[model.RoleFinancial] = "The company earned QR 430 million last year."

	require.NoError(t, v.Run(context.Background(), state))

	assert.Equal(t, 1, state.FactCheckResults[model.RoleFinancial].WeakCitations)
	assert.Contains(t, state.Warnings, "verification: 1 claims verified without a citation anchor")
}

func TestVerifyAnalysis_UnanchoredUnmatchedIsFabrication(t *testing.T) {
	v := New(nil)
	analysis := "The company earned QR 999 million last year."

	_, fabs := v.VerifyAnalysis(model.RoleFinancial, analysis, testFacts())
	require.Len(t, fabs, 1)
	assert.Equal(t, "no citation anchor and no matching extracted fact", fabs[0].Reason)
}

func TestVerifyAnalysis_KnowledgeLabelSkipsDurations(t *testing.T) {
	v := New(nil)
	analysis := "Based on market knowledge: absorption rates normalize over 3-5 years."

	result, fabs := v.VerifyAnalysis(model.RoleMarket, analysis, testFacts())
	assert.Empty(t, fabs)
	assert.Equal(t, 0, result.TotalNumbers)
}

func TestVerifyAnalysis_KnowledgeLabelDoesNotShieldMetrics(t *testing.T) {
	v := New(nil)
	analysis := "Based on market knowledge: the company earned QR 999 million."

	_, fabs := v.VerifyAnalysis(model.RoleMarket, analysis, testFacts())
	require.Len(t, fabs, 1)
}

func TestVerifyAnalysis_Deterministic(t *testing.T) {
	v := New(nil)
	analysis := "Net profit was QR 430 million. Revenue reached QR 999 million."

	r1, f1 := v.VerifyAnalysis(model.RoleFinancial, analysis, testFacts())
	r2, f2 := v.VerifyAnalysis(model.RoleFinancial, analysis, testFacts())
	assert.Equal(t, r1, r2)
	assert.Equal(t, f1, f2)
}

func TestRun_AggregatesAcrossAnalyses(t *testing.T) {
	v := New(nil)
	state := model.NewState("s1", "q")
	state.ExtractedFacts = testFacts()
	state.Analyses[model.RoleFinancial] = "Net profit was QR 430 million [Per extraction: net profit of QR 430 million]."
	state.Analyses[model.RoleMarket] = "Revenue of QR 999 million looks off."

	require.NoError(t, v.Run(context.Background(), state))

	assert.Len(t, state.FactCheckResults, 2)
	require.Len(t, state.FabricationDetected, 1)
	assert.Equal(t, model.RoleMarket, state.FabricationDetected[0].Role)
	assert.InDelta(t, 0.5, state.VerificationConfidence, 1e-9)
}

func TestRun_NoAnalysesMeansZeroConfidence(t *testing.T) {
	v := New(nil)
	state := model.NewState("s1", "q")

	require.NoError(t, v.Run(context.Background(), state))
	assert.Empty(t, state.FactCheckResults)
	assert.Zero(t, state.VerificationConfidence)
}

func TestMeanRate(t *testing.T) {
	assert.Zero(t, meanRate(nil))
	assert.InDelta(t, 0.75, meanRate([]float64{1.0, 0.5}), 1e-9)
}
