// Package verify checks every numeric claim in specialist analyses
// against the extracted fact set and flags fabrications.
package verify

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/albarami/udc-sub000/internal/model"
)

// valueTolerance is the relative tolerance for matching a claim against
// a fact or a quoted span, after unit normalization.
const valueTolerance = 0.01

// knowledgeLabels mark segments sourced from general knowledge rather
// than the fact set.
var knowledgeLabels = []string{
	"based on market knowledge:",
	"research suggests:",
}

// adjectivalRange matches soft ranges like "3-5 years" that do not
// assert company metrics.
var adjectivalRange = regexp.MustCompile(`(?i)\d+\s*[-–]\s*\d+\s*(?:years?|months?|quarters?)`)

var yearsSuffix = regexp.MustCompile(`(?i)^\s*(?:years?|months?|quarters?)\b`)

// Verifier checks specialist analyses for fabricated numbers.
type Verifier struct {
	tokenize ClaimTokenizer
}

// New creates a Verifier. A nil tokenizer selects DefaultTokenizer.
func New(tokenize ClaimTokenizer) *Verifier {
	if tokenize == nil {
		tokenize = DefaultTokenizer
	}
	return &Verifier{tokenize: tokenize}
}

// Run verifies every present specialist analysis and writes
// fact_check_results, fabrication_detected, and verification_confidence.
func (v *Verifier) Run(ctx context.Context, state *model.State) error {
	results := make(map[model.Role]model.FactCheckResult)
	var fabrications []model.Fabrication
	var rates []float64

	for _, role := range model.AllRoles {
		analysis := state.Analysis(role)
		if analysis == "" {
			continue
		}

		result, fabs := v.VerifyAnalysis(role, analysis, state.ExtractedFacts)
		results[role] = result
		fabrications = append(fabrications, fabs...)
		rates = append(rates, result.VerificationRate)
	}

	state.FactCheckResults = results
	state.FabricationDetected = fabrications
	state.VerificationConfidence = meanRate(rates)

	weak := 0
	for _, r := range results {
		weak += r.WeakCitations
	}
	if weak > 0 {
		state.AddWarning(fmt.Sprintf("verification: %d claims verified without a citation anchor", weak))
	}

	state.AppendReasoning(fmt.Sprintf(
		"verified %d analyses: %d fabrications, verification confidence %.2f",
		len(results), len(fabrications), state.VerificationConfidence,
	))
	return nil
}

// VerifyAnalysis checks one analysis against the fact set. Deterministic
// and side-effect free: calling it twice on the same pair returns
// identical results.
func (v *Verifier) VerifyAnalysis(role model.Role, analysis string, facts model.FactSet) (model.FactCheckResult, []model.Fabrication) {
	var result model.FactCheckResult
	var fabrications []model.Fabrication

	for _, claim := range v.tokenize(analysis) {
		if skipAsKnowledge(claim) {
			continue
		}
		result.TotalNumbers++

		anchor, hasAnchor := anchorForClaim(claim)
		if hasAnchor {
			if quoteMatchesClaim(anchor, claim) {
				result.Verified++
				continue
			}
			fabrications = append(fabrications, model.Fabrication{
				Role:   role,
				Claim:  claim.Raw,
				Reason: "cited quote does not contain the claimed value",
			})
			continue
		}

		if factMatchesClaim(facts, claim) {
			// Weak citation: the value exists in the fact set but the
			// claim carries no anchor.
			result.Verified++
			result.WeakCitations++
			continue
		}

		fabrications = append(fabrications, model.Fabrication{
			Role:   role,
			Claim:  claim.Raw,
			Reason: "no citation anchor and no matching extracted fact",
		})
	}

	if result.TotalNumbers > 0 {
		result.VerificationRate = float64(result.Verified) / float64(result.TotalNumbers)
	}
	return result, fabrications
}

// skipAsKnowledge ignores claims inside knowledge-labeled segments only
// when they are adjectival (soft ranges, durations) rather than asserted
// company metrics.
func skipAsKnowledge(claim Claim) bool {
	lower := strings.ToLower(claim.Segment)
	labeled := false
	for _, label := range knowledgeLabels {
		if strings.Contains(lower, label) {
			labeled = true
			break
		}
	}
	if !labeled {
		return false
	}
	if adjectivalRange.MatchString(claim.Segment) {
		return true
	}
	after := claim.Segment[claim.Offset+len(claim.Raw):]
	return yearsSuffix.MatchString(after)
}

// anchorForClaim finds a citation anchor in the claim's segment — the
// bounded lexical window.
func anchorForClaim(claim Claim) (string, bool) {
	matches := citationAnchor.FindAllStringSubmatch(claim.Segment, -1)
	if len(matches) == 0 {
		return "", false
	}
	// Prefer an anchor whose quote contains a matching value; fall back
	// to the first anchor so mismatches are reported against something.
	for _, m := range matches {
		if quoteMatchesClaim(m[1], claim) {
			return m[1], true
		}
	}
	return matches[0][1], true
}

// quoteMatchesClaim reports whether any number in the quoted span equals
// the claim value within tolerance, normalizing million/billion scales.
func quoteMatchesClaim(quote string, claim Claim) bool {
	lowerQuote := strings.ToLower(quote)
	for _, numRaw := range numberToken.FindAllString(quote, -1) {
		qv, err := strconv.ParseFloat(strings.ReplaceAll(numRaw, ",", ""), 64)
		if err != nil {
			continue
		}
		candidates := []float64{qv}
		if strings.Contains(lowerQuote, "billion") || strings.Contains(lowerQuote, "bn") {
			candidates = append(candidates, qv*1000)
		}
		for _, c := range candidates {
			if withinTolerance(c, claim.Value) {
				return true
			}
		}
	}
	return false
}

// factMatchesClaim reports whether any fact value equals the claim value
// within tolerance.
func factMatchesClaim(facts model.FactSet, claim Claim) bool {
	for _, f := range facts {
		if withinTolerance(f.Value, claim.Value) {
			return true
		}
	}
	return false
}

func withinTolerance(a, b float64) bool {
	denom := math.Max(math.Max(math.Abs(a), math.Abs(b)), 1e-9)
	return math.Abs(a-b)/denom < valueTolerance
}

// meanRate averages verification rates, 0.0 when no analyses carried
// claims so empty output never inflates confidence.
func meanRate(rates []float64) float64 {
	if len(rates) == 0 {
		return 0.0
	}
	var sum float64
	for _, r := range rates {
		sum += r
	}
	return sum / float64(len(rates))
}
