// Package synth produces the final executive report from everything the
// session accumulated, in basic or enhanced mode.
package synth

import (
	"context"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/albarami/udc-sub000/internal/llm"
	"github.com/albarami/udc-sub000/internal/model"
)

const synthSystemPrompt = `You are the chief advisor drafting the final executive report. You write for a board audience: direct, grounded, and honest about uncertainty.

DATA DISCIPLINE — these rules are absolute:
1. Every number must be cited inline as [Per extraction: <exact quote>].
2. Data you do not have must be stated as NOT IN EXTRACTED DATA.
3. Never estimate or invent figures.`

const basicUserPrompt = `Business query: %s

EXTRACTED FACTS:
%s

SPECIALIST ANALYSES:
%s
%s
Write the report with these labeled sections:

DIRECT ANSWER:
KEY FINDINGS:
STRATEGIC IMPLICATIONS:
CONFIDENCE ASSESSMENT:

Use bullets under KEY FINDINGS.`

const enhancedUserPrompt = `Business query: %s

EXTRACTED FACTS:
%s

SPECIALIST ANALYSES:
%s

DEBATE SUMMARY:
%s

CRITIQUE REPORT:
%s

VERIFICATION: %d of %d numeric claims verified across specialists; %d fabrication flags.
%s
Write the report with these labeled sections:

DIRECT ANSWER:
CONSENSUS:
KEY DEBATES:
CRITICAL CHALLENGES:
ALTERNATIVE SCENARIOS:
RECOMMENDATIONS:
WHAT WE DON'T KNOW:
CONFIDENCE ASSESSMENT:

Under RECOMMENDATIONS give numbered items, each starting with [High], [Medium], or [Low] priority. Under WHAT WE DON'T KNOW, address any fabrication flags and data gaps.`

// deliberationWeight is the fixed weight constant in the enhanced
// confidence blend.
const deliberationWeight = 0.85

// Synthesizer is the terminal stage.
type Synthesizer struct {
	completer   llm.Completer
	modelID     string
	temperature float64
}

// New creates the synthesizer.
func New(completer llm.Completer, modelID string, temperature float64) *Synthesizer {
	return &Synthesizer{completer: completer, modelID: modelID, temperature: temperature}
}

// EnhancedMode reports whether debate, critique, and verification all
// produced output for this session.
func EnhancedMode(state *model.State) bool {
	return state.DebateSummary != "" &&
		state.CritiqueReport != "" &&
		len(state.FactCheckResults) > 0
}

// Run writes final_synthesis, confidence_score, key_insights, and
// recommendations.
func (s *Synthesizer) Run(ctx context.Context, state *model.State) error {
	enhanced := EnhancedMode(state)

	var user string
	if enhanced {
		user = s.enhancedPrompt(state)
	} else {
		user = s.basicPrompt(state)
	}

	resp, err := s.completer.Complete(ctx, llm.Request{
		Model:       s.modelID,
		System:      synthSystemPrompt,
		User:        user,
		Temperature: s.temperature,
		MaxTokens:   2500,
	})
	if err != nil {
		return eris.Wrap(err, "synth: report")
	}

	report := strings.TrimSpace(resp.Text)
	state.FinalSynthesis = report
	state.KeyInsights = ExtractInsights(report)
	state.Recommendations = ExtractRecommendations(report)
	state.ConfidenceScore = Confidence(state, enhanced)

	mode := "basic"
	if enhanced {
		mode = "enhanced"
	}
	state.AppendReasoning(fmt.Sprintf("synthesis complete (%s mode, confidence %.2f)", mode, state.ConfidenceScore))
	return nil
}

// Fallback produces a deterministic report without an LLM call, used by
// graceful degradation so the session always terminates with a
// non-empty synthesis.
func (s *Synthesizer) Fallback(state *model.State) {
	var b strings.Builder
	b.WriteString("DIRECT ANSWER:\nThe full report could not be generated. ")

	if len(state.ExtractedFacts) == 0 {
		b.WriteString("No extracted data is available for this query.\n")
	} else {
		b.WriteString("The extracted facts below are the verified basis available.\n\nKEY FINDINGS:\n")
		for _, name := range state.ExtractedFacts.Metrics() {
			f := state.ExtractedFacts[name]
			fmt.Fprintf(&b, "- %s: %.2f %s [Per extraction: %s]\n", name, f.Value, f.Unit, f.Quote)
		}
	}

	if missing := MissingRoles(state); len(missing) > 0 {
		b.WriteString("\nUNAVAILABLE PERSPECTIVES:\n")
		for _, r := range missing {
			fmt.Fprintf(&b, "- %s analysis was unavailable for this session\n", r)
		}
	}

	state.FinalSynthesis = b.String()
	state.KeyInsights = ExtractInsights(state.FinalSynthesis)
	state.ConfidenceScore = model.ClampConfidence(Confidence(state, false) * 0.8)
	state.AppendReasoning("synthesis degraded to fallback report")
}

// Confidence computes the overall score. Basic: mean fact confidence
// (0.5 when no facts). Enhanced: 0.4*verification + 0.3*facts + 0.3*0.85.
// Both clamp to [0, 0.95].
func Confidence(state *model.State, enhanced bool) float64 {
	factConf := state.ExtractedFacts.MeanConfidence()
	if len(state.ExtractedFacts) == 0 {
		factConf = 0.5
	}

	if !enhanced {
		return model.ClampConfidence(factConf)
	}

	score := 0.4*state.VerificationConfidence + 0.3*factConf + 0.3*deliberationWeight
	return model.ClampConfidence(score)
}

// MissingRoles lists specialists with no analysis, in fixed role order.
func MissingRoles(state *model.State) []model.Role {
	var missing []model.Role
	for _, r := range model.AllRoles {
		if state.Analysis(r) == "" {
			missing = append(missing, r)
		}
	}
	return missing
}

func (s *Synthesizer) basicPrompt(state *model.State) string {
	return fmt.Sprintf(basicUserPrompt,
		state.Query,
		state.ExtractedFacts.FormatForPrompt(),
		formatAnalyses(state),
		degradationNote(state),
	)
}

func (s *Synthesizer) enhancedPrompt(state *model.State) string {
	var total, verified int
	for _, r := range state.FactCheckResults {
		total += r.TotalNumbers
		verified += r.Verified
	}
	return fmt.Sprintf(enhancedUserPrompt,
		state.Query,
		state.ExtractedFacts.FormatForPrompt(),
		formatAnalyses(state),
		state.DebateSummary,
		state.CritiqueReport,
		verified, total, len(state.FabricationDetected),
		degradationNote(state),
	)
}

// degradationNote tells the synthesis model which perspectives are
// missing so the report can say so explicitly.
func degradationNote(state *model.State) string {
	missing := MissingRoles(state)
	if len(missing) == 0 {
		return ""
	}
	names := make([]string, len(missing))
	for i, r := range missing {
		names[i] = string(r)
	}
	return fmt.Sprintf("\nNOTE: the following perspectives were unavailable this session and the report must say so: %s.\n",
		strings.Join(names, ", "))
}

func formatAnalyses(state *model.State) string {
	var b strings.Builder
	for _, role := range model.AllRoles {
		text := state.Analysis(role)
		if text == "" {
			continue
		}
		fmt.Fprintf(&b, "=== %s ===\n%s\n\n", strings.ToUpper(string(role)), text)
	}
	if b.Len() == 0 {
		return "(no specialist analyses available)"
	}
	return b.String()
}
