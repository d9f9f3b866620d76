package deliberate

import (
	"context"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/albarami/udc-sub000/internal/llm"
	"github.com/albarami/udc-sub000/internal/model"
)

const critiqueSystemPrompt = `You are a devil's advocate reviewing a panel's collective analysis. Your job is to find what everyone missed, challenge what everyone assumed, and imagine how the comfortable conclusion fails. You never introduce numbers that are not in the extracted facts. Produce exactly these labeled sections:

ASSUMPTIONS TO CHALLENGE:
WEAKNESSES:
BLIND SPOTS:
ALTERNATIVE SCENARIOS:
RISKS:
CONFIDENCE REALITY CHECK:
BOTTOM LINE:

Under ALTERNATIVE SCENARIOS give up to three bullets, each opening with a scenario label such as "Pessimistic:", "Contrarian:", or "Black swan:".`

const critiqueUserPrompt = `Business query: %s

EXTRACTED FACTS:
%s

DEBATE SUMMARY:
%s

SPECIALIST ANALYSES:
%s
Critique the panel's work.`

var critiqueSections = []string{
	"assumptions to challenge", "weaknesses", "blind spots",
	"alternative scenarios", "risks", "confidence reality check", "bottom line",
}

// scenarioCues key the alternative-scenario parser. At most one scenario
// per cue, at most three total.
var scenarioCues = []string{"pessimistic", "contrarian", "black swan"}

// maxScenarios caps recovered alternative scenarios.
const maxScenarios = 3

// Critique is the devil's-advocate stage.
type Critique struct {
	completer   llm.Completer
	modelID     string
	temperature float64
}

// NewCritique creates the critique stage.
func NewCritique(completer llm.Completer, modelID string, temperature float64) *Critique {
	return &Critique{completer: completer, modelID: modelID, temperature: temperature}
}

// Run writes critique_report, assumptions_challenged, and
// alternative_scenarios, and appends surfaced weaknesses and risks to the
// session warnings. Missing inputs (no debate, absent analyses) are
// tolerated: the critique works with whatever exists.
func (c *Critique) Run(ctx context.Context, state *model.State) error {
	available, count := availableAnalyses(state)
	if count == 0 && state.DebateSummary == "" {
		state.AddWarning("critique skipped: nothing to critique")
		state.AppendReasoning("critique skipped (no inputs)")
		return nil
	}

	debateSummary := state.DebateSummary
	if debateSummary == "" {
		debateSummary = "(no debate summary available)"
	}

	resp, err := c.completer.Complete(ctx, llm.Request{
		Model:  c.modelID,
		System: critiqueSystemPrompt,
		User: fmt.Sprintf(critiqueUserPrompt,
			state.Query,
			state.ExtractedFacts.FormatForPrompt(),
			debateSummary,
			available,
		),
		Temperature: c.temperature,
		MaxTokens:   1500,
	})
	if err != nil {
		return eris.Wrap(err, "deliberate: critique")
	}

	sections := parseSections(resp.Text, critiqueSections)

	state.CritiqueReport = strings.TrimSpace(resp.Text)
	state.AssumptionsChallenged = append(state.AssumptionsChallenged,
		sections.sectionBullets("assumptions to challenge")...)
	state.AlternativeScenarios = append(state.AlternativeScenarios,
		ParseScenarios(sections.sectionBullets("alternative scenarios"))...)

	for _, w := range sections.sectionBullets("weaknesses") {
		state.AddWarning("critique weakness: " + w)
	}
	for _, r := range sections.sectionBullets("risks") {
		state.AddWarning("critique risk: " + r)
	}

	state.AppendReasoning(fmt.Sprintf(
		"critique challenged %d assumptions, surfaced %d alternative scenarios",
		len(sections.sectionBullets("assumptions to challenge")),
		len(ParseScenarios(sections.sectionBullets("alternative scenarios"))),
	))
	return nil
}

// ParseScenarios recovers up to three alternative scenarios, preferring
// bullets keyed by the known scenario cues and backfilling with unkeyed
// bullets in order.
func ParseScenarios(bullets []string) []string {
	var keyed []string
	used := make(map[int]bool)

	for _, cue := range scenarioCues {
		for i, b := range bullets {
			if used[i] {
				continue
			}
			if strings.Contains(strings.ToLower(b), cue) {
				keyed = append(keyed, b)
				used[i] = true
				break
			}
		}
	}

	for i, b := range bullets {
		if len(keyed) >= maxScenarios {
			break
		}
		if !used[i] {
			keyed = append(keyed, b)
			used[i] = true
		}
	}

	if len(keyed) > maxScenarios {
		keyed = keyed[:maxScenarios]
	}
	return keyed
}
