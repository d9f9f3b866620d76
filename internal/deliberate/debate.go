// Package deliberate implements the debate and critique stages that
// consume specialist analyses and surface agreements, contradictions,
// challenged assumptions, and alternative scenarios.
package deliberate

import (
	"context"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/albarami/udc-sub000/internal/llm"
	"github.com/albarami/udc-sub000/internal/model"
)

const debateSystemPrompt = `You are the moderator of a panel of specialist analysts. You weigh their analyses against each other and against the extracted facts. You never introduce numbers that are not in the extracted facts. Produce exactly these labeled sections:

AGREEMENTS:
CONTRADICTIONS:
RESOLUTION:
EMERGENT INSIGHTS:
COLLECTIVE RECOMMENDATION:
CONFIDENCE ASSESSMENT:

Under AGREEMENTS and CONTRADICTIONS use one bullet per item. For each contradiction bullet, append the conflict type in parentheses, e.g. (type: data) or (type: interpretation).`

const debateUserPrompt = `Business query: %s

EXTRACTED FACTS:
%s

SPECIALIST ANALYSES:
%s
Moderate the debate across these perspectives.`

var debateSections = []string{
	"agreements", "contradictions", "resolution",
	"emergent insights", "collective recommendation", "confidence assessment",
}

// contradictionType extracts the "(type: X)" suffix from a bullet,
// defaulting to "interpretation".
func contradictionType(bullet string) (description, kind string) {
	kind = "interpretation"
	description = bullet
	open := strings.LastIndex(bullet, "(type:")
	if open < 0 {
		return description, kind
	}
	close := strings.Index(bullet[open:], ")")
	if close < 0 {
		return description, kind
	}
	kind = strings.TrimSpace(bullet[open+len("(type:") : open+close])
	description = strings.TrimSpace(bullet[:open])
	return description, kind
}

// Debate moderates the cross-specialist deliberation.
type Debate struct {
	completer   llm.Completer
	modelID     string
	temperature float64
}

// NewDebate creates the debate stage.
func NewDebate(completer llm.Completer, modelID string, temperature float64) *Debate {
	return &Debate{completer: completer, modelID: modelID, temperature: temperature}
}

// Run writes debate_summary and contradictions. Specialists that never
// produced an analysis are skipped; with fewer than two present the
// debate itself is skipped with a warning.
func (d *Debate) Run(ctx context.Context, state *model.State) error {
	available, count := availableAnalyses(state)
	if count < 2 {
		state.AddWarning("debate skipped: fewer than two specialist analyses available")
		state.AppendReasoning("debate skipped (insufficient perspectives)")
		return nil
	}

	resp, err := d.completer.Complete(ctx, llm.Request{
		Model:  d.modelID,
		System: debateSystemPrompt,
		User: fmt.Sprintf(debateUserPrompt,
			state.Query,
			state.ExtractedFacts.FormatForPrompt(),
			available,
		),
		Temperature: d.temperature,
		MaxTokens:   1800,
	})
	if err != nil {
		return eris.Wrap(err, "deliberate: debate")
	}

	sections := parseSections(resp.Text, debateSections)
	agreements := sections.sectionBullets("agreements")
	contradictionBullets := sections.sectionBullets("contradictions")

	state.DebateSummary = strings.TrimSpace(resp.Text)
	for _, b := range contradictionBullets {
		desc, kind := contradictionType(b)
		state.Contradictions = append(state.Contradictions, model.Contradiction{
			Description: desc,
			Type:        kind,
		})
	}

	confidence := DebateConfidence(len(agreements), len(contradictionBullets))
	state.AppendReasoning(fmt.Sprintf(
		"debate surfaced %d agreements, %d contradictions (confidence %.2f)",
		len(agreements), len(contradictionBullets), confidence,
	))
	return nil
}

// DebateConfidence scores deliberation quality from the agreement ratio:
// r >= 0.75 -> 0.85, r >= 0.5 -> 0.75, else 0.60, then minus
// min(0.15, 0.04*contradictions). Zero items returns 0.5.
func DebateConfidence(agreements, contradictions int) float64 {
	total := agreements + contradictions
	if total == 0 {
		return 0.5
	}

	ratio := float64(agreements) / float64(total)
	var c float64
	switch {
	case ratio >= 0.75:
		c = 0.85
	case ratio >= 0.5:
		c = 0.75
	default:
		c = 0.60
	}

	penalty := 0.04 * float64(contradictions)
	if penalty > 0.15 {
		penalty = 0.15
	}
	return c - penalty
}

// availableAnalyses renders the non-empty specialist analyses in fixed
// role order and reports how many there are.
func availableAnalyses(state *model.State) (string, int) {
	var b strings.Builder
	count := 0
	for _, role := range model.AllRoles {
		text := state.Analysis(role)
		if text == "" {
			continue
		}
		count++
		fmt.Fprintf(&b, "=== %s ===\n%s\n\n", strings.ToUpper(string(role)), text)
	}
	return b.String(), count
}
