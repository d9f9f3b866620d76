// Package classify assigns a complexity tier to incoming queries. The
// tier is a pure routing signal; no downstream stage sees the literal
// query through it.
package classify

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/albarami/udc-sub000/internal/llm"
	"github.com/albarami/udc-sub000/internal/model"
)

const classifierSystemPrompt = `Classify a business query into exactly one complexity tier: simple, medium, complex, critical. Respond with the single tier word only.
simple = direct single-metric lookup. medium = multi-metric assessment. complex = strategic analysis needing multiple perspectives. critical = urgent decision support.`

// criticalCues mark queries that need the fast path with verification.
var criticalCues = []string{
	"urgent", "immediately", "right now", "asap", "today", "crisis", "emergency",
}

// complexCues mark queries that need the full deliberation path.
var complexCues = []string{
	"sustainable", "strategy", "strategic", "should we", "long-term", "long term",
	"outlook", "compare", "trade-off", "tradeoff", "implications", "scenario",
	"risks", "viable", "diversify", "expansion", "why",
}

// simpleLeads are sentence openers for single-metric lookups.
var simpleLeads = []string{
	"what is", "what was", "what were", "how much", "how many",
}

// Classifier maps queries to complexity tiers using keyword heuristics
// with an optional LLM fallback for inconclusive cases.
type Classifier struct {
	completer llm.Completer // nil disables the fallback
	modelID   string
}

// New creates a classifier. Pass a nil completer to run heuristics only.
func New(completer llm.Completer, modelID string) *Classifier {
	return &Classifier{completer: completer, modelID: modelID}
}

// Heuristic returns the tier implied by keyword cues and query length,
// and whether the decision was conclusive.
func Heuristic(query string) (model.Complexity, bool) {
	q := strings.ToLower(strings.TrimSpace(query))
	words := len(strings.Fields(q))

	for _, cue := range criticalCues {
		if strings.Contains(q, cue) {
			return model.ComplexityCritical, true
		}
	}
	for _, cue := range complexCues {
		if strings.Contains(q, cue) {
			return model.ComplexityComplex, true
		}
	}
	if words > 25 {
		return model.ComplexityComplex, true
	}
	for _, lead := range simpleLeads {
		if strings.HasPrefix(q, lead) && words <= 8 && !strings.Contains(q, " and ") {
			return model.ComplexitySimple, true
		}
	}
	return model.ComplexityMedium, false
}

// Classify sets state.Complexity. Heuristics decide; the LLM fallback
// runs only for inconclusive queries when a completer is configured. Any
// fallback failure defaults to medium with a warning — classification
// never fails the session.
func (c *Classifier) Classify(ctx context.Context, state *model.State) error {
	tier, decisive := Heuristic(state.Query)

	if !decisive && c.completer != nil {
		llmTier, err := c.llmFallback(ctx, state.Query)
		if err != nil {
			zap.L().Warn("classify: llm fallback failed", zap.Error(err))
			state.AddWarning("classifier fallback failed; defaulting to medium")
			tier = model.ComplexityMedium
		} else {
			tier = llmTier
		}
	}

	state.Complexity = tier
	state.AppendReasoning("classified query as " + string(tier))
	return nil
}

func (c *Classifier) llmFallback(ctx context.Context, query string) (model.Complexity, error) {
	resp, err := c.completer.Complete(ctx, llm.Request{
		Model:       c.modelID,
		System:      classifierSystemPrompt,
		User:        query,
		Temperature: 0.0,
		MaxTokens:   10,
	})
	if err != nil {
		return model.ComplexityMedium, err
	}

	tier := model.Complexity(strings.ToLower(strings.TrimSpace(resp.Text)))
	if !tier.Valid() {
		zap.L().Warn("classify: unrecognized tier from model", zap.String("raw", resp.Text))
		return model.ComplexityMedium, nil
	}
	return tier, nil
}
