// Package extract implements the three-layer fact extractor: rule-based
// patterns, model extraction, and cross-validation between the two. It is
// the only stage that sees retrieved source text; everything downstream
// works from the validated fact set.
package extract

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/albarami/udc-sub000/internal/llm"
	"github.com/albarami/udc-sub000/internal/model"
	"github.com/albarami/udc-sub000/internal/resilience"
	"github.com/albarami/udc-sub000/internal/retrieval"
)

// Cross-validation constants.
const (
	agreementTolerance   = 0.01 // relative difference below this is agreement
	agreementConfidence  = 0.98
	conflictConfidence   = 0.75
	relativeDiffEpsilon  = 1e-9
)

// Extractor runs retrieval and the three extraction layers.
type Extractor struct {
	searcher    retrieval.Searcher
	completer   llm.Completer
	modelID     string
	temperature float64
	topK        int
	retry       resilience.RetryConfig
}

// New creates an Extractor. The completer may be nil, which disables
// layer B (rule-only extraction).
func New(searcher retrieval.Searcher, completer llm.Completer, modelID string, temperature float64, topK int) *Extractor {
	if topK <= 0 {
		topK = 5
	}
	return &Extractor{
		searcher:    searcher,
		completer:   completer,
		modelID:     modelID,
		temperature: temperature,
		topK:        topK,
		retry:       resilience.DefaultRetryConfig(),
	}
}

// WithRetry overrides the retry policy applied to the model extraction
// layer.
func (e *Extractor) WithRetry(cfg resilience.RetryConfig) *Extractor {
	e.retry = cfg
	return e
}

// Extract populates the fact fields of state. The retrieved raw text is
// local to this call and discarded on return. Empty retrieval is not an
// error; downstream stages degrade to "data not available" output.
func (e *Extractor) Extract(ctx context.Context, state *model.State) error {
	docs, err := e.searcher.Search(ctx, state.Query, e.topK)
	if err != nil {
		return eris.Wrap(err, "extract: retrieval")
	}

	if len(docs) == 0 {
		state.ExtractedFacts = make(model.FactSet)
		state.ExtractionConfidence = 0.0
		state.AddWarning("extraction: no documents retrieved")
		state.AppendReasoning("extraction found no source documents")
		return nil
	}

	rawContext := buildContext(docs)

	ruleFacts := RuleExtract(rawContext)

	var llmFacts model.FactSet
	if e.completer != nil {
		// Transient layer-B failures (API hiccups, unparseable model
		// output) are retried before the layer is given up on; only an
		// exhausted or permanent failure degrades to rule-only extraction.
		facts, attempts, lerr := resilience.DoVal(ctx, e.retry, func(ctx context.Context) (model.FactSet, error) {
			return LLMExtract(ctx, e.completer, e.modelID, e.temperature, state.Query, rawContext)
		})
		state.RetryCount += attempts - 1
		llmFacts = facts
		if lerr != nil {
			zap.L().Warn("extract: llm layer failed, continuing rule-only",
				zap.Int("attempts", attempts), zap.Error(lerr))
			state.AddWarning("extraction: llm layer unavailable, rule-based facts only")
			llmFacts = nil
		}
	}

	facts, conflicts := CrossValidate(ruleFacts, llmFacts)

	state.ExtractedFacts = facts
	state.DataConflicts = conflicts
	state.ExtractionConfidence = facts.MeanConfidence()
	state.ExtractionSources = contributingSources(ruleFacts, llmFacts)

	state.AppendReasoning(fmt.Sprintf(
		"extracted %d facts from %d documents (confidence %.2f, %d conflicts)",
		len(facts), len(docs), state.ExtractionConfidence, len(conflicts),
	))
	return nil
}

// CrossValidate is layer C. For metrics both layers produced, agreement
// within 1%% relative difference yields confidence 0.98; disagreement
// keeps the rule-based value (more auditable) at confidence 0.75 and
// records a conflict. Single-layer metrics pass through unchanged.
func CrossValidate(ruleFacts, llmFacts model.FactSet) (model.FactSet, []model.Conflict) {
	merged := make(model.FactSet, len(ruleFacts)+len(llmFacts))
	var conflicts []model.Conflict

	for metric, rf := range ruleFacts {
		lf, inBoth := llmFacts[metric]
		if !inBoth {
			merged[metric] = rf
			continue
		}

		if relativeDiff(rf.Value, lf.Value) < agreementTolerance {
			rf.Confidence = agreementConfidence
			rf.VerifiedBy = model.VerifiedRuleAndLLM
			merged[metric] = rf
			continue
		}

		conflicts = append(conflicts, model.Conflict{
			Metric:    metric,
			RuleValue: rf.Value,
			LLMValue:  lf.Value,
			Kept:      model.SourceRuleBased,
		})
		rf.Confidence = conflictConfidence
		merged[metric] = rf
	}

	for metric, lf := range llmFacts {
		if _, seen := ruleFacts[metric]; !seen {
			merged[metric] = lf
		}
	}

	return merged, conflicts
}

func relativeDiff(a, b float64) float64 {
	denom := math.Max(math.Max(math.Abs(a), math.Abs(b)), relativeDiffEpsilon)
	return math.Abs(a-b) / denom
}

func contributingSources(ruleFacts, llmFacts model.FactSet) []string {
	var sources []string
	if len(ruleFacts) > 0 {
		sources = append(sources, model.SourceRuleBased)
	}
	if len(llmFacts) > 0 {
		sources = append(sources, model.SourceLLMBased)
	}
	return sources
}

func buildContext(docs []retrieval.Document) string {
	var b strings.Builder
	for _, d := range docs {
		fmt.Fprintf(&b, "--- Source: %s ---\n%s\n\n", d.Citation, d.Content)
	}
	return b.String()
}
