package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/albarami/udc-sub000/internal/llm"
	"github.com/albarami/udc-sub000/internal/model"
	"github.com/albarami/udc-sub000/internal/resilience"
)

const llmExtractSystemPrompt = `You are a data extraction engine for financial documents. Extract only values literally present in the provided text. Never estimate, never infer, never compute derived figures. Every extracted value must include the exact quote containing it, copied verbatim from the source. Use null for anything not present. Respond with a single JSON object and nothing else.`

const llmExtractUserPrompt = `Question being researched: %s

Source text:
%s

Extract every numeric business metric literally present in the source text. Return a JSON object keyed by snake_case metric name. Each entry:
{"value": <number or null>, "unit": "<millions|percent|...>", "quote": "<exact substring containing the value>", "confidence": <0.0-1.0>, "fiscal_period": "<period or null>"}

Monetary amounts must be normalized to millions (1.06 billion -> 1060). Preserve signs for losses and outflows.`

// llmFact is the wire shape of one extracted entry.
type llmFact struct {
	Value        *float64 `json:"value"`
	Unit         string   `json:"unit"`
	Quote        string   `json:"quote"`
	Confidence   float64  `json:"confidence"`
	FiscalPeriod string   `json:"fiscal_period"`
}

// LLMExtract is layer B: low-temperature model extraction returning a
// fact set keyed by metric name. Parse failures are transient so the
// caller's retry policy re-asks the model before degrading.
func LLMExtract(ctx context.Context, completer llm.Completer, modelID string, temperature float64, query, rawContext string) (model.FactSet, error) {
	resp, err := completer.Complete(ctx, llm.Request{
		Model:       modelID,
		System:      llmExtractSystemPrompt,
		User:        fmt.Sprintf(llmExtractUserPrompt, query, rawContext),
		Temperature: temperature,
		MaxTokens:   2000,
	})
	if err != nil {
		return nil, eris.Wrap(err, "extract: llm layer")
	}

	parsed, err := parseLLMFacts(resp.Text)
	if err != nil {
		return nil, resilience.NewParseError(err)
	}

	facts := make(model.FactSet, len(parsed))
	for metric, lf := range parsed {
		if lf.Value == nil || lf.Quote == "" {
			continue
		}
		conf := lf.Confidence
		if conf <= 0 || conf > 1 {
			conf = 0.85
		}
		facts[canonicalMetric(metric)] = model.Fact{
			Value:        *lf.Value,
			Unit:         normalizeLLMUnit(lf.Unit),
			Quote:        lf.Quote,
			Source:       model.SourceLLMBased,
			Confidence:   conf,
			FiscalPeriod: strings.TrimSpace(lf.FiscalPeriod),
		}
	}
	return facts, nil
}

// parseLLMFacts tolerates markdown code fences around the JSON object.
func parseLLMFacts(text string) (map[string]llmFact, error) {
	cleaned := strings.TrimSpace(text)
	if idx := strings.Index(cleaned, "{"); idx > 0 {
		cleaned = cleaned[idx:]
	}
	if idx := strings.LastIndex(cleaned, "}"); idx >= 0 {
		cleaned = cleaned[:idx+1]
	}

	var out map[string]llmFact
	if err := json.Unmarshal([]byte(cleaned), &out); err != nil {
		return nil, eris.Wrap(err, "extract: decode llm facts")
	}
	return out, nil
}

func canonicalMetric(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	s = strings.ReplaceAll(s, " ", "_")
	s = strings.ReplaceAll(s, "-", "_")
	return s
}

func normalizeLLMUnit(unit string) string {
	switch strings.ToLower(strings.TrimSpace(unit)) {
	case "million", "millions", "mn", "qr million", "qar million":
		return "millions"
	case "%", "percent", "percentage":
		return "percent"
	case "":
		return "millions"
	default:
		return strings.ToLower(strings.TrimSpace(unit))
	}
}
