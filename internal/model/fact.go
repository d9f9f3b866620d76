package model

import (
	"fmt"
	"sort"
	"strings"
)

// Extraction source identifiers.
const (
	SourceRuleBased  = "rule_based"
	SourceLLMBased   = "llm_based"
	VerifiedRuleAndLLM = "rule_and_llm"
)

// Fact is a quote-anchored numeric claim extracted from source text. The
// Quote field is the exact substring of the raw source that contains the
// value; it is the citation anchor the verifier checks claims against.
type Fact struct {
	Value        float64 `json:"value"`
	Unit         string  `json:"unit"`
	Quote        string  `json:"quote"`
	Source       string  `json:"source"`
	Confidence   float64 `json:"confidence"`
	FiscalPeriod string  `json:"fiscal_period,omitempty"`
	VerifiedBy   string  `json:"verified_by,omitempty"`
}

// FactSet maps canonical metric names to facts.
type FactSet map[string]Fact

// Clone returns an independent copy of the set.
func (fs FactSet) Clone() FactSet {
	if fs == nil {
		return nil
	}
	out := make(FactSet, len(fs))
	for k, v := range fs {
		out[k] = v
	}
	return out
}

// MeanConfidence averages per-fact confidences, 0.0 when empty.
func (fs FactSet) MeanConfidence() float64 {
	if len(fs) == 0 {
		return 0.0
	}
	var sum float64
	for _, f := range fs {
		sum += f.Confidence
	}
	return sum / float64(len(fs))
}

// Metrics returns the metric names in sorted order for deterministic
// prompt construction and audit output.
func (fs FactSet) Metrics() []string {
	names := make([]string, 0, len(fs))
	for k := range fs {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// FormatForPrompt renders the fact set as the data block passed to
// specialist, deliberation, and synthesis prompts. Each line carries the
// exact quote so the model can cite it verbatim. Returns a "no data"
// marker when the set is empty so downstream prompts degrade cleanly.
func (fs FactSet) FormatForPrompt() string {
	if len(fs) == 0 {
		return "NO EXTRACTED DATA AVAILABLE."
	}
	var b strings.Builder
	for _, name := range fs.Metrics() {
		f := fs[name]
		fmt.Fprintf(&b, "- %s: %.2f %s", name, f.Value, f.Unit)
		if f.FiscalPeriod != "" {
			fmt.Fprintf(&b, " (%s)", f.FiscalPeriod)
		}
		fmt.Fprintf(&b, " | quote: %q | confidence: %.2f\n", f.Quote, f.Confidence)
	}
	return b.String()
}
