// Package cost computes USD cost for LLM token usage.
package cost

// ModelRate holds per-model token pricing (USD per million tokens).
type ModelRate struct {
	Input  float64 `yaml:"input" mapstructure:"input"`
	Output float64 `yaml:"output" mapstructure:"output"`
}

// Rates maps model IDs to pricing.
type Rates map[string]ModelRate

// Calculator computes costs for LLM API usage.
type Calculator struct {
	rates Rates
}

// NewCalculator creates a Calculator with the given rates.
func NewCalculator(rates Rates) *Calculator {
	return &Calculator{rates: rates}
}

// Call computes the cost of one completion. Unknown models cost 0.
func (c *Calculator) Call(model string, inputTokens, outputTokens int) float64 {
	rate, ok := c.rates[model]
	if !ok {
		return 0
	}
	return (float64(inputTokens)/1e6)*rate.Input + (float64(outputTokens)/1e6)*rate.Output
}

// DefaultRates returns the default pricing table.
func DefaultRates() Rates {
	return Rates{
		"claude-haiku-4-5-20251001":  {Input: 0.80, Output: 4.00},
		"claude-sonnet-4-5-20250929": {Input: 3.00, Output: 15.00},
		"claude-opus-4-1-20250805":   {Input: 15.00, Output: 75.00},
	}
}
