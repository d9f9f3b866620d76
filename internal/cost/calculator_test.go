package cost

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCalculator_Call(t *testing.T) {
	calc := NewCalculator(Rates{
		"claude-sonnet-4-5-20250929": {Input: 3.00, Output: 15.00},
	})

	// 100k input + 10k output: 0.3 + 0.15.
	got := calc.Call("claude-sonnet-4-5-20250929", 100_000, 10_000)
	assert.InDelta(t, 0.45, got, 1e-9)
}

func TestCalculator_UnknownModelIsFree(t *testing.T) {
	calc := NewCalculator(DefaultRates())
	assert.Equal(t, 0.0, calc.Call("some-future-model", 1_000_000, 1_000_000))
}

func TestCalculator_ZeroTokens(t *testing.T) {
	calc := NewCalculator(DefaultRates())
	assert.Equal(t, 0.0, calc.Call("claude-haiku-4-5-20251001", 0, 0))
}

func TestDefaultRates_CoversConfiguredModels(t *testing.T) {
	rates := DefaultRates()
	for _, m := range []string{
		"claude-haiku-4-5-20251001",
		"claude-sonnet-4-5-20250929",
		"claude-opus-4-1-20250805",
	} {
		r, ok := rates[m]
		assert.True(t, ok, m)
		assert.Greater(t, r.Output, r.Input, m)
	}
}
