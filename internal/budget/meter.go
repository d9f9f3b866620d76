// Package budget tracks per-session LLM call, cost, and wall-clock budgets.
package budget

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/albarami/udc-sub000/internal/cost"
)

// Limits are the soft per-session budgets. Breaching calls or cost only
// produces warnings; breaching time makes the engine jump to synthesis.
type Limits struct {
	MaxLLMCalls     int
	MaxCost         float64
	MaxTotalSeconds float64
}

// DefaultLimits returns the standard session budgets.
func DefaultLimits() Limits {
	return Limits{
		MaxLLMCalls:     15,
		MaxCost:         2.00,
		MaxTotalSeconds: 120,
	}
}

// Meter is the per-session metering context passed to every LLM-backed
// stage. It is safe for concurrent use by the parallel specialist fan-out.
type Meter struct {
	limits Limits
	calc   *cost.Calculator
	start  time.Time

	mu           sync.Mutex
	calls        int
	inputTokens  int
	outputTokens int
	totalCost    float64
	warnedCalls  bool
	warnedCost   bool
	pending      []string

	nowFunc func() time.Time
}

// NewMeter creates a meter for one session.
func NewMeter(limits Limits, calc *cost.Calculator) *Meter {
	m := &Meter{
		limits:  limits,
		calc:    calc,
		nowFunc: time.Now,
	}
	m.start = m.nowFunc()
	return m
}

// RecordCall accounts for one completed LLM call.
func (m *Meter) RecordCall(model string, inputTokens, outputTokens int) {
	callCost := m.calc.Call(model, inputTokens, outputTokens)

	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls++
	m.inputTokens += inputTokens
	m.outputTokens += outputTokens
	m.totalCost += callCost

	if m.limits.MaxLLMCalls > 0 && m.calls > m.limits.MaxLLMCalls && !m.warnedCalls {
		m.warnedCalls = true
		w := fmt.Sprintf("budget: LLM call limit exceeded (%d > %d)", m.calls, m.limits.MaxLLMCalls)
		m.pending = append(m.pending, w)
		zap.L().Warn("budget breach", zap.String("kind", "llm_calls"), zap.Int("calls", m.calls))
	}
	if m.limits.MaxCost > 0 && m.totalCost > m.limits.MaxCost && !m.warnedCost {
		m.warnedCost = true
		w := fmt.Sprintf("budget: cost limit exceeded ($%.2f > $%.2f)", m.totalCost, m.limits.MaxCost)
		m.pending = append(m.pending, w)
		zap.L().Warn("budget breach", zap.String("kind", "cost"), zap.Float64("cost_usd", m.totalCost))
	}
}

// Calls returns the number of recorded LLM calls.
func (m *Meter) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Cost returns the cumulative cost in USD.
func (m *Meter) Cost() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.totalCost
}

// Tokens returns cumulative input and output token counts.
func (m *Meter) Tokens() (input, output int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.inputTokens, m.outputTokens
}

// Elapsed returns wall time since the meter was created.
func (m *Meter) Elapsed() time.Duration {
	return m.nowFunc().Sub(m.start)
}

// OverTime reports whether the wall-clock budget is exhausted.
func (m *Meter) OverTime() bool {
	if m.limits.MaxTotalSeconds <= 0 {
		return false
	}
	return m.Elapsed().Seconds() > m.limits.MaxTotalSeconds
}

// TakeWarnings returns and clears pending budget warnings. The stage
// wrapper drains these into the session's warning log after each stage.
func (m *Meter) TakeWarnings() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := m.pending
	m.pending = nil
	return out
}
