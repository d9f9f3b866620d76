package llm

import (
	"context"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/albarami/udc-sub000/internal/budget"
	"github.com/albarami/udc-sub000/internal/cost"
	"github.com/albarami/udc-sub000/internal/resilience"
	"github.com/albarami/udc-sub000/pkg/anthropic"
)

// fakeAnthropicClient scripts CreateMessage responses.
type fakeAnthropicClient struct {
	reqs []anthropic.MessageRequest
	resp *anthropic.MessageResponse
	err  error
}

func (f *fakeAnthropicClient) CreateMessage(_ context.Context, req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	f.reqs = append(f.reqs, req)
	if f.err != nil {
		return nil, f.err
	}
	return f.resp, nil
}

func TestAnthropicCompleter_MapsRequestAndResponse(t *testing.T) {
	client := &fakeAnthropicClient{
		resp: &anthropic.MessageResponse{
			Text:  "analysis text",
			Usage: anthropic.TokenUsage{InputTokens: 120, OutputTokens: 300},
		},
	}
	c := NewAnthropicCompleter(client, nil)

	resp, err := c.Complete(context.Background(), Request{
		Model:       "test-model",
		System:      "system prompt",
		User:        "user prompt",
		Temperature: 0.7,
		MaxTokens:   1500,
	})
	require.NoError(t, err)
	assert.Equal(t, "analysis text", resp.Text)
	assert.Equal(t, 120, resp.InputTokens)
	assert.Equal(t, 300, resp.OutputTokens)

	require.Len(t, client.reqs, 1)
	req := client.reqs[0]
	assert.Equal(t, "test-model", req.Model)
	assert.Equal(t, "system prompt", req.System)
	assert.Equal(t, int64(1500), req.MaxTokens)
	require.NotNil(t, req.Temperature)
	assert.Equal(t, 0.7, *req.Temperature)
	require.Len(t, req.Messages, 1)
	assert.Equal(t, "user", req.Messages[0].Role)
	assert.Equal(t, "user prompt", req.Messages[0].Content)
}

func TestAnthropicCompleter_BreakerRejectsWhenOpen(t *testing.T) {
	client := &fakeAnthropicClient{err: resilience.NewTransientError(eris.New("529"), 529)}
	breaker := resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{FailureThreshold: 1})
	c := NewAnthropicCompleter(client, breaker)

	_, err := c.Complete(context.Background(), Request{Model: "test-model"})
	require.Error(t, err)

	_, err = c.Complete(context.Background(), Request{Model: "test-model"})
	assert.ErrorIs(t, eris.Cause(err), resilience.ErrCircuitOpen)
	assert.Len(t, client.reqs, 1)
}

type fakeCompleter struct {
	resp *Response
	err  error
}

func (f *fakeCompleter) Complete(_ context.Context, _ Request) (*Response, error) {
	return f.resp, f.err
}

func TestMetered_RecordsSuccessfulCalls(t *testing.T) {
	meter := budget.NewMeter(budget.DefaultLimits(), cost.NewCalculator(cost.Rates{
		"test-model": {Input: 1.00, Output: 1.00},
	}))
	m := NewMetered(&fakeCompleter{resp: &Response{Text: "ok", InputTokens: 100, OutputTokens: 50}}, meter)

	_, err := m.Complete(context.Background(), Request{Model: "test-model"})
	require.NoError(t, err)
	assert.Equal(t, 1, meter.Calls())

	in, out := meter.Tokens()
	assert.Equal(t, 100, in)
	assert.Equal(t, 50, out)
}

func TestMetered_FailedCallsNotRecorded(t *testing.T) {
	meter := budget.NewMeter(budget.DefaultLimits(), cost.NewCalculator(nil))
	m := NewMetered(&fakeCompleter{err: eris.New("api down")}, meter)

	_, err := m.Complete(context.Background(), Request{Model: "test-model"})
	assert.Error(t, err)
	assert.Equal(t, 0, meter.Calls())
}
