// Package llm defines the completion capability consumed by LLM-backed
// stages, plus the production adapter over the Anthropic client.
package llm

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/albarami/udc-sub000/internal/budget"
	"github.com/albarami/udc-sub000/internal/resilience"
	"github.com/albarami/udc-sub000/pkg/anthropic"
)

// Request is one completion request.
type Request struct {
	Model       string
	System      string
	User        string
	Temperature float64
	MaxTokens   int
}

// Response is the completion result with token accounting.
type Response struct {
	Text         string
	InputTokens  int
	OutputTokens int
}

// Completer is the sole LLM capability the engine depends on. Stages
// receive it explicitly; there are no package-level singletons.
type Completer interface {
	Complete(ctx context.Context, req Request) (*Response, error)
}

// anthropicCompleter adapts the Anthropic client, guarded by a shared
// circuit breaker so a dead API fails fast across stages.
type anthropicCompleter struct {
	client  anthropic.Client
	breaker *resilience.CircuitBreaker
}

// NewAnthropicCompleter wraps an Anthropic client as a Completer. The
// breaker may be nil to disable circuit breaking.
func NewAnthropicCompleter(client anthropic.Client, breaker *resilience.CircuitBreaker) Completer {
	return &anthropicCompleter{client: client, breaker: breaker}
}

func (c *anthropicCompleter) Complete(ctx context.Context, req Request) (*Response, error) {
	call := func(ctx context.Context) (*anthropic.MessageResponse, error) {
		temp := req.Temperature
		return c.client.CreateMessage(ctx, anthropic.MessageRequest{
			Model:       req.Model,
			MaxTokens:   int64(req.MaxTokens),
			System:      req.System,
			Temperature: &temp,
			Messages: []anthropic.Message{
				{Role: "user", Content: req.User},
			},
		})
	}

	var resp *anthropic.MessageResponse
	var err error
	if c.breaker != nil {
		resp, err = resilience.ExecuteVal(ctx, c.breaker, call)
	} else {
		resp, err = call(ctx)
	}
	if err != nil {
		return nil, eris.Wrap(err, "llm: complete")
	}

	return &Response{
		Text:         resp.Text,
		InputTokens:  int(resp.Usage.InputTokens),
		OutputTokens: int(resp.Usage.OutputTokens),
	}, nil
}

// metered decorates a Completer with per-session call and cost accounting.
type metered struct {
	inner Completer
	meter *budget.Meter
}

// NewMetered wraps a Completer so every successful call is recorded on the
// session meter.
func NewMetered(inner Completer, meter *budget.Meter) Completer {
	return &metered{inner: inner, meter: meter}
}

func (m *metered) Complete(ctx context.Context, req Request) (*Response, error) {
	resp, err := m.inner.Complete(ctx, req)
	if err != nil {
		return nil, err
	}
	m.meter.RecordCall(req.Model, resp.InputTokens, resp.OutputTokens)
	return resp, nil
}
