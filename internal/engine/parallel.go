package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/albarami/udc-sub000/internal/agents"
	"github.com/albarami/udc-sub000/internal/model"
	"github.com/albarami/udc-sub000/internal/resilience"
)

// minParallelSuccesses is how many of the four specialists must succeed
// for the parallel path to continue undegraded.
const minParallelSuccesses = 3

// specialistResult is one fan-out outcome, merged in fixed role order.
type specialistResult struct {
	analysis   string
	confidence float64
	err        error
}

// runParallelSpecialists fans all four specialists out concurrently.
// Each invocation carries its own retry and timeout policy. Outputs are
// merged into State in fixed role order regardless of completion order,
// and the fan-out is a single reasoning-chain event.
func (s *session) runParallelSpecialists(ctx context.Context, state *model.State) error {
	input := agents.BuildInput(state, nil)
	timeout := stageTimeout(StageFinancial, s.eng.cfg.Engine.StageTimeouts)

	var mu sync.Mutex
	results := make(map[model.Role]specialistResult, len(s.specialists))

	g, gCtx := errgroup.WithContext(ctx)
	for _, sp := range s.specialists {
		g.Go(func() error {
			analysis, confidence, err := s.runOneSpecialist(gCtx, sp, input, timeout)
			mu.Lock()
			results[sp.Role()] = specialistResult{analysis: analysis, confidence: confidence, err: err}
			mu.Unlock()
			// Per-specialist failures degrade, they don't cancel siblings.
			return nil
		})
	}
	_ = g.Wait()

	succeeded := 0
	var failedRoles []model.Role
	for _, role := range model.AllRoles {
		r, ok := results[role]
		if !ok {
			continue
		}
		if r.err != nil {
			failedRoles = append(failedRoles, role)
			state.AddError(string(role), r.err)
			continue
		}
		succeeded++
		state.Analyses[role] = r.analysis
		state.AgentConfidenceScores[role] = r.confidence
		state.MarkAgentInvoked(role)
	}

	state.AppendReasoning(fmt.Sprintf(
		"parallel fan-out: %d of %d specialists completed", succeeded, len(s.specialists)))

	if succeeded < minParallelSuccesses {
		for _, role := range failedRoles {
			state.AddWarning(fmt.Sprintf("%s specialist unavailable after retries", role))
		}
		state.AddWarning(fmt.Sprintf(
			"parallel path degraded: only %d of %d specialists succeeded", succeeded, len(s.specialists)))
		s.degradationFactor *= degradationMultiplier
		zap.L().Warn("parallel fan-out degraded",
			zap.Int("succeeded", succeeded),
			zap.Int("total", len(s.specialists)),
		)
	}
	return nil
}

// runOneSpecialist applies the per-invocation retry and timeout policy.
func (s *session) runOneSpecialist(ctx context.Context, sp *agents.Specialist, input agents.Input, timeout time.Duration) (string, float64, error) {
	type out struct {
		analysis   string
		confidence float64
	}

	result, attempts, err := resilience.DoVal(ctx, s.retryConfig(string(sp.Role())), func(ctx context.Context) (out, error) {
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		analysis, confidence, err := sp.Run(ctx, input)
		return out{analysis: analysis, confidence: confidence}, err
	})

	s.mu.Lock()
	s.state.RetryCount += attempts - 1
	s.mu.Unlock()

	return result.analysis, result.confidence, err
}
