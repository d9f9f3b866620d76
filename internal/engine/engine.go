// Package engine drives a session through the stage graph: classify,
// extract, analyze, deliberate, verify, synthesize. It owns per-session
// budgets, retries, timeouts, and graceful degradation.
package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/albarami/udc-sub000/internal/agents"
	"github.com/albarami/udc-sub000/internal/budget"
	"github.com/albarami/udc-sub000/internal/classify"
	"github.com/albarami/udc-sub000/internal/config"
	"github.com/albarami/udc-sub000/internal/cost"
	"github.com/albarami/udc-sub000/internal/deliberate"
	"github.com/albarami/udc-sub000/internal/extract"
	"github.com/albarami/udc-sub000/internal/llm"
	"github.com/albarami/udc-sub000/internal/model"
	"github.com/albarami/udc-sub000/internal/resilience"
	"github.com/albarami/udc-sub000/internal/retrieval"
	"github.com/albarami/udc-sub000/internal/synth"
	"github.com/albarami/udc-sub000/internal/verify"
)

// degradationMultiplier is applied to the final confidence score once per
// permanently failed stage and once for a degraded parallel fan-out.
const degradationMultiplier = 0.8

// eventBuffer is sized so the runner never blocks on an abandoned
// subscriber: two events per stage plus slack.
const eventBuffer = 64

// Engine runs analysis sessions. It is safe for concurrent sessions;
// all mutable accounting lives in per-session state.
type Engine struct {
	cfg       *config.Config
	completer llm.Completer
	searcher  retrieval.Searcher
	profiles  []model.SpecialistProfile
	calc      *cost.Calculator

	// sleep overrides retry backoff sleeps in tests.
	sleep func(ctx context.Context, d time.Duration) error
}

// New assembles an engine from its collaborators. The completer is the
// shared (unmetered) LLM client; each session wraps it with its own
// budget meter.
func New(cfg *config.Config, completer llm.Completer, searcher retrieval.Searcher, profiles []model.SpecialistProfile) *Engine {
	if len(profiles) == 0 {
		profiles = model.DefaultProfiles()
	}
	return &Engine{
		cfg:       cfg,
		completer: completer,
		searcher:  searcher,
		profiles:  profiles,
		calc:      cost.NewCalculator(cfg.Pricing),
	}
}

// session is one query's run: state, budget meter, and the stage
// components bound to the session's metered completer.
type session struct {
	eng   *Engine
	state *model.State
	meter *budget.Meter

	classifier  *classify.Classifier
	extractor   *extract.Extractor
	specialists []*agents.Specialist
	debate      *deliberate.Debate
	critique    *deliberate.Critique
	verifier    *verify.Verifier
	synthesizer *synth.Synthesizer

	degradationFactor float64

	mu     sync.Mutex
	events chan model.StageEvent
}

// Analyze starts a session for query and returns its event stream. The
// channel receives a started and a completed (or failed) event per stage
// and closes when the session terminates; the final event carries the
// finished state snapshot. Configuration is validated synchronously, so
// a misconfigured engine fails before any stage runs.
func (e *Engine) Analyze(ctx context.Context, query string) (<-chan model.StageEvent, error) {
	if err := e.cfg.Validate(); err != nil {
		return nil, eris.Wrap(err, "engine: start session")
	}
	if query == "" {
		return nil, eris.New("engine: query is empty")
	}

	s := e.newSession(query)
	go s.run(ctx)
	return s.events, nil
}

// AnalyzeSync runs a session to completion and returns the final state.
func (e *Engine) AnalyzeSync(ctx context.Context, query string) (*model.State, error) {
	events, err := e.Analyze(ctx, query)
	if err != nil {
		return nil, err
	}

	var final *model.State
	for ev := range events {
		if ev.State != nil {
			final = ev.State
		}
	}
	if final == nil {
		return nil, eris.New("engine: session produced no state")
	}
	return final, nil
}

func (e *Engine) newSession(query string) *session {
	limits := budget.Limits{
		MaxLLMCalls:     e.cfg.Budget.MaxLLMCalls,
		MaxCost:         e.cfg.Budget.MaxCost,
		MaxTotalSeconds: e.cfg.Budget.MaxTotalSeconds,
	}
	meter := budget.NewMeter(limits, e.calc)
	completer := llm.NewMetered(e.completer, meter)

	var classifyCompleter llm.Completer
	if e.cfg.Engine.UseLLMClassifier {
		classifyCompleter = completer
	}

	specialists := make([]*agents.Specialist, 0, len(e.profiles))
	for _, p := range e.profiles {
		specialists = append(specialists, agents.New(p, completer, e.cfg.Models.AnalysisModel, e.cfg.Models.AnalysisTemperature))
	}

	return &session{
		eng:   e,
		state: model.NewState(uuid.NewString(), query),
		meter: meter,

		classifier: classify.New(classifyCompleter, e.cfg.Models.AnalysisModel),
		extractor: extract.New(e.searcher, completer,
			e.cfg.Models.ExtractionModel, e.cfg.Models.ExtractionTemperature, e.cfg.Retrieval.TopK).
			WithRetry(e.retryConfig(StageExtract)),
		specialists: specialists,
		debate:      deliberate.NewDebate(completer, e.cfg.Models.AnalysisModel, e.cfg.Models.AnalysisTemperature),
		critique:    deliberate.NewCritique(completer, e.cfg.Models.AnalysisModel, e.cfg.Models.AnalysisTemperature),
		verifier:    verify.New(verify.DefaultTokenizer),
		synthesizer: synth.New(completer, e.cfg.Models.SynthesisModel, e.cfg.Models.SynthesisTemperature),

		degradationFactor: 1.0,
		events:            make(chan model.StageEvent, eventBuffer),
	}
}

// run is the session loop: classify, then follow NextStage edges until
// the terminal stage, jumping straight to synthesis when the wall-clock
// budget is exhausted. Every transition is recorded in the routing
// audit trail. The loop always terminates with a non-empty synthesis.
func (s *session) run(ctx context.Context) {
	defer close(s.events)

	logger := zap.L().With(zap.String("session_id", s.state.SessionID))
	logger.Info("session started", zap.String("query", s.state.Query))

	s.executeStage(ctx, StageClassify)

	current := StageClassify
	for {
		next, reason := NextStage(current, s.state, s.eng.cfg.Engine.UseRouting, s.eng.cfg.Engine.UseParallelGraph)
		if next == "" {
			break
		}

		if s.meter.OverTime() && next != StageSynthesis {
			reason = fmt.Sprintf("time budget exhausted after %.1fs, jumping to synthesis", s.meter.Elapsed().Seconds())
			s.state.AddRoutingDecision(current, StageSynthesis, reason)
			s.state.AddWarning(reason)
			s.state.VerificationStatus = model.VerificationPartial
			s.executeStage(ctx, StageSynthesis)
			current = StageSynthesis
			continue
		}

		s.state.AddRoutingDecision(current, next, reason)
		s.executeStage(ctx, next)
		current = next
	}

	s.finalize()
	logger.Info("session finished",
		zap.String("complexity", string(s.state.Complexity)),
		zap.Float64("confidence", s.state.ConfidenceScore),
		zap.Float64("cost_usd", s.state.CumulativeCost),
		zap.Int("llm_calls", s.state.LLMCalls),
	)
	s.emit(model.StageCompleted, "session", nil)
}

// executeStage runs one stage under its retry and timeout policy,
// marking it executed and draining budget warnings whether it succeeded
// or not. Permanent failure degrades the session instead of ending it.
func (s *session) executeStage(ctx context.Context, name string) {
	s.emit(model.StageStarted, name, nil)

	err := s.runWithPolicy(ctx, name)

	for _, w := range s.meter.TakeWarnings() {
		s.state.AddWarning(w)
	}
	s.state.MarkExecuted(name)

	if err != nil {
		s.state.AddError(name, err)
		s.state.AddWarning(fmt.Sprintf("%s stage failed permanently; continuing degraded", name))
		s.state.AppendReasoning(fmt.Sprintf("%s stage failed, session degraded", name))
		s.degradationFactor *= degradationMultiplier
		zap.L().Warn("stage failed",
			zap.String("session_id", s.state.SessionID),
			zap.String("stage", name),
			zap.Error(err),
		)
		if name == StageSynthesis {
			s.synthesizer.Fallback(s.state)
		}
		s.emit(model.StageFailed, name, err)
		return
	}

	s.emit(model.StageCompleted, name, nil)
}

func (s *session) runWithPolicy(ctx context.Context, name string) error {
	// The fan-out applies retry and timeout per specialist and absorbs
	// partial failure itself.
	if name == StageParallel {
		return s.runParallelSpecialists(ctx, s.state)
	}

	fn := s.stageFunc(name)
	timeout := stageTimeout(name, s.eng.cfg.Engine.StageTimeouts)

	_, attempts, err := resilience.DoVal(ctx, s.retryConfig(name), func(ctx context.Context) (struct{}, error) {
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		return struct{}{}, fn(ctx, s.state)
	})

	s.mu.Lock()
	s.state.RetryCount += attempts - 1
	s.mu.Unlock()

	return err
}

func (s *session) stageFunc(name string) StageFunc {
	switch name {
	case StageClassify:
		return s.classifier.Classify
	case StageExtract:
		return s.extractor.Extract
	case StageFinancial, StageMarket, StageOperations, StageResearch:
		return s.specialistFor(name).Analyze
	case StageDebate:
		return s.debate.Run
	case StageCritique:
		return s.critique.Run
	case StageVerify:
		return s.verifier.Run
	case StageSynthesis:
		return s.synthesizer.Run
	}
	return func(ctx context.Context, state *model.State) error {
		return eris.Errorf("engine: unknown stage %q", name)
	}
}

var stageRoles = map[string]model.Role{
	StageFinancial:  model.RoleFinancial,
	StageMarket:     model.RoleMarket,
	StageOperations: model.RoleOperations,
	StageResearch:   model.RoleResearch,
}

func (s *session) specialistFor(name string) *agents.Specialist {
	role := stageRoles[name]
	for _, sp := range s.specialists {
		if sp.Role() == role {
			return sp
		}
	}
	// Profiles are validated at load; reaching here means a profile set
	// without this role, so fail the stage rather than panic.
	return agents.New(model.SpecialistProfile{Role: role}, nil, "", 0)
}

func (e *Engine) retryConfig(stage string) resilience.RetryConfig {
	cfg := resilience.DefaultRetryConfig()
	if e.cfg.Engine.MaxRetries > 0 {
		cfg.MaxAttempts = e.cfg.Engine.MaxRetries
	}
	if e.cfg.Engine.RetryBackoffBase > 0 {
		cfg.BackoffBase = e.cfg.Engine.RetryBackoffBase
	}
	cfg.OnRetry = resilience.RetryLogger(stage)
	cfg.Sleep = e.sleep
	return cfg
}

func (s *session) retryConfig(stage string) resilience.RetryConfig {
	return s.eng.retryConfig(stage)
}

// finalize applies the accumulated degradation factor, guarantees a
// non-empty synthesis, and closes out the session metrics.
func (s *session) finalize() {
	if s.state.FinalSynthesis == "" {
		s.synthesizer.Fallback(s.state)
	}
	if s.degradationFactor < 1.0 {
		s.state.ConfidenceScore = model.ClampConfidence(s.state.ConfidenceScore * s.degradationFactor)
		s.state.AppendReasoning(fmt.Sprintf("confidence degraded to %.2f after partial failures", s.state.ConfidenceScore))
	}
	if s.state.VerificationStatus == "" {
		s.state.VerificationStatus = model.VerificationComplete
	}

	s.state.ExecutionEnd = time.Now()
	s.state.TotalTimeSeconds = s.state.ExecutionEnd.Sub(s.state.ExecutionStart).Seconds()
	s.state.CumulativeCost = s.meter.Cost()
	s.state.LLMCalls = s.meter.Calls()
}

func (s *session) emit(typ model.StageEventType, stage string, err error) {
	ev := model.StageEvent{
		Type:      typ,
		Stage:     stage,
		State:     s.state.Snapshot(),
		Timestamp: time.Now(),
	}
	if err != nil {
		ev.Error = err.Error()
	}
	select {
	case s.events <- ev:
	default:
		// Subscriber stopped draining; drop rather than stall the session.
	}
}
