package main

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/albarami/udc-sub000/internal/engine"
	"github.com/albarami/udc-sub000/internal/llm"
	"github.com/albarami/udc-sub000/internal/model"
	"github.com/albarami/udc-sub000/internal/resilience"
	"github.com/albarami/udc-sub000/internal/retrieval"
	"github.com/albarami/udc-sub000/internal/store"
	anthropicpkg "github.com/albarami/udc-sub000/pkg/anthropic"
)

// initEngine wires the analysis engine from configuration: Anthropic
// client behind a circuit breaker, document searcher, and specialist
// profiles.
func initEngine() (*engine.Engine, error) {
	if cfg.Anthropic.Key == "" {
		return nil, eris.New("anthropic.key is required (set ADVISOR_ANTHROPIC_KEY)")
	}

	client := anthropicpkg.NewClient(cfg.Anthropic.Key,
		anthropicpkg.WithRateLimit(cfg.Anthropic.RequestsPerSec, cfg.Anthropic.Burst))
	breaker := resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
		ShouldTrip: resilience.IsTransient,
		OnStateChange: func(from, to resilience.CircuitState) {
			zap.L().Warn("llm circuit state change",
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})
	completer := llm.NewAnthropicCompleter(client, breaker)

	var searcher retrieval.Searcher
	if cfg.Retrieval.DocumentsDir != "" {
		s, err := retrieval.NewDirSearcher(cfg.Retrieval.DocumentsDir)
		if err != nil {
			return nil, eris.Wrap(err, "init document searcher")
		}
		searcher = s
	} else {
		zap.L().Warn("retrieval.documents_dir not set, sessions run without source documents")
		searcher = retrieval.NewStaticSearcher(nil)
	}

	profiles := model.DefaultProfiles()
	if cfg.ProfilesPath != "" {
		p, err := model.LoadProfiles(cfg.ProfilesPath)
		if err != nil {
			return nil, eris.Wrap(err, "load specialist profiles")
		}
		profiles = p
	}

	return engine.New(cfg, completer, searcher, profiles), nil
}

// initStore opens the configured run-history backend with migrations
// applied.
func initStore(ctx context.Context) (store.Store, error) {
	st, err := store.Open(ctx, cfg.Store.Driver, cfg.Store.DatabaseURL)
	if err != nil {
		return nil, eris.Wrap(err, "init store")
	}
	return st, nil
}
