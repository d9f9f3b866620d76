package engine

import (
	"context"
	"time"

	"github.com/albarami/udc-sub000/internal/model"
)

// Stage names. These are the node identifiers in the session graph and
// the values recorded in nodes_executed and routing_decisions.
const (
	StageClassify  = "classify"
	StageExtract   = "extract"
	StageFinancial = "financial"
	StageMarket    = "market"
	StageOperations = "operations"
	StageResearch  = "research"
	StageParallel  = "parallel_specialists"
	StageDebate    = "debate"
	StageCritique  = "critique"
	StageVerify    = "verify"
	StageSynthesis = "synthesis"
)

// StageFunc is the unit of work in the graph: reads and writes designated
// State fields, suspends only on LLM or retrieval calls.
type StageFunc func(ctx context.Context, state *model.State) error

// defaultTimeouts is the built-in per-stage timeout table, overridable
// from configuration.
var defaultTimeouts = map[string]time.Duration{
	StageClassify:   10 * time.Second,
	StageExtract:    20 * time.Second,
	StageFinancial:  30 * time.Second,
	StageMarket:     30 * time.Second,
	StageOperations: 30 * time.Second,
	StageResearch:   30 * time.Second,
	StageParallel:   30 * time.Second,
	StageDebate:     25 * time.Second,
	StageCritique:   20 * time.Second,
	StageVerify:     15 * time.Second,
	StageSynthesis:  35 * time.Second,
}

// stageTimeout resolves a stage's timeout from config overrides, falling
// back to the defaults table.
func stageTimeout(name string, overrides map[string]int) time.Duration {
	if secs, ok := overrides[name]; ok && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	if d, ok := defaultTimeouts[name]; ok {
		return d
	}
	return 30 * time.Second
}
