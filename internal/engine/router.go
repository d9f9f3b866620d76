package engine

import (
	"github.com/albarami/udc-sub000/internal/model"
)

// sequentialPaths maps each complexity tier to its stage sequence after
// classification. The critical path trades research and critique for
// speed while keeping verification.
var sequentialPaths = map[model.Complexity][]string{
	model.ComplexitySimple: {
		StageExtract, StageFinancial, StageSynthesis,
	},
	model.ComplexityMedium: {
		StageExtract, StageFinancial, StageMarket, StageSynthesis,
	},
	model.ComplexityComplex: {
		StageExtract, StageFinancial, StageMarket, StageOperations,
		StageResearch, StageDebate, StageCritique, StageVerify, StageSynthesis,
	},
	model.ComplexityCritical: {
		StageExtract, StageFinancial, StageMarket, StageOperations,
		StageDebate, StageVerify, StageSynthesis,
	},
}

// parallelPath fans all four specialists out concurrently and always
// deliberates and verifies.
var parallelPath = []string{
	StageExtract, StageParallel, StageDebate, StageCritique, StageVerify, StageSynthesis,
}

// NextStage is the conditional-edge function: a pure function of the
// current node and State. Identical State yields identical next-stage
// names. The reason explains the decision for the routing audit trail.
func NextStage(current string, state *model.State, useRouting, useParallel bool) (next, reason string) {
	complexity := state.Complexity
	if !useRouting {
		complexity = model.ComplexityComplex
	}
	if !complexity.Valid() {
		complexity = model.ComplexityMedium
	}

	path := sequentialPaths[complexity]
	reason = "complexity=" + string(complexity)
	if useParallel {
		path = parallelPath
		reason = "parallel graph"
	}
	if !useRouting {
		reason = "routing disabled, forced " + string(model.ComplexityComplex) + " path"
	}

	if current == StageClassify {
		return path[0], reason
	}
	for i, name := range path {
		if name == current && i+1 < len(path) {
			return path[i+1], reason
		}
	}
	return "", "terminal"
}
