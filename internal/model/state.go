package model

import (
	"time"
)

// Complexity is the routing tier assigned to a query by the classifier.
type Complexity string

const (
	ComplexitySimple   Complexity = "simple"
	ComplexityMedium   Complexity = "medium"
	ComplexityComplex  Complexity = "complex"
	ComplexityCritical Complexity = "critical"
)

// Valid reports whether c is one of the four known tiers.
func (c Complexity) Valid() bool {
	switch c {
	case ComplexitySimple, ComplexityMedium, ComplexityComplex, ComplexityCritical:
		return true
	}
	return false
}

// Role identifies a specialist perspective.
type Role string

const (
	RoleFinancial  Role = "financial"
	RoleMarket     Role = "market"
	RoleOperations Role = "operations"
	RoleResearch   Role = "research"
)

// AllRoles is the fixed merge order for specialist outputs. Parallel
// completions are folded into State in this order regardless of which
// goroutine finishes first.
var AllRoles = []Role{RoleFinancial, RoleMarket, RoleOperations, RoleResearch}

// VerificationStatus marks whether the session ran to completion or was
// cut short by the wall-clock budget.
type VerificationStatus string

const (
	VerificationComplete VerificationStatus = "complete"
	VerificationPartial  VerificationStatus = "partial"
)

// Conflict records a disagreement between the rule-based and LLM
// extraction layers for the same metric.
type Conflict struct {
	Metric    string  `json:"metric"`
	RuleValue float64 `json:"rule_value"`
	LLMValue  float64 `json:"llm_value"`
	Kept      string  `json:"kept"` // extraction source whose value was kept
}

// Contradiction is a structured disagreement surfaced by the debate stage.
type Contradiction struct {
	Description string `json:"description"`
	Type        string `json:"type"`
}

// FactCheckResult summarizes the verifier's pass over one specialist analysis.
// WeakCitations counts claims verified against the fact set without a
// citation anchor.
type FactCheckResult struct {
	TotalNumbers     int     `json:"total_numbers"`
	Verified         int     `json:"verified"`
	WeakCitations    int     `json:"weak_citations,omitempty"`
	VerificationRate float64 `json:"verification_rate"`
}

// Fabrication records a numeric claim with no supporting fact.
type Fabrication struct {
	Role   Role   `json:"role"`
	Claim  string `json:"claim"`
	Reason string `json:"reason"`
}

// RoutingDecision is one entry in the routing audit trail.
type RoutingDecision struct {
	From       string     `json:"from"`
	To         string     `json:"to"`
	Complexity Complexity `json:"complexity"`
	Reason     string     `json:"reason"`
}

// Priority tags a recommendation.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Recommendation is a prioritized action item from the synthesis stage.
type Recommendation struct {
	Text     string   `json:"text"`
	Priority Priority `json:"priority"`
}

// StageError records a permanent stage failure.
type StageError struct {
	Stage   string    `json:"stage"`
	Message string    `json:"message"`
	Time    time.Time `json:"time"`
}

// State is the session record threaded through every stage. It is created
// once per query, mutated in stage order, and returned after synthesis.
// Audit fields (ReasoningChain, NodesExecuted, AgentsInvoked,
// RoutingDecisions, Errors, Warnings) are append-only.
type State struct {
	SessionID string     `json:"session_id"`
	Query     string     `json:"query"`
	Complexity Complexity `json:"complexity"`

	// Extraction outputs. ExtractedFacts is the only representation of the
	// retrieved source text visible to downstream stages.
	ExtractedFacts       FactSet    `json:"extracted_facts"`
	ExtractionSources    []string   `json:"extraction_sources"`
	ExtractionConfidence float64    `json:"extraction_confidence"`
	DataConflicts        []Conflict `json:"data_conflicts"`

	// Specialist outputs, keyed by role. Absent roles are missing keys.
	Analyses              map[Role]string  `json:"analyses"`
	AgentConfidenceScores map[Role]float64 `json:"agent_confidence_scores"`

	// Deliberation outputs.
	DebateSummary        string          `json:"debate_summary,omitempty"`
	CritiqueReport       string          `json:"critique_report,omitempty"`
	Contradictions       []Contradiction `json:"contradictions,omitempty"`
	AssumptionsChallenged []string       `json:"assumptions_challenged,omitempty"`
	AlternativeScenarios []string        `json:"alternative_scenarios,omitempty"`

	// Verification outputs.
	FactCheckResults       map[Role]FactCheckResult `json:"fact_check_results,omitempty"`
	FabricationDetected    []Fabrication            `json:"fabrication_detected,omitempty"`
	VerificationConfidence float64                  `json:"verification_confidence"`
	VerificationStatus     VerificationStatus       `json:"verification_status"`

	// Synthesis outputs.
	FinalSynthesis  string           `json:"final_synthesis"`
	ConfidenceScore float64          `json:"confidence_score"`
	KeyInsights     []string         `json:"key_insights,omitempty"`
	Recommendations []Recommendation `json:"recommendations,omitempty"`

	// Audit trails (append-only).
	ReasoningChain   []string          `json:"reasoning_chain"`
	NodesExecuted    []string          `json:"nodes_executed"`
	AgentsInvoked    []string          `json:"agents_invoked"`
	RoutingDecisions []RoutingDecision `json:"routing_decisions"`

	// Metrics.
	ExecutionStart   time.Time `json:"execution_start"`
	ExecutionEnd     time.Time `json:"execution_end,omitempty"`
	TotalTimeSeconds float64   `json:"total_time_seconds"`
	CumulativeCost   float64   `json:"cumulative_cost"`
	LLMCalls         int       `json:"llm_calls"`

	// Diagnostics (append-only except RetryCount).
	Errors     []StageError `json:"errors,omitempty"`
	Warnings   []string     `json:"warnings,omitempty"`
	RetryCount int          `json:"retry_count"`
}

// NewState creates the session State for a query.
func NewState(sessionID, query string) *State {
	return &State{
		SessionID:             sessionID,
		Query:                 query,
		ExtractedFacts:        make(FactSet),
		Analyses:              make(map[Role]string),
		AgentConfidenceScores: make(map[Role]float64),
		VerificationStatus:    VerificationComplete,
		ExecutionStart:        time.Now(),
	}
}

// Analysis returns the analysis for role, or "" when the stage never ran
// or was degraded away. Downstream stages must tolerate the empty string.
func (s *State) Analysis(role Role) string {
	return s.Analyses[role]
}

// AppendReasoning adds a step description to the reasoning chain.
func (s *State) AppendReasoning(step string) {
	s.ReasoningChain = append(s.ReasoningChain, step)
}

// MarkExecuted appends a node name to the execution audit trail.
func (s *State) MarkExecuted(node string) {
	s.NodesExecuted = append(s.NodesExecuted, node)
}

// MarkAgentInvoked appends a role to the agent audit trail.
func (s *State) MarkAgentInvoked(role Role) {
	s.AgentsInvoked = append(s.AgentsInvoked, string(role))
}

// AddRoutingDecision appends to the routing audit trail.
func (s *State) AddRoutingDecision(from, to, reason string) {
	s.RoutingDecisions = append(s.RoutingDecisions, RoutingDecision{
		From:       from,
		To:         to,
		Complexity: s.Complexity,
		Reason:     reason,
	})
}

// AddError appends a permanent stage failure record.
func (s *State) AddError(stage string, err error) {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	s.Errors = append(s.Errors, StageError{Stage: stage, Message: msg, Time: time.Now()})
}

// AddWarning appends a warning.
func (s *State) AddWarning(w string) {
	s.Warnings = append(s.Warnings, w)
}

// ClampConfidence bounds the overall confidence to [0, 0.95].
func ClampConfidence(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 0.95 {
		return 0.95
	}
	return v
}

// Snapshot returns a copy of the State safe to hand to a streaming
// subscriber while the session continues mutating the original. Growing
// slices and maps are copied; strings and scalars are shared.
func (s *State) Snapshot() *State {
	cp := *s

	cp.ExtractedFacts = s.ExtractedFacts.Clone()
	cp.ExtractionSources = append([]string(nil), s.ExtractionSources...)
	cp.DataConflicts = append([]Conflict(nil), s.DataConflicts...)

	cp.Analyses = make(map[Role]string, len(s.Analyses))
	for k, v := range s.Analyses {
		cp.Analyses[k] = v
	}
	cp.AgentConfidenceScores = make(map[Role]float64, len(s.AgentConfidenceScores))
	for k, v := range s.AgentConfidenceScores {
		cp.AgentConfidenceScores[k] = v
	}

	cp.Contradictions = append([]Contradiction(nil), s.Contradictions...)
	cp.AssumptionsChallenged = append([]string(nil), s.AssumptionsChallenged...)
	cp.AlternativeScenarios = append([]string(nil), s.AlternativeScenarios...)

	if s.FactCheckResults != nil {
		cp.FactCheckResults = make(map[Role]FactCheckResult, len(s.FactCheckResults))
		for k, v := range s.FactCheckResults {
			cp.FactCheckResults[k] = v
		}
	}
	cp.FabricationDetected = append([]Fabrication(nil), s.FabricationDetected...)

	cp.KeyInsights = append([]string(nil), s.KeyInsights...)
	cp.Recommendations = append([]Recommendation(nil), s.Recommendations...)

	cp.ReasoningChain = append([]string(nil), s.ReasoningChain...)
	cp.NodesExecuted = append([]string(nil), s.NodesExecuted...)
	cp.AgentsInvoked = append([]string(nil), s.AgentsInvoked...)
	cp.RoutingDecisions = append([]RoutingDecision(nil), s.RoutingDecisions...)

	cp.Errors = append([]StageError(nil), s.Errors...)
	cp.Warnings = append([]string(nil), s.Warnings...)

	return &cp
}
