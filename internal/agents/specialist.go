// Package agents implements the specialist analysis stage: a single code
// path parameterized by four persona profiles.
package agents

import (
	"context"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/albarami/udc-sub000/internal/llm"
	"github.com/albarami/udc-sub000/internal/model"
)

// Disclaimer is the required marker for data absent from the fact set.
const Disclaimer = "NOT IN EXTRACTED DATA"

// CitationPrefix opens every citation anchor in specialist prose.
const CitationPrefix = "[Per extraction: "

const specialistSystemPrompt = `%s

DATA DISCIPLINE — these rules are absolute:
1. Every number you reference must be cited inline as [Per extraction: <exact quote>] using the quote provided with the fact.
2. If data needed for a point is not in the extracted facts, write exactly: NOT IN EXTRACTED DATA.
3. General knowledge must be labeled "Based on market knowledge:" or "Research suggests:" and must not contain numbers absent from the extracted facts.
4. Never estimate or invent figures.`

const specialistUserPrompt = `Business query: %s
Complexity tier: %s

EXTRACTED FACTS (the only numbers you may use):
%s
%s
Provide your %s analysis of the query. Cite every number per the data discipline rules. Structure: key observations, assessment, risks, and your perspective's bottom line.`

// Input is everything a specialist sees: the query, the validated fact
// set, and optionally earlier specialists' analyses. Raw source text is
// never part of it.
type Input struct {
	Query      string
	Complexity model.Complexity
	Facts      model.FactSet
	Prior      map[model.Role]string
}

// BuildInput assembles the specialist input from session state, carrying
// prior analyses only for the roles the profile asks for. Absent roles
// map to empty strings.
func BuildInput(state *model.State, contextRoles []model.Role) Input {
	prior := make(map[model.Role]string, len(contextRoles))
	for _, r := range contextRoles {
		prior[r] = state.Analysis(r)
	}
	return Input{
		Query:      state.Query,
		Complexity: state.Complexity,
		Facts:      state.ExtractedFacts,
		Prior:      prior,
	}
}

// Specialist is one persona instance of the shared analysis stage.
type Specialist struct {
	profile     model.SpecialistProfile
	completer   llm.Completer
	modelID     string
	temperature float64
}

// New creates a specialist from its profile.
func New(profile model.SpecialistProfile, completer llm.Completer, modelID string, temperature float64) *Specialist {
	return &Specialist{
		profile:     profile,
		completer:   completer,
		modelID:     modelID,
		temperature: temperature,
	}
}

// Role returns the specialist's role.
func (s *Specialist) Role() model.Role {
	return s.profile.Role
}

// Run produces the analysis and its confidence from an input. It does not
// touch session state, so the parallel executor can invoke all four
// specialists concurrently and merge afterward.
func (s *Specialist) Run(ctx context.Context, in Input) (string, float64, error) {
	resp, err := s.completer.Complete(ctx, llm.Request{
		Model:       s.modelID,
		System:      fmt.Sprintf(specialistSystemPrompt, s.profile.Persona),
		User: fmt.Sprintf(specialistUserPrompt,
			in.Query,
			in.Complexity,
			in.Facts.FormatForPrompt(),
			formatPrior(in.Prior),
			s.profile.Role,
		),
		Temperature: s.temperature,
		MaxTokens:   1500,
	})
	if err != nil {
		return "", 0, eris.Wrapf(err, "agents: %s analysis", s.profile.Role)
	}

	analysis := strings.TrimSpace(resp.Text)
	return analysis, s.Confidence(len(in.Facts), analysis), nil
}

// Analyze is the sequential-path stage: runs the specialist and records
// the result on state.
func (s *Specialist) Analyze(ctx context.Context, state *model.State) error {
	analysis, confidence, err := s.Run(ctx, BuildInput(state, s.profile.ContextRoles))
	if err != nil {
		return err
	}

	state.Analyses[s.profile.Role] = analysis
	state.AgentConfidenceScores[s.profile.Role] = confidence
	state.MarkAgentInvoked(s.profile.Role)
	state.AppendReasoning(fmt.Sprintf("%s analysis complete (confidence %.2f)", s.profile.Role, confidence))
	return nil
}

// Confidence starts from the profile base, rises with fact coverage, and
// drops per missing-data disclaimer. Bounds stay within [0, 1].
func (s *Specialist) Confidence(factCount int, analysis string) float64 {
	c := s.profile.BaseConfidence

	coverage := 0.01 * float64(factCount)
	if coverage > 0.05 {
		coverage = 0.05
	}
	c += coverage

	c -= s.profile.DisclaimerPenalty * float64(strings.Count(analysis, Disclaimer))

	if c < 0 {
		c = 0
	}
	if c > 1 {
		c = 1
	}
	return c
}

func formatPrior(prior map[model.Role]string) string {
	var b strings.Builder
	for _, role := range model.AllRoles {
		text, ok := prior[role]
		if !ok || text == "" {
			continue
		}
		fmt.Fprintf(&b, "\nPRIOR %s ANALYSIS:\n%s\n", strings.ToUpper(string(role)), text)
	}
	if b.Len() == 0 {
		return ""
	}
	return b.String()
}
