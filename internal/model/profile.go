package model

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// SpecialistProfile parameterizes the shared specialist stage. Four
// instances, one code path.
type SpecialistProfile struct {
	Role Role `yaml:"role"`

	// Persona is the system-prompt persona text for this specialist.
	Persona string `yaml:"persona"`

	// BaseConfidence seeds the per-role confidence before fact-set and
	// disclaimer adjustments. Kept in [0.6, 0.9].
	BaseConfidence float64 `yaml:"base_confidence"`

	// DisclaimerPenalty is subtracted once per "NOT IN EXTRACTED DATA"
	// occurrence in the produced analysis.
	DisclaimerPenalty float64 `yaml:"disclaimer_penalty"`

	// ContextRoles lists earlier specialists whose analyses are offered as
	// prior context on sequential paths. Empty for the first specialist.
	ContextRoles []Role `yaml:"context_roles"`
}

// DefaultProfiles returns the built-in specialist roster.
func DefaultProfiles() []SpecialistProfile {
	return []SpecialistProfile{
		{
			Role: RoleFinancial,
			Persona: "You are a senior financial analyst for a real-estate development group. " +
				"You assess revenue quality, margins, cash generation, and balance-sheet strength.",
			BaseConfidence:    0.85,
			DisclaimerPenalty: 0.05,
		},
		{
			Role: RoleMarket,
			Persona: "You are a market intelligence analyst covering Gulf real-estate and hospitality. " +
				"You assess competitive position, demand drivers, and pricing dynamics.",
			BaseConfidence:    0.80,
			DisclaimerPenalty: 0.06,
			ContextRoles:      []Role{RoleFinancial},
		},
		{
			Role: RoleOperations,
			Persona: "You are an operations strategist for large mixed-use developments. " +
				"You assess delivery capability, utilization, cost structure, and execution risk.",
			BaseConfidence:    0.75,
			DisclaimerPenalty: 0.08,
			ContextRoles:      []Role{RoleFinancial, RoleMarket},
		},
		{
			Role: RoleResearch,
			Persona: "You are a research analyst synthesizing long-horizon evidence. " +
				"You surface trends, comparables, and second-order effects the other desks may miss.",
			BaseConfidence:    0.70,
			DisclaimerPenalty: 0.10,
			ContextRoles:      []Role{RoleFinancial, RoleMarket, RoleOperations},
		},
	}
}

// LoadProfiles reads specialist profiles from a yaml file. Missing
// numeric fields fall back to the defaults for the same role.
func LoadProfiles(path string) ([]SpecialistProfile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "model: read profiles")
	}

	var profiles []SpecialistProfile
	if err := yaml.Unmarshal(data, &profiles); err != nil {
		return nil, eris.Wrap(err, "model: parse profiles")
	}

	defaults := make(map[Role]SpecialistProfile)
	for _, p := range DefaultProfiles() {
		defaults[p.Role] = p
	}

	for i := range profiles {
		d, ok := defaults[profiles[i].Role]
		if !ok {
			return nil, eris.Errorf("model: unknown specialist role %q", profiles[i].Role)
		}
		if profiles[i].Persona == "" {
			profiles[i].Persona = d.Persona
		}
		if profiles[i].BaseConfidence == 0 {
			profiles[i].BaseConfidence = d.BaseConfidence
		}
		if profiles[i].DisclaimerPenalty == 0 {
			profiles[i].DisclaimerPenalty = d.DisclaimerPenalty
		}
	}
	return profiles, nil
}
