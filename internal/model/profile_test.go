package model

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultProfiles_Roster(t *testing.T) {
	profiles := DefaultProfiles()
	require.Len(t, profiles, 4)

	byRole := make(map[Role]SpecialistProfile)
	for _, p := range profiles {
		byRole[p.Role] = p
	}

	assert.Equal(t, 0.85, byRole[RoleFinancial].BaseConfidence)
	assert.Empty(t, byRole[RoleFinancial].ContextRoles)

	assert.Equal(t, []Role{RoleFinancial}, byRole[RoleMarket].ContextRoles)
	assert.Equal(t, 0.10, byRole[RoleResearch].DisclaimerPenalty)
	assert.Equal(t, []Role{RoleFinancial, RoleMarket, RoleOperations}, byRole[RoleResearch].ContextRoles)
}

func TestLoadProfiles_BackfillsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profiles.yaml")
	yaml := `
- role: financial
  persona: "Custom financial persona."
- role: market
  base_confidence: 0.9
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))

	profiles, err := LoadProfiles(path)
	require.NoError(t, err)
	require.Len(t, profiles, 2)

	assert.Equal(t, "Custom financial persona.", profiles[0].Persona)
	assert.Equal(t, 0.85, profiles[0].BaseConfidence)

	assert.Equal(t, 0.9, profiles[1].BaseConfidence)
	assert.NotEmpty(t, profiles[1].Persona)
	assert.Equal(t, 0.06, profiles[1].DisclaimerPenalty)
}

func TestLoadProfiles_UnknownRole(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profiles.yaml")
	require.NoError(t, os.WriteFile(path, []byte("- role: astrology\n"), 0o644))

	_, err := LoadProfiles(path)
	assert.Error(t, err)
}

func TestLoadProfiles_MissingFile(t *testing.T) {
	_, err := LoadProfiles(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
