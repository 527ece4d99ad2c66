package clearance

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"archgate/internal/restriction"
	"archgate/pkg/testutil"
)

func testTable() *MappingTable {
	return NewMappingTable("v1", map[string]GroupGrant{
		"readers":     {Level: restriction.LevelInternal},
		"Archivists":  {Level: restriction.LevelConfidential, Roles: []Role{RoleContributor, RoleEditor}},
		"records-mgr": {Level: restriction.LevelSecret, Roles: []Role{RoleEditor}},
		"admins":      {Level: restriction.LevelInternal, Roles: []Role{RoleAdministrator}},
	})
}

func TestMappingTable_Apply(t *testing.T) {
	table := testTable()

	t.Run("highest level wins and roles are unioned", func(t *testing.T) {
		level, roles := table.Apply([]string{"readers", "archivists", "records-mgr"})
		assert.Equal(t, restriction.LevelSecret, level)
		assert.Equal(t, []Role{RoleContributor, RoleEditor}, roles)
	})

	t.Run("unknown groups grant nothing", func(t *testing.T) {
		level, roles := table.Apply([]string{"visitors"})
		assert.Equal(t, restriction.LevelPublic, level)
		assert.Empty(t, roles)
	})

	t.Run("group names are case-insensitive", func(t *testing.T) {
		level, _ := table.Apply([]string{"ARCHIVISTS"})
		assert.Equal(t, restriction.LevelConfidential, level)
	})
}

func writeMapping(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "clearance.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadMappingTable(t *testing.T) {
	path := writeMapping(t, `
version: "2026-03"
groups:
  - name: archivists
    level: CONFIDENTIAL
    roles: [contributor, editor]
  - name: admins
    level: secret
    roles: [administrator]
`)
	table, err := LoadMappingTable(path)
	require.NoError(t, err)
	assert.Equal(t, "2026-03", table.Version())

	level, roles := table.Apply([]string{"archivists", "admins"})
	assert.Equal(t, restriction.LevelSecret, level)
	assert.Equal(t, []Role{RoleAdministrator, RoleContributor, RoleEditor}, roles)
}

func TestLoadMappingTable_Rejects(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"missing version", "groups: []\n", "version is required"},
		{"unknown level", "version: v1\ngroups:\n  - name: a\n    level: ULTRA\n", "unknown level"},
		{"unknown role", "version: v1\ngroups:\n  - name: a\n    level: PUBLIC\n    roles: [janitor]\n", "unknown role"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadMappingTable(writeMapping(t, tt.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}

	_, err := LoadMappingTable(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestMappingTable_DuplicateMemberships(t *testing.T) {
	testutil.Given(t, "a user listed in the same group under different spellings", func(t *testing.T) {
		groups := []string{"Archivists", " archivists", "ARCHIVISTS", ""}

		testutil.When(t, "the memberships are mapped", func(t *testing.T) {
			level, roles := testTable().Apply(groups)

			testutil.Then(t, "the group is counted once", func(t *testing.T) {
				assert.Equal(t, restriction.LevelConfidential, level)
				assert.Equal(t, []Role{RoleContributor, RoleEditor}, roles)
			})
		})
	})
}
