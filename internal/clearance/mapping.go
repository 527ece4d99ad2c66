package clearance

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"archgate/internal/restriction"
	platformstrings "archgate/pkg/platform/strings"
)

// GroupGrant is what membership in one group confers.
type GroupGrant struct {
	Level restriction.ClearanceLevel
	Roles []Role
}

// MappingTable maps identity-store groups to clearance and roles. Tables are
// immutable once built; a new version replaces the old one wholesale.
type MappingTable struct {
	version string
	groups  map[string]GroupGrant
}

// NewMappingTable builds a table. Group names are matched case-insensitively.
func NewMappingTable(version string, groups map[string]GroupGrant) *MappingTable {
	t := &MappingTable{version: version, groups: make(map[string]GroupGrant, len(groups))}
	for name, grant := range groups {
		t.groups[strings.ToLower(name)] = grant
	}
	return t
}

func (t *MappingTable) Version() string {
	return t.version
}

// Apply maps memberships to the highest granted level and the union of
// granted roles. Unknown groups grant nothing.
func (t *MappingTable) Apply(groups []string) (restriction.ClearanceLevel, []Role) {
	level := restriction.LevelPublic
	var roles []Role
	for _, g := range platformstrings.NormalizeNames(groups) {
		grant, ok := t.groups[g]
		if !ok {
			continue
		}
		level = restriction.Max(level, grant.Level)
		roles = append(roles, grant.Roles...)
	}
	return level, normalizeRoles(roles)
}

type mappingFile struct {
	Version string `mapstructure:"version"`
	Groups  []struct {
		Name  string   `mapstructure:"name"`
		Level string   `mapstructure:"level"`
		Roles []string `mapstructure:"roles"`
	} `mapstructure:"groups"`
}

// LoadMappingTable reads a table from a YAML, JSON or TOML file:
//
//	version: "2026-03"
//	groups:
//	  - name: archivists
//	    level: CONFIDENTIAL
//	    roles: [contributor, editor]
//
// Unknown levels or roles are rejected rather than guessed.
func LoadMappingTable(path string) (*MappingTable, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read clearance mapping: %w", err)
	}
	var file mappingFile
	if err := v.Unmarshal(&file); err != nil {
		return nil, fmt.Errorf("decode clearance mapping: %w", err)
	}
	if file.Version == "" {
		return nil, fmt.Errorf("clearance mapping %s: version is required", path)
	}

	groups := make(map[string]GroupGrant, len(file.Groups))
	for _, g := range file.Groups {
		level, ok := restriction.ParseClearanceLevel(g.Level)
		if !ok {
			return nil, fmt.Errorf("clearance mapping group %q: unknown level %q", g.Name, g.Level)
		}
		grant := GroupGrant{Level: level}
		for _, r := range g.Roles {
			role, ok := ParseRole(r)
			if !ok {
				return nil, fmt.Errorf("clearance mapping group %q: unknown role %q", g.Name, r)
			}
			grant.Roles = append(grant.Roles, role)
		}
		groups[g.Name] = grant
	}
	return NewMappingTable(file.Version, groups), nil
}
