// Package clearance resolves a user identity into the authorization context
// the access evaluator needs: a clearance level, a role set and any per-object
// clearance overrides.
package clearance

import (
	"slices"
	"strings"

	"archgate/internal/restriction"
	id "archgate/pkg/domain"
)

// Role is a staff role granted through group membership.
type Role string

const (
	RoleContributor   Role = "contributor"
	RoleEditor        Role = "editor"
	RoleAdministrator Role = "administrator"
)

// ParseRole returns the role for s, or false if unknown.
func ParseRole(s string) (Role, bool) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	switch r {
	case RoleContributor, RoleEditor, RoleAdministrator:
		return r, true
	}
	return "", false
}

// UserContext is the explicit authorization context of one request. It is
// built by the Resolver and never persisted.
type UserContext struct {
	UserID id.UserID
	// Roles is sorted and free of duplicates.
	Roles          []Role
	ClearanceLevel restriction.ClearanceLevel
	// Overrides elevates clearance for individual objects.
	Overrides map[id.ObjectID]restriction.ClearanceLevel
	// MappingVersion identifies the mapping table that produced the context.
	MappingVersion string
}

// Anonymous returns the context of an unauthenticated caller.
func Anonymous() UserContext {
	return UserContext{UserID: id.AnonymousUser, ClearanceLevel: restriction.LevelPublic}
}

// LeastPrivilege returns an anonymous-equivalent context that keeps the
// caller's identity for audit.
func LeastPrivilege(userID id.UserID) UserContext {
	uc := Anonymous()
	uc.UserID = userID
	return uc
}

func (u UserContext) IsAnonymous() bool {
	return u.UserID.IsAnonymous()
}

// HasRole reports whether the context carries role.
func (u UserContext) HasRole(role Role) bool {
	return slices.Contains(u.Roles, role)
}

// IsStaff reports whether the context holds contributor, editor or
// administrator. Unrecognized role names do not count.
func (u UserContext) IsStaff() bool {
	return u.HasRole(RoleContributor) || u.HasRole(RoleEditor) || u.HasRole(RoleAdministrator)
}

func (u UserContext) IsAdministrator() bool {
	return u.HasRole(RoleAdministrator)
}

// EffectiveLevel is the clearance that applies to objectID: the base level or
// the object's override, whichever is higher.
func (u UserContext) EffectiveLevel(objectID id.ObjectID) restriction.ClearanceLevel {
	if o, ok := u.Overrides[objectID]; ok {
		return restriction.Max(u.ClearanceLevel, o)
	}
	return u.ClearanceLevel
}

// Fingerprint summarizes everything in the context that can change a decision
// for objectID. Two contexts with equal fingerprints get equal decisions.
func (u UserContext) Fingerprint(objectID id.ObjectID) string {
	var b strings.Builder
	b.WriteString(u.EffectiveLevel(objectID).String())
	for _, r := range u.Roles {
		b.WriteByte('+')
		b.WriteString(string(r))
	}
	return b.String()
}

// normalizeRoles sorts and deduplicates roles in place.
func normalizeRoles(roles []Role) []Role {
	slices.Sort(roles)
	return slices.Compact(roles)
}
