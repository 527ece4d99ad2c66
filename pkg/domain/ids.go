// Package domain holds the typed identifiers shared across modules.
//
// Archival objects and users are identified by positive integers assigned by
// the surrounding application. Typed IDs keep the two from being swapped at
// call sites and centralize parsing at trust boundaries.
package domain

import (
	"strconv"
	"strings"

	dErrors "archgate/pkg/domain-errors"
)

// maxIDLength bounds parser input; int64 never needs more than 19 digits.
const maxIDLength = 19

// ObjectID identifies an archival object. Restriction records reference it but
// never own it.
type ObjectID int64

// UserID identifies an authenticated user. The zero value is the anonymous user.
type UserID int64

// AnonymousUser is the UserID of an unauthenticated caller.
const AnonymousUser UserID = 0

// IsValid reports whether the object ID can refer to a stored object.
func (o ObjectID) IsValid() bool {
	return o > 0
}

func (o ObjectID) String() string {
	return strconv.FormatInt(int64(o), 10)
}

// IsAnonymous reports whether the ID belongs to an unauthenticated caller.
func (u UserID) IsAnonymous() bool {
	return u <= 0
}

func (u UserID) String() string {
	if u.IsAnonymous() {
		return "anonymous"
	}
	return strconv.FormatInt(int64(u), 10)
}

// Ptr returns nil for the anonymous user, for nullable storage columns.
func (u UserID) Ptr() *int64 {
	if u.IsAnonymous() {
		return nil
	}
	v := int64(u)
	return &v
}

// ParseObjectID parses a positive decimal object identifier.
func ParseObjectID(s string) (ObjectID, error) {
	v, err := parsePositive(s, "object_id")
	if err != nil {
		return 0, err
	}
	return ObjectID(v), nil
}

// ParseUserID parses a positive decimal user identifier.
func ParseUserID(s string) (UserID, error) {
	v, err := parsePositive(s, "user_id")
	if err != nil {
		return 0, err
	}
	return UserID(v), nil
}

func parsePositive(s, field string) (int64, error) {
	if s == "" {
		return 0, dErrors.New(dErrors.CodeInvalidInput, field+" is required")
	}
	if len(s) > maxIDLength || strings.TrimSpace(s) != s {
		return 0, dErrors.New(dErrors.CodeInvalidInput, "invalid "+field)
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil || v <= 0 {
		return 0, dErrors.New(dErrors.CodeInvalidInput, "invalid "+field)
	}
	return v, nil
}
