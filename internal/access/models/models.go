// Package models holds the value types of access evaluation.
package models

import (
	"fmt"

	"archgate/internal/restriction"
	id "archgate/pkg/domain"
)

// Level is how much of an object the caller may see.
type Level string

const (
	LevelFull     Level = "full"
	LevelRedacted Level = "redacted"
	LevelDenied   Level = "denied"
)

// Reason is the high-level category reported with a denial.
type Reason string

const (
	ReasonNone                  Reason = ""
	ReasonInsufficientClearance Reason = "insufficient-clearance"
	ReasonEmbargoed             Reason = "embargoed"
	ReasonDonorRestriction      Reason = "donor-restriction"
	ReasonSourceUnavailable     Reason = "policy-source-unavailable"
	ReasonRedactionUnavailable  Reason = "redaction-unavailable"
	// ReasonInvalidRequest marks a call that could not be evaluated because the
	// object id was missing or malformed.
	ReasonInvalidRequest Reason = "invalid-request"
)

// Degraded reports whether the reason reflects a system fault rather than a
// restriction on the object.
func (r Reason) Degraded() bool {
	return r == ReasonSourceUnavailable || r == ReasonInvalidRequest
}

// Source is the restriction source that determined the outcome.
type Source string

const (
	SourceClassification Source = "classification"
	SourceEmbargo        Source = "embargo"
	SourceDonor          Source = "donor"
	SourceNone           Source = "none"
)

// SourceFor maps a restriction kind to the decision source it contributes as.
// Redaction never contributes on its own.
func SourceFor(kind restriction.Kind) Source {
	switch kind {
	case restriction.KindClassification:
		return SourceClassification
	case restriction.KindEmbargo:
		return SourceEmbargo
	case restriction.KindDonor:
		return SourceDonor
	}
	return SourceNone
}

// AccessDecision is the outcome of one evaluation. It is a pure function of the
// restriction records, the user context and the evaluation day.
type AccessDecision struct {
	Granted bool   `json:"granted"`
	Level   Level  `json:"level"`
	Reason  Reason `json:"reason"`
	Source  Source `json:"source"`
}

func Grant(level Level, source Source) AccessDecision {
	return AccessDecision{Granted: true, Level: level, Reason: ReasonNone, Source: source}
}

func Deny(reason Reason, source Source) AccessDecision {
	return AccessDecision{Granted: false, Level: LevelDenied, Reason: reason, Source: source}
}

func (d AccessDecision) String() string {
	if d.Granted {
		return fmt.Sprintf("granted:%s", d.Level)
	}
	return fmt.Sprintf("denied:%s(%s)", d.Reason, d.Source)
}

// IntegrityFault describes restriction data that violated an invariant and was
// read in its most restrictive interpretation.
type IntegrityFault struct {
	Kind   restriction.Kind
	Detail string
}

// Evaluation is a decision together with what was observed while making it.
type Evaluation struct {
	Decision AccessDecision
	// Requirement is the effective classification requirement.
	Requirement restriction.ClearanceLevel
	// Unavailable lists sources that could not be read, in evaluation order.
	Unavailable []restriction.Kind
	Integrity   []IntegrityFault
	// Redaction is the record backing a redacted grant.
	Redaction *restriction.RedactionRecord
}

// DecisionKey identifies a cacheable decision.
type DecisionKey struct {
	ObjectID id.ObjectID
	// User is "u:<id>" or "anon".
	User        string
	Fingerprint string
	Versions    restriction.VersionVector
}

// UserToken renders the user component of a DecisionKey.
func UserToken(userID id.UserID) string {
	if userID.IsAnonymous() {
		return "anon"
	}
	return "u:" + userID.String()
}

func (k DecisionKey) String() string {
	return fmt.Sprintf("%d|%s|%s|%s", k.ObjectID, k.User, k.Fingerprint, k.Versions)
}
