// Package restriction models the four independently administered restriction
// sources consulted for every access decision, and the reader capability that
// fetches their active records for one object.
package restriction

import (
	"strings"
	"time"

	id "archgate/pkg/domain"
)

// ClearanceLevel is an ordered classification tier. Comparisons use the
// integer order: PUBLIC < INTERNAL < CONFIDENTIAL < SECRET < TOP_SECRET.
type ClearanceLevel int

const (
	LevelPublic ClearanceLevel = iota
	LevelInternal
	LevelConfidential
	LevelSecret
	LevelTopSecret
)

var levelNames = [...]string{"PUBLIC", "INTERNAL", "CONFIDENTIAL", "SECRET", "TOP_SECRET"}

func (l ClearanceLevel) String() string {
	if l < LevelPublic || l > LevelTopSecret {
		return "UNKNOWN"
	}
	return levelNames[l]
}

// ParseClearanceLevel parses a stored level code. Matching ignores case and
// surrounding whitespace; "TOP SECRET" and "TOP-SECRET" are accepted.
func ParseClearanceLevel(s string) (ClearanceLevel, bool) {
	norm := strings.ToUpper(strings.TrimSpace(s))
	norm = strings.NewReplacer(" ", "_", "-", "_").Replace(norm)
	for i, name := range levelNames {
		if name == norm {
			return ClearanceLevel(i), true
		}
	}
	return LevelTopSecret, false
}

// Max returns the higher of two levels.
func Max(a, b ClearanceLevel) ClearanceLevel {
	if a > b {
		return a
	}
	return b
}

// Kind names a restriction source.
type Kind string

const (
	KindClassification Kind = "classification"
	KindEmbargo        Kind = "embargo"
	KindDonor          Kind = "donor"
	KindRedaction      Kind = "redaction"
)

// Kinds lists every source in evaluation order.
var Kinds = []Kind{KindClassification, KindEmbargo, KindDonor, KindRedaction}

// RestrictionType is the kind of limitation a donor agreement imposes.
type RestrictionType string

const (
	TypeNoAccess     RestrictionType = "no-access"
	TypeRedactedOnly RestrictionType = "redacted-only"
	TypeStaffOnly    RestrictionType = "staff-only"
)

// Severity orders donor restriction types: no-access > redacted-only > staff-only.
// Unknown types rank with no-access.
func (t RestrictionType) Severity() int {
	switch t {
	case TypeStaffOnly:
		return 1
	case TypeRedactedOnly:
		return 2
	default:
		return 3
	}
}

// ParseRestrictionType maps a stored type code. Unknown codes yield no-access
// and false.
func ParseRestrictionType(s string) (RestrictionType, bool) {
	t := RestrictionType(strings.ToLower(strings.TrimSpace(s)))
	t = RestrictionType(strings.ReplaceAll(string(t), "_", "-"))
	switch t {
	case TypeNoAccess, TypeRedactedOnly, TypeStaffOnly:
		return t, true
	}
	return TypeNoAccess, false
}

// ClassificationRecord assigns a clearance requirement to an object.
type ClassificationRecord struct {
	ObjectID id.ObjectID
	Level    ClearanceLevel
	Active   bool
	// Malformed is set when the stored code could not be parsed; Level is then
	// TOP_SECRET.
	Malformed bool
	RawCode   string
}

// NewClassificationRecord parses code into a record.
func NewClassificationRecord(objectID id.ObjectID, code string, active bool) ClassificationRecord {
	level, ok := ParseClearanceLevel(code)
	return ClassificationRecord{
		ObjectID:  objectID,
		Level:     level,
		Active:    active,
		Malformed: !ok,
		RawCode:   code,
	}
}

// EmbargoRecord withholds an object until EndDate (inclusive).
type EmbargoRecord struct {
	ObjectID id.ObjectID
	EndDate  time.Time
	Active   bool
}

// InForce reports whether the embargo applies on asOf's calendar day. The
// active flag alone is not trusted: an embargo whose end date has passed is
// not in force even when still flagged active.
func (e EmbargoRecord) InForce(asOf time.Time) bool {
	return e.Active && !Day(e.EndDate).Before(Day(asOf))
}

// DonorRestriction is one donor agreement's limitation on an object.
type DonorRestriction struct {
	ObjectID id.ObjectID
	DonorID  int64
	Type     RestrictionType
	// EndDate is nil for open-ended restrictions.
	EndDate   *time.Time
	Reason    string
	Malformed bool
	RawType   string
}

// NewDonorRestriction parses typ into a restriction.
func NewDonorRestriction(objectID id.ObjectID, donorID int64, typ string, endDate *time.Time, reason string) DonorRestriction {
	t, ok := ParseRestrictionType(typ)
	return DonorRestriction{
		ObjectID:  objectID,
		DonorID:   donorID,
		Type:      t,
		EndDate:   endDate,
		Reason:    reason,
		Malformed: !ok,
		RawType:   typ,
	}
}

// Expired reports whether the restriction ended before asOf's calendar day.
func (d DonorRestriction) Expired(asOf time.Time) bool {
	return d.EndDate != nil && Day(*d.EndDate).Before(Day(asOf))
}

// RedactionRecord signals that a sanitized derivative of the object exists.
type RedactionRecord struct {
	ObjectID     id.ObjectID
	HasRedaction bool
	ArtifactPath string
}

// Day truncates t to its calendar date in t's own location, returned as
// midnight UTC so dates from different sources compare directly.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
