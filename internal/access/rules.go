package access

import (
	"fmt"
	"time"

	"archgate/internal/access/models"
	"archgate/internal/clearance"
	"archgate/internal/restriction"
	id "archgate/pkg/domain"
)

// Policy holds the configurable parts of the precedence rules.
type Policy struct {
	// AdminBypassEmbargo lets administrators read embargoed objects. Donor
	// no-access is never bypassed by role.
	AdminBypassEmbargo bool
}

// DefaultPolicy returns the production policy.
func DefaultPolicy() Policy {
	return Policy{AdminBypassEmbargo: true}
}

// Evidence is everything read from the restriction sources for one object.
// A source listed in Unavailable contributes no records.
type Evidence struct {
	ObjectID        id.ObjectID
	AsOf            time.Time
	Classifications []restriction.ClassificationRecord
	Embargoes       []restriction.EmbargoRecord
	Donors          []restriction.DonorRestriction
	Redactions      []restriction.RedactionRecord
	Unavailable     map[restriction.Kind]error
}

func (e Evidence) available(kind restriction.Kind) bool {
	_, down := e.Unavailable[kind]
	return !down
}

// Evaluate applies the precedence rules. This is pure domain logic - no I/O,
// no side effects. Checks run in a fixed order and the first denial is the
// one reported:
//  1. classification requirement vs. effective clearance
//  2. embargo in force
//  3. governing donor restriction (may downgrade to redacted)
//  4. any source unavailable (fail closed)
//  5. otherwise full access, or
//  6. redacted access if a redaction exists, else denied.
func Evaluate(ev Evidence, uc clearance.UserContext, policy Policy) models.Evaluation {
	var out models.Evaluation
	for _, kind := range restriction.Kinds {
		if !ev.available(kind) {
			out.Unavailable = append(out.Unavailable, kind)
		}
	}

	// Rule 1: classification
	if ev.available(restriction.KindClassification) {
		out.Requirement = classificationRequirement(ev.Classifications, &out)
		if uc.EffectiveLevel(ev.ObjectID) < out.Requirement {
			return deny(out, models.ReasonInsufficientClearance, models.SourceClassification)
		}
	}

	// Rule 2: embargo
	if ev.available(restriction.KindEmbargo) && embargoInForce(ev.Embargoes, ev.AsOf) {
		if !(policy.AdminBypassEmbargo && uc.IsAdministrator()) {
			return deny(out, models.ReasonEmbargoed, models.SourceEmbargo)
		}
	}

	// Rule 3: donor
	downgrade := false
	if ev.available(restriction.KindDonor) {
		if d, ok := governingDonor(ev.Donors, ev.AsOf, &out); ok {
			switch d.Type {
			case restriction.TypeNoAccess:
				return deny(out, models.ReasonDonorRestriction, models.SourceDonor)
			case restriction.TypeStaffOnly:
				if !uc.IsStaff() {
					return deny(out, models.ReasonDonorRestriction, models.SourceDonor)
				}
			case restriction.TypeRedactedOnly:
				downgrade = true
			}
		}
	}

	// Rule 4: fail closed on any unreadable source
	if len(out.Unavailable) > 0 {
		return deny(out, models.ReasonSourceUnavailable, unavailableSource(out.Unavailable))
	}

	// Rule 5: nothing restricts
	if !downgrade {
		out.Decision = models.Grant(models.LevelFull, models.SourceNone)
		return out
	}

	// Rule 6: redacted-only needs an existing redaction
	for i := range ev.Redactions {
		if ev.Redactions[i].HasRedaction {
			r := ev.Redactions[i]
			out.Redaction = &r
			out.Decision = models.Grant(models.LevelRedacted, models.SourceDonor)
			return out
		}
	}
	return deny(out, models.ReasonRedactionUnavailable, models.SourceDonor)
}

func deny(out models.Evaluation, reason models.Reason, source models.Source) models.Evaluation {
	out.Decision = models.Deny(reason, source)
	return out
}

// classificationRequirement returns the highest active level, PUBLIC when none.
// More than one active record, or an unparseable code, is an integrity fault.
func classificationRequirement(records []restriction.ClassificationRecord, out *models.Evaluation) restriction.ClearanceLevel {
	level := restriction.LevelPublic
	active := 0
	for _, r := range records {
		if !r.Active {
			continue
		}
		active++
		level = restriction.Max(level, r.Level)
		if r.Malformed {
			out.Integrity = append(out.Integrity, models.IntegrityFault{
				Kind:   restriction.KindClassification,
				Detail: fmt.Sprintf("unknown classification code %q read as %s", r.RawCode, r.Level),
			})
		}
	}
	if active > 1 {
		out.Integrity = append(out.Integrity, models.IntegrityFault{
			Kind:   restriction.KindClassification,
			Detail: fmt.Sprintf("%d active classification records, using %s", active, level),
		})
	}
	return level
}

// embargoInForce recomputes the end-date check rather than trusting the reader.
func embargoInForce(records []restriction.EmbargoRecord, asOf time.Time) bool {
	for _, r := range records {
		if r.InForce(asOf) {
			return true
		}
	}
	return false
}

// governingDonor picks the most severe unexpired restriction. Ties keep the
// first record read.
func governingDonor(records []restriction.DonorRestriction, asOf time.Time, out *models.Evaluation) (restriction.DonorRestriction, bool) {
	var (
		best  restriction.DonorRestriction
		found bool
	)
	for _, r := range records {
		if r.Expired(asOf) {
			continue
		}
		if r.Malformed {
			out.Integrity = append(out.Integrity, models.IntegrityFault{
				Kind:   restriction.KindDonor,
				Detail: fmt.Sprintf("unknown restriction type %q from donor %d read as %s", r.RawType, r.DonorID, r.Type),
			})
		}
		if !found || r.Type.Severity() > best.Type.Severity() {
			best, found = r, true
		}
	}
	return best, found
}

// unavailableSource reports the first unreadable source that can contribute a
// decision; a redaction outage alone contributes none.
func unavailableSource(kinds []restriction.Kind) models.Source {
	for _, k := range kinds {
		if s := models.SourceFor(k); s != models.SourceNone {
			return s
		}
	}
	return models.SourceNone
}
