// Package ports declares the collaborators the access service depends on.
package ports

//go:generate mockgen -source=ports.go -destination=../mocks/mocks.go -package=mocks

import (
	"context"
	"time"

	"archgate/internal/access/models"
	"archgate/internal/clearance"
	"archgate/internal/restriction"
	id "archgate/pkg/domain"
	audit "archgate/pkg/platform/audit"
)

// AuditRecorder appends one audit entry per evaluation. A returned error means
// the entry was not durably written and has already been escalated.
type AuditRecorder interface {
	Record(ctx context.Context, entry audit.Entry) error
}

// ClearanceResolver turns a user id into an authorization context.
type ClearanceResolver interface {
	Resolve(ctx context.Context, userID id.UserID) (clearance.UserContext, error)
}

// DecisionCache memoizes decisions for a short time. Implementations must be
// safe for concurrent use. Errors are reported but never fatal to a check.
type DecisionCache interface {
	Get(ctx context.Context, key models.DecisionKey) (models.AccessDecision, bool, error)
	Put(ctx context.Context, key models.DecisionKey, decision models.AccessDecision, ttl time.Duration) error
	InvalidateObject(ctx context.Context, objectID id.ObjectID) error
}

// VersionReader returns the restriction version vector of an object.
type VersionReader interface {
	Versions(ctx context.Context, objectID id.ObjectID) (restriction.VersionVector, error)
}

// RedactedArtifact is a sanitized derivative ready to be served.
type RedactedArtifact struct {
	Path     string
	Metadata map[string]string
}

// RedactionGenerator produces redacted derivatives.
type RedactionGenerator interface {
	GetRedactedPdf(ctx context.Context, objectID id.ObjectID, originalPath string) (RedactedArtifact, error)
	HasRedactions(ctx context.Context, objectID id.ObjectID) (bool, error)
}
