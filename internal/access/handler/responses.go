package handler

import (
	"archgate/internal/access/models"
	"archgate/internal/clearance"
	id "archgate/pkg/domain"
	audit "archgate/pkg/platform/audit"
)

// DecisionResponse is the HTTP view of an access decision. It carries the
// reason category only; which record produced it stays in the audit trail.
type DecisionResponse struct {
	ObjectID int64  `json:"object_id"`
	Action   string `json:"action"`
	Granted  bool   `json:"granted"`
	Level    string `json:"level"`
	Reason   string `json:"reason,omitempty"`
}

// ContextResponse is the HTTP view of the caller's authorization context.
type ContextResponse struct {
	Anonymous      bool     `json:"anonymous"`
	UserID         *int64   `json:"user_id"`
	Roles          []string `json:"roles"`
	ClearanceLevel string   `json:"clearance_level"`
	OverrideCount  int      `json:"override_count"`
	MappingVersion string   `json:"mapping_version,omitempty"`
}

// ArtifactResponse is returned when a redacted derivative may be served.
type ArtifactResponse struct {
	ObjectID int64             `json:"object_id"`
	Path     string            `json:"path"`
	Metadata map[string]string `json:"metadata,omitempty"`
	Decision *DecisionResponse `json:"decision"`
}

type ReloadResponse struct {
	MappingVersion string `json:"mapping_version"`
}

func FromDecision(objectID id.ObjectID, action audit.Action, d models.AccessDecision) *DecisionResponse {
	return &DecisionResponse{
		ObjectID: int64(objectID),
		Action:   string(action),
		Granted:  d.Granted,
		Level:    string(d.Level),
		Reason:   string(d.Reason),
	}
}

func FromUserContext(uc clearance.UserContext) *ContextResponse {
	roles := make([]string, 0, len(uc.Roles))
	for _, r := range uc.Roles {
		roles = append(roles, string(r))
	}
	return &ContextResponse{
		Anonymous:      uc.IsAnonymous(),
		UserID:         uc.UserID.Ptr(),
		Roles:          roles,
		ClearanceLevel: uc.ClearanceLevel.String(),
		OverrideCount:  len(uc.Overrides),
		MappingVersion: uc.MappingVersion,
	}
}
