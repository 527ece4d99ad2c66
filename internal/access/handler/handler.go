package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"archgate/internal/access"
	"archgate/internal/access/models"
	"archgate/internal/access/ports"
	"archgate/internal/clearance"
	id "archgate/pkg/domain"
	dErrors "archgate/pkg/domain-errors"
	audit "archgate/pkg/platform/audit"
	"archgate/pkg/platform/httputil"
	"archgate/pkg/requestcontext"
)

// Service defines the access operations exposed over HTTP.
type Service interface {
	Check(ctx context.Context, req access.Request) models.AccessDecision
	UserContext(ctx context.Context, userID id.UserID) clearance.UserContext
	RedactedArtifact(ctx context.Context, objectID id.ObjectID, uc clearance.UserContext, originalPath string) (ports.RedactedArtifact, models.AccessDecision, error)
	InvalidateObject(ctx context.Context, objectID id.ObjectID) error
}

// MappingReloader swaps in a freshly loaded clearance mapping table and
// returns its version.
type MappingReloader func(ctx context.Context) (string, error)

// UserInvalidator drops the memoized clearance of one user, typically after a
// group membership change in the identity store.
type UserInvalidator func(userID id.UserID)

// Handler wires access endpoints to the access service.
type Handler struct {
	service    Service
	reload     MappingReloader
	invalidate UserInvalidator
	logger     *slog.Logger
}

type Option func(*Handler)

// WithUserInvalidator enables POST /admin/access/users/{userID}/clearance/invalidate.
func WithUserInvalidator(fn UserInvalidator) Option {
	return func(h *Handler) {
		h.invalidate = fn
	}
}

// New constructs an access handler. reload may be nil, which disables the
// mapping reload endpoint.
func New(service Service, reload MappingReloader, logger *slog.Logger, opts ...Option) *Handler {
	h := &Handler{
		service: service,
		reload:  reload,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register mounts the caller-facing endpoints.
func (h *Handler) Register(r chi.Router) {
	r.Get("/access/context", h.HandleContext)
	r.Get("/access/objects/{objectID}", h.HandleCheck)
	r.Get("/access/objects/{objectID}/artifact", h.HandleArtifact)
}

// RegisterAdmin mounts operator endpoints. Callers guard r with admin auth.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Post("/admin/access/objects/{objectID}/invalidate", h.HandleInvalidate)
	r.Post("/admin/access/clearance-mapping/reload", h.HandleReloadMapping)
	r.Post("/admin/access/users/{userID}/clearance/invalidate", h.HandleInvalidateUser)
}

// HandleCheck handles GET /access/objects/{objectID}?action=view.
// Only interactive actions are accepted; bulk and badge checks come from
// in-process callers.
func (h *Handler) HandleCheck(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := time.Now()

	action, ok := parseAction(r.URL.Query().Get("action"))
	if !ok {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "action must be view or download"))
		return
	}

	// A malformed id still goes through the service so the attempt is audited.
	objectID, parseErr := id.ParseObjectID(chi.URLParam(r, "objectID"))
	uc := h.service.UserContext(ctx, requestcontext.UserID(ctx))
	decision := h.service.Check(ctx, access.Request{ObjectID: objectID, User: uc, Action: action})
	if parseErr != nil {
		httputil.WriteError(w, parseErr)
		return
	}

	level := slog.LevelInfo
	if decision.Reason.Degraded() {
		level = slog.LevelWarn
	}
	h.logger.Log(ctx, level, "access checked",
		"request_id", requestcontext.RequestID(ctx),
		"object_id", objectID,
		"user_id", uc.UserID,
		"action", action,
		"level", decision.Level,
		"reason", decision.Reason,
		"degraded", decision.Reason.Degraded(),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusOK, FromDecision(objectID, action, decision))
}

// HandleContext handles GET /access/context.
func (h *Handler) HandleContext(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	uc := h.service.UserContext(ctx, requestcontext.UserID(ctx))
	httputil.WriteJSON(w, http.StatusOK, FromUserContext(uc))
}

// HandleArtifact handles GET /access/objects/{objectID}/artifact?path=...
// It serves the redacted derivative reference only for a redacted grant.
func (h *Handler) HandleArtifact(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	objectID, err := id.ParseObjectID(chi.URLParam(r, "objectID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	uc := h.service.UserContext(ctx, requestcontext.UserID(ctx))
	artifact, decision, err := h.service.RedactedArtifact(ctx, objectID, uc, r.URL.Query().Get("path"))
	if err != nil {
		h.logger.InfoContext(ctx, "redacted artifact not served",
			"request_id", requestcontext.RequestID(ctx),
			"object_id", objectID,
			"user_id", uc.UserID,
			"level", decision.Level,
			"reason", decision.Reason,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, ArtifactResponse{
		ObjectID: int64(objectID),
		Path:     artifact.Path,
		Metadata: artifact.Metadata,
		Decision: FromDecision(objectID, audit.ActionDownload, decision),
	})
}

// HandleInvalidate handles POST /admin/access/objects/{objectID}/invalidate.
func (h *Handler) HandleInvalidate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	objectID, err := id.ParseObjectID(chi.URLParam(r, "objectID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := h.service.InvalidateObject(ctx, objectID); err != nil {
		h.logger.ErrorContext(ctx, "decision cache invalidation failed",
			"request_id", requestcontext.RequestID(ctx),
			"object_id", objectID,
			"error", err,
		)
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeUnavailable, "decision cache unavailable"))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleReloadMapping handles POST /admin/access/clearance-mapping/reload.
func (h *Handler) HandleReloadMapping(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.reload == nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "mapping reload not configured"))
		return
	}
	version, err := h.reload(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "clearance mapping reload failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInvalidInput, "mapping file rejected"))
		return
	}
	h.logger.InfoContext(ctx, "clearance mapping reloaded", "mapping_version", version)
	httputil.WriteJSON(w, http.StatusOK, ReloadResponse{MappingVersion: version})
}

// HandleInvalidateUser handles POST /admin/access/users/{userID}/clearance/invalidate.
func (h *Handler) HandleInvalidateUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.invalidate == nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "clearance invalidation not configured"))
		return
	}
	userID, err := id.ParseUserID(chi.URLParam(r, "userID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	h.invalidate(userID)
	h.logger.InfoContext(ctx, "user clearance invalidated",
		"request_id", requestcontext.RequestID(ctx),
		"user_id", userID,
	)
	w.WriteHeader(http.StatusNoContent)
}

func parseAction(s string) (audit.Action, bool) {
	if s == "" {
		return audit.ActionView, true
	}
	action, ok := audit.ParseAction(s)
	if !ok || !action.Interactive() {
		return "", false
	}
	return action, true
}
