// Package access decides whether an archival object may be viewed in full,
// viewed redacted, or must be denied, and audits every such decision.
package access

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"archgate/internal/access/metrics"
	"archgate/internal/access/models"
	"archgate/internal/access/ports"
	"archgate/internal/clearance"
	"archgate/internal/restriction"
	id "archgate/pkg/domain"
	dErrors "archgate/pkg/domain-errors"
	audit "archgate/pkg/platform/audit"
	"archgate/pkg/platform/sentinel"
	"archgate/pkg/requestcontext"
)

const (
	defaultSourceTimeout = 2 * time.Second
	defaultCacheTTL      = 5 * time.Second
)

var errNoReader = errors.New("no reader configured")

// Request is one access check.
type Request struct {
	ObjectID id.ObjectID
	User     clearance.UserContext
	Action   audit.Action
}

// Service evaluates access. It holds no per-request state; concurrent checks
// only share the decision cache and the resolver memo.
type Service struct {
	readers  restriction.Readers
	auditor  ports.AuditRecorder
	resolver ports.ClearanceResolver
	versions ports.VersionReader
	cache    ports.DecisionCache
	redactor ports.RedactionGenerator
	logger   *slog.Logger
	metrics  *metrics.Metrics

	policy        Policy
	sourceTimeout time.Duration
	cacheTTL      time.Duration
	location      *time.Location
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithResolver enables CheckAccessForUser and UserContext.
func WithResolver(r ports.ClearanceResolver) Option {
	return func(s *Service) {
		s.resolver = r
	}
}

// WithDecisionCache enables decision caching. Cached decisions are keyed by the
// object's restriction version vector, so versions is required for caching.
func WithDecisionCache(cache ports.DecisionCache, versions ports.VersionReader, ttl time.Duration) Option {
	return func(s *Service) {
		s.cache = cache
		s.versions = versions
		if ttl > 0 {
			s.cacheTTL = ttl
		}
	}
}

func WithRedactionGenerator(g ports.RedactionGenerator) Option {
	return func(s *Service) {
		s.redactor = g
	}
}

// WithSourceTimeout bounds each restriction source read.
func WithSourceTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.sourceTimeout = d
		}
	}
}

func WithPolicy(p Policy) Option {
	return func(s *Service) {
		s.policy = p
	}
}

// WithLocation sets the time zone whose calendar day decides embargo and donor
// end dates.
func WithLocation(loc *time.Location) Option {
	return func(s *Service) {
		if loc != nil {
			s.location = loc
		}
	}
}

// New constructs a Service.
func New(readers restriction.Readers, auditor ports.AuditRecorder, opts ...Option) (*Service, error) {
	if auditor == nil {
		return nil, fmt.Errorf("audit recorder is required")
	}
	s := &Service{
		readers:       readers,
		auditor:       auditor,
		logger:        slog.New(slog.NewTextHandler(io.Discard, nil)),
		policy:        DefaultPolicy(),
		sourceTimeout: defaultSourceTimeout,
		cacheTTL:      defaultCacheTTL,
		location:      time.UTC,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.cache != nil && s.versions == nil {
		return nil, fmt.Errorf("decision cache requires a version reader")
	}
	return s, nil
}

// CheckAccess evaluates a view of objectID by uc.
func (s *Service) CheckAccess(ctx context.Context, objectID id.ObjectID, uc clearance.UserContext) models.AccessDecision {
	return s.Check(ctx, Request{ObjectID: objectID, User: uc, Action: audit.ActionView})
}

// CheckAccessForUser resolves the user's context and evaluates a view.
func (s *Service) CheckAccessForUser(ctx context.Context, objectID id.ObjectID, userID id.UserID) models.AccessDecision {
	return s.CheckAccess(ctx, objectID, s.UserContext(ctx, userID))
}

// UserContext resolves userID. A resolver failure never raises privileges: the
// caller is treated as anonymous for authorization while keeping their id for
// audit.
func (s *Service) UserContext(ctx context.Context, userID id.UserID) clearance.UserContext {
	if userID.IsAnonymous() {
		return clearance.Anonymous()
	}
	if s.resolver == nil {
		s.logger.WarnContext(ctx, "no clearance resolver configured, using least privilege",
			"user_id", userID,
		)
		return clearance.LeastPrivilege(userID)
	}
	uc, err := s.resolver.Resolve(ctx, userID)
	if err != nil {
		s.metrics.IncClearanceDegraded()
		s.logger.WarnContext(ctx, "clearance resolution failed, using least privilege",
			"user_id", userID,
			"degraded", true,
			"error", err,
		)
		return clearance.LeastPrivilege(userID)
	}
	return uc
}

// Check evaluates req and records the decision. It never returns an error:
// faults become denials with a distinct reason.
func (s *Service) Check(ctx context.Context, req Request) models.AccessDecision {
	start := time.Now()
	if req.Action == "" {
		req.Action = audit.ActionView
	}
	ctx, span := startSpan(ctx, traceSpanCheck,
		attribute.Int64(traceAttrObjectID, int64(req.ObjectID)),
		attribute.String(traceAttrUser, models.UserToken(req.User.UserID)),
		attribute.String(traceAttrAction, string(req.Action)),
	)
	defer span.End()

	decision, cacheHit := s.decide(ctx, req)

	s.record(ctx, req, decision)
	s.metrics.IncDecision(string(decision.Level), string(decision.Reason))
	s.metrics.ObserveCheckLatency(time.Since(start))
	span.SetAttributes(
		attribute.String(traceAttrLevel, string(decision.Level)),
		attribute.String(traceAttrReason, string(decision.Reason)),
		attribute.Bool(traceAttrCacheHit, cacheHit),
	)
	markSpanResult(span, nil)
	return decision
}

func (s *Service) decide(ctx context.Context, req Request) (models.AccessDecision, bool) {
	if !req.ObjectID.IsValid() {
		s.logger.WarnContext(ctx, "access check with invalid object id",
			"object_id", int64(req.ObjectID),
			"user_id", req.User.UserID,
		)
		return models.Deny(models.ReasonInvalidRequest, models.SourceNone), false
	}

	key, cacheable := s.cacheKey(ctx, req)
	if cacheable {
		if d, ok := s.cacheGet(ctx, key); ok {
			return d, true
		}
	}

	eval := s.Evaluate(ctx, req.ObjectID, req.User)
	if cacheable && len(eval.Unavailable) == 0 {
		if err := s.cache.Put(ctx, key, eval.Decision, s.cacheTTL); err != nil {
			s.logger.DebugContext(ctx, "decision cache put failed", "object_id", req.ObjectID, "error", err)
		}
	}
	return eval.Decision, false
}

// Evaluate reads the restriction sources and applies the precedence rules
// without consulting the cache or writing audit. Integrity faults and source
// outages are logged here.
func (s *Service) Evaluate(ctx context.Context, objectID id.ObjectID, uc clearance.UserContext) models.Evaluation {
	asOf := requestcontext.Now(ctx).In(s.location)
	ev := s.gatherEvidence(ctx, objectID, asOf)
	eval := Evaluate(ev, uc, s.policy)

	for _, fault := range eval.Integrity {
		s.metrics.IncIntegrityFault(string(fault.Kind))
		s.logger.WarnContext(ctx, "restriction data integrity fault",
			"object_id", objectID,
			"source", fault.Kind,
			"detail", fault.Detail,
		)
	}
	for _, kind := range eval.Unavailable {
		s.logger.WarnContext(ctx, "restriction source unavailable",
			"object_id", objectID,
			"source", kind,
			"degraded", true,
			"decision", eval.Decision.String(),
			"error", ev.Unavailable[kind],
		)
	}
	return eval
}

func (s *Service) cacheKey(ctx context.Context, req Request) (models.DecisionKey, bool) {
	if s.cache == nil {
		return models.DecisionKey{}, false
	}
	versions, err := s.versions.Versions(ctx, req.ObjectID)
	if err != nil {
		s.metrics.IncCacheLookup("bypass")
		s.logger.DebugContext(ctx, "restriction versions unavailable, bypassing decision cache",
			"object_id", req.ObjectID,
			"error", err,
		)
		return models.DecisionKey{}, false
	}
	return models.DecisionKey{
		ObjectID:    req.ObjectID,
		User:        models.UserToken(req.User.UserID),
		Fingerprint: req.User.Fingerprint(req.ObjectID),
		Versions:    versions,
	}, true
}

func (s *Service) cacheGet(ctx context.Context, key models.DecisionKey) (models.AccessDecision, bool) {
	d, ok, err := s.cache.Get(ctx, key)
	switch {
	case err != nil:
		s.metrics.IncCacheLookup("error")
		s.logger.DebugContext(ctx, "decision cache get failed", "object_id", key.ObjectID, "error", err)
		return models.AccessDecision{}, false
	case ok:
		s.metrics.IncCacheLookup("hit")
		return d, true
	default:
		s.metrics.IncCacheLookup("miss")
		return models.AccessDecision{}, false
	}
}

// record writes the audit entry. A failed write has already been escalated by
// the recorder and does not change the decision.
func (s *Service) record(ctx context.Context, req Request, d models.AccessDecision) {
	entry := audit.Entry{
		ObjectID: req.ObjectID,
		UserID:   req.User.UserID,
		Action:   req.Action,
		Decision: audit.Decision{
			Granted: d.Granted,
			Level:   string(d.Level),
			Reason:  string(d.Reason),
			Source:  string(d.Source),
		},
		RequestID: requestcontext.RequestID(ctx),
	}
	if err := s.auditor.Record(ctx, entry); err != nil {
		s.logger.DebugContext(ctx, "audit record returned error",
			"object_id", req.ObjectID,
			"error", err,
		)
	}
}

// InvalidateObject drops cached decisions for an object. Restriction writers
// call it after changing any record of the object.
func (s *Service) InvalidateObject(ctx context.Context, objectID id.ObjectID) error {
	if s.cache == nil {
		return nil
	}
	if err := s.cache.InvalidateObject(ctx, objectID); err != nil {
		return fmt.Errorf("invalidate decisions for object %s: %w", objectID, err)
	}
	return nil
}

// RedactedArtifact returns the sanitized derivative of objectID for uc. The
// artifact is only served when a fresh check yields a redacted grant; a full
// grant or a denial returns a forbidden error.
func (s *Service) RedactedArtifact(ctx context.Context, objectID id.ObjectID, uc clearance.UserContext, originalPath string) (ports.RedactedArtifact, models.AccessDecision, error) {
	if s.redactor == nil {
		return ports.RedactedArtifact{}, models.AccessDecision{}, dErrors.New(dErrors.CodeUnavailable, "redaction generator not configured")
	}
	decision := s.Check(ctx, Request{ObjectID: objectID, User: uc, Action: audit.ActionDownload})
	if !decision.Granted || decision.Level != models.LevelRedacted {
		return ports.RedactedArtifact{}, decision, dErrors.New(dErrors.CodeForbidden, "redacted artifact not available for this decision")
	}

	has, err := s.redactor.HasRedactions(ctx, objectID)
	if err != nil {
		return ports.RedactedArtifact{}, decision, dErrors.Wrap(err, dErrors.CodeUnavailable, "redaction generator unavailable")
	}
	if !has {
		return ports.RedactedArtifact{}, decision, dErrors.New(dErrors.CodeNotFound, "redacted artifact not found")
	}
	artifact, err := s.redactor.GetRedactedPdf(ctx, objectID, originalPath)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return ports.RedactedArtifact{}, decision, dErrors.Wrap(err, dErrors.CodeNotFound, "redacted artifact not found")
		}
		s.logger.ErrorContext(ctx, "redacted artifact lookup failed",
			"object_id", objectID,
			"error", err,
		)
		return ports.RedactedArtifact{}, decision, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to produce redacted artifact")
	}
	return artifact, decision, nil
}
