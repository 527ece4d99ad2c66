package access

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"archgate/internal/access/metrics"
	"archgate/internal/access/mocks"
	"archgate/internal/access/models"
	"archgate/internal/access/ports"
	"archgate/internal/clearance"
	"archgate/internal/restriction"
	"archgate/internal/restriction/store"
	id "archgate/pkg/domain"
	dErrors "archgate/pkg/domain-errors"
	audit "archgate/pkg/platform/audit"
	"archgate/pkg/platform/sentinel"
	"archgate/pkg/requestcontext"
)

// =============================================================================
// Access Service Test Suite
// =============================================================================
// Justification for unit tests: the service wires parallel source reads, the
// decision cache, clearance resolution and audit around the pure rules. Tests
// verify fail-closed behavior, audit completeness and cache keying.

type ServiceSuite struct {
	suite.Suite
	ctrl     *gomock.Controller
	auditor  *mocks.MockAuditRecorder
	resolver *mocks.MockClearanceResolver
	cache    *mocks.MockDecisionCache
	versions *mocks.MockVersionReader
	redactor *mocks.MockRedactionGenerator
	store    *store.InMemoryStore
	metrics  *metrics.Metrics
	logger   *slog.Logger
	ctx      context.Context
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.auditor = mocks.NewMockAuditRecorder(s.ctrl)
	s.resolver = mocks.NewMockClearanceResolver(s.ctrl)
	s.cache = mocks.NewMockDecisionCache(s.ctrl)
	s.versions = mocks.NewMockVersionReader(s.ctrl)
	s.redactor = mocks.NewMockRedactionGenerator(s.ctrl)
	s.store = store.NewInMemoryStore()
	s.metrics = metrics.New(prometheus.NewRegistry())
	s.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	s.ctx = requestcontext.WithTime(context.Background(), today)
}

func (s *ServiceSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *ServiceSuite) newService(opts ...Option) *Service {
	opts = append([]Option{WithLogger(s.logger), WithMetrics(s.metrics), WithResolver(s.resolver)}, opts...)
	svc, err := New(s.store.Readers(), s.auditor, opts...)
	s.Require().NoError(err)
	return svc
}

// expectAudit captures every recorded entry.
func (s *ServiceSuite) expectAudit(times int) *[]audit.Entry {
	var entries []audit.Entry
	s.auditor.EXPECT().Record(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, e audit.Entry) error {
			entries = append(entries, e)
			return nil
		}).Times(times)
	return &entries
}

// =============================================================================
// Constructor Tests (Invariant Enforcement)
// =============================================================================

func (s *ServiceSuite) TestNew() {
	s.Run("nil audit recorder returns error", func() {
		_, err := New(s.store.Readers(), nil)
		s.Error(err)
		s.Contains(err.Error(), "audit recorder is required")
	})

	s.Run("cache without version reader returns error", func() {
		_, err := New(s.store.Readers(), s.auditor, WithDecisionCache(s.cache, nil, time.Second))
		s.Error(err)
	})

	s.Run("options are applied", func() {
		svc, err := New(s.store.Readers(), s.auditor,
			WithSourceTimeout(time.Millisecond),
			WithPolicy(Policy{}),
			WithLocation(time.FixedZone("x", 3600)),
		)
		s.NoError(err)
		s.Equal(time.Millisecond, svc.sourceTimeout)
		s.False(svc.policy.AdminBypassEmbargo)
	})
}

// =============================================================================
// Check Tests
// =============================================================================

func (s *ServiceSuite) TestCheckAccess_AuditsEveryCall() {
	s.store.PutClassification(restriction.ClassificationRecord{ObjectID: 1, Level: restriction.LevelConfidential, Active: true})
	entries := s.expectAudit(2)
	svc := s.newService()
	ctx := requestcontext.WithRequestID(s.ctx, "req-9")
	uc := clearance.UserContext{UserID: 5, ClearanceLevel: restriction.LevelInternal}

	first := svc.CheckAccess(ctx, 1, uc)
	second := svc.CheckAccess(ctx, 1, uc)

	s.Equal(first, second, "identical inputs give identical decisions")
	s.Equal(models.Deny(models.ReasonInsufficientClearance, models.SourceClassification), first)
	s.Require().Len(*entries, 2, "repeated checks are never deduplicated")
	e := (*entries)[0]
	s.Equal(id.ObjectID(1), e.ObjectID)
	s.Equal(id.UserID(5), e.UserID)
	s.Equal(audit.ActionView, e.Action)
	s.Equal("req-9", e.RequestID)
	s.Equal(audit.Decision{Granted: false, Level: "denied", Reason: "insufficient-clearance", Source: "classification"}, e.Decision)
}

func (s *ServiceSuite) TestCheckAccess_AnonymousIsAudited() {
	entries := s.expectAudit(1)
	svc := s.newService()

	d := svc.CheckAccess(s.ctx, 2, clearance.Anonymous())
	s.True(d.Granted)
	s.Equal(id.AnonymousUser, (*entries)[0].UserID)
}

func (s *ServiceSuite) TestCheck_InvalidObjectID() {
	entries := s.expectAudit(1)
	svc := s.newService()

	d := svc.Check(s.ctx, Request{ObjectID: 0, User: clearance.Anonymous(), Action: audit.ActionBadge})
	s.Equal(models.Deny(models.ReasonInvalidRequest, models.SourceNone), d)
	s.Equal(audit.ActionBadge, (*entries)[0].Action)
}

func (s *ServiceSuite) TestCheck_AuditFailureDoesNotChangeDecision() {
	s.auditor.EXPECT().Record(gomock.Any(), gomock.Any()).Return(errors.New("audit down"))
	svc := s.newService()

	d := svc.CheckAccess(s.ctx, 3, clearance.Anonymous())
	s.Equal(models.Grant(models.LevelFull, models.SourceNone), d)
}

func (s *ServiceSuite) TestCheck_EmbargoBoundaryUsesCallTime() {
	s.store.PutEmbargo(restriction.EmbargoRecord{ObjectID: 4, EndDate: dayOffset(0), Active: true})
	s.expectAudit(2)
	svc := s.newService()

	onEndDate := svc.CheckAccess(s.ctx, 4, clearance.Anonymous())
	s.Equal(models.ReasonEmbargoed, onEndDate.Reason)

	nextDay := requestcontext.WithTime(context.Background(), today.Add(24*time.Hour))
	after := svc.CheckAccess(nextDay, 4, clearance.Anonymous())
	s.True(after.Granted)
}

func (s *ServiceSuite) TestCheck_LocationDecidesCalendarDay() {
	s.store.PutEmbargo(restriction.EmbargoRecord{ObjectID: 4, EndDate: dayOffset(0), Active: true})
	s.expectAudit(1)
	// 14:00 UTC on the end date is already the next day in UTC+12.
	svc := s.newService(WithLocation(time.FixedZone("UTC+12", 12*60*60)))

	s.True(svc.CheckAccess(s.ctx, 4, clearance.Anonymous()).Granted)
}

// =============================================================================
// Source Availability Tests
// =============================================================================

func (s *ServiceSuite) TestCheck_SlowSourceTimesOutAndFailsClosed() {
	readers := s.store.Readers()
	readers.Classification = restriction.ReaderFunc[restriction.ClassificationRecord](
		func(ctx context.Context, _ id.ObjectID, _ time.Time) ([]restriction.ClassificationRecord, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		})
	s.expectAudit(1)
	svc, err := New(readers, s.auditor, WithMetrics(s.metrics), WithSourceTimeout(20*time.Millisecond))
	s.Require().NoError(err)

	start := time.Now()
	d := svc.CheckAccess(s.ctx, 5, clearance.UserContext{UserID: 1, ClearanceLevel: restriction.LevelTopSecret, Roles: []clearance.Role{clearance.RoleAdministrator}})

	s.Equal(models.Deny(models.ReasonSourceUnavailable, models.SourceClassification), d)
	s.Less(time.Since(start), time.Second)
	s.InDelta(1, testutil.ToFloat64(s.metrics.SourceUnavailable.WithLabelValues("classification")), 0)
}

func (s *ServiceSuite) TestCheck_ReaderThatIgnoresContextIsAbandoned() {
	release := make(chan struct{})
	defer close(release)
	readers := s.store.Readers()
	readers.Donor = restriction.ReaderFunc[restriction.DonorRestriction](
		func(context.Context, id.ObjectID, time.Time) ([]restriction.DonorRestriction, error) {
			<-release
			return nil, nil
		})
	s.expectAudit(1)
	svc, err := New(readers, s.auditor, WithSourceTimeout(20*time.Millisecond))
	s.Require().NoError(err)

	d := svc.CheckAccess(s.ctx, 5, clearance.Anonymous())
	s.Equal(models.Deny(models.ReasonSourceUnavailable, models.SourceDonor), d)
}

func (s *ServiceSuite) TestCheck_MissingReaderIsUnavailable() {
	readers := s.store.Readers()
	readers.Redaction = nil
	s.expectAudit(1)
	svc, err := New(readers, s.auditor)
	s.Require().NoError(err)

	d := svc.CheckAccess(s.ctx, 5, clearance.Anonymous())
	s.Equal(models.ReasonSourceUnavailable, d.Reason)
}

func (s *ServiceSuite) TestCheck_GuardedReaderOutage() {
	readers := s.store.Readers()
	readers.Embargo = restriction.ReaderFunc[restriction.EmbargoRecord](
		func(context.Context, id.ObjectID, time.Time) ([]restriction.EmbargoRecord, error) {
			return nil, restriction.Unavailable(restriction.KindEmbargo, errors.New("breaker open"))
		})
	s.expectAudit(1)
	svc, err := New(readers, s.auditor)
	s.Require().NoError(err)

	d := svc.CheckAccess(s.ctx, 5, clearance.Anonymous())
	s.Equal(models.Deny(models.ReasonSourceUnavailable, models.SourceEmbargo), d)
}

// =============================================================================
// Clearance Resolution Tests
// =============================================================================

func (s *ServiceSuite) TestCheckAccessForUser() {
	s.store.PutClassification(restriction.ClassificationRecord{ObjectID: 6, Level: restriction.LevelSecret, Active: true})

	s.Run("resolved clearance is applied", func() {
		s.resolver.EXPECT().Resolve(gomock.Any(), id.UserID(8)).
			Return(clearance.UserContext{UserID: 8, ClearanceLevel: restriction.LevelSecret}, nil)
		entries := s.expectAudit(1)
		svc := s.newService()

		d := svc.CheckAccessForUser(s.ctx, 6, 8)
		s.True(d.Granted)
		s.Equal(id.UserID(8), (*entries)[0].UserID)
	})

	s.Run("resolver failure degrades to least privilege", func() {
		s.resolver.EXPECT().Resolve(gomock.Any(), id.UserID(8)).Return(clearance.UserContext{}, errors.New("ldap down"))
		entries := s.expectAudit(1)
		svc := s.newService()

		d := svc.CheckAccessForUser(s.ctx, 6, 8)
		s.Equal(models.ReasonInsufficientClearance, d.Reason)
		s.Equal(id.UserID(8), (*entries)[0].UserID, "audit keeps the caller's identity")
		s.InDelta(1, testutil.ToFloat64(s.metrics.ClearanceDegraded), 0)
	})

	s.Run("anonymous never calls the resolver", func() {
		s.expectAudit(1)
		svc := s.newService()
		d := svc.CheckAccessForUser(s.ctx, 6, id.AnonymousUser)
		s.Equal(models.ReasonInsufficientClearance, d.Reason)
	})
}

func (s *ServiceSuite) TestUserContext_NoResolver() {
	svc, err := New(s.store.Readers(), s.auditor)
	s.Require().NoError(err)

	uc := svc.UserContext(s.ctx, 12)
	s.Equal(id.UserID(12), uc.UserID)
	s.Equal(restriction.LevelPublic, uc.ClearanceLevel)
	s.Empty(uc.Roles)
}

// =============================================================================
// Decision Cache Tests
// =============================================================================

func (s *ServiceSuite) TestCheck_CacheHitStillAudits() {
	vv := restriction.VersionVector{Classification: 2}
	uc := clearance.UserContext{UserID: 9, ClearanceLevel: restriction.LevelInternal, Roles: []clearance.Role{clearance.RoleEditor}}
	key := models.DecisionKey{ObjectID: 7, User: "u:9", Fingerprint: "INTERNAL+editor", Versions: vv}
	cached := models.Grant(models.LevelRedacted, models.SourceDonor)

	s.versions.EXPECT().Versions(gomock.Any(), id.ObjectID(7)).Return(vv, nil)
	s.cache.EXPECT().Get(gomock.Any(), key).Return(cached, true, nil)
	entries := s.expectAudit(1)
	svc := s.newService(WithDecisionCache(s.cache, s.versions, time.Second))

	d := svc.CheckAccess(s.ctx, 7, uc)
	s.Equal(cached, d)
	s.Equal("redacted", (*entries)[0].Decision.Level)
}

func (s *ServiceSuite) TestCheck_CacheMissPopulates() {
	vv := restriction.VersionVector{}
	s.versions.EXPECT().Versions(gomock.Any(), id.ObjectID(7)).Return(vv, nil)
	s.cache.EXPECT().Get(gomock.Any(), gomock.Any()).Return(models.AccessDecision{}, false, nil)
	s.cache.EXPECT().Put(gomock.Any(), gomock.Any(), models.Grant(models.LevelFull, models.SourceNone), 3*time.Second).Return(nil)
	s.expectAudit(1)
	svc := s.newService(WithDecisionCache(s.cache, s.versions, 3*time.Second))

	s.True(svc.CheckAccess(s.ctx, 7, clearance.Anonymous()).Granted)
	s.InDelta(1, testutil.ToFloat64(s.metrics.CacheLookups.WithLabelValues("miss")), 0)
}

func (s *ServiceSuite) TestCheck_DegradedDecisionsAreNotCached() {
	readers := s.store.Readers()
	readers.Donor = restriction.ReaderFunc[restriction.DonorRestriction](
		func(context.Context, id.ObjectID, time.Time) ([]restriction.DonorRestriction, error) {
			return nil, errors.New("down")
		})
	s.versions.EXPECT().Versions(gomock.Any(), gomock.Any()).Return(restriction.VersionVector{}, nil)
	s.cache.EXPECT().Get(gomock.Any(), gomock.Any()).Return(models.AccessDecision{}, false, nil)
	s.cache.EXPECT().Put(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Times(0)
	s.expectAudit(1)
	svc, err := New(readers, s.auditor, WithDecisionCache(s.cache, s.versions, time.Second))
	s.Require().NoError(err)

	s.Equal(models.ReasonSourceUnavailable, svc.CheckAccess(s.ctx, 7, clearance.Anonymous()).Reason)
}

func (s *ServiceSuite) TestCheck_CacheErrorsAreNotFatal() {
	s.versions.EXPECT().Versions(gomock.Any(), gomock.Any()).Return(restriction.VersionVector{}, nil)
	s.cache.EXPECT().Get(gomock.Any(), gomock.Any()).Return(models.AccessDecision{}, false, errors.New("redis down"))
	s.cache.EXPECT().Put(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(errors.New("redis down"))
	s.expectAudit(1)
	svc := s.newService(WithDecisionCache(s.cache, s.versions, time.Second))

	s.True(svc.CheckAccess(s.ctx, 7, clearance.Anonymous()).Granted)
}

func (s *ServiceSuite) TestCheck_VersionErrorBypassesCache() {
	s.versions.EXPECT().Versions(gomock.Any(), gomock.Any()).Return(restriction.VersionVector{}, errors.New("down"))
	s.expectAudit(1)
	svc := s.newService(WithDecisionCache(s.cache, s.versions, time.Second))

	s.True(svc.CheckAccess(s.ctx, 7, clearance.Anonymous()).Granted)
	s.InDelta(1, testutil.ToFloat64(s.metrics.CacheLookups.WithLabelValues("bypass")), 0)
}

func (s *ServiceSuite) TestInvalidateObject() {
	s.cache.EXPECT().InvalidateObject(gomock.Any(), id.ObjectID(7)).Return(nil)
	svc := s.newService(WithDecisionCache(s.cache, s.versions, time.Second))
	s.NoError(svc.InvalidateObject(s.ctx, 7))

	noCache := s.newService()
	s.NoError(noCache.InvalidateObject(s.ctx, 7))
}

// =============================================================================
// Redacted Artifact Tests
// =============================================================================

func (s *ServiceSuite) TestRedactedArtifact() {
	s.store.PutDonor(restriction.DonorRestriction{ObjectID: 11, Type: restriction.TypeRedactedOnly})
	s.store.PutRedaction(restriction.RedactionRecord{ObjectID: 11, HasRedaction: true, ArtifactPath: "/r/11.pdf"})

	s.Run("redacted decision serves the artifact", func() {
		entries := s.expectAudit(1)
		s.redactor.EXPECT().HasRedactions(gomock.Any(), id.ObjectID(11)).Return(true, nil)
		s.redactor.EXPECT().GetRedactedPdf(gomock.Any(), id.ObjectID(11), "/orig/11.pdf").
			Return(ports.RedactedArtifact{Path: "/r/11.pdf"}, nil)
		svc := s.newService(WithRedactionGenerator(s.redactor))

		artifact, d, err := svc.RedactedArtifact(s.ctx, 11, clearance.Anonymous(), "/orig/11.pdf")
		s.Require().NoError(err)
		s.Equal("/r/11.pdf", artifact.Path)
		s.Equal(models.LevelRedacted, d.Level)
		s.Equal(audit.ActionDownload, (*entries)[0].Action)
	})

	s.Run("full grant does not serve a redacted artifact", func() {
		s.expectAudit(1)
		svc := s.newService(WithRedactionGenerator(s.redactor))
		_, d, err := svc.RedactedArtifact(s.ctx, 12, clearance.Anonymous(), "/orig/12.pdf")
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
		s.Equal(models.LevelFull, d.Level)
	})

	s.Run("generator failure is unavailable", func() {
		s.expectAudit(1)
		s.redactor.EXPECT().HasRedactions(gomock.Any(), id.ObjectID(11)).Return(false, errors.New("io"))
		svc := s.newService(WithRedactionGenerator(s.redactor))
		_, _, err := svc.RedactedArtifact(s.ctx, 11, clearance.Anonymous(), "/orig/11.pdf")
		s.True(dErrors.HasCode(err, dErrors.CodeUnavailable))
	})

	s.Run("missing artifact file is not found", func() {
		s.expectAudit(1)
		s.redactor.EXPECT().HasRedactions(gomock.Any(), id.ObjectID(11)).Return(true, nil)
		s.redactor.EXPECT().GetRedactedPdf(gomock.Any(), id.ObjectID(11), "/orig/11.pdf").
			Return(ports.RedactedArtifact{}, fmt.Errorf("artifact gone: %w", sentinel.ErrNotFound))
		svc := s.newService(WithRedactionGenerator(s.redactor))
		_, _, err := svc.RedactedArtifact(s.ctx, 11, clearance.Anonymous(), "/orig/11.pdf")
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("no generator configured", func() {
		svc := s.newService()
		_, _, err := svc.RedactedArtifact(s.ctx, 11, clearance.Anonymous(), "/orig/11.pdf")
		s.True(dErrors.HasCode(err, dErrors.CodeUnavailable))
	})
}

// =============================================================================
// Integrity Fault Tests
// =============================================================================

func (s *ServiceSuite) TestCheck_IntegrityFaultsAreCounted() {
	s.store.PutClassification(restriction.ClassificationRecord{ObjectID: 13, Level: restriction.LevelInternal, Active: true})
	s.store.PutClassification(restriction.NewClassificationRecord(13, "??", true))
	s.expectAudit(1)
	svc := s.newService()

	d := svc.CheckAccess(s.ctx, 13, clearance.UserContext{UserID: 1, ClearanceLevel: restriction.LevelSecret})
	s.Equal(models.ReasonInsufficientClearance, d.Reason)
	s.InDelta(2, testutil.ToFloat64(s.metrics.IntegrityFaults.WithLabelValues("classification")), 0)
}
