//go:build integration

package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"archgate/internal/restriction"
	"archgate/internal/restriction/store"
	"archgate/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *store.PostgresStore
	asOf     time.Time
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.postgres = mgr.GetPostgres(s.T())
	s.store = store.NewPostgres(s.postgres.DB, time.UTC)
	s.asOf = time.Date(2026, 5, 10, 15, 0, 0, 0, time.UTC)
}

func (s *PostgresStoreSuite) SetupTest() {
	err := s.postgres.TruncateTables(context.Background(),
		"object_classification", "object_embargo", "donor_restriction", "object_redaction", "restriction_versions")
	s.Require().NoError(err)
}

func (s *PostgresStoreSuite) exec(query string, args ...any) {
	_, err := s.postgres.DB.ExecContext(context.Background(), query, args...)
	s.Require().NoError(err)
}

func (s *PostgresStoreSuite) TestClassificationsSkipInactiveAndFlagUnknownCodes() {
	s.exec(`INSERT INTO object_classification (object_id, level_code, active) VALUES
		(1, 'confidential', TRUE), (1, 'SECRET', FALSE), (1, 'ULTRA', TRUE)`)

	got, err := s.store.ReadClassifications(context.Background(), 1, s.asOf)
	s.Require().NoError(err)
	s.Require().Len(got, 2)

	levels := map[string]restriction.ClassificationRecord{}
	for _, r := range got {
		levels[r.RawCode] = r
	}
	s.Equal(restriction.LevelConfidential, levels["confidential"].Level)
	s.False(levels["confidential"].Malformed)
	s.Equal(restriction.LevelTopSecret, levels["ULTRA"].Level)
	s.True(levels["ULTRA"].Malformed)
}

func (s *PostgresStoreSuite) TestEmbargoesFilterByEvaluationDay() {
	s.exec(`INSERT INTO object_embargo (object_id, end_date, active) VALUES
		(2, '2026-05-09', TRUE), (2, '2026-05-10', TRUE), (2, '2027-01-01', FALSE)`)

	got, err := s.store.ReadEmbargoes(context.Background(), 2, s.asOf)
	s.Require().NoError(err)
	s.Require().Len(got, 1, "an embargo ending today is still in force")
	s.True(got[0].InForce(s.asOf))

	got, err = s.store.ReadEmbargoes(context.Background(), 2, s.asOf.AddDate(0, 0, 1))
	s.Require().NoError(err)
	s.Empty(got)
}

func (s *PostgresStoreSuite) TestDonorRestrictionsDropExpired() {
	s.exec(`INSERT INTO donor_restriction (object_id, donor_id, restriction_type, end_date, reason) VALUES
		(3, 10, 'staff-only', NULL, 'family request'),
		(3, 11, 'no-access', '2026-01-01', NULL),
		(3, 12, 'redacted_only', '2030-12-31', NULL),
		(3, 13, 'sealed', NULL, NULL)`)

	got, err := s.store.ReadDonorRestrictions(context.Background(), 3, s.asOf)
	s.Require().NoError(err)
	s.Require().Len(got, 3)

	s.Equal(int64(10), got[0].DonorID)
	s.Equal(restriction.TypeStaffOnly, got[0].Type)
	s.Nil(got[0].EndDate)
	s.Equal("family request", got[0].Reason)

	s.Equal(restriction.TypeRedactedOnly, got[1].Type)
	s.Require().NotNil(got[1].EndDate)

	s.Equal(restriction.TypeNoAccess, got[2].Type)
	s.True(got[2].Malformed)
}

func (s *PostgresStoreSuite) TestRedactionsOnlyReturnPresentArtifacts() {
	s.exec(`INSERT INTO object_redaction (object_id, has_redaction, artifact_path) VALUES
		(4, TRUE, 'redacted/4.pdf'), (5, FALSE, NULL)`)

	got, err := s.store.ReadRedactions(context.Background(), 4, s.asOf)
	s.Require().NoError(err)
	s.Require().Len(got, 1)
	s.Equal("redacted/4.pdf", got[0].ArtifactPath)

	got, err = s.store.ReadRedactions(context.Background(), 5, s.asOf)
	s.Require().NoError(err)
	s.Empty(got)
}

func (s *PostgresStoreSuite) TestVersionsAreBumpedByWrites() {
	ctx := context.Background()

	v, err := s.store.Versions(ctx, 6)
	s.Require().NoError(err)
	s.Equal(restriction.VersionVector{}, v)

	s.exec(`INSERT INTO object_embargo (object_id, end_date, active) VALUES (6, '2030-01-01', TRUE)`)
	s.exec(`UPDATE object_embargo SET active = FALSE WHERE object_id = 6`)
	s.exec(`INSERT INTO object_classification (object_id, level_code) VALUES (6, 'INTERNAL')`)

	v, err = s.store.Versions(ctx, 6)
	s.Require().NoError(err)
	s.Equal(int64(2), v.Embargo)
	s.Equal(int64(1), v.Classification)
	s.Zero(v.Donor)
	s.Zero(v.Redaction)

	s.exec(`DELETE FROM object_classification WHERE object_id = 6`)
	v, err = s.store.Versions(ctx, 6)
	s.Require().NoError(err)
	s.Equal(int64(2), v.Classification)
}

func (s *PostgresStoreSuite) TestReadersSatisfyGenericInterface() {
	s.exec(`INSERT INTO object_classification (object_id, level_code) VALUES (7, 'INTERNAL')`)

	readers := s.store.Readers()
	got, err := readers.Classification.ReadActive(context.Background(), 7, s.asOf)
	s.Require().NoError(err)
	s.Len(got, 1)
}
