package store

import (
	"context"
	"errors"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"archgate/internal/restriction"
)

var asOf = time.Date(2026, 5, 10, 22, 0, 0, 0, time.UTC)

func newMockStore(t *testing.T, loc *time.Location) (*PostgresStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewPostgres(db, loc), mock
}

func TestPostgresStore_ReadClassifications(t *testing.T) {
	store, mock := newMockStore(t, nil)
	mock.ExpectQuery("FROM object_classification").
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"object_id", "level_code", "active"}).
			AddRow(int64(7), "CONFIDENTIAL", true).
			AddRow(int64(7), "bogus", true))

	records, err := store.ReadClassifications(context.Background(), 7, asOf)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, restriction.LevelConfidential, records[0].Level)
	assert.False(t, records[0].Malformed)
	assert.Equal(t, restriction.LevelTopSecret, records[1].Level)
	assert.True(t, records[1].Malformed)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ReadEmbargoes_PushesDayFilter(t *testing.T) {
	t.Run("utc", func(t *testing.T) {
		store, mock := newMockStore(t, nil)
		end := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
		mock.ExpectQuery(`FROM object_embargo\s+WHERE object_id = \$1 AND active AND end_date >= \$2::date`).
			WithArgs(int64(3), "2026-05-10").
			WillReturnRows(sqlmock.NewRows([]string{"object_id", "end_date", "active"}).
				AddRow(int64(3), end, true))

		records, err := store.ReadEmbargoes(context.Background(), 3, asOf)
		require.NoError(t, err)
		require.Len(t, records, 1)
		assert.Equal(t, end, records[0].EndDate)
		assert.True(t, records[0].Active)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("configured location decides the day", func(t *testing.T) {
		store, mock := newMockStore(t, time.FixedZone("UTC+10", 10*60*60))
		mock.ExpectQuery("FROM object_embargo").
			WithArgs(int64(3), "2026-05-11").
			WillReturnRows(sqlmock.NewRows([]string{"object_id", "end_date", "active"}))

		records, err := store.ReadEmbargoes(context.Background(), 3, asOf)
		require.NoError(t, err)
		assert.Empty(t, records)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPostgresStore_ReadDonorRestrictions(t *testing.T) {
	store, mock := newMockStore(t, nil)
	end := time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`FROM donor_restriction\s+WHERE object_id = \$1 AND \(end_date IS NULL OR end_date >= \$2::date\)`).
		WithArgs(int64(9), "2026-05-10").
		WillReturnRows(sqlmock.NewRows([]string{"object_id", "donor_id", "restriction_type", "end_date", "reason"}).
			AddRow(int64(9), int64(1), "redacted-only", end, "family request").
			AddRow(int64(9), int64(2), "staff-only", nil, ""))

	records, err := store.ReadDonorRestrictions(context.Background(), 9, asOf)
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, restriction.TypeRedactedOnly, records[0].Type)
	require.NotNil(t, records[0].EndDate)
	assert.Equal(t, end, *records[0].EndDate)
	assert.Equal(t, "family request", records[0].Reason)

	assert.Equal(t, restriction.TypeStaffOnly, records[1].Type)
	assert.Nil(t, records[1].EndDate)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ReadRedactions(t *testing.T) {
	store, mock := newMockStore(t, nil)
	mock.ExpectQuery("FROM object_redaction").
		WithArgs(int64(4)).
		WillReturnRows(sqlmock.NewRows([]string{"object_id", "has_redaction", "artifact_path"}).
			AddRow(int64(4), true, "/redacted/4.pdf"))

	records, err := store.ReadRedactions(context.Background(), 4, asOf)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "/redacted/4.pdf", records[0].ArtifactPath)
}

func TestPostgresStore_Versions(t *testing.T) {
	store, mock := newMockStore(t, nil)
	mock.ExpectQuery("FROM restriction_versions").
		WithArgs(int64(4)).
		WillReturnRows(sqlmock.NewRows([]string{"source", "version"}).
			AddRow("classification", int64(2)).
			AddRow("donor", int64(5)))

	v, err := store.Versions(context.Background(), 4)
	require.NoError(t, err)
	assert.Equal(t, restriction.VersionVector{Classification: 2, Donor: 5}, v)
}

func TestPostgresStore_WrapsQueryErrors(t *testing.T) {
	store, mock := newMockStore(t, nil)
	mock.ExpectQuery("FROM object_embargo").WillReturnError(errors.New("connection refused"))

	_, err := store.Readers().Embargo.ReadActive(context.Background(), 1, asOf)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read embargoes")
}
