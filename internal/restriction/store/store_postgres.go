// Package store provides read-only access to the restriction tables.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"archgate/internal/restriction"
	id "archgate/pkg/domain"
)

const (
	// Active and end-date filters are applied in SQL; $2 is the evaluation day.
	selectClassifications = `
SELECT object_id, level_code, active
FROM object_classification
WHERE object_id = $1 AND active`

	selectEmbargoes = `
SELECT object_id, end_date, active
FROM object_embargo
WHERE object_id = $1 AND active AND end_date >= $2::date
ORDER BY end_date DESC`

	selectDonorRestrictions = `
SELECT object_id, donor_id, restriction_type, end_date, COALESCE(reason, '')
FROM donor_restriction
WHERE object_id = $1 AND (end_date IS NULL OR end_date >= $2::date)
ORDER BY donor_id`

	selectRedactions = `
SELECT object_id, has_redaction, COALESCE(artifact_path, '')
FROM object_redaction
WHERE object_id = $1 AND has_redaction`

	selectVersions = `
SELECT source, version
FROM restriction_versions
WHERE object_id = $1`
)

// PostgresStore reads restriction records from PostgreSQL.
type PostgresStore struct {
	db  *sql.DB
	loc *time.Location
}

// NewPostgres constructs a PostgreSQL-backed restriction store. Calendar-day
// comparisons use loc (UTC when nil).
func NewPostgres(db *sql.DB, loc *time.Location) *PostgresStore {
	if loc == nil {
		loc = time.UTC
	}
	return &PostgresStore{db: db, loc: loc}
}

func (s *PostgresStore) day(asOf time.Time) string {
	return asOf.In(s.loc).Format(time.DateOnly)
}

func (s *PostgresStore) ReadClassifications(ctx context.Context, objectID id.ObjectID, _ time.Time) ([]restriction.ClassificationRecord, error) {
	rows, err := s.db.QueryContext(ctx, selectClassifications, int64(objectID))
	if err != nil {
		return nil, fmt.Errorf("read classifications: %w", err)
	}
	defer rows.Close()

	var out []restriction.ClassificationRecord
	for rows.Next() {
		var (
			oid    int64
			code   string
			active bool
		)
		if err := rows.Scan(&oid, &code, &active); err != nil {
			return nil, fmt.Errorf("scan classification: %w", err)
		}
		out = append(out, restriction.NewClassificationRecord(id.ObjectID(oid), code, active))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate classifications: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) ReadEmbargoes(ctx context.Context, objectID id.ObjectID, asOf time.Time) ([]restriction.EmbargoRecord, error) {
	rows, err := s.db.QueryContext(ctx, selectEmbargoes, int64(objectID), s.day(asOf))
	if err != nil {
		return nil, fmt.Errorf("read embargoes: %w", err)
	}
	defer rows.Close()

	var out []restriction.EmbargoRecord
	for rows.Next() {
		var (
			oid int64
			rec restriction.EmbargoRecord
		)
		if err := rows.Scan(&oid, &rec.EndDate, &rec.Active); err != nil {
			return nil, fmt.Errorf("scan embargo: %w", err)
		}
		rec.ObjectID = id.ObjectID(oid)
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate embargoes: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) ReadDonorRestrictions(ctx context.Context, objectID id.ObjectID, asOf time.Time) ([]restriction.DonorRestriction, error) {
	rows, err := s.db.QueryContext(ctx, selectDonorRestrictions, int64(objectID), s.day(asOf))
	if err != nil {
		return nil, fmt.Errorf("read donor restrictions: %w", err)
	}
	defer rows.Close()

	var out []restriction.DonorRestriction
	for rows.Next() {
		var (
			oid, donorID int64
			typ, reason  string
			endDate      sql.NullTime
		)
		if err := rows.Scan(&oid, &donorID, &typ, &endDate, &reason); err != nil {
			return nil, fmt.Errorf("scan donor restriction: %w", err)
		}
		var end *time.Time
		if endDate.Valid {
			end = &endDate.Time
		}
		out = append(out, restriction.NewDonorRestriction(id.ObjectID(oid), donorID, typ, end, reason))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate donor restrictions: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) ReadRedactions(ctx context.Context, objectID id.ObjectID, _ time.Time) ([]restriction.RedactionRecord, error) {
	rows, err := s.db.QueryContext(ctx, selectRedactions, int64(objectID))
	if err != nil {
		return nil, fmt.Errorf("read redactions: %w", err)
	}
	defer rows.Close()

	var out []restriction.RedactionRecord
	for rows.Next() {
		var (
			oid int64
			rec restriction.RedactionRecord
		)
		if err := rows.Scan(&oid, &rec.HasRedaction, &rec.ArtifactPath); err != nil {
			return nil, fmt.Errorf("scan redaction: %w", err)
		}
		rec.ObjectID = id.ObjectID(oid)
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate redactions: %w", err)
	}
	return out, nil
}

// Versions implements restriction.VersionReader. Sources without a row read
// as version zero.
func (s *PostgresStore) Versions(ctx context.Context, objectID id.ObjectID) (restriction.VersionVector, error) {
	var v restriction.VersionVector
	rows, err := s.db.QueryContext(ctx, selectVersions, int64(objectID))
	if err != nil {
		return v, fmt.Errorf("read restriction versions: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			source  string
			version int64
		)
		if err := rows.Scan(&source, &version); err != nil {
			return v, fmt.Errorf("scan restriction version: %w", err)
		}
		v.Set(restriction.Kind(source), version)
	}
	if err := rows.Err(); err != nil {
		return v, fmt.Errorf("iterate restriction versions: %w", err)
	}
	return v, nil
}

// Readers exposes the store as the four source readers.
func (s *PostgresStore) Readers() restriction.Readers {
	return restriction.Readers{
		Classification: restriction.ReaderFunc[restriction.ClassificationRecord](s.ReadClassifications),
		Embargo:        restriction.ReaderFunc[restriction.EmbargoRecord](s.ReadEmbargoes),
		Donor:          restriction.ReaderFunc[restriction.DonorRestriction](s.ReadDonorRestrictions),
		Redaction:      restriction.ReaderFunc[restriction.RedactionRecord](s.ReadRedactions),
	}
}
