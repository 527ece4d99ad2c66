// Package store reads group memberships and clearance overrides.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/lib/pq"

	"archgate/internal/restriction"
	id "archgate/pkg/domain"
	"archgate/pkg/requestcontext"
)

const (
	selectGroups = `
SELECT COALESCE(array_agg(group_name ORDER BY group_name), '{}')
FROM user_group_membership
WHERE user_id = $1`

	// Overrides with an unparseable level are skipped in Go: an override can only
	// raise clearance.
	selectOverrides = `
SELECT object_id, level_code
FROM clearance_override
WHERE user_id = $1 AND (expires_at IS NULL OR expires_at > $2)`
)

// PostgresStore reads identity data from PostgreSQL.
type PostgresStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// PostgresOption configures a PostgresStore.
type PostgresOption func(*PostgresStore)

// WithLogger sets the logger used to report malformed override rows.
func WithLogger(logger *slog.Logger) PostgresOption {
	return func(s *PostgresStore) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewPostgres constructs a PostgreSQL-backed clearance store.
func NewPostgres(db *sql.DB, opts ...PostgresOption) *PostgresStore {
	s := &PostgresStore{
		db:     db,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *PostgresStore) GroupsForUser(ctx context.Context, userID id.UserID) ([]string, error) {
	var groups pq.StringArray
	if err := s.db.QueryRowContext(ctx, selectGroups, int64(userID)).Scan(&groups); err != nil {
		return nil, fmt.Errorf("find groups for user: %w", err)
	}
	return []string(groups), nil
}

func (s *PostgresStore) OverridesForUser(ctx context.Context, userID id.UserID) (map[id.ObjectID]restriction.ClearanceLevel, error) {
	now := requestcontext.Now(ctx).UTC().Truncate(time.Microsecond)
	rows, err := s.db.QueryContext(ctx, selectOverrides, int64(userID), now)
	if err != nil {
		return nil, fmt.Errorf("find clearance overrides: %w", err)
	}
	defer rows.Close()

	var out map[id.ObjectID]restriction.ClearanceLevel
	for rows.Next() {
		var (
			objectID int64
			code     string
		)
		if err := rows.Scan(&objectID, &code); err != nil {
			return nil, fmt.Errorf("scan clearance override: %w", err)
		}
		level, ok := restriction.ParseClearanceLevel(code)
		if !ok {
			s.logger.WarnContext(ctx, "ignoring clearance override with unknown level",
				"user_id", int64(userID),
				"object_id", objectID,
				"level_code", code,
			)
			continue
		}
		if out == nil {
			out = make(map[id.ObjectID]restriction.ClearanceLevel)
		}
		oid := id.ObjectID(objectID)
		out[oid] = restriction.Max(out[oid], level)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate clearance overrides: %w", err)
	}
	return out, nil
}
