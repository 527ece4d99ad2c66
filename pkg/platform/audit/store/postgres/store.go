package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	id "archgate/pkg/domain"
	audit "archgate/pkg/platform/audit"
	txcontext "archgate/pkg/platform/tx"
)

// Store implements audit.BatchStore on the append-only access_audit_log table.
// The table grants INSERT and SELECT only; the store never issues UPDATE or DELETE.
type Store struct {
	db *sql.DB
}

// New creates a PostgreSQL audit store.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *Store) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

const insertEntry = `
	INSERT INTO access_audit_log (
		id, occurred_at, object_id, user_id, action,
		granted, level, reason, source, request_id
	)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	ON CONFLICT (id) DO NOTHING
`

// Append writes one entry. Retried entries keep their ID, so replays are idempotent.
func (s *Store) Append(ctx context.Context, entry audit.Entry) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	_, err := s.execer(ctx).ExecContext(ctx, insertEntry,
		entry.ID,
		entry.Timestamp.UTC(),
		int64(entry.ObjectID),
		entry.UserID.Ptr(),
		string(entry.Action),
		entry.Decision.Granted,
		entry.Decision.Level,
		entry.Decision.Reason,
		entry.Decision.Source,
		entry.RequestID,
	)
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

// AppendBatch writes entries in order inside one transaction.
func (s *Store) AppendBatch(ctx context.Context, entries []audit.Entry) error {
	if len(entries) == 0 {
		return nil
	}
	return txcontext.Run(ctx, s.db, func(ctx context.Context) error {
		for _, e := range entries {
			if err := s.Append(ctx, e); err != nil {
				return err
			}
		}
		return nil
	})
}

// ListByObject returns entries for one object, oldest first.
func (s *Store) ListByObject(ctx context.Context, objectID id.ObjectID) ([]audit.Entry, error) {
	query := `
		SELECT id, occurred_at, object_id, user_id, action,
			   granted, level, reason, source, request_id
		FROM access_audit_log
		WHERE object_id = $1
		ORDER BY occurred_at ASC, seq ASC
	`
	rows, err := s.db.QueryContext(ctx, query, int64(objectID))
	if err != nil {
		return nil, fmt.Errorf("query audit entries: %w", err)
	}
	defer rows.Close()

	var entries []audit.Entry
	for rows.Next() {
		var (
			entry  audit.Entry
			object int64
			user   sql.NullInt64
			action string
		)
		err := rows.Scan(
			&entry.ID,
			&entry.Timestamp,
			&object,
			&user,
			&action,
			&entry.Decision.Granted,
			&entry.Decision.Level,
			&entry.Decision.Reason,
			&entry.Decision.Source,
			&entry.RequestID,
		)
		if err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		entry.ObjectID = id.ObjectID(object)
		if user.Valid {
			entry.UserID = id.UserID(user.Int64)
		}
		entry.Action = audit.Action(action)
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit entries: %w", err)
	}
	return entries, nil
}
