// Package audit defines the append-only access audit trail.
//
// Every access evaluation produces exactly one Entry. Entries are never updated
// or deleted by this module; retention and purge belong to the operators of the
// underlying store.
package audit

import (
	"context"
	"time"

	"github.com/google/uuid"

	id "archgate/pkg/domain"
)

// Action is what the caller intended to do with the object.
type Action string

const (
	ActionView     Action = "view"
	ActionDownload Action = "download"
	// ActionBadge covers restriction badges rendered in listings.
	ActionBadge Action = "badge"
	// ActionBulkScan covers non-interactive sweeps (reports, exports, reindexing).
	ActionBulkScan Action = "bulk_scan"
)

var knownActions = map[Action]bool{
	ActionView:     true,
	ActionDownload: true,
	ActionBadge:    true,
	ActionBulkScan: true,
}

// ParseAction returns the Action for s, or false if unknown.
func ParseAction(s string) (Action, bool) {
	a := Action(s)
	return a, knownActions[a]
}

// Interactive reports whether the action is a user-facing view that requires the
// audit write to be durable before the decision is returned.
func (a Action) Interactive() bool {
	return a == ActionView || a == ActionDownload
}

// Decision is the snapshot of an access decision stored with the entry.
type Decision struct {
	Granted bool
	Level   string
	Reason  string
	Source  string
}

// Entry is one immutable audit record.
type Entry struct {
	ID        uuid.UUID
	Timestamp time.Time
	ObjectID  id.ObjectID
	UserID    id.UserID // AnonymousUser is stored as NULL
	Action    Action
	Decision  Decision
	RequestID string
}

// Record is the sink schema shared by every durable backend.
type Record struct {
	ID        string `json:"id"`
	Timestamp string `json:"timestamp"`
	ObjectID  int64  `json:"object_id"`
	UserID    *int64 `json:"user_id"`
	Action    string `json:"action"`
	Granted   bool   `json:"granted"`
	Level     string `json:"level"`
	Reason    string `json:"reason"`
	Source    string `json:"source,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// ToRecord renders the entry in the sink schema (RFC 3339 timestamp, nullable user).
func (e Entry) ToRecord() Record {
	return Record{
		ID:        e.ID.String(),
		Timestamp: e.Timestamp.UTC().Format(time.RFC3339Nano),
		ObjectID:  int64(e.ObjectID),
		UserID:    e.UserID.Ptr(),
		Action:    string(e.Action),
		Granted:   e.Decision.Granted,
		Level:     e.Decision.Level,
		Reason:    e.Decision.Reason,
		Source:    e.Decision.Source,
		RequestID: e.RequestID,
	}
}

// Store appends entries durably. Append must not return until the entry is
// persisted or has definitively failed.
type Store interface {
	Append(ctx context.Context, entry Entry) error
}

// BatchStore is implemented by stores that can persist several entries at once.
// Entries must be persisted in slice order.
type BatchStore interface {
	Store
	AppendBatch(ctx context.Context, entries []Entry) error
}

// Reader lists stored entries for one object, oldest first.
type Reader interface {
	ListByObject(ctx context.Context, objectID id.ObjectID) ([]Entry, error)
}
