package clearance

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/singleflight"

	"archgate/internal/restriction"
	id "archgate/pkg/domain"
)

const (
	defaultTTL       = 30 * time.Second
	defaultCacheSize = 4096
)

// GroupStore returns the identity-store groups a user belongs to.
type GroupStore interface {
	GroupsForUser(ctx context.Context, userID id.UserID) ([]string, error)
}

// OverrideStore returns per-object clearance elevations granted to a user.
type OverrideStore interface {
	OverridesForUser(ctx context.Context, userID id.UserID) (map[id.ObjectID]restriction.ClearanceLevel, error)
}

// Resolver builds UserContexts. Results are memoized per user for a short TTL
// so membership changes take effect promptly; concurrent misses for one user
// share a single store round trip.
type Resolver struct {
	groups    GroupStore
	overrides OverrideStore
	table     atomic.Pointer[MappingTable]
	logger    *slog.Logger

	ttl       time.Duration
	cacheSize int
	memo      *expirable.LRU[id.UserID, memoEntry]
	flight    singleflight.Group
}

// memoEntry remembers which mapping table produced a context so entries from a
// replaced table are never served.
type memoEntry struct {
	uc    UserContext
	table *MappingTable
}

type Option func(*Resolver)

func WithLogger(logger *slog.Logger) Option {
	return func(r *Resolver) {
		r.logger = logger
	}
}

// WithOverrideStore enables per-object overrides.
func WithOverrideStore(store OverrideStore) Option {
	return func(r *Resolver) {
		r.overrides = store
	}
}

// WithTTL sets the memo lifetime. Zero disables memoization.
func WithTTL(ttl time.Duration) Option {
	return func(r *Resolver) {
		r.ttl = ttl
	}
}

// WithCacheSize bounds the number of memoized users.
func WithCacheSize(n int) Option {
	return func(r *Resolver) {
		if n > 0 {
			r.cacheSize = n
		}
	}
}

// NewResolver constructs a Resolver.
func NewResolver(groups GroupStore, table *MappingTable, opts ...Option) (*Resolver, error) {
	if groups == nil {
		return nil, fmt.Errorf("group store is required")
	}
	if table == nil {
		return nil, fmt.Errorf("mapping table is required")
	}
	r := &Resolver{
		groups:    groups,
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		ttl:       defaultTTL,
		cacheSize: defaultCacheSize,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.table.Store(table)
	if r.ttl > 0 {
		r.memo = expirable.NewLRU[id.UserID, memoEntry](r.cacheSize, nil, r.ttl)
	}
	return r, nil
}

// Resolve returns the context for userID. The anonymous user always resolves
// to PUBLIC with no roles and never touches the stores.
func (r *Resolver) Resolve(ctx context.Context, userID id.UserID) (UserContext, error) {
	if userID.IsAnonymous() {
		return Anonymous(), nil
	}
	table := r.table.Load()
	if r.memo != nil {
		if e, ok := r.memo.Get(userID); ok {
			if e.table == table {
				return e.uc, nil
			}
			r.memo.Remove(userID)
		}
	}

	key := strconv.FormatInt(int64(userID), 10) + "@" + table.Version()
	v, err, _ := r.flight.Do(key, func() (any, error) {
		uc, err := r.load(ctx, userID, table)
		if err != nil {
			return nil, err
		}
		// A table swapped in during the load purged the memo; keep it that way.
		if r.memo != nil && r.table.Load() == table {
			r.memo.Add(userID, memoEntry{uc: uc, table: table})
		}
		return uc, nil
	})
	if err != nil {
		return UserContext{}, err
	}
	return v.(UserContext), nil
}

func (r *Resolver) load(ctx context.Context, userID id.UserID, table *MappingTable) (UserContext, error) {
	groups, err := r.groups.GroupsForUser(ctx, userID)
	if err != nil {
		return UserContext{}, fmt.Errorf("load groups for user %s: %w", userID, err)
	}
	level, roles := table.Apply(groups)

	uc := UserContext{
		UserID:         userID,
		Roles:          roles,
		ClearanceLevel: level,
		MappingVersion: table.Version(),
	}
	if r.overrides != nil {
		overrides, err := r.overrides.OverridesForUser(ctx, userID)
		if err != nil {
			return UserContext{}, fmt.Errorf("load clearance overrides for user %s: %w", userID, err)
		}
		uc.Overrides = overrides
	}
	r.logger.DebugContext(ctx, "resolved user clearance",
		"user_id", userID,
		"clearance_level", level.String(),
		"roles", roles,
		"mapping_version", table.Version(),
	)
	return uc, nil
}

// SetMappingTable swaps the mapping table and drops every memoized context.
func (r *Resolver) SetMappingTable(table *MappingTable) {
	if table == nil {
		return
	}
	r.table.Store(table)
	if r.memo != nil {
		r.memo.Purge()
	}
	r.logger.Info("clearance mapping table replaced", "mapping_version", table.Version())
}

// Invalidate drops the memoized context of one user.
func (r *Resolver) Invalidate(userID id.UserID) {
	if r.memo != nil {
		r.memo.Remove(userID)
	}
}
