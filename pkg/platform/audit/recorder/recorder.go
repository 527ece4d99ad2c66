// Package recorder routes access audit entries to a durable store.
//
// Interactive actions (view, download) are written synchronously: Record does
// not return until the store has acknowledged the entry. Non-interactive actions
// (badges, bulk scans) are queued onto per-object shards and written by
// background workers, so entries for one object keep their append order.
//
// A failed write never changes the access decision that triggered it. It is
// escalated instead: logged at CRITICAL, counted, handed to the optional
// Escalator hook and parked in a bounded retry buffer drained by Run.
package recorder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	audit "archgate/pkg/platform/audit"
	"archgate/pkg/requestcontext"
)

const (
	modeSync  = "sync"
	modeAsync = "async"
	modeRetry = "retry"

	defaultShardBuffer   = 256
	defaultMaxBatch      = 64
	defaultWriteTimeout  = 5 * time.Second
	defaultRetryCapacity = 10000
)

// ErrClosed is returned when recording after Close for queued actions that
// could not be written synchronously.
var ErrClosed = errors.New("audit recorder closed")

// Escalator is notified of every audit write that failed.
type Escalator interface {
	Escalate(ctx context.Context, entry audit.Entry, err error)
}

// EscalatorFunc adapts a function to Escalator.
type EscalatorFunc func(ctx context.Context, entry audit.Entry, err error)

// Escalate calls f.
func (f EscalatorFunc) Escalate(ctx context.Context, entry audit.Entry, err error) {
	f(ctx, entry, err)
}

// Recorder persists audit entries. Safe for concurrent use.
type Recorder struct {
	store     audit.Store
	logger    *slog.Logger
	metrics   *Metrics
	escalator Escalator
	retry     *RingBuffer
	now       func() time.Time

	shardCount   int
	shardBuffer  int
	maxBatch     int
	writeTimeout time.Duration

	mu     sync.RWMutex
	closed bool
	shards []chan audit.Entry
	wg     sync.WaitGroup
}

// Option configures the Recorder.
type Option func(*Recorder)

// WithLogger sets the logger used for escalations.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Recorder) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithMetrics sets the metrics collector.
func WithMetrics(m *Metrics) Option {
	return func(r *Recorder) {
		r.metrics = m
	}
}

// WithEscalator adds a monitoring hook called on every failed write.
func WithEscalator(e Escalator) Option {
	return func(r *Recorder) {
		r.escalator = e
	}
}

// WithAsyncShards enables background writes for non-interactive actions.
// Entries are routed to shard objectID mod n; each shard has its own worker.
func WithAsyncShards(n, buffer int) Option {
	return func(r *Recorder) {
		if n > 0 {
			r.shardCount = n
		}
		if buffer > 0 {
			r.shardBuffer = buffer
		}
	}
}

// WithRetryCapacity bounds the retry buffer.
func WithRetryCapacity(n int) Option {
	return func(r *Recorder) {
		r.retry = NewRingBuffer(n)
	}
}

// WithWriteTimeout bounds each background store write.
func WithWriteTimeout(d time.Duration) Option {
	return func(r *Recorder) {
		if d > 0 {
			r.writeTimeout = d
		}
	}
}

// WithClock overrides time.Now for entry timestamps.
func WithClock(now func() time.Time) Option {
	return func(r *Recorder) {
		if now != nil {
			r.now = now
		}
	}
}

// New creates a recorder and starts its shard workers.
func New(store audit.Store, opts ...Option) (*Recorder, error) {
	if store == nil {
		return nil, fmt.Errorf("audit store is required")
	}
	r := &Recorder{
		store:        store,
		logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:          time.Now,
		shardBuffer:  defaultShardBuffer,
		maxBatch:     defaultMaxBatch,
		writeTimeout: defaultWriteTimeout,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.retry == nil {
		r.retry = NewRingBuffer(defaultRetryCapacity)
	}
	for i := 0; i < r.shardCount; i++ {
		ch := make(chan audit.Entry, r.shardBuffer)
		r.shards = append(r.shards, ch)
		r.wg.Add(1)
		go r.runShard(ch)
	}
	return r, nil
}

// Record persists entry. Interactive actions are written before Record returns;
// others are queued when async shards are configured. The returned error is for
// reporting only: the entry has already been escalated and parked for retry.
func (r *Recorder) Record(ctx context.Context, entry audit.Entry) error {
	entry = r.prepare(ctx, entry)
	if entry.Action.Interactive() || r.shardCount == 0 {
		return r.writeSync(ctx, entry)
	}
	return r.enqueue(ctx, entry)
}

func (r *Recorder) prepare(ctx context.Context, entry audit.Entry) audit.Entry {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = r.now()
	}
	if entry.RequestID == "" {
		entry.RequestID = requestcontext.RequestID(ctx)
	}
	return entry
}

func (r *Recorder) writeSync(ctx context.Context, entry audit.Entry) error {
	start := time.Now()
	if err := r.store.Append(ctx, entry); err != nil {
		r.fail(ctx, []audit.Entry{entry}, err, modeSync)
		return fmt.Errorf("audit write failed: %w", err)
	}
	r.metrics.observePersist(time.Since(start).Seconds())
	r.metrics.incWritten(modeSync)
	return nil
}

func (r *Recorder) enqueue(ctx context.Context, entry audit.Entry) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		// Shards are gone; fall back to a direct write rather than losing the entry.
		return r.writeSync(ctx, entry)
	}
	shard := r.shards[shardFor(entry, len(r.shards))]
	select {
	case shard <- entry:
		return nil
	case <-ctx.Done():
		r.fail(ctx, []audit.Entry{entry}, ctx.Err(), modeAsync)
		return fmt.Errorf("enqueue audit entry: %w", ctx.Err())
	}
}

func shardFor(entry audit.Entry, n int) int {
	return int(uint64(entry.ObjectID) % uint64(n))
}

func (r *Recorder) runShard(ch <-chan audit.Entry) {
	defer r.wg.Done()
	for first := range ch {
		batch := []audit.Entry{first}
	drain:
		for len(batch) < r.maxBatch {
			select {
			case next, ok := <-ch:
				if !ok {
					break drain
				}
				batch = append(batch, next)
			default:
				break drain
			}
		}
		r.writeBatch(batch, modeAsync)
	}
}

func (r *Recorder) writeBatch(batch []audit.Entry, mode string) error {
	ctx, cancel := context.WithTimeout(context.Background(), r.writeTimeout)
	defer cancel()

	batch = r.deferHeld(ctx, batch)
	if len(batch) == 0 {
		return nil
	}

	start := time.Now()
	var err error
	if bs, ok := r.store.(audit.BatchStore); ok && len(batch) > 1 {
		err = bs.AppendBatch(ctx, batch)
	} else {
		for i, e := range batch {
			if err = r.store.Append(ctx, e); err != nil {
				batch = batch[i:]
				break
			}
		}
	}
	if err != nil {
		r.fail(ctx, batch, err, mode)
		return err
	}
	r.metrics.observePersist(time.Since(start).Seconds())
	for range batch {
		r.metrics.incWritten(mode)
	}
	return nil
}

// deferHeld parks entries whose object already has entries waiting for retry,
// so they are written after them. It returns the entries that may be written now.
func (r *Recorder) deferHeld(ctx context.Context, batch []audit.Entry) []audit.Entry {
	ready := batch[:0:0]
	for _, e := range batch {
		if !r.retry.Holds(e.ObjectID) {
			ready = append(ready, e)
			continue
		}
		r.logger.DebugContext(ctx, "audit entry queued behind pending retries",
			"audit_id", e.ID,
			"object_id", e.ObjectID,
		)
		r.park(ctx, e)
	}
	return ready
}

// fail escalates entries that could not be written and parks them for retry.
func (r *Recorder) fail(ctx context.Context, entries []audit.Entry, err error, mode string) {
	for _, e := range entries {
		r.metrics.incFailure(mode)
		r.logger.ErrorContext(ctx, "CRITICAL: access audit write failed",
			"audit_id", e.ID,
			"object_id", e.ObjectID,
			"user_id", e.UserID,
			"action", e.Action,
			"granted", e.Decision.Granted,
			"reason", e.Decision.Reason,
			"mode", mode,
			"error", err,
		)
		if r.escalator != nil {
			r.escalator.Escalate(ctx, e, err)
		}
		r.park(ctx, e)
	}
}

func (r *Recorder) park(ctx context.Context, e audit.Entry) {
	if evicted, dropped := r.retry.Enqueue(e); dropped {
		r.metrics.incLost()
		r.logger.ErrorContext(ctx, "CRITICAL: audit retry buffer full, entry lost",
			"audit_id", evicted.ID,
			"object_id", evicted.ObjectID,
		)
	}
	r.metrics.setPending(r.retry.Len())
}

// RetryPending writes up to max parked entries, oldest first. It stops at the
// first entry that fails again; that entry stays at the front of the buffer
// without a second escalation, so per-object order is kept.
func (r *Recorder) RetryPending(ctx context.Context, max int) (int, error) {
	defer func() { r.metrics.setPending(r.retry.Len()) }()
	written := 0
	for written < max {
		e, ok := r.retry.Peek()
		if !ok {
			break
		}
		if err := r.store.Append(ctx, e); err != nil {
			return written, err
		}
		// An entry evicted while it was being written has already been counted lost.
		r.retry.PopIf(e.ID)
		r.metrics.incWritten(modeRetry)
		written++
	}
	return written, nil
}

// Pending returns the number of parked entries.
func (r *Recorder) Pending() int {
	return r.retry.Len()
}

// Run drains the retry buffer every interval until ctx is done.
func (r *Recorder) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if r.retry.Len() == 0 {
				continue
			}
			n, err := r.RetryPending(ctx, r.maxBatch)
			if err != nil {
				r.logger.WarnContext(ctx, "audit retry attempt failed",
					"written", n,
					"pending", r.retry.Len(),
					"error", err,
				)
			}
		}
	}
}

// Close stops the shard workers after they drain their queues, then makes a
// final attempt to flush parked entries. Entries still parked afterwards are
// reported as lost.
func (r *Recorder) Close(ctx context.Context) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	for _, ch := range r.shards {
		close(ch)
	}
	r.mu.Unlock()
	r.wg.Wait()

	if r.retry.Len() == 0 {
		return nil
	}
	if _, err := r.RetryPending(ctx, r.retry.Len()); err != nil {
		lost := r.retry.Len()
		for range lost {
			r.metrics.incLost()
		}
		r.logger.ErrorContext(ctx, "CRITICAL: audit entries lost on shutdown",
			"count", lost,
			"error", err,
		)
		return fmt.Errorf("flush audit retry buffer: %w", err)
	}
	return nil
}
