package recorder

import (
	"sync"

	"github.com/google/uuid"

	id "archgate/pkg/domain"
	audit "archgate/pkg/platform/audit"
)

// RingBuffer is a bounded, thread-safe FIFO of entries awaiting a retry.
// When full, the oldest entry is dropped to make room and counted as lost.
// It tracks how many entries each object has parked so writers can keep
// later entries for that object behind them.
type RingBuffer struct {
	mu       sync.Mutex
	entries  []audit.Entry
	head     int // next write position
	tail     int // next read position
	count    int
	capacity int
	byObject map[id.ObjectID]int

	dropped int64
}

// NewRingBuffer creates a ring buffer with the given capacity.
func NewRingBuffer(capacity int) *RingBuffer {
	if capacity <= 0 {
		capacity = 10000
	}
	return &RingBuffer{
		entries:  make([]audit.Entry, capacity),
		capacity: capacity,
		byObject: make(map[id.ObjectID]int),
	}
}

// Enqueue adds an entry, dropping the oldest if necessary.
// Returns the dropped entry and true when one was evicted.
func (b *RingBuffer) Enqueue(entry audit.Entry) (audit.Entry, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	var (
		evicted audit.Entry
		dropped bool
	)
	if b.count >= b.capacity {
		evicted = b.popLocked()
		dropped = true
		b.dropped++
	}

	b.entries[b.head] = entry
	b.head = (b.head + 1) % b.capacity
	b.count++
	b.byObject[entry.ObjectID]++
	return evicted, dropped
}

// Peek returns the oldest entry without removing it.
func (b *RingBuffer) Peek() (audit.Entry, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.count == 0 {
		return audit.Entry{}, false
	}
	return b.entries[b.tail], true
}

// PopIf removes the oldest entry when its ID is entryID. It reports false when
// the entry was evicted in the meantime.
func (b *RingBuffer) PopIf(entryID uuid.UUID) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.count == 0 || b.entries[b.tail].ID != entryID {
		return false
	}
	b.popLocked()
	return true
}

func (b *RingBuffer) popLocked() audit.Entry {
	e := b.entries[b.tail]
	b.entries[b.tail] = audit.Entry{}
	b.tail = (b.tail + 1) % b.capacity
	b.count--
	if n := b.byObject[e.ObjectID]; n <= 1 {
		delete(b.byObject, e.ObjectID)
	} else {
		b.byObject[e.ObjectID] = n - 1
	}
	return e
}

// Holds reports whether any entry for objectID is waiting.
func (b *RingBuffer) Holds(objectID id.ObjectID) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.byObject[objectID] > 0
}

// Len returns the current number of entries in the buffer.
func (b *RingBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.count
}

// Dropped returns the total number of evicted entries.
func (b *RingBuffer) Dropped() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dropped
}
