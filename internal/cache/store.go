package cache

import "time"

// entryOverhead is the fixed per-entry bookkeeping cost added to the
// value length when estimating size. Applied uniformly to all value
// types; heterogeneous values pay for their encoded length only.
const entryOverhead = 64

// Entry is one cached inference result.
type Entry struct {
	Key       string
	ModelID   string
	Value     []byte
	CreatedAt time.Time
	TTL       time.Duration
	Size      int64
}

// expiredAt reports whether the entry is logically absent at t. The
// expiry instant itself counts as expired.
func (e Entry) expiredAt(t time.Time) bool {
	return !t.Before(e.CreatedAt.Add(e.TTL))
}

// estimateSize is the documented size-estimation function: value length
// plus a fixed per-entry overhead.
func estimateSize(value []byte) int64 {
	return int64(len(value)) + entryOverhead
}

// Store persists cache entries under a size budget. Implementations
// enforce TTL (expired entries read as absent) and evict expired entries
// first, then least-recently-accessed entries, on insert pressure.
type Store interface {
	// Get returns the entry and touches its last-access time. An expired
	// entry reads as absent.
	Get(key string, now time.Time) (Entry, bool, error)
	// Put inserts the entry, evicting as needed. Returns how many entries
	// were evicted to make room.
	Put(e Entry, now time.Time) (evicted int, err error)
	// Delete removes one entry. Deleting an absent key is a no-op.
	Delete(key string) error
	// DeleteModel removes every entry owned by modelID and returns the count.
	DeleteModel(modelID string) (int, error)
	// Clear removes everything.
	Clear() error
	// Len is the number of stored entries, expired ones included until purged.
	Len() int
	// SizeBytes is the sum of stored entry size estimates.
	SizeBytes() int64
	// Close releases backend resources.
	Close() error
}
