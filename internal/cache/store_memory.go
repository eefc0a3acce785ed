package cache

import (
	"container/list"
	"hash/fnv"
	"sync"
	"time"
)

// defaultShards spreads keys over independent locks so writes to
// unrelated keys do not block each other.
const defaultShards = 16

type memEntry struct {
	e          Entry
	lastAccess time.Time
}

type memShard struct {
	mu       sync.Mutex
	maxBytes int64
	entries  map[string]*list.Element
	lru      *list.List // front = most recently accessed
	size     int64
}

// MemoryStore is the default in-memory cache backend: sharded maps with
// per-shard LRU lists. The configured budget is split evenly across
// shards, so a hot shard may evict slightly earlier than a single global
// budget would.
type MemoryStore struct {
	shards []*memShard
}

// NewMemoryStore builds a MemoryStore bounded by maxBytes total.
func NewMemoryStore(maxBytes int64) *MemoryStore {
	return newMemoryStore(maxBytes, defaultShards)
}

func newMemoryStore(maxBytes int64, nShards int) *MemoryStore {
	if nShards <= 0 {
		nShards = defaultShards
	}
	perShard := maxBytes / int64(nShards)
	if perShard <= 0 {
		perShard = maxBytes
		nShards = 1
	}
	s := &MemoryStore{shards: make([]*memShard, nShards)}
	for i := range s.shards {
		s.shards[i] = &memShard{
			maxBytes: perShard,
			entries:  make(map[string]*list.Element),
			lru:      list.New(),
		}
	}
	return s
}

func (s *MemoryStore) shardFor(key string) *memShard {
	h := fnv.New32a()
	h.Write([]byte(key))
	return s.shards[h.Sum32()%uint32(len(s.shards))]
}

func (s *MemoryStore) Get(key string, now time.Time) (Entry, bool, error) {
	sh := s.shardFor(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	elem, ok := sh.entries[key]
	if !ok {
		return Entry{}, false, nil
	}
	me := elem.Value.(*memEntry)
	if me.e.expiredAt(now) {
		sh.removeLocked(key, elem)
		return Entry{}, false, nil
	}
	me.lastAccess = now
	sh.lru.MoveToFront(elem)
	return me.e, true, nil
}

func (s *MemoryStore) Put(e Entry, now time.Time) (int, error) {
	sh := s.shardFor(e.Key)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	if old, ok := sh.entries[e.Key]; ok {
		sh.removeLocked(e.Key, old)
	}
	if e.Size > sh.maxBytes {
		// An oversize value can never fit the budget; storing it would
		// blow the invariant, so it is simply not cached.
		return 0, nil
	}
	evicted := 0
	// Expired entries go first, regardless of recency.
	for elem := sh.lru.Back(); elem != nil && sh.size+e.Size > sh.maxBytes; {
		prev := elem.Prev()
		me := elem.Value.(*memEntry)
		if me.e.expiredAt(now) {
			sh.removeLocked(me.e.Key, elem)
			evicted++
		}
		elem = prev
	}
	// Then least-recently-accessed among the rest. The shard lock is held
	// for the whole pass, so nothing evicted here can be re-accessed
	// mid-pass.
	for sh.size+e.Size > sh.maxBytes {
		elem := sh.lru.Back()
		if elem == nil {
			break
		}
		me := elem.Value.(*memEntry)
		sh.removeLocked(me.e.Key, elem)
		evicted++
	}
	elem := sh.lru.PushFront(&memEntry{e: e, lastAccess: now})
	sh.entries[e.Key] = elem
	sh.size += e.Size
	return evicted, nil
}

func (s *MemoryStore) Delete(key string) error {
	sh := s.shardFor(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	if elem, ok := sh.entries[key]; ok {
		sh.removeLocked(key, elem)
	}
	return nil
}

func (s *MemoryStore) DeleteModel(modelID string) (int, error) {
	removed := 0
	for _, sh := range s.shards {
		sh.mu.Lock()
		for key, elem := range sh.entries {
			if elem.Value.(*memEntry).e.ModelID == modelID {
				sh.removeLocked(key, elem)
				removed++
			}
		}
		sh.mu.Unlock()
	}
	return removed, nil
}

func (s *MemoryStore) Clear() error {
	for _, sh := range s.shards {
		sh.mu.Lock()
		sh.entries = make(map[string]*list.Element)
		sh.lru.Init()
		sh.size = 0
		sh.mu.Unlock()
	}
	return nil
}

func (s *MemoryStore) Len() int {
	n := 0
	for _, sh := range s.shards {
		sh.mu.Lock()
		n += len(sh.entries)
		sh.mu.Unlock()
	}
	return n
}

func (s *MemoryStore) SizeBytes() int64 {
	var n int64
	for _, sh := range s.shards {
		sh.mu.Lock()
		n += sh.size
		sh.mu.Unlock()
	}
	return n
}

func (s *MemoryStore) Close() error { return nil }

// removeLocked unlinks one entry; the shard mutex must be held.
func (sh *memShard) removeLocked(key string, elem *list.Element) {
	sh.lru.Remove(elem)
	delete(sh.entries, key)
	sh.size -= elem.Value.(*memEntry).e.Size
	if sh.size < 0 {
		sh.size = 0
	}
}
