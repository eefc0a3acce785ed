// Package cache maps (model, input, params) to previously computed
// inference output. Keys are a pure function of their arguments; entries
// carry a TTL and an explicit size estimate, and the total estimate is
// bounded by eviction.
package cache

import (
	"time"

	"github.com/rs/zerolog"
)

const defaultTTL = 15 * time.Minute

// Cache wraps a Store with keying, TTL defaults, and instrumentation.
type Cache struct {
	store      Store
	defaultTTL time.Duration
	log        zerolog.Logger
	now        func() time.Time
}

// New builds a Cache over store. ttl, when zero, falls back to the
// package default.
func New(store Store, ttl time.Duration, log zerolog.Logger) *Cache {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &Cache{store: store, defaultTTL: ttl, log: log, now: time.Now}
}

// DefaultTTL is the TTL applied when Set receives ttl <= 0.
func (c *Cache) DefaultTTL() time.Duration { return c.defaultTTL }

// Get returns the cached value for key. found is false when the key is
// absent or TTL-expired.
func (c *Cache) Get(key string) (value []byte, found bool, err error) {
	e, ok, err := c.store.Get(key, c.now())
	if err != nil {
		return nil, false, err
	}
	if !ok {
		missesTotal.Inc()
		return nil, false, nil
	}
	hitsTotal.Inc()
	return e.Value, true, nil
}

// Set stores value under key for the model that produced it. ttl <= 0
// uses the configured default.
func (c *Cache) Set(key, modelID string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}
	e := Entry{
		Key:       key,
		ModelID:   modelID,
		Value:     value,
		CreatedAt: c.now(),
		TTL:       ttl,
		Size:      estimateSize(value),
	}
	evicted, err := c.store.Put(e, e.CreatedAt)
	if err != nil {
		return err
	}
	if evicted > 0 {
		evictionsTotal.Add(float64(evicted))
		c.log.Debug().Int("evicted", evicted).Str("model", modelID).Msg("cache eviction")
	}
	sizeBytes.Set(float64(c.store.SizeBytes()))
	return nil
}

// Invalidate removes one entry.
func (c *Cache) Invalidate(key string) error {
	return c.store.Delete(key)
}

// InvalidateModel drops every entry produced by modelID. Called when a
// model is replaced, since its cached outputs become stale.
func (c *Cache) InvalidateModel(modelID string) error {
	n, err := c.store.DeleteModel(modelID)
	if err != nil {
		return err
	}
	if n > 0 {
		c.log.Info().Str("model", modelID).Int("entries", n).Msg("cache invalidated for model")
	}
	sizeBytes.Set(float64(c.store.SizeBytes()))
	return nil
}

// Clear removes everything.
func (c *Cache) Clear() error {
	if err := c.store.Clear(); err != nil {
		return err
	}
	sizeBytes.Set(0)
	return nil
}

// Len is the number of stored entries.
func (c *Cache) Len() int { return c.store.Len() }

// SizeBytes is the current size-estimate total.
func (c *Cache) SizeBytes() int64 { return c.store.SizeBytes() }

// Close releases the backing store.
func (c *Cache) Close() error { return c.store.Close() }
