package manager

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Load ensures id is Loaded and takes a reference on it. Concurrent
// calls for the same id collapse into a single adapter invocation; every
// caller gets the shared handle and its own reference. The adapter call
// runs outside the catalog lock. On failure the model remains
// Registered.
func (m *Manager) Load(ctx context.Context, id string) (Handle, error) {
	for {
		m.mu.Lock()
		if _, known := m.catalog[id]; !known {
			m.mu.Unlock()
			return nil, ErrUnknownModel(id)
		}
		if lm, ok := m.loaded[id]; ok {
			lm.refs++
			lm.lastUsed = time.Now()
			h := lm.handle
			m.mu.Unlock()
			return h, nil
		}
		m.mu.Unlock()

		_, err, _ := m.loadGroup.Do(id, func() (any, error) {
			return nil, m.loadOnce(ctx, id)
		})
		if err != nil {
			return nil, err
		}
		// Take our reference on the freshly installed instance. A racing
		// unregister or failed install loops back and re-resolves.
		m.mu.Lock()
		if lm, ok := m.loaded[id]; ok {
			lm.refs++
			lm.lastUsed = time.Now()
			h := lm.handle
			m.mu.Unlock()
			return h, nil
		}
		m.mu.Unlock()
	}
}

// loadOnce performs the single collapsed adapter load for id.
func (m *Manager) loadOnce(ctx context.Context, id string) error {
	m.mu.Lock()
	desc, known := m.catalog[id]
	if !known {
		m.mu.Unlock()
		return ErrUnknownModel(id)
	}
	if _, ok := m.loaded[id]; ok {
		m.mu.Unlock()
		return nil
	}
	adapter, ok := m.adapters.Resolve(desc.Format)
	if !ok {
		m.mu.Unlock()
		return ErrLoad(id, fmt.Errorf("no adapter for format %q", desc.Format))
	}
	m.loading[id] = struct{}{}
	m.mu.Unlock()

	start := time.Now()
	// The adapter call is potentially long-running and must not hold the
	// catalog lock. Cancellation leaves the model Registered.
	h, err := adapter.Load(ctx, desc, m.device)

	m.mu.Lock()
	delete(m.loading, id)
	if err != nil {
		m.mu.Unlock()
		m.log.Warn().Str("model", id).Err(err).Msg("model load failed")
		loadFailuresTotal.Inc()
		return ErrLoad(id, err)
	}
	if _, stillKnown := m.catalog[id]; !stillKnown {
		// Unregistered while loading; don't leak the handle.
		m.mu.Unlock()
		_ = adapter.Release(h)
		return ErrUnknownModel(id)
	}
	m.loaded[id] = &loadedModel{handle: h, adapter: adapter, refs: 0, lastUsed: time.Now()}
	m.mu.Unlock()

	loadsTotal.Inc()
	m.log.Info().Str("model", id).Dur("dur", time.Since(start)).Msg("model loaded")
	return nil
}

// Unload drops one reference on id and releases the underlying handle
// when the count reaches zero. Unloading a model that is not loaded is a
// no-op.
func (m *Manager) Unload(id string) error {
	m.mu.Lock()
	lm, ok := m.loaded[id]
	if !ok {
		m.mu.Unlock()
		return nil
	}
	lm.refs--
	if lm.refs > 0 {
		m.mu.Unlock()
		return nil
	}
	if lm.refs < 0 {
		// A stale count means unbalanced unloads; self-correct rather
		// than panic.
		m.log.Warn().Str("model", id).Int("refs", lm.refs).Msg("negative ref count corrected")
	}
	delete(m.loaded, id)
	m.mu.Unlock()

	if err := lm.adapter.Release(lm.handle); err != nil {
		m.log.Warn().Str("model", id).Err(err).Msg("handle release failed")
	}
	unloadsTotal.Inc()
	m.log.Info().Str("model", id).Msg("model unloaded")
	return nil
}

// LoadAsync kicks off a background warmup load and returns an operation
// id for log correlation. The warmup holds one reference, so the model
// stays resident until an explicit Unload.
func (m *Manager) LoadAsync(id string) (string, error) {
	if _, ok := m.Get(id); !ok {
		return "", ErrUnknownModel(id)
	}
	op := uuid.NewString()
	go func() {
		// Detached from the initiating request so warmup survives it.
		if _, err := m.Load(context.Background(), id); err != nil {
			m.log.Warn().Str("model", id).Str("op", op).Err(err).Msg("async load failed")
			return
		}
		m.log.Info().Str("model", id).Str("op", op).Msg("async load done")
	}()
	return op, nil
}

// RefCount reports the current reference count for id (0 when not loaded).
func (m *Manager) RefCount(id string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if lm, ok := m.loaded[id]; ok {
		return lm.refs
	}
	return 0
}
