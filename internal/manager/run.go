package manager

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"inferd/internal/cache"
	"inferd/pkg/types"
)

// RunOrCached serves one inference call with cached-or-compute
// semantics: consult the cache, and on a miss load the model (taking a
// reference for the duration of the call), invoke its adapter, record
// metrics, and store the result.
func (m *Manager) RunOrCached(ctx context.Context, modelID, input string, params types.InferParams) (types.InferResult, error) {
	key := cache.Key(modelID, input, params)

	if b, ok, err := m.cache.Get(key); err != nil {
		// A broken cache backend degrades to compute; the failure is
		// logged with enough context to chase down.
		m.log.Warn().Str("model", modelID).Err(err).Msg("cache read failed")
	} else if ok {
		var res types.InferResult
		if err := json.Unmarshal(b, &res); err == nil {
			res.Cached = true
			return res, nil
		}
		// Undecodable entry: drop it and recompute.
		_ = m.cache.Invalidate(key)
	}

	h, err := m.Load(ctx, modelID)
	if err != nil {
		return types.InferResult{}, err
	}
	defer func() {
		if err := m.Unload(modelID); err != nil {
			m.log.Warn().Str("model", modelID).Err(err).Msg("unload after inference failed")
		}
	}()

	m.mu.RLock()
	lm := m.loaded[modelID]
	m.mu.RUnlock()
	if lm == nil {
		// The instance vanished between Load and here; treat as a failed
		// load so the caller can retry.
		return types.InferResult{}, ErrLoad(modelID, errors.New("instance released concurrently"))
	}

	tr := m.monitor.Track(modelID)
	defer tr.Done()

	res, err := lm.adapter.Invoke(ctx, h, input, params)
	if err != nil {
		adapterFailuresTotal.Inc()
		return types.InferResult{}, ErrAdapter(modelID, err)
	}
	if res.InputTokens > 0 || res.OutputTokens > 0 {
		tr.SetMetrics(res.InputTokens, res.OutputTokens)
	}

	m.mu.Lock()
	if cur := m.loaded[modelID]; cur != nil {
		cur.lastUsed = time.Now()
	}
	m.mu.Unlock()

	if b, err := json.Marshal(res); err == nil {
		if err := m.cache.Set(key, modelID, b, 0); err != nil {
			m.log.Warn().Str("model", modelID).Err(err).Msg("cache write failed")
		}
	}
	return res, nil
}
