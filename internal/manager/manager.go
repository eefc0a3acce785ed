package manager

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"inferd/internal/cache"
	"inferd/internal/metrics"
	"inferd/internal/registry"
	"inferd/pkg/types"
)

// Manager owns the catalog of known models and their load state. It is a
// shared service: all methods are safe for concurrent use.
type Manager struct {
	mu      sync.RWMutex
	catalog map[string]types.ModelDescriptor
	// order preserves registration order for deterministic selection ties.
	order   []string
	loaded  map[string]*loadedModel
	loading map[string]struct{}

	adapters  *AdapterTable
	cache     *cache.Cache
	monitor   *metrics.Monitor
	discovery *registry.Discovery
	device    string

	// loadGroup collapses concurrent loads of one id into a single
	// adapter invocation.
	loadGroup singleflight.Group

	log zerolog.Logger
}

// loadedModel is the live state for one Loaded model id. At most one
// exists per id.
type loadedModel struct {
	handle   Handle
	adapter  Adapter
	refs     int
	lastUsed time.Time
}

// Config carries Manager construction parameters.
type Config struct {
	Adapters  *AdapterTable
	Cache     *cache.Cache
	Monitor   *metrics.Monitor
	Discovery *registry.Discovery
	// DefaultDevice is passed to adapters on load (e.g., cpu, cuda:0).
	DefaultDevice string
	Logger        zerolog.Logger
}

// New constructs a Manager. Nil collaborators get inert defaults so
// tests can build a Manager from just an adapter table.
func New(cfg Config) *Manager {
	m := &Manager{
		catalog:   make(map[string]types.ModelDescriptor),
		loaded:    make(map[string]*loadedModel),
		loading:   make(map[string]struct{}),
		adapters:  cfg.Adapters,
		cache:     cfg.Cache,
		monitor:   cfg.Monitor,
		discovery: cfg.Discovery,
		device:    cfg.DefaultDevice,
		log:       cfg.Logger,
	}
	if m.adapters == nil {
		m.adapters = NewAdapterTable()
	}
	if m.cache == nil {
		m.cache = cache.New(cache.NewMemoryStore(64<<20), 0, cfg.Logger)
	}
	if m.monitor == nil {
		m.monitor = metrics.NewMonitor(0, cfg.Logger)
	}
	return m
}

// Monitor exposes the performance monitor for report queries.
func (m *Manager) Monitor() *metrics.Monitor { return m.monitor }

// Cache exposes the result cache for explicit invalidation.
func (m *Manager) Cache() *cache.Cache { return m.cache }

// Discover queries the configured sources and returns candidates for
// explicit registration. It never mutates the catalog. A failing source
// contributes zero descriptors (logged inside Discovery).
func (m *Manager) Discover(ctx context.Context) []types.ModelDescriptor {
	if m.discovery == nil {
		return nil
	}
	return m.discovery.Discover(ctx)
}

// Register adds a descriptor to the catalog. Re-registering an identical
// descriptor is a no-op; a conflicting descriptor under an existing id
// fails with a duplicate-model error.
func (m *Manager) Register(desc types.ModelDescriptor) error {
	if desc.ID == "" {
		return ErrUnknownModel("(empty id)")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.catalog[desc.ID]; ok {
		if existing.Equal(desc) {
			return nil
		}
		return ErrDuplicateModel(desc.ID)
	}
	m.catalog[desc.ID] = desc
	m.order = append(m.order, desc.ID)
	m.log.Info().Str("model", desc.ID).Str("kind", string(desc.Kind)).Str("format", desc.Format).Msg("model registered")
	return nil
}

// Replace installs a new descriptor under an existing id. This is the
// explicit, logged path for changing a model; the model's cache entries
// become stale and are dropped. Fails while the model is loaded.
func (m *Manager) Replace(desc types.ModelDescriptor) error {
	if desc.ID == "" {
		return ErrUnknownModel("(empty id)")
	}
	m.mu.Lock()
	if _, ok := m.loaded[desc.ID]; ok {
		m.mu.Unlock()
		return ErrModelInUse(desc.ID)
	}
	_, existed := m.catalog[desc.ID]
	m.catalog[desc.ID] = desc
	if !existed {
		m.order = append(m.order, desc.ID)
	}
	m.mu.Unlock()

	m.log.Info().Str("model", desc.ID).Bool("existed", existed).Msg("model replaced")
	if err := m.cache.InvalidateModel(desc.ID); err != nil {
		// Stale entries will still age out via TTL; record and continue.
		m.log.Warn().Str("model", desc.ID).Err(err).Msg("cache invalidation failed")
	}
	return nil
}

// Unregister removes a model from the catalog. Absent ids are a no-op;
// loaded models must be unloaded first.
func (m *Manager) Unregister(id string) error {
	m.mu.Lock()
	if _, ok := m.catalog[id]; !ok {
		m.mu.Unlock()
		return nil
	}
	if _, ok := m.loaded[id]; ok {
		m.mu.Unlock()
		return ErrModelInUse(id)
	}
	delete(m.catalog, id)
	for i, oid := range m.order {
		if oid == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	m.mu.Unlock()
	m.log.Info().Str("model", id).Msg("model unregistered")
	if err := m.cache.InvalidateModel(id); err != nil {
		m.log.Warn().Str("model", id).Err(err).Msg("cache invalidation failed")
	}
	return nil
}

// Get returns the descriptor for id.
func (m *Manager) Get(id string) (types.ModelDescriptor, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, ok := m.catalog[id]
	return d, ok
}

// List returns the catalog in registration order.
func (m *Manager) List() []types.ModelDescriptor {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]types.ModelDescriptor, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.catalog[id])
	}
	return out
}

// ListByKind returns catalog entries of one kind, in registration order.
func (m *Manager) ListByKind(kind types.ModelKind) []types.ModelDescriptor {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []types.ModelDescriptor
	for _, id := range m.order {
		if d := m.catalog[id]; d.Kind == kind {
			out = append(out, d)
		}
	}
	return out
}

// State reports the lifecycle state for id.
func (m *Manager) State(id string) types.ModelState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if _, ok := m.loaded[id]; ok {
		return types.StateLoaded
	}
	if _, ok := m.loading[id]; ok {
		return types.StateLoading
	}
	return types.StateRegistered
}

// Loadable reports whether id could serve requests: either already
// loaded or registered with an adapter available for its format.
func (m *Manager) Loadable(id string) bool {
	m.mu.RLock()
	desc, ok := m.catalog[id]
	_, isLoaded := m.loaded[id]
	m.mu.RUnlock()
	if !ok {
		return false
	}
	if isLoaded {
		return true
	}
	_, hasAdapter := m.adapters.Resolve(desc.Format)
	return hasAdapter
}

// Status returns a read-only projection of the whole catalog.
func (m *Manager) Status() []types.ModelStatus {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]types.ModelStatus, 0, len(m.order))
	for _, id := range m.order {
		st := types.ModelStatus{Descriptor: m.catalog[id], State: types.StateRegistered}
		if _, ok := m.loading[id]; ok {
			st.State = types.StateLoading
		}
		if lm, ok := m.loaded[id]; ok {
			st.State = types.StateLoaded
			st.RefCount = lm.refs
			st.LastUsed = lm.lastUsed.Unix()
		}
		out = append(out, st)
	}
	return out
}
