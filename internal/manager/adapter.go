package manager

import (
	"context"
	"sort"
	"sync"

	"inferd/pkg/types"
)

// Handle is an opaque live-model reference owned by an Adapter. The
// manager never inspects it.
type Handle any

// Adapter performs backend-specific model work. One adapter is
// registered per backend-format tag; the manager knows nothing about the
// wire protocol behind it. Implementations must honor context
// cancellation on Load and Invoke.
type Adapter interface {
	// Load initializes a live handle for the descriptor.
	Load(ctx context.Context, desc types.ModelDescriptor, device string) (Handle, error)
	// Invoke runs one inference call against a loaded handle.
	Invoke(ctx context.Context, h Handle, input string, params types.InferParams) (types.InferResult, error)
	// Release frees the resources behind a handle.
	Release(h Handle) error
}

// AdapterTable resolves adapters by backend-format tag. Populated once
// at startup; resolution afterwards is lock-free reads.
type AdapterTable struct {
	mu       sync.RWMutex
	adapters map[string]Adapter
}

// NewAdapterTable builds an empty table.
func NewAdapterTable() *AdapterTable {
	return &AdapterTable{adapters: make(map[string]Adapter)}
}

// Register binds an adapter to a format tag. Later registrations for the
// same tag win, which lets tests swap in fakes.
func (t *AdapterTable) Register(format string, a Adapter) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.adapters[format] = a
}

// Resolve returns the adapter bound to format.
func (t *AdapterTable) Resolve(format string) (Adapter, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	a, ok := t.adapters[format]
	return a, ok
}

// Formats lists registered tags in sorted order.
func (t *AdapterTable) Formats() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]string, 0, len(t.adapters))
	for f := range t.adapters {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}
