package manager

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"inferd/pkg/types"
)

// fakeAdapter counts calls and can be made to fail or block.
type fakeAdapter struct {
	mu       sync.Mutex
	loads    int
	invokes  int
	releases int

	failLoad   error
	failInvoke error
	blockLoad  chan struct{} // when set, Load waits for close or ctx
	output     string
}

type fakeHandle struct{ id string }

func (a *fakeAdapter) Load(ctx context.Context, desc types.ModelDescriptor, device string) (Handle, error) {
	a.mu.Lock()
	a.loads++
	block := a.blockLoad
	fail := a.failLoad
	a.mu.Unlock()
	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if fail != nil {
		return nil, fail
	}
	return &fakeHandle{id: desc.ID}, nil
}

func (a *fakeAdapter) Invoke(ctx context.Context, h Handle, input string, params types.InferParams) (types.InferResult, error) {
	a.mu.Lock()
	a.invokes++
	fail := a.failInvoke
	out := a.output
	a.mu.Unlock()
	if fail != nil {
		return types.InferResult{}, fail
	}
	if out == "" {
		out = "out:" + input
	}
	return types.InferResult{Output: out, InputTokens: 2, OutputTokens: 3}, nil
}

func (a *fakeAdapter) Release(h Handle) error {
	a.mu.Lock()
	a.releases++
	a.mu.Unlock()
	return nil
}

func (a *fakeAdapter) counts() (loads, invokes, releases int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.loads, a.invokes, a.releases
}

func newTestManager(t *testing.T, a Adapter) *Manager {
	t.Helper()
	table := NewAdapterTable()
	table.Register("gguf", a)
	return New(Config{Adapters: table, Logger: zerolog.Nop()})
}

func desc(id string) types.ModelDescriptor {
	return types.ModelDescriptor{ID: id, Name: id, Kind: types.KindTextGeneration, Format: "gguf", Source: "registry://" + id}
}

func TestRegisterIdempotentAndDuplicate(t *testing.T) {
	m := newTestManager(t, &fakeAdapter{})
	d := desc("m1")
	if err := m.Register(d); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := m.Register(d); err != nil {
		t.Fatalf("identical re-register must be a no-op, got %v", err)
	}
	d2 := d
	d2.Source = "registry://elsewhere"
	err := m.Register(d2)
	if err == nil || !IsDuplicateModel(err) {
		t.Fatalf("expected duplicate model error, got %v", err)
	}
	if got, _ := m.Get("m1"); got.Source != d.Source {
		t.Fatalf("conflicting register must not mutate the catalog")
	}
}

func TestLoadUnknownModel(t *testing.T) {
	m := newTestManager(t, &fakeAdapter{})
	_, err := m.Load(context.Background(), "missing")
	if err == nil || !IsUnknownModel(err) {
		t.Fatalf("expected unknown model error, got %v", err)
	}
}

func TestLoadIdempotentConcurrent(t *testing.T) {
	a := &fakeAdapter{}
	m := newTestManager(t, a)
	if err := m.Register(desc("m1")); err != nil {
		t.Fatalf("register: %v", err)
	}

	const n = 20
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = m.Load(context.Background(), "m1")
		}(i)
	}
	wg.Wait()
	for i, err := range errs {
		if err != nil {
			t.Fatalf("load %d: %v", i, err)
		}
	}
	if loads, _, _ := a.counts(); loads != 1 {
		t.Fatalf("expected exactly one adapter load, got %d", loads)
	}
	if got := m.RefCount("m1"); got != n {
		t.Fatalf("expected ref count %d, got %d", n, got)
	}
	if st := m.State("m1"); st != types.StateLoaded {
		t.Fatalf("expected loaded, got %s", st)
	}

	for i := 0; i < n; i++ {
		if err := m.Unload("m1"); err != nil {
			t.Fatalf("unload %d: %v", i, err)
		}
	}
	if st := m.State("m1"); st != types.StateRegistered {
		t.Fatalf("expected registered after final unload, got %s", st)
	}
	if _, _, releases := a.counts(); releases != 1 {
		t.Fatalf("expected single release, got %d", releases)
	}
}

func TestLoadFailureLeavesRegistered(t *testing.T) {
	a := &fakeAdapter{failLoad: errors.New("backend down")}
	m := newTestManager(t, a)
	if err := m.Register(desc("m1")); err != nil {
		t.Fatalf("register: %v", err)
	}
	_, err := m.Load(context.Background(), "m1")
	if err == nil || !IsLoadError(err) {
		t.Fatalf("expected load error, got %v", err)
	}
	if st := m.State("m1"); st != types.StateRegistered {
		t.Fatalf("failed load must leave model registered, got %s", st)
	}
	// Retryable: fix the backend and load again.
	a.mu.Lock()
	a.failLoad = nil
	a.mu.Unlock()
	if _, err := m.Load(context.Background(), "m1"); err != nil {
		t.Fatalf("retry after failure: %v", err)
	}
}

func TestLoadNoAdapterForFormat(t *testing.T) {
	m := New(Config{Adapters: NewAdapterTable(), Logger: zerolog.Nop()})
	if err := m.Register(desc("m1")); err != nil {
		t.Fatalf("register: %v", err)
	}
	_, err := m.Load(context.Background(), "m1")
	if err == nil || !IsLoadError(err) {
		t.Fatalf("expected load error for missing adapter, got %v", err)
	}
}

func TestLoadCancelledLeavesRegistered(t *testing.T) {
	a := &fakeAdapter{blockLoad: make(chan struct{})}
	m := newTestManager(t, a)
	if err := m.Register(desc("m1")); err != nil {
		t.Fatalf("register: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := m.Load(ctx, "m1")
		done <- err
	}()
	// Let the load reach the adapter, then abandon it.
	time.Sleep(20 * time.Millisecond)
	cancel()
	err := <-done
	if err == nil {
		t.Fatalf("expected cancelled load to fail")
	}
	if st := m.State("m1"); st != types.StateRegistered {
		t.Fatalf("cancelled load must leave model registered, got %s", st)
	}
	if got := m.RefCount("m1"); got != 0 {
		t.Fatalf("expected zero refs after cancelled load, got %d", got)
	}
}

func TestUnloadNotLoadedNoop(t *testing.T) {
	m := newTestManager(t, &fakeAdapter{})
	if err := m.Register(desc("m1")); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := m.Unload("m1"); err != nil {
		t.Fatalf("unload of unloaded model must be a no-op, got %v", err)
	}
	if err := m.Unload("missing"); err != nil {
		t.Fatalf("unload of unknown model must be a no-op, got %v", err)
	}
}

func TestListByKindAndOrder(t *testing.T) {
	m := newTestManager(t, &fakeAdapter{})
	d1 := desc("m1")
	d2 := desc("m2")
	d2.Kind = types.KindEmbedding
	d3 := desc("m3")
	for _, d := range []types.ModelDescriptor{d1, d2, d3} {
		if err := m.Register(d); err != nil {
			t.Fatalf("register %s: %v", d.ID, err)
		}
	}
	gen := m.ListByKind(types.KindTextGeneration)
	if len(gen) != 2 || gen[0].ID != "m1" || gen[1].ID != "m3" {
		t.Fatalf("unexpected kind listing: %+v", gen)
	}
	all := m.List()
	if len(all) != 3 || all[0].ID != "m1" || all[2].ID != "m3" {
		t.Fatalf("expected registration order, got %+v", all)
	}
}

func TestRunOrCachedHitMiss(t *testing.T) {
	a := &fakeAdapter{}
	m := newTestManager(t, a)
	if err := m.Register(desc("m1")); err != nil {
		t.Fatalf("register: %v", err)
	}
	params := types.InferParams{"temp": 0.7}

	res, err := m.RunOrCached(context.Background(), "m1", "hello", params)
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	if res.Cached {
		t.Fatalf("first call must not be cached")
	}
	if _, invokes, _ := a.counts(); invokes != 1 {
		t.Fatalf("expected one invoke, got %d", invokes)
	}

	res2, err := m.RunOrCached(context.Background(), "m1", "hello", params)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if !res2.Cached {
		t.Fatalf("identical second call must be served from cache")
	}
	if res2.Output != res.Output {
		t.Fatalf("cached output differs: %q vs %q", res2.Output, res.Output)
	}
	if _, invokes, _ := a.counts(); invokes != 1 {
		t.Fatalf("cached call must not invoke the adapter, got %d invokes", invokes)
	}

	// Different params miss.
	if _, err := m.RunOrCached(context.Background(), "m1", "hello", types.InferParams{"temp": 0.9}); err != nil {
		t.Fatalf("third run: %v", err)
	}
	if _, invokes, _ := a.counts(); invokes != 2 {
		t.Fatalf("expected second invoke for different params, got %d", invokes)
	}
}

func TestRunOrCachedReleasesReference(t *testing.T) {
	a := &fakeAdapter{}
	m := newTestManager(t, a)
	if err := m.Register(desc("m1")); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := m.RunOrCached(context.Background(), "m1", "hi", nil); err != nil {
		t.Fatalf("run: %v", err)
	}
	if got := m.RefCount("m1"); got != 0 {
		t.Fatalf("expected refs released after run, got %d", got)
	}
}

func TestRunOrCachedAdapterError(t *testing.T) {
	a := &fakeAdapter{failInvoke: errors.New("timeout")}
	m := newTestManager(t, a)
	if err := m.Register(desc("m1")); err != nil {
		t.Fatalf("register: %v", err)
	}
	_, err := m.RunOrCached(context.Background(), "m1", "hi", nil)
	if err == nil || !IsAdapterError(err) {
		t.Fatalf("expected adapter error, got %v", err)
	}
	// The failure is recorded as a latency sample.
	if rep := m.Monitor().Report("m1"); rep.Samples != 1 {
		t.Fatalf("expected one sample on error path, got %d", rep.Samples)
	}
	// Failed results are not cached.
	a.mu.Lock()
	a.failInvoke = nil
	a.mu.Unlock()
	res, err := m.RunOrCached(context.Background(), "m1", "hi", nil)
	if err != nil {
		t.Fatalf("retry: %v", err)
	}
	if res.Cached {
		t.Fatalf("failure must not have populated the cache")
	}
}

func TestReplaceDropsCacheEntries(t *testing.T) {
	a := &fakeAdapter{}
	m := newTestManager(t, a)
	if err := m.Register(desc("m1")); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := m.RunOrCached(context.Background(), "m1", "hello", nil); err != nil {
		t.Fatalf("run: %v", err)
	}

	d2 := desc("m1")
	d2.Source = "registry://m1-v2"
	if err := m.Replace(d2); err != nil {
		t.Fatalf("replace: %v", err)
	}
	res, err := m.RunOrCached(context.Background(), "m1", "hello", nil)
	if err != nil {
		t.Fatalf("run after replace: %v", err)
	}
	if res.Cached {
		t.Fatalf("replace must drop the model's cache entries")
	}
	if _, invokes, _ := a.counts(); invokes != 2 {
		t.Fatalf("expected recompute after replace, got %d invokes", invokes)
	}
}

func TestReplaceWhileLoadedFails(t *testing.T) {
	a := &fakeAdapter{}
	m := newTestManager(t, a)
	if err := m.Register(desc("m1")); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := m.Load(context.Background(), "m1"); err != nil {
		t.Fatalf("load: %v", err)
	}
	err := m.Replace(desc("m1"))
	if err == nil || !IsModelInUse(err) {
		t.Fatalf("expected model-in-use error, got %v", err)
	}
}

func TestUnregister(t *testing.T) {
	m := newTestManager(t, &fakeAdapter{})
	if err := m.Register(desc("m1")); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := m.Unregister("m1"); err != nil {
		t.Fatalf("unregister: %v", err)
	}
	if _, ok := m.Get("m1"); ok {
		t.Fatalf("expected m1 gone from catalog")
	}
	if err := m.Unregister("m1"); err != nil {
		t.Fatalf("unregister of absent id must be a no-op, got %v", err)
	}
}

func TestLoadAsyncUnknownModel(t *testing.T) {
	m := newTestManager(t, &fakeAdapter{})
	if _, err := m.LoadAsync("missing"); err == nil || !IsUnknownModel(err) {
		t.Fatalf("expected unknown model error, got %v", err)
	}
}

func TestLoadAsyncWarmsModel(t *testing.T) {
	a := &fakeAdapter{}
	m := newTestManager(t, a)
	if err := m.Register(desc("m1")); err != nil {
		t.Fatalf("register: %v", err)
	}
	op, err := m.LoadAsync("m1")
	if err != nil {
		t.Fatalf("load async: %v", err)
	}
	if op == "" {
		t.Fatalf("expected an operation id")
	}
	deadline := time.Now().Add(2 * time.Second)
	for m.State("m1") != types.StateLoaded {
		if time.Now().After(deadline) {
			t.Fatalf("model never became loaded")
		}
		time.Sleep(5 * time.Millisecond)
	}
	if got := m.RefCount("m1"); got != 1 {
		t.Fatalf("warmup should hold one reference, got %d", got)
	}
}
