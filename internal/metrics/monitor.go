// Package metrics records per-inference latency and throughput samples
// and derives rolling reports from them on demand.
package metrics

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"inferd/pkg/types"
)

// defaultWindow bounds retained samples per model.
const defaultWindow = 256

// Sample is one appended inference measurement. Aggregates are always
// derived from samples, never stored.
type Sample struct {
	ModelID      string
	InputTokens  int
	OutputTokens int
	Latency      time.Duration
	At           time.Time
	// hasTokens marks samples whose token counts were set by the caller.
	// Samples without it are excluded from tokens/sec, not counted as zero.
	hasTokens bool
}

// Monitor retains a bounded rolling window of samples per model.
type Monitor struct {
	mu      sync.RWMutex
	window  int
	samples map[string][]Sample
	log     zerolog.Logger
	now     func() time.Time
}

// NewMonitor builds a Monitor retaining up to window samples per model.
// window <= 0 uses the package default.
func NewMonitor(window int, log zerolog.Logger) *Monitor {
	if window <= 0 {
		window = defaultWindow
	}
	return &Monitor{
		window:  window,
		samples: make(map[string][]Sample),
		log:     log,
		now:     time.Now,
	}
}

// Track starts a scoped measurement for one inference call. The caller
// must arrange for Done to run on every exit path, typically:
//
//	tr := mon.Track(id)
//	defer tr.Done()
func (m *Monitor) Track(modelID string) *Tracker {
	return &Tracker{m: m, modelID: modelID, start: m.now()}
}

// record appends a sample and trims the window.
func (m *Monitor) record(s Sample) {
	m.mu.Lock()
	defer m.mu.Unlock()
	buf := append(m.samples[s.ModelID], s)
	if n := len(buf) - m.window; n > 0 {
		buf = buf[n:]
	}
	m.samples[s.ModelID] = buf

	inferenceDuration.WithLabelValues(s.ModelID).Observe(s.Latency.Seconds())
	samplesTotal.WithLabelValues(s.ModelID).Inc()
}

// Report derives the rolling statistics for modelID. An unknown model
// yields an empty report rather than an error.
func (m *Monitor) Report(modelID string) types.PerformanceReport {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rep := types.PerformanceReport{ModelID: modelID}
	buf := m.samples[modelID]
	if len(buf) == 0 {
		return rep
	}
	var (
		totalLatency time.Duration
		tokenTime    time.Duration
		tokensOut    int
	)
	for _, s := range buf {
		totalLatency += s.Latency
		if s.hasTokens {
			rep.TokenSamples++
			tokensOut += s.OutputTokens
			tokenTime += s.Latency
		}
	}
	rep.Samples = len(buf)
	rep.AvgLatencyMs = float64(totalLatency.Milliseconds()) / float64(len(buf))
	if rep.TokenSamples > 0 && tokenTime > 0 {
		rep.TokensPerSec = float64(tokensOut) / tokenTime.Seconds()
	}
	return rep
}

// Tracker measures one inference call. Done is idempotent and records a
// sample exactly once, whatever exit path released it.
type Tracker struct {
	m       *Monitor
	modelID string
	start   time.Time

	mu        sync.Mutex
	inTokens  int
	outTokens int
	hasTokens bool
	done      bool
}

// SetMetrics attaches token counts before release. Never calling it
// keeps the sample out of tokens/sec aggregation.
func (t *Tracker) SetMetrics(inputTokens, outputTokens int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.inTokens = inputTokens
	t.outTokens = outputTokens
	t.hasTokens = true
}

// Done records the sample. Safe to call more than once; only the first
// call records.
func (t *Tracker) Done() {
	t.mu.Lock()
	if t.done {
		t.mu.Unlock()
		return
	}
	t.done = true
	s := Sample{
		ModelID:      t.modelID,
		InputTokens:  t.inTokens,
		OutputTokens: t.outTokens,
		Latency:      t.m.now().Sub(t.start),
		At:           t.m.now(),
		hasTokens:    t.hasTokens,
	}
	t.mu.Unlock()
	t.m.record(s)
}
