package metrics

import (
	"sync"
	"time"
)

// Snapshot captures current in-memory counters.
type Snapshot struct {
	ProfileLookups          map[string]uint64 // keyed "<provider>/<outcome>"
	ProfileNegativeHits     uint64
	AggregateLegs           map[string]uint64 // keyed "<network>/<outcome>"
	AggregateDurationCount  uint64
	AggregateDurationTotal  time.Duration
	ImageProxyFetches       map[string]uint64 // keyed by outcome
	ImageProxyDurationCount uint64
	ImageProxyDurationTotal time.Duration
}

// InMemoryRecorder stores metrics in memory.
// Labeled counters use a mutex-guarded map; this recorder backs tests
// and the development snapshot endpoint, not hot paths.
type InMemoryRecorder struct {
	mu sync.Mutex

	profileLookups          map[string]uint64
	profileNegativeHits     uint64
	aggregateLegs           map[string]uint64
	aggregateDurationCount  uint64
	aggregateDurationTotal  time.Duration
	imageProxyFetches       map[string]uint64
	imageProxyDurationCount uint64
	imageProxyDurationTotal time.Duration
}

// NewInMemory returns a Recorder that stores counters in memory.
func NewInMemory() *InMemoryRecorder {
	return &InMemoryRecorder{
		profileLookups:    make(map[string]uint64),
		aggregateLegs:     make(map[string]uint64),
		imageProxyFetches: make(map[string]uint64),
	}
}

// Snapshot returns a copy of the counters.
func (m *InMemoryRecorder) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	return Snapshot{
		ProfileLookups:          copyCounters(m.profileLookups),
		ProfileNegativeHits:     m.profileNegativeHits,
		AggregateLegs:           copyCounters(m.aggregateLegs),
		AggregateDurationCount:  m.aggregateDurationCount,
		AggregateDurationTotal:  m.aggregateDurationTotal,
		ImageProxyFetches:       copyCounters(m.imageProxyFetches),
		ImageProxyDurationCount: m.imageProxyDurationCount,
		ImageProxyDurationTotal: m.imageProxyDurationTotal,
	}
}

// IncProfileLookup increments the per-provider lookup counter.
func (m *InMemoryRecorder) IncProfileLookup(provider, outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.profileLookups[provider+"/"+outcome]++
}

// IncProfileNegativeCacheHit increments the negative cache hit counter.
func (m *InMemoryRecorder) IncProfileNegativeCacheHit() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.profileNegativeHits++
}

// IncAggregateLeg increments the per-network leg counter.
func (m *InMemoryRecorder) IncAggregateLeg(network, outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.aggregateLegs[network+"/"+outcome]++
}

// ObserveAggregateDuration records an aggregation call duration.
func (m *InMemoryRecorder) ObserveAggregateDuration(duration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.aggregateDurationCount++
	m.aggregateDurationTotal += duration
}

// IncImageProxyFetch increments the proxy fetch counter.
func (m *InMemoryRecorder) IncImageProxyFetch(outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.imageProxyFetches[outcome]++
}

// ObserveImageProxyDuration records a proxy fetch duration.
func (m *InMemoryRecorder) ObserveImageProxyDuration(duration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.imageProxyDurationCount++
	m.imageProxyDurationTotal += duration
}

func copyCounters(src map[string]uint64) map[string]uint64 {
	dst := make(map[string]uint64, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
