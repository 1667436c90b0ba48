// Package metrics provides lightweight hooks for instrumentation.
package metrics

import "time"

// Recorder captures metric events for the application.
// Implementations can expose these to Prometheus, StatsD, etc.
type Recorder interface {
	// Profile resolution metrics
	IncProfileLookup(provider, outcome string) // outcome: "hit" or "miss"
	IncProfileNegativeCacheHit()

	// Aggregation fan-out metrics
	IncAggregateLeg(network, outcome string) // outcome: "ok" or "failed"
	ObserveAggregateDuration(duration time.Duration)

	// Image proxy metrics
	IncImageProxyFetch(outcome string) // outcome: "ok" or "failed"
	ObserveImageProxyDuration(duration time.Duration)
}

// Snapshotter exposes a snapshot of current metrics.
type Snapshotter interface {
	Snapshot() Snapshot
}
