package metrics

import "time"

// NoopRecorder implements Recorder with no-op methods.
type NoopRecorder struct{}

// NewNoop returns a Recorder that discards all metrics.
func NewNoop() Recorder {
	return &NoopRecorder{}
}

// IncProfileLookup is a no-op.
func (n *NoopRecorder) IncProfileLookup(provider, outcome string) {}

// IncProfileNegativeCacheHit is a no-op.
func (n *NoopRecorder) IncProfileNegativeCacheHit() {}

// IncAggregateLeg is a no-op.
func (n *NoopRecorder) IncAggregateLeg(network, outcome string) {}

// ObserveAggregateDuration is a no-op.
func (n *NoopRecorder) ObserveAggregateDuration(duration time.Duration) {}

// IncImageProxyFetch is a no-op.
func (n *NoopRecorder) IncImageProxyFetch(outcome string) {}

// ObserveImageProxyDuration is a no-op.
func (n *NoopRecorder) ObserveImageProxyDuration(duration time.Duration) {}
