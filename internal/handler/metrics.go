package handler

import (
	"fmt"
	"net/http"
	"sort"

	"github.com/gall3ry/gall3ry/internal/metrics"
)

// MetricsHandler exposes in-memory metrics.
// Only routed in development environments.
type MetricsHandler struct {
	snapshotter metrics.Snapshotter
}

// NewMetricsHandler creates a new MetricsHandler.
func NewMetricsHandler(snapshotter metrics.Snapshotter) *MetricsHandler {
	return &MetricsHandler{snapshotter: snapshotter}
}

// Metrics returns metrics in Prometheus exposition format.
func (h *MetricsHandler) Metrics(w http.ResponseWriter, r *http.Request) {
	if h.snapshotter == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}

	snap := h.snapshotter.Snapshot()

	w.Header().Set("Content-Type", "text/plain; version=0.0.4")

	writeLabeled(w, "gall3ry_profile_lookups_total", snap.ProfileLookups)
	writeMetric(w, "gall3ry_profile_negative_cache_hits_total %d\n", snap.ProfileNegativeHits)

	writeLabeled(w, "gall3ry_aggregate_legs_total", snap.AggregateLegs)
	writeMetric(w, "gall3ry_aggregate_duration_seconds_count %d\n", snap.AggregateDurationCount)
	writeMetric(w, "gall3ry_aggregate_duration_seconds_sum %.6f\n", snap.AggregateDurationTotal.Seconds())

	writeLabeled(w, "gall3ry_image_proxy_fetches_total", snap.ImageProxyFetches)
	writeMetric(w, "gall3ry_image_proxy_duration_seconds_count %d\n", snap.ImageProxyDurationCount)
	writeMetric(w, "gall3ry_image_proxy_duration_seconds_sum %.6f\n", snap.ImageProxyDurationTotal.Seconds())
}

func writeMetric(w http.ResponseWriter, format string, args ...any) {
	_, _ = fmt.Fprintf(w, format, args...)
}

// writeLabeled emits one line per counter key in sorted order so the
// output is stable.
func writeLabeled(w http.ResponseWriter, name string, counters map[string]uint64) {
	keys := make([]string, 0, len(counters))
	for k := range counters {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		writeMetric(w, "%s{key=%q} %d\n", name, k, counters[k])
	}
}
