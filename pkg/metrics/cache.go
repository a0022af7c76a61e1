package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/marmos91/glyphcache/pkg/cache"
)

// cacheMetrics is the Prometheus implementation of cache.Metrics.
type cacheMetrics struct {
	lookups  *prometheus.CounterVec
	hitBytes prometheus.Histogram
	putOps   prometheus.Counter
	putBytes prometheus.Histogram
}

// NewCacheMetrics creates a Prometheus-backed cache.Metrics.
//
// Returns nil if metrics are not enabled (InitRegistry not called). Cache
// implementations accept a nil Metrics, which results in zero overhead.
func NewCacheMetrics() cache.Metrics {
	if !IsEnabled() {
		return nil
	}

	reg := GetRegistry()
	blobBuckets := []float64{
		1024,    // 1KB - tiny static frames
		16384,   // 16KB
		65536,   // 64KB
		262144,  // 256KB - typical animated blob
		1048576, // 1MB
		4194304, // 4MB
	}

	return &cacheMetrics{
		lookups: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "glyphcache_cache_lookups_total",
				Help: "Total number of frame cache lookups by outcome",
			},
			[]string{"status"}, // "hit", "miss"
		),
		hitBytes: promauto.With(reg).NewHistogram(
			prometheus.HistogramOpts{
				Name:    "glyphcache_cache_hit_bytes",
				Help:    "Distribution of blob sizes served from the frame cache",
				Buckets: blobBuckets,
			},
		),
		putOps: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "glyphcache_cache_writes_total",
				Help: "Total number of frame cache write-backs",
			},
		),
		putBytes: promauto.With(reg).NewHistogram(
			prometheus.HistogramOpts{
				Name:    "glyphcache_cache_write_bytes",
				Help:    "Distribution of blob sizes written back to the frame cache",
				Buckets: blobBuckets,
			},
		),
	}
}

func (m *cacheMetrics) ObserveHit(bytes int) {
	m.lookups.WithLabelValues("hit").Inc()
	m.hitBytes.Observe(float64(bytes))
}

func (m *cacheMetrics) ObserveMiss() {
	m.lookups.WithLabelValues("miss").Inc()
}

func (m *cacheMetrics) ObservePut(bytes int) {
	m.putOps.Inc()
	m.putBytes.Observe(float64(bytes))
}
