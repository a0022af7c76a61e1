package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/marmos91/glyphcache/pkg/document"
	"github.com/marmos91/glyphcache/pkg/resolver"
)

// instrumentedResolver wraps a Resolver with batch counters.
type instrumentedResolver struct {
	next resolver.Resolver

	batches   *prometheus.CounterVec
	batchSize prometheus.Histogram
	resolved  prometheus.Counter
	duration  prometheus.Histogram
}

// InstrumentResolver wraps r so every batch call is counted and timed.
//
// Returns r unchanged if metrics are not enabled.
func InstrumentResolver(r resolver.Resolver) resolver.Resolver {
	if !IsEnabled() {
		return r
	}

	reg := GetRegistry()
	return &instrumentedResolver{
		next: r,
		batches: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "glyphcache_resolve_batches_total",
				Help: "Total number of batched document resolution calls by outcome",
			},
			[]string{"status"}, // "ok", "error"
		),
		batchSize: promauto.With(reg).NewHistogram(
			prometheus.HistogramOpts{
				Name:    "glyphcache_resolve_batch_size",
				Help:    "Distribution of identifiers carried per resolution batch",
				Buckets: []float64{1, 5, 10, 25, 50, 75, 100},
			},
		),
		resolved: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "glyphcache_resolve_documents_total",
				Help: "Total number of document records returned by resolution",
			},
		),
		duration: promauto.With(reg).NewHistogram(
			prometheus.HistogramOpts{
				Name:    "glyphcache_resolve_duration_seconds",
				Help:    "Duration of resolution batch calls in seconds",
				Buckets: prometheus.DefBuckets,
			},
		),
	}
}

func (r *instrumentedResolver) Resolve(ctx context.Context, ids []uint64) ([]document.Document, error) {
	start := time.Now()
	r.batchSize.Observe(float64(len(ids)))

	docs, err := r.next.Resolve(ctx, ids)
	r.duration.Observe(time.Since(start).Seconds())
	if err != nil {
		r.batches.WithLabelValues("error").Inc()
		return nil, err
	}
	r.batches.WithLabelValues("ok").Inc()
	r.resolved.Add(float64(len(docs)))
	return docs, nil
}
