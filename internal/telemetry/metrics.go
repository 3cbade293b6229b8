package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics groups the Prometheus collectors this repository's
// long-running drivers register: a small struct of named collectors,
// constructed once and passed down. All methods are nil-safe so a Query
// built without metrics wired in can call them unconditionally, the
// same way *Logger tolerates a nil receiver.
type Metrics struct {
	DispatchTotal  *prometheus.CounterVec
	QueryDuration  prometheus.Histogram
	CacheHitsTotal prometheus.Counter
}

// NewMetrics builds and registers the collectors against reg. Passing a
// fresh prometheus.NewRegistry() keeps tests isolated from the global
// default registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		DispatchTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "query_dispatch_total",
			Help: "Point queries dispatched, partitioned by the model that answered and the result.",
		}, []string{"model", "result"}),
		QueryDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "query_duration_seconds",
			Help:    "Wall-clock time to answer one point query.",
			Buckets: prometheus.DefBuckets,
		}),
		CacheHitsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "query_cache_hits_total",
			Help: "Point queries answered from the result cache.",
		}),
	}
	reg.MustRegister(m.DispatchTotal, m.QueryDuration, m.CacheHitsTotal)
	return m
}

// IncDispatch records one dispatched point query against the model that
// answered it (empty string when no model's footprint contained the
// point) and its result ("hit" or "miss").
func (m *Metrics) IncDispatch(model, result string) {
	if m == nil {
		return
	}
	m.DispatchTotal.WithLabelValues(model, result).Inc()
}

// IncCacheHit records one point query answered from the result cache
// without dispatching to any model.
func (m *Metrics) IncCacheHit() {
	if m == nil {
		return
	}
	m.CacheHitsTotal.Inc()
}

// ObserveDuration records the wall-clock time taken to answer one point
// query.
func (m *Metrics) ObserveDuration(d time.Duration) {
	if m == nil {
		return
	}
	m.QueryDuration.Observe(d.Seconds())
}
