package rescache

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds Prometheus metrics for the resource cache.
type Metrics struct {
	Hits          *prometheus.CounterVec
	Misses        *prometheus.CounterVec
	SharedFetches *prometheus.CounterVec
	Invalidations *prometheus.CounterVec
}

// NewMetrics registers and returns cache metrics on the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Hits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "darkwatch_cache_hits_total",
			Help: "Cache reads served from a fresh entry, by resource kind.",
		}, []string{"kind"}),
		Misses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "darkwatch_cache_misses_total",
			Help: "Cache reads that required a backend fetch, by resource kind.",
		}, []string{"kind"}),
		SharedFetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "darkwatch_cache_shared_fetches_total",
			Help: "Reads that piggybacked on another caller's in-flight fetch.",
		}, []string{"kind"}),
		Invalidations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "darkwatch_cache_invalidations_total",
			Help: "Invalidations issued after mutations, by resource kind.",
		}, []string{"kind"}),
	}

	reg.MustRegister(
		m.Hits,
		m.Misses,
		m.SharedFetches,
		m.Invalidations,
	)

	return m
}
