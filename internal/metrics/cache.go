package metrics

import "github.com/prometheus/client_golang/prometheus"

// Cache and search pipeline Prometheus metrics.
var (
	CacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "propsearch",
			Name:      "cache_total",
			Help:      "Cache hits and misses per namespace",
		},
		[]string{"namespace", "result"}, // result: "hit" / "miss"
	)

	CacheBackendErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "propsearch",
			Name:      "cache_backend_errors_total",
			Help:      "Cache backend errors swallowed as misses or no-ops",
		},
		[]string{"namespace", "op"},
	)

	SearchRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "propsearch",
			Name:      "search_requests_total",
			Help:      "Total search requests by method and outcome",
		},
		[]string{"method", "status"},
	)

	SearchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "propsearch",
			Name:      "search_duration_seconds",
			Help:      "End-to-end search duration in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"method"},
	)
)

var cacheMetricsRegistered bool

// RegisterCacheMetrics registers cache and search metrics. Must be called once from main.
func RegisterCacheMetrics() {
	if cacheMetricsRegistered {
		return
	}
	prometheus.MustRegister(CacheTotal)
	prometheus.MustRegister(CacheBackendErrorsTotal)
	prometheus.MustRegister(SearchRequestsTotal)
	prometheus.MustRegister(SearchDuration)
	cacheMetricsRegistered = true
}
