package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "cinedex"

// Search and cache Prometheus metrics.
var (
	SearchCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "search_cache_total",
			Help:      "Response cache lookups by outcome",
		},
		[]string{"entity", "result"}, // hit / negative_hit / miss / error
	)

	SearchFlightTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "search_flight_total",
			Help:      "Cache misses answered by an index query, by whether the result was shared",
		},
		[]string{"entity", "shared"},
	)

	IndexRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "index_request_duration_seconds",
			Help:      "Search index request duration in seconds",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"entity", "status"},
	)

	CacheOperationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_operations_total",
			Help:      "Cache backend operations by result",
		},
		[]string{"op", "result"},
	)
)

var registerSearchOnce sync.Once

// RegisterSearchMetrics registers the search and cache metrics. Call from main.
func RegisterSearchMetrics(reg prometheus.Registerer) {
	registerSearchOnce.Do(func() {
		reg.MustRegister(
			SearchCacheTotal,
			SearchFlightTotal,
			IndexRequestDuration,
			CacheOperationsTotal,
		)
	})
}
