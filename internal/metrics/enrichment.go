package metrics

import "github.com/prometheus/client_golang/prometheus"

// Enrichment Prometheus metrics.
var (
	EnrichmentRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "metadex",
			Name:      "enrichment_requests_total",
			Help:      "Total number of enrichment collaborator requests",
		},
		[]string{"collaborator", "status"},
	)

	EnrichmentRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "metadex",
			Name:      "enrichment_request_duration_seconds",
			Help:      "Enrichment collaborator request duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"collaborator"},
	)

	EnrichmentCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "metadex",
			Name:      "enrichment_cache_total",
			Help:      "Enrichment cache hits and misses",
		},
		[]string{"collaborator", "result"}, // result: "hit" / "miss"
	)
)

var enrichMetricsRegistered bool

// RegisterEnrichmentMetrics registers enrichment metrics. Must be called once
// from main.
func RegisterEnrichmentMetrics() {
	if enrichMetricsRegistered {
		return
	}
	prometheus.MustRegister(EnrichmentRequestsTotal)
	prometheus.MustRegister(EnrichmentRequestDuration)
	prometheus.MustRegister(EnrichmentCacheTotal)
	enrichMetricsRegistered = true
}
