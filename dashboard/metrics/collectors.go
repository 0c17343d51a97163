// Package metrics exposes Prometheus instrumentation and a gopsutil-based
// process sampler used during benchmark runs.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "trino_compare_http_request_duration_seconds",
		Help:    "HTTP request latency by route and status code.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route", "method", "status"})

	queriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "trino_compare_queries_total",
		Help: "Comparison queries executed, by cluster and outcome.",
	}, []string{"cluster", "status"})

	clusterStartsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "trino_compare_cluster_starts_total",
		Help: "Cluster container start attempts, by cluster and outcome.",
	}, []string{"cluster", "status"})

	releaseCacheTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "trino_compare_release_cache_total",
		Help: "Release comparison cache lookups, by result.",
	}, []string{"result"})
)

// RecordHTTPRequest observes one served HTTP request.
func RecordHTTPRequest(route, method, status string, duration time.Duration) {
	httpRequestDuration.WithLabelValues(route, method, status).Observe(duration.Seconds())
}

// RecordQuery counts one per-cluster query execution.
func RecordQuery(cluster, status string) {
	queriesTotal.WithLabelValues(cluster, status).Inc()
}

// RecordClusterStart counts one container start attempt.
func RecordClusterStart(cluster, status string) {
	clusterStartsTotal.WithLabelValues(cluster, status).Inc()
}

// RecordReleaseCache counts one comparison cache lookup.
func RecordReleaseCache(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	releaseCacheTotal.WithLabelValues(result).Inc()
}

// Handler returns the Prometheus scrape endpoint handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
