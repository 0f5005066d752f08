// Package metrics exposes the Prometheus registry and /metrics handler of the
// explorer, plus the inbound HTTP metrics. Upstream metrics are defined in
// their respective packages (client, cache, ratelimit, query, explorer) to
// maintain modularity and avoid circular dependencies.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is the default Prometheus registry used by the explorer.
// All metrics are automatically registered via promauto in their respective packages.
var Registry = prometheus.DefaultRegisterer

// Inbound HTTP metrics, recorded by the server middleware.
var (
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Inbound HTTP requests by route, method and status",
	}, []string{"route", "method", "status"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Inbound HTTP request duration by route",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
)

// Handler serves the default gatherer in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.HandlerFor(prometheus.DefaultGatherer, promhttp.HandlerOpts{})
}

// ObserveRequest records one inbound request.
func ObserveRequest(route, method, status string, seconds float64) {
	if route == "" {
		route = "unmatched"
	}
	HTTPRequestsTotal.WithLabelValues(route, method, status).Inc()
	HTTPRequestDuration.WithLabelValues(route).Observe(seconds)
}

// Metrics Documentation
//
// Outbound limiter (pkg/ratelimit):
//   - pokeapi_inflight_requests (Gauge): Upstream requests currently in flight
//   - pokeapi_rate_limit_wait_seconds (Histogram): Time spent waiting for a request slot
//   - pokeapi_rate_limit_blocks_total (Counter): Back-pressure windows opened by 429/503
//   - pokeapi_limiter_saturated_total (Counter): Requests that queued because every slot was taken
//
// Response cache (pkg/cache):
//   - pokeapi_cache_hits_total{state} (Counter): Hits by state (fresh, revalidated)
//   - pokeapi_cache_misses_total (Counter): Cache misses
//   - pokeapi_cache_size_bytes (Gauge): Bytes written by the last Set
//   - pokeapi_cache_conditional_requests_total (Counter): Conditional requests sent
//   - pokeapi_cache_errors_total{operation} (Counter): Cache operation errors
//
// Upstream requests (pkg/client):
//   - pokeapi_requests_total{endpoint, status} (Counter): Requests by resource and HTTP status
//   - pokeapi_request_duration_seconds{endpoint} (Histogram): Request duration by resource
//   - pokeapi_errors_total{class} (Counter): Errors by class (client, server, rate_limit, network)
//
// Query cache (pkg/query):
//   - query_cache_hits_total{resource} (Counter): Fresh entries served
//   - query_cache_misses_total{resource} (Counter): Fetches started or joined
//   - query_cache_shared_fetches_total{resource} (Counter): Callers served by an in-flight fetch
//   - query_cache_entries (Gauge): Cached entries
//   - query_cache_evictions_total (Counter): Entries removed by the sweep
//   - query_retries_total{resource} (Counter): Retry attempts
//   - query_retry_backoff_seconds{resource} (Histogram): Backoff durations
//   - query_retry_exhausted_total{resource} (Counter): Fetches that exhausted their retries
//
// Loads (pkg/explorer):
//   - explorer_load_duration_seconds{kind, outcome} (Histogram): Time until a page or detail load settles
//
// Inbound (pkg/metrics, internal/server):
//   - http_requests_total{route, method, status} (Counter)
//   - http_request_duration_seconds{route} (Histogram)
//
// Example Prometheus Queries:
//
//   # Query cache hit rate
//   sum(rate(query_cache_hits_total[5m])) /
//   (sum(rate(query_cache_hits_total[5m])) + sum(rate(query_cache_misses_total[5m])))
//
//   # Upstream error rate
//   rate(pokeapi_errors_total[5m])
//
//   # P95 upstream latency
//   histogram_quantile(0.95, rate(pokeapi_request_duration_seconds_bucket[5m]))
//
//   # Requests deduplicated by the query cache
//   rate(query_cache_shared_fetches_total[5m])
