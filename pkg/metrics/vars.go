package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	QueryFetches = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "funding_query_fetches_total",
		Help: "Query store fetches by store and outcome",
	}, []string{"store", "outcome"})

	QueryLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "funding_query_latency_seconds",
		Help:    "Time spent in a query store fetcher",
		Buckets: prometheus.DefBuckets,
	}, []string{"store"})

	QueryCacheHits = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "funding_query_cache_hits_total",
		Help: "Parameter changes served from a fresh cache entry",
	}, []string{"store"})

	QueryAborts = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "funding_query_aborts_total",
		Help: "In-flight fetches cancelled by a parameter change",
	}, []string{"store"})

	QuoteOutcomes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "funding_quote_outcomes_total",
		Help: "Quote results by flow and status",
	}, []string{"flow", "status"})

	APIRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "funding_api_requests_total",
		Help: "Outbound API requests by client and HTTP status class",
	}, []string{"client", "status"})

	BreakerState = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "funding_api_breaker_state",
		Help: "Circuit breaker state per client (0 closed, 1 half-open, 2 open)",
	}, []string{"client"})
)

func init() {
	prometheus.MustRegister(
		QueryFetches,
		QueryLatency,
		QueryCacheHits,
		QueryAborts,
		QuoteOutcomes,
		APIRequests,
		BreakerState,
	)
}
