package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Host cache metrics
	HostCacheSize = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "gantt_host_cache_size",
			Help: "Number of (host, node) pairs currently cached by the host manager",
		},
	)

	InventoryRefreshDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "gantt_inventory_refresh_duration_seconds",
			Help:    "Time taken to refresh the host cache from the inventory store",
			Buckets: prometheus.DefBuckets,
		},
	)

	InventoryRefreshFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "gantt_inventory_refresh_failures_total",
			Help: "Total number of failed inventory refreshes",
		},
	)

	// Filter chain metrics
	FilterChainDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gantt_filter_chain_duration_seconds",
			Help:    "Time taken to run the filter chain for one request",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"outcome"},
	)

	FilterEliminationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gantt_filter_eliminations_total",
			Help: "Total number of hosts eliminated by each filter",
		},
		[]string{"filter"},
	)

	// Weigher chain metrics
	WeigherChainDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "gantt_weigher_chain_duration_seconds",
			Help:    "Time taken to run the weigher chain for one request",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Selection driver metrics
	SchedulingLatency = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "gantt_scheduling_latency_seconds",
			Help:    "Time taken to select destinations for one request",
			Buckets: prometheus.DefBuckets,
		},
	)

	SelectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gantt_selections_total",
			Help: "Total number of select_destinations calls by outcome",
		},
		[]string{"outcome"},
	)

	DestinationsReturnedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "gantt_destinations_returned_total",
			Help: "Total number of destinations returned across all selections",
		},
	)

	// Attestation cache metrics
	AttestationCacheHitsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "gantt_attestation_cache_hits_total",
			Help: "Total number of attestation lookups served from cache without a refresh",
		},
	)

	AttestationCacheRefreshesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "gantt_attestation_cache_refreshes_total",
			Help: "Total number of attestation cache refreshes against the attestation service",
		},
	)

	AttestationServiceErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "gantt_attestation_service_errors_total",
			Help: "Total number of attestation service poll failures",
		},
	)

	// RPC surface metrics
	APIRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gantt_api_requests_total",
			Help: "Total number of RPC requests by method and status",
		},
		[]string{"method", "status"},
	)

	APIRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gantt_api_request_duration_seconds",
			Help:    "RPC request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)
)

func init() {
	prometheus.MustRegister(
		HostCacheSize,
		InventoryRefreshDuration,
		InventoryRefreshFailuresTotal,
		FilterChainDuration,
		FilterEliminationsTotal,
		WeigherChainDuration,
		SchedulingLatency,
		SelectionsTotal,
		DestinationsReturnedTotal,
		AttestationCacheHitsTotal,
		AttestationCacheRefreshesTotal,
		AttestationServiceErrorsTotal,
		APIRequestsTotal,
		APIRequestDuration,
	)
}

// Handler returns the Prometheus HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer is a helper for timing operations.
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// Duration returns the elapsed time since the timer was created.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}

// ObserveDuration records the duration to a histogram.
func (t *Timer) ObserveDuration(histogram prometheus.Histogram) {
	histogram.Observe(t.Duration().Seconds())
}

// ObserveDurationVec records the duration to a histogram vec with the
// given label values.
func (t *Timer) ObserveDurationVec(histogramVec *prometheus.HistogramVec, labelValues ...string) {
	histogramVec.WithLabelValues(labelValues...).Observe(t.Duration().Seconds())
}
