package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// facility finder service.
type Metrics struct {
	SearchRequests *prometheus.CounterVec // labels: outcome={success,error}
	SearchDuration prometheus.Histogram
	SearchResults  prometheus.Histogram

	CacheLookups *prometheus.CounterVec // labels: result={hit,miss}
	CacheEntries prometheus.Gauge

	// Registry upstream metrics.
	RegistryRequests        *prometheus.CounterVec   // labels: category, outcome={success,error}
	RegistryRequestDuration *prometheus.HistogramVec // labels: category
	RegistryRetries         prometheus.Counter
	RegistryRowsSkipped     prometheus.Counter

	// Geocoding metrics.
	GeocodeRequests    *prometheus.CounterVec   // labels: method={forward,reverse}, outcome={success,error,empty}
	GeocodeCache       *prometheus.CounterVec   // labels: method={forward,reverse}, result={hit,miss}
	GeocodeAPIDuration *prometheus.HistogramVec // labels: method={forward,reverse}

	AuditPublishes *prometheus.CounterVec // labels: outcome={success,error}
	ServiceReady   prometheus.Gauge
}

// NewMetrics creates and registers all service metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()

	prometheus.MustRegister(
		m.SearchRequests,
		m.SearchDuration,
		m.SearchResults,
		m.CacheLookups,
		m.CacheEntries,
		m.RegistryRequests,
		m.RegistryRequestDuration,
		m.RegistryRetries,
		m.RegistryRowsSkipped,
		m.GeocodeRequests,
		m.GeocodeCache,
		m.GeocodeAPIDuration,
		m.AuditPublishes,
		m.ServiceReady,
	)

	return m
}

// NewMetricsForTesting creates Metrics with no registry to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		SearchRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "facility_finder",
			Name:      "search_requests_total",
			Help:      "Proximity searches by outcome.",
		}, []string{"outcome"}),
		SearchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "facility_finder",
			Name:      "search_duration_seconds",
			Help:      "End-to-end proximity search duration.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5, 5},
		}),
		SearchResults: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "facility_finder",
			Name:      "search_results",
			Help:      "Facilities returned per search after filtering.",
			Buckets:   []float64{0, 1, 5, 10, 25, 50, 100, 250, 500},
		}),
		CacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "facility_finder",
			Name:      "cache_lookups_total",
			Help:      "Search cache lookups by result.",
		}, []string{"result"}),
		CacheEntries: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "facility_finder",
			Name:      "cache_entries",
			Help:      "Current number of entries in the search cache.",
		}),
		RegistryRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "facility_finder",
			Name:      "registry_requests_total",
			Help:      "Facility registry page requests by category and outcome.",
		}, []string{"category", "outcome"}),
		RegistryRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "facility_finder",
			Name:      "registry_request_duration_seconds",
			Help:      "Registry API request duration in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"category"}),
		RegistryRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "facility_finder",
			Name:      "registry_retries_total",
			Help:      "Registry page requests retried after a transient failure.",
		}),
		RegistryRowsSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "facility_finder",
			Name:      "registry_rows_skipped_total",
			Help:      "Registry rows dropped during mapping (bad coordinates, missing fields).",
		}),
		GeocodeRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "facility_finder",
			Name:      "geocode_requests_total",
			Help:      "Geocoding API requests by method and outcome.",
		}, []string{"method", "outcome"}),
		GeocodeCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "facility_finder",
			Name:      "geocode_cache_total",
			Help:      "Geocoding cache lookups by method and result.",
		}, []string{"method", "result"}),
		GeocodeAPIDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "facility_finder",
			Name:      "geocode_api_duration_seconds",
			Help:      "Geocoding API request duration in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"method"}),
		AuditPublishes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "facility_finder",
			Name:      "audit_publishes_total",
			Help:      "Search audit events published by outcome.",
		}, []string{"outcome"}),
		ServiceReady: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "facility_finder",
			Name:      "service_ready",
			Help:      "1 after the first successful registry round-trip, 0 before.",
		}),
	}
}
