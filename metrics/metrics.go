package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// === Upstream API Metrics ===

	// UpstreamFetchTotal counts upstream requests by endpoint and outcome
	UpstreamFetchTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flood_upstream_fetch_total",
			Help: "Total number of flood-monitoring API requests",
		},
		[]string{"endpoint", "status"}, // stations/readings, success/unchanged/error
	)

	// UpstreamFetchDuration measures upstream request latency
	UpstreamFetchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "flood_upstream_fetch_duration_seconds",
			Help:    "Time spent on flood-monitoring API requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	// UpstreamErrorsByType tracks upstream errors per origin by error type
	UpstreamErrorsByType = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flood_upstream_errors_total",
			Help: "Total upstream errors per origin by error type",
		},
		[]string{"origin", "error_type"}, // timeout, connection, bad_status, decode, breaker_open, rate_limited
	)

	// === Catalog Metrics ===

	// CatalogLookupsTotal counts catalog reads by cache result
	CatalogLookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flood_catalog_lookups_total",
			Help: "Total number of station catalog lookups by cache result",
		},
		[]string{"result"}, // hit, miss, shared
	)

	// CatalogRefreshTotal counts catalog refreshes
	CatalogRefreshTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flood_catalog_refresh_total",
			Help: "Total number of station catalog refreshes",
		},
		[]string{"status"}, // success, error
	)

	// CatalogStations tracks the size of the current catalog
	CatalogStations = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "flood_catalog_stations",
			Help: "Stations in the current catalog",
		},
		[]string{"kind"}, // labelled, mapped, duplicate_labels
	)

	// CatalogLastSuccessTimestamp records when the catalog was last refreshed
	CatalogLastSuccessTimestamp = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "flood_catalog_last_success_timestamp_seconds",
			Help: "Unix timestamp of the last successful catalog refresh",
		},
	)

	// RecordsDroppedTotal counts upstream records discarded during normalization
	RecordsDroppedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flood_records_dropped_total",
			Help: "Upstream records dropped or partially dropped during normalization",
		},
		[]string{"reason"}, // empty_label, missing_id, bad_coordinates, bad_timestamp, bad_value
	)

	// === Readings Metrics ===

	// ReadingsFetchTotal counts readings fetches by outcome
	ReadingsFetchTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flood_readings_fetch_total",
			Help: "Total number of readings fetches",
		},
		[]string{"status"}, // ok, empty, error
	)

	// ReadingsReturned measures how many readings survive the time window
	ReadingsReturned = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "flood_readings_returned",
			Help:    "Readings returned per fetch after windowing",
			Buckets: []float64{0, 1, 10, 25, 50, 100, 200, 300, 500},
		},
	)

	// === HTTP Metrics ===

	// HTTPRequestDuration measures HTTP request latency by path
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "flood_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	// HTTPRequestsTotal counts HTTP requests
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flood_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// HTTPRequestsInFlight tracks active HTTP requests
	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "flood_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)

	// CacheHits tracks HTTP cache hits by path
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flood_http_cache_hits_total",
			Help: "Total number of HTTP cache hits (304 Not Modified responses)",
		},
		[]string{"path"},
	)

	// PageViewsTotal tracks page views by view kind
	PageViewsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flood_page_views_total",
			Help: "Total page views by view",
		},
		[]string{"view", "embedded"}, // map/detail, true/false
	)

	// ErrorsByType tracks application errors by type
	ErrorsByType = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flood_errors_total",
			Help: "Total number of application errors by type",
		},
		[]string{"error_type"},
	)

	// MemoryUsageBytes tracks application memory usage
	MemoryUsageBytes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "flood_memory_usage_bytes",
			Help: "Application memory usage in bytes",
		},
	)
)
