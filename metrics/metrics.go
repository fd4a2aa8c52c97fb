package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	EventsRecorded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dhikr_events_recorded_total",
			Help: "Total number of anonymized browsing events recorded",
		},
		[]string{"categorized"},
	)

	TriggersRecorded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dhikr_triggers_recorded_total",
			Help: "Total number of reminder triggers recorded",
		},
		[]string{"category"},
	)

	PIIRedactions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dhikr_pii_redactions_total",
			Help: "Total number of PII substrings replaced by a placeholder",
		},
		[]string{"kind"},
	)

	Classifications = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dhikr_classifications_total",
			Help: "Total number of domain classifications by outcome",
		},
		[]string{"outcome"},
	)

	GeoLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dhikr_geo_lookups_total",
			Help: "Total number of geolocation lookups by outcome",
		},
		[]string{"outcome"},
	)

	ContentFetches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dhikr_content_fetches_total",
			Help: "Total number of content provider calls by provider and outcome",
		},
		[]string{"provider", "outcome"},
	)

	ContentFetchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dhikr_content_fetch_duration_seconds",
			Help:    "Time taken by content provider calls",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"provider"},
	)

	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dhikr_cache_hits_total",
			Help: "Total number of content cache hits",
		},
		[]string{"backend"},
	)

	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dhikr_cache_misses_total",
			Help: "Total number of content cache misses",
		},
		[]string{"backend"},
	)

	CacheErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dhikr_cache_errors_total",
			Help: "Total number of content cache errors by operation",
		},
		[]string{"backend", "operation"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dhikr_http_request_duration_seconds",
			Help:    "HTTP request latency by route and status",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "status"},
	)
)
