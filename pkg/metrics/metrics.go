// Package metrics exposes the service's Prometheus instruments. Collectors
// register with the default registry at import time, so every binary that
// links this package serves them from /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	ScansTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scans_total",
			Help: "Total number of scans by terminal status.",
		},
		[]string{"status"},
	)

	ScanDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "scan_duration_seconds",
			Help:    "Duration of complete scan runs.",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
		},
	)

	TargetsProcessed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "scan_targets_processed_total",
			Help: "Total number of scan targets processed.",
		},
	)

	FetchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "page_fetches_total",
			Help: "Total number of target page fetches by fetch status.",
		},
		[]string{"status"},
	)

	ProviderLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "provider_lookups_total",
			Help: "Total number of authority-score lookups by provider and status.",
		},
		[]string{"provider", "status"},
	)

	JobsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "queue_jobs_total",
			Help: "Total number of queue jobs by type and outcome.",
		},
		[]string{"type", "outcome"},
	)

	TelemetryEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "telemetry_events_total",
			Help: "Total number of telemetry events tracked.",
		},
		[]string{"event"},
	)
)
