// Package metrics provides Prometheus metrics for the TCG Signals pipeline.
// Scrape these at /metrics for Grafana dashboards and alerting.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP Metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tcg_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tcg_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// Pipeline Metrics
	CardsProcessedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tcg_cards_processed_total",
			Help: "Cards taken through the valuation pipeline by outcome",
		},
		[]string{"result"}, // "written", "skipped"
	)

	CardSkipsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tcg_card_skips_total",
			Help: "Cards skipped by reason",
		},
		[]string{"reason"}, // "not_found", "no_data", "no_near_mint", "empty_features", "transient", "malformed", "panic", "error"
	)

	DecisionLabelsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tcg_decision_labels_total",
			Help: "Decision engine outputs by ownership mode and label",
		},
		[]string{"mode", "label"},
	)

	// Identity Resolution Metrics
	IdentityLookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tcg_identity_lookups_total",
			Help: "Identity resolutions by source",
		},
		[]string{"source"}, // "cache", "search", "not_found"
	)

	SearchQueriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tcg_search_queries_total",
			Help: "Catalog search queries issued by searcher and result",
		},
		[]string{"searcher", "result"}, // result: "hit", "empty", "error"
	)

	IdentityCacheSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "tcg_identity_cache_size",
			Help: "Number of cached name to catalog id bindings",
		},
	)

	// Collaborator Metrics
	CollaboratorRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tcg_collaborator_request_duration_seconds",
			Help:    "Latency of outbound calls by collaborator",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 20},
		},
		[]string{"collaborator"}, // "search", "history", "metadata", "catalog"
	)

	CollaboratorErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tcg_collaborator_errors_total",
			Help: "Outbound call failures by collaborator and type",
		},
		[]string{"collaborator", "type"}, // type: "network", "status", "decode", "no_data"
	)

	// Run Metrics
	RunQueueSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "tcg_run_queue_size",
			Help: "Number of dataset runs waiting for the worker",
		},
	)

	RunDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "tcg_run_duration_seconds",
			Help:    "Time taken to process a dataset run",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800},
		},
	)

	RowsWrittenTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tcg_rows_written_total",
			Help: "Dataset rows written across all runs",
		},
	)

	// Gemini Summary Metrics
	GeminiRequestsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tcg_gemini_requests_total",
			Help: "Total Gemini decision summary requests",
		},
	)

	GeminiAPILatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "tcg_gemini_api_latency_seconds",
			Help:    "Gemini API call latency",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5},
		},
	)

	GeminiErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tcg_gemini_errors_total",
			Help: "Gemini API errors by type",
		},
		[]string{"type"}, // "api", "empty"
	)

	GeminiCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tcg_gemini_cache_hits_total",
			Help: "Decision summaries served from the in-process cache",
		},
	)
)
