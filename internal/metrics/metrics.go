// Matchengine - Campaign/Creator Matching & Recommendation Engine
// Copyright 2026 CreatorLink
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/creatorlink/matchengine

// Package metrics provides Prometheus instrumentation for the matching
// engine: request throughput and latency, cache efficiency, provider
// failures, and invalidation volume. Metrics are exposed at /metrics in
// Prometheus text format.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Matching Engine Metrics
	MatchRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "match_requests_total",
			Help: "Total matching engine requests by operation and outcome",
		},
		[]string{"operation", "status"}, // operation: "generate", "explain"; status: "ok" or an error kind
	)

	MatchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "match_request_duration_seconds",
			Help:    "Duration of matching engine requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	RankingsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "match_rankings_in_flight",
			Help: "Full-pool ranking computations currently executing",
		},
	)

	CandidatePoolSize = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "match_candidate_pool_size",
			Help:    "Candidate pool size per ranking request",
			Buckets: []float64{0, 10, 25, 50, 100, 250, 500, 1000},
		},
	)

	// Result Cache Metrics
	CacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "match_cache_hits_total",
			Help: "Total result cache hits",
		},
	)

	CacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "match_cache_misses_total",
			Help: "Total result cache misses",
		},
	)

	CacheErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "match_cache_errors_total",
			Help: "Total cache backend failures absorbed by compute-fresh fallback",
		},
	)

	Invalidations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "match_cache_invalidations_total",
			Help: "Total cache invalidation sweeps by profile kind",
		},
		[]string{"kind"},
	)

	// Signal Provider Metrics
	ProviderErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "match_provider_errors_total",
			Help: "Total signal provider failures by profile kind",
		},
		[]string{"kind"},
	)

	ProviderBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "match_provider_breaker_state",
			Help: "Circuit breaker state per provider (0=closed, 1=half-open, 2=open)",
		},
		[]string{"provider"},
	)

	// Profile Event Metrics
	EventsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "match_profile_events_total",
			Help: "Total profile change events consumed by outcome",
		},
		[]string{"status"}, // "ok", "decode_error"
	)

	// HTTP API Metrics
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_requests_in_flight",
			Help: "HTTP requests currently being served",
		},
	)
)

// RecordHTTPRequest records one completed HTTP request.
func RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	HTTPRequestDuration.WithLabelValues(method, path, strconv.Itoa(status)).Observe(duration.Seconds())
}
