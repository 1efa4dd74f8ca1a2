// CoursePilot - Personalized Course Recommendations
// Copyright 2026 CoursePilot Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/coursepilot/coursepilot

// Package metrics exposes Prometheus instrumentation for the
// recommendation pipeline and the HTTP API.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Recommendation pipeline metrics.
	RecommendationRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recommendation_requests_total",
			Help: "Total recommendation requests served",
		},
		[]string{"cache_hit", "fallback"},
	)

	RecommendationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "recommendation_duration_seconds",
			Help:    "End-to-end recommendation latency in seconds",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
	)

	SourceFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recommendation_source_failures_total",
			Help: "Candidate source failures during retrieval",
		},
		[]string{"source"},
	)

	CacheEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "recommendation_cache_entries",
			Help: "Current number of cached rankings",
		},
	)

	ExplanationFallbacks = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "explanation_fallbacks_total",
			Help: "Explanations substituted with a fallback sentence",
		},
	)

	// API metrics.
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "endpoint"},
	)
)

// RecordRecommendation records one served recommendation request.
func RecordRecommendation(cacheHit, fallback bool, duration time.Duration) {
	RecommendationRequests.WithLabelValues(
		strconv.FormatBool(cacheHit),
		strconv.FormatBool(fallback),
	).Inc()
	RecommendationDuration.Observe(duration.Seconds())
}

// RecordSourceFailure records a candidate source failure ("vector" or
// "content").
func RecordSourceFailure(source string) {
	SourceFailures.WithLabelValues(source).Inc()
}

// RecordAPIRequest records one HTTP request.
func RecordAPIRequest(method, endpoint string, statusCode int, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(statusCode)).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}
