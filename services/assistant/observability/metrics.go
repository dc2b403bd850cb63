// Copyright (C) 2025 RUA Innovation
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package observability provides Prometheus metrics for the assistant
// service.
//
// # Description
//
// Metrics cover the ask endpoints end to end:
//   - Request counters (by endpoint, status)
//   - Agent run poll counts and stream duration histograms
//   - Active stream gauge
//   - Rate-limit rejections, dedup hits, validation warnings
//
// # Integration
//
// Exposed via the /metrics endpoint. All operations are thread-safe via
// Prometheus's internal locking.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// =============================================================================
// Metric Definitions
// =============================================================================

const metricsNamespace = "policyassistant"

const askSubsystem = "ask"

// Metrics holds all Prometheus metrics for ask operations. Initialize once
// at startup via InitMetrics().
type Metrics struct {
	// RequestsTotal counts ask requests by endpoint and status.
	// Labels: endpoint (ask, ask_stream), status (success, error)
	RequestsTotal *prometheus.CounterVec

	// RunPolls measures how many status polls each agent run needed.
	// Labels: endpoint
	RunPolls *prometheus.HistogramVec

	// StreamDurationSeconds measures total stream duration.
	// Labels: endpoint, status (success, error)
	StreamDurationSeconds *prometheus.HistogramVec

	// ActiveStreams tracks currently open SSE connections.
	ActiveStreams prometheus.Gauge

	// ErrorsTotal counts errors by endpoint and error code.
	// Labels: endpoint, error_code (validation, auth, network, run_failed,
	// timeout, no_response, internal)
	ErrorsTotal *prometheus.CounterVec

	// RateLimitedTotal counts requests rejected by the rate limiter.
	RateLimitedTotal prometheus.Counter

	// DedupHitsTotal counts requests answered from the dedup cache.
	DedupHitsTotal prometheus.Counter

	// ValidationWarningsTotal counts advisory transcript warnings.
	// Labels: endpoint
	ValidationWarningsTotal *prometheus.CounterVec
}

// DefaultMetrics is the singleton instance. Initialized by InitMetrics().
var DefaultMetrics *Metrics

// InitMetrics creates and registers all metrics on the default registry.
// Call once at startup; a second call panics on duplicate registration.
func InitMetrics() *Metrics {
	DefaultMetrics = &Metrics{
		RequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: askSubsystem,
				Name:      "requests_total",
				Help:      "Total ask requests by endpoint and status",
			},
			[]string{"endpoint", "status"},
		),

		RunPolls: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: askSubsystem,
				Name:      "run_polls",
				Help:      "Status polls needed per agent run",
				Buckets:   []float64{1, 2, 5, 10, 20, 30, 60, 120},
			},
			[]string{"endpoint"},
		),

		StreamDurationSeconds: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: askSubsystem,
				Name:      "stream_duration_seconds",
				Help:      "Total stream duration in seconds",
				Buckets:   []float64{1, 5, 10, 30, 60, 120, 300},
			},
			[]string{"endpoint", "status"},
		),

		ActiveStreams: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Subsystem: askSubsystem,
				Name:      "active_streams",
				Help:      "Currently open SSE connections",
			},
		),

		ErrorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: askSubsystem,
				Name:      "errors_total",
				Help:      "Total errors by endpoint and error code",
			},
			[]string{"endpoint", "error_code"},
		),

		RateLimitedTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: askSubsystem,
				Name:      "rate_limited_total",
				Help:      "Requests rejected by the rate limiter",
			},
		),

		DedupHitsTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: askSubsystem,
				Name:      "dedup_hits_total",
				Help:      "Requests answered from the duplicate-submission cache",
			},
		),

		ValidationWarningsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: askSubsystem,
				Name:      "validation_warnings_total",
				Help:      "Advisory transcript validation warnings",
			},
			[]string{"endpoint"},
		),
	}

	return DefaultMetrics
}

// =============================================================================
// Error Codes
// =============================================================================

// ErrorCode categorizes an error for metrics labeling.
type ErrorCode string

const (
	ErrorCodeValidation ErrorCode = "validation"
	ErrorCodeAuth       ErrorCode = "auth"
	ErrorCodeNetwork    ErrorCode = "network"
	ErrorCodeRunFailed  ErrorCode = "run_failed"
	ErrorCodeTimeout    ErrorCode = "timeout"
	ErrorCodeNoResponse ErrorCode = "no_response"
	ErrorCodeInternal   ErrorCode = "internal"
)

// =============================================================================
// Endpoint Names
// =============================================================================

// Endpoint labels which ask variant handled a request.
type Endpoint string

const (
	EndpointAsk       Endpoint = "ask"
	EndpointAskStream Endpoint = "ask_stream"
)

// =============================================================================
// Helper Methods
// =============================================================================

// RecordRequest records a completed request.
func (m *Metrics) RecordRequest(endpoint Endpoint, success bool) {
	status := "success"
	if !success {
		status = "error"
	}
	m.RequestsTotal.WithLabelValues(string(endpoint), status).Inc()
}

// RecordError records a categorized error.
func (m *Metrics) RecordError(endpoint Endpoint, code ErrorCode) {
	m.ErrorsTotal.WithLabelValues(string(endpoint), string(code)).Inc()
}

// RecordRunPolls records how many polls an agent run took.
func (m *Metrics) RecordRunPolls(endpoint Endpoint, polls int) {
	m.RunPolls.WithLabelValues(string(endpoint)).Observe(float64(polls))
}

// StreamStarted increments the active streams gauge.
func (m *Metrics) StreamStarted() {
	m.ActiveStreams.Inc()
}

// StreamEnded decrements the active streams gauge.
func (m *Metrics) StreamEnded() {
	m.ActiveStreams.Dec()
}

// RecordStreamDuration records the total stream duration.
func (m *Metrics) RecordStreamDuration(endpoint Endpoint, seconds float64, success bool) {
	status := "success"
	if !success {
		status = "error"
	}
	m.StreamDurationSeconds.WithLabelValues(string(endpoint), status).Observe(seconds)
}

// RecordRateLimited counts a rate-limiter rejection.
func (m *Metrics) RecordRateLimited() {
	m.RateLimitedTotal.Inc()
}

// RecordDedupHit counts a duplicate-submission cache hit.
func (m *Metrics) RecordDedupHit() {
	m.DedupHitsTotal.Inc()
}

// RecordValidationWarnings counts advisory warnings for a transcript.
func (m *Metrics) RecordValidationWarnings(endpoint Endpoint, count int) {
	if count <= 0 {
		return
	}
	m.ValidationWarningsTotal.WithLabelValues(string(endpoint)).Add(float64(count))
}
