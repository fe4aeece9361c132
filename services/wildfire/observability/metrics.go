// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package observability provides metrics and instrumentation for the
// wildfire service.
//
// # Description
//
// This package implements Prometheus metrics for monitoring the
// orchestration pipeline. Metrics include:
//   - Plan attempt and validation-violation counters
//   - Acceptance histograms (attempts consumed per accepted plan)
//   - Fallback counters
//   - Active websocket gauges
//
// # Integration
//
// Metrics are exposed via /metrics endpoint. Use with Prometheus + Grafana
// for dashboards and alerting.
//
// # Thread Safety
//
// All metric operations are thread-safe via Prometheus's internal locking.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Namespace for all metrics
const metricsNamespace = "wildfireos"

// Subsystem for pipeline metrics
const pipelineSubsystem = "pipeline"

// PipelineMetrics holds all Prometheus metrics for orchestration runs.
//
// Initialize once at startup via InitMetrics; it satisfies the engine's
// MetricsRecorder.
type PipelineMetrics struct {
	// PlanAttemptsTotal counts every plan attempt including retries.
	PlanAttemptsTotal prometheus.Counter

	// ViolationsTotal counts validator violations by count at rejection.
	ViolationsTotal prometheus.Counter

	// AcceptedAttempts measures how many attempts accepted plans consumed.
	AcceptedAttempts prometheus.Histogram

	// FallbacksTotal counts runs that exhausted every attempt.
	FallbacksTotal prometheus.Counter

	// ActiveWebsockets tracks currently connected status observers.
	ActiveWebsockets prometheus.Gauge

	// TickDurationSeconds measures end-to-end analysis duration per tick.
	TickDurationSeconds prometheus.Histogram

	// AgentLatencySeconds measures per-call agent latency by capability.
	AgentLatencySeconds *prometheus.HistogramVec
}

// DefaultMetrics is the singleton instance created by InitMetrics.
var DefaultMetrics *PipelineMetrics

// InitMetrics creates and registers all pipeline metrics on the default
// registry. Call once at startup; a second call panics on duplicate
// registration.
func InitMetrics() *PipelineMetrics {
	DefaultMetrics = &PipelineMetrics{
		PlanAttemptsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: pipelineSubsystem,
			Name:      "plan_attempts_total",
			Help:      "Total plan attempts, including validator-forced replans",
		}),

		ViolationsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: pipelineSubsystem,
			Name:      "validation_violations_total",
			Help:      "Total guardrail violations raised by the validator",
		}),

		AcceptedAttempts: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: pipelineSubsystem,
			Name:      "accepted_plan_attempts",
			Help:      "Attempts consumed by each accepted plan",
			Buckets:   []float64{1, 2, 3},
		}),

		FallbacksTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: pipelineSubsystem,
			Name:      "fallbacks_total",
			Help:      "Runs that exhausted all plan attempts and returned the fallback payload",
		}),

		ActiveWebsockets: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: pipelineSubsystem,
			Name:      "active_websockets",
			Help:      "Currently connected status websocket clients",
		}),

		TickDurationSeconds: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: pipelineSubsystem,
			Name:      "tick_duration_seconds",
			Help:      "End-to-end analysis duration per simulation tick",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60},
		}),

		AgentLatencySeconds: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: pipelineSubsystem,
			Name:      "agent_latency_seconds",
			Help:      "Per-call agent latency by capability, retries included",
			Buckets:   prometheus.DefBuckets,
		}, []string{"variant"}),
	}
	return DefaultMetrics
}

// RecordAttempt implements engine.MetricsRecorder.
func (m *PipelineMetrics) RecordAttempt() {
	m.PlanAttemptsTotal.Inc()
}

// RecordViolations implements engine.MetricsRecorder.
func (m *PipelineMetrics) RecordViolations(count int) {
	m.ViolationsTotal.Add(float64(count))
}

// RecordAccepted implements engine.MetricsRecorder.
func (m *PipelineMetrics) RecordAccepted(attempts int) {
	m.AcceptedAttempts.Observe(float64(attempts))
}

// RecordFallback implements engine.MetricsRecorder.
func (m *PipelineMetrics) RecordFallback() {
	m.FallbacksTotal.Inc()
}

// RecordAgentLatency implements engine.AgentLatencyRecorder.
func (m *PipelineMetrics) RecordAgentLatency(variant string, d time.Duration) {
	m.AgentLatencySeconds.WithLabelValues(variant).Observe(d.Seconds())
}
