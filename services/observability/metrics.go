// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package observability provides Prometheus metrics for the sentinel engine.
//
// # Description
//
// Metrics cover the hot paths of the engine:
//   - Detection: findings emitted by type and severity
//   - Registry: rule set loads by source (LIVE, LOCAL, NONE)
//   - Verification: correlation duration and the last confidence score
//   - Telemetry: event batch deliveries by terminal status
//
// # Integration
//
// Metrics are exposed on /metrics by the serve surface. Call InitMetrics()
// once at startup; all record helpers are nil-safe so library consumers
// that never initialize metrics pay nothing.
//
// # Thread Safety
//
// All metric operations are thread-safe via Prometheus's internal locking.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "sentinel"

// EngineMetrics holds all Prometheus metrics for the compliance engine.
type EngineMetrics struct {
	// FindingsTotal counts findings emitted by the detector.
	// Labels: type (VIOLATION, WARNING, COMMENDATION), severity
	FindingsTotal *prometheus.CounterVec

	// RegistryLoadsTotal counts rule set loads by source.
	// Labels: source (LIVE, LOCAL, NONE)
	RegistryLoadsTotal *prometheus.CounterVec

	// TelemetryBatchesTotal counts telemetry batch deliveries.
	// Labels: status (delivered, dropped)
	TelemetryBatchesTotal *prometheus.CounterVec

	// VerificationDurationSeconds measures one full five-dimension
	// verification pass.
	VerificationDurationSeconds prometheus.Histogram

	// ConfidenceScore tracks the last correlated confidence score.
	ConfidenceScore prometheus.Gauge
}

// DefaultMetrics is the singleton instance, set by InitMetrics().
var DefaultMetrics *EngineMetrics

// InitMetrics initializes and registers the default metrics instance.
// Call once at application startup.
func InitMetrics() *EngineMetrics {
	DefaultMetrics = &EngineMetrics{
		FindingsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "findings_total",
			Help:      "Findings emitted by the detector, by type and severity.",
		}, []string{"type", "severity"}),

		RegistryLoadsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "registry_loads_total",
			Help:      "Rule registry loads by source.",
		}, []string{"source"}),

		TelemetryBatchesTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "telemetry_batches_total",
			Help:      "Telemetry event batches by terminal delivery status.",
		}, []string{"status"}),

		VerificationDurationSeconds: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "verification_duration_seconds",
			Help:      "Duration of one five-dimension verification pass.",
			Buckets:   prometheus.DefBuckets,
		}),

		ConfidenceScore: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "confidence_score",
			Help:      "Final confidence score of the last verification pass.",
		}),
	}
	return DefaultMetrics
}

// RecordFinding increments the findings counter. Nil-safe.
func RecordFinding(findingType, severity string) {
	if DefaultMetrics == nil {
		return
	}
	DefaultMetrics.FindingsTotal.WithLabelValues(findingType, severity).Inc()
}

// RecordRegistryLoad increments the registry load counter. Nil-safe.
func RecordRegistryLoad(source string) {
	if DefaultMetrics == nil {
		return
	}
	DefaultMetrics.RegistryLoadsTotal.WithLabelValues(source).Inc()
}

// RecordTelemetryBatch increments the telemetry batch counter. Nil-safe.
func RecordTelemetryBatch(status string) {
	if DefaultMetrics == nil {
		return
	}
	DefaultMetrics.TelemetryBatchesTotal.WithLabelValues(status).Inc()
}

// ObserveVerification records a verification pass. Nil-safe.
func ObserveVerification(seconds float64, finalScore int) {
	if DefaultMetrics == nil {
		return
	}
	DefaultMetrics.VerificationDurationSeconds.Observe(seconds)
	DefaultMetrics.ConfidenceScore.Set(float64(finalScore))
}
