// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package confidence scores five independent evidence dimensions and
// correlates them into one bounded confidence verdict with drift
// detection.
package confidence

import (
	"context"
	"time"
)

// Tuning constants. These are product-calibrated values, preserved as
// named constants rather than derived quantities. Overridable ones are
// carried on the analyzer configs.
const (
	// EpistemicCap is the hard ceiling no score may exceed, enforced
	// at the point of emission.
	EpistemicCap = 95

	// EpistemicBuffer is the reserved headroom above the cap.
	EpistemicBuffer = 5

	// DriftThreshold is the maximum score spread tolerated across the
	// five dimensions before the pass is flagged as drifting.
	DriftThreshold = 10

	// CompliantAverage is the minimum average score for an overall
	// compliant verdict.
	CompliantAverage = 85.0

	// NeutralScore is substituted when a dimension has no evidence
	// either way.
	NeutralScore = 50

	// CorpusTargetRecords is the record count at which the corpus size
	// score reaches the cap.
	CorpusTargetRecords = 50

	// AlignedThreshold is the minimum corpus score to count as aligned.
	AlignedThreshold = 90

	// DecayFreshDays is the window with zero temporal decay.
	DecayFreshDays = 7

	// DecayStaleDays ends the first decay band.
	DecayStaleDays = 30

	// DecayCapPoints caps the temporal decay deduction.
	DecayCapPoints = 10
)

// Status tags the outcome of one dimension analysis.
type Status string

const (
	StatusPassed    Status = "PASSED"
	StatusDrift     Status = "DRIFT_DETECTED"
	StatusDegraded  Status = "DEGRADED"
	StatusFailed    Status = "FAILED"
	StatusError     Status = "ERROR"
	StatusEstimated Status = "ESTIMATED"
	StatusMalicious Status = "MALICIOUS_DETECTED"
)

// OverallStatus classifies the correlated system state.
type OverallStatus string

const (
	OverallCompliant    OverallStatus = "GODEL_COMPLIANT"
	OverallDrift        OverallStatus = "DRIFT_DETECTED"
	OverallInconsistent OverallStatus = "INCONSISTENT"
)

// DimensionResult is the bounded score one analyzer produced for its
// evidence domain. Scores are clamped to [0, EpistemicCap] at the
// point of emission, independently of the later averaging step.
type DimensionResult struct {
	Dimension  int            `json:"dimension"`
	Name       string         `json:"name"`
	Score      int            `json:"score"`
	Confidence float64        `json:"confidence"`
	Status     Status         `json:"status"`
	Evidence   map[string]any `json:"evidence,omitempty"`
	Details    string         `json:"details,omitempty"`
}

// CorrelationResult combines the five dimension results into one
// capped, drift-checked verdict.
type CorrelationResult struct {
	FinalScore   int               `json:"final_score"`
	Status       OverallStatus     `json:"status"`
	Dimensions   []DimensionResult `json:"dimensions"`
	AverageScore float64           `json:"average_score"`
	MaxDrift     int               `json:"max_drift"`
	HasDrift     bool              `json:"has_drift"`
	EpistemicCap int               `json:"epistemic_cap"`
	Buffer       int               `json:"buffer"`
	VerifiedAt   time.Time         `json:"verified_at"`
}

// Analyzer scores one evidence domain. Implementations catch their own
// I/O and network errors and substitute a neutral or zero score with an
// explanatory status; Analyze never panics by contract and never
// returns an error.
type Analyzer interface {
	Analyze(ctx context.Context) DimensionResult
}

// clampScore enforces the epistemic cap and the zero floor on one
// dimension score before it leaves an analyzer.
func clampScore(score int) int {
	if score > EpistemicCap {
		return EpistemicCap
	}
	if score < 0 {
		return 0
	}
	return score
}

// confidenceFor derives the per-dimension confidence figure from the
// clamped score.
func confidenceFor(score int) float64 {
	return float64(clampScore(score)) / float64(EpistemicCap)
}
