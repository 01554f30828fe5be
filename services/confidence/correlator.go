// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.
package confidence

import (
	"fmt"
	"math"
	"time"

	"github.com/montanaflynn/stats"
)

// DimensionCount is the fixed number of evidence dimensions one
// correlation pass combines.
const DimensionCount = 5

// Correlate combines exactly five dimension results into one verdict.
//
// # Description
//
// Pure function of its inputs; no I/O. Each dimension score is clamped
// independently before averaging (out-of-band ESTIMATED scores get the
// same treatment as any other score). Then:
//
//	average  = mean(scores)
//	maxDrift = max(scores) - min(scores)
//	hasDrift = maxDrift > DriftThreshold
//
// Status is DRIFT_DETECTED when drifting, INCONSISTENT when the
// average is below CompliantAverage, GODEL_COMPLIANT otherwise. The
// final score is min(round(average), EpistemicCap).
//
// # Outputs
//
//   - *CorrelationResult: The correlated verdict
//   - error: Non-nil only for a broken call site (wrong result count)
func Correlate(results []DimensionResult) (*CorrelationResult, error) {
	if len(results) != DimensionCount {
		return nil, fmt.Errorf("correlator requires exactly %d dimension results, got %d",
			DimensionCount, len(results))
	}

	scores := make([]float64, DimensionCount)
	dims := make([]DimensionResult, DimensionCount)
	for i, res := range results {
		res.Score = clampScore(res.Score)
		dims[i] = res
		scores[i] = float64(res.Score)
	}

	average, err := stats.Mean(scores)
	if err != nil {
		return nil, fmt.Errorf("failed to average dimension scores: %w", err)
	}
	lowest, err := stats.Min(scores)
	if err != nil {
		return nil, fmt.Errorf("failed to find minimum score: %w", err)
	}
	highest, err := stats.Max(scores)
	if err != nil {
		return nil, fmt.Errorf("failed to find maximum score: %w", err)
	}

	maxDrift := int(highest - lowest)
	hasDrift := maxDrift > DriftThreshold

	status := OverallCompliant
	switch {
	case hasDrift:
		status = OverallDrift
	case average < CompliantAverage:
		status = OverallInconsistent
	}

	finalScore := int(math.Round(average))
	if finalScore > EpistemicCap {
		finalScore = EpistemicCap
	}

	return &CorrelationResult{
		FinalScore:   finalScore,
		Status:       status,
		Dimensions:   dims,
		AverageScore: average,
		MaxDrift:     maxDrift,
		HasDrift:     hasDrift,
		EpistemicCap: EpistemicCap,
		Buffer:       EpistemicBuffer,
		VerifiedAt:   time.Now(),
	}, nil
}
