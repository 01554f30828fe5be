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
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"
)

// Decay band slopes in points per day past the band start.
const (
	decaySlopeStale  = 0.25 // days 8-30
	decaySlopeOld    = 0.5  // days 31+
	decayStaleOffset = 6.0  // decay points at the start of the old band
)

// TemporalDecay is dimension 4: confidence decays with elapsed time
// since the last relevant change.
type TemporalDecay struct {
	source CommitSource
	now    func() time.Time
}

// NewTemporalDecay creates the dimension-4 analyzer. The now hook
// exists for tests; nil uses time.Now.
func NewTemporalDecay(source CommitSource, now func() time.Time) *TemporalDecay {
	if now == nil {
		now = time.Now
	}
	return &TemporalDecay{source: source, now: now}
}

// Analyze derives a decay deduction from the age of the most recent
// change: zero within DecayFreshDays, then two linearly increasing
// bands, capped at DecayCapPoints. The score is the cap minus the
// deduction, floored at zero.
func (a *TemporalDecay) Analyze(ctx context.Context) DimensionResult {
	result := DimensionResult{Dimension: 4, Name: "temporal_decay"}

	last, ok := a.lastChange(ctx)
	if !ok {
		result.Score = NeutralScore
		result.Status = StatusEstimated
		result.Confidence = confidenceFor(result.Score)
		result.Details = "last change time unknown"
		return result
	}

	days := int(a.now().Sub(last).Hours() / 24)
	if days < 0 {
		days = 0
	}
	decay := decayPoints(days)

	result.Score = clampScore(EpistemicCap - decay)
	result.Confidence = confidenceFor(result.Score)
	result.Evidence = map[string]any{
		"days_since_change": days,
		"decay_points":      decay,
	}
	result.Details = fmt.Sprintf("%d days since last change, %d decay points", days, decay)

	if decay == 0 {
		result.Status = StatusPassed
	} else {
		result.Status = StatusDegraded
	}
	return result
}

// decayPoints maps elapsed days onto the banded decay curve.
func decayPoints(days int) int {
	switch {
	case days <= DecayFreshDays:
		return 0
	case days <= DecayStaleDays:
		return int(math.Round(float64(days-DecayFreshDays) * decaySlopeStale))
	default:
		points := decayStaleOffset + float64(days-DecayStaleDays)*decaySlopeOld
		if points > DecayCapPoints {
			return DecayCapPoints
		}
		return int(math.Round(points))
	}
}

func (a *TemporalDecay) lastChange(ctx context.Context) (time.Time, bool) {
	if a.source == nil {
		return time.Time{}, false
	}
	commits, err := a.source.RecentCommits(ctx, 1)
	if err != nil || len(commits) == 0 {
		if err != nil {
			slog.Warn("Last change lookup failed", "error", err)
		}
		return time.Time{}, false
	}
	return commits[0].Time, true
}
