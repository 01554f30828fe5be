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
	"math"
	"testing"
)

func dimsFromScores(scores []int) []DimensionResult {
	dims := make([]DimensionResult, len(scores))
	for i, s := range scores {
		dims[i] = DimensionResult{
			Dimension: i + 1,
			Score:     s,
			Status:    StatusPassed,
		}
	}
	return dims
}

func TestCorrelateCompliantVerdict(t *testing.T) {
	result, err := Correlate(dimsFromScores([]int{95, 89, 90, 95, 95}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.MaxDrift != 6 {
		t.Errorf("max drift = %d, want 6", result.MaxDrift)
	}
	if math.Abs(result.AverageScore-92.8) > 1e-9 {
		t.Errorf("average = %f, want 92.8", result.AverageScore)
	}
	if result.FinalScore != 93 {
		t.Errorf("final score = %d, want 93", result.FinalScore)
	}
	if result.Status != OverallCompliant {
		t.Errorf("status = %s, want %s", result.Status, OverallCompliant)
	}
	if result.HasDrift {
		t.Error("drift flag must be clear at spread 6")
	}
	if result.EpistemicCap != EpistemicCap || result.Buffer != EpistemicBuffer {
		t.Errorf("cap/buffer = %d/%d, want %d/%d",
			result.EpistemicCap, result.Buffer, EpistemicCap, EpistemicBuffer)
	}
}

func TestCorrelateDriftDominatesAverage(t *testing.T) {
	// High average but one outlier: drift wins.
	result, err := Correlate(dimsFromScores([]int{95, 95, 95, 95, 80}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.MaxDrift != 15 {
		t.Errorf("max drift = %d, want 15", result.MaxDrift)
	}
	if !result.HasDrift {
		t.Error("drift flag must be set at spread 15")
	}
	if result.Status != OverallDrift {
		t.Errorf("status = %s, want %s", result.Status, OverallDrift)
	}
}

func TestCorrelateInconsistentOnLowAverage(t *testing.T) {
	// Perfectly consistent but too low.
	result, err := Correlate(dimsFromScores([]int{80, 80, 80, 80, 80}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.MaxDrift != 0 {
		t.Errorf("max drift = %d, want 0", result.MaxDrift)
	}
	if result.Status != OverallInconsistent {
		t.Errorf("status = %s, want %s", result.Status, OverallInconsistent)
	}
	if result.FinalScore != 80 {
		t.Errorf("final score = %d, want 80", result.FinalScore)
	}
}

func TestCorrelateBoundaryConditions(t *testing.T) {
	tests := []struct {
		name       string
		scores     []int
		wantDrift  bool
		wantStatus OverallStatus
	}{
		{"drift exactly at threshold passes", []int{95, 95, 95, 95, 85}, false, OverallCompliant},
		{"drift one over threshold fails", []int{95, 95, 95, 95, 84}, true, OverallDrift},
		{"average exactly at floor passes", []int{85, 85, 85, 85, 85}, false, OverallCompliant},
		{"average just below floor fails", []int{85, 85, 85, 85, 84}, false, OverallInconsistent},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			result, err := Correlate(dimsFromScores(tc.scores))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if result.HasDrift != tc.wantDrift {
				t.Errorf("hasDrift = %t, want %t", result.HasDrift, tc.wantDrift)
			}
			if result.Status != tc.wantStatus {
				t.Errorf("status = %s, want %s", result.Status, tc.wantStatus)
			}
		})
	}
}

func TestCorrelateClampsBeforeAveraging(t *testing.T) {
	result, err := Correlate(dimsFromScores([]int{120, 95, 95, 95, -10}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// 120 clamps to 95, -10 to 0, so the spread is 95.
	if result.Dimensions[0].Score != EpistemicCap {
		t.Errorf("score above the cap must clamp to %d, got %d", EpistemicCap, result.Dimensions[0].Score)
	}
	if result.Dimensions[4].Score != 0 {
		t.Errorf("negative score must clamp to 0, got %d", result.Dimensions[4].Score)
	}
	if result.MaxDrift != 95 {
		t.Errorf("max drift = %d, want 95", result.MaxDrift)
	}
	if result.FinalScore > EpistemicCap {
		t.Errorf("final score %d exceeds the cap", result.FinalScore)
	}
}

func TestCorrelateRejectsWrongArity(t *testing.T) {
	for _, n := range []int{0, 1, 4, 6} {
		scores := make([]int, n)
		if _, err := Correlate(dimsFromScores(scores)); err == nil {
			t.Errorf("expected error for %d results", n)
		}
	}
}
