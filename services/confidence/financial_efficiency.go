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
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// costAvoidanceSubdir holds the dated avoided-cost evidence records.
const costAvoidanceSubdir = "cost-avoidance"

// costRecord is one dated avoided-cost evidence file.
type costRecord struct {
	Date        string  `json:"date"`
	AvoidedCost float64 `json:"avoided_cost"`
	Description string  `json:"description"`
}

// FinancialEfficiency is dimension 5: documented avoided cost is the
// evidence; any positive total yields the cap, absence is neutral.
type FinancialEfficiency struct {
	evidenceDir string
}

// NewFinancialEfficiency creates the dimension-5 analyzer.
func NewFinancialEfficiency(evidenceDir string) *FinancialEfficiency {
	return &FinancialEfficiency{evidenceDir: evidenceDir}
}

// Analyze sums the avoided-cost records. Missing directories or
// malformed records are tolerated; they simply contribute nothing.
func (a *FinancialEfficiency) Analyze(ctx context.Context) DimensionResult {
	result := DimensionResult{Dimension: 5, Name: "financial_efficiency"}

	dir := filepath.Join(a.evidenceDir, costAvoidanceSubdir)
	entries, err := os.ReadDir(dir)
	if err != nil {
		result.Score = NeutralScore
		result.Status = StatusEstimated
		result.Confidence = confidenceFor(result.Score)
		result.Details = "no cost-avoidance evidence"
		return result
	}

	var total float64
	var records int
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		data, readErr := os.ReadFile(filepath.Join(dir, entry.Name()))
		if readErr != nil {
			continue
		}
		var rec costRecord
		if err := json.Unmarshal(data, &rec); err != nil {
			slog.Warn("Skipping malformed cost record", "file", entry.Name(), "error", err)
			continue
		}
		total += rec.AvoidedCost
		records++
	}

	result.Evidence = map[string]any{
		"records":       records,
		"avoided_total": total,
	}
	result.Details = fmt.Sprintf("%d records, %.2f avoided", records, total)

	if total > 0 {
		result.Score = EpistemicCap
		result.Status = StatusPassed
	} else {
		result.Score = NeutralScore
		result.Status = StatusEstimated
	}
	result.Confidence = confidenceFor(result.Score)
	return result
}
