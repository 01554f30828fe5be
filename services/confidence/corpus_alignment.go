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
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// alignmentSignals is the fixed checklist of four markers a healthy
// training corpus carries. The quality score is the fraction present.
var alignmentSignals = []struct {
	name    string
	pattern *regexp.Regexp
}{
	{"law_reference", regexp.MustCompile(`(?i)\blaw\b|\bpolicy\s+statement\b`)},
	{"violation_pattern", regexp.MustCompile(`(?i)\bviolation\b|\bincident\b`)},
	{"correction", regexp.MustCompile(`(?i)\bcorrection\b|\bfix\b|\bremediation\b`)},
	{"verification", regexp.MustCompile(`(?i)\bverified\b|\bproven\b`)},
}

// CorpusAlignment is dimension 2: it scores the reference corpus of
// structured training records on size and on signal quality.
type CorpusAlignment struct {
	dir    string
	target int
}

// NewCorpusAlignment creates the dimension-2 analyzer. target <= 0
// uses CorpusTargetRecords.
func NewCorpusAlignment(dir string, target int) *CorpusAlignment {
	if target <= 0 {
		target = CorpusTargetRecords
	}
	return &CorpusAlignment{dir: dir, target: target}
}

// Analyze scores the corpus. Size ramps linearly to the cap at the
// target record count; quality is the fraction of alignment signals
// present across the corpus text; the final score is the rounded
// average of the two, capped. Aligned means score >= AlignedThreshold.
func (a *CorpusAlignment) Analyze(ctx context.Context) DimensionResult {
	result := DimensionResult{Dimension: 2, Name: "corpus_alignment"}

	entries, err := os.ReadDir(a.dir)
	if err != nil {
		slog.Warn("Reference corpus unavailable", "dir", a.dir, "error", err)
		result.Score = 0
		result.Status = StatusDegraded
		result.Confidence = confidenceFor(result.Score)
		result.Details = "reference corpus unavailable"
		return result
	}

	var records int
	var corpusText strings.Builder
	for _, entry := range entries {
		if entry.IsDir() || !isRecordFile(entry.Name()) {
			continue
		}
		records++
		data, readErr := os.ReadFile(filepath.Join(a.dir, entry.Name()))
		if readErr != nil {
			continue
		}
		corpusText.Write(data)
	}

	sizeScore := EpistemicCap
	if records < a.target {
		sizeScore = int(math.Round(float64(EpistemicCap) * float64(records) / float64(a.target)))
	}

	text := corpusText.String()
	var present int
	signalsFound := make([]string, 0, len(alignmentSignals))
	for _, signal := range alignmentSignals {
		if signal.pattern.MatchString(text) {
			present++
			signalsFound = append(signalsFound, signal.name)
		}
	}
	qualityScore := int(math.Round(float64(EpistemicCap) * float64(present) / float64(len(alignmentSignals))))

	result.Score = clampScore(int(math.Round(float64(sizeScore+qualityScore) / 2)))
	result.Confidence = confidenceFor(result.Score)
	result.Evidence = map[string]any{
		"records":       records,
		"target":        a.target,
		"size_score":    sizeScore,
		"quality_score": qualityScore,
		"signals":       signalsFound,
	}
	result.Details = fmt.Sprintf("%d/%d records, %d/%d signals", records, a.target, present, len(alignmentSignals))

	if result.Score >= AlignedThreshold {
		result.Status = StatusPassed
	} else {
		result.Status = StatusDegraded
	}
	return result
}

func isRecordFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".json", ".jsonl", ".yaml", ".yml":
		return true
	}
	return false
}
