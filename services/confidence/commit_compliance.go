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
	"time"

	"github.com/sourcegraph/go-diff/diff"

	"github.com/AleutianAI/AleutianSentinel/services/compliance"
)

// Commit is one version-control change supplied by the collaborator
// that shells out to the VCS. The engine only ever sees this record.
type Commit struct {
	Hash    string
	Author  string
	Message string
	Diff    string
	Time    time.Time
}

// CommitSource supplies recent commit diffs. Implementations live on
// the collaborator side (e.g. a git process adapter); tests inject
// fakes.
type CommitSource interface {
	RecentCommits(ctx context.Context, limit int) ([]Commit, error)
}

// Score deductions per finding class for the commit dimension.
const (
	deductionCritical     = 20
	deductionViolation    = 10
	commendationBonus     = 2
	defaultCommitLookback = 10
)

// CommitCompliance is dimension 1: it replays the detector over recent
// history and scores the result.
type CommitCompliance struct {
	detector *compliance.Detector
	source   CommitSource
	lookback int
}

// NewCommitCompliance creates the dimension-1 analyzer. Panics on a
// nil detector; a nil source yields an estimated neutral result.
func NewCommitCompliance(detector *compliance.Detector, source CommitSource, lookback int) *CommitCompliance {
	if detector == nil {
		panic("NewCommitCompliance: detector must not be nil")
	}
	if lookback <= 0 {
		lookback = defaultCommitLookback
	}
	return &CommitCompliance{detector: detector, source: source, lookback: lookback}
}

// Analyze scores commit history compliance. History that cannot be
// read is data, not an error: the result degrades to an estimated
// neutral score.
func (a *CommitCompliance) Analyze(ctx context.Context) DimensionResult {
	result := DimensionResult{Dimension: 1, Name: "commit_compliance"}

	if a.source == nil {
		result.Score = NeutralScore
		result.Status = StatusEstimated
		result.Confidence = confidenceFor(result.Score)
		result.Details = "no commit source configured"
		return result
	}

	commits, err := a.source.RecentCommits(ctx, a.lookback)
	if err != nil || len(commits) == 0 {
		if err != nil {
			slog.Warn("Commit history unavailable", "error", err)
		}
		result.Score = NeutralScore
		result.Status = StatusEstimated
		result.Confidence = confidenceFor(result.Score)
		result.Details = "commit history unavailable"
		return result
	}

	var criticals, violations, commendations int
	for _, commit := range commits {
		for _, report := range a.analyzeCommit(ctx, commit) {
			for _, v := range report.Violations {
				if v.Severity == compliance.SeverityCritical {
					criticals++
				} else {
					violations++
				}
			}
			commendations += len(report.Commendations)
		}
	}

	score := EpistemicCap -
		criticals*deductionCritical -
		violations*deductionViolation +
		commendations*commendationBonus

	result.Score = clampScore(score)
	result.Confidence = confidenceFor(result.Score)
	result.Evidence = map[string]any{
		"commits":       len(commits),
		"criticals":     criticals,
		"violations":    violations,
		"commendations": commendations,
	}
	result.Details = fmt.Sprintf("%d commits analyzed", len(commits))

	switch {
	case criticals > 0:
		result.Status = StatusFailed
	case violations > 0:
		result.Status = StatusDegraded
	default:
		result.Status = StatusPassed
	}
	return result
}

// analyzeCommit runs one detector pass per changed file when the diff
// parses, falling back to a single whole-diff pass when it does not.
func (a *CommitCompliance) analyzeCommit(ctx context.Context, commit Commit) []*compliance.Report {
	fileDiffs, err := diff.ParseMultiFileDiff([]byte(commit.Diff))
	if err != nil || len(fileDiffs) == 0 {
		actx := compliance.AnalysisContext{
			Source:    "commit:" + commit.Hash,
			Timestamp: commit.Time,
		}
		return []*compliance.Report{
			a.detector.Analyze(ctx, commit.Message+"\n"+commit.Diff, actx),
		}
	}

	reports := make([]*compliance.Report, 0, len(fileDiffs))
	for _, fd := range fileDiffs {
		var body []byte
		for _, hunk := range fd.Hunks {
			body = append(body, hunk.Body...)
		}
		actx := compliance.AnalysisContext{
			Source:    "commit:" + commit.Hash,
			Timestamp: commit.Time,
			FilePath:  fd.NewName,
		}
		reports = append(reports, a.detector.Analyze(ctx, commit.Message+"\n"+string(body), actx))
	}
	return reports
}
