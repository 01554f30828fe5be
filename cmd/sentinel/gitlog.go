// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/AleutianAI/AleutianSentinel/services/confidence"
)

// commitSeparator delimits commits in the git log stream. Chosen to
// never occur in diff content.
const commitSeparator = "\x1e"

// gitLogSource implements confidence.CommitSource by shelling out to
// git. The engine never sees the process; it only consumes Commit
// records through the interface.
type gitLogSource struct {
	repoDir string
}

func newGitLogSource(repoDir string) *gitLogSource {
	return &gitLogSource{repoDir: repoDir}
}

// RecentCommits reads the last limit commits with their unified diffs.
func (g *gitLogSource) RecentCommits(ctx context.Context, limit int) ([]confidence.Commit, error) {
	if limit <= 0 {
		limit = 10
	}
	format := commitSeparator + "%H%x1f%an%x1f%at%x1f%s"
	cmd := exec.CommandContext(ctx, "git", "-C", g.repoDir, "log",
		"-n", strconv.Itoa(limit), "-p", "--no-color", "--format="+format)

	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("git log failed: %w", err)
	}
	return parseGitLog(string(out)), nil
}

// parseGitLog splits the formatted git log stream into commits.
func parseGitLog(out string) []confidence.Commit {
	var commits []confidence.Commit
	for _, chunk := range strings.Split(out, commitSeparator) {
		if strings.TrimSpace(chunk) == "" {
			continue
		}
		header, body, _ := strings.Cut(chunk, "\n")
		fields := strings.Split(header, "\x1f")
		if len(fields) < 4 {
			continue
		}
		commit := confidence.Commit{
			Hash:    fields[0],
			Author:  fields[1],
			Message: fields[3],
			Diff:    body,
		}
		if epoch, err := strconv.ParseInt(fields[2], 10, 64); err == nil {
			commit.Time = time.Unix(epoch, 0)
		}
		commits = append(commits, commit)
	}
	return commits
}
