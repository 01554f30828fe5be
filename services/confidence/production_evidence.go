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
	"math"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// HTTPClient allows injecting mock HTTP clients for testing.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Sub-score weights for the production dimension.
const (
	weightEndpointHealth = 0.4
	weightSecurityScan   = 0.3
	weightAnalytics      = 0.3

	endpointProbeTimeout = 5 * time.Second
)

// Evidence subdirectories consumed by this dimension.
const (
	securityScanSubdir = "security-scans"
	analyticsSubdir    = "analytics"
)

// scanRecord is one dated security-scan evidence file.
type scanRecord struct {
	Date               string `json:"date"`
	Critical           int    `json:"critical"`
	High               int    `json:"high"`
	Medium             int    `json:"medium"`
	ConfirmedMalicious bool   `json:"confirmed_malicious"`
}

// ProductionEvidence is dimension 3: live endpoint health plus
// security-scan and analytics evidence, weighted together.
type ProductionEvidence struct {
	client      HTTPClient
	endpoints   []string
	evidenceDir string
}

// NewProductionEvidence creates the dimension-3 analyzer. A nil client
// gets a default with the probe timeout.
func NewProductionEvidence(client HTTPClient, endpoints []string, evidenceDir string) *ProductionEvidence {
	if client == nil {
		client = &http.Client{Timeout: endpointProbeTimeout}
	}
	return &ProductionEvidence{client: client, endpoints: endpoints, evidenceDir: evidenceDir}
}

// Analyze combines three weighted sub-scores. Missing evidence yields
// a neutral sub-score, never an error. A confirmed-malicious scan
// forces MALICIOUS_DETECTED regardless of the numeric score; when all
// three sub-domains are fully clean the score short-circuits to the cap.
func (a *ProductionEvidence) Analyze(ctx context.Context) DimensionResult {
	result := DimensionResult{Dimension: 3, Name: "production_evidence"}

	healthScore, healthy, probed := a.probeEndpoints(ctx)
	scanScore, scanPresent, malicious := a.scoreSecurityScans()
	analyticsScore, analyticsPresent := a.scoreAnalytics()

	allClean := probed > 0 && healthy == probed &&
		scanPresent && scanScore == EpistemicCap &&
		analyticsPresent

	var score int
	if allClean {
		score = EpistemicCap
	} else {
		score = int(math.Round(
			float64(healthScore)*weightEndpointHealth +
				float64(scanScore)*weightSecurityScan +
				float64(analyticsScore)*weightAnalytics))
	}

	result.Score = clampScore(score)
	result.Confidence = confidenceFor(result.Score)
	result.Evidence = map[string]any{
		"endpoints_healthy": healthy,
		"endpoints_probed":  probed,
		"health_score":      healthScore,
		"scan_score":        scanScore,
		"scan_present":      scanPresent,
		"analytics_present": analyticsPresent,
	}
	result.Details = fmt.Sprintf("%d/%d endpoints healthy", healthy, probed)

	switch {
	case malicious:
		result.Status = StatusMalicious
	case allClean:
		result.Status = StatusPassed
	case !scanPresent && !analyticsPresent:
		result.Status = StatusEstimated
	default:
		result.Status = StatusDegraded
	}
	return result
}

// probeEndpoints returns the health sub-score, the healthy count, and
// the probed count. No configured endpoints yields a neutral score.
func (a *ProductionEvidence) probeEndpoints(ctx context.Context) (score, healthy, probed int) {
	if len(a.endpoints) == 0 {
		return NeutralScore, 0, 0
	}
	for _, endpoint := range a.endpoints {
		probed++
		if a.probeOne(ctx, endpoint) {
			healthy++
		}
	}
	score = int(math.Round(float64(EpistemicCap) * float64(healthy) / float64(probed)))
	return score, healthy, probed
}

func (a *ProductionEvidence) probeOne(ctx context.Context, endpoint string) bool {
	ctx, cancel := context.WithTimeout(ctx, endpointProbeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return false
	}
	resp, err := a.client.Do(req)
	if err != nil {
		slog.Debug("Endpoint probe failed", "endpoint", endpoint, "error", err)
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode >= 200 && resp.StatusCode <= 299
}

// scoreSecurityScans reads the most recent scan record. No scan data
// is a neutral 50, not zero.
func (a *ProductionEvidence) scoreSecurityScans() (score int, present, malicious bool) {
	path, ok := latestRecord(filepath.Join(a.evidenceDir, securityScanSubdir))
	if !ok {
		return NeutralScore, false, false
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return NeutralScore, false, false
	}
	var rec scanRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		slog.Warn("Skipping malformed scan record", "file", filepath.Base(path), "error", err)
		return NeutralScore, false, false
	}

	score = EpistemicCap - rec.Critical*30 - rec.High*10 - rec.Medium*3
	if score < 0 {
		score = 0
	}
	return score, true, rec.ConfirmedMalicious
}

// scoreAnalytics checks for analytics evidence: presence means the
// cap, absence means neutral.
func (a *ProductionEvidence) scoreAnalytics() (score int, present bool) {
	if _, ok := latestRecord(filepath.Join(a.evidenceDir, analyticsSubdir)); ok {
		return EpistemicCap, true
	}
	return NeutralScore, false
}

// latestRecord returns the most recent record file in dir, by
// descending filename sort (records are date-named).
func latestRecord(dir string) (string, bool) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", false
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			names = append(names, entry.Name())
		}
	}
	if len(names) == 0 {
		return "", false
	}
	sort.Sort(sort.Reverse(sort.StringSlice(names)))
	return filepath.Join(dir, names[0]), true
}
