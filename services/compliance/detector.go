// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package compliance implements the rule registry and the
// violation/commendation detector: text plus context in, classified
// findings out.
package compliance

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"sync"

	"github.com/AleutianAI/AleutianSentinel/services/observability"
)

// Detector applies the active rule set plus heuristic scans to an
// input text and emits classified findings.
//
// # Description
//
// One Analyze pass walks, in order:
//  1. the documentation-exemption classifier (absolute precedence)
//  2. the investor-narrative classifier (soft exception)
//  3. the ordered rule-check table (first-match-wins per rule)
//  4. heuristic scans and the unconditional commendation scan
//
// The registry is loaded lazily on the first pass and reused until
// Reset is called. Analyze never mutates the rule set and has no side
// effects beyond the returned report and metrics.
//
// # Thread Safety
//
// Detector is safe for concurrent use; each pass is stateless beyond
// its own inputs and the immutable rule set reference it takes once.
type Detector struct {
	registry *Registry

	mu       sync.Mutex
	loadOnce *sync.Once
}

// NewDetector creates a detector over the given registry. Panics on a
// nil registry (fail-fast for programming errors).
func NewDetector(registry *Registry) *Detector {
	if registry == nil {
		panic("NewDetector: registry must not be nil")
	}
	return &Detector{registry: registry, loadOnce: new(sync.Once)}
}

// Reset discards the lazy-load guard so the next Analyze call loads a
// fresh rule set.
func (d *Detector) Reset() {
	d.mu.Lock()
	d.loadOnce = new(sync.Once)
	d.mu.Unlock()
}

// Analyze evaluates text under the supplied context and returns the
// accumulated findings. It never returns an error for runtime data;
// malformed rules behave as absent rules.
func (d *Detector) Analyze(ctx context.Context, text string, actx AnalysisContext) *Report {
	d.ensureLoaded(ctx)
	rules := d.registry.Current()
	report := newReport()

	// Documentation exemption takes absolute precedence: one
	// commendation, nothing else is evaluated.
	if documentationExemption.MatchString(text) {
		d.emit(report, Finding{
			Type:     FindingCommendation,
			Severity: SeverityInfo,
			Message:  "DOCUMENTATION",
			Details:  "Policy-discussion text is exempt from rule evaluation",
			Context:  actx,
		})
		return report
	}

	// Investor narrative: commend and continue, with cost checks
	// suppressed for this pass only.
	suppressCost := false
	if investorNarrative.MatchString(text) {
		suppressCost = true
		d.emit(report, Finding{
			Type:     FindingCommendation,
			Severity: SeverityInfo,
			Message:  "BUSINESS_NARRATIVE",
			Details:  "Investor/business narrative recognized; financial-cost checks suppressed",
			Context:  actx,
		})
	}

	for _, check := range ruleChecks {
		if suppressCost && check.costCheck {
			continue
		}
		if check.appliesTo != nil && !check.appliesTo(actx) {
			continue
		}
		rule, ok := rules.Lookup(check.ruleID)
		if !ok {
			// Absent rule: the check is disabled, no finding.
			continue
		}
		// A record can narrow its own scope beyond the table's predicate.
		if len(rule.AppliesTo) > 0 && !pathMatchesAny(actx, rule.AppliesTo) {
			continue
		}
		if matchesAllowList(text, check.allowList) {
			continue
		}
		idx := rule.Match(text)
		if idx < 0 {
			continue
		}
		// Exactly one finding per rule per pass, severity copied from
		// the rule record.
		d.emit(report, Finding{
			Type:     findingTypeFor(rule.Severity),
			Severity: rule.Severity,
			RuleID:   rule.ID,
			Message:  fmt.Sprintf("Rule %s matched", rule.ID),
			Details:  fmt.Sprintf("Pattern %d of %d matched", idx+1, len(rule.Patterns)),
			Law:      rule.Law,
			Risk:     rule.Impact,
			Fix:      rule.Fix,
			Context:  actx,
		})
	}

	d.runHeuristics(report, text, actx, suppressCost)

	slog.Debug("Analysis pass complete",
		"source", actx.Source,
		"violations", len(report.Violations),
		"warnings", len(report.Warnings),
		"commendations", len(report.Commendations))
	return report
}

// ensureLoaded performs the lazy one-time registry load.
func (d *Detector) ensureLoaded(ctx context.Context) {
	d.mu.Lock()
	once := d.loadOnce
	d.mu.Unlock()
	once.Do(func() {
		if d.registry.Current() == nil {
			d.registry.Load(ctx)
		}
	})
}

func (d *Detector) emit(report *Report, f Finding) {
	report.add(f)
	observability.RecordFinding(string(f.Type), string(f.Severity))
}

// runHeuristics performs the non-rule-backed scans: the infrastructure
// keyword scan and the cost magnitude scan (both skipped under an
// investor-narrative pass), and the commendation keyword scan which
// runs unconditionally.
func (d *Detector) runHeuristics(report *Report, text string, actx AnalysisContext, suppressCost bool) {
	if !suppressCost {
		if match := infraKeywordScan.FindString(text); match != "" {
			d.emit(report, Finding{
				Type:     FindingWarning,
				Severity: SeverityMedium,
				Message:  "Disallowed infrastructure keyword",
				Details:  fmt.Sprintf("Keyword %q present in change text", strings.ToLower(match)),
				Context:  actx,
			})
		}
		if match := costMagnitudeScan.FindString(text); match != "" {
			d.emit(report, Finding{
				Type:     FindingWarning,
				Severity: SeverityMedium,
				Message:  "Large cost figure requires financial review",
				Details:  fmt.Sprintf("Figure %q present in change text", match),
				Context:  actx,
			})
		}
	}

	if keywords := dedupeLower(commendationScan.FindAllString(text, -1)); len(keywords) > 0 {
		d.emit(report, Finding{
			Type:     FindingCommendation,
			Severity: SeverityInfo,
			Message:  "Remediation language present",
			Details:  strings.Join(keywords, ", "),
			Context:  actx,
		})
	}
}

func matchesAllowList(text string, allowList []*regexp.Regexp) bool {
	for _, re := range allowList {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}

// findingTypeFor maps rule severity to a finding classification:
// INFO-severity rules warn, everything else is a violation.
func findingTypeFor(sev Severity) FindingType {
	if sev == SeverityInfo {
		return FindingWarning
	}
	return FindingViolation
}

func dedupeLower(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		lower := strings.ToLower(s)
		if _, ok := seen[lower]; ok {
			continue
		}
		seen[lower] = struct{}{}
		out = append(out, lower)
	}
	return out
}
