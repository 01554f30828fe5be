// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.
package compliance

import (
	"context"
	"reflect"
	"testing"
	"time"
)

// testRule builds a compiled rule through the same parse path the
// registry uses.
func testRule(t *testing.T, id, severity string, patterns []string, impact *FinancialImpact) Rule {
	t.Helper()
	rec := RuleRecord{ID: id, Severity: severity, FinancialImpact: impact}
	rec.Pattern.Detection.TextPatterns = patterns
	rule, err := ParseRecord(rec)
	if err != nil {
		t.Fatalf("failed to build test rule %s: %v", id, err)
	}
	return rule
}

// testDetector returns a detector over a pre-seeded registry that
// never reaches remote or disk.
func testDetector(rules ...Rule) *Detector {
	set := &RuleSet{Rules: make(map[string]Rule), Source: SourceLocal, LoadedAt: time.Now()}
	for _, r := range rules {
		set.Rules[r.ID] = r
	}
	registry := NewRegistry(nil, "")
	registry.swap(set)
	return NewDetector(registry)
}

func testContext() AnalysisContext {
	return AnalysisContext{Source: "test", Timestamp: time.Unix(1700000000, 0)}
}

func TestDocumentationExemptionTakesAbsolutePrecedence(t *testing.T) {
	rule := testRule(t, RuleSecurityControlRemoval, "CRITICAL",
		[]string{`removed\s+security\s+scanning`}, nil)
	detector := testDetector(rule)

	// Text matches both the critical rule and the exemption.
	text := "Compliance report: we removed security scanning last sprint."
	report := detector.Analyze(context.Background(), text, testContext())

	if len(report.Violations) != 0 {
		t.Fatalf("expected zero violations under documentation exemption, got %d", len(report.Violations))
	}
	if len(report.Commendations) != 1 {
		t.Fatalf("expected exactly one commendation, got %d", len(report.Commendations))
	}
	if report.Commendations[0].Message != "DOCUMENTATION" {
		t.Errorf("expected DOCUMENTATION commendation, got %q", report.Commendations[0].Message)
	}
	if report.HasViolations || report.HasCritical {
		t.Error("documentation-exempt pass must not flag violations")
	}
}

func TestInvestorNarrativeSuppressesCostChecks(t *testing.T) {
	costRule := testRule(t, RuleHardcodedData, "HIGH",
		[]string{`hard-?coded\s+figures`}, nil)
	otherRule := testRule(t, RuleSecurityControlRemoval, "CRITICAL",
		[]string{`disabled\s+the\s+auth\s+check`}, nil)
	detector := testDetector(costRule, otherRule)

	text := "Investor update: we have hardcoded figures of $4,000,000 and disabled the auth check."
	report := detector.Analyze(context.Background(), text, testContext())

	// Cost rule and cost-magnitude heuristic are suppressed; the
	// security rule still fires.
	for _, v := range report.Violations {
		if v.RuleID == RuleHardcodedData {
			t.Error("cost rule must be suppressed during an investor-narrative pass")
		}
	}
	if len(report.Warnings) != 0 {
		t.Errorf("cost-magnitude heuristic must be suppressed, got warnings: %v", report.Warnings)
	}
	if len(report.Violations) != 1 || report.Violations[0].RuleID != RuleSecurityControlRemoval {
		t.Fatalf("expected the security rule to still fire, got %+v", report.Violations)
	}
	found := false
	for _, c := range report.Commendations {
		if c.Message == "BUSINESS_NARRATIVE" {
			found = true
		}
	}
	if !found {
		t.Error("expected a BUSINESS_NARRATIVE commendation")
	}
}

func TestCriticalViolationCarriesFinancialImpact(t *testing.T) {
	impact := &FinancialImpact{Min: 2500000, Max: 6000000, Proven: true}
	rule := testRule(t, RuleSecurityControlRemoval, "CRITICAL",
		[]string{`deleted\s+the\s+security\s+workflow`}, impact)
	detector := testDetector(rule)

	report := detector.Analyze(context.Background(),
		"this change deleted the security workflow from CI", testContext())

	if len(report.Violations) != 1 {
		t.Fatalf("expected one violation, got %d", len(report.Violations))
	}
	v := report.Violations[0]
	if v.Severity != SeverityCritical {
		t.Errorf("expected CRITICAL severity, got %s", v.Severity)
	}
	if v.Risk == nil || v.Risk.Min != 2500000 || v.Risk.Max != 6000000 || !v.Risk.Proven {
		t.Errorf("expected risk range {2500000, 6000000, proven}, got %+v", v.Risk)
	}
	if len(report.Commendations) != 0 {
		t.Errorf("expected no commendations, got %d", len(report.Commendations))
	}
	if !report.HasCritical {
		t.Error("HasCritical must be set")
	}
}

func TestFirstMatchWinsPerRule(t *testing.T) {
	rule := testRule(t, RuleUnauthorizedInfra, "HIGH",
		[]string{`added\s+redis`, `redis`}, nil)
	detector := testDetector(rule)

	report := detector.Analyze(context.Background(),
		"added redis and more redis everywhere", testContext())

	var ruleFindings int
	for _, v := range report.Violations {
		if v.RuleID == RuleUnauthorizedInfra {
			ruleFindings++
		}
	}
	if ruleFindings != 1 {
		t.Fatalf("expected exactly one finding for the rule, got %d", ruleFindings)
	}
}

func TestAbsentRuleEmitsNothing(t *testing.T) {
	detector := testDetector() // empty registry

	report := detector.Analyze(context.Background(),
		"deleted the security workflow and added alpine base image", testContext())

	for _, v := range report.Violations {
		if v.RuleID != "" {
			t.Errorf("empty registry must not produce rule-backed findings, got rule %s", v.RuleID)
		}
	}
}

func TestAllowListSuppressesScopedCheck(t *testing.T) {
	rule := testRule(t, RuleBuildPlatformFlag, "MEDIUM",
		[]string{`docker\s+build`}, nil)
	detector := testDetector(rule)
	actx := AnalysisContext{
		Source:    "test",
		Timestamp: time.Unix(1700000000, 0),
		FilePath:  ".github/workflows/deploy.yml",
	}

	tests := []struct {
		name      string
		text      string
		wantFired bool
	}{
		{"missing platform flag fires", "RUN docker build -t app .", true},
		{"platform flag suppresses", "RUN docker build --platform=linux/amd64 -t app .", false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			report := detector.Analyze(context.Background(), tc.text, actx)
			fired := false
			for _, v := range report.Violations {
				if v.RuleID == RuleBuildPlatformFlag {
					fired = true
				}
			}
			if fired != tc.wantFired {
				t.Errorf("fired=%t, want %t", fired, tc.wantFired)
			}
		})
	}
}

func TestPathScopingSkipsOutOfScopeFiles(t *testing.T) {
	rule := testRule(t, RuleThemeContract, "HIGH", []string{`<html`}, nil)
	detector := testDetector(rule)

	actx := testContext()
	actx.FilePath = "internal/server/main.go"
	report := detector.Analyze(context.Background(), "<html><body>generated</body>", actx)
	for _, v := range report.Violations {
		if v.RuleID == RuleThemeContract {
			t.Error("theme check must not run outside customer-facing markup")
		}
	}

	actx.FilePath = "docs/pricing.html"
	report = detector.Analyze(context.Background(), "<html><body>no theming here</body>", actx)
	fired := false
	for _, v := range report.Violations {
		if v.RuleID == RuleThemeContract {
			fired = true
		}
	}
	if !fired {
		t.Error("theme check must fire on customer-facing markup without theme tokens")
	}
}

func TestRuleRecordAppliesToNarrowsScope(t *testing.T) {
	rec := RuleRecord{ID: RuleUnauthorizedInfra, Severity: "HIGH"}
	rec.Pattern.Detection.TextPatterns = []string{`redis`}
	rec.AppliesTo = []string{"infra/"}
	rule, err := ParseRecord(rec)
	if err != nil {
		t.Fatalf("failed to parse rule: %v", err)
	}
	detector := testDetector(rule)

	actx := testContext()
	actx.FilePath = "docs/setup.md"
	report := detector.Analyze(context.Background(), "added redis", actx)
	for _, v := range report.Violations {
		if v.RuleID == RuleUnauthorizedInfra {
			t.Error("record-scoped rule must not fire outside its paths")
		}
	}

	actx.FilePath = "infra/cache.tf"
	report = detector.Analyze(context.Background(), "added redis", actx)
	fired := false
	for _, v := range report.Violations {
		if v.RuleID == RuleUnauthorizedInfra {
			fired = true
		}
	}
	if !fired {
		t.Error("record-scoped rule must fire inside its paths")
	}
}

func TestHeuristicsRunWithoutRules(t *testing.T) {
	detector := testDetector()

	report := detector.Analyze(context.Background(),
		"introduced kafka for $125,000 and verified the rollout", testContext())

	if len(report.Warnings) != 2 {
		t.Fatalf("expected infra and cost warnings, got %d: %+v", len(report.Warnings), report.Warnings)
	}
	if len(report.Commendations) != 1 {
		t.Fatalf("expected one commendation from the keyword scan, got %d", len(report.Commendations))
	}
}

func TestAnalyzeIsIdempotent(t *testing.T) {
	rule := testRule(t, RuleUnauthorizedInfra, "HIGH", []string{`redis`}, nil)
	detector := testDetector(rule)
	actx := testContext()
	text := "added redis, tested thoroughly"

	first := detector.Analyze(context.Background(), text, actx)
	second := detector.Analyze(context.Background(), text, actx)

	if !reflect.DeepEqual(first, second) {
		t.Errorf("identical inputs produced different reports:\n%+v\n%+v", first, second)
	}
}

func TestInfoSeverityRuleWarnsInsteadOfViolating(t *testing.T) {
	rule := testRule(t, RuleDirTraversalBeforeVCS, "INFO",
		[]string{`cd\s+\S+\s*&&\s*git\s`}, nil)
	detector := testDetector(rule)

	report := detector.Analyze(context.Background(),
		"cd service && git pull origin main", testContext())

	if len(report.Violations) != 0 {
		t.Fatalf("INFO rules must not violate, got %+v", report.Violations)
	}
	fired := false
	for _, w := range report.Warnings {
		if w.RuleID == RuleDirTraversalBeforeVCS {
			fired = true
		}
	}
	if !fired {
		t.Error("expected the INFO rule to warn")
	}

	// The sanctioned -C form is allow-listed.
	report = detector.Analyze(context.Background(),
		"cd logs && git -C service pull", testContext())
	for _, w := range report.Warnings {
		if w.RuleID == RuleDirTraversalBeforeVCS {
			t.Error("git -C form must suppress the check")
		}
	}
}
