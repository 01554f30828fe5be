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
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/AleutianAI/AleutianSentinel/pkg/validation"
)

// Severity is the severity level attached to a rule and copied onto
// every finding the rule produces.
type Severity string

const (
	SeverityCritical Severity = "CRITICAL"
	SeverityHigh     Severity = "HIGH"
	SeverityMedium   Severity = "MEDIUM"
	SeverityInfo     Severity = "INFO"
)

// ParseSeverity normalizes a severity string from a rule record.
// Unknown values degrade to MEDIUM rather than failing the record.
func ParseSeverity(s string) Severity {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "CRITICAL":
		return SeverityCritical
	case "HIGH":
		return SeverityHigh
	case "MEDIUM":
		return SeverityMedium
	case "INFO":
		return SeverityInfo
	default:
		return SeverityMedium
	}
}

// FinancialImpact is the optional cost range a rule attributes to the
// incident class it detects.
type FinancialImpact struct {
	Min    int64 `json:"min" yaml:"min"`
	Max    int64 `json:"max" yaml:"max"`
	Proven bool  `json:"proven" yaml:"proven"`
}

// Rule is one validated detection policy. Rules are immutable after
// parsing; the registry replaces the whole set on reload, never a rule
// in place.
type Rule struct {
	ID        string
	Severity  Severity
	Patterns  []string
	Law       string
	Fix       string
	Impact    *FinancialImpact
	AppliesTo []string

	compiled []*regexp.Regexp
}

// Match returns the index of the first pattern matching text, or -1.
// First-match-wins: callers must not continue testing later patterns.
func (r *Rule) Match(text string) int {
	for i, re := range r.compiled {
		if re.MatchString(text) {
			return i
		}
	}
	return -1
}

// RuleRecord is the wire/file shape of a rule, shared by the remote
// registry response and local fallback record files.
type RuleRecord struct {
	ID       string `json:"id" yaml:"id"`
	Severity string `json:"severity" yaml:"severity"`
	Pattern  struct {
		Detection struct {
			TextPatterns []string `json:"textPatterns" yaml:"textPatterns"`
		} `json:"detection" yaml:"detection"`
	} `json:"pattern" yaml:"pattern"`
	Law             string           `json:"law" yaml:"law"`
	Fix             string           `json:"fix" yaml:"fix"`
	FinancialImpact *FinancialImpact `json:"financialImpact" yaml:"financialImpact"`
	AppliesTo       []string         `json:"appliesTo" yaml:"appliesTo"`
}

// ParseRecord validates a raw record into a Rule. A record without an
// id or without at least one compilable pattern is rejected; callers
// skip rejected records and keep loading (parse-or-skip).
func ParseRecord(rec RuleRecord) (Rule, error) {
	rec.ID = strings.TrimSpace(rec.ID)
	if err := validation.ValidateRuleID(rec.ID); err != nil {
		return Rule{}, err
	}
	raw := rec.Pattern.Detection.TextPatterns
	if len(raw) == 0 {
		return Rule{}, fmt.Errorf("rule %s has no detection patterns", rec.ID)
	}

	rule := Rule{
		ID:        rec.ID,
		Severity:  ParseSeverity(rec.Severity),
		Law:       rec.Law,
		Fix:       rec.Fix,
		Impact:    rec.FinancialImpact,
		AppliesTo: rec.AppliesTo,
	}
	for _, src := range raw {
		re, err := compileInsensitive(src)
		if err != nil {
			// Bad pattern inside an otherwise valid rule: drop the
			// pattern, keep the rule if anything else compiles.
			continue
		}
		rule.Patterns = append(rule.Patterns, src)
		rule.compiled = append(rule.compiled, re)
	}
	if len(rule.compiled) == 0 {
		return Rule{}, fmt.Errorf("rule %s has no compilable patterns", rec.ID)
	}
	return rule, nil
}

// compileInsensitive compiles a pattern source case-insensitively
// unless the source already sets its own flags.
func compileInsensitive(src string) (*regexp.Regexp, error) {
	if !strings.HasPrefix(src, "(?") {
		src = "(?i)" + src
	}
	return regexp.Compile(src)
}

// LoadSource tags where the active rule set came from. A set is either
// fully remote or fully local for the duration of one load.
type LoadSource string

const (
	SourceLive  LoadSource = "LIVE"
	SourceLocal LoadSource = "LOCAL"
	SourceNone  LoadSource = "NONE"
)

// RuleSet is one wholesale load of the registry.
type RuleSet struct {
	Rules    map[string]Rule
	Source   LoadSource
	LoadedAt time.Time
}

// Lookup returns the rule for id, or false when the registry does not
// carry it. Checks backed by absent rules are skipped entirely.
func (s *RuleSet) Lookup(id string) (Rule, bool) {
	if s == nil || s.Rules == nil {
		return Rule{}, false
	}
	r, ok := s.Rules[id]
	return r, ok
}

// Len reports the number of rules in the set.
func (s *RuleSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Rules)
}

// FindingType classifies a finding.
type FindingType string

const (
	FindingViolation    FindingType = "VIOLATION"
	FindingWarning      FindingType = "WARNING"
	FindingCommendation FindingType = "COMMENDATION"
)

// AnalysisContext describes the provenance of the text under analysis.
// It is supplied by the caller and read-only to the detector.
type AnalysisContext struct {
	Source    string    `json:"source"`
	Timestamp time.Time `json:"timestamp"`
	Files     []string  `json:"files,omitempty"`
	FilePath  string    `json:"file_path,omitempty"`
}

// Finding is one immutable classified result of an analysis pass.
type Finding struct {
	Type     FindingType      `json:"type"`
	Severity Severity         `json:"severity,omitempty"`
	RuleID   string           `json:"rule_id,omitempty"`
	Message  string           `json:"message"`
	Details  string           `json:"details,omitempty"`
	Law      string           `json:"law,omitempty"`
	Risk     *FinancialImpact `json:"risk,omitempty"`
	Fix      string           `json:"fix,omitempty"`
	Context  AnalysisContext  `json:"context"`
}

// Report is the structured result of one Analyze call. The caller owns
// the report after return; the detector keeps no reference to it.
type Report struct {
	Violations    []Finding `json:"violations"`
	Warnings      []Finding `json:"warnings"`
	Commendations []Finding `json:"commendations"`
	HasViolations bool      `json:"has_violations"`
	HasCritical   bool      `json:"has_critical"`
}

func newReport() *Report {
	return &Report{
		Violations:    make([]Finding, 0),
		Warnings:      make([]Finding, 0),
		Commendations: make([]Finding, 0),
	}
}

func (r *Report) add(f Finding) {
	switch f.Type {
	case FindingViolation:
		r.Violations = append(r.Violations, f)
		r.HasViolations = true
		if f.Severity == SeverityCritical {
			r.HasCritical = true
		}
	case FindingWarning:
		r.Warnings = append(r.Warnings, f)
	case FindingCommendation:
		r.Commendations = append(r.Commendations, f)
	}
}
