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
	"regexp"
	"strings"
)

// Well-known rule identifiers. Each entry in the check table looks up
// its rule by identifier in the active set; an absent or malformed rule
// silently disables the check. Adding a check is an addition to this
// table, not new control flow in the detector.
const (
	RuleSecurityControlRemoval = "security_control_removal"
	RuleUnauthorizedInfra      = "unauthorized_infrastructure"
	RuleBaseImageFamily        = "disallowed_base_image"
	RuleBuildPlatformFlag      = "missing_build_platform_flag"
	RuleDirTraversalBeforeVCS  = "cd_before_vcs_command"
	RuleHardcodedData          = "hardcoded_data"
	RuleThemeContract          = "theme_contract_completeness"
)

// ruleCheck binds a rule identifier to its scoping predicates.
//
// appliesTo gates the check on the analysis context (file-path
// scoping); allowList suppresses the rule entirely when the text is
// known-correct (e.g. the build command does carry its platform flag).
// costCheck marks checks suppressed during an investor-narrative pass.
type ruleCheck struct {
	ruleID    string
	costCheck bool
	appliesTo func(actx AnalysisContext) bool
	allowList []*regexp.Regexp
}

// ruleChecks is the ordered check table. Order matters only for the
// ordering of findings in the report; each check is independent.
var ruleChecks = []ruleCheck{
	{ruleID: RuleSecurityControlRemoval},
	{ruleID: RuleUnauthorizedInfra},
	{ruleID: RuleBaseImageFamily},
	{
		ruleID:    RuleBuildPlatformFlag,
		appliesTo: isWorkflowContext,
		allowList: []*regexp.Regexp{
			regexp.MustCompile(`(?i)--platform[= ]\S+`),
		},
	},
	{
		ruleID: RuleDirTraversalBeforeVCS,
		allowList: []*regexp.Regexp{
			// The sanctioned shape: let the VCS change directory itself.
			regexp.MustCompile(`(?i)\bgit\s+-C\s+\S+`),
		},
	},
	{ruleID: RuleHardcodedData, costCheck: true},
	{
		ruleID:    RuleThemeContract,
		appliesTo: isCustomerDocContext,
		allowList: []*regexp.Regexp{
			regexp.MustCompile(`(?i)data-theme=`),
			regexp.MustCompile(`(?i)prefers-color-scheme`),
		},
	},
}

// isWorkflowContext scopes a check to workflow and deploy-path files.
func isWorkflowContext(actx AnalysisContext) bool {
	return pathMatchesAny(actx, []string{
		".github/workflows/", ".gitlab-ci", "deploy/", "dockerfile", ".yml", ".yaml",
	})
}

// isCustomerDocContext scopes a check to customer-facing markup.
func isCustomerDocContext(actx AnalysisContext) bool {
	return pathMatchesAny(actx, []string{".html", ".htm", "docs/"})
}

func pathMatchesAny(actx AnalysisContext, fragments []string) bool {
	paths := actx.Files
	if actx.FilePath != "" {
		paths = append(paths, actx.FilePath)
	}
	if len(paths) == 0 {
		// No path information: the check cannot be scoped, so it runs.
		return true
	}
	for _, p := range paths {
		lower := strings.ToLower(p)
		for _, frag := range fragments {
			if strings.Contains(lower, frag) {
				return true
			}
		}
	}
	return false
}

// =============================================================================
// EXCEPTION CLASSIFIERS
// =============================================================================

// documentationExemption recognizes policy-discussion text. A match
// short-circuits the whole analysis into a single DOCUMENTATION
// commendation; no rule is evaluated afterwards.
var documentationExemption = regexp.MustCompile(
	`(?i)(compliance\s+report|policy\s+discussion|violation\s+(summary|registry)|` +
		`lessons\s+learned|incident\s+post-?mortem|governance\s+review)`)

// investorNarrative recognizes business-narrative text. A match adds a
// commendation but rule evaluation continues with cost checks
// suppressed for the pass.
var investorNarrative = regexp.MustCompile(
	`(?i)(investor\s+(update|letter)|board\s+(deck|update)|fundrais\w+|` +
		`revenue\s+narrative|quarterly\s+business\s+review)`)

// =============================================================================
// HEURISTIC SCANS (not rule-backed)
// =============================================================================

// infraKeywordScan flags infrastructure components that have no place
// in a change set regardless of any rule being loaded.
var infraKeywordScan = regexp.MustCompile(
	`(?i)\b(redis|memcached|rabbitmq|kafka|zookeeper)\b`)

// costMagnitudeScan flags dollar figures large enough to warrant a
// financial review. Suppressed during an investor-narrative pass.
var costMagnitudeScan = regexp.MustCompile(
	`\$\s?\d{1,3}(,\d{3})+(\.\d+)?|\$\s?\d{5,}`)

// commendationScan runs unconditionally and independently of all rule
// checks.
var commendationScan = regexp.MustCompile(
	`(?i)\b(fixed|resolved|hardened|remediated|verified|tested|documented)\b`)
