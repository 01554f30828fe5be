// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package validation provides input validation utilities for security-critical operations.
//
// This package contains validators for identifiers that end up in URL
// paths, file names, or log records. Using these validators prevents
// injection attacks (path traversal, URL smuggling, log forging).
package validation

import (
	"fmt"
	"regexp"
)

// agentPattern matches valid agent names for the ingest path.
// Allows: lowercase letters, digits, hyphens. Max length: 64.
var agentPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9\-]{0,63}$`)

// ruleIDPattern matches valid rule identifiers.
// Allows: lowercase letters, digits, underscores. Max length: 64.
var ruleIDPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_]{0,63}$`)

// ValidateAgent validates an agent name before it is interpolated into
// the ingest URL path.
//
// Returns an error if the name is empty, too long, or carries
// characters outside [a-z0-9-].
func ValidateAgent(name string) error {
	if name == "" {
		return fmt.Errorf("agent name is empty")
	}
	if !agentPattern.MatchString(name) {
		return fmt.Errorf("invalid agent name %q: must be 1-64 chars of [a-z0-9-]", name)
	}
	return nil
}

// ValidateRuleID validates a rule identifier from a remote or local
// record before it is used as a registry key and log attribute.
func ValidateRuleID(id string) error {
	if id == "" {
		return fmt.Errorf("rule id is empty")
	}
	if !ruleIDPattern.MatchString(id) {
		return fmt.Errorf("invalid rule id %q: must be 1-64 chars of [a-z0-9_]", id)
	}
	return nil
}
