// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.
package validation

import (
	"strings"
	"testing"
)

func TestValidateAgent(t *testing.T) {
	valid := []string{"sentinel", "sentinel-ci", "agent007", "a"}
	for _, name := range valid {
		if err := ValidateAgent(name); err != nil {
			t.Errorf("ValidateAgent(%q) = %v, want nil", name, err)
		}
	}

	invalid := []string{
		"",
		"Sentinel",                   // uppercase
		"-leading",                   // leading hyphen
		"agent/../../etc",            // path traversal
		"agent name",                 // whitespace
		"a" + strings.Repeat("b", 64), // too long
	}
	for _, name := range invalid {
		if err := ValidateAgent(name); err == nil {
			t.Errorf("ValidateAgent(%q) = nil, want error", name)
		}
	}
}

func TestValidateRuleID(t *testing.T) {
	valid := []string{"security_control_removal", "hardcoded_data", "r1"}
	for _, id := range valid {
		if err := ValidateRuleID(id); err != nil {
			t.Errorf("ValidateRuleID(%q) = %v, want nil", id, err)
		}
	}

	invalid := []string{"", "Rule", "rule id", "rule/../x", "_leading"}
	for _, id := range invalid {
		if err := ValidateRuleID(id); err == nil {
			t.Errorf("ValidateRuleID(%q) = nil, want error", id)
		}
	}
}
