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
	"os"
	"path/filepath"
	"testing"
	"time"
)

// fakeFetcher scripts successive FetchRules responses.
type fakeFetcher struct {
	responses []map[string]Rule
	calls     int
}

func (f *fakeFetcher) FetchRules(ctx context.Context) (map[string]Rule, error) {
	resp := map[string]Rule{}
	if f.calls < len(f.responses) {
		resp = f.responses[f.calls]
	}
	f.calls++
	return resp, nil
}

func writeRuleFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
}

const validJSONRule = `{
  "id": "security_control_removal",
  "severity": "CRITICAL",
  "pattern": {"detection": {"textPatterns": ["removed\\s+security"]}},
  "law": "Security controls are never removed without sign-off",
  "financialImpact": {"min": 2500000, "max": 6000000, "proven": true}
}`

const validYAMLRule = `id: unauthorized_infrastructure
severity: HIGH
pattern:
  detection:
    textPatterns:
      - 'added\s+redis'
`

func TestLoadLocalSkipsMalformedRecords(t *testing.T) {
	dir := t.TempDir()
	writeRuleFile(t, dir, "security.json", validJSONRule)
	writeRuleFile(t, dir, "infra.yaml", validYAMLRule)
	writeRuleFile(t, dir, "broken.json", `{"id": "broken", "pattern":`)
	writeRuleFile(t, dir, "no_patterns.json", `{"id": "empty", "pattern": {"detection": {"textPatterns": []}}}`)

	registry := NewRegistry(nil, dir)
	set := registry.Load(context.Background())

	if set.Source != SourceLocal {
		t.Errorf("expected LOCAL source, got %s", set.Source)
	}
	if set.Len() != 2 {
		t.Errorf("expected 2 valid rules, got %d", set.Len())
	}
	rule, ok := set.Lookup("security_control_removal")
	if !ok {
		t.Fatal("expected security_control_removal to load")
	}
	if rule.Severity != SeverityCritical {
		t.Errorf("expected CRITICAL severity, got %s", rule.Severity)
	}
	if rule.Impact == nil || rule.Impact.Min != 2500000 || rule.Impact.Max != 6000000 {
		t.Errorf("financial impact not carried: %+v", rule.Impact)
	}
}

func TestLoadPrefersRemoteOverLocal(t *testing.T) {
	dir := t.TempDir()
	writeRuleFile(t, dir, "infra.yaml", validYAMLRule)

	remote := map[string]Rule{"remote_rule": mustRule(t, "remote_rule")}
	registry := NewRegistry(&fakeFetcher{responses: []map[string]Rule{remote}}, dir)

	set := registry.Load(context.Background())
	if set.Source != SourceLive {
		t.Fatalf("expected LIVE source, got %s", set.Source)
	}
	if _, ok := set.Lookup("remote_rule"); !ok {
		t.Error("remote rule missing from LIVE set")
	}
	// Never merged: the local rule must not appear in a LIVE set.
	if _, ok := set.Lookup("unauthorized_infrastructure"); ok {
		t.Error("LIVE set must not merge local rules")
	}
}

func TestLoadFallsBackToLocalOnEmptyRemote(t *testing.T) {
	dir := t.TempDir()
	writeRuleFile(t, dir, "infra.yaml", validYAMLRule)

	registry := NewRegistry(&fakeFetcher{}, dir) // fetcher always returns empty
	set := registry.Load(context.Background())

	if set.Source != SourceLocal {
		t.Fatalf("expected LOCAL fallback, got %s", set.Source)
	}
	if set.Len() != 1 {
		t.Errorf("expected 1 local rule, got %d", set.Len())
	}
}

func TestLoadRetainsPreviousSetOnTotalFailure(t *testing.T) {
	// First load succeeds remotely, then both sources go dark.
	remote := map[string]Rule{"remote_rule": mustRule(t, "remote_rule")}
	fetcher := &fakeFetcher{responses: []map[string]Rule{remote, {}}}
	registry := NewRegistry(fetcher, t.TempDir())

	first := registry.Load(context.Background())
	if first.Source != SourceLive || first.Len() != 1 {
		t.Fatalf("unexpected first load: source=%s len=%d", first.Source, first.Len())
	}

	second := registry.Load(context.Background())
	if second.Source != SourceLive || second.Len() != 1 {
		t.Errorf("total failure must retain previous set, got source=%s len=%d", second.Source, second.Len())
	}
	if registry.Current() != first {
		t.Error("active set must still be the first load")
	}
}

func TestLoadWithNoSourcesYieldsEmptyActiveSet(t *testing.T) {
	registry := NewRegistry(nil, t.TempDir())
	set := registry.Load(context.Background())

	if set.Source != SourceNone {
		t.Errorf("expected NONE source, got %s", set.Source)
	}
	if set.Len() != 0 {
		t.Errorf("expected empty set, got %d rules", set.Len())
	}
	// Detection still works over the empty set.
	detector := NewDetector(registry)
	report := detector.Analyze(context.Background(), "verified rollout", testContext())
	if len(report.Commendations) != 1 {
		t.Errorf("heuristics must run over an empty set, got %+v", report)
	}
}

func TestWatchReloadsOnCacheChange(t *testing.T) {
	dir := t.TempDir()
	registry := NewRegistry(nil, dir)
	registry.Load(context.Background())
	if registry.Current().Len() != 0 {
		t.Fatal("expected empty initial set")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	watchDone := make(chan error, 1)
	go func() { watchDone <- registry.Watch(ctx) }()

	// Give the watcher a moment to attach before writing.
	time.Sleep(100 * time.Millisecond)
	writeRuleFile(t, dir, "infra.yaml", validYAMLRule)

	deadline := time.After(5 * time.Second)
	for registry.Current().Len() == 0 {
		select {
		case <-deadline:
			t.Fatal("watcher never reloaded the rule set")
		case <-time.After(25 * time.Millisecond):
		}
	}

	set := registry.Current()
	if set.Source != SourceLocal {
		t.Errorf("reloaded source = %s, want LOCAL", set.Source)
	}
	if _, ok := set.Lookup("unauthorized_infrastructure"); !ok {
		t.Error("reloaded set missing the new rule")
	}

	cancel()
	select {
	case err := <-watchDone:
		if err != nil {
			t.Errorf("watch returned error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Error("watch did not stop on context cancellation")
	}
}

func mustRule(t *testing.T, id string) Rule {
	t.Helper()
	return testRule(t, id, "HIGH", []string{`never-matches-anything-\d{9}`}, nil)
}
