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
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	"github.com/AleutianAI/AleutianSentinel/services/observability"
)

// RuleFetcher fetches the remote rule set. A nil fetcher (or one whose
// remote side is unconfigured) disables the remote source; the registry
// then always loads locally.
type RuleFetcher interface {
	// FetchRules returns the remote rules keyed by id. Transient
	// failures yield an empty map and a nil error; the registry
	// falls back without treating that as fatal.
	FetchRules(ctx context.Context) (map[string]Rule, error)
}

// Registry resolves the active rule set: remote source preferred, local
// record files as fallback, never a merge of both. Reload replaces the
// set wholesale by reference, so readers never observe a partial set.
type Registry struct {
	fetcher  RuleFetcher
	localDir string

	mu      sync.RWMutex
	current *RuleSet
}

// NewRegistry creates a registry. fetcher may be nil when no remote
// endpoint is configured; localDir may be empty when no fallback cache
// exists (detection then degrades to heuristic-only findings).
func NewRegistry(fetcher RuleFetcher, localDir string) *Registry {
	return &Registry{fetcher: fetcher, localDir: localDir}
}

// Current returns the active rule set, or nil if Load has never
// succeeded.
func (r *Registry) Current() *RuleSet {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.current
}

// Load resolves a fresh rule set. Remote first: a non-empty remote set
// becomes the active set tagged LIVE. Otherwise every record file in
// the local fallback directory is parsed (parse-or-skip) into a set
// tagged LOCAL. If both sources yield nothing the previous set is
// retained; with no previous set an empty set tagged NONE becomes
// active so detection can still run its heuristics.
//
// Load is idempotent and safe to call at any time.
func (r *Registry) Load(ctx context.Context) *RuleSet {
	if remote := r.loadRemote(ctx); len(remote) > 0 {
		set := &RuleSet{Rules: remote, Source: SourceLive, LoadedAt: time.Now()}
		r.swap(set)
		slog.Info("Rule registry loaded", "source", set.Source, "rules", len(remote))
		observability.RecordRegistryLoad(string(set.Source))
		return set
	}

	if local := r.loadLocal(); len(local) > 0 {
		set := &RuleSet{Rules: local, Source: SourceLocal, LoadedAt: time.Now()}
		r.swap(set)
		slog.Info("Rule registry loaded", "source", set.Source, "rules", len(local))
		observability.RecordRegistryLoad(string(set.Source))
		return set
	}

	// Total failure: retain the previous set if one exists.
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.current != nil {
		slog.Warn("Rule registry reload found no rules, retaining previous set",
			"previous_source", r.current.Source, "rules", r.current.Len())
		return r.current
	}
	r.current = &RuleSet{Rules: map[string]Rule{}, Source: SourceNone, LoadedAt: time.Now()}
	slog.Warn("Rule registry is empty, detection degrades to heuristics only")
	observability.RecordRegistryLoad(string(SourceNone))
	return r.current
}

func (r *Registry) swap(set *RuleSet) {
	r.mu.Lock()
	r.current = set
	r.mu.Unlock()
}

func (r *Registry) loadRemote(ctx context.Context) map[string]Rule {
	if r.fetcher == nil {
		return nil
	}
	rules, err := r.fetcher.FetchRules(ctx)
	if err != nil {
		// Single attempt then fall back; remote read failures are
		// never propagated to the caller.
		slog.Warn("Remote rule fetch failed, falling back to local cache", "error", err)
		return nil
	}
	return rules
}

// loadLocal reads every structured record file from the fallback
// directory. A parse failure on an individual file is non-fatal: the
// file is skipped and loading continues.
func (r *Registry) loadLocal() map[string]Rule {
	if r.localDir == "" {
		return nil
	}
	entries, err := os.ReadDir(r.localDir)
	if err != nil {
		slog.Warn("Local rule cache unavailable", "dir", r.localDir, "error", err)
		return nil
	}

	rules := make(map[string]Rule)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		path := filepath.Join(r.localDir, entry.Name())
		rule, err := parseRuleFile(path)
		if err != nil {
			slog.Warn("Skipping malformed rule record", "file", entry.Name(), "error", err)
			continue
		}
		rules[rule.ID] = rule
	}
	return rules
}

func parseRuleFile(path string) (Rule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Rule{}, err
	}

	var rec RuleRecord
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &rec)
	default:
		err = json.Unmarshal(data, &rec)
	}
	if err != nil {
		return Rule{}, err
	}
	return ParseRecord(rec)
}

// Watch reloads the registry whenever the local fallback directory
// changes. It blocks until ctx is cancelled, so run it on its own
// goroutine. Reloads still prefer the remote source; the watcher only
// triggers the attempt.
func (r *Registry) Watch(ctx context.Context) error {
	if r.localDir == "" {
		<-ctx.Done()
		return nil
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(r.localDir); err != nil {
		return err
	}
	slog.Info("Watching local rule cache", "dir", r.localDir)

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			slog.Debug("Local rule cache changed, reloading", "event", event.Op.String(), "file", event.Name)
			r.Load(ctx)
		case watchErr, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Warn("Rule cache watcher error", "error", watchErr)
		}
	}
}
