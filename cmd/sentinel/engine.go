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
	"fmt"

	"github.com/AleutianAI/AleutianSentinel/pkg/config"
	"github.com/AleutianAI/AleutianSentinel/services/compliance"
	"github.com/AleutianAI/AleutianSentinel/services/confidence"
	"github.com/AleutianAI/AleutianSentinel/services/syncclient"
)

// Exit codes shared by every sentinel command.
const (
	ExitSuccess   = 0
	ExitViolation = 1
	ExitError     = 2
)

// engine bundles the wired engine components one command needs.
type engine struct {
	settings *config.Settings
	sync     *syncclient.Client
	registry *compliance.Registry
	detector *compliance.Detector
	verifier *confidence.Verifier
}

// buildEngine wires the engine from settings: sync client into
// registry, registry into detector, detector plus evidence analyzers
// into the verifier.
func buildEngine() (*engine, error) {
	settings, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}

	sync := syncclient.New(syncclient.Config{
		Endpoint: settings.RegistryEndpoint,
		Token:    settings.RegistryToken,
		Agent:    settings.AgentName,
	}, nil)

	registry := compliance.NewRegistry(sync, settings.RulesDir)
	detector := compliance.NewDetector(registry)

	commits := newGitLogSource(".")
	verifier := confidence.NewVerifier(
		confidence.NewCommitCompliance(detector, commits, settings.CommitLookback),
		confidence.NewCorpusAlignment(settings.CorpusDir, 0),
		confidence.NewProductionEvidence(nil, settings.Endpoints, settings.EvidenceDir),
		confidence.NewTemporalDecay(commits, nil),
		confidence.NewFinancialEfficiency(settings.EvidenceDir),
	)

	return &engine{
		settings: settings,
		sync:     sync,
		registry: registry,
		detector: detector,
		verifier: verifier,
	}, nil
}
