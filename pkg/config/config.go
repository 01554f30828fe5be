// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package config loads the sentinel settings from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/AleutianAI/AleutianSentinel/pkg/validation"
)

// Environment variable names.
const (
	EnvRegistryEndpoint = "SENTINEL_REGISTRY_ENDPOINT"
	EnvRegistryToken    = "SENTINEL_REGISTRY_TOKEN"
	EnvAgentName        = "SENTINEL_AGENT"
	EnvRulesDir         = "SENTINEL_RULES_DIR"
	EnvEvidenceDir      = "SENTINEL_EVIDENCE_DIR"
	EnvCorpusDir        = "SENTINEL_CORPUS_DIR"
	EnvEndpoints        = "SENTINEL_ENDPOINTS"
	EnvCommitLookback   = "SENTINEL_COMMIT_LOOKBACK"
	EnvPort             = "SENTINEL_PORT"
)

// Settings is the plain settings object the engine is configured with
// once per process. Missing remote credentials disable remote features;
// they are never fatal.
type Settings struct {
	// RegistryEndpoint is the remote rule registry base URL.
	RegistryEndpoint string `validate:"omitempty,url"`

	// RegistryToken is the bearer token for the registry.
	RegistryToken string

	// AgentName identifies this sentinel on the ingest path.
	AgentName string `validate:"required"`

	// RulesDir is the local fallback rule cache.
	RulesDir string `validate:"required"`

	// EvidenceDir is the root of the evidence record tree.
	EvidenceDir string

	// CorpusDir holds the reference training corpus.
	CorpusDir string

	// Endpoints is the fixed production endpoint list probed by the
	// production-evidence dimension.
	Endpoints []string `validate:"dive,url"`

	// CommitLookback is how many recent commits the commit-compliance
	// dimension replays.
	CommitLookback int `validate:"gte=0"`

	// Port is the serve surface listen port.
	Port string
}

// RemoteEnabled reports whether both halves of the remote
// configuration are present.
func (s *Settings) RemoteEnabled() bool {
	return s.RegistryEndpoint != "" && s.RegistryToken != ""
}

// Load reads settings from the environment, applies defaults, and
// validates the result. A partially configured remote (endpoint
// without token, or the reverse) is rejected: silent half-enabled
// remotes are worse than none.
func Load() (*Settings, error) {
	s := &Settings{
		RegistryEndpoint: os.Getenv(EnvRegistryEndpoint),
		RegistryToken:    os.Getenv(EnvRegistryToken),
		AgentName:        envOr(EnvAgentName, "sentinel"),
		RulesDir:         envOr(EnvRulesDir, "rules"),
		EvidenceDir:      envOr(EnvEvidenceDir, "evidence"),
		CorpusDir:        envOr(EnvCorpusDir, "corpus"),
		CommitLookback:   10,
		Port:             envOr(EnvPort, "8090"),
	}

	if raw := os.Getenv(EnvEndpoints); raw != "" {
		for _, e := range strings.Split(raw, ",") {
			if trimmed := strings.TrimSpace(e); trimmed != "" {
				s.Endpoints = append(s.Endpoints, trimmed)
			}
		}
	}
	if raw := os.Getenv(EnvCommitLookback); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", EnvCommitLookback, err)
		}
		s.CommitLookback = n
	}

	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Validate checks structural validity plus the remote-pair constraint.
func (s *Settings) Validate() error {
	if (s.RegistryEndpoint == "") != (s.RegistryToken == "") {
		return fmt.Errorf("registry endpoint and token must be configured together")
	}
	if err := validation.ValidateAgent(s.AgentName); err != nil {
		return fmt.Errorf("invalid settings: %w", err)
	}
	if err := validator.New().Struct(s); err != nil {
		return fmt.Errorf("invalid settings: %w", err)
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
