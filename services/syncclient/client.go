// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package syncclient talks to the remote rule registry: it fetches rule
// definitions and pushes telemetry events over authenticated HTTP.
//
// # Description
//
// The client is an explicitly constructed, dependency-injected instance
// configured once via a plain Config value. An unconfigured client
// (missing endpoint or token) disables remote features without ever
// failing: fetches return an empty set and sends drop silently.
//
// # Thread Safety
//
// Client is safe for concurrent use.
package syncclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/AleutianAI/AleutianSentinel/services/compliance"
	"github.com/AleutianAI/AleutianSentinel/services/observability"
)

// HTTPClient allows injecting mock HTTP clients for testing.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Defaults for the sync protocol. Fetches get the longer timeout since
// a missed fetch degrades a whole analysis pass; sends are cheap to
// drop and retried instead.
const (
	DefaultFetchTimeout = 10 * time.Second
	DefaultSendTimeout  = 5 * time.Second
	DefaultMaxAttempts  = 3
	DefaultBackoffBase  = 500 * time.Millisecond
)

// Config configures a Client once at construction.
type Config struct {
	// Endpoint is the registry base URL. Empty disables remote features.
	Endpoint string

	// Token is the bearer token. Empty disables remote features.
	Token string

	// Agent names this sentinel instance in the ingest path.
	Agent string

	// FetchTimeout bounds one rule fetch. Zero means DefaultFetchTimeout.
	FetchTimeout time.Duration

	// SendTimeout bounds one telemetry POST attempt. Zero means
	// DefaultSendTimeout.
	SendTimeout time.Duration

	// MaxAttempts is the total number of send attempts including the
	// first. Zero means DefaultMaxAttempts.
	MaxAttempts int

	// BackoffBase is the delay before the second attempt; it doubles
	// each attempt after that. Zero means DefaultBackoffBase.
	BackoffBase time.Duration
}

// Event is one telemetry record pushed to the ingest endpoint.
type Event struct {
	ID        string         `json:"id"`
	Agent     string         `json:"agent"`
	Type      string         `json:"type"`
	Timestamp time.Time      `json:"timestamp"`
	Payload   map[string]any `json:"payload,omitempty"`
}

// Client fetches rules from and reports telemetry to the remote
// registry.
type Client struct {
	cfg     Config
	http    HTTPClient
	limiter *rate.Limiter
}

// New creates a client. An http client of nil gets a default with the
// fetch timeout as a hard ceiling.
func New(cfg Config, httpClient HTTPClient) *Client {
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = DefaultFetchTimeout
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = DefaultSendTimeout
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.BackoffBase <= 0 {
		cfg.BackoffBase = DefaultBackoffBase
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.FetchTimeout}
	}
	return &Client{
		cfg:  cfg,
		http: httpClient,
		// One batch per second sustained, small burst for startup.
		limiter: rate.NewLimiter(rate.Limit(1), 3),
	}
}

// Enabled reports whether remote features are configured. Missing
// configuration is never fatal; it just disables the remote side.
func (c *Client) Enabled() bool {
	return c.cfg.Endpoint != "" && c.cfg.Token != ""
}

// FetchRules performs one authenticated GET against the incident
// pattern registry. Any failure (non-2xx, timeout, malformed body)
// yields an empty map and a nil error so the registry falls back to
// its local cache; only context cancellation surfaces as an error.
func (c *Client) FetchRules(ctx context.Context) (map[string]compliance.Rule, error) {
	if !c.Enabled() {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.FetchTimeout)
	defer cancel()

	url := c.cfg.Endpoint + "/api/patterns/incidents"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create rule fetch request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() == context.Canceled {
			return nil, ctx.Err()
		}
		slog.Warn("Rule fetch failed", "error", err)
		return nil, nil
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		slog.Warn("Rule fetch returned non-success status", "status", resp.Status)
		return nil, nil
	}

	var body struct {
		Patterns map[string]compliance.RuleRecord `json:"patterns"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		slog.Warn("Rule fetch body malformed", "error", err)
		return nil, nil
	}

	rules := make(map[string]compliance.Rule, len(body.Patterns))
	for id, rec := range body.Patterns {
		if rec.ID == "" {
			rec.ID = id
		}
		rule, err := compliance.ParseRecord(rec)
		if err != nil {
			slog.Warn("Skipping malformed remote rule", "rule_id", id, "error", err)
			continue
		}
		rules[rule.ID] = rule
	}
	slog.Info("Fetched remote rules", "rules", len(rules))
	return rules, nil
}

// SendEvents pushes one event batch with bounded retries: up to
// MaxAttempts total attempts, sleeping BackoffBase before the second
// attempt and doubling before each one after. The returned error is
// informational; Dispatch is the supported path for callers that must
// not block on delivery.
func (c *Client) SendEvents(ctx context.Context, events []Event) error {
	if !c.Enabled() || len(events) == 0 {
		return nil
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	payload, err := json.Marshal(map[string]any{"events": events})
	if err != nil {
		return fmt.Errorf("failed to encode event batch: %w", err)
	}

	var lastErr error
	backoff := c.cfg.BackoffBase
	for attempt := 1; attempt <= c.cfg.MaxAttempts; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
		}

		lastErr = c.sendOnce(ctx, payload)
		if lastErr == nil {
			observability.RecordTelemetryBatch("delivered")
			return nil
		}
		slog.Warn("Telemetry send attempt failed",
			"attempt", attempt, "max_attempts", c.cfg.MaxAttempts, "error", lastErr)
	}

	observability.RecordTelemetryBatch("dropped")
	return fmt.Errorf("event batch dropped after %d attempts: %w", c.cfg.MaxAttempts, lastErr)
}

func (c *Client) sendOnce(ctx context.Context, payload []byte) error {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.SendTimeout)
	defer cancel()

	url := c.cfg.Endpoint + "/api/ingest/" + c.cfg.Agent
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("ingest returned status %s", resp.Status)
	}
	return nil
}

// Dispatch sends an event batch on a detached goroutine. The caller
// proceeds immediately; delivery failure after retry exhaustion is
// logged here, never surfaced. This is the explicit detached-task form
// of fire-and-forget telemetry.
func (c *Client) Dispatch(events []Event) {
	if !c.Enabled() || len(events) == 0 {
		return
	}
	go func() {
		if err := c.SendEvents(context.Background(), events); err != nil {
			slog.Warn("Telemetry batch dropped", "events", len(events), "error", err)
		}
	}()
}
