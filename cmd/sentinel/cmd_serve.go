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
	"context"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/AleutianAI/AleutianSentinel/services/compliance"
	"github.com/AleutianAI/AleutianSentinel/services/observability"
)

// =============================================================================
// COMMAND DEFINITION
// =============================================================================

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Expose the health, verify, and webhook surface over HTTP",
	Long: `Serve starts the collaborator-facing HTTP surface:

  GET  /health      Health payload built from a full verification pass
  POST /v1/analyze  Webhook running the detector on a posted text+context
  GET  /metrics     Prometheus metrics`,
	Run: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

// =============================================================================
// COMMAND IMPLEMENTATION
// =============================================================================

// analyzeRequest is the webhook body for POST /v1/analyze.
type analyzeRequest struct {
	Text    string                     `json:"text" binding:"required"`
	Context compliance.AnalysisContext `json:"context"`
}

func runServe(cmd *cobra.Command, args []string) {
	observability.InitMetrics()

	eng, err := buildEngine()
	if err != nil {
		slog.Error("Failed to build engine", "error", err)
		os.Exit(ExitError)
	}

	// Warm the registry and keep the local cache watched in LOCAL mode.
	eng.registry.Load(context.Background())
	go func() {
		if watchErr := eng.registry.Watch(context.Background()); watchErr != nil {
			slog.Warn("Rule cache watcher stopped", "error", watchErr)
		}
	}()

	router := gin.Default()

	router.GET("/health", func(c *gin.Context) {
		result, verifyErr := eng.verifier.Verify(c.Request.Context())
		if verifyErr != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "error": verifyErr.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":        result.Status,
			"service":       "aleutian-sentinel",
			"final_score":   result.FinalScore,
			"average":       result.AverageScore,
			"max_drift":     result.MaxDrift,
			"epistemic_cap": result.EpistemicCap,
			"buffer":        result.Buffer,
			"dimensions":    result.Dimensions,
		})
	})

	router.POST("/v1/analyze", func(c *gin.Context) {
		var req analyzeRequest
		if bindErr := c.ShouldBindJSON(&req); bindErr != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": bindErr.Error()})
			return
		}
		if req.Context.Timestamp.IsZero() {
			req.Context.Timestamp = time.Now()
		}
		if req.Context.Source == "" {
			req.Context.Source = "webhook"
		}
		report := eng.detector.Analyze(c.Request.Context(), req.Text, req.Context)
		c.JSON(http.StatusOK, report)
	})

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	slog.Info("Starting sentinel API server", "port", eng.settings.Port)
	if err := router.Run(":" + eng.settings.Port); err != nil {
		slog.Error("Server failed", "error", err)
		os.Exit(ExitError)
	}
}
