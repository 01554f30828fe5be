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
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/AleutianAI/AleutianSentinel/pkg/logging"
)

var rootCmd = &cobra.Command{
	Use:   "sentinel",
	Short: "Code-governance sentinel: compliance detection and confidence correlation",
	Long: `Sentinel inspects version-control changes against a registry of
incident patterns and correlates five dimensions of trust into one
bounded confidence verdict.

Commands:
  scan    Analyze a file, directory, or stdin for violations
  verify  Run the five-dimension verification pass
  serve   Expose the health/verify/webhook surface over HTTP`,
}

func main() {
	// Optional .env for local development; absence is fine.
	envLoaded := godotenv.Load() == nil

	closer, err := logging.Setup(logging.Config{
		Level:  os.Getenv("SENTINEL_LOG_LEVEL"),
		LogDir: os.Getenv("SENTINEL_LOG_DIR"),
	})
	if err != nil {
		slog.Error("Failed to set up logging", "error", err)
		os.Exit(ExitError)
	}
	defer closer.Close()

	if envLoaded {
		slog.Debug("Loaded environment from .env")
	}

	if err := rootCmd.Execute(); err != nil {
		slog.Error("Command failed", "error", err)
		os.Exit(ExitError)
	}
}
