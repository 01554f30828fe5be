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
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/AleutianSentinel/services/confidence"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

var verifyJSON bool

// =============================================================================
// COMMAND DEFINITION
// =============================================================================

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Run the five-dimension confidence verification pass",
	Long: `Verify launches the five dimension analyzers concurrently,
correlates their scores, and reports the capped, drift-checked verdict.

Examples:
  sentinel verify
  sentinel verify --json

Exit Codes:
  0 = GODEL_COMPLIANT
  1 = DRIFT_DETECTED or INCONSISTENT
  2 = Error`,
	Run: runVerify,
}

func init() {
	verifyCmd.Flags().BoolVar(&verifyJSON, "json", false, "Output as JSON")
	rootCmd.AddCommand(verifyCmd)
}

// =============================================================================
// COMMAND IMPLEMENTATION
// =============================================================================

func runVerify(cmd *cobra.Command, args []string) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	eng, err := buildEngine()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(ExitError)
	}

	result, err := eng.verifier.Verify(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Verification failed: %v\n", err)
		os.Exit(ExitError)
	}

	if verifyJSON {
		outputJSON(result)
	} else {
		outputVerifyText(result)
	}

	if result.Status == confidence.OverallCompliant {
		os.Exit(ExitSuccess)
	}
	os.Exit(ExitViolation)
}

func outputVerifyText(result *confidence.CorrelationResult) {
	fmt.Println("Confidence Verification")
	fmt.Println(strings.Repeat("=", 60))
	fmt.Println()
	for _, dim := range result.Dimensions {
		fmt.Printf("  D%d %-22s %3d/%d  %s\n",
			dim.Dimension, dim.Name, dim.Score, result.EpistemicCap, dim.Status)
		if dim.Details != "" {
			fmt.Printf("     %s\n", dim.Details)
		}
	}
	fmt.Println()
	fmt.Printf("Average:     %.1f\n", result.AverageScore)
	fmt.Printf("Max drift:   %d (threshold %d)\n", result.MaxDrift, confidence.DriftThreshold)
	fmt.Printf("Final score: %d/%d (buffer %d)\n", result.FinalScore, result.EpistemicCap, result.Buffer)
	fmt.Printf("Status:      %s\n", result.Status)
}
