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
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/AleutianAI/AleutianSentinel/services/compliance"
	"github.com/AleutianAI/AleutianSentinel/services/syncclient"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

var (
	scanJSON   bool
	scanQuiet  bool
	scanSource string
)

// =============================================================================
// COMMAND DEFINITION
// =============================================================================

var scanCmd = &cobra.Command{
	Use:   "scan [path|-]",
	Short: "Analyze a file or stdin for rule violations",
	Long: `Scan runs the compliance detector over the given file, or over
stdin when the path is "-" or omitted.

Examples:
  sentinel scan change.diff
  git diff | sentinel scan -
  sentinel scan --json release-notes.html

Exit Codes:
  0 = No violations
  1 = Violations found
  2 = Error (unreadable input, bad settings)`,
	Args: cobra.MaximumNArgs(1),
	Run:  runScan,
}

func init() {
	scanCmd.Flags().BoolVar(&scanJSON, "json", false, "Output as JSON")
	scanCmd.Flags().BoolVar(&scanQuiet, "quiet", false, "Only exit code, no output")
	scanCmd.Flags().StringVar(&scanSource, "source", "cli", "Source label recorded on findings")
	rootCmd.AddCommand(scanCmd)
}

// =============================================================================
// COMMAND IMPLEMENTATION
// =============================================================================

func runScan(cmd *cobra.Command, args []string) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	eng, err := buildEngine()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(ExitError)
	}

	text, filePath, err := readScanInput(args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(ExitError)
	}

	actx := compliance.AnalysisContext{
		Source:    scanSource,
		Timestamp: time.Now(),
		FilePath:  filePath,
	}
	report := eng.detector.Analyze(ctx, text, actx)

	// Telemetry is fire-and-forget: the scan result never waits on it.
	eng.sync.Dispatch([]syncclient.Event{{
		ID:        uuid.NewString(),
		Agent:     eng.settings.AgentName,
		Type:      "analysis_pass",
		Timestamp: time.Now(),
		Payload: map[string]any{
			"source":        scanSource,
			"violations":    len(report.Violations),
			"warnings":      len(report.Warnings),
			"commendations": len(report.Commendations),
		},
	}})

	if !scanQuiet {
		if scanJSON {
			outputJSON(report)
		} else {
			outputScanText(report)
		}
	}
	os.Exit(scanExitCode(report))
}

// scanExitCode maps a report onto the command exit code.
func scanExitCode(report *compliance.Report) int {
	if report.HasViolations {
		return ExitViolation
	}
	return ExitSuccess
}

func readScanInput(args []string) (text, filePath string, err error) {
	if len(args) == 0 || args[0] == "-" {
		data, readErr := io.ReadAll(os.Stdin)
		if readErr != nil {
			return "", "", fmt.Errorf("failed to read stdin: %w", readErr)
		}
		return string(data), "", nil
	}
	data, readErr := os.ReadFile(args[0])
	if readErr != nil {
		return "", "", fmt.Errorf("failed to read %s: %w", args[0], readErr)
	}
	return string(data), args[0], nil
}

// =============================================================================
// OUTPUT
// =============================================================================

func outputJSON(v any) {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(v); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to encode JSON: %v\n", err)
		os.Exit(ExitError)
	}
}

func outputScanText(report *compliance.Report) {
	fmt.Println("Compliance Scan Results")
	fmt.Println(strings.Repeat("=", 60))
	fmt.Println()
	fmt.Printf("Violations:    %d\n", len(report.Violations))
	fmt.Printf("Warnings:      %d\n", len(report.Warnings))
	fmt.Printf("Commendations: %d\n", len(report.Commendations))
	fmt.Println()

	printFindings("Violations", report.Violations)
	printFindings("Warnings", report.Warnings)
	printFindings("Commendations", report.Commendations)

	if report.HasCritical {
		fmt.Println("CRITICAL violations present.")
	}
}

func printFindings(title string, findings []compliance.Finding) {
	if len(findings) == 0 {
		return
	}
	fmt.Printf("%s:\n", title)
	for _, f := range findings {
		if f.RuleID != "" {
			fmt.Printf("  %-8s  %s (rule %s)\n", f.Severity, f.Message, f.RuleID)
		} else {
			fmt.Printf("  %-8s  %s\n", f.Severity, f.Message)
		}
		if f.Details != "" {
			fmt.Printf("            %s\n", f.Details)
		}
		if f.Risk != nil {
			fmt.Printf("            Risk: $%d - $%d (proven: %t)\n", f.Risk.Min, f.Risk.Max, f.Risk.Proven)
		}
		if f.Fix != "" {
			fmt.Printf("            Fix: %s\n", f.Fix)
		}
	}
	fmt.Println()
}
