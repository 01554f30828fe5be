// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.
package confidence

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/AleutianAI/AleutianSentinel/services/observability"
)

// Verifier runs the five dimension analyzers concurrently and
// correlates their results.
//
// # Description
//
// One Verify call launches all five analyzers, joins them on an
// all-complete barrier, and only then correlates. A single analyzer's
// failure never aborts the others: analyzers catch their own errors by
// contract, and a panicking analyzer is substituted with a zero-score
// ERROR result here.
//
// # Thread Safety
//
// Verifier is safe for concurrent use; each pass is independent.
type Verifier struct {
	analyzers [DimensionCount]Analyzer
}

// NewVerifier creates a verifier over exactly five analyzers, in
// dimension order. Panics on a nil analyzer (fail-fast for programming
// errors).
func NewVerifier(d1, d2, d3, d4, d5 Analyzer) *Verifier {
	analyzers := [DimensionCount]Analyzer{d1, d2, d3, d4, d5}
	for i, a := range analyzers {
		if a == nil {
			panic(fmt.Sprintf("NewVerifier: analyzer %d must not be nil", i+1))
		}
	}
	return &Verifier{analyzers: analyzers}
}

// Verify produces the full correlation result for one verification
// pass.
func (v *Verifier) Verify(ctx context.Context) (*CorrelationResult, error) {
	start := time.Now()
	results := make([]DimensionResult, DimensionCount)

	g, gctx := errgroup.WithContext(ctx)
	for i, analyzer := range v.analyzers {
		g.Go(func() error {
			results[i] = v.runOne(gctx, i+1, analyzer)
			return nil
		})
	}
	// Analyzers never return errors; the group is the barrier.
	_ = g.Wait()

	correlated, err := Correlate(results)
	if err != nil {
		return nil, err
	}

	observability.ObserveVerification(time.Since(start).Seconds(), correlated.FinalScore)
	slog.Info("Verification pass complete",
		"final_score", correlated.FinalScore,
		"status", correlated.Status,
		"max_drift", correlated.MaxDrift,
		"duration_ms", time.Since(start).Milliseconds())
	return correlated, nil
}

// runOne shields the barrier from a misbehaving analyzer: a panic
// becomes a zero-score ERROR result instead of tearing down the pass.
func (v *Verifier) runOne(ctx context.Context, dimension int, analyzer Analyzer) (result DimensionResult) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Dimension analyzer panicked", "dimension", dimension, "panic", r)
			result = DimensionResult{
				Dimension: dimension,
				Name:      fmt.Sprintf("dimension_%d", dimension),
				Score:     0,
				Status:    StatusError,
				Details:   fmt.Sprintf("analyzer panicked: %v", r),
			}
		}
	}()
	return analyzer.Analyze(ctx)
}
