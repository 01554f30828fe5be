// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package logging configures structured logging for the sentinel.
//
// Built on Go's standard slog package. Logs go to stderr as JSON so
// the scan/verify stdout surfaces stay machine-parseable; an optional
// log directory adds a dated file alongside.
//
// # Thread Safety
//
// Setup is called once at process start. The installed slog handlers
// are safe for concurrent use.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Config controls the process-wide logging setup.
type Config struct {
	// Level is one of debug, info, warn, error. Empty means info.
	Level string

	// LogDir, when set, adds a {service}_{date}.log JSON file next to
	// the stderr stream. The directory is created if missing.
	LogDir string

	// Service names the log file. Empty means "sentinel".
	Service string
}

// Setup installs the process-wide slog default. The returned closer
// owns the log file, if any; callers defer it from main.
func Setup(cfg Config) (io.Closer, error) {
	if cfg.Service == "" {
		cfg.Service = "sentinel"
	}

	opts := &slog.HandlerOptions{Level: parseLevel(cfg.Level)}
	writers := []io.Writer{os.Stderr}

	var file *os.File
	if cfg.LogDir != "" {
		if err := os.MkdirAll(cfg.LogDir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		name := fmt.Sprintf("%s_%s.log", cfg.Service, time.Now().Format("2006-01-02"))
		f, err := os.OpenFile(filepath.Join(cfg.LogDir, name),
			os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		file = f
		writers = append(writers, f)
	}

	handler := slog.NewJSONHandler(io.MultiWriter(writers...), opts)
	slog.SetDefault(slog.New(handler).With("service", cfg.Service))

	if file == nil {
		return nopCloser{}, nil
	}
	return file, nil
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
