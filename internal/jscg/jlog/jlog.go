// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package jlog configures the structured logger every jscg component
// shares, mirroring the rest of the Aleutian stack's log/slog usage.
package jlog

import (
	"log/slog"
	"os"
)

// Options configures New.
type Options struct {
	// Level is the minimum level logged.
	Level slog.Level
	// JSON selects slog.NewJSONHandler over slog.NewTextHandler. CLI runs
	// default to text (human-readable); CI/automation runs typically pass
	// JSON for machine parsing.
	JSON bool
}

// New builds a *slog.Logger writing to os.Stderr (so stdout stays reserved
// for the analysis result payload the CLI front end emits).
func New(opts Options) *slog.Logger {
	handlerOpts := &slog.HandlerOptions{Level: opts.Level}
	if opts.JSON {
		return slog.New(slog.NewJSONHandler(os.Stderr, handlerOpts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, handlerOpts))
}

// Discard returns a logger that drops everything, for tests that need a
// non-nil *slog.Logger but no output.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(discardWriter{}, &slog.HandlerOptions{Level: slog.LevelError + 1}))
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }
