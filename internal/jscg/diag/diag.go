// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package diag implements the error-handling taxonomy: the core never
// returns an error across a phase boundary for a recoverable condition
// (parse failure on one file, an unsupported construct, an unresolved
// module specifier); instead it accumulates a Diagnostic and continues.
// Only two conditions are fatal: an unknown strategy name, and an I/O
// failure writing output; both are reported as plain Go errors by the
// caller, never through this type.
package diag

import "fmt"

// Severity classifies a Diagnostic for display and exit-code purposes.
type Severity int

const (
	Warning Severity = iota
	Info
)

func (s Severity) String() string {
	switch s {
	case Warning:
		return "warning"
	case Info:
		return "info"
	default:
		return "unknown"
	}
}

// Stage names the pipeline stage that raised a Diagnostic, matching the
// stage names in the system overview.
type Stage string

const (
	StageParse     Stage = "parse"
	StageDecorate  Stage = "decorate"
	StageBind      Stage = "bind"
	StageFlow      Stage = "flow"
	StageLink      Stage = "link"
	StageStrategy  Stage = "strategy"
	StageExtract   Stage = "extract"
)

// Diagnostic is a single recoverable condition encountered during analysis.
type Diagnostic struct {
	Severity Severity
	Stage    Stage
	File     string
	Message  string
}

func (d Diagnostic) String() string {
	if d.File == "" {
		return fmt.Sprintf("[%s] %s: %s", d.Severity, d.Stage, d.Message)
	}
	return fmt.Sprintf("[%s] %s (%s): %s", d.Severity, d.Stage, d.File, d.Message)
}

// Sink accumulates diagnostics across a single analysis run. It is not
// safe for concurrent use; callers that parallelize file parsing must give
// each worker its own Sink and merge them in file-list order afterward, to
// preserve the determinism invariant the core relies on.
type Sink struct {
	items []Diagnostic
}

func NewSink() *Sink { return &Sink{} }

func (s *Sink) Add(d Diagnostic) { s.items = append(s.items, d) }

func (s *Sink) Warnf(stage Stage, file, format string, args ...any) {
	s.Add(Diagnostic{Severity: Warning, Stage: stage, File: file, Message: fmt.Sprintf(format, args...)})
}

func (s *Sink) Infof(stage Stage, file, format string, args ...any) {
	s.Add(Diagnostic{Severity: Info, Stage: stage, File: file, Message: fmt.Sprintf(format, args...)})
}

// Items returns the accumulated diagnostics in insertion order.
func (s *Sink) Items() []Diagnostic { return s.items }

// Merge appends other's items after s's, preserving order. Used to combine
// per-worker sinks from parallel file parsing back into file-list order.
func (s *Sink) Merge(other *Sink) {
	if other == nil {
		return
	}
	s.items = append(s.items, other.items...)
}
