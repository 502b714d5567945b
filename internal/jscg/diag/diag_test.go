// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package diag

import "testing"

func TestSeverityString(t *testing.T) {
	cases := map[Severity]string{
		Warning:     "warning",
		Info:        "info",
		Severity(9): "unknown",
	}
	for sev, want := range cases {
		if got := sev.String(); got != want {
			t.Errorf("Severity(%d).String() = %q, want %q", sev, got, want)
		}
	}
}

func TestDiagnosticStringWithAndWithoutFile(t *testing.T) {
	withFile := Diagnostic{Severity: Warning, Stage: StageParse, File: "a.js", Message: "boom"}
	if got, want := withFile.String(), "[warning] parse (a.js): boom"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
	noFile := Diagnostic{Severity: Info, Stage: StageLink, Message: "done"}
	if got, want := noFile.String(), "[info] link: done"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func TestSinkWarnfAndInfofAccumulateInOrder(t *testing.T) {
	s := NewSink()
	s.Warnf(StageParse, "a.js", "could not parse: %v", "unexpected token")
	s.Infof(StageBind, "", "resolved %d declarations", 3)

	items := s.Items()
	if len(items) != 2 {
		t.Fatalf("len(Items()) = %d, want 2", len(items))
	}
	if items[0].Severity != Warning || items[0].Stage != StageParse || items[0].File != "a.js" {
		t.Errorf("items[0] = %+v", items[0])
	}
	if items[0].Message != "could not parse: unexpected token" {
		t.Errorf("items[0].Message = %q", items[0].Message)
	}
	if items[1].Severity != Info || items[1].Stage != StageBind {
		t.Errorf("items[1] = %+v", items[1])
	}
	if items[1].Message != "resolved 3 declarations" {
		t.Errorf("items[1].Message = %q", items[1].Message)
	}
}

func TestSinkMergePreservesOrderAndHandlesNil(t *testing.T) {
	s := NewSink()
	s.Warnf(StageParse, "a.js", "first")

	other := NewSink()
	other.Warnf(StageParse, "b.js", "second")
	other.Infof(StageParse, "c.js", "third")

	s.Merge(other)
	s.Merge(nil)

	items := s.Items()
	if len(items) != 3 {
		t.Fatalf("len(Items()) = %d, want 3", len(items))
	}
	if items[0].File != "a.js" || items[1].File != "b.js" || items[2].File != "c.js" {
		t.Errorf("merge did not preserve order: %+v", items)
	}
}

func TestNewSinkStartsEmpty(t *testing.T) {
	s := NewSink()
	if len(s.Items()) != 0 {
		t.Errorf("expected a freshly created Sink to have no items")
	}
}
