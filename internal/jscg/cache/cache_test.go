// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package cache

import (
	"context"
	"testing"

	"github.com/AleutianAI/jscg/internal/jscg/extract"
)

func openTestCache(t *testing.T) *Cache {
	t.Helper()
	c, err := Open(t.TempDir(), nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func TestKeyIsOrderIndependent(t *testing.T) {
	a := []FileDigest{{Path: "b.js", Content: []byte("2")}, {Path: "a.js", Content: []byte("1")}}
	b := []FileDigest{{Path: "a.js", Content: []byte("1")}, {Path: "b.js", Content: []byte("2")}}
	if Key(a, "oneshot", "static") != Key(b, "oneshot", "static") {
		t.Errorf("expected Key to be independent of input ordering")
	}
}

func TestKeyVariesWithStrategyAndAnalyzerType(t *testing.T) {
	files := []FileDigest{{Path: "a.js", Content: []byte("1")}}
	base := Key(files, "oneshot", "static")
	if Key(files, "demand", "static") == base {
		t.Errorf("expected strategy to change the key")
	}
	if Key(files, "oneshot", "acg") == base {
		t.Errorf("expected analyzerType to change the key")
	}
}

func TestKeyVariesWithContent(t *testing.T) {
	a := []FileDigest{{Path: "a.js", Content: []byte("1")}}
	b := []FileDigest{{Path: "a.js", Content: []byte("2")}}
	if Key(a, "oneshot", "static") == Key(b, "oneshot", "static") {
		t.Errorf("expected differing file content to change the key")
	}
}

func TestLoadMissingKeyReportsNotFound(t *testing.T) {
	c := openTestCache(t)
	_, ok, err := c.Load(context.Background(), "does-not-exist")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if ok {
		t.Errorf("expected ok=false for a missing key")
	}
}

func TestSaveThenLoadRoundTrips(t *testing.T) {
	c := openTestCache(t)
	want := extract.Result{
		Static: []extract.Edge{{
			Source: extract.FuncRef{Label: "global", File: "main.js"},
			Target: extract.FuncRef{Label: "f", File: "main.js"},
		}},
		EscapingFunctions: []extract.FuncRef{{Label: "f", File: "main.js"}},
	}
	key := Key([]FileDigest{{Path: "main.js", Content: []byte("function f(){} f();")}}, "oneshot", "static")

	if err := c.Save(context.Background(), key, want); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, ok, err := c.Load(context.Background(), key)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !ok {
		t.Fatalf("expected a cache hit after Save")
	}
	if len(got.Static) != 1 || got.Static[0].Source.Label != "global" || got.Static[0].Target.Label != "f" {
		t.Errorf("round-tripped result mismatch: %+v", got)
	}
	if len(got.EscapingFunctions) != 1 || got.EscapingFunctions[0].Label != "f" {
		t.Errorf("round-tripped escaping functions mismatch: %+v", got.EscapingFunctions)
	}
}

func TestCloseIsNilSafe(t *testing.T) {
	var c *Cache
	if err := c.Close(); err != nil {
		t.Errorf("expected Close on a nil *Cache to be a no-op, got %v", err)
	}
}
