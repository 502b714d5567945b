// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package discover

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/AleutianAI/jscg/internal/jscg/ast"
	"github.com/AleutianAI/jscg/internal/jscg/diag"
	"github.com/AleutianAI/jscg/internal/jscg/parse"
)

func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for rel, content := range files {
		full := filepath.Join(root, rel)
		if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	return root
}

func TestWalkSkipsNodeModulesAndDotDirs(t *testing.T) {
	root := writeTree(t, map[string]string{
		"main.js":                 "1",
		"node_modules/lib/a.js":   "1",
		".git/hooks/pre-commit.js": "1",
		"src/util.ts":             "1",
		"README.md":               "1",
	})
	files, err := Walk(root, nil)
	if err != nil {
		t.Fatalf("Walk: %v", err)
	}
	if len(files) != 2 {
		t.Fatalf("expected 2 analyzable files, got %d: %v", len(files), files)
	}
}

func TestParseRulesLastMatchWins(t *testing.T) {
	rules, err := ParseRules([]string{"-vendor/", "+vendor/allowed\\.js$"})
	if err != nil {
		t.Fatalf("ParseRules: %v", err)
	}
	if matches("vendor/thing.js", rules) {
		t.Errorf("expected vendor/thing.js to be excluded")
	}
	if !matches("vendor/allowed.js", rules) {
		t.Errorf("expected vendor/allowed.js to be included by the later, more specific rule")
	}
}

func TestParseRulesBarePatternExcludes(t *testing.T) {
	rules, err := ParseRules([]string{"test/"})
	if err != nil {
		t.Fatalf("ParseRules: %v", err)
	}
	if matches("test/foo.js", rules) {
		t.Errorf("expected a bare pattern to exclude")
	}
	if !matches("src/foo.js", rules) {
		t.Errorf("expected a non-matching path to remain included by default")
	}
}

func TestParseRulesInvalidRegex(t *testing.T) {
	if _, err := ParseRules([]string{"+[unterminated"}); err == nil {
		t.Fatalf("expected an error for an invalid regex")
	}
}

func TestParseAllPreservesFileOrder(t *testing.T) {
	root := writeTree(t, map[string]string{
		"a.js": "function a(){}\n",
		"b.js": "function b(){}\n",
		"c.js": "function c(){}\n",
	})
	files, err := Walk(root, nil)
	if err != nil {
		t.Fatalf("Walk: %v", err)
	}
	parser := parse.New()
	sink := &diag.Sink{}
	results := ParseAll(context.Background(), files, 2, parser, sink)
	if len(results) != len(files) {
		t.Fatalf("expected %d results, got %d", len(files), len(results))
	}
	for i, r := range results {
		if r.Path != files[i] {
			t.Errorf("result %d: expected path %q, got %q", i, files[i], r.Path)
		}
		if r.Root == nil {
			t.Errorf("result %d (%s): expected a parsed root, got nil (err=%v)", i, r.Path, r.Err)
		}
	}
}

func TestParseAllExtractsVueScriptBlock(t *testing.T) {
	root := writeTree(t, map[string]string{
		"App.vue": "<template><div/></template>\n<script>\nexport default { name: 'App' }\n</script>\n",
	})
	files, err := Walk(root, nil)
	if err != nil {
		t.Fatalf("Walk: %v", err)
	}
	if len(files) != 1 {
		t.Fatalf("expected 1 file, got %d", len(files))
	}
	parser := parse.New()
	sink := &diag.Sink{}
	results := ParseAll(context.Background(), files, 1, parser, sink)
	if len(results) != 1 || results[0].Root == nil {
		t.Fatalf("expected App.vue's script block to parse, got %+v", results)
	}
	if results[0].EffectivePath == results[0].Path {
		t.Errorf("expected a virtual .sfc path distinct from the source .vue path")
	}

	// Every node's Range must be re-homed onto the real .vue path and
	// shifted back into the original file's line numbering, not left
	// pointing at the virtual .sfc path with block-relative rows.
	var exportRow = -1
	ast.Walk(results[0].Root, func(n *ast.Node) bool {
		if n.Range.File != results[0].Path {
			t.Fatalf("node %s has Range.File %q, want the original .vue path %q", n.Kind, n.Range.File, results[0].Path)
		}
		if n.Kind == ast.ExportDefaultDeclaration {
			exportRow = n.Range.Start.Row
		}
		return true
	})
	if exportRow != 3 {
		t.Errorf("export default's row = %d, want 3 (the 1-based line it actually appears on in App.vue)", exportRow)
	}
}

func TestParseAllReportsUnreadableFileAsDiagnostic(t *testing.T) {
	root := writeTree(t, map[string]string{"a.js": "function a(){}\n"})
	bogus := filepath.Join(root, "missing.js")
	files := []string{filepath.Join(root, "a.js"), bogus}
	parser := parse.New()
	sink := &diag.Sink{}
	results := ParseAll(context.Background(), files, 2, parser, sink)
	if results[1].Err == nil {
		t.Fatalf("expected an error for the missing file")
	}
	found := false
	for _, d := range sink.Items() {
		if d.File == bogus {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a diagnostic recorded for the unreadable file")
	}
}
