// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package discover walks a project root for analyzable source files,
// applies include/exclude filter rules, and parses the survivors with a
// bounded worker pool. Results are re-sorted into file-list order before
// being returned, so everything downstream sees a deterministic,
// input-order-independent sequence regardless of how parsing was
// scheduled.
package discover

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/AleutianAI/jscg/internal/jscg/ast"
	"github.com/AleutianAI/jscg/internal/jscg/diag"
	"github.com/AleutianAI/jscg/internal/jscg/parse"
	"github.com/AleutianAI/jscg/internal/jscg/vuesfc"
)

// defaultExtensions is the built-in set of analyzable file extensions.
var defaultExtensions = map[string]bool{
	".js": true, ".mjs": true, ".cjs": true,
	".jsx": true, ".ts": true, ".tsx": true,
	".vue": true,
}

// defaultSkipDirs is never descended into, even with an explicit include
// rule (a project that really wants to analyze vendored code should copy
// it out of node_modules first).
var defaultSkipDirs = map[string]bool{
	"node_modules": true,
	".git":         true,
}

// Rule is one "+pattern" (include) or "-pattern" (exclude) filter entry.
// Rules are evaluated in order against a file's slash-normalized,
// root-relative path; the last matching rule wins. A file matching no
// rule is included by default.
type Rule struct {
	Pattern *regexp.Regexp
	Include bool
}

// ParseRules compiles a list of "+regex"/"-regex" strings (a bare
// pattern with no leading sign is treated as an exclude, matching the
// common "-pattern shorthand" CLI convention) into Rules.
func ParseRules(patterns []string) ([]Rule, error) {
	rules := make([]Rule, 0, len(patterns))
	for _, p := range patterns {
		include := true
		body := p
		switch {
		case strings.HasPrefix(p, "+"):
			body = p[1:]
		case strings.HasPrefix(p, "-"):
			include = false
			body = p[1:]
		}
		re, err := regexp.Compile(body)
		if err != nil {
			return nil, err
		}
		rules = append(rules, Rule{Pattern: re, Include: include})
	}
	return rules, nil
}

func matches(relPath string, rules []Rule) bool {
	included := true
	for _, r := range rules {
		if r.Pattern.MatchString(relPath) {
			included = r.Include
		}
	}
	return included
}

// Walk discovers every analyzable file under root, applying rules and
// skipping defaultSkipDirs and dot-directories. Returned paths are root
// joined with each file's relative path (absolute only when root is) and
// sorted lexicographically.
func Walk(root string, rules []Rule) ([]string, error) {
	var found []string
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		name := d.Name()
		if d.IsDir() {
			if path != root && (defaultSkipDirs[name] || strings.HasPrefix(name, ".")) {
				return filepath.SkipDir
			}
			return nil
		}
		if !defaultExtensions[strings.ToLower(filepath.Ext(name))] {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			rel = path
		}
		rel = filepath.ToSlash(rel)
		if !matches(rel, rules) {
			return nil
		}
		found = append(found, path)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(found)
	return found, nil
}

// ParsedFile is one file's parse outcome: either a non-nil Root, or a
// non-nil Err (never both).
type ParsedFile struct {
	Path string
	// EffectivePath is Path itself for .js/.ts/etc., or the vuesfc
	// virtual path for a .vue file's extracted <script> block.
	EffectivePath string
	LineOffset    int
	Root          *ast.Node
	Err           error
}

// ParseAll reads and parses every path in files concurrently, bounded by
// concurrency (a value <= 0 defaults to 4), and returns results in the
// same order as files — parsing order is unconstrained, but the result
// order is not, preserving the pipeline's determinism invariant.
func ParseAll(ctx context.Context, files []string, concurrency int, parser *parse.Parser, sink *diag.Sink) []ParsedFile {
	if concurrency <= 0 {
		concurrency = 4
	}
	results := make([]ParsedFile, len(files))

	g, gctx := errgroup.WithContext(ctx)
	sem := make(chan struct{}, concurrency)

	for i, path := range files {
		i, path := i, path
		g.Go(func() error {
			sem <- struct{}{}
			defer func() { <-sem }()
			results[i] = parseOne(gctx, path, parser)
			return nil
		})
	}
	// Individual file failures are reported as diagnostics, not
	// propagated as a fatal error, so the wait below only ever returns
	// a context-cancellation error.
	_ = g.Wait()

	for _, r := range results {
		if r.Err != nil {
			sink.Warnf(diag.StageParse, r.Path, "%v", r.Err)
		}
	}
	return results
}

func parseOne(ctx context.Context, path string, parser *parse.Parser) ParsedFile {
	content, err := os.ReadFile(path)
	if err != nil {
		return ParsedFile{Path: path, Err: err}
	}

	effectivePath := path
	lineOffset := 0
	if strings.EqualFold(filepath.Ext(path), ".vue") {
		block, err := vuesfc.Extract(string(content))
		if err != nil {
			return ParsedFile{Path: path, Err: err}
		}
		content = []byte(block.Content)
		effectivePath = vuesfc.VirtualPath(path, block)
		lineOffset = block.LineOffset
	}

	root, err := parser.Parse(ctx, content, effectivePath)
	if err != nil {
		return ParsedFile{Path: path, Err: err}
	}
	if effectivePath != path {
		// root was parsed from a .vue file's extracted <script> block: every
		// node's Range was stamped with the virtual path and a line number
		// relative to that block. Re-home Range.File to the real .vue path
		// and shift every line back into the original file's coordinates
		// before decorate/bind/flow ever see this tree, so downstream
		// stages need no Vue-specific knowledge at all.
		rehome(root, path, lineOffset)
	}
	return ParsedFile{Path: path, EffectivePath: effectivePath, LineOffset: lineOffset, Root: root}
}

// rehome rewrites every node's Range in root in place: File becomes
// originalPath, and Start.Row/End.Row are shifted by lineOffset. Column and
// byte offsets are left as-is; a Vue SFC's <script> content always starts
// at column 0 on its own line, so row is the only coordinate a block
// extraction can displace.
func rehome(root *ast.Node, originalPath string, lineOffset int) {
	ast.Walk(root, func(n *ast.Node) bool {
		n.Range.File = originalPath
		n.Range.Start.Row += lineOffset
		n.Range.End.Row += lineOffset
		return true
	})
}
