// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package pipeline wires every analysis stage — parse, decorate, bind,
// flow, link, strategy, extract — into the single ordered run the CLI
// front end drives. It exists so cmd/jscg stays a thin flag/output
// layer and so tests can exercise the whole pipeline without a process
// boundary.
package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/AleutianAI/jscg/internal/jscg/ast"
	"github.com/AleutianAI/jscg/internal/jscg/bind"
	"github.com/AleutianAI/jscg/internal/jscg/cache"
	"github.com/AleutianAI/jscg/internal/jscg/decorate"
	"github.com/AleutianAI/jscg/internal/jscg/diag"
	"github.com/AleutianAI/jscg/internal/jscg/discover"
	"github.com/AleutianAI/jscg/internal/jscg/extract"
	"github.com/AleutianAI/jscg/internal/jscg/flow"
	"github.com/AleutianAI/jscg/internal/jscg/parse"
	"github.com/AleutianAI/jscg/internal/jscg/telemetry"
)

// Options configures a single Run.
type Options struct {
	Root        string
	Rules       []discover.Rule
	Strategy    flow.Strategy
	Concurrency int
	MaxFileSize int

	// CacheDir, if non-empty, enables the BadgerDB snapshot cache at this
	// path: a Run whose discovered file set hashes to an already-saved
	// key replays that Result instead of re-running decorate through
	// extract. Leave empty to disable caching entirely.
	CacheDir string
}

// Run is one pipeline invocation's output: the three extraction
// projections plus every diagnostic raised along the way.
type Run struct {
	Result        extract.Result
	Diagnostics   []diag.Diagnostic
	FileCount     int
	CallbackCount int
	Dependencies  []flow.Dependency

	// Graph and Table back the -fg debug dump; both are nil when the
	// result was replayed from the snapshot cache.
	Graph *flow.Graph
	Table *ast.Table
}

// moduleSpecifier resolves an import/require specifier relative to the
// importing file, the way Node.js module resolution does for relative
// paths. Bare specifiers ("react", "lodash") have no file in this
// project to resolve to and are left unresolved — RegisterImports treats
// that as "no module-linked binding", falling back to the inter-procedural
// strategy's Unknown-sourced parameter wiring.
func moduleSpecifier(knownFiles map[string]bool) func(fromFile, spec string) (string, bool) {
	return func(fromFile, spec string) (string, bool) {
		if !strings.HasPrefix(spec, ".") {
			return "", false
		}
		dir := filepath.Dir(fromFile)
		resolved := filepath.ToSlash(filepath.Clean(filepath.Join(dir, spec)))
		for _, ext := range []string{"", ".js", ".mjs", ".cjs", ".jsx", ".ts", ".tsx"} {
			// Module paths are extension-free, matching the key the
			// linker registers for the exporting file.
			candidate := resolved + ext
			if knownFiles[candidate] {
				return strings.TrimSuffix(candidate, filepath.Ext(candidate)), true
			}
			indexCandidate := resolved + "/index" + ext
			if knownFiles[indexCandidate] {
				return resolved + "/index", true
			}
		}
		return "", false
	}
}

// Run discovers, parses, and analyzes every file under opts.Root,
// returning the saturated extraction result.
func Run(ctx context.Context, opts Options) (Run, error) {
	sink := &diag.Sink{}

	files, err := discover.Walk(opts.Root, opts.Rules)
	if err != nil {
		return Run{}, err
	}

	var (
		snapCache *cache.Cache
		cacheKey  string
	)
	if opts.CacheDir != "" {
		snapCache, err = cache.Open(opts.CacheDir, nil)
		if err != nil {
			return Run{}, err
		}
		defer snapCache.Close()

		digests := make([]cache.FileDigest, 0, len(files))
		for _, f := range files {
			content, err := os.ReadFile(f)
			if err != nil {
				return Run{}, err
			}
			digests = append(digests, cache.FileDigest{Path: f, Content: content})
		}
		// analyzerType is fixed at "result": a single cache entry stores the
		// full extract.Result, which already holds all three projections, so
		// no per-analyzertype key variant is needed.
		cacheKey = cache.Key(digests, opts.Strategy.String(), "result")

		cached, hit, err := snapCache.Load(ctx, cacheKey)
		if err != nil {
			return Run{}, err
		}
		if hit {
			return Run{Result: cached, FileCount: len(files)}, nil
		}
	}

	parseOpts := parse.DefaultOptions()
	if opts.MaxFileSize > 0 {
		parseOpts.MaxFileSize = opts.MaxFileSize
	}
	parser := parse.New(parse.WithMaxFileSize(parseOpts.MaxFileSize))

	var parseEnd func(error)
	ctx, parseEnd = telemetry.StartStage(ctx, "parse")
	parsed := discover.ParseAll(ctx, files, opts.Concurrency, parser, sink)
	parseEnd(nil)

	table := ast.NewTable()
	dctx := decorate.NewContext(table)
	graph := flow.NewGraph()
	flow.SeedNatives(graph)

	knownFiles := make(map[string]bool, len(parsed))
	type fileRoot struct {
		path string
		root *ast.Node
	}
	var roots []fileRoot
	for _, p := range parsed {
		if p.Root == nil {
			telemetry.RecordFileParsed("error")
			continue
		}
		telemetry.RecordFileParsed("ok")
		canonical := canonicalRelPath(opts.Root, p.Path)
		knownFiles[canonical] = true
		roots = append(roots, fileRoot{path: canonical, root: p.Root})
	}

	_, decorateEnd := telemetry.StartStage(ctx, "decorate")
	for _, fr := range roots {
		dctx.Decorate(fr.root, fr.path, sink)
	}
	decorateEnd(nil)

	_, bindEnd := telemetry.StartStage(ctx, "bind")
	binder := bind.NewBinder(table)
	for _, fr := range roots {
		binder.Bind(fr.root, fr.path, sink)
	}
	bindEnd(nil)

	_, flowEnd := telemetry.StartStage(ctx, "flow")
	builder := flow.NewBuilder(graph, table, sink)
	for _, fr := range roots {
		builder.Build(fr.root)
	}
	flowEnd(nil)

	_, linkEnd := telemetry.StartStage(ctx, "link")
	linker := flow.NewLinker(graph, table, sink, moduleSpecifier(knownFiles))
	for _, fr := range roots {
		linker.RegisterExports(fr.root, fr.path)
	}
	for _, fr := range roots {
		linker.RegisterImports(fr.root, fr.path)
	}
	linkEnd(nil)

	_, strategyEnd := telemetry.StartStage(ctx, "strategy")
	propagator := flow.NewPropagator(graph, dctx.Functions, dctx.Calls, sink)
	propagator.Apply(opts.Strategy)
	strategyEnd(nil)

	telemetry.RecordEdgesAdded(graph.EdgeCount())
	callbackCount := 0
	for _, fn := range dctx.Functions {
		if a, ok := table.Lookup(fn); ok && a.Callback != nil {
			telemetry.RecordCallbackArg()
			callbackCount++
		}
	}

	_, extractEnd := telemetry.StartStage(ctx, "extract")
	extractor := extract.NewExtractor(graph, table, dctx.Functions)
	result := extractor.Extract()
	extractEnd(nil)

	if snapCache != nil {
		if err := snapCache.Save(ctx, cacheKey, result); err != nil {
			return Run{}, err
		}
	}

	return Run{
		Result:        result,
		Diagnostics:   sink.Items(),
		FileCount:     len(roots),
		CallbackCount: callbackCount,
		Dependencies:  linker.Dependencies,
		Graph:         graph,
		Table:         table,
	}, nil
}

func canonicalRelPath(root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return filepath.ToSlash(path)
	}
	return filepath.ToSlash(rel)
}
