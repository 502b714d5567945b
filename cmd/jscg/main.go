// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command jscg builds an approximate call graph for a JavaScript/
// TypeScript project and emits one of three edge-list projections.
//
// Usage:
//
//	jscg [flags] <project-root>
//
// Flags mirror the analysis options: -strategy, -filter (repeatable),
// -output, -fg, -countCB, -reqJs, -analyzertype, -time.
//
// Exit codes: 0 on success; 1 on empty input or I/O failure; 2 on an
// unknown strategy or analyzertype name or an invalid -filter pattern.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/AleutianAI/jscg/internal/jscg/config"
	"github.com/AleutianAI/jscg/internal/jscg/discover"
	"github.com/AleutianAI/jscg/internal/jscg/extract"
	"github.com/AleutianAI/jscg/internal/jscg/flow"
	"github.com/AleutianAI/jscg/internal/jscg/jlog"
	"github.com/AleutianAI/jscg/internal/jscg/pipeline"
	"github.com/AleutianAI/jscg/internal/jscg/telemetry"
)

type stringList []string

func (s *stringList) String() string     { return strings.Join(*s, ",") }
func (s *stringList) Set(v string) error { *s = append(*s, v); return nil }

func main() {
	var (
		strategyFlag     = flag.String("strategy", "", "inter-procedural strategy: none, oneshot (default), demand, full (alias for demand, with a warning)")
		analyzerFlag     = flag.String("analyzertype", "static", "edge projection: static, nativecalls, acg")
		outputFlag       = flag.String("output", "", "output file path (default stdout)")
		fgFlag           = flag.Bool("fg", false, "serialize the flow graph for debugging instead of the call graph")
		countCBFlag      = flag.Bool("countCB", false, "emit callback-argument statistics instead of the call graph")
		reqJsFlag        = flag.Bool("reqJs", false, "emit an AMD/RequireJS module dependency graph instead of the call graph")
		timeFlag         = flag.Bool("time", false, "emit the analyzed file count and total analysis time to stderr (no per-stage breakdown)")
		traceFlag        = flag.Bool("trace", false, "emit OpenTelemetry spans as pretty-printed JSON to stderr")
		concurrencyFlag  = flag.Int("concurrency", 4, "bounded worker-pool size for file parsing")
		maxFileSizeFlag  = flag.Int("max-file-size", 0, "override the parser's per-file byte ceiling (0 = config/default)")
		jsonLogFlag      = flag.Bool("json-log", false, "emit structured logs as JSON instead of text")
		cacheFlag        = flag.Bool("cache", false, "replay a cached call graph for an unchanged file set instead of re-analyzing (off by default)")
		cacheDirFlag     = flag.String("cache-dir", "", "snapshot cache directory (default .jscg-cache under the project root)")
		metricsAddrFlag  = flag.String("metrics-addr", "", "serve Prometheus metrics at this address for the run's duration (debug, off by default)")
	)
	var filters stringList
	flag.Var(&filters, "filter", "a +pattern/-pattern file-discovery regex rule (repeatable)")
	flag.Parse()

	runID := uuid.New().String()
	logger := jlog.New(jlog.Options{Level: slog.LevelInfo, JSON: *jsonLogFlag}).With("run_id", runID)
	slog.SetDefault(logger)

	if *traceFlag {
		shutdown, err := telemetry.InitStdoutTracing(os.Stderr)
		if err != nil {
			fatalf(1, "initializing tracing: %v", err)
		}
		defer shutdown(context.Background())
	}

	if *metricsAddrFlag != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		srv := &http.Server{Addr: *metricsAddrFlag, Handler: mux}
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Warn("metrics server stopped", "error", err)
			}
		}()
		defer srv.Close()
		logger.Info("serving metrics", "addr", *metricsAddrFlag)
	}

	root := flag.Arg(0)
	if root == "" {
		root = "."
	}

	fileConfig, err := config.Load(root)
	if err != nil {
		fatalf(1, "loading config: %v", err)
	}
	cfg := config.Resolve(fileConfig,
		config.WithStrategy(*strategyFlag),
		config.WithMaxFileSize(*maxFileSizeFlag),
		config.WithCacheDir(*cacheDirFlag),
		config.WithExtraExclude(extractExcludes(filters)...),
		config.WithExtraInclude(extractIncludes(filters)...),
	)

	strategyName := cfg.Strategy
	if strategyName == "" {
		strategyName = "oneshot"
	}
	if strings.EqualFold(strategyName, "full") {
		logger.Warn("strategy FULL is an alias for DEMAND", "strategy", "demand")
		strategyName = "demand"
	}
	strategy, err := flow.ParseStrategy(strategyName)
	if err != nil {
		fatalf(2, "%v", err)
	}

	// Rules keep the order they were given in: the config file's include
	// and exclude patterns, then every -filter value in command-line order,
	// so the last matching rule is the last one the user wrote.
	patterns := append(append(append([]string(nil), fileConfig.Include...), fileConfig.Exclude...), filters...)
	rules, err := discover.ParseRules(patterns)
	if err != nil {
		fatalf(2, "invalid filter pattern: %v", err)
	}

	if !*fgFlag && !*countCBFlag && !*reqJsFlag {
		switch *analyzerFlag {
		case "static", "nativecalls", "acg":
		default:
			fatalf(2, "unknown analyzertype %q (want static, nativecalls, or acg)", *analyzerFlag)
		}
	}

	var cacheDir string
	if *cacheFlag && !*fgFlag && !*countCBFlag && !*reqJsFlag {
		// The debug dumps (-fg, -countCB, -reqJs) read Run fields a cache hit
		// never populates, so caching is only ever engaged for the default
		// call-graph output.
		cacheDir = cfg.CacheDir
		if cacheDir == "" {
			cacheDir = filepath.Join(root, ".jscg-cache")
		}
	}

	opts := pipeline.Options{
		Root:        root,
		Rules:       rules,
		Strategy:    strategy,
		Concurrency: *concurrencyFlag,
		MaxFileSize: cfg.MaxFileSize,
		CacheDir:    cacheDir,
	}

	start := time.Now()
	run, err := pipeline.Run(context.Background(), opts)
	if err != nil {
		fatalf(1, "analysis failed: %v", err)
	}
	if *timeFlag {
		fmt.Fprintf(os.Stderr, "jscg: analyzed %d files in %s\n", run.FileCount, time.Since(start).Round(time.Millisecond))
	}
	for _, d := range run.Diagnostics {
		logger.Debug(d.Message, "stage", string(d.Stage), "file", d.File, "severity", d.Severity.String())
	}

	if run.FileCount == 0 {
		fatalf(1, "no analyzable files found under %s", root)
	}

	out := os.Stdout
	if *outputFlag != "" {
		f, err := os.Create(*outputFlag)
		if err != nil {
			fatalf(1, "creating output file: %v", err)
		}
		defer f.Close()
		out = f
	}

	switch {
	case *countCBFlag:
		err = writeJSON(out, map[string]int{"callbackArguments": run.CallbackCount})
	case *reqJsFlag:
		err = writeDependencyGraph(out, run.Dependencies)
	case *fgFlag:
		err = writeFlowGraph(out, run.Graph)
	default:
		err = writeProjection(out, run.Result, *analyzerFlag)
	}
	if err != nil {
		fatalf(1, "writing output: %v", err)
	}
}

func extractIncludes(filters stringList) []string {
	var xs []string
	for _, f := range filters {
		if strings.HasPrefix(f, "+") {
			xs = append(xs, f)
		}
	}
	return xs
}

func extractExcludes(filters stringList) []string {
	var xs []string
	for _, f := range filters {
		if strings.HasPrefix(f, "-") || !strings.HasPrefix(f, "+") {
			xs = append(xs, f)
		}
	}
	return xs
}

// wireRef is the CLI's on-the-wire shape for a FuncRef: a nested
// {"label","file","start","end","range"} object. A native ref renders
// with "file":"Native" and null positions.
type wireRef struct {
	Label string      `json:"label"`
	File  string      `json:"file"`
	Start *wirePos     `json:"start"`
	End   *wirePos     `json:"end"`
	Range *wireByteRng `json:"range"`
}

type wirePos struct {
	Row    int `json:"row"`
	Column int `json:"column"`
}

type wireByteRng struct {
	Start uint32 `json:"start"`
	End   uint32 `json:"end"`
}

type wireEdge struct {
	Source wireRef `json:"source"`
	Target wireRef `json:"target"`
}

func toWireRef(r extract.FuncRef) wireRef {
	if r.Native {
		return wireRef{Label: r.Label, File: "Native"}
	}
	return wireRef{
		Label: r.Label,
		File:  r.File,
		Start: &wirePos{Row: r.StartLine, Column: r.StartColumn},
		End:   &wirePos{Row: r.EndLine, Column: r.EndColumn},
		Range: &wireByteRng{Start: r.StartByte, End: r.EndByte},
	}
}

func toWireEdges(edges []extract.Edge) []wireEdge {
	out := make([]wireEdge, len(edges))
	for i, e := range edges {
		out[i] = wireEdge{Source: toWireRef(e.Source), Target: toWireRef(e.Target)}
	}
	return out
}

func writeProjection(out *os.File, result extract.Result, analyzerType string) error {
	var edges []extract.Edge
	switch analyzerType {
	case "static":
		edges = result.Static
	case "nativecalls":
		edges = result.NativeCalls
	case "acg":
		return writeACGStrings(out, result.ACG)
	}
	return writeJSON(out, toWireEdges(edges))
}

// writeACGStrings renders the acg projection as "source-pos -> target-pos"
// strings, rather than the nested object shape the other two projections
// use.
func writeACGStrings(out *os.File, edges []extract.Edge) error {
	lines := make([]string, len(edges))
	for i, e := range edges {
		lines[i] = posString(e.Source) + " -> " + posString(e.Target)
	}
	return writeJSON(out, lines)
}

func posString(r extract.FuncRef) string {
	if r.Native {
		return r.Label + "@Native"
	}
	return fmt.Sprintf("%s@%s:%d:%d", r.Label, r.File, r.StartLine, r.StartColumn)
}

func writeDependencyGraph(out *os.File, deps []flow.Dependency) error {
	type wireDep struct {
		FromFile   string `json:"fromFile"`
		Specifier  string `json:"specifier"`
		ResolvedTo string `json:"resolvedTo,omitempty"`
		Resolved   bool   `json:"resolved"`
	}
	wire := make([]wireDep, len(deps))
	for i, d := range deps {
		wire[i] = wireDep{FromFile: d.FromFile, Specifier: d.Specifier, ResolvedTo: d.ResolvedTo, Resolved: d.Resolved}
	}
	return writeJSON(out, wire)
}

// writeFlowGraph dumps every edge in graph as "source -> target" strings,
// labeling Var/Func/Callee/Res/Ret/Expr vertices with their node's own
// source position since flow.Vertex's String() only names the kind.
func writeFlowGraph(out *os.File, graph *flow.Graph) error {
	var lines []string
	for _, v := range graph.Vertices() {
		for _, to := range graph.Out(v) {
			lines = append(lines, vertexString(v)+" -> "+vertexString(to))
		}
	}
	sort.Strings(lines)
	return writeJSON(out, lines)
}

func vertexString(v flow.Vertex) string {
	s := v.String()
	if v.Node != nil {
		s += fmt.Sprintf("@%s:%d:%d", v.Node.Range.File, v.Node.Range.Start.Row, v.Node.Range.Start.Column)
	}
	if v.Call != nil {
		s += fmt.Sprintf("[%d]@%s:%d:%d", v.Index, v.Call.Range.File, v.Call.Range.Start.Row, v.Call.Range.Start.Column)
	}
	return s
}

func writeJSON(out *os.File, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func fatalf(code int, format string, args ...any) {
	fmt.Fprintf(os.Stderr, "jscg: "+format+"\n", args...)
	os.Exit(code)
}
