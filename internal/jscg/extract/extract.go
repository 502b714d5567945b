// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package extract reads the three output projections off a saturated flow
// graph: "static" (the approximate call graph itself), "nativecalls"
// (callback registrations against modeled built-ins), and "acg" (their
// union, deduplicated), plus the escaping-function and unknown-call-site
// diagnostics.
package extract

import (
	"github.com/AleutianAI/jscg/internal/jscg/ast"
	"github.com/AleutianAI/jscg/internal/jscg/decorate"
	"github.com/AleutianAI/jscg/internal/jscg/flow"
)

// FuncRef identifies a function (or, for an edge's Source half, the call
// site attributed to its enclosing function) by its rendered label and
// source location.
type FuncRef struct {
	Label       string `json:"label"`
	File        string `json:"file"`
	StartLine   int    `json:"startLine"`
	StartColumn int    `json:"startColumn"`
	EndLine     int    `json:"endLine"`
	EndColumn   int    `json:"endColumn"`
	StartByte   uint32 `json:"startByte"`
	EndByte     uint32 `json:"endByte"`
	// Native is true for a FuncRef describing a modeled native built-in
	// rather than a source-level function; such a FuncRef has no
	// meaningful position and renders as file "Native" with null
	// positions in the CLI's wire format.
	Native bool `json:"-"`
}

// Edge is one call-graph (or native-callback) edge: Source is the call
// site, labeled with its enclosing function; Target is the resolved
// callee.
type Edge struct {
	Source FuncRef `json:"source"`
	Target FuncRef `json:"target"`
}

// Result is the full output of a single Extract run.
type Result struct {
	Static            []Edge    `json:"static"`
	NativeCalls       []Edge    `json:"nativecalls"`
	ACG               []Edge    `json:"acg"`
	EscapingFunctions []FuncRef `json:"escapingFunctions"`
	UnknownCallSites  []FuncRef `json:"unknownCallSites"`
}

// Extractor reads projections off a single saturated Graph.
type Extractor struct {
	graph     *flow.Graph
	table     *ast.Table
	functions []*ast.Node
}

// NewExtractor returns an Extractor over graph (already populated by the
// Builder, Linker, and a Propagator strategy), table (shared across every
// stage), and functions (decorate.Context.Functions, merged across every
// file in the run).
func NewExtractor(graph *flow.Graph, table *ast.Table, functions []*ast.Node) *Extractor {
	return &Extractor{graph: graph, table: table, functions: functions}
}

// Extract computes every projection in a single reachability pass.
func (e *Extractor) Extract() Result {
	r := flow.NewReachability(e.graph)

	result := Result{}
	seenACG := make(map[acgKey]bool)

	for _, v := range e.graph.Vertices() {
		if v.Kind != flow.VCallee || v.Node == nil {
			continue
		}
		call := v.Node
		source := e.enclosingRef(call)
		for _, src := range r.Reaching(v) {
			if src.Kind != flow.VFunc || src.Node == nil {
				continue
			}
			target := e.funcRef(src.Node)
			edge := Edge{Source: source, Target: target}
			result.Static = append(result.Static, edge)
			addACG(&result.ACG, seenACG, edge)
		}
	}

	for _, d := range flow.Table {
		if d.Behavior != flow.NativeCallback {
			continue
		}
		nv := flow.RetNativeV(d.Name)
		if !e.graph.HasVertex(nv) {
			continue
		}
		source := FuncRef{Label: "native:" + d.Name, File: "Native", Native: true}
		for _, src := range r.Reaching(nv) {
			if src.Kind != flow.VFunc || src.Node == nil {
				continue
			}
			edge := Edge{Source: source, Target: e.funcRef(src.Node)}
			result.NativeCalls = append(result.NativeCalls, edge)
			addACG(&result.ACG, seenACG, edge)
		}
	}

	reachingUnknown := make(map[flow.Vertex]bool)
	for _, v := range r.Reaching(flow.Unknown) {
		reachingUnknown[v] = true
	}
	for _, fn := range e.functions {
		if reachingUnknown[flow.FuncV(fn)] {
			result.EscapingFunctions = append(result.EscapingFunctions, e.funcRef(fn))
		}
	}

	for _, v := range e.graph.Vertices() {
		if v.Kind != flow.VCallee || v.Node == nil {
			continue
		}
		if r.ReachesUnknown(v) {
			result.UnknownCallSites = append(result.UnknownCallSites, e.callSiteRef(v.Node))
		}
	}

	return result
}

type acgKey struct {
	sourceLabel, sourceFile string
	sourceStartLine         int
	targetLabel, targetFile string
	targetStartLine         int
}

func addACG(acg *[]Edge, seen map[acgKey]bool, e Edge) {
	k := acgKey{e.Source.Label, e.Source.File, e.Source.StartLine, e.Target.Label, e.Target.File, e.Target.StartLine}
	if seen[k] {
		return
	}
	seen[k] = true
	*acg = append(*acg, e)
}

// funcRef builds a FuncRef describing fn itself: its rendered label and
// its own source range.
func (e *Extractor) funcRef(fn *ast.Node) FuncRef {
	return FuncRef{
		Label:       decorate.Label(e.table, fn),
		File:        fn.Range.File,
		StartLine:   fn.Range.Start.Row,
		StartColumn: fn.Range.Start.Column,
		EndLine:     fn.Range.End.Row,
		EndColumn:   fn.Range.End.Column,
		StartByte:   fn.Range.StartByte,
		EndByte:     fn.Range.EndByte,
	}
}

// callSiteRef builds a FuncRef describing a call site: labeled with its
// enclosing function (or "global" at top level), located at the call's own
// source range, not its enclosing function's. Used for diagnostics
// (UnknownCallSites) that need the call's own position.
func (e *Extractor) callSiteRef(call *ast.Node) FuncRef {
	enclosing := e.table.Get(call).EnclosingFunction
	label := "global"
	if enclosing != nil {
		label = decorate.Label(e.table, enclosing)
	}
	return FuncRef{
		Label:       label,
		File:        call.Range.File,
		StartLine:   call.Range.Start.Row,
		StartColumn: call.Range.Start.Column,
		EndLine:     call.Range.End.Row,
		EndColumn:   call.Range.End.Column,
		StartByte:   call.Range.StartByte,
		EndByte:     call.Range.EndByte,
	}
}

// enclosingRef builds a FuncRef describing a call site's enclosing
// function, labeled the same way as callSiteRef but positioned at the
// enclosing function's own range rather than the call's — the "static"
// projection's documented caller-range convention. At top level (no
// enclosing function), the call's own range is used since there is no
// enclosing function range to substitute.
func (e *Extractor) enclosingRef(call *ast.Node) FuncRef {
	enclosing := e.table.Get(call).EnclosingFunction
	if enclosing == nil {
		return e.callSiteRef(call)
	}
	return e.funcRef(enclosing)
}
