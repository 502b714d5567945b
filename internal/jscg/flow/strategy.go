// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package flow

import (
	"fmt"

	"github.com/AleutianAI/jscg/internal/jscg/ast"
	"github.com/AleutianAI/jscg/internal/jscg/diag"
)

// Strategy selects one of the three inter-procedural parameter/return
// propagation policies. Parameter binding and return-value propagation
// into a call's Res vertex are both
// inter-procedural only: the intraprocedural Builder in edges.go never
// wires them, leaving this package solely responsible.
type Strategy int

const (
	// StrategyNone wires only the conservative Unknown<->param/return
	// baseline: every call's arguments may escape to an unknown callee and
	// its result may be anything; every function's parameters may be
	// supplied by an unknown caller and its return value may escape to one.
	StrategyNone Strategy = iota
	// StrategyOneShot is the default. It adds direct parameter/return
	// wiring for statically-apparent one-shot invocations: IIFEs
	// (`(function(a){...})(x)`) and `.call()`/`.apply()` forms whose
	// callee is a function literal.
	StrategyOneShot
	// StrategyDemand additionally runs a reachability fix-point: after
	// each round of parameter/return binding, Func vertices may newly
	// reach a Callee vertex (through the bindings just added), which can
	// license further bindings; iteration continues until a round adds no
	// new edges. edges(NONE) subseteq edges(ONESHOT) subseteq edges(DEMAND).
	StrategyDemand
)

func (s Strategy) String() string {
	switch s {
	case StrategyNone:
		return "none"
	case StrategyOneShot:
		return "oneshot"
	case StrategyDemand:
		return "demand"
	default:
		return "unknown"
	}
}

// ParseStrategy parses a CLI-facing strategy name. An unrecognized name is
// treated as fatal, so this returns a plain error rather than a Diagnostic.
func ParseStrategy(s string) (Strategy, error) {
	switch s {
	case "none":
		return StrategyNone, nil
	case "", "oneshot":
		return StrategyOneShot, nil
	case "demand":
		return StrategyDemand, nil
	default:
		return StrategyNone, fmt.Errorf("flow: unknown strategy %q (want none, oneshot, or demand)", s)
	}
}

// maxDemandIterations bounds the DEMAND fix-point loop defensively; a real
// program's graph is finite and edge-monotone so the loop always converges
// well under this, but the cap keeps a pathological input from hanging the
// analysis.
const maxDemandIterations = 256

// Propagator applies a Strategy to a graph already populated by
// intraprocedural edges (edges.go), module links (module.go), and native
// wiring (native.go). It needs the function and call registries decorate.
// Context accumulated, so that it can iterate every parameter list and
// call site without re-walking the AST.
type Propagator struct {
	graph     *Graph
	functions []*ast.Node
	calls     []*ast.Node
	sink      *diag.Sink
}

// NewPropagator returns a Propagator over graph, functions, and calls
// (typically decorate.Context.Functions / .Calls, merged across every file
// in the analysis run).
func NewPropagator(graph *Graph, functions, calls []*ast.Node, sink *diag.Sink) *Propagator {
	return &Propagator{graph: graph, functions: functions, calls: calls, sink: sink}
}

// Apply runs strategy, adding whatever edges it licenses to p.graph.
func (p *Propagator) Apply(strategy Strategy) {
	p.wireBaseline()
	if strategy == StrategyNone {
		return
	}
	p.wireOneShot()
	if strategy == StrategyOneShot {
		return
	}
	p.wireDemand()
}

// wireBaseline implements StrategyNone: every call's arguments may flow to
// an unknown callee, every call's result may be anything, every function's
// parameters may come from an unknown caller, and every function's return
// value may escape to one.
func (p *Propagator) wireBaseline() {
	for _, call := range p.calls {
		for i := range call.FieldList("arguments") {
			p.graph.AddEdge(ArgV(call, i), Unknown)
		}
		p.graph.AddEdge(Unknown, ResV(call))
	}
	for _, fn := range p.functions {
		for _, param := range fn.FieldList("params") {
			bindPatternFrom(p.graph, param, Unknown)
		}
		p.graph.AddEdge(RetV(fn), Unknown)
	}
}

// wireOneShot implements StrategyOneShot's addition: statically-apparent
// one-shot invocations get direct parameter/return wiring, bypassing
// reachability entirely since the callee is lexically known.
func (p *Propagator) wireOneShot() {
	for _, call := range p.calls {
		callee := call.Field("callee")
		if callee == nil {
			continue
		}
		if callee.IsFunction() {
			p.bindCall(callee, call, 0, true)
			continue
		}
		if callee.Kind != ast.MemberExpression || callee.Computed {
			continue
		}
		obj := callee.Field("object")
		prop := callee.Field("property")
		if obj == nil || !obj.IsFunction() || prop == nil {
			continue
		}
		switch prop.Name {
		case "call":
			p.bindCall(obj, call, 1, true) // arg 0 is thisArg
		case "apply":
			p.bindCall(obj, call, 0, false) // argument array isn't modeled; return still binds
		}
	}
}

// wireDemand implements StrategyDemand's fix-point: after every round,
// freshly-discovered Func->Callee reachability (through bindings just
// added) may license further parameter/return bindings.
func (p *Propagator) wireDemand() {
	for iter := 0; iter < maxDemandIterations; iter++ {
		r := NewReachability(p.graph)
		changed := false
		for _, call := range p.calls {
			cv := CalleeV(call)
			for _, src := range r.Reaching(cv) {
				if src.Kind != VFunc || src.Node == nil {
					continue
				}
				if p.bindCall(src.Node, call, 0, true) {
					changed = true
				}
			}
		}
		if !changed {
			return
		}
	}
	if p.sink != nil {
		p.sink.Warnf(diag.StageStrategy, "", "demand propagation did not converge within %d iterations", maxDemandIterations)
	}
}

// bindCall wires call's arguments (offset by argOffset, skipped entirely
// when bindArgs is false) to fn's parameters positionally, and fn's return
// value to call's result. It returns whether any new edge was added.
func (p *Propagator) bindCall(fn, call *ast.Node, argOffset int, bindArgs bool) bool {
	changed := false
	if bindArgs {
		args := call.FieldList("arguments")
		for i, param := range fn.FieldList("params") {
			argIdx := i + argOffset
			if argIdx >= len(args) {
				break
			}
			if bindPatternFrom(p.graph, param, ArgV(call, argIdx)) {
				changed = true
			}
		}
	}
	if p.graph.AddEdge(RetV(fn), ResV(call)) {
		changed = true
	}
	return changed
}

// bindPatternFrom binds a (possibly destructuring) parameter pattern to an
// incoming value vertex, mirroring the Builder.assign expansion in
// edges.go for rule 9, specialized for the "from" direction parameter
// binding needs. It returns whether any new edge was added.
func bindPatternFrom(g *Graph, pattern *ast.Node, from Vertex) bool {
	if pattern == nil {
		return false
	}
	changed := false
	switch pattern.Kind {
	case ast.Identifier:
		changed = g.AddEdge(from, VarV(pattern)) || changed
	case ast.ArrayPattern:
		for _, el := range pattern.FieldList("elements") {
			if el == nil {
				continue
			}
			changed = bindPatternFrom(g, el, from) || changed
		}
	case ast.ObjectPattern:
		for _, prop := range pattern.FieldList("properties") {
			if prop.Kind == ast.RestElement {
				changed = bindPatternFrom(g, prop.Field("argument"), from) || changed
				continue
			}
			key := prop.Field("key")
			if key == nil || prop.Computed {
				continue
			}
			changed = bindPatternFrom(g, prop.Field("value"), PropV(key.Name)) || changed
		}
	case ast.AssignmentPattern:
		changed = bindPatternFrom(g, pattern.Field("left"), from) || changed
	case ast.RestElement:
		changed = bindPatternFrom(g, pattern.Field("argument"), from) || changed
	}
	return changed
}
