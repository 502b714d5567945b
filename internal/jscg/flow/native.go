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

import "github.com/AleutianAI/jscg/internal/jscg/ast"

// NativeBehavior classifies how a Descriptor's Native(name) vertex
// participates beyond the baseline Native(name) -> Prop(name) wiring every
// entry gets.
type NativeBehavior int

const (
	// NativeSimple natives contribute only the baseline Prop(name) edge:
	// any `.name` call-site can see the native as a possible target.
	NativeSimple NativeBehavior = iota
	// NativeCallback natives additionally invoke a function-typed
	// argument; see wireNativeCallback below.
	NativeCallback
	// NativeSequential marks the sequential-flow combinator.
	NativeSequential
)

// Descriptor is one entry in the fixed built-in table.
type Descriptor struct {
	Name     string
	Behavior NativeBehavior
	// ArgIndexes lists the argument positions that carry a callback, for
	// NativeCallback entries. nil means "every function-typed argument".
	ArgIndexes []int
}

// Table is the fixed set of modeled built-ins: array-iteration
// higher-order methods, timer registrars, and promise methods, plus the
// "Step" sequential combinator (grounded on the creationix/step control-
// flow library's call shape).
var Table = []Descriptor{
	{Name: "setTimeout", Behavior: NativeCallback, ArgIndexes: []int{0}},
	{Name: "setInterval", Behavior: NativeCallback, ArgIndexes: []int{0}},
	{Name: "setImmediate", Behavior: NativeCallback, ArgIndexes: []int{0}},
	{Name: "queueMicrotask", Behavior: NativeCallback, ArgIndexes: []int{0}},
	{Name: "forEach", Behavior: NativeCallback, ArgIndexes: []int{0}},
	{Name: "map", Behavior: NativeCallback, ArgIndexes: []int{0}},
	{Name: "filter", Behavior: NativeCallback, ArgIndexes: []int{0}},
	{Name: "reduce", Behavior: NativeCallback, ArgIndexes: []int{0}},
	{Name: "reduceRight", Behavior: NativeCallback, ArgIndexes: []int{0}},
	{Name: "some", Behavior: NativeCallback, ArgIndexes: []int{0}},
	{Name: "every", Behavior: NativeCallback, ArgIndexes: []int{0}},
	{Name: "find", Behavior: NativeCallback, ArgIndexes: []int{0}},
	{Name: "findIndex", Behavior: NativeCallback, ArgIndexes: []int{0}},
	{Name: "flatMap", Behavior: NativeCallback, ArgIndexes: []int{0}},
	{Name: "sort", Behavior: NativeCallback, ArgIndexes: []int{0}},
	{Name: "then", Behavior: NativeCallback, ArgIndexes: []int{0, 1}},
	{Name: "catch", Behavior: NativeCallback, ArgIndexes: []int{0}},
	{Name: "finally", Behavior: NativeCallback, ArgIndexes: []int{0}},
	{Name: "Step", Behavior: NativeSequential},
}

var byName = func() map[string]Descriptor {
	m := make(map[string]Descriptor, len(Table))
	for _, d := range Table {
		m[d.Name] = d
	}
	return m
}()

// Lookup returns the Descriptor for name, if modeled.
func Lookup(name string) (Descriptor, bool) {
	d, ok := byName[name]
	return d, ok
}

// SeedNatives adds the baseline Native(name) -> Prop(name) edge for every
// table entry, so that any `.name` call-site (or, for entries that are
// also global identifiers, any bare `name(...)` call-site wired by
// wireGlobalNative) can see the native as a possible target.
func SeedNatives(g *Graph) {
	for _, d := range Table {
		g.AddEdge(NativeV(d.Name), PropV(d.Name))
	}
}

// wireGlobalNative routes an unresolved bare-identifier read of a native
// name (e.g. `setTimeout`, not `obj.setTimeout`) to Native(name) instead of
// Unknown, so timer/microtask registrars used as plain globals are
// modeled precisely.
func wireGlobalNative(g *Graph, n *ast.Node) bool {
	if _, ok := Lookup(n.Name); !ok {
		return false
	}
	g.AddEdge(NativeV(n.Name), ExprV(n))
	return true
}

// wireNativeCallback implements the callback-accepting native rule: for
// each function-typed argument at a designated position, the callback is
// considered invoked by the call itself (Arg(call,i) -> Callee(call), so
// reachability from the callback's Func vertex reaches this call's Callee
// exactly as an ordinary call target would), and is additionally linked
// to a synthetic RetNative(name) vertex shared by every call-site of the
// same native name, which the "nativecalls" extraction projection reads
// off directly.
func wireNativeCallback(g *Graph, call *ast.Node, d Descriptor) {
	args := call.FieldList("arguments")
	for i, a := range args {
		if d.ArgIndexes != nil && !containsInt(d.ArgIndexes, i) {
			continue
		}
		if !a.IsFunction() {
			continue
		}
		g.AddEdge(ArgV(call, i), CalleeV(call))
		g.AddEdge(ArgV(call, i), RetNativeV(d.Name))
	}
}

func containsInt(xs []int, v int) bool {
	for _, x := range xs {
		if x == v {
			return true
		}
	}
	return false
}

// nativeNameFromCallee returns the native-table name a call's callee
// refers to, covering both bare-identifier globals (setTimeout) and
// property-access methods (arr.forEach), and reports whether one matched.
func nativeNameFromCallee(callee *ast.Node) (string, bool) {
	if callee == nil {
		return "", false
	}
	switch callee.Kind {
	case ast.Identifier:
		if _, ok := Lookup(callee.Name); ok {
			return callee.Name, true
		}
	case ast.MemberExpression:
		if callee.Computed {
			return "", false
		}
		prop := callee.Field("property")
		if prop == nil {
			return "", false
		}
		if _, ok := Lookup(prop.Name); ok {
			return prop.Name, true
		}
	}
	return "", false
}
