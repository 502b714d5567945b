// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package ast

// CallbackInfo records the decoration of an anonymous function that the
// Decorator classified as a callback argument, per the naming pipeline.
type CallbackInfo struct {
	Call          *Node // the CallExpression/NewExpression node
	ArgIndex      int   // 0-based position among call.List["arguments"]
	FnPosition    int   // 1-based position among function-typed arguments
	FnTotal       int   // total function-typed arguments in the call
	CalleeLabel   string
}

// Attrs is the per-node metadata the Decorator and Binder attach. It is
// stored in a side-table (Table), never on the Node itself, so that a Node
// produced by the parser adapter remains a plain immutable value.
type Attrs struct {
	EnclosingFunction *Node // nearest enclosing function node, nil at top level
	EnclosingFile     string

	// Naming, set by the Decorator. At most one of DeclaredName,
	// AssignedName, Callback is meaningful; AnonIndex is set only when none
	// of those apply.
	DeclaredName string
	AssignedName string
	Callback     *CallbackInfo
	AnonIndex    int // 1-based, 0 means "not a free anonymous"

	Label string // memoized label(fn) result, filled lazily

	// Binder output for identifier nodes.
	ResolvedDecl *Node // declaration node this identifier resolves to
	IsGlobal     bool  // true if resolution fell through to the global scope
	Scope        *ScopeRef
}

// ScopeRef is an opaque handle the bind package fills in; declared here so
// Attrs does not import bind (which in turn needs Attrs).
type ScopeRef struct {
	Kind string // "global", "function", "block", "catch"
	Self any    // *bind.Scope, stored as any to avoid an import cycle
}

// Table is the node -> Attrs side-table threaded through Decorator, Binder,
// and every later stage. It is built once per analysis run, shared by
// every file of that run, and never shared across concurrent analyses.
type Table struct {
	m map[*Node]*Attrs
}

// NewTable allocates an empty side-table.
func NewTable() *Table {
	return &Table{m: make(map[*Node]*Attrs)}
}

// Get returns the Attrs for n, allocating a zero-value entry on first
// access so callers can fill fields in without a separate existence check.
func (t *Table) Get(n *Node) *Attrs {
	if a, ok := t.m[n]; ok {
		return a
	}
	a := &Attrs{}
	t.m[n] = a
	return a
}

// Lookup returns the Attrs for n without allocating, and whether it existed.
func (t *Table) Lookup(n *Node) (*Attrs, bool) {
	a, ok := t.m[n]
	return a, ok
}
