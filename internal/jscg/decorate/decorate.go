// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package decorate implements the first analysis pass: a single pre-order
// walk that assigns every function and call/construct site a stable
// identity in the root's registries, and works out which of the four
// naming rules (declared, method, assigned, callback-or-anonymous) applies
// to every function value.
package decorate

import (
	"fmt"
	"unicode"

	"github.com/AleutianAI/jscg/internal/jscg/ast"
	"github.com/AleutianAI/jscg/internal/jscg/diag"
)

// Context owns the function and call registries that persist for the
// lifetime of an analysis. It is created once per run (not per file) so
// registry order reflects the file list order the embedder supplied,
// matching the determinism invariant every stage relies on.
type Context struct {
	Functions []*ast.Node
	Calls     []*ast.Node

	table        *ast.Table
	anonCounters map[*ast.Node]int // nil key == global (top level)
}

// NewContext creates an empty decoration context bound to table. table is
// shared with the bind and flow stages; Context only ever writes naming
// attributes into it.
func NewContext(table *ast.Table) *Context {
	return &Context{table: table, anonCounters: make(map[*ast.Node]int)}
}

// Decorate walks root in pre-order and attaches the per-node attributes
// described in the naming pipeline. file is recorded on every node's
// attrs as EnclosingFile; sink receives a warning for every unsupported
// naming construct (a computed or non-identifier-literal method key).
func (c *Context) Decorate(root *ast.Node, file string, sink *diag.Sink) {
	var walk func(n *ast.Node, enclosing *ast.Node)
	walk = func(n *ast.Node, enclosing *ast.Node) {
		if n == nil {
			return
		}
		a := c.table.Get(n)
		a.EnclosingFunction = enclosing
		a.EnclosingFile = file

		switch n.Kind {
		case ast.FunctionDeclaration, ast.FunctionExpression, ast.ArrowFunction:
			c.Functions = append(c.Functions, n)
			c.nameFunction(n, a, file, sink)
			for _, child := range n.Children {
				walk(child, n)
			}
			return
		case ast.CallExpression, ast.NewExpression:
			c.Calls = append(c.Calls, n)
		}

		for _, child := range n.Children {
			walk(child, enclosing)
		}
	}
	walk(root, nil)
}

// nameFunction runs the naming pipeline for a single
// function node n, in priority order: declared name, method-definition
// name, parent-assignment name, then callback-vs-free-anonymous
// classification.
func (c *Context) nameFunction(n *ast.Node, a *ast.Attrs, file string, sink *diag.Sink) {
	if n.Name != "" {
		a.DeclaredName = n.Name
		return
	}
	if name, ok := methodName(n, sink, file); ok {
		a.DeclaredName = name
		return
	}
	if name, ok := assignedName(n); ok {
		a.AssignedName = name
		return
	}
	if cb, ok := c.classifyCallback(n); ok {
		a.Callback = cb
		return
	}
	a.AnonIndex = c.nextAnonIndex(a.EnclosingFunction)
}

// methodName implements the method-definition naming rule: a function that
// is the value of a non-computed Property with an identifier key, or a
// literal key that is a valid identifier name, is named after that key, as
// is a class-body MethodDefinition.
func methodName(n *ast.Node, sink *diag.Sink, file string) (string, bool) {
	p := n.Parent
	if p == nil {
		return "", false
	}
	switch p.Kind {
	case ast.Property:
		if p.Field("value") != n {
			return "", false
		}
		if p.Computed {
			sink.Warnf(diag.StageDecorate, file, "computed property key left anonymous")
			return "", false
		}
		key := p.Field("key")
		if key == nil {
			return "", false
		}
		if key.Kind == ast.Identifier || key.Kind == ast.Literal {
			valid := key.Name != ""
			for i, r := range key.Name {
				if key.Kind == ast.Literal && !(r == '_' || r == '$' || unicode.IsLetter(r) || (i > 0 && unicode.IsDigit(r))) {
					valid = false
				}
			}
			if !valid {
				sink.Warnf(diag.StageDecorate, file, "non-identifier literal method key left anonymous")
				return "", false
			}
			return key.Name, true
		}
		return "", false
	case ast.MethodDefinition:
		if p.Field("value") != n {
			return "", false
		}
		if p.Computed {
			sink.Warnf(diag.StageDecorate, file, "computed method key left anonymous")
			return "", false
		}
		key := p.Field("key")
		if key != nil && key.Name != "" {
			return key.Name, true
		}
		return "", false
	}
	return "", false
}

// assignedName implements the parent-assignment naming rule:
// `x = function(){}` / `exports.x = function(){}` and
// `var/let/const x = function(){}` both name the function after x.
func assignedName(n *ast.Node) (string, bool) {
	p := n.Parent
	if p == nil {
		return "", false
	}
	switch p.Kind {
	case ast.AssignmentExpression:
		if p.Field("right") != n {
			return "", false
		}
		return lvalueName(p.Field("left"))
	case ast.VariableDeclarator:
		if p.Field("init") != n {
			return "", false
		}
		id := p.Field("id")
		if id != nil && id.Kind == ast.Identifier {
			return id.Name, true
		}
		return "", false
	}
	return "", false
}

// lvalueName extracts the name an assignment target contributes: an
// identifier's own name, or a non-computed member expression's property
// name (so `exports.x = ...` names the function "x", not "exports.x").
func lvalueName(lhs *ast.Node) (string, bool) {
	if lhs == nil {
		return "", false
	}
	switch lhs.Kind {
	case ast.Identifier:
		return lhs.Name, lhs.Name != ""
	case ast.MemberExpression:
		if lhs.Computed {
			return "", false
		}
		prop := lhs.Field("property")
		if prop != nil && prop.Name != "" {
			return prop.Name, true
		}
	}
	return "", false
}

// classifyCallback implements the Callback classification: a function is a
// callback iff it is a direct element of the arguments list of the
// immediately enclosing CallExpression/NewExpression. If the callee label
// cannot be derived (classifyCallee fails), the function falls through to
// free-anonymous classification instead.
func (c *Context) classifyCallback(n *ast.Node) (*ast.CallbackInfo, bool) {
	call := n.Parent
	if call == nil || (call.Kind != ast.CallExpression && call.Kind != ast.NewExpression) {
		return nil, false
	}
	args := call.FieldList("arguments")
	argIndex := -1
	for i, arg := range args {
		if arg == n {
			argIndex = i
			break
		}
	}
	if argIndex < 0 {
		return nil, false
	}
	calleeLabel, ok := classifyCallee(call.Field("callee"))
	if !ok {
		return nil, false
	}
	fnTotal := 0
	fnPosition := 0
	for _, arg := range args {
		if arg.IsFunction() {
			fnTotal++
			if arg == n {
				fnPosition = fnTotal
			}
		}
	}
	return &ast.CallbackInfo{
		Call:        call,
		ArgIndex:    argIndex,
		FnPosition:  fnPosition,
		FnTotal:     fnTotal,
		CalleeLabel: calleeLabel,
	}, true
}

// classifyCallee derives the `C` component of a `clb(C)` label: an
// identifier yields its own name; a member-expression chain yields
// `a.b.c`, with computed segments rendered `[computed]`. Any other callee
// shape fails, signalling the caller to fall through to the anonymous-
// index naming scheme.
func classifyCallee(callee *ast.Node) (string, bool) {
	if callee == nil {
		return "", false
	}
	switch callee.Kind {
	case ast.Identifier:
		if callee.Name == "" {
			return "", false
		}
		return callee.Name, true
	case ast.MemberExpression:
		left, ok := classifyCallee(callee.Field("object"))
		if !ok {
			// The receiver itself isn't an identifier or a resolvable
			// member chain (e.g. an array/object literal, a call result):
			// render it as "[computed]" rather than failing the whole
			// callee out to free-anonymous naming.
			left = "[computed]"
		}
		var seg string
		if callee.Computed {
			seg = "[computed]"
		} else {
			prop := callee.Field("property")
			if prop == nil || prop.Name == "" {
				return "", false
			}
			seg = prop.Name
		}
		return left + "." + seg, true
	}
	return "", false
}

// nextAnonIndex returns the next 1-based free-anonymous index for the
// given enclosing function (nil means global/top-level), maintaining
// contiguity within that scope.
func (c *Context) nextAnonIndex(enclosing *ast.Node) int {
	c.anonCounters[enclosing]++
	return c.anonCounters[enclosing]
}

// Label returns the public, memoized label(fn) rendering for a function
// node. It is pure after Decorate has run for fn's file.
func Label(table *ast.Table, fn *ast.Node) string {
	a := table.Get(fn)
	if a.Label != "" {
		return a.Label
	}
	var lbl string
	switch {
	case a.DeclaredName != "":
		lbl = a.DeclaredName
	case a.AssignedName != "":
		lbl = a.AssignedName
	case a.Callback != nil:
		cb := a.Callback
		if cb.FnTotal == 1 {
			lbl = fmt.Sprintf("clb(%s)", cb.CalleeLabel)
		} else {
			lbl = fmt.Sprintf("clb(%s)[%d]", cb.CalleeLabel, cb.FnPosition)
		}
	default:
		parentLabel := "global"
		if a.EnclosingFunction != nil {
			parentLabel = Label(table, a.EnclosingFunction)
		}
		lbl = fmt.Sprintf("%s:anon[%d]", parentLabel, a.AnonIndex)
	}
	a.Label = lbl
	return lbl
}
