// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package bind

import (
	"github.com/AleutianAI/jscg/internal/jscg/ast"
	"github.com/AleutianAI/jscg/internal/jscg/diag"
)

// Binder performs the second analysis pass. One Binder is shared across an
// entire analysis run so that module-level import/export specifiers from
// every file land in the same global scope, ready for the module linker
// (internal/jscg/flow) to wire together.
type Binder struct {
	table  *ast.Table
	global *Scope
}

// NewBinder creates a Binder with a fresh global scope, bound to table
// (shared with decorate and flow).
func NewBinder(table *ast.Table) *Binder {
	return &Binder{table: table, global: newScope(Global, nil, nil)}
}

// GlobalScope returns the shared global scope, populated as files are bound.
func (b *Binder) GlobalScope() *Scope { return b.global }

// Bind resolves every identifier use in root (a Program node for file) to
// its declaration site, populating ast.Attrs.ResolvedDecl / IsGlobal /
// Scope for every Identifier and ThisExpression node, and binding
// top-level var/function/let/const/class/import declarations into the
// shared global scope.
func (b *Binder) Bind(root *ast.Node, file string, sink *diag.Sink) {
	b.attachScope(root, b.global)
	b.hoist(root, b.global, file, sink)
	b.collectBlockLocals(root, b.global, file, sink)
	b.walk(root, b.global, b.global, file, sink)
}

func (b *Binder) attachScope(n *ast.Node, s *Scope) {
	b.table.Get(n).Scope = &ast.ScopeRef{Kind: string(s.Kind), Self: s}
}

// hoist collects var declarations and function declarations into funcScope,
// without descending into nested function bodies (those get their own
// function scope when the main walk reaches them).
func (b *Binder) hoist(n *ast.Node, funcScope *Scope, file string, sink *diag.Sink) {
	if n == nil {
		return
	}
	switch n.Kind {
	case ast.FunctionDeclaration:
		if n != funcScope.Opener && n.Name != "" {
			funcScope.Bind(n.Name, n, sink, file)
		}
		if n == funcScope.Opener {
			// fall through into its own body for hoisting within itself
			break
		}
		return
	case ast.FunctionExpression, ast.ArrowFunction:
		if n != funcScope.Opener {
			return
		}
	case ast.VariableDeclaration:
		if n.Operator == "var" {
			for _, d := range n.FieldList("declarations") {
				b.bindPattern(d.Field("id"), funcScope, file, sink)
			}
		}
	}
	for _, c := range n.Children {
		b.hoist(c, funcScope, file, sink)
	}
}

// collectBlockLocals pre-binds let/const/class declarations directly
// inside a block (not inside nested blocks or functions) into the block's
// own scope tracked via ast.Attrs.Scope, set up lazily by walk. Because
// block scopes are created during walk itself, collectBlockLocals here
// only handles the function/global-level case (top-level let/const/class
// bound directly in funcScope for simplicity, matching the "nearest
// block scope" rule when that block IS the function/global scope).
func (b *Binder) collectBlockLocals(n *ast.Node, scope *Scope, file string, sink *diag.Sink) {
	if n == nil {
		return
	}
	switch n.Kind {
	case ast.FunctionDeclaration, ast.FunctionExpression, ast.ArrowFunction, ast.BlockStatement, ast.CatchClause:
		if n != scope.Opener {
			return
		}
	case ast.VariableDeclaration:
		if n.Operator == "let" || n.Operator == "const" {
			for _, d := range n.FieldList("declarations") {
				b.bindPattern(d.Field("id"), scope, file, sink)
			}
		}
	case ast.ClassDeclaration:
		if n.Name != "" {
			scope.Bind(n.Name, n, sink, file)
		}
	case ast.ImportDeclaration:
		for _, spec := range n.FieldList("specifiers") {
			local := spec.Field("local")
			if local != nil && local.Name != "" {
				scope.Bind(local.Name, local, sink, file)
			}
		}
	}
	for _, c := range n.Children {
		b.collectBlockLocals(c, scope, file, sink)
	}
}

// bindPattern binds every leaf identifier of a (possibly destructuring)
// binding pattern into scope: plain identifiers, array/object patterns
// (including holes, rest elements, and defaults).
func (b *Binder) bindPattern(pattern *ast.Node, scope *Scope, file string, sink *diag.Sink) {
	if pattern == nil {
		return
	}
	switch pattern.Kind {
	case ast.Identifier:
		scope.Bind(pattern.Name, pattern, sink, file)
	case ast.ArrayPattern:
		for _, el := range pattern.FieldList("elements") {
			b.bindPattern(el, scope, file, sink)
		}
	case ast.ObjectPattern:
		for _, prop := range pattern.FieldList("properties") {
			if prop.Kind == ast.RestElement {
				b.bindPattern(prop.Field("argument"), scope, file, sink)
				continue
			}
			b.bindPattern(prop.Field("value"), scope, file, sink)
		}
	case ast.RestElement:
		b.bindPattern(pattern.Field("argument"), scope, file, sink)
	case ast.AssignmentPattern:
		b.bindPattern(pattern.Field("left"), scope, file, sink)
	}
}

// walk is the resolution pass: it descends the AST, opening new scopes at
// the nodes that introduce them, and resolving every value-position
// Identifier/ThisExpression against the current scope chain.
func (b *Binder) walk(n *ast.Node, funcScope, curScope *Scope, file string, sink *diag.Sink) {
	if n == nil {
		return
	}

	switch n.Kind {
	case ast.Identifier:
		if b.isBindingPosition(n) {
			return
		}
		b.resolveUse(n, curScope, file)
		return

	case ast.ThisExpression:
		b.resolveNamed(n, "this", curScope, file)
		return

	case ast.FunctionDeclaration, ast.FunctionExpression, ast.ArrowFunction:
		fnScope := newScope(Function, curScope, n)
		b.attachScope(n, fnScope)
		if n.Kind != ast.ArrowFunction {
			fnScope.Bind("this", n, sink, file)
			fnScope.Bind("arguments", n, sink, file)
		}
		for _, p := range n.FieldList("params") {
			b.bindPattern(p, fnScope, file, sink)
		}
		b.hoist(n, fnScope, file, sink)
		b.collectBlockLocals(n, fnScope, file, sink)
		for _, c := range n.Children {
			if c == n.Field("id") {
				continue
			}
			b.walk(c, fnScope, fnScope, file, sink)
		}
		return

	case ast.BlockStatement:
		if n == funcScope.Opener || n == curScope.Opener {
			break // the enclosing function/catch walk already opened this scope's bindings
		}
		blockScope := newScope(Block, curScope, n)
		b.attachScope(n, blockScope)
		b.collectBlockLocals(n, blockScope, file, sink)
		for _, c := range n.Children {
			b.walk(c, funcScope, blockScope, file, sink)
		}
		return

	case ast.CatchClause:
		catchScope := newScope(Catch, curScope, n)
		b.attachScope(n, catchScope)
		if p := n.Field("param"); p != nil {
			b.bindPattern(p, catchScope, file, sink)
		}
		for _, c := range n.Children {
			if c == n.Field("param") {
				continue
			}
			b.walk(c, funcScope, catchScope, file, sink)
		}
		return

	case ast.MemberExpression:
		b.walk(n.Field("object"), funcScope, curScope, file, sink)
		if n.Computed {
			b.walk(n.Field("property"), funcScope, curScope, file, sink)
		}
		return

	case ast.Property:
		if n.Computed {
			b.walk(n.Field("key"), funcScope, curScope, file, sink)
		}
		b.walk(n.Field("value"), funcScope, curScope, file, sink)
		return

	case ast.VariableDeclarator:
		b.walk(n.Field("init"), funcScope, curScope, file, sink)
		return

	case ast.ClassDeclaration, ast.ClassExpression:
		if sup := n.Field("superClass"); sup != nil {
			b.walk(sup, funcScope, curScope, file, sink)
		}
		for _, c := range n.FieldList("body") {
			b.walk(c, funcScope, curScope, file, sink)
		}
		return

	case ast.MethodDefinition:
		if n.Computed {
			b.walk(n.Field("key"), funcScope, curScope, file, sink)
		}
		b.walk(n.Field("value"), funcScope, curScope, file, sink)
		return

	case ast.ImportDeclaration, ast.ExportNamedDeclaration, ast.ExportDefaultDeclaration:
		// Module linker (internal/jscg/flow) wires these up; the binder's
		// job here is limited to making sure specifier names are already
		// bound (done in collectBlockLocals at the global scope).
		for _, c := range n.Children {
			if c.Kind == ast.ImportSpecifier || c.Kind == ast.ImportDefaultSpecifier || c.Kind == ast.ImportNamespaceSpecifier {
				continue
			}
			b.walk(c, funcScope, curScope, file, sink)
		}
		return
	}

	for _, c := range n.Children {
		b.walk(c, funcScope, curScope, file, sink)
	}
}

// isBindingPosition reports whether Identifier n names something rather
// than reading its value: a VariableDeclarator's "id", a non-computed
// member/property "key"/"property", a function/class's own name slot, or
// a parameter pattern leaf (already bound before walk visits the body).
func (b *Binder) isBindingPosition(n *ast.Node) bool {
	p := n.Parent
	if p == nil {
		return false
	}
	switch p.Kind {
	case ast.VariableDeclarator:
		return p.Field("id") == n
	case ast.MemberExpression:
		return !p.Computed && p.Field("property") == n
	case ast.Property:
		return !p.Computed && p.Field("key") == n
	case ast.MethodDefinition:
		return !p.Computed && p.Field("key") == n
	case ast.FunctionDeclaration, ast.FunctionExpression, ast.ClassDeclaration, ast.ClassExpression:
		return p.Field("id") == n
	case ast.ArrayPattern, ast.ObjectPattern, ast.RestElement, ast.AssignmentPattern:
		return true
	case ast.ImportSpecifier, ast.ImportDefaultSpecifier, ast.ImportNamespaceSpecifier:
		return true
	case ast.ExportSpecifier:
		// "local" names an existing binding and must resolve as a normal
		// read; only "exported" (the external alias, if any) is a bare
		// name with nothing to resolve.
		return p.Field("exported") == n
	}
	for _, param := range paramsOf(p) {
		if param == n {
			return true
		}
	}
	return false
}

func paramsOf(n *ast.Node) []*ast.Node {
	switch n.Kind {
	case ast.FunctionDeclaration, ast.FunctionExpression, ast.ArrowFunction:
		return n.FieldList("params")
	}
	return nil
}

// resolveUse resolves identifier n by its own name.
func (b *Binder) resolveUse(n *ast.Node, scope *Scope, file string) {
	b.resolveNamed(n, n.Name, scope, file)
}

func (b *Binder) resolveNamed(n *ast.Node, name string, scope *Scope, file string) {
	a := b.table.Get(n)
	decl, owner, ok := scope.Resolve(name)
	if !ok {
		a.IsGlobal = true
		return
	}
	a.ResolvedDecl = decl
	a.Scope = &ast.ScopeRef{Kind: string(owner.Kind), Self: owner}
	a.IsGlobal = owner.Kind == Global
}
