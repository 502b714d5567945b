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
	"testing"

	"github.com/AleutianAI/jscg/internal/jscg/ast"
	"github.com/AleutianAI/jscg/internal/jscg/diag"
)

// ident builds a bare Identifier leaf.
func ident(name string) *ast.Node {
	return &ast.Node{Kind: ast.Identifier, Name: name}
}

// setParents walks n and fills every descendant's Parent pointer, mirroring
// what the parser adapter does once up front.
func setParents(n *ast.Node) {
	for _, c := range n.Children {
		c.Parent = n
		setParents(c)
	}
}

// program assembles a Program node whose Children is the union of every
// field/list value supplied, with parent pointers wired.
func program(body ...*ast.Node) *ast.Node {
	n := &ast.Node{Kind: ast.Program, Children: body}
	setParents(n)
	return n
}

func TestGlobalVarDeclarationResolvesAcrossProgram(t *testing.T) {
	// var x = 1; function use() { return x; }
	declID := ident("x")
	declarator := &ast.Node{Kind: ast.VariableDeclarator, Children: []*ast.Node{declID}, Fields: map[string]*ast.Node{"id": declID}}
	decl := &ast.Node{
		Kind:     ast.VariableDeclaration,
		Operator: "var",
		Children: []*ast.Node{declarator},
		List:     map[string][]*ast.Node{"declarations": {declarator}},
	}

	useID := ident("x")
	ret := &ast.Node{Kind: ast.ReturnStatement, Children: []*ast.Node{useID}}
	fnBody := &ast.Node{Kind: ast.BlockStatement, Children: []*ast.Node{ret}}
	fn := &ast.Node{
		Kind:     ast.FunctionDeclaration,
		Name:     "use",
		Children: []*ast.Node{fnBody},
		Fields:   map[string]*ast.Node{"body": fnBody},
		List:     map[string][]*ast.Node{"params": nil},
	}

	root := program(decl, fn)

	table := ast.NewTable()
	b := NewBinder(table)
	sink := diag.NewSink()
	b.Bind(root, "main.js", sink)

	a := table.Get(useID)
	if a.ResolvedDecl != declID {
		t.Fatalf("use of x resolved to %v, want the declarator's id %v", a.ResolvedDecl, declID)
	}
	if a.IsGlobal == false {
		t.Errorf("expected x's declaring scope to be Global")
	}
}

func TestUnresolvedIdentifierIsMarkedGlobal(t *testing.T) {
	useID := ident("undeclared")
	root := program(&ast.Node{Kind: ast.ReturnStatement, Children: []*ast.Node{useID}})

	table := ast.NewTable()
	b := NewBinder(table)
	sink := diag.NewSink()
	b.Bind(root, "main.js", sink)

	a := table.Get(useID)
	if a.ResolvedDecl != nil {
		t.Errorf("expected no ResolvedDecl for an undeclared identifier, got %v", a.ResolvedDecl)
	}
	if !a.IsGlobal {
		t.Errorf("expected IsGlobal=true for an undeclared identifier")
	}
}

func TestFunctionParamShadowsOuterBinding(t *testing.T) {
	// var x = 1; function f(x) { return x; } — inner x must resolve to the param.
	outerDeclID := ident("x")
	outerDeclarator := &ast.Node{Kind: ast.VariableDeclarator, Fields: map[string]*ast.Node{"id": outerDeclID}, Children: []*ast.Node{outerDeclID}}
	outerDecl := &ast.Node{Kind: ast.VariableDeclaration, Operator: "var", Children: []*ast.Node{outerDeclarator}, List: map[string][]*ast.Node{"declarations": {outerDeclarator}}}

	param := ident("x")
	innerUse := ident("x")
	ret := &ast.Node{Kind: ast.ReturnStatement, Children: []*ast.Node{innerUse}}
	fnBody := &ast.Node{Kind: ast.BlockStatement, Children: []*ast.Node{ret}}
	fn := &ast.Node{
		Kind:     ast.FunctionDeclaration,
		Name:     "f",
		Children: []*ast.Node{param, fnBody},
		Fields:   map[string]*ast.Node{"body": fnBody},
		List:     map[string][]*ast.Node{"params": {param}},
	}

	root := program(outerDecl, fn)

	table := ast.NewTable()
	b := NewBinder(table)
	sink := diag.NewSink()
	b.Bind(root, "main.js", sink)

	a := table.Get(innerUse)
	if a.ResolvedDecl != param {
		t.Errorf("inner x resolved to %v, want the function's own parameter %v", a.ResolvedDecl, param)
	}
	if a.IsGlobal {
		t.Errorf("inner x should resolve to the function scope, not global")
	}
}

func TestBlockScopedLetDoesNotLeakOutsideItsBlock(t *testing.T) {
	// { let y = 1; } return y; — the outer y use must not see the block's y.
	innerDeclID := ident("y")
	innerDeclarator := &ast.Node{Kind: ast.VariableDeclarator, Fields: map[string]*ast.Node{"id": innerDeclID}, Children: []*ast.Node{innerDeclID}}
	innerDecl := &ast.Node{Kind: ast.VariableDeclaration, Operator: "let", Children: []*ast.Node{innerDeclarator}, List: map[string][]*ast.Node{"declarations": {innerDeclarator}}}
	block := &ast.Node{Kind: ast.BlockStatement, Children: []*ast.Node{innerDecl}}

	outerUse := ident("y")
	ret := &ast.Node{Kind: ast.ReturnStatement, Children: []*ast.Node{outerUse}}

	root := program(block, ret)

	table := ast.NewTable()
	b := NewBinder(table)
	sink := diag.NewSink()
	b.Bind(root, "main.js", sink)

	a := table.Get(outerUse)
	if a.ResolvedDecl != nil {
		t.Errorf("outer y should not resolve into the block's let binding, got %v", a.ResolvedDecl)
	}
	if !a.IsGlobal {
		t.Errorf("outer y should fall through to global (unresolved)")
	}
}

func TestDuplicateBindingWarnsAndFirstWins(t *testing.T) {
	first := ident("x")
	second := ident("x")
	d1 := &ast.Node{Kind: ast.VariableDeclarator, Fields: map[string]*ast.Node{"id": first}, Children: []*ast.Node{first}}
	d2 := &ast.Node{Kind: ast.VariableDeclarator, Fields: map[string]*ast.Node{"id": second}, Children: []*ast.Node{second}}
	decl := &ast.Node{Kind: ast.VariableDeclaration, Operator: "var", Children: []*ast.Node{d1, d2}, List: map[string][]*ast.Node{"declarations": {d1, d2}}}

	use := ident("x")
	root := program(decl, &ast.Node{Kind: ast.ReturnStatement, Children: []*ast.Node{use}})

	table := ast.NewTable()
	b := NewBinder(table)
	sink := diag.NewSink()
	b.Bind(root, "main.js", sink)

	if a := table.Get(use); a.ResolvedDecl != first {
		t.Errorf("x resolved to %v, want the first declaration %v", a.ResolvedDecl, first)
	}

	items := sink.Items()
	if len(items) != 1 {
		t.Fatalf("len(Items()) = %d, want 1 duplicate-binding warning", len(items))
	}
	if items[0].Severity != diag.Warning {
		t.Errorf("duplicate binding diagnostic should be a Warning")
	}
}

func TestCatchParamIsScopedToCatchClause(t *testing.T) {
	param := ident("e")
	use := ident("e")
	catchBody := &ast.Node{Kind: ast.BlockStatement, Children: []*ast.Node{use}}
	catch := &ast.Node{
		Kind:     ast.CatchClause,
		Children: []*ast.Node{param, catchBody},
		Fields:   map[string]*ast.Node{"param": param},
	}
	root := program(catch)

	table := ast.NewTable()
	b := NewBinder(table)
	sink := diag.NewSink()
	b.Bind(root, "main.js", sink)

	a := table.Get(use)
	if a.ResolvedDecl != param {
		t.Errorf("use of e resolved to %v, want the catch param %v", a.ResolvedDecl, param)
	}
}

func TestScopeResolveWalksOutwardAndReportsOwner(t *testing.T) {
	global := newScope(Global, nil, nil)
	decl := ident("g")
	sink := diag.NewSink()
	global.Bind("g", decl, sink, "main.js")

	fn := newScope(Function, global, nil)
	resolved, owner, ok := fn.Resolve("g")
	if !ok || resolved != decl || owner != global {
		t.Errorf("Resolve(\"g\") = (%v, %v, %v), want (%v, %v, true)", resolved, owner, ok, decl, global)
	}

	if _, _, ok := fn.Resolve("nope"); ok {
		t.Errorf("Resolve(\"nope\") should fail all the way to the global scope")
	}
}
