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
	"github.com/AleutianAI/jscg/internal/jscg/ast"
	"github.com/AleutianAI/jscg/internal/jscg/diag"
)

// Builder populates a Graph by structural recursion over a single
// decorated, bound file's AST, via the intraprocedural edge rules R1-R9.
// One Builder instance is used per file; the Graph itself
// accumulates edges from every file in an analysis run.
type Builder struct {
	graph *Graph
	table *ast.Table
	sink  *diag.Sink
}

// NewBuilder returns a Builder writing into graph, using table for
// resolved-declaration lookups (populated by decorate and bind), and sink
// for diagnostics (unresolved module specifiers are reported by the
// linker, not here; the builder itself has no recoverable failure modes
// beyond defensive nil checks).
func NewBuilder(graph *Graph, table *ast.Table, sink *diag.Sink) *Builder {
	return &Builder{graph: graph, table: table, sink: sink}
}

// Build walks root (a Program node) and adds every intraprocedural edge
// it contributes.
func (b *Builder) Build(root *ast.Node) {
	b.walk(root)
}

func (b *Builder) value(n *ast.Node) Vertex { return ExprV(n) }

func (b *Builder) walk(n *ast.Node) {
	if n == nil {
		return
	}
	switch n.Kind {
	case ast.Identifier:
		b.identifierRead(n)
	case ast.ThisExpression:
		b.thisRead(n)
	case ast.VariableDeclaration:
		for _, d := range n.FieldList("declarations") {
			b.walk(d)
		}
	case ast.VariableDeclarator:
		init := n.Field("init")
		if init != nil {
			b.walk(init)
			b.assign(n.Field("id"), b.value(init))
		}
	case ast.AssignmentExpression:
		b.assignmentExpr(n)
	case ast.MemberExpression:
		b.memberRead(n)
	case ast.CallExpression, ast.NewExpression:
		b.call(n)
	case ast.FunctionDeclaration, ast.FunctionExpression, ast.ArrowFunction:
		b.function(n)
	case ast.ReturnStatement:
		b.ret(n)
	case ast.ConditionalExpression:
		b.walk(n.Field("test"))
		cons, alt := n.Field("consequent"), n.Field("alternate")
		b.walk(cons)
		b.walk(alt)
		if cons != nil {
			b.graph.AddEdge(b.value(cons), ExprV(n))
		}
		if alt != nil {
			b.graph.AddEdge(b.value(alt), ExprV(n))
		}
	case ast.LogicalExpression, ast.BinaryExpression:
		left, right := n.Field("left"), n.Field("right")
		b.walk(left)
		b.walk(right)
		if left != nil {
			b.graph.AddEdge(b.value(left), ExprV(n))
		}
		if right != nil {
			b.graph.AddEdge(b.value(right), ExprV(n))
		}
	case ast.SequenceExpression:
		exprs := n.FieldList("expressions")
		for _, e := range exprs {
			b.walk(e)
		}
		if len(exprs) > 0 {
			b.graph.AddEdge(b.value(exprs[len(exprs)-1]), ExprV(n))
		}
	case ast.ArrayExpression:
		for _, el := range n.FieldList("elements") {
			if el == nil {
				continue
			}
			if el.Kind == ast.SpreadElement {
				b.walk(el.Field("argument"))
				continue
			}
			b.walk(el)
			b.graph.AddEdge(b.value(el), ExprV(n))
		}
	case ast.ObjectExpression:
		for _, prop := range n.FieldList("properties") {
			b.walk(prop)
			b.graph.AddEdge(b.value(prop), ExprV(n))
		}
	case ast.Property:
		b.property(n)
	case ast.TemplateLiteral:
		for _, e := range n.FieldList("expressions") {
			b.walk(e)
		}
	case ast.ClassDeclaration, ast.ClassExpression:
		b.class(n)
	case ast.SpreadElement, ast.RestElement:
		b.walk(n.Field("argument"))
	case ast.ImportDeclaration:
		// the module linker (module.go) wires imported bindings directly
		// from each module's export vertex; nothing here flows locally.
	case ast.ExportNamedDeclaration, ast.ExportDefaultDeclaration:
		// the module linker wires exported bindings into the module's
		// namespace vertex; only an inline declaration has a body to walk.
		if decl := n.Field("declaration"); decl != nil {
			b.walk(decl)
		}
	default:
		for _, c := range n.Children {
			b.walk(c)
		}
	}
}

// identifierRead implements rule 2 (variable read).
func (b *Builder) identifierRead(n *ast.Node) {
	a := b.table.Get(n)
	switch {
	case a.ResolvedDecl != nil && a.IsGlobal:
		b.graph.AddEdge(GlobV(n.Name), ExprV(n))
		// Function declarations, import bindings and declarator ids write
		// their own Var vertex, so a global read also draws from it.
		b.graph.AddEdge(VarV(a.ResolvedDecl), ExprV(n))
	case a.ResolvedDecl != nil:
		b.graph.AddEdge(VarV(a.ResolvedDecl), ExprV(n))
	default:
		if !wireGlobalNative(b.graph, n) {
			b.graph.AddEdge(Unknown, ExprV(n))
		}
	}
}

func (b *Builder) thisRead(n *ast.Node) {
	a := b.table.Get(n)
	if a.ResolvedDecl != nil {
		b.graph.AddEdge(VarV(a.ResolvedDecl), ExprV(n))
	} else {
		b.graph.AddEdge(Unknown, ExprV(n))
	}
}

// assign implements rule 1's left-hand side resolution, expanded over
// destructuring patterns per rule 9.
func (b *Builder) assign(lhs *ast.Node, rhsVal Vertex) {
	if lhs == nil {
		return
	}
	switch lhs.Kind {
	case ast.Identifier:
		b.bindAssignTarget(lhs, rhsVal)
	case ast.MemberExpression:
		b.walk(lhs.Field("object"))
		if lhs.Computed {
			b.walk(lhs.Field("property"))
			return
		}
		prop := lhs.Field("property")
		if prop != nil {
			b.graph.AddEdge(rhsVal, PropV(prop.Name))
		}
	case ast.ArrayPattern:
		for _, el := range lhs.FieldList("elements") {
			if el == nil {
				continue
			}
			b.assign(el, rhsVal)
		}
	case ast.ObjectPattern:
		for _, prop := range lhs.FieldList("properties") {
			if prop.Kind == ast.RestElement {
				b.assign(prop.Field("argument"), rhsVal)
				continue
			}
			key := prop.Field("key")
			if key == nil || prop.Computed {
				continue
			}
			b.assign(prop.Field("value"), PropV(key.Name))
		}
	case ast.AssignmentPattern:
		if def := lhs.Field("right"); def != nil {
			b.walk(def)
		}
		b.assign(lhs.Field("left"), rhsVal)
	case ast.RestElement:
		b.assign(lhs.Field("argument"), rhsVal)
	}
}

func (b *Builder) bindAssignTarget(id *ast.Node, rhsVal Vertex) {
	a := b.table.Get(id)
	switch {
	case a.ResolvedDecl != nil && a.IsGlobal:
		b.graph.AddEdge(rhsVal, GlobV(id.Name))
	case a.ResolvedDecl != nil:
		b.graph.AddEdge(rhsVal, VarV(a.ResolvedDecl))
	default:
		// An unresolved target is an implicit global or a declarator id;
		// a declarator id is itself the declaration its reads resolve to.
		b.graph.AddEdge(rhsVal, VarV(id))
		b.graph.AddEdge(rhsVal, GlobV(id.Name))
	}
}

// assignmentExpr implements rule 1 (including rule 3, property write, for
// member-expression targets) and rule 9's compound-operator equivalence:
// compound operators (`+=`, etc.) are treated identically to `=`.
func (b *Builder) assignmentExpr(n *ast.Node) {
	left, right := n.Field("left"), n.Field("right")
	b.walk(right)
	b.assign(left, b.value(right))
	b.graph.AddEdge(b.value(right), ExprV(n))
}

// memberRead implements rule 4 (property read). The object sub-expression
// is walked for its side effects but, per the field-based abstraction, its
// vertex is never linked to Prop(p): receiver identity is discarded.
// Computed accesses (`obj[e]`) are out of scope; they connect Unknown to
// the expression's vertex rather than attempting resolution.
func (b *Builder) memberRead(n *ast.Node) {
	b.walk(n.Field("object"))
	if n.Computed {
		b.walk(n.Field("property"))
		b.graph.AddEdge(Unknown, ExprV(n))
		return
	}
	prop := n.Field("property")
	if prop != nil {
		b.graph.AddEdge(PropV(prop.Name), ExprV(n))
	}
}

// property implements the object-literal half of rule 9: non-computed
// keys flow their value into Prop(k); the Property node's own value
// (needed by the enclosing ObjectExpression) is the value sub-expression's
// value.
func (b *Builder) property(n *ast.Node) {
	key, value := n.Field("key"), n.Field("value")
	if n.Computed {
		b.walk(key)
	}
	b.walk(value)
	if value == nil {
		return
	}
	if !n.Computed && key != nil {
		b.graph.AddEdge(b.value(value), PropV(key.Name))
	}
	b.graph.AddEdge(b.value(value), ExprV(n))
}

// call implements rule 6 (call), the `new` extension, and native-model
// dispatch (the sequential-flow combinator and callback-accepting
// natives).
func (b *Builder) call(n *ast.Node) {
	callee := n.Field("callee")
	b.walk(callee)
	b.graph.AddEdge(b.value(callee), CalleeV(n))

	args := n.FieldList("arguments")
	for i, a := range args {
		if a.Kind == ast.SpreadElement {
			b.walk(a.Field("argument"))
			continue
		}
		b.walk(a)
		b.graph.AddEdge(b.value(a), ArgV(n, i))
	}
	b.graph.AddEdge(ResV(n), ExprV(n))

	if n.Kind == ast.NewExpression {
		// instances approximate their constructors for further method
		// lookups, an intentional overapproximation.
		b.graph.AddEdge(b.value(callee), ExprV(n))
	}

	if name, ok := nativeNameFromCallee(callee); ok {
		d, _ := Lookup(name)
		switch d.Behavior {
		case NativeCallback:
			wireNativeCallback(b.graph, n, d)
		case NativeSequential:
			b.wireSequentialCombinator(n)
		}
	}
}

// wireSequentialCombinator implements the sequential-flow combinator:
// for each adjacent pair (f_k, f_k+1) among the call's
// function-typed arguments (function literals, or identifiers that resolve
// to a function declaration), a pseudo call-site is synthesized whose callee
// slot is reachable from both Func(f_k+1) and Ret(f_k), attributed to f_k
// as its enclosing function.
func (b *Builder) wireSequentialCombinator(call *ast.Node) {
	var fns []*ast.Node
	for _, a := range call.FieldList("arguments") {
		if a.Kind == ast.Identifier {
			if d := b.table.Get(a).ResolvedDecl; d != nil && d.IsFunction() {
				a = d
			}
		}
		if a.IsFunction() {
			fns = append(fns, a)
		}
	}
	if len(fns) == 0 {
		return
	}
	b.graph.AddEdge(FuncV(fns[0]), CalleeV(call))
	file := b.table.Get(call).EnclosingFile
	for k := 0; k+1 < len(fns); k++ {
		fk, fk1 := fns[k], fns[k+1]
		pseudo := &ast.Node{Kind: ast.CallExpression, Range: call.Range, Name: "<step>"}
		pa := b.table.Get(pseudo)
		pa.EnclosingFunction = fk
		pa.EnclosingFile = file
		b.graph.AddEdge(FuncV(fk1), CalleeV(pseudo))
		b.graph.AddEdge(RetV(fk), CalleeV(pseudo))
	}
}

// function implements rule 5 (function value) and the return handling for
// arrow functions with an expression body (an implicit return per rule 8).
func (b *Builder) function(n *ast.Node) {
	b.graph.AddEdge(FuncV(n), ExprV(n))
	if n.Kind == ast.FunctionDeclaration {
		b.graph.AddEdge(FuncV(n), VarV(n))
	}
	for _, p := range n.FieldList("params") {
		b.walkParamDefaults(p)
	}
	body := n.Field("body")
	if n.Kind == ast.ArrowFunction && body != nil && body.Kind != ast.BlockStatement {
		b.walk(body)
		b.graph.AddEdge(b.value(body), RetV(n))
		return
	}
	b.walk(body)
}

func (b *Builder) walkParamDefaults(p *ast.Node) {
	if p == nil {
		return
	}
	switch p.Kind {
	case ast.AssignmentPattern:
		b.walk(p.Field("right"))
		b.walkParamDefaults(p.Field("left"))
	case ast.ArrayPattern:
		for _, el := range p.FieldList("elements") {
			b.walkParamDefaults(el)
		}
	case ast.ObjectPattern:
		for _, prop := range p.FieldList("properties") {
			if prop.Kind == ast.RestElement {
				b.walkParamDefaults(prop.Field("argument"))
				continue
			}
			b.walkParamDefaults(prop.Field("value"))
		}
	case ast.RestElement:
		b.walkParamDefaults(p.Field("argument"))
	}
}

// ret implements rule 8 (return).
func (b *Builder) ret(n *ast.Node) {
	arg := n.Field("argument")
	if arg == nil {
		return
	}
	fn := b.table.Get(n).EnclosingFunction
	if fn == nil {
		return
	}
	b.walk(arg)
	b.graph.AddEdge(b.value(arg), RetV(fn))
}

// class implements the class-handling additions to rule 9: every named
// method's function value flows into Prop(name); `constructor` is bound
// both as Prop("constructor") and as the class's own value (its Expr
// vertex, and its Var vertex for a class declaration).
func (b *Builder) class(n *ast.Node) {
	for _, member := range n.FieldList("body") {
		if member.Kind != ast.MethodDefinition {
			b.walk(member)
			continue
		}
		value := member.Field("value")
		if value == nil {
			continue
		}
		b.walk(value)
		key := member.Field("key")
		if member.Computed || key == nil || key.Name == "" {
			continue
		}
		b.graph.AddEdge(FuncV(value), PropV(key.Name))
		if key.Name == "constructor" {
			b.graph.AddEdge(FuncV(value), ExprV(n))
			if n.Kind == ast.ClassDeclaration {
				b.graph.AddEdge(FuncV(value), VarV(n))
			}
		}
	}
}
