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
	"path"
	"strings"

	"github.com/AleutianAI/jscg/internal/jscg/ast"
	"github.com/AleutianAI/jscg/internal/jscg/diag"
)

// Linker wires ES module import/export and CommonJS require/module.exports
// forms together. One Linker is shared across an entire
// analysis run: module paths are resolved relative to the project root, so
// every file's exports must be registered before any file's imports are
// resolved, hence the two-pass Export/Import API below.
type Linker struct {
	graph   *Graph
	table   *ast.Table
	sink    *diag.Sink
	resolve func(fromFile, spec string) (string, bool)

	// Dependencies records one entry per import/require/AMD-dependency
	// specifier seen during RegisterImports, in encounter order. The
	// -reqJs CLI mode renders this as a module dependency graph instead
	// of the usual call-graph edge list.
	Dependencies []Dependency
}

// Dependency is one file's reference to another module, as written in
// the source (before resolution), plus whether the resolver found a
// matching file in the analyzed set.
type Dependency struct {
	FromFile   string
	Specifier  string
	ResolvedTo string
	Resolved   bool
}

// NewLinker returns a Linker writing into graph. resolve maps an import/
// require specifier, relative to fromFile, onto a canonical module path (a
// project-relative file path with no extension); it reports false for
// specifiers the discover package's file set does not cover (e.g. a
// third-party package import), in which case the linker wires the
// importing binding to Unknown rather than failing.
func NewLinker(graph *Graph, table *ast.Table, sink *diag.Sink, resolve func(fromFile, spec string) (string, bool)) *Linker {
	return &Linker{graph: graph, table: table, sink: sink, resolve: resolve}
}

// ExportDefaultName is the reserved member name default exports are keyed
// under within a module's namespace vertex family.
const ExportDefaultName = "default"

// namedExportV returns the vertex a module's named export named is wired
// through: a Prop-like per-(module,name) vertex distinguished from every
// other module's export of the same name, unlike Prop(name) itself, which
// deliberately conflates across the whole program.
func namedExportV(modulePath, name string) Vertex {
	return ModuleV(modulePath + "#" + name)
}

// RegisterExports walks root (file's Program node) for export forms and
// wires each exported binding's value into that module's namespace vertex.
func (l *Linker) RegisterExports(root *ast.Node, file string) {
	modulePath := canonicalPath(file)
	ast.Walk(root, func(n *ast.Node) bool {
		switch n.Kind {
		case ast.ExportDefaultDeclaration:
			decl := n.Field("declaration")
			if decl == nil {
				return true
			}
			if decl.IsFunction() || decl.Kind == ast.ClassDeclaration {
				l.graph.AddEdge(FuncV(decl), namedExportV(modulePath, ExportDefaultName))
			} else if decl.Kind == ast.Identifier {
				a := l.table.Get(decl)
				if a.ResolvedDecl != nil {
					l.graph.AddEdge(VarV(a.ResolvedDecl), namedExportV(modulePath, ExportDefaultName))
				}
			}
			return true
		case ast.ExportNamedDeclaration:
			if decl := n.Field("declaration"); decl != nil {
				l.registerDeclExports(decl, modulePath)
			}
			for _, spec := range n.FieldList("specifiers") {
				local := spec.Field("local")
				exported := spec.Field("exported")
				if local == nil {
					continue
				}
				a := l.table.Get(local)
				name := local.Name
				if exported != nil && exported.Name != "" {
					name = exported.Name
				}
				if a.ResolvedDecl != nil {
					l.graph.AddEdge(VarV(a.ResolvedDecl), namedExportV(modulePath, name))
				}
			}
			return true
		case ast.AssignmentExpression:
			l.registerCommonJSExport(n, modulePath)
			return true
		}
		return true
	})
}

// registerDeclExports handles `export function f(){}`, `export class C{}`,
// and `export const/let/var x = ...` forms.
func (l *Linker) registerDeclExports(decl *ast.Node, modulePath string) {
	switch decl.Kind {
	case ast.FunctionDeclaration, ast.ClassDeclaration:
		if decl.Name != "" {
			l.graph.AddEdge(FuncV(decl), namedExportV(modulePath, decl.Name))
		}
	case ast.VariableDeclaration:
		for _, d := range decl.FieldList("declarations") {
			id := d.Field("id")
			if id == nil || id.Kind != ast.Identifier {
				continue
			}
			l.graph.AddEdge(VarV(id), namedExportV(modulePath, id.Name))
		}
	}
}

// registerCommonJSExport handles `module.exports = ...` (wired to the
// module's default slot) and `module.exports.x = ...` / `exports.x = ...`
// (wired to the named slot `x`).
func (l *Linker) registerCommonJSExport(assign *ast.Node, modulePath string) {
	left := assign.Field("left")
	right := assign.Field("right")
	if left == nil || right == nil || left.Kind != ast.MemberExpression || left.Computed {
		return
	}
	obj := left.Field("object")
	prop := left.Field("property")
	if prop == nil {
		return
	}
	switch {
	case obj.Kind == ast.Identifier && obj.Name == "exports":
		l.graph.AddEdge(ExprV(right), namedExportV(modulePath, prop.Name))
	case obj.Kind == ast.MemberExpression && !obj.Computed && isModuleExports(obj):
		l.graph.AddEdge(ExprV(right), namedExportV(modulePath, prop.Name))
	case obj.Kind == ast.Identifier && obj.Name == "module" && prop.Name == "exports":
		l.graph.AddEdge(ExprV(right), namedExportV(modulePath, ExportDefaultName))
	}
}

func isModuleExports(n *ast.Node) bool {
	obj := n.Field("object")
	prop := n.Field("property")
	return obj != nil && obj.Kind == ast.Identifier && obj.Name == "module" &&
		prop != nil && prop.Name == "exports"
}

// RegisterImports walks root for import/require forms and wires each local
// binding from the resolved module's namespace vertex, including AMD
// `define(deps, factory)`.
func (l *Linker) RegisterImports(root *ast.Node, file string) {
	ast.Walk(root, func(n *ast.Node) bool {
		switch n.Kind {
		case ast.ImportDeclaration:
			l.registerImportDeclaration(n, file)
		case ast.VariableDeclarator:
			l.registerRequireBinding(n, file)
		case ast.CallExpression:
			l.registerAMDDefine(n, file)
		}
		return true
	})
}

func (l *Linker) registerImportDeclaration(n *ast.Node, file string) {
	srcNode := n.Field("source")
	if srcNode == nil {
		return
	}
	modulePath, ok := l.resolve(file, srcNode.Name)
	l.recordDependency(file, srcNode.Name, modulePath, ok)
	for _, spec := range n.FieldList("specifiers") {
		local := spec.Field("local")
		if local == nil {
			continue
		}
		var target Vertex
		switch spec.Kind {
		case ast.ImportDefaultSpecifier:
			target = Unknown
			if ok {
				target = namedExportV(modulePath, ExportDefaultName)
			}
		case ast.ImportNamespaceSpecifier:
			target = Unknown // a namespace object is a non-goal; conservative.
		default: // ImportSpecifier
			name := local.Name
			if imported := spec.Field("imported"); imported != nil && imported.Name != "" {
				name = imported.Name
			}
			target = Unknown
			if ok {
				target = namedExportV(modulePath, name)
			}
		}
		l.graph.AddEdge(target, VarV(local))
	}
	if !ok {
		l.sink.Infof(diag.StageLink, file, "unresolved import specifier %q", srcNode.Name)
	}
}

// registerRequireBinding handles `const x = require("spec")` and
// `const {a, b} = require("spec")`.
func (l *Linker) registerRequireBinding(n *ast.Node, file string) {
	init := n.Field("init")
	id := n.Field("id")
	if init == nil || id == nil || init.Kind != ast.CallExpression {
		return
	}
	callee := init.Field("callee")
	if callee == nil || callee.Kind != ast.Identifier || callee.Name != "require" {
		return
	}
	args := init.FieldList("arguments")
	if len(args) == 0 || args[0].Kind != ast.Literal {
		return
	}
	modulePath, ok := l.resolve(file, args[0].Name)
	l.recordDependency(file, args[0].Name, modulePath, ok)
	switch id.Kind {
	case ast.Identifier:
		target := Unknown
		if ok {
			target = namedExportV(modulePath, ExportDefaultName)
		}
		l.graph.AddEdge(target, VarV(id))
	case ast.ObjectPattern:
		for _, prop := range id.FieldList("properties") {
			key := prop.Field("key")
			value := prop.Field("value")
			if key == nil || value == nil || value.Kind != ast.Identifier || prop.Computed {
				continue
			}
			target := Unknown
			if ok {
				target = namedExportV(modulePath, key.Name)
			}
			l.graph.AddEdge(target, VarV(value))
		}
	}
	if !ok {
		l.sink.Infof(diag.StageLink, file, "unresolved require specifier %q", args[0].Name)
	}
}

// registerAMDDefine handles `define([deps...], factory)`: each factory
// parameter whose position has a string-literal dependency is wired to
// that module's default export, or to Unknown when the dependency does not
// resolve. A define call without a dependency array wires no parameters.
func (l *Linker) registerAMDDefine(n *ast.Node, file string) {
	callee := n.Field("callee")
	if callee == nil || callee.Kind != ast.Identifier || callee.Name != "define" {
		return
	}
	args := n.FieldList("arguments")
	var deps []*ast.Node
	var factory *ast.Node
	for _, a := range args {
		switch {
		case a.Kind == ast.ArrayExpression:
			deps = a.FieldList("elements")
		case a.IsFunction():
			factory = a
		}
	}
	if factory == nil {
		return
	}
	params := factory.FieldList("params")
	for i, p := range params {
		if i >= len(deps) || deps[i].Kind != ast.Literal {
			continue
		}
		modulePath, ok := l.resolve(file, deps[i].Name)
		l.recordDependency(file, deps[i].Name, modulePath, ok)
		target := Unknown
		if ok {
			target = namedExportV(modulePath, ExportDefaultName)
		}
		l.graph.AddEdge(target, VarV(p))
	}
}

func (l *Linker) recordDependency(file, specifier, resolvedTo string, resolved bool) {
	l.Dependencies = append(l.Dependencies, Dependency{
		FromFile: file, Specifier: specifier, ResolvedTo: resolvedTo, Resolved: resolved,
	})
}

// canonicalPath normalizes a file path into the module-path key used by
// both RegisterExports and the resolve callback: slash-separated, relative,
// extension stripped.
func canonicalPath(file string) string {
	clean := path.Clean(filepathToSlash(file))
	ext := path.Ext(clean)
	return strings.TrimSuffix(clean, ext)
}

func filepathToSlash(p string) string {
	return strings.ReplaceAll(p, "\\", "/")
}
