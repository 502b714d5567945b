// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package parse

import (
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/AleutianAI/jscg/internal/jscg/ast"
)

// converter holds the per-file state needed to map a tree-sitter.Node
// subtree onto ast.Node: the source bytes (for identifier/literal text)
// and the file path (stamped on every Range).
type converter struct {
	content []byte
	file    string
}

// convert maps a single tree-sitter node (and its subtree) onto an
// ast.Node. Node kinds the core's edge rules name explicitly get precise
// Fields/List population; every other grammar production falls back to a
// generic node whose Children hold every named child, which still
// participates correctly in the default-case generic recursion every
// later stage's AST walk falls back to.
func (c *converter) convert(n *sitter.Node) *ast.Node {
	if n == nil {
		return nil
	}
	switch n.Type() {
	case "program":
		return c.generic(n, ast.Program)

	case "function_declaration", "generator_function_declaration":
		return c.function(n, ast.FunctionDeclaration)
	case "function", "function_expression", "generator_function":
		return c.function(n, ast.FunctionExpression)
	case "arrow_function":
		return c.arrowFunction(n)

	case "class_declaration":
		return c.class(n, ast.ClassDeclaration)
	case "class":
		return c.class(n, ast.ClassExpression)
	case "method_definition":
		return c.methodDefinition(n)

	case "identifier", "property_identifier", "shorthand_property_identifier",
		"shorthand_property_identifier_pattern", "type_identifier":
		return c.leaf(n, ast.Identifier)
	case "private_property_identifier":
		return c.leaf(n, ast.PrivateIdentifier)
	case "this":
		return c.leaf(n, ast.ThisExpression)

	case "call_expression":
		return c.call(n, ast.CallExpression)
	case "new_expression":
		return c.call(n, ast.NewExpression)

	case "member_expression":
		return c.memberExpression(n)
	case "subscript_expression":
		return c.subscriptExpression(n)

	case "pair", "pair_pattern":
		return c.pair(n)
	case "spread_element":
		return c.wrapSingle(n, ast.SpreadElement, "argument")
	case "rest_pattern":
		return c.wrapSingle(n, ast.RestElement, "argument")

	case "assignment_expression", "augmented_assignment_expression":
		return c.binaryField(n, ast.AssignmentExpression, operatorText(n, c.content))
	case "assignment_pattern":
		return c.assignmentPattern(n)

	case "return_statement":
		return c.returnStatement(n)

	case "ternary_expression":
		return c.ternary(n)
	case "binary_expression":
		return c.binaryField(n, ast.BinaryExpression, operatorText(n, c.content))

	case "sequence_expression":
		return c.sequence(n)

	case "array", "array_pattern":
		return c.listOf(n, arrayKind(n.Type()), "elements")
	case "object", "object_pattern":
		return c.listOf(n, objectKind(n.Type()), "properties")

	case "template_string":
		return c.templateString(n)

	case "string", "number", "true", "false", "null", "undefined", "regex":
		return c.literal(n)

	case "statement_block":
		return c.generic(n, ast.BlockStatement)
	case "catch_clause":
		return c.catchClause(n)

	case "import_statement":
		return c.importStatement(n)
	case "export_statement":
		return c.exportStatement(n)

	case "variable_declaration", "lexical_declaration":
		return c.variableDeclaration(n)
	case "variable_declarator":
		return c.variableDeclarator(n)

	case "parenthesized_expression":
		// `(e)` has e's value; unwrapping it makes an IIFE's callee the
		// function literal itself.
		if n.NamedChildCount() == 1 {
			return c.convert(n.NamedChild(0))
		}
		return c.generic(n, ast.Kind(n.Type()))

	default:
		return c.generic(n, ast.Kind(n.Type()))
	}
}

func (c *converter) newNode(n *sitter.Node, kind ast.Kind) *ast.Node {
	return &ast.Node{
		Kind: kind,
		Range: ast.Range{
			File:      c.file,
			Start:     ast.Position{Row: int(n.StartPoint().Row) + 1, Column: int(n.StartPoint().Column)},
			End:       ast.Position{Row: int(n.EndPoint().Row) + 1, Column: int(n.EndPoint().Column)},
			StartByte: n.StartByte(),
			EndByte:   n.EndByte(),
		},
	}
}

func (c *converter) text(n *sitter.Node) string {
	if n == nil {
		return ""
	}
	return string(c.content[n.StartByte():n.EndByte()])
}

// addChild appends child to parent.Children and sets its Parent pointer.
func addChild(parent, child *ast.Node) {
	if child == nil {
		return
	}
	child.Parent = parent
	parent.Children = append(parent.Children, child)
}

func setField(parent *ast.Node, name string, child *ast.Node) {
	if child == nil {
		return
	}
	if parent.Fields == nil {
		parent.Fields = make(map[string]*ast.Node)
	}
	parent.Fields[name] = child
	addChild(parent, child)
}

func appendList(parent *ast.Node, name string, child *ast.Node) {
	if child == nil {
		return
	}
	if parent.List == nil {
		parent.List = make(map[string][]*ast.Node)
	}
	parent.List[name] = append(parent.List[name], child)
	addChild(parent, child)
}

// generic converts every named child into Children only, with no Fields/
// List population: the fallback for grammar productions the core's edge
// rules treat structurally (recurse into every child, contribute no
// vertex of their own).
func (c *converter) generic(n *sitter.Node, kind ast.Kind) *ast.Node {
	res := c.newNode(n, kind)
	count := int(n.NamedChildCount())
	for i := 0; i < count; i++ {
		addChild(res, c.convert(n.NamedChild(i)))
	}
	return res
}

func (c *converter) leaf(n *sitter.Node, kind ast.Kind) *ast.Node {
	res := c.newNode(n, kind)
	res.Name = c.text(n)
	return res
}

func (c *converter) literal(n *sitter.Node) *ast.Node {
	res := c.newNode(n, ast.Literal)
	if n.Type() == "string" {
		if frag := n.NamedChild(0); frag != nil {
			res.Name = c.text(frag)
			return res
		}
	}
	res.Name = c.text(n)
	return res
}

// function converts a function_declaration/function(expression) node:
// optional name, parameter list, and body.
func (c *converter) function(n *sitter.Node, kind ast.Kind) *ast.Node {
	res := c.newNode(n, kind)
	if name := fieldAny(n, "name"); name != nil {
		res.Name = c.text(name)
	}
	c.convertParams(res, fieldAny(n, "parameters"))
	setField(res, "body", c.convert(fieldAny(n, "body")))
	return res
}

// arrowFunction handles both `(a, b) => ...` (a "parameters" field) and
// the bare single-identifier form `a => ...` (a "parameter" field).
func (c *converter) arrowFunction(n *sitter.Node) *ast.Node {
	res := c.newNode(n, ast.ArrowFunction)
	if params := fieldAny(n, "parameters"); params != nil {
		c.convertParams(res, params)
	} else if p := fieldAny(n, "parameter"); p != nil {
		appendList(res, "params", c.convert(p))
	}
	setField(res, "body", c.convert(fieldAny(n, "body")))
	return res
}

func (c *converter) convertParams(res *ast.Node, params *sitter.Node) {
	if params == nil {
		return
	}
	count := int(params.NamedChildCount())
	for i := 0; i < count; i++ {
		appendList(res, "params", c.convert(params.NamedChild(i)))
	}
}

// class converts class_declaration/class: optional name, optional
// class_heritage superclass, and a list of body members.
func (c *converter) class(n *sitter.Node, kind ast.Kind) *ast.Node {
	res := c.newNode(n, kind)
	if name := fieldAny(n, "name"); name != nil {
		res.Name = c.text(name)
	}
	if heritage := childOfType(n, "class_heritage"); heritage != nil && heritage.NamedChildCount() > 0 {
		setField(res, "superClass", c.convert(heritage.NamedChild(0)))
	}
	if body := fieldAny(n, "body"); body != nil {
		count := int(body.NamedChildCount())
		for i := 0; i < count; i++ {
			appendList(res, "body", c.convert(body.NamedChild(i)))
		}
	}
	return res
}

// methodDefinition converts a class-body method_definition: a (possibly
// computed) key and a function value (parameters + body), modeled the
// same way a function node is, so decorate's naming pipeline treats it
// uniformly.
func (c *converter) methodDefinition(n *sitter.Node) *ast.Node {
	res := c.newNode(n, ast.MethodDefinition)
	key := methodKey(n)
	computed := key != nil && key.Type() == "computed_property_name"
	res.Computed = computed
	if computed && key.NamedChildCount() > 0 {
		setField(res, "key", c.convert(key.NamedChild(0)))
	} else {
		setField(res, "key", c.convert(key))
	}
	value := c.newNode(n, ast.FunctionExpression)
	c.convertParams(value, fieldAny(n, "parameters"))
	setField(value, "body", c.convert(fieldAny(n, "body")))
	setField(res, "value", value)
	return res
}

// methodKey tries the field names real-world tree-sitter JS/TS grammars
// use for a method's key ("name" in some grammar versions, "key" in
// pair-like nodes) before falling back to the first named child that
// precedes "parameters".
func methodKey(n *sitter.Node) *sitter.Node {
	if k := fieldAny(n, "name"); k != nil {
		return k
	}
	if k := fieldAny(n, "key"); k != nil {
		return k
	}
	count := int(n.NamedChildCount())
	for i := 0; i < count; i++ {
		child := n.NamedChild(i)
		switch child.Type() {
		case "formal_parameters", "statement_block":
			continue
		default:
			return child
		}
	}
	return nil
}

func (c *converter) memberExpression(n *sitter.Node) *ast.Node {
	res := c.newNode(n, ast.MemberExpression)
	setField(res, "object", c.convert(fieldAny(n, "object")))
	prop := fieldAny(n, "property")
	pn := c.newNode(prop, ast.Identifier)
	pn.Name = c.text(prop)
	setField(res, "property", pn)
	return res
}

// subscriptExpression converts `obj[expr]` into the same MemberExpression
// shape, with Computed set and the index expression carried as "property".
func (c *converter) subscriptExpression(n *sitter.Node) *ast.Node {
	res := c.newNode(n, ast.MemberExpression)
	res.Computed = true
	setField(res, "object", c.convert(fieldAny(n, "object")))
	setField(res, "property", c.convert(fieldAny(n, "index")))
	return res
}

func (c *converter) call(n *sitter.Node, kind ast.Kind) *ast.Node {
	res := c.newNode(n, kind)
	callee := fieldAny(n, "function")
	if callee == nil {
		callee = fieldAny(n, "constructor")
	}
	setField(res, "callee", c.convert(callee))
	if args := fieldAny(n, "arguments"); args != nil {
		count := int(args.NamedChildCount())
		for i := 0; i < count; i++ {
			appendList(res, "arguments", c.convert(args.NamedChild(i)))
		}
	}
	return res
}

func (c *converter) pair(n *sitter.Node) *ast.Node {
	res := c.newNode(n, ast.Property)
	key := fieldAny(n, "key")
	computed := key != nil && key.Type() == "computed_property_name"
	res.Computed = computed
	if computed && key.NamedChildCount() > 0 {
		setField(res, "key", c.convert(key.NamedChild(0)))
	} else {
		setField(res, "key", c.convert(key))
	}
	setField(res, "value", c.convert(fieldAny(n, "value")))
	return res
}

func (c *converter) wrapSingle(n *sitter.Node, kind ast.Kind, field string) *ast.Node {
	res := c.newNode(n, kind)
	if n.NamedChildCount() > 0 {
		setField(res, field, c.convert(n.NamedChild(0)))
	}
	return res
}

func (c *converter) binaryField(n *sitter.Node, kind ast.Kind, operator string) *ast.Node {
	res := c.newNode(n, kind)
	res.Operator = operator
	setField(res, "left", c.convert(fieldAny(n, "left")))
	setField(res, "right", c.convert(fieldAny(n, "right")))
	return res
}

func (c *converter) assignmentPattern(n *sitter.Node) *ast.Node {
	res := c.newNode(n, ast.AssignmentPattern)
	left := fieldAny(n, "left")
	right := fieldAny(n, "right")
	if left == nil && right == nil && n.NamedChildCount() >= 2 {
		left, right = n.NamedChild(0), n.NamedChild(1)
	}
	setField(res, "left", c.convert(left))
	setField(res, "right", c.convert(right))
	return res
}

func (c *converter) returnStatement(n *sitter.Node) *ast.Node {
	res := c.newNode(n, ast.ReturnStatement)
	if n.NamedChildCount() > 0 {
		setField(res, "argument", c.convert(n.NamedChild(0)))
	}
	return res
}

func (c *converter) ternary(n *sitter.Node) *ast.Node {
	res := c.newNode(n, ast.ConditionalExpression)
	setField(res, "test", c.convert(fieldAny(n, "condition")))
	setField(res, "consequent", c.convert(fieldAny(n, "consequence")))
	setField(res, "alternate", c.convert(fieldAny(n, "alternative")))
	return res
}

// sequence flattens the grammar's right-nested comma-expression chain
// into a single node with every sub-expression in List["expressions"].
func (c *converter) sequence(n *sitter.Node) *ast.Node {
	res := c.newNode(n, ast.SequenceExpression)
	var flatten func(cur *sitter.Node)
	flatten = func(cur *sitter.Node) {
		if cur == nil {
			return
		}
		if cur.Type() == "sequence_expression" {
			flatten(fieldAny(cur, "left"))
			flatten(fieldAny(cur, "right"))
			return
		}
		appendList(res, "expressions", c.convert(cur))
	}
	flatten(fieldAny(n, "left"))
	flatten(fieldAny(n, "right"))
	return res
}

func arrayKind(nodeType string) ast.Kind {
	if nodeType == "array_pattern" {
		return ast.ArrayPattern
	}
	return ast.ArrayExpression
}

func objectKind(nodeType string) ast.Kind {
	if nodeType == "object_pattern" {
		return ast.ObjectPattern
	}
	return ast.ObjectExpression
}

func (c *converter) listOf(n *sitter.Node, kind ast.Kind, field string) *ast.Node {
	res := c.newNode(n, kind)
	count := int(n.NamedChildCount())
	for i := 0; i < count; i++ {
		appendList(res, field, c.convert(n.NamedChild(i)))
	}
	return res
}

// templateString extracts only the interpolated sub-expressions: the
// static text fragments carry no flow-graph meaning.
func (c *converter) templateString(n *sitter.Node) *ast.Node {
	res := c.newNode(n, ast.TemplateLiteral)
	count := int(n.NamedChildCount())
	for i := 0; i < count; i++ {
		child := n.NamedChild(i)
		if child.Type() != "template_substitution" || child.NamedChildCount() == 0 {
			continue
		}
		appendList(res, "expressions", c.convert(child.NamedChild(0)))
	}
	return res
}

func (c *converter) catchClause(n *sitter.Node) *ast.Node {
	res := c.newNode(n, ast.CatchClause)
	if p := fieldAny(n, "parameter"); p != nil {
		setField(res, "param", c.convert(p))
	}
	setField(res, "body", c.convert(fieldAny(n, "body")))
	return res
}

// importStatement handles `import x from "m"`, `import {a, b} from "m"`,
// `import * as ns from "m"`, and bare `import "m"`.
func (c *converter) importStatement(n *sitter.Node) *ast.Node {
	res := c.newNode(n, ast.ImportDeclaration)
	if src := childOfType(n, "string"); src != nil {
		setField(res, "source", c.literal(src))
	}
	if clause := childOfType(n, "import_clause"); clause != nil {
		count := int(clause.NamedChildCount())
		for i := 0; i < count; i++ {
			child := clause.NamedChild(i)
			switch child.Type() {
			case "identifier":
				spec := c.newNode(child, ast.ImportDefaultSpecifier)
				local := c.leaf(child, ast.Identifier)
				setField(spec, "local", local)
				appendList(res, "specifiers", spec)
			case "namespace_import":
				spec := c.newNode(child, ast.ImportNamespaceSpecifier)
				if id := childOfType(child, "identifier"); id != nil {
					setField(spec, "local", c.leaf(id, ast.Identifier))
				}
				appendList(res, "specifiers", spec)
			case "named_imports":
				ic := int(child.NamedChildCount())
				for j := 0; j < ic; j++ {
					specNode := child.NamedChild(j)
					if specNode.Type() != "import_specifier" {
						continue
					}
					spec := c.newNode(specNode, ast.ImportSpecifier)
					name := fieldAny(specNode, "name")
					alias := fieldAny(specNode, "alias")
					if name != nil {
						setField(spec, "imported", c.leaf(name, ast.Identifier))
					}
					localID := alias
					if localID == nil {
						localID = name
					}
					if localID != nil {
						setField(spec, "local", c.leaf(localID, ast.Identifier))
					}
					appendList(res, "specifiers", spec)
				}
			}
		}
	}
	return res
}

// exportStatement handles `export default ...`, `export {a, b}`,
// `export function f(){}`, and `export const x = ...`.
func (c *converter) exportStatement(n *sitter.Node) *ast.Node {
	if childOfType(n, "default") != nil {
		res := c.newNode(n, ast.ExportDefaultDeclaration)
		if decl := fieldAny(n, "declaration"); decl != nil {
			setField(res, "declaration", c.convert(decl))
		} else if n.NamedChildCount() > 0 {
			setField(res, "declaration", c.convert(n.NamedChild(n.NamedChildCount()-1)))
		}
		return res
	}
	res := c.newNode(n, ast.ExportNamedDeclaration)
	if decl := fieldAny(n, "declaration"); decl != nil {
		setField(res, "declaration", c.convert(decl))
		return res
	}
	if clause := childOfType(n, "export_clause"); clause != nil {
		count := int(clause.NamedChildCount())
		for i := 0; i < count; i++ {
			specNode := clause.NamedChild(i)
			if specNode.Type() != "export_specifier" {
				continue
			}
			spec := c.newNode(specNode, ast.ExportSpecifier)
			name := fieldAny(specNode, "name")
			alias := fieldAny(specNode, "alias")
			if name != nil {
				setField(spec, "local", c.leaf(name, ast.Identifier))
			}
			if alias != nil {
				setField(spec, "exported", c.leaf(alias, ast.Identifier))
			}
			appendList(res, "specifiers", spec)
		}
	}
	return res
}

func (c *converter) variableDeclaration(n *sitter.Node) *ast.Node {
	res := c.newNode(n, ast.VariableDeclaration)
	res.Operator = declarationKeyword(n, c.content)
	count := int(n.NamedChildCount())
	for i := 0; i < count; i++ {
		child := n.NamedChild(i)
		if child.Type() != "variable_declarator" {
			continue
		}
		appendList(res, "declarations", c.convert(child))
	}
	return res
}

func (c *converter) variableDeclarator(n *sitter.Node) *ast.Node {
	res := c.newNode(n, ast.VariableDeclarator)
	setField(res, "id", c.convert(fieldAny(n, "name")))
	if v := fieldAny(n, "value"); v != nil {
		setField(res, "init", c.convert(v))
	}
	return res
}

// fieldAny is a nil-safe wrapper around ChildByFieldName.
func fieldAny(n *sitter.Node, name string) *sitter.Node {
	if n == nil {
		return nil
	}
	f := n.ChildByFieldName(name)
	if f == nil {
		return nil
	}
	return f
}

// childOfType returns the first named child of n whose grammar type is
// exactly typ.
func childOfType(n *sitter.Node, typ string) *sitter.Node {
	if n == nil {
		return nil
	}
	count := int(n.ChildCount())
	for i := 0; i < count; i++ {
		child := n.Child(i)
		if child != nil && child.Type() == typ {
			return child
		}
	}
	return nil
}

// operatorText returns the source text of the anonymous operator token
// between a binary/assignment node's left and right fields.
func operatorText(n *sitter.Node, content []byte) string {
	left := fieldAny(n, "left")
	right := fieldAny(n, "right")
	if left == nil || right == nil {
		return ""
	}
	count := int(n.ChildCount())
	for i := 0; i < count; i++ {
		child := n.Child(i)
		if child == nil || child.IsNamed() {
			continue
		}
		if child.StartByte() >= left.EndByte() && child.EndByte() <= right.StartByte() {
			return string(content[child.StartByte():child.EndByte()])
		}
	}
	return ""
}

// declarationKeyword returns "var", "let", or "const" for a
// variable_declaration/lexical_declaration node: the keyword is the first
// unnamed child.
func declarationKeyword(n *sitter.Node, content []byte) string {
	count := int(n.ChildCount())
	for i := 0; i < count; i++ {
		child := n.Child(i)
		if child != nil && !child.IsNamed() {
			return string(content[child.StartByte():child.EndByte()])
		}
	}
	return "var"
}
