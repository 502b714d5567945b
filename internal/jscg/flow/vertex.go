// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package flow implements the field-based flow graph: vertex identity,
// the intraprocedural edge-construction rules (R1-R9), the native-builtin
// model, the module linker, the three inter-procedural propagation
// strategies, and depth-first reachability.
package flow

import "github.com/AleutianAI/jscg/internal/jscg/ast"

// VKind discriminates the thirteen flow-graph vertex variants.
type VKind int

const (
	VVar VKind = iota
	VGlob
	VProp
	VFunc
	VCallee
	VArg
	VRes
	VRet
	VExpr
	VNative
	VRetNative // synthetic Ret(native) target used by the callback-accepting native wiring
	VModule    // module-namespace vertex, keyed by resolved module path
	VUnknown
)

// Vertex is a value type: two Vertex values compare equal iff they denote
// the same flow-graph vertex, the structural-identity rule that requires
// (e.g.) every Prop("x") request, anywhere in the program, to be the
// same vertex.
type Vertex struct {
	Kind  VKind
	Node  *ast.Node // Var/Func/Callee/Res/Ret/Expr: the defining/node key
	Name  string     // Glob/Prop/Native/RetNative/Module: the name key
	Call  *ast.Node  // Arg: the call-site
	Index int        // Arg: the 0-based argument position
}

func VarV(decl *ast.Node) Vertex      { return Vertex{Kind: VVar, Node: decl} }
func GlobV(name string) Vertex        { return Vertex{Kind: VGlob, Name: name} }
func PropV(name string) Vertex        { return Vertex{Kind: VProp, Name: name} }
func FuncV(fn *ast.Node) Vertex       { return Vertex{Kind: VFunc, Node: fn} }
func CalleeV(call *ast.Node) Vertex   { return Vertex{Kind: VCallee, Node: call} }
func ArgV(call *ast.Node, i int) Vertex { return Vertex{Kind: VArg, Call: call, Index: i} }
func ResV(call *ast.Node) Vertex      { return Vertex{Kind: VRes, Node: call} }
func RetV(fn *ast.Node) Vertex        { return Vertex{Kind: VRet, Node: fn} }
func ExprV(n *ast.Node) Vertex        { return Vertex{Kind: VExpr, Node: n} }
func NativeV(name string) Vertex      { return Vertex{Kind: VNative, Name: name} }
func RetNativeV(name string) Vertex   { return Vertex{Kind: VRetNative, Name: name} }
func ModuleV(path string) Vertex      { return Vertex{Kind: VModule, Name: path} }

// Unknown is the single sink/source vertex for values outside the model.
var Unknown = Vertex{Kind: VUnknown}

func (v Vertex) String() string {
	switch v.Kind {
	case VVar:
		return "Var"
	case VGlob:
		return "Glob(" + v.Name + ")"
	case VProp:
		return "Prop(" + v.Name + ")"
	case VFunc:
		return "Func"
	case VCallee:
		return "Callee"
	case VArg:
		return "Arg"
	case VRes:
		return "Res"
	case VRet:
		return "Ret"
	case VExpr:
		return "Expr"
	case VNative:
		return "Native(" + v.Name + ")"
	case VRetNative:
		return "RetNative(" + v.Name + ")"
	case VModule:
		return "Module(" + v.Name + ")"
	case VUnknown:
		return "Unknown"
	}
	return "?"
}
