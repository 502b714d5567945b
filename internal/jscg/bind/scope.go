// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package bind implements the lexical binding resolver: nested scope
// tables with hoisting, and resolution of every identifier use to its
// declaration site.
package bind

import (
	"github.com/AleutianAI/jscg/internal/jscg/ast"
	"github.com/AleutianAI/jscg/internal/jscg/diag"
)

// Kind names the four scope kinds the binder distinguishes.
type Kind string

const (
	Global   Kind = "global"
	Function Kind = "function"
	Block    Kind = "block"
	Catch    Kind = "catch"
)

// Scope is a mapping from identifier name to declaration node, chained to
// an enclosing scope. The global scope terminates the chain.
type Scope struct {
	Kind     Kind
	Outer    *Scope
	Bindings map[string]*ast.Node
	Opener   *ast.Node // the node that opened this scope, nil for global
}

func newScope(kind Kind, outer *Scope, opener *ast.Node) *Scope {
	return &Scope{Kind: kind, Outer: outer, Bindings: make(map[string]*ast.Node), Opener: opener}
}

// Bind records name -> decl in s. A duplicate binding is a diagnostic, not
// fatal, and the first binding wins.
func (s *Scope) Bind(name string, decl *ast.Node, sink *diag.Sink, file string) {
	if name == "" {
		return
	}
	if _, exists := s.Bindings[name]; exists {
		sink.Warnf(diag.StageBind, file, "duplicate binding for %q, first binding wins", name)
		return
	}
	s.Bindings[name] = decl
}

// Resolve walks outward from s until name is found, returning the
// declaration node and the scope it was found in. ok is false when no
// scope in the chain (including global) has the name.
func (s *Scope) Resolve(name string) (decl *ast.Node, owner *Scope, ok bool) {
	for sc := s; sc != nil; sc = sc.Outer {
		if d, found := sc.Bindings[name]; found {
			return d, sc, true
		}
	}
	return nil, nil, false
}
