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

import "testing"

func TestFieldAndFieldListOnNilReceiverOrMissingName(t *testing.T) {
	var nilNode *Node
	if nilNode.Field("object") != nil {
		t.Errorf("Field on a nil *Node should return nil")
	}
	if nilNode.FieldList("arguments") != nil {
		t.Errorf("FieldList on a nil *Node should return nil")
	}

	n := &Node{Kind: CallExpression}
	if n.Field("object") != nil {
		t.Errorf("Field on a Node with no Fields map should return nil")
	}
	if n.FieldList("arguments") != nil {
		t.Errorf("FieldList on a Node with no List map should return nil")
	}

	callee := &Node{Kind: Identifier, Name: "foo"}
	n.Fields = map[string]*Node{"callee": callee}
	if got := n.Field("callee"); got != callee {
		t.Errorf("Field(\"callee\") = %v, want %v", got, callee)
	}

	arg := &Node{Kind: Literal}
	n.List = map[string][]*Node{"arguments": {arg}}
	if got := n.FieldList("arguments"); len(got) != 1 || got[0] != arg {
		t.Errorf("FieldList(\"arguments\") = %v, want [%v]", got, arg)
	}
}

func TestIsFunction(t *testing.T) {
	for _, k := range []Kind{FunctionDeclaration, FunctionExpression, ArrowFunction} {
		n := &Node{Kind: k}
		if !n.IsFunction() {
			t.Errorf("IsFunction() = false for kind %s, want true", k)
		}
	}
	for _, k := range []Kind{ClassDeclaration, CallExpression, Identifier} {
		n := &Node{Kind: k}
		if n.IsFunction() {
			t.Errorf("IsFunction() = true for kind %s, want false", k)
		}
	}
	var nilNode *Node
	if nilNode.IsFunction() {
		t.Errorf("IsFunction() on a nil *Node should be false")
	}
}

func TestWalkVisitsPreOrderAndRespectsSkip(t *testing.T) {
	leaf1 := &Node{Kind: Identifier, Name: "a"}
	leaf2 := &Node{Kind: Identifier, Name: "b"}
	skippedChild := &Node{Kind: Identifier, Name: "skipped-child"}
	skipped := &Node{Kind: BlockStatement, Children: []*Node{skippedChild}}
	root := &Node{Kind: Program, Children: []*Node{leaf1, skipped, leaf2}}

	var visited []string
	Walk(root, func(n *Node) bool {
		visited = append(visited, string(n.Kind)+":"+n.Name)
		return n != skipped
	})

	want := []string{"Program:", "Identifier:a", "BlockStatement:", "Identifier:b"}
	if len(visited) != len(want) {
		t.Fatalf("visited = %v, want %v", visited, want)
	}
	for i := range want {
		if visited[i] != want[i] {
			t.Errorf("visited[%d] = %q, want %q", i, visited[i], want[i])
		}
	}
}

func TestWalkOnNilNodeIsNoOp(t *testing.T) {
	called := false
	Walk(nil, func(n *Node) bool { called = true; return true })
	if called {
		t.Errorf("Walk(nil, ...) should never invoke visit")
	}
}
