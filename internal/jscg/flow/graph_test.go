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

import "testing"

func TestAddEdgeReportsNoveltyAndDedupes(t *testing.T) {
	g := NewGraph()
	a, b := GlobV("a"), GlobV("b")

	if added := g.AddEdge(a, b); !added {
		t.Errorf("first AddEdge(a, b) should report true")
	}
	if added := g.AddEdge(a, b); added {
		t.Errorf("duplicate AddEdge(a, b) should report false")
	}
	if g.EdgeCount() != 1 {
		t.Errorf("EdgeCount() = %d, want 1", g.EdgeCount())
	}
}

func TestOutReturnsInsertionOrder(t *testing.T) {
	g := NewGraph()
	v := GlobV("root")
	x, y, z := GlobV("x"), GlobV("y"), GlobV("z")
	g.AddEdge(v, y)
	g.AddEdge(v, x)
	g.AddEdge(v, z)

	out := g.Out(v)
	want := []Vertex{y, x, z}
	if len(out) != len(want) {
		t.Fatalf("Out(v) = %v, want %v", out, want)
	}
	for i := range want {
		if out[i] != want[i] {
			t.Errorf("Out(v)[%d] = %v, want %v", i, out[i], want[i])
		}
	}
}

func TestVerticesReturnsFirstTouchedOrder(t *testing.T) {
	g := NewGraph()
	a, b, c := GlobV("a"), GlobV("b"), GlobV("c")
	g.AddEdge(b, c)
	g.AddEdge(a, b)

	order := g.Vertices()
	want := []Vertex{b, c, a}
	if len(order) != len(want) {
		t.Fatalf("Vertices() = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("Vertices()[%d] = %v, want %v", i, order[i], want[i])
		}
	}
}

func TestHasVertexOnlyTrueForTouchedVertices(t *testing.T) {
	g := NewGraph()
	a, b := GlobV("a"), GlobV("b")
	g.AddEdge(a, b)

	if !g.HasVertex(a) || !g.HasVertex(b) {
		t.Errorf("expected both endpoints of an added edge to be touched")
	}
	if g.HasVertex(GlobV("never-added")) {
		t.Errorf("expected an untouched vertex to report false")
	}
}

func TestReachingFollowsReverseEdgesAndMemoizes(t *testing.T) {
	g := NewGraph()
	a, b, c, d := GlobV("a"), GlobV("b"), GlobV("c"), GlobV("d")
	// a -> b -> d, c -> d
	g.AddEdge(a, b)
	g.AddEdge(b, d)
	g.AddEdge(c, d)

	r := NewReachability(g)
	reaching := r.Reaching(d)
	found := map[Vertex]bool{}
	for _, v := range reaching {
		found[v] = true
	}
	for _, want := range []Vertex{a, b, c} {
		if !found[want] {
			t.Errorf("Reaching(d) = %v, missing %v", reaching, want)
		}
	}

	// Mutate the underlying graph after the first Reaching call; the memoized
	// result must not change (Reachability is a snapshot).
	e := GlobV("e")
	g.AddEdge(e, d)
	again := r.Reaching(d)
	if len(again) != len(reaching) {
		t.Errorf("Reaching(d) changed after graph mutation: %v vs %v", again, reaching)
	}
}

func TestReachingHandlesCycles(t *testing.T) {
	g := NewGraph()
	a, b := GlobV("a"), GlobV("b")
	g.AddEdge(a, b)
	g.AddEdge(b, a)

	r := NewReachability(g)
	reaching := r.Reaching(a)
	if len(reaching) != 2 || reaching[0] != b || reaching[1] != a {
		t.Errorf("Reaching(a) = %v, want [b a] (no infinite loop; a is included because it lies on the cycle)", reaching)
	}
}

func TestReachesUnknown(t *testing.T) {
	g := NewGraph()
	v := GlobV("v")
	w := GlobV("w")
	g.AddEdge(Unknown, v)

	r := NewReachability(g)
	if !r.ReachesUnknown(v) {
		t.Errorf("expected v to be reachable from Unknown")
	}
	if !r.ReachesUnknown(Unknown) {
		t.Errorf("Unknown should always report ReachesUnknown(Unknown) = true")
	}
	if r.ReachesUnknown(w) {
		t.Errorf("w has no edges at all, should not be reachable from Unknown")
	}
}
