package graph

import (
	"testing"

	"github.com/nodeweave/spiderdb/pkg/core"
	"github.com/nodeweave/spiderdb/pkg/index"
)

func addLive(t *testing.T, store *core.Store, vec []float32) uint64 {
	t.Helper()
	id, err := store.Add([]byte("x"), vec, 1, 1000)
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	return id
}

func TestAddEdgeIdempotent(t *testing.T) {
	store := core.NewStore()
	a := addLive(t, store, []float32{1, 0})
	b := addLive(t, store, []float32{0, 1})
	g := New(store)

	if err := g.AddEdge(a, b); err != nil {
		t.Fatalf("first AddEdge: %v", err)
	}
	if err := g.AddEdge(a, b); err != nil {
		t.Fatalf("second AddEdge: %v", err)
	}

	if n := g.Neighbors(a); len(n) != 1 || n[0] != b {
		t.Fatalf("expected single neighbor %d, got %v", b, n)
	}
	if len(store.AllEdges()) != 1 {
		t.Fatalf("expected exactly one edge after duplicate AddEdge")
	}
}

func TestAddEdgeRejectsSelfLoop(t *testing.T) {
	store := core.NewStore()
	a := addLive(t, store, []float32{1, 0})
	g := New(store)
	if err := g.AddEdge(a, a); err == nil {
		t.Fatal("expected error for self-loop edge")
	}
}

func TestAddEdgeRejectsDeadEndpoint(t *testing.T) {
	store := core.NewStore()
	a := addLive(t, store, []float32{1, 0})
	b := addLive(t, store, []float32{0, 1})
	_ = store.Remove(b)

	g := New(store)
	if err := g.AddEdge(a, b); err == nil {
		t.Fatal("expected error linking to a dead node")
	}
}

func TestAutoLinkThreshold(t *testing.T) {
	store := core.NewStore()
	idx := index.New(index.Params{M: 16, EfConstruction: 200, Seed: 1})
	g := New(store)

	v1 := []float32{1, 0, 0}
	v2 := []float32{0.99, 0.01, 0}
	v3 := []float32{0, 1, 0}

	id1 := addLive(t, store, v1)
	idx.Insert(id1, v1)

	id2 := addLive(t, store, v2)
	idx.Insert(id2, v2)
	g.AutoLink(idx, id2, v2, 0.4)

	if n := g.Neighbors(id2); len(n) != 1 || n[0] != id1 {
		t.Fatalf("expected near-identical vectors to auto-link, got %v", n)
	}

	id3 := addLive(t, store, v3)
	idx.Insert(id3, v3)
	g.AutoLink(idx, id3, v3, 0.4)

	if n := g.Neighbors(id3); len(n) != 0 {
		t.Fatalf("expected orthogonal vector to stay unlinked, got %v", n)
	}
}
