package spiderdb

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/nodeweave/spiderdb/pkg/core"
)

func unitVec(t *testing.T, dims int, hot int) []float32 {
	t.Helper()
	v := make([]float32, dims)
	v[hot] = 1
	return v
}

func newTestDB(t *testing.T) *SpiderDB {
	t.Helper()
	cfg := DefaultConfig(filepath.Join(t.TempDir(), "db.spdr"))
	db, err := Open(cfg)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return db
}

func TestAddNodeAndGetNodeReinforces(t *testing.T) {
	db := newTestDB(t)
	id, err := db.AddNode([]byte("hello"), unitVec(t, 4, 0), 50)
	if err != nil {
		t.Fatalf("AddNode: %v", err)
	}

	content, err := db.GetNode(id)
	if err != nil {
		t.Fatalf("GetNode: %v", err)
	}
	if string(content) != "hello" {
		t.Fatalf("content = %q, want %q", content, "hello")
	}

	score1, _ := db.CalculateLifeScore(id)
	db.GetNode(id)
	db.GetNode(id)
	score2, _ := db.CalculateLifeScore(id)
	if score2 <= score1 {
		t.Fatalf("repeated reads should raise life score: %f -> %f", score1, score2)
	}
}

func TestHybridSearchExactMatchRanksFirst(t *testing.T) {
	db := newTestDB(t)
	for i := 1; i < 4; i++ {
		db.AddNode([]byte("decoy"), unitVec(t, 4, i), 10)
	}
	target := unitVec(t, 4, 0)
	want, err := db.AddNode([]byte("target"), target, 10)
	if err != nil {
		t.Fatalf("AddNode: %v", err)
	}

	results, err := db.HybridSearch(target, 1, 50)
	if err != nil {
		t.Fatalf("HybridSearch: %v", err)
	}
	if len(results) != 1 || results[0].ID != want {
		t.Fatalf("HybridSearch = %+v, want rank-1 id %d", results, want)
	}
}

func TestHybridSearchEmptyIndex(t *testing.T) {
	db := newTestDB(t)
	if _, err := db.HybridSearch(unitVec(t, 4, 0), 1, 50); err == nil {
		t.Fatal("expected an error searching an empty index")
	}
}

func TestHybridSearchRejectsDimensionMismatch(t *testing.T) {
	db := newTestDB(t)
	if _, err := db.AddNode([]byte("a"), unitVec(t, 4, 0), 50); err != nil {
		t.Fatalf("AddNode: %v", err)
	}

	if _, err := db.HybridSearch(unitVec(t, 2, 0), 1, 50); !errors.Is(err, core.ErrDimensionMismatch) {
		t.Fatalf("expected ErrDimensionMismatch for a short query vector, got %v", err)
	}
}

func TestAutoLinkThreshold(t *testing.T) {
	db := newTestDB(t)
	a, _ := db.AddNode([]byte("a"), []float32{1, 0, 0, 0}, 10)
	b, _ := db.AddNode([]byte("b"), []float32{0.99, 0.14, 0, 0}, 10, 0.4)
	c, _ := db.AddNode([]byte("c"), []float32{0, 0, 1, 0}, 10, 0.4)

	nodes, edges := db.GetAllGraphData()
	if len(nodes) != 3 {
		t.Fatalf("expected 3 nodes, got %d", len(nodes))
	}

	hasEdge := func(x, y uint64) bool {
		for _, e := range edges {
			if (e.A == x && e.B == y) || (e.A == y && e.B == x) {
				return true
			}
		}
		return false
	}
	if !hasEdge(a, b) {
		t.Fatalf("expected an auto-link edge between near-identical vectors a=%d b=%d, edges=%+v", a, b, edges)
	}
	if hasEdge(a, c) || hasEdge(b, c) {
		t.Fatalf("orthogonal vector c=%d should not auto-link, edges=%+v", c, edges)
	}
}

func TestVacuumPrecision(t *testing.T) {
	db := newTestDB(t)
	a, _ := db.AddNode([]byte("keep-high-sig"), unitVec(t, 4, 0), 10)
	b, _ := db.AddNode([]byte("keep-reinforced"), unitVec(t, 4, 1), 5)
	c, _ := db.AddNode([]byte("drop"), unitVec(t, 4, 2), 1)

	removed := db.Vacuum(5.0)
	if len(removed) != 1 || removed[0] != c {
		t.Fatalf("Vacuum(5.0) removed %v, want only %d", removed, c)
	}
	if _, err := db.GetNode(a); err != nil {
		t.Fatalf("a should survive vacuum: %v", err)
	}
	if _, err := db.GetNode(b); err != nil {
		t.Fatalf("b should survive vacuum: %v", err)
	}
	if _, err := db.GetNode(c); err == nil {
		t.Fatal("c should have been vacuumed")
	}
}

func TestBuildClustersAndStats(t *testing.T) {
	db := newTestDB(t)
	for i := 0; i < 6; i++ {
		db.AddNode([]byte("x"), unitVec(t, 4, i%2), 50)
	}
	if err := db.BuildClusters(2); err != nil {
		t.Fatalf("BuildClusters: %v", err)
	}
	stats, ok := db.GetClusterStats()
	if !ok {
		t.Fatal("expected cluster stats after BuildClusters")
	}
	if stats.NumClusters != 2 {
		t.Fatalf("NumClusters = %d, want 2", stats.NumClusters)
	}
}

func TestSaveLoadRoundTripPreservesHybridSearch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "roundtrip.spdr")
	cfg := DefaultConfig(path)
	db, err := Open(cfg)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	target := unitVec(t, 4, 0)
	want, _ := db.AddNode([]byte("target"), target, 80)
	db.AddNode([]byte("decoy"), unitVec(t, 4, 1), 10)

	before, err := db.HybridSearch(target, 1, 50)
	if err != nil {
		t.Fatalf("HybridSearch before save: %v", err)
	}
	if err := db.Save(""); err != nil {
		t.Fatalf("Save: %v", err)
	}

	reopened, err := Open(DefaultConfig(path))
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	after, err := reopened.HybridSearch(target, 1, 50)
	if err != nil {
		t.Fatalf("HybridSearch after reopen: %v", err)
	}

	if len(before) != 1 || len(after) != 1 || before[0].ID != want || after[0].ID != want {
		t.Fatalf("round trip changed result: before=%+v after=%+v want id %d", before, after, want)
	}
}
