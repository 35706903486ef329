package index

import (
	"math"
	"math/rand"
	"testing"
)

func unitVector(dims int, active int) []float32 {
	v := make([]float32, dims)
	v[active] = 1.0
	return v
}

func TestHNSWExactMatchRanksFirst(t *testing.T) {
	h := New(Params{M: 16, EfConstruction: 200, Seed: 1})

	for i := 0; i < 4; i++ {
		h.Insert(uint64(i), unitVector(4, i))
	}

	query := unitVector(4, 0)
	results := h.Search(query, 1, 50)
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if results[0].ID != 0 {
		t.Errorf("expected id 0 closest, got %d", results[0].ID)
	}
	if results[0].Score < 0.999 {
		t.Errorf("expected similarity >= 0.999 for exact match, got %f", results[0].Score)
	}
}

func TestHNSWSearchEmptyIndex(t *testing.T) {
	h := New(Params{M: 16, EfConstruction: 200, Seed: 1})
	if results := h.Search([]float32{1, 0}, 3, 10); results != nil {
		t.Errorf("expected nil results on empty index, got %v", results)
	}
}

func TestHNSWDegreeCapRespected(t *testing.T) {
	h := New(Params{M: 8, EfConstruction: 100, Seed: 42})
	rng := rand.New(rand.NewSource(7))

	for i := 0; i < 300; i++ {
		vec := make([]float32, 16)
		for j := range vec {
			vec[j] = rng.Float32()*2 - 1
		}
		h.Insert(uint64(i), vec)
	}

	if got := h.MaxDegree(0); got > h.maxM0 {
		t.Errorf("layer 0 degree %d exceeds cap %d", got, h.maxM0)
	}
	for l := 1; l <= maxLevel; l++ {
		if got := h.MaxDegree(l); got > h.m {
			t.Errorf("layer %d degree %d exceeds cap %d", l, got, h.m)
		}
	}
}

func TestHNSWTombstoneNeverReturned(t *testing.T) {
	h := New(Params{M: 16, EfConstruction: 200, Seed: 3})
	for i := 0; i < 20; i++ {
		vec := make([]float32, 3)
		vec[i%3] = float32(i + 1)
		h.Insert(uint64(i), vec)
	}

	h.Tombstone(5)
	h.Tombstone(10)

	for k := 0; k < 15; k++ {
		for _, r := range h.Search([]float32{1, 2, 3}, k+1, 50) {
			if r.ID == 5 || r.ID == 10 {
				t.Fatalf("tombstoned id %d returned by search", r.ID)
			}
		}
	}
}

func TestHNSWEntryPointPromotedOnTombstone(t *testing.T) {
	h := New(Params{M: 16, EfConstruction: 200, Seed: 9})
	h.Insert(0, []float32{1, 0})
	h.Insert(1, []float32{0, 1})

	first := h.entryPoint
	h.Tombstone(first)

	if !h.HasEntry() {
		t.Fatal("expected a surviving entry point after tombstoning the original")
	}
	if h.entryPoint == first {
		t.Fatal("entry point was not promoted away from the tombstoned node")
	}
}

func TestCosineDistanceIdentical(t *testing.T) {
	a := []float32{1, 2, 3}
	d := cosineDistance(a, a)
	if math.Abs(float64(d)) > 1e-6 {
		t.Errorf("expected distance ~0 for identical vectors, got %f", d)
	}
}

func TestCosineDistanceOrthogonal(t *testing.T) {
	d := cosineDistance([]float32{1, 0}, []float32{0, 1})
	if math.Abs(float64(d)-1) > 1e-6 {
		t.Errorf("expected distance 1 for orthogonal vectors, got %f", d)
	}
}
