package lifecycle

import (
	"testing"

	"github.com/nodeweave/spiderdb/pkg/core"
)

func TestVacuumPrecision(t *testing.T) {
	store := core.NewStore()
	now := int64(1_000_000)

	a, _ := store.Add([]byte("A"), []float32{1, 0}, 10, now)
	b, _ := store.Add([]byte("B"), []float32{0, 1}, 5, now)
	c, _ := store.Add([]byte("C"), []float32{1, 1}, 1, now)

	dead := Vacuum(store, 5.0, now)

	deadSet := map[uint64]bool{}
	for _, id := range dead {
		deadSet[id] = true
	}
	if !deadSet[c] {
		t.Errorf("expected low-significance node C to be vacuumed")
	}
	if deadSet[a] || deadSet[b] {
		t.Errorf("expected A and B to survive vacuum(5.0), dead=%v", dead)
	}

	if _, alive := store.Peek(a); !alive {
		t.Errorf("A should remain alive")
	}
	if _, alive := store.Peek(b); !alive {
		t.Errorf("B should remain alive")
	}
	if _, alive := store.Peek(c); alive {
		t.Errorf("C should be dead after vacuum")
	}
}

func TestReinforcementRaisesScore(t *testing.T) {
	store := core.NewStore()
	now := int64(1_000_000)

	low, _ := store.Add([]byte("low"), []float32{1, 0}, 1, now)
	high, _ := store.Add([]byte("high"), []float32{0, 1}, 100, now)

	for i := 0; i < 20; i++ {
		if _, err := store.Get(low, now); err != nil {
			t.Fatalf("get: %v", err)
		}
	}

	lowNode, _ := store.Peek(low)
	highNode, _ := store.Peek(high)

	if Score(lowNode, now) <= Score(highNode, now) {
		t.Errorf("expected heavily-accessed low-significance node to overtake untouched high-significance node: low=%f high=%f",
			Score(lowNode, now), Score(highNode, now))
	}
}

func TestVacuumNotCalledImplicitly(t *testing.T) {
	store := core.NewStore()
	now := int64(1_000_000)
	id, _ := store.Add([]byte("x"), []float32{1, 0}, 0, now)

	if _, alive := store.Peek(id); !alive {
		t.Fatalf("node should still be alive without an explicit vacuum call")
	}
}
