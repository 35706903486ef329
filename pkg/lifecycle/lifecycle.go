// Package lifecycle implements the "life score" that governs retention:
// significance and access count reinforce a node, recency decays it
// sub-linearly, and vacuum evicts whatever falls below a caller-supplied
// threshold.
package lifecycle

import (
	"math"

	"github.com/nodeweave/spiderdb/pkg/core"
)

// Score computes the life score of a node at time now (unix seconds):
//
//	life_score = (significance + access_count*5) / log2(2 + age_hours)
//
// age_hours = max(0, (now - last_access) / 3600). The constant 2 inside
// the log keeps the denominator >= 1 so the score is always defined,
// including at age zero. significance is not scaled by 10 here: a flat
// ×10 would make low-significance, never-accessed nodes unvacuumable at
// any reasonable threshold, since access_count can only add further to
// the numerator.
func Score(n core.Node, now int64) float64 {
	ageSeconds := now - n.LastAccess
	if ageSeconds < 0 {
		ageSeconds = 0
	}
	ageHours := float64(ageSeconds) / 3600.0

	numerator := float64(n.Significance) + float64(n.AccessCount)*5
	denominator := math.Log2(2 + ageHours)
	return numerator / denominator
}

// Vacuum computes the life score of every live node in store at time now,
// removes every node scoring below threshold, and returns the ids removed.
// It prunes incident edges for each removed node but leaves HNSW
// tombstoning to the caller, which holds the index reference.
func Vacuum(store *core.Store, threshold float64, now int64) []uint64 {
	var dead []uint64
	for _, n := range store.AllLive() {
		if Score(n, now) < threshold {
			dead = append(dead, n.ID)
		}
	}

	for _, id := range dead {
		_ = store.Remove(id)
		store.PruneEdges(id)
	}

	return dead
}
