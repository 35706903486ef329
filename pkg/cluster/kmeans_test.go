package cluster

import (
	"math/rand"
	"testing"

	"github.com/nodeweave/spiderdb/pkg/core"
)

func gaussianCluster(rng *rand.Rand, center []float32, n int, spread float32) [][]float32 {
	out := make([][]float32, n)
	for i := range out {
		v := make([]float32, len(center))
		for d := range v {
			v[d] = center[d] + (rng.Float32()-0.5)*spread
		}
		out[i] = v
	}
	return out
}

func TestBuildClustersAssignsAllAndSeparatesGaussians(t *testing.T) {
	rng := rand.New(rand.NewSource(123))
	store := core.NewStore()
	now := int64(1000)

	groups := [][]float32{
		{10, 0, 0},
		{0, 10, 0},
		{0, 0, 10},
	}

	groupOf := make(map[uint64]int)
	for g, center := range groups {
		for _, v := range gaussianCluster(rng, center, 20, 0.5) {
			id, err := store.Add([]byte("n"), v, 10, now)
			if err != nil {
				t.Fatalf("add: %v", err)
			}
			groupOf[id] = g
		}
	}

	result, err := Build(store, 3, 1)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	// Every live node must have a cluster id in [0, k).
	for _, n := range store.AllLive() {
		if n.ClusterID < 0 || n.ClusterID >= 3 {
			t.Fatalf("node %d has out-of-range cluster id %d", n.ID, n.ClusterID)
		}
	}

	// Map each true Gaussian group to the cluster id its members landed in;
	// every member of a group should land in the same cluster (up to label
	// permutation), confirming the three Gaussians separate cleanly.
	groupToCluster := make(map[int]int)
	for id, g := range groupOf {
		c := result.Assignment[id]
		if existing, ok := groupToCluster[g]; ok {
			if existing != c {
				t.Errorf("group %d split across clusters %d and %d", g, existing, c)
			}
		} else {
			groupToCluster[g] = c
		}
	}
	seen := make(map[int]bool)
	for _, c := range groupToCluster {
		if seen[c] {
			t.Errorf("two distinct Gaussian groups mapped to the same cluster id %d", c)
		}
		seen[c] = true
	}
}

func TestComputeStatsEmptyWithoutClusters(t *testing.T) {
	store := core.NewStore()
	store.Add([]byte("a"), []float32{1, 0}, 5, 100)

	if _, ok := ComputeStats(store); ok {
		t.Fatal("expected ok=false before any cluster build")
	}
}

func TestComputeStatsAfterBuild(t *testing.T) {
	store := core.NewStore()
	now := int64(100)
	for i := 0; i < 6; i++ {
		v := []float32{float32(i % 2), float32((i + 1) % 2)}
		store.Add([]byte("n"), v, 10, now)
	}

	if _, err := Build(store, 2, 5); err != nil {
		t.Fatalf("Build: %v", err)
	}

	stats, ok := ComputeStats(store)
	if !ok {
		t.Fatal("expected stats after build")
	}
	if stats.NumClusters != 2 {
		t.Errorf("expected 2 clusters, got %d", stats.NumClusters)
	}
}
