// Package cluster implements the clustering engine: plain k-means over
// live embeddings, seeded with k-means++, with cosine similarity
// expressed as Euclidean distance over unit-normalized vectors (cosine on
// unit vectors is monotone with Euclidean distance, so one distance
// function serves both worlds).
package cluster

import (
	"math"
	"math/rand"

	"github.com/nodeweave/spiderdb/pkg/core"
)

// maxIterations caps k-means iterations so a build has a bounded
// wall-clock cost regardless of convergence.
const maxIterations = 50

// epsilon is the max-centroid-move convergence threshold.
const epsilon = 1e-4

// Stats summarizes a cluster assignment.
type Stats struct {
	NumClusters      int
	MeanClusterSize  float64
	MeanSignificance float64
}

// Result is the outcome of a build: the centroid for each cluster id and
// the per-node assignment.
type Result struct {
	Centroids  [][]float32
	Assignment map[uint64]int
}

func normalize(v []float32) []float32 {
	var normSq float64
	for _, x := range v {
		normSq += float64(x) * float64(x)
	}
	norm := math.Sqrt(normSq)
	out := make([]float32, len(v))
	if norm == 0 {
		return out
	}
	for i, x := range v {
		out[i] = float32(float64(x) / norm)
	}
	return out
}

func euclidean(a, b []float32) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return math.Sqrt(sum)
}

// seedPlusPlus picks k initial centroids using k-means++: the first is
// uniform-random, each subsequent pick is weighted by squared distance to
// the nearest already-chosen centroid, spreading the seeds apart so
// k-means converges faster and less often to a bad local optimum than
// plain random seeding.
func seedPlusPlus(vectors [][]float32, k int, rng *rand.Rand) [][]float32 {
	centroids := make([][]float32, 0, k)
	first := vectors[rng.Intn(len(vectors))]
	centroids = append(centroids, append([]float32(nil), first...))

	dist := make([]float64, len(vectors))
	for len(centroids) < k {
		var total float64
		for i, v := range vectors {
			best := math.MaxFloat64
			for _, c := range centroids {
				if d := euclidean(v, c); d < best {
					best = d
				}
			}
			dist[i] = best * best
			total += dist[i]
		}

		if total == 0 {
			// All remaining points coincide with existing centroids; pad
			// with uniform-random picks rather than looping forever.
			centroids = append(centroids, append([]float32(nil), vectors[rng.Intn(len(vectors))]...))
			continue
		}

		target := rng.Float64() * total
		var cum float64
		chosen := len(vectors) - 1
		for i, d := range dist {
			cum += d
			if cum >= target {
				chosen = i
				break
			}
		}
		centroids = append(centroids, append([]float32(nil), vectors[chosen]...))
	}
	return centroids
}

// Build runs k-means over the store's live embeddings and writes each
// node's ClusterID back. k must be <= the number of live nodes.
func Build(store *core.Store, k int, seed int64) (*Result, error) {
	if k <= 0 {
		return nil, core.WrapError("build_clusters", core.ErrInvalidParameter)
	}

	live := store.AllLive()
	if len(live) < k {
		return nil, core.WrapError("build_clusters", core.ErrInvalidParameter)
	}

	ids := make([]uint64, len(live))
	vectors := make([][]float32, len(live))
	for i, n := range live {
		ids[i] = n.ID
		vectors[i] = normalize(n.Embedding)
	}

	rng := rand.New(rand.NewSource(seed))
	centroids := seedPlusPlus(vectors, k, rng)
	assignment := make([]int, len(vectors))

	for iter := 0; iter < maxIterations; iter++ {
		for i, v := range vectors {
			best, bestDist := 0, math.MaxFloat64
			for c, centroid := range centroids {
				if d := euclidean(v, centroid); d < bestDist {
					best, bestDist = c, d
				}
			}
			assignment[i] = best
		}

		newCentroids := make([][]float32, k)
		counts := make([]int, k)
		dim := len(vectors[0])
		for c := range newCentroids {
			newCentroids[c] = make([]float32, dim)
		}
		for i, v := range vectors {
			c := assignment[i]
			counts[c]++
			for d, x := range v {
				newCentroids[c][d] += x
			}
		}
		for c := range newCentroids {
			if counts[c] == 0 {
				newCentroids[c] = centroids[c]
				continue
			}
			for d := range newCentroids[c] {
				newCentroids[c][d] /= float32(counts[c])
			}
		}

		maxChange := 0.0
		for c := range centroids {
			if d := euclidean(centroids[c], newCentroids[c]); d > maxChange {
				maxChange = d
			}
		}
		centroids = newCentroids
		if maxChange < epsilon {
			break
		}
	}

	result := &Result{Centroids: centroids, Assignment: make(map[uint64]int, len(ids))}
	for i, id := range ids {
		result.Assignment[id] = assignment[i]
		store.SetClusterID(id, assignment[i])
	}
	store.ClearDirty()

	return result, nil
}

// ComputeStats reports (count, mean_size, mean_significance) over the
// store's current cluster assignment, or ok=false if no live node has a
// cluster id yet.
func ComputeStats(store *core.Store) (Stats, bool) {
	live := store.AllLive()

	sizes := make(map[int]int)
	sigSum := make(map[int]int)
	for _, n := range live {
		if n.ClusterID == core.NoCluster {
			continue
		}
		sizes[n.ClusterID]++
		sigSum[n.ClusterID] += n.Significance
	}

	if len(sizes) == 0 {
		return Stats{}, false
	}

	var totalSize, totalSig int
	for c, sz := range sizes {
		totalSize += sz
		totalSig += sigSum[c]
	}

	return Stats{
		NumClusters:      len(sizes),
		MeanClusterSize:  float64(totalSize) / float64(len(sizes)),
		MeanSignificance: float64(totalSig) / float64(totalSize),
	}, true
}
