// Package index implements the hierarchical navigable small world (HNSW)
// approximate nearest-neighbor index — the hot path of every insertion
// and query in spiderdb.
package index

import (
	"container/heap"
	"math"
	"math/rand"
	"sync"
)

// Params fixes the HNSW tuning knobs at construction time.
type Params struct {
	M              int // target neighbor count per node per upper layer; layer 0 uses 2*M
	EfConstruction int // candidate pool size during insert
	Seed           int64
}

const maxLevel = 16

// node is one HNSW graph node. Neighbors[l] holds the ids connected at
// layer l; the node is present in layers 0..Level.
type node struct {
	id        uint64
	vector    []float32
	level     int
	neighbors [][]uint64
	deleted   bool
}

// HNSW is a layered proximity graph over node embeddings, searched and
// built using cosine distance exclusively.
type HNSW struct {
	mu sync.RWMutex

	m              int
	maxM0          int
	efConstruction int
	mL             float64
	seed           int64
	rng            *rand.Rand

	nodes      map[uint64]*node
	entryPoint uint64
	hasEntry   bool
}

// New creates an empty HNSW index with the given parameters.
func New(p Params) *HNSW {
	if p.M <= 0 {
		p.M = 16
	}
	if p.EfConstruction <= 0 {
		p.EfConstruction = 200
	}
	return &HNSW{
		m:              p.M,
		maxM0:          p.M * 2,
		efConstruction: p.EfConstruction,
		mL:             1.0 / math.Log(float64(p.M)),
		seed:           p.Seed,
		rng:            rand.New(rand.NewSource(p.Seed)),
		nodes:          make(map[uint64]*node),
	}
}

// Seed returns the RNG seed this index was constructed with — persisted
// in the snapshot header so a reload can rebuild a reproducible (if not
// bit-exact, since replay order also matters) level assignment sequence.
func (h *HNSW) Seed() int64 { return h.seed }

// Size returns the number of live (non-tombstoned) nodes.
func (h *HNSW) Size() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for _, nd := range h.nodes {
		if !nd.deleted {
			n++
		}
	}
	return n
}

// selectLevel draws ℓ = ⌊−ln(U)·mL⌋, U ~ Uniform(0,1], capped at maxLevel.
func (h *HNSW) selectLevel() int {
	u := h.rng.Float64()
	for u == 0 {
		u = h.rng.Float64()
	}
	level := int(math.Floor(-math.Log(u) * h.mL))
	if level > maxLevel {
		level = maxLevel
	}
	return level
}

// cosineDistance computes 1 - cosine_similarity. Callers (Store) reject
// zero-norm vectors before they ever reach the index.
func cosineDistance(a, b []float32) float32 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 1
	}
	sim := dot / (math.Sqrt(na) * math.Sqrt(nb))
	return float32(1 - sim)
}

// candidate pairs an id with its distance to the current query.
type candidate struct {
	id   uint64
	dist float32
}

// minHeap orders candidates closest-first.
type minHeap []candidate

func (h minHeap) Len() int            { return len(h) }
func (h minHeap) Less(i, j int) bool  { return h[i].dist < h[j].dist }
func (h minHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *minHeap) Push(x interface{}) { *h = append(*h, x.(candidate)) }
func (h *minHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// maxHeap orders candidates farthest-first (used to hold the current
// ef-bounded result set and evict the worst when it grows too large).
type maxHeap []candidate

func (h maxHeap) Len() int            { return len(h) }
func (h maxHeap) Less(i, j int) bool  { return h[i].dist > h[j].dist }
func (h maxHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *maxHeap) Push(x interface{}) { *h = append(*h, x.(candidate)) }
func (h *maxHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// searchLayer runs beam search at a single layer starting from entryPoints,
// returning up to ef candidates ordered closest-first. Tombstoned nodes
// are still walked (their neighbor slots stay structurally intact) but
// never admitted into the result set — so search can never surface them.
func (h *HNSW) searchLayer(query []float32, entryPoints []uint64, ef, layer int) []candidate {
	visited := make(map[uint64]bool, ef*2)
	candidates := &minHeap{}
	results := &maxHeap{}

	for _, id := range entryPoints {
		if visited[id] {
			continue
		}
		visited[id] = true
		nd := h.nodes[id]
		if nd == nil {
			continue
		}
		d := cosineDistance(query, nd.vector)
		heap.Push(candidates, candidate{id, d})
		if !nd.deleted {
			heap.Push(results, candidate{id, d})
		}
	}

	for candidates.Len() > 0 {
		cur := (*candidates)[0]
		if results.Len() >= ef && cur.dist > (*results)[0].dist {
			break
		}
		heap.Pop(candidates)

		curNode := h.nodes[cur.id]
		if curNode == nil || layer >= len(curNode.neighbors) {
			continue
		}
		for _, nb := range curNode.neighbors[layer] {
			if visited[nb] {
				continue
			}
			visited[nb] = true
			nbNode := h.nodes[nb]
			if nbNode == nil {
				continue
			}
			d := cosineDistance(query, nbNode.vector)
			if results.Len() < ef || d < (*results)[0].dist {
				heap.Push(candidates, candidate{nb, d})
				if !nbNode.deleted {
					heap.Push(results, candidate{nb, d})
					if results.Len() > ef {
						heap.Pop(results)
					}
				}
			}
		}
	}

	out := make([]candidate, results.Len())
	for i := len(out) - 1; i >= 0; i-- {
		out[i] = heap.Pop(results).(candidate)
	}
	return out
}

// selectNeighborsHeuristic implements a diversity-pruning neighbor
// selector: candidates are considered in increasing distance order and
// admitted only if they are closer to the query than to every
// already-admitted neighbor. This keeps the graph from clustering all
// edges toward one dense region.
func (h *HNSW) selectNeighborsHeuristic(query []float32, candidates []candidate, m int) []uint64 {
	sorted := make([]candidate, len(candidates))
	copy(sorted, candidates)
	for i := 1; i < len(sorted); i++ {
		for j := i; j > 0 && sorted[j].dist < sorted[j-1].dist; j-- {
			sorted[j], sorted[j-1] = sorted[j-1], sorted[j]
		}
	}

	selected := make([]uint64, 0, m)
	for _, c := range sorted {
		if len(selected) >= m {
			break
		}
		nd := h.nodes[c.id]
		if nd == nil {
			continue
		}
		admit := true
		for _, s := range selected {
			sNode := h.nodes[s]
			if sNode == nil {
				continue
			}
			if cosineDistance(nd.vector, sNode.vector) < c.dist {
				admit = false
				break
			}
		}
		if admit {
			selected = append(selected, c.id)
		}
	}

	// Diversity pruning can under-fill below m even when more candidates
	// exist; top up with the closest remaining ones rather than leaving
	// a node under-connected.
	if len(selected) < m {
		have := make(map[uint64]bool, len(selected))
		for _, s := range selected {
			have[s] = true
		}
		for _, c := range sorted {
			if len(selected) >= m {
				break
			}
			if !have[c.id] {
				selected = append(selected, c.id)
				have[c.id] = true
			}
		}
	}

	return selected
}

func (h *HNSW) connectionCap(layer int) int {
	if layer == 0 {
		return h.maxM0
	}
	return h.m
}

func (h *HNSW) addConnection(from, to uint64, layer int) {
	nd := h.nodes[from]
	if nd == nil || layer >= len(nd.neighbors) {
		return
	}
	for _, existing := range nd.neighbors[layer] {
		if existing == to {
			return
		}
	}
	nd.neighbors[layer] = append(nd.neighbors[layer], to)
}

// Insert adds a new vector to the index under id: draw a level, descend
// greedily through upper layers to find an entry point, then beam-search
// and heuristically select neighbors at each layer from that level down
// to 0, wiring bidirectional edges and pruning any neighbor that now
// exceeds its degree cap. vector must already be validated (dimension,
// non-zero norm) by the caller.
func (h *HNSW) Insert(id uint64, vector []float32) {
	h.mu.Lock()
	defer h.mu.Unlock()

	level := h.selectLevel()
	vec := make([]float32, len(vector))
	copy(vec, vector)

	nd := &node{
		id:        id,
		vector:    vec,
		level:     level,
		neighbors: make([][]uint64, level+1),
	}
	for i := range nd.neighbors {
		nd.neighbors[i] = make([]uint64, 0, h.connectionCap(i))
	}
	h.nodes[id] = nd

	if !h.hasEntry {
		h.entryPoint = id
		h.hasEntry = true
		return
	}

	entry := h.nodes[h.entryPoint]
	currNearest := []uint64{h.entryPoint}

	for lc := entry.level; lc > level; lc-- {
		res := h.searchLayer(vector, currNearest, 1, lc)
		if len(res) > 0 {
			currNearest = []uint64{res[0].id}
		}
	}

	topLayer := entry.level
	for lc := min(level, topLayer); lc >= 0; lc-- {
		candidates := h.searchLayer(vector, currNearest, h.efConstruction, lc)
		cap := h.connectionCap(lc)
		neighbors := h.selectNeighborsHeuristic(vector, candidates, cap)
		nd.neighbors[lc] = neighbors

		for _, nb := range neighbors {
			h.addConnection(nb, id, lc)

			nbNode := h.nodes[nb]
			if nbNode == nil || lc >= len(nbNode.neighbors) {
				continue
			}
			nbCap := h.connectionCap(lc)
			if len(nbNode.neighbors[lc]) > nbCap {
				nbCandidates := make([]candidate, len(nbNode.neighbors[lc]))
				for i, other := range nbNode.neighbors[lc] {
					otherNode := h.nodes[other]
					nbCandidates[i] = candidate{other, cosineDistance(nbNode.vector, otherNode.vector)}
				}
				nbNode.neighbors[lc] = h.selectNeighborsHeuristic(nbNode.vector, nbCandidates, nbCap)
			}
		}

		next := make([]uint64, len(neighbors))
		copy(next, neighbors)
		if len(next) == 0 {
			next = currNearest
		}
		currNearest = next
	}

	if level > entry.level {
		h.entryPoint = id
	}
}

// Result is a single k-NN match: an id and its cosine similarity to the query.
type Result struct {
	ID    uint64
	Score float32 // cosine similarity, higher is better
}

// Search returns up to k nearest live neighbors of query, using a beam of
// max(ef, k) at layer 0. Returns nil if the index holds no live node.
func (h *HNSW) Search(query []float32, k, ef int) []Result {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if !h.hasEntry {
		return nil
	}
	if ef < k {
		ef = k
	}

	entry := h.nodes[h.entryPoint]
	currNearest := []uint64{h.entryPoint}
	for lc := entry.level; lc > 0; lc-- {
		res := h.searchLayer(query, currNearest, 1, lc)
		if len(res) > 0 {
			currNearest = []uint64{res[0].id}
		}
	}

	candidates := h.searchLayer(query, currNearest, ef, 0)
	if len(candidates) > k {
		candidates = candidates[:k]
	}

	out := make([]Result, len(candidates))
	for i, c := range candidates {
		out[i] = Result{ID: c.id, Score: 1 - c.dist}
	}
	return out
}

// HasEntry reports whether the index has a live entry point, i.e. holds
// at least one node that has not been tombstoned.
func (h *HNSW) HasEntry() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.hasEntry
}

// Tombstone marks id dead. Its neighbor slots remain structurally intact
// so the graph stays traversable, but Search will never return it again.
// If id was the entry point, an arbitrary live node is promoted.
func (h *HNSW) Tombstone(id uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	nd, ok := h.nodes[id]
	if !ok {
		return
	}
	nd.deleted = true

	if h.entryPoint == id {
		h.hasEntry = false
		for otherID, other := range h.nodes {
			if !other.deleted {
				h.entryPoint = otherID
				h.hasEntry = true
				break
			}
		}
	}
}

// MaxDegree returns the largest neighbor-list length observed at the given
// layer across all nodes, for invariant testing.
func (h *HNSW) MaxDegree(layer int) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	max := 0
	for _, nd := range h.nodes {
		if layer < len(nd.neighbors) && len(nd.neighbors[layer]) > max {
			max = len(nd.neighbors[layer])
		}
	}
	return max
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
