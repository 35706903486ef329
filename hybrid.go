package spiderdb

import (
	"github.com/nodeweave/spiderdb/pkg/core"
	"github.com/nodeweave/spiderdb/pkg/lifecycle"
)

// ScoredNode is one hybrid_search result: a live node id, its content,
// and the blended score that ranked it.
type ScoredNode struct {
	ID      uint64
	Content []byte
	Score   float64
}

// candidateInfo tracks the raw signals needed to compute a candidate's
// blended score before content is fetched.
type candidateInfo struct {
	id         uint64
	similarity float64 // cosine similarity to the query; graph-only candidates get a discounted placeholder
	node       core.Node
}

// HybridSearch blends vector similarity, life score, and cluster
// locality: it oversamples 2k candidates from the HNSW index, expands
// each one hop through the semantic graph, scores every candidate as
// 0.7*similarity + 0.2*normalized(life_score) + 0.1*(same cluster as the
// top HNSW hit), and returns the top k by that blended score. Reading
// each result's content reinforces it, exactly like a direct GetNode.
func (db *SpiderDB) HybridSearch(query []float32, k int, efSearch int) ([]ScoredNode, error) {
	if k <= 0 {
		return nil, core.WrapError("hybrid_search", core.ErrInvalidParameter)
	}

	db.mu.RLock()
	if !db.index.HasEntry() {
		db.mu.RUnlock()
		return nil, core.WrapError("hybrid_search", core.ErrEmptyIndex)
	}
	if dim := db.store.Dimension(); dim != 0 && len(query) != dim {
		db.mu.RUnlock()
		return nil, core.WrapError("hybrid_search", core.ErrDimensionMismatch)
	}
	if efSearch <= 0 {
		efSearch = db.cfg.EfSearchDefault
	}

	hits := db.index.Search(query, 2*k, efSearch)
	if len(hits) == 0 {
		db.mu.RUnlock()
		return nil, nil
	}
	topClusterID := core.NoCluster
	if n, ok := db.store.Peek(hits[0].ID); ok {
		topClusterID = n.ClusterID
	}

	candidates := make(map[uint64]*candidateInfo, len(hits)*2)
	for _, h := range hits {
		n, ok := db.store.Peek(h.ID)
		if !ok {
			continue
		}
		candidates[h.ID] = &candidateInfo{id: h.ID, similarity: float64(h.Score), node: n}
	}
	for _, h := range hits {
		for _, nb := range db.graph.Neighbors(h.ID) {
			if _, already := candidates[nb]; already {
				continue
			}
			n, ok := db.store.Peek(nb)
			if !ok {
				continue
			}
			// Graph-only candidates never ran through the HNSW query, so
			// their similarity is a discounted placeholder rather than a
			// real cosine computation — cheap and good enough to let a
			// strongly reinforced or same-cluster neighbor surface.
			candidates[nb] = &candidateInfo{id: nb, similarity: 0.5, node: n}
		}
	}

	now := nowUnix()
	maxLife := 0.0
	for _, c := range candidates {
		if life := lifecycle.Score(c.node, now); life > maxLife {
			maxLife = life
		}
	}

	type scored struct {
		id    uint64
		score float64
	}
	ranked := make([]scored, 0, len(candidates))
	for _, c := range candidates {
		life := lifecycle.Score(c.node, now)
		normLife := 0.0
		if maxLife > 0 {
			normLife = life / maxLife
		}
		sameCluster := 0.0
		if topClusterID != core.NoCluster && c.node.ClusterID == topClusterID {
			sameCluster = 1.0
		}
		score := 0.7*c.similarity + 0.2*normLife + 0.1*sameCluster
		ranked = append(ranked, scored{id: c.id, score: score})
	}
	db.mu.RUnlock()

	for i := 1; i < len(ranked); i++ {
		for j := i; j > 0 && ranked[j].score > ranked[j-1].score; j-- {
			ranked[j], ranked[j-1] = ranked[j-1], ranked[j]
		}
	}
	if len(ranked) > k {
		ranked = ranked[:k]
	}

	out := make([]ScoredNode, 0, len(ranked))
	for _, r := range ranked {
		content, err := db.GetNode(r.id)
		if err != nil {
			// The node died between scoring and the reinforcing read
			// (e.g. a concurrent vacuum); skip it rather than fail the
			// whole query.
			continue
		}
		out = append(out, ScoredNode{ID: r.id, Content: content, Score: r.score})
	}
	db.logger.Debug("hybrid_search", "k", k, "ef_search", efSearch, "results", len(out))
	return out, nil
}
