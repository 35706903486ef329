// Package graph implements the semantic adjacency layer of spiderdb: an
// undirected edge set over live node ids, separate from the HNSW index's
// structural neighbor lists, plus automatic edge formation from
// similarity on insert.
package graph

import (
	"github.com/nodeweave/spiderdb/pkg/core"
	"github.com/nodeweave/spiderdb/pkg/index"
)

// AutoLinkK is the k used for the k-NN search that drives auto-linking,
// kept deliberately small so a single insert can't fan out into a dense
// clique.
const AutoLinkK = 8

// Graph wraps a core.Store's edge operations with the auto-link policy.
// It holds no state of its own: the edge set lives in Store so that
// vacuum can prune incident edges without this package being involved.
type Graph struct {
	store *core.Store
}

// New returns a Graph bound to the given store.
func New(store *core.Store) *Graph {
	return &Graph{store: store}
}

// AddEdge inserts {a,b}; idempotent, rejects dead endpoints and self-loops.
func (g *Graph) AddEdge(a, b uint64) error {
	return g.store.AddEdge(a, b)
}

// Neighbors returns the adjacency set of id.
func (g *Graph) Neighbors(id uint64) []uint64 {
	return g.store.Neighbors(id)
}

// AutoLink runs a k-NN search against idx and adds an edge from id to
// every returned neighbor whose similarity is >= threshold. threshold=0
// links to every returned neighbor; threshold=1 effectively disables
// auto-linking since cosine similarity reaching exactly 1 requires an
// identical (co-linear) embedding.
//
// id is expected to be present in idx already (the caller inserts into
// the HNSW index before calling AutoLink), so the search asks for
// AutoLinkK+1 results and skips id's own self-match.
func (g *Graph) AutoLink(idx *index.HNSW, id uint64, vector []float32, threshold float64) {
	results := idx.Search(vector, AutoLinkK+1, AutoLinkK+1)
	for _, r := range results {
		if r.ID == id {
			continue
		}
		if float64(r.Score) >= threshold {
			_ = g.store.AddEdge(id, r.ID)
		}
	}
}
