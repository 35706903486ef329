package spiderdb

import "github.com/nodeweave/spiderdb/pkg/core"

// contentPreviewBytes bounds how much of a node's content GetAllGraphData
// exposes. The visualization host this operation serves only ever needs
// a short label, never the full content; GetNode (which reinforces) is
// the path for that.
const contentPreviewBytes = 200

// GraphNode is one row of a GetAllGraphData node listing.
type GraphNode struct {
	ID             uint64
	ContentPreview []byte
	Significance   int
	ClusterID      int
}

// GetAllGraphData returns every live node (with a bounded content
// preview) and every edge, for a visualization or inspection host. It
// does not reinforce any node, unlike GetNode.
func (db *SpiderDB) GetAllGraphData() ([]GraphNode, []core.Edge) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	live := db.store.AllLive()
	nodes := make([]GraphNode, len(live))
	for i, n := range live {
		preview := n.Content
		if len(preview) > contentPreviewBytes {
			preview = preview[:contentPreviewBytes]
		}
		nodes[i] = GraphNode{ID: n.ID, ContentPreview: preview, Significance: n.Significance, ClusterID: n.ClusterID}
	}

	return nodes, db.store.AllEdges()
}
