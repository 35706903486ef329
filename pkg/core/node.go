package core

// Node is the unit of storage. Content and Embedding are immutable after
// AddNode; AccessCount and LastAccess mutate on GetNode; ClusterID
// mutates on cluster rebuilds; Alive flips false on Remove.
type Node struct {
	ID           uint64
	Content      []byte
	Embedding    []float32
	Significance int // [0, 100], supplied at insertion, never mutated
	AccessCount  uint64
	CreatedAt    int64 // unix seconds
	LastAccess   int64 // unix seconds
	ClusterID    int   // -1 means unset
	Alive        bool
}

// NoCluster is the sentinel ClusterID value meaning "not yet clustered".
const NoCluster = -1

// Edge is an unordered, set-semantic pair of live node ids. A and B are
// stored with A < B so {a,b} and {b,a} normalize to one entry.
type Edge struct {
	A, B uint64
}

// NewEdge returns an Edge with endpoints ordered canonically.
func NewEdge(a, b uint64) Edge {
	if a > b {
		a, b = b, a
	}
	return Edge{A: a, B: b}
}
