package core

import (
	"math"
	"sync"
)

// Store owns the flat node table and the edge set. It is the only layer
// that mints ids and the only layer every other layer resolves ids
// through — HNSW and graph neighbor lists hold ids, never *Node pointers,
// so the id→Node mapping here is the single source of truth.
type Store struct {
	mu sync.RWMutex

	nodes     map[uint64]*Node
	nextID    uint64
	dimension int // 0 until the first successful Add

	edges map[Edge]struct{}

	// dirty is set whenever the live node set changes shape (insert or
	// remove) and cleared by the clustering layer after a rebuild. The
	// host reads it to decide whether to call build_clusters again.
	dirty bool
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		nodes: make(map[uint64]*Node),
		edges: make(map[Edge]struct{}),
	}
}

// Dimension returns the embedding dimension fixed by the first insert, or
// 0 if no node has ever been added.
func (s *Store) Dimension() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dimension
}

// NextID returns the id that will be minted by the next Add call. Used by
// snapshotting so a reload never reuses an id that once belonged to a
// now-vacuumed (and therefore no longer serialized) node.
func (s *Store) NextID() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.nextID
}

// Dirty reports whether the live node set has changed since the last
// ClearDirty call.
func (s *Store) Dirty() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dirty
}

// ClearDirty resets the dirty flag; called by the clustering layer after
// a successful rebuild.
func (s *Store) ClearDirty() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dirty = false
}

// validateEmbedding checks dimension consistency and zero-norm rejection.
// Caller must hold s.mu (read or write).
func (s *Store) validateEmbedding(embedding []float32) error {
	if len(embedding) == 0 {
		return WrapError("add", ErrInvalidParameter)
	}
	if s.dimension != 0 && len(embedding) != s.dimension {
		return WrapError("add", ErrDimensionMismatch)
	}
	var normSq float64
	for _, v := range embedding {
		normSq += float64(v) * float64(v)
	}
	if math.Sqrt(normSq) == 0 {
		return WrapError("add", ErrZeroVector)
	}
	return nil
}

// Add mints the next id, validates the embedding, and inserts a live node.
// It does not touch the HNSW index or graph layer — SpiderDB.AddNode
// orchestrates those after Add succeeds.
func (s *Store) Add(content []byte, embedding []float32, significance int, now int64) (uint64, error) {
	if significance < 0 || significance > 100 {
		return 0, WrapError("add", ErrInvalidParameter)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.validateEmbedding(embedding); err != nil {
		return 0, err
	}
	if s.dimension == 0 {
		s.dimension = len(embedding)
	}

	id := s.nextID
	s.nextID++

	vec := make([]float32, len(embedding))
	copy(vec, embedding)
	buf := make([]byte, len(content))
	copy(buf, content)

	s.nodes[id] = &Node{
		ID:           id,
		Content:      buf,
		Embedding:    vec,
		Significance: significance,
		AccessCount:  0,
		CreatedAt:    now,
		LastAccess:   now,
		ClusterID:    NoCluster,
		Alive:        true,
	}
	s.dirty = true

	return id, nil
}

// Get returns the content of a live node, reinforcing it (incrementing
// AccessCount and bumping LastAccess to now).
func (s *Store) Get(id uint64, now int64) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.nodes[id]
	if !ok || !n.Alive {
		return nil, WrapError("get", ErrNotFound)
	}
	n.AccessCount++
	n.LastAccess = now

	out := make([]byte, len(n.Content))
	copy(out, n.Content)
	return out, nil
}

// Peek returns a live node's current snapshot without reinforcing it. Used
// internally by lifecycle, clustering and the query engine, which read
// access_count/last_access without counting as a "read of content".
func (s *Store) Peek(id uint64) (Node, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, ok := s.nodes[id]
	if !ok || !n.Alive {
		return Node{}, false
	}
	return *n, true
}

// Remove marks a node dead. Incident edges and HNSW tombstoning are the
// caller's responsibility (vacuum orchestrates both); the store only owns
// liveness of the node record itself.
func (s *Store) Remove(id uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.nodes[id]
	if !ok || !n.Alive {
		return WrapError("remove", ErrNotFound)
	}
	n.Alive = false
	s.dirty = true
	return nil
}

// AllLive returns a snapshot copy of every live node, for clustering and
// graph-data export.
func (s *Store) AllLive() []Node {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Node, 0, len(s.nodes))
	for _, n := range s.nodes {
		if n.Alive {
			out = append(out, *n)
		}
	}
	return out
}

// SetClusterID writes back a node's cluster assignment.
func (s *Store) SetClusterID(id uint64, clusterID int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n, ok := s.nodes[id]; ok && n.Alive {
		n.ClusterID = clusterID
	}
}

// AddEdge inserts {a,b} if both endpoints are live and a != b. Idempotent.
func (s *Store) AddEdge(a, b uint64) error {
	if a == b {
		return WrapError("add_edge", ErrInvalidParameter)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	na, ok := s.nodes[a]
	if !ok || !na.Alive {
		return WrapError("add_edge", ErrNotFound)
	}
	nb, ok := s.nodes[b]
	if !ok || !nb.Alive {
		return WrapError("add_edge", ErrNotFound)
	}

	s.edges[NewEdge(a, b)] = struct{}{}
	return nil
}

// Neighbors returns the set of nodes adjacent to id via the semantic graph.
func (s *Store) Neighbors(id uint64) []uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []uint64
	for e := range s.edges {
		if e.A == id {
			out = append(out, e.B)
		} else if e.B == id {
			out = append(out, e.A)
		}
	}
	return out
}

// AllEdges returns a snapshot of every edge.
func (s *Store) AllEdges() []Edge {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Edge, 0, len(s.edges))
	for e := range s.edges {
		out = append(out, e)
	}
	return out
}

// PruneEdges drops every edge incident to id. Called by vacuum after a
// node is removed.
func (s *Store) PruneEdges(id uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for e := range s.edges {
		if e.A == id || e.B == id {
			delete(s.edges, e)
		}
	}
}

// Restore repopulates the store from a snapshot load. It replaces all
// state; callers must not interleave other operations while restoring.
func (s *Store) Restore(nodes []Node, edges []Edge, dimension int, nextID uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nodes = make(map[uint64]*Node, len(nodes))
	for i := range nodes {
		n := nodes[i]
		s.nodes[n.ID] = &n
	}
	s.edges = make(map[Edge]struct{}, len(edges))
	for _, e := range edges {
		s.edges[NewEdge(e.A, e.B)] = struct{}{}
	}
	s.dimension = dimension
	s.nextID = nextID
	s.dirty = true
}
