package spiderdb

import (
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nodeweave/spiderdb/pkg/cluster"
	"github.com/nodeweave/spiderdb/pkg/core"
	"github.com/nodeweave/spiderdb/pkg/graph"
	"github.com/nodeweave/spiderdb/pkg/index"
	"github.com/nodeweave/spiderdb/pkg/lifecycle"
	"github.com/nodeweave/spiderdb/pkg/snapshot"
)

// SpiderDB is the engine: a flat node store, an HNSW index over
// embeddings, and a semantic graph layer, all kept in lockstep behind one
// exclusive/shared lock. See the package doc for the concurrency model.
type SpiderDB struct {
	mu sync.RWMutex

	cfg        Config
	store      *core.Store
	index      *index.HNSW
	graph      *graph.Graph
	logger     core.Logger
	instanceID uuid.UUID

	centroids [][]float32 // cached after the most recent BuildClusters
}

// Open constructs a SpiderDB at cfg.Path. If a snapshot already exists
// there it is loaded and cfg's HNSW parameters (M, EfConstruction) are
// ignored in favor of the persisted ones, while cfg's other fields still
// apply; otherwise a fresh instance is created with cfg's parameters.
func Open(cfg Config) (*SpiderDB, error) {
	if cfg.Path == "" {
		return nil, core.WrapError("open", core.ErrInvalidParameter)
	}
	if cfg.Logger == nil {
		cfg.Logger = core.NopLogger()
	}

	if _, err := os.Stat(cfg.Path); err == nil {
		db := &SpiderDB{cfg: cfg, logger: cfg.Logger}
		if err := db.loadLocked(cfg.Path); err != nil {
			return nil, err
		}
		return db, nil
	}

	id := uuid.New()
	db := &SpiderDB{
		cfg:        cfg,
		store:      core.NewStore(),
		index:      index.New(index.Params{M: cfg.M, EfConstruction: cfg.EfConstruction, Seed: time.Now().UnixNano()}),
		instanceID: id,
		logger:     cfg.Logger.With("instance", id.String()),
	}
	db.graph = graph.New(db.store)
	db.logger.Info("opened fresh instance", "path", cfg.Path, "m", cfg.M, "ef_construction", cfg.EfConstruction)
	return db, nil
}

// AddNode inserts content+embedding with the given significance, returns
// the new node id, and — if autoLinkThreshold is supplied and within
// [0,1] — auto-links it against its nearest existing neighbors. Omitting
// autoLinkThreshold disables auto-linking, per the public contract.
func (db *SpiderDB) AddNode(content []byte, embedding []float32, significance int, autoLinkThreshold ...float64) (uint64, error) {
	db.mu.Lock()

	var threshold float64
	linking := false
	if len(autoLinkThreshold) > 0 {
		threshold = autoLinkThreshold[0]
		if threshold < 0 || threshold > 1 {
			db.mu.Unlock()
			return 0, core.WrapError("add_node", core.ErrInvalidParameter)
		}
		linking = true
	}

	id, err := db.store.Add(content, embedding, significance, nowUnix())
	if err != nil {
		db.mu.Unlock()
		return 0, err
	}
	db.index.Insert(id, embedding)
	if linking {
		db.graph.AutoLink(db.index, id, embedding, threshold)
	}

	overCapacity := db.cfg.MaxCapacity > 0 && db.index.Size() > db.cfg.MaxCapacity
	capacityThreshold := db.cfg.CapacityVacuumThreshold
	db.logger.Info("add_node", "id", id, "significance", significance, "auto_link", linking)
	db.mu.Unlock()

	if overCapacity {
		// Capacity policy: accept the insert unconditionally and trigger a
		// background vacuum rather than rejecting or blocking the caller.
		go func() {
			removed := db.Vacuum(capacityThreshold)
			db.logger.Info("background capacity vacuum", "removed", len(removed))
		}()
	}

	return id, nil
}

// AddEdge inserts an undirected edge between two live node ids.
// Idempotent; rejects self-loops and dead/unknown endpoints.
func (db *SpiderDB) AddEdge(a, b uint64) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	err := db.graph.AddEdge(a, b)
	db.logger.Info("add_edge", "a", a, "b", b, "err", err)
	return err
}

// GetNode returns a live node's content, reinforcing it (bumping
// access_count and last_access). Runs under the shared lock: the
// reinforcement write itself is made safe by core.Store's own mutex, so
// concurrent readers don't serialize behind each other at the engine
// level (the second of the two acceptable strategies named by the
// concurrency model).
func (db *SpiderDB) GetNode(id uint64) ([]byte, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	content, err := db.store.Get(id, nowUnix())
	db.logger.Debug("get_node", "id", id, "err", err)
	return content, err
}

// Vacuum removes every live node whose life score is below threshold,
// tombstones them in the HNSW index, and returns the removed ids.
func (db *SpiderDB) Vacuum(threshold float64) []uint64 {
	db.mu.Lock()
	defer db.mu.Unlock()
	removed := lifecycle.Vacuum(db.store, threshold, nowUnix())
	for _, id := range removed {
		db.index.Tombstone(id)
	}
	db.logger.Info("vacuum", "threshold", threshold, "removed", len(removed))
	return removed
}

// BuildClusters recomputes a fresh k-means clustering over all live
// embeddings and writes each node's cluster id back.
func (db *SpiderDB) BuildClusters(k int) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	result, err := cluster.Build(db.store, k, db.index.Seed())
	if err != nil {
		db.logger.Warn("build_clusters failed", "k", k, "err", err)
		return err
	}
	db.centroids = result.Centroids
	db.logger.Info("build_clusters", "k", k, "nodes", len(result.Assignment))
	return nil
}

// CalculateLifeScore returns the current life score of a live node.
func (db *SpiderDB) CalculateLifeScore(id uint64) (float64, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	n, ok := db.store.Peek(id)
	if !ok {
		return 0, core.WrapError("calculate_life_score", core.ErrNotFound)
	}
	return lifecycle.Score(n, nowUnix()), nil
}

// GetClusterStats reports (count, mean_size, mean_significance) over the
// current cluster assignment, or ok=false if no node has been clustered.
func (db *SpiderDB) GetClusterStats() (cluster.Stats, bool) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return cluster.ComputeStats(db.store)
}

// Save persists the current state to path, or to the construction path
// if path is empty.
func (db *SpiderDB) Save(path string) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if path == "" {
		path = db.cfg.Path
	}
	if path == "" {
		return core.WrapError("save", core.ErrInvalidParameter)
	}

	f := &snapshot.File{
		Dimension:      uint32(db.store.Dimension()),
		M:              uint32(db.cfg.M),
		EfConstruction: uint32(db.cfg.EfConstruction),
		Seed:           db.index.Seed(),
		Nodes:          db.store.AllLive(),
		Edges:          db.store.AllEdges(),
		Centroids:      db.centroids,
	}
	copy(f.InstanceID[:], db.instanceID[:])
	f.NextID = db.store.NextID()

	if err := snapshot.Save(path, f); err != nil {
		db.logger.Error("save failed", "path", path, "err", err)
		return err
	}
	db.cfg.Path = path
	db.logger.Info("save", "path", path, "nodes", len(f.Nodes), "edges", len(f.Edges))
	return nil
}

// Load replaces this instance's entire state with the snapshot at path.
func (db *SpiderDB) Load(path string) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.loadLocked(path)
}

// loadLocked performs the actual load. Caller must hold db.mu (or be
// constructing db and own it exclusively, as Open does).
func (db *SpiderDB) loadLocked(path string) error {
	f, err := snapshot.Load(path)
	if err != nil {
		return err
	}

	store := core.NewStore()
	store.Restore(f.Nodes, f.Edges, int(f.Dimension), f.NextID)

	idx := index.New(index.Params{M: int(f.M), EfConstruction: int(f.EfConstruction), Seed: f.Seed})
	for _, n := range f.Nodes {
		idx.Insert(n.ID, n.Embedding)
	}

	db.store = store
	db.index = idx
	db.graph = graph.New(store)
	db.centroids = f.Centroids
	copy(db.instanceID[:], f.InstanceID[:])
	db.cfg.Path = path
	db.cfg.M = int(f.M)
	db.cfg.EfConstruction = int(f.EfConstruction)
	if db.logger == nil {
		db.logger = db.cfg.Logger
	}
	db.logger = db.logger.With("instance", db.instanceID.String())
	db.logger.Info("load", "path", path, "nodes", len(f.Nodes), "edges", len(f.Edges))
	return nil
}

func nowUnix() int64 { return time.Now().Unix() }
