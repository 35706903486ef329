package spiderdb

import "github.com/nodeweave/spiderdb/pkg/core"

// Config fixes the tuning knobs for a new SpiderDB instance. When Open
// finds an existing snapshot at Path, M and EfConstruction are ignored —
// a reopen always inherits the persisted HNSW parameters, keeping the
// on-disk index semantics stable across restarts. The remaining fields
// still apply to the reopened instance.
type Config struct {
	// Path is the snapshot file this instance persists to and, if it
	// already exists, loads from on Open.
	Path string

	// MaxCapacity is the soft live-node cap that triggers a background
	// vacuum after AddNode. Zero disables the capacity policy.
	MaxCapacity int

	M              int
	EfConstruction int

	// EfSearchDefault is used by HybridSearch callers that pass ef<=0.
	EfSearchDefault int

	// CapacityVacuumThreshold is the life-score cutoff used for the
	// automatic vacuum triggered by MaxCapacity, not by an explicit
	// Vacuum call.
	CapacityVacuumThreshold float64

	Logger core.Logger
}

// DefaultConfig returns a Config with reasonable defaults for path.
func DefaultConfig(path string) Config {
	return Config{
		Path:                    path,
		MaxCapacity:             100_000,
		M:                       16,
		EfConstruction:          200,
		EfSearchDefault:         50,
		CapacityVacuumThreshold: 1.0,
		Logger:                  core.NopLogger(),
	}
}
