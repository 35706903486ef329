// Package index implements the HNSW (hierarchical navigable small world)
// approximate nearest-neighbor index used by spiderdb for both insertion
// auto-linking and hybrid search. Node ids are plain uint64s resolved
// against pkg/core.Store by the caller; this package never imports core.
package index
