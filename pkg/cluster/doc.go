// Package cluster groups live embeddings with k-means, fully recomputed
// on each build call — no incremental maintenance, matching the engine's
// deliberately simple "rebuild, don't patch" model.
package cluster
