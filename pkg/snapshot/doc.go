// Package snapshot round-trips the engine's durable state to and from a
// single file. It knows nothing about HNSW, the graph, or clustering
// algorithms — it only serializes the data those layers produce, so a
// format change here never touches index or query logic.
package snapshot
