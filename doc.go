// Package spiderdb is an embeddable associative memory store that fuses
// three concerns into one engine: an HNSW approximate-nearest-neighbor
// index over embeddings, an evolving graph of semantic links, and a
// biological-style lifecycle in which items accrue or lose "life score"
// with use and time and are eventually garbage-collected.
//
// A host process — typically a retrieval-augmented-generation pipeline —
// ingests text items with precomputed embeddings, later issues queries
// that blend vector similarity with graph proximity, periodically
// compacts dead memories with Vacuum, and optionally clusters live
// memories with BuildClusters for summarization or visualization.
//
// The engine is single-process and single-writer: mutating operations
// (AddNode, AddEdge, Vacuum, BuildClusters, Save, Load) are serialized
// behind one exclusive lock; GetNode, HybridSearch, CalculateLifeScore,
// and GetAllGraphData may run concurrently under a shared lock.
//
// # Quick start
//
//	db, err := spiderdb.Open(spiderdb.DefaultConfig("memory.spdr"))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer db.Save("")
//
//	id, _ := db.AddNode([]byte("the borrow checker prevents data races"), embedding, 80, 0.4)
//	results, _ := db.HybridSearch(queryEmbedding, 5, 50)
package spiderdb
