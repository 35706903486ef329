// Package core owns the node/edge storage layer of spiderdb: identifier
// minting, liveness, and the access-count/last-access bookkeeping that the
// lifecycle engine turns into a life score.
//
// It is intentionally the thinnest layer in the stack — the HNSW index,
// the graph layer, and clustering all resolve ids through Store rather
// than holding node pointers, so Store is the one place that can answer
// "is this id still alive" authoritatively.
package core
