// Package graph provides the undirected semantic adjacency layer that
// sits alongside (not inside) the HNSW index: an edge here means "related
// enough to traverse during hybrid search", not "structurally connected
// for beam search".
package graph
