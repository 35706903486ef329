// Package snapshot implements spiderdb's binary persistence format: a
// single self-describing file, magic "SPDR", covering the node table,
// edge table, and cluster centroids. HNSW neighbor lists are never
// persisted — the index is rebuilt deterministically from the embeddings
// on load, using the RNG seed stored in the header.
package snapshot

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/nodeweave/spiderdb/pkg/core"
)

// Magic identifies a spiderdb snapshot file.
var Magic = [4]byte{'S', 'P', 'D', 'R'}

// FormatVersion is bumped whenever the on-disk layout changes incompatibly.
const FormatVersion uint32 = 1

// clusterSentinel marks "no cluster assigned" in the on-disk node record.
const clusterSentinel int32 = -1

// File is the fully decoded contents of a snapshot, independent of the
// live in-memory engine state.
type File struct {
	Dimension      uint32
	M              uint32
	EfConstruction uint32
	Seed           int64
	InstanceID     [16]byte

	Nodes []core.Node
	Edges []core.Edge

	// Centroids holds the clustering engine's cached centroids, one row
	// per cluster id, each of length Dimension. Empty if clustering has
	// never run.
	Centroids [][]float32

	NextID uint64
}

// Save writes f to path as a single SPDR file, truncating any existing
// file at that path.
func Save(path string, f *File) error {
	file, err := os.Create(path)
	if err != nil {
		return core.WrapError("save", fmt.Errorf("%w: %v", core.ErrIOError, err))
	}
	defer file.Close()

	w := bufio.NewWriter(file)
	if err := writeFile(w, f); err != nil {
		return core.WrapError("save", fmt.Errorf("%w: %v", core.ErrIOError, err))
	}
	if err := w.Flush(); err != nil {
		return core.WrapError("save", fmt.Errorf("%w: %v", core.ErrIOError, err))
	}
	return nil
}

// Load reads and validates a SPDR file from path.
func Load(path string) (*File, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, core.WrapError("load", fmt.Errorf("%w: %v", core.ErrIOError, err))
	}
	defer file.Close()

	f, err := readFile(bufio.NewReader(file))
	if err != nil {
		return nil, err
	}
	return f, nil
}

func writeU32(w io.Writer, v uint32) error { return binary.Write(w, binary.LittleEndian, v) }
func writeU64(w io.Writer, v uint64) error { return binary.Write(w, binary.LittleEndian, v) }
func writeI64(w io.Writer, v int64) error  { return binary.Write(w, binary.LittleEndian, v) }
func writeI32(w io.Writer, v int32) error  { return binary.Write(w, binary.LittleEndian, v) }
func writeF32(w io.Writer, v float32) error {
	return binary.Write(w, binary.LittleEndian, math.Float32bits(v))
}

func writeFile(w io.Writer, f *File) error {
	if _, err := w.Write(Magic[:]); err != nil {
		return err
	}
	if err := writeU32(w, FormatVersion); err != nil {
		return err
	}
	if err := writeU32(w, f.Dimension); err != nil {
		return err
	}
	if err := writeU32(w, f.M); err != nil {
		return err
	}
	if err := writeU32(w, f.EfConstruction); err != nil {
		return err
	}
	if err := writeI64(w, f.Seed); err != nil {
		return err
	}
	if _, err := w.Write(f.InstanceID[:]); err != nil {
		return err
	}
	if err := writeU64(w, f.NextID); err != nil {
		return err
	}

	// Node table.
	if err := writeU64(w, uint64(len(f.Nodes))); err != nil {
		return err
	}
	for _, n := range f.Nodes {
		if err := writeU64(w, n.ID); err != nil {
			return err
		}
		if err := writeI32(w, int32(n.Significance)); err != nil {
			return err
		}
		if err := writeU64(w, n.AccessCount); err != nil {
			return err
		}
		if err := writeI64(w, n.CreatedAt); err != nil {
			return err
		}
		if err := writeI64(w, n.LastAccess); err != nil {
			return err
		}
		clusterID := int32(clusterSentinel)
		if n.ClusterID != core.NoCluster {
			clusterID = int32(n.ClusterID)
		}
		if err := writeI32(w, clusterID); err != nil {
			return err
		}
		if err := writeU64(w, uint64(len(n.Content))); err != nil {
			return err
		}
		if _, err := w.Write(n.Content); err != nil {
			return err
		}
		for _, v := range n.Embedding {
			if err := writeF32(w, v); err != nil {
				return err
			}
		}
	}

	// Edge table.
	if err := writeU64(w, uint64(len(f.Edges))); err != nil {
		return err
	}
	for _, e := range f.Edges {
		if err := writeU64(w, e.A); err != nil {
			return err
		}
		if err := writeU64(w, e.B); err != nil {
			return err
		}
	}

	// Centroid table.
	if err := writeU64(w, uint64(len(f.Centroids))); err != nil {
		return err
	}
	for _, c := range f.Centroids {
		for _, v := range c {
			if err := writeF32(w, v); err != nil {
				return err
			}
		}
	}

	return nil
}

func readU32(r io.Reader) (uint32, error) {
	var v uint32
	err := binary.Read(r, binary.LittleEndian, &v)
	return v, err
}
func readU64(r io.Reader) (uint64, error) {
	var v uint64
	err := binary.Read(r, binary.LittleEndian, &v)
	return v, err
}
func readI64(r io.Reader) (int64, error) {
	var v int64
	err := binary.Read(r, binary.LittleEndian, &v)
	return v, err
}
func readI32(r io.Reader) (int32, error) {
	var v int32
	err := binary.Read(r, binary.LittleEndian, &v)
	return v, err
}
func readF32(r io.Reader) (float32, error) {
	var bits uint32
	if err := binary.Read(r, binary.LittleEndian, &bits); err != nil {
		return 0, err
	}
	return math.Float32frombits(bits), nil
}

func readFile(r io.Reader) (*File, error) {
	var magic [4]byte
	if _, err := io.ReadFull(r, magic[:]); err != nil {
		return nil, core.WrapError("load", fmt.Errorf("%w: %v", core.ErrCorrupt, err))
	}
	if magic != Magic {
		return nil, core.WrapError("load", fmt.Errorf("%w: bad magic", core.ErrCorrupt))
	}

	version, err := readU32(r)
	if err != nil {
		return nil, core.WrapError("load", fmt.Errorf("%w: %v", core.ErrCorrupt, err))
	}
	if version != FormatVersion {
		return nil, core.WrapError("load", fmt.Errorf("%w: unsupported version %d", core.ErrCorrupt, version))
	}

	f := &File{}
	fields := []struct {
		name string
		fn   func() error
	}{
		{"dimension", func() (err error) { f.Dimension, err = readU32(r); return }},
		{"m", func() (err error) { f.M, err = readU32(r); return }},
		{"ef_construction", func() (err error) { f.EfConstruction, err = readU32(r); return }},
		{"seed", func() (err error) { f.Seed, err = readI64(r); return }},
	}
	for _, field := range fields {
		if err := field.fn(); err != nil {
			return nil, core.WrapError("load", fmt.Errorf("%w: %s: %v", core.ErrCorrupt, field.name, err))
		}
	}

	if _, err := io.ReadFull(r, f.InstanceID[:]); err != nil {
		return nil, core.WrapError("load", fmt.Errorf("%w: instance_id: %v", core.ErrCorrupt, err))
	}

	nextID, err := readU64(r)
	if err != nil {
		return nil, core.WrapError("load", fmt.Errorf("%w: next_id: %v", core.ErrCorrupt, err))
	}
	f.NextID = nextID

	nodeCount, err := readU64(r)
	if err != nil {
		return nil, core.WrapError("load", fmt.Errorf("%w: node_count: %v", core.ErrCorrupt, err))
	}
	f.Nodes = make([]core.Node, nodeCount)
	for i := range f.Nodes {
		n := &f.Nodes[i]
		if n.ID, err = readU64(r); err != nil {
			return nil, core.WrapError("load", fmt.Errorf("%w: node[%d].id: %v", core.ErrCorrupt, i, err))
		}
		sig, err := readI32(r)
		if err != nil {
			return nil, core.WrapError("load", fmt.Errorf("%w: node[%d].significance: %v", core.ErrCorrupt, i, err))
		}
		n.Significance = int(sig)
		if n.AccessCount, err = readU64(r); err != nil {
			return nil, core.WrapError("load", fmt.Errorf("%w: node[%d].access_count: %v", core.ErrCorrupt, i, err))
		}
		if n.CreatedAt, err = readI64(r); err != nil {
			return nil, core.WrapError("load", fmt.Errorf("%w: node[%d].created_at: %v", core.ErrCorrupt, i, err))
		}
		if n.LastAccess, err = readI64(r); err != nil {
			return nil, core.WrapError("load", fmt.Errorf("%w: node[%d].last_access: %v", core.ErrCorrupt, i, err))
		}
		clusterID, err := readI32(r)
		if err != nil {
			return nil, core.WrapError("load", fmt.Errorf("%w: node[%d].cluster_id: %v", core.ErrCorrupt, i, err))
		}
		if clusterID == clusterSentinel {
			n.ClusterID = core.NoCluster
		} else {
			n.ClusterID = int(clusterID)
		}

		contentLen, err := readU64(r)
		if err != nil {
			return nil, core.WrapError("load", fmt.Errorf("%w: node[%d].content_len: %v", core.ErrCorrupt, i, err))
		}
		n.Content = make([]byte, contentLen)
		if _, err := io.ReadFull(r, n.Content); err != nil {
			return nil, core.WrapError("load", fmt.Errorf("%w: node[%d].content: %v", core.ErrCorrupt, i, err))
		}

		n.Embedding = make([]float32, f.Dimension)
		for d := range n.Embedding {
			if n.Embedding[d], err = readF32(r); err != nil {
				return nil, core.WrapError("load", fmt.Errorf("%w: node[%d].embedding[%d]: %v", core.ErrCorrupt, i, d, err))
			}
		}
		n.Alive = true
	}

	edgeCount, err := readU64(r)
	if err != nil {
		return nil, core.WrapError("load", fmt.Errorf("%w: edge_count: %v", core.ErrCorrupt, err))
	}
	f.Edges = make([]core.Edge, edgeCount)
	for i := range f.Edges {
		a, err := readU64(r)
		if err != nil {
			return nil, core.WrapError("load", fmt.Errorf("%w: edge[%d].a: %v", core.ErrCorrupt, i, err))
		}
		b, err := readU64(r)
		if err != nil {
			return nil, core.WrapError("load", fmt.Errorf("%w: edge[%d].b: %v", core.ErrCorrupt, i, err))
		}
		f.Edges[i] = core.NewEdge(a, b)
	}

	centroidCount, err := readU64(r)
	if err != nil {
		return nil, core.WrapError("load", fmt.Errorf("%w: centroid_count: %v", core.ErrCorrupt, err))
	}
	f.Centroids = make([][]float32, centroidCount)
	for i := range f.Centroids {
		f.Centroids[i] = make([]float32, f.Dimension)
		for d := range f.Centroids[i] {
			if f.Centroids[i][d], err = readF32(r); err != nil {
				return nil, core.WrapError("load", fmt.Errorf("%w: centroid[%d][%d]: %v", core.ErrCorrupt, i, d, err))
			}
		}
	}

	return f, nil
}
