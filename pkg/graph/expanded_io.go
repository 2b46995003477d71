package graph

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"io"
	"log"
	"sync"
)

// ChecksumWriter accumulates a CRC32/IEEE checksum over whatever is written
// through it. WriteExpanded's caller (the edge-expansion engine) feeds the
// edge-based-node list through one of these before calling WriteExpanded,
// since the checksum covers nodes, not edges.
type ChecksumWriter struct {
	tab *crc32.Table
	sum uint32
}

// NewChecksumWriter creates a checksum accumulator using the IEEE
// polynomial. Go's hash/crc32 package transparently uses a
// hardware-accelerated CRC32 instruction (SSE4.2 on amd64, the CRC32
// extension on arm64) when the runtime detects support, falling back to a
// software slicing-by-8 table otherwise. logCRCBackend logs that statement
// once per process, on the first WriteExpanded or ReadExpanded call; it
// does not detect which of the two implementations was selected.
func NewChecksumWriter() *ChecksumWriter {
	return &ChecksumWriter{tab: crc32.IEEETable}
}

func (c *ChecksumWriter) Write(p []byte) (int, error) {
	c.sum = crc32.Update(c.sum, c.tab, p)
	return len(p), nil
}

// Sum32 returns the checksum accumulated so far.
func (c *ChecksumWriter) Sum32() uint32 { return c.sum }

var logCRCBackendOnce sync.Once

// logCRCBackend logs, once, which CRC32 implementation this process is
// using. It cannot introspect hash/crc32's internal dispatch directly, so
// it reports the platform-conditional guarantee the standard library makes.
func logCRCBackend() {
	logCRCBackendOnce.Do(func() {
		log.Printf("crc32: using hash/crc32 IEEE (hardware-accelerated when the platform supports it, software slicing-by-8 fallback otherwise)")
	})
}

// WriteExpanded writes a .osrm.expanded file: crc32(u32) | node_count(u32) |
// edge_count(u32) | edge_count x ExpandedEdgeWire. checksum must have been
// computed over the edge-based-node list by the caller (see ChecksumWriter).
//
// This format carries no Fingerprint -- the on-disk expanded-graph format
// never has, and this repo preserves that rather than silently adding one;
// integrity is guarded by the CRC32 alone.
func WriteExpanded(w io.Writer, nodeCount uint32, edges []ExpandedEdge, checksum uint32) error {
	logCRCBackend()

	if err := binary.Write(w, binary.LittleEndian, checksum); err != nil {
		return fmt.Errorf("write checksum: %w", err)
	}
	if err := binary.Write(w, binary.LittleEndian, nodeCount); err != nil {
		return fmt.Errorf("write node count: %w", err)
	}
	edgeCount := uint32(len(edges))
	if err := binary.Write(w, binary.LittleEndian, edgeCount); err != nil {
		return fmt.Errorf("write edge count: %w", err)
	}

	for i, e := range edges {
		var flags uint8
		if e.Forward {
			flags |= 1
		}
		if e.Backward {
			flags |= 2
		}
		wire := struct {
			Source, Target, ID, Distance uint32
			Flags                        uint8
		}{e.Source, e.Target, e.ID, e.Distance, flags}
		if err := binary.Write(w, binary.LittleEndian, &wire); err != nil {
			return fmt.Errorf("write edge %d: %w", i, err)
		}
	}
	return nil
}

// ExpandedGraph is the raw contents of a .osrm.expanded file, prior to
// building the CSR StaticGraph from it.
type ExpandedGraph struct {
	Checksum  uint32
	NodeCount uint32
	Edges     []QueryEdge
}

// ReadExpanded reads a .osrm.expanded file. It does not verify the
// checksum itself — a checksum only means something once the edge-based
// nodes it was computed over are available, which lives one layer up
// (the caller that also loaded the .osrm.expanded's companion node
// geometry). Callers that have that data should recompute a
// ChecksumWriter over it and compare against Checksum.
func ReadExpanded(r io.Reader) (*ExpandedGraph, error) {
	logCRCBackend()

	checksum, err := readU32(r)
	if err != nil {
		return nil, fmt.Errorf("read checksum: %w", err)
	}
	nodeCount, err := readU32(r)
	if err != nil {
		return nil, fmt.Errorf("read node count: %w", err)
	}
	edgeCount, err := readU32(r)
	if err != nil {
		return nil, fmt.Errorf("read edge count: %w", err)
	}

	edges := make([]QueryEdge, edgeCount)
	for i := uint32(0); i < edgeCount; i++ {
		var wire struct {
			Source, Target, ID, Distance uint32
			Flags                        uint8
		}
		if err := binary.Read(r, binary.LittleEndian, &wire); err != nil {
			return nil, fmt.Errorf("read edge %d: %w", i, err)
		}
		edges[i] = QueryEdge{
			Source: wire.Source,
			Target: wire.Target,
			Data: QueryEdgeData{
				Distance: wire.Distance,
				ID:       wire.ID,
				Forward:  wire.Flags&1 != 0,
				Backward: wire.Flags&2 != 0,
			},
		}
	}

	return &ExpandedGraph{Checksum: checksum, NodeCount: nodeCount, Edges: edges}, nil
}
