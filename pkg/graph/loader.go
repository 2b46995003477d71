package graph

import (
	"encoding/binary"
	"fmt"
	"io"
	"log"
	"sort"
)

// LoadedGraph is the output of LoadOSRM: a node table, the two auxiliary
// node lists, and a deduplicated, canonicalized edge list ready for
// edge-expansion.
type LoadedGraph struct {
	Nodes         []ExternalNode // insertion order == internal NodeID
	ExtToInt      map[uint64]NodeID
	BarrierNodes  []NodeID
	TrafficLights []NodeID
	Edges         []ImportEdge
}

// LoadOSRM reads a .osrm node-based graph stream: Fingerprint(16) |
// n(u32) node records | m(u32) edge records.
//
// After loading, edges are canonicalized (Source <= Target, swapping
// Forward/Backward in lockstep), sorted by (Source, Target), and
// deduplicated per the four-way policy below. Returns an EmptyGraph error
// if no edges survive.
func LoadOSRM(r io.Reader) (*LoadedGraph, error) {
	var fp Fingerprint
	if _, err := io.ReadFull(r, fp[:]); err != nil {
		return nil, fmt.Errorf("read fingerprint: %w", err)
	}
	if !fp.Matches(ExpectedFingerprint()) {
		log.Printf("warning: .osrm was prepared with a different build; reprocess to clear this warning")
	}

	n, err := readU32(r)
	if err != nil {
		return nil, fmt.Errorf("read node count: %w", err)
	}

	extToInt := make(map[uint64]NodeID, n)
	nodes := make([]ExternalNode, 0, n)
	var barriers, lights []NodeID

	for i := uint32(0); i < n; i++ {
		var rec struct {
			ExternalID uint64
			Lat        int32
			Lon        int32
			Barrier    uint8
			Traffic    uint8
		}
		if err := binary.Read(r, binary.LittleEndian, &rec); err != nil {
			return nil, fmt.Errorf("read node %d: %w", i, err)
		}
		en := ExternalNode{
			ExternalID:      rec.ExternalID,
			Lat:             rec.Lat,
			Lon:             rec.Lon,
			IsBarrier:       rec.Barrier != 0,
			HasTrafficLight: rec.Traffic != 0,
		}
		extToInt[en.ExternalID] = NodeID(i)
		nodes = append(nodes, en)
		if en.IsBarrier {
			barriers = append(barriers, NodeID(i))
		}
		if en.HasTrafficLight {
			lights = append(lights, NodeID(i))
		}
	}

	m, err := readU32(r)
	if err != nil {
		return nil, fmt.Errorf("read edge count: %w", err)
	}

	edges := make([]ImportEdge, 0, m)
	var unresolved int
	for i := uint32(0); i < m; i++ {
		var wire struct {
			Source           uint32
			Target           uint32
			Length           int32
			Dir              int16
			Weight           int32
			NameID           uint32
			IsRoundabout     uint8
			IgnoreInGrid     uint8
			AccessRestricted uint8
			TravelMode       uint8
			IsSplit          uint8
		}
		if err := binary.Read(r, binary.LittleEndian, &wire); err != nil {
			return nil, fmt.Errorf("read edge %d: %w", i, err)
		}

		srcInt, ok1 := lookupInt(extToInt, uint64(wire.Source))
		tgtInt, ok2 := lookupInt(extToInt, uint64(wire.Target))
		if !ok1 || !ok2 {
			unresolved++
			continue
		}

		forward, backward := true, true
		switch wire.Dir {
		case 1:
			backward = false
		case 2:
			forward = false
		}

		e := ImportEdge{
			Source:           srcInt,
			Target:           tgtInt,
			NameID:           wire.NameID,
			Weight:           uint32(wire.Weight),
			Forward:          forward,
			Backward:         backward,
			IsRoundabout:     wire.IsRoundabout != 0,
			IgnoreInGrid:     wire.IgnoreInGrid != 0,
			AccessRestricted: wire.AccessRestricted != 0,
			TravelMode:       wire.TravelMode,
			IsSplit:          wire.IsSplit != 0,
		}
		edges = append(edges, e)
	}
	if unresolved > 0 {
		log.Printf("debug: %d edges referenced an unresolved node id", unresolved)
	}

	edges = CanonicalizeAndDedup(edges)
	if len(edges) == 0 {
		return nil, newError(ErrorKindEmptyGraph, "no edges remain after loading")
	}

	return &LoadedGraph{
		Nodes:         nodes,
		ExtToInt:      extToInt,
		BarrierNodes:  barriers,
		TrafficLights: lights,
		Edges:         edges,
	}, nil
}

// LoadRestrictions reads a .osrm.restrictions stream and renumbers each
// restriction's from/via/to node from external to internal ids. A
// restriction naming an unmapped node is dropped (not an error); the
// number dropped is logged once here at debug level and also returned.
func LoadRestrictions(r io.Reader, extToInt map[uint64]NodeID) ([]TurnRestriction, int, error) {
	var fp Fingerprint
	if _, err := io.ReadFull(r, fp[:]); err != nil {
		return nil, 0, fmt.Errorf("read fingerprint: %w", err)
	}
	if !fp.Matches(ExpectedFingerprint()) {
		log.Printf("warning: .osrm.restrictions was prepared with a different build")
	}

	count, err := readU32(r)
	if err != nil {
		return nil, 0, fmt.Errorf("read restriction count: %w", err)
	}

	restrictions := make([]TurnRestriction, 0, count)
	var dropped int
	for i := uint32(0); i < count; i++ {
		var wire struct {
			From   uint64
			Via    uint64
			To     uint64
			IsOnly uint8
		}
		if err := binary.Read(r, binary.LittleEndian, &wire); err != nil {
			return nil, dropped, fmt.Errorf("read restriction %d: %w", i, err)
		}

		fromID, ok1 := extToInt[wire.From]
		viaID, ok2 := extToInt[wire.Via]
		toID, ok3 := extToInt[wire.To]
		if !ok1 || !ok2 || !ok3 {
			dropped++
			continue
		}
		restrictions = append(restrictions, TurnRestriction{
			From:   TurnRestrictionNode{Node: fromID},
			Via:    TurnRestrictionNode{Node: viaID},
			To:     TurnRestrictionNode{Node: toID},
			IsOnly: wire.IsOnly != 0,
		})
	}
	if dropped > 0 {
		log.Printf("debug: dropped %d restrictions with an unmapped endpoint", dropped)
	}
	return restrictions, dropped, nil
}

// CanonicalizeAndDedup canonicalizes every edge's (Source, Target) order and
// applies the sort/dedup pass below. It is exported so an importer that
// builds ImportEdges some way other than LoadOSRM (internal/osmimport, for
// one) still produces a graph.LoadedGraph honoring the same "Source <=
// Target, no duplicate (source, target, forward, backward)" invariant.
func CanonicalizeAndDedup(edges []ImportEdge) []ImportEdge {
	for i := range edges {
		canonicalize(&edges[i])
	}
	return sortAndDedup(edges)
}

// canonicalize swaps (source, target) so that Source <= Target, swapping
// Forward/Backward in lockstep so the edge's meaning is preserved.
func canonicalize(e *ImportEdge) {
	if e.Source > e.Target {
		e.Source, e.Target = e.Target, e.Source
		e.Forward, e.Backward = e.Backward, e.Forward
	}
}

// sortAndDedup sorts by (Source, Target) and applies the four-way
// deduplication policy:
//   - equivalent flags: keep one, take min(weight).
//   - one side bidirectional and shorter-or-equal: drop the unidirectional
//     neighbour.
//   - one side bidirectional and strictly slower: close the bidirectional
//     edge in the direction the other one covers.
func sortAndDedup(edges []ImportEdge) []ImportEdge {
	sort.Slice(edges, func(i, j int) bool { return edges[i].Less(edges[j]) })

	for i := 1; i < len(edges); i++ {
		prev := &edges[i-1]
		cur := &edges[i]
		if prev.Source != cur.Source || prev.Target != cur.Target {
			continue
		}

		flagsEqual := prev.Forward == cur.Forward && prev.Backward == cur.Backward
		prevIsSuperset := prev.Forward && prev.Backward && cur.Forward != cur.Backward
		curIsSuperset := cur.Forward && cur.Backward && prev.Forward != prev.Backward

		switch {
		case flagsEqual:
			if prev.Weight < cur.Weight {
				cur.Weight = prev.Weight
			}
			prev.Source = InvalidNode
		case prevIsSuperset:
			if prev.Weight <= cur.Weight {
				cur.Source = InvalidNode
			} else {
				prev.Forward = !cur.Forward
				prev.Backward = !cur.Backward
			}
		case curIsSuperset:
			if prev.Weight < cur.Weight {
				cur.Forward = !prev.Forward
				cur.Backward = !prev.Backward
			} else {
				prev.Source = InvalidNode
			}
		}
	}

	out := edges[:0]
	for _, e := range edges {
		if e.Source == InvalidNode || e.Target == InvalidNode {
			continue
		}
		out = append(out, e)
	}
	return out
}

func lookupInt(m map[uint64]NodeID, ext uint64) (NodeID, bool) {
	id, ok := m[ext]
	return id, ok
}

func readU32(r io.Reader) (uint32, error) {
	var v uint32
	err := binary.Read(r, binary.LittleEndian, &v)
	return v, err
}
