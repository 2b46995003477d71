// Package expander builds the edge-expanded (edge-based) graph from a
// loaded node-based graph, turn restrictions, and a speed profile.
package expander

import (
	"encoding/binary"
	"fmt"
	"log"
	"sort"

	"mapd/pkg/graph"
	"mapd/pkg/profile"
)

// EdgeBasedNode is one directed traversal of an original node-based edge.
// Its ID is its position in ExpandedResult.Nodes, assigned in the stable
// insertion order the loader's deduplicated edge list produces.
type EdgeBasedNode struct {
	ID           uint32
	OriginalEdge graph.EdgeID
	From, To     graph.NodeID
	NameID       uint32
	Weight       uint32
	IsRoundabout bool
	BBox         [4]int32 // minLat, minLon, maxLat, maxLon, fixed-point
}

// EdgeBasedEdge is a transition from one EdgeBasedNode to another through
// their shared via-node. Source/Target index into ExpandedResult.Nodes.
type EdgeBasedEdge struct {
	Source, Target graph.NodeID
	Weight         uint32
	ID             uint32
	Forward        bool
	Backward       bool
}

// ExpandedResult is the edge-based graph, ready for pkg/graph.WriteExpanded
// (via ToWireFormat) or direct use by pkg/graph.BuildStaticGraph.
type ExpandedResult struct {
	Nodes []EdgeBasedNode
	Edges []EdgeBasedEdge
}

type turnKey struct {
	from, via graph.NodeID
}

type turnEntry struct {
	to     graph.NodeID
	isOnly bool
}

// Expand builds the edge-based graph. Restrictions naming an unmapped node
// have already been dropped by graph.LoadRestrictions; anything else that
// goes wrong (a profile.TurnPenalty failure) aborts the whole run, since
// the resulting graph would otherwise silently miss turns.
func Expand(g *graph.LoadedGraph, restrictions []graph.TurnRestriction, prof profile.Evaluator) (*ExpandedResult, error) {
	nodes, edgeMeta := buildEdgeBasedNodes(g)

	barriers := make(map[graph.NodeID]bool, len(g.BarrierNodes))
	for _, n := range g.BarrierNodes {
		barriers[n] = true
	}
	lights := make(map[graph.NodeID]bool, len(g.TrafficLights))
	for _, n := range g.TrafficLights {
		lights[n] = true
	}

	restrictionIndex := make(map[turnKey][]turnEntry)
	for _, r := range restrictions {
		k := turnKey{from: r.From.Node, via: r.Via.Node}
		restrictionIndex[k] = append(restrictionIndex[k], turnEntry{to: r.To.Node, isOnly: r.IsOnly})
	}

	// outgoing[v] lists the indices, into nodes, of every edge-based node
	// whose From is v -- the candidate e2's for a via-node v.
	nodeCount := uint32(len(g.Nodes))
	outgoing := make([][]uint32, nodeCount)
	for i, n := range nodes {
		outgoing[n.From] = append(outgoing[n.From], uint32(i))
	}

	var edges []EdgeBasedEdge
	var nextID uint32
	var restrictedSkips int

	for i, e1 := range nodes {
		v := e1.To
		for _, j := range outgoing[v] {
			e2 := nodes[j]
			w := e2.To
			u := e1.From

			if entries, ok := restrictionIndex[turnKey{from: u, via: v}]; ok {
				skip, err := restrictionForbids(entries, w)
				if err != nil {
					return nil, fmt.Errorf("expand: turn at node %d: %w", v, err)
				}
				if skip {
					restrictedSkips++
					continue
				}
			}

			if barriers[v] && u != w {
				continue
			}

			penalty, err := prof.TurnPenalty(edgeMeta[i], edgeMeta[j])
			if err != nil {
				return nil, fmt.Errorf("expand: turn penalty at node %d: %w", v, err)
			}
			weight := e1.Weight + penalty
			if lights[v] {
				weight += prof.TrafficSignalPenalty()
			}
			if u == w {
				weight += prof.UTurnPenalty()
			}

			edges = append(edges, EdgeBasedEdge{
				Source:   uint32(i),
				Target:   uint32(j),
				Weight:   weight,
				ID:       nextID,
				Forward:  true,
				Backward: false,
			})
			nextID++
		}
	}

	if restrictedSkips > 0 {
		log.Printf("debug: skipped %d turns due to restrictions", restrictedSkips)
	}

	return &ExpandedResult{Nodes: nodes, Edges: edges}, nil
}

// restrictionForbids applies the is_only/forbidden semantics for one
// (from, via) restriction group against a candidate turn target w.
func restrictionForbids(entries []turnEntry, w graph.NodeID) (bool, error) {
	var onlyTarget graph.NodeID
	var hasOnly bool
	for _, e := range entries {
		if e.isOnly {
			if hasOnly && onlyTarget != e.to {
				return false, fmt.Errorf("conflicting is_only restrictions at the same via-node")
			}
			hasOnly = true
			onlyTarget = e.to
		}
	}
	if hasOnly {
		return w != onlyTarget, nil
	}
	for _, e := range entries {
		if e.to == w {
			return true, nil
		}
	}
	return false, nil
}

// BuildEdgeBasedNodesForServing re-derives the EdgeBasedNode list Expand
// would have built from g, without running the rest of expansion. A
// .osrm.expanded file carries only the edge-based edge list plus a node
// count (see graph.WriteExpanded), so a server loading it back has to
// recompute the node list itself; this is exported for that purpose, and
// it is deterministic in the same loaded graph produces the same list
// Expand did when the file was written.
func BuildEdgeBasedNodesForServing(g *graph.LoadedGraph) []EdgeBasedNode {
	nodes, _ := buildEdgeBasedNodes(g)
	return nodes
}

// ChecksumNodes computes the .osrm.expanded integrity checksum over an
// edge-based-node list, the same way at write time (cmd/osrmprep, right
// after Expand) and at read time (cmd/routed, over the list
// BuildEdgeBasedNodesForServing recovers) so the two never drift apart.
func ChecksumNodes(nodes []EdgeBasedNode) uint32 {
	checksum := graph.NewChecksumWriter()
	for _, n := range nodes {
		binary.Write(checksum, binary.LittleEndian, n.ID)
		binary.Write(checksum, binary.LittleEndian, n.Weight)
	}
	return checksum.Sum32()
}

// buildEdgeBasedNodes creates one EdgeBasedNode per traversable direction
// of each deduplicated ImportEdge, in the loader's stable order. Access-
// restricted edges are skipped entirely -- they are not traversable in
// either direction.
func buildEdgeBasedNodes(g *graph.LoadedGraph) ([]EdgeBasedNode, []profile.EdgeMeta) {
	var nodes []EdgeBasedNode
	var meta []profile.EdgeMeta

	add := func(originalEdge graph.EdgeID, e graph.ImportEdge, from, to graph.NodeID) {
		nodes = append(nodes, EdgeBasedNode{
			ID:           uint32(len(nodes)),
			OriginalEdge: originalEdge,
			From:         from,
			To:           to,
			NameID:       e.NameID,
			Weight:       e.Weight,
			IsRoundabout: e.IsRoundabout,
			BBox:         bboxOf(g, from, to),
		})
		meta = append(meta, profile.EdgeMetaFrom(e))
	}

	for i, e := range g.Edges {
		if e.AccessRestricted {
			continue
		}
		if e.Forward {
			add(graph.EdgeID(i), e, e.Source, e.Target)
		}
		if e.Backward {
			add(graph.EdgeID(i), e, e.Target, e.Source)
		}
	}
	return nodes, meta
}

func bboxOf(g *graph.LoadedGraph, from, to graph.NodeID) [4]int32 {
	a, b := g.Nodes[from], g.Nodes[to]
	minLat, maxLat := a.Lat, a.Lat
	if b.Lat < minLat {
		minLat = b.Lat
	}
	if b.Lat > maxLat {
		maxLat = b.Lat
	}
	minLon, maxLon := a.Lon, a.Lon
	if b.Lon < minLon {
		minLon = b.Lon
	}
	if b.Lon > maxLon {
		maxLon = b.Lon
	}
	return [4]int32{minLat, minLon, maxLat, maxLon}
}

// ToWireFormat converts the edge-based graph into the ExpandedEdge slice
// graph.WriteExpanded expects, plus the node count it needs for the CSR
// sentinel. Expand already emits edges grouped by Source (it iterates
// edge-based nodes in ID order as e1), so this only needs a stable sort to
// guarantee BuildStaticGraph's single-pass precondition against any future
// change to that iteration order.
func (r *ExpandedResult) ToWireFormat() (nodeCount uint32, edges []graph.ExpandedEdge) {
	edges = make([]graph.ExpandedEdge, len(r.Edges))
	for i, e := range r.Edges {
		edges[i] = graph.ExpandedEdge{
			Source:   e.Source,
			Target:   e.Target,
			ID:       e.ID,
			Distance: e.Weight,
			Forward:  e.Forward,
			Backward: e.Backward,
		}
	}
	sort.SliceStable(edges, func(i, j int) bool { return edges[i].Source < edges[j].Source })
	return uint32(len(r.Nodes)), edges
}
