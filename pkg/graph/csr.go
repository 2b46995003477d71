package graph

import "fmt"

// StaticGraph is the CSR (compressed sparse row) adjacency structure over
// the edge-expanded graph. It is built once and is read-only afterward, so
// it can be shared across worker goroutines without a lock.
type StaticGraph struct {
	nodeCount uint32
	firstEdge []EdgeID // len == nodeCount+1, firstEdge[nodeCount] is the sentinel
	targets   []NodeID
	data      []QueryEdgeData
}

// BuildStaticGraph performs the single-pass CSR construction. edges must
// already be sorted by Source (ReadExpanded's output satisfies this, since
// the expansion engine emits edges in insertion order per edge-based
// node).
func BuildStaticGraph(nodeCount uint32, edges []QueryEdge) *StaticGraph {
	firstEdge := make([]EdgeID, nodeCount+1)
	targets := make([]NodeID, len(edges))
	data := make([]QueryEdgeData, len(edges))

	var cursor int
	var pos EdgeID
	for n := uint32(0); n < nodeCount; n++ {
		firstEdge[n] = pos
		for cursor < len(edges) && edges[cursor].Source == n {
			targets[pos] = edges[cursor].Target
			data[pos] = edges[cursor].Data
			cursor++
			pos++
		}
	}
	firstEdge[nodeCount] = EdgeID(len(edges)) // sentinel

	return &StaticGraph{
		nodeCount: nodeCount,
		firstEdge: firstEdge,
		targets:   targets,
		data:      data,
	}
}

// NumberOfNodes returns the number of edge-based nodes in the graph.
func (g *StaticGraph) NumberOfNodes() uint32 { return g.nodeCount }

// NumberOfEdges returns the total edge count.
func (g *StaticGraph) NumberOfEdges() int { return len(g.targets) }

// EdgeRange returns the half-open range [first, last) of edge indices
// originating at n. The range is always valid, even for a node with no
// outgoing edges, thanks to the sentinel entry at firstEdge[nodeCount].
func (g *StaticGraph) EdgeRange(n NodeID) (first, last EdgeID) {
	return g.firstEdge[n], g.firstEdge[n+1]
}

// GetTarget returns the target node of edge e.
func (g *StaticGraph) GetTarget(e EdgeID) NodeID { return g.targets[e] }

// GetEdgeData returns the payload of edge e.
func (g *StaticGraph) GetEdgeData(e EdgeID) QueryEdgeData { return g.data[e] }

// Validate checks the CSR invariants: firstEdge is non-decreasing and
// bounded by the edge count, and every target is a valid node index.
func (g *StaticGraph) Validate() error {
	for i := uint32(1); i <= g.nodeCount; i++ {
		if g.firstEdge[i] < g.firstEdge[i-1] {
			return fmt.Errorf("firstEdge not monotonic at %d: %d < %d", i, g.firstEdge[i], g.firstEdge[i-1])
		}
	}
	if g.firstEdge[g.nodeCount] != EdgeID(len(g.targets)) {
		return fmt.Errorf("firstEdge sentinel %d != edge count %d", g.firstEdge[g.nodeCount], len(g.targets))
	}
	for i, t := range g.targets {
		if t >= g.nodeCount {
			return fmt.Errorf("edge %d target %d >= node count %d", i, t, g.nodeCount)
		}
	}
	return nil
}
