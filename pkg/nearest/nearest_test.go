package nearest

import (
	"testing"

	"mapd/pkg/expander"
	"mapd/pkg/graph"
	"mapd/pkg/profile"
)

// straightLineGraph builds two nodes ~1.1km apart along the equator, joined
// by one bidirectional edge.
func straightLineGraph(t *testing.T) (*graph.LoadedGraph, []expander.EdgeBasedNode) {
	t.Helper()
	g := &graph.LoadedGraph{
		Nodes: []graph.ExternalNode{
			{ExternalID: 1, Lat: 1_000000, Lon: 103_000000},
			{ExternalID: 2, Lat: 1_000000, Lon: 103_010000}, // ~1.1km east
		},
		Edges: []graph.ImportEdge{
			{Source: 0, Target: 1, Weight: 1000, Forward: true, Backward: true},
		},
	}
	res, err := expander.Expand(g, nil, profile.NewDefaultCarProfile())
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	return g, res.Nodes
}

func TestNearestPhantomSnapsOntoSegment(t *testing.T) {
	g, nodes := straightLineGraph(t)
	idx := Build(g, nodes)

	// Query point sits right on node 0's coordinate.
	pn, err := idx.NearestPhantom(1.0, 103.0)
	if err != nil {
		t.Fatalf("NearestPhantom: %v", err)
	}
	if pn.ForwardNodeID == graph.InvalidNode && pn.ReverseNodeID == graph.InvalidNode {
		t.Fatal("expected at least one valid direction")
	}
	if pn.ForwardWeightOffset != 0 {
		t.Errorf("ForwardWeightOffset = %d, want ~0 (snapped at segment start)", pn.ForwardWeightOffset)
	}
}

func TestNearestPhantomTooFar(t *testing.T) {
	g, nodes := straightLineGraph(t)
	idx := Build(g, nodes)

	_, err := idx.NearestPhantom(10.0, 110.0) // far away
	if err != ErrPointTooFar {
		t.Errorf("err = %v, want ErrPointTooFar", err)
	}
}
