package plugins

import (
	"context"
	"encoding/json"
	"testing"

	"mapd/pkg/expander"
	"mapd/pkg/graph"
	"mapd/pkg/nearest"
	"mapd/pkg/profile"
	"mapd/pkg/routing"
)

// fixture builds two nodes ~1.1km apart along the equator joined by one
// bidirectional edge, the same shape pkg/nearest's tests use, plus the
// static query graph built from its expansion.
func fixture(t *testing.T) (*graph.StaticGraph, *nearest.Index, []expander.EdgeBasedNode, []graph.ExternalNode) {
	t.Helper()
	g := &graph.LoadedGraph{
		Nodes: []graph.ExternalNode{
			{ExternalID: 1, Lat: 1_000000, Lon: 103_000000},
			{ExternalID: 2, Lat: 1_000000, Lon: 103_010000},
		},
		Edges: []graph.ImportEdge{
			{Source: 0, Target: 1, Weight: 1000, Forward: true, Backward: true},
		},
	}
	res, err := expander.Expand(g, nil, profile.NewDefaultCarProfile())
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}

	edges := make([]graph.QueryEdge, len(res.Edges))
	for i, e := range res.Edges {
		edges[i] = graph.QueryEdge{
			Source: e.Source,
			Target: e.Target,
			Data: graph.QueryEdgeData{
				Distance: e.Weight,
				ID:       e.ID,
				Forward:  e.Forward,
				Backward: e.Backward,
			},
		}
	}
	sg := graph.BuildStaticGraph(uint32(len(res.Nodes)), edges)

	idx := nearest.Build(g, res.Nodes)
	return sg, idx, res.Nodes, g.Nodes
}

func TestRegistryLookup(t *testing.T) {
	r := NewRegistry()
	r.Register(NewHelloPlugin())

	p, ok := r.Lookup("hello")
	if !ok {
		t.Fatal("expected hello to be registered")
	}
	if p.Descriptor() != "hello" {
		t.Errorf("Descriptor() = %q, want hello", p.Descriptor())
	}

	if _, ok := r.Lookup("nonexistent"); ok {
		t.Error("expected nonexistent service to be absent")
	}
}

func TestHelloPluginAlwaysOK(t *testing.T) {
	p := NewHelloPlugin()
	var reply Reply
	p.Handle(context.Background(), Params{}, &reply)

	if reply.Status != 200 {
		t.Errorf("Status = %d, want 200", reply.Status)
	}
}

func TestNodeIDPluginRequiresOneCoordinate(t *testing.T) {
	_, idx, _, _ := fixture(t)
	p := NewNodeIDPlugin(idx)

	var reply Reply
	p.Handle(context.Background(), Params{Coordinates: []routing.LatLng{{Lat: 1, Lng: 103}, {Lat: 1, Lng: 103}}}, &reply)
	if reply.Status != 400 {
		t.Errorf("Status = %d, want 400 for two coordinates", reply.Status)
	}
}

func TestNodeIDPluginResolvesCoordinate(t *testing.T) {
	_, idx, _, _ := fixture(t)
	p := NewNodeIDPlugin(idx)

	var reply Reply
	p.Handle(context.Background(), Params{Coordinates: []routing.LatLng{{Lat: 1.0, Lng: 103.0}}}, &reply)
	if reply.Status != 200 {
		t.Fatalf("Status = %d, want 200, body: %s", reply.Status, reply.Body)
	}

	var body struct {
		NodeID uint32 `json:"node_id"`
	}
	if err := json.Unmarshal(reply.Body, &body); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
}

func TestNodeIDPluginTooFarIsBadRequest(t *testing.T) {
	_, idx, _, _ := fixture(t)
	p := NewNodeIDPlugin(idx)

	var reply Reply
	p.Handle(context.Background(), Params{Coordinates: []routing.LatLng{{Lat: 40, Lng: 40}}}, &reply)
	if reply.Status != 400 {
		t.Errorf("Status = %d, want 400 for an unsnappable coordinate", reply.Status)
	}
}

func TestBaseRoutePluginRequiresTwoCoordinates(t *testing.T) {
	sg, idx, nodes, coords := fixture(t)
	p := NewBaseRoutePlugin(sg, idx, nodes, coords)

	var reply Reply
	p.Handle(context.Background(), Params{Coordinates: []routing.LatLng{{Lat: 1, Lng: 103}}}, &reply)
	if reply.Status != 400 {
		t.Errorf("Status = %d, want 400 for one coordinate", reply.Status)
	}
}

func TestBaseRoutePluginFindsRoute(t *testing.T) {
	sg, idx, nodes, coords := fixture(t)
	p := NewBaseRoutePlugin(sg, idx, nodes, coords)

	var reply Reply
	p.Handle(context.Background(), Params{
		Coordinates: []routing.LatLng{{Lat: 1.0, Lng: 103.0}, {Lat: 1.0, Lng: 103.01}},
	}, &reply)

	if reply.Status != 200 {
		t.Fatalf("Status = %d, want 200, body: %s", reply.Status, reply.Body)
	}

	var body struct {
		Status       int `json:"status"`
		RouteSummary struct {
			TotalDistance uint32 `json:"total_distance"`
		} `json:"route_summary"`
	}
	if err := json.Unmarshal(reply.Body, &body); err != nil {
		t.Fatalf("Unmarshal: %v, body: %s", err, reply.Body)
	}
	if body.Status != 0 {
		t.Errorf("route status = %d, want 0 (found)", body.Status)
	}
}

func TestBaseRoutePluginRendersGPXWhenRequested(t *testing.T) {
	sg, idx, nodes, coords := fixture(t)
	p := NewBaseRoutePlugin(sg, idx, nodes, coords)

	var reply Reply
	p.Handle(context.Background(), Params{
		Format:      "gpx",
		Coordinates: []routing.LatLng{{Lat: 1.0, Lng: 103.0}, {Lat: 1.0, Lng: 103.01}},
	}, &reply)

	if reply.Status != 200 {
		t.Fatalf("Status = %d, want 200", reply.Status)
	}
	if got := string(reply.Body); len(got) == 0 || got[0] != '<' {
		t.Errorf("expected an XML body, got %q", got)
	}
}
