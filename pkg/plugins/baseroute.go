package plugins

import (
	"context"

	"mapd/pkg/descriptor"
	"mapd/pkg/expander"
	"mapd/pkg/graph"
	"mapd/pkg/nearest"
	"mapd/pkg/routing"
)

// BaseRoutePlugin is the one-to-one shortest-path service: resolve both
// endpoints to phantom nodes, run Dijkstra, render through the requested
// descriptor.
type BaseRoutePlugin struct {
	Graph   *graph.StaticGraph
	Index   *nearest.Index
	EBNodes []expander.EdgeBasedNode
	Coords  []graph.ExternalNode // node-based coordinates, indexed by graph.NodeID
}

func NewBaseRoutePlugin(g *graph.StaticGraph, index *nearest.Index, ebNodes []expander.EdgeBasedNode, coords []graph.ExternalNode) *BaseRoutePlugin {
	return &BaseRoutePlugin{Graph: g, Index: index, EBNodes: ebNodes, Coords: coords}
}

func (p *BaseRoutePlugin) Descriptor() string { return "baseroute" }

func (p *BaseRoutePlugin) Handle(ctx context.Context, params Params, reply *Reply) {
	if len(params.Coordinates) != 2 {
		*reply = StockBadRequest()
		return
	}

	src, err := p.Index.NearestPhantom(params.Coordinates[0].Lat, params.Coordinates[0].Lng)
	if err != nil {
		*reply = StockBadRequest()
		return
	}
	tgt, err := p.Index.NearestPhantom(params.Coordinates[1].Lat, params.Coordinates[1].Lng)
	if err != nil {
		*reply = StockBadRequest()
		return
	}

	raw := routing.ShortestPath(ctx, p.Graph, src, tgt, params.UTurns)

	route := descriptor.Route{Found: raw.ShortestPathLength != routing.InvalidEdgeWeight}
	if route.Found {
		route.TotalDistance = uint32(raw.ShortestPathLength)
		route.TotalTime = uint32(raw.ShortestPathLength)
		route.Geometry = p.geometryOf(raw.Path)
	}
	// A missing path is not an error -- Dijkstra unreachability is a value --
	// the descriptor still renders a well-formed 207 body.

	desc := p.descriptorFor(params.Format)
	desc.SetConfig(descriptor.Config{Instructions: params.Instructions})

	reply.Status = 200
	reply.Body = desc.Render(route)
}

func (p *BaseRoutePlugin) descriptorFor(format string) descriptor.Descriptor {
	if format == "gpx" {
		return descriptor.NewGPXDescriptor()
	}
	return descriptor.NewJSONDescriptor()
}

// geometryOf maps a path of edge-based node ids back to the underlying
// node-based coordinates: the From endpoint of the first hop, then the To
// endpoint of every hop after it.
func (p *BaseRoutePlugin) geometryOf(path []graph.NodeID) []descriptor.Waypoint {
	if len(path) == 0 {
		return nil
	}
	wp := make([]descriptor.Waypoint, 0, len(path)+1)
	first := p.EBNodes[path[0]]
	wp = append(wp, p.coordOf(first.From))
	for _, ebID := range path {
		wp = append(wp, p.coordOf(p.EBNodes[ebID].To))
	}
	return wp
}

func (p *BaseRoutePlugin) coordOf(n graph.NodeID) descriptor.Waypoint {
	c := p.Coords[n]
	return descriptor.Waypoint{Lat: c.LatF(), Lon: c.LonF()}
}
