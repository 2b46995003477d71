package plugins

import (
	"context"
	"fmt"

	"mapd/pkg/graph"
	"mapd/pkg/nearest"
)

// NodeIDPlugin resolves one coordinate to the internal edge-based node id
// of the road it snaps onto. It requires exactly one coordinate; anything
// else, or a point too far from any road, is a 400.
type NodeIDPlugin struct {
	Index *nearest.Index
}

func NewNodeIDPlugin(index *nearest.Index) *NodeIDPlugin {
	return &NodeIDPlugin{Index: index}
}

func (p *NodeIDPlugin) Descriptor() string { return "nodeid" }

func (p *NodeIDPlugin) Handle(_ context.Context, params Params, reply *Reply) {
	if len(params.Coordinates) != 1 {
		*reply = StockBadRequest()
		return
	}

	coord := params.Coordinates[0]
	phantom, err := p.Index.NearestPhantom(coord.Lat, coord.Lng)
	if err != nil {
		*reply = StockBadRequest()
		return
	}

	nodeID := phantom.ForwardNodeID
	if nodeID == graph.InvalidNode {
		nodeID = phantom.ReverseNodeID
	}

	reply.Status = 200
	reply.Body = []byte(fmt.Sprintf(`{"status":0,"node_id":%d}`, nodeID))
}
