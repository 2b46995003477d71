// Package routing implements the phantom-node Dijkstra query engine over
// the static edge-expanded graph.
package routing

import (
	"context"
	"math"

	"mapd/pkg/graph"
)

// InvalidEdgeWeight signals "no route found." It is a value stored in
// RawRoute.ShortestPathLength, never a Go error -- unreachability is a
// legitimate routing outcome, not a failure of the query engine.
const InvalidEdgeWeight = math.MaxInt32

// LatLng is a WGS84 coordinate in floating-point degrees.
type LatLng struct {
	Lat, Lng float64
}

// PhantomNode is a point snapped onto an edge of the static graph: the
// edge-based node ids of its forward and reverse edge-based-node halves,
// and the portion of each half's weight already consumed by the snap
// offset.
type PhantomNode struct {
	ForwardNodeID       graph.NodeID
	ReverseNodeID       graph.NodeID
	ForwardWeightOffset uint32
	ReverseWeightOffset uint32
	Location            LatLng
}

// RawRoute is the unpacked result of one shortest-path query.
type RawRoute struct {
	Path                     []graph.NodeID
	ShortestPathLength       int32
	SourceTraversedInReverse bool
	TargetTraversedInReverse bool
}

// ShortestPath runs a plain, single-direction Dijkstra search from src to
// tgt over g, following a phantom-node seeding contract. It never returns
// a Go error: a route that cannot be found is
// reported via RawRoute.ShortestPathLength == InvalidEdgeWeight, exactly
// as the routing_algorithms/dijkstra.hpp original reports it.
//
// uturnAllowed mirrors the original's allow_u_turn seed-offset hook: at
// the search root the running distance is always zero regardless of its
// value (the original hardcoded it false and it made no observable
// difference either), so it has no effect on today's single built-in
// profile. It is threaded through as a parameter, not hardcoded, so a
// profile that seeds a non-zero starting offset can use it later without
// changing this signature.
func ShortestPath(ctx context.Context, g *graph.StaticGraph, src, tgt PhantomNode, uturnAllowed bool) RawRoute {
	_ = uturnAllowed

	heap := NewQueryHeap(int(g.NumberOfNodes()))
	heap.Clear()

	fTarget := tgt.ForwardNodeID
	rTarget := tgt.ReverseNodeID

	// A phantom on a one-way segment has only one valid side; graph.InvalidNode
	// marks the side that doesn't exist, and is never seeded.
	if src.ForwardNodeID != graph.InvalidNode {
		heap.Insert(src.ForwardNodeID, -int32(src.ForwardWeightOffset), src.ForwardNodeID)
	}
	if src.ReverseNodeID != graph.InvalidNode {
		reverseKey := -int32(src.ReverseWeightOffset)
		if !heap.WasInserted(src.ReverseNodeID) {
			heap.Insert(src.ReverseNodeID, reverseKey, src.ReverseNodeID)
		} else if reverseKey < heap.GetKey(src.ReverseNodeID) {
			heap.DecreaseKey(src.ReverseNodeID, reverseKey)
		}
	}
	if heap.Empty() {
		return RawRoute{ShortestPathLength: InvalidEdgeWeight}
	}

	var current graph.NodeID
	var target graph.NodeID
	found := false
	settled := 0

	for !heap.Empty() {
		if settled%1024 == 0 && ctx.Err() != nil {
			return RawRoute{ShortestPathLength: InvalidEdgeWeight}
		}

		current = heap.DeleteMin()
		distance := heap.GetKey(current)

		if current == fTarget || current == rTarget {
			target = current
			found = true
			break
		}

		first, last := g.EdgeRange(current)
		for e := first; e < last; e++ {
			data := g.GetEdgeData(e)
			if !data.Forward {
				continue
			}
			to := g.GetTarget(e)
			toDistance := distance + int32(data.Distance)

			if !heap.WasInserted(to) {
				heap.Insert(to, toDistance, current)
			} else if toDistance < heap.GetKey(to) {
				heap.SetParent(to, current)
				heap.DecreaseKey(to, toDistance)
			}
		}
		settled++
	}

	if !found || current != target {
		return RawRoute{ShortestPathLength: InvalidEdgeWeight}
	}

	var path []graph.NodeID
	node := target
	for node != heap.GetParent(node) {
		path = append(path, node)
		node = heap.GetParent(node)
	}
	path = append(path, node)
	reverseNodes(path)

	length := heap.GetKey(target)
	if length < 0 {
		length = 0
	}

	return RawRoute{
		Path:                     path,
		ShortestPathLength:       length,
		SourceTraversedInReverse: path[0] != src.ForwardNodeID,
		TargetTraversedInReverse: path[len(path)-1] != tgt.ForwardNodeID,
	}
}

func reverseNodes(s []graph.NodeID) {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
}

// UnpackPath is a pass-through identity hook: the plain edge-expanded
// graph this repo produces has no shortcut edges to unpack (that only
// exists one layer up, in a contraction-hierarchies overlay this repo
// does not build). It exists so a downstream CH consumer's UnpackPath
// call site has a matching no-op here, not because this repo ever
// produces shortcuts to expand.
func UnpackPath(path []graph.NodeID) []graph.NodeID { return path }
