// Package nearest resolves a query coordinate to a PhantomNode by finding
// the closest road segment, backed by an R-tree spatial index, replacing
// an older flat sorted-grid snapper with a real spatial index.
package nearest

import (
	"errors"
	"math"

	"github.com/tidwall/rtree"

	"mapd/pkg/expander"
	"mapd/pkg/geo"
	"mapd/pkg/graph"
	"mapd/pkg/routing"
)

// ErrPointTooFar is returned when the query coordinate is farther than
// maxSnapDistMeters from every indexed segment.
var ErrPointTooFar = errors.New("nearest: point too far from any road")

const maxSnapDistMeters = 500.0

// searchRadiiDeg are the expanding-window sizes tried around a query
// point, in degrees, before giving up. 0.01 degrees is roughly 1.1km at
// the equator, comfortably covering maxSnapDistMeters on the first or
// second try for anything actually near a road.
var searchRadiiDeg = []float64{0.005, 0.01, 0.02, 0.05, 0.1}

// segment is one traversable direction pair over an original ImportEdge,
// indexed by its bounding box.
type segment struct {
	uLat, uLon, vLat, vLon float64
	weight                 uint32
	forwardNodeID          graph.NodeID // InvalidNode if this direction doesn't exist
	reverseNodeID          graph.NodeID
}

// Index is an R-tree-backed nearest-road lookup, built once from an
// edge-expanded graph and read-only thereafter.
type Index struct {
	tree     rtree.RTreeG[int32]
	segments []segment
}

// Build indexes every traversable original edge of g, using the
// edge-based node ids expander.Expand produced for each direction.
func Build(g *graph.LoadedGraph, ebNodes []expander.EdgeBasedNode) *Index {
	directed := make(map[[2]graph.NodeID]graph.NodeID, len(ebNodes))
	for _, n := range ebNodes {
		directed[[2]graph.NodeID{n.From, n.To}] = n.ID
	}

	idx := &Index{segments: make([]segment, 0, len(g.Edges))}
	for _, e := range g.Edges {
		fwdID, hasFwd := directed[[2]graph.NodeID{e.Source, e.Target}]
		revID, hasRev := directed[[2]graph.NodeID{e.Target, e.Source}]
		if !hasFwd && !hasRev {
			continue // access-restricted or otherwise non-traversable in either direction
		}
		if !hasFwd {
			fwdID = graph.InvalidNode
		}
		if !hasRev {
			revID = graph.InvalidNode
		}

		u, v := g.Nodes[e.Source], g.Nodes[e.Target]
		seg := segment{
			uLat: u.LatF(), uLon: u.LonF(),
			vLat: v.LatF(), vLon: v.LonF(),
			weight:        e.Weight,
			forwardNodeID: fwdID,
			reverseNodeID: revID,
		}

		minLat, maxLat := math.Min(seg.uLat, seg.vLat), math.Max(seg.uLat, seg.vLat)
		minLon, maxLon := math.Min(seg.uLon, seg.vLon), math.Max(seg.uLon, seg.vLon)

		id := int32(len(idx.segments))
		idx.segments = append(idx.segments, seg)
		idx.tree.Insert([2]float64{minLon, minLat}, [2]float64{maxLon, maxLat}, id)
	}
	return idx
}

// NearestPhantom snaps (lat, lon) onto the closest indexed segment and
// returns the PhantomNode routing.ShortestPath expects: the edge-based
// node ids for both traversal directions, and the portion of each
// direction's weight already consumed by the snap point's position along
// the segment.
func (idx *Index) NearestPhantom(lat, lon float64) (routing.PhantomNode, error) {
	best := math.Inf(1)
	var bestSeg segment
	var bestRatio float64
	found := false

	for _, radius := range searchRadiiDeg {
		min := [2]float64{lon - radius, lat - radius}
		max := [2]float64{lon + radius, lat + radius}

		idx.tree.Search(min, max, func(_, _ [2]float64, data int32) bool {
			s := idx.segments[data]
			dist, ratio := geo.PointToSegmentDist(lat, lon, s.uLat, s.uLon, s.vLat, s.vLon)
			if dist < best {
				best = dist
				bestSeg = s
				bestRatio = ratio
				found = true
			}
			return true
		})

		if found {
			break
		}
	}

	if !found || best > maxSnapDistMeters {
		return routing.PhantomNode{}, ErrPointTooFar
	}

	return routing.PhantomNode{
		ForwardNodeID:       bestSeg.forwardNodeID,
		ReverseNodeID:       bestSeg.reverseNodeID,
		ForwardWeightOffset: uint32(bestRatio * float64(bestSeg.weight)),
		ReverseWeightOffset: uint32((1 - bestRatio) * float64(bestSeg.weight)),
		Location:            routing.LatLng{Lat: lat, Lng: lon},
	}, nil
}
