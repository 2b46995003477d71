// Package osmimport builds a graph.LoadedGraph directly from an OSM PBF
// extract, as an alternative front end to the .osrm wire format: cmd/osrmprep
// accepts either a pre-built .osrm file or a raw .osm.pbf, and a .osm.pbf
// input goes through this package instead of graph.LoadOSRM. It runs a
// two-pass way/node scan and emits the ExternalNode/ImportEdge shape the
// rest of the pipeline expects.
package osmimport

import (
	"context"
	"fmt"
	"io"
	"log"
	"math"

	"github.com/paulmach/osm"
	"github.com/paulmach/osm/osmpbf"

	"mapd/pkg/geo"
	"mapd/pkg/graph"
)

// carHighways lists highway tag values a car can legally travel.
var carHighways = map[string]bool{
	"motorway":       true,
	"motorway_link":  true,
	"trunk":          true,
	"trunk_link":     true,
	"primary":        true,
	"primary_link":   true,
	"secondary":      true,
	"secondary_link": true,
	"tertiary":       true,
	"tertiary_link":  true,
	"unclassified":   true,
	"residential":    true,
	"living_street":  true,
	"service":        true,
}

func isCarAccessible(tags osm.Tags) bool {
	hw := tags.Find("highway")
	if !carHighways[hw] {
		return false
	}
	if tags.Find("area") == "yes" {
		return false
	}
	access := tags.Find("access")
	if access == "no" || access == "private" {
		return false
	}
	if tags.Find("motor_vehicle") == "no" {
		return false
	}
	return true
}

func directionFlags(tags osm.Tags) (forward, backward bool) {
	forward, backward = true, true

	hw := tags.Find("highway")
	if hw == "motorway" || hw == "motorway_link" || tags.Find("junction") == "roundabout" {
		backward = false
	}

	switch tags.Find("oneway") {
	case "yes", "true", "1":
		forward, backward = true, false
	case "-1", "reverse":
		forward, backward = false, true
	case "no":
		forward, backward = true, true
	case "reversible":
		forward, backward = false, false // time-dependent, not modeled
	}
	return forward, backward
}

// isBarrier follows the common OSM convention: any barrier=* tag other than
// "no" makes a node a routing obstacle a vehicle can only cross via a
// u-turn.
func isBarrier(tags osm.Tags) bool {
	v := tags.Find("barrier")
	return v != "" && v != "no"
}

func isTrafficSignal(tags osm.Tags) bool {
	return tags.Find("highway") == "traffic_signals"
}

type wayInfo struct {
	NodeIDs      []osm.NodeID
	Forward      bool
	Backward     bool
	NameID       uint32
	IsRoundabout bool
}

// nameTable interns street names into small integer ids, name_id 0 meaning
// "unnamed" -- the same convention pkg/profile's same-name check relies on
// (NameID 0 never counts as the same street).
type nameTable struct {
	ids   map[string]uint32
	names []string
}

func newNameTable() *nameTable {
	return &nameTable{ids: make(map[string]uint32), names: []string{""}}
}

func (t *nameTable) intern(name string) uint32 {
	if name == "" {
		return 0
	}
	if id, ok := t.ids[name]; ok {
		return id
	}
	id := uint32(len(t.names))
	t.names = append(t.names, name)
	t.ids[name] = id
	return id
}

// Result is the osmimport output: a ready-to-expand LoadedGraph plus the
// street name table, kept around for diagnostics (name lookups are not part
// of the routing hot path).
type Result struct {
	Graph *graph.LoadedGraph
	Names []string
}

// Parse reads an OSM PBF extract and returns a LoadedGraph equivalent to
// what graph.LoadOSRM would build from a hand-produced .osrm file: an
// internally-numbered node table, deduplicated canonical edges, and the
// barrier/traffic-light node lists expander.Expand consumes. rs is read
// twice (ways, then referenced node coordinates), so it must support
// seeking back to the start.
func Parse(ctx context.Context, rs io.ReadSeeker) (*Result, error) {
	referencedNodes := make(map[osm.NodeID]struct{})
	var ways []wayInfo
	names := newNameTable()

	scanner := osmpbf.New(ctx, rs, 1)
	scanner.SkipNodes = true
	scanner.SkipRelations = true

	for scanner.Scan() {
		w, ok := scanner.Object().(*osm.Way)
		if !ok {
			continue
		}
		if !isCarAccessible(w.Tags) || len(w.Nodes) < 2 {
			continue
		}
		fwd, bwd := directionFlags(w.Tags)
		if !fwd && !bwd {
			continue
		}

		nodeIDs := make([]osm.NodeID, len(w.Nodes))
		for i, wn := range w.Nodes {
			nodeIDs[i] = wn.ID
			referencedNodes[wn.ID] = struct{}{}
		}

		ways = append(ways, wayInfo{
			NodeIDs:      nodeIDs,
			Forward:      fwd,
			Backward:     bwd,
			NameID:       names.intern(w.Tags.Find("name")),
			IsRoundabout: w.Tags.Find("junction") == "roundabout",
		})
	}
	if err := scanner.Err(); err != nil {
		scanner.Close()
		return nil, fmt.Errorf("osmimport: pass 1 (ways): %w", err)
	}
	scanner.Close()
	log.Printf("debug: osmimport pass 1: %d ways, %d referenced nodes", len(ways), len(referencedNodes))

	if _, err := rs.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("osmimport: seek for pass 2: %w", err)
	}

	extToInt := make(map[uint64]graph.NodeID, len(referencedNodes))
	var nodes []graph.ExternalNode
	var barriers, lights []graph.NodeID

	scanner = osmpbf.New(ctx, rs, 1)
	scanner.SkipWays = true
	scanner.SkipRelations = true

	for scanner.Scan() {
		n, ok := scanner.Object().(*osm.Node)
		if !ok {
			continue
		}
		if _, needed := referencedNodes[n.ID]; !needed {
			continue
		}

		id := graph.NodeID(len(nodes))
		extToInt[uint64(n.ID)] = id
		nodes = append(nodes, graph.ExternalNode{
			ExternalID:      uint64(n.ID),
			Lat:             int32(math.Round(n.Lat * 1e6)),
			Lon:             int32(math.Round(n.Lon * 1e6)),
			IsBarrier:       isBarrier(n.Tags),
			HasTrafficLight: isTrafficSignal(n.Tags),
		})
		if isBarrier(n.Tags) {
			barriers = append(barriers, id)
		}
		if isTrafficSignal(n.Tags) {
			lights = append(lights, id)
		}
	}
	if err := scanner.Err(); err != nil {
		scanner.Close()
		return nil, fmt.Errorf("osmimport: pass 2 (nodes): %w", err)
	}
	scanner.Close()
	log.Printf("debug: osmimport pass 2: %d node coordinates, %d barriers, %d traffic signals",
		len(nodes), len(barriers), len(lights))

	var edges []graph.ImportEdge
	var skipped int
	for _, w := range ways {
		for i := 0; i < len(w.NodeIDs)-1; i++ {
			fromID, fromOk := extToInt[uint64(w.NodeIDs[i])]
			toID, toOk := extToInt[uint64(w.NodeIDs[i+1])]
			if !fromOk || !toOk {
				skipped++
				continue
			}

			from, to := nodes[fromID], nodes[toID]
			distMeters := geo.Haversine(from.LatF(), from.LonF(), to.LatF(), to.LonF())
			weight := uint32(math.Round(distMeters))
			if weight == 0 {
				weight = 1
			}

			edges = append(edges, graph.ImportEdge{
				Source:       fromID,
				Target:       toID,
				NameID:       w.NameID,
				Weight:       weight,
				Forward:      w.Forward,
				Backward:     w.Backward,
				IsRoundabout: w.IsRoundabout,
				TravelMode:   1,
			})
		}
	}
	if skipped > 0 {
		log.Printf("debug: osmimport: skipped %d way segments with unresolved endpoints", skipped)
	}

	edges = graph.CanonicalizeAndDedup(edges)

	return &Result{
		Graph: &graph.LoadedGraph{
			Nodes:         nodes,
			ExtToInt:      extToInt,
			BarrierNodes:  barriers,
			TrafficLights: lights,
			Edges:         edges,
		},
		Names: names.names,
	}, nil
}
