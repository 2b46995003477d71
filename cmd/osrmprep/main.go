// Command osrmprep turns a road network extract into the .osrm.expanded
// file cmd/routed serves queries from. It accepts either a pre-built
// .osrm node-based graph or a raw .osm.pbf extract, runs edge expansion
// against the built-in car profile, and writes the result plus its CRC32
// checksum.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"mapd/internal/osmimport"
	"mapd/pkg/expander"
	"mapd/pkg/graph"
	"mapd/pkg/profile"
)

const version = "osrmprep/1.0"

func main() {
	input := flag.String("input", "", "Path to a .osrm node-based graph or a .osm.pbf extract")
	restrictionsPath := flag.String("restrictions", "", "Path to a companion .osrm.restrictions file (ignored for .osm.pbf input, which has no separate restrictions file)")
	profileName := flag.String("profile", "car", "Speed profile to evaluate turns with (only \"car\" is built in)")
	threads := flag.Int("threads", 1, "Worker threads to use during expansion (reserved; expansion is currently single-threaded)")
	output := flag.String("output", "", "Output .osrm.expanded path (default: <input> with its extension replaced)")
	configPath := flag.String("config", "", "Path to a config file (accepted for CLI-surface parity; option/config-file parsing is out of scope for this build)")
	showVersion := flag.Bool("version", false, "Print version and exit")
	showHelp := flag.Bool("help", false, "Print usage and exit")
	flag.Parse()

	usage := func() {
		fmt.Fprintln(os.Stderr, "Usage: osrmprep --input <file.osrm|file.osm.pbf> [--restrictions file.osrm.restrictions] [--profile car] [--config file] [--output file.osrm.expanded]")
		flag.PrintDefaults()
	}

	if *showHelp {
		usage()
		os.Exit(0)
	}
	if *showVersion {
		fmt.Println(version)
		os.Exit(0)
	}
	if *configPath != "" {
		log.Printf("warning: --config is accepted for CLI-surface parity but config-file parsing is not implemented in this build; ignoring %s", *configPath)
	}

	if *input == "" {
		usage()
		os.Exit(1)
	}

	if !strings.EqualFold(*profileName, "car") {
		log.Printf("warning: profile %q is not built in, falling back to the default car profile", *profileName)
	}

	outPath := *output
	if outPath == "" {
		outPath = strings.TrimSuffix(*input, filepath.Ext(*input)) + ".osrm.expanded"
	}

	if err := run(*input, *restrictionsPath, outPath, *threads); err != nil {
		log.Fatalf("osrmprep: %v", err)
	}
}

func run(inputPath, restrictionsPath, outPath string, threads int) error {
	start := time.Now()

	loaded, err := loadGraph(inputPath, restrictionsPath)
	if err != nil {
		return err
	}
	log.Printf("loaded %d nodes, %d edges", len(loaded.graph.Nodes), len(loaded.graph.Edges))

	log.Printf("expanding with %d worker thread(s) requested (expansion runs single-threaded)", threads)
	prof := profile.NewDefaultCarProfile()
	result, err := expander.Expand(loaded.graph, loaded.restrictions, prof)
	if err != nil {
		return fmt.Errorf("expand: %w", err)
	}
	log.Printf("expanded to %d edge-based nodes, %d edge-based edges", len(result.Nodes), len(result.Edges))

	checksum := expander.ChecksumNodes(result.Nodes)

	nodeCount, edges := result.ToWireFormat()

	out, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	defer out.Close()

	if err := graph.WriteExpanded(out, nodeCount, edges, checksum); err != nil {
		return fmt.Errorf("write expanded: %w", err)
	}

	log.Printf("wrote %s in %s", outPath, time.Since(start).Round(time.Millisecond))
	return nil
}

type loadedInput struct {
	graph        *graph.LoadedGraph
	restrictions []graph.TurnRestriction
}

// loadGraph dispatches on the input file's extension: ".pbf" goes through
// internal/osmimport's two-pass PBF scan, anything else is treated as a
// pre-built .osrm stream read by graph.LoadOSRM. A .osm.pbf input has no
// separate restrictions file (turn restrictions come from OSM relations,
// which osmimport does not yet parse), so restrictionsPath is ignored in
// that case.
func loadGraph(inputPath, restrictionsPath string) (*loadedInput, error) {
	if strings.HasSuffix(strings.ToLower(inputPath), ".pbf") {
		f, err := os.Open(inputPath)
		if err != nil {
			return nil, fmt.Errorf("open input: %w", err)
		}
		defer f.Close()

		if restrictionsPath != "" {
			log.Printf("warning: --restrictions is ignored for .osm.pbf input")
		}

		res, err := osmimport.Parse(context.Background(), f)
		if err != nil {
			return nil, fmt.Errorf("parse osm.pbf: %w", err)
		}
		return &loadedInput{graph: res.Graph}, nil
	}

	f, err := os.Open(inputPath)
	if err != nil {
		return nil, fmt.Errorf("open input: %w", err)
	}
	defer f.Close()

	g, err := graph.LoadOSRM(f)
	if err != nil {
		return nil, fmt.Errorf("load osrm: %w", err)
	}

	var restrictions []graph.TurnRestriction
	if restrictionsPath != "" {
		rf, err := os.Open(restrictionsPath)
		if err != nil {
			return nil, fmt.Errorf("open restrictions: %w", err)
		}
		defer rf.Close()

		restrictions, _, err = graph.LoadRestrictions(rf, g.ExtToInt)
		if err != nil {
			return nil, fmt.Errorf("load restrictions: %w", err)
		}
	}

	return &loadedInput{graph: g, restrictions: restrictions}, nil
}
