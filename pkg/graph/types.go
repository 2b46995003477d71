// Package graph implements the binary graph codec and the static,
// CSR-backed query graph used at routing time.
package graph

import "fmt"

// NodeID and EdgeID are 32-bit indices into the node-based or edge-based
// graph, depending on context. InvalidNode marks a deleted or unresolved
// entity.
type NodeID = uint32
type EdgeID = uint32

// InvalidNode is the sentinel value for "no such node" (2^32 - 1).
const InvalidNode NodeID = ^NodeID(0)

// InvalidEdgeWeight signals "no path" in a RawRoute. It is a value, not an
// error: Dijkstra unreachability is a legitimate result.
const InvalidEdgeWeight int32 = 1<<31 - 1

// ExternalNode is a node record as read from a .osrm file, keyed by its
// external (OSM) id.
type ExternalNode struct {
	ExternalID      uint64
	Lat             int32 // fixed-point, 10^-6 degrees
	Lon             int32 // fixed-point, 10^-6 degrees
	IsBarrier       bool
	HasTrafficLight bool
}

// LatF and LonF return the node's coordinate as floating-point degrees.
func (n ExternalNode) LatF() float64 { return float64(n.Lat) / 1e6 }
func (n ExternalNode) LonF() float64 { return float64(n.Lon) / 1e6 }

// ImportEdge is a node-based edge after loading: source/target have already
// been translated to internal ids. Invariant: Source <= Target once
// canonicalized (see canonicalize in loader.go).
type ImportEdge struct {
	Source           NodeID
	Target           NodeID
	NameID           uint32
	Weight           uint32
	Forward          bool
	Backward         bool
	IsRoundabout     bool
	IgnoreInGrid     bool
	AccessRestricted bool
	TravelMode       uint8
	IsSplit          bool
}

// Less orders edges by (Source, Target, Forward, Backward) for the
// sort/dedup pass. Forward/Backward are part of the key, not just a
// tiebreaker: sortAndDedup only ever compares adjacent elements, so every
// edge sharing a (Source, Target, Forward, Backward) quadruple must sort
// contiguously for that pairwise scan to see all of them.
func (e ImportEdge) Less(o ImportEdge) bool {
	if e.Source != o.Source {
		return e.Source < o.Source
	}
	if e.Target != o.Target {
		return e.Target < o.Target
	}
	if e.Forward != o.Forward {
		return !e.Forward
	}
	return !e.Backward && o.Backward
}

// TurnRestrictionNode is one endpoint of a turn restriction.
type TurnRestrictionNode struct {
	Node NodeID
}

// TurnRestriction models a (from, via, to) turn, either forbidden or
// exclusively permitted depending on IsOnly.
type TurnRestriction struct {
	From   TurnRestrictionNode
	Via    TurnRestrictionNode
	To     TurnRestrictionNode
	IsOnly bool
}

// Fingerprint is the 16-byte build-identity token embedded in .osrm and
// .osrm.restrictions files to detect a producer/consumer mismatch. It is
// never fatal on mismatch, only logged (see loader.go).
type Fingerprint [16]byte

// magicFingerprint mixes a fixed magic with the graph-util/prepare format
// versions this build understands. A real deployment would derive the
// hash fields from build metadata; here they are fixed constants, which is
// sufficient to detect a foreign/corrupt file.
var magicFingerprint = Fingerprint{
	'O', 'S', 'R', 'M', // magic
	1, 0, 0, 0, // graph-util version
	1, 0, 0, 0, // prepare-format version
	0, 0, 0, 0, // reserved
}

// ExpectedFingerprint returns this build's fingerprint.
func ExpectedFingerprint() Fingerprint { return magicFingerprint }

// Matches reports whether two fingerprints agree. A mismatch is never
// fatal — callers log and continue.
func (f Fingerprint) Matches(o Fingerprint) bool { return f == o }

// ExpandedEdge is the wire representation of one edge-based-graph edge, as
// stored in a .osrm.expanded file.
type ExpandedEdge struct {
	Source   NodeID
	Target   NodeID
	ID       uint32
	Distance uint32
	Forward  bool
	Backward bool
}

// QueryEdgeData is the in-memory payload of one CSR edge.
type QueryEdgeData struct {
	Distance uint32
	ID       uint32
	Shortcut bool
	Forward  bool
	Backward bool
}

// QueryEdge pairs a (source, target) with its in-memory data, the unit the
// CSR builder consumes.
type QueryEdge struct {
	Source NodeID
	Target NodeID
	Data   QueryEdgeData
}

// ErrorKind enumerates the coarse error categories from the design's error
// handling section. Dropped restrictions and unresolved nodes are not
// errors — they are counted and logged once at debug level.
type ErrorKind int

const (
	ErrorKindNone ErrorKind = iota
	ErrorKindInputMissing
	ErrorKindInputCorrupt
	ErrorKindFingerprintMismatch
	ErrorKindEmptyGraph
	ErrorKindProfileError
)

func (k ErrorKind) String() string {
	switch k {
	case ErrorKindInputMissing:
		return "InputMissing"
	case ErrorKindInputCorrupt:
		return "InputCorrupt"
	case ErrorKindFingerprintMismatch:
		return "FingerprintMismatch"
	case ErrorKindEmptyGraph:
		return "EmptyGraph"
	case ErrorKindProfileError:
		return "ProfileError"
	default:
		return "None"
	}
}

// Error wraps an ErrorKind with a human-readable message so a preprocessor
// main() can log the kind and exit(1).
type Error struct {
	Kind ErrorKind
	Msg  string
}

func (e *Error) Error() string { return fmt.Sprintf("%s: %s", e.Kind, e.Msg) }

func newError(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}
