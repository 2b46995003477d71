package routing

import "mapd/pkg/graph"

// QueryHeap is a concrete, array-based binary min-heap keyed by (int32
// distance, insertion sequence), sized once for the whole node-id space so
// GetKey/GetParent/WasInserted are O(1) lookups by node id, matching the
// call pattern the original dijkstra.hpp routing loop relies on
// (DecreaseKey and GetData().parent = ... mid-relaxation). Avoids
// container/heap's interface boxing.
type QueryHeap struct {
	nodeCount int
	gen       []uint32
	curGen    uint32

	key     []int32
	parent  []graph.NodeID
	seq     []uint64
	heapPos []int32

	arr     []graph.NodeID
	nextSeq uint64
}

// NewQueryHeap allocates a heap over a node-id space of the given size.
func NewQueryHeap(nodeCount int) *QueryHeap {
	return &QueryHeap{
		nodeCount: nodeCount,
		gen:       make([]uint32, nodeCount),
		key:       make([]int32, nodeCount),
		parent:    make([]graph.NodeID, nodeCount),
		seq:       make([]uint64, nodeCount),
		heapPos:   make([]int32, nodeCount),
		arr:       make([]graph.NodeID, 0, 256),
		curGen:    1,
	}
}

// Clear resets the heap for a new query without reallocating its arrays:
// every node's "was inserted" state is tagged by generation, so bumping
// curGen invalidates all of them in O(1).
func (h *QueryHeap) Clear() {
	h.arr = h.arr[:0]
	h.nextSeq = 0
	h.curGen++
}

func (h *QueryHeap) Empty() bool { return len(h.arr) == 0 }

// WasInserted reports whether node has ever been inserted since the last
// Clear, whether or not it has since been popped by DeleteMin.
func (h *QueryHeap) WasInserted(node graph.NodeID) bool {
	return h.gen[node] == h.curGen
}

// GetKey returns node's current distance key. Only valid if WasInserted.
func (h *QueryHeap) GetKey(node graph.NodeID) int32 { return h.key[node] }

// GetParent returns node's current parent pointer.
func (h *QueryHeap) GetParent(node graph.NodeID) graph.NodeID { return h.parent[node] }

// SetParent updates node's parent pointer without touching its key,
// mirroring the original's `dijkstra_heap.GetData(to).parent = current`.
func (h *QueryHeap) SetParent(node, parent graph.NodeID) { h.parent[node] = parent }

// Insert adds node to the heap with the given key and parent.
func (h *QueryHeap) Insert(node graph.NodeID, key int32, parent graph.NodeID) {
	h.gen[node] = h.curGen
	h.key[node] = key
	h.parent[node] = parent
	h.seq[node] = h.nextSeq
	h.nextSeq++

	h.arr = append(h.arr, node)
	pos := int32(len(h.arr) - 1)
	h.heapPos[node] = pos
	h.siftUp(pos)
}

// DecreaseKey lowers node's key and restores the heap property. node must
// already be in the heap (not yet deleted by DeleteMin).
func (h *QueryHeap) DecreaseKey(node graph.NodeID, key int32) {
	h.key[node] = key
	h.siftUp(h.heapPos[node])
}

// DeleteMin removes and returns the node with the smallest (key, seq).
func (h *QueryHeap) DeleteMin() graph.NodeID {
	min := h.arr[0]
	last := len(h.arr) - 1
	h.arr[0] = h.arr[last]
	h.heapPos[h.arr[0]] = 0
	h.arr = h.arr[:last]
	if len(h.arr) > 0 {
		h.siftDown(0)
	}
	return min
}

func (h *QueryHeap) less(a, b graph.NodeID) bool {
	if h.key[a] != h.key[b] {
		return h.key[a] < h.key[b]
	}
	return h.seq[a] < h.seq[b] // FIFO tie-break among equal keys
}

func (h *QueryHeap) siftUp(i int32) {
	for i > 0 {
		parent := (i - 1) / 2
		if !h.less(h.arr[i], h.arr[parent]) {
			break
		}
		h.swap(i, parent)
		i = parent
	}
}

func (h *QueryHeap) siftDown(i int32) {
	n := int32(len(h.arr))
	for {
		smallest := i
		left := 2*i + 1
		right := 2*i + 2
		if left < n && h.less(h.arr[left], h.arr[smallest]) {
			smallest = left
		}
		if right < n && h.less(h.arr[right], h.arr[smallest]) {
			smallest = right
		}
		if smallest == i {
			break
		}
		h.swap(i, smallest)
		i = smallest
	}
}

func (h *QueryHeap) swap(i, j int32) {
	h.arr[i], h.arr[j] = h.arr[j], h.arr[i]
	h.heapPos[h.arr[i]] = i
	h.heapPos[h.arr[j]] = j
}
