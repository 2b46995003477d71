package routing

import "testing"

func TestQueryHeapBasicOrdering(t *testing.T) {
	h := NewQueryHeap(10)
	h.Clear()

	h.Insert(3, 30, 3)
	h.Insert(1, 10, 1)
	h.Insert(2, 20, 2)

	if got := h.DeleteMin(); got != 1 {
		t.Errorf("DeleteMin() = %d, want 1", got)
	}
	if got := h.DeleteMin(); got != 2 {
		t.Errorf("DeleteMin() = %d, want 2", got)
	}
	if got := h.DeleteMin(); got != 3 {
		t.Errorf("DeleteMin() = %d, want 3", got)
	}
	if !h.Empty() {
		t.Error("heap should be empty after draining all inserted nodes")
	}
}

func TestQueryHeapFIFOTiebreak(t *testing.T) {
	h := NewQueryHeap(10)
	h.Clear()

	// All equal keys: must come out in insertion order.
	h.Insert(5, 100, 5)
	h.Insert(1, 100, 1)
	h.Insert(9, 100, 9)

	want := []uint32{5, 1, 9}
	for _, w := range want {
		if got := h.DeleteMin(); got != w {
			t.Errorf("DeleteMin() = %d, want %d (FIFO order)", got, w)
		}
	}
}

func TestQueryHeapDecreaseKey(t *testing.T) {
	h := NewQueryHeap(10)
	h.Clear()

	h.Insert(1, 100, 1)
	h.Insert(2, 50, 2)
	h.DecreaseKey(1, 10)

	if got := h.DeleteMin(); got != 1 {
		t.Errorf("DeleteMin() = %d, want 1 after DecreaseKey", got)
	}
}

func TestQueryHeapWasInsertedSurvivesDeleteMin(t *testing.T) {
	h := NewQueryHeap(10)
	h.Clear()

	h.Insert(4, 10, 4)
	h.DeleteMin()

	if !h.WasInserted(4) {
		t.Error("WasInserted(4) = false, want true (should persist after DeleteMin until Clear)")
	}
}

func TestQueryHeapClearResetsWasInserted(t *testing.T) {
	h := NewQueryHeap(10)
	h.Clear()
	h.Insert(4, 10, 4)

	h.Clear()
	if h.WasInserted(4) {
		t.Error("WasInserted(4) = true after Clear, want false")
	}
	if !h.Empty() {
		t.Error("heap should be empty right after Clear")
	}
}

func TestQueryHeapGetSetParent(t *testing.T) {
	h := NewQueryHeap(10)
	h.Clear()

	h.Insert(2, 20, 1)
	if got := h.GetParent(2); got != 1 {
		t.Errorf("GetParent(2) = %d, want 1", got)
	}
	h.SetParent(2, 7)
	if got := h.GetParent(2); got != 7 {
		t.Errorf("GetParent(2) = %d after SetParent, want 7", got)
	}
}
