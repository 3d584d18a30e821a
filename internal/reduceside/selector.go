package reduceside

import (
	"container/heap"
	"fmt"

	"github.com/scusemua/priter/common/types"
)

// heapIdxKey is the metadata key the selector's Heap uses to track each element's
// current slice index, mirroring the teacher's HeapElementMetadataKey usage pattern.
const heapIdxKey types.HeapElementMetadataKey = "reduceside.selector.idx"

// priorityElement adapts one candidate (key, iState, priority) triple to
// types.HeapElement so container/heap can order it. Compare returns a negative value
// when the receiver outranks other, which places higher-priority elements earlier in
// the min-heap that types.Heap wraps, giving pop-highest-first semantics.
type priorityElement struct {
	key      Key
	iState   []byte
	priority float64
	idx      int
}

func (e *priorityElement) Compare(other interface{}) float64 {
	o := other.(*priorityElement)
	return o.priority - e.priority
}

func (e *priorityElement) SetIdx(_ types.HeapElementMetadataKey, idx int) {
	e.idx = idx
}

func (e *priorityElement) GetIdx(_ types.HeapElementMetadataKey) int {
	return e.idx
}

func (e *priorityElement) SetMeta(types.HeapElementMetadataKey, interface{}) {}

func (e *priorityElement) String() string {
	return fmt.Sprintf("priorityElement{key=%s, priority=%f}", e.key, e.priority)
}

// selectTopN returns the n candidates with the highest priority, ties broken by key
// ascending (spec.md §4.3: "ties broken by key identity (ascending)").
func selectTopN(candidates []*priorityElement, n int) []*priorityElement {
	if n >= len(candidates) {
		sorted := make([]*priorityElement, len(candidates))
		copy(sorted, candidates)
		stableSortByPriorityThenKey(sorted)
		return sorted
	}

	h := types.NewHeap(heapIdxKey)
	for _, c := range candidates {
		heap.Push(h, c)
	}

	out := make([]*priorityElement, 0, n)
	for i := 0; i < n && h.Len() > 0; i++ {
		out = append(out, heap.Pop(h).(*priorityElement))
	}

	stableSortByPriorityThenKey(out)
	return out
}

func stableSortByPriorityThenKey(elems []*priorityElement) {
	for i := 1; i < len(elems); i++ {
		for j := i; j > 0 && less(elems[j], elems[j-1]); j-- {
			elems[j], elems[j-1] = elems[j-1], elems[j]
		}
	}
}

func less(a, b *priorityElement) bool {
	if a.priority != b.priority {
		return a.priority > b.priority
	}
	return a.key < b.key
}
