// Package types holds small interfaces and value types shared by the reduce-side priority
// selector, the BufferExchange transport, and the error surface exposed to callers.
package types

// Comparable is implemented by anything the priority selector's Heap can order. Compare
// returns negative, zero, or positive depending on whether the receiver ranks ahead of,
// level with, or behind the argument; Heap pops the element that ranks furthest ahead
// first.
type Comparable interface {
	Compare(interface{}) float64
}

// HeapElement is a Comparable that also knows its own position in the Heap, so the Heap
// can maintain an O(1) lookup from key to heap index after arbitrary Swaps.
type HeapElement interface {
	Comparable

	SetIdx(HeapElementMetadataKey, int)

	GetIdx(HeapElementMetadataKey) int

	String() string

	SetMeta(HeapElementMetadataKey, interface{})
}

type HeapElementMetadataKey string

func (k HeapElementMetadataKey) String() string {
	return string(k)
}

// Heap is a container/heap.Interface implementation over HeapElement, used by the
// reduce-side priority selector to pull the highest-priority keys off of iState each
// round without a full scan.
type Heap struct {
	Elements    []HeapElement
	MetadataKey HeapElementMetadataKey
}

func NewHeap(metadataKey HeapElementMetadataKey) *Heap {
	return &Heap{
		Elements:    make([]HeapElement, 0),
		MetadataKey: metadataKey,
	}
}

func (h *Heap) Len() int {
	return len(h.Elements)
}

func (h *Heap) Less(i, j int) bool {
	return h.Elements[i].Compare(h.Elements[j]) < 0
}

func (h *Heap) Swap(i, j int) {
	h.Elements[i].SetIdx(h.MetadataKey, j)
	h.Elements[j].SetIdx(h.MetadataKey, i)

	h.Elements[i].SetMeta(h.MetadataKey, int32(j))
	h.Elements[j].SetMeta(h.MetadataKey, int32(i))

	h.Elements[i], h.Elements[j] = h.Elements[j], h.Elements[i]
}

func (h *Heap) Push(x interface{}) {
	x.(HeapElement).SetIdx(h.MetadataKey, len(h.Elements))
	x.(HeapElement).SetMeta(h.MetadataKey, int32(len(h.Elements)))
	h.Elements = append(h.Elements, x.(HeapElement))
}

func (h *Heap) Pop() interface{} {
	old := h.Elements
	n := len(old)
	ret := old[n-1]
	old[n-1] = nil // avoid memory leak
	h.Elements = old[0 : n-1]

	return ret
}

// Peek returns, without removing, the highest-priority element. It returns nil if the
// heap is empty.
func (h *Heap) Peek() HeapElement {
	if len(h.Elements) == 0 {
		return nil
	}
	return h.Elements[0]
}
