package vm

import (
	"sort"

	"tadpole/internal/heap"
	"tadpole/internal/value"
)

// MarkRoots marks everything the interpreter can still reach: the live
// part of the operand stack, every frame's closure, globals and the open
// upvalues.
func (m *VM) MarkRoots(h *heap.Heap) {
	for i := 0; i < m.sp; i++ {
		h.MarkValue(m.stack[i])
	}
	for i := 0; i < m.frameCount; i++ {
		h.MarkRef(m.frames[i].closure)
	}
	for _, v := range m.globals {
		h.MarkValue(v)
	}
	for _, u := range m.openUpvalues {
		h.MarkRef(u)
	}
}

// Collect forces a full collection.
func (m *VM) Collect() heap.Stats {
	return m.heap.Collect()
}

// captureUpvalue returns the open upvalue for slot, creating it if no
// closure captured the slot yet. openUpvalues stays sorted by slot.
func (m *VM) captureUpvalue(slot int) value.Ref {
	i := sort.Search(len(m.openUpvalues), func(i int) bool {
		return m.heap.Upvalue(m.openUpvalues[i]).Slot() >= slot
	})
	if i < len(m.openUpvalues) && m.heap.Upvalue(m.openUpvalues[i]).Slot() == slot {
		return m.openUpvalues[i]
	}

	ref := m.heap.Alloc(value.NewOpenUpvalue(slot))
	m.openUpvalues = append(m.openUpvalues, value.Ref{})
	copy(m.openUpvalues[i+1:], m.openUpvalues[i:])
	m.openUpvalues[i] = ref
	return ref
}

// closeUpvalues closes every open upvalue at or above slot last.
func (m *VM) closeUpvalues(last int) {
	for n := len(m.openUpvalues); n > 0; n = len(m.openUpvalues) {
		uv := m.heap.Upvalue(m.openUpvalues[n-1])
		if uv.Slot() < last {
			return
		}
		uv.Close(m.stack[uv.Slot()])
		m.openUpvalues = m.openUpvalues[:n-1]
	}
}
