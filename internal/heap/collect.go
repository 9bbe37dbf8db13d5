package heap

import (
	"fmt"

	"tadpole/internal/logging"
	"tadpole/internal/value"
)

// Stats describes one collection.
type Stats struct {
	Freed     int
	Live      int
	Threshold int
}

// Collect runs a full mark-and-sweep cycle. Hosts may call it directly;
// otherwise Alloc triggers it.
func (h *Heap) Collect() Stats {
	before := h.live

	for _, r := range h.roots {
		r.MarkRoots(h)
	}
	h.traceReferences()
	freed := h.sweep()

	if h.threshold > 0 {
		next := int(float64(h.live) * h.growth)
		if next < h.minThreshold {
			next = h.minThreshold
		}
		if next < 1 {
			next = 1
		}
		h.threshold = next
	}

	h.totals.Collections++
	h.totals.Freed += freed

	logging.Logger("gc").Debugf("collected %d of %d objects, %d live, next at %d",
		freed, before, h.live, h.threshold)

	return Stats{Freed: freed, Live: h.live, Threshold: h.threshold}
}

// MarkValue grays the object v refers to, if any.
func (h *Heap) MarkValue(v value.Value) {
	if v.IsObject() {
		h.MarkRef(v.AsRef())
	}
}

// MarkRef grays r. Null handles and already-marked objects are ignored.
func (h *Heap) MarkRef(r value.Ref) {
	if !h.Contains(r) {
		return
	}
	s := &h.slots[r.Slot()]
	if s.marked {
		return
	}
	s.marked = true
	h.gray = append(h.gray, r)
}

func (h *Heap) traceReferences() {
	for len(h.gray) > 0 {
		n := len(h.gray) - 1
		r := h.gray[n]
		h.gray = h.gray[:n]
		h.blacken(h.slots[r.Slot()].obj)
	}
}

// blacken marks everything obj references directly.
func (h *Heap) blacken(obj value.Object) {
	switch o := obj.(type) {
	case *value.String, *value.Native:
		// no outgoing references
	case *value.Pair:
		h.MarkValue(o.First)
		h.MarkValue(o.Second)
	case *value.Function:
		for _, c := range o.Constants {
			h.MarkValue(c)
		}
	case *value.Closure:
		h.MarkRef(o.Fn)
		for _, u := range o.Upvalues {
			h.MarkRef(u)
		}
	case *value.Upvalue:
		// an open upvalue's slot is already a stack root
		if !o.IsOpen() {
			h.MarkValue(o.Closed())
		}
	default:
		panic(fmt.Sprintf("heap: cannot blacken %T", obj))
	}
}

func (h *Heap) sweep() int {
	freed := 0
	for i := range h.slots {
		s := &h.slots[i]
		if s.obj == nil {
			continue
		}
		if s.marked {
			s.marked = false
			continue
		}
		if str, ok := s.obj.(*value.String); ok {
			if r, ok := h.strings[str.Value]; ok && r.Slot() == i {
				delete(h.strings, str.Value)
			}
		}
		s.obj = nil
		s.gen++
		h.free = append(h.free, i)
		h.live--
		freed++
	}
	return freed
}
