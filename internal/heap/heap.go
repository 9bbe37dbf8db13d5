// Package heap owns every script object. Objects live in an arena of slots
// addressed by generational value.Ref handles; a stop-the-world
// mark-and-sweep collector reclaims slots that no registered root reaches.
package heap

import (
	"fmt"

	"tadpole/internal/value"
)

const (
	DefaultThreshold    = 1024
	DefaultMinThreshold = 1024
	DefaultGrowth       = 2.0
)

// Roots is implemented by anything holding references the collector must
// treat as live: the VM and, while it runs, the compiler.
type Roots interface {
	MarkRoots(h *Heap)
}

type slot struct {
	obj    value.Object
	gen    uint32
	marked bool
}

type Heap struct {
	slots []slot
	free  []int
	live  int

	strings map[string]value.Ref
	gray    []value.Ref
	roots   []Roots

	threshold    int
	minThreshold int
	growth       float64
	stress       bool

	totals Totals
}

// Totals are cumulative counters over the heap's lifetime.
type Totals struct {
	Allocated   int
	Freed       int
	Collections int
}

func New() *Heap {
	return &Heap{
		strings:      map[string]value.Ref{},
		threshold:    DefaultThreshold,
		minThreshold: DefaultMinThreshold,
		growth:       DefaultGrowth,
	}
}

// SetThreshold sets the live-object count that triggers the next
// collection. Zero disables automatic collection.
func (h *Heap) SetThreshold(n int) {
	if n < 0 {
		n = 0
	}
	h.threshold = n
}

func (h *Heap) SetMinThreshold(n int) {
	if n < 0 {
		n = 0
	}
	h.minThreshold = n
}

func (h *Heap) SetGrowth(f float64) {
	if f < 1 {
		f = 1
	}
	h.growth = f
}

// SetStress makes every allocation collect first.
func (h *Heap) SetStress(on bool) { h.stress = on }

func (h *Heap) Threshold() int { return h.threshold }
func (h *Heap) Live() int      { return h.live }
func (h *Heap) Totals() Totals { return h.totals }

func (h *Heap) AddRoots(r Roots) {
	h.roots = append(h.roots, r)
}

func (h *Heap) RemoveRoots(r Roots) {
	for i := len(h.roots) - 1; i >= 0; i-- {
		if h.roots[i] == r {
			h.roots = append(h.roots[:i], h.roots[i+1:]...)
			return
		}
	}
}

// Alloc registers obj and returns its handle. When the live count has
// reached the threshold a collection runs first, so obj itself can never be
// reclaimed by the cycle its allocation triggers.
func (h *Heap) Alloc(obj value.Object) value.Ref {
	if h.stress || (h.threshold > 0 && h.live >= h.threshold) {
		h.Collect()
	}

	var idx int
	if n := len(h.free); n > 0 {
		idx = h.free[n-1]
		h.free = h.free[:n-1]
	} else {
		h.slots = append(h.slots, slot{})
		idx = len(h.slots) - 1
	}
	s := &h.slots[idx]
	s.obj = obj
	s.marked = false
	h.live++
	h.totals.Allocated++
	return value.NewRef(idx, s.gen)
}

// Contains reports whether r still names a live object.
func (h *Heap) Contains(r value.Ref) bool {
	if r.IsNil() {
		return false
	}
	i := r.Slot()
	if i >= len(h.slots) {
		return false
	}
	s := h.slots[i]
	return s.obj != nil && s.gen == r.Gen()
}

// Get dereferences r. A stale or null handle is a VM bug, not a script
// error, so it panics.
func (h *Heap) Get(r value.Ref) value.Object {
	if !h.Contains(r) {
		panic(fmt.Sprintf("heap: stale reference %s", r))
	}
	return h.slots[r.Slot()].obj
}

// Intern returns the unique String object holding s, allocating it on
// first use.
func (h *Heap) Intern(s string) value.Ref {
	if r, ok := h.strings[s]; ok {
		return r
	}
	r := h.Alloc(&value.String{Value: s})
	h.strings[s] = r
	return r
}

// InternedCount is the number of entries in the interning table.
func (h *Heap) InternedCount() int { return len(h.strings) }

// Release frees every object regardless of reachability. The heap must not
// be used afterwards.
func (h *Heap) Release() {
	for i := range h.slots {
		h.slots[i] = slot{}
	}
	h.slots = nil
	h.free = nil
	h.live = 0
	h.strings = map[string]value.Ref{}
	h.gray = nil
	h.roots = nil
}

func (h *Heap) Str(r value.Ref) *value.String {
	return h.Get(r).(*value.String)
}

func (h *Heap) Pair(r value.Ref) *value.Pair {
	return h.Get(r).(*value.Pair)
}

func (h *Heap) Function(r value.Ref) *value.Function {
	return h.Get(r).(*value.Function)
}

func (h *Heap) Closure(r value.Ref) *value.Closure {
	return h.Get(r).(*value.Closure)
}

func (h *Heap) Upvalue(r value.Ref) *value.Upvalue {
	return h.Get(r).(*value.Upvalue)
}

func (h *Heap) Native(r value.Ref) *value.Native {
	return h.Get(r).(*value.Native)
}

// KindOf returns the variant of the object v refers to; ok is false for
// non-object values.
func (h *Heap) KindOf(v value.Value) (value.ObjKind, bool) {
	if !v.IsObject() {
		return 0, false
	}
	return h.Get(v.AsRef()).Kind(), true
}

// IsKind reports whether v is an object of kind k.
func (h *Heap) IsKind(v value.Value, k value.ObjKind) bool {
	got, ok := h.KindOf(v)
	return ok && got == k
}

// TypeName is the name runtime errors use for v's type.
func (h *Heap) TypeName(v value.Value) string {
	if k, ok := h.KindOf(v); ok {
		if k == value.ObjClosure || k == value.ObjNative {
			return "function"
		}
		return k.String()
	}
	return v.Kind().String()
}

// Stringify renders v for print. Cyclic pairs print their back edges as
// "(...)".
func (h *Heap) Stringify(v value.Value) string {
	return h.stringify(v, nil)
}

func (h *Heap) stringify(v value.Value, seen map[value.Ref]bool) string {
	switch v.Kind() {
	case value.KindNil:
		return "nil"
	case value.KindBool:
		if v.AsBool() {
			return "true"
		}
		return "false"
	case value.KindNumber:
		return value.FormatNumber(v.AsNumber())
	}

	switch o := h.Get(v.AsRef()).(type) {
	case *value.String:
		return o.Value
	case *value.Pair:
		if seen[v.AsRef()] {
			return "(...)"
		}
		if seen == nil {
			seen = map[value.Ref]bool{}
		}
		seen[v.AsRef()] = true
		out := "(" + h.stringify(o.First, seen) + " . " + h.stringify(o.Second, seen) + ")"
		delete(seen, v.AsRef())
		return out
	case *value.Function:
		return "<fn " + o.DisplayName() + ">"
	case *value.Closure:
		return "<fn " + h.Function(o.Fn).DisplayName() + ">"
	case *value.Upvalue:
		return "<upvalue>"
	case *value.Native:
		return "<native " + o.Name + ">"
	default:
		return "<object>"
	}
}
