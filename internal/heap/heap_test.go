package heap

import (
	"testing"

	"tadpole/internal/value"
)

// rootSet is a Roots implementation over a fixed list of values.
type rootSet struct {
	values []value.Value
}

func (r *rootSet) MarkRoots(h *Heap) {
	for _, v := range r.values {
		h.MarkValue(v)
	}
}

func newRootedHeap() (*Heap, *rootSet) {
	h := New()
	h.SetThreshold(0)
	roots := &rootSet{}
	h.AddRoots(roots)
	return h, roots
}

func TestAllocAndGet(t *testing.T) {
	h, _ := newRootedHeap()
	r := h.Alloc(&value.Pair{First: value.Number(1), Second: value.Nil()})
	if r.IsNil() {
		t.Fatal("expected a non-null reference")
	}
	if got := h.Pair(r).First.AsNumber(); got != 1 {
		t.Fatalf("expected first 1, got %v", got)
	}
	if h.Live() != 1 || h.Totals().Allocated != 1 {
		t.Fatalf("expected 1 live / 1 allocated, got %d / %d", h.Live(), h.Totals().Allocated)
	}
}

func TestSweepFreesUnreachable(t *testing.T) {
	h, roots := newRootedHeap()
	kept := h.Alloc(&value.Pair{})
	lost := h.Alloc(&value.Pair{})
	roots.values = []value.Value{value.Obj(kept)}

	stats := h.Collect()
	if stats.Freed != 1 || stats.Live != 1 {
		t.Fatalf("expected 1 freed / 1 live, got %+v", stats)
	}
	if !h.Contains(kept) || h.Contains(lost) {
		t.Fatal("expected only the rooted pair to survive")
	}
	if h.Totals().Collections != 1 || h.Totals().Freed != 1 {
		t.Fatalf("unexpected totals %+v", h.Totals())
	}
}

func TestTraceFollowsReferences(t *testing.T) {
	h, roots := newRootedHeap()
	str := h.Intern("inner")
	fn := h.Alloc(&value.Function{Name: "f", Constants: []value.Value{value.Obj(str)}})
	closed := h.Alloc(value.NewClosedUpvalue(value.Number(3)))
	cl := h.Alloc(&value.Closure{Fn: fn, Upvalues: []value.Ref{closed}})
	p := h.Alloc(&value.Pair{First: value.Obj(cl), Second: value.Nil()})
	roots.values = []value.Value{value.Obj(p)}

	if stats := h.Collect(); stats.Freed != 0 {
		t.Fatalf("expected nothing freed, got %d", stats.Freed)
	}
	for _, r := range []value.Ref{str, fn, closed, cl, p} {
		if !h.Contains(r) {
			t.Fatalf("expected %s to survive", r)
		}
	}
}

func TestCycleIsCollected(t *testing.T) {
	h, _ := newRootedHeap()
	a := h.Alloc(&value.Pair{})
	b := h.Alloc(&value.Pair{Second: value.Obj(a)})
	h.Pair(a).Second = value.Obj(b)

	if stats := h.Collect(); stats.Freed != 2 || stats.Live != 0 {
		t.Fatalf("expected the cycle to be freed, got %+v", stats)
	}
}

func TestStaleReferencePanics(t *testing.T) {
	h, _ := newRootedHeap()
	r := h.Alloc(&value.Pair{})
	h.Collect()
	// reuse the slot so a generation check is required to detect staleness
	fresh := h.Alloc(&value.Pair{})
	if fresh.Slot() != r.Slot() {
		t.Fatalf("expected slot reuse, got %d and %d", fresh.Slot(), r.Slot())
	}
	if h.Contains(r) {
		t.Fatal("expected stale reference to be rejected")
	}

	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on stale reference")
		}
	}()
	h.Get(r)
}

func TestThresholdAdjustsAfterCollection(t *testing.T) {
	h := New()
	h.SetThreshold(4)
	h.SetMinThreshold(2)
	h.SetGrowth(2)
	roots := &rootSet{}
	h.AddRoots(roots)

	for i := 0; i < 3; i++ {
		r := h.Alloc(&value.Pair{})
		roots.values = append(roots.values, value.Obj(r))
	}
	h.Alloc(&value.Pair{}) // garbage, live reaches 4
	h.Alloc(&value.Pair{}) // triggers a collection first

	if h.Totals().Collections != 1 {
		t.Fatalf("expected 1 collection, got %d", h.Totals().Collections)
	}
	// 3 rooted objects survive, so the next threshold is 3 * 2
	if h.Threshold() != 6 {
		t.Fatalf("expected threshold 6, got %d", h.Threshold())
	}
}

func TestStressCollectsOnEveryAlloc(t *testing.T) {
	h, _ := newRootedHeap()
	h.SetStress(true)
	for i := 0; i < 5; i++ {
		h.Alloc(&value.Pair{})
	}
	if h.Totals().Collections != 5 {
		t.Fatalf("expected 5 collections, got %d", h.Totals().Collections)
	}
	if h.Live() != 1 {
		t.Fatalf("expected only the newest object live, got %d", h.Live())
	}
}

func TestMarkingNullIsNoop(t *testing.T) {
	h, roots := newRootedHeap()
	roots.values = []value.Value{value.Nil(), value.Number(1), value.Obj(value.Ref{})}
	if stats := h.Collect(); stats.Freed != 0 || stats.Live != 0 {
		t.Fatalf("unexpected stats %+v", stats)
	}
}

func TestRemoveRoots(t *testing.T) {
	h, roots := newRootedHeap()
	r := h.Alloc(&value.Pair{})
	roots.values = []value.Value{value.Obj(r)}
	h.RemoveRoots(roots)
	h.Collect()
	if h.Contains(r) {
		t.Fatal("expected object to be freed once its root source is removed")
	}
}

func TestStringify(t *testing.T) {
	h, _ := newRootedHeap()
	a := h.Alloc(&value.Pair{First: value.Number(1)})
	h.Pair(a).Second = value.Obj(a)
	tests := []struct {
		v    value.Value
		want string
	}{
		{value.Nil(), "nil"},
		{value.Bool(true), "true"},
		{value.Number(2.5), "2.5"},
		{value.Number(-0), "0"},
		{value.Obj(h.Intern("hi")), "hi"},
		{value.Obj(a), "(1 . (...))"},
		{value.Obj(h.Alloc(&value.Native{Name: "clock"})), "<native clock>"},
	}
	for _, tt := range tests {
		if got := h.Stringify(tt.v); got != tt.want {
			t.Fatalf("expected %q, got %q", tt.want, got)
		}
	}
}

// foreign satisfies value.Object through the embedded String but is not one
// of the variants the collector knows how to trace.
type foreign struct {
	*value.String
}

func TestBlackenRejectsUnknownVariant(t *testing.T) {
	h, roots := newRootedHeap()
	r := h.Alloc(&foreign{String: &value.String{Value: "x"}})
	roots.values = []value.Value{value.Obj(r)}

	defer func() {
		if recover() == nil {
			t.Fatal("expected panic when tracing an unknown object variant")
		}
	}()
	h.Collect()
}
