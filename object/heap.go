package object

import "lumen/value"

// Heap owns every object allocated while a program runs, threading each one
// onto a singly linked list via Header.Next as it is created. Walk visits
// that list and Free drops it; the Go runtime does the actual reclamation,
// but the list itself is kept so the allocation lifecycle matches the
// reference design and a future tracing collector has something to sweep.
type Heap struct {
	head  Linkable
	count int
}

// NewHeap returns an empty heap.
func NewHeap() *Heap {
	return &Heap{}
}

func (h *Heap) track(o Linkable) {
	o.linkNext(h.head)
	h.head = o
	h.count++
}

// Count returns the number of objects currently tracked.
func (h *Heap) Count() int { return h.count }

// Walk calls fn once for every tracked object, in reverse allocation order
// (most recently allocated first).
func (h *Heap) Walk(fn func(value.Object)) {
	for o := h.head; o != nil; o = o.getNext() {
		fn(o)
	}
}

// Free drops the heap's references to every tracked object. Go's garbage
// collector reclaims the memory once nothing else holds a pointer to it.
func (h *Heap) Free() {
	h.head = nil
	h.count = 0
}

// NewFunction allocates a Function and tracks it on the heap.
func (h *Heap) NewFunction(name *String, arity int) *Function {
	f := &Function{Name: name, Arity: arity}
	f.Header.Type = TFunction
	h.track(f)
	return f
}

// NewClosure allocates a Closure wrapping fn, with room for upvalueCount
// captured upvalues.
func (h *Heap) NewClosure(fn *Function, upvalueCount int) *Closure {
	c := &Closure{Function: fn, Upvalues: make([]*Upvalue, upvalueCount)}
	c.Header.Type = TClosure
	h.track(c)
	return c
}

// NewUpvalue allocates an open Upvalue pointing at the given stack slot.
func (h *Heap) NewUpvalue(stackIndex int) *Upvalue {
	u := &Upvalue{Open: true, StackIndex: stackIndex}
	u.Header.Type = TUpvalue
	h.track(u)
	return u
}

// NewList allocates an empty List.
func (h *Heap) NewList() *List {
	l := &List{}
	l.Header.Type = TList
	h.track(l)
	return l
}

// NewNative allocates a Native wrapping fn.
func (h *Heap) NewNative(name string, arity int, fn NativeFn) *Native {
	n := &Native{Name: name, Arity: arity, Fn: fn}
	n.Header.Type = TNative
	h.track(n)
	return n
}
