package object

import (
	"strings"

	"lumen/value"
)

// List is a dynamically growable array of Values, growing 0 -> 8 -> 2x the
// way the reference design's dynamic array does.
type List struct {
	Header
	items []value.Value
}

// Len returns the number of elements.
func (l *List) Len() int { return len(l.items) }

// Get returns the element at index, and whether index was in bounds.
func (l *List) Get(index int) (value.Value, bool) {
	if index < 0 || index >= len(l.items) {
		return value.Nil, false
	}
	return l.items[index], true
}

// Set overwrites the element at index, reporting whether index was valid.
func (l *List) Set(index int, v value.Value) bool {
	if index < 0 || index >= len(l.items) {
		return false
	}
	l.items[index] = v
	return true
}

// Append grows the list by one element, doubling capacity (starting at 8)
// whenever the backing array is full.
func (l *List) Append(v value.Value) {
	if len(l.items) == cap(l.items) {
		newCap := 8
		if cap(l.items) > 0 {
			newCap = cap(l.items) * 2
		}
		grown := make([]value.Value, len(l.items), newCap)
		copy(grown, l.items)
		l.items = grown
	}
	l.items = append(l.items, v)
}

// Delete removes the element at index, shifting subsequent elements down,
// and reports whether index was valid.
func (l *List) Delete(index int) bool {
	if index < 0 || index >= len(l.items) {
		return false
	}
	l.items = append(l.items[:index], l.items[index+1:]...)
	return true
}

func (l *List) String() string {
	parts := make([]string, len(l.items))
	for i, v := range l.items {
		parts[i] = v.String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

func (l *List) Inspect() string { return l.String() }
