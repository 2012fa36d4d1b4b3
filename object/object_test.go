package object

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"lumen/value"
)

func TestInternerReturnsCanonicalInstance(t *testing.T) {
	heap := NewHeap()
	in := NewInterner(heap)

	a := in.CopyString("hello")
	b := in.CopyString("hello")
	assert.Same(t, a, b, "equal content must intern to the same instance")

	c := in.CopyString("world")
	assert.NotSame(t, a, c)
}

func TestInternerTakeStringMatchesCopyString(t *testing.T) {
	heap := NewHeap()
	in := NewInterner(heap)

	a := in.CopyString("foo")
	b := in.TakeString("foo")
	assert.Same(t, a, b)
}

func TestInternerGrowsWithoutLosingEntries(t *testing.T) {
	heap := NewHeap()
	in := NewInterner(heap)

	seen := make(map[string]*String)
	for i := 0; i < internInitialCapacity*4; i++ {
		s := in.CopyString(string(rune('a' + i%26)))
		seen[s.Chars] = s
	}

	for chars, want := range seen {
		got := in.CopyString(chars)
		assert.Same(t, want, got, "interner must keep returning the same instance after growing")
	}
}

func TestTableSetGetDelete(t *testing.T) {
	heap := NewHeap()
	in := NewInterner(heap)
	table := NewTable()

	key := in.CopyString("x")
	isNew := table.Set(key, value.Number(1))
	assert.True(t, isNew)

	got, ok := table.Get(key)
	assert.True(t, ok)
	assert.Equal(t, value.Number(1), got)

	isNew = table.Set(key, value.Number(2))
	assert.False(t, isNew, "overwriting an existing key is not a new insertion")
	got, _ = table.Get(key)
	assert.Equal(t, value.Number(2), got)

	assert.True(t, table.Delete(key))
	_, ok = table.Get(key)
	assert.False(t, ok)
	assert.False(t, table.Delete(key), "deleting twice reports the key is gone")
}

func TestTableDeleteDoesNotBreakProbingForLaterEntries(t *testing.T) {
	heap := NewHeap()
	in := NewInterner(heap)
	table := NewTable()

	keys := make([]*String, 0, 20)
	for i := 0; i < 20; i++ {
		k := in.CopyString(string(rune('a' + i)))
		keys = append(keys, k)
		table.Set(k, value.Number(float64(i)))
	}

	// Delete a handful of keys scattered through the table and confirm every
	// surviving key still resolves -- this exercises rehashFrom's repair of
	// the probe chain after a hole opens up.
	for i := 0; i < len(keys); i += 3 {
		table.Delete(keys[i])
	}

	for i, k := range keys {
		got, ok := table.Get(k)
		if i%3 == 0 {
			assert.False(t, ok, "expected key %d to be deleted", i)
			continue
		}
		assert.True(t, ok, "expected key %d to survive", i)
		assert.Equal(t, value.Number(float64(i)), got)
	}
}

func TestTableGrowPreservesCount(t *testing.T) {
	heap := NewHeap()
	in := NewInterner(heap)
	table := NewTable()

	for i := 0; i < tableInitialCapacity*3; i++ {
		table.Set(in.CopyString(string(rune('A'+i%26))+string(rune('0'+i%10))), value.Number(float64(i)))
	}

	assert.Equal(t, tableInitialCapacity*3, table.Count())
}

func TestListAppendGetSetDelete(t *testing.T) {
	heap := NewHeap()
	list := heap.NewList()

	for i := 0; i < 10; i++ {
		list.Append(value.Number(float64(i)))
	}
	assert.Equal(t, 10, list.Len())

	v, ok := list.Get(3)
	assert.True(t, ok)
	assert.Equal(t, value.Number(3), v)

	assert.True(t, list.Set(3, value.Number(99)))
	v, _ = list.Get(3)
	assert.Equal(t, value.Number(99), v)

	_, ok = list.Get(10)
	assert.False(t, ok, "out-of-bounds get must fail")
	assert.False(t, list.Set(-1, value.Number(0)), "out-of-bounds set must fail")

	assert.True(t, list.Delete(0))
	assert.Equal(t, 9, list.Len())
	v, _ = list.Get(0)
	assert.Equal(t, value.Number(1), v, "delete must shift subsequent elements down")
}

func TestHeapTracksEveryAllocation(t *testing.T) {
	heap := NewHeap()
	in := NewInterner(heap)

	in.CopyString("a")
	heap.NewList()
	heap.NewFunction(nil, 0)

	assert.Equal(t, 3, heap.Count())

	seen := 0
	heap.Walk(func(value.Object) { seen++ })
	assert.Equal(t, 3, seen)
}
