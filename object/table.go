package object

import "lumen/value"

// Table is a generic open-addressed hash table keyed by *String pointer
// identity -- sound only because every *String in the VM is produced by an
// Interner, so equal content always shares one instance. It backs the VM's
// global-variable namespace.
type Table struct {
	entries []tableEntry
	count   int
}

type tableEntry struct {
	key   *String
	value value.Value
}

const tableInitialCapacity = 8

// NewTable returns an empty table.
func NewTable() *Table {
	return &Table{entries: make([]tableEntry, tableInitialCapacity)}
}

// Get looks up key, reporting whether it was present.
func (t *Table) Get(key *String) (value.Value, bool) {
	if t.count == 0 {
		return value.Nil, false
	}
	idx := t.findSlot(key)
	if t.entries[idx].key == nil {
		return value.Nil, false
	}
	return t.entries[idx].value, true
}

// Set stores key/val, reporting whether this inserted a new key (as opposed
// to overwriting an existing one).
func (t *Table) Set(key *String, val value.Value) bool {
	if float64(t.count+1) > float64(len(t.entries))*0.75 {
		t.grow()
	}

	idx := t.findSlot(key)
	isNew := t.entries[idx].key == nil
	t.entries[idx] = tableEntry{key: key, value: val}
	if isNew {
		t.count++
	}
	return isNew
}

// Delete removes key, reporting whether it was present.
func (t *Table) Delete(key *String) bool {
	if t.count == 0 {
		return false
	}
	idx := t.findSlot(key)
	if t.entries[idx].key == nil {
		return false
	}
	// Tombstone a deleted slot distinctly from "array was shifted" bookkeeping
	// is unnecessary here since we rebuild on grow; a simple hole works as
	// long as probing keeps scanning past it, so replace with an explicit
	// rehash of the tail run instead of leaving a stale hole.
	t.entries[idx] = tableEntry{}
	t.count--
	t.rehashFrom((idx + 1) % len(t.entries))
	return true
}

// Has reports whether key is present.
func (t *Table) Has(key *String) bool {
	_, ok := t.Get(key)
	return ok
}

// Count returns the number of stored entries.
func (t *Table) Count() int { return t.count }

func (t *Table) findSlot(key *String) int {
	mask := len(t.entries) - 1
	idx := int(key.Hash) & mask
	for {
		entry := t.entries[idx]
		if entry.key == nil || entry.key == key {
			return idx
		}
		idx = (idx + 1) & mask
	}
}

func (t *Table) grow() {
	old := t.entries
	t.entries = make([]tableEntry, len(old)*2)
	t.count = 0
	for _, e := range old {
		if e.key == nil {
			continue
		}
		idx := t.findSlot(e.key)
		t.entries[idx] = e
		t.count++
	}
}

// rehashFrom re-inserts the contiguous run of entries starting at idx, so
// that deleting a slot never breaks probing for entries that landed past it.
func (t *Table) rehashFrom(idx int) {
	mask := len(t.entries) - 1
	for {
		e := t.entries[idx]
		if e.key == nil {
			return
		}
		t.entries[idx] = tableEntry{}
		t.count--
		reinsert := t.findSlot(e.key)
		t.entries[reinsert] = e
		t.count++
		idx = (idx + 1) & mask
	}
}
