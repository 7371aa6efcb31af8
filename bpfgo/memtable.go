package bpfgo

import (
	"bytes"
	"fmt"
	"slices"
	"sync"
)

// MemTable is an in-memory Table. It iterates in insertion order and, like a
// kernel hash map, restarts from the first key when asked for the successor
// of a key that no longer exists.
type MemTable struct {
	name string

	mu      sync.Mutex
	keys    [][]byte
	vals    map[string][]byte
	closed  bool
	closeN  int
	lookups int

	// BeforeLookup runs ahead of every Lookup without the table lock held, so
	// it may mutate the table to mimic a concurrent writer.
	BeforeLookup func(t *MemTable, key []byte)
}

func NewMemTable(name string) *MemTable {
	return &MemTable{name: name, vals: make(map[string][]byte)}
}

func (t *MemTable) Name() string { return t.name }

// Put inserts or replaces a value. New keys go to the end of the order.
func (t *MemTable) Put(key, val []byte) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.vals[string(key)]; !ok {
		t.keys = append(t.keys, bytes.Clone(key))
	}
	t.vals[string(key)] = bytes.Clone(val)
}

func (t *MemTable) Delete(key []byte) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.vals[string(key)]; !ok {
		return
	}
	delete(t.vals, string(key))
	t.keys = slices.DeleteFunc(t.keys, func(k []byte) bool { return bytes.Equal(k, key) })
}

func (t *MemTable) Lookup(key []byte) ([]byte, error) {
	if hook := t.BeforeLookup; hook != nil {
		hook(t, key)
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil, fmt.Errorf("lookup %s: table closed", t.name)
	}
	t.lookups++
	v, ok := t.vals[string(key)]
	if !ok {
		return nil, ErrKeyAbsent
	}
	return bytes.Clone(v), nil
}

func (t *MemTable) FirstKey() ([]byte, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil, fmt.Errorf("first key %s: table closed", t.name)
	}
	if len(t.keys) == 0 {
		return nil, nil
	}
	return bytes.Clone(t.keys[0]), nil
}

func (t *MemTable) NextKey(key []byte) ([]byte, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil, fmt.Errorf("next key %s: table closed", t.name)
	}
	i := slices.IndexFunc(t.keys, func(k []byte) bool { return bytes.Equal(k, key) })
	switch {
	case i < 0 && len(t.keys) > 0:
		return bytes.Clone(t.keys[0]), nil
	case i < 0 || i+1 >= len(t.keys):
		return nil, nil
	}
	return bytes.Clone(t.keys[i+1]), nil
}

func (t *MemTable) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	t.closeN++
	return nil
}

// Closed reports whether Close was called at least once.
func (t *MemTable) Closed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closed
}

// Lookups counts successful and failed lookups alike.
func (t *MemTable) Lookups() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lookups
}

// Len is the number of live entries.
func (t *MemTable) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.keys)
}

// MemOpener serves MemTables by name. Each Open reopens the table.
type MemOpener struct {
	Tables map[string]*MemTable
}

func (o *MemOpener) Open(name string) (Table, error) {
	t, ok := o.Tables[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnavailable, name)
	}
	t.mu.Lock()
	t.closed = false
	t.mu.Unlock()
	return t, nil
}
