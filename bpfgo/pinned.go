package bpfgo

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/cilium/ebpf"
)

// DefaultPinDir is where the scheduler pins its maps.
const DefaultPinDir = "/sys/fs/bpf/xdp_qos"

// PinnedOpener opens maps pinned on bpffs under Dir. Maps are opened read-only.
type PinnedOpener struct {
	Dir string
}

func (o PinnedOpener) Open(name string) (Table, error) {
	if fi, err := os.Stat(o.Dir); err != nil || !fi.IsDir() {
		return nil, fmt.Errorf("%w: %s: pin directory %s not found (is the scheduler loaded?)", ErrUnavailable, name, o.Dir)
	}

	path := filepath.Join(o.Dir, name)
	m, err := ebpf.LoadPinnedMap(path, &ebpf.LoadPinOptions{ReadOnly: true})
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrUnavailable, path, err)
	}
	return &pinnedTable{name: name, m: m}, nil
}

type pinnedTable struct {
	name string
	m    *ebpf.Map
}

func (t *pinnedTable) Name() string { return t.name }

// Lookup returns the full value buffer. For per-CPU maps that is one aligned
// slot per possible CPU.
func (t *pinnedTable) Lookup(key []byte) ([]byte, error) {
	val, err := t.m.LookupBytes(key)
	if errors.Is(err, ebpf.ErrKeyNotExist) || (err == nil && val == nil) {
		return nil, ErrKeyAbsent
	}
	if err != nil {
		return nil, fmt.Errorf("lookup %s: %w", t.name, err)
	}
	return val, nil
}

func (t *pinnedTable) FirstKey() ([]byte, error) {
	k, err := t.m.NextKeyBytes(nil)
	if err != nil {
		return nil, fmt.Errorf("first key %s: %w", t.name, err)
	}
	return k, nil
}

func (t *pinnedTable) NextKey(key []byte) ([]byte, error) {
	k, err := t.m.NextKeyBytes(key)
	if err != nil {
		return nil, fmt.Errorf("next key %s: %w", t.name, err)
	}
	return k, nil
}

func (t *pinnedTable) Close() error {
	return t.m.Close()
}
