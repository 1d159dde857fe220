package kvstore

import (
	"bytes"
	"context"
	"sort"
	"sync"
)

var _ KVStore = (*MemKVStore)(nil)

// NewMemKVStore constructs a process-local kv store. It is used by tests
// and by daemons running without a persistent vault directory.
func NewMemKVStore() *MemKVStore {
	return &MemKVStore{
		data: map[string][]byte{},
	}
}

type MemKVStore struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func (m *MemKVStore) Get(_ context.Context, key Key) (Val, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	val, ok := m.data[string(key)]
	if !ok {
		return nil, ErrKeyNotFound
	}

	out := make([]byte, len(val))
	copy(out, val)
	return out, nil
}

func (m *MemKVStore) Has(_ context.Context, key Key) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, ok := m.data[string(key)]
	return ok, nil
}

func (m *MemKVStore) View(ctx context.Context, key Key, cb Callback) error {
	val, err := m.Get(ctx, key)
	if err != nil {
		return err
	}

	return cb(val)
}

func (m *MemKVStore) Put(_ context.Context, key Key, val Val) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored := make([]byte, len(val))
	copy(stored, val)
	m.data[string(key)] = stored
	return nil
}

func (m *MemKVStore) Del(_ context.Context, key Key) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.data, string(key))
	return nil
}

func (m *MemKVStore) Scan(_ context.Context, prefix Prefix) (Iter, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	keys := make([]string, 0, len(m.data))
	for k := range m.data {
		if len(prefix) == 0 || bytes.HasPrefix([]byte(k), prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	items := make([]memItem, 0, len(keys))
	for _, k := range keys {
		items = append(items, memItem{key: []byte(k), val: m.data[k]})
	}

	return &memIter{items: items, next: -1}, nil
}

func (m *MemKVStore) Run(context.Context) error { return nil }

func (m *MemKVStore) Close(context.Context) error { return nil }

type memItem struct {
	key []byte
	val []byte
}

var _ Iter = (*memIter)(nil)

type memIter struct {
	items []memItem
	next  int
}

func (mi *memIter) Next() bool {
	mi.next++
	return mi.next < len(mi.items)
}

func (mi *memIter) Key() Key {
	if mi.next < 0 || mi.next >= len(mi.items) {
		return nil
	}

	return mi.items[mi.next].key
}

func (mi *memIter) View(_ context.Context, cb Callback) error {
	if mi.next < 0 || mi.next >= len(mi.items) {
		return ErrIterItemNotValid
	}

	return cb(mi.items[mi.next].val)
}

func (mi *memIter) Close() {}
