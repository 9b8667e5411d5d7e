package store

import (
	"context"
	"sync"

	"github.com/rushteam/hybridrec/core"
)

// MemoryStore 是内存实现的 KeyValueStore，用于测试/开发/单进程部署。
// 进程重启后数据丢失。
type MemoryStore struct {
	mu       sync.RWMutex
	data     map[string][]byte
	hashes   map[string]map[string][]byte
	counters map[string]int64
	closed   bool
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data:     make(map[string][]byte),
		hashes:   make(map[string]map[string][]byte),
		counters: make(map[string]int64),
	}
}

func (m *MemoryStore) Name() string { return BackendMemory }

func (m *MemoryStore) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, core.ErrStoreClosed
	}
	v, ok := m.data[key]
	if !ok {
		return nil, core.ErrStoreNotFound
	}
	return clone(v), nil
}

func (m *MemoryStore) Set(ctx context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return core.ErrStoreClosed
	}
	m.data[key] = clone(value)
	return nil
}

func (m *MemoryStore) HSet(ctx context.Context, key, field string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return core.ErrStoreClosed
	}
	h, ok := m.hashes[key]
	if !ok {
		h = make(map[string][]byte)
		m.hashes[key] = h
	}
	h[field] = clone(value)
	return nil
}

func (m *MemoryStore) HGetAll(ctx context.Context, key string) (map[string][]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, core.ErrStoreClosed
	}
	h := m.hashes[key]
	out := make(map[string][]byte, len(h))
	for f, v := range h {
		out[f] = clone(v)
	}
	return out, nil
}

func (m *MemoryStore) HLen(ctx context.Context, key string) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return 0, core.ErrStoreClosed
	}
	return int64(len(m.hashes[key])), nil
}

func (m *MemoryStore) Incr(ctx context.Context, key string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return 0, core.ErrStoreClosed
	}
	m.counters[key]++
	return m.counters[key], nil
}

func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func clone(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

var _ core.KeyValueStore = (*MemoryStore)(nil)
