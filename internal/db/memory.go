package db

import (
	"context"
	"sort"
	"sync"
)

// memoryBackend 进程内存储，用于测试和 memory 驱动
type memoryBackend struct {
	mu   sync.RWMutex
	data map[string]map[string][]byte
}

// NewMemoryStore 内存状态存储
func NewMemoryStore() StateStore {
	return &stateStore{b: &memoryBackend{data: make(map[string]map[string][]byte)}}
}

// NewMemoryStoreWith 预置原始键值，用于模拟旧版本数据
func NewMemoryStoreWith(seed map[string]map[string]string) StateStore {
	b := &memoryBackend{data: make(map[string]map[string][]byte)}
	for owner, kv := range seed {
		b.data[owner] = make(map[string][]byte, len(kv))
		for k, v := range kv {
			b.data[owner][k] = []byte(v)
		}
	}
	return &stateStore{b: b}
}

func (m *memoryBackend) get(_ context.Context, owner, key string) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[owner][key]
	if !ok {
		return nil, false, nil
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, true, nil
}

func (m *memoryBackend) put(_ context.Context, owner string, values map[string][]byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.data[owner] == nil {
		m.data[owner] = make(map[string][]byte)
	}
	for k, v := range values {
		cp := make([]byte, len(v))
		copy(cp, v)
		m.data[owner][k] = cp
	}
	return nil
}

func (m *memoryBackend) owners(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	owners := make([]string, 0, len(m.data))
	for owner := range m.data {
		owners = append(owners, owner)
	}
	sort.Strings(owners)
	return owners, nil
}
