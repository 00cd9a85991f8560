package store

import (
	"context"
	"sync"

	cid "github.com/ipfs/go-cid"
)

// MemStore is an in-memory BlockStore, used for tests and for embedding
// WNFS-private inside a process that does its own persistence.
type MemStore struct {
	mu     sync.RWMutex
	blocks map[string][]byte
}

var _ BlockStore = (*MemStore)(nil)

// NewMemStore returns an empty in-memory block store.
func NewMemStore() *MemStore {
	return &MemStore{blocks: make(map[string][]byte)}
}

// PutBlock implements BlockStore.
func (m *MemStore) PutBlock(_ context.Context, data []byte, codec uint64) (cid.Cid, error) {
	c, err := sum(data, codec)
	if err != nil {
		return cid.Undef, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.blocks[c.KeyString()]; !exists {
		cp := append([]byte{}, data...)
		m.blocks[c.KeyString()] = cp
	}
	return c, nil
}

// GetBlock implements BlockStore.
func (m *MemStore) GetBlock(_ context.Context, c cid.Cid) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.blocks[c.KeyString()]
	if !ok {
		return nil, ErrNotFound
	}
	return data, nil
}

// Len reports how many distinct blocks are stored, useful for tests
// asserting that a failed/cancelled operation left no extra garbage
// beyond what was already committed.
func (m *MemStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.blocks)
}
