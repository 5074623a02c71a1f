package docstore

import (
	"context"
	"sync"
)

// Memory is an in-process document store used in dev mode and tests.
type Memory struct {
	mu   sync.RWMutex
	docs map[string][]byte
}

func NewMemory() *Memory {
	return &Memory{docs: make(map[string][]byte)}
}

func (m *Memory) ReadCollection(_ context.Context, accountID string, collection string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	payload, ok := m.docs[accountID+"/"+collection]
	if !ok {
		return nil, ErrNotFound
	}
	copied := make([]byte, len(payload))
	copy(copied, payload)
	return copied, nil
}

func (m *Memory) WriteCollection(_ context.Context, accountID string, collection string, payload []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	copied := make([]byte, len(payload))
	copy(copied, payload)
	m.docs[accountID+"/"+collection] = copied
	return nil
}
