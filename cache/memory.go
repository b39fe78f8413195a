package cache

import "sync"

var _ Local = (*Memory)(nil)

// Memory is an in-process Local implementation.
type Memory struct {
	lock    sync.RWMutex
	entries map[string]string
}

func NewMemory() *Memory {
	return &Memory{entries: make(map[string]string)}
}

func (m *Memory) Get(key string) (string, bool) {
	m.lock.RLock()
	defer m.lock.RUnlock()

	value, ok := m.entries[key]
	return value, ok
}

func (m *Memory) Set(key, value string) error {
	m.lock.Lock()
	defer m.lock.Unlock()

	m.entries[key] = value
	return nil
}

func (m *Memory) Delete(key string) error {
	m.lock.Lock()
	defer m.lock.Unlock()

	delete(m.entries, key)
	return nil
}
