package cache

import (
	"context"
	"sync"
	"time"
)

type memoryItem struct {
	value     []byte
	expiresAt time.Time
}

// Memory is an in-process Cache. Expired items are dropped lazily on read
// and in bulk whenever a write finds the map has doubled since the last
// sweep.
type Memory struct {
	mu        sync.Mutex
	items     map[string]memoryItem
	opts      Options
	now       func() time.Time
	lastSweep int
}

// NewMemory creates an in-memory cache.
func NewMemory(opts Options) *Memory {
	return &Memory{
		items: make(map[string]memoryItem),
		opts:  opts.withDefaults(),
		now:   time.Now,
	}
}

// Get implements Cache.
func (m *Memory) Get(_ context.Context, key string) ([]byte, error) {
	k := m.opts.key(key)

	m.mu.Lock()
	defer m.mu.Unlock()

	item, ok := m.items[k]
	if !ok {
		return nil, ErrMiss
	}
	if !m.now().Before(item.expiresAt) {
		delete(m.items, k)
		return nil, ErrMiss
	}
	return append([]byte(nil), item.value...), nil
}

// Set implements Cache.
func (m *Memory) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = m.opts.DefaultTTL
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.items[m.opts.key(key)] = memoryItem{
		value:     append([]byte(nil), value...),
		expiresAt: m.now().Add(ttl),
	}
	if len(m.items) > 2*m.lastSweep+64 {
		m.sweepLocked()
	}
	return nil
}

// Delete implements Cache.
func (m *Memory) Delete(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, key := range keys {
		delete(m.items, m.opts.key(key))
	}
	return nil
}

// Len returns the number of stored items, expired or not.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items)
}

// Close implements Cache.
func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items = make(map[string]memoryItem)
	return nil
}

func (m *Memory) sweepLocked() {
	now := m.now()
	for k, item := range m.items {
		if !now.Before(item.expiresAt) {
			delete(m.items, k)
		}
	}
	m.lastSweep = len(m.items)
}
