package cache

import (
	"context"
	"sync"
	"time"

	"github.com/zenGate-Global/studio-scheduler/platform/go/clock"
)

// Memory is an in-process Cache guarded by a mutex. Expired entries are dropped lazily.
type Memory struct {
	mu    sync.Mutex
	clock clock.Clock
	items map[string]memoryItem
	tags  map[string]map[string]struct{}
}

type memoryItem struct {
	value     []byte
	expiresAt time.Time
	tags      []string
}

// NewMemory returns an empty in-memory cache. A nil clock uses the system clock.
func NewMemory(clk clock.Clock) *Memory {
	if clk == nil {
		clk = clock.NewSystem()
	}
	return &Memory{
		clock: clk,
		items: make(map[string]memoryItem),
		tags:  make(map[string]map[string]struct{}),
	}
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	item, ok := m.items[key]
	if !ok {
		return nil, ErrMiss
	}
	if !m.clock.Now().Before(item.expiresAt) {
		m.removeLocked(key, item)
		return nil, ErrMiss
	}
	out := make([]byte, len(item.value))
	copy(out, item.value)
	return out, nil
}

func (m *Memory) Set(_ context.Context, key string, value []byte, ttl time.Duration, tags ...string) error {
	if ttl <= 0 {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if old, ok := m.items[key]; ok {
		m.removeLocked(key, old)
	}

	stored := make([]byte, len(value))
	copy(stored, value)
	m.items[key] = memoryItem{value: stored, expiresAt: m.clock.Now().Add(ttl), tags: tags}
	for _, tag := range tags {
		keys, ok := m.tags[tag]
		if !ok {
			keys = make(map[string]struct{})
			m.tags[tag] = keys
		}
		keys[key] = struct{}{}
	}
	return nil
}

func (m *Memory) InvalidateTag(_ context.Context, tag string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for key := range m.tags[tag] {
		if item, ok := m.items[key]; ok {
			m.removeLocked(key, item)
		}
	}
	delete(m.tags, tag)
	return nil
}

// Len reports the number of stored entries, expired ones included.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items)
}

func (m *Memory) removeLocked(key string, item memoryItem) {
	delete(m.items, key)
	for _, tag := range item.tags {
		if keys, ok := m.tags[tag]; ok {
			delete(keys, key)
			if len(keys) == 0 {
				delete(m.tags, tag)
			}
		}
	}
}
