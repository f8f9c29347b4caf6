package cache

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"weather-server/confs"
	"weather-server/entities"
)

// Key identifies one cached public projection.
type Key struct {
	Kind entities.Kind
	ID   uint64
}

func (k Key) String() string {
	return fmt.Sprintf("public:%s:%d", k.Kind, k.ID)
}

type Stats struct {
	Driver  string `json:"driver"`
	Entries int    `json:"entries"`
	Hits    uint64 `json:"hits"`
	Misses  uint64 `json:"misses"`
	TTL     string `json:"ttl"`
}

// Store caches public projections of protected readings.
type Store interface {
	Get(ctx context.Context, key Key) (entities.PublicView, bool, error)
	Set(ctx context.Context, key Key, view entities.PublicView) error
	Delete(ctx context.Context, key Key) error
	Stats(ctx context.Context) (Stats, error)
}

// New builds the store selected by CACHE_DRIVER. "none" yields a nil Store.
func New(ctx context.Context, cfg confs.Config) (Store, error) {
	switch cfg.CacheDriver {
	case "none":
		return nil, nil
	case "redis":
		client, err := ConnectRedis(ctx, cfg.RedisURL)
		if err != nil {
			return nil, err
		}
		return NewRedisStore(client, cfg.CacheTTL), nil
	default:
		return NewMemoryStore(cfg.CacheTTL), nil
	}
}

type memoryEntry struct {
	view    entities.PublicView
	expires time.Time
}

// MemoryStore is a process-local Store with lazy expiry.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[Key]memoryEntry
	ttl     time.Duration
	now     func() time.Time

	hits   atomic.Uint64
	misses atomic.Uint64
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		entries: make(map[Key]memoryEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

func (m *MemoryStore) Get(_ context.Context, key Key) (entities.PublicView, bool, error) {
	m.mu.RLock()
	e, ok := m.entries[key]
	m.mu.RUnlock()

	if ok && m.expired(e) {
		m.mu.Lock()
		// re-check: a concurrent Set may have refreshed it
		if cur, still := m.entries[key]; still && m.expired(cur) {
			delete(m.entries, key)
		}
		m.mu.Unlock()
		ok = false
	}
	if !ok {
		m.misses.Add(1)
		return entities.PublicView{}, false, nil
	}
	m.hits.Add(1)
	return e.view, true, nil
}

func (m *MemoryStore) Set(_ context.Context, key Key, view entities.PublicView) error {
	e := memoryEntry{view: view}
	if m.ttl > 0 {
		e.expires = m.now().Add(m.ttl)
	}
	m.mu.Lock()
	m.entries[key] = e
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, key Key) error {
	m.mu.Lock()
	delete(m.entries, key)
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Stats(_ context.Context) (Stats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	live := 0
	for _, e := range m.entries {
		if !m.expired(e) {
			live++
		}
	}
	return Stats{
		Driver:  "memory",
		Entries: live,
		Hits:    m.hits.Load(),
		Misses:  m.misses.Load(),
		TTL:     m.ttl.String(),
	}, nil
}

func (m *MemoryStore) expired(e memoryEntry) bool {
	return !e.expires.IsZero() && !m.now().Before(e.expires)
}
